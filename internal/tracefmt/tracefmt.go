// Package tracefmt defines the on-disk trace line format shared by the
// engine, the output checker and the synthetic trace generator.
//
// A trace file is one header line followed by one record per line in one of
// two fixed layouts:
//
//	timestamp,,mode,lun,offset,size          (empty response field)
//	timestamp,response,mode,lun,offset,size  (response present)
//
// Timestamps are written with a fixed width of 20 characters, so the shape of
// a line can be read off column 21: a separator there means the response
// field is empty.
package tracefmt

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	streamerrors "github.com/tamirms/tracesort/errors"
)

const (
	// Header is the first line of every input and output trace file.
	Header = "Timestamp,Response,IOType,LUN,Offset,Size"

	// HeaderLen is the on-disk length of Header including its terminator.
	HeaderLen = len(Header) + 1

	// HistogramHeader introduces the size histogram section of an output file.
	HistogramHeader = "SIZE,COUNT"

	// ModeRead and ModeWrite are the two legal values of the IOType field.
	ModeRead  = 'R'
	ModeWrite = 'W'

	numFields      = 6
	timestampWidth = 20
	shapeColumn    = 21
)

// Shape identifies which of the two line layouts a record uses.
type Shape uint8

const (
	// ShapeEmptyResponse is `timestamp,,mode,lun,offset,size`.
	ShapeEmptyResponse Shape = iota
	// ShapeWithResponse is `timestamp,response,mode,lun,offset,size`.
	ShapeWithResponse
)

func (s Shape) String() string {
	if s == ShapeEmptyResponse {
		return "empty-response"
	}
	return "with-response"
}

// Entry is the part of a trace line the engine sorts on.
type Entry struct {
	Timestamp float64
	Size      uint32
	Mode      byte
	Shape     Shape
}

// TrimEOL strips a trailing "\n" or "\r\n" from a raw line.
func TrimEOL(raw []byte) []byte {
	raw = bytes.TrimSuffix(raw, []byte{'\n'})
	return bytes.TrimSuffix(raw, []byte{'\r'})
}

// ParseLine parses one record line (without terminator).
// Errors wrap errors.ErrFormat.
func ParseLine(line []byte) (Entry, error) {
	var fields [numFields][]byte
	n, start := 0, 0
	for i, c := range line {
		if c != ',' {
			continue
		}
		if n == numFields-1 {
			return Entry{}, fmt.Errorf("%w: more than %d fields", streamerrors.ErrFormat, numFields)
		}
		fields[n] = line[start:i]
		n++
		start = i + 1
	}
	if n != numFields-1 {
		return Entry{}, fmt.Errorf("%w: %d fields, want %d", streamerrors.ErrFormat, n+1, numFields)
	}
	fields[n] = line[start:]

	shape := shapeOf(line, fields[0], fields[1])
	switch shape {
	case ShapeEmptyResponse:
		if len(fields[1]) != 0 {
			return Entry{}, fmt.Errorf("%w: separator at column %d but response field is %q",
				streamerrors.ErrFormat, shapeColumn, fields[1])
		}
	case ShapeWithResponse:
		if len(fields[1]) == 0 {
			return Entry{}, fmt.Errorf("%w: no separator at column %d but response field is empty",
				streamerrors.ErrFormat, shapeColumn)
		}
		if _, err := strconv.ParseFloat(string(fields[1]), 64); err != nil {
			return Entry{}, fmt.Errorf("%w: response %q is not a number", streamerrors.ErrFormat, fields[1])
		}
	}

	ts, err := strconv.ParseFloat(string(fields[0]), 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: timestamp %q is not a number", streamerrors.ErrFormat, fields[0])
	}
	if math.IsNaN(ts) || math.IsInf(ts, 0) {
		return Entry{}, fmt.Errorf("%w: timestamp %q is not finite", streamerrors.ErrFormat, fields[0])
	}

	if len(fields[2]) != 1 || (fields[2][0] != ModeRead && fields[2][0] != ModeWrite) {
		return Entry{}, fmt.Errorf("%w: mode %q is not R or W", streamerrors.ErrFormat, fields[2])
	}

	if !isUnsigned(fields[3]) {
		return Entry{}, fmt.Errorf("%w: LUN %q is not an unsigned integer", streamerrors.ErrFormat, fields[3])
	}
	if !isUnsigned(fields[4]) {
		return Entry{}, fmt.Errorf("%w: offset %q is not an unsigned integer", streamerrors.ErrFormat, fields[4])
	}

	size, err := strconv.ParseUint(string(fields[5]), 10, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: size %q is not a 32-bit unsigned integer", streamerrors.ErrFormat, fields[5])
	}

	return Entry{
		Timestamp: ts,
		Size:      uint32(size),
		Mode:      fields[2][0],
		Shape:     shape,
	}, nil
}

// shapeOf reads the layout off column 21 when the timestamp has the fixed
// width. Shorter or longer timestamps fall back to the response field itself.
func shapeOf(line, timestamp, response []byte) Shape {
	if len(timestamp) == timestampWidth && len(line) > shapeColumn {
		if line[shapeColumn] == ',' {
			return ShapeEmptyResponse
		}
		return ShapeWithResponse
	}
	if len(response) == 0 {
		return ShapeEmptyResponse
	}
	return ShapeWithResponse
}

func isUnsigned(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// AppendHistogramRow appends "size,count\n" to dst.
func AppendHistogramRow(dst []byte, size uint32, count uint64) []byte {
	dst = strconv.AppendUint(dst, uint64(size), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, count, 10)
	return append(dst, '\n')
}

// ParseHistogramRow parses a "size,count" line (without terminator).
func ParseHistogramRow(line []byte) (size uint32, count uint64, err error) {
	sizeField, countField, ok := bytes.Cut(line, []byte{','})
	if !ok {
		return 0, 0, fmt.Errorf("%w: histogram row %q has no separator", streamerrors.ErrFormat, line)
	}
	s, err := strconv.ParseUint(string(sizeField), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: histogram size %q", streamerrors.ErrFormat, sizeField)
	}
	c, err := strconv.ParseUint(string(countField), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: histogram count %q", streamerrors.ErrFormat, countField)
	}
	return uint32(s), c, nil
}
