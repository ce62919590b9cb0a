package check

import (
	"bufio"
	"fmt"

	"github.com/spf13/afero"

	streamerrors "github.com/tamirms/tracesort/errors"
	"github.com/tamirms/tracesort/internal/tracefmt"
)

// SourceDigests computes, per mode, the digest of every record line in the
// given source files. An output whose Report.Digest equals the digest of its
// mode holds exactly the source lines of that mode.
func SourceDigests(fs afero.Fs, paths []string) (map[byte]Digest, error) {
	digests := map[byte]Digest{tracefmt.ModeRead: {}, tracefmt.ModeWrite: {}}
	for _, p := range paths {
		if err := digestSource(fs, p, digests); err != nil {
			return nil, err
		}
	}
	return digests, nil
}

func digestSource(fs afero.Fs, path string, digests map[byte]Digest) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineLength)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if lineNo == 1 || len(line) == 0 {
			continue
		}
		e, err := tracefmt.ParseLine(line)
		if err != nil {
			return &streamerrors.FormatError{Path: path, Line: lineNo, Raw: string(line), Err: err}
		}
		d := digests[e.Mode]
		d.add(line)
		digests[e.Mode] = d
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
