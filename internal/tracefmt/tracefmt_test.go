package tracefmt

import (
	"errors"
	"testing"

	streamerrors "github.com/tamirms/tracesort/errors"
)

func TestParseLineShapes(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Entry
	}{
		{
			name: "fixed_width_empty_response",
			line: "1455235200.000000000,,R,0,4096,512",
			want: Entry{Timestamp: 1455235200.0, Size: 512, Mode: ModeRead, Shape: ShapeEmptyResponse},
		},
		{
			name: "fixed_width_with_response",
			line: "1455235200.000000000,0.000231,R,0,4096,512",
			want: Entry{Timestamp: 1455235200.0, Size: 512, Mode: ModeRead, Shape: ShapeWithResponse},
		},
		{
			name: "short_empty_response",
			line: "0.0,,R,0,100,4096",
			want: Entry{Timestamp: 0, Size: 4096, Mode: ModeRead, Shape: ShapeEmptyResponse},
		},
		{
			name: "short_with_response",
			line: "0.001,0.2,W,0,200,512",
			want: Entry{Timestamp: 0.001, Size: 512, Mode: ModeWrite, Shape: ShapeWithResponse},
		},
		{
			name: "zero_size",
			line: "5.0,,W,6,0,0",
			want: Entry{Timestamp: 5.0, Size: 0, Mode: ModeWrite, Shape: ShapeEmptyResponse},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLine([]byte(tc.line))
			if err != nil {
				t.Fatalf("ParseLine(%q): %v", tc.line, err)
			}
			if got != tc.want {
				t.Fatalf("ParseLine(%q) = %+v, want %+v", tc.line, got, tc.want)
			}
		})
	}
}

// TestParseLineShapeAgreement verifies that both layouts carry identical
// sort semantics when size, timestamp and mode agree.
func TestParseLineShapeAgreement(t *testing.T) {
	a, err := ParseLine([]byte("1455235201.123456789,,W,2,65536,8192"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseLine([]byte("1455235201.123456789,0.5,W,2,65536,8192"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Timestamp != b.Timestamp || a.Size != b.Size || a.Mode != b.Mode {
		t.Fatalf("shapes disagree: %+v vs %+v", a, b)
	}
	if a.Shape == b.Shape {
		t.Fatalf("expected different shapes, both %v", a.Shape)
	}
}

func TestParseLineErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"too_few_fields", "0.0,,R,0,100"},
		{"too_many_fields", "0.0,,R,0,100,4096,7"},
		{"bad_timestamp", "abc,,R,0,100,4096"},
		{"nan_timestamp", "NaN,,R,0,100,4096"},
		{"inf_timestamp", "+Inf,,R,0,100,4096"},
		{"bad_mode", "0.0,,X,0,100,4096"},
		{"long_mode", "0.0,,RW,0,100,4096"},
		{"bad_lun", "0.0,,R,-1,100,4096"},
		{"empty_offset", "0.0,,R,0,,4096"},
		{"bad_size", "0.0,,R,0,100,4k"},
		{"size_overflow", "0.0,,R,0,100,99999999999"},
		{"bad_response", "0.0,fast,R,0,100,4096"},
		{"header", Header},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLine([]byte(tc.line))
			if err == nil {
				t.Fatalf("ParseLine(%q) succeeded, want error", tc.line)
			}
			if !errors.Is(err, streamerrors.ErrFormat) {
				t.Fatalf("ParseLine(%q) error %v does not wrap ErrFormat", tc.line, err)
			}
		})
	}
}

func TestTrimEOL(t *testing.T) {
	tests := map[string]string{
		"a,b\n":   "a,b",
		"a,b\r\n": "a,b",
		"a,b":     "a,b",
		"\n":      "",
	}
	for in, want := range tests {
		if got := string(TrimEOL([]byte(in))); got != want {
			t.Errorf("TrimEOL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHistogramRowRoundTrip(t *testing.T) {
	row := AppendHistogramRow(nil, 4096, 17)
	if string(row) != "4096,17\n" {
		t.Fatalf("AppendHistogramRow = %q", row)
	}
	size, count, err := ParseHistogramRow(TrimEOL(row))
	if err != nil {
		t.Fatal(err)
	}
	if size != 4096 || count != 17 {
		t.Fatalf("ParseHistogramRow = (%d, %d), want (4096, 17)", size, count)
	}

	if _, _, err := ParseHistogramRow([]byte("4096")); !errors.Is(err, streamerrors.ErrFormat) {
		t.Fatalf("missing separator: got %v, want ErrFormat", err)
	}
}

func TestHeaderLen(t *testing.T) {
	if HeaderLen != 42 {
		t.Fatalf("HeaderLen = %d, want 42", HeaderLen)
	}
}
