package tracesort

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
)

func TestOutputWriterPublish(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "R.csv")
	ow, err := newOutputWriter(path, 11)
	if err != nil {
		t.Fatal(err)
	}

	// Fill from two disjoint regions, back half first.
	back, err := ow.region(6, 11)
	if err != nil {
		t.Fatal(err)
	}
	copy(back, "world")
	front, err := ow.region(0, 6)
	if err != nil {
		t.Fatal(err)
	}
	copy(front, "hello ")

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("final path visible before finalize: %v", err)
	}

	sum, err := ow.finalize()
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello world" {
		t.Fatalf("got %q", data)
	}
	if sum != xxhash.Sum64String("hello world") {
		t.Fatalf("checksum %x does not match contents", sum)
	}
	if err := ow.close(); err != nil {
		t.Fatalf("close after finalize: %v", err)
	}
	assertOnlyFiles(t, dir, "R.csv")
}

func TestOutputWriterAbandon(t *testing.T) {
	dir := t.TempDir()
	ow, err := newOutputWriter(filepath.Join(dir, "W.csv"), 128)
	if err != nil {
		t.Fatal(err)
	}
	if err := ow.close(); err != nil {
		t.Fatal(err)
	}
	if err := ow.close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	assertOnlyFiles(t, dir)
}

func TestOutputWriterRegionBounds(t *testing.T) {
	ow, err := newOutputWriter(filepath.Join(t.TempDir(), "R.csv"), 8)
	if err != nil {
		t.Fatal(err)
	}
	defer ow.close()

	for _, r := range [][2]int64{{-1, 2}, {4, 3}, {0, 9}} {
		if _, err := ow.region(r[0], r[1]); err == nil {
			t.Errorf("region(%d, %d) succeeded", r[0], r[1])
		}
	}
	if b, err := ow.region(8, 8); err != nil || len(b) != 0 {
		t.Errorf("empty region at end: %v, len %d", err, len(b))
	}
}

// assertOnlyFiles fails unless dir holds exactly the named entries.
func assertOnlyFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if len(got) != len(names) {
		t.Fatalf("directory holds %v, want %v", got, names)
	}
	for i := range names {
		if got[i] != names[i] {
			t.Fatalf("directory holds %v, want %v", got, names)
		}
	}
}
