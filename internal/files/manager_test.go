package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSpeedCounterUndefinedWithOneSample(t *testing.T) {
	var c SpeedCounter
	if _, ok := c.Speed(); ok {
		t.Fatal("expected undefined speed with zero samples")
	}
	c.Add(SpeedReport{FileID: 1, Timestamp: time.Now(), Bytes: 100})
	if _, ok := c.Speed(); ok {
		t.Fatal("expected undefined speed with one sample")
	}
}

func TestSpeedCounterSkipsOldestSample(t *testing.T) {
	var c SpeedCounter
	base := time.Now()
	c.Add(SpeedReport{FileID: 1, Timestamp: base, Bytes: 1_000_000})
	c.Add(SpeedReport{FileID: 1, Timestamp: base.Add(time.Second), Bytes: 125_000})

	mbps, ok := c.Speed()
	if !ok {
		t.Fatal("expected defined speed")
	}
	// Only the second sample's bytes count: 125000*8/1e6 / 1s = 1 Mbps.
	if mbps < 0.99 || mbps > 1.01 {
		t.Fatalf("speed = %f, want ~1.0", mbps)
	}
}

func TestCompletionEmptyIsFalse(t *testing.T) {
	var files []*OutputFile
	if Completion(files) {
		t.Fatal("expected empty set to be incomplete")
	}
}

func TestDestinationPathWithBase(t *testing.T) {
	m := NewMetaData("mydir/sub/file.txt", 10, "mydir", false)
	if got, want := m.DestinationPath(), "mydir/sub/file.txt"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestDestinationPathWithoutBase(t *testing.T) {
	m := NewMetaData("file.txt", 10, "", false)
	if got, want := m.DestinationPath(), "file.txt"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestAddOutputFilesEnumeratesDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(false)
	if err := m.AddOutputFiles([]string{dir}); err != nil {
		t.Fatalf("add output files: %v", err)
	}

	files := m.OutputFiles()
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
}
