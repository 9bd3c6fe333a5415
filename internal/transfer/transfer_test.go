package transfer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/files"
)

// loopChannel feeds everything sent straight into a Receiver, synchronously,
// standing in for the data channel in single-process tests.
type loopChannel struct {
	recv *Receiver
}

func (l *loopChannel) SendBinary(b []byte) error {
	l.recv.HandleMessage(webrtc.DataChannelMessage{Data: b, IsString: false})
	return nil
}

func (l *loopChannel) SendText(s string) error {
	l.recv.HandleMessage(webrtc.DataChannelMessage{Data: []byte(s), IsString: true})
	return nil
}

func (l *loopChannel) AwaitThreshold() {}

func TestSingleSmallFileEndToEnd(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	content := make([]byte, 1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	srcPath := filepath.Join(srcDir, "payload.bin")
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := files.NewManager(false)
	if err := mgr.AddOutputFiles([]string{srcPath}); err != nil {
		t.Fatalf("add output files: %v", err)
	}
	outputs := mgr.OutputFiles()
	if len(outputs) != 1 {
		t.Fatalf("got %d output files, want 1", len(outputs))
	}

	bus := events.NewBus()
	inMgr := files.NewManager(false)

	lc := &loopChannel{}
	receiver := NewReceiver(lc, inMgr, bus, dstDir)
	lc.recv = receiver

	sender := NewSender(lc, 65536, bus)
	if err := sender.SendAllMeta(outputs); err != nil {
		t.Fatalf("send meta: %v", err)
	}
	if err := sender.SendFileData(outputs[0], srcPath); err != nil {
		t.Fatalf("send data: %v", err)
	}

	gotPath := filepath.Join(dstDir, "payload.bin")
	got, err := os.ReadFile(gotPath)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(got) != string(content) {
		t.Fatal("destination content mismatch")
	}
	if _, err := os.Stat(gotPath + partSuffix); !os.IsNotExist(err) {
		t.Fatal("expected .part file to be gone after rename")
	}
}

func TestZeroByteFileEndToEnd(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	srcPath := filepath.Join(srcDir, "empty.txt")
	if err := os.WriteFile(srcPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := files.NewManager(false)
	if err := mgr.AddOutputFiles([]string{srcPath}); err != nil {
		t.Fatal(err)
	}
	outputs := mgr.OutputFiles()

	bus := events.NewBus()
	inMgr := files.NewManager(false)
	lc := &loopChannel{}
	receiver := NewReceiver(lc, inMgr, bus, dstDir)
	lc.recv = receiver

	sender := NewSender(lc, 65536, bus)
	if err := sender.SendAllMeta(outputs); err != nil {
		t.Fatalf("send meta: %v", err)
	}

	info, err := os.Stat(filepath.Join(dstDir, "empty.txt"))
	if err != nil {
		t.Fatalf("destination file missing: %v", err)
	}
	if info.Size() != 0 {
		t.Fatal("expected zero-byte destination file")
	}
}
