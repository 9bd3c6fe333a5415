package transfer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/files"
	"github.com/mistwave/filemesh/internal/framing"
)

const partSuffix = ".part"

// Receiver reassembles incoming metadata and payload packets, materialises
// the destination tree, and acknowledges completion.
type Receiver struct {
	Channel  Channel
	Manager  *files.Manager
	Bus      *events.Bus
	DestRoot string

	mu      sync.Mutex
	meta    map[uint32]files.MetaData
	scratch map[uint32][]byte
}

// NewReceiver constructs a Receiver writing beneath destRoot.
func NewReceiver(ch Channel, mgr *files.Manager, bus *events.Bus, destRoot string) *Receiver {
	return &Receiver{
		Channel:  ch,
		Manager:  mgr,
		Bus:      bus,
		DestRoot: destRoot,
		meta:     make(map[uint32]files.MetaData),
		scratch:  make(map[uint32][]byte),
	}
}

// HandleMessage dispatches one inbound data-channel message; wire it up
// via Controller.OnMessage.
func (r *Receiver) HandleMessage(msg webrtc.DataChannelMessage) {
	var err error
	if msg.IsString {
		err = r.handleControl(msg.Data)
	} else {
		err = r.handleBinary(msg.Data)
	}
	if err != nil {
		r.Bus.Publish(events.Event{Kind: events.KindFatalError, Err: err})
	}
}

func (r *Receiver) handleControl(data []byte) error {
	ctrl, err := DecodeControl(data)
	if err != nil {
		// Malformed control frames are dropped, not fatal.
		return nil
	}

	switch ctrl.Kind {
	case ControlFilePacketReceived:
		// Delivery ack from the peer that has our data: drives the
		// sender-side speed counter off acknowledged throughput rather
		// than local write speed.
		r.Bus.Publish(events.Event{
			Kind:   events.KindReportFileSpeedOut,
			FileID: ctrl.SpeedReport.FileID,
			Bytes:  int(ctrl.SpeedReport.Bytes),
		})
	case ControlFileReceived:
		r.Bus.Publish(events.Event{Kind: events.KindMessageReceived, Text: fmt.Sprintf("peer confirmed receipt of file %d", ctrl.FileID)})
	case ControlText:
		r.Bus.Publish(events.Event{Kind: events.KindMessageReceived, Text: ctrl.Text})
	}
	return nil
}

func (r *Receiver) handleBinary(data []byte) error {
	pkt, err := framing.Decode(data)
	if err != nil {
		// Malformed binary frames are dropped, never fatal to the receiver.
		return nil
	}

	if pkt.IsMeta {
		return r.handleMeta(pkt)
	}
	return r.handleData(pkt)
}

func (r *Receiver) handleMeta(pkt framing.Packet) error {
	r.mu.Lock()
	if _, done := r.meta[pkt.ID]; done {
		r.mu.Unlock()
		return nil // duplicate, ignore
	}
	r.scratch[pkt.ID] = append(r.scratch[pkt.ID], pkt.Payload...)
	r.mu.Unlock()

	if !pkt.IsLast {
		return nil
	}

	r.mu.Lock()
	raw := r.scratch[pkt.ID]
	delete(r.scratch, pkt.ID)
	r.mu.Unlock()

	var meta files.MetaData
	if err := json.Unmarshal(raw, &meta); err != nil {
		return fmt.Errorf("%w: metadata for id %d: %v", ErrMalformedFrame, pkt.ID, err)
	}

	r.mu.Lock()
	r.meta[pkt.ID] = meta
	r.mu.Unlock()

	destPath := r.destPath(meta)
	if err := r.materializeTree(meta, destPath); err != nil {
		return NewFileError("materialize", meta.Name, err)
	}

	switch {
	case meta.IsDir:
		return r.ackFileReceived(pkt.ID)
	case meta.Size == 0:
		f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return NewFileError("create", meta.Name, err)
		}
		f.Close()

		input := &files.InputFile{ID: pkt.ID, MetaData: meta, ProgressVal: 1.0}
		r.Manager.InsertInputFile(input)
		r.Bus.Publish(events.Event{Kind: events.KindInputFileNew, FileID: pkt.ID, Name: meta.Name})
		r.Bus.Publish(events.Event{Kind: events.KindInputFileProgress, FileID: pkt.ID, Progress: 1.0})
		return r.ackFileReceived(pkt.ID)
	default:
		input := &files.InputFile{ID: pkt.ID, MetaData: meta}
		r.Manager.InsertInputFile(input)
		r.Bus.Publish(events.Event{Kind: events.KindInputFileNew, FileID: pkt.ID, Name: meta.Name})
		return nil
	}
}

func (r *Receiver) handleData(pkt framing.Packet) error {
	r.mu.Lock()
	meta, ok := r.meta[pkt.ID]
	r.mu.Unlock()
	if !ok {
		// Data for an unknown id is a protocol violation: dropped, logged.
		slog.Warn("transfer: dropping data packet", "id", pkt.ID, "err", ErrProtocolViolation)
		return nil
	}

	destPath := r.destPath(meta)
	partPath := destPath + partSuffix

	f, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return NewFileError("open part", meta.Name, err)
	}
	_, writeErr := f.Write(pkt.Payload)
	f.Close()
	if writeErr != nil {
		return NewFileError("write", meta.Name, writeErr)
	}

	meta.ProgressBytes += uint64(len(pkt.Payload))
	r.mu.Lock()
	r.meta[pkt.ID] = meta
	r.mu.Unlock()

	progress := float64(meta.ProgressBytes) / float64(meta.Size)
	input, _ := r.Manager.InputFile(pkt.ID)
	if input != nil {
		input.ProgressVal = progress
	}
	r.Bus.Publish(events.Event{Kind: events.KindInputFileProgress, FileID: pkt.ID, Progress: progress})
	r.Bus.Publish(events.Event{Kind: events.KindReportFileSpeedIn, FileID: pkt.ID, Bytes: len(pkt.Payload)})

	if err := r.sendSpeedReport(pkt.ID, len(pkt.Payload)); err != nil {
		return err
	}

	if !pkt.IsLast {
		return nil
	}

	if err := os.Rename(partPath, destPath); err != nil {
		return NewFileError("rename", meta.Name, err)
	}
	return r.ackFileReceived(pkt.ID)
}

func (r *Receiver) destPath(meta files.MetaData) string {
	return filepath.Join(r.DestRoot, filepath.FromSlash(meta.DestinationPath()))
}

func (r *Receiver) materializeTree(meta files.MetaData, destPath string) error {
	if meta.IsDir {
		return os.MkdirAll(destPath, 0o755)
	}
	parent := filepath.Dir(destPath)
	if parent != "" && parent != "." {
		return os.MkdirAll(parent, 0o755)
	}
	return nil
}

func (r *Receiver) ackFileReceived(id uint32) error {
	sender := &Sender{Channel: r.Channel}
	return sender.SendControl(ControlMessage{Kind: ControlFileReceived, FileID: id})
}

func (r *Receiver) sendSpeedReport(id uint32, n int) error {
	sender := &Sender{Channel: r.Channel}
	return sender.SendControl(ControlMessage{
		Kind: ControlFilePacketReceived,
		SpeedReport: SpeedReportWire{
			FileID: id,
			Bytes:  uint64(n),
		},
	})
}
