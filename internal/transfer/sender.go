package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/files"
	"github.com/mistwave/filemesh/internal/framing"
)

// Channel is the minimal data-channel capability the sender needs,
// satisfied by *rtc.Controller.
type Channel interface {
	SendBinary(b []byte) error
	SendText(s string) error
	AwaitThreshold()
}

// Sender streams metadata then file bytes for a queue of OutputFile
// entries, honouring the configured chunk size and the channel's
// backpressure threshold.
type Sender struct {
	Channel   Channel
	ChunkSize int // bytes, already clamped to [8192, 65535]
	Bus       *events.Bus
}

// NewSender constructs a Sender. chunkSize is the full frame size budget
// (including the 13-byte framing overhead).
func NewSender(ch Channel, chunkSize int, bus *events.Bus) *Sender {
	return &Sender{Channel: ch, ChunkSize: chunkSize, Bus: bus}
}

func (s *Sender) send(p framing.Packet) error {
	s.Channel.AwaitThreshold()
	b, err := framing.Encode(p)
	if err != nil {
		return fmt.Errorf("transfer: encode packet: %w", err)
	}
	return s.Channel.SendBinary(b)
}

// SendAllMeta serialises and sends each file's MetaData in order, emitting
// OutputFileProgress(1.0) immediately for zero-size files and directories,
// and MetaSent once every file's metadata is on the wire.
func (s *Sender) SendAllMeta(outputs []*files.OutputFile) error {
	bufferSize := s.ChunkSize - framing.BaseLength

	for _, f := range outputs {
		metaJSON, err := json.Marshal(f.MetaData)
		if err != nil {
			return NewFileError("marshal metadata", f.MetaData.Name, err)
		}

		if err := s.sendChunked(f.ID, metaJSON, bufferSize); err != nil {
			return NewFileError("send metadata", f.MetaData.Name, err)
		}

		if f.MetaData.IsDir || f.MetaData.Size == 0 {
			s.Bus.Publish(events.Event{Kind: events.KindOutputFileProgress, FileID: f.ID, Progress: 1.0})
		}
	}

	s.Bus.Publish(events.Event{Kind: events.KindMetaSent})
	return nil
}

func (s *Sender) sendChunked(id uint32, data []byte, bufferSize int) error {
	if bufferSize <= 0 {
		return fmt.Errorf("transfer: chunk size too small for framing overhead")
	}

	counter := 0
	for counter < len(data) {
		end := counter + bufferSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[counter:end]
		isLast := end >= len(data)

		if err := s.send(framing.Packet{ID: id, IsMeta: true, IsLast: isLast, Payload: chunk}); err != nil {
			return err
		}
		counter = end
	}
	return nil
}

// SendFileData streams one file's bytes sequentially: directories and
// zero-size files are skipped (their completion was already reported
// during the metadata pass).
func (s *Sender) SendFileData(f *files.OutputFile, path string) error {
	if f.MetaData.IsDir || f.MetaData.Size == 0 {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return NewFileError("open", f.MetaData.Name, err)
	}
	defer file.Close()

	bufferSize := s.ChunkSize - framing.BaseLength
	buf := make([]byte, bufferSize)
	var counter uint64

	for {
		n, err := file.Read(buf)
		if n > 0 {
			counter += uint64(n)
			isLast := counter >= f.MetaData.Size

			if sendErr := s.send(framing.Packet{ID: f.ID, IsMeta: false, IsLast: isLast, Payload: buf[:n]}); sendErr != nil {
				return NewFileError("send data", f.MetaData.Name, sendErr)
			}

			progress := float64(counter) / float64(f.MetaData.Size)
			if progress > 0.99 {
				progress = 0.99
			}
			f.ProgressVal = progress
			s.Bus.Publish(events.Event{Kind: events.KindOutputFileProgress, FileID: f.ID, Progress: progress})
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return NewFileError("read", f.MetaData.Name, err)
		}
	}

	f.ProgressVal = 1.0
	f.FinishedVal = true
	s.Bus.Publish(events.Event{Kind: events.KindOutputFileProgress, FileID: f.ID, Progress: 1.0})
	s.Bus.Publish(events.Event{Kind: events.KindOutputFileFinished, FileID: f.ID})
	return nil
}

// SendControl JSON-encodes and sends a control message as a text frame,
// also subject to the backpressure threshold.
func (s *Sender) SendControl(m ControlMessage) error {
	s.Channel.AwaitThreshold()
	b, err := EncodeControl(m)
	if err != nil {
		return err
	}
	return s.Channel.SendText(string(b))
}
