package transfer

import (
	"encoding/json"
	"fmt"
	"time"
)

// ControlKind discriminates the text-frame control message sum type.
type ControlKind int

const (
	ControlText ControlKind = iota
	ControlFilePacketReceived
	ControlFileReceived
)

// SpeedReportWire is the wire shape of a per-packet speed acknowledgement.
type SpeedReportWire struct {
	FileID    uint32    `json:"file_id"`
	Bytes     uint64    `json:"bytes"`
	Timestamp time.Time `json:"timestamp"`
}

// ControlMessage is the text-frame sum type exchanged alongside binary
// packet frames: free text, a per-packet speed ack, or a final
// completion ack.
type ControlMessage struct {
	Kind        ControlKind
	Text        string
	SpeedReport SpeedReportWire
	FileID      uint32
}

type wireControl struct {
	TextMessage        *string          `json:"TextMessage,omitempty"`
	FilePacketReceived *SpeedReportWire `json:"FilePacketReceived,omitempty"`
	FileReceived       *uint32          `json:"FileReceived,omitempty"`
}

func EncodeControl(m ControlMessage) ([]byte, error) {
	var w wireControl
	switch m.Kind {
	case ControlText:
		w.TextMessage = &m.Text
	case ControlFilePacketReceived:
		w.FilePacketReceived = &m.SpeedReport
	case ControlFileReceived:
		w.FileReceived = &m.FileID
	default:
		return nil, fmt.Errorf("transfer: unknown control kind %d", m.Kind)
	}
	return json.Marshal(w)
}

func DecodeControl(b []byte) (ControlMessage, error) {
	var w wireControl
	if err := json.Unmarshal(b, &w); err != nil {
		return ControlMessage{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	switch {
	case w.TextMessage != nil:
		return ControlMessage{Kind: ControlText, Text: *w.TextMessage}, nil
	case w.FilePacketReceived != nil:
		return ControlMessage{Kind: ControlFilePacketReceived, SpeedReport: *w.FilePacketReceived}, nil
	case w.FileReceived != nil:
		return ControlMessage{Kind: ControlFileReceived, FileID: *w.FileReceived}, nil
	default:
		return ControlMessage{}, fmt.Errorf("%w: empty control message", ErrMalformedFrame)
	}
}
