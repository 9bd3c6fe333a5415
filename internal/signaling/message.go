// Package signaling defines the pluggable signaling-transport capability
// set and its three implementations (manual, WebSocket, MQTT).
package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MessageKind discriminates the signaling sum type.
type MessageKind int

const (
	KindUUID MessageKind = iota
	KindOffer
	KindAnswer
)

// Message is the signaling sum type exchanged by every transport:
// Uuid(uuid) | Offer(sdp) | Answer(sdp).
type Message struct {
	Kind MessageKind
	UUID uuid.UUID
	SDP  string
}

func UUIDMessage(id uuid.UUID) Message { return Message{Kind: KindUUID, UUID: id} }
func OfferMessage(sdp string) Message  { return Message{Kind: KindOffer, SDP: sdp} }
func AnswerMessage(sdp string) Message { return Message{Kind: KindAnswer, SDP: sdp} }

// wireMessage mirrors the JSON shape `{"Uuid":"..."}` | `{"Offer":"..."}` |
// `{"Answer":"..."}`.
type wireMessage struct {
	UUID   *string `json:"Uuid,omitempty"`
	Offer  *string `json:"Offer,omitempty"`
	Answer *string `json:"Answer,omitempty"`
}

// Encode serialises m to its wire JSON form.
func Encode(m Message) ([]byte, error) {
	var w wireMessage
	switch m.Kind {
	case KindUUID:
		s := m.UUID.String()
		w.UUID = &s
	case KindOffer:
		w.Offer = &m.SDP
	case KindAnswer:
		w.Answer = &m.SDP
	default:
		return nil, fmt.Errorf("signaling: unknown message kind %d", m.Kind)
	}
	return json.Marshal(w)
}

// Decode parses the wire JSON form into a Message.
func Decode(b []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return Message{}, fmt.Errorf("signaling: decode: %w", err)
	}
	switch {
	case w.UUID != nil:
		id, err := uuid.Parse(*w.UUID)
		if err != nil {
			return Message{}, fmt.Errorf("signaling: decode uuid: %w", err)
		}
		return UUIDMessage(id), nil
	case w.Offer != nil:
		return OfferMessage(*w.Offer), nil
	case w.Answer != nil:
		return AnswerMessage(*w.Answer), nil
	default:
		return Message{}, fmt.Errorf("signaling: decode: empty message")
	}
}
