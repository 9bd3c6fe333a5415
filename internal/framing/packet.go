// Package framing implements the fixed-shape binary record sent over the
// data channel: a 4-tuple of (id, is-meta, is-last, payload).
package framing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// BaseLength is the exact byte overhead of an encoded Packet with an empty
// payload: fixarray(1) + u32(5) + bool(1) + bool(1) + bin32-header(5).
const BaseLength = 13

// bin32Code is the msgpack bin32 marker byte: a 1-byte code followed by a
// 4-byte big-endian length and the raw payload. The generic encoder picks
// bin8/bin16/bin32 by payload length, which would make the frame overhead
// vary with payload size; every Packet forces bin32 instead so the base
// overhead is the constant 13 bytes regardless of payload length.
const bin32Code = 0xc6

// MaxFrameSize is the largest frame the SCTP layer will carry without
// fragmentation concerns (64 KiB minus one byte).
const MaxFrameSize = 65535

// ErrMalformedFrame is returned when a frame does not decode to the
// expected 4-tuple shape or field types.
var ErrMalformedFrame = errors.New("framing: malformed frame")

// Packet is one unit of the chunked transfer protocol.
type Packet struct {
	ID      uint32
	IsMeta  bool
	IsLast  bool
	Payload []byte
}

// Encode serialises p into its wire form: a fixed 4-element array of
// [u32, bool, bool, bin32]. The returned slice is exactly
// BaseLength+len(p.Payload) bytes.
func Encode(p Packet) ([]byte, error) {
	payload := p.Payload
	if payload == nil {
		payload = []byte{}
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeArrayLen(4); err != nil {
		return nil, fmt.Errorf("framing: encode: %w", err)
	}
	if err := enc.EncodeUint32(p.ID); err != nil {
		return nil, fmt.Errorf("framing: encode: %w", err)
	}
	if err := enc.EncodeBool(p.IsMeta); err != nil {
		return nil, fmt.Errorf("framing: encode: %w", err)
	}
	if err := enc.EncodeBool(p.IsLast); err != nil {
		return nil, fmt.Errorf("framing: encode: %w", err)
	}

	buf.WriteByte(bin32Code)
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(payload)))
	buf.Write(lenBytes[:])
	buf.Write(payload)

	return buf.Bytes(), nil
}

// Decode parses b into a Packet, validating the shape and field types
// strictly: a 4-element array of [uint, bool, bool, bin].
func Decode(b []byte) (Packet, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	n, err := dec.DecodeArrayLen()
	if err != nil || n != 4 {
		return Packet{}, ErrMalformedFrame
	}

	id64, err := dec.DecodeUint32()
	if err != nil {
		return Packet{}, fmt.Errorf("%w: id: %v", ErrMalformedFrame, err)
	}
	isMeta, err := dec.DecodeBool()
	if err != nil {
		return Packet{}, fmt.Errorf("%w: is_meta: %v", ErrMalformedFrame, err)
	}
	isLast, err := dec.DecodeBool()
	if err != nil {
		return Packet{}, fmt.Errorf("%w: is_last: %v", ErrMalformedFrame, err)
	}
	payload, err := dec.DecodeBytes()
	if err != nil {
		return Packet{}, fmt.Errorf("%w: payload: %v", ErrMalformedFrame, err)
	}

	return Packet{ID: id64, IsMeta: isMeta, IsLast: isLast, Payload: payload}, nil
}
