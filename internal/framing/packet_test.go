package framing

import (
	"bytes"
	"testing"
)

func TestBaseLength(t *testing.T) {
	b, err := Encode(Packet{ID: 0, IsMeta: false, IsLast: false, Payload: nil})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(b) != BaseLength {
		t.Fatalf("base length = %d, want %d", len(b), BaseLength)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []Packet{
		{ID: 0, IsMeta: true, IsLast: false, Payload: []byte("hello")},
		{ID: 42, IsMeta: false, IsLast: true, Payload: bytes.Repeat([]byte{0xAB}, 4096)},
		{ID: 1<<32 - 1, IsMeta: false, IsLast: false, Payload: nil},
	}

	for _, p := range cases {
		b, err := Encode(p)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if len(b)-len(p.Payload) != BaseLength {
			t.Fatalf("overhead = %d, want %d", len(b)-len(p.Payload), BaseLength)
		}
		got, err := Decode(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != p.ID || got.IsMeta != p.IsMeta || got.IsLast != p.IsLast {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, p)
		}
		if !bytes.Equal(got.Payload, p.Payload) && len(got.Payload) != 0 {
			t.Fatalf("payload mismatch")
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte{0x90}); err == nil {
		t.Fatal("expected error decoding empty array")
	}
	if _, err := Decode([]byte("not msgpack at all")); err == nil {
		t.Fatal("expected error decoding garbage")
	}
}
