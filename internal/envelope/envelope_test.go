package envelope

import "testing"

func TestWrapUnwrapRoundTrip(t *testing.T) {
	secret, err := NewSecret([]byte("01234567890123456789012345678901"[:KeySize]))
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}

	const msg = `{"Offer":"v=0..."}`
	token, err := Wrap(secret, msg)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	got, err := Unwrap(secret, token)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if got != msg {
		t.Fatalf("got %q want %q", got, msg)
	}
}

func TestUnwrapWrongKeyFails(t *testing.T) {
	a, _ := NewSecret([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	b, _ := NewSecret([]byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"))

	token, err := Wrap(a, "hello")
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if _, err := Unwrap(b, token); err == nil {
		t.Fatal("expected decrypt failure with wrong key")
	}
}
