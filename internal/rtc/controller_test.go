package rtc

import (
	"testing"

	"github.com/mistwave/filemesh/internal/config"
)

func TestBufferedAmountLowThresholdMatchesOriginal(t *testing.T) {
	const want = 128 * 1024
	if BufferedAmountLowThreshold != want {
		t.Fatalf("BufferedAmountLowThreshold = %d, want %d", BufferedAmountLowThreshold, want)
	}
}

func TestNewWithDefaultConfigSucceeds(t *testing.T) {
	cfg := config.Load(config.Options{})
	c, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if c.Channel == nil {
		t.Fatalf("expected a pre-negotiated data channel")
	}
	if c.Channel.ID() == nil || *c.Channel.ID() != channelID {
		t.Fatalf("expected data channel id %d", channelID)
	}
	select {
	case <-c.Opened:
		t.Fatalf("Opened should not be closed before OnOpen fires")
	default:
	}
}
