// Package plugin defines plugin interfaces.
package plugin

import (
	"context"

	"firestige.xyz/hpsdrdump/internal/core"
)

// Capturer captures raw packets from a file or a network interface.
// Capture returns nil when the source is exhausted.
type Capturer interface {
	Plugin
	Capture(ctx context.Context, output chan<- core.RawPacket) error
	Stats() CaptureStats
}

// CaptureStats represents capture statistics.
type CaptureStats struct {
	PacketsReceived  uint64
	PacketsDropped   uint64
	PacketsIfDropped uint64
}
