// Package core defines sentinel errors.
package core

import "errors"

var (
	// Packet decoding errors
	ErrPacketTooShort      = errors.New("hpsdrdump: packet too short")
	ErrUnsupportedLinkType = errors.New("hpsdrdump: unsupported link type")
	ErrNotIP               = errors.New("hpsdrdump: not an IP packet")
	ErrNotUDP              = errors.New("hpsdrdump: not a UDP datagram")
	ErrFragmented          = errors.New("hpsdrdump: IP fragment")

	// Pipeline errors
	ErrPipelineStopped = errors.New("hpsdrdump: pipeline stopped")

	// Plugin errors
	ErrPluginNotFound   = errors.New("hpsdrdump: plugin not found")
	ErrPluginInitFailed = errors.New("hpsdrdump: plugin init failed")

	// Configuration errors
	ErrConfigInvalid = errors.New("hpsdrdump: invalid configuration")
)
