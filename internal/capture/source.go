// Package capture provides frame sources: live network devices and offline capture files.
package capture

import (
	"errors"
	"fmt"
	"gonetcap/internal/models"
	"time"

	"github.com/google/gopacket/layers"
)

// ErrTimeout is returned by NextFrame when the bounded wait elapsed with no frame.
// It is expected control flow, not a failure.
var ErrTimeout = errors.New("capture: timeout waiting for frame")

// Source yields raw frames from a network interface or a capture file.
//
// NextFrame returns ErrTimeout when no frame arrived within the source's
// bounded wait, io.EOF when an offline source is exhausted, and any other
// error when the source failed and cannot continue.
type Source interface {
	NextFrame() (models.Frame, error)
	LinkType() layers.LinkType
	Close() error
}

// DeviceError reports a failure to enumerate or open a capture device.
type DeviceError struct {
	Device string
	Op     string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("capture: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("capture: %s %s: %v", e.Op, e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Options controls how a live device is opened.
type Options struct {
	// SnapLen is the maximum number of bytes captured per frame.
	// Defaults to 65536 if unset or <= 0.
	SnapLen int
	// Promisc opens the interface in promiscuous mode.
	Promisc bool
	// Timeout bounds each frame request so the capture loop stays responsive.
	// Defaults to 50ms if unset or <= 0; a live source never blocks forever.
	Timeout time.Duration
	// Filter is an optional BPF expression.
	Filter string
}

func applyDefaults(opts Options) Options {
	if opts.SnapLen <= 0 {
		opts.SnapLen = 65536
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 50 * time.Millisecond
	}
	return opts
}
