package capture

import (
	"errors"
	"gonetcap/internal/models"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// Device describes a capture-capable network interface.
type Device struct {
	Name        string
	Description string
}

// Label returns the description when present, the name otherwise.
func (d Device) Label() string {
	if d.Description != "" {
		return d.Description
	}
	return d.Name
}

// ListDevices enumerates the interfaces libpcap can capture on.
func ListDevices() ([]Device, error) {
	ifaces, err := pcap.FindAllDevs()
	if err != nil {
		return nil, &DeviceError{Op: "list devices", Err: err}
	}

	devices := make([]Device, 0, len(ifaces))
	for _, iface := range ifaces {
		devices = append(devices, Device{Name: iface.Name, Description: iface.Description})
	}
	return devices, nil
}

// LiveSource reads frames from a live pcap handle opened with a bounded read timeout.
type LiveSource struct {
	device string
	handle *pcap.Handle
}

// OpenLive opens device for capture. Any failure is returned as a *DeviceError.
func OpenLive(device string, opts Options) (*LiveSource, error) {
	opts = applyDefaults(opts)

	inactive, err := pcap.NewInactiveHandle(device)
	if err != nil {
		return nil, &DeviceError{Device: device, Op: "open", Err: err}
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(opts.SnapLen); err != nil {
		return nil, &DeviceError{Device: device, Op: "set snaplen", Err: err}
	}
	if err := inactive.SetPromisc(opts.Promisc); err != nil {
		return nil, &DeviceError{Device: device, Op: "set promiscuous mode", Err: err}
	}
	if err := inactive.SetTimeout(opts.Timeout); err != nil {
		return nil, &DeviceError{Device: device, Op: "set timeout", Err: err}
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, &DeviceError{Device: device, Op: "activate", Err: err}
	}

	if opts.Filter != "" {
		if err := handle.SetBPFFilter(opts.Filter); err != nil {
			handle.Close()
			return nil, &DeviceError{Device: device, Op: "set filter", Err: err}
		}
	}

	return &LiveSource{device: device, handle: handle}, nil
}

// NextFrame waits at most the configured timeout for the next frame.
func (s *LiveSource) NextFrame() (models.Frame, error) {
	data, ci, err := s.handle.ReadPacketData()
	if err != nil {
		if errors.Is(err, pcap.NextErrorTimeoutExpired) {
			return models.Frame{}, ErrTimeout
		}
		return models.Frame{}, err
	}
	return models.Frame{Data: data, Timestamp: ci.Timestamp}, nil
}

// LinkType returns the data link type of the device.
func (s *LiveSource) LinkType() layers.LinkType {
	return s.handle.LinkType()
}

// Device returns the name of the device being captured.
func (s *LiveSource) Device() string {
	return s.device
}

// Close releases the pcap handle.
func (s *LiveSource) Close() error {
	s.handle.Close()
	return nil
}
