package models

import "time"

// EmptyPayload marks both payload views when the transport payload has no bytes.
const EmptyPayload = "<empty>"

// Frame is one raw unit of captured link-layer data.
// Data is owned by the capture source and must not be retained after decoding.
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

// NetworkAddresses holds the textual source/destination addresses.
// At most one of the IPv4 or IPv6 pairs is populated.
type NetworkAddresses struct {
	IPv4Src string
	IPv4Dst string
	IPv6Src string
	IPv6Dst string
}

// IsIPv6 reports whether the IPv6 pair is the populated one.
func (a NetworkAddresses) IsIPv6() bool {
	return a.IPv6Src != "" || a.IPv6Dst != ""
}

// Src returns whichever source address is populated.
func (a NetworkAddresses) Src() string {
	if a.IsIPv6() {
		return a.IPv6Src
	}
	return a.IPv4Src
}

// Dst returns whichever destination address is populated.
func (a NetworkAddresses) Dst() string {
	if a.IsIPv6() {
		return a.IPv6Dst
	}
	return a.IPv4Dst
}

// TransportKind tags the recognized transport protocols.
type TransportKind int

const (
	TransportOther TransportKind = iota
	TransportTCP
	TransportUDP
)

// String returns the protocol label; TransportOther has an empty label.
func (k TransportKind) String() string {
	switch k {
	case TransportTCP:
		return "TCP"
	case TransportUDP:
		return "UDP"
	default:
		return ""
	}
}

// TransportInfo holds the transport protocol and ports as text.
// For TransportOther all ports are blank.
type TransportInfo struct {
	Kind    TransportKind
	SrcPort string
	DstPort string
}

// Protocol returns the protocol label ("TCP", "UDP" or "").
func (t TransportInfo) Protocol() string {
	return t.Kind.String()
}

// PayloadView is the hex and ASCII rendering of a transport payload.
type PayloadView struct {
	Hex   string
	ASCII string
}

// DecodedPacket holds the extracted information from a captured frame.
// It is never modified after the decoder builds it.
type DecodedPacket struct {
	Timestamp time.Time
	Length    int

	Link            string // link-layer descriptor, informational only
	Addresses       NetworkAddresses
	Transport       TransportInfo
	TransportDetail string // transport-layer descriptor, informational only
	Payload         PayloadView
}
