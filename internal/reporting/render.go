package reporting

import (
	"fmt"
	"gonetcap/internal/models"
	"strings"
)

const separator = "_______________________________"

// AddressLine renders whichever address pair of the packet is populated.
func AddressLine(pkt models.DecodedPacket) string {
	family := "IPv4"
	if pkt.Addresses.IsIPv6() {
		family = "IPv6"
	}
	return fmt.Sprintf("%s Source: %s Destination: %s", family, pkt.Addresses.Src(), pkt.Addresses.Dst())
}

// ProtocolLine renders the protocol label and ports; blank fields stay empty.
func ProtocolLine(pkt models.DecodedPacket) string {
	t := pkt.Transport
	return fmt.Sprintf("Protocol: %s Source Port: %s Destination Port: %s", t.Protocol(), t.SrcPort, t.DstPort)
}

// PayloadLine renders the hex and ASCII payload views.
func PayloadLine(pkt models.DecodedPacket) string {
	return fmt.Sprintf("Payload HEX: %s | ASCII: %s", pkt.Payload.Hex, pkt.Payload.ASCII)
}

// Render returns the fixed four-line block for one packet, ending in a newline.
func Render(pkt models.DecodedPacket) string {
	var b strings.Builder
	b.WriteString(separator)
	b.WriteByte('\n')
	b.WriteString(AddressLine(pkt))
	b.WriteString(" | ")
	b.WriteString(ProtocolLine(pkt))
	b.WriteByte('\n')
	b.WriteString(PayloadLine(pkt))
	b.WriteByte('\n')
	b.WriteString(separator)
	b.WriteByte('\n')
	return b.String()
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
