package tui

import (
	"fmt"
	"gonetcap/internal/analysis"
	"gonetcap/internal/models"
	"gonetcap/internal/reporting"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0")).Italic(true)
	alertStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	if m.err != nil {
		return alertStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}

	var body string
	switch m.screen {
	case screenDevices:
		body = m.viewDevices()
	case screenMenu:
		body = m.viewMenu()
	case screenCapture:
		body = m.viewCapture()
	case screenSessions:
		body = m.viewSessions()
	case screenSave:
		body = m.viewSave()
	}

	if m.status != "" {
		body += "\n" + statusStyle.Render(m.status)
	}
	return body + "\n"
}

func (m Model) header(text string) string {
	return titleStyle.Render("GoNetCap - " + text)
}

func (m Model) viewDevices() string {
	if len(m.deps.Devices) == 0 {
		return m.header("No capture devices found") + "\n" + helpStyle.Render("Press q to quit.")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header("Select a capture device"),
		infoStyle.Render(m.devices.View()),
		helpStyle.Render("up/down to move, enter to open, q to quit."),
	)
}

func (m Model) viewMenu() string {
	lines := make([]string, len(menuItems))
	for i, item := range menuItems {
		line := fmt.Sprintf("%s. %s", item.key, item.label)
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines[i] = line
	}

	info := fmt.Sprintf("Source: %s\nSessions recorded: %d", m.srcName, m.deps.Archive.Len())
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header("Main menu"),
		infoStyle.Render(info),
		infoStyle.Render(strings.Join(lines, "\n")),
		helpStyle.Render("up/down or 1-4 to choose, enter to select."),
	)
}

func (m Model) viewCapture() string {
	title := m.header(fmt.Sprintf("Capturing on %s", m.srcName))

	qos := fmt.Sprintf("%s Packets: %d\nBandwidth: %s\nPacket Rate: %.2f PPS",
		m.spinner.View(), m.captured, formatBps(m.bps), m.pps)
	qosBox := infoStyle.Render(qos)

	var protoStrs []string
	for i, p := range m.protos {
		if i == 5 {
			break
		}
		protoStrs = append(protoStrs, fmt.Sprintf("%s: %d", p.Protocol, p.Count))
	}
	if len(protoStrs) == 0 {
		protoStrs = append(protoStrs, "Waiting for data...")
	}
	protoBox := infoStyle.Render("Protocols:\n" + strings.Join(protoStrs, "\n"))

	var talkerStrs []string
	for _, t := range m.talkers {
		talkerStrs = append(talkerStrs, fmt.Sprintf("%-39s %s", t.IP, reporting.FormatBytes(int64(t.Bytes))))
	}
	if len(talkerStrs) == 0 {
		talkerStrs = append(talkerStrs, "-")
	}
	talkerBox := infoStyle.Render("Top Talkers:\n" + strings.Join(talkerStrs, "\n"))

	recent := make([]string, 0, len(m.recent))
	for _, pkt := range m.recent {
		recent = append(recent, packetLine(pkt))
	}
	if len(recent) == 0 {
		recent = append(recent, "Waiting for packets...")
	}
	recentBox := infoStyle.Render("Recent packets:\n" + strings.Join(recent, "\n"))

	sections := []string{
		title,
		lipgloss.JoinHorizontal(lipgloss.Top, qosBox, protoBox, talkerBox),
		recentBox,
	}
	if len(m.alerts) > 0 {
		alerts := make([]string, len(m.alerts))
		for i, a := range m.alerts {
			alerts[i] = alertStyle.Render(a.String())
		}
		sections = append(sections, infoStyle.Render("Alerts:\n"+strings.Join(alerts, "\n")))
	}
	sections = append(sections, helpStyle.Render("Press s or esc to stop the session."))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewSessions() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header("Recorded sessions"),
		infoStyle.Render(m.sessions.View()),
		helpStyle.Render("enter to save the selected session, esc to go back."),
	)
}

func (m Model) viewSave() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header("Save session"),
		infoStyle.Render(fmt.Sprintf("Sessions 0-%d available\n%s", m.deps.Archive.Len()-1, m.index.View())),
		helpStyle.Render(fmt.Sprintf("Written to %s. enter to save, esc to cancel.", m.deps.ExportDir)),
	)
}

// packetLine is the one-line form used by the recent packets panel.
func packetLine(pkt models.DecodedPacket) string {
	proto := pkt.Transport.Protocol()
	if proto == "" {
		proto = analysis.OtherProtocol
	}
	src, dst := pkt.Addresses.Src(), pkt.Addresses.Dst()
	if pkt.Transport.Kind == models.TransportOther {
		return fmt.Sprintf("%-5s %s -> %s  %d B", proto, src, dst, pkt.Length)
	}
	return fmt.Sprintf("%-5s %s:%s -> %s:%s (%s)  %d B",
		proto, src, pkt.Transport.SrcPort, dst, pkt.Transport.DstPort,
		analysis.ServiceLabel(pkt.Transport.DstPort), pkt.Length)
}

func formatBps(bps float64) string {
	if bps >= 1e6 {
		return fmt.Sprintf("%.2f Mbps", bps/1e6)
	}
	if bps >= 1e3 {
		return fmt.Sprintf("%.2f Kbps", bps/1e3)
	}
	return fmt.Sprintf("%.2f bps", bps)
}
