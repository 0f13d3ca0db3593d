package tui

import (
	"errors"
	"fmt"
	"gonetcap/internal/analysis"
	"gonetcap/internal/reporting"
	"gonetcap/internal/session"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.screen {
		case screenDevices:
			return m.updateDevices(msg)
		case screenMenu:
			return m.updateMenu(msg)
		case screenCapture:
			return m.updateCapture(msg)
		case screenSessions:
			return m.updateSessions(msg)
		case screenSave:
			return m.updateSave(msg)
		}

	case tickMsg:
		if m.screen != screenCapture {
			return m, nil
		}
		m.refresh()
		return m, tickCmd()

	case spinner.TickMsg:
		if m.screen != screenCapture {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case captureDoneMsg:
		return m.finishCapture(msg)
	}
	return m, nil
}

func (m Model) updateDevices(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		row := m.devices.SelectedRow()
		if row == nil {
			m.err = errors.New("no capture devices available")
			return m, tea.Quit
		}
		src, err := m.deps.OpenDevice(row[0])
		if err != nil {
			m.deps.Logger.Error("open device", zap.String("device", row[0]), zap.Error(err))
			m.err = err
			return m, tea.Quit
		}
		m.src = src
		m.srcName = row[0]
		m.screen = screenMenu
		m.status = fmt.Sprintf("Opened %s", row[0])
		return m, nil
	}

	var cmd tea.Cmd
	m.devices, cmd = m.devices.Update(msg)
	return m, cmd
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(menuItems)-1 {
			m.cursor++
		}
	case "enter":
		return m.choose(m.cursor)
	default:
		for i, item := range menuItems {
			if msg.String() == item.key {
				m.cursor = i
				return m.choose(i)
			}
		}
	}
	return m, nil
}

func (m Model) choose(item int) (tea.Model, tea.Cmd) {
	switch item {
	case 0:
		return m.startCapture()
	case 1:
		return m.showSessions()
	case 2:
		m.screen = screenSave
		m.status = ""
		m.index.Reset()
		return m, m.index.Focus()
	default:
		return m, tea.Quit
	}
}

func (m Model) startCapture() (tea.Model, tea.Cmd) {
	m.deps.Stats.Reset()
	m.deps.Detector.Reset()

	stop := session.NewStopSignal()
	if err := m.deps.Controller.Start(m.ctx, m.src, stop); err != nil {
		m.status = fmt.Sprintf("Cannot start: %v", err)
		return m, nil
	}

	m.stop = stop
	m.screen = screenCapture
	m.status = ""
	m.captured = 0
	m.bps, m.pps = 0, 0
	m.recent, m.talkers, m.protos, m.alerts = nil, nil, nil, nil
	return m, tea.Batch(m.spinner.Tick, tickCmd(), waitCmd(m.deps.Controller))
}

func (m Model) updateCapture(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		m.stop.Stop()
	case "s", "esc", "q":
		m.stop.Stop()
		m.status = "Stopping..."
	}
	return m, nil
}

func (m *Model) refresh() {
	ctrl := m.deps.Controller
	m.captured = ctrl.Captured()
	m.recent = ctrl.Recent(recentLines)
	m.bps, m.pps = m.deps.Stats.GetRates()
	m.talkers = m.deps.Stats.GetTopTalkers(talkerRows)
	m.protos = m.deps.Stats.GetProtocolStats()
	m.alerts = m.deps.Detector.GetRecentAlerts(alertLines)
}

func (m Model) finishCapture(msg captureDoneMsg) (tea.Model, tea.Cmd) {
	m.stop = nil
	m.screen = screenMenu

	switch {
	case msg.err != nil:
		m.deps.Logger.Error("capture ended with error", zap.Error(msg.err))
		m.status = fmt.Sprintf("Capture failed after %d packets: %v", msg.session.Len(), msg.err)
	case msg.session.Len() == 0:
		m.status = "No packets captured, session discarded"
	default:
		m.status = fmt.Sprintf("Session #%d recorded: %d packets in %s",
			m.deps.Archive.Len()-1, msg.session.Len(), msg.session.Duration().Round(time.Millisecond))
	}

	if m.quitting {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) showSessions() (tea.Model, tea.Cmd) {
	summaries, err := m.deps.Archive.List()
	if errors.Is(err, session.ErrNoSessions) {
		m.status = "No sessions recorded yet"
		return m, nil
	}

	rows := make([]table.Row, len(summaries))
	for i, s := range summaries {
		top := "-"
		if recorded, err := m.deps.Archive.Get(s.Index); err == nil {
			if sum := analysis.Summarize(recorded, 0); len(sum.Protocols) > 0 {
				top = sum.Protocols[0].Protocol
			}
		}
		rows[i] = table.Row{
			strconv.Itoa(s.Index),
			strconv.Itoa(s.Packets),
			s.StartedAt.Format("15:04:05"),
			s.Duration.Round(time.Millisecond).String(),
			top,
		}
	}
	m.sessions.SetRows(rows)
	m.sessions.GotoTop()
	m.screen = screenSessions
	m.status = ""
	return m, nil
}

func (m Model) updateSessions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		m.screen = screenMenu
		return m, nil
	case "enter":
		row := m.sessions.SelectedRow()
		if row == nil {
			return m, nil
		}
		index, _ := strconv.Atoi(row[0])
		m.save(index)
		m.screen = screenMenu
		return m, nil
	}

	var cmd tea.Cmd
	m.sessions, cmd = m.sessions.Update(msg)
	return m, cmd
}

func (m Model) updateSave(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.index.Blur()
		m.screen = screenMenu
		return m, nil
	case "enter":
		m.index.Blur()
		m.screen = screenMenu
		text := strings.TrimSpace(m.index.Value())
		index, err := strconv.Atoi(text)
		if err != nil {
			m.status = fmt.Sprintf("%q is not a session index", text)
			return m, nil
		}
		m.save(index)
		return m, nil
	}

	var cmd tea.Cmd
	m.index, cmd = m.index.Update(msg)
	return m, cmd
}

func (m *Model) save(index int) {
	path := reporting.LogFileName(m.deps.ExportDir, m.deps.ExportPrefix, m.deps.Now())
	n, err := reporting.ExportSession(m.deps.Archive, index, path)

	var selErr *session.SelectionError
	switch {
	case errors.As(err, &selErr):
		m.status = fmt.Sprintf("Cannot save: %v", selErr)
	case err != nil:
		m.deps.Logger.Error("export session", zap.Int("index", index), zap.String("path", path), zap.Error(err))
		m.status = fmt.Sprintf("Save failed after %d packets: %v", n, err)
	default:
		m.deps.Logger.Info("session exported", zap.Int("index", index), zap.String("path", path), zap.Int("packets", n))
		m.status = fmt.Sprintf("Saved session #%d (%d packets) to %s", index, n, path)
	}
}
