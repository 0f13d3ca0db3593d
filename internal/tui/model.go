package tui

import (
	"context"
	"gonetcap/internal/analysis"
	"gonetcap/internal/capture"
	"gonetcap/internal/models"
	"gonetcap/internal/session"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

type screen int

const (
	screenDevices screen = iota
	screenMenu
	screenCapture
	screenSessions
	screenSave
)

type menuItem struct {
	label string
	key   string
}

var menuItems = []menuItem{
	{label: "Start session", key: "1"},
	{label: "Show sessions", key: "2"},
	{label: "Save session", key: "3"},
	{label: "Exit", key: "4"},
}

const (
	recentLines = 8
	alertLines  = 5
	talkerRows  = 5
)

// Deps wires the model to the capture engine.
type Deps struct {
	Controller *session.Controller
	Archive    *session.Archive
	Stats      *analysis.TrafficStats
	Detector   *analysis.AnomalyDetector
	Logger     *zap.Logger

	// Source is used for every session. When nil the device picker is shown
	// first and OpenDevice opens the chosen interface.
	Source     capture.Source
	SourceName string
	Devices    []capture.Device
	OpenDevice func(name string) (capture.Source, error)

	ExportDir    string
	ExportPrefix string
	Now          func() time.Time
}

type tickMsg time.Time

type captureDoneMsg struct {
	session models.Session
	err     error
}

// Model is the bubbletea driver: it issues start, list and export commands
// and renders the live capture view.
type Model struct {
	deps   Deps
	ctx    context.Context
	screen screen

	src     capture.Source
	srcName string

	cursor  int
	status  string
	err     error
	devices table.Model

	// capture view
	stop     *session.StopSignal
	spinner  spinner.Model
	quitting bool
	captured int
	bps      float64
	pps      float64
	recent   []models.DecodedPacket
	talkers  []analysis.IPStat
	protos   []analysis.ProtocolStat
	alerts   []analysis.Alert

	sessions table.Model
	index    textinput.Model
}

// New builds the driver model.
func New(ctx context.Context, deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	ti := textinput.New()
	ti.Placeholder = "session index"
	ti.CharLimit = 9
	ti.Width = 20

	m := Model{
		deps:     deps,
		ctx:      ctx,
		screen:   screenMenu,
		src:      deps.Source,
		srcName:  deps.SourceName,
		spinner:  sp,
		index:    ti,
		sessions: newTable([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Packets", Width: 9},
			{Title: "Started", Width: 10},
			{Title: "Duration", Width: 10},
			{Title: "Top protocol", Width: 13},
		}, true),
	}

	if m.src == nil {
		m.screen = screenDevices
		m.devices = newTable([]table.Column{
			{Title: "Device", Width: 18},
			{Title: "Description", Width: 40},
		}, true)
		rows := make([]table.Row, len(deps.Devices))
		for i, d := range deps.Devices {
			rows[i] = table.Row{d.Name, d.Description}
		}
		m.devices.SetRows(rows)
	}
	return m
}

func newTable(columns []table.Column, focused bool) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(focused),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

// Err returns the error that ended the program, if any.
func (m Model) Err() error {
	return m.err
}

// Source returns the capture source in use, so the caller can close it on exit.
func (m Model) Source() capture.Source {
	return m.src
}

func (m Model) Init() tea.Cmd {
	return nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitCmd retires the running session and reports it back to Update.
func waitCmd(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		s, err := ctrl.Wait(context.Background())
		return captureDoneMsg{session: s, err: err}
	}
}
