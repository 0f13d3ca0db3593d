package tui

import (
	"context"
	"errors"
	"gonetcap/internal/analysis"
	"gonetcap/internal/capture"
	"gonetcap/internal/models"
	"gonetcap/internal/session"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// replaySource serves its frames once and then reports end of input.
type replaySource struct {
	frames [][]byte
}

func (s *replaySource) NextFrame() (models.Frame, error) {
	if len(s.frames) == 0 {
		return models.Frame{}, io.EOF
	}
	data := s.frames[0]
	s.frames = s.frames[1:]
	return models.Frame{Data: data, Timestamp: time.Now()}, nil
}

func (s *replaySource) LinkType() layers.LinkType { return layers.LinkTypeEthernet }
func (s *replaySource) Close() error              { return nil }

func httpFrame(t *testing.T) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       []byte{0, 1, 2, 3, 4, 5},
		DstMAC:       []byte{6, 7, 8, 9, 10, 11},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP, SrcIP: []byte{10, 0, 0, 1}, DstIP: []byte{10, 0, 0, 2}}
	tcp := &layers.TCP{SrcPort: 51000, DstPort: 80, PSH: true, ACK: true, Window: 1024}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload("GET /")))
	return buf.Bytes()
}

type harness struct {
	model   Model
	archive *session.Archive
	dir     string
}

func newHarness(t *testing.T, src capture.Source) *harness {
	archive := session.NewArchive()
	stats := analysis.NewTrafficStats()
	detector := analysis.NewAnomalyDetector(analysis.DefaultConfig())
	logger := zaptest.NewLogger(t)
	ctrl := session.NewController(archive, logger,
		session.WithPollInterval(time.Millisecond),
		session.WithDisplay(func(pkt models.DecodedPacket) {
			stats.ProcessPacket(pkt)
			detector.ProcessPacket(pkt)
		}),
	)

	dir := t.TempDir()
	m := New(context.Background(), Deps{
		Controller:   ctrl,
		Archive:      archive,
		Stats:        stats,
		Detector:     detector,
		Logger:       logger,
		Source:       src,
		SourceName:   "test",
		ExportDir:    dir,
		ExportPrefix: "capture",
		Now:          func() time.Time { return time.Date(2026, 7, 4, 15, 30, 0, 0, time.Local) },
	})
	return &harness{model: m, archive: archive, dir: dir}
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func (h *harness) keys(s string) {
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestMenuNavigation(t *testing.T) {
	h := newHarness(t, &replaySource{})

	h.send(tea.KeyMsg{Type: tea.KeyDown})
	h.send(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, h.model.cursor)
	h.send(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, h.model.cursor)

	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, screenMenu, h.model.screen)
	assert.Equal(t, "No sessions recorded yet", h.model.status)
}

func TestCaptureSessionRoundTrip(t *testing.T) {
	h := newHarness(t, &replaySource{frames: [][]byte{httpFrame(t), httpFrame(t)}})

	cmd := h.send(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, screenCapture, h.model.screen)
	assert.Contains(t, h.model.View(), "Capturing on test")

	h.send(waitCmd(h.model.deps.Controller)())
	assert.Equal(t, screenMenu, h.model.screen)
	assert.Equal(t, 1, h.archive.Len())
	assert.Contains(t, h.model.status, "Session #0 recorded: 2 packets")

	alerts := h.model.deps.Detector.GetRecentAlerts(5)
	require.Len(t, alerts, 1)
	assert.Equal(t, analysis.AnomalyPlaintext, alerts[0].Type)

	h.keys("2")
	assert.Equal(t, screenSessions, h.model.screen)
	assert.Contains(t, h.model.View(), "TCP")

	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, screenMenu, h.model.screen)

	path := filepath.Join(h.dir, "capture_20260704_153000.log")
	assert.Contains(t, h.model.status, path)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(content), "Protocol: TCP Source Port: 51000 Destination Port: 80"))
}

func TestSaveByIndex(t *testing.T) {
	h := newHarness(t, &replaySource{})
	h.archive.Append(models.Session{ID: uuid.New(), Packets: []models.DecodedPacket{{
		Addresses: models.NetworkAddresses{IPv4Src: "10.0.0.1", IPv4Dst: "10.0.0.2"},
		Transport: models.TransportInfo{Kind: models.TransportUDP, SrcPort: "53", DstPort: "5353"},
		Payload:   models.PayloadView{Hex: models.EmptyPayload, ASCII: models.EmptyPayload},
	}}})

	h.keys("3")
	require.Equal(t, screenSave, h.model.screen)
	h.keys("7")
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, screenMenu, h.model.screen)
	assert.Contains(t, h.model.status, "Cannot save")
	assert.NoFileExists(t, filepath.Join(h.dir, "capture_20260704_153000.log"))

	h.keys("3")
	h.keys("0")
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, h.model.status, "Saved session #0 (1 packets)")
	assert.FileExists(t, filepath.Join(h.dir, "capture_20260704_153000.log"))
}

func TestSaveRejectsNonNumericIndex(t *testing.T) {
	h := newHarness(t, &replaySource{})
	h.keys("3")
	h.keys("x")
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, `"x" is not a session index`, h.model.status)
}

func TestDevicePickerOpenFailure(t *testing.T) {
	h := newHarness(t, nil)
	openErr := &capture.DeviceError{Device: "eth9", Op: "open", Err: errors.New("no such device")}
	h.model = New(context.Background(), Deps{
		Controller: h.model.deps.Controller,
		Archive:    h.archive,
		Stats:      h.model.deps.Stats,
		Detector:   h.model.deps.Detector,
		Devices:    []capture.Device{{Name: "eth9", Description: "test NIC"}},
		OpenDevice: func(string) (capture.Source, error) { return nil, openErr },
	})
	require.Equal(t, screenDevices, h.model.screen)

	cmd := h.send(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	var devErr *capture.DeviceError
	assert.ErrorAs(t, h.model.Err(), &devErr)
	assert.Contains(t, h.model.View(), "eth9")
}

func TestDevicePickerOpensChosenDevice(t *testing.T) {
	h := newHarness(t, nil)
	src := &replaySource{}
	var opened string
	h.model = New(context.Background(), Deps{
		Controller: h.model.deps.Controller,
		Archive:    h.archive,
		Stats:      h.model.deps.Stats,
		Detector:   h.model.deps.Detector,
		Devices:    []capture.Device{{Name: "lo"}, {Name: "eth0"}},
		OpenDevice: func(name string) (capture.Source, error) {
			opened = name
			return src, nil
		},
	})

	h.send(tea.KeyMsg{Type: tea.KeyDown})
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "eth0", opened)
	assert.Equal(t, screenMenu, h.model.screen)
	assert.Same(t, src, h.model.Source())
}
