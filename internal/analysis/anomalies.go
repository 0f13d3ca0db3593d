package analysis

import (
	"fmt"
	"gonetcap/internal/models"
	"strconv"
	"sync"
	"time"
)

// AnomalyType represents the type of anomaly detected.
type AnomalyType string

const (
	AnomalyPlaintext AnomalyType = "PLAINTEXT_PROTOCOL"
	AnomalyFlood     AnomalyType = "POSSIBLE_FLOOD"
)

// Config holds configuration for the anomaly detector.
type Config struct {
	FloodThreshold    int           // packets per second from one source
	PlaintextCooldown time.Duration // per source/port alert throttle
	CleanupInterval   time.Duration
	DataRetention     time.Duration
	MaxAlerts         int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FloodThreshold:    500,
		PlaintextCooldown: 10 * time.Second,
		CleanupInterval:   time.Minute,
		DataRetention:     5 * time.Minute,
		MaxAlerts:         20,
	}
}

// Alert represents a detected anomaly.
type Alert struct {
	Type      AnomalyType
	Source    string
	Message   string
	Timestamp time.Time
}

func (a Alert) String() string {
	return fmt.Sprintf("%s [%s] %s", a.Timestamp.Format("15:04:05"), a.Type, a.Message)
}

var plaintextPorts = map[int]string{
	21: "FTP",
	23: "Telnet",
	80: "HTTP",
}

type window struct {
	start time.Time
	count int
}

// AnomalyDetector watches decoded traffic for plaintext protocols and
// single-source packet floods.
type AnomalyDetector struct {
	mu     sync.Mutex
	config Config
	now    func() time.Time

	plaintextAlerts map[string]time.Time // "src:port" -> last alert
	sources         map[string]*window

	alerts      []Alert
	lastCleanup time.Time
}

// NewAnomalyDetector creates a new anomaly detection engine.
func NewAnomalyDetector(cfg Config) *AnomalyDetector {
	return newAnomalyDetector(cfg, time.Now)
}

func newAnomalyDetector(cfg Config, now func() time.Time) *AnomalyDetector {
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = DefaultConfig().MaxAlerts
	}
	return &AnomalyDetector{
		config:          cfg,
		now:             now,
		plaintextAlerts: make(map[string]time.Time),
		sources:         make(map[string]*window),
		lastCleanup:     now(),
	}
}

// ProcessPacket analyzes a packet for anomalies.
func (ad *AnomalyDetector) ProcessPacket(pkt models.DecodedPacket) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	now := ad.now()
	if now.Sub(ad.lastCleanup) > ad.config.CleanupInterval {
		ad.cleanup(now)
		ad.lastCleanup = now
	}

	src := pkt.Addresses.Src()
	if src == "" {
		return
	}
	ad.detectPlaintext(src, pkt.Transport, now)
	ad.detectFlood(src, now)
}

func (ad *AnomalyDetector) cleanup(now time.Time) {
	for key, last := range ad.plaintextAlerts {
		if now.Sub(last) > ad.config.DataRetention {
			delete(ad.plaintextAlerts, key)
		}
	}
	for src, w := range ad.sources {
		if now.Sub(w.start) > ad.config.DataRetention {
			delete(ad.sources, src)
		}
	}
}

func (ad *AnomalyDetector) detectPlaintext(src string, t models.TransportInfo, now time.Time) {
	if t.Kind != models.TransportTCP {
		return
	}
	port, err := strconv.Atoi(t.DstPort)
	if err != nil {
		return
	}
	name, ok := plaintextPorts[port]
	if !ok {
		return
	}

	key := src + ":" + t.DstPort
	if last, seen := ad.plaintextAlerts[key]; seen && now.Sub(last) <= ad.config.PlaintextCooldown {
		return
	}
	ad.addAlert(Alert{
		Type:      AnomalyPlaintext,
		Source:    src,
		Message:   fmt.Sprintf("Plaintext %s traffic on port %d from %s", name, port, src),
		Timestamp: now,
	})
	ad.plaintextAlerts[key] = now
}

func (ad *AnomalyDetector) detectFlood(src string, now time.Time) {
	w, ok := ad.sources[src]
	if !ok || now.Sub(w.start) > time.Second {
		w = &window{start: now}
		ad.sources[src] = w
	}
	w.count++

	if w.count > ad.config.FloodThreshold {
		ad.addAlert(Alert{
			Type:      AnomalyFlood,
			Source:    src,
			Message:   fmt.Sprintf("High packet rate from %s: %d pps", src, w.count),
			Timestamp: now,
		})
		// restart the window so one burst raises one alert
		w.start = now
		w.count = 0
	}
}

func (ad *AnomalyDetector) addAlert(alert Alert) {
	ad.alerts = append(ad.alerts, alert)
	if len(ad.alerts) > ad.config.MaxAlerts {
		ad.alerts = ad.alerts[len(ad.alerts)-ad.config.MaxAlerts:]
	}
}

// GetRecentAlerts returns up to limit of the newest alerts, oldest first.
func (ad *AnomalyDetector) GetRecentAlerts(limit int) []Alert {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	if len(ad.alerts) == 0 || limit <= 0 {
		return []Alert{}
	}

	start := 0
	if len(ad.alerts) > limit {
		start = len(ad.alerts) - limit
	}
	result := make([]Alert, len(ad.alerts)-start)
	copy(result, ad.alerts[start:])
	return result
}

// Reset drops all tracking state and alert history.
func (ad *AnomalyDetector) Reset() {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	clear(ad.plaintextAlerts)
	clear(ad.sources)
	ad.alerts = nil
	ad.lastCleanup = ad.now()
}
