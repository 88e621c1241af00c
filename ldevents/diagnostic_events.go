package ldevents

import (
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
)

type diagnosticID struct {
	DiagnosticID string `json:"diagnosticId"`
	SDKKeySuffix string `json:"sdkKeySuffix,omitempty"`
}

type diagnosticPlatformData struct {
	Name      string `json:"name"`
	GoVersion string `json:"goVersion"`
	OSArch    string `json:"osArch"`
	OSName    string `json:"osName"`
}

type diagnosticBaseEvent struct {
	Kind         string       `json:"kind"`
	ID           diagnosticID `json:"id"`
	CreationDate uint64       `json:"creationDate"`
}

type diagnosticInitEvent struct {
	diagnosticBaseEvent
	SDK           ldvalue.Value          `json:"sdk"`
	Configuration ldvalue.Value          `json:"configuration"`
	Platform      diagnosticPlatformData `json:"platform"`
}

type diagnosticStreamInitInfo struct {
	Timestamp      uint64 `json:"timestamp"`
	Failed         bool   `json:"failed"`
	DurationMillis uint64 `json:"durationMillis"`
}

type diagnosticPeriodicEvent struct {
	diagnosticBaseEvent
	DataSinceDate     uint64                     `json:"dataSinceDate"`
	DroppedEvents     int                        `json:"droppedEvents"`
	DeduplicatedUsers int                        `json:"deduplicatedUsers"`
	EventsInLastBatch int                        `json:"eventsInLastBatch"`
	StreamInits       []diagnosticStreamInitInfo `json:"streamInits"`
}

// DiagnosticsManager computes and formats periodic diagnostic events describing SDK
// configuration, platform, and usage statistics since the last statistics event.
type DiagnosticsManager struct {
	id                diagnosticID
	configData        ldvalue.Value
	sdkData           ldvalue.Value
	startTime         uint64
	dataSinceTime     uint64
	streamInits       []diagnosticStreamInitInfo
	periodicEventGate <-chan struct{}
	lock              sync.Mutex
}

// NewDiagnosticID creates a random diagnostic id, remembering the last 6 characters of
// the SDK key so diagnostic events can be correlated to an account without exposing the
// full key.
func NewDiagnosticID(sdkKey string) diagnosticID {
	u, _ := uuid.NewRandom()
	id := diagnosticID{DiagnosticID: u.String()}
	if len(sdkKey) > 6 {
		id.SDKKeySuffix = sdkKey[len(sdkKey)-6:]
	} else {
		id.SDKKeySuffix = sdkKey
	}
	return id
}

// NewDiagnosticsManager creates a DiagnosticsManager. periodicEventGate is test
// instrumentation only (see CanSendStatsEvent) and should be nil in production.
func NewDiagnosticsManager(
	id diagnosticID,
	configData ldvalue.Value,
	sdkData ldvalue.Value,
	startTime time.Time,
	periodicEventGate <-chan struct{},
) *DiagnosticsManager {
	timestamp := toUnixMillis(startTime)
	return &DiagnosticsManager{
		id:                id,
		configData:        configData,
		sdkData:           sdkData,
		startTime:         timestamp,
		dataSinceTime:     timestamp,
		periodicEventGate: periodicEventGate,
	}
}

// RecordStreamInit is called by the streaming data source whenever a stream connection
// attempt succeeds or fails, to be reported in the next statistics event.
func (m *DiagnosticsManager) RecordStreamInit(timestamp uint64, failed bool, durationMillis uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.streamInits = append(m.streamInits, diagnosticStreamInitInfo{
		Timestamp:      timestamp,
		Failed:         failed,
		DurationMillis: durationMillis,
	})
}

// CreateInitEvent builds the one-time startup event carrying configuration/platform
// data.
func (m *DiagnosticsManager) CreateInitEvent() diagnosticInitEvent {
	platformData := diagnosticPlatformData{
		Name:      "Go",
		GoVersion: runtime.Version(),
		OSName:    normalizeOSName(runtime.GOOS),
		OSArch:    runtime.GOARCH,
	}
	return diagnosticInitEvent{
		diagnosticBaseEvent: diagnosticBaseEvent{Kind: "diagnostic-init", ID: m.id, CreationDate: m.startTime},
		SDK:                 m.sdkData,
		Configuration:       m.configData,
		Platform:            platformData,
	}
}

// CanSendStatsEvent reports whether the next periodic statistics event may be created.
// In production this always returns true; tests can gate it via periodicEventGate to
// control timing deterministically.
func (m *DiagnosticsManager) CanSendStatsEvent() bool {
	if m.periodicEventGate != nil {
		select {
		case <-m.periodicEventGate:
			return true
		default:
			return false
		}
	}
	return true
}

// CreateStatsEventAndReset builds the periodic statistics event and resets the
// dataSinceDate/streamInits state for the next interval. droppedEvents,
// deduplicatedUsers, and eventsInLastBatch are owned by the event dispatcher and passed
// in rather than tracked here, to avoid an extra lock on the event-processing hot path.
func (m *DiagnosticsManager) CreateStatsEventAndReset(
	droppedEvents int,
	deduplicatedUsers int,
	eventsInLastBatch int,
) diagnosticPeriodicEvent {
	m.lock.Lock()
	defer m.lock.Unlock()
	timestamp := toUnixMillis(time.Now())
	event := diagnosticPeriodicEvent{
		diagnosticBaseEvent: diagnosticBaseEvent{Kind: "diagnostic", ID: m.id, CreationDate: timestamp},
		DataSinceDate:       m.dataSinceTime,
		EventsInLastBatch:   eventsInLastBatch,
		DroppedEvents:       droppedEvents,
		DeduplicatedUsers:   deduplicatedUsers,
		StreamInits:         m.streamInits,
	}
	m.streamInits = nil
	m.dataSinceTime = timestamp
	return event
}

func normalizeOSName(osName string) string {
	switch osName {
	case "darwin":
		return "MacOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	}
	return osName
}
