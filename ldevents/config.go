package ldevents

import (
	"time"

	"github.com/launchdarkly/go-server-sdk-sub008/ldlog"
)

// DefaultDiagnosticRecordingInterval is the default value for
// EventsConfiguration.DiagnosticRecordingInterval.
const DefaultDiagnosticRecordingInterval = 15 * time.Minute

// DefaultFlushInterval is the default value for EventsConfiguration.FlushInterval.
const DefaultFlushInterval = 5 * time.Second

// DefaultUserKeysFlushInterval is the default value for
// EventsConfiguration.UserKeysFlushInterval.
const DefaultUserKeysFlushInterval = 5 * time.Minute

// EventsConfiguration contains options affecting the behavior of the events engine.
type EventsConfiguration struct {
	// AllAttributesPrivate, if true, hides every user attribute except key, regardless
	// of PrivateAttributeNames.
	AllAttributesPrivate bool
	// Capacity is the size of the event buffer; events are dropped once it is full.
	Capacity int
	// DiagnosticRecordingInterval is how often periodic diagnostic events are sent, if
	// DiagnosticsManager is non-nil.
	DiagnosticRecordingInterval time.Duration
	// DiagnosticsManager computes and formats diagnostic event data. nil disables
	// diagnostics entirely.
	DiagnosticsManager *DiagnosticsManager
	// EventSender delivers already-formatted event payloads.
	EventSender EventSender
	// FlushInterval is the time between automatic flushes of the event buffer.
	FlushInterval time.Duration
	// InlineUsersInEvents, if true, includes the full user in every event rather than
	// a userKey plus a synthetic index event.
	InlineUsersInEvents bool
	// Loggers is the destination for log output.
	Loggers ldlog.Loggers
	// PrivateAttributeNames marks user attribute names private for every user.
	PrivateAttributeNames []string
	// UserKeysCapacity is the number of user keys the LRU can remember at once.
	UserKeysCapacity int
	// UserKeysFlushInterval is how often the user-key LRU is cleared.
	UserKeysFlushInterval time.Duration
	// currentTimeProvider overrides the clock the dispatcher uses to decide whether a
	// flag's debug window is still open; used only in tests.
	currentTimeProvider func() uint64
	// forceDiagnosticRecordingInterval overrides DiagnosticRecordingInterval only when
	// non-zero; used only in tests, since production code should treat an interval
	// below one minute as a misconfiguration rather than a fast-test accelerator.
	forceDiagnosticRecordingInterval time.Duration
}
