package ldevents

import (
	"time"

	"github.com/launchdarkly/go-server-sdk-sub008/ldreason"
	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
	"github.com/launchdarkly/go-server-sdk-sub008/lduser"
)

// NoVariation is the Variation value used for a feature event that did not resolve to
// a specific variation index (e.g. an evaluation error).
const NoVariation = ldreason.NoVariation

// Event kind discriminators, matching the wire "kind" field.
const (
	FeatureEventKind  = "feature"
	DebugEventKind    = "debug"
	IdentifyEventKind = "identify"
	CustomEventKind   = "custom"
	IndexEventKind    = "index"
	SummaryEventKind  = "summary"
)

// Event is implemented by every analytics event kind the processor accepts.
type Event interface {
	GetBase() BaseEvent
}

// BaseEvent holds the fields common to every event.
type BaseEvent struct {
	CreationDate uint64
	User         lduser.User
}

// GetBase implements Event.
func (b BaseEvent) GetBase() BaseEvent { return b }

// FlagEventProperties is the minimal view of a feature flag that the event processor
// needs in order to decide tracking/debugging behavior, decoupled from the full
// ldmodel.FeatureFlag so the evaluator and the event processor do not need to import
// each other.
type FlagEventProperties interface {
	GetKey() string
	GetVersion() int
	IsFullEventTrackingEnabled() bool
	GetDebugEventsUntilDate() uint64
}

// FeatureRequestEvent records a single flag evaluation.
type FeatureRequestEvent struct {
	BaseEvent
	Key                  string
	Variation            int
	Value                ldvalue.Value
	Default              ldvalue.Value
	Version              int
	PrereqOf             string
	Reason               ldreason.EvaluationReason
	TrackEvents          bool
	DebugEventsUntilDate uint64
	Debug                bool
}

// GetKind returns the wire "kind" for the event, "debug" when this is a debug clone.
func (e FeatureRequestEvent) GetKind() string {
	if e.Debug {
		return DebugEventKind
	}
	return FeatureEventKind
}

// IdentifyEvent records an explicit identify() call.
type IdentifyEvent struct {
	BaseEvent
}

// CustomEvent records a track() call.
type CustomEvent struct {
	BaseEvent
	Key         string
	Data        ldvalue.Value
	HasMetric   bool
	MetricValue float64
}

// IndexEvent is synthesized the first time a user key is seen, to register the user's
// attributes without inlining them into every subsequent event.
type IndexEvent struct {
	BaseEvent
}

// EventFactory constructs events with a consistent creation-date source and a
// consistent with-reasons policy.
type EventFactory struct {
	includeReasons bool
	timeFn         func() uint64
}

// NewEventFactory creates an EventFactory. If timeFn is nil, time.Now is used.
func NewEventFactory(includeReasons bool, timeFn func() uint64) EventFactory {
	if timeFn == nil {
		timeFn = func() uint64 { return toUnixMillis(time.Now()) }
	}
	return EventFactory{includeReasons: includeReasons, timeFn: timeFn}
}

// NewIdentifyEvent creates an identify event for a user.
func (f EventFactory) NewIdentifyEvent(user lduser.User) IdentifyEvent {
	return IdentifyEvent{BaseEvent{CreationDate: f.timeFn(), User: user}}
}

// NewCustomEvent creates a custom event, optionally carrying a numeric metric value.
func (f EventFactory) NewCustomEvent(
	key string,
	user lduser.User,
	data ldvalue.Value,
	hasMetric bool,
	metricValue float64,
) CustomEvent {
	return CustomEvent{
		BaseEvent:   BaseEvent{CreationDate: f.timeFn(), User: user},
		Key:         key,
		Data:        data,
		HasMetric:   hasMetric,
		MetricValue: metricValue,
	}
}

// NewSuccessfulEvalEvent creates a feature event for a completed (possibly defaulted)
// evaluation. variation is ldreason.NoVariation when there is no applicable index.
func (f EventFactory) NewSuccessfulEvalEvent(
	flag FlagEventProperties,
	user lduser.User,
	variation int,
	value ldvalue.Value,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
	prereqOf string,
) FeatureRequestEvent {
	requireExperimentData := false
	fe := FeatureRequestEvent{
		BaseEvent:            BaseEvent{CreationDate: f.timeFn(), User: user},
		Key:                  flag.GetKey(),
		Variation:            variation,
		Value:                value,
		Default:              defaultVal,
		Version:              flag.GetVersion(),
		PrereqOf:             prereqOf,
		TrackEvents:          flag.IsFullEventTrackingEnabled(),
		DebugEventsUntilDate: flag.GetDebugEventsUntilDate(),
	}
	if f.includeReasons || requireExperimentData {
		fe.Reason = reason
	}
	return fe
}

// NewUnknownFlagEvaluationEvent creates a feature event for an evaluation of a flag
// that was not found, so only the key and default value are meaningful.
func (f EventFactory) NewUnknownFlagEvaluationEvent(
	key string,
	user lduser.User,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
) FeatureRequestEvent {
	fe := FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: f.timeFn(), User: user},
		Key:       key,
		Variation: NoVariation,
		Value:     defaultVal,
		Default:   defaultVal,
	}
	if f.includeReasons {
		fe.Reason = reason
	}
	return fe
}
