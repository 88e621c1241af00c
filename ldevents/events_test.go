package ldevents

import "github.com/launchdarkly/go-server-sdk-sub008/ldreason"

var defaultEventFactory = NewEventFactory(false, nil)

var noReason = ldreason.EvaluationReason{}

// flagEventPropertiesImpl is a minimal stand-in for a real feature flag, used so that
// event construction tests don't need to depend on the flag model package.
type flagEventPropertiesImpl struct {
	Key                  string
	Version              int
	TrackEvents          bool
	DebugEventsUntilDate uint64
}

func (f flagEventPropertiesImpl) GetKey() string                    { return f.Key }
func (f flagEventPropertiesImpl) GetVersion() int                   { return f.Version }
func (f flagEventPropertiesImpl) IsFullEventTrackingEnabled() bool   { return f.TrackEvents }
func (f flagEventPropertiesImpl) GetDebugEventsUntilDate() uint64    { return f.DebugEventsUntilDate }
