package ldevents

import (
	"encoding/json"
	"sync"

	"github.com/launchdarkly/go-server-sdk-sub008/ldlog"
	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
)

// eventOutputFormatter turns the in-memory event/summary representation into the JSON
// array the events service expects, applying user redaction along the way.
type eventOutputFormatter struct {
	userFilter userFilter
	config     EventsConfiguration
}

func userToOutputValue(u scrubbedUser) ldvalue.Value {
	b, err := json.Marshal(u.filteredUser)
	if err != nil {
		return ldvalue.Null()
	}
	var v ldvalue.Value
	_ = v.UnmarshalJSON(b)
	return v
}

func (f eventOutputFormatter) userOrKey(evt BaseEvent, inline bool, out *ldvalue.ObjectBuilder) {
	if inline {
		out.Set("user", userToOutputValue(f.userFilter.scrubUser(evt.User)))
	} else {
		out.Set("userKey", ldvalue.String(evt.User.Key()))
	}
}

func (f eventOutputFormatter) makeOutputEvent(evt Event) ldvalue.Value {
	switch e := evt.(type) {
	case IdentifyEvent:
		return ldvalue.BuildObject().
			Set("kind", ldvalue.String(IdentifyEventKind)).
			Set("creationDate", ldvalue.Float64(float64(e.CreationDate))).
			Set("key", ldvalue.String(e.User.Key())).
			Set("user", userToOutputValue(f.userFilter.scrubUser(e.User))).
			Build()
	case IndexEvent:
		return ldvalue.BuildObject().
			Set("kind", ldvalue.String(IndexEventKind)).
			Set("creationDate", ldvalue.Float64(float64(e.CreationDate))).
			Set("user", userToOutputValue(f.userFilter.scrubUser(e.User))).
			Build()
	case CustomEvent:
		b := ldvalue.BuildObject().
			Set("kind", ldvalue.String(CustomEventKind)).
			Set("creationDate", ldvalue.Float64(float64(e.CreationDate))).
			Set("key", ldvalue.String(e.Key))
		if !e.Data.IsNull() {
			b.Set("data", e.Data)
		}
		f.userOrKey(e.BaseEvent, f.config.InlineUsersInEvents, b)
		if e.HasMetric {
			b.Set("metricValue", ldvalue.Float64(e.MetricValue))
		}
		return b.Build()
	case FeatureRequestEvent:
		b := ldvalue.BuildObject().
			Set("kind", ldvalue.String(e.GetKind())).
			Set("creationDate", ldvalue.Float64(float64(e.CreationDate))).
			Set("key", ldvalue.String(e.Key)).
			Set("version", ldvalue.Int(e.Version)).
			Set("value", e.Value).
			Set("default", e.Default)
		if e.Variation != NoVariation {
			b.Set("variation", ldvalue.Int(e.Variation))
		}
		if e.Reason.Kind() != "" {
			rb, _ := json.Marshal(e.Reason)
			var rv ldvalue.Value
			_ = rv.UnmarshalJSON(rb)
			b.Set("reason", rv)
		}
		if e.PrereqOf != "" {
			b.Set("prereqOf", ldvalue.String(e.PrereqOf))
		}
		f.userOrKey(e.BaseEvent, e.Debug || f.config.InlineUsersInEvents, b)
		return b.Build()
	default:
		return ldvalue.Null()
	}
}

func summaryCounterValue(key counterKey, cv *counterValue) ldvalue.Value {
	b := ldvalue.BuildObject().
		Set("value", cv.value).
		Set("count", ldvalue.Int(cv.count))
	if key.hasVersion {
		b.Set("version", ldvalue.Int(key.version))
	} else {
		b.Set("unknown", ldvalue.Bool(true))
	}
	if key.variation != NoVariation {
		b.Set("variation", ldvalue.Int(key.variation))
	}
	return b.Build()
}

func (f eventOutputFormatter) makeSummaryEvent(summary eventSummaryData) (ldvalue.Value, bool) {
	if len(summary.flags) == 0 {
		return ldvalue.Null(), false
	}
	featuresBuilder := ldvalue.BuildObject()
	for key, fs := range summary.flags {
		countersBuilder := ldvalue.BuildArray()
		for ck, cv := range fs.counters {
			countersBuilder.Add(summaryCounterValue(ck, cv))
		}
		featuresBuilder.Set(key, ldvalue.BuildObject().
			Set("default", fs.defaultValue).
			Set("counters", countersBuilder.Build()).
			Build())
	}
	event := ldvalue.BuildObject().
		Set("kind", ldvalue.String(SummaryEventKind)).
		Set("startDate", ldvalue.Float64(float64(summary.startDate))).
		Set("endDate", ldvalue.Float64(float64(summary.endDate))).
		Set("features", featuresBuilder.Build()).
		Build()
	return event, true
}

// makeOutputEvents serializes pending events followed by the summary event (if any),
// preserving arrival order with the summary always last.
func (f eventOutputFormatter) makeOutputEvents(events []Event, summary eventSummaryData) []ldvalue.Value {
	out := make([]ldvalue.Value, 0, len(events)+1)
	for _, e := range events {
		out = append(out, f.makeOutputEvent(e))
	}
	if summaryEvent, ok := f.makeSummaryEvent(summary); ok {
		out = append(out, summaryEvent)
	}
	return out
}

// eventsOutbox buffers full events awaiting the next flush, alongside the running
// summary counters, and tracks how many events have been dropped due to capacity.
type eventsOutbox struct {
	capacity      int
	events        []Event
	summarizer    eventSummarizer
	droppedEvents int
	loggers       ldlog.Loggers
	droppedOnce   sync.Once
}

func newEventsOutbox(capacity int, loggers ldlog.Loggers) *eventsOutbox {
	return &eventsOutbox{capacity: capacity, summarizer: newEventSummarizer(), loggers: loggers}
}

func (o *eventsOutbox) addEvent(evt Event) {
	if o.capacity > 0 && len(o.events) >= o.capacity {
		o.droppedEvents++
		o.droppedOnce.Do(func() {
			o.loggers.Warn("Exceeded event queue capacity. Increase capacity to avoid dropping events.")
		})
		return
	}
	o.events = append(o.events, evt)
}

func (o *eventsOutbox) addToSummary(evt FeatureRequestEvent) {
	o.summarizer.summarizeEvent(evt)
}

type flushPayload struct {
	events  []Event
	summary eventSummaryData
}

func (o *eventsOutbox) getPayload() flushPayload {
	return flushPayload{events: o.events, summary: o.summarizer.snapshot()}
}

func (o *eventsOutbox) clear() {
	o.events = nil
	o.summarizer = newEventSummarizer()
	o.droppedOnce = sync.Once{}
}
