package ldevents

import "github.com/launchdarkly/go-server-sdk-sub008/ldvalue"

// counterKey identifies one bucket of the summary counters: a specific variation of a
// specific flag version. unknown flags (no applicable flag.GetVersion()) use
// hasVersion=false so they are never conflated with a versioned flag's counters.
type counterKey struct {
	variation  int
	hasVersion bool
	version    int
}

// counterValue accumulates the count and a representative value for one counterKey.
type counterValue struct {
	count int
	value ldvalue.Value
}

// flagSummary accumulates per-variation counters for a single flag key across a flush
// interval, along with the default value passed by the caller (which is the same for
// every evaluation of a given flag in well-behaved callers, so the first one seen is kept).
type flagSummary struct {
	defaultValue ldvalue.Value
	hasVersion   bool
	version      int
	counters     map[counterKey]*counterValue
}

// eventSummaryData is an immutable snapshot of the summarizer's state at flush time.
type eventSummaryData struct {
	startDate uint64
	endDate   uint64
	flags     map[string]*flagSummary
}

// eventSummarizer accumulates per-flag evaluation counters between flushes.
type eventSummarizer struct {
	startDate uint64
	endDate   uint64
	flags     map[string]*flagSummary
}

func newEventSummarizer() eventSummarizer {
	return eventSummarizer{flags: make(map[string]*flagSummary)}
}

// summarizeEvent folds a single feature event's outcome into the running counters.
func (s *eventSummarizer) summarizeEvent(evt FeatureRequestEvent) {
	if s.startDate == 0 || evt.CreationDate < s.startDate {
		s.startDate = evt.CreationDate
	}
	if evt.CreationDate > s.endDate {
		s.endDate = evt.CreationDate
	}

	fs, ok := s.flags[evt.Key]
	if !ok {
		fs = &flagSummary{
			defaultValue: evt.Default,
			hasVersion:   evt.Version != 0,
			version:      evt.Version,
			counters:     make(map[counterKey]*counterValue),
		}
		s.flags[evt.Key] = fs
	}

	ck := counterKey{variation: evt.Variation, hasVersion: evt.Version != 0, version: evt.Version}
	cv, ok := fs.counters[ck]
	if !ok {
		cv = &counterValue{value: evt.Value}
		fs.counters[ck] = cv
	}
	cv.count++
}

// snapshot returns the accumulated data without resetting anything; the returned data
// shares the summarizer's flag map, so after a flush the outbox replaces this
// summarizer with a new one (see eventsOutbox.clear) instead of reusing it.
func (s *eventSummarizer) snapshot() eventSummaryData {
	return eventSummaryData{startDate: s.startDate, endDate: s.endDate, flags: s.flags}
}
