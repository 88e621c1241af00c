package ldevents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/launchdarkly/go-server-sdk-sub008/lduser"
	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
)

func makeEvalEvent(creationDate uint64, flagKey string, flagVersion int, variation int, value, defaultValue string) FeatureRequestEvent {
	return FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: creationDate, User: lduser.NewUser("userkey")},
		Key:       flagKey,
		Version:   flagVersion,
		Variation: variation,
		Value:     ldvalue.String(value),
		Default:   ldvalue.String(defaultValue),
	}
}

func TestSummarizeEventSetsStartAndEndDates(t *testing.T) {
	es := newEventSummarizer()
	flagKey := "key"
	event1 := makeEvalEvent(2000, flagKey, 1, 0, "", "")
	event2 := makeEvalEvent(1000, flagKey, 1, 0, "", "")
	event3 := makeEvalEvent(1500, flagKey, 1, 0, "", "")
	es.summarizeEvent(event1)
	es.summarizeEvent(event2)
	es.summarizeEvent(event3)
	data := es.snapshot()

	assert.Equal(t, uint64(1000), data.startDate)
	assert.Equal(t, uint64(2000), data.endDate)
}

func TestSummarizeEventIncrementsCounters(t *testing.T) {
	es := newEventSummarizer()
	flagKey1, flagKey2, unknownFlagKey := "key1", "key2", "badkey"
	flagVersion1, flagVersion2 := 11, 22
	variation1, variation2 := 1, 2

	event1 := makeEvalEvent(0, flagKey1, flagVersion1, variation1, "value1", "default1")
	event2 := makeEvalEvent(0, flagKey1, flagVersion1, variation2, "value2", "default1")
	event3 := makeEvalEvent(0, flagKey2, flagVersion2, variation1, "value99", "default2")
	event4 := makeEvalEvent(0, flagKey1, flagVersion1, variation1, "value1", "default1")
	event5 := makeEvalEvent(0, unknownFlagKey, 0, NoVariation, "default3", "default3")
	for _, e := range []FeatureRequestEvent{event1, event2, event3, event4, event5} {
		es.summarizeEvent(e)
	}
	data := es.snapshot()

	require := map[string]*flagSummary{
		flagKey1: {
			defaultValue: ldvalue.String("default1"),
			hasVersion:   true,
			version:      flagVersion1,
			counters: map[counterKey]*counterValue{
				{variation: variation1, hasVersion: true, version: flagVersion1}: {2, ldvalue.String("value1")},
				{variation: variation2, hasVersion: true, version: flagVersion1}: {1, ldvalue.String("value2")},
			},
		},
		flagKey2: {
			defaultValue: ldvalue.String("default2"),
			hasVersion:   true,
			version:      flagVersion2,
			counters: map[counterKey]*counterValue{
				{variation: variation1, hasVersion: true, version: flagVersion2}: {1, ldvalue.String("value99")},
			},
		},
		unknownFlagKey: {
			defaultValue: ldvalue.String("default3"),
			hasVersion:   false,
			counters: map[counterKey]*counterValue{
				{variation: NoVariation, hasVersion: false}: {1, ldvalue.String("default3")},
			},
		},
	}
	assert.Equal(t, require, data.flags)
}

func TestCounterForUntrackedVariationIsDistinctFromOthers(t *testing.T) {
	es := newEventSummarizer()
	flagKey := "key1"
	flagVersion := 11
	variation1, variation2 := 1, 2
	event1 := makeEvalEvent(0, flagKey, flagVersion, variation1, "value1", "default1")
	event2 := makeEvalEvent(0, flagKey, flagVersion, variation2, "value2", "default1")
	event3 := makeEvalEvent(0, flagKey, flagVersion, NoVariation, "default1", "default1")
	for _, e := range []FeatureRequestEvent{event1, event2, event3} {
		es.summarizeEvent(e)
	}
	data := es.snapshot()

	expectedFlags := map[string]*flagSummary{
		flagKey: {
			defaultValue: ldvalue.String("default1"),
			hasVersion:   true,
			version:      flagVersion,
			counters: map[counterKey]*counterValue{
				{variation: variation1, hasVersion: true, version: flagVersion}: {1, ldvalue.String("value1")},
				{variation: variation2, hasVersion: true, version: flagVersion}: {1, ldvalue.String("value2")},
				{variation: NoVariation, hasVersion: true, version: flagVersion}: {1, ldvalue.String("default1")},
			},
		},
	}
	assert.Equal(t, expectedFlags, data.flags)
}
