package ldclient

import (
	"bytes"
	"encoding/json"

	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
	"github.com/launchdarkly/go-server-sdk-sub008/ldreason"
	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
)

// FlagsStateOption is an optional parameter to LDClient.AllFlagsState.
type FlagsStateOption int

const (
	// ClientSideOnly restricts AllFlagsState to flags marked for use with the
	// client-side SDKs (ClientSide == true).
	ClientSideOnly FlagsStateOption = iota
	// WithReasons includes the evaluation reason for every flag.
	WithReasons
	// DetailsOnlyForTrackedFlags omits the variation/version/reason metadata for any
	// flag that does not have event tracking (or debugging) enabled, to reduce
	// payload size when bootstrapping client-side flags.
	DetailsOnlyForTrackedFlags
)

func hasFlagsStateOption(options []FlagsStateOption, option FlagsStateOption) bool {
	for _, o := range options {
		if o == option {
			return true
		}
	}
	return false
}

type flagState struct {
	Variation            int                        `json:"variation"`
	Version               int                        `json:"version"`
	Reason                *ldreason.EvaluationReason `json:"reason"`
	TrackEvents           bool                       `json:"trackEvents,omitempty"`
	DebugEventsUntilDate  uint64                     `json:"debugEventsUntilDate,omitempty"`
	omitDetails           bool
}

// MarshalJSON implements json.Marshaler. When omitDetails is set (the
// DetailsOnlyForTrackedFlags option, for a flag with neither tracking nor debugging
// enabled), only the bare flag value contributes to the outer map and this entry
// marshals as an empty object.
func (fs flagState) MarshalJSON() ([]byte, error) {
	if fs.omitDetails {
		return []byte("{}"), nil
	}
	type alias flagState
	return json.Marshal(alias(fs))
}

// FeatureFlagsState represents the flag values and metadata returned by
// LDClient.AllFlagsState. It is a snapshot: once built it is never mutated further.
type FeatureFlagsState struct {
	valid  bool
	values map[string]ldvalue.Value
	flags  map[string]flagState
}

func newFeatureFlagsState() FeatureFlagsState {
	return FeatureFlagsState{
		valid:  true,
		values: make(map[string]ldvalue.Value),
		flags:  make(map[string]flagState),
	}
}

// IsValid reports whether the client was able to compute flag state (false if the
// client was offline or uninitialized with no persisted data available).
func (s FeatureFlagsState) IsValid() bool {
	return s.valid
}

// GetFlagValue returns the value of an individual flag, or ldvalue.Null() if the flag
// was not included.
func (s FeatureFlagsState) GetFlagValue(key string) ldvalue.Value {
	if v, ok := s.values[key]; ok {
		return v
	}
	return ldvalue.Null()
}

// GetFlagReason returns the evaluation reason for an individual flag, if reasons were
// requested, or a zero EvaluationReason otherwise.
func (s FeatureFlagsState) GetFlagReason(key string) ldreason.EvaluationReason {
	if fs, ok := s.flags[key]; ok && fs.Reason != nil {
		return *fs.Reason
	}
	return ldreason.EvaluationReason{}
}

// ToValuesMap returns a plain map of flag key to flag value, discarding all metadata.
func (s FeatureFlagsState) ToValuesMap() map[string]ldvalue.Value {
	out := make(map[string]ldvalue.Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *FeatureFlagsState) addFlag(
	flag ldmodel.FeatureFlag,
	value ldvalue.Value,
	variation int,
	reason ldreason.EvaluationReason,
	detailsOnlyIfTracked bool,
) {
	s.values[flag.Key] = value

	debugEventsUntilDate := flag.GetDebugEventsUntilDate()
	fs := flagState{
		Variation:            variation,
		Version:              flag.Version,
		TrackEvents:          flag.TrackEvents,
		DebugEventsUntilDate: debugEventsUntilDate,
	}
	if variation < 0 {
		fs.Variation = 0
	}
	if reason.Kind() != "" {
		fs.Reason = &reason
	}
	fs.omitDetails = detailsOnlyIfTracked && !flag.TrackEvents && debugEventsUntilDate == 0
	s.flags[flag.Key] = fs
}

// MarshalJSON implements json.Marshaler, producing the wire shape expected by
// client-side bootstrapping: flag values at the top level, plus "$flagsState" and
// "$valid" metadata keys.
func (s FeatureFlagsState) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for k, v := range s.values {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		keyJSON, _ := json.Marshal(k)
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	if !first {
		buf.WriteByte(',')
	}
	buf.WriteString(`"$flagsState":{`)
	first = true
	for k, fs := range s.flags {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		keyJSON, _ := json.Marshal(k)
		buf.Write(keyJSON)
		buf.WriteByte(':')
		fsJSON, err := json.Marshal(fs)
		if err != nil {
			return nil, err
		}
		buf.Write(fsJSON)
	}
	buf.WriteByte('}')
	buf.WriteString(`,"$valid":`)
	if s.valid {
		buf.WriteString("true")
	} else {
		buf.WriteString("false")
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
