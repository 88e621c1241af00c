// Package ldmodel defines the data model for feature flags and segments: the wire
// representation the data source parses and the data store holds, and that the
// evaluator reads.
package ldmodel

import "github.com/launchdarkly/go-server-sdk-sub008/ldvalue"

// Operator identifies one of the clause match predicates. Unknown operator strings are
// preserved verbatim but never match anything.
type Operator string

// The defined clause operators.
const (
	OperatorIn                 Operator = "in"
	OperatorEndsWith           Operator = "endsWith"
	OperatorStartsWith         Operator = "startsWith"
	OperatorMatches            Operator = "matches"
	OperatorContains           Operator = "contains"
	OperatorLessThan           Operator = "lessThan"
	OperatorLessThanOrEqual    Operator = "lessThanOrEqual"
	OperatorGreaterThan        Operator = "greaterThan"
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OperatorBefore             Operator = "before"
	OperatorAfter              Operator = "after"
	OperatorSemVerEqual        Operator = "semVerEqual"
	OperatorSemVerLessThan     Operator = "semVerLessThan"
	OperatorSemVerGreaterThan  Operator = "semVerGreaterThan"
	OperatorSegmentMatch       Operator = "segmentMatch"
)

// Clause is one AND-ed matching condition within a Rule or SegmentRule.
type Clause struct {
	Attribute string         `json:"attribute"`
	Op        Operator       `json:"op"`
	Values    []ldvalue.Value `json:"values"`
	Negate    bool           `json:"negate,omitempty"`
}

// WeightedVariation is one entry in a Rollout: a variation index and its integer
// weight, out of 100000.
type WeightedVariation struct {
	Variation int `json:"variation"`
	Weight    int `json:"weight"`
}

// Rollout is a percentage-based assignment of users to variations.
type Rollout struct {
	Variations []WeightedVariation `json:"variations"`
	BucketBy   *string             `json:"bucketBy,omitempty"`
}

// VariationOrRollout is exactly one of a fixed variation index or a Rollout.
type VariationOrRollout struct {
	Variation *int     `json:"variation,omitempty"`
	Rollout   *Rollout `json:"rollout,omitempty"`
}

// Rule is an ordered list of AND-ed clauses plus the result to serve when they all
// match.
type Rule struct {
	ID                 string   `json:"id,omitempty"`
	Clauses            []Clause `json:"clauses"`
	VariationOrRollout
	TrackEvents bool `json:"trackEvents,omitempty"`
}

// Target is a fixed set of user keys that should receive a particular variation.
type Target struct {
	Variation int      `json:"variation"`
	Values    []string `json:"values"`
}

// Prerequisite names another flag, and the variation it must evaluate to, for this
// flag to be considered on.
type Prerequisite struct {
	Key       string `json:"key"`
	Variation int    `json:"variation"`
}

// FeatureFlag is the full definition of one feature flag.
type FeatureFlag struct {
	Key                    string               `json:"key"`
	Version                int                  `json:"version"`
	On                     bool                 `json:"on"`
	Prerequisites          []Prerequisite       `json:"prerequisites,omitempty"`
	Salt                   string               `json:"salt,omitempty"`
	Targets                []Target             `json:"targets,omitempty"`
	Rules                  []Rule               `json:"rules,omitempty"`
	Fallthrough            VariationOrRollout   `json:"fallthrough"`
	OffVariation           *int                 `json:"offVariation,omitempty"`
	Variations             []ldvalue.Value      `json:"variations,omitempty"`
	TrackEvents            bool                 `json:"trackEvents,omitempty"`
	TrackEventsFallthrough bool                 `json:"trackEventsFallthrough,omitempty"`
	DebugEventsUntilDate   *uint64              `json:"debugEventsUntilDate,omitempty"`
	ClientSide             bool                 `json:"clientSide,omitempty"`
	Deleted                bool                 `json:"deleted,omitempty"`
}

// SegmentRule is an ordered list of AND-ed clauses, with an optional weighted
// rollout-style match, within a Segment.
type SegmentRule struct {
	Clauses  []Clause `json:"clauses"`
	Weight   *int     `json:"weight,omitempty"`
	BucketBy *string  `json:"bucketBy,omitempty"`
}

// Segment is a reusable named set of users, referenced by flags via segmentMatch
// clauses.
type Segment struct {
	Key       string        `json:"key"`
	Version   int           `json:"version"`
	Included  []string      `json:"included,omitempty"`
	Excluded  []string      `json:"excluded,omitempty"`
	Rules     []SegmentRule `json:"rules,omitempty"`
	Salt      string        `json:"salt,omitempty"`
	Deleted   bool          `json:"deleted,omitempty"`
}

// GetKey returns the flag's key, implementing ldstoretypes.Item-like contracts.
func (f *FeatureFlag) GetKey() string { return f.Key }

// GetVersion returns the flag's version.
func (f *FeatureFlag) GetVersion() int { return f.Version }

// IsDeleted reports whether this is a tombstone.
func (f *FeatureFlag) IsDeleted() bool { return f.Deleted }

// IsFullEventTrackingEnabled reports whether every evaluation of this flag should
// produce a full feature event rather than only contributing to the summary counters.
func (f *FeatureFlag) IsFullEventTrackingEnabled() bool { return f.TrackEvents }

// GetDebugEventsUntilDate returns the Unix millisecond timestamp until which debug
// events should be emitted for this flag, or 0 if debugging is not enabled.
func (f *FeatureFlag) GetDebugEventsUntilDate() uint64 {
	if f.DebugEventsUntilDate == nil {
		return 0
	}
	return *f.DebugEventsUntilDate
}

// GetKey returns the segment's key.
func (s *Segment) GetKey() string { return s.Key }

// GetVersion returns the segment's version.
func (s *Segment) GetVersion() int { return s.Version }

// IsDeleted reports whether this is a tombstone.
func (s *Segment) IsDeleted() bool { return s.Deleted }
