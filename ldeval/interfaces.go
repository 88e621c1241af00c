package ldeval

import (
	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
	"github.com/launchdarkly/go-server-sdk-sub008/lduser"
	"github.com/launchdarkly/go-server-sdk-sub008/ldreason"
)

// DataProvider is the evaluator's read-only view of the data store: looking up flags
// by key (for prerequisites) and segments by key (for segmentMatch clauses).
type DataProvider interface {
	GetFeatureFlag(key string) (*ldmodel.FeatureFlag, bool)
	GetSegment(key string) (*ldmodel.Segment, bool)
}

// PrerequisiteFlagEvent describes one prerequisite evaluation performed while
// evaluating some other flag, so the caller can emit a feature-request event for it.
type PrerequisiteFlagEvent struct {
	TargetFlagKey     string
	User              lduser.User
	PrerequisiteFlag  ldmodel.FeatureFlag
	PrerequisiteResult ldreason.EvaluationDetail
}

// PrerequisiteFlagEventRecorder receives a synthetic event for every prerequisite
// flag evaluated, win or lose.
type PrerequisiteFlagEventRecorder func(PrerequisiteFlagEvent)

// Evaluator evaluates a flag against a user, given a DataProvider for resolving
// prerequisites and segments.
type Evaluator interface {
	Evaluate(flag *ldmodel.FeatureFlag, user lduser.User, recorder PrerequisiteFlagEventRecorder) ldreason.EvaluationDetail
}

// NewEvaluator constructs an Evaluator backed by the given DataProvider.
func NewEvaluator(provider DataProvider) Evaluator {
	return &evaluator{provider: provider}
}
