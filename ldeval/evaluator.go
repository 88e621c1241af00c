package ldeval

import (
	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
	"github.com/launchdarkly/go-server-sdk-sub008/ldreason"
	"github.com/launchdarkly/go-server-sdk-sub008/lduser"
	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
)

type evaluator struct {
	provider DataProvider
}

// Evaluate applies the full evaluation algorithm (off check, prerequisites, targets,
// rules, fallthrough), recovering from any unexpected panic as an EXCEPTION reason so
// evaluation never propagates a panic to the caller.
func (e *evaluator) Evaluate(
	flag *ldmodel.FeatureFlag,
	user lduser.User,
	recorder PrerequisiteFlagEventRecorder,
) (detail ldreason.EvaluationDetail) {
	defer func() {
		if r := recover(); r != nil {
			detail = ldreason.EvaluationDetail{
				Value:          ldvalue.Null(),
				VariationIndex: ldreason.NoVariation,
				Reason:         ldreason.NewEvalReasonError(ldreason.EvalErrorException),
			}
		}
	}()
	visited := map[string]bool{flag.Key: true}
	return e.evaluateInternal(flag, user, recorder, visited)
}

func (e *evaluator) evaluateInternal(
	flag *ldmodel.FeatureFlag,
	user lduser.User,
	recorder PrerequisiteFlagEventRecorder,
	visited map[string]bool,
) ldreason.EvaluationDetail {
	if !flag.On {
		return e.offResult(flag, ldreason.NewEvalReasonOff())
	}

	if prereqFailed, ok := e.checkPrerequisites(flag, user, recorder, visited); ok {
		return e.offResult(flag, ldreason.NewEvalReasonPrerequisiteFailed(prereqFailed))
	}

	for _, target := range flag.Targets {
		for _, v := range target.Values {
			if v == user.Key() {
				return e.variationResult(flag, target.Variation, ldreason.NewEvalReasonTargetMatch())
			}
		}
	}

	for i, rule := range flag.Rules {
		if e.ruleMatchesUser(rule, user) {
			return e.resultForVariationOrRollout(
				flag, rule.VariationOrRollout, user, ldreason.NewEvalReasonRuleMatch(i, rule.ID))
		}
	}

	return e.resultForVariationOrRollout(flag, flag.Fallthrough, user, ldreason.NewEvalReasonFallthrough())
}

// checkPrerequisites evaluates every prerequisite, in order, even after one fails, so
// that a feature-request event is recorded for each; the returned key (and ok=true) is
// the FIRST prerequisite that failed, which fixes the outer evaluation's result.
func (e *evaluator) checkPrerequisites(
	flag *ldmodel.FeatureFlag,
	user lduser.User,
	recorder PrerequisiteFlagEventRecorder,
	visited map[string]bool,
) (string, bool) {
	firstFailedKey := ""
	for _, prereq := range flag.Prerequisites {
		prereqFlag, found := e.provider.GetFeatureFlag(prereq.Key)
		if !found {
			if firstFailedKey == "" {
				firstFailedKey = prereq.Key
			}
			continue
		}

		if visited[prereq.Key] {
			// Cyclic prerequisite: treat as malformed rather than recursing forever.
			if firstFailedKey == "" {
				firstFailedKey = prereq.Key
			}
			continue
		}
		childVisited := make(map[string]bool, len(visited)+1)
		for k := range visited {
			childVisited[k] = true
		}
		childVisited[prereq.Key] = true

		prereqResult := e.evaluateInternal(prereqFlag, user, recorder, childVisited)

		prereqFailedHere := !prereqFlag.On || prereqResult.VariationIndex != prereq.Variation
		if prereqFailedHere && firstFailedKey == "" {
			firstFailedKey = prereq.Key
		}

		if recorder != nil {
			recorder(PrerequisiteFlagEvent{
				TargetFlagKey:      flag.Key,
				User:               user,
				PrerequisiteFlag:   *prereqFlag,
				PrerequisiteResult: prereqResult,
			})
		}
	}
	return firstFailedKey, firstFailedKey != ""
}

func (e *evaluator) ruleMatchesUser(rule ldmodel.Rule, user lduser.User) bool {
	for _, clause := range rule.Clauses {
		if !e.clauseMatchesUser(clause, user) {
			return false
		}
	}
	return true
}

func (e *evaluator) clauseMatchesUser(clause ldmodel.Clause, user lduser.User) bool {
	if clause.Op == ldmodel.OperatorSegmentMatch {
		matched := false
		for _, v := range clause.Values {
			segKey, ok := v.AsString()
			if !ok {
				continue
			}
			seg, found := e.provider.GetSegment(segKey)
			if !found {
				continue
			}
			if e.segmentContainsUser(seg, user) {
				matched = true
				break
			}
		}
		return maybeNegate(clause, matched)
	}
	return maybeNegate(clause, e.clauseMatchesUserNoSegments(clause, user))
}

func (e *evaluator) clauseMatchesUserNoSegments(clause ldmodel.Clause, user lduser.User) bool {
	userValue := user.ValueOf(clause.Attribute)
	if userValue.IsNull() {
		return false
	}
	fn := operatorFn(clause.Op)

	if userValue.Type() == ldvalue.ArrayType {
		for _, elem := range userValue.AsSlice() {
			if clauseValueMatchesAny(fn, elem, clause.Values) {
				return true
			}
		}
		return false
	}
	return clauseValueMatchesAny(fn, userValue, clause.Values)
}

func clauseValueMatchesAny(fn opFn, userValue ldvalue.Value, clauseValues []ldvalue.Value) bool {
	for _, cv := range clauseValues {
		if fn(userValue, cv) {
			return true
		}
	}
	return false
}

func maybeNegate(clause ldmodel.Clause, value bool) bool {
	if clause.Negate {
		return !value
	}
	return value
}

func (e *evaluator) offResult(flag *ldmodel.FeatureFlag, reason ldreason.EvaluationReason) ldreason.EvaluationDetail {
	if flag.OffVariation == nil {
		return ldreason.EvaluationDetail{Value: ldvalue.Null(), VariationIndex: ldreason.NoVariation, Reason: reason}
	}
	return e.variationResult(flag, *flag.OffVariation, reason)
}

func (e *evaluator) variationResult(flag *ldmodel.FeatureFlag, index int, reason ldreason.EvaluationReason) ldreason.EvaluationDetail {
	if index < 0 || index >= len(flag.Variations) {
		return ldreason.EvaluationDetail{
			Value:          ldvalue.Null(),
			VariationIndex: ldreason.NoVariation,
			Reason:         ldreason.NewEvalReasonError(ldreason.EvalErrorMalformedFlag),
		}
	}
	return ldreason.EvaluationDetail{Value: flag.Variations[index], VariationIndex: index, Reason: reason}
}

func (e *evaluator) resultForVariationOrRollout(
	flag *ldmodel.FeatureFlag,
	vr ldmodel.VariationOrRollout,
	user lduser.User,
	reason ldreason.EvaluationReason,
) ldreason.EvaluationDetail {
	index, ok := variationIndexForUser(vr, user, flag.Key, flag.Salt)
	if !ok {
		return ldreason.EvaluationDetail{
			Value:          ldvalue.Null(),
			VariationIndex: ldreason.NoVariation,
			Reason:         ldreason.NewEvalReasonError(ldreason.EvalErrorMalformedFlag),
		}
	}
	return e.variationResult(flag, index, reason)
}

// variationIndexForUser resolves a VariationOrRollout to a concrete variation index:
// either the fixed Variation, or a weighted walk through the Rollout's variations. If
// neither Variation nor Rollout is set, or Rollout.Variations is empty, this is a
// malformed flag.
func variationIndexForUser(vr ldmodel.VariationOrRollout, user lduser.User, key, salt string) (int, bool) {
	if vr.Variation != nil {
		return *vr.Variation, true
	}
	if vr.Rollout == nil || len(vr.Rollout.Variations) == 0 {
		return 0, false
	}

	bucketBy := "key"
	if vr.Rollout.BucketBy != nil && *vr.Rollout.BucketBy != "" {
		bucketBy = *vr.Rollout.BucketBy
	}
	bucket := bucketUser(user, key, bucketBy, salt)

	var sum float64
	for _, wv := range vr.Rollout.Variations {
		sum += float64(wv.Weight) / 100000.0
		if bucket < sum {
			return wv.Variation, true
		}
	}
	// Defensive tail: rounding error, or weights summing to < 100000 and the bucket
	// falling past the end - put the user in the last bucket rather than erroring.
	last := vr.Rollout.Variations[len(vr.Rollout.Variations)-1]
	return last.Variation, true
}
