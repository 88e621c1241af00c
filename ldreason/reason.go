// Package ldreason defines the EvaluationReason and EvaluationDetail types describing
// why a flag evaluation produced the value it did.
package ldreason

import (
	"bytes"
	"encoding/json"

	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
)

// EvalReasonKind describes the general category of an evaluation reason.
type EvalReasonKind string

// The possible values of EvalReasonKind.
const (
	EvalReasonOff                EvalReasonKind = "OFF"
	EvalReasonTargetMatch        EvalReasonKind = "TARGET_MATCH"
	EvalReasonRuleMatch          EvalReasonKind = "RULE_MATCH"
	EvalReasonPrerequisiteFailed EvalReasonKind = "PREREQUISITE_FAILED"
	EvalReasonFallthrough        EvalReasonKind = "FALLTHROUGH"
	EvalReasonError              EvalReasonKind = "ERROR"
)

// EvalErrorKind describes the type of error behind an EvalReasonError reason.
type EvalErrorKind string

// The possible values of EvalErrorKind.
const (
	EvalErrorClientNotReady   EvalErrorKind = "CLIENT_NOT_READY"
	EvalErrorFlagNotFound     EvalErrorKind = "FLAG_NOT_FOUND"
	EvalErrorMalformedFlag    EvalErrorKind = "MALFORMED_FLAG"
	EvalErrorUserNotSpecified EvalErrorKind = "USER_NOT_SPECIFIED"
	EvalErrorWrongType        EvalErrorKind = "WRONG_TYPE"
	EvalErrorException        EvalErrorKind = "EXCEPTION"
)

// EvaluationReason describes why a flag evaluation produced a particular value. The
// zero value is not a valid reason; use one of the constructor functions below.
type EvaluationReason struct {
	kind            EvalReasonKind
	errorKind       EvalErrorKind
	ruleIndex       int
	ruleID          string
	prerequisiteKey string
}

// Kind returns the general category of the reason.
func (r EvaluationReason) Kind() EvalReasonKind { return r.kind }

// ErrorKind returns the error kind, valid only when Kind() is EvalReasonError.
func (r EvaluationReason) ErrorKind() EvalErrorKind { return r.errorKind }

// RuleIndex returns the zero-based index of the matched rule, valid only when Kind()
// is EvalReasonRuleMatch.
func (r EvaluationReason) RuleIndex() int { return r.ruleIndex }

// RuleID returns the unique id of the matched rule, valid only when Kind() is
// EvalReasonRuleMatch.
func (r EvaluationReason) RuleID() string { return r.ruleID }

// PrerequisiteKey returns the flag key of the first prerequisite that failed, valid
// only when Kind() is EvalReasonPrerequisiteFailed.
func (r EvaluationReason) PrerequisiteKey() string { return r.prerequisiteKey }

// NewEvalReasonOff constructs an OFF reason.
func NewEvalReasonOff() EvaluationReason { return EvaluationReason{kind: EvalReasonOff} }

// NewEvalReasonTargetMatch constructs a TARGET_MATCH reason.
func NewEvalReasonTargetMatch() EvaluationReason {
	return EvaluationReason{kind: EvalReasonTargetMatch}
}

// NewEvalReasonRuleMatch constructs a RULE_MATCH reason.
func NewEvalReasonRuleMatch(ruleIndex int, ruleID string) EvaluationReason {
	return EvaluationReason{kind: EvalReasonRuleMatch, ruleIndex: ruleIndex, ruleID: ruleID}
}

// NewEvalReasonPrerequisiteFailed constructs a PREREQUISITE_FAILED reason.
func NewEvalReasonPrerequisiteFailed(prereqKey string) EvaluationReason {
	return EvaluationReason{kind: EvalReasonPrerequisiteFailed, prerequisiteKey: prereqKey}
}

// NewEvalReasonFallthrough constructs a FALLTHROUGH reason.
func NewEvalReasonFallthrough() EvaluationReason {
	return EvaluationReason{kind: EvalReasonFallthrough}
}

// NewEvalReasonError constructs an ERROR reason of the given kind.
func NewEvalReasonError(errKind EvalErrorKind) EvaluationReason {
	return EvaluationReason{kind: EvalReasonError, errorKind: errKind}
}

// EvaluationDetail combines a flag evaluation's result value with the reason it was
// produced and the variation index it came from.
type EvaluationDetail struct {
	// Value is one of the flag's variations, or the caller-supplied default.
	Value ldvalue.Value
	// VariationIndex is the index into the flag's variations, or -1 if the default
	// value was returned.
	VariationIndex int
	// Reason explains how Value was derived.
	Reason EvaluationReason
}

// IsDefaultValue reports whether this detail represents the caller's default rather
// than a flag variation.
func (d EvaluationDetail) IsDefaultValue() bool {
	return d.VariationIndex == -1
}

// NoVariation is the VariationIndex value used when no flag variation was selected.
const NoVariation = -1

// MarshalJSON implements json.Marshaler, producing the wire shape used in analytics
// events: {"kind":"RULE_MATCH","ruleIndex":0,"ruleId":"..."} with optional fields
// included only when they apply to the reason's kind.
func (r EvaluationReason) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	kb, err := json.Marshal(string(r.kind))
	if err != nil {
		return nil, err
	}
	buf.Write(kb)
	switch r.kind {
	case EvalReasonRuleMatch:
		buf.WriteString(`,"ruleIndex":`)
		ib, _ := json.Marshal(r.ruleIndex)
		buf.Write(ib)
		buf.WriteString(`,"ruleId":`)
		rb, _ := json.Marshal(r.ruleID)
		buf.Write(rb)
	case EvalReasonPrerequisiteFailed:
		buf.WriteString(`,"prerequisiteKey":`)
		pb, _ := json.Marshal(r.prerequisiteKey)
		buf.Write(pb)
	case EvalReasonError:
		buf.WriteString(`,"errorKind":`)
		eb, _ := json.Marshal(string(r.errorKind))
		buf.Write(eb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
