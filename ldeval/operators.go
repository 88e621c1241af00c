package ldeval

import (
	"regexp"
	"strings"
	"time"

	"github.com/launchdarkly/go-semver"

	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
)

type opFn func(userValue, clauseValue ldvalue.Value) bool

var allOps = map[ldmodel.Operator]opFn{
	ldmodel.OperatorIn:                 operatorInFn,
	ldmodel.OperatorEndsWith:           stringOperator(strings.HasSuffix),
	ldmodel.OperatorStartsWith:         stringOperator(strings.HasPrefix),
	ldmodel.OperatorContains:           stringOperator(strings.Contains),
	ldmodel.OperatorMatches:            operatorMatchesFn,
	ldmodel.OperatorLessThan:           numericOperator(func(a, b float64) bool { return a < b }),
	ldmodel.OperatorLessThanOrEqual:    numericOperator(func(a, b float64) bool { return a <= b }),
	ldmodel.OperatorGreaterThan:        numericOperator(func(a, b float64) bool { return a > b }),
	ldmodel.OperatorGreaterThanOrEqual: numericOperator(func(a, b float64) bool { return a >= b }),
	ldmodel.OperatorBefore:             dateOperator(func(a, b time.Time) bool { return a.Before(b) }),
	ldmodel.OperatorAfter:              dateOperator(func(a, b time.Time) bool { return a.After(b) }),
	ldmodel.OperatorSemVerEqual:        semVerOperator(func(c int) bool { return c == 0 }),
	ldmodel.OperatorSemVerLessThan:     semVerOperator(func(c int) bool { return c < 0 }),
	ldmodel.OperatorSemVerGreaterThan:  semVerOperator(func(c int) bool { return c > 0 }),
}

// operatorFn looks up the function for an operator. Unknown or empty operators always
// return false, per spec: "A null operator never matches (forward compatibility)."
func operatorFn(op ldmodel.Operator) opFn {
	if fn, ok := allOps[op]; ok {
		return fn
	}
	return operatorNoneFn
}

func operatorNoneFn(userValue, clauseValue ldvalue.Value) bool {
	return false
}

func operatorInFn(userValue, clauseValue ldvalue.Value) bool {
	return userValue.Equal(clauseValue)
}

func stringOperator(fn func(a, b string) bool) opFn {
	return func(userValue, clauseValue ldvalue.Value) bool {
		if userValue.Type() != ldvalue.StringType || clauseValue.Type() != ldvalue.StringType {
			return false
		}
		return fn(userValue.StringValue(), clauseValue.StringValue())
	}
}

func operatorMatchesFn(userValue, clauseValue ldvalue.Value) bool {
	if userValue.Type() != ldvalue.StringType || clauseValue.Type() != ldvalue.StringType {
		return false
	}
	matched, err := regexp.MatchString(clauseValue.StringValue(), userValue.StringValue())
	if err != nil {
		return false
	}
	return matched
}

func numericOperator(fn func(a, b float64) bool) opFn {
	return func(userValue, clauseValue ldvalue.Value) bool {
		if !userValue.IsNumber() || !clauseValue.IsNumber() {
			return false
		}
		return fn(userValue.Float64Value(), clauseValue.Float64Value())
	}
}

func dateOperator(fn func(a, b time.Time) bool) opFn {
	return func(userValue, clauseValue ldvalue.Value) bool {
		a, ok1 := parseDateTime(userValue)
		b, ok2 := parseDateTime(clauseValue)
		if !ok1 || !ok2 {
			return false
		}
		return fn(a, b)
	}
}

func parseDateTime(v ldvalue.Value) (time.Time, bool) {
	switch v.Type() {
	case ldvalue.StringType:
		t, err := time.Parse(time.RFC3339Nano, v.StringValue())
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case ldvalue.NumberType:
		ms := v.Float64Value()
		return time.UnixMilli(int64(ms)).UTC(), true
	default:
		return time.Time{}, false
	}
}

// parseSemVer tolerates a version string missing its minor and/or patch component,
// treating the missing components as zero.
func parseSemVer(s string) (semver.Version, bool) {
	v, err := semver.ParseAs(s, semver.ParseModeAllowMissingMinorAndPatch)
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}

func semVerOperator(fn func(cmp int) bool) opFn {
	return func(userValue, clauseValue ldvalue.Value) bool {
		if userValue.Type() != ldvalue.StringType || clauseValue.Type() != ldvalue.StringType {
			return false
		}
		a, ok1 := parseSemVer(userValue.StringValue())
		b, ok2 := parseSemVer(clauseValue.StringValue())
		if !ok1 || !ok2 {
			return false
		}
		return fn(a.ComparePrecedence(b))
	}
}
