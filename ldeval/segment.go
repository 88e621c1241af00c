package ldeval

import (
	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
	"github.com/launchdarkly/go-server-sdk-sub008/lduser"
)

// segmentContainsUser implements the three-step segment match: explicit Included
// membership wins first, then explicit Excluded membership loses, then the segment's
// rules are tried in order and the first match wins.
func (e *evaluator) segmentContainsUser(segment *ldmodel.Segment, user lduser.User) bool {
	key := user.Key()

	for _, k := range segment.Included {
		if k == key {
			return true
		}
	}
	for _, k := range segment.Excluded {
		if k == key {
			return false
		}
	}
	for _, rule := range segment.Rules {
		if e.segmentRuleMatchesUser(rule, user, segment.Key, segment.Salt) {
			return true
		}
	}
	return false
}

func (e *evaluator) segmentRuleMatchesUser(rule ldmodel.SegmentRule, user lduser.User, segmentKey, salt string) bool {
	for _, clause := range rule.Clauses {
		if !e.clauseMatchesUser(clause, user) {
			return false
		}
	}

	if rule.Weight == nil {
		return true
	}

	bucketBy := "key"
	if rule.BucketBy != nil && *rule.BucketBy != "" {
		bucketBy = *rule.BucketBy
	}
	bucket := bucketUser(user, segmentKey, bucketBy, salt)
	return bucket < float64(*rule.Weight)/100000.0
}
