package ldeval

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is part of the bucketing algorithm's wire contract, not used for security.
	"encoding/hex"
	"strconv"

	"github.com/launchdarkly/go-server-sdk-sub008/lduser"
)

// longScale is the scaling constant used to turn the first 15 hex digits of a SHA-1
// hash into a float in [0, 1): 0xFFFFFFFFFFFFFFF is fifteen hex F's, i.e. 2^60 - 1.
const longScale = float64(0xFFFFFFFFFFFFFFF)

// bucketUser computes the deterministic [0, 1) bucket value for a user, under a flag
// or segment key and salt, per the spec's bucketing algorithm.
func bucketUser(user lduser.User, key string, bucketBy string, salt string) float64 {
	attrValue, ok := bucketableStringValue(user, bucketBy)
	if !ok {
		return 0
	}

	idHash := attrValue
	if secondary, ok := user.Secondary(); ok {
		if s, ok := secondary.AsString(); ok {
			idHash = idHash + "." + s
		}
	}

	h := sha1.New() //nolint:gosec
	_, _ = h.Write([]byte(key + "." + salt + "." + idHash))
	hash := hex.EncodeToString(h.Sum(nil))[:15]

	intVal, err := strconv.ParseInt(hash, 16, 64)
	if err != nil {
		return 0
	}
	return float64(intVal) / longScale
}

// bucketableStringValue resolves bucketBy on the user to a string: string attributes
// are used as-is, integer-valued number attributes are base-10 formatted, and every
// other case (float, bool, array, object, missing) is not usable for bucketing.
func bucketableStringValue(user lduser.User, bucketBy string) (string, bool) {
	v := user.ValueOf(bucketBy)
	return v.AsString()
}
