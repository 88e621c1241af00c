// Package datasource implements the two data-source backends - streaming and polling -
// that populate a data store from LaunchDarkly-compatible flag/segment data, plus the
// shared HTTP status policy they both apply to connection failures.
package datasource

import (
	"fmt"
	"net/http"
)

// httpStatusError wraps an HTTP response status that prevented a data source request
// from succeeding, recording whether the caller should keep retrying.
type httpStatusError struct {
	statusCode  int
	url         string
	recoverable bool
}

func (e httpStatusError) Error() string {
	return fmt.Sprintf("HTTP error %d accessing %s", e.statusCode, e.url)
}

// isHTTPStatusRecoverable reports whether a retry might succeed: 401/403 are permanent
// (bad credentials), 400/408/429/5xx are recoverable, anything else in the 4xx range is
// permanent.
func isHTTPStatusRecoverable(statusCode int) bool {
	switch statusCode {
	case http.StatusBadRequest, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	if statusCode >= 500 {
		return true
	}
	return statusCode < 400
}

func checkForHTTPError(statusCode int, url string) error {
	if statusCode/100 == 2 {
		return nil
	}
	return httpStatusError{statusCode: statusCode, url: url, recoverable: isHTTPStatusRecoverable(statusCode)}
}
