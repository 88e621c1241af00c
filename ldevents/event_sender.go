package ldevents

import (
	"bytes"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/launchdarkly/go-server-sdk-sub008/ldlog"
)

const (
	maxFlushWorkers    = 5
	eventSchemaHeader  = "X-LaunchDarkly-Event-Schema"
	payloadIDHeader    = "X-LaunchDarkly-Payload-ID"
	currentEventSchema = "3"
	defaultEventsURIPath     = "/bulk"
	defaultDiagnosticURIPath = "/diagnostic"
	defaultEventsBaseURI     = "https://events.launchdarkly.com"
	defaultRetryDelay        = time.Second
)

// defaultEventSender is the production EventSender: it POSTs already-serialized event
// payloads to the events service, retrying once on a transient failure and reporting
// MustShutDown on an unrecoverable 401/403.
type defaultEventSender struct {
	httpClient    *http.Client
	eventsURI     string
	diagnosticURI string
	headers       http.Header
	loggers       ldlog.Loggers
	retryDelay    time.Duration
}

// NewServerSideEventSender creates the default EventSender, deriving /bulk and
// /diagnostic endpoints from baseURI (or the production default if empty).
func NewServerSideEventSender(
	httpClient *http.Client,
	sdkKey string,
	baseURI string,
	extraHeaders http.Header,
	loggers ldlog.Loggers,
) EventSender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURI == "" {
		baseURI = defaultEventsBaseURI
	}
	headers := make(http.Header)
	for k, vv := range extraHeaders {
		for _, v := range vv {
			headers.Add(k, v)
		}
	}
	headers.Set("Authorization", sdkKey)
	return &defaultEventSender{
		httpClient:    httpClient,
		eventsURI:     baseURI + defaultEventsURIPath,
		diagnosticURI: baseURI + defaultDiagnosticURIPath,
		headers:       headers,
		loggers:       loggers,
		retryDelay:    defaultRetryDelay,
	}
}

// SendEventData implements EventSender.
func (s *defaultEventSender) SendEventData(kind EventDataKind, data []byte, eventCount int) EventSenderResult {
	uri := s.eventsURI
	isDiagnostic := kind == DiagnosticEventDataKind
	if isDiagnostic {
		uri = s.diagnosticURI
	}

	var payloadID string
	if !isDiagnostic {
		id, err := uuid.NewRandom()
		if err == nil {
			payloadID = id.String()
		}
	}

	var resp *http.Response
	var respErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			s.loggers.Warn("Will retry posting events after a short delay")
			time.Sleep(s.retryDelay)
		}
		resp, respErr = s.sendOnce(uri, data, isDiagnostic, payloadID)
		if respErr != nil {
			s.loggers.Warnf("Unexpected error while sending events: %+v", respErr)
			continue
		}
		if resp.StatusCode >= 400 && isHTTPErrorRecoverable(resp.StatusCode) {
			s.loggers.Warnf("Received error status %d when sending events", resp.StatusCode)
			continue
		}
		break
	}

	if respErr != nil {
		return EventSenderResult{Success: false}
	}
	if resp.StatusCode >= 400 {
		s.loggers.Error(httpErrorMessage(resp.StatusCode, "posting events", "some events were dropped"))
		return EventSenderResult{Success: false, MustShutDown: !isHTTPErrorRecoverable(resp.StatusCode)}
	}

	result := EventSenderResult{Success: true}
	if dt, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
		result.TimeFromServer = toUnixMillis(dt)
	}
	return result
}

func (s *defaultEventSender) sendOnce(uri string, data []byte, isDiagnostic bool, payloadID string) (*http.Response, error) {
	req, err := http.NewRequest("POST", uri, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	for k, vv := range s.headers {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	if !isDiagnostic {
		req.Header.Set(eventSchemaHeader, currentEventSchema)
		req.Header.Set(payloadIDHeader, payloadID)
	}
	resp, err := s.httpClient.Do(req)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	return resp, err
}
