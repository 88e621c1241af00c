package datasource

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gregjones/httpcache"

	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
)

// allData is the full flags+segments payload shape shared by the polling "/all"
// endpoint and the streaming "put" event.
type allData struct {
	Flags    map[string]*ldmodel.FeatureFlag `json:"flags"`
	Segments map[string]*ldmodel.Segment     `json:"segments"`
}

// requestor performs the conditional GET against the polling/indirect-fetch endpoint,
// using an httpcache-wrapped transport so a 304 response is recognized without the
// caller needing to manage ETags itself.
type requestor struct {
	httpClient *http.Client
	baseURI    string
	headers    http.Header
}

// NewRequestor constructs a requestor against baseURI, using transport (or
// http.DefaultTransport if nil) wrapped in an ETag-aware cache.
func NewRequestor(baseURI string, headers http.Header, transport http.RoundTripper) *requestor {
	if transport == nil {
		transport = http.DefaultTransport
	}
	client := &http.Client{
		Transport: &httpcache.Transport{
			Cache:               httpcache.NewMemoryCache(),
			MarkCachedResponses: true,
			Transport:           transport,
		},
	}
	return &requestor{httpClient: client, baseURI: baseURI, headers: headers}
}

const latestAllPath = "/sdk/latest-all"

// requestAll fetches the full data set. cached is true when the server returned 304 and
// the previously cached body was reused - callers should treat that as "no update".
func (r *requestor) requestAll() (data allData, cached bool, err error) {
	body, cached, err := r.get(latestAllPath)
	if err != nil || cached {
		return allData{}, cached, err
	}
	if jsonErr := json.Unmarshal(body, &data); jsonErr != nil {
		return allData{}, false, jsonErr
	}
	return data, false, nil
}

// requestOne re-fetches a single item by path, for an indirect/patch event. path is the
// event's path verbatim, e.g. "/sdk/latest-flags/flag-key".
func (r *requestor) requestOne(path string) (body []byte, cached bool, err error) {
	return r.get(path)
}

func (r *requestor) get(resource string) ([]byte, bool, error) {
	req, err := http.NewRequest(http.MethodGet, r.baseURI+resource, nil)
	if err != nil {
		return nil, false, err
	}
	for k, vv := range r.headers {
		req.Header[k] = vv
	}

	res, err := r.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()

	if err := checkForHTTPError(res.StatusCode, req.URL.String()); err != nil {
		return nil, false, err
	}

	cached := res.Header.Get(httpcache.XFromCache) != ""
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, false, err
	}
	return body, cached, nil
}
