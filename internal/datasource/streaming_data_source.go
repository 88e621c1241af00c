package datasource

import (
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	es "github.com/launchdarkly/eventsource"

	"github.com/launchdarkly/go-server-sdk-sub008/internal/datastore"
	"github.com/launchdarkly/go-server-sdk-sub008/ldlog"
	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
)

const (
	eventPut           = "put"
	eventPatch         = "patch"
	eventDelete        = "delete"
	eventIndirectPut   = "indirect/put"
	eventIndirectPatch = "indirect/patch"

	streamAllPath = "/all"

	backoffBase = time.Second
	backoffCap  = 30 * time.Second
)

type putData struct {
	Path string  `json:"path"`
	Data allData `json:"data"`
}

type patchData struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

type deleteData struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
}

// StreamingDataSource maintains a long-lived SSE subscription to the streaming
// endpoint, applying put/patch/delete events (and re-fetching indirect/put and
// indirect/patch events through a requestor) to a datastore.Store.
type StreamingDataSource struct {
	store      datastore.Store
	requestor  *requestor
	streamURI  string
	headers    http.Header
	httpClient *http.Client
	loggers    ldlog.Loggers

	mu            sync.Mutex
	stream        *es.Stream
	closeCh       chan struct{}
	closeOnce     sync.Once
	readyOnce     sync.Once
	readyCh       chan struct{}
	isInitialized bool
	permanentlyFailed bool
}

// NewStreamingDataSource constructs a StreamingDataSource. requestor is used to resolve
// indirect/put and indirect/patch events.
func NewStreamingDataSource(
	store datastore.Store,
	requestor *requestor,
	streamBaseURI string,
	headers http.Header,
	httpClient *http.Client,
	loggers ldlog.Loggers,
) *StreamingDataSource {
	return &StreamingDataSource{
		store:      store,
		requestor:  requestor,
		streamURI:  strings.TrimSuffix(streamBaseURI, "/") + streamAllPath,
		headers:    headers,
		httpClient: httpClient,
		loggers:    loggers,
		closeCh:    make(chan struct{}),
		readyCh:    make(chan struct{}),
	}
}

// Start begins the subscribe/read/reconnect loop in the background and returns a
// channel that closes once the store is initialized for the first time, or once the
// data source has permanently failed (e.g. a 401).
func (s *StreamingDataSource) Start() <-chan struct{} {
	go s.run()
	return s.readyCh
}

func (s *StreamingDataSource) run() {
	attempt := 0
	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		stream, err := es.Subscribe(s.streamURI, s.headers, "")
		if err != nil {
			if !s.handleConnectError(err) {
				return
			}
			attempt++
			s.sleepBackoff(attempt)
			continue
		}
		attempt = 0
		s.setStream(stream)

		s.readEvents(stream)

		select {
		case <-s.closeCh:
			return
		default:
		}
		attempt++
		s.sleepBackoff(attempt)
	}
}

func (s *StreamingDataSource) handleConnectError(err error) bool {
	if se, ok := err.(es.SubscriptionError); ok {
		err = checkForHTTPError(se.Code, s.streamURI)
	}
	if hse, ok := err.(httpStatusError); ok && !hse.recoverable {
		s.loggers.Errorf("Unable to connect to streaming endpoint (giving up permanently): %s", hse.Error())
		s.markPermanentlyFailed()
		return false
	}
	s.loggers.Warnf("Unable to connect to streaming endpoint (will retry): %s", err)
	return true
}

func (s *StreamingDataSource) readEvents(stream *es.Stream) {
	for {
		select {
		case <-s.closeCh:
			return
		case event, ok := <-stream.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-stream.Errors:
			if !ok {
				return
			}
			if err != nil && err != io.EOF {
				s.loggers.Warnf("Error encountered processing stream: %s", err)
			}
			return
		}
	}
}

func (s *StreamingDataSource) handleEvent(event es.Event) {
	switch event.Event() {
	case eventPut:
		var put putData
		if err := json.Unmarshal([]byte(event.Data()), &put); err != nil {
			s.loggers.Errorf("Unexpected error unmarshalling streaming put event: %s", err)
			return
		}
		if err := s.store.Init(put.Data.Flags, put.Data.Segments); err != nil {
			s.loggers.Errorf("Error initializing data store: %s", err)
			return
		}
		s.markReady()

	case eventPatch:
		var patch patchData
		if err := json.Unmarshal([]byte(event.Data()), &patch); err != nil {
			s.loggers.Errorf("Unexpected error unmarshalling streaming patch event: %s", err)
			return
		}
		s.applyPatch(patch.Path, patch.Data)

	case eventDelete:
		var del deleteData
		if err := json.Unmarshal([]byte(event.Data()), &del); err != nil {
			s.loggers.Errorf("Unexpected error unmarshalling streaming delete event: %s", err)
			return
		}
		s.applyDelete(del.Path, del.Version)

	case eventIndirectPut:
		data, _, err := s.requestor.requestAll()
		if err != nil {
			s.loggers.Warnf("Error fetching data for indirect/put: %s", err)
			return
		}
		if err := s.store.Init(data.Flags, data.Segments); err != nil {
			s.loggers.Errorf("Error initializing data store: %s", err)
			return
		}
		s.markReady()

	case eventIndirectPatch:
		path := strings.TrimSpace(event.Data())
		body, cached, err := s.requestor.requestOne(path)
		if err != nil || cached {
			if err != nil {
				s.loggers.Warnf("Error fetching data for indirect/patch %s: %s", path, err)
			}
			return
		}
		s.applyPatch(path, body)

	default:
		s.loggers.Warnf("Unexpected streaming event type: %s", event.Event())
	}
}

func (s *StreamingDataSource) applyPatch(path string, data json.RawMessage) {
	kind, key, ok := parseDataPath(path)
	if !ok {
		return
	}
	switch kind {
	case datastore.Flags:
		var flag ldmodel.FeatureFlag
		if err := json.Unmarshal(data, &flag); err != nil {
			s.loggers.Errorf("Unexpected error unmarshalling flag patch: %s", err)
			return
		}
		if _, err := s.store.Upsert(datastore.Flags, key, &flag); err != nil {
			s.loggers.Errorf("Error updating data store: %s", err)
		}
	case datastore.Segments:
		var seg ldmodel.Segment
		if err := json.Unmarshal(data, &seg); err != nil {
			s.loggers.Errorf("Unexpected error unmarshalling segment patch: %s", err)
			return
		}
		if _, err := s.store.Upsert(datastore.Segments, key, &seg); err != nil {
			s.loggers.Errorf("Error updating data store: %s", err)
		}
	}
	s.markReady()
}

func (s *StreamingDataSource) applyDelete(path string, version int) {
	kind, key, ok := parseDataPath(path)
	if !ok {
		return
	}
	var item datastore.Item
	if kind == datastore.Flags {
		item = datastore.DeletedFlag(key, version)
	} else {
		item = datastore.DeletedSegment(key, version)
	}
	if _, err := s.store.Upsert(kind, key, item); err != nil {
		s.loggers.Errorf("Error deleting from data store: %s", err)
	}
	s.markReady()
}

// parseDataPath splits a streaming event path like "/flags/my-flag-key" into its kind
// and key.
func parseDataPath(path string) (datastore.DataKind, string, bool) {
	trimmed := strings.TrimPrefix(path, "/")
	switch {
	case strings.HasPrefix(trimmed, "flags/"):
		return datastore.Flags, strings.TrimPrefix(trimmed, "flags/"), true
	case strings.HasPrefix(trimmed, "segments/"):
		return datastore.Segments, strings.TrimPrefix(trimmed, "segments/"), true
	default:
		return 0, "", false
	}
}

func (s *StreamingDataSource) setStream(stream *es.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = stream
}

func (s *StreamingDataSource) markReady() {
	s.mu.Lock()
	s.isInitialized = true
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })
}

func (s *StreamingDataSource) markPermanentlyFailed() {
	s.mu.Lock()
	s.permanentlyFailed = true
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })
}

// Initialized reports whether the store has received at least one successful update.
func (s *StreamingDataSource) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isInitialized
}

// Close stops the subscribe/reconnect loop and releases the current stream connection.
func (s *StreamingDataSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.mu.Lock()
		stream := s.stream
		s.mu.Unlock()
		if stream != nil {
			stream.Close()
		}
	})
	return nil
}

// sleepBackoff waits an exponentially increasing, jittered interval before the next
// reconnect attempt: base 1s, doubling per attempt, capped at 30s, with up to 50%
// jitter subtracted to avoid a reconnect thundering herd.
func (s *StreamingDataSource) sleepBackoff(attempt int) {
	interval := backoffBase << uint(attempt-1) //nolint:gosec
	if interval <= 0 || interval > backoffCap {
		interval = backoffCap
	}
	jitter := time.Duration(rand.Int63n(int64(interval) / 2)) //nolint:gosec
	delay := interval - jitter

	select {
	case <-time.After(delay):
	case <-s.closeCh:
	}
}
