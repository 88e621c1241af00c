package ldclient

import (
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
)

// This file contains smoke tests for a complete SDK instance running against embedded
// HTTP servers, as close to the default configuration as possible (just pointed at a
// local server instead of the real LaunchDarkly services).

const alwaysTrueFlagJSON = `{"key":"always-true-flag","version":1,"on":false,"offVariation":1,"variations":[false,true]}`

func streamingPutEvent() string {
	return fmt.Sprintf("event: put\ndata: {\"data\":{\"flags\":{\"always-true-flag\":%s},\"segments\":{}}}\n\n", alwaysTrueFlagJSON)
}

func newStreamingTestServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(streamingPutEvent()))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
}

func newPollingTestServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fmt.Sprintf(`{"flags":{"always-true-flag":%s},"segments":{}}`, alwaysTrueFlagJSON)))
	}))
}

func TestClientStartsInStreamingMode(t *testing.T) {
	server := newStreamingTestServer()
	defer server.Close()

	config := DefaultConfig
	config.StreamUri = server.URL
	config.SendEvents = false
	config.DiagnosticOptOut = true

	client, err := MakeCustomClient(testSdkKey, config, 5*time.Second)
	require.NoError(t, err)
	defer client.Close()

	value, _ := client.BoolVariation("always-true-flag", evalTestUser, false)
	assert.True(t, value)
}

func TestClientFailsToStartInStreamingModeWith401Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	config := DefaultConfig
	config.StreamUri = server.URL
	config.SendEvents = false
	config.DiagnosticOptOut = true

	client, err := MakeCustomClient(testSdkKey, config, 5*time.Second)
	require.Error(t, err)
	require.NotNil(t, client)
	defer client.Close()

	assert.Equal(t, ErrInitializationFailed, err)

	value, _ := client.BoolVariation("always-true-flag", evalTestUser, false)
	assert.False(t, value)
}

func TestClientRetriesConnectionInStreamingModeWithNonFatalError(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requestCount, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(streamingPutEvent()))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	config := DefaultConfig
	config.StreamUri = server.URL
	config.SendEvents = false
	config.DiagnosticOptOut = true

	client, err := MakeCustomClient(testSdkKey, config, 5*time.Second)
	require.NoError(t, err)
	defer client.Close()

	value, _ := client.BoolVariation("always-true-flag", evalTestUser, false)
	assert.True(t, value)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&requestCount), int32(2))
}

func TestClientStartsInPollingMode(t *testing.T) {
	server := newPollingTestServer()
	defer server.Close()

	config := DefaultConfig
	config.BaseUri = server.URL
	config.Stream = false
	config.SendEvents = false
	config.DiagnosticOptOut = true

	client, err := MakeCustomClient(testSdkKey, config, 5*time.Second)
	require.NoError(t, err)
	defer client.Close()

	value, _ := client.BoolVariation("always-true-flag", evalTestUser, false)
	assert.True(t, value)
}

func TestClientFailsToStartInPollingModeWith401Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	config := DefaultConfig
	config.BaseUri = server.URL
	config.Stream = false
	config.SendEvents = false
	config.DiagnosticOptOut = true

	client, err := MakeCustomClient(testSdkKey, config, 5*time.Second)
	require.Error(t, err)
	require.NotNil(t, client)
	defer client.Close()

	assert.Equal(t, ErrInitializationFailed, err)

	value, _ := client.BoolVariation("always-true-flag", evalTestUser, false)
	assert.False(t, value)
}

func TestClientSendsEvent(t *testing.T) {
	var received []byte
	eventsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bulk" {
			w.WriteHeader(http.StatusOK)
			return
		}
		body, _ := io.ReadAll(r.Body)
		received = body
		w.WriteHeader(http.StatusOK)
	}))
	defer eventsServer.Close()
	streamServer := newStreamingTestServer()
	defer streamServer.Close()

	config := DefaultConfig
	config.StreamUri = streamServer.URL
	config.EventsUri = eventsServer.URL
	config.DiagnosticOptOut = true

	client, err := MakeCustomClient(testSdkKey, config, 5*time.Second)
	require.NoError(t, err)
	defer client.Close()

	_ = client.Identify(evalTestUser)
	client.Flush()
	time.Sleep(200 * time.Millisecond)

	require.NotEmpty(t, received)
	var events []ldvalue.Value
	require.NoError(t, json.Unmarshal(received, &events))
	require.NotEmpty(t, events)
	assert.Equal(t, "identify", events[0].GetByKey("kind").StringValue())
}

func TestClientUsesCustomTLSConfiguration(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(streamingPutEvent()))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})

	config := DefaultConfig
	config.StreamUri = server.URL
	config.CACert = certPEM
	config.SendEvents = false
	config.DiagnosticOptOut = true

	client, err := MakeCustomClient(testSdkKey, config, 5*time.Second)
	require.NoError(t, err)
	defer client.Close()

	value, _ := client.BoolVariation("always-true-flag", evalTestUser, false)
	assert.True(t, value)
}

func TestClientStartupTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(streamingPutEvent()))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	config := DefaultConfig
	config.StreamUri = server.URL
	config.SendEvents = false
	config.DiagnosticOptOut = true

	client, err := MakeCustomClient(testSdkKey, config, 100*time.Millisecond)
	require.Error(t, err)
	require.NotNil(t, client)
	defer client.Close()

	assert.Equal(t, ErrInitializationTimeout, err)

	value, _ := client.BoolVariation("always-true-flag", evalTestUser, false)
	assert.False(t, value)
}

const testSdkKey = "test-sdk-key"
