package ldclient

import (
	"net/http"
	"net/url"
	"time"

	"github.com/launchdarkly/go-server-sdk-sub008/internal/datasource"
	"github.com/launchdarkly/go-server-sdk-sub008/internal/datastore"
	"github.com/launchdarkly/go-server-sdk-sub008/ldevents"
	"github.com/launchdarkly/go-server-sdk-sub008/ldhttp"
	"github.com/launchdarkly/go-server-sdk-sub008/ldlog"
)

// Defaults for the fields of Config that are not zero-valid.
const (
	DefaultBaseUri      = "https://app.launchdarkly.com"
	DefaultStreamUri    = "https://stream.launchdarkly.com"
	DefaultEventsUri    = "https://events.launchdarkly.com"
	DefaultCapacity     = 10000
	DefaultFlushInterval = 5 * time.Second
	DefaultPollInterval = 30 * time.Second
	// MinimumPollInterval is the lowest PollInterval that will be honored; anything
	// lower is floored to this value, matching the guidance that polling faster than
	// this risks being rate-limited.
	MinimumPollInterval          = 30 * time.Second
	DefaultUserKeysCapacity      = 1000
	DefaultUserKeysFlushInterval = 5 * time.Minute
	DefaultDiagnosticRecordingInterval = 15 * time.Minute
)

// DataStoreFactory constructs a Store, given the finalized Config.
type DataStoreFactory func(Config) (datastore.Store, error)

// DataSourceFactory constructs a DataSource, given the SDK key and finalized Config.
type DataSourceFactory func(sdkKey string, config Config) (datasource.DataSource, error)

// Config exposes the LaunchDarkly client's configuration options. The zero value is a
// usable configuration: every field has a documented default applied by
// MakeCustomClient.
type Config struct {
	// BaseUri is the base URI of the polling/flag-metadata service. Defaults to
	// DefaultBaseUri.
	BaseUri string
	// StreamUri is the base URI of the streaming service. Defaults to DefaultStreamUri.
	StreamUri string
	// EventsUri is the base URI of the analytics events service. Defaults to
	// DefaultEventsUri.
	EventsUri string

	// Stream selects the streaming data source when true (the default) and the
	// polling data source when false.
	Stream bool
	// PollInterval is the polling interval when Stream is false. Floored to
	// MinimumPollInterval.
	PollInterval time.Duration

	// Offline, when true, disables all network activity: no data source, no events.
	// All flag evaluations return their default value.
	Offline bool
	// UseLdd puts the client in "Relay Proxy daemon mode": the data store is assumed
	// to be kept up to date by an external process, and no data source is started.
	UseLdd bool

	// SendEvents enables analytics event delivery. Defaults to true.
	SendEvents bool
	// AllAttributesPrivate marks every user attribute private in outgoing events.
	AllAttributesPrivate bool
	// PrivateAttributeNames lists additional user attributes to redact from events.
	PrivateAttributeNames []string
	// InlineUsersInEvents includes the full user in every feature/custom event
	// instead of relying on index events.
	InlineUsersInEvents bool
	// Capacity is the maximum number of analytics events buffered between flushes.
	Capacity int
	// FlushInterval is how often buffered events are flushed automatically.
	FlushInterval time.Duration
	// UserKeysCapacity is the size of the LRU of user keys that have already
	// generated an index event.
	UserKeysCapacity int
	// UserKeysFlushInterval is how often the user-key LRU is cleared.
	UserKeysFlushInterval time.Duration
	// LogUserKeyInErrors includes the user key in warnings logged about malformed
	// events.
	LogUserKeyInErrors bool

	// DiagnosticOptOut disables the periodic diagnostic event stream.
	DiagnosticOptOut bool
	// DiagnosticRecordingInterval is how often a periodic diagnostic event is sent.
	DiagnosticRecordingInterval time.Duration

	// LogEvaluationErrors logs a warning for every evaluation that falls back to the
	// default value due to an error.
	LogEvaluationErrors bool

	// Loggers is the SDK's logging sink. The zero value logs at Info level and above
	// to a default stderr logger.
	Loggers ldlog.Loggers
	// UserAgent is appended to the SDK's own User-Agent header value.
	UserAgent string

	// ConnectTimeout is the maximum time to wait for the underlying TCP connection
	// to the LaunchDarkly services. Defaults to ldhttp.DefaultConnectTimeout.
	ConnectTimeout time.Duration
	// ProxyURL, if set, overrides the HTTP_PROXY/HTTPS_PROXY environment variables
	// for all SDK network traffic.
	ProxyURL *url.URL
	// CACert is additional trusted root CA certificate data, PEM-encoded, for
	// verifying a private or self-signed LaunchDarkly-compatible service endpoint.
	CACert []byte

	// DataStore overrides the data store implementation. If nil, an in-memory store
	// is used.
	DataStore datastore.Store
	// DataStoreFactory, if set and DataStore is nil, constructs the data store.
	DataStoreFactory DataStoreFactory
	// DataSourceFactory overrides how the data source is constructed. If nil, the
	// default streaming or polling data source is used, selected by Stream.
	DataSourceFactory DataSourceFactory
	// EventProcessor overrides the analytics event processor. If nil, the default is
	// used unless SendEvents is false or Offline is true.
	EventProcessor ldevents.EventProcessor

	diagnosticsManager *ldevents.DiagnosticsManager
}

// DefaultConfig is the configuration used by MakeClient.
var DefaultConfig = Config{
	BaseUri:                     DefaultBaseUri,
	StreamUri:                   DefaultStreamUri,
	EventsUri:                   DefaultEventsUri,
	Stream:                      true,
	PollInterval:                DefaultPollInterval,
	SendEvents:                  true,
	Capacity:                    DefaultCapacity,
	FlushInterval:               DefaultFlushInterval,
	UserKeysCapacity:            DefaultUserKeysCapacity,
	UserKeysFlushInterval:       DefaultUserKeysFlushInterval,
	DiagnosticRecordingInterval: DefaultDiagnosticRecordingInterval,
	LogEvaluationErrors:         false,
}

// NewInMemoryDataStoreFactory returns the default DataStoreFactory, an unbounded
// in-memory Store.
func NewInMemoryDataStoreFactory() DataStoreFactory {
	return func(Config) (datastore.Store, error) {
		return datastore.NewInMemoryStore(), nil
	}
}

// newHTTPClient builds the *http.Client shared by the data source and the event
// processor, applying ConnectTimeout/ProxyURL/CACert through ldhttp.
func (c Config) newHTTPClient() *http.Client {
	var opts []ldhttp.TransportOption
	if c.ConnectTimeout > 0 {
		opts = append(opts, ldhttp.ConnectTimeoutOption(c.ConnectTimeout))
	}
	if c.ProxyURL != nil {
		opts = append(opts, ldhttp.ProxyOption(*c.ProxyURL))
	}
	if len(c.CACert) > 0 {
		opts = append(opts, ldhttp.CACertOption(c.CACert))
	}
	transport, timeout, err := ldhttp.NewHTTPTransport(opts...)
	if err != nil {
		c.Loggers.Warnf("Invalid HTTP transport options, using defaults: %s", err)
		transport, timeout, _ = ldhttp.NewHTTPTransport()
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout + 10*time.Second,
	}
}

func addBaseHeaders(h http.Header, sdkKey string, config Config) {
	h.Set("Authorization", sdkKey)
	h.Set("User-Agent", "GoClient/"+Version+" "+config.UserAgent)
}
