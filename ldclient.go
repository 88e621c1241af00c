package ldclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/launchdarkly/go-server-sdk-sub008/internal/datasource"
	"github.com/launchdarkly/go-server-sdk-sub008/internal/datastore"
	"github.com/launchdarkly/go-server-sdk-sub008/ldeval"
	"github.com/launchdarkly/go-server-sdk-sub008/ldevents"
	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
	"github.com/launchdarkly/go-server-sdk-sub008/ldreason"
	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
	"github.com/launchdarkly/go-server-sdk-sub008/lduser"
)

// Version is the client version.
const Version = "5.0.0"

// LDClient is the LaunchDarkly client. Client instances are thread-safe.
// Applications should instantiate a single instance for the lifetime
// of their application.
type LDClient struct {
	sdkKey            string
	config            Config
	eventProcessor    ldevents.EventProcessor
	eventFactory      ldevents.EventFactory
	eventFactoryWithReasons ldevents.EventFactory
	dataSource        datasource.DataSource
	store             datastore.Store
	evaluator         ldeval.Evaluator
}

// Logger is a generic logger interface.
type Logger interface {
	Println(...interface{})
	Printf(string, ...interface{})
}

type nullDataSource struct{}

func (n nullDataSource) Initialized() bool {
	return true
}

func (n nullDataSource) Close() error {
	return nil
}

func (n nullDataSource) Start() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// clientEvaluatorDataProvider implements ldeval.DataProvider on top of the client's
// datastore.Store.
type clientEvaluatorDataProvider struct {
	store datastore.Store
}

func (c *clientEvaluatorDataProvider) GetFeatureFlag(key string) (*ldmodel.FeatureFlag, bool) {
	item, ok := c.store.Get(datastore.Flags, key)
	if !ok {
		return nil, false
	}
	if flag, ok := item.(*ldmodel.FeatureFlag); ok {
		return flag, true
	}
	return nil, false
}

func (c *clientEvaluatorDataProvider) GetSegment(key string) (*ldmodel.Segment, bool) {
	item, ok := c.store.Get(datastore.Segments, key)
	if !ok {
		return nil, false
	}
	if segment, ok := item.(*ldmodel.Segment); ok {
		return segment, true
	}
	return nil, false
}

// clientEvaluatorEventSink collects the prerequisite feature-request events produced
// while evaluating a flag, so the caller can hand them to the event processor once
// evaluation completes.
type clientEvaluatorEventSink struct {
	user         lduser.User
	eventFactory ldevents.EventFactory
	events       []ldevents.FeatureRequestEvent
}

func (c *clientEvaluatorEventSink) recordPrerequisiteEvent(params ldeval.PrerequisiteFlagEvent) {
	event := c.eventFactory.NewSuccessfulEvalEvent(
		&params.PrerequisiteFlag,
		c.user,
		params.PrerequisiteResult.VariationIndex,
		params.PrerequisiteResult.Value,
		ldvalue.Null(),
		params.PrerequisiteResult.Reason,
		params.TargetFlagKey,
	)
	c.events = append(c.events, event)
}

// Initialization errors
var (
	ErrInitializationTimeout = errors.New("timeout encountered waiting for LaunchDarkly client initialization")
	ErrInitializationFailed  = errors.New("LaunchDarkly client initialization failed")
	ErrClientNotInitialized  = errors.New("feature flag evaluation called before LaunchDarkly client initialization completed")
)

// MakeClient creates a new client instance that connects to LaunchDarkly with the default configuration. In most
// cases, you should use this method to instantiate your client. The optional duration parameter allows callers to
// block until the client has connected to LaunchDarkly and is properly initialized.
func MakeClient(sdkKey string, waitFor time.Duration) (*LDClient, error) {
	return MakeCustomClient(sdkKey, DefaultConfig, waitFor)
}

// MakeCustomClient creates a new client instance that connects to LaunchDarkly with a custom configuration. The optional duration parameter allows callers to
// block until the client has connected to LaunchDarkly and is properly initialized.
func MakeCustomClient(sdkKey string, config Config, waitFor time.Duration) (*LDClient, error) {
	config.BaseUri = strings.TrimRight(config.BaseUri, "/")
	config.StreamUri = strings.TrimRight(config.StreamUri, "/")
	config.EventsUri = strings.TrimRight(config.EventsUri, "/")
	if config.PollInterval < MinimumPollInterval {
		config.PollInterval = MinimumPollInterval
	}
	config.UserAgent = strings.TrimSpace("GoClient/" + Version + " " + config.UserAgent)

	config.Loggers.Infof("Starting LaunchDarkly client %s", Version)

	if config.DataStore == nil {
		factory := config.DataStoreFactory
		if factory == nil {
			factory = NewInMemoryDataStoreFactory()
		}
		store, err := factory(config)
		if err != nil {
			return nil, err
		}
		config.DataStore = store
	}

	evaluator := ldeval.NewEvaluator(&clientEvaluatorDataProvider{config.DataStore})

	defaultHTTPClient := config.newHTTPClient()

	client := LDClient{
		sdkKey:                  sdkKey,
		config:                  config,
		store:                   config.DataStore,
		evaluator:               evaluator,
		eventFactory:            ldevents.NewEventFactory(false, nil),
		eventFactoryWithReasons: ldevents.NewEventFactory(true, nil),
	}

	if !config.DiagnosticOptOut && config.SendEvents && !config.Offline {
		config.diagnosticsManager = createDiagnosticsManager(sdkKey, config, waitFor)
	}

	if config.EventProcessor != nil {
		client.eventProcessor = config.EventProcessor
	} else if config.SendEvents && !config.Offline {
		client.eventProcessor = createDefaultEventProcessor(sdkKey, config, defaultHTTPClient, config.diagnosticsManager)
	} else {
		client.eventProcessor = ldevents.NewNullEventProcessor()
	}

	factory := config.DataSourceFactory
	if factory == nil {
		factory = createDefaultDataSource(defaultHTTPClient)
	}
	var err error
	client.dataSource, err = factory(sdkKey, config)
	if err != nil {
		return nil, err
	}
	closeWhenReady := client.dataSource.Start()
	if waitFor > 0 && !config.Offline && !config.UseLdd {
		config.Loggers.Infof("Waiting up to %d milliseconds for LaunchDarkly client to start...",
			waitFor/time.Millisecond)
	}
	timeout := time.After(waitFor)
	for {
		select {
		case <-closeWhenReady:
			if !client.dataSource.Initialized() {
				config.Loggers.Warn("LaunchDarkly client initialization failed")
				return &client, ErrInitializationFailed
			}

			config.Loggers.Info("Successfully initialized LaunchDarkly client!")
			return &client, nil
		case <-timeout:
			if waitFor > 0 {
				config.Loggers.Warn("Timeout encountered waiting for LaunchDarkly client initialization")
				return &client, ErrInitializationTimeout
			}

			go func() { <-closeWhenReady }() // Don't block the DataSource when not waiting
			return &client, nil
		}
	}
}

func createDefaultDataSource(httpClient *http.Client) func(string, Config) (datasource.DataSource, error) {
	return func(sdkKey string, config Config) (datasource.DataSource, error) {
		if config.Offline {
			config.Loggers.Info("Started LaunchDarkly client in offline mode")
			return nullDataSource{}, nil
		}
		if config.UseLdd {
			config.Loggers.Info("Started LaunchDarkly client in LDD mode")
			return nullDataSource{}, nil
		}
		headers := make(http.Header)
		addBaseHeaders(headers, sdkKey, config)
		requestor := datasource.NewRequestor(config.BaseUri, headers, httpClient.Transport)
		if config.Stream {
			return datasource.NewStreamingDataSource(
				config.DataStore, requestor, config.StreamUri, headers, httpClient, config.Loggers), nil
		}
		config.Loggers.Warn("You should only disable the streaming API if instructed to do so by LaunchDarkly support")
		return datasource.NewPollingDataSource(config.DataStore, requestor, config.PollInterval, config.Loggers), nil
	}
}

func createDefaultEventProcessor(
	sdkKey string,
	config Config,
	client *http.Client,
	diagnosticsManager *ldevents.DiagnosticsManager,
) ldevents.EventProcessor {
	headers := make(http.Header)
	addBaseHeaders(headers, sdkKey, config)
	eventSender := ldevents.NewServerSideEventSender(client, sdkKey, config.EventsUri, headers, config.Loggers)
	eventsConfig := ldevents.EventsConfiguration{
		AllAttributesPrivate:        config.AllAttributesPrivate,
		Capacity:                    config.Capacity,
		DiagnosticRecordingInterval: config.DiagnosticRecordingInterval,
		DiagnosticsManager:          diagnosticsManager,
		EventSender:                 eventSender,
		FlushInterval:               config.FlushInterval,
		InlineUsersInEvents:         config.InlineUsersInEvents,
		Loggers:                     config.Loggers,
		PrivateAttributeNames:       config.PrivateAttributeNames,
		UserKeysCapacity:            config.UserKeysCapacity,
		UserKeysFlushInterval:       config.UserKeysFlushInterval,
	}
	return ldevents.NewDefaultEventProcessor(eventsConfig)
}

func createDiagnosticsManager(sdkKey string, config Config, waitFor time.Duration) *ldevents.DiagnosticsManager {
	id := ldevents.NewDiagnosticID(sdkKey)
	sdkData := ldvalue.BuildObject().
		Set("name", ldvalue.String("go-server-sdk")).
		Set("version", ldvalue.String(Version)).
		Build()
	configData := ldvalue.BuildObject().
		Set("customBaseURI", ldvalue.Bool(config.BaseUri != DefaultBaseUri)).
		Set("customStreamURI", ldvalue.Bool(config.StreamUri != DefaultStreamUri)).
		Set("customEventsURI", ldvalue.Bool(config.EventsUri != DefaultEventsUri)).
		Set("eventsCapacity", ldvalue.Int(config.Capacity)).
		Set("connectTimeoutMillis", ldvalue.Int(int(config.ConnectTimeout/time.Millisecond))).
		Set("pollingIntervalMillis", ldvalue.Int(int(config.PollInterval/time.Millisecond))).
		Set("reconnectTimeMillis", ldvalue.Int(0)).
		Set("streamingDisabled", ldvalue.Bool(!config.Stream)).
		Set("usingRelayDaemon", ldvalue.Bool(config.UseLdd)).
		Set("offline", ldvalue.Bool(config.Offline)).
		Set("allAttributesPrivate", ldvalue.Bool(config.AllAttributesPrivate)).
		Set("inlineUsersInEvents", ldvalue.Bool(config.InlineUsersInEvents)).
		Set("diagnosticRecordingIntervalMillis", ldvalue.Int(int(config.DiagnosticRecordingInterval/time.Millisecond))).
		Set("dataStoreType", ldvalue.String("memory")).
		Set("samplingInterval", ldvalue.Int(0)).
		Set("startWaitMillis", ldvalue.Int(int(waitFor/time.Millisecond))).
		Build()
	return ldevents.NewDiagnosticsManager(id, configData, sdkData, time.Now(), nil)
}

// Identify reports details about a a user.
func (client *LDClient) Identify(user lduser.User) error {
	if user.Key() == "" {
		client.config.Loggers.Warn("Identify called with empty user key!")
		return nil // Don't return an error value because we didn't in the past and it might confuse users
	}
	evt := client.eventFactory.NewIdentifyEvent(user)
	client.eventProcessor.SendEvent(evt)
	return nil
}

// TrackEvent reports that a user has performed an event.
//
// The eventName parameter is defined by the application and will be shown in analytics reports;
// it normally corresponds to the event name of a metric that you have created through the
// LaunchDarkly dashboard. If you want to associate additional data with this event, use TrackData
// or TrackMetric.
func (client *LDClient) TrackEvent(eventName string, user lduser.User) error {
	return client.TrackData(eventName, user, ldvalue.Null())
}

// TrackData reports that a user has performed an event, and associates it with custom data.
//
// The eventName parameter is defined by the application and will be shown in analytics reports;
// it normally corresponds to the event name of a metric that you have created through the
// LaunchDarkly dashboard.
//
// The data parameter is a value of any JSON type, represented with the ldvalue.Value type, that
// will be sent with the event. If no such value is needed, use ldvalue.Null() (or call TrackEvent
// instead). To send a numeric value for experimentation, use TrackMetric.
func (client *LDClient) TrackData(eventName string, user lduser.User, data ldvalue.Value) error {
	if user.Key() == "" {
		client.config.Loggers.Warn("Track called with empty/nil user key!")
		return nil // Don't return an error value because we didn't in the past and it might confuse users
	}
	client.eventProcessor.SendEvent(client.eventFactory.NewCustomEvent(eventName, user, data, false, 0))
	return nil
}

// TrackMetric reports that a user has performed an event, and associates it with a numeric value.
// This value is used by the LaunchDarkly experimentation feature in numeric custom metrics, and will also
// be returned as part of the custom event for Data Export.
//
// The eventName parameter is defined by the application and will be shown in analytics reports;
// it normally corresponds to the event name of a metric that you have created through the
// LaunchDarkly dashboard.
//
// The data parameter is a value of any JSON type, represented with the ldvalue.Value type, that
// will be sent with the event. If no such value is needed, use ldvalue.Null().
func (client *LDClient) TrackMetric(eventName string, user lduser.User, metricValue float64, data ldvalue.Value) error {
	if user.Key() == "" {
		client.config.Loggers.Warn("Track called with empty/nil user key!")
		return nil // Don't return an error value because we didn't in the past and it might confuse users
	}
	client.eventProcessor.SendEvent(client.eventFactory.NewCustomEvent(eventName, user, data, true, metricValue))
	return nil
}

// IsOffline returns whether the LaunchDarkly client is in offline mode.
func (client *LDClient) IsOffline() bool {
	return client.config.Offline
}

// SecureModeHash generates the secure mode hash value for a user
// See https://github.com/launchdarkly/js-client#secure-mode
func (client *LDClient) SecureModeHash(user lduser.User) string {
	key := []byte(client.sdkKey)
	h := hmac.New(sha256.New, key)
	_, _ = h.Write([]byte(user.Key()))
	return hex.EncodeToString(h.Sum(nil))
}

// Initialized returns whether the LaunchDarkly client is initialized.
func (client *LDClient) Initialized() bool {
	return client.IsOffline() || client.config.UseLdd || client.dataSource.Initialized()
}

// Close shuts down the LaunchDarkly client. After calling this, the LaunchDarkly client
// should no longer be used. The method will block until all pending analytics events (if any)
// been sent.
func (client *LDClient) Close() error {
	client.config.Loggers.Info("Closing LaunchDarkly client")
	if client.IsOffline() {
		return nil
	}
	_ = client.eventProcessor.Close()
	_ = client.dataSource.Close()
	if c, ok := client.store.(io.Closer); ok { // not all Stores implement Closer
		_ = c.Close()
	}
	return nil
}

// Flush tells the client that all pending analytics events (if any) should be delivered as soon
// as possible. Flushing is asynchronous, so this method will return before it is complete.
// However, if you call Close(), events are guaranteed to be sent before that method returns.
func (client *LDClient) Flush() {
	client.eventProcessor.Flush()
}

// AllFlagsState returns an object that encapsulates the state of all feature flags for a
// given user, including the flag values and also metadata that can be used on the front end.
// You may pass any combination of ClientSideOnly, WithReasons, and DetailsOnlyForTrackedFlags
// as optional parameters to control what data is included.
//
// The most common use case for this method is to bootstrap a set of client-side feature flags
// from a back-end service.
func (client *LDClient) AllFlagsState(user lduser.User, options ...FlagsStateOption) FeatureFlagsState {
	valid := true
	if client.IsOffline() {
		client.config.Loggers.Warn("Called AllFlagsState in offline mode. Returning empty state")
		valid = false
	} else if !client.Initialized() {
		if client.store.Initialized() {
			client.config.Loggers.Warn("Called AllFlagsState before client initialization; using last known values from data store")
		} else {
			client.config.Loggers.Warn("Called AllFlagsState before client initialization. Data store not available; returning empty state")
			valid = false
		}
	}

	if !valid {
		return FeatureFlagsState{}
	}

	items := client.store.All(datastore.Flags)

	state := newFeatureFlagsState()
	clientSideOnly := hasFlagsStateOption(options, ClientSideOnly)
	withReasons := hasFlagsStateOption(options, WithReasons)
	detailsOnlyIfTracked := hasFlagsStateOption(options, DetailsOnlyForTrackedFlags)
	for _, item := range items {
		flag, ok := item.(*ldmodel.FeatureFlag)
		if !ok {
			continue
		}
		if clientSideOnly && !flag.ClientSide {
			continue
		}
		result := client.evaluator.Evaluate(flag, user, nil)
		var reason ldreason.EvaluationReason
		if withReasons {
			reason = result.Reason
		}
		state.addFlag(*flag, result.Value, result.VariationIndex, reason, detailsOnlyIfTracked)
	}

	return state
}

// BoolVariation returns the value of a boolean feature flag for a given user.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or the feature is turned off and
// has no off variation.
func (client *LDClient) BoolVariation(key string, user lduser.User, defaultVal bool) (bool, error) {
	detail, err := client.variation(key, user, ldvalue.Bool(defaultVal), true, false)
	return detail.Value.BoolValue(), err
}

// BoolVariationDetail is the same as BoolVariation, but also returns further information about how
// the value was calculated. The "reason" data will also be included in analytics events.
func (client *LDClient) BoolVariationDetail(key string, user lduser.User, defaultVal bool) (bool, ldreason.EvaluationDetail, error) {
	detail, err := client.variation(key, user, ldvalue.Bool(defaultVal), true, true)
	return detail.Value.BoolValue(), detail, err
}

// IntVariation returns the value of a feature flag (whose variations are integers) for the given user.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or the feature is turned off and
// has no off variation.
//
// If the flag variation has a numeric value that is not an integer, it is rounded toward zero (truncated).
func (client *LDClient) IntVariation(key string, user lduser.User, defaultVal int) (int, error) {
	detail, err := client.variation(key, user, ldvalue.Int(defaultVal), true, false)
	return detail.Value.IntValue(), err
}

// IntVariationDetail is the same as IntVariation, but also returns further information about how
// the value was calculated. The "reason" data will also be included in analytics events.
func (client *LDClient) IntVariationDetail(key string, user lduser.User, defaultVal int) (int, ldreason.EvaluationDetail, error) {
	detail, err := client.variation(key, user, ldvalue.Int(defaultVal), true, true)
	return detail.Value.IntValue(), detail, err
}

// Float64Variation returns the value of a feature flag (whose variations are floats) for the given user.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or the feature is turned off and
// has no off variation.
func (client *LDClient) Float64Variation(key string, user lduser.User, defaultVal float64) (float64, error) {
	detail, err := client.variation(key, user, ldvalue.Float64(defaultVal), true, false)
	return detail.Value.Float64Value(), err
}

// Float64VariationDetail is the same as Float64Variation, but also returns further information about how
// the value was calculated. The "reason" data will also be included in analytics events.
func (client *LDClient) Float64VariationDetail(key string, user lduser.User, defaultVal float64) (float64, ldreason.EvaluationDetail, error) {
	detail, err := client.variation(key, user, ldvalue.Float64(defaultVal), true, true)
	return detail.Value.Float64Value(), detail, err
}

// StringVariation returns the value of a feature flag (whose variations are strings) for the given user.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or the feature is turned off and has
// no off variation.
func (client *LDClient) StringVariation(key string, user lduser.User, defaultVal string) (string, error) {
	detail, err := client.variation(key, user, ldvalue.String(defaultVal), true, false)
	return detail.Value.StringValue(), err
}

// StringVariationDetail is the same as StringVariation, but also returns further information about how
// the value was calculated. The "reason" data will also be included in analytics events.
func (client *LDClient) StringVariationDetail(key string, user lduser.User, defaultVal string) (string, ldreason.EvaluationDetail, error) {
	detail, err := client.variation(key, user, ldvalue.String(defaultVal), true, true)
	return detail.Value.StringValue(), detail, err
}

// JSONVariation returns the value of a feature flag for the given user, allowing the value to be
// of any JSON type.
//
// The value is returned as an ldvalue.Value, which can be inspected or converted to other types using
// Value methods such as Type() and BoolValue(). The defaultVal parameter also uses this type. For
// instance, if the values for this flag are JSON arrays:
//
//	defaultValAsArray := ldvalue.BuildArray().
//	    Add(ldvalue.String("defaultFirstItem")).
//	    Add(ldvalue.String("defaultSecondItem")).
//	    Build()
//	result, err := client.JSONVariation(flagKey, user, defaultValAsArray)
//	firstItemAsString := result.Index(0).StringValue() // "defaultFirstItem", etc.
//
// Returns defaultVal if there is an error, if the flag doesn't exist, or the feature is turned off.
func (client *LDClient) JSONVariation(key string, user lduser.User, defaultVal ldvalue.Value) (ldvalue.Value, error) {
	detail, err := client.variation(key, user, defaultVal, false, false)
	return detail.Value, err
}

// JSONVariationDetail is the same as JSONVariation, but also returns further information about how
// the value was calculated. The "reason" data will also be included in analytics events.
func (client *LDClient) JSONVariationDetail(key string, user lduser.User, defaultVal ldvalue.Value) (ldvalue.Value, ldreason.EvaluationDetail, error) {
	detail, err := client.variation(key, user, defaultVal, false, true)
	return detail.Value, detail, err
}

// Generic method for evaluating a feature flag for a given user.
func (client *LDClient) variation(
	key string,
	user lduser.User,
	defaultVal ldvalue.Value,
	checkType bool,
	sendReasonsInEvents bool,
) (ldreason.EvaluationDetail, error) {
	if client.IsOffline() {
		return newEvaluationError(defaultVal, ldreason.EvalErrorClientNotReady), nil
	}
	result, flag, err := client.evaluateInternal(key, user, defaultVal, sendReasonsInEvents)
	if err != nil {
		result.Value = defaultVal
		result.VariationIndex = ldreason.NoVariation
	} else {
		if checkType && defaultVal.Type() != ldvalue.NullType && result.Value.Type() != defaultVal.Type() {
			result = newEvaluationError(defaultVal, ldreason.EvalErrorWrongType)
		}
	}

	eventFactory := client.eventFactory
	if sendReasonsInEvents {
		eventFactory = client.eventFactoryWithReasons
	}

	var evt ldevents.FeatureRequestEvent
	if flag == nil {
		evt = eventFactory.NewUnknownFlagEvaluationEvent(key, user, defaultVal, result.Reason)
	} else {
		evt = eventFactory.NewSuccessfulEvalEvent(flag, user, result.VariationIndex, result.Value, defaultVal,
			result.Reason, "")
	}
	client.eventProcessor.SendEvent(evt)

	return result, err
}

// Performs all the steps of evaluation except for sending the feature request event (the main one;
// events for prerequisites will be sent).
func (client *LDClient) evaluateInternal(
	key string,
	user lduser.User,
	defaultVal ldvalue.Value,
	sendReasonsInEvents bool,
) (ldreason.EvaluationDetail, *ldmodel.FeatureFlag, error) {
	if user.Key() == "" {
		client.config.Loggers.Warnf("User.Key is blank when evaluating flag: %s. Flag evaluation will proceed, but the user will not be stored in LaunchDarkly.", key)
	}

	evalErrorResult := func(errKind ldreason.EvalErrorKind, flag *ldmodel.FeatureFlag, err error) (ldreason.EvaluationDetail, *ldmodel.FeatureFlag, error) {
		detail := newEvaluationError(defaultVal, errKind)
		if client.config.LogEvaluationErrors {
			client.config.Loggers.Warn(err)
		}
		return detail, flag, err
	}

	if !client.Initialized() {
		if client.store.Initialized() {
			client.config.Loggers.Warn("Feature flag evaluation called before LaunchDarkly client initialization completed; using last known values from data store")
		} else {
			return evalErrorResult(ldreason.EvalErrorClientNotReady, nil, ErrClientNotInitialized)
		}
	}

	item, ok := client.store.Get(datastore.Flags, key)
	if !ok {
		return evalErrorResult(ldreason.EvalErrorFlagNotFound, nil,
			fmt.Errorf("unknown feature key: %s. Verify that this feature key exists. Returning default value", key))
	}

	feature, ok := item.(*ldmodel.FeatureFlag)
	if !ok {
		return evalErrorResult(ldreason.EvalErrorException, nil,
			fmt.Errorf("unexpected data type (%T) found in store for feature key: %s. Returning default value", item, key))
	}

	eventFactory := client.eventFactory
	if sendReasonsInEvents {
		eventFactory = client.eventFactoryWithReasons
	}
	eventSink := clientEvaluatorEventSink{user: user, eventFactory: eventFactory}
	detail := client.evaluator.Evaluate(feature, user, eventSink.recordPrerequisiteEvent)
	if detail.Reason.Kind() == ldreason.EvalReasonError && client.config.LogEvaluationErrors {
		client.config.Loggers.Warnf("flag evaluation for %s failed with error %s, default value was returned",
			key, detail.Reason.ErrorKind())
	}
	if detail.IsDefaultValue() {
		detail.Value = defaultVal
		detail.VariationIndex = ldreason.NoVariation
	}
	for _, event := range eventSink.events {
		client.eventProcessor.SendEvent(event)
	}
	return detail, feature, nil
}

func newEvaluationError(jsonValue ldvalue.Value, errorKind ldreason.EvalErrorKind) ldreason.EvaluationDetail {
	return ldreason.EvaluationDetail{
		Value:          jsonValue,
		VariationIndex: ldreason.NoVariation,
		Reason:         ldreason.NewEvalReasonError(errorKind),
	}
}
