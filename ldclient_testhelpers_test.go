package ldclient

import (
	"sync"

	"github.com/launchdarkly/go-server-sdk-sub008/internal/datastore"
	"github.com/launchdarkly/go-server-sdk-sub008/ldevents"
	"github.com/launchdarkly/go-server-sdk-sub008/ldmodel"
	"github.com/launchdarkly/go-server-sdk-sub008/ldvalue"
	"github.com/launchdarkly/go-server-sdk-sub008/lduser"
)

// evalTestUser is the user shared by most of this package's tests.
var evalTestUser = lduser.NewUser("userkey")

// capturingEventProcessor is a test double that records every event it is given
// instead of delivering it anywhere, so tests can assert on what the client sent.
type capturingEventProcessor struct {
	mu     sync.Mutex
	events []ldevents.Event
	closed bool
}

func (c *capturingEventProcessor) SendEvent(e ldevents.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *capturingEventProcessor) Flush() {}

func (c *capturingEventProcessor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *capturingEventProcessor) getEvents() []ldevents.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ldevents.Event, len(c.events))
	copy(out, c.events)
	return out
}

// boolFlag builds a minimal boolean flag: off variation 0 (false), fallthrough
// variation 1 (true).
func boolFlag(key string, on bool) ldmodel.FeatureFlag {
	zero, one := 0, 1
	return ldmodel.FeatureFlag{
		Key:          key,
		On:           on,
		OffVariation: &zero,
		Fallthrough:  ldmodel.VariationOrRollout{Variation: &one},
		Variations:   []ldvalue.Value{ldvalue.Bool(false), ldvalue.Bool(true)},
	}
}

// singleValueFlag builds a flag with a single fallthrough variation of the given value.
func singleValueFlag(key string, value ldvalue.Value) ldmodel.FeatureFlag {
	zero := 0
	return ldmodel.FeatureFlag{
		Key:         key,
		On:          true,
		Fallthrough: ldmodel.VariationOrRollout{Variation: &zero},
		Variations:  []ldvalue.Value{value},
	}
}

// makeTestStore builds an initialized in-memory store preloaded with the given flags.
func makeTestStore(flags ...ldmodel.FeatureFlag) datastore.Store {
	store := datastore.NewInMemoryStore()
	flagMap := make(map[string]*ldmodel.FeatureFlag, len(flags))
	for i := range flags {
		f := flags[i]
		flagMap[f.Key] = &f
	}
	_ = store.Init(flagMap, map[string]*ldmodel.Segment{})
	return store
}

// makeEvalTestClient builds a client in relay-proxy-daemon mode (no data source
// started) preloaded with the given flags and a capturingEventProcessor, for
// evaluation tests that don't need network behavior but do need real evaluation
// and event capture.
func makeEvalTestClient(flags ...ldmodel.FeatureFlag) (*LDClient, *capturingEventProcessor) {
	events := &capturingEventProcessor{}
	config := DefaultConfig
	config.UseLdd = true
	config.EventProcessor = events
	config.DataStore = makeTestStore(flags...)
	client, _ := MakeCustomClient("sdkKey", config, 0)
	return client, events
}

// makeOfflineTestClient builds a fully offline client (no data source, no events).
// All evaluations return their default value.
func makeOfflineTestClient() *LDClient {
	config := DefaultConfig
	config.Offline = true
	client, _ := MakeCustomClient("sdkKey", config, 0)
	return client
}
