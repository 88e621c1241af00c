package datasource

import (
	"sync"
	"time"

	"github.com/launchdarkly/go-server-sdk-sub008/internal/datastore"
	"github.com/launchdarkly/go-server-sdk-sub008/ldlog"
)

// PollingDataSource polls the "/sdk/latest-all" endpoint on a fixed interval and
// applies each successful response as a full store Init. ETag-based conditional GETs
// (handled transparently by the requestor's httpcache transport) mean a 304 response
// costs nothing beyond the round trip.
type PollingDataSource struct {
	store    datastore.Store
	requestor *requestor
	interval time.Duration
	loggers  ldlog.Loggers

	closeCh   chan struct{}
	closeOnce sync.Once
	readyCh   chan struct{}
	readyOnce sync.Once

	mu            sync.Mutex
	isInitialized bool
}

// NewPollingDataSource constructs a PollingDataSource polling at the given interval.
func NewPollingDataSource(
	store datastore.Store,
	requestor *requestor,
	interval time.Duration,
	loggers ldlog.Loggers,
) *PollingDataSource {
	return &PollingDataSource{
		store:     store,
		requestor: requestor,
		interval:  interval,
		loggers:   loggers,
		closeCh:   make(chan struct{}),
		readyCh:   make(chan struct{}),
	}
}

// Start begins polling in the background and returns a channel that closes once the
// store is initialized for the first time, or once polling has permanently failed.
func (p *PollingDataSource) Start() <-chan struct{} {
	go p.run()
	return p.readyCh
}

func (p *PollingDataSource) run() {
	for {
		start := time.Now()
		if done := p.poll(); done {
			return
		}
		elapsed := time.Since(start)
		if remaining := p.interval - elapsed; remaining > 0 {
			select {
			case <-time.After(remaining):
			case <-p.closeCh:
				return
			}
		}
		select {
		case <-p.closeCh:
			return
		default:
		}
	}
}

// poll makes one request; it returns true if the data source has permanently failed
// and the polling loop should stop.
func (p *PollingDataSource) poll() bool {
	data, cached, err := p.requestor.requestAll()
	if err != nil {
		if hse, ok := err.(httpStatusError); ok && !hse.recoverable {
			p.loggers.Errorf("Polling request failed (giving up permanently): %s", hse.Error())
			p.readyOnce.Do(func() { close(p.readyCh) })
			return true
		}
		p.loggers.Warnf("Polling request failed (will retry): %s", err)
		return false
	}
	if cached {
		return false
	}
	if err := p.store.Init(data.Flags, data.Segments); err != nil {
		p.loggers.Errorf("Error initializing data store: %s", err)
		return false
	}
	p.mu.Lock()
	p.isInitialized = true
	p.mu.Unlock()
	p.readyOnce.Do(func() { close(p.readyCh) })
	return false
}

// Initialized reports whether a poll has ever succeeded.
func (p *PollingDataSource) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isInitialized
}

// Close stops the polling loop.
func (p *PollingDataSource) Close() error {
	p.closeOnce.Do(func() { close(p.closeCh) })
	return nil
}
