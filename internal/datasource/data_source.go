package datasource

// DataSource is the contract shared by StreamingDataSource and PollingDataSource: start
// populating the data store in the background, report whether it has succeeded at
// least once, and shut down cleanly.
type DataSource interface {
	// Start begins populating the store and returns a channel that closes once the
	// store has been initialized for the first time, or the data source has
	// permanently failed.
	Start() <-chan struct{}
	// Initialized reports whether the store has been successfully populated at least
	// once.
	Initialized() bool
	// Close stops the data source.
	Close() error
}

var (
	_ DataSource = (*StreamingDataSource)(nil)
	_ DataSource = (*PollingDataSource)(nil)
)
