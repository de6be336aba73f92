package simbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swarmlab/simbus/pkg/simbus/event"
	"github.com/swarmlab/simbus/pkg/simbus/observability"
	"github.com/swarmlab/simbus/pkg/simbus/store"
)

// Config holds the tunable knobs of a Bus. Zero values fall back to
// DefaultConfig.
type Config struct {
	// LogCapacity bounds the event log; the oldest entries are evicted
	// once the capacity is reached. Default: 10000.
	LogCapacity int

	// RetryInterval is the cadence of the retry-queue timer.
	// Default: 100ms.
	RetryInterval time.Duration

	// MaxRetryAttempts is the number of delivery attempts before a retry
	// item is dropped. Default: 3.
	MaxRetryAttempts int

	// RetryQueueSize bounds the retry queue. Default: 1000.
	RetryQueueSize int

	// SnapshotEvery is the number of dequeues between durable snapshots
	// of the retry queue. Default: 10.
	SnapshotEvery int

	// SnapshotLimit caps how many of the most recent items a snapshot
	// keeps. Default: 100.
	SnapshotLimit int

	// RetryFailedDeliveries enqueues events whose inline delivery failed
	// onto the retry queue. Off by default: the queue then acts purely as
	// crash-recovery replay of the persisted snapshot.
	RetryFailedDeliveries bool
}

// DefaultConfig provides the standard bus configuration.
var DefaultConfig = Config{
	LogCapacity:      10000,
	RetryInterval:    100 * time.Millisecond,
	MaxRetryAttempts: 3,
	RetryQueueSize:   1000,
	SnapshotEvery:    10,
	SnapshotLimit:    100,
}

func (c Config) withDefaults() Config {
	if c.LogCapacity <= 0 {
		c.LogCapacity = DefaultConfig.LogCapacity
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultConfig.RetryInterval
	}
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = DefaultConfig.MaxRetryAttempts
	}
	if c.RetryQueueSize <= 0 {
		c.RetryQueueSize = DefaultConfig.RetryQueueSize
	}
	if c.SnapshotEvery <= 0 {
		c.SnapshotEvery = DefaultConfig.SnapshotEvery
	}
	if c.SnapshotLimit <= 0 {
		c.SnapshotLimit = DefaultConfig.SnapshotLimit
	}
	return c
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(b *Bus) { b.cfg = cfg.withDefaults() }
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// WithMetricsRecorder sets the metrics backend. Default: no-op.
func WithMetricsRecorder(rec observability.MetricsRecorder) Option {
	return func(b *Bus) { b.rec = rec }
}

// WithSpanManager sets the tracing backend. Default: no-op.
func WithSpanManager(spans observability.SpanManager) Option {
	return func(b *Bus) { b.spans = spans }
}

// WithSnapshotStore sets the durable store for retry-queue snapshots.
// Without a store the retry queue runs purely in memory. The bus does not
// close the store; its lifetime belongs to the caller.
func WithSnapshotStore(st store.Store) Option {
	return func(b *Bus) { b.store = st }
}

// WithLogCapacity bounds the event log.
func WithLogCapacity(n int) Option {
	return func(b *Bus) { b.cfg.LogCapacity = n }
}

// WithRetryInterval sets the retry timer cadence.
func WithRetryInterval(d time.Duration) Option {
	return func(b *Bus) { b.cfg.RetryInterval = d }
}

// WithMaxRetryAttempts sets the retry attempt bound.
func WithMaxRetryAttempts(n int) Option {
	return func(b *Bus) { b.cfg.MaxRetryAttempts = n }
}

// WithRetryQueueSize bounds the retry queue.
func WithRetryQueueSize(n int) Option {
	return func(b *Bus) { b.cfg.RetryQueueSize = n }
}

// WithSnapshotEvery sets the number of dequeues between snapshots.
func WithSnapshotEvery(n int) Option {
	return func(b *Bus) { b.cfg.SnapshotEvery = n }
}

// WithSnapshotLimit caps how many items a snapshot keeps.
func WithSnapshotLimit(n int) Option {
	return func(b *Bus) { b.cfg.SnapshotLimit = n }
}

// WithRetryFailedDeliveries wires inline delivery failures into the retry
// queue instead of leaving it a pure crash-recovery path.
func WithRetryFailedDeliveries(on bool) Option {
	return func(b *Bus) { b.cfg.RetryFailedDeliveries = on }
}

// Bus is the coordination substrate for the simulation front end. All
// methods are safe for concurrent use. Internal state (log, registry,
// metrics, retry queue) is owned by the bus and only ever returned as
// copies.
type Bus struct {
	cfg    Config
	logger *slog.Logger
	rec    observability.MetricsRecorder
	spans  observability.SpanManager
	store  store.Store

	// subscription registry
	regMu    sync.RWMutex
	subs     map[event.Kind]map[uint64]*subscription
	nextID   atomic.Uint64
	subCount int // recomputed from bucket sizes after each mutation

	// validator and middleware chains
	chainMu    sync.RWMutex
	validators []Validator
	middleware []Middleware

	// event log (capped ring)
	logMu sync.Mutex
	log   []*LogEntry

	// metrics
	totalEvents atomic.Int64
	errorCount  atomic.Int64
	latMu       sync.Mutex
	latTotal    time.Duration
	latSamples  int64
	startedAt   time.Time

	// retry queue
	retryMu    sync.Mutex
	retryQueue []retryItem
	dequeues   int
	retryBusy  atomic.Bool

	paused  atomic.Bool
	closed  atomic.Bool
	started atomic.Bool
	stopCh  chan struct{}
	stopped sync.Once
	loopWG  sync.WaitGroup
}

// New constructs a Bus with the built-in required-fields validator and the
// built-in metrics middleware installed. Call Start to recover the retry
// snapshot and begin the retry timer.
func New(opts ...Option) *Bus {
	b := &Bus{
		cfg:       DefaultConfig,
		rec:       observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
		subs:      make(map[event.Kind]map[uint64]*subscription),
		stopCh:    make(chan struct{}),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.cfg = b.cfg.withDefaults()

	b.validators = append(b.validators, requiredFieldsValidator())
	b.middleware = append(b.middleware, b.metricsMiddleware())
	return b
}

// Start loads the persisted retry snapshot (if a store is configured) and
// starts the retry timer. It is a no-op on a second call.
func (b *Bus) Start(ctx context.Context) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if !b.started.CompareAndSwap(false, true) {
		return nil
	}
	b.loadRetrySnapshot(ctx)
	b.loopWG.Add(1)
	go b.runRetryLoop(ctx)
	return nil
}

// Stop halts the retry timer, writes a final snapshot, and rejects further
// publishes. Idempotent.
func (b *Bus) Stop() error {
	b.stopped.Do(func() {
		b.closed.Store(true)
		close(b.stopCh)
		b.loopWG.Wait()
		b.snapshotRetryQueue(context.Background())
	})
	return nil
}

// Pause drops every subsequent publish: events are neither queued nor
// logged while paused.
func (b *Bus) Pause() { b.paused.Store(true) }

// Resume clears the pause flag.
func (b *Bus) Resume() { b.paused.Store(false) }

// Paused reports whether the bus is paused.
func (b *Bus) Paused() bool { return b.paused.Load() }
