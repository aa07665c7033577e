package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/thisisjab/docquery/entity"
	"github.com/thisisjab/docquery/metric"
)

// Store persists verdicts.
type Store interface {
	StoreVerdicts(ctx context.Context, verdicts ...entity.Verdict) error
}

// BufferedStore collects verdicts and hands them to a Store in batches.
// Note that you should never disable buffering and scheduled flushing together.
type BufferedStore struct {
	store  Store
	logger *slog.Logger
	buffer []entity.Verdict
	mu     sync.Mutex
	wg     sync.WaitGroup

	// bufferMaxSize defines the maximum items that buffer holds before flushing.
	// If value is reached, buffer will be flushed immediately.
	// Setting this to zero will disable size based flushing.
	bufferMaxSize uint

	// flushInterval defines the interval at which buffer will be flushed.
	// Setting flushInterval to 0 will disable scheduled flushing.
	flushInterval time.Duration
}

func NewBufferedStore(logger *slog.Logger, store Store, bufferMaxSize uint, flushInterval time.Duration) (*BufferedStore, error) {
	if store == nil {
		return nil, errors.New("no verdict store is configured")
	}

	if bufferMaxSize == 0 && flushInterval == 0 {
		return nil, errors.New("buffer max size and flush interval cannot both be zero")
	}

	return &BufferedStore{
		logger:        logger,
		store:         store,
		bufferMaxSize: bufferMaxSize,
		buffer:        make([]entity.Verdict, 0, bufferMaxSize),
		flushInterval: flushInterval,
	}, nil
}

// Run flushes the buffer periodically until ctx is done, then flushes what
// is left and waits for in-flight flushes.
func (b *BufferedStore) Run(ctx context.Context) {
	// A nil channel blocks forever, which disables the scheduled flush.
	var tick <-chan time.Time
	if b.flushInterval > 0 {
		ticker := time.NewTicker(b.flushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			// ctx is already done, so the final flush needs its own.
			b.flush(context.WithoutCancel(ctx))
			b.wg.Wait()
			return
		case <-tick:
			b.flush(ctx)
		}
	}
}

// Add buffers verdicts and flushes asynchronously once the buffer is full.
func (b *BufferedStore) Add(ctx context.Context, verdicts ...entity.Verdict) {
	if len(verdicts) == 0 {
		return
	}

	var toFlush []entity.Verdict

	b.mu.Lock()
	b.buffer = append(b.buffer, verdicts...)

	if b.bufferMaxSize > 0 && uint(len(b.buffer)) >= b.bufferMaxSize {
		toFlush = b.swap()
	}
	b.mu.Unlock()

	// Callers are usually request handlers whose ctx ends before the flush does.
	if toFlush != nil {
		b.flushAsync(context.WithoutCancel(ctx), toFlush)
	}
}

func (b *BufferedStore) flush(ctx context.Context) {
	b.mu.Lock()
	var toFlush []entity.Verdict
	if len(b.buffer) > 0 {
		toFlush = b.swap()
	}
	b.mu.Unlock()

	if toFlush != nil {
		b.flushAsync(ctx, toFlush)
	}
}

// swap must be called with mu held.
func (b *BufferedStore) swap() []entity.Verdict {
	full := b.buffer
	b.buffer = make([]entity.Verdict, 0, b.bufferMaxSize)
	return full
}

func (b *BufferedStore) flushAsync(ctx context.Context, toFlush []entity.Verdict) {
	b.wg.Go(func() {
		if err := b.store.StoreVerdicts(ctx, toFlush...); err != nil {
			metric.StoreErrorsTotal.Inc()
			b.logger.Error("failed to flush verdicts", "error", err, "count", len(toFlush))
			return
		}

		metric.StoredVerdictsTotal.Add(float64(len(toFlush)))
		b.logger.Debug("flushed verdicts successfully", "count", len(toFlush))
	})
}
