package tracker

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

const (
	defaultQueueCapacity = 1024
	defaultMaxAttempts   = 3
)

// Drop reasons reported to Metrics.SampleDropped.
const (
	DropRetriesExhausted = "retries_exhausted"
	DropQueueFull        = "queue_full"
)

// SampleWriter is the subset of ports.SampleStore the queue needs.
type SampleWriter interface {
	StoreSample(ctx context.Context, tradeID string, s domain.ColorSample) error
}

// Recomputer recomputes one analysis bucket.
type Recomputer interface {
	RecomputeBucket(ctx context.Context, timeframe string, expiration int) (domain.AnalysisBucket, bool, error)
}

// QueueConfig bounds the sample persistence queue.
type QueueConfig struct {
	Capacity    int
	MaxAttempts int
}

// SampleJob is one pending StoreSample call.
type SampleJob struct {
	TradeID         string
	PlatformTradeID string
	Timeframe       string
	Sample          domain.ColorSample
	Attempts        int
}

// DrainResult counts what happened during one Drain.
type DrainResult struct {
	Stored     int
	Retrying   int
	Dropped    int
	Recomputed int
}

// SampleQueue is a bounded FIFO of sample writes with bounded retry.
//
// Jobs are only executed inside Drain, which the controller calls at the end
// of each tick, so persistence never overlaps with the next tick. A job that
// fails stays queued for the following drains until MaxAttempts, then it is
// dropped and counted.
type SampleQueue struct {
	store      SampleWriter
	recomputer Recomputer
	metrics    Metrics
	cfg        QueueConfig
	jobs       []SampleJob
}

// NewSampleQueue creates a queue. recomputer may be nil.
func NewSampleQueue(store SampleWriter, recomputer Recomputer, metrics Metrics, cfg QueueConfig) *SampleQueue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultQueueCapacity
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &SampleQueue{
		store:      store,
		recomputer: recomputer,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// Submit enqueues a job. When the queue is full the oldest job is dropped.
func (q *SampleQueue) Submit(job SampleJob) {
	if len(q.jobs) >= q.cfg.Capacity {
		oldest := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.metrics.SampleDropped(DropQueueFull)
		slog.Warn("tracker: sample queue full, dropping oldest",
			"platform_trade_id", oldest.PlatformTradeID,
			"time_elapsed", oldest.Sample.TimeElapsed,
		)
	}
	q.jobs = append(q.jobs, job)
}

// Pending returns the number of queued jobs.
func (q *SampleQueue) Pending() int {
	return len(q.jobs)
}

// Drain attempts every queued job once, in FIFO order.
func (q *SampleQueue) Drain(ctx context.Context) DrainResult {
	var res DrainResult
	if len(q.jobs) == 0 {
		return res
	}

	pending := q.jobs
	q.jobs = nil

	for _, job := range pending {
		job.Attempts++
		err := q.store.StoreSample(ctx, job.TradeID, job.Sample)
		if err == nil {
			res.Stored++
			q.metrics.SampleStored()
			if q.recompute(ctx, job) {
				res.Recomputed++
			}
			continue
		}

		if job.Attempts >= q.cfg.MaxAttempts {
			res.Dropped++
			q.metrics.SampleDropped(DropRetriesExhausted)
			slog.Error("tracker: sample dropped after retries",
				"platform_trade_id", job.PlatformTradeID,
				"time_elapsed", job.Sample.TimeElapsed,
				"attempts", job.Attempts,
				"err", err,
			)
			continue
		}

		res.Retrying++
		q.metrics.SampleRetried()
		slog.Warn("tracker: sample store failed, will retry",
			"platform_trade_id", job.PlatformTradeID,
			"time_elapsed", job.Sample.TimeElapsed,
			"attempt", job.Attempts,
			"err", err,
		)
		q.jobs = append(q.jobs, job)
	}
	return res
}

// recompute refreshes the bucket when a stored sample sits on a checkpoint.
func (q *SampleQueue) recompute(ctx context.Context, job SampleJob) bool {
	if q.recomputer == nil || !domain.IsCheckpoint(job.Sample.TimeElapsed) {
		return false
	}
	_, ok, err := q.recomputer.RecomputeBucket(ctx, job.Timeframe, job.Sample.TimeElapsed)
	if err != nil {
		slog.Warn("tracker: bucket recompute failed",
			"timeframe", job.Timeframe,
			"expiration", job.Sample.TimeElapsed,
			"err", err,
		)
		return false
	}
	if ok {
		q.metrics.BucketRecomputed(job.Timeframe, job.Sample.TimeElapsed)
	}
	return ok
}
