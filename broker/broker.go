// Package broker owns the inference queue of the GPU server. All model
// work funnels through a single worker goroutine, and concurrent
// submissions for the same fingerprint share one job instead of queueing
// duplicates.
package broker

import (
	"context"
	"sync"
	"time"

	"detection-api/fingerprint"
	"detection-api/internal/metrics"
	"detection-api/logging"
	"detection-api/modelclient"
	"detection-api/predictioncache"

	"github.com/google/uuid"
)

type Broker struct {
	store      predictioncache.Store
	classifier modelclient.Classifier

	jobs        chan *inferenceJob
	waitTimeout time.Duration

	// inflight maps a fingerprint to its live job so racing submitters
	// join it. Entries are removed by the worker after the result is
	// published.
	mu       sync.Mutex
	inflight map[fingerprint.Fingerprint]*inferenceJob

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

func NewBroker(store predictioncache.Store, classifier modelclient.Classifier, queueSize int, waitTimeout time.Duration) *Broker {
	broker := &Broker{
		store:       store,
		classifier:  classifier,
		jobs:        make(chan *inferenceJob, queueSize),
		waitTimeout: waitTimeout,
		inflight:    make(map[fingerprint.Fingerprint]*inferenceJob),
		stopped:     make(chan struct{}),
		done:        make(chan struct{}),
	}

	go broker.processJobs()
	return broker
}

// Submit resolves image bytes to a probability: cache first, then the
// single-worker queue. It blocks until the job completes, the wait bound
// elapses, or ctx is cancelled. A timed-out or cancelled submit does not
// cancel the job.
func (b *Broker) Submit(ctx context.Context, image []byte) (InferenceResult, error) {
	fp := fingerprint.Sum(image)

	// Front cache check. Not transactional with the enqueue below: a
	// concurrent writer may complete the same fingerprint in between,
	// which costs at most one extra inference, never a wrong result.
	if probability, found, err := b.store.Get(ctx, fp); err != nil {
		logging.Warn("Cache lookup failed, continuing to inference", logging.Cache,
			"fingerprint", fp, "error", err)
	} else if found {
		metrics.CacheHitsTotal.WithLabelValues("server_front").Inc()
		return InferenceResult{Probability: probability, FromCache: true}, nil
	}

	job, err := b.enqueue(fp, image)
	if err != nil {
		return InferenceResult{}, err
	}

	timer := time.NewTimer(b.waitTimeout)
	defer timer.Stop()

	select {
	case <-job.done:
		if job.err != nil {
			return InferenceResult{}, job.err
		}
		return InferenceResult{Probability: job.probability}, nil
	case <-timer.C:
		metrics.InferenceTimeoutsTotal.Inc()
		logging.Warn("Timed out waiting for inference result", logging.Inferences,
			"job_id", job.id, "fingerprint", fp, "wait_timeout", b.waitTimeout)
		return InferenceResult{}, ErrInferenceTimeout
	case <-ctx.Done():
		return InferenceResult{}, ctx.Err()
	}
}

// QueueDepth reports how many jobs are waiting for the worker.
func (b *Broker) QueueDepth() int {
	return len(b.jobs)
}

// Stop refuses new submissions and blocks until the worker has executed
// the remaining backlog. Queued jobs still run so their cache writes are
// not lost.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopped)
	})
	<-b.done
}

func (b *Broker) enqueue(fp fingerprint.Fingerprint, image []byte) (*inferenceJob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.stopped:
		return nil, ErrShuttingDown
	default:
	}

	if existing, ok := b.inflight[fp]; ok {
		logging.Debug("Joining in-flight job", logging.Inferences,
			"job_id", existing.id, "fingerprint", fp)
		return existing, nil
	}

	job := &inferenceJob{
		id:    uuid.New().String(),
		fp:    fp,
		image: image,
		done:  make(chan struct{}),
	}

	select {
	case b.jobs <- job:
		b.inflight[fp] = job
		metrics.QueueDepth.Inc()
		logging.Debug("Queued inference job", logging.Inferences,
			"job_id", job.id, "fingerprint", fp, "queue_depth", len(b.jobs))
		return job, nil
	default:
		// Queue is full
		return nil, ErrQueueFull
	}
}

// processJobs is the single consumer of the queue. Exactly one model
// invocation is in flight at any time.
func (b *Broker) processJobs() {
	defer close(b.done)
	for {
		select {
		case job := <-b.jobs:
			metrics.QueueDepth.Dec()
			b.runJob(job)
		case <-b.stopped:
			// Drain remaining jobs before shutting down
			for {
				select {
				case job := <-b.jobs:
					metrics.QueueDepth.Dec()
					b.runJob(job)
				default:
					return
				}
			}
		}
	}
}

// runJob executes one job with a background context. Waiters may be long
// gone; the work and its cache write happen regardless.
func (b *Broker) runJob(job *inferenceJob) {
	ctx := context.Background()

	// A job queued behind a completed duplicate is served by the cache
	// write that duplicate already made.
	if probability, found, err := b.store.Get(ctx, job.fp); err != nil {
		logging.Warn("Worker cache recheck failed", logging.Cache,
			"job_id", job.id, "fingerprint", job.fp, "error", err)
	} else if found {
		metrics.CacheHitsTotal.WithLabelValues("server_worker").Inc()
		b.publish(job, probability, nil)
		return
	}

	started := time.Now()
	probability, err := b.classifier.Classify(ctx, job.image)
	if err != nil {
		logging.Error("Model invocation failed", logging.Inferences,
			"job_id", job.id, "fingerprint", job.fp, "error", err)
		b.publish(job, 0, err)
		return
	}
	metrics.InferenceDurationSeconds.Observe(time.Since(started).Seconds())

	if err := b.store.Set(ctx, job.fp, probability); err != nil {
		// The result is still served; only the write-through failed.
		logging.Error("Cache write failed", logging.Cache,
			"job_id", job.id, "fingerprint", job.fp, "error", err)
	}

	logging.Info("Inference completed", logging.Inferences,
		"job_id", job.id, "fingerprint", job.fp, "duration", time.Since(started))
	b.publish(job, probability, nil)
}

func (b *Broker) publish(job *inferenceJob, probability float64, err error) {
	b.mu.Lock()
	delete(b.inflight, job.fp)
	b.mu.Unlock()

	job.probability = probability
	job.err = err
	close(job.done)
}
