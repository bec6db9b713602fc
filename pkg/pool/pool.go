package pool

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"

	"github.com/grafana/colscan/pkg/util"
)

const queueLengthReportDuration = 15 * time.Second

var (
	metricQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "colscan",
		Name:      "work_queue_length",
		Help:      "Current length of the work queue.",
	})

	metricQueueMax = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "colscan",
		Name:      "work_queue_max",
		Help:      "Maximum number of items in the work queue.",
	})
)

type Config struct {
	MaxWorkers int `yaml:"max_workers"`
	QueueDepth int `yaml:"queue_depth"`
}

func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.IntVar(&c.MaxWorkers, util.PrefixConfig(prefix, "max-workers"), 30, "Number of goroutines evaluating jobs.")
	f.IntVar(&c.QueueDepth, util.PrefixConfig(prefix, "queue-depth"), 10000, "Maximum number of queued jobs.")
}

func (c *Config) Validate() error {
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("pool max workers must be positive, got %d", c.MaxWorkers)
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("pool queue depth must be positive, got %d", c.QueueDepth)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		MaxWorkers: 30,
		QueueDepth: 10000,
	}
}

type job struct {
	run func()
	wg  *sync.WaitGroup
}

// Pool runs batches of independent jobs on a fixed set of workers.
type Pool struct {
	cfg  *Config
	size *atomic.Int32

	workQueue  chan *job
	shutdownCh chan struct{}
	workers    sync.WaitGroup
}

func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		cfg = defaultConfig()
	}

	p := &Pool{
		cfg:        cfg,
		size:       atomic.NewInt32(0),
		workQueue:  make(chan *job, cfg.QueueDepth),
		shutdownCh: make(chan struct{}),
	}

	p.workers.Add(cfg.MaxWorkers)
	for i := 0; i < cfg.MaxWorkers; i++ {
		go p.worker()
	}

	metricQueueMax.Set(float64(cfg.QueueDepth))
	go p.reportQueueLength()

	return p
}

// RunJobs applies fn to every payload on the pool and returns the results in
// payload order. The first error stops jobs that have not started yet and is
// returned.
func RunJobs[P, R any](ctx context.Context, p *Pool, payloads []P, fn func(context.Context, P) (R, error)) ([]R, error) {
	total := len(payloads)

	// sanity check before we even attempt to start adding jobs
	if int(p.size.Load())+total > p.cfg.QueueDepth {
		return nil, fmt.Errorf("queue doesn't have room for %d jobs", total)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]R, total)
	firstErr := atomic.NewError(nil)
	wg := &sync.WaitGroup{}

	for i, payload := range payloads {
		j := &job{
			wg: wg,
			run: func() {
				if ctx.Err() != nil {
					return
				}
				r, err := fn(ctx, payload)
				if err != nil {
					if firstErr.CompareAndSwap(nil, err) {
						cancel()
					}
					return
				}
				results[i] = r
			},
		}

		wg.Add(1)
		select {
		case p.workQueue <- j:
			p.size.Inc()
		default:
			wg.Done()
			cancel()
			wg.Wait()
			return nil, fmt.Errorf("failed to add a job due to queue being full")
		}
	}

	wg.Wait()
	if err := firstErr.Load(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Shutdown stops the workers once queued jobs drain.
func (p *Pool) Shutdown() {
	close(p.shutdownCh)
	close(p.workQueue)
	p.workers.Wait()
}

func (p *Pool) worker() {
	defer p.workers.Done()

	for j := range p.workQueue {
		p.size.Dec()
		j.run()
		j.wg.Done()
	}
}

func (p *Pool) reportQueueLength() {
	ticker := time.NewTicker(queueLengthReportDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metricQueueLength.Set(float64(p.size.Load()))
		case <-p.shutdownCh:
			return
		}
	}
}
