package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DMarby/postcard-poodle/internal/cache"
	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/DMarby/postcard-poodle/internal/logger"
	"github.com/DMarby/postcard-poodle/internal/postcard"
	"github.com/DMarby/postcard-poodle/internal/queue"
	"github.com/DMarby/postcard-poodle/internal/tracing"
	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	processedTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "render_processed_tasks_total",
		Help: "Number of render tasks processed, by output and filter.",
	}, []string{"output", "filter"})
	renderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "render_duration_seconds",
		Help:    "Time spent rendering a task on a worker.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"output"})
)

// Processor renders previews and postcards on a bounded worker queue, memoising the results
type Processor struct {
	queue  *queue.Queue
	cache  *cache.Auto
	tracer *tracing.Tracer
}

// New initializes a new processor instance; the workers stop when ctx is done
func New(ctx context.Context, log *logger.Logger, tracer *tracing.Tracer, workers int, cache *cache.Auto, compositor *postcard.Compositor) *Processor {
	workerQueue := queue.New(ctx, workers, taskProcessor(tracer, compositor))
	instance := &Processor{
		queue:  workerQueue,
		cache:  cache,
		tracer: tracer,
	}

	go workerQueue.Run()
	log.Infof("starting render worker queue with %d workers", workers)

	return instance
}

// Process renders a task and returns the encoded PNG.
// A task without a source image, or with an empty one, renders nothing and returns no error.
func (p *Processor) Process(ctx context.Context, task *Task) ([]byte, error) {
	if task.Source == nil || task.Source.Empty() {
		return nil, nil
	}

	ctx, span := p.tracer.Start(ctx, "render.Processor.Process")
	defer span.End()
	span.SetAttributes(
		attribute.String("output", task.Output.String()),
		attribute.String("filter", task.Filter.String()),
	)

	data, err := p.cache.Get(ctx, task.Key(), func(ctx context.Context) ([]byte, error) {
		return p.run(ctx, task)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, err
	}

	return data, nil
}

// Check renders a tiny postcard on the queue, bypassing the cache
func (p *Processor) Check(ctx context.Context) error {
	source := filter.NewImageBuffer(4, 4)
	for i := range source.Pix {
		source.Pix[i] = 0xff
	}

	data, err := p.run(ctx, NewPostcard(source, filter.Flare, "healthcheck"))
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return fmt.Errorf("empty render")
	}

	return nil
}

// RegisterMetrics exports the depth of the worker queue
func (p *Processor) RegisterMetrics(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "render_queue_pending",
			Help: "Number of render tasks waiting for a worker.",
		}, func() float64 { return float64(p.queue.Pending()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "render_queue_active",
			Help: "Number of render tasks being processed by a worker.",
		}, func() float64 { return float64(p.queue.Active()) }),
	}

	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return fmt.Errorf("error registering render metrics: %w", err)
		}
	}

	return nil
}

func (p *Processor) run(ctx context.Context, task *Task) ([]byte, error) {
	result, err := p.queue.Process(ctx, task)
	if err != nil {
		return nil, err
	}

	data, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("error getting result")
	}

	return data, nil
}

func taskProcessor(tracer *tracing.Tracer, compositor *postcard.Compositor) func(ctx context.Context, data interface{}) (interface{}, error) {
	return func(ctx context.Context, data interface{}) (interface{}, error) {
		task, ok := data.(*Task)
		if !ok {
			return nil, fmt.Errorf("invalid data")
		}

		_, span := tracer.Start(ctx, "render.taskProcessor")
		defer span.End()

		start := time.Now()
		defer func() {
			renderDuration.WithLabelValues(task.Output.String()).Observe(time.Since(start).Seconds())
		}()

		surface, err := Surface(task.Source, task.Filter)
		if err != nil {
			return nil, err
		}

		var output []byte
		switch task.Output {
		case Preview:
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, surface, imaging.PNG); err != nil {
				return nil, fmt.Errorf("error encoding preview: %w", err)
			}
			output = buf.Bytes()
		case Postcard:
			output, err = compositor.Export(surface, task.Caption)
			if err != nil {
				return nil, fmt.Errorf("error composing postcard: %w", err)
			}
		default:
			return nil, errors.New("unknown output")
		}

		processedTasks.WithLabelValues(task.Output.String(), task.Filter.String()).Inc()
		return output, nil
	}
}
