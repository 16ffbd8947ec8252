package client

import (
	"context"
	"fmt"
	"time"

	"github.com/hatlonely/esagg/log"
	"github.com/hatlonely/esagg/ref"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableClientOptions struct {
	// Client 被包装的客户端配置
	Client *ref.TypeOptions `cfg:"client" validate:"required"`

	// Logger 日志配置，为空时使用 log.Default()
	Logger *log.Options `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableLogging bool `cfg:"enableLogging" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 指标名前缀，同时作为日志和 span 的 component
	Name string `cfg:"name" def:"esagg"`

	// Registerer 指标注册位置，为空时使用 prometheus.DefaultRegisterer
	Registerer prometheus.Registerer `cfg:"-"`
}

// SearchMetrics 搜索指标
type SearchMetrics struct {
	searchCounter  *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	activeSearches *prometheus.GaugeVec
}

// NewSearchMetrics 创建并注册指标，同名指标已注册时复用已有的
func NewSearchMetrics(name string, registerer prometheus.Registerer) (*SearchMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	searchCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name + "_searches_total",
			Help: "Total number of search requests",
		},
		[]string{"index", "status"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name + "_search_duration_seconds",
			Help:    "Duration of search requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"index"},
	)
	activeSearches := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name + "_active_searches",
			Help: "Number of in-flight search requests",
		},
		[]string{"index"},
	)

	var err error
	metrics := &SearchMetrics{}
	if metrics.searchCounter, err = register(registerer, searchCounter); err != nil {
		return nil, err
	}
	if metrics.searchDuration, err = register(registerer, searchDuration); err != nil {
		return nil, err
	}
	if metrics.activeSearches, err = register(registerer, activeSearches); err != nil {
		return nil, err
	}
	return metrics, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register metrics failed")
	}
	return c, nil
}

// ObservableClient 装饰器，为客户端添加指标、追踪和日志
type ObservableClient struct {
	client Client

	logger        log.Logger
	metrics       *SearchMetrics
	tracer        trace.Tracer
	name          string
	enableMetrics bool
	enableLogging bool
	enableTracing bool
}

func NewObservableClientWithOptions(options *ObservableClientOptions) (*ObservableClient, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	c, err := NewClientWithOptions(options.Client)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying client")
	}

	return NewObservableClient(c, options)
}

// NewObservableClient 包装已有客户端，忽略 options.Client
func NewObservableClient(c Client, options *ObservableClientOptions) (*ObservableClient, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	obs := &ObservableClient{
		client:        c,
		name:          options.Name,
		enableMetrics: options.EnableMetrics,
		enableLogging: options.EnableLogging,
		enableTracing: options.EnableTracing,
	}

	if options.EnableLogging {
		l := log.Default()
		if options.Logger != nil {
			var err error
			if l, err = log.NewLogWithOptions(options.Logger); err != nil {
				return nil, errors.WithMessage(err, "failed to create logger")
			}
		}
		obs.logger = l.WithGroup("observableClient")
	}

	if options.EnableMetrics {
		metrics, err := NewSearchMetrics(options.Name, options.Registerer)
		if err != nil {
			return nil, err
		}
		obs.metrics = metrics
	}

	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("client.%s", options.Name))
	}

	return obs, nil
}

func (obs *ObservableClient) Search(ctx context.Context, req *SearchRequest) (map[string]any, error) {
	start := time.Now()

	var span trace.Span
	if obs.enableTracing && obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, "client.search",
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("index", req.Index),
				attribute.String("document_type", req.DocumentType),
			),
		)
		defer span.End()
	}

	if obs.enableMetrics && obs.metrics != nil {
		obs.metrics.activeSearches.WithLabelValues(req.Index).Inc()
		defer obs.metrics.activeSearches.WithLabelValues(req.Index).Dec()
	}

	res, err := obs.client.Search(ctx, req)
	duration := time.Since(start)

	if obs.enableTracing && span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.enableMetrics && obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.searchCounter.WithLabelValues(req.Index, status).Inc()
		obs.metrics.searchDuration.WithLabelValues(req.Index).Observe(duration.Seconds())
	}

	if obs.enableLogging && obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "search failed",
				"component", obs.name,
				"index", req.Index,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.InfoContext(ctx, "search completed",
				"component", obs.name,
				"index", req.Index,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return res, err
}
