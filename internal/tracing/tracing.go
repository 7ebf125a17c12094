package tracing

import (
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jaegermetrics "github.com/uber/jaeger-lib/metrics"

	"alertmon/internal/config"
)

// Init wires the global opentracing tracer to Jaeger. The returned func
// flushes and closes the reporter.
func Init(cfg config.TracingConfig) (opentracing.Tracer, func(), error) {
	jcfg := jaegercfg.Configuration{
		ServiceName: cfg.ServiceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1, // Sample 100% of traces for development
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:          true,
			CollectorEndpoint: cfg.CollectorEndpoint,
		},
	}

	tracer, closer, err := jcfg.NewTracer(
		jaegercfg.Logger(jaeger.StdLogger),
		jaegercfg.Metrics(jaegermetrics.NullFactory),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot initialize jaeger tracer: %v", err)
	}

	opentracing.SetGlobalTracer(tracer)

	return tracer, func() { closer.Close() }, nil
}
