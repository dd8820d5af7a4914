package tracing

import (
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/honeycombio/honeycomb-opentelemetry-go"
	"github.com/honeycombio/otel-config-go/otelconfig"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var GlobalTracer = otel.Tracer("fitclub-backend")

// HoneycombSetup configures the OpenTelemetry SDK to export to honeycomb
// (HONEYCOMB_API_KEY, OTEL_SERVICE_NAME env vars). When disabled, the global
// no-op provider stays in place and the returned shutdown does nothing.
// A non-nil redis client gets the tracing hook in both cases.
func HoneycombSetup(enabled bool, serviceName string, rdb *redis.Client) (func(), error) {
	if rdb != nil {
		rdb.AddHook(redisotel.NewTracingHook())
	}

	if !enabled {
		log.Debugln("tracing: honeycomb disabled")
		return func() {}, nil
	}

	bsp := honeycomb.NewBaggageSpanProcessor()
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(serviceName),
		otelconfig.WithSpanProcessor(bsp),
	)
	if err != nil {
		return nil, err
	}

	log.Infof("tracing: honeycomb set up for [%s]", serviceName)
	return otelShutdown, nil
}
