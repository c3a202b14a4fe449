package simulation

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-ordersim/core/simulation"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	externalCallFailures, _ = meter.Int64Counter("ordersim.external_call.failures",
		metric.WithDescription("Order-parsing calls that failed during a replay"))
)
