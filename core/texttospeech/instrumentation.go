package texttospeech

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-ordersim/core/texttospeech"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	generationFailures, _ = meter.Int64Counter("ordersim.tts.failures",
		metric.WithDescription("Messages that could not be synthesised"))
)
