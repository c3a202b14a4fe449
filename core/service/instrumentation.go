package service

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/koscakluka/ema-ordersim/core/service"

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetAttributes(attribute.String("error", err.Error()))
	return err
}
