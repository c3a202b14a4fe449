package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-ordersim/core/order"
	"github.com/koscakluka/ema-ordersim/core/orderparsing"
	"github.com/koscakluka/ema-ordersim/core/payment"
	"github.com/koscakluka/ema-ordersim/core/scenario"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultMessageDelay = 500 * time.Millisecond

type SimulationOptions struct {
	MessageDelay time.Duration
	// StepCallback is called with every step as soon as it is finished.
	StepCallback func(Step)
}

type SimulationOption func(*SimulationOptions)

// WithMessageDelay sets the pause between messages. Zero disables it.
func WithMessageDelay(delay time.Duration) SimulationOption {
	return func(o *SimulationOptions) {
		if delay >= 0 {
			o.MessageDelay = delay
		}
	}
}

func WithStepCallback(callback func(Step)) SimulationOption {
	return func(o *SimulationOptions) {
		if callback != nil {
			o.StepCallback = callback
		}
	}
}

// Step is what happened to the live order on one message.
type Step struct {
	MessageID string
	Role      scenario.Role
	Text      string

	// Actions are the order actions recognised by the parser, in the order
	// they were folded.
	Actions []scenario.OrderAction
	// Rejected holds actions the order refused, for example items without
	// a name.
	Rejected []error
	// Err is set when the parser could not be reached or failed. The order
	// is left unchanged on such steps.
	Err error

	ScriptedAction *scenario.OrderAction
	Payment        *scenario.Payment
	// PaymentCheck compares the scripted payment against the live order. It
	// is only set when amount and change were both given and the order is
	// not empty.
	PaymentCheck *payment.Result

	// Order is the live order after the step.
	Order *order.Order
}

func (s Step) Degraded() bool { return s.Err != nil }

type Result struct {
	Scenario   string
	Steps      []Step
	FinalOrder *order.Order
	FinalTotal float64
}

// DegradedSteps counts the steps whose parser call failed.
func (r *Result) DegradedSteps() int {
	count := 0
	for _, step := range r.Steps {
		if step.Degraded() {
			count++
		}
	}
	return count
}

// Simulate replays a scenario against a parser. Customer messages are sent
// with the current live order and the recognised actions are folded into it.
// Scripted order actions and payments are reported but never folded, the
// live order only follows the parser.
//
// A failing parser call degrades its step and the replay continues. When ctx
// is cancelled the partial result is returned together with the context
// error.
func Simulate(ctx context.Context, name string, messages []scenario.Message, parser orderparsing.Parser, opts ...SimulationOption) (*Result, error) {
	ctx, span := tracer.Start(ctx, "simulate scenario")
	defer span.End()
	span.SetAttributes(attribute.String("scenario", name), attribute.Int("messages", len(messages)))

	options := SimulationOptions{
		MessageDelay: DefaultMessageDelay,
		StepCallback: func(Step) {},
	}
	for _, opt := range opts {
		opt(&options)
	}

	result := &Result{Scenario: name, FinalOrder: order.New()}
	current := result.FinalOrder
	for i, msg := range messages {
		if err := ctx.Err(); err != nil {
			return result.finish(current), err
		}

		step := Step{
			MessageID: scenario.MessageID(msg, i),
			Role:      msg.Role,
			Text:      msg.Text,
		}

		if msg.Role == scenario.RoleCustomer {
			current = parseStep(ctx, parser, current, &step)
		}

		if err := snapshotScripted(msg, &step); err != nil {
			return result.finish(current), err
		}
		if received := step.Payment; received != nil && received.Amount != nil && received.Change != nil && !current.IsEmpty() {
			check := payment.Validate(current, *received.Amount, *received.Change)
			step.PaymentCheck = &check
		}

		step.Order = current
		result.Steps = append(result.Steps, step)
		options.StepCallback(step)

		if options.MessageDelay > 0 && i < len(messages)-1 {
			select {
			case <-ctx.Done():
				return result.finish(current), ctx.Err()
			case <-time.After(options.MessageDelay):
			}
		}
	}

	result = result.finish(current)
	span.SetAttributes(
		attribute.Int("degraded_steps", result.DegradedSteps()),
		attribute.Float64("final_total", result.FinalTotal),
	)
	return result, nil
}

func parseStep(ctx context.Context, parser orderparsing.Parser, current *order.Order, step *Step) *order.Order {
	resp, err := parser.ParseOrder(ctx, orderparsing.Request{
		Transcript:        step.Text,
		CurrentOrderItems: current.Items(),
	})
	if err != nil {
		step.Err = err
		if !errors.Is(err, context.Canceled) {
			externalCallFailures.Add(ctx, 1)
			logger.ErrorContext(ctx, "Order parsing failed", "message", step.MessageID, "error", err)
		}
		return current
	}

	for _, action := range resp.OrderActions() {
		next, err := order.Apply(current, action)
		if err != nil {
			step.Rejected = append(step.Rejected, fmt.Errorf("%s: %w", action.Type, err))
			logger.WarnContext(ctx, "Parsed action rejected", "message", step.MessageID, "error", err)
			continue
		}
		step.Actions = append(step.Actions, action)
		current = next
	}
	return current
}

// snapshotScripted copies the scripted action and payment so the step does
// not share item pointers with the scenario.
func snapshotScripted(msg scenario.Message, step *Step) error {
	if msg.OrderAction != nil {
		step.ScriptedAction = &scenario.OrderAction{}
		if err := copier.CopyWithOption(step.ScriptedAction, msg.OrderAction, copier.Option{DeepCopy: true}); err != nil {
			return fmt.Errorf("failed to copy scripted action: %w", err)
		}
	}
	if msg.PaymentReceived != nil {
		step.Payment = &scenario.Payment{}
		if err := copier.CopyWithOption(step.Payment, msg.PaymentReceived, copier.Option{DeepCopy: true}); err != nil {
			return fmt.Errorf("failed to copy payment: %w", err)
		}
	}
	return nil
}

func (r *Result) finish(current *order.Order) *Result {
	r.FinalOrder = current
	r.FinalTotal = current.Total()
	return r
}
