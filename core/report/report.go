package report

import (
	"fmt"
	"strconv"

	"github.com/koscakluka/ema-ordersim/core/order"
	"github.com/koscakluka/ema-ordersim/core/payment"
	"github.com/koscakluka/ema-ordersim/core/scenario"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single structural error or warning. MessageID is empty only
// for findings about the scenario as a whole.
type Finding struct {
	MessageID string
	Severity  Severity
	Text      string
}

func (f Finding) String() string {
	if f.MessageID == "" {
		return f.Text
	}
	return fmt.Sprintf("[%s] %s", f.MessageID, f.Text)
}

type Summary struct {
	Messages         int  `json:"messages"`
	CustomerMessages int  `json:"customerMessages"`
	SellerMessages   int  `json:"sellerMessages"`
	OrderActions     int  `json:"orderActions"`
	HasPayment       bool `json:"hasPayment"`
}

type Result struct {
	ScenarioName string
	// Valid is false as soon as a single structural error was found.
	// Warnings never affect it.
	Valid    bool
	Errors   []Finding
	Warnings []Finding

	FinalOrder *order.Order
	FinalTotal float64
	Summary    Summary

	Messages []scenario.Message
}

const missingPaymentWarning = "scenario does not end with payment"

// ValidateScenario replays the messages of a scenario in order, folding every
// order action into a running order and checking reported payments against
// it. All issues are collected in one pass.
func ValidateScenario(name string, messages []scenario.Message, opts ...ValidationOption) Result {
	options := ValidationOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	v := validator{
		result: Result{ScenarioName: name, FinalOrder: order.New(), Messages: messages},
		assets: options.AssetStore,
	}
	for i, msg := range messages {
		v.message(scenario.MessageID(msg, i), msg)
	}

	if !v.result.Summary.HasPayment {
		v.warn("", missingPaymentWarning)
	}

	v.result.Summary.Messages = len(messages)
	v.result.FinalTotal = v.result.FinalOrder.Total()
	v.result.Valid = len(v.result.Errors) == 0
	return v.result
}

type validator struct {
	result Result
	assets AssetStore
}

func (v *validator) fail(id, format string, args ...any) {
	v.result.Errors = append(v.result.Errors, Finding{MessageID: id, Severity: SeverityError, Text: fmt.Sprintf(format, args...)})
}

func (v *validator) warn(id, format string, args ...any) {
	v.result.Warnings = append(v.result.Warnings, Finding{MessageID: id, Severity: SeverityWarning, Text: fmt.Sprintf(format, args...)})
}

func (v *validator) message(id string, msg scenario.Message) {
	for _, malformed := range msg.Malformed {
		v.fail(id, "%s", malformed.Error())
	}

	switch {
	case msg.IsMalformed("role"):
	case msg.Role == "":
		v.fail(id, "missing 'role' field")
	case !msg.Role.Valid():
		v.fail(id, "invalid role: '%s' (expected 'customer' or 'seller')", msg.Role)
	case msg.Role == scenario.RoleCustomer:
		v.result.Summary.CustomerMessages++
	case msg.Role == scenario.RoleSeller:
		v.result.Summary.SellerMessages++
	}

	if msg.Text == "" && !msg.IsMalformed("text") {
		v.fail(id, "missing 'text' field")
	}

	if v.assets != nil {
		if msg.AudioPath == "" {
			v.warn(id, "missing 'audioPath' field")
		} else if !v.assets.Exists(msg.AudioPath) {
			v.warn(id, "audio file not found: %s", msg.AudioPath)
		}
	}

	if msg.OrderAction != nil {
		v.result.Summary.OrderActions++
		v.orderAction(id, *msg.OrderAction)
	}

	if msg.PaymentReceived != nil {
		v.result.Summary.HasPayment = true
		v.payment(id, *msg.PaymentReceived)
	}
}

func (v *validator) orderAction(id string, action scenario.OrderAction) {
	wellFormed := true
	if !action.Type.Valid() {
		v.fail(id, "invalid orderAction type: '%s'", action.Type)
		wellFormed = false
	}

	for _, item := range action.Items {
		if item.Name == nil {
			v.fail(id, "order item missing 'name'")
			wellFormed = false
		}
		if item.Quantity == nil {
			v.warn(id, "order item missing 'quantity', defaulting to 1")
		}
		if item.Price == nil {
			v.warn(id, "order item missing 'price'")
		}
	}

	// Malformed actions are already reported above and are not folded.
	if !wellFormed {
		return
	}
	next, err := order.Apply(v.result.FinalOrder, action)
	if err != nil {
		v.fail(id, "order action not applied: %v", err)
		return
	}
	v.result.FinalOrder = next
}

func (v *validator) payment(id string, received scenario.Payment) {
	if received.Amount == nil {
		v.fail(id, "payment missing 'amount'")
	}
	if received.Change == nil {
		v.fail(id, "payment missing 'change'")
	}
	if received.Method == nil {
		v.warn(id, "payment missing 'method'")
	}

	if received.Amount == nil || received.Change == nil || v.result.FinalOrder.IsEmpty() {
		return
	}
	check := payment.Validate(v.result.FinalOrder, *received.Amount, *received.Change)
	if check.Mismatch {
		v.warn(id, "change mismatch: expected %s, got %s", FormatMoney(check.ExpectedChange), FormatMoney(*received.Change))
	}
}

func FormatMoney(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// FormatQuantity prints whole quantities without a fraction, 0.5 as 0.5.
func FormatQuantity(quantity float64) string {
	return strconv.FormatFloat(quantity, 'f', -1, 64)
}
