package payment

import (
	"math"

	"github.com/koscakluka/ema-ordersim/core/order"
)

// Tolerance is the largest accepted difference between the reported and the
// expected change, one cent.
const Tolerance = 0.01

type Result struct {
	Total          float64
	ExpectedChange float64
	Mismatch       bool
}

// Validate compares reported change against the change expected from the
// order total. Callers check that amount and change were reported at all.
func Validate(o *order.Order, amount, change float64) Result {
	total := o.Total()
	expectedChange := amount - total
	return Result{
		Total:          total,
		ExpectedChange: expectedChange,
		Mismatch:       math.Abs(expectedChange-change) > Tolerance,
	}
}
