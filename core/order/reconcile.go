package order

import (
	"errors"
	"fmt"

	"github.com/koscakluka/ema-ordersim/core/scenario"
	"github.com/koscakluka/ema-ordersim/internal/utils"
)

var (
	ErrMissingItemName   = errors.New("order item missing name")
	ErrUnknownActionType = errors.New("unknown order action type")
)

// Apply folds a single action into the order and returns the resulting order.
// The given order is never modified. A malformed action is rejected as a
// whole, in which case the original order is returned together with the error.
func Apply(o *Order, action scenario.OrderAction) (*Order, error) {
	if o == nil {
		o = New()
	}
	if !action.Type.Valid() {
		return o, fmt.Errorf("%w: %q", ErrUnknownActionType, action.Type)
	}
	for i, item := range action.Items {
		if item.Name == nil {
			return o, fmt.Errorf("item %d: %w", i, ErrMissingItemName)
		}
	}

	next := o.Clone()
	for _, item := range action.Items {
		key := Canonical(*item.Name)
		existing, found := next.entries.Get(key)

		switch action.Type {
		case scenario.ActionAdd:
			if found {
				// Add never overwrites an agreed price.
				existing.Quantity += item.QuantityOr(1)
				next.entries.Set(key, existing)
				continue
			}
			entry := Entry{DisplayName: *item.Name, Quantity: item.QuantityOr(1)}
			if item.Price != nil {
				entry.Price = utils.Ptr(*item.Price)
			}
			next.entries.Set(key, entry)

		case scenario.ActionUpdate:
			// Update only revises quantity, a supplied price is ignored.
			if found && item.Quantity != nil {
				existing.Quantity = *item.Quantity
				next.entries.Set(key, existing)
			}

		case scenario.ActionRemove:
			next.entries.Delete(key)
		}
	}
	return next, nil
}

// Fold applies actions in sequence starting from an empty order. It stops at
// the first rejected action and returns the order reached so far.
func Fold(actions ...scenario.OrderAction) (*Order, error) {
	current := New()
	for i, action := range actions {
		next, err := Apply(current, action)
		if err != nil {
			return current, fmt.Errorf("action %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}
