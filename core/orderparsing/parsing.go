package orderparsing

import (
	"context"

	"github.com/koscakluka/ema-ordersim/core/scenario"
)

// Request is what the order-parsing service receives for one customer
// utterance.
type Request struct {
	Transcript        string               `json:"transcript"`
	CurrentOrderItems []scenario.OrderItem `json:"currentOrderItems"`
}

type Actions struct {
	Add    []scenario.OrderItem `json:"add,omitempty"`
	Update []scenario.OrderItem `json:"update,omitempty"`
	Remove []scenario.OrderItem `json:"remove,omitempty"`
}

// Response is the structured order change recognised in an utterance. Items
// is an older top-level form of Actions.Add and is treated the same way.
type Response struct {
	Actions Actions              `json:"actions"`
	Items   []scenario.OrderItem `json:"items,omitempty"`
}

// Parser turns a customer utterance into order changes.
type Parser interface {
	ParseOrder(ctx context.Context, req Request) (*Response, error)
}

// OrderActions converts the response into order actions. Kinds are always
// emitted as add, update, remove regardless of how the service ordered them,
// and kinds without items are left out.
func (r *Response) OrderActions() []scenario.OrderAction {
	if r == nil {
		return nil
	}

	var actions []scenario.OrderAction
	added := make([]scenario.OrderItem, 0, len(r.Actions.Add)+len(r.Items))
	added = append(added, r.Actions.Add...)
	added = append(added, r.Items...)
	if len(added) > 0 {
		actions = append(actions, scenario.OrderAction{Type: scenario.ActionAdd, Items: added})
	}
	if len(r.Actions.Update) > 0 {
		actions = append(actions, scenario.OrderAction{Type: scenario.ActionUpdate, Items: r.Actions.Update})
	}
	if len(r.Actions.Remove) > 0 {
		actions = append(actions, scenario.OrderAction{Type: scenario.ActionRemove, Items: r.Actions.Remove})
	}
	return actions
}
