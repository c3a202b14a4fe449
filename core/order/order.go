package order

import (
	"strings"

	"github.com/koscakluka/ema-ordersim/core/scenario"
	"github.com/koscakluka/ema-ordersim/internal/utils"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Entry is the aggregated state of one item in a running order.
type Entry struct {
	// DisplayName keeps the casing the item was first added with.
	DisplayName string
	Quantity    float64
	// Price is nil while no price has been agreed for the item.
	Price *float64
}

// Subtotal is price times quantity, with a missing price counting as zero.
func (e Entry) Subtotal() float64 {
	return utils.Deref(e.Price, 0) * e.Quantity
}

// Order is the running order of a scenario, keyed by canonical item name and
// kept in first-seen order.
type Order struct {
	entries *orderedmap.OrderedMap[string, Entry]
}

// Canonical is the only item matching policy: names match when they are
// equal ignoring case.
func Canonical(name string) string {
	return strings.ToLower(name)
}

func New() *Order {
	return &Order{entries: orderedmap.New[string, Entry]()}
}

func (o *Order) Clone() *Order {
	clone := New()
	if o == nil || o.entries == nil {
		return clone
	}
	for pair := o.entries.Oldest(); pair != nil; pair = pair.Next() {
		entry := pair.Value
		if entry.Price != nil {
			entry.Price = utils.Ptr(*entry.Price)
		}
		clone.entries.Set(pair.Key, entry)
	}
	return clone
}

func (o *Order) Len() int {
	if o == nil || o.entries == nil {
		return 0
	}
	return o.entries.Len()
}

func (o *Order) IsEmpty() bool { return o.Len() == 0 }

func (o *Order) Get(name string) (Entry, bool) {
	if o == nil || o.entries == nil {
		return Entry{}, false
	}
	return o.entries.Get(Canonical(name))
}

// Entries returns a copy of the entries in first-seen order.
func (o *Order) Entries() []Entry {
	if o == nil || o.entries == nil {
		return nil
	}
	entries := make([]Entry, 0, o.entries.Len())
	for pair := o.entries.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, pair.Value)
	}
	return entries
}

// Items converts the order back into order items, the shape the order-parsing
// service expects as its current order.
func (o *Order) Items() []scenario.OrderItem {
	entries := o.Entries()
	items := make([]scenario.OrderItem, 0, len(entries))
	for _, entry := range entries {
		item := scenario.OrderItem{
			Name:     utils.Ptr(entry.DisplayName),
			Quantity: utils.Ptr(entry.Quantity),
		}
		if entry.Price != nil {
			item.Price = utils.Ptr(*entry.Price)
		}
		items = append(items, item)
	}
	return items
}

// Total sums the subtotals of all entries. Entries without a price add nothing.
func (o *Order) Total() float64 {
	var total float64
	for _, entry := range o.Entries() {
		total += entry.Subtotal()
	}
	return total
}

// Unpriced lists the display names of entries that have no price yet.
func (o *Order) Unpriced() []string {
	var names []string
	for _, entry := range o.Entries() {
		if entry.Price == nil {
			names = append(names, entry.DisplayName)
		}
	}
	return names
}

// Equal reports whether both orders hold the same entries in the same order.
func (o *Order) Equal(other *Order) bool {
	a, b := o.Entries(), other.Entries()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].DisplayName != b[i].DisplayName || a[i].Quantity != b[i].Quantity {
			return false
		}
		if (a[i].Price == nil) != (b[i].Price == nil) {
			return false
		}
		if a[i].Price != nil && *a[i].Price != *b[i].Price {
			return false
		}
	}
	return true
}
