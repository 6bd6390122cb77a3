// Package cart implements the shopping cart engine: an ordered set of line
// items with derived totals, mutated only through commands.
package cart

import (
	"github.com/shopspring/decimal"
)

// Product is the catalog data a cart line needs to render and check out.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Subcategory string
	Price       decimal.Decimal
	Image       string
	InStock     bool
}

// Line is one product-and-quantity pair. Quantity is at least 1 for every
// line held by a State.
type Line struct {
	Product
	Quantity int
}

// Subtotal returns the unit price multiplied by the quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is an immutable cart snapshot. Lines keep insertion order and hold at
// most one entry per product ID. The zero value is the empty cart.
//
// Total and ItemCount are computed from the lines on every call, so they can
// never drift from the line collection.
type State struct {
	lines []Line
}

// Lines returns a copy of the cart lines in insertion order.
func (s State) Lines() []Line {
	if len(s.lines) == 0 {
		return nil
	}
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line returns the line for productID.
func (s State) Line(productID string) (Line, bool) {
	if i := s.index(productID); i >= 0 {
		return s.lines[i], true
	}
	return Line{}, false
}

// Len returns the number of distinct products in the cart.
func (s State) Len() int {
	return len(s.lines)
}

// IsEmpty reports whether the cart has no lines.
func (s State) IsEmpty() bool {
	return len(s.lines) == 0
}

// Total returns the sum of price * quantity across all lines.
func (s State) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range s.lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// ItemCount returns the sum of quantities across all lines.
func (s State) ItemCount() int {
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

func (s State) index(productID string) int {
	for i := range s.lines {
		if s.lines[i].ID == productID {
			return i
		}
	}
	return -1
}

// clone returns a copy of the line slice with room for extra lines.
func (s State) clone(extra int) []Line {
	lines := make([]Line, len(s.lines), len(s.lines)+extra)
	copy(lines, s.lines)
	return lines
}

func stateOf(lines []Line) State {
	if len(lines) == 0 {
		return State{}
	}
	return State{lines: lines}
}

func (s State) add(p Product) State {
	if p.ID == "" {
		return s
	}
	if i := s.index(p.ID); i >= 0 {
		lines := s.clone(0)
		lines[i].Quantity++
		return stateOf(lines)
	}
	lines := s.clone(1)
	return stateOf(append(lines, Line{Product: p, Quantity: 1}))
}

func (s State) remove(productID string) State {
	i := s.index(productID)
	if i < 0 {
		return s
	}
	lines := make([]Line, 0, len(s.lines)-1)
	lines = append(lines, s.lines[:i]...)
	lines = append(lines, s.lines[i+1:]...)
	return stateOf(lines)
}

func (s State) setQuantity(productID string, quantity int) State {
	quantity = max(quantity, 0)
	if quantity == 0 {
		return s.remove(productID)
	}
	i := s.index(productID)
	if i < 0 {
		return s
	}
	lines := s.clone(0)
	lines[i].Quantity = quantity
	return stateOf(lines)
}

// Replay rebuilds a State from previously stored lines by running them
// through the regular commands. Lines with an empty ID or a non-positive
// quantity are dropped, and repeated IDs are merged by summing quantities.
func Replay(lines []Line) State {
	var s State
	for _, l := range lines {
		if l.ID == "" || l.Quantity <= 0 {
			continue
		}
		s = s.add(l.Product)
		cur, _ := s.Line(l.ID)
		s = s.setQuantity(l.ID, cur.Quantity-1+l.Quantity)
	}
	return s
}
