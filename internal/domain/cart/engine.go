package cart

// Engine holds the current State of one shopping session.
//
// An Engine belongs to exactly one session and is not safe for concurrent
// use; session stores serialize access to it.
type Engine struct {
	state State
}

// NewEngine returns an Engine with an empty cart.
func NewEngine() *Engine {
	return &Engine{}
}

// Restore returns an Engine positioned at s.
func Restore(s State) *Engine {
	return &Engine{state: s}
}

// State returns the current snapshot.
func (e *Engine) State() State {
	return e.state
}

// IsEmpty reports whether the cart has no lines.
func (e *Engine) IsEmpty() bool {
	return e.state.IsEmpty()
}

// Dispatch applies cmd and returns the new state.
func (e *Engine) Dispatch(cmd Command) State {
	e.state = Reduce(e.state, cmd)
	return e.state
}

// Add adds one unit of p.
func (e *Engine) Add(p Product) State {
	return e.Dispatch(AddItem{Product: p})
}

// Remove deletes the line for productID if present.
func (e *Engine) Remove(productID string) State {
	return e.Dispatch(RemoveItem{ProductID: productID})
}

// SetQuantity sets the quantity of productID; quantities below 1 remove it.
func (e *Engine) SetQuantity(productID string, quantity int) State {
	return e.Dispatch(UpdateQuantity{ProductID: productID, Quantity: quantity})
}

// Clear empties the cart.
func (e *Engine) Clear() State {
	return e.Dispatch(ClearCart{})
}

// CheckoutMessage returns the percent-encoded order message for the current
// cart, or an empty string when the cart is empty.
func (e *Engine) CheckoutMessage(addr *DeliveryAddress) string {
	return EncodeMessage(FormatMessage(e.state, addr))
}
