package cart

// Command is a cart mutation. The set of commands is closed: AddItem,
// RemoveItem, UpdateQuantity and ClearCart.
type Command interface {
	// Kind returns a stable name used for logging and metrics.
	Kind() string

	command()
}

// AddItem adds one unit of Product. Availability is not checked here.
type AddItem struct {
	Product Product
}

// RemoveItem deletes the line for ProductID. Unknown IDs are ignored.
type RemoveItem struct {
	ProductID string
}

// UpdateQuantity replaces the quantity of ProductID. Values below 1 remove
// the line.
type UpdateQuantity struct {
	ProductID string
	Quantity  int
}

// ClearCart empties the cart.
type ClearCart struct{}

func (AddItem) Kind() string        { return "add_item" }
func (RemoveItem) Kind() string     { return "remove_item" }
func (UpdateQuantity) Kind() string { return "update_quantity" }
func (ClearCart) Kind() string      { return "clear_cart" }

func (AddItem) command()        {}
func (RemoveItem) command()     {}
func (UpdateQuantity) command() {}
func (ClearCart) command()      {}

// Reduce applies cmd to s and returns the resulting state. It never modifies
// s, so callers may keep old snapshots around.
func Reduce(s State, cmd Command) State {
	switch c := cmd.(type) {
	case AddItem:
		return s.add(c.Product)
	case RemoveItem:
		return s.remove(c.ProductID)
	case UpdateQuantity:
		return s.setQuantity(c.ProductID, c.Quantity)
	case ClearCart:
		return State{}
	default:
		return s
	}
}
