// Package cart holds the per-session shopping cart.
package cart

import (
	"fmt"
	"sort"
)

// MaxLineQuantity caps the quantity of a single cart line
const MaxLineQuantity = 100

// ErrInvalidQuantity is returned when a quantity is not positive or the line
// would exceed MaxLineQuantity
var ErrInvalidQuantity = fmt.Errorf("quantity must be between 1 and %d", MaxLineQuantity)

// Cart maps menu item ids to quantities
type Cart struct {
	Items map[uint]int `json:"items"`
}

// Line is one cart entry
type Line struct {
	MenuItemID uint `json:"menu_item_id"`
	Quantity   int  `json:"quantity"`
}

// New returns an empty cart
func New() *Cart {
	return &Cart{Items: make(map[uint]int)}
}

// Add increases the quantity of an item
func (c *Cart) Add(itemID uint, qty int) error {
	if qty <= 0 || qty > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	c.ensure()
	if c.Items[itemID] > MaxLineQuantity-qty {
		return ErrInvalidQuantity
	}
	c.Items[itemID] += qty
	return nil
}

// Set replaces the quantity of an item. A zero quantity removes the line.
func (c *Cart) Set(itemID uint, qty int) error {
	if qty < 0 || qty > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	c.ensure()
	if qty == 0 {
		delete(c.Items, itemID)
		return nil
	}
	c.Items[itemID] = qty
	return nil
}

// Remove drops an item from the cart
func (c *Cart) Remove(itemID uint) {
	delete(c.Items, itemID)
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = make(map[uint]int)
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Lines returns the cart entries ordered by item id
func (c *Cart) Lines() []Line {
	if c == nil {
		return nil
	}
	lines := make([]Line, 0, len(c.Items))
	for id, qty := range c.Items {
		lines = append(lines, Line{MenuItemID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].MenuItemID < lines[j].MenuItemID })
	return lines
}

func (c *Cart) ensure() {
	if c.Items == nil {
		c.Items = make(map[uint]int)
	}
}
