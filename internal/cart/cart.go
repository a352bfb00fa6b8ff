package cart

import (
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
)

// Line is one product in a cart with the display fields copied at add time.
type Line struct {
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	Brand     string           `json:"brand"`
	Category  catalog.Category `json:"category"`
	Price     decimal.Decimal  `json:"price"`
	ImageURL  string           `json:"imageUrl"`
	Quantity  int              `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an insertion-ordered set of lines, at most one per product.
type Cart struct {
	Lines   []Line `json:"lines"`
	Visible bool   `json:"visible"`
}

// Add increments the product's line or appends a new one, and opens the cart view.
func (c *Cart) Add(p catalog.Product) {
	c.Visible = true
	if i := c.index(p.ID); i >= 0 {
		c.Lines[i].Quantity++
		return
	}
	c.Lines = append(c.Lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		Brand:     p.Brand,
		Category:  p.Category,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Quantity:  1,
	})
}

func (c *Cart) Remove(productID string) {
	if i := c.index(productID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

// UpdateQuantity adds delta to the line's quantity, never going below 1.
func (c *Cart) UpdateQuantity(productID string, delta int) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.Lines[i].Quantity = max(1, c.Lines[i].Quantity+delta)
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) Snapshot() []Line {
	return append([]Line(nil), c.Lines...)
}

func (c *Cart) Clear() {
	c.Lines = nil
}

func (c *Cart) index(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
