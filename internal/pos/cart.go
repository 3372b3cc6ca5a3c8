// Package pos holds the point-of-sale cart and turns it into a sale request.
package pos

import (
	"errors"

	"github.com/shopspring/decimal"

	"vitrina/internal/domain"
)

var (
	ErrInsufficientStock = errors.New("quantity exceeds available stock")
	ErrLineNotFound      = errors.New("variant not in cart")
	ErrEmptyCart         = errors.New("cart is empty")
)

// Line is a variant in the cart. Quantity never exceeds Stock.
type Line struct {
	domain.ProductAvailable
	Quantity int `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart keeps lines in insertion order. The zero value is an empty cart.
type Cart struct {
	lines []Line
}

func NewCart(lines ...Line) *Cart {
	c := &Cart{lines: make([]Line, 0, len(lines))}
	c.lines = append(c.lines, lines...)
	return c
}

func (c *Cart) index(detailID string) int {
	for i := range c.lines {
		if c.lines[i].ProductDetailID == detailID {
			return i
		}
	}
	return -1
}

// Add puts one unit of the variant in the cart.
func (c *Cart) Add(p domain.ProductAvailable) error {
	if i := c.index(p.ProductDetailID); i >= 0 {
		line := &c.lines[i]
		line.Stock = p.Stock
		if line.Quantity >= line.Stock {
			return ErrInsufficientStock
		}
		line.Quantity++
		return nil
	}
	if p.Stock <= 0 {
		return ErrInsufficientStock
	}
	c.lines = append(c.lines, Line{ProductAvailable: p, Quantity: 1})
	return nil
}

// SetQuantity replaces a line's quantity. Zero or below removes the line;
// above stock is rejected and the previous quantity kept.
func (c *Cart) SetQuantity(detailID string, qty int) error {
	i := c.index(detailID)
	if i < 0 {
		return ErrLineNotFound
	}
	if qty <= 0 {
		c.Remove(detailID)
		return nil
	}
	if qty > c.lines[i].Stock {
		return ErrInsufficientStock
	}
	c.lines[i].Quantity = qty
	return nil
}

func (c *Cart) Remove(detailID string) {
	if i := c.index(detailID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func (c *Cart) Contains(detailID string) bool { return c.index(detailID) >= 0 }

func (c *Cart) Len() int { return len(c.lines) }

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// SaleRequest packages the cart as a paid cash sale. customerID may be empty.
func (c *Cart) SaleRequest(customerID string) (domain.SaleRequest, error) {
	if len(c.lines) == 0 {
		return domain.SaleRequest{}, ErrEmptyCart
	}
	subtotal := c.Total()
	discount := decimal.Zero
	total := subtotal.Sub(discount)

	items := make([]domain.SaleItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, domain.SaleItem{
			ProductDetailID: l.ProductDetailID,
			Quantity:        l.Quantity,
			UnitPrice:       l.Price,
			Subtotal:        l.Subtotal(),
		})
	}
	return domain.SaleRequest{
		Type:          domain.SaleTypeDirect,
		Status:        domain.SaleStatusPaid,
		CustomerID:    customerID,
		Subtotal:      subtotal,
		Discount:      discount,
		Total:         total,
		AmountPaid:    total,
		PaymentMethod: domain.PaymentMethodCash,
		SaleItems:     items,
	}, nil
}
