package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// The catalog backend speaks plain JSON numbers for money.
	decimal.MarshalJSONWithoutQuotes = true
}

type InventoryState string

const (
	StateAvailable  InventoryState = "DISPONIBLE"
	StateLowStock   InventoryState = "BAJO_STOCK"
	StateOutOfStock InventoryState = "AGOTADO"
)

// InventoryStates lists the selectable states in display order.
var InventoryStates = []InventoryState{StateAvailable, StateLowStock, StateOutOfStock}

func (s InventoryState) Valid() bool {
	switch s {
	case StateAvailable, StateLowStock, StateOutOfStock:
		return true
	}
	return false
}

// Severity maps a state to the tag style used when listing products.
func (s InventoryState) Severity() string {
	switch s {
	case StateAvailable:
		return "success"
	case StateLowStock:
		return "warn"
	case StateOutOfStock:
		return "danger"
	default:
		return "info"
	}
}

// StateForStock suggests a state for a stock level: 5+ DISPONIBLE, 1-4 BAJO_STOCK, else AGOTADO.
func StateForStock(stock int) InventoryState {
	switch {
	case stock >= 5:
		return StateAvailable
	case stock > 0:
		return StateLowStock
	}
	return StateOutOfStock
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Stock          int             `json:"stock"`
	Image          string          `json:"image"`
	Rating         float64         `json:"rating"`
	InventoryState InventoryState  `json:"inventoryState"`
	Category       Category        `json:"category"`
}

// ProductInput is the create/update payload of the product form.
type ProductInput struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	CategoryID     string          `json:"categoryId"`
	Category       *Category       `json:"category,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Stock          int             `json:"stock"`
	InventoryState InventoryState  `json:"inventoryState"`
}

// ProductDetail is a color/size/warehouse variant of a product.
type ProductDetail struct {
	ID        string   `json:"id,omitempty"`
	Color     string   `json:"color"`
	Size      string   `json:"size"`
	Stock     int      `json:"stock"`
	Warehouse string   `json:"warehouse"`
	Product   *Product `json:"product"`
}

// ProductAvailable is the sale-facing view of a variant with stock.
type ProductAvailable struct {
	CategoryName    string          `json:"categoryName"`
	ProductName     string          `json:"productName"`
	Image           string          `json:"image"`
	Price           decimal.Decimal `json:"price"`
	ProductDetailID string          `json:"productDetailId"`
	Color           string          `json:"color"`
	Size            string          `json:"size"`
	Stock           int             `json:"stock"`
	Warehouse       string          `json:"warehouse"`
}

type Customer struct {
	ID       string `json:"id,omitempty"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

// ImageURL resolves a backend image path, falling back to the bundled placeholder.
func ImageURL(apiURL, path string) string {
	if strings.TrimSpace(path) == "" {
		return "/static/no-image.png"
	}
	return apiURL + path
}
