package domain

import "github.com/shopspring/decimal"

const (
	SaleTypeDirect    = "direct_sale"
	SaleStatusPaid    = "paid"
	PaymentMethodCash = "cash"
)

type SaleItem struct {
	ProductDetailID string          `json:"productDetailId"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// SaleRequest is the body posted to /sales.
type SaleRequest struct {
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	CustomerID    string          `json:"customerId,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	PaymentMethod string          `json:"paymentMethod"`
	SaleItems     []SaleItem      `json:"saleItems"`
}
