package backend

import (
	"github.com/gofiber/fiber/v2"

	"vitrina/internal/domain"
)

// ListAvailableProducts returns the sellable variants with their stock.
func (c *Client) ListAvailableProducts() ([]domain.ProductAvailable, error) {
	var out []domain.ProductAvailable
	if err := c.send(fiber.Get(c.url("sales", "available-products")), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListCustomers() ([]domain.Customer, error) {
	var out []domain.Customer
	if err := c.send(fiber.Get(c.url("customers")), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCustomer(fullName, phone string) (domain.Customer, error) {
	var out domain.Customer
	body := domain.Customer{FullName: fullName, Phone: phone}
	err := c.send(fiber.Post(c.url("customers")).JSON(body), &out)
	return out, err
}

// CreateSale submits a composed sale. The response body is not interpreted.
func (c *Client) CreateSale(req domain.SaleRequest) error {
	return c.send(fiber.Post(c.url("sales")).JSON(req), nil)
}
