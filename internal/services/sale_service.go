package services

import (
	"errors"
	"fmt"

	"vitrina/internal/domain"
	"vitrina/internal/pos"
	"vitrina/internal/repos"
)

var (
	ErrVariantNotFound = errors.New("variant is not available for sale")
	ErrCartNotCleared  = errors.New("sale registered, cart not cleared")
)

// SalesAPI is the part of the catalog backend used by the sale screen.
type SalesAPI interface {
	ListAvailableProducts() ([]domain.ProductAvailable, error)
	ListCustomers() ([]domain.Customer, error)
	CreateCustomer(fullName, phone string) (domain.Customer, error)
	CreateSale(req domain.SaleRequest) error
}

type SaleService struct {
	API   SalesAPI
	Carts *repos.CartRepo
}

func NewSaleService(api SalesAPI, carts *repos.CartRepo) *SaleService {
	return &SaleService{API: api, Carts: carts}
}

func (s *SaleService) Available() ([]domain.ProductAvailable, error) {
	return s.API.ListAvailableProducts()
}

func (s *SaleService) Cart(sessionID string) (*pos.Cart, error) {
	return s.Carts.Load(sessionID)
}

// AddToCart adds one unit of the variant using its current stock from the backend.
func (s *SaleService) AddToCart(sessionID, detailID string) (*pos.Cart, error) {
	avail, err := s.API.ListAvailableProducts()
	if err != nil {
		return nil, err
	}
	var variant *domain.ProductAvailable
	for i := range avail {
		if avail[i].ProductDetailID == detailID {
			variant = &avail[i]
			break
		}
	}
	if variant == nil {
		return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, detailID)
	}
	return s.Carts.Update(sessionID, func(c *pos.Cart) error { return c.Add(*variant) })
}

func (s *SaleService) UpdateQuantity(sessionID, detailID string, qty int) (*pos.Cart, error) {
	return s.Carts.Update(sessionID, func(c *pos.Cart) error { return c.SetQuantity(detailID, qty) })
}

func (s *SaleService) RemoveFromCart(sessionID, detailID string) (*pos.Cart, error) {
	return s.Carts.Update(sessionID, func(c *pos.Cart) error {
		c.Remove(detailID)
		return nil
	})
}

func (s *SaleService) Customers() ([]domain.Customer, error) {
	return s.API.ListCustomers()
}

func (s *SaleService) CreateCustomer(fullName, phone string) (domain.Customer, error) {
	return s.API.CreateCustomer(fullName, phone)
}

// Register submits the session cart as a sale. The cart is cleared only
// after the backend accepts it.
func (s *SaleService) Register(sessionID, customerID string) (domain.SaleRequest, error) {
	cart, err := s.Carts.Load(sessionID)
	if err != nil {
		return domain.SaleRequest{}, err
	}
	req, err := cart.SaleRequest(customerID)
	if err != nil {
		return domain.SaleRequest{}, err
	}
	if err := s.API.CreateSale(req); err != nil {
		return req, err
	}
	if err := s.Carts.Clear(sessionID); err != nil {
		return req, fmt.Errorf("%w: %w", ErrCartNotCleared, err)
	}
	return req, nil
}
