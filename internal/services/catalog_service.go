package services

import (
	"errors"
	"fmt"
	"strings"

	"vitrina/internal/domain"
)

var ErrUnknownCategory = errors.New("unknown category")

// CatalogAPI is the part of the catalog backend used by the product pages.
type CatalogAPI interface {
	ListProducts() ([]domain.Product, error)
	GetProduct(id string) (domain.Product, error)
	CreateProduct(in domain.ProductInput) (domain.Product, error)
	UpdateProduct(id string, in domain.ProductInput) (domain.Product, error)
	DeleteProduct(id string) error
	UploadProductImage(id, filename string, content []byte) (domain.Product, error)
	ListCategories() ([]domain.Category, error)
	ListProductDetails(productID string) ([]domain.ProductDetail, error)
	CreateProductDetail(d domain.ProductDetail) (domain.ProductDetail, error)
	UpdateProductDetail(d domain.ProductDetail) (domain.ProductDetail, error)
	DeleteProductDetail(id string) error
}

// Upload is an image file received from the product form.
type Upload struct {
	Filename string
	Content  []byte
}

type CatalogService struct {
	API CatalogAPI
}

func NewCatalogService(api CatalogAPI) *CatalogService {
	return &CatalogService{API: api}
}

type ProductPage struct {
	Items    []domain.Product
	Total    int
	Page     int
	PageSize int
	Pages    int
}

// ListProducts filters by name, code or category name and returns one page.
func (s *CatalogService) ListProducts(q string, page, pageSize int) (ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	all, err := s.API.ListProducts()
	if err != nil {
		return ProductPage{}, err
	}
	q = strings.ToLower(strings.TrimSpace(q))
	var matched []domain.Product
	for _, p := range all {
		if q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Code), q) ||
			strings.Contains(strings.ToLower(p.Category.Name), q) {
			matched = append(matched, p)
		}
	}

	out := ProductPage{Total: len(matched), Page: page, PageSize: pageSize}
	out.Pages = (len(matched) + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start < len(matched) {
		end := min(start+pageSize, len(matched))
		out.Items = matched[start:end]
	}
	return out, nil
}

func (s *CatalogService) GetProduct(id string) (domain.Product, error) {
	return s.API.GetProduct(id)
}

func (s *CatalogService) Categories() ([]domain.Category, error) {
	return s.API.ListCategories()
}

// SaveProduct creates the product when id is empty and updates it otherwise.
// An attached image is uploaded to the saved product afterwards.
func (s *CatalogService) SaveProduct(id string, in domain.ProductInput, img *Upload) (domain.Product, error) {
	if in.InventoryState == "" {
		in.InventoryState = domain.StateForStock(in.Stock)
	}
	cats, err := s.API.ListCategories()
	if err != nil {
		return domain.Product{}, err
	}
	in.Category = nil
	for _, c := range cats {
		if c.ID == in.CategoryID {
			cat := c
			in.Category = &cat
			break
		}
	}
	if in.Category == nil {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrUnknownCategory, in.CategoryID)
	}

	var saved domain.Product
	if id == "" {
		saved, err = s.API.CreateProduct(in)
	} else {
		saved, err = s.API.UpdateProduct(id, in)
	}
	if err != nil {
		return domain.Product{}, err
	}
	if img == nil || len(img.Content) == 0 {
		return saved, nil
	}
	target := saved.ID
	if target == "" {
		target = id
	}
	withImage, err := s.API.UploadProductImage(target, img.Filename, img.Content)
	if err != nil {
		return saved, fmt.Errorf("product saved, image upload failed: %w", err)
	}
	return withImage, nil
}

func (s *CatalogService) DeleteProduct(id string) error {
	return s.API.DeleteProduct(id)
}

func (s *CatalogService) UploadImage(id string, img Upload) (domain.Product, error) {
	return s.API.UploadProductImage(id, img.Filename, img.Content)
}

func (s *CatalogService) Details(productID string) ([]domain.ProductDetail, error) {
	return s.API.ListProductDetails(productID)
}

// SaveDetail attaches the owning product, then creates or updates the variant.
func (s *CatalogService) SaveDetail(productID string, d domain.ProductDetail) (domain.ProductDetail, error) {
	owner, err := s.API.GetProduct(productID)
	if err != nil {
		return domain.ProductDetail{}, err
	}
	d.Product = &owner
	if d.ID == "" {
		return s.API.CreateProductDetail(d)
	}
	return s.API.UpdateProductDetail(d)
}

func (s *CatalogService) DeleteDetail(id string) error {
	return s.API.DeleteProductDetail(id)
}
