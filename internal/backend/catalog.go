package backend

import (
	"github.com/gofiber/fiber/v2"

	"vitrina/internal/domain"
)

func (c *Client) ListProducts() ([]domain.Product, error) {
	var out []domain.Product
	if err := c.send(fiber.Get(c.url("products")), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(id string) (domain.Product, error) {
	var p domain.Product
	err := c.send(fiber.Get(c.url("products", id)), &p)
	return p, err
}

func (c *Client) CreateProduct(in domain.ProductInput) (domain.Product, error) {
	var p domain.Product
	err := c.send(fiber.Post(c.url("products")).JSON(in), &p)
	return p, err
}

func (c *Client) UpdateProduct(id string, in domain.ProductInput) (domain.Product, error) {
	var p domain.Product
	err := c.send(fiber.Put(c.url("products", id)).JSON(in), &p)
	return p, err
}

func (c *Client) DeleteProduct(id string) error {
	return c.send(fiber.Delete(c.url("products", id)), nil)
}

// UploadProductImage posts the file as the multipart field "image".
func (c *Client) UploadProductImage(id, filename string, content []byte) (domain.Product, error) {
	var p domain.Product
	a := fiber.Post(c.url("products", "upload", id, "image"))
	a.FileData(&fiber.FormFile{Fieldname: "image", Name: filename, Content: content})
	a.MultipartForm(nil)
	err := c.send(a, &p)
	return p, err
}

func (c *Client) ListCategories() ([]domain.Category, error) {
	var out []domain.Category
	if err := c.send(fiber.Get(c.url("categories")), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListProductDetails(productID string) ([]domain.ProductDetail, error) {
	var out []domain.ProductDetail
	if err := c.send(fiber.Get(c.url("products", productID, "details")), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProductDetail(d domain.ProductDetail) (domain.ProductDetail, error) {
	var out domain.ProductDetail
	err := c.send(fiber.Post(c.url("product-details")).JSON(d), &out)
	return out, err
}

func (c *Client) UpdateProductDetail(d domain.ProductDetail) (domain.ProductDetail, error) {
	var out domain.ProductDetail
	err := c.send(fiber.Put(c.url("product-details", d.ID)).JSON(d), &out)
	return out, err
}

func (c *Client) DeleteProductDetail(id string) error {
	return c.send(fiber.Delete(c.url("product-details", id)), nil)
}
