package handlers

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"vitrina/internal/backend"
	"vitrina/internal/domain"
	"vitrina/internal/log"
	"vitrina/internal/services"
	"vitrina/internal/validate"
)

const productsPageSize = 10

var (
	errImageTooLarge = errors.New("image exceeds upload limit")
	errImageType     = errors.New("unsupported image type")
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

type ProductHandler struct {
	Catalog   *services.CatalogService
	APIURL    string
	MaxUpload int
}

// productRow is a product as shown in the listing.
type productRow struct {
	ID       string
	Code     string
	Name     string
	Category string
	Price    string
	Stock    int
	State    domain.InventoryState
	Severity string
	ImageURL string
}

// productForm carries raw form values so a rejected form can be redisplayed.
type productForm struct {
	ID             string
	Name           string
	Description    string
	CategoryID     string
	Price          string
	Stock          string
	InventoryState string
	ImageURL       string
}

type detailForm struct {
	ID        string
	Color     string
	Size      string
	Stock     string
	Warehouse string
}

func (h *ProductHandler) row(p domain.Product) productRow {
	return productRow{
		ID:       p.ID,
		Code:     p.Code,
		Name:     p.Name,
		Category: p.Category.Name,
		Price:    p.Price.StringFixed(2),
		Stock:    p.Stock,
		State:    p.InventoryState,
		Severity: p.InventoryState.Severity(),
		ImageURL: domain.ImageURL(h.APIURL, p.Image),
	}
}

func (h *ProductHandler) Home(c *fiber.Ctx) error {
	return render(c, "home", nil)
}

// List serves both /productos and /categorias: the filter matches name, code or category.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	q := ""
	if raw := c.Query("q"); strings.TrimSpace(raw) != "" {
		var ok bool
		if q, ok = validate.Q(raw); !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "q"})
			c.Status(fiber.StatusBadRequest)
			return render(c, "products", fiber.Map{"Q": raw, "Err": "Filtro inválido"})
		}
	}
	page := validate.Page(c.Query("page"))

	res, err := h.Catalog.ListProducts(q, page, productsPageSize)
	if err != nil {
		log.Error(c, "product.list", err, nil)
		c.Status(fiber.StatusBadGateway)
		return render(c, "products", fiber.Map{"Q": q, "Err": "No se pudo cargar el catálogo"})
	}
	rows := make([]productRow, 0, len(res.Items))
	for _, p := range res.Items {
		rows = append(rows, h.row(p))
	}
	data := fiber.Map{
		"Q":     q,
		"Rows":  rows,
		"Total": res.Total,
		"Page":  res.Page,
		"Pages": res.Pages,
	}
	if res.Page > 1 {
		data["PrevPage"] = res.Page - 1
	}
	if res.Page < res.Pages {
		data["NextPage"] = res.Page + 1
	}
	return render(c, "products", data)
}

// Form shows the empty product form, or the stored product for /productos/:id/editar.
func (h *ProductHandler) Form(c *fiber.Ctx) error {
	form := productForm{InventoryState: string(domain.StateAvailable), Stock: "0"}
	if raw := c.Params("id"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "product"})
			return notFound(c, "Producto no encontrado")
		}
		p, err := h.Catalog.GetProduct(id)
		if backend.IsNotFound(err) {
			return notFound(c, "Producto no encontrado")
		}
		if err != nil {
			return err
		}
		form = productForm{
			ID:             p.ID,
			Name:           p.Name,
			Description:    p.Description,
			CategoryID:     p.Category.ID,
			Price:          p.Price.StringFixed(2),
			Stock:          strconv.Itoa(p.Stock),
			InventoryState: string(p.InventoryState),
			ImageURL:       domain.ImageURL(h.APIURL, p.Image),
		}
	}
	return h.renderForm(c, fiber.StatusOK, form, nil)
}

func (h *ProductHandler) renderForm(c *fiber.Ctx, status int, form productForm, errs []string) error {
	cats, err := h.Catalog.Categories()
	if err != nil {
		log.Error(c, "category.list", err, nil)
		errs = append(errs, "No se pudieron cargar las categorías")
	}
	c.Status(status)
	return render(c, "product_form", fiber.Map{
		"Form":       form,
		"Categories": cats,
		"States":     domain.InventoryStates,
		"Errs":       errs,
	})
}

func parseProductForm(c *fiber.Ctx) (productForm, domain.ProductInput, []string) {
	form := productForm{
		Name:           c.FormValue("name"),
		Description:    c.FormValue("description"),
		CategoryID:     c.FormValue("categoryId"),
		Price:          c.FormValue("price"),
		Stock:          c.FormValue("stock"),
		InventoryState: c.FormValue("inventoryState"),
	}
	var in domain.ProductInput
	var errs []string
	var ok bool
	if in.Name, ok = validate.Text(form.Name, 100); !ok {
		errs = append(errs, "El nombre es obligatorio (máx. 100 caracteres)")
	}
	if in.Description, ok = validate.Text(form.Description, 500); !ok {
		errs = append(errs, "La descripción es obligatoria (máx. 500 caracteres)")
	}
	if in.CategoryID, ok = validate.ID(form.CategoryID); !ok {
		errs = append(errs, "Seleccione una categoría")
	}
	if strings.TrimSpace(form.Price) == "" {
		errs = append(errs, "El precio es obligatorio")
	} else if in.Price, ok = validate.Price(form.Price); !ok {
		errs = append(errs, "Precio inválido")
	}
	if strings.TrimSpace(form.Stock) == "" {
		errs = append(errs, "El stock es obligatorio")
	} else if in.Stock, ok = validate.Stock(form.Stock); !ok {
		errs = append(errs, "Stock inválido")
	}
	if in.InventoryState, ok = validate.InventoryState(form.InventoryState); !ok {
		errs = append(errs, "Estado de inventario inválido")
	}
	return form, in, errs
}

// upload reads the optional "image" file; a request without one yields nil.
func (h *ProductHandler) upload(c *fiber.Ctx) (*services.Upload, error) {
	fh, err := c.FormFile("image")
	if err != nil || fh == nil || fh.Size == 0 {
		return nil, nil
	}
	if h.MaxUpload > 0 && fh.Size > int64(h.MaxUpload) {
		return nil, errImageTooLarge
	}
	name := filepath.Base(fh.Filename)
	if !imageExts[strings.ToLower(filepath.Ext(name))] {
		return nil, errImageType
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &services.Upload{Filename: name, Content: content}, nil
}

func uploadProblem(err error) string {
	switch {
	case errors.Is(err, errImageTooLarge):
		return "La imagen supera el tamaño permitido"
	case errors.Is(err, errImageType):
		return "Formato de imagen no soportado"
	}
	return "No se pudo leer la imagen"
}

func (h *ProductHandler) Save(c *fiber.Ctx) error {
	id := ""
	if raw := c.Params("id"); raw != "" {
		var ok bool
		if id, ok = validate.ID(raw); !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "product"})
			return notFound(c, "Producto no encontrado")
		}
	}
	form, in, errs := parseProductForm(c)
	form.ID = id
	img, err := h.upload(c)
	if err != nil {
		errs = append(errs, uploadProblem(err))
	}
	if len(errs) > 0 {
		log.Security(c, "validation.fail", map[string]any{"field": "product_form", "count": len(errs)})
		return h.renderForm(c, fiber.StatusBadRequest, form, errs)
	}

	p, err := h.Catalog.SaveProduct(id, in, img)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrUnknownCategory):
		log.Security(c, "validation.fail", map[string]any{"field": "categoryId"})
		return h.renderForm(c, fiber.StatusBadRequest, form, []string{"La categoría no existe"})
	case p.ID != "":
		// Saved, but the image did not make it.
		log.Error(c, "product.image.upload", err, map[string]any{"product_id": p.ID})
		log.Audit(c, "product.save", map[string]any{"product_id": p.ID, "created": id == ""})
		flash(c, Notice{Severity: "warn", Summary: "Producto guardado", Detail: "No se pudo subir la imagen"})
		return c.Redirect("/productos")
	case backend.IsNotFound(err):
		return notFound(c, "Producto no encontrado")
	default:
		log.Error(c, "product.save", err, map[string]any{"product_id": id})
		detail := backend.Message(err)
		if detail == "" {
			detail = "No se pudo guardar el producto"
		}
		return h.renderForm(c, fiber.StatusBadGateway, form, []string{detail})
	}

	log.Audit(c, "product.save", map[string]any{"product_id": p.ID, "created": id == "", "image": img != nil})
	flash(c, Notice{Severity: "success", Summary: "Éxito", Detail: fmt.Sprintf("Producto %q guardado", p.Name)})
	return c.Redirect("/productos")
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "Producto no encontrado")
	}
	if err := h.Catalog.DeleteProduct(id); err != nil {
		log.Error(c, "product.delete", err, map[string]any{"product_id": id})
		flash(c, Notice{Severity: "error", Summary: "Error", Detail: "No se pudo eliminar el producto"})
		return c.Redirect("/productos")
	}
	log.Audit(c, "product.delete", map[string]any{"product_id": id})
	flash(c, Notice{Severity: "success", Summary: "Éxito", Detail: "Producto eliminado"})
	return c.Redirect("/productos")
}

// Image replaces the product image on its own, outside the edit form.
func (h *ProductHandler) Image(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "Producto no encontrado")
	}
	back := "/productos/" + id + "/editar"
	img, err := h.upload(c)
	if err != nil || img == nil {
		detail := "Seleccione una imagen"
		if err != nil {
			detail = uploadProblem(err)
		}
		log.Security(c, "validation.fail", map[string]any{"field": "image"})
		flash(c, Notice{Severity: "warn", Summary: "Imagen", Detail: detail})
		return c.Redirect(back)
	}
	if _, err := h.Catalog.UploadImage(id, *img); err != nil {
		log.Error(c, "product.image.upload", err, map[string]any{"product_id": id})
		flash(c, Notice{Severity: "error", Summary: "Error", Detail: "No se pudo subir la imagen"})
		return c.Redirect(back)
	}
	log.Audit(c, "product.image.upload", map[string]any{"product_id": id, "bytes": len(img.Content)})
	flash(c, Notice{Severity: "success", Summary: "Éxito", Detail: "Imagen actualizada"})
	return c.Redirect(back)
}

// Details lists a product's variants; ?detalle=<id> pre-fills the form for editing.
func (h *ProductHandler) Details(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "Producto no encontrado")
	}
	return h.renderDetails(c, fiber.StatusOK, id, detailForm{}, nil)
}

func (h *ProductHandler) renderDetails(c *fiber.Ctx, status int, productID string, form detailForm, errs []string) error {
	p, err := h.Catalog.GetProduct(productID)
	if backend.IsNotFound(err) {
		return notFound(c, "Producto no encontrado")
	}
	if err != nil {
		return err
	}
	details, err := h.Catalog.Details(productID)
	if err != nil {
		log.Error(c, "product.details", err, map[string]any{"product_id": productID})
		errs = append(errs, "No se pudieron cargar las variantes")
	}
	if form == (detailForm{}) {
		if editID := c.Query("detalle"); editID != "" {
			for _, d := range details {
				if d.ID == editID {
					form = detailForm{ID: d.ID, Color: d.Color, Size: d.Size, Stock: strconv.Itoa(d.Stock), Warehouse: d.Warehouse}
					break
				}
			}
		}
	}
	c.Status(status)
	return render(c, "product_details", fiber.Map{
		"P":        h.row(p),
		"Details":  details,
		"Form":     form,
		"Errs":     errs,
		"ImageURL": domain.ImageURL(h.APIURL, p.Image),
	})
}

func (h *ProductHandler) SaveDetail(c *fiber.Ctx) error {
	productID, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "Producto no encontrado")
	}
	form := detailForm{
		ID:        strings.TrimSpace(c.FormValue("detailId")),
		Color:     c.FormValue("color"),
		Size:      c.FormValue("size"),
		Stock:     c.FormValue("stock"),
		Warehouse: c.FormValue("warehouse"),
	}
	var d domain.ProductDetail
	var errs []string
	if form.ID != "" {
		if d.ID, ok = validate.ID(form.ID); !ok {
			errs = append(errs, "Variante inválida")
		}
	}
	if d.Color, ok = validate.Text(form.Color, 40); !ok {
		errs = append(errs, "El color es obligatorio")
	}
	if d.Size, ok = validate.Text(form.Size, 20); !ok {
		errs = append(errs, "La talla es obligatoria")
	}
	if d.Stock, ok = validate.Stock(form.Stock); !ok {
		errs = append(errs, "Stock inválido")
	}
	if d.Warehouse, ok = validate.Text(form.Warehouse, 60); !ok {
		errs = append(errs, "El almacén es obligatorio")
	}
	if len(errs) > 0 {
		log.Security(c, "validation.fail", map[string]any{"field": "detail_form", "count": len(errs)})
		return h.renderDetails(c, fiber.StatusBadRequest, productID, form, errs)
	}

	saved, err := h.Catalog.SaveDetail(productID, d)
	if backend.IsNotFound(err) {
		return notFound(c, "Producto no encontrado")
	}
	if err != nil {
		log.Error(c, "product.detail.save", err, map[string]any{"product_id": productID})
		detail := backend.Message(err)
		if detail == "" {
			detail = "No se pudo guardar la variante"
		}
		return h.renderDetails(c, fiber.StatusBadGateway, productID, form, []string{detail})
	}
	log.Audit(c, "product.detail.save", map[string]any{"product_id": productID, "detail_id": saved.ID, "created": d.ID == ""})
	flash(c, Notice{Severity: "success", Summary: "Éxito", Detail: "Variante guardada"})
	return c.Redirect("/productos/" + productID + "/detalles")
}

func (h *ProductHandler) DeleteDetail(c *fiber.Ctx) error {
	productID, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "Producto no encontrado")
	}
	detailID, ok := validate.ID(c.Params("detailId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "detail"})
		return notFound(c, "Variante no encontrada")
	}
	back := "/productos/" + productID + "/detalles"
	if err := h.Catalog.DeleteDetail(detailID); err != nil {
		log.Error(c, "product.detail.delete", err, map[string]any{"detail_id": detailID})
		flash(c, Notice{Severity: "error", Summary: "Error", Detail: "No se pudo eliminar la variante"})
		return c.Redirect(back)
	}
	log.Audit(c, "product.detail.delete", map[string]any{"product_id": productID, "detail_id": detailID})
	flash(c, Notice{Severity: "success", Summary: "Éxito", Detail: "Variante eliminada"})
	return c.Redirect(back)
}
