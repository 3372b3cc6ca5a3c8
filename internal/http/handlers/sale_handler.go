package handlers

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"vitrina/internal/backend"
	"vitrina/internal/domain"
	"vitrina/internal/log"
	"vitrina/internal/pos"
	"vitrina/internal/services"
	"vitrina/internal/validate"
)

type SaleHandler struct {
	Sales  *services.SaleService
	APIURL string
}

type availableRow struct {
	DetailID  string
	Product   string
	Category  string
	Color     string
	Size      string
	Warehouse string
	Stock     int
	Price     string
	ImageURL  string
	InCart    bool
}

type cartRow struct {
	DetailID string
	Product  string
	Color    string
	Size     string
	Quantity int
	Stock    int
	Price    string
	Subtotal string
}

// cartItem is one line of the JSON cart view.
type cartItem struct {
	ProductDetailID string          `json:"productDetailId"`
	ProductName     string          `json:"productName"`
	Color           string          `json:"color"`
	Size            string          `json:"size"`
	Quantity        int             `json:"quantity"`
	Stock           int             `json:"stock"`
	Price           decimal.Decimal `json:"price"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// Page renders the sale screen: variants for sale, the session cart and the customers.
func (h *SaleHandler) Page(c *fiber.Ctx) error {
	sid := c.Cookies("sid")
	cart, err := h.Sales.Cart(sid)
	if err != nil {
		return err
	}
	data := fiber.Map{"Total": cart.Total().StringFixed(2)}
	var errs []string

	avail, err := h.Sales.Available()
	if err != nil {
		log.Error(c, "sale.available", err, nil)
		errs = append(errs, "No se pudieron cargar los productos disponibles")
	}
	rows := make([]availableRow, 0, len(avail))
	for _, a := range avail {
		rows = append(rows, availableRow{
			DetailID:  a.ProductDetailID,
			Product:   a.ProductName,
			Category:  a.CategoryName,
			Color:     a.Color,
			Size:      a.Size,
			Warehouse: a.Warehouse,
			Stock:     a.Stock,
			Price:     a.Price.StringFixed(2),
			ImageURL:  domain.ImageURL(h.APIURL, a.Image),
			InCart:    cart.Contains(a.ProductDetailID),
		})
	}
	data["Available"] = rows

	lines := cart.Lines()
	items := make([]cartRow, 0, len(lines))
	for _, l := range lines {
		items = append(items, cartRow{
			DetailID: l.ProductDetailID,
			Product:  l.ProductName,
			Color:    l.Color,
			Size:     l.Size,
			Quantity: l.Quantity,
			Stock:    l.Stock,
			Price:    l.Price.StringFixed(2),
			Subtotal: l.Subtotal().StringFixed(2),
		})
	}
	data["Cart"] = items

	customers, err := h.Sales.Customers()
	if err != nil {
		log.Error(c, "customer.list", err, nil)
		errs = append(errs, "No se pudieron cargar los clientes")
	}
	data["Customers"] = customers
	data["CustomerID"] = c.Query("cliente")
	data["Errs"] = errs
	return render(c, "sale", data)
}

// cartNotice maps a failed cart change to what the operator sees.
func cartNotice(err error) Notice {
	switch {
	case errors.Is(err, pos.ErrInsufficientStock):
		return Notice{Severity: "warn", Summary: "Stock insuficiente", Detail: "No hay más unidades disponibles de esta variante"}
	case errors.Is(err, services.ErrVariantNotFound):
		return Notice{Severity: "warn", Summary: "No disponible", Detail: "La variante ya no está disponible para la venta"}
	case errors.Is(err, pos.ErrLineNotFound):
		return Notice{Severity: "warn", Summary: "Carrito", Detail: "La variante no está en el carrito"}
	}
	return Notice{Severity: "error", Summary: "Error", Detail: "No se pudo actualizar el carrito"}
}

func (h *SaleHandler) cartFailed(c *fiber.Ctx, action string, err error, fields map[string]any) error {
	n := cartNotice(err)
	if n.Severity == "error" {
		log.Error(c, action, err, fields)
	} else {
		log.Info(c, action+".rejected", fields)
	}
	flash(c, n)
	return c.Redirect("/ventas")
}

func (h *SaleHandler) Add(c *fiber.Ctx) error {
	detailID, ok := validate.ID(c.FormValue("detailId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "detailId"})
		flash(c, Notice{Severity: "warn", Summary: "Carrito", Detail: "Variante inválida"})
		return c.Redirect("/ventas")
	}
	if _, err := h.Sales.AddToCart(c.Cookies("sid"), detailID); err != nil {
		return h.cartFailed(c, "cart.add", err, map[string]any{"detail_id": detailID})
	}
	log.Info(c, "cart.add", map[string]any{"detail_id": detailID})
	return c.Redirect("/ventas")
}

func (h *SaleHandler) Update(c *fiber.Ctx) error {
	detailID, ok := validate.ID(c.Params("detailId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "detailId"})
		return notFound(c, "Variante no encontrada")
	}
	qty, ok := validate.Qty(c.FormValue("qty"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "qty"})
		flash(c, Notice{Severity: "warn", Summary: "Carrito", Detail: "Cantidad inválida"})
		return c.Redirect("/ventas")
	}
	fields := map[string]any{"detail_id": detailID, "qty": qty}
	if _, err := h.Sales.UpdateQuantity(c.Cookies("sid"), detailID, qty); err != nil {
		return h.cartFailed(c, "cart.update", err, fields)
	}
	log.Info(c, "cart.update", fields)
	return c.Redirect("/ventas")
}

func (h *SaleHandler) Remove(c *fiber.Ctx) error {
	detailID, ok := validate.ID(c.Params("detailId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "detailId"})
		return notFound(c, "Variante no encontrada")
	}
	if _, err := h.Sales.RemoveFromCart(c.Cookies("sid"), detailID); err != nil {
		return h.cartFailed(c, "cart.remove", err, map[string]any{"detail_id": detailID})
	}
	log.Info(c, "cart.remove", map[string]any{"detail_id": detailID})
	return c.Redirect("/ventas")
}

func (h *SaleHandler) AddCustomer(c *fiber.Ctx) error {
	name, ok := validate.Text(c.FormValue("fullName"), 100)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "fullName"})
		flash(c, Notice{Severity: "warn", Summary: "Datos inválidos", Detail: "El nombre del cliente es obligatorio"})
		return c.Redirect("/ventas")
	}
	phone, ok := validate.Phone(c.FormValue("phone"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "phone"})
		flash(c, Notice{Severity: "warn", Summary: "Datos inválidos", Detail: "Teléfono inválido"})
		return c.Redirect("/ventas")
	}
	cust, err := h.Sales.CreateCustomer(name, phone)
	if err != nil {
		log.Error(c, "customer.create", err, nil)
		flash(c, Notice{Severity: "error", Summary: "Error", Detail: "No se pudo registrar el cliente"})
		return c.Redirect("/ventas")
	}
	log.Audit(c, "customer.create", map[string]any{"customer_id": cust.ID})
	flash(c, Notice{Severity: "success", Summary: "Éxito", Detail: "Cliente registrado"})
	if cust.ID == "" {
		return c.Redirect("/ventas")
	}
	return c.Redirect("/ventas?cliente=" + url.QueryEscape(cust.ID))
}

// Register submits the cart as a cash sale once the operator confirms.
func (h *SaleHandler) Register(c *fiber.Ctx) error {
	if c.FormValue("confirm") != "yes" {
		flash(c, Notice{Severity: "info", Summary: "Operación cancelada", Detail: "La venta no fue registrada"})
		return c.Redirect("/ventas")
	}
	customerID := ""
	if raw := c.FormValue("customerId"); raw != "" {
		var ok bool
		if customerID, ok = validate.ID(raw); !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "customerId"})
			flash(c, Notice{Severity: "warn", Summary: "Datos inválidos", Detail: "Cliente inválido"})
			return c.Redirect("/ventas")
		}
	}

	req, err := h.Sales.Register(c.Cookies("sid"), customerID)
	if errors.Is(err, services.ErrCartNotCleared) {
		log.Error(c, "cart.clear", err, nil)
		err = nil
	}
	if err != nil {
		if errors.Is(err, pos.ErrEmptyCart) {
			flash(c, Notice{Severity: "warn", Summary: "Carrito vacío", Detail: "Agregue productos antes de registrar la venta"})
			return c.Redirect("/ventas")
		}
		log.Error(c, "sale.register", err, map[string]any{"customer_id": customerID})
		detail := backend.Message(err)
		if detail == "" {
			detail = "Error al procesar la venta"
		}
		flash(c, Notice{Severity: "error", Summary: "Error al registrar venta", Detail: detail})
		return c.Redirect("/ventas")
	}
	log.Audit(c, "sale.register", map[string]any{
		"customer_id": customerID,
		"items":       len(req.SaleItems),
		"total":       req.Total.StringFixed(2),
	})
	flash(c, Notice{Severity: "success", Summary: "Éxito", Detail: "Venta registrada"})
	return c.Redirect("/ventas")
}

// CartJSON returns the session cart with line subtotals and the running total.
func (h *SaleHandler) CartJSON(c *fiber.Ctx) error {
	cart, err := h.Sales.Cart(c.Cookies("sid"))
	if err != nil {
		log.Error(c, "cart.view", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cart unavailable"})
	}
	lines := cart.Lines()
	items := make([]cartItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, cartItem{
			ProductDetailID: l.ProductDetailID,
			ProductName:     l.ProductName,
			Color:           l.Color,
			Size:            l.Size,
			Quantity:        l.Quantity,
			Stock:           l.Stock,
			Price:           l.Price,
			Subtotal:        l.Subtotal(),
		})
	}
	return c.JSON(fiber.Map{"items": items, "total": cart.Total()})
}
