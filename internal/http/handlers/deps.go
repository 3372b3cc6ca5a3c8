package handlers

import (
	"time"

	"vitrina/internal/backend"
	"vitrina/internal/config"
	applog "vitrina/internal/log"
	"vitrina/internal/repos"
	"vitrina/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/jmoiron/sqlx"
)

type Deps struct {
	AuthSvc        *services.AuthService
	AuthHandler    *AuthHandler
	ProductHandler *ProductHandler
	SaleHandler    *SaleHandler

	// LoginMax is the number of login attempts allowed per IP in LoginWindow.
	LoginMax    int
	LoginWindow time.Duration
}

func NewDeps(db *sqlx.DB, cfg config.Config, api *backend.Client) *Deps {
	operators := repos.NewOperatorRepo(db)
	cartRepo := repos.NewCartRepo(db)

	authSvc := services.NewAuthService(operators)
	catalogSvc := services.NewCatalogService(api)
	saleSvc := services.NewSaleService(api, cartRepo)

	return &Deps{
		AuthSvc:        authSvc,
		AuthHandler:    &AuthHandler{Auth: authSvc},
		ProductHandler: &ProductHandler{Catalog: catalogSvc, APIURL: api.BaseURL(), MaxUpload: cfg.MaxUploadBytes},
		SaleHandler:    &SaleHandler{Sales: saleSvc, APIURL: api.BaseURL()},
		LoginMax:       5,
		LoginWindow:    10 * time.Minute,
	}
}

// Routes mounts the login, catalog and sale pages on r.
func (d *Deps) Routes(r fiber.Router) {
	user := RequireUser(d.AuthSvc)
	admin := RequireAdmin(d.AuthSvc)

	// Auth routes (login throttled)
	r.Get("/login", d.AuthHandler.LoginForm)
	r.Post("/login", limiter.New(limiter.Config{
		Max:        d.LoginMax,
		Expiration: d.LoginWindow,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			c.Status(fiber.StatusTooManyRequests)
			return render(c, "login", fiber.Map{"Err": "Demasiados intentos. Inténtelo más tarde."})
		},
	}), d.AuthHandler.Login)
	r.Post("/logout", d.AuthHandler.Logout)

	r.Get("/", user, d.ProductHandler.Home)

	// Catalog: everyone logged in can browse, only ADMIN changes it
	r.Get("/productos", user, d.ProductHandler.List)
	r.Get("/categorias", user, d.ProductHandler.List)
	r.Get("/productos/nuevo", admin, d.ProductHandler.Form)
	r.Post("/productos", admin, d.ProductHandler.Save)
	r.Get("/productos/:id/editar", admin, d.ProductHandler.Form)
	r.Post("/productos/:id", admin, d.ProductHandler.Save)
	r.Post("/productos/:id/eliminar", admin, d.ProductHandler.Delete)
	r.Post("/productos/:id/imagen", admin, d.ProductHandler.Image)
	r.Get("/productos/:id/detalles", user, d.ProductHandler.Details)
	r.Post("/productos/:id/detalles", admin, d.ProductHandler.SaveDetail)
	r.Post("/productos/:id/detalles/:detailId/eliminar", admin, d.ProductHandler.DeleteDetail)

	// Point of sale
	r.Get("/ventas", user, d.SaleHandler.Page)
	r.Post("/ventas", user, d.SaleHandler.Register)
	r.Post("/ventas/cart", user, d.SaleHandler.Add)
	r.Post("/ventas/cart/:detailId", user, d.SaleHandler.Update)
	r.Post("/ventas/cart/:detailId/eliminar", user, d.SaleHandler.Remove)
	r.Post("/ventas/customers", user, d.SaleHandler.AddCustomer)

	r.Get("/api/v1/cart", user, d.SaleHandler.CartJSON)
}
