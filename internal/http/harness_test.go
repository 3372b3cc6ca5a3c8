package handlers_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"vitrina/internal/backend"
	"vitrina/internal/config"
	"vitrina/internal/domain"
	"vitrina/internal/http/handlers"
	applog "vitrina/internal/log"
	"vitrina/internal/repos"
)

// stubCatalog is an in-memory stand-in for the catalog REST API.
type stubCatalog struct {
	mu         sync.Mutex
	seq        int
	categories []domain.Category
	products   map[string]domain.Product
	details    map[string]domain.ProductDetail
	available  []domain.ProductAvailable
	customers  []domain.Customer
	sales      []domain.SaleRequest
	saleError  string // when set, POST /sales answers 400 with this message
	uploads    map[string]int
}

func newStubCatalog() *stubCatalog {
	cat := domain.Category{ID: "c-1", Name: "Camisas"}
	return &stubCatalog{
		categories: []domain.Category{cat, {ID: "c-2", Name: "Pantalones"}},
		products: map[string]domain.Product{
			"p-1": {ID: "p-1", Code: "CAM-01", Name: "Camisa Oxford", Price: decimal.RequireFromString("10"), Stock: 3, InventoryState: domain.StateLowStock, Category: cat},
		},
		details: map[string]domain.ProductDetail{
			"d-1": {ID: "d-1", Color: "Azul", Size: "M", Stock: 2, Warehouse: "Central", Product: &domain.Product{ID: "p-1"}},
		},
		available: []domain.ProductAvailable{
			{CategoryName: "Camisas", ProductName: "Camisa Oxford", Price: decimal.RequireFromString("10"), ProductDetailID: "d-1", Color: "Azul", Size: "M", Stock: 2, Warehouse: "Central"},
			{CategoryName: "Pantalones", ProductName: "Jean", Price: decimal.RequireFromString("5"), ProductDetailID: "d-2", Color: "Negro", Size: "32", Stock: 1, Warehouse: "Central"},
		},
		customers: []domain.Customer{{ID: "cu-1", FullName: "Ana Pérez", Phone: "999888777"}},
		uploads:   map[string]int{},
	}
}

func (s *stubCatalog) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, 100+s.seq)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *stubCatalog) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, 200, s.categories)
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := make([]domain.Product, 0, len(s.products))
		for _, p := range s.products {
			out = append(out, p)
		}
		writeJSON(w, 200, out)
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		p, ok := s.products[r.PathValue("id")]
		if !ok {
			writeJSON(w, 404, map[string]string{"message": "Producto no encontrado"})
			return
		}
		writeJSON(w, 200, p)
	})
	save := func(w http.ResponseWriter, r *http.Request, id string) {
		var in domain.ProductInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, 400, map[string]string{"message": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if id == "" {
			id = s.nextID("p")
		} else if _, ok := s.products[id]; !ok {
			writeJSON(w, 404, map[string]string{"message": "Producto no encontrado"})
			return
		}
		p := s.products[id]
		p.ID, p.Name, p.Description = id, in.Name, in.Description
		p.Price, p.Stock, p.InventoryState = in.Price, in.Stock, in.InventoryState
		if in.Category != nil {
			p.Category = *in.Category
		}
		s.products[id] = p
		writeJSON(w, 200, p)
	}
	mux.HandleFunc("POST /products", func(w http.ResponseWriter, r *http.Request) { save(w, r, "") })
	mux.HandleFunc("PUT /products/{id}", func(w http.ResponseWriter, r *http.Request) { save(w, r, r.PathValue("id")) })
	mux.HandleFunc("DELETE /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.products, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /products/upload/{id}/image", func(w http.ResponseWriter, r *http.Request) {
		f, fh, err := r.FormFile("image")
		if err != nil {
			writeJSON(w, 400, map[string]string{"message": "image required"})
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		s.mu.Lock()
		defer s.mu.Unlock()
		id := r.PathValue("id")
		p := s.products[id]
		p.Image = "/images/" + fh.Filename
		s.products[id] = p
		s.uploads[id] += len(b)
		writeJSON(w, 200, p)
	})
	mux.HandleFunc("GET /products/{id}/details", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []domain.ProductDetail{}
		for _, d := range s.details {
			if d.Product != nil && d.Product.ID == r.PathValue("id") {
				out = append(out, d)
			}
		}
		writeJSON(w, 200, out)
	})
	saveDetail := func(w http.ResponseWriter, r *http.Request, id string) {
		var d domain.ProductDetail
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeJSON(w, 400, map[string]string{"message": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if id == "" {
			id = s.nextID("d")
		}
		d.ID = id
		s.details[id] = d
		writeJSON(w, 200, d)
	}
	mux.HandleFunc("POST /product-details", func(w http.ResponseWriter, r *http.Request) { saveDetail(w, r, "") })
	mux.HandleFunc("PUT /product-details/{id}", func(w http.ResponseWriter, r *http.Request) { saveDetail(w, r, r.PathValue("id")) })
	mux.HandleFunc("DELETE /product-details/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.details, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /sales/available-products", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, 200, s.available)
	})
	mux.HandleFunc("GET /customers", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, 200, s.customers)
	})
	mux.HandleFunc("POST /customers", func(w http.ResponseWriter, r *http.Request) {
		var cu domain.Customer
		if err := json.NewDecoder(r.Body).Decode(&cu); err != nil {
			writeJSON(w, 400, map[string]string{"message": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		cu.ID = s.nextID("cu")
		s.customers = append(s.customers, cu)
		writeJSON(w, 201, cu)
	})
	mux.HandleFunc("POST /sales", func(w http.ResponseWriter, r *http.Request) {
		var req domain.SaleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, 400, map[string]string{"message": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.saleError != "" {
			writeJSON(w, 400, map[string]string{"message": s.saleError})
			return
		}
		s.sales = append(s.sales, req)
		writeJSON(w, 201, map[string]string{"id": s.nextID("s")})
	})
	return mux
}

type testEnv struct {
	app       *fiber.App
	db        *sqlx.DB
	operators *repos.OperatorRepo
	stub      *stubCatalog
	csrf      string
}

// newTestEnv wires the real routes against an in-memory store and a stub catalog API.
func newTestEnv(t *testing.T, tweak func(*handlers.Deps)) *testEnv {
	t.Helper()
	stub := newStubCatalog()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	cfg := config.Config{DBDSN: ":memory:", APIURL: srv.URL, APITimeout: 2 * time.Second, MaxUploadBytes: 64 << 10}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	deps := handlers.NewDeps(db, cfg, backend.New(cfg.APIURL, cfg.APITimeout))
	if tweak != nil {
		tweak(deps)
	}

	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{
		Views:     engine,
		BodyLimit: cfg.MaxUploadBytes + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Ocurrió un error. Inténtelo de nuevo."})
		},
	})
	app.Use(requestid.New())
	app.Use(handlers.AttachUser(deps.AuthSvc))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		ContextKey:     "csrf",
		CookieSameSite: "Lax",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "La verificación de seguridad falló."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
	deps.Routes(app)
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Página no encontrada"})
	})

	operators := repos.NewOperatorRepo(db)
	if err := operators.SignIn("sid-admin", "u-admin"); err != nil {
		t.Fatalf("sign in admin: %v", err)
	}
	if err := operators.SignIn("sid-caja", "u-caja"); err != nil {
		t.Fatalf("sign in cashier: %v", err)
	}

	env := &testEnv{app: app, db: db, operators: operators, stub: stub}
	resp, err := app.Test(httptest.NewRequest("GET", "/login", nil))
	if err != nil {
		t.Fatal(err)
	}
	env.csrf = cookieValue(resp, "csrf_")
	if env.csrf == "" {
		t.Fatal("csrf token missing")
	}
	return env
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (e *testEnv) get(t *testing.T, path, sid string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// post submits a urlencoded form with a valid CSRF token.
func (e *testEnv) post(t *testing.T, path, sid string, form url.Values) *http.Response {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", e.csrf)
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.send(t, req, sid)
}

func (e *testEnv) send(t *testing.T, req *http.Request, sid string) *http.Response {
	t.Helper()
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: e.csrf})
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

// flashOf decodes the one-shot notice set on a redirect.
func flashOf(t *testing.T, resp *http.Response) handlers.Notice {
	t.Helper()
	raw := cookieValue(resp, "flash")
	if raw == "" {
		t.Fatalf("no flash cookie on %d response", resp.StatusCode)
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("decode flash: %v", err)
	}
	var n handlers.Notice
	if err := json.Unmarshal(b, &n); err != nil {
		t.Fatalf("unmarshal flash: %v", err)
	}
	return n
}

type logEntry struct {
	Level      string         `json:"level"`
	Action     string         `json:"action"`
	OperatorID string         `json:"operator_id"`
	Fields     map[string]any `json:"fields"`
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// captureLogs swaps the standard logger output while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}

func (s *stubCatalog) hasProduct(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.products[id]
	return ok
}

func (s *stubCatalog) product(id string) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *stubCatalog) recordedSales() []domain.SaleRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SaleRequest(nil), s.sales...)
}

func (s *stubCatalog) failSales(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saleError = msg
}

func (s *stubCatalog) put(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *stubCatalog) detail(id string) (domain.ProductDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.details[id]
	return d, ok
}
