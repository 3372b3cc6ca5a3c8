package repos

import (
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"vitrina/internal/domain"
	"vitrina/internal/pos"
)

// CartRepo keeps each session's POS cart between requests.
// Writes for one session are serialized within the process.
type CartRepo struct {
	db *sqlx.DB

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewCartRepo(db *sqlx.DB) *CartRepo {
	return &CartRepo{db: db, locks: map[string]*sessionLock{}}
}

// lock blocks until no other writer holds sessionID and returns the release func.
func (r *CartRepo) lock(sessionID string) func() {
	r.mu.Lock()
	l := r.locks[sessionID]
	if l == nil {
		l = &sessionLock{}
		r.locks[sessionID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(r.locks, sessionID)
		}
		r.mu.Unlock()
	}
}

type cartLineRow struct {
	ProductDetailID string `db:"product_detail_id"`
	CategoryName    string `db:"category_name"`
	ProductName     string `db:"product_name"`
	Image           string `db:"image"`
	Price           string `db:"price"`
	Color           string `db:"color"`
	Size            string `db:"size"`
	Stock           int    `db:"stock"`
	Warehouse       string `db:"warehouse"`
	Qty             int    `db:"qty"`
}

// Load returns the session cart; a session without lines gets an empty cart.
func (r *CartRepo) Load(sessionID string) (*pos.Cart, error) {
	return loadCart(r.db, sessionID)
}

// Update loads the session cart, applies fn and stores the result in one
// transaction. Concurrent updates of one session run one after the other;
// when fn fails nothing is written and the loaded cart is returned with the error.
func (r *CartRepo) Update(sessionID string, fn func(*pos.Cart) error) (*pos.Cart, error) {
	unlock := r.lock(sessionID)
	defer unlock()

	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	cart, err := loadCart(tx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return cart, err
	}
	if err := saveCart(tx, sessionID, cart); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return cart, nil
}

func loadCart(q sqlx.Queryer, sessionID string) (*pos.Cart, error) {
	var rows []cartLineRow
	if err := sqlx.Select(q, &rows, `
	  SELECT product_detail_id, category_name, product_name, image, price,
	         color, size, stock, warehouse, qty
	  FROM cart_lines
	  WHERE session_id = ?
	  ORDER BY position
	`, sessionID); err != nil {
		return nil, err
	}
	lines := make([]pos.Line, 0, len(rows))
	for _, row := range rows {
		price, err := decimal.NewFromString(row.Price)
		if err != nil {
			return nil, fmt.Errorf("cart line %s: bad price %q: %w", row.ProductDetailID, row.Price, err)
		}
		lines = append(lines, pos.Line{
			ProductAvailable: domain.ProductAvailable{
				CategoryName:    row.CategoryName,
				ProductName:     row.ProductName,
				Image:           row.Image,
				Price:           price,
				ProductDetailID: row.ProductDetailID,
				Color:           row.Color,
				Size:            row.Size,
				Stock:           row.Stock,
				Warehouse:       row.Warehouse,
			},
			Quantity: row.Qty,
		})
	}
	return pos.NewCart(lines...), nil
}

// Save replaces the stored lines of the session with the cart's lines.
func (r *CartRepo) Save(sessionID string, cart *pos.Cart) error {
	unlock := r.lock(sessionID)
	defer unlock()

	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveCart(tx, sessionID, cart); err != nil {
		return err
	}
	return tx.Commit()
}

func saveCart(tx *sqlx.Tx, sessionID string, cart *pos.Cart) error {
	if _, err := tx.Exec(`DELETE FROM cart_lines WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	for i, l := range cart.Lines() {
		if _, err := tx.Exec(`
			INSERT INTO cart_lines(session_id, position, product_detail_id, category_name, product_name,
			                       image, price, color, size, stock, warehouse, qty, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, sessionID, i, l.ProductDetailID, l.CategoryName, l.ProductName,
			l.Image, l.Price.String(), l.Color, l.Size, l.Stock, l.Warehouse, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *CartRepo) Clear(sessionID string) error {
	unlock := r.lock(sessionID)
	defer unlock()

	_, err := r.db.Exec(`DELETE FROM cart_lines WHERE session_id = ?`, sessionID)
	return err
}
