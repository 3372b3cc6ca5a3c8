package domain

const (
	RoleAdmin   = "ADMIN"
	RoleCashier = "CASHIER"
)

// User is a back-office operator.
type User struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Hash  string `db:"password_hash"`
	Role  string `db:"role"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
