package services

import (
	"errors"
	"slices"
	"sync"

	"vitrina/internal/domain"
	"vitrina/internal/repos"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCreds   = errors.New("invalid email or password")
	ErrNoOperator = errors.New("no operator signed in")
	ErrForbidden  = errors.New("operator role not allowed")
)

// decoyHash is compared against when the email is unknown, so a miss costs
// about as much as a wrong password.
var decoyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("decoy-password"), bcrypt.DefaultCost)
	return h
})

// AuthService signs operators in and out of browser sessions and checks their role.
type AuthService struct {
	Operators *repos.OperatorRepo
}

func NewAuthService(ops *repos.OperatorRepo) *AuthService {
	return &AuthService{Operators: ops}
}

// SignIn verifies the credentials and binds the operator to sid.
func (s *AuthService) SignIn(sid, email, password string) (*domain.User, error) {
	u, err := s.Operators.FindByEmail(email)
	if errors.Is(err, repos.ErrOperatorNotFound) {
		_ = bcrypt.CompareHashAndPassword(decoyHash(), []byte(password))
		return nil, ErrBadCreds
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Operators.SignIn(sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// SignOut detaches the operator and discards any cart left on the session.
func (s *AuthService) SignOut(sid string) error {
	return s.Operators.SignOut(sid)
}

// Operator returns who is signed into sid, or ErrNoOperator.
func (s *AuthService) Operator(sid string) (*domain.User, error) {
	if sid == "" {
		return nil, ErrNoOperator
	}
	u, err := s.Operators.Operator(sid)
	if errors.Is(err, repos.ErrOperatorNotFound) {
		return nil, ErrNoOperator
	}
	return u, err
}

// Authorize returns the operator of sid when their role is one of roles;
// no roles means any signed-in operator. A signed-in operator with another
// role is returned together with ErrForbidden.
func (s *AuthService) Authorize(sid string, roles ...string) (*domain.User, error) {
	u, err := s.Operator(sid)
	if err != nil {
		return nil, err
	}
	if len(roles) > 0 && !slices.Contains(roles, u.Role) {
		return u, ErrForbidden
	}
	return u, nil
}
