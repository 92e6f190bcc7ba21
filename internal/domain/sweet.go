package domain

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrNameRequired         = errors.New("name is required and must be at most 100 characters")
	ErrCategoryRequired     = errors.New("category is required and must be at most 50 characters")
	ErrNegativePrice        = errors.New("price must not be negative")
	ErrNegativeQuantity     = errors.New("quantity must not be negative")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrOutOfStock           = errors.New("sweet is out of stock")
	ErrInsufficientQuantity = errors.New("insufficient quantity available")
)

const (
	MaxNameLength     = 100
	MaxCategoryLength = 50
)

// Sweet is the inventory aggregate. Quantity is the only stateful field with a
// hard invariant: no committed state may hold a negative quantity. The
// repository's conditional decrement is the single enforcement point for that
// invariant under concurrent purchases.
type Sweet struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Category  string             `bson:"category" json:"category"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewSweet creates a validated Sweet. Name and category are trimmed before the
// length checks, matching the wire contract.
func NewSweet(name, category string, price float64, quantity int) (*Sweet, error) {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)

	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	if price < 0 {
		return nil, ErrNegativePrice
	}
	if quantity < 0 {
		return nil, ErrNegativeQuantity
	}

	now := time.Now().UTC()
	return &Sweet{
		Name:      name,
		Category:  category,
		Price:     price,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SweetUpdate carries a partial update; nil fields are left untouched.
type SweetUpdate struct {
	Name     *string
	Category *string
	Price    *float64
	Quantity *int
}

// Validate checks the populated fields against the same constraints the
// constructor enforces, trimming string fields in place.
func (u *SweetUpdate) Validate() error {
	if u.Name != nil {
		trimmed := strings.TrimSpace(*u.Name)
		if err := validateName(trimmed); err != nil {
			return err
		}
		*u.Name = trimmed
	}
	if u.Category != nil {
		trimmed := strings.TrimSpace(*u.Category)
		if err := validateCategory(trimmed); err != nil {
			return err
		}
		*u.Category = trimmed
	}
	if u.Price != nil && *u.Price < 0 {
		return ErrNegativePrice
	}
	if u.Quantity != nil && *u.Quantity < 0 {
		return ErrNegativeQuantity
	}
	return nil
}

// IsEmpty reports whether the update carries no fields.
func (u *SweetUpdate) IsEmpty() bool {
	return u.Name == nil && u.Category == nil && u.Price == nil && u.Quantity == nil
}

// CheckPurchase evaluates the purchase preconditions against the quantity
// visible on this snapshot. The zero case is reported distinctly from the
// insufficient case: callers show different messaging for "nothing left" vs
// "not enough for this order". The result can be stale under concurrency; the
// store's conditional decrement is the authoritative check.
func (s *Sweet) CheckPurchase(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if s.Quantity == 0 {
		return ErrOutOfStock
	}
	if s.Quantity < quantity {
		return ErrInsufficientQuantity
	}
	return nil
}

// CheckRestock evaluates the restock precondition. There is no upper bound.
func (s *Sweet) CheckRestock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func validateName(name string) error {
	if name == "" || len(name) > MaxNameLength {
		return ErrNameRequired
	}
	return nil
}

func validateCategory(category string) error {
	if category == "" || len(category) > MaxCategoryLength {
		return ErrCategoryRequired
	}
	return nil
}
