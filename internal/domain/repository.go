package domain

import "context"

// SweetFilter narrows FindAll. Name and Category are case-insensitive
// substring matches; the price bounds are inclusive.
type SweetFilter struct {
	Name     string
	Category string
	MinPrice *float64
	MaxPrice *float64
}

// SweetRepository defines the persistence contract for sweets. Find methods
// return (nil, nil) when no document matches; callers decide whether that is
// an error.
type SweetRepository interface {
	Create(ctx context.Context, sweet *Sweet) error
	FindByID(ctx context.Context, id string) (*Sweet, error)
	FindAll(ctx context.Context, filter SweetFilter, limit, offset int) ([]*Sweet, error)
	Count(ctx context.Context, filter SweetFilter) (int64, error)
	UpdateByID(ctx context.Context, id string, update SweetUpdate) (*Sweet, error)

	// DeleteByID removes the sweet and returns its prior state so callers can
	// confirm what was removed.
	DeleteByID(ctx context.Context, id string) (*Sweet, error)

	// ApplyQuantityDelta atomically adds delta (positive or negative) to the
	// stored quantity server-side and returns the updated document. It does not
	// reject negative results itself; callers that can drive the value below
	// zero must use DecrementQuantity instead.
	ApplyQuantityDelta(ctx context.Context, id string, delta int) (*Sweet, error)

	// DecrementQuantity atomically subtracts quantity only if the stored value
	// is at least that large, in a single server-side operation. (nil, nil)
	// means no document matched: the sweet is absent or the stock was
	// insufficient at commit time.
	DecrementQuantity(ctx context.Context, id string, quantity int) (*Sweet, error)
}

// UserRepository defines the persistence contract for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// EventPublisher publishes domain events to interested consumers. Publishing
// is best-effort: a failed publish never rolls back a committed mutation.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
