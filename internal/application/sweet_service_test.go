package application

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sweetshop/inventory-api/internal/domain"
	"github.com/sweetshop/inventory-api/pkg/errors"
	"github.com/sweetshop/inventory-api/pkg/logging"
)

// fakeSweetRepo is an in-memory SweetRepository for unit tests
type fakeSweetRepo struct {
	sweets map[string]*domain.Sweet

	// when set, DecrementQuantity reports no match regardless of stock,
	// simulating a concurrent purchase winning the race
	loseDecrementRace bool
}

func newFakeSweetRepo() *fakeSweetRepo {
	return &fakeSweetRepo{sweets: make(map[string]*domain.Sweet)}
}

func (r *fakeSweetRepo) Create(_ context.Context, sweet *domain.Sweet) error {
	if sweet.ID.IsZero() {
		sweet.ID = primitive.NewObjectID()
	}
	copied := *sweet
	r.sweets[sweet.ID.Hex()] = &copied
	return nil
}

func (r *fakeSweetRepo) FindByID(_ context.Context, id string) (*domain.Sweet, error) {
	sweet, ok := r.sweets[id]
	if !ok {
		return nil, nil
	}
	copied := *sweet
	return &copied, nil
}

func (r *fakeSweetRepo) FindAll(_ context.Context, filter domain.SweetFilter, limit, offset int) ([]*domain.Sweet, error) {
	var result []*domain.Sweet
	for _, sweet := range r.sweets {
		if r.matches(sweet, filter) {
			copied := *sweet
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeSweetRepo) Count(_ context.Context, filter domain.SweetFilter) (int64, error) {
	var count int64
	for _, sweet := range r.sweets {
		if r.matches(sweet, filter) {
			count++
		}
	}
	return count, nil
}

func (r *fakeSweetRepo) matches(sweet *domain.Sweet, filter domain.SweetFilter) bool {
	if filter.Name != "" && !strings.Contains(strings.ToLower(sweet.Name), strings.ToLower(filter.Name)) {
		return false
	}
	if filter.Category != "" && !strings.Contains(strings.ToLower(sweet.Category), strings.ToLower(filter.Category)) {
		return false
	}
	if filter.MinPrice != nil && sweet.Price < *filter.MinPrice {
		return false
	}
	if filter.MaxPrice != nil && sweet.Price > *filter.MaxPrice {
		return false
	}
	return true
}

func (r *fakeSweetRepo) UpdateByID(_ context.Context, id string, update domain.SweetUpdate) (*domain.Sweet, error) {
	sweet, ok := r.sweets[id]
	if !ok {
		return nil, nil
	}
	if update.Name != nil {
		sweet.Name = *update.Name
	}
	if update.Category != nil {
		sweet.Category = *update.Category
	}
	if update.Price != nil {
		sweet.Price = *update.Price
	}
	if update.Quantity != nil {
		sweet.Quantity = *update.Quantity
	}
	copied := *sweet
	return &copied, nil
}

func (r *fakeSweetRepo) DeleteByID(_ context.Context, id string) (*domain.Sweet, error) {
	sweet, ok := r.sweets[id]
	if !ok {
		return nil, nil
	}
	delete(r.sweets, id)
	return sweet, nil
}

func (r *fakeSweetRepo) ApplyQuantityDelta(_ context.Context, id string, delta int) (*domain.Sweet, error) {
	sweet, ok := r.sweets[id]
	if !ok {
		return nil, nil
	}
	sweet.Quantity += delta
	copied := *sweet
	return &copied, nil
}

func (r *fakeSweetRepo) DecrementQuantity(_ context.Context, id string, quantity int) (*domain.Sweet, error) {
	sweet, ok := r.sweets[id]
	if !ok || r.loseDecrementRace || sweet.Quantity < quantity {
		return nil, nil
	}
	sweet.Quantity -= quantity
	copied := *sweet
	return &copied, nil
}

// fakePublisher records published events
type fakePublisher struct {
	events []domain.DomainEvent
}

func (p *fakePublisher) Publish(_ context.Context, event domain.DomainEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) PublishAll(_ context.Context, events []domain.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *fakePublisher) eventTypes() []string {
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

func testLogger() *logging.Logger {
	cfg := logging.DefaultConfig("test")
	cfg.Output = io.Discard
	return logging.New(cfg)
}

func newTestService() (*SweetApplicationService, *fakeSweetRepo, *fakePublisher) {
	repo := newFakeSweetRepo()
	publisher := &fakePublisher{}
	svc := NewSweetApplicationService(repo, publisher, nil, testLogger())
	return svc, repo, publisher
}

func seedSweet(t *testing.T, repo *fakeSweetRepo, name, category string, price float64, quantity int) *domain.Sweet {
	t.Helper()
	sweet, err := domain.NewSweet(name, category, price, quantity)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), sweet))
	return sweet
}

func TestCreateSweet(t *testing.T) {
	svc, repo, publisher := newTestService()

	dto, err := svc.CreateSweet(context.Background(), CreateSweetCommand{
		Name:     "  Gulab Jamun  ",
		Category: "Indian",
		Price:    12.5,
		Quantity: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, "Gulab Jamun", dto.Name)
	assert.Equal(t, 20, dto.Quantity)
	assert.True(t, dto.InStock)
	assert.NotEmpty(t, dto.ID)

	stored, err := repo.FindByID(context.Background(), dto.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Gulab Jamun", stored.Name)

	assert.Equal(t, []string{"sweets.inventory.created"}, publisher.eventTypes())
}

func TestCreateSweetValidation(t *testing.T) {
	svc, _, _ := newTestService()

	tests := []struct {
		name string
		cmd  CreateSweetCommand
	}{
		{"empty name", CreateSweetCommand{Name: "  ", Category: "Candy", Price: 1, Quantity: 1}},
		{"negative price", CreateSweetCommand{Name: "Fudge", Category: "Candy", Price: -1, Quantity: 1}},
		{"negative quantity", CreateSweetCommand{Name: "Fudge", Category: "Candy", Price: 1, Quantity: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSweet(context.Background(), tt.cmd)
			require.Error(t, err)

			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, errors.CodeValidationError, appErr.Code)
		})
	}
}

func TestGetSweetNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.GetSweet(context.Background(), GetSweetQuery{ID: primitive.NewObjectID().Hex()})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeNotFound, appErr.Code)
}

func TestListSweetsFiltered(t *testing.T) {
	svc, repo, _ := newTestService()
	seedSweet(t, repo, "Kaju Katli", "Indian", 50, 10)
	seedSweet(t, repo, "Chocolate Fudge", "Chocolate", 20, 5)
	seedSweet(t, repo, "Dark Chocolate Bar", "Chocolate", 30, 8)

	minPrice := 25.0
	dtos, total, err := svc.ListSweets(context.Background(), ListSweetsQuery{
		Filter: domain.SweetFilter{Category: "chocolate", MinPrice: &minPrice},
		Limit:  20,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), total)
	require.Len(t, dtos, 1)
	assert.Equal(t, "Dark Chocolate Bar", dtos[0].Name)
}

func TestUpdateSweet(t *testing.T) {
	svc, repo, _ := newTestService()
	sweet := seedSweet(t, repo, "Ladoo", "Indian", 10, 5)

	newPrice := 15.0
	dto, err := svc.UpdateSweet(context.Background(), UpdateSweetCommand{
		ID:     sweet.ID.Hex(),
		Update: domain.SweetUpdate{Price: &newPrice},
	})
	require.NoError(t, err)
	assert.Equal(t, 15.0, dto.Price)
	assert.Equal(t, "Ladoo", dto.Name)
}

func TestUpdateSweetEmpty(t *testing.T) {
	svc, repo, _ := newTestService()
	sweet := seedSweet(t, repo, "Ladoo", "Indian", 10, 5)

	_, err := svc.UpdateSweet(context.Background(), UpdateSweetCommand{ID: sweet.ID.Hex()})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidationError, appErr.Code)
}

func TestDeleteSweet(t *testing.T) {
	svc, repo, publisher := newTestService()
	sweet := seedSweet(t, repo, "Jalebi", "Indian", 8, 3)

	deleted, err := svc.DeleteSweet(context.Background(), DeleteSweetCommand{ID: sweet.ID.Hex(), ActorID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, "Jalebi", deleted.Name)

	stored, err := repo.FindByID(context.Background(), sweet.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, stored)

	assert.Equal(t, []string{"sweets.inventory.deleted"}, publisher.eventTypes())
}

func TestDeleteSweetNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.DeleteSweet(context.Background(), DeleteSweetCommand{ID: primitive.NewObjectID().Hex()})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeNotFound, appErr.Code)
}

func TestPurchase(t *testing.T) {
	svc, repo, publisher := newTestService()
	sweet := seedSweet(t, repo, "Barfi", "Indian", 12, 10)

	result, err := svc.Purchase(context.Background(), PurchaseCommand{
		ID:       sweet.ID.Hex(),
		Quantity: 3,
		ActorID:  "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Purchased)
	assert.Equal(t, 7, result.Remaining)
	assert.Equal(t, 7, result.Sweet.Quantity)

	stored, err := repo.FindByID(context.Background(), sweet.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 7, stored.Quantity)

	assert.Equal(t, []string{"sweets.inventory.purchased"}, publisher.eventTypes())
}

func TestPurchaseExactStock(t *testing.T) {
	svc, repo, publisher := newTestService()
	sweet := seedSweet(t, repo, "Barfi", "Indian", 12, 5)

	result, err := svc.Purchase(context.Background(), PurchaseCommand{
		ID:       sweet.ID.Hex(),
		Quantity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Remaining)
	assert.False(t, result.Sweet.InStock)

	// draining the stock also emits the out-of-stock event
	assert.Equal(t,
		[]string{"sweets.inventory.purchased", "sweets.inventory.out_of_stock"},
		publisher.eventTypes(),
	)
}

func TestPurchaseOutOfStock(t *testing.T) {
	svc, repo, _ := newTestService()
	sweet := seedSweet(t, repo, "Barfi", "Indian", 12, 0)

	_, err := svc.Purchase(context.Background(), PurchaseCommand{ID: sweet.ID.Hex(), Quantity: 1})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeOutOfStock, appErr.Code)
	assert.Contains(t, appErr.Message, "Barfi")
}

func TestPurchaseInsufficientQuantity(t *testing.T) {
	svc, repo, _ := newTestService()
	sweet := seedSweet(t, repo, "Barfi", "Indian", 12, 2)

	_, err := svc.Purchase(context.Background(), PurchaseCommand{ID: sweet.ID.Hex(), Quantity: 3})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeInsufficientQuantity, appErr.Code)
	assert.Equal(t, "2", appErr.Details["available"])
}

func TestPurchaseInvalidQuantity(t *testing.T) {
	svc, repo, _ := newTestService()
	sweet := seedSweet(t, repo, "Barfi", "Indian", 12, 5)

	for _, quantity := range []int{0, -1} {
		_, err := svc.Purchase(context.Background(), PurchaseCommand{ID: sweet.ID.Hex(), Quantity: quantity})
		require.Error(t, err)

		appErr, ok := errors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, errors.CodeValidationError, appErr.Code)
	}
}

func TestPurchaseLostRace(t *testing.T) {
	svc, repo, publisher := newTestService()
	sweet := seedSweet(t, repo, "Barfi", "Indian", 12, 5)
	repo.loseDecrementRace = true

	_, err := svc.Purchase(context.Background(), PurchaseCommand{ID: sweet.ID.Hex(), Quantity: 3})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeInsufficientQuantity, appErr.Code)

	// the rejected purchase must not mutate stock or emit events
	stored, err := repo.FindByID(context.Background(), sweet.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity)
	assert.Empty(t, publisher.events)
}

func TestRestock(t *testing.T) {
	svc, repo, publisher := newTestService()
	sweet := seedSweet(t, repo, "Rasgulla", "Indian", 9, 2)

	result, err := svc.Restock(context.Background(), RestockCommand{
		ID:       sweet.ID.Hex(),
		Quantity: 10,
		ActorID:  "admin-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, result.Added)
	assert.Equal(t, 12, result.NewTotal)

	assert.Equal(t, []string{"sweets.inventory.restocked"}, publisher.eventTypes())
}

func TestRestockInvalidQuantity(t *testing.T) {
	svc, repo, _ := newTestService()
	sweet := seedSweet(t, repo, "Rasgulla", "Indian", 9, 2)

	for _, quantity := range []int{0, -5} {
		_, err := svc.Restock(context.Background(), RestockCommand{ID: sweet.ID.Hex(), Quantity: quantity})
		require.Error(t, err)

		appErr, ok := errors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, errors.CodeValidationError, appErr.Code)
	}
}

func TestRestockNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Restock(context.Background(), RestockCommand{ID: primitive.NewObjectID().Hex(), Quantity: 5})
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeNotFound, appErr.Code)
}
