package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sweetshop/inventory-api/internal/application"
	"github.com/sweetshop/inventory-api/internal/domain"
	"github.com/sweetshop/inventory-api/pkg/logging"
)

// memSweetRepo is a minimal in-memory store for handler tests.
type memSweetRepo struct {
	mu     sync.Mutex
	sweets map[string]*domain.Sweet
}

func newMemSweetRepo() *memSweetRepo {
	return &memSweetRepo{sweets: make(map[string]*domain.Sweet)}
}

func (r *memSweetRepo) Create(_ context.Context, sweet *domain.Sweet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sweet.ID.IsZero() {
		sweet.ID = primitive.NewObjectID()
	}
	r.sweets[sweet.ID.Hex()] = sweet
	return nil
}

func (r *memSweetRepo) FindByID(_ context.Context, id string) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sweet, ok := r.sweets[id]
	if !ok {
		return nil, nil
	}
	copied := *sweet
	return &copied, nil
}

func (r *memSweetRepo) FindAll(_ context.Context, _ domain.SweetFilter, _, _ int) ([]*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.Sweet
	for _, sweet := range r.sweets {
		copied := *sweet
		all = append(all, &copied)
	}
	return all, nil
}

func (r *memSweetRepo) Count(_ context.Context, _ domain.SweetFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sweets)), nil
}

func (r *memSweetRepo) UpdateByID(_ context.Context, id string, update domain.SweetUpdate) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r *memSweetRepo) DeleteByID(_ context.Context, id string) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sweet, ok := r.sweets[id]
	if !ok {
		return nil, nil
	}
	delete(r.sweets, id)
	return sweet, nil
}

func (r *memSweetRepo) ApplyQuantityDelta(_ context.Context, id string, delta int) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sweet, ok := r.sweets[id]
	if !ok {
		return nil, nil
	}
	sweet.Quantity += delta
	copied := *sweet
	return &copied, nil
}

func (r *memSweetRepo) DecrementQuantity(_ context.Context, id string, quantity int) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sweet, ok := r.sweets[id]
	if !ok || sweet.Quantity < quantity {
		return nil, nil
	}
	sweet.Quantity -= quantity
	copied := *sweet
	return &copied, nil
}

func newPurchaseRouter(t *testing.T, stock int) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMemSweetRepo()
	sweet, err := domain.NewSweet("Barfi", "Indian", 4.5, stock)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), sweet))

	logConfig := logging.DefaultConfig("inventory-api-test")
	logConfig.Output = io.Discard
	logger := logging.New(logConfig)

	service := application.NewSweetApplicationService(repo, nil, nil, logger)

	router := gin.New()
	router.POST("/api/sweets/:id/purchase", purchaseHandler(service, logger))

	return router, sweet.ID.Hex()
}

func doPurchase(router *gin.Engine, id string, body []byte, chunked bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/sweets/"+id+"/purchase", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if chunked {
		req.ContentLength = -1
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodePurchase(t *testing.T, rec *httptest.ResponseRecorder) application.PurchaseResultDTO {
	t.Helper()
	var result application.PurchaseResultDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func TestPurchaseHandlerDefaultsToOne(t *testing.T) {
	router, id := newPurchaseRouter(t, 10)

	rec := doPurchase(router, id, nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodePurchase(t, rec)
	assert.Equal(t, 1, result.Purchased)
	assert.Equal(t, 9, result.Remaining)
}

func TestPurchaseHandlerOmittedQuantityDefaultsToOne(t *testing.T) {
	router, id := newPurchaseRouter(t, 10)

	rec := doPurchase(router, id, []byte(`{}`), false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodePurchase(t, rec)
	assert.Equal(t, 1, result.Purchased)
	assert.Equal(t, 9, result.Remaining)
}

func TestPurchaseHandlerExplicitQuantity(t *testing.T) {
	router, id := newPurchaseRouter(t, 10)

	rec := doPurchase(router, id, []byte(`{"quantity": 3}`), false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodePurchase(t, rec)
	assert.Equal(t, 3, result.Purchased)
	assert.Equal(t, 7, result.Remaining)
}

func TestPurchaseHandlerChunkedBodyIsBound(t *testing.T) {
	router, id := newPurchaseRouter(t, 10)

	rec := doPurchase(router, id, []byte(`{"quantity": 5}`), true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodePurchase(t, rec)
	assert.Equal(t, 5, result.Purchased)
	assert.Equal(t, 5, result.Remaining)
}

func TestPurchaseHandlerMalformedBody(t *testing.T) {
	router, id := newPurchaseRouter(t, 10)

	rec := doPurchase(router, id, []byte(`{"quantity":`), false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BAD_REQUEST")
}

func TestPurchaseHandlerExplicitZeroRejected(t *testing.T) {
	router, id := newPurchaseRouter(t, 10)

	rec := doPurchase(router, id, []byte(`{"quantity": 0}`), false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
