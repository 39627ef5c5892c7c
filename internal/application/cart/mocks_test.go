package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/storefront/cart/internal/domain/cart"
	"github.com/storefront/cart/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockProductCatalog is a mock implementation of cart.ProductCatalog
type MockProductCatalog struct {
	mock.Mock
}

func (m *MockProductCatalog) GetProduct(ctx context.Context, productID int) (cart.Product, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(cart.Product), args.Error(1)
}

func (m *MockProductCatalog) ListProducts(ctx context.Context) ([]cart.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Product), args.Error(1)
}

// MockStockService is a mock implementation of cart.StockService
type MockStockService struct {
	mock.Mock
}

func (m *MockStockService) GetStock(ctx context.Context, productID int) (cart.Stock, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(cart.Stock), args.Error(1)
}

// MockSnapshotRepository is a mock implementation of cart.SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Load(ctx context.Context) (cart.Cart, error) {
	args := m.Called(ctx)
	return args.Get(0).(cart.Cart), args.Error(1)
}

func (m *MockSnapshotRepository) Save(ctx context.Context, c cart.Cart) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// memoryRepository is a SnapshotRepository recording every saved snapshot
type memoryRepository struct {
	mu    sync.Mutex
	saved []cart.Cart
}

func (r *memoryRepository) Load(context.Context) (cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return cart.Empty(), nil
	}
	return r.saved[len(r.saved)-1], nil
}

func (r *memoryRepository) Save(_ context.Context, c cart.Cart) error {
	r.mu.Lock()
	r.saved = append(r.saved, c)
	r.mu.Unlock()
	return nil
}

func (r *memoryRepository) saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

// panickingRepository panics on Save
type panickingRepository struct {
	memoryRepository
}

func (r *panickingRepository) Save(context.Context, cart.Cart) error {
	panic("storage driver crashed")
}

// fakeBackend serves fixed products and stock without mocks, for concurrent tests
type fakeBackend struct {
	stock map[int]int
}

func (f *fakeBackend) GetProduct(_ context.Context, productID int) (cart.Product, error) {
	return testProduct(productID), nil
}

func (f *fakeBackend) ListProducts(context.Context) ([]cart.Product, error) {
	products := make([]cart.Product, 0, len(f.stock))
	for id := range f.stock {
		products = append(products, testProduct(id))
	}
	return products, nil
}

func (f *fakeBackend) GetStock(_ context.Context, productID int) (cart.Stock, error) {
	return cart.Stock{ProductID: productID, Amount: f.stock[productID]}, nil
}

func testProduct(id int) cart.Product {
	return cart.Product{
		ID:    id,
		Title: "Tênis de Caminhada",
		Price: decimal.NewFromFloat(139.9),
		Image: "https://cdn.example.com/shoe.jpg",
	}
}
