package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/storefront/cart/internal/domain/shared"
	"github.com/storefront/cart/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStorefront serves a fixed catalog the way the storefront API does
func fakeStorefront(t *testing.T) *httptest.Server {
	t.Helper()

	router := gin.New()
	router.GET("/products", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{
			{"id": 1, "title": "Tênis de Caminhada Leve Confortável", "price": 179.9, "image": "https://cdn.example.com/1.jpg"},
			{"id": 2, "title": "Tênis VR Caminhada Confortável", "price": 139.9, "image": "https://cdn.example.com/2.jpg"},
		})
	})
	router.GET("/products/:id", func(c *gin.Context) {
		switch c.Param("id") {
		case "1":
			c.JSON(http.StatusOK, gin.H{"id": 1, "title": "Tênis de Caminhada Leve Confortável", "price": 179.9, "image": "https://cdn.example.com/1.jpg"})
		case "3":
			c.JSON(http.StatusOK, gin.H{"id": 3, "title": "", "price": 10})
		case "4":
			c.JSON(http.StatusOK, gin.H{"id": 4, "title": "Broken", "price": -1})
		case "5":
			c.JSON(http.StatusOK, gin.H{"id": 6, "title": "Wrong id", "price": 1})
		case "7":
			c.String(http.StatusOK, "<html>not json</html>")
		default:
			c.JSON(http.StatusNotFound, gin.H{})
		}
	})
	router.GET("/stock/:id", func(c *gin.Context) {
		switch c.Param("id") {
		case "1":
			c.JSON(http.StatusOK, gin.H{"id": 1, "amount": 3})
		case "2":
			c.JSON(http.StatusOK, gin.H{"id": 2})
		case "3":
			c.JSON(http.StatusOK, gin.H{"id": 3, "amount": -4})
		case "9":
			c.Status(http.StatusInternalServerError)
		default:
			c.JSON(http.StatusNotFound, gin.H{})
		}
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *HTTPClient {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	client, err := NewHTTPClient(Config{BaseURL: baseURL, Timeout: 2 * time.Second}, opts...)
	require.NoError(t, err)
	return client
}

func TestNewHTTPClient_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:3333", "/relative"} {
		_, err := NewHTTPClient(Config{BaseURL: raw})
		assert.Error(t, err, raw)
	}
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	client, err := NewHTTPClient(Config{BaseURL: "http://localhost:3333"})
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, client.httpClient.Timeout)
	assert.Equal(t, int64(defaultMaxResponseSize), client.maxResponseSize)
	assert.Nil(t, client.requestDuration)
}

func TestHTTPClient_GetProduct(t *testing.T) {
	server := fakeStorefront(t)
	client := newTestClient(t, server.URL, WithMeter(noop.NewMeterProvider().Meter("test")))

	product, err := client.GetProduct(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, product.ID)
	assert.Equal(t, "Tênis de Caminhada Leve Confortável", product.Title)
	assert.True(t, decimal.RequireFromString("179.9").Equal(product.Price))
	assert.Equal(t, "https://cdn.example.com/1.jpg", product.Image)
}

func TestHTTPClient_GetProduct_Failures(t *testing.T) {
	server := fakeStorefront(t)
	client := newTestClient(t, server.URL)

	tests := []struct {
		name  string
		id    int
		cause error
	}{
		{"not found", 42, ErrUnexpectedStatus},
		{"missing title", 3, ErrInvalidResponse},
		{"negative price", 4, ErrInvalidResponse},
		{"mismatched id", 5, ErrInvalidResponse},
		{"not json", 7, ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.GetProduct(context.Background(), tt.id)
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrRemoteFetchFailure)
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestHTTPClient_ListProducts(t *testing.T) {
	server := fakeStorefront(t)
	client := newTestClient(t, server.URL)

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, 1, products[0].ID)
	assert.Equal(t, 2, products[1].ID)
	assert.True(t, decimal.RequireFromString("139.9").Equal(products[1].Price))
}

func TestHTTPClient_GetStock(t *testing.T) {
	server := fakeStorefront(t)
	client := newTestClient(t, server.URL)

	tests := []struct {
		name   string
		id     int
		amount int
	}{
		{"reported amount", 1, 3},
		{"missing amount counts as zero", 2, 0},
		{"negative amount clamps to zero", 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stock, err := client.GetStock(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.id, stock.ProductID)
			assert.Equal(t, tt.amount, stock.Amount)
		})
	}
}

func TestHTTPClient_GetStock_ServerError(t *testing.T) {
	server := fakeStorefront(t)
	client := newTestClient(t, server.URL)

	_, err := client.GetStock(context.Background(), 9)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrRemoteFetchFailure)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestHTTPClient_LogsCarrySession(t *testing.T) {
	server := fakeStorefront(t)
	core, logs := observer.New(zapcore.WarnLevel)
	client := newTestClient(t, server.URL, WithLogger(zap.New(core)))

	ctx := logger.WithSessionID(context.Background(), "session-42")
	_, err := client.GetStock(ctx, 9)
	require.Error(t, err)

	entries := logs.FilterMessage("catalog returned error status").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "session-42", entries[0].ContextMap()["session_id"])
	assert.EqualValues(t, 500, entries[0].ContextMap()["status"])
}

func TestHTTPClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := newTestClient(t, baseURL)

	_, err := client.GetStock(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrRemoteFetchFailure)
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestHTTPClient_ContextCanceled(t *testing.T) {
	server := fakeStorefront(t)
	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetProduct(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.True(t, errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "context canceled"))
}

func TestHTTPClient_ResponseSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"amount":` + strings.Repeat("1", 64) + `}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(Config{BaseURL: server.URL, MaxResponseBytes: 16})
	require.NoError(t, err)

	_, err = client.GetStock(context.Background(), 1)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestHTTPClient_BaseURLWithPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":5,"amount":2}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL+"/api/")

	stock, err := client.GetStock(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, stock.Amount)
	assert.Equal(t, "/api/stock/5", gotPath)
}
