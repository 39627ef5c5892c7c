// Package catalog implements the product catalog and stock ports over the
// storefront's JSON HTTP API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/storefront/cart/internal/domain/cart"
	"github.com/storefront/cart/internal/domain/shared"
	"github.com/storefront/cart/internal/infrastructure/logger"
	"github.com/storefront/cart/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultMaxResponseSize = 1 << 20

// Sentinel causes wrapped inside the RemoteFetchFailure returned by the client
var (
	ErrRemoteUnavailable = errors.New("catalog: remote service unavailable")
	ErrUnexpectedStatus  = errors.New("catalog: unexpected HTTP status")
	ErrInvalidResponse   = errors.New("catalog: invalid response body")
)

// Config holds the remote service location and limits
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// HTTPClient reads products and stock from the storefront API.
// It implements both cart.ProductCatalog and cart.StockService.
type HTTPClient struct {
	baseURL         *url.URL
	httpClient      *http.Client
	maxResponseSize int64
	validate        *validator.Validate
	logger          *zap.Logger
	meter           metric.Meter
	requestDuration *telemetry.Histogram
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// WithMeter records request latency on the given meter
func WithMeter(meter metric.Meter) Option {
	return func(c *HTTPClient) {
		c.meter = meter
	}
}

// NewHTTPClient creates a client for the API rooted at cfg.BaseURL
func NewHTTPClient(cfg Config, opts ...Option) (*HTTPClient, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("catalog: invalid base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxSize := cfg.MaxResponseBytes
	if maxSize <= 0 {
		maxSize = defaultMaxResponseSize
	}

	c := &HTTPClient{
		baseURL:         base,
		httpClient:      &http.Client{Timeout: timeout},
		maxResponseSize: maxSize,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.meter != nil {
		c.requestDuration, err = telemetry.NewHistogram(c.meter,
			"catalog_request_duration_seconds",
			"Latency of requests to the product and stock service",
			"s",
			telemetry.FetchDurationBuckets...,
		)
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

// GetProduct fetches GET /products/{id}
func (c *HTTPClient) GetProduct(ctx context.Context, productID int) (cart.Product, error) {
	body, err := c.doRequest(ctx, "product", "products", strconv.Itoa(productID))
	if err != nil {
		return cart.Product{}, err
	}

	var payload productPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return cart.Product{}, c.invalid(ctx, "products", err)
	}
	if err := c.validateProduct(payload); err != nil {
		return cart.Product{}, c.invalid(ctx, "products", err)
	}
	if payload.ID != productID {
		return cart.Product{}, c.invalid(ctx, "products", fmt.Errorf("asked for product %d, got %d", productID, payload.ID))
	}
	return payload.toDomain(), nil
}

// ListProducts fetches GET /products
func (c *HTTPClient) ListProducts(ctx context.Context) ([]cart.Product, error) {
	body, err := c.doRequest(ctx, "products", "products")
	if err != nil {
		return nil, err
	}

	var payloads []productPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, c.invalid(ctx, "products", err)
	}

	products := make([]cart.Product, 0, len(payloads))
	for _, p := range payloads {
		if err := c.validateProduct(p); err != nil {
			return nil, c.invalid(ctx, "products", fmt.Errorf("product %d: %w", p.ID, err))
		}
		products = append(products, p.toDomain())
	}
	return products, nil
}

// GetStock fetches GET /stock/{id}. A missing or null amount counts as zero
// and a negative amount is clamped to zero.
func (c *HTTPClient) GetStock(ctx context.Context, productID int) (cart.Stock, error) {
	body, err := c.doRequest(ctx, "stock", "stock", strconv.Itoa(productID))
	if err != nil {
		return cart.Stock{}, err
	}

	var payload stockPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return cart.Stock{}, c.invalid(ctx, "stock", err)
	}

	amount := 0
	if payload.Amount != nil && *payload.Amount > 0 {
		amount = *payload.Amount
	}
	return cart.Stock{ProductID: productID, Amount: amount}, nil
}

func (c *HTTPClient) validateProduct(p productPayload) error {
	if err := c.validate.Struct(p); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return errors.New("price cannot be negative")
	}
	return nil
}

func (c *HTTPClient) doRequest(ctx context.Context, endpoint string, segments ...string) ([]byte, error) {
	target := c.baseURL.JoinPath(segments...)

	ctx, span := telemetry.StartSpan(ctx, "catalog."+endpoint,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrHTTPPath, target.Path),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if c.requestDuration != nil {
			c.requestDuration.RecordDuration(ctx, time.Since(start), telemetry.AttrEndpoint.String(endpoint))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.L(ctx, c.logger).Warn("catalog request failed", zap.String("path", target.Path), zap.Error(err))
		return nil, remoteFailure(target.Path, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err))
	}
	defer resp.Body.Close()

	telemetry.SetAttribute(span, telemetry.SpanAttrHTTPCode, resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, remoteFailure(target.Path, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, resp.StatusCode)
		telemetry.RecordError(span, err)
		logger.L(ctx, c.logger).Warn("catalog returned error status",
			zap.String("path", target.Path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, remoteFailure(target.Path, err)
	}

	return body, nil
}

func (c *HTTPClient) invalid(ctx context.Context, endpoint string, cause error) error {
	logger.L(ctx, c.logger).Warn("catalog returned invalid payload", zap.String("endpoint", endpoint), zap.Error(cause))
	return remoteFailure(endpoint, fmt.Errorf("%w: %v", ErrInvalidResponse, cause))
}

func remoteFailure(path string, cause error) error {
	return shared.WrapDomainError(shared.CodeRemoteFetchFailure, "fetch "+path, cause)
}

// Ensure HTTPClient implements the cart ports
var (
	_ cart.ProductCatalog = (*HTTPClient)(nil)
	_ cart.StockService   = (*HTTPClient)(nil)
)
