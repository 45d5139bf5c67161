// Package catalog fetches the externally-sourced car catalog (brands,
// models, fuel-type icons) and caches it in Redis. A fetch failure is
// retryable and never fatal to the rest of the funnel.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/garagehub/funnel-api/internal/config"
	"github.com/garagehub/funnel-api/internal/logging"
	"github.com/garagehub/funnel-api/internal/models"
	"github.com/garagehub/funnel-api/internal/observability"
	"github.com/garagehub/funnel-api/internal/utils/httpclient"
	"go.uber.org/zap"
)

// Redis cache keys
const (
	brandsCacheKey    = "catalog:brands"
	fuelIconsCacheKey = "catalog:fuel_icons"
)

// Client talks to the external catalog API
type Client struct {
	baseURL string
	logger  *zap.Logger
}

// NewClient creates a catalog client from the app configuration
func NewClient() *Client {
	return &Client{
		baseURL: strings.TrimSuffix(config.AppConfig.CatalogBaseURL, "/"),
		logger:  logging.Logger,
	}
}

// Brands returns the brand list, from cache when possible
func (c *Client) Brands(ctx context.Context) ([]models.CarBrand, error) {
	var brands []models.CarBrand
	if c.fromCache(ctx, brandsCacheKey, &brands) {
		return brands, nil
	}

	if err := c.fetch(ctx, "/car/all-brands", &brands); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCatalogUnavailable, err)
	}

	c.toCache(ctx, brandsCacheKey, brands)
	return brands, nil
}

// FuelIcons returns the fuel-type icon table, from cache when possible
func (c *Client) FuelIcons(ctx context.Context) ([]models.FuelTypeIcon, error) {
	var icons []models.FuelTypeIcon
	if c.fromCache(ctx, fuelIconsCacheKey, &icons) {
		return icons, nil
	}

	if err := c.fetch(ctx, "/car/fuel-icons", &icons); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCatalogUnavailable, err)
	}

	c.toCache(ctx, fuelIconsCacheKey, icons)
	return icons, nil
}

// IconFor looks up the icon for a fuel-type label, case-insensitively.
// Missing icons are not an error; the choice just renders without one.
func (c *Client) IconFor(ctx context.Context, fuelType string) string {
	icons, err := c.FuelIcons(ctx)
	if err != nil {
		return ""
	}
	for _, icon := range icons {
		if strings.EqualFold(icon.Type, fuelType) {
			return icon.URL
		}
	}
	return ""
}

// Refresh busts the cache so the next read re-issues exactly one fetch per
// resource. Backs the retry affordance after a failed catalog load.
func (c *Client) Refresh(ctx context.Context) error {
	if err := config.Redis.Del(ctx, brandsCacheKey, fuelIconsCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to bust catalog cache: %w", err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	client := httpclient.GetGlobalPool().Get()
	defer httpclient.GetGlobalPool().Put(client)

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Error("catalog fetch failed", zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read catalog response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("catalog fetch failed",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode))
		return fmt.Errorf("catalog request failed with status: %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return nil
}

func (c *Client) fromCache(ctx context.Context, key string, out interface{}) bool {
	cached, err := config.Redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(cached), out); err != nil {
		return false
	}
	observability.CacheHits.WithLabelValues("catalog").Inc()
	return true
}

func (c *Client) toCache(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := config.Redis.Set(ctx, key, data, config.AppConfig.CatalogCacheTTL).Err(); err != nil {
		c.logger.Warn("failed to cache catalog data", zap.String("key", key), zap.Error(err))
	}
}
