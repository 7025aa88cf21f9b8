package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"shopee-shorts-pipeline/config"
	"shopee-shorts-pipeline/types"
)

const defaultSold = "0 đã bán"

// Source yields the ranked products for one video
type Source interface {
	Name() string
	Fetch(ctx context.Context, limit int) ([]types.Product, error)
}

// New builds the configured source. The live Shopee source falls back to the
// built-in samples when it fails or comes back empty.
func New(cfg *config.Config, logger hclog.Logger) Source {
	logger = logger.Named("products")
	switch cfg.Products.Source {
	case "file":
		return NewFileSource(cfg.Products.File)
	case "mock":
		return NewMockSource(0)
	default:
		return WithFallback(NewShopeeSource(cfg.Products.BaseURL, cfg.Products.Keyword, cfg.ProductsTimeout(), logger), NewMockSource(0), logger)
	}
}

// Run fetches, normalizes and deduplicates. The returned order is final.
func Run(ctx context.Context, src Source, limit int, logger hclog.Logger) ([]types.Product, error) {
	logger = logger.Named("products")
	logger.Info("fetching products", "source", src.Name(), "limit", limit)

	raw, err := src.Fetch(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name(), err)
	}

	products := Normalize(raw, limit)
	if len(products) == 0 {
		return nil, fmt.Errorf("%s returned no usable products", src.Name())
	}
	for _, p := range products {
		logger.Debug("product", "rank", p.Rank, "name", p.Name, "price", p.Price, "sold", p.Sold)
	}
	logger.Info("products ready", "count", len(products))
	return products, nil
}

// Normalize trims fields, drops nameless and duplicate entries (by link, then
// by name), caps the list at limit and assigns ranks 1..n in order.
func Normalize(in []types.Product, limit int) []types.Product {
	seen := make(map[string]bool)
	out := make([]types.Product, 0, len(in))

	for _, p := range in {
		p.Name = strings.Join(strings.Fields(p.Name), " ")
		p.Price = strings.TrimSpace(p.Price)
		p.Image = strings.TrimSpace(p.Image)
		p.Link = strings.TrimSpace(p.Link)
		p.Sold = strings.TrimSpace(p.Sold)
		if p.Name == "" {
			continue
		}
		if p.Sold == "" {
			p.Sold = defaultSold
		}

		key := strings.ToLower(p.Link)
		if key == "" {
			key = "name:" + strings.ToLower(p.Name)
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

type fallbackSource struct {
	primary  Source
	fallback Source
	logger   hclog.Logger
}

// WithFallback uses fallback whenever primary errors or returns nothing
func WithFallback(primary, fallback Source, logger hclog.Logger) Source {
	return &fallbackSource{primary: primary, fallback: fallback, logger: logger}
}

func (f *fallbackSource) Name() string {
	return f.primary.Name() + "+" + f.fallback.Name()
}

func (f *fallbackSource) Fetch(ctx context.Context, limit int) ([]types.Product, error) {
	products, err := f.primary.Fetch(ctx, limit)
	if err == nil && len(products) > 0 {
		return products, nil
	}
	if err == nil {
		err = fmt.Errorf("no products")
	}
	f.logger.Warn("primary product source failed, using fallback",
		"primary", f.primary.Name(), "fallback", f.fallback.Name(), "error", err)
	return f.fallback.Fetch(ctx, limit)
}
