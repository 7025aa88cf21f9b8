package products

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"shopee-shorts-pipeline/types"
)

const imageCDN = "https://cf.shopee.vn/file/"

// ShopeeSource reads the best sellers from Shopee's public search API
type ShopeeSource struct {
	baseURL    string
	keyword    string
	httpClient *http.Client
	logger     hclog.Logger
}

func NewShopeeSource(baseURL, keyword string, timeout time.Duration, logger hclog.Logger) *ShopeeSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ShopeeSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyword:    keyword,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("shopee"),
	}
}

func (s *ShopeeSource) Name() string { return "shopee" }

type searchResponse struct {
	Error *int `json:"error"`
	Items []struct {
		ItemBasic shopeeItem `json:"item_basic"`
	} `json:"items"`
}

type shopeeItem struct {
	ItemID         int64  `json:"itemid"`
	ShopID         int64  `json:"shopid"`
	Name           string `json:"name"`
	Image          string `json:"image"`
	Price          int64  `json:"price"`
	HistoricalSold int64  `json:"historical_sold"`
	Sold           int64  `json:"sold"`
}

// Fetch asks for items sorted by sales, best first
func (s *ShopeeSource) Fetch(ctx context.Context, limit int) ([]types.Product, error) {
	q := url.Values{}
	q.Set("by", "sales")
	q.Set("order", "desc")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("newest", "0")
	q.Set("page_type", "search")
	q.Set("scenario", "PAGE_GLOBAL_SEARCH")
	q.Set("version", "2")
	if s.keyword != "" {
		q.Set("keyword", s.keyword)
	}
	endpoint := s.baseURL + "/api/v4/search/search_items?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "vi-VN,vi;q=0.9")
	req.Header.Set("Referer", s.baseURL+"/")
	req.Header.Set("X-API-Source", "pc")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopee search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("shopee search HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode shopee search: %w", err)
	}
	if result.Error != nil && *result.Error != 0 {
		return nil, fmt.Errorf("shopee search returned error code %d", *result.Error)
	}

	products := make([]types.Product, 0, len(result.Items))
	for _, it := range result.Items {
		item := it.ItemBasic
		if item.Name == "" {
			continue
		}
		sold := item.HistoricalSold
		if sold == 0 {
			sold = item.Sold
		}
		products = append(products, types.Product{
			Name:  item.Name,
			Price: FormatPrice(item.Price),
			Image: imageURL(item.Image),
			Link:  fmt.Sprintf("%s/product/%d/%d", s.baseURL, item.ShopID, item.ItemID),
			Sold:  FormatSold(sold),
			Rank:  len(products) + 1,
		})
	}
	s.logger.Info("shopee search done", "items", len(result.Items), "products", len(products))
	return products, nil
}

func imageURL(id string) string {
	if id == "" || strings.HasPrefix(id, "http") {
		return id
	}
	return imageCDN + id
}

// FormatPrice renders Shopee's price units (1/100000 đồng) as ₫89.000
func FormatPrice(raw int64) string {
	return "₫" + groupThousands(raw/100000)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatSold renders a sold counter the way the storefront does: 850 đã bán, 1,2k+ đã bán
func FormatSold(n int64) string {
	switch {
	case n <= 0:
		return defaultSold
	case n < 1000:
		return fmt.Sprintf("%d đã bán", n)
	case n < 1000000:
		return compact(n, 1000, "k")
	default:
		return compact(n, 1000000, "tr")
	}
}

func compact(n, unit int64, suffix string) string {
	whole := n / unit
	tenth := (n % unit) * 10 / unit
	if tenth == 0 || whole >= 100 {
		return fmt.Sprintf("%d%s+ đã bán", whole, suffix)
	}
	return fmt.Sprintf("%d,%d%s+ đã bán", whole, tenth, suffix)
}
