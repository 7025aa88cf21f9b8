package products

import (
	"context"
	"math/rand"
	"time"

	"shopee-shorts-pipeline/types"
)

var sampleProducts = []types.Product{
	{
		Name:  "Áo thun nam nữ form rộng phong cách Hàn Quốc",
		Price: "₫89.000",
		Image: "https://cf.shopee.vn/file/placeholder_product_1",
		Link:  "https://shopee.vn/product/1",
		Sold:  "1,2k+ đã bán",
	},
	{
		Name:  "Giày sneaker thể thao nam nữ hot trend 2024",
		Price: "₫299.000",
		Image: "https://cf.shopee.vn/file/placeholder_product_2",
		Link:  "https://shopee.vn/product/2",
		Sold:  "850+ đã bán",
	},
	{
		Name:  "Balo laptop chống nước cao cấp",
		Price: "₫199.000",
		Image: "https://cf.shopee.vn/file/placeholder_product_3",
		Link:  "https://shopee.vn/product/3",
		Sold:  "560+ đã bán",
	},
	{
		Name:  "Ốp lưng iPhone 15 Pro Max silicon mềm",
		Price: "₫45.000",
		Image: "https://cf.shopee.vn/file/placeholder_product_4",
		Link:  "https://shopee.vn/product/4",
		Sold:  "2,1k+ đã bán",
	},
	{
		Name:  "Tai nghe Bluetooth không dây chống ồn",
		Price: "₫599.000",
		Image: "https://cf.shopee.vn/file/placeholder_product_5",
		Link:  "https://shopee.vn/product/5",
		Sold:  "430+ đã bán",
	},
}

// MockSource serves the built-in samples in a shuffled order so consecutive
// days do not produce the same video
type MockSource struct {
	rng *rand.Rand
}

// NewMockSource shuffles deterministically for a non-zero seed
func NewMockSource(seed int64) *MockSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockSource{rng: rand.New(rand.NewSource(seed))}
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Fetch(_ context.Context, limit int) ([]types.Product, error) {
	shuffled := make([]types.Product, len(sampleProducts))
	copy(shuffled, sampleProducts)
	m.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if limit > 0 && limit < len(shuffled) {
		shuffled = shuffled[:limit]
	}
	for i := range shuffled {
		shuffled[i].Rank = i + 1
	}
	return shuffled, nil
}
