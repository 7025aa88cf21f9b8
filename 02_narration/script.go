package narration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shopee-shorts-pipeline/types"
)

const (
	scriptIntro = "Chào mọi người! Hôm nay mình sẽ giới thiệu top %d sản phẩm hot nhất trên Shopee tuần này."
	scriptOutro = "Link mua hàng có trong mô tả video. Đừng quên like và subscribe kênh để ủng hộ mình nhé!"
)

// WriteScript builds the spoken narration, one sentence group per product in rank order
func WriteScript(products []types.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, scriptIntro, len(products))
	b.WriteByte(' ')
	for i, p := range products {
		fmt.Fprintf(&b, "Vị trí số %d: %s. Giá chỉ %s. %s. ", i+1, p.Name, p.Price, p.Sold)
	}
	b.WriteString(scriptOutro)
	return b.String()
}

// TextScript is the on-screen style script kept when no audio could be made
func TextScript(products []types.Product) string {
	lines := []string{
		fmt.Sprintf("🔥 TOP %d SẢN PHẨM HOT SHOPEE TUẦN NÀY! 🔥", len(products)),
		"",
	}
	for i, p := range products {
		lines = append(lines, fmt.Sprintf("#%d %s\n💰 %s\n📦 %s\n", i+1, p.Name, p.Price, p.Sold))
	}
	lines = append(lines, "👆 Link mua hàng trong mô tả", "❤️ LIKE & SUBSCRIBE ủng hộ kênh!")
	return strings.Join(lines, "\n")
}

// SaveTextScript writes script to dir/script_<epoch-ms>.txt
func SaveTextScript(dir, script string, t time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create script dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("script_%d.txt", t.UnixMilli()))
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	return path, nil
}
