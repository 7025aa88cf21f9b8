package metadata

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"shopee-shorts-pipeline/types"
)

const (
	// TitleMaxRunes is YouTube's hard limit on titles
	TitleMaxRunes = 100

	CategoryPeopleBlogs = "22"
	DefaultLanguage     = "vi"
)

var baseTags = []string{
	"shopee", "top 5", "sản phẩm hot", "giá rẻ", "trending",
	"shopping", "deal hot", "khuyến mãi", "review sản phẩm",
	"tiktok shop", "youtube shorts", "viral", "hot trend",
}

const hashtags = "#Shopee #Top5 #SanPhamHot #GiaRe #Shopping #Deal #KhuyenMai #TrendingNow #Shorts"

// Build creates the upload metadata for a ranked product list.
// Visibility is left for the uploader to fill from config.
func Build(products []types.Product, now time.Time, affiliateTag string) types.VideoMetadata {
	date := now.Format("02/01/2006")
	return types.VideoMetadata{
		Title:           Title(len(products), date),
		Description:     Description(products, date, affiliateTag),
		Tags:            append([]string(nil), baseTags...),
		CategoryID:      CategoryPeopleBlogs,
		DefaultLanguage: DefaultLanguage,
	}
}

func Title(count int, date string) string {
	title := fmt.Sprintf("🔥 TOP %d SẢN PHẨM HOT SHOPEE TUẦN NÀY (%s) | Giá Rẻ Chất Lượng!", count, date)
	return truncateRunes(title, TitleMaxRunes)
}

func Description(products []types.Product, date, affiliateTag string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛒 TOP %d SẢN PHẨM HOT NHẤT SHOPEE TUẦN NÀY!\n\n", len(products)))
	sb.WriteString(fmt.Sprintf("⏰ Cập nhật: %s\n\n", date))

	sb.WriteString("📋 DANH SÁCH SẢN PHẨM:\n")
	for i, p := range products {
		sb.WriteString(fmt.Sprintf("\n%d️⃣ %s\n", i+1, p.Name))
		sb.WriteString(fmt.Sprintf("💰 Giá: %s\n", p.Price))
		sb.WriteString(fmt.Sprintf("📦 Đã bán: %s\n", p.Sold))
		if p.Link != "" {
			sb.WriteString(fmt.Sprintf("🔗 Link: %s\n", p.Link))
		}
	}

	sb.WriteString("\n\n🔥 HASHTAGS:\n")
	sb.WriteString(hashtags + "\n\n")

	sb.WriteString("⚠️ Lưu ý: Giá có thể thay đổi theo thời gian thực\n")
	sb.WriteString("🎯 Video được tạo tự động để cập nhật thông tin nhanh nhất\n")

	if affiliateTag != "" {
		sb.WriteString(fmt.Sprintf("\n💡 Mua qua link trên để ủng hộ kênh nhé! (%s)\n", affiliateTag))
	}
	return sb.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
