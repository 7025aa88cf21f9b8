package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// maxImageBytes bounds a product photo download
const maxImageBytes = 16 << 20

// ImageFetcher loads product photos from http(s) URLs, file:// URLs or plain paths
type ImageFetcher struct {
	httpClient *http.Client
	timeout    time.Duration
}

func NewImageFetcher(timeout time.Duration) *ImageFetcher {
	return &ImageFetcher{
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Fetch downloads and decodes one image. A timeout counts as a fetch failure.
func (f *ImageFetcher) Fetch(ctx context.Context, location string) (image.Image, error) {
	if location == "" {
		return nil, AssetError("fetch_image", fmt.Errorf("empty image location"))
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	data, err := f.load(ctx, location)
	if err != nil {
		return nil, AssetError("fetch_image", err).WithDetail("image", location)
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, AssetError("decode_image", err).WithDetail("image", location)
	}
	return img, nil
}

func (f *ImageFetcher) load(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return f.download(ctx, location)
		case "file":
			return os.ReadFile(u.Path)
		}
	}
	return os.ReadFile(location)
}

func (f *ImageFetcher) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ShopeeShorts/1.0)")
	req.Header.Set("Accept", "image/webp,image/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d fetching image", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, err
	}
	// error pages sometimes come back as 200
	if len(data) < 100 {
		return nil, fmt.Errorf("response too small (%d bytes)", len(data))
	}
	return data, nil
}

// decodeImage sniffs WebP, which Shopee's CDN serves, and hands everything else to imaging
func decodeImage(data []byte) (image.Image, error) {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return webp.Decode(bytes.NewReader(data))
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		ct := http.DetectContentType(data)
		if !strings.HasPrefix(ct, "image/") {
			return nil, fmt.Errorf("not an image (%s)", ct)
		}
		return nil, err
	}
	return img, nil
}
