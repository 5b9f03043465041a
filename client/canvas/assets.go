package canvas

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"

	_ "golang.org/x/image/webp"
)

const maxAssetBytes = 20 << 20

// AssetLoader fetches and decodes the image behind an element source
type AssetLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// AssetLoaderFunc adapts a function to AssetLoader
type AssetLoaderFunc func(ctx context.Context, src string) (image.Image, error)

func (f AssetLoaderFunc) Load(ctx context.Context, src string) (image.Image, error) {
	return f(ctx, src)
}

// Notifier is told about every asset that failed to load. The canvas keeps going.
type Notifier func(elementID string, err error)

// DecodeAsset decodes PNG, JPEG, GIF or WebP data
func DecodeAsset(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(io.LimitReader(r, maxAssetBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode asset: %w", err)
	}
	return img, format, nil
}

// DefaultLoader reads http(s) URLs with client and anything else from disk
type DefaultLoader struct {
	Client *http.Client
}

// Load fetches src and decodes it
func (l DefaultLoader) Load(ctx context.Context, src string) (image.Image, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		raw, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("failed to read asset %s: %w", src, err)
		}
		img, _, err := DecodeAsset(bytes.NewReader(raw))
		return img, err
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch asset %s: status %d", src, resp.StatusCode)
	}
	img, _, err := DecodeAsset(resp.Body)
	return img, err
}
