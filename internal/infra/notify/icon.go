package notify

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// IconCache downloads and caches per-market icons for the notification
// renderer. Icons are resized to 24x24 so the rendering side never has
// to touch the image.
type IconCache struct {
	basePath string
	client   *http.Client
}

// NewIconCache creates an icon cache rooted in the user config dir.
func NewIconCache() (*IconCache, error) {
	path, err := getIconsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve icons path: %w", err)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create icons directory: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconCache{
		basePath: path,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// FetchIcon resolves the icon for a market symbol like "ETH-USDC",
// downloading and resizing it on first use. Returns the local png path.
func (c *IconCache) FetchIcon(symbol string) (string, error) {
	asset := baseAsset(symbol)
	safeAsset := sanitizeAsset(asset)
	if safeAsset == "" {
		return "", fmt.Errorf("invalid symbol: %s", symbol)
	}

	fileName := strings.ToLower(safeAsset) + ".png"
	filePath := filepath.Join(c.basePath, fileName)

	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Cache hit
	}

	url := fmt.Sprintf("https://assets.coincap.io/assets/icons/%s@2x.png", strings.ToLower(safeAsset))

	resp, err := c.client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	resizedImg := imaging.Resize(srcImg, 24, 24, imaging.Lanczos)

	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// IconPath returns the local path for a symbol's icon without fetching.
func (c *IconCache) IconPath(symbol string) string {
	return filepath.Join(c.basePath, strings.ToLower(sanitizeAsset(baseAsset(symbol)))+".png")
}

// baseAsset extracts the base asset from a market symbol, "ETH-USDC" -> "ETH".
func baseAsset(symbol string) string {
	if idx := strings.IndexByte(symbol, '-'); idx > 0 {
		return symbol[:idx]
	}
	return symbol
}

func getIconsPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "LighterGo", "assets", "icons"), nil
}

// sanitizeAsset strips anything that could escape the icons directory.
func sanitizeAsset(asset string) string {
	res := make([]rune, 0, len(asset))
	for _, r := range asset {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
