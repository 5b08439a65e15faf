package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Asset Cache to avoid re-reading from disk
var (
	imageCache = make(map[string]image.Image)
	mutex      sync.RWMutex
)

// LoadImage loads an image from disk or cache
func LoadImage(path string) (image.Image, error) {
	mutex.RLock()
	if img, ok := imageCache[path]; ok {
		mutex.RUnlock()
		return img, nil
	}
	mutex.RUnlock()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}

	mutex.Lock()
	imageCache[path] = img
	mutex.Unlock()

	return img, nil
}

// ForgetImage drops a cached entry, used when the file behind it is removed.
func ForgetImage(path string) {
	mutex.Lock()
	delete(imageCache, path)
	mutex.Unlock()
}

// DecodeImage decodes PNG/JPEG/GIF/WebP bytes, honouring EXIF orientation
// so phone photos come out upright.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// ParseHexColor converts hex string to color.RGBA
func ParseHexColor(s string) color.RGBA {
	c := color.RGBA{0, 0, 0, 255}
	switch len(s) {
	case 7:
		fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 9:
		fmt.Sscanf(s, "#%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	}
	return c
}

// EncodeImageToBuffer returns PNG bytes
func EncodeImageToBuffer(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
