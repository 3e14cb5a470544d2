package overlaystudio

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/export"
)

const (
	maxUploadDimension = 4096
	jpegQuality        = 90
	maxUploadSize      = assets.MaxAssetSize
)

// processUpload decodes an image from src, downsizes it so neither side
// exceeds maxUploadDimension, and re-encodes it. PNG sources stay PNG so
// logo transparency survives; everything else becomes JPEG.
func processUpload(src io.Reader, originalName string) (Upload, []byte, error) {
	img, format, err := image.Decode(src)
	if err != nil {
		return Upload{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return Upload{}, nil, fmt.Errorf("decode image: empty image")
	}

	img = export.Downscale(img, maxUploadDimension, maxUploadDimension)
	w, h = img.Bounds().Dx(), img.Bounds().Dy()

	var buf bytes.Buffer
	ext := ".jpg"
	if format == "png" {
		ext = ".png"
		if err := png.Encode(&buf, img); err != nil {
			return Upload{}, nil, fmt.Errorf("encode png: %w", err)
		}
	} else if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Upload{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	filename := uploadFilename(originalName, ext)
	return Upload{
		URL:      assets.UploadsPrefix + filename,
		Filename: filename,
		Width:    w,
		Height:   h,
		Size:     buf.Len(),
	}, buf.Bytes(), nil
}

// uploadFilename builds a unique, URL-safe name from the original filename.
func uploadFilename(name, ext string) string {
	base := Slugify(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	if base == "" {
		base = "image"
	}
	return base + "-" + uuid.NewString()[:8] + ext
}

func (a *App) handleUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no image file provided")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file too large (max %s)", humanize.IBytes(maxUploadSize)))
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	up, data, err := processUpload(src, file.Filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image: "+err.Error())
	}

	if err := os.MkdirAll(a.Config.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.Config.UploadDir, up.Filename), data, 0o644); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	c.Logger().Infof("upload %s stored as %s (%dx%d, %s)", file.Filename, up.Filename, up.Width, up.Height,
		humanize.Bytes(uint64(up.Size)))
	return c.JSON(http.StatusCreated, up)
}
