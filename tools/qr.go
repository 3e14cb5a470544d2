package tools

import (
	"context"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/scene"
)

// qrPixels is the rendered size of generated codes before scaling.
const qrPixels = 512

// QRPanel adds the target URL to the image settings.
type QRPanel struct {
	ImagePanel
	URL string `json:"url"`
}

// QRTool generates or uploads QR code images.
type QRTool struct {
	env   *Env
	panel QRPanel
}

// NewQRTool returns a QR tool with default settings.
func NewQRTool(env *Env) *QRTool {
	return &QRTool{env: env, panel: QRPanel{ImagePanel: defaultImagePanel()}}
}

// Panel returns the current settings.
func (t *QRTool) Panel() QRPanel { return t.panel }

// SetPanel replaces the settings. Out-of-range values are clamped.
func (t *QRTool) SetPanel(p QRPanel) {
	p.ImagePanel = p.ImagePanel.normalized()
	t.panel = p
}

// Generate encodes content as a PNG data URL.
func Generate(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("qr: %w: empty url", ErrInvalidInput)
	}
	png, err := qrcode.Encode(content, qrcode.Medium, qrPixels)
	if err != nil {
		return "", fmt.Errorf("qr: encode: %w", err)
	}
	return assets.DataURL("image/png", png), nil
}

// AddFromURL generates a code for the panel URL and adds it.
func (t *QRTool) AddFromURL(ctx context.Context) (*scene.Object, error) {
	src, err := Generate(t.panel.URL)
	if err != nil {
		return nil, err
	}
	return t.Add(ctx, src)
}

// Add adds the QR image at src, e.g. an uploaded code.
func (t *QRTool) Add(ctx context.Context, src string) (*scene.Object, error) {
	o, err := t.env.loadImageObject(ctx, "qr code", src, t.panel.Size, t.panel.Opacity)
	if err != nil {
		return nil, err
	}
	scene.TagRole(o, scene.RoleQR)
	t.env.commit(o)
	t.env.logger().Debugf("qr code added")
	return o, nil
}

// UpdateSelected resizes the targeted code and applies the opacity.
func (t *QRTool) UpdateSelected() bool {
	o := scene.TargetForRole(t.env.Scene, scene.RoleQR)
	if o == nil {
		return false
	}
	resizeTo(o, t.panel.Size)
	o.Opacity = percent(t.panel.Opacity)
	return true
}

// SyncFrom copies size and opacity from o into the panel.
func (t *QRTool) SyncFrom(o *scene.Object) {
	if size := SizeOf(o); size > 0 {
		t.panel.Size = size
	}
	t.panel.Opacity = OpacityPercent(o)
}
