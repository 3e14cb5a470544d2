package overlaystudio

import (
	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/scene"
)

// CanvasSession is a saved editor state as stored in SQLite.
type CanvasSession struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	BackgroundURL string `json:"background_url"`
	OverlayJSON   string `json:"overlay_json,omitempty"`
	Metadata      string `json:"metadata,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// Scene decodes the stored overlay state.
func (s CanvasSession) Scene() (scene.Session, error) {
	meta, err := scene.UnmarshalMetadata(s.Metadata)
	if err != nil {
		return scene.Session{}, err
	}
	return scene.Session{
		BackgroundURL: s.BackgroundURL,
		Snapshot:      scene.Snapshot{OverlayJSON: s.OverlayJSON, Metadata: meta},
	}, nil
}

// Upload describes an uploaded image.
type Upload struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int    `json:"size"`
}

// createEditorRequest starts an editor on a background or a saved session.
type createEditorRequest struct {
	BackgroundURL string  `json:"backgroundUrl"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	SessionID     string  `json:"sessionId"`
}

type addRequest struct {
	URL       string          `json:"url"`
	ShapeType scene.ShapeType `json:"shapeType"`
}

type moveRequest struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

type scaleRequest struct {
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
}

type rotateRequest struct {
	Angle float64 `json:"angle"`
}

type textRequest struct {
	Content string `json:"content"`
}

type resizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type saveRequest struct {
	Name string `json:"name"`
}

// catalogResponse lists the assets a client can offer. Frames are filtered
// to the editor's aspect ratio when an editor is given.
type catalogResponse struct {
	Logos        []assets.Asset     `json:"logos"`
	LogoVariants []string           `json:"logoVariants"`
	Frames       []assets.Asset     `json:"frames"`
	Fonts        []assets.FontAsset `json:"fonts"`
	Shapes       []scene.ShapeSpec  `json:"shapes"`
	Ratio        string             `json:"ratio,omitempty"`
}
