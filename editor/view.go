package editor

import (
	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/history"
	"github.com/eringen/overlaystudio/scene"
	"github.com/eringen/overlaystudio/snap"
	"github.com/eringen/overlaystudio/tools"
)

// CanvasView describes the canvas for clients.
type CanvasView struct {
	BackgroundURL string  `json:"backgroundUrl"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	NaturalWidth  int     `json:"naturalWidth"`
	NaturalHeight int     `json:"naturalHeight"`
	AspectRatio   string  `json:"aspectRatio"`
	Multiplier    float64 `json:"exportMultiplier"`
}

// ObjectView is one overlay with its derived geometry.
type ObjectView struct {
	Index       int           `json:"index"`
	Object      *scene.Object `json:"object"`
	BoundingBox scene.Box     `json:"boundingBox"`
	Selected    bool          `json:"selected"`
}

// Panels holds every tool's current settings.
type Panels struct {
	Text  tools.TextPanel  `json:"text"`
	Logo  tools.LogoPanel  `json:"logo"`
	QR    tools.QRPanel    `json:"qr"`
	Frame tools.FramePanel `json:"frame"`
	Shape tools.ShapePanel `json:"shape"`
}

// Status reports replay progress and the last failure.
type Status struct {
	Restoring bool   `json:"restoring"`
	Pending   bool   `json:"pending"`
	Error     string `json:"error,omitempty"`
}

// View is the full editor state returned by the API.
type View struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId,omitempty"`
	Canvas    *CanvasView   `json:"canvas"`
	Objects   []ObjectView  `json:"objects"`
	Selected  int           `json:"selected"`
	History   history.State `json:"history"`
	Panels    Panels        `json:"panels"`
	Mode      string        `json:"mode"`
	Guides    []snap.Guide  `json:"guides"`
	Status    Status        `json:"status"`
}

// Snapshot returns a consistent view of the editor. Objects are copies.
func (e *Editor) Snapshot() (View, error) {
	if err := e.lock(); err != nil {
		return View{}, err
	}
	defer e.mu.Unlock()

	v := View{
		ID:        e.ID,
		SessionID: e.sessionID,
		Selected:  -1,
		History:   e.history.State(),
		Panels: Panels{
			Text:  e.selection.Text.Panel(),
			Logo:  e.selection.Logo.Panel(),
			QR:    e.selection.QR.Panel(),
			Frame: e.selection.Frame.Panel(),
			Shape: e.selection.Shape.Panel(),
		},
		Mode:   e.selection.Mode().String(),
		Guides: append([]snap.Guide(nil), e.guides...),
		Status: Status{
			Restoring: e.history.Restoring(),
			Pending:   e.history.Pending(),
		},
	}
	if e.lastErr != nil {
		v.Status.Error = e.lastErr.Error()
	}
	if bg := e.scene.Background(); bg != nil {
		w, h := e.scene.Size()
		v.Canvas = &CanvasView{
			BackgroundURL: bg.URL,
			Width:         w,
			Height:        h,
			NaturalWidth:  bg.NaturalWidth,
			NaturalHeight: bg.NaturalHeight,
			AspectRatio:   assets.AspectRatio(float64(bg.NaturalWidth), float64(bg.NaturalHeight)),
			Multiplier:    e.scene.ExportMultiplier(),
		}
	}
	active := e.scene.Active()
	for i, o := range e.scene.Objects() {
		if o.Transient {
			continue
		}
		if o == active {
			v.Selected = i
		}
		v.Objects = append(v.Objects, ObjectView{
			Index:       i,
			Object:      o.Clone(),
			BoundingBox: o.BoundingBox(),
			Selected:    o == active,
		})
	}
	return v, nil
}
