package overlaystudio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/editor"
	"github.com/eringen/overlaystudio/export"
	"github.com/eringen/overlaystudio/scene"
	"github.com/eringen/overlaystudio/tools"
)

const (
	sessionListLimit = 100
	maxPanelBody     = 64 << 10
)

// apiError maps domain errors to HTTP errors. Errors with no mapping get
// the fallback status; 5xx fallbacks are returned unchanged so the error
// handler logs them.
func apiError(err error, fallback int) error {
	var he *echo.HTTPError
	code := fallback
	switch {
	case errors.As(err, &he):
		return err
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, editor.ErrClosed):
		code = http.StatusGone
	case errors.Is(err, editor.ErrUnknownPanel):
		code = http.StatusNotFound
	case errors.Is(err, editor.ErrInvalidPanel),
		errors.Is(err, tools.ErrInvalidInput),
		errors.Is(err, tools.ErrNoVariant),
		errors.Is(err, tools.ErrVariantMismatch),
		errors.Is(err, tools.ErrNoCanvas),
		errors.Is(err, scene.ErrIndexOutOfRange),
		errors.Is(err, scene.ErrNoBackground):
		code = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	if code >= 500 && code == fallback {
		return err
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}

func (a *App) lookupEditor(c echo.Context) (*editor.Editor, error) {
	e, ok := a.Editors.Get(c.Param("id"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "editor not found")
	}
	return e, nil
}

func editorState(c echo.Context, code int, e *editor.Editor) error {
	v, err := e.Snapshot()
	if err != nil {
		return apiError(err, http.StatusInternalServerError)
	}
	return c.JSON(code, v)
}

// canvasBounds returns the display bounds for a request, falling back to
// the configured maximum.
func (a *App) canvasBounds(w, h float64) (float64, float64) {
	if w <= 0 || w > a.Config.CanvasMaxWidth {
		w = a.Config.CanvasMaxWidth
	}
	if h <= 0 || h > a.Config.CanvasMaxHeight {
		h = a.Config.CanvasMaxHeight
	}
	return w, h
}

func (a *App) handleIndex(c echo.Context) error {
	sessions, err := a.Store.ListSessions(sessionListLimit)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Index(sessions, a.Config.Name, CsrfToken(c)))
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleCatalog(c echo.Context) error {
	cat, err := a.Catalog.Get()
	if err != nil {
		return err
	}
	resp := catalogResponse{
		Logos:        cat.Logos,
		LogoVariants: assets.LogoVariants(cat.Logos),
		Frames:       cat.Frames,
		Fonts:        cat.Fonts,
		Shapes:       scene.ShapeCatalog,
	}
	if v := c.QueryParam("variant"); v != "" {
		resp.Logos = assets.FilterLogos(cat.Logos, v)
	}
	if id := c.QueryParam("editor"); id != "" {
		e, ok := a.Editors.Get(id)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "editor not found")
		}
		resp.Ratio = e.FrameRatio()
		resp.Frames = assets.FilterFrames(cat.Frames, resp.Ratio)
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *App) handleListSessions(c echo.Context) error {
	sessions, err := a.Store.ListSessions(sessionListLimit)
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []CanvasSession{}
	}
	return c.JSON(http.StatusOK, sessions)
}

func (a *App) handleDeleteSession(c echo.Context) error {
	if err := a.Store.DeleteSession(c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleCreateEditor starts an editor on a background image or a saved
// session and remembers it in the session cookie. The editor the cookie
// pointed to before is closed.
func (a *App) handleCreateEditor(c echo.Context) error {
	var req createEditorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" && strings.TrimSpace(req.BackgroundURL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "backgroundUrl or sessionId is required")
	}
	maxW, maxH := a.canvasBounds(req.Width, req.Height)

	var sess scene.Session
	var sessionID string
	if req.SessionID != "" {
		cs, err := a.Store.GetSession(req.SessionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "session not found")
			}
			return err
		}
		if sess, err = cs.Scene(); err != nil {
			return apiError(err, http.StatusUnprocessableEntity)
		}
		sessionID = cs.ID
	}

	e, err := a.Editors.Create()
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if sessionID != "" {
		err = e.Restore(ctx, sessionID, sess, maxW, maxH)
	} else {
		err = e.LoadBackground(ctx, req.BackgroundURL, maxW, maxH)
	}
	if err != nil {
		a.Editors.Remove(e.ID)
		return apiError(err, http.StatusUnprocessableEntity)
	}

	if prev := currentEditorID(c); prev != "" && prev != e.ID {
		a.Editors.Remove(prev)
	}
	if err := setCurrentEditor(c, e.ID); err != nil {
		c.Logger().Warnf("editor %s: save cookie: %v", e.ID, err)
	}
	c.Logger().Infof("editor %s: started (session %q)", e.ID, sessionID)
	return editorState(c, http.StatusCreated, e)
}

func (a *App) handleCurrentEditor(c echo.Context) error {
	id := currentEditorID(c)
	e, ok := a.Editors.Get(id)
	if id == "" || !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no current editor")
	}
	return editorState(c, http.StatusOK, e)
}

func (a *App) handleGetEditor(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	return editorState(c, http.StatusOK, e)
}

func (a *App) handleCloseEditor(c echo.Context) error {
	id := c.Param("id")
	if !a.Editors.Remove(id) {
		return echo.NewHTTPError(http.StatusNotFound, "editor not found")
	}
	if currentEditorID(c) == id {
		if err := clearCurrentEditor(c); err != nil {
			c.Logger().Warnf("editor %s: clear cookie: %v", id, err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// added responds to an add operation. Asset failures are the caller's
// problem, so unmapped errors are 422.
func added(c echo.Context, e *editor.Editor, err error) error {
	if err != nil {
		return apiError(err, http.StatusUnprocessableEntity)
	}
	return editorState(c, http.StatusCreated, e)
}

func (a *App) handleAddText(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	_, err = e.AddText()
	return added(c, e, err)
}

func (a *App) handleAddLogo(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	_, err = e.AddLogo(c.Request().Context(), req.URL)
	return added(c, e, err)
}

func (a *App) handleAddQR(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	_, err = e.AddQR(c.Request().Context(), req.URL)
	return added(c, e, err)
}

func (a *App) handleAddFrame(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	frame, ok, err := a.Catalog.Frame(req.URL)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "frame not in catalog")
	}
	_, err = e.AddFrame(c.Request().Context(), frame)
	return added(c, e, err)
}

func (a *App) handleAddShape(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	_, err = e.AddShape(req.ShapeType)
	return added(c, e, err)
}

// handleSetPanel merges the request body over the current panel settings
// and applies them to the targeted object.
func (a *App) handleSetPanel(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPanelBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid panel settings")
	}
	_, err = e.UpdatePanel(c.Param("panel"), func(p any) error {
		c.Request().Body = io.NopCloser(bytes.NewReader(body))
		return c.Bind(p)
	})
	if err != nil {
		return apiError(err, http.StatusInternalServerError)
	}
	return editorState(c, http.StatusOK, e)
}

func (a *App) handleDeselect(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	if err := e.ClearSelection(); err != nil {
		return apiError(err, http.StatusInternalServerError)
	}
	return editorState(c, http.StatusOK, e)
}

// handleGesture dispatches one pointer or keyboard gesture on an object.
func (a *App) handleGesture(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	idx, err := parseIndex(c)
	if err != nil {
		return err
	}
	bad := echo.NewHTTPError(http.StatusBadRequest, "invalid request body")

	switch c.Param("gesture") {
	case "select":
		err = e.Select(idx)
	case "move":
		var req moveRequest
		if err := c.Bind(&req); err != nil {
			return bad
		}
		_, err = e.Move(idx, req.Left, req.Top)
	case "scale":
		var req scaleRequest
		if err := c.Bind(&req); err != nil {
			return bad
		}
		_, err = e.Scale(idx, req.ScaleX, req.ScaleY)
	case "rotate":
		var req rotateRequest
		if err := c.Bind(&req); err != nil {
			return bad
		}
		err = e.Rotate(idx, req.Angle)
	case "release":
		err = e.Release(idx)
	case "text":
		var req textRequest
		if err := c.Bind(&req); err != nil {
			return bad
		}
		err = e.EditText(idx, req.Content)
	case "text-exit":
		err = e.ExitTextEditing(idx)
	default:
		return echo.NewHTTPError(http.StatusNotFound, "unknown gesture")
	}
	if err != nil {
		return apiError(err, http.StatusInternalServerError)
	}
	return editorState(c, http.StatusOK, e)
}

func (a *App) handleDeleteObject(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	idx, err := parseIndex(c)
	if err != nil {
		return err
	}
	if err := e.Delete(idx); err != nil {
		return apiError(err, http.StatusInternalServerError)
	}
	return editorState(c, http.StatusOK, e)
}

// Replay failures are reported in the state's status, not as HTTP errors.
func (a *App) handleUndo(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	if _, err := e.Undo(c.Request().Context()); err != nil {
		return apiError(err, http.StatusInternalServerError)
	}
	return editorState(c, http.StatusOK, e)
}

func (a *App) handleRedo(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	if _, err := e.Redo(c.Request().Context()); err != nil {
		return apiError(err, http.StatusInternalServerError)
	}
	return editorState(c, http.StatusOK, e)
}

func (a *App) handleResize(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	var req resizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	maxW, maxH := a.canvasBounds(req.Width, req.Height)
	if _, err := e.Resize(maxW, maxH); err != nil {
		return apiError(err, http.StatusInternalServerError)
	}
	return editorState(c, http.StatusOK, e)
}

// handleSave persists the editor state with a thumbnail and binds the
// editor to the saved session, so later saves update it in place.
func (a *App) handleSave(c echo.Context) error {
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	var req saveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sess, err := e.Session()
	if err != nil {
		return apiError(err, http.StatusInternalServerError)
	}
	meta, err := scene.MarshalMetadata(sess.Metadata)
	if err != nil {
		return err
	}

	cs := CanvasSession{
		ID:            e.SessionID(),
		BackgroundURL: sess.BackgroundURL,
		OverlayJSON:   sess.OverlayJSON,
		Metadata:      meta,
	}
	name := req.Name
	if strings.TrimSpace(name) == "" && cs.ID != "" {
		if prev, err := a.Store.GetSession(cs.ID); err == nil {
			name = prev.Name
		}
	}
	cs.Name = SessionName(name, time.Now())

	if thumb, err := e.Thumbnail(c.Request().Context()); err != nil {
		c.Logger().Warnf("editor %s: thumbnail: %v", e.ID, err)
	} else {
		cs.Thumbnail = assets.DataURL(thumb.ContentType, thumb.Data)
	}

	saved, err := a.Store.SaveSession(cs)
	if err != nil {
		return err
	}
	e.SetSessionID(saved.ID)
	c.Logger().Infof("editor %s: saved session %s (%d objects)", e.ID, saved.ID, len(sess.Metadata))
	return c.JSON(http.StatusOK, saved)
}

func (a *App) handleExport(c echo.Context) error {
	if !a.exportLimiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many exports, try again shortly")
	}
	e, err := a.lookupEditor(c)
	if err != nil {
		return err
	}
	// Options may come as query parameters, a JSON body or both.
	var opts export.Options
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &opts); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid export options")
	}
	if err := c.Bind(&opts); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid export options")
	}
	if opts.Format, err = export.ParseFormat(string(opts.Format)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if opts.Position, err = export.ParsePosition(string(opts.Position)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := e.Export(c.Request().Context(), opts)
	if err != nil {
		return apiError(err, http.StatusInternalServerError)
	}
	return Attachment(c, res.Format.Filename(), res.ContentType, res.Data)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		msg := http.StatusText(code)
		if ok && code < 500 {
			if s, isStr := he.Message.(string); isStr {
				msg = s
			}
		}
		_ = c.JSON(code, errorResponse{Error: msg})
		return
	}

	switch {
	case code == http.StatusNotFound && a.Views.NotFound != nil:
		_ = RenderStatus(c, code, a.Views.NotFound())
	case code >= 500 && a.Views.ServerError != nil:
		_ = RenderStatus(c, code, a.Views.ServerError())
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
