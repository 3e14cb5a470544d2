package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/overlaystudio"
	"github.com/eringen/overlaystudio/views"
)

func loadConfig() overlaystudio.StudioConfig {
	return overlaystudio.StudioConfig{
		Name:          overlaystudio.EnvOr("STUDIO_NAME", "Overlay Studio"),
		Addr:          overlaystudio.EnvOr("STUDIO_ADDR", ":3000"),
		DatabasePath:  overlaystudio.EnvOr("STUDIO_DATABASE", "data/studio.db"),
		UploadDir:     overlaystudio.EnvOr("STUDIO_UPLOADS", "data/uploads"),
		CatalogPath:   os.Getenv("STUDIO_CATALOG"),
		CookieSecure:  os.Getenv("STUDIO_COOKIE_SECURE") == "true",
		SessionSecret: os.Getenv("STUDIO_SESSION_SECRET"),
	}
}

func viewFuncs(name string) overlaystudio.ViewFuncs {
	page := views.Page{Name: name}
	return overlaystudio.ViewFuncs{
		Index: func(sessions []overlaystudio.CanvasSession, name, csrf string) templ.Component {
			items := make([]views.SessionItem, 0, len(sessions))
			for _, s := range sessions {
				updated, _ := time.Parse(time.RFC3339, s.UpdatedAt)
				items = append(items, views.SessionItem{
					ID:        s.ID,
					Name:      s.Name,
					Thumbnail: s.Thumbnail,
					UpdatedAt: updated,
				})
			}
			return views.Index(views.Page{Name: name, CSRFToken: csrf}, items)
		},
		NotFound:    func() templ.Component { return views.NotFound(page) },
		ServerError: func() templ.Component { return views.ServerError(page) },
	}
}

func runServe() error {
	cfg := loadConfig()
	cfg.SessionSecret = overlaystudio.MustEnv("STUDIO_SESSION_SECRET")

	app := overlaystudio.New(cfg, viewFuncs(cfg.Name),
		overlaystudio.WithStaticDir(overlaystudio.EnvOr("STUDIO_STATIC", "public")),
	)
	defer app.Close()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
