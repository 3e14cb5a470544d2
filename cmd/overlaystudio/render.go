package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/eringen/overlaystudio"
	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/editor"
	"github.com/eringen/overlaystudio/export"
)

// runRender exports a saved session without starting the server. The output
// format follows the file extension.
func runRender(sessionID, out string) error {
	cfg := loadConfig()
	format, err := export.ParseFormat(strings.TrimPrefix(filepath.Ext(out), "."))
	if err != nil {
		return err
	}

	store, err := overlaystudio.NewStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	cs, err := store.GetSession(sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}
	sess, err := cs.Scene()
	if err != nil {
		return fmt.Errorf("decode session %s: %w", sessionID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	loader := assets.NewLoader(overlaystudio.EnvOr("STUDIO_STATIC", "public"), cfg.UploadDir, nil)
	fonts, err := assets.NewFontBook()
	if err != nil {
		return err
	}
	if cfg.CatalogPath != "" {
		cat, err := assets.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return err
		}
		if err := fonts.RegisterCatalog(ctx, loader, cat.Fonts); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	e, err := editor.New(cs.ID, editor.Config{Images: loader, Fonts: fonts})
	if err != nil {
		return err
	}
	defer e.Close()
	// Export renders at the background's native size, so the display bound
	// only affects object placement before scaling back up.
	if err := e.Restore(ctx, cs.ID, sess, 1200, 800); err != nil {
		return err
	}
	res, err := e.Export(ctx, export.Options{Format: format, Quality: export.DefaultQuality})
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%dx%d, %s)\n", out, res.Width, res.Height, humanize.Bytes(uint64(len(res.Data))))
	return nil
}
