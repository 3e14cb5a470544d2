package overlaystudio

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/eringen/overlaystudio/assets"
	"github.com/eringen/overlaystudio/editor"
)

func newTestRegistry(t *testing.T, ttl time.Duration) *Registry {
	t.Helper()
	r := NewRegistry(editor.Config{Images: assets.NewLoader(t.TempDir(), t.TempDir(), nil)}, ttl)
	t.Cleanup(r.Close)
	return r
}

func TestRegistryCreateAndRemove(t *testing.T) {
	r := newTestRegistry(t, time.Minute)

	e, err := r.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got, ok := r.Get(e.ID); !ok || got != e {
		t.Fatalf("Get(%s) = %v, %v", e.ID, got, ok)
	}
	if !r.Remove(e.ID) {
		t.Fatal("expected Remove to find the editor")
	}
	if r.Remove(e.ID) {
		t.Error("second Remove should report false")
	}
	if _, err := e.Snapshot(); !errors.Is(err, editor.ErrClosed) {
		t.Errorf("Snapshot after remove err = %v, want ErrClosed", err)
	}
}

func TestRegistrySweepClosesIdleEditors(t *testing.T) {
	r := newTestRegistry(t, time.Minute)

	idle, err := r.Create()
	if err != nil {
		t.Fatal(err)
	}
	if n := r.Sweep(time.Now()); n != 0 {
		t.Errorf("Sweep closed %d fresh editors", n)
	}
	if n := r.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
	if _, ok := r.Get(idle.ID); ok {
		t.Error("idle editor still registered")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

// blockingImages holds every load until release is closed or the load is
// cancelled.
type blockingImages struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingImages) Image(ctx context.Context, src string) (image.Image, error) {
	close(b.started)
	select {
	case <-b.release:
		return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRegistrySweepDoesNotWaitForBusyEditor(t *testing.T) {
	images := &blockingImages{started: make(chan struct{}), release: make(chan struct{})}
	r := NewRegistry(editor.Config{Images: images}, time.Minute)
	t.Cleanup(r.Close)

	e, err := r.Create()
	if err != nil {
		t.Fatal(err)
	}
	loaded := make(chan error, 1)
	go func() {
		loaded <- e.LoadBackground(context.Background(), "/slow.png", 800, 600)
	}()
	<-images.started

	swept := make(chan int, 1)
	go func() { swept <- r.Sweep(time.Now()) }()
	select {
	case n := <-swept:
		if n != 0 {
			t.Errorf("Sweep closed %d busy editors", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Sweep blocked on an editor holding its lock")
	}
	if _, ok := r.Get(e.ID); !ok {
		t.Error("busy editor should stay registered")
	}

	close(images.release)
	if err := <-loaded; err != nil {
		t.Errorf("LoadBackground failed: %v", err)
	}
}

func TestRegistryCloseClosesAll(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	a, _ := r.Create()
	b, _ := r.Create()

	r.Close()
	r.Close()
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
	for _, e := range []*editor.Editor{a, b} {
		if _, err := e.Snapshot(); !errors.Is(err, editor.ErrClosed) {
			t.Errorf("editor %s err = %v, want ErrClosed", e.ID, err)
		}
	}
}
