package history

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/eringen/overlaystudio/scene"
)

type manualTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

// manualScheduler never fires on its own; tests call fire.
type manualScheduler struct {
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{f: f}
	s.timers = append(s.timers, t)
	return t
}

// fire runs every timer that has not been stopped, including ones stopped
// after they "fired" but before they got the lock, to model late callbacks.
func (s *manualScheduler) fire(includeStopped bool) {
	timers := s.timers
	s.timers = nil
	for _, t := range timers {
		if t.stopped && !includeStopped {
			continue
		}
		t.fired = true
		t.f()
	}
}

type fixture struct {
	scene *scene.Scene
	mu    *sync.Mutex
	sched *manualScheduler
	hist  *Manager
	errs  []error
}

func newFixture(t *testing.T, loader ImageLoader) *fixture {
	t.Helper()
	f := &fixture{scene: scene.New(), mu: &sync.Mutex{}, sched: &manualScheduler{}}
	f.scene.SetBackground(scene.NewBackground("/uploads/bg.png", image.NewRGBA(image.Rect(0, 0, 800, 600))), 1)
	f.hist = New(Config{
		Scene:     f.scene,
		Lock:      f.mu,
		Loader:    loader,
		Scheduler: f.sched,
		OnError:   func(err error) { f.errs = append(f.errs, err) },
	})
	return f
}

func addText(s *scene.Scene, content string) *scene.Object {
	o := scene.NewObject(scene.KindText)
	o.Width, o.Height = 100, 30
	o.Text = &scene.TextProps{Content: content, FontSize: 24, FontFamily: "Manrope", LineHeight: 1.2, Fill: "rgba(0,0,0,1)"}
	scene.TagRole(o, scene.RoleText)
	s.Add(o)
	return o
}

func TestCaptureDedupsIdenticalState(t *testing.T) {
	f := newFixture(t, nil)
	f.hist.Capture(true)
	f.hist.Capture(true)
	if got := f.hist.State().Length; got != 1 {
		t.Fatalf("Length = %d, want 1", got)
	}
	addText(f.scene, "a")
	f.hist.Capture(true)
	f.hist.Capture(true)
	if got := f.hist.State().Length; got != 2 {
		t.Errorf("Length = %d, want 2", got)
	}
}

func TestCaptureRequiresBackground(t *testing.T) {
	f := newFixture(t, nil)
	f.scene.Clear()
	f.hist.Capture(true)
	if got := f.hist.State().Length; got != 0 {
		t.Errorf("Length = %d, want 0", got)
	}
}

func TestCaptureCap(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < DefaultLimit+10; i++ {
		addText(f.scene, fmt.Sprintf("t%d", i))
		f.hist.Capture(true)
	}
	st := f.hist.State()
	if st.Length != DefaultLimit {
		t.Errorf("Length = %d, want %d", st.Length, DefaultLimit)
	}
	if st.Index != DefaultLimit-1 {
		t.Errorf("Index = %d, want %d", st.Index, DefaultLimit-1)
	}
	first := f.hist.Entries()[0]
	if len(first.Metadata) != 11 {
		t.Errorf("oldest entry has %d objects, want 11", len(first.Metadata))
	}
}

func TestUndoRedoInverse(t *testing.T) {
	f := newFixture(t, nil)
	f.hist.Capture(true)
	addText(f.scene, "a")
	f.hist.Capture(true)
	before, _ := scene.SerializeOverlays(f.scene)

	ctx := context.Background()
	if !f.hist.Undo(ctx) {
		t.Fatalf("Undo should apply")
	}
	if f.scene.Len() != 0 {
		t.Errorf("Len after undo = %d, want 0", f.scene.Len())
	}
	if !f.hist.Redo(ctx) {
		t.Fatalf("Redo should apply")
	}
	after, _ := scene.SerializeOverlays(f.scene)
	if before != after {
		t.Errorf("redo did not restore state:\n%s\n%s", before, after)
	}
	if f.hist.Redo(ctx) {
		t.Errorf("Redo at the end should be a no-op")
	}
	f.hist.Undo(ctx)
	if f.hist.Undo(ctx) {
		t.Errorf("Undo at the start should be a no-op")
	}
}

func TestCaptureTruncatesRedoTail(t *testing.T) {
	f := newFixture(t, nil)
	f.hist.Capture(true)
	addText(f.scene, "a")
	f.hist.Capture(true)
	addText(f.scene, "b")
	f.hist.Capture(true)

	f.hist.Undo(context.Background())
	f.hist.Undo(context.Background())
	addText(f.scene, "c")
	f.hist.Capture(true)

	st := f.hist.State()
	if st.Length != 2 || st.Index != 1 || st.CanRedo {
		t.Errorf("State = %+v, want length 2 index 1 without redo", st)
	}
}

func TestDebouncedCaptureCoalesces(t *testing.T) {
	f := newFixture(t, nil)
	f.hist.Capture(true)
	addText(f.scene, "a")
	f.hist.Capture(false)
	addText(f.scene, "b")
	f.hist.Capture(false)

	if got := f.hist.State().Length; got != 1 {
		t.Fatalf("Length before timers fire = %d, want 1", got)
	}
	f.sched.fire(false)
	if got := f.hist.State().Length; got != 2 {
		t.Errorf("Length = %d, want 2", got)
	}
}

func TestImmediateCaptureCancelsPending(t *testing.T) {
	f := newFixture(t, nil)
	addText(f.scene, "a")
	f.hist.Capture(false)
	f.hist.Capture(true)
	// the superseded callback runs late and must be ignored
	addText(f.scene, "b")
	f.sched.fire(true)
	if got := f.hist.State().Length; got != 1 {
		t.Errorf("Length = %d, want 1", got)
	}
}

func TestMoveDebounceIsIndependent(t *testing.T) {
	f := newFixture(t, nil)
	f.hist.Capture(true)
	addText(f.scene, "a")
	f.hist.CaptureMoved()
	f.hist.Capture(false)

	f.hist.CancelMove()
	if !f.hist.Pending() {
		t.Fatalf("general capture should still be pending")
	}
	f.sched.fire(false)
	if got := f.hist.State().Length; got != 2 {
		t.Errorf("Length = %d, want 2", got)
	}
}

func TestCaptureDroppedWhileRestoring(t *testing.T) {
	f := newFixture(t, nil)
	f.hist.Capture(true)
	addText(f.scene, "a")
	f.hist.Capture(true)

	var during int
	f.hist.cfg.OnRestored = func(scene.Snapshot) {
		addText(f.scene, "sneaky")
		f.hist.Capture(true)
		during = f.hist.State().Length
	}
	f.hist.Undo(context.Background())
	if during != 2 {
		t.Errorf("Length during restore = %d, want 2", during)
	}
	if f.hist.Restoring() {
		t.Errorf("restoring flag should be cleared")
	}
}

func TestReplayFailureLeavesIndex(t *testing.T) {
	fail := errors.New("network down")
	var calls int
	loader := func(ctx context.Context, url string) (image.Image, error) {
		calls++
		return nil, fail
	}
	f := newFixture(t, loader)
	f.hist.Capture(true)
	addText(f.scene, "a")
	f.hist.Capture(true)

	if f.hist.Undo(context.Background()) {
		t.Fatalf("Undo should report failure")
	}
	if got := f.hist.State().Index; got != 1 {
		t.Errorf("Index = %d, want 1", got)
	}
	if f.scene.Len() != 1 {
		t.Errorf("scene was modified by a failed replay")
	}
	if len(f.errs) != 1 || !errors.Is(f.errs[0], fail) {
		t.Errorf("errs = %v, want wrapped %v", f.errs, fail)
	}
	if f.hist.Restoring() {
		t.Errorf("restoring flag should be cleared after failure")
	}
	if calls != 1 {
		t.Errorf("loader calls = %d, want 1", calls)
	}
}

func TestReplayAbortsOnCancelledContext(t *testing.T) {
	loader := func(ctx context.Context, url string) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 800, 600)), nil
	}
	f := newFixture(t, loader)
	f.hist.Capture(true)
	addText(f.scene, "a")
	f.hist.Capture(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if f.hist.Undo(ctx) {
		t.Fatalf("Undo should not commit with a cancelled context")
	}
	if f.scene.Len() != 1 {
		t.Errorf("Len = %d, want 1", f.scene.Len())
	}
}

func TestCloseIgnoresLateTimers(t *testing.T) {
	f := newFixture(t, nil)
	addText(f.scene, "a")
	f.hist.Capture(false)
	f.hist.Close()
	f.sched.fire(true)
	if got := f.hist.State().Length; got != 0 {
		t.Errorf("Length = %d, want 0", got)
	}
}

func TestEditCycleWithWallClock(t *testing.T) {
	mu := &sync.Mutex{}
	s := scene.New()
	s.SetBackground(scene.NewBackground("/bg.png", image.NewRGBA(image.Rect(0, 0, 400, 300))), 1)
	h := New(Config{Scene: s, Lock: mu})

	mu.Lock()
	h.Capture(true)
	o := addText(s, "hello")
	h.Capture(true)
	o.Text.Content = "hello world"
	h.Capture(false)
	mu.Unlock()

	time.Sleep(DefaultDebounce + 150*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if got := h.State().Length; got != 3 {
		t.Fatalf("Length = %d, want 3", got)
	}
	h.Undo(context.Background())
	objs := s.Objects()
	if len(objs) != 1 || objs[0].Text.Content != "hello" {
		t.Errorf("undo should restore the first text content")
	}
	h.Undo(context.Background())
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestRescaleEntries(t *testing.T) {
	f := newFixture(t, nil)
	f.hist.Capture(true)
	o := addText(f.scene, "a")
	o.Left, o.Top = 100, 40
	f.hist.Capture(true)

	if err := f.hist.Rescale(0.5); err != nil {
		t.Fatalf("Rescale failed: %v", err)
	}
	cur, _ := f.hist.Current()
	objs, err := cur.Objects()
	if err != nil {
		t.Fatalf("Objects failed: %v", err)
	}
	if objs[0].Left != 50 || objs[0].Top != 20 || objs[0].ScaleX != 0.5 {
		t.Errorf("rescaled object = (%v, %v) x%v, want (50, 20) x0.5", objs[0].Left, objs[0].Top, objs[0].ScaleX)
	}
	if objs[0].Role != scene.RoleText {
		t.Errorf("Role = %v, want text", objs[0].Role)
	}
	if got := f.hist.State(); got.Length != 2 || got.Index != 1 {
		t.Errorf("State = %+v, want length 2 index 1", got)
	}
}
