package content

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/aaronparisi/technoblog/internal/theme"
)

// stubFetcher serves fixed texts. A ref with a gate blocks until the gate
// is closed; with ignoreCancel set it keeps blocking after cancellation,
// like a transport that cannot be interrupted.
type stubFetcher struct {
	mu           sync.Mutex
	texts        map[string]string
	gates        map[string]chan struct{}
	calls        map[string]int
	ignoreCancel bool
}

func newStubFetcher(texts map[string]string) *stubFetcher {
	return &stubFetcher{
		texts: texts,
		gates: make(map[string]chan struct{}),
		calls: make(map[string]int),
	}
}

func (s *stubFetcher) gate(ref string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.gates[ref] = ch
	return ch
}

func (s *stubFetcher) count(ref string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[ref]
}

func (s *stubFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	s.mu.Lock()
	s.calls[ref]++
	gate := s.gates[ref]
	text, ok := s.texts[ref]
	s.mu.Unlock()

	if gate != nil {
		if s.ignoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	if !ok {
		return "", ErrNotFound
	}
	return text, nil
}

func newTestView(f Fetcher, opts ...ViewOption) *View {
	return NewView(f, NewParser(), NewRenderer(DefaultPalette(), nil), opts...)
}

func waitPhase(t *testing.T, v *View, ref string, phase Phase) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s := v.Snapshot()
		if s.Ref == ref && s.Phase == phase {
			return s
		}
		time.Sleep(2 * time.Millisecond)
	}
	s := v.Snapshot()
	t.Fatalf("view stuck at %s %s, want %s %s", s.Ref, s.Phase, ref, phase)
	return s
}

const skillsetText = "# Skillset\n\nSome text.\n```js\nconsole.log(1)\n```"

func TestViewShowRenders(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newStubFetcher(map[string]string{"skillset.md": skillsetText})
	var phases []Phase
	v := newTestView(f, WithOnChange(func(s Snapshot) { phases = append(phases, s.Phase) }))
	defer v.Close()

	if s := v.Snapshot(); s.Phase != PhaseIdle {
		t.Fatalf("initial phase = %s", s.Phase)
	}

	v.Show("skillset.md")
	s := waitPhase(t, v, "skillset.md", PhaseRendered)
	if s.Document == nil || s.Document.Title != "Skillset" {
		t.Fatalf("document = %+v", s.Document)
	}
	if s.HTML == "" {
		t.Error("expected rendered html")
	}

	v.Close()
	if len(phases) != 2 || phases[0] != PhaseFetching || phases[1] != PhaseRendered {
		t.Errorf("phases = %v, want [fetching rendered]", phases)
	}
}

func TestViewLateResultDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newStubFetcher(map[string]string{"a.md": "# A\n", "b.md": "# B\n"})
	f.ignoreCancel = true
	gateA := f.gate("a.md")

	v := newTestView(f)
	v.Show("a.md")
	v.Show("b.md")
	waitPhase(t, v, "b.md", PhaseRendered)

	close(gateA)
	v.Close()

	s := v.Snapshot()
	if s.Ref != "b.md" || s.Phase != PhaseRendered || s.Document.Title != "B" {
		t.Errorf("after late A: ref %s phase %s title %q, want b.md rendered B", s.Ref, s.Phase, s.Document.Title)
	}
}

func TestViewReturnToEarlierRef(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newStubFetcher(map[string]string{"a.md": "# A\n", "b.md": "# B\n"})
	f.ignoreCancel = true
	gateA := f.gate("a.md")
	gateB := f.gate("b.md")

	v := newTestView(f)
	defer v.Close()
	v.Show("a.md")
	v.Show("b.md")
	v.Show("a.md")

	close(gateB)
	close(gateA)
	s := waitPhase(t, v, "a.md", PhaseRendered)
	if s.Generation != 3 {
		t.Errorf("Generation = %d, want 3", s.Generation)
	}
	if s.Document.Title != "A" {
		t.Errorf("Title = %q, want A", s.Document.Title)
	}
	if f.count("a.md") != 2 || f.count("b.md") != 1 {
		t.Errorf("fetches a=%d b=%d, want 2 and 1", f.count("a.md"), f.count("b.md"))
	}
}

func TestViewShowSameRefIsNoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newStubFetcher(map[string]string{"a.md": "# A\n"})
	v := newTestView(f)
	defer v.Close()

	v.Show("a.md")
	waitPhase(t, v, "a.md", PhaseRendered)
	v.Show("a.md")

	if s := v.Snapshot(); s.Generation != 1 || s.Phase != PhaseRendered {
		t.Errorf("snapshot = gen %d %s, want gen 1 rendered", s.Generation, s.Phase)
	}
	if n := f.count("a.md"); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
}

func TestViewClear(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newStubFetcher(map[string]string{"a.md": "# A\n"})
	v := newTestView(f)
	defer v.Close()

	v.Show("a.md")
	waitPhase(t, v, "a.md", PhaseRendered)
	v.Clear()
	if s := v.Snapshot(); s.Phase != PhaseIdle || s.Ref != "" || s.Document != nil || s.HTML != "" {
		t.Fatalf("after Clear: %+v", s)
	}

	v.Refresh()
	if n := f.count("a.md"); n != 1 {
		t.Errorf("Refresh of a cleared view fetched, count = %d", n)
	}

	v.Show("a.md")
	waitPhase(t, v, "a.md", PhaseRendered)
	if n := f.count("a.md"); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}
}

func TestViewClearDiscardsInFlight(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newStubFetcher(map[string]string{"a.md": "# A\n"})
	f.ignoreCancel = true
	gate := f.gate("a.md")

	v := newTestView(f)
	v.Show("a.md")
	v.Clear()
	close(gate)
	v.Close()

	if s := v.Snapshot(); s.Phase != PhaseIdle || s.Document != nil {
		t.Errorf("late result committed after Clear: %+v", s)
	}
}

func TestViewSetThemeDoesNotRefetch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newStubFetcher(map[string]string{"skillset.md": skillsetText})
	v := newTestView(f, WithTheme(theme.Light))
	defer v.Close()

	v.Show("skillset.md")
	light := waitPhase(t, v, "skillset.md", PhaseRendered)

	v.SetTheme(theme.Dark)
	dark := v.Snapshot()

	if dark.Theme != theme.Dark || dark.Phase != PhaseRendered {
		t.Fatalf("after SetTheme: theme %s phase %s", dark.Theme, dark.Phase)
	}
	if dark.HTML == light.HTML {
		t.Error("html should change with the theme")
	}
	if dark.Document != light.Document {
		t.Error("document should be reused")
	}
	if n := f.count("skillset.md"); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
}

func TestViewSetThemeWhileIdle(t *testing.T) {
	v := newTestView(newStubFetcher(nil))
	defer v.Close()

	v.SetTheme(theme.Dark)
	if s := v.Snapshot(); s.Theme != theme.Dark || s.Phase != PhaseIdle {
		t.Errorf("snapshot = %s %s", s.Theme, s.Phase)
	}
}

func TestViewFailedAndRetry(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newStubFetcher(map[string]string{})
	v := newTestView(f)
	defer v.Close()

	v.Show("missing.md")
	s := waitPhase(t, v, "missing.md", PhaseFailed)
	if !errors.Is(s.Err, ErrNotFound) {
		t.Errorf("Err = %v, want ErrNotFound", s.Err)
	}
	if s.Document != nil || s.HTML != "" {
		t.Error("failed view should hold no document")
	}

	f.mu.Lock()
	f.texts["missing.md"] = "# Found\n"
	f.mu.Unlock()

	v.Show("missing.md")
	s = waitPhase(t, v, "missing.md", PhaseRendered)
	if s.Err != nil || s.Document.Title != "Found" {
		t.Errorf("retry snapshot = %+v", s)
	}
}

func TestViewRefreshKeepsDocument(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newStubFetcher(map[string]string{"a.md": "# One\n"})
	v := newTestView(f)
	defer v.Close()

	v.Show("a.md")
	waitPhase(t, v, "a.md", PhaseRendered)

	gate := f.gate("a.md")
	f.mu.Lock()
	f.texts["a.md"] = "# Two\n"
	f.mu.Unlock()

	v.Refresh()
	s := v.Snapshot()
	if s.Phase != PhaseFetching || s.Document == nil || s.Document.Title != "One" {
		t.Errorf("during refresh: phase %s doc %+v", s.Phase, s.Document)
	}

	close(gate)
	s = waitPhase(t, v, "a.md", PhaseRendered)
	if s.Document.Title != "Two" {
		t.Errorf("Title = %q, want Two", s.Document.Title)
	}
}

func TestViewFetchTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newStubFetcher(map[string]string{"slow.md": "# Slow\n"})
	f.gate("slow.md")
	v := newTestView(f, WithFetchTimeout(20*time.Millisecond))
	defer v.Close()

	v.Show("slow.md")
	s := waitPhase(t, v, "slow.md", PhaseFailed)
	if !errors.Is(s.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want deadline exceeded", s.Err)
	}
}

func TestViewCloseCancelsFetch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newStubFetcher(map[string]string{"a.md": "# A\n"})
	f.gate("a.md")
	v := newTestView(f)

	v.Show("a.md")
	v.Close()

	if s := v.Snapshot(); s.Phase != PhaseFetching {
		t.Errorf("phase after close = %s, want the last committed phase", s.Phase)
	}
	v.Show("b.md")
	if v.Ref() != "a.md" {
		t.Errorf("Show after Close changed ref to %q", v.Ref())
	}
	v.Close()
}
