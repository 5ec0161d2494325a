package session_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/DMarby/postcard-poodle/internal/caption"
	"github.com/DMarby/postcard-poodle/internal/caption/mock"
	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/DMarby/postcard-poodle/internal/hmac"
	"github.com/DMarby/postcard-poodle/internal/logger"
	"github.com/DMarby/postcard-poodle/internal/render"
	"github.com/DMarby/postcard-poodle/internal/session"
)

type renderer struct {
	mutex sync.Mutex
	tasks []*render.Task
}

func (r *renderer) Process(ctx context.Context, task *render.Task) ([]byte, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.tasks = append(r.tasks, task)
	return []byte(task.Output.String()), nil
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	state := session.New().Snapshot()

	if state.HasImage() || state.Filter != filter.None || state.Caption != caption.Fallback || state.Generating {
		t.Errorf("wrong initial state %+v", state)
	}
}

func TestSelectImage(t *testing.T) {
	s := session.New()

	if !s.SelectImage("image/png", pngBytes(t, 12, 8)) {
		t.Fatal("image not accepted")
	}

	first := s.Snapshot()
	if first.Source == nil || first.Source.Width != 12 || first.Source.Height != 8 {
		t.Fatalf("wrong source %+v", first.Source)
	}

	tests := []struct {
		Name        string
		ContentType string
		Data        []byte
	}{
		{"text file", "text/plain", []byte("hello")},
		{"undecodable image", "image/png", []byte("nope")},
		{"pdf", "application/pdf", pngBytes(t, 4, 4)},
	}

	for _, test := range tests {
		if s.SelectImage(test.ContentType, test.Data) {
			t.Errorf("%s: accepted", test.Name)
		}

		if s.Snapshot().Source != first.Source {
			t.Errorf("%s: state changed", test.Name)
		}
	}
}

func TestSnapshotsAreImmutable(t *testing.T) {
	s := session.New()
	before := s.Snapshot()

	s.ChooseFilter(filter.Neon)
	s.EditCaption("Greetings")

	if before.Filter != filter.None || before.Caption != caption.Fallback {
		t.Errorf("published snapshot changed %+v", before)
	}

	after := s.Snapshot()
	if after.Filter != filter.Neon || after.Caption != "Greetings" {
		t.Errorf("wrong state %+v", after)
	}
}

func TestEditCaption(t *testing.T) {
	s := session.New()

	s.EditCaption("")
	if got := s.Snapshot().Caption; got != "" {
		t.Errorf("empty caption replaced with %q", got)
	}

	s.EditCaption(strings.Repeat("a", 75))
	got := s.Snapshot().Caption
	if utf8.RuneCountInString(got) != caption.MaxLength || !strings.HasSuffix(got, caption.Ellipsis) {
		t.Errorf("caption not clamped %q", got)
	}
}

func TestGenerateCaption(t *testing.T) {
	t.Run("updates the caption", func(t *testing.T) {
		s := session.New()
		s.ChooseFilter(filter.Flare)
		provider := &mock.Provider{Caption: strings.Repeat("z", 80)}

		text, err := s.GenerateCaption(context.Background(), provider)
		if err != nil {
			t.Fatal(err)
		}

		state := s.Snapshot()
		if state.Caption != text || utf8.RuneCountInString(text) != 60 || !strings.HasSuffix(text, "...") {
			t.Errorf("wrong caption %q", state.Caption)
		}

		if state.Generating {
			t.Error("still generating")
		}
	})

	t.Run("keeps the caption on failure", func(t *testing.T) {
		s := session.New()
		s.EditCaption("Mine")
		provider := &mock.Provider{Err: &caption.ProviderError{Err: errors.New("down")}}

		_, err := s.GenerateCaption(context.Background(), provider)
		var providerErr *caption.ProviderError
		if !errors.As(err, &providerErr) {
			t.Fatalf("wrong error %v", err)
		}

		state := s.Snapshot()
		if state.Caption != "Mine" || state.Generating {
			t.Errorf("wrong state %+v", state)
		}
	})

	t.Run("rejects concurrent generation", func(t *testing.T) {
		s := session.New()
		provider := &mock.Provider{Caption: "Bonjour!", Release: make(chan struct{})}

		done := make(chan error)
		go func() {
			_, err := s.GenerateCaption(context.Background(), provider)
			done <- err
		}()

		waitFor(t, func() bool { return s.Snapshot().Generating })

		if _, err := s.GenerateCaption(context.Background(), provider); !errors.Is(err, session.ErrGenerationInFlight) {
			t.Errorf("wrong error %v", err)
		}

		close(provider.Release)
		if err := <-done; err != nil {
			t.Fatal(err)
		}

		if provider.Calls() != 1 {
			t.Errorf("provider called %d times", provider.Calls())
		}

		if s.Snapshot().Caption != "Bonjour!" {
			t.Errorf("wrong caption %q", s.Snapshot().Caption)
		}
	})

	t.Run("edit supersedes generation", func(t *testing.T) {
		s := session.New()
		provider := &mock.Provider{Caption: "Too late", Release: make(chan struct{})}

		done := make(chan error)
		go func() {
			_, err := s.GenerateCaption(context.Background(), provider)
			done <- err
		}()

		waitFor(t, func() bool { return s.Snapshot().Generating })
		s.EditCaption("Typed by hand")

		if err := <-done; !errors.Is(err, session.ErrSuperseded) {
			t.Errorf("wrong error %v", err)
		}

		state := s.Snapshot()
		if state.Caption != "Typed by hand" || state.Generating {
			t.Errorf("wrong state %+v", state)
		}
	})
}

func TestRender(t *testing.T) {
	s := session.New()
	r := &renderer{}

	preview, err := s.Preview(context.Background(), r)
	if preview != nil || err != nil {
		t.Errorf("preview without image: %q %v", preview, err)
	}

	exported, err := s.Export(context.Background(), r)
	if exported != nil || err != nil {
		t.Errorf("export without image: %q %v", exported, err)
	}

	if len(r.tasks) != 0 {
		t.Fatalf("rendered without an image")
	}

	s.SelectImage("image/png", pngBytes(t, 10, 10))
	s.ChooseFilter(filter.Pixelate)
	s.EditCaption("Hi 🐾")

	if data, _ := s.Preview(context.Background(), r); string(data) != "preview" {
		t.Errorf("wrong preview %q", data)
	}

	if data, _ := s.Export(context.Background(), r); string(data) != "postcard" {
		t.Errorf("wrong export %q", data)
	}

	task := r.tasks[1]
	if task.Filter != filter.Pixelate || task.Caption != "Hi 🐾" || task.Source != s.Snapshot().Source {
		t.Errorf("wrong task %+v", task)
	}
}

func TestStore(t *testing.T) {
	h := &hmac.HMAC{Key: []byte("secret")}
	store := session.NewStore(logger.Nop(), h, time.Minute, 2)

	id, created, err := store.Create()
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(id)
	if err != nil || got != created {
		t.Fatalf("wrong session %v", err)
	}

	forged, _ := (&hmac.HMAC{Key: []byte("other")}).Sign(strings.SplitN(id, ".", 2)[0])
	for _, bad := range []string{"", "unknown", forged, id + "x"} {
		if _, err := store.Get(bad); !errors.Is(err, session.ErrNotFound) {
			t.Errorf("%q: wrong error %v", bad, err)
		}
	}

	if _, _, err := store.Create(); err != nil {
		t.Fatal(err)
	}

	if _, _, err := store.Create(); !errors.Is(err, session.ErrStoreFull) {
		t.Errorf("wrong error %v", err)
	}

	if err := store.Delete(id); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(id); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("deleted session still found: %v", err)
	}

	if err := store.Delete(id); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("wrong error %v", err)
	}
}

func TestStoreSweep(t *testing.T) {
	store := session.NewStore(logger.Nop(), &hmac.HMAC{Key: []byte("secret")}, time.Minute, 0)

	id, _, err := store.Create()
	if err != nil {
		t.Fatal(err)
	}

	if removed := store.Sweep(time.Now()); removed != 0 {
		t.Errorf("fresh session removed")
	}

	if removed := store.Sweep(time.Now().Add(2 * time.Minute)); removed != 1 {
		t.Errorf("wrong number of removed sessions %d", removed)
	}

	if _, err := store.Get(id); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expired session still found: %v", err)
	}

	if store.Len() != 0 {
		t.Errorf("wrong length %d", store.Len())
	}
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
