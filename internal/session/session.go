// Package session holds the editing state of one postcard: the source photo,
// the chosen filter and the caption. Every action publishes a new snapshot.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DMarby/postcard-poodle/internal/caption"
	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/DMarby/postcard-poodle/internal/render"
)

// Errors
var (
	ErrGenerationInFlight = errors.New("caption generation already in flight")
	ErrSuperseded         = errors.New("caption generation superseded by a newer edit")
)

// Renderer renders tasks into encoded images
type Renderer interface {
	Process(ctx context.Context, task *render.Task) ([]byte, error)
}

// State is a snapshot of a session; published snapshots are never modified
type State struct {
	Source     *filter.ImageBuffer
	Filter     filter.Kind
	Caption    string
	Generating bool
}

// HasImage reports whether a photo has been selected
func (s State) HasImage() bool {
	return s.Source != nil
}

// Session is the editing state of a single postcard
type Session struct {
	mutex    sync.Mutex
	state    State
	sequence uint64
	cancel   context.CancelFunc
	touched  time.Time
}

// New creates a session with no image, no filter and the default caption
func New() *Session {
	return &Session{
		state: State{
			Filter:  filter.None,
			Caption: caption.Fallback,
		},
		touched: time.Now(),
	}
}

// Snapshot returns the current state
func (s *Session) Snapshot() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.state
}

// SelectImage decodes and selects a new photo.
// Uploads that are not images, or fail to decode, are ignored and leave the state unchanged.
func (s *Session) SelectImage(contentType string, data []byte) bool {
	source, err := render.Decode(contentType, data)
	if err != nil {
		s.touch()
		return false
	}

	s.update(func(state *State) {
		state.Source = source
	})

	return true
}

// ChooseFilter selects the filter applied to the photo
func (s *Session) ChooseFilter(kind filter.Kind) {
	s.update(func(state *State) {
		state.Filter = kind
	})
}

// EditCaption replaces the caption with user text, clamped to the caption length.
// It supersedes any caption generation in flight.
func (s *Session) EditCaption(text string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.supersede()

	state := s.state
	state.Caption = caption.Clamp(text)
	state.Generating = false
	s.publish(state)
}

// GenerateCaption asks the provider for a caption for the current filter.
// Only one generation runs at a time; on failure the caption is left unchanged.
func (s *Session) GenerateCaption(ctx context.Context, provider caption.Provider) (string, error) {
	s.mutex.Lock()
	if s.state.Generating {
		s.mutex.Unlock()
		return "", ErrGenerationInFlight
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.sequence++
	sequence := s.sequence
	s.cancel = cancel

	state := s.state
	state.Generating = true
	s.publish(state)
	kind := state.Filter
	s.mutex.Unlock()

	text, err := provider.Generate(ctx, kind)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// A newer edit owns the state now
	if sequence != s.sequence {
		return "", ErrSuperseded
	}

	s.cancel = nil
	state = s.state
	state.Generating = false
	if err == nil {
		state.Caption = text
	}
	s.publish(state)

	if err != nil {
		return "", err
	}

	return text, nil
}

// Preview renders the filtered photo; without a photo it renders nothing
func (s *Session) Preview(ctx context.Context, renderer Renderer) ([]byte, error) {
	state := s.Snapshot()
	if !state.HasImage() {
		return nil, nil
	}

	return renderer.Process(ctx, render.NewPreview(state.Source, state.Filter))
}

// Export renders the finished postcard; without a photo it renders nothing
func (s *Session) Export(ctx context.Context, renderer Renderer) ([]byte, error) {
	state := s.Snapshot()
	if !state.HasImage() {
		return nil, nil
	}

	return renderer.Process(ctx, render.NewPostcard(state.Source, state.Filter, state.Caption))
}

// Close cancels any caption generation in flight
func (s *Session) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.supersede()
}

// IdleSince returns when the session was last used
func (s *Session) IdleSince() time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.touched
}

func (s *Session) update(f func(state *State)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	state := s.state
	f(&state)
	s.publish(state)
}

func (s *Session) touch() {
	s.mutex.Lock()
	s.touched = time.Now()
	s.mutex.Unlock()
}

// publish must be called with the mutex held
func (s *Session) publish(state State) {
	s.state = state
	s.touched = time.Now()
}

// supersede must be called with the mutex held
func (s *Session) supersede() {
	s.sequence++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
