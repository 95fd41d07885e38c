// Package editor holds the single-session editor state machine:
// Empty -> Cropping -> Previewing, with reset from anywhere.
//
// A Session is safe for concurrent use. Only one generation runs at a time;
// the pipeline itself runs outside the session lock so the state stays
// readable while it works.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/menta2k/flyer-composer/internal/logging"
	"github.com/menta2k/flyer-composer/internal/metrics"
	"github.com/menta2k/flyer-composer/pkg/cropper"
	"github.com/menta2k/flyer-composer/pkg/export"
	"github.com/menta2k/flyer-composer/pkg/processing"
	"github.com/menta2k/flyer-composer/pkg/types"
)

// State is the view mode of the session
type State int

// Session states
const (
	Empty State = iota
	Cropping
	Previewing
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Cropping:
		return "cropping"
	case Previewing:
		return "previewing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session errors
var (
	ErrNothingToGenerate = errors.New("no source image or crop region to generate from")
	ErrBusy              = errors.New("a generation is already in progress")
	ErrInvalidTransition = errors.New("action not allowed in the current state")
	ErrSuperseded        = errors.New("generation result discarded: session was reset or a new file was selected")
	ErrPipelinePanic     = errors.New("generation aborted unexpectedly")
)

// Pipeline decodes uploads and renders the flyer
type Pipeline interface {
	LoadSource(name string, data []byte) (*types.SourceImage, error)
	Generate(ctx context.Context, src *types.SourceImage, region types.CropRegion) (*types.Composite, error)
}

// Session owns the transient editing state of one user
type Session struct {
	pipeline Pipeline
	clock    clockwork.Clock
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	processing bool
	epoch      uint64
	source     *types.SourceImage
	viewport   cropper.Viewport
	region     *types.CropRegion
	output     *types.Composite
	lastErr    error
}

// Option configures a Session
type Option func(*Session)

// WithClock injects the clock used for timestamps and durations
func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates an empty session backed by the given pipeline
func NewSession(pipeline Pipeline, opts ...Option) *Session {
	s := &Session{
		pipeline: pipeline,
		clock:    clockwork.NewRealClock(),
		logger:   logging.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectFile decodes a newly selected file and enters Cropping with the
// default view. Any previous source, crop and output are replaced. On decode
// failure the session is left as it was.
func (s *Session) SelectFile(name string, data []byte) error {
	metrics.UploadBytes.Observe(float64(len(data)))

	src, err := s.pipeline.LoadSource(name, data)
	if err != nil {
		s.logger.Warn("file rejected", "name", name, "bytes", len(data), "error", err)
		return err
	}

	bounds := src.Image.Bounds()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.source = src
	s.viewport = cropper.NewViewport(bounds.Dx(), bounds.Dy())
	region := s.viewport.Region()
	s.region = &region
	s.output = nil
	s.lastErr = nil
	s.state = Cropping

	s.logger.Info("file selected", "name", name, "format", src.Format,
		"width", bounds.Dx(), "height", bounds.Dy(), "bytes", len(data))
	return nil
}

// AdjustCrop applies a pan/zoom change and returns the resulting region.
// Zoom and pan are clamped to the view's limits.
func (s *Session) AdjustCrop(zoom float64, pan types.Pan) (types.CropRegion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Cropping {
		return types.CropRegion{}, fmt.Errorf("%w: adjust crop while %s", ErrInvalidTransition, s.state)
	}

	s.viewport.Zoom = zoom
	s.viewport.Pan = pan
	s.viewport = s.viewport.Clamp()
	region := s.viewport.Region()
	s.region = &region
	return region, nil
}

// SetCropRegion sets the crop box directly in source pixels. The box must
// overlap the source and stay within cropper.MaxRegionScale of its size.
func (s *Session) SetCropRegion(region types.CropRegion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Cropping {
		return fmt.Errorf("%w: set crop while %s", ErrInvalidTransition, s.state)
	}
	if err := cropper.ValidateRegion(region, s.viewport.ImageWidth, s.viewport.ImageHeight); err != nil {
		return err
	}
	s.region = &region
	return nil
}

// Generate runs the pipeline on the current source and crop. On success the
// session moves to Previewing; on failure it stays in Cropping with the
// error recorded.
func (s *Session) Generate(ctx context.Context) (*types.Composite, error) {
	s.mu.Lock()
	if s.source == nil || s.region == nil {
		s.mu.Unlock()
		metrics.GenerationsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrNothingToGenerate
	}
	if s.processing {
		s.mu.Unlock()
		metrics.GenerationsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrBusy
	}
	if s.state != Cropping {
		state := s.state
		s.mu.Unlock()
		metrics.GenerationsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: generate while %s", ErrInvalidTransition, state)
	}

	s.processing = true
	epoch := s.epoch
	src := s.source
	region := *s.region
	s.mu.Unlock()

	start := s.clock.Now()
	out, err := s.runPipeline(ctx, src, region)
	elapsed := s.clock.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false

	if epoch != s.epoch {
		metrics.GenerationsTotal.WithLabelValues("discarded").Inc()
		s.logger.Info("generation discarded", "elapsed", elapsed)
		return nil, ErrSuperseded
	}

	if err != nil {
		s.lastErr = err
		metrics.GenerationsTotal.WithLabelValues("error").Inc()
		metrics.PipelineErrors.WithLabelValues(processing.ErrorClass(err)).Inc()
		s.logger.Error("generation failed", "error", err, "elapsed", elapsed)
		return nil, err
	}

	out.GeneratedAt = s.clock.Now()
	s.output = out
	s.lastErr = nil
	s.state = Previewing

	metrics.GenerationsTotal.WithLabelValues("success").Inc()
	metrics.GenerationDuration.Observe(elapsed.Seconds())
	logging.WithGeneration(s.logger, out.ID).Info("flyer generated",
		"width", out.Width, "height", out.Height, "bytes", len(out.Data), "elapsed", elapsed)
	return out, nil
}

// runPipeline turns a pipeline panic into an error so the processing flag
// is always released by Generate
func (s *Session) runPipeline(ctx context.Context, src *types.SourceImage, region types.CropRegion) (out *types.Composite, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("generation panicked", "panic", r, "stack", string(debug.Stack()))
			out, err = nil, fmt.Errorf("%w: %v", ErrPipelinePanic, r)
		}
	}()
	return s.pipeline.Generate(ctx, src, region)
}

// EditAgain returns from the preview to the crop view, keeping the source
// and crop
func (s *Session) EditAgain() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Previewing {
		return fmt.Errorf("%w: edit again while %s", ErrInvalidTransition, s.state)
	}
	s.state = Cropping
	return nil
}

// Download writes the generated flyer to w and returns its filename. The
// session state does not change.
func (s *Session) Download(w io.Writer) (string, error) {
	s.mu.Lock()
	out := s.output
	state := s.state
	s.mu.Unlock()

	if state != Previewing || out == nil {
		return "", fmt.Errorf("%w: download while %s", ErrInvalidTransition, state)
	}
	if _, err := export.Write(w, out); err != nil {
		return "", err
	}
	return export.Filename, nil
}

// Reset clears everything and returns to Empty. A generation still in
// flight finishes but its result is discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.state = Empty
	s.source = nil
	s.viewport = cropper.Viewport{}
	s.region = nil
	s.output = nil
	s.lastErr = nil
	s.logger.Debug("session reset")
}

// Source returns the current source image, if any
func (s *Session) Source() *types.SourceImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Output returns the last generated composite, if any
func (s *Session) Output() *types.Composite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// Snapshot is a read-only view of the session for UIs
type Snapshot struct {
	State        string            `json:"state"`
	Processing   bool              `json:"processing"`
	SourceName   string            `json:"source_name,omitempty"`
	SourceWidth  int               `json:"source_width,omitempty"`
	SourceHeight int               `json:"source_height,omitempty"`
	Zoom         float64           `json:"zoom,omitempty"`
	Pan          types.Pan         `json:"pan"`
	Region       *types.CropRegion `json:"region,omitempty"`
	Output       *types.Composite  `json:"output,omitempty"`
	LastError    string            `json:"last_error,omitempty"`
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:      s.state.String(),
		Processing: s.processing,
		Zoom:       s.viewport.Zoom,
		Pan:        s.viewport.Pan,
		Output:     s.output,
	}
	if s.source != nil {
		snap.SourceName = s.source.Name
		snap.SourceWidth = s.viewport.ImageWidth
		snap.SourceHeight = s.viewport.ImageHeight
	}
	if s.region != nil {
		region := *s.region
		snap.Region = &region
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Processing reports whether a generation is in flight
func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}
