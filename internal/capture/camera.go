package capture

import (
	"context"
	"errors"
	"sync"

	"medichat-client/internal/models"
	"medichat-client/pkg/logger"
)

// State is the camera scan state
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateStreaming  State = "streaming"
	StateCaptured   State = "captured"
	StateAnalyzing  State = "analyzing"
)

// Camera is the device capability acquired for live scanning.
// Implementations are provided by the embedding platform, not by this package.
type Camera interface {
	// Acquire requests the device and returns a live frame source, or an
	// error when the capability is denied or unsupported.
	Acquire(ctx context.Context) (FrameSource, error)
}

// FrameSource is a live camera feed from which still frames can be taken
type FrameSource interface {
	// Frame extracts one still frame as an encoded image blob with its mime type
	Frame() ([]byte, string, error)
	// Close releases the device capability
	Close() error
}

// EventKind identifies discrete camera lifecycle events
type EventKind string

const (
	EventGranted  EventKind = "granted"
	EventDenied   EventKind = "denied"
	EventCaptured EventKind = "captured"
	EventStopped  EventKind = "stopped"
)

// Event is one discrete camera lifecycle transition, observable by callers
type Event struct {
	Kind EventKind
	Err  error
}

var (
	// ErrCameraDenied wraps a capability acquisition failure. Recoverable by retry.
	ErrCameraDenied = errors.New("capture: camera capability denied")
	// ErrNotStreaming is returned when capture is invoked outside the streaming state
	ErrNotStreaming = errors.New("capture: camera is not streaming")
	// ErrNoCapturedFrame is returned when analyze is invoked without a captured frame
	ErrNoCapturedFrame = errors.New("capture: no captured frame to analyze")
)

// CameraController drives the scan state machine
// Idle -> Requesting -> Streaming -> Captured -> (Analyzing | Idle).
// Acquisition and release of the device are strictly paired: no transition
// leaves the capability held without an active consumer.
type CameraController struct {
	mu     sync.Mutex
	camera Camera
	state  State
	source FrameSource
	frame  models.Input
	events chan Event
	log    *logger.Logger
}

// NewCameraController creates a controller over the given camera capability
func NewCameraController(camera Camera, log *logger.Logger) *CameraController {
	return &CameraController{
		camera: camera,
		state:  StateIdle,
		events: make(chan Event, 8),
		log:    log,
	}
}

// State returns the current scan state
func (c *CameraController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Events exposes the camera lifecycle event stream
func (c *CameraController) Events() <-chan Event {
	return c.events
}

// Start requests the camera capability and begins streaming.
// A denial transitions back to Idle and is recoverable by retry.
func (c *CameraController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = StateRequesting
	c.mu.Unlock()

	source, err := c.camera.Acquire(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Stop may have raced the acquisition; release immediately in that case
	if c.state != StateRequesting {
		if source != nil {
			source.Close()
		}
		return nil
	}

	if err != nil {
		c.state = StateIdle
		c.log.Warn("camera capability denied", "error", err.Error())
		c.emit(Event{Kind: EventDenied, Err: err})
		return errors.Join(ErrCameraDenied, err)
	}

	c.source = source
	c.state = StateStreaming
	c.emit(Event{Kind: EventGranted})
	return nil
}

// Capture extracts a still frame from the live feed and releases the device.
// The feed is closed at this transition regardless of frame success.
func (c *CameraController) Capture() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStreaming || c.source == nil {
		return ErrNotStreaming
	}

	blob, mime, err := c.source.Frame()
	c.releaseLocked()

	if err != nil {
		c.state = StateIdle
		c.emit(Event{Kind: EventStopped, Err: err})
		return err
	}

	c.frame = models.Input{
		Type:     models.InputImage,
		Blob:     blob,
		MimeType: mime,
		Filename: "camera-capture.png",
	}
	c.state = StateCaptured
	c.emit(Event{Kind: EventCaptured})
	return nil
}

// Analyze hands the captured frame over for dispatch and enters Analyzing.
// The caller resets the controller with Stop once the turn resolves.
func (c *CameraController) Analyze() (models.Input, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateCaptured {
		return models.Input{}, ErrNoCapturedFrame
	}

	c.state = StateAnalyzing
	return c.frame, nil
}

// Stop returns the controller to Idle from any state and releases the
// device capability immediately and unconditionally.
func (c *CameraController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()
	c.frame = models.Input{}
	if c.state != StateIdle {
		c.state = StateIdle
		c.emit(Event{Kind: EventStopped})
	}
}

// releaseLocked closes the frame source if held. Caller must hold c.mu.
func (c *CameraController) releaseLocked() {
	if c.source != nil {
		if err := c.source.Close(); err != nil {
			c.log.Warn("failed to release camera", "error", err.Error())
		}
		c.source = nil
	}
}

// emit publishes an event without blocking state transitions
func (c *CameraController) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}
