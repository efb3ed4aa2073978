package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Brownie44l1/cancer-api/internal/metrics"
)

var (
	ErrNotReady = errors.New("classifier is not ready")
	errClosed   = errors.New("classifier closed")
)

type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Predictor is a loaded classifier. *Server satisfies it.
type Predictor interface {
	Predict(input []float32) (float32, error)
	Close()
}

// LoadFunc produces a Predictor. It runs once, off the request path.
type LoadFunc func(ctx context.Context) (Predictor, error)

// Handle tracks the classifier through Loading, Ready and Failed. It is
// read-only once loading finishes.
type Handle struct {
	mu        sync.RWMutex
	state     State
	predictor Predictor
	err       error
	closed    bool
	once      sync.Once
	done      chan struct{}
}

func NewHandle() *Handle {
	metrics.ModelState.Set(0)
	return &Handle{done: make(chan struct{})}
}

// NewReadyHandle wraps an already loaded predictor.
func NewReadyHandle(p Predictor) *Handle {
	h := NewHandle()
	h.finish(p, nil)
	return h
}

// Load starts loading in the background. Only the first call has effect.
func (h *Handle) Load(ctx context.Context, load LoadFunc) {
	h.once.Do(func() {
		go func() {
			p, err := load(ctx)
			if err == nil && p == nil {
				err = errors.New("loader returned no classifier")
			}
			h.finish(p, err)
		}()
	})
}

func (h *Handle) finish(p Predictor, err error) {
	h.mu.Lock()
	if err == nil && h.closed {
		// Closed while loading; nobody else will release this predictor.
		p.Close()
		err = errClosed
	}
	if err != nil {
		h.state = StateFailed
		h.err = err
		metrics.ModelState.Set(-1)
	} else {
		h.state = StateReady
		h.predictor = p
		metrics.ModelState.Set(1)
	}
	h.mu.Unlock()
	close(h.done)
}

// Done is closed once loading has either succeeded or failed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Err returns the load error after a failed load.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Infer runs the classifier, or fails with ErrNotReady while the handle is
// loading or after a failed load.
func (h *Handle) Infer(_ context.Context, input []float32) (float32, error) {
	h.mu.RLock()
	state, p := h.state, h.predictor
	h.mu.RUnlock()

	if state != StateReady {
		return 0, fmt.Errorf("%w: %s", ErrNotReady, state)
	}
	return p.Predict(input)
}

// Close releases the predictor. A load still in flight releases its
// predictor as soon as it finishes.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.predictor != nil {
		h.predictor.Close()
		h.predictor = nil
		h.state = StateFailed
		h.err = errClosed
	}
}

// ONNXLoader fetches the artifact at src and builds an ONNX session from it.
func ONNXLoader(client *http.Client, src string, metadata Metadata, libraryPath string) LoadFunc {
	return func(ctx context.Context) (Predictor, error) {
		data, err := FetchArtifact(ctx, client, src)
		if err != nil {
			return nil, err
		}
		server, err := NewServer(data, metadata, libraryPath)
		if err != nil {
			return nil, err
		}
		return server, nil
	}
}
