package model

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakePredictor struct {
	score  float32
	closed bool
}

func (f *fakePredictor) Predict([]float32) (float32, error) { return f.score, nil }
func (f *fakePredictor) Close()                             { f.closed = true }

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("handle did not finish loading")
	}
}

func TestHandleLoading(t *testing.T) {
	h := NewHandle()
	release := make(chan struct{})
	h.Load(context.Background(), func(ctx context.Context) (Predictor, error) {
		<-release
		return &fakePredictor{score: 0.7}, nil
	})

	if h.State() != StateLoading {
		t.Fatalf("State() = %v, want loading", h.State())
	}
	if _, err := h.Infer(context.Background(), nil); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Infer() while loading error = %v, want ErrNotReady", err)
	}

	close(release)
	waitDone(t, h)

	if h.State() != StateReady {
		t.Fatalf("State() = %v, want ready", h.State())
	}
	score, err := h.Infer(context.Background(), nil)
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	if score != 0.7 {
		t.Errorf("Infer() = %v, want 0.7", score)
	}
}

func TestHandleFailed(t *testing.T) {
	h := NewHandle()
	loadErr := errors.New("bucket unreachable")
	h.Load(context.Background(), func(ctx context.Context) (Predictor, error) {
		return nil, loadErr
	})
	waitDone(t, h)

	if h.State() != StateFailed {
		t.Fatalf("State() = %v, want failed", h.State())
	}
	if !errors.Is(h.Err(), loadErr) {
		t.Errorf("Err() = %v, want %v", h.Err(), loadErr)
	}
	if _, err := h.Infer(context.Background(), nil); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Infer() after failure error = %v, want ErrNotReady", err)
	}
}

func TestHandleLoadOnce(t *testing.T) {
	h := NewHandle()
	first := &fakePredictor{score: 0.1}
	h.Load(context.Background(), func(ctx context.Context) (Predictor, error) { return first, nil })
	waitDone(t, h)
	h.Load(context.Background(), func(ctx context.Context) (Predictor, error) {
		t.Error("second load must not run")
		return &fakePredictor{score: 0.9}, nil
	})

	score, _ := h.Infer(context.Background(), nil)
	if score != 0.1 {
		t.Errorf("Infer() = %v, want 0.1 from first loader", score)
	}
}

func TestHandleClose(t *testing.T) {
	p := &fakePredictor{}
	h := NewReadyHandle(p)
	h.Close()
	if !p.closed {
		t.Error("predictor not closed")
	}
	if _, err := h.Infer(context.Background(), nil); !errors.Is(err, ErrNotReady) {
		t.Errorf("Infer() after close error = %v, want ErrNotReady", err)
	}
}

func TestHandleCloseWhileLoading(t *testing.T) {
	h := NewHandle()
	release := make(chan struct{})
	p := &fakePredictor{score: 0.4}
	h.Load(context.Background(), func(ctx context.Context) (Predictor, error) {
		<-release
		return p, nil
	})

	h.Close()
	close(release)
	waitDone(t, h)

	if !p.closed {
		t.Error("predictor finished after Close was not released")
	}
	if h.State() != StateFailed {
		t.Errorf("State() = %v, want failed", h.State())
	}
	if _, err := h.Infer(context.Background(), nil); !errors.Is(err, ErrNotReady) {
		t.Errorf("Infer() after close error = %v, want ErrNotReady", err)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{StateLoading: "loading", StateReady: "ready", StateFailed: "failed"}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestNewMetadata(t *testing.T) {
	nhwc := NewMetadata("input", "output", 224, "nhwc")
	if got := nhwc.InputShape; len(got) != 4 || got[1] != 224 || got[3] != 3 {
		t.Errorf("nhwc InputShape = %v", got)
	}
	if nhwc.InputSize() != 224*224*3 {
		t.Errorf("InputSize() = %d, want %d", nhwc.InputSize(), 224*224*3)
	}

	nchw := NewMetadata("input", "output", 224, "nchw")
	if got := nchw.InputShape; got[1] != 3 || got[3] != 224 {
		t.Errorf("nchw InputShape = %v", got)
	}
}

func TestFetchArtifactHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/model/v1/model.onnx" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("onnx-bytes"))
	}))
	defer srv.Close()

	data, err := FetchArtifact(context.Background(), srv.Client(), srv.URL+"/model/v1/model.onnx")
	if err != nil {
		t.Fatalf("FetchArtifact() error: %v", err)
	}
	if string(data) != "onnx-bytes" {
		t.Errorf("data = %q", data)
	}

	if _, err := FetchArtifact(context.Background(), srv.Client(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestFetchArtifactFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	if err := os.WriteFile(path, []byte("local"), 0o600); err != nil {
		t.Fatalf("write model: %v", err)
	}

	for _, src := range []string{path, "file://" + path} {
		data, err := FetchArtifact(context.Background(), nil, src)
		if err != nil {
			t.Fatalf("FetchArtifact(%q) error: %v", src, err)
		}
		if string(data) != "local" {
			t.Errorf("FetchArtifact(%q) = %q", src, data)
		}
	}
}

func TestFetchArtifactErrors(t *testing.T) {
	for _, src := range []string{"", "gs://bucket/model.onnx", filepath.Join(t.TempDir(), "nope.onnx")} {
		if _, err := FetchArtifact(context.Background(), nil, src); err == nil {
			t.Errorf("FetchArtifact(%q) expected error", src)
		}
	}
}
