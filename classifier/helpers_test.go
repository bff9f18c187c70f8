package classifier

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSession scripts forward-pass behavior per call and records which
// layouts were attempted.
type fakeSession struct {
	dims []int64
	run  func(call int, data []float32, size int, mode LayoutMode) ([]float32, error)

	mu          sync.Mutex
	calls       int
	layoutCalls map[LayoutMode]int
}

func (s *fakeSession) InputDims() []int64 { return s.dims }

func (s *fakeSession) Run(data []float32, size int, mode LayoutMode) ([]float32, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	if s.layoutCalls == nil {
		s.layoutCalls = make(map[LayoutMode]int)
	}
	s.layoutCalls[mode]++
	s.mu.Unlock()
	return s.run(call, data, size, mode)
}

func (s *fakeSession) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeSession) callsFor(mode LayoutMode) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layoutCalls[mode]
}

type fakeBackend struct {
	loadErr error
	sess    Session
	loads   int
}

func (b *fakeBackend) LoadModel(string) (Session, error) {
	b.loads++
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.sess, nil
}

// probsWith builds a probability vector with the named labels set and
// everything else zero.
func probsWith(t *testing.T, values map[string]float32) []float32 {
	t.Helper()
	probs := make([]float32, len(TagLabels))
	for name, v := range values {
		probs[labelIndex(name)] = v
	}
	return probs
}

func uniformImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func newPaletted(w, h int) *image.Paletted {
	return image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{color.Black, color.White})
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestClassifier(t *testing.T, backend Backend, mutate func(*Config)) *Classifier {
	t.Helper()
	cfg := Config{
		Enabled:             true,
		ModelPath:           "models/model.onnx",
		InputSize:           32,
		Threshold:           0.1,
		EarlyExitConfidence: 0.95,
		CropBudget:          200 * time.Millisecond,
		CacheTTL:            5 * time.Minute,
		CacheCapacity:       100,
		FetchTimeout:        2 * time.Second,
		Logger:              slog.Default(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, backend)
}
