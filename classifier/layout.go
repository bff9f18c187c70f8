package classifier

import (
	"log/slog"
	"strings"
	"sync"
)

// LayoutMode is the ordering convention of the 4-D input tensor the loaded
// model expects.
type LayoutMode int

const (
	// ChannelsFirst is [batch, channels, height, width] (NCHW).
	ChannelsFirst LayoutMode = iota
	// ChannelsLast is [batch, height, width, channels] (NHWC).
	ChannelsLast
)

func (m LayoutMode) String() string {
	if m == ChannelsLast {
		return "NHWC"
	}
	return "NCHW"
}

func (m LayoutMode) opposite() LayoutMode {
	if m == ChannelsFirst {
		return ChannelsLast
	}
	return ChannelsFirst
}

// isShapeMismatch reports whether err carries one of the known onnxruntime
// shape-mismatch signatures. The signatures are literal wording of the
// backend and are pinned by tests; if the backend ever rewords its errors,
// unmatched failures fall through to the "other failure" path (no retry).
func isShapeMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(msg, "Invalid rank") || strings.Contains(msg, "Invalid shape") {
		return true
	}
	return strings.Contains(msg, "Got: ") && strings.Contains(msg, "Expected: ")
}

// guessLayout inspects the model's declared input dimensions. Symbolic or
// truncated dimension info is common, so this is only a first guess; the
// runner verifies it with a real forward pass.
func guessLayout(dims []int64) LayoutMode {
	if len(dims) == 4 {
		if dims[1] == 3 {
			return ChannelsFirst
		}
		if dims[3] == 3 {
			return ChannelsLast
		}
	}
	return ChannelsFirst
}

// layoutRunner owns the process-wide detected layout. Probing is serialized
// under mu so concurrent first requests cannot each run their own detection;
// once detected, calls take the unlocked fast path.
type layoutRunner struct {
	mu       sync.Mutex
	detected bool
	mode     LayoutMode
}

// run executes one forward pass for the crop, detecting the model's expected
// layout on first use and falling back to the opposite layout once when the
// guess produces a shape mismatch. A runtime failure under an already-cached
// layout degrades that call back to probing instead of propagating a stale
// assumption.
func (r *layoutRunner) run(log *slog.Logger, sess Session, pair *NormalizedTensorPair) ([]float32, LayoutMode, error) {
	r.mu.Lock()
	if r.detected {
		mode := r.mode
		r.mu.Unlock()
		probs, err := runWith(sess, pair, mode)
		if err == nil {
			return probs, mode, nil
		}
		log.Warn("inference failed under cached layout, re-probing",
			slog.String("layout", mode.String()), slog.String("error", err.Error()))
		r.mu.Lock()
	}
	defer r.mu.Unlock()
	return r.probeLocked(log, sess, pair)
}

func (r *layoutRunner) probeLocked(log *slog.Logger, sess Session, pair *NormalizedTensorPair) ([]float32, LayoutMode, error) {
	guess := guessLayout(sess.InputDims())
	probs, err := runWith(sess, pair, guess)
	if err == nil {
		r.detected = true
		r.mode = guess
		log.Debug("detected model input layout", slog.String("layout", guess.String()))
		return probs, guess, nil
	}
	if !isShapeMismatch(err) {
		return nil, guess, err
	}

	other := guess.opposite()
	probs, retryErr := runWith(sess, pair, other)
	if retryErr != nil {
		return nil, other, retryErr
	}
	r.detected = true
	r.mode = other
	log.Debug("detected model input layout after fallback", slog.String("layout", other.String()))
	return probs, other, nil
}

func runWith(sess Session, pair *NormalizedTensorPair, mode LayoutMode) ([]float32, error) {
	data := pair.NCHW
	if mode == ChannelsLast {
		data = pair.NHWC
	}
	return sess.Run(data, pair.Size, mode)
}
