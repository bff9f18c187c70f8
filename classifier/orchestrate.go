package classifier

import (
	"image"
	"log/slog"
	"time"
)

// AggregateResult is the per-image aggregate derived from all crops that
// produced a probability vector.
type AggregateResult struct {
	MeanProbs []float32
	MaxProbs  []float32
	CropsUsed int
	EarlyExit bool
	TimedOut  bool
	Layout    LayoutMode
}

// runCrops drives the per-image classification loop: center crop first, then
// the four corners, strictly sequentially. A crop whose tensor build or
// inference fails is skipped; its siblings proceed. Returns nil when no crop
// produced a usable vector.
//
// The loop is deliberately not parallelized: the early-exit and budget checks
// are ordering guarantees ("stop after this crop"), and a worker pool would
// break them.
func (c *Classifier) runCrops(sess Session, img image.Image) *AggregateResult {
	b := img.Bounds()
	windows := CropWindows(b.Dx(), b.Dy(), c.cfg.InputSize)

	var collected [][]float32
	var layout LayoutMode
	earlyExit := false
	timedOut := false

	for i := range windows {
		start := time.Now()

		pair, err := BuildTensorPair(img, &windows[i], c.cfg.InputSize)
		if err != nil {
			c.log.Debug("skipping crop: tensor build failed",
				slog.Int("crop", i), slog.String("error", err.Error()))
			continue
		}

		probs, mode, err := c.layout.run(c.log, sess, pair)
		if err != nil {
			c.log.Debug("skipping crop: inference failed",
				slog.Int("crop", i), slog.String("error", err.Error()))
			continue
		}
		if len(probs) != len(TagLabels) {
			c.log.Debug("skipping crop: output length does not match label vector",
				slog.Int("crop", i), slog.Int("got", len(probs)))
			continue
		}

		layout = mode
		collected = append(collected, probs)

		if probs[idxExplicit] >= c.cfg.EarlyExitConfidence || probs[idxNSFW] >= c.cfg.EarlyExitConfidence {
			earlyExit = true
			break
		}
		// evaluated after the crop completes: one slow crop is tolerated,
		// further crops are not attempted
		if time.Since(start) > c.cfg.CropBudget {
			timedOut = true
			break
		}
	}

	if len(collected) == 0 {
		return nil
	}

	n := len(TagLabels)
	mean := make([]float32, n)
	maxp := make([]float32, n)
	for _, probs := range collected {
		for i := 0; i < n; i++ {
			mean[i] += probs[i]
			if probs[i] > maxp[i] {
				maxp[i] = probs[i]
			}
		}
	}
	for i := 0; i < n; i++ {
		mean[i] /= float32(len(collected))
	}

	return &AggregateResult{
		MeanProbs: mean,
		MaxProbs:  maxp,
		CropsUsed: len(collected),
		EarlyExit: earlyExit,
		TimedOut:  timedOut,
		Layout:    layout,
	}
}
