package classifier

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCropsAggregatesMeanAndMax(t *testing.T) {
	vectors := [][]float32{
		probsWith(t, map[string]float32{"explicit": 0.1, "anthro": 0.5}),
		probsWith(t, map[string]float32{"explicit": 0.3, "anthro": 0.1}),
		probsWith(t, map[string]float32{"explicit": 0.2, "anthro": 0.9}),
		probsWith(t, map[string]float32{"explicit": 0.4, "anthro": 0.3}),
		probsWith(t, map[string]float32{"explicit": 0.5, "anthro": 0.2}),
	}
	sess := &fakeSession{
		dims: []int64{1, 3, 32, 32},
		run: func(call int, _ []float32, _ int, _ LayoutMode) ([]float32, error) {
			return vectors[call], nil
		},
	}
	c := newTestClassifier(t, &fakeBackend{sess: sess}, nil)

	agg := c.runCrops(sess, uniformImage(64, 64, color.NRGBA{R: 100, G: 100, B: 100, A: 255}))
	require.NotNil(t, agg)

	assert.Equal(t, 5, agg.CropsUsed)
	assert.False(t, agg.EarlyExit)
	assert.False(t, agg.TimedOut)

	e := labelIndex("explicit")
	a := labelIndex("anthro")
	assert.InDelta(t, 0.3, agg.MeanProbs[e], 1e-6)
	assert.InDelta(t, 0.5, agg.MaxProbs[e], 1e-6)
	assert.InDelta(t, 0.4, agg.MeanProbs[a], 1e-6)
	assert.InDelta(t, 0.9, agg.MaxProbs[a], 1e-6)
}

func TestRunCropsEarlyExitOnHighSeveritySignal(t *testing.T) {
	sess := &fakeSession{
		dims: []int64{1, 3, 32, 32},
		run: func(int, []float32, int, LayoutMode) ([]float32, error) {
			return probsWith(t, map[string]float32{"explicit": 0.97}), nil
		},
	}
	c := newTestClassifier(t, &fakeBackend{sess: sess}, nil)

	agg := c.runCrops(sess, uniformImage(64, 64, color.NRGBA{A: 255}))
	require.NotNil(t, agg)
	assert.Equal(t, 1, agg.CropsUsed)
	assert.True(t, agg.EarlyExit)
	assert.False(t, agg.TimedOut)
	assert.Equal(t, 1, sess.callCount())
}

func TestRunCropsStopsAfterBudgetExceeded(t *testing.T) {
	sess := &fakeSession{
		dims: []int64{1, 3, 32, 32},
		run: func(int, []float32, int, LayoutMode) ([]float32, error) {
			time.Sleep(20 * time.Millisecond)
			return probsWith(t, map[string]float32{"nsfw": 0.2}), nil
		},
	}
	c := newTestClassifier(t, &fakeBackend{sess: sess}, func(cfg *Config) {
		cfg.CropBudget = time.Millisecond
	})

	agg := c.runCrops(sess, uniformImage(64, 64, color.NRGBA{A: 255}))
	require.NotNil(t, agg)
	assert.Equal(t, 1, agg.CropsUsed)
	assert.True(t, agg.TimedOut)
	assert.False(t, agg.EarlyExit)
	assert.Equal(t, 1, sess.callCount())
}

func TestRunCropsSkipsFailedCrops(t *testing.T) {
	// the center crop fails with a non-mismatch error; the corners proceed
	sess := &fakeSession{
		dims: []int64{1, 3, 32, 32},
		run: func(call int, _ []float32, _ int, _ LayoutMode) ([]float32, error) {
			if call == 0 {
				return nil, errors.New("backend hiccup")
			}
			return probsWith(t, map[string]float32{"nsfw": 0.2}), nil
		},
	}
	c := newTestClassifier(t, &fakeBackend{sess: sess}, nil)

	agg := c.runCrops(sess, uniformImage(64, 64, color.NRGBA{A: 255}))
	require.NotNil(t, agg)
	assert.Equal(t, 4, agg.CropsUsed)
	assert.Equal(t, 5, sess.callCount())
}

func TestRunCropsNoSignalWhenAllCropsFail(t *testing.T) {
	sess := &fakeSession{
		dims: []int64{1, 3, 32, 32},
		run: func(int, []float32, int, LayoutMode) ([]float32, error) {
			return nil, errors.New("backend hiccup")
		},
	}
	c := newTestClassifier(t, &fakeBackend{sess: sess}, nil)

	agg := c.runCrops(sess, uniformImage(64, 64, color.NRGBA{A: 255}))
	assert.Nil(t, agg)
}

func TestRunCropsNoSignalOnUnsupportedImage(t *testing.T) {
	sess := &fakeSession{
		dims: []int64{1, 3, 32, 32},
		run: func(int, []float32, int, LayoutMode) ([]float32, error) {
			return probsWith(t, nil), nil
		},
	}
	c := newTestClassifier(t, &fakeBackend{sess: sess}, nil)

	img := uniformImage(64, 64, color.NRGBA{A: 255})
	agg := c.runCrops(sess, img)
	require.NotNil(t, agg)

	// paletted source: every tensor build fails closed
	pal := newPaletted(64, 64)
	assert.Nil(t, c.runCrops(sess, pal))
}

func TestRunCropsSkipsWrongLengthOutput(t *testing.T) {
	sess := &fakeSession{
		dims: []int64{1, 3, 32, 32},
		run: func(int, []float32, int, LayoutMode) ([]float32, error) {
			return []float32{0.5, 0.5}, nil
		},
	}
	c := newTestClassifier(t, &fakeBackend{sess: sess}, nil)

	assert.Nil(t, c.runCrops(sess, uniformImage(64, 64, color.NRGBA{A: 255})))
}
