package classifier

import (
	"context"
	"image"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Config is the classifier's own configuration, decoupled from the service
// config file so tests and embedders can construct a Classifier directly.
type Config struct {
	Enabled             bool
	ModelPath           string
	InputSize           int
	Threshold           float32
	EarlyExitConfidence float32
	CropBudget          time.Duration
	CacheTTL            time.Duration
	CacheCapacity       int
	FetchTimeout        time.Duration
	FetchMaxBytes       int64

	// HTTPClient overrides the client used for avatar fetches (nil = default).
	HTTPClient *http.Client
	// Logger overrides the logger (nil = slog.Default()).
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.InputSize <= 0 {
		c.InputSize = 448
	}
	if c.Threshold <= 0 {
		c.Threshold = 0.1
	}
	if c.EarlyExitConfidence <= 0 {
		c.EarlyExitConfidence = 0.95
	}
	if c.CropBudget <= 0 {
		c.CropBudget = 200 * time.Millisecond
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = 100
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.FetchMaxBytes <= 0 {
		c.FetchMaxBytes = 8 << 20
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Options carries per-call diagnostics options.
type Options struct {
	TraceID string
}

// Meta describes how a TagResult was produced.
type Meta struct {
	CropsUsed int    `json:"crops_used"`
	EarlyExit bool   `json:"early_exit"`
	TimedOut  bool   `json:"timed_out"`
	Layout    string `json:"layout"`
}

// TagResult is the caller-visible classification output.
type TagResult struct {
	Tags      []Tag     `json:"tags"`
	MeanProbs []float32 `json:"mean_probs"`
	MaxProbs  []float32 `json:"max_probs"`
	Meta      Meta      `json:"meta"`
}

// Classifier holds all process-wide pipeline state: the lazily loaded model
// session (with its load failure cached for the life of the process), the
// detected tensor layout, and the result cache. Construct one at startup and
// share it; all methods are safe for concurrent use.
type Classifier struct {
	cfg        Config
	backend    Backend
	httpClient *http.Client
	log        *slog.Logger

	loadOnce sync.Once
	session  Session
	loadErr  error

	layout layoutRunner
	cache  *resultCache
	dedup  *dedupIndex
}

// New constructs a Classifier over the given inference backend.
func New(cfg Config, backend Backend) *Classifier {
	cfg.defaults()
	return &Classifier{
		cfg:        cfg,
		backend:    backend,
		httpClient: cfg.HTTPClient,
		log:        cfg.Logger,
		cache:      newResultCache(cfg.CacheTTL, cfg.CacheCapacity),
		dedup:      newDedupIndex(cfg.CacheCapacity),
	}
}

// sessionHandle loads the model once per process. A failed load is cached
// and every later call short-circuits: a stuck filesystem retried on every
// avatar would be a latency trap.
func (c *Classifier) sessionHandle() (Session, error) {
	c.loadOnce.Do(func() {
		c.session, c.loadErr = c.backend.LoadModel(c.cfg.ModelPath)
		if c.loadErr != nil {
			c.log.Error("model load failed, classification disabled for this process",
				slog.String("path", c.cfg.ModelPath), slog.String("error", c.loadErr.Error()))
		} else {
			c.log.Info("model loaded", slog.String("path", c.cfg.ModelPath))
		}
	})
	return c.session, c.loadErr
}

// Classify classifies the avatar at imageRef, which serves both as the fetch
// URL and the cache key. Returns (nil, nil), meaning "no signal", when the feature
// is disabled, the model failed to load, the bytes could not be retrieved,
// or every crop failed. No failure inside the pipeline propagates to the
// caller: the moderation workflow must stay usable when the classifier is
// completely unavailable.
func (c *Classifier) Classify(ctx context.Context, imageRef string, opts Options) (*TagResult, error) {
	if !c.cfg.Enabled {
		return nil, nil
	}

	if result, ok := c.cache.get(imageRef, time.Now()); ok {
		c.log.Debug("cache hit", slog.String("url", imageRef), slog.String("trace", opts.TraceID))
		return result, nil
	}

	sess, err := c.sessionHandle()
	if err != nil {
		return nil, nil
	}

	data := c.fetchImage(ctx, imageRef)
	if data == nil {
		return nil, nil
	}

	img, err := decodeImage(data)
	if err != nil {
		c.log.Debug("avatar decode failed", slog.String("url", imageRef), slog.String("error", err.Error()))
		return nil, nil
	}

	aliasKey, hash := c.dedup.lookup(img)
	if aliasKey != "" {
		if result, ok := c.cache.get(aliasKey, time.Now()); ok {
			c.log.Debug("perceptual-hash cache hit",
				slog.String("url", imageRef), slog.String("alias", aliasKey))
			c.cache.put(imageRef, result, time.Now())
			return result, nil
		}
	}

	agg := c.runCrops(sess, img)
	if agg == nil {
		return nil, nil
	}

	result := &TagResult{
		Tags:      ExtractTags(agg.MaxProbs, c.cfg.Threshold),
		MeanProbs: agg.MeanProbs,
		MaxProbs:  agg.MaxProbs,
		Meta: Meta{
			CropsUsed: agg.CropsUsed,
			EarlyExit: agg.EarlyExit,
			TimedOut:  agg.TimedOut,
			Layout:    agg.Layout.String(),
		},
	}

	c.cache.put(imageRef, result, time.Now())
	c.dedup.remember(hash, imageRef)

	c.log.Info("avatar classified",
		slog.String("url", imageRef),
		slog.String("trace", opts.TraceID),
		slog.Int("crops", result.Meta.CropsUsed),
		slog.Int("tags", len(result.Tags)),
		slog.Bool("early_exit", result.Meta.EarlyExit),
		slog.Bool("timed_out", result.Meta.TimedOut))
	return result, nil
}

// ClassifyImage classifies an already-decoded image, bypassing fetch and
// cache. Used by the upload endpoint; (nil, nil) means no signal.
func (c *Classifier) ClassifyImage(ctx context.Context, img image.Image) (*TagResult, error) {
	if !c.cfg.Enabled {
		return nil, nil
	}
	sess, err := c.sessionHandle()
	if err != nil {
		return nil, nil
	}
	agg := c.runCrops(sess, img)
	if agg == nil {
		return nil, nil
	}
	return &TagResult{
		Tags:      ExtractTags(agg.MaxProbs, c.cfg.Threshold),
		MeanProbs: agg.MeanProbs,
		MaxProbs:  agg.MaxProbs,
		Meta: Meta{
			CropsUsed: agg.CropsUsed,
			EarlyExit: agg.EarlyExit,
			TimedOut:  agg.TimedOut,
			Layout:    agg.Layout.String(),
		},
	}, nil
}
