package server

import (
	"time"

	"github.com/nekomi/avatarguard/classifier"
	"github.com/nekomi/avatarguard/config"
)

var cls *classifier.Classifier

// Init builds the process-wide Classifier from the loaded config.
func Init() {
	c := config.C()
	cls = classifier.New(classifier.Config{
		Enabled:             c.Enabled,
		ModelPath:           c.ModelPath,
		InputSize:           c.InputSize,
		Threshold:           c.Threshold,
		EarlyExitConfidence: c.EarlyExitConfidence,
		CropBudget:          time.Duration(c.CropBudgetMs) * time.Millisecond,
		CacheTTL:            time.Duration(c.CacheTTLMs) * time.Millisecond,
		CacheCapacity:       c.CacheCapacity,
		FetchTimeout:        time.Duration(c.FetchTimeoutMs) * time.Millisecond,
		FetchMaxBytes:       c.FetchMaxBytes,
	}, classifier.NewONNXBackend())
}
