package badezimmer

import (
	"time"

	"github.com/sirupsen/logrus"
)

// defaultRandomSeed matches the reference implementation's fixed seed,
// which keeps tiebreaking jitter and rename sequencing reproducible across
// runs (spec.md §6).
const defaultRandomSeed = 42069

type engineConfig struct {
	intervalBetweenTiebreakingMS time.Duration
	tiebreakingAttempts          int
	queryTimeout                 time.Duration
	tiebreakingMaxDriftMS        time.Duration
	randomSeed                   int64

	automaticCleanup       bool
	cleanupInterval        time.Duration
	automaticRenovation    bool
	renovationInterval     time.Duration // informational only; see SPEC_FULL.md open questions
	healthCheckTimeout     time.Duration
	excludedIPPrefixes     []string

	logger *logrus.Entry
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		intervalBetweenTiebreakingMS: 100 * time.Millisecond,
		tiebreakingAttempts:          3,
		queryTimeout:                 200 * time.Millisecond,
		tiebreakingMaxDriftMS:        25 * time.Millisecond,
		randomSeed:                   defaultRandomSeed,
		automaticCleanup:             true,
		cleanupInterval:              60 * time.Second,
		automaticRenovation:          true,
		renovationInterval:           60 * time.Second,
		healthCheckTimeout:           1 * time.Second,
		excludedIPPrefixes:           defaultExcludedIPPrefixes,
		logger:                       defaultLogger(),
	}
}

// Option configures an Engine at construction time, following the
// functional-options pattern the teacher uses for ServerOption/ClientOption.
type Option func(*engineConfig)

func WithTiebreakingInterval(d time.Duration) Option {
	return func(c *engineConfig) { c.intervalBetweenTiebreakingMS = d }
}

func WithTiebreakingAttempts(n int) Option {
	return func(c *engineConfig) { c.tiebreakingAttempts = n }
}

func WithQueryTimeout(d time.Duration) Option {
	return func(c *engineConfig) { c.queryTimeout = d }
}

func WithTiebreakingMaxDrift(d time.Duration) Option {
	return func(c *engineConfig) { c.tiebreakingMaxDriftMS = d }
}

func WithRandomSeed(seed int64) Option {
	return func(c *engineConfig) { c.randomSeed = seed }
}

func WithAutomaticCleanup(enabled bool) Option {
	return func(c *engineConfig) { c.automaticCleanup = enabled }
}

func WithCleanupInterval(d time.Duration) Option {
	return func(c *engineConfig) { c.cleanupInterval = d }
}

func WithAutomaticRenovation(enabled bool) Option {
	return func(c *engineConfig) { c.automaticRenovation = enabled }
}

func WithHealthCheckTimeout(d time.Duration) Option {
	return func(c *engineConfig) { c.healthCheckTimeout = d }
}

func WithExcludedIPPrefixes(prefixes ...string) Option {
	return func(c *engineConfig) { c.excludedIPPrefixes = prefixes }
}

// WithLogger overrides the logrus entry the engine logs through; by default
// a fresh JSON-formatted entry is created (see
// logging.go), never a package-level singleton.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}
