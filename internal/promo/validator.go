package promo

import (
	"context"
	"fmt"
	"sync"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
)

// Validation rule: a code is valid when its length is 8 to 10 characters and
// it appears in at least minSources of the configured source files.
const (
	minCodeLength = 8
	maxCodeLength = 10
)

// Validator checks promo codes supplied at checkout.
type Validator interface {
	// Validate returns nil for a valid code, or one of
	// model.ErrInvalidPromoLength / model.ErrInvalidPromoCode.
	Validate(ctx context.Context, code string) error

	// Close releases the loaded source sets.
	Close() error
}

// ValidatorConfig holds validator construction parameters.
type ValidatorConfig struct {
	// FilePaths is the list of promo source files to load.
	FilePaths []string

	// MinSources is the number of source files a code must appear in.
	// Defaults to 2.
	MinSources int
}

// validator holds the loaded source sets. Sets are read-only after
// construction, so lookups need no locking.
type validator struct {
	sets       []Set
	minSources int
	logger     zerolog.Logger
}

// NewValidator loads every source file and returns a ready validator.
// Sources load concurrently; any single failure fails construction.
func NewValidator(ctx context.Context, cfg ValidatorConfig, loader Loader, logger zerolog.Logger) (Validator, error) {
	if cfg.MinSources <= 0 {
		cfg.MinSources = 2
	}

	logger = logger.With().Str("component", "promo-validator").Logger()
	logger.Info().
		Int("source_count", len(cfg.FilePaths)).
		Int("min_sources", cfg.MinSources).
		Msg("loading promo sources")

	sets := make([]Set, len(cfg.FilePaths))
	errs := make([]error, len(cfg.FilePaths))

	var wg sync.WaitGroup
	for i, path := range cfg.FilePaths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sets[i], errs[i] = loader.Load(ctx, path)
		}(i, path)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to load promo source %s: %w", cfg.FilePaths[i], err)
		}
	}

	total := 0
	for _, s := range sets {
		total += s.Size()
	}
	logger.Info().Int("total_codes", total).Msg("promo validator ready")

	return &validator{
		sets:       sets,
		minSources: cfg.MinSources,
		logger:     logger,
	}, nil
}

// Validate checks the length rule, then counts source membership.
func (v *validator) Validate(ctx context.Context, code string) error {
	if len(code) < minCodeLength || len(code) > maxCodeLength {
		v.logger.Debug().
			Int("length", len(code)).
			Msg("promo code length invalid")
		return model.ErrInvalidPromoLength
	}

	matches := 0
	for i, set := range v.sets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if set.Contains(code) {
			matches++
			if matches >= v.minSources {
				return nil
			}
		}

		// Stop early when the remaining sources cannot reach the bar.
		if matches+(len(v.sets)-i-1) < v.minSources {
			break
		}
	}

	v.logger.Debug().
		Int("matches", matches).
		Msg("promo code not found in enough sources")
	return model.ErrInvalidPromoCode
}

// Close releases the loaded source sets.
func (v *validator) Close() error {
	v.sets = nil
	return nil
}
