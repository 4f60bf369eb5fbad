package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ontosim/internal/blob"
	"ontosim/pkg/domain"
)

// MissingTargetPolicy decides what happens when a foreign key names an
// object that is not registered.
type MissingTargetPolicy string

const (
	// MissingTargetWarn logs a warning and links to the locator anyway.
	MissingTargetWarn MissingTargetPolicy = "warn"
	// MissingTargetReject fails the write before any mutation.
	MissingTargetReject MissingTargetPolicy = "reject"
)

// Environment variables read by ConfigFromEnv.
const (
	envStrict        = "ONTOSIM_STRICT"
	envMissingTarget = "ONTOSIM_MISSING_LINK_TARGET"
)

// Config captures consistency behaviour of a store.
type Config struct {
	// Strict treats foreign key properties as the source of truth for ONE
	// links and derives edges from them.
	Strict        bool
	MissingTarget MissingTargetPolicy
}

// DefaultConfig returns strict mode with warn-on-missing-target.
func DefaultConfig() Config {
	return Config{Strict: true, MissingTarget: MissingTargetWarn}
}

// ConfigFromEnv builds a Config from ONTOSIM_* environment variables.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if raw := strings.TrimSpace(os.Getenv(envStrict)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", envStrict, err)
		}
		cfg.Strict = v
	}
	if raw := strings.ToLower(strings.TrimSpace(os.Getenv(envMissingTarget))); raw != "" {
		switch MissingTargetPolicy(raw) {
		case MissingTargetWarn, MissingTargetReject:
			cfg.MissingTarget = MissingTargetPolicy(raw)
		default:
			return Config{}, fmt.Errorf("%s: unsupported policy %q", envMissingTarget, raw)
		}
	}
	return cfg, nil
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	config      Config
	logger      Logger
	blobs       blob.Store
	attachments domain.AttachmentStore
	clock       Clock
	rules       *domain.RulesEngine
}

// WithConfig overrides the consistency configuration.
func WithConfig(cfg Config) StoreOption {
	return func(o *storeOptions) {
		o.config = cfg
	}
}

// WithStoreLogger sets the logger used for consistency warnings.
func WithStoreLogger(logger Logger) StoreOption {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBlobStore sets the backend holding media bytes.
func WithBlobStore(store blob.Store) StoreOption {
	return func(o *storeOptions) {
		if store != nil {
			o.blobs = store
		}
	}
}

// WithAttachmentStore sets the attachment collaborator.
func WithAttachmentStore(store domain.AttachmentStore) StoreOption {
	return func(o *storeOptions) {
		o.attachments = store
	}
}

// WithStoreClock overrides the clock stamping media "uploaded-at" metadata.
func WithStoreClock(clock Clock) StoreOption {
	return func(o *storeOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithRulesEngine sets the engine evaluating action submission criteria.
func WithRulesEngine(engine *domain.RulesEngine) StoreOption {
	return func(o *storeOptions) {
		if engine != nil {
			o.rules = engine
		}
	}
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		config: DefaultConfig(),
		logger: noopLogger{},
		clock:  ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
}
