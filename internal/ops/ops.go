package ops

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/advdiff/internal/compare"
	"github.com/hpungsan/advdiff/internal/config"
	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/source"
)

// Adversarial dataset variants.
const (
	VariantAddSent    = "AddSent"
	VariantAddOneSent = "AddOneSent"
	DefaultVariant    = VariantAddSent
)

// Variants lists the accepted variants in display order.
var Variants = []string{VariantAddSent, VariantAddOneSent}

// ValidateVariant returns the variant, defaulting an empty value to AddSent.
func ValidateVariant(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultVariant, nil
	}
	for _, known := range Variants {
		if v == known {
			return v, nil
		}
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("dataset must be one of %s, got %q", strings.Join(Variants, ", "), v))
}

// Env carries the collaborators shared by every operation.
type Env struct {
	Config *config.Config
	Remote source.Source // dataset hub; wrapped by the cache when DB is set
	DB     *sql.DB       // nil when the cache is disabled
	Logger *zap.Logger
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e Env) config() *config.Config {
	if e.Config == nil {
		return config.DefaultConfig()
	}
	return e.Config
}

// Observer receives progress events from Compare. Sample is called for each
// emitted sample in scan order; an error from it aborts the pass.
type Observer interface {
	Configured(variant string, maxSamples int)
	Loading(variant string)
	Indexing()
	Scanning(maxSamples int)
	Sample(s compare.Sample) error
}

// Discard is an Observer that ignores every event.
var Discard Observer = discard{}

type discard struct{}

func (discard) Configured(string, int)      {}
func (discard) Loading(string)              {}
func (discard) Indexing()                   {}
func (discard) Scanning(int)                {}
func (discard) Sample(compare.Sample) error { return nil }
