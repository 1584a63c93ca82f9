package language

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/kvstore"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

// StoreEntry names the persisted language value.
const StoreEntry = kvstore.EntryLanguage

// Code is a supported interface language.
type Code string

const (
	English Code = "en"
	Hindi   Code = "hi"
	Kannada Code = "kn"
	Tamil   Code = "ta"
	Telugu  Code = "te"

	Default = English
)

// Supported lists the available languages in display order.
var Supported = []Code{English, Hindi, Kannada, Tamil, Telugu}

var nativeNames = map[Code]string{
	English: "English",
	Hindi:   "हिन्दी",
	Kannada: "ಕನ್ನಡ",
	Tamil:   "தமிழ்",
	Telugu:  "తెలుగు",
}

func (c Code) IsValid() bool {
	_, ok := nativeNames[c]
	return ok
}

// NativeName is the language's name written in that language.
func (c Code) NativeName() string {
	return nativeNames[c]
}

// Parse normalizes raw into a supported code.
func Parse(raw string) (Code, error) {
	code := Code(strings.ToLower(strings.TrimSpace(raw)))
	if !code.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported language").
			WithDetails(map[string]any{"language": raw, "supported": Supported})
	}
	return code, nil
}

type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
}

type Metrics interface {
	IncDecodeFailure(entry string)
}

type noopMetrics struct{}

func (noopMetrics) IncDecodeFailure(string) {}

// Preference holds one session's language choice.
type Preference struct {
	store   Store
	logg    *logger.Logger
	metrics Metrics
	current Code
}

func NewPreference(store Store, logg *logger.Logger, metrics Metrics) (*Preference, error) {
	if store == nil {
		return nil, errors.New("language store required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Preference{store: store, logg: logg, metrics: metrics, current: Default}, nil
}

// Load restores the persisted language, falling back to the default when missing or unknown.
func (p *Preference) Load(ctx context.Context) error {
	p.current = Default

	data, err := p.store.Get(ctx, StoreEntry)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading language")
	}

	code, err := Parse(string(data))
	if err != nil {
		p.metrics.IncDecodeFailure(StoreEntry)
		p.logg.Warn(p.logg.WithField(ctx, "stored_language", string(data)), "language.decode_failed")
		return nil
	}
	p.current = code
	return nil
}

// Set switches the language and persists it.
func (p *Preference) Set(ctx context.Context, raw string) (Code, error) {
	code, err := Parse(raw)
	if err != nil {
		return p.current, err
	}
	p.current = code
	if err := p.store.Set(ctx, StoreEntry, []byte(code)); err != nil {
		return code, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting language")
	}
	return code, nil
}

func (p *Preference) Current() Code {
	return p.current
}
