package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/kvstore"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
	"github.com/agrigenai/agrigen-backend/pkg/validation"
)

// StoreEntry names the persisted identity value.
const StoreEntry = kvstore.EntryUser

// Identity is the signed-in user as shown to the client. Passwords are never kept.
type Identity struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignupInput is the registration form.
type SignupInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Location string `json:"location" validate:"omitempty,max=120"`
}

type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, names ...string) error
}

type Metrics interface {
	IncDecodeFailure(entry string)
}

type noopMetrics struct{}

func (noopMetrics) IncDecodeFailure(string) {}

// Holder keeps the optional identity of one session. Authentication is a stub: any well-formed
// credentials are accepted.
type Holder struct {
	store   Store
	logg    *logger.Logger
	metrics Metrics
	current *Identity
}

func NewHolder(store Store, logg *logger.Logger, metrics Metrics) (*Holder, error) {
	if store == nil {
		return nil, errors.New("identity store required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Holder{store: store, logg: logg, metrics: metrics}, nil
}

// Load restores the persisted identity. Missing or unreadable entries leave the holder empty.
func (h *Holder) Load(ctx context.Context) error {
	h.current = nil

	data, err := h.store.Get(ctx, StoreEntry)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading identity")
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil || strings.TrimSpace(id.Email) == "" && strings.TrimSpace(id.Name) == "" {
		h.metrics.IncDecodeFailure(StoreEntry)
		fields := map[string]any{"entry": StoreEntry}
		if err != nil {
			fields["decode_error"] = err.Error()
		}
		h.logg.Warn(h.logg.WithFields(ctx, fields), "identity.decode_failed")
		return nil
	}
	h.current = &id
	return nil
}

// Login accepts any valid email with a password of at least six characters. The display name is
// the local part of the email.
func (h *Holder) Login(ctx context.Context, creds Credentials) (Identity, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := validation.Struct(creds); err != nil {
		return Identity{}, err
	}
	email := strings.ToLower(creds.Email)
	return h.set(ctx, Identity{Name: localPart(email), Email: email})
}

// Signup registers and signs in the user named in input.
func (h *Holder) Signup(ctx context.Context, input SignupInput) (Identity, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Location = strings.TrimSpace(input.Location)
	if err := validation.Struct(input); err != nil {
		return Identity{}, err
	}
	return h.set(ctx, Identity{
		Name:     input.Name,
		Email:    strings.ToLower(input.Email),
		Phone:    input.Phone,
		Location: input.Location,
	})
}

// Logout forgets the identity and deletes both the identity and the cart entries from the store.
func (h *Holder) Logout(ctx context.Context) error {
	h.current = nil
	if err := h.store.Delete(ctx, StoreEntry, kvstore.EntryCart); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing identity")
	}
	return nil
}

// Current returns the identity, if any.
func (h *Holder) Current() (Identity, bool) {
	if h.current == nil {
		return Identity{}, false
	}
	return *h.current, true
}

func (h *Holder) Present() bool {
	return h.current != nil
}

func (h *Holder) set(ctx context.Context, id Identity) (Identity, error) {
	h.current = &id
	data, err := json.Marshal(id)
	if err != nil {
		return id, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding identity")
	}
	if err := h.store.Set(ctx, StoreEntry, data); err != nil {
		return id, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting identity")
	}
	return id, nil
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
