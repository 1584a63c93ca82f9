package cart

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/kvstore"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

// StoreEntry names the persisted cart value.
const StoreEntry = kvstore.EntryCart

// Store is the session-scoped persistence the engine writes through.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, names ...string) error
}

// Metrics receives cart activity counters.
type Metrics interface {
	IncCartMutation(op string)
	IncDecodeFailure(entry string)
}

type noopMetrics struct{}

func (noopMetrics) IncCartMutation(string)  {}
func (noopMetrics) IncDecodeFailure(string) {}

// Engine holds one session's cart and persists it after every mutation. It is not safe for
// concurrent use; the owning session serializes access.
type Engine struct {
	store   Store
	logg    *logger.Logger
	metrics Metrics
	items   []LineItem
}

// NewEngine builds an empty cart bound to store. Call Load to hydrate it.
func NewEngine(store Store, logg *logger.Logger, metrics Metrics) (*Engine, error) {
	if store == nil {
		return nil, errors.New("cart store required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Engine{store: store, logg: logg, metrics: metrics, items: []LineItem{}}, nil
}

// Load replaces the in-memory cart with the persisted one. A missing or unreadable entry leaves
// the cart empty; only store failures are returned.
func (e *Engine) Load(ctx context.Context) error {
	e.items = []LineItem{}

	data, err := e.store.Get(ctx, StoreEntry)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}

	items, err := decode(data)
	if err != nil {
		e.metrics.IncDecodeFailure(StoreEntry)
		e.logg.Warn(e.logg.WithField(ctx, "decode_error", err.Error()), "cart.decode_failed")
		return nil
	}
	e.items = items
	return nil
}

// AddItem merges item into an existing line with the same id, keeping that line's other fields,
// or appends it.
func (e *Engine) AddItem(ctx context.Context, item LineItem) error {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if item.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"id": item.ID, "quantity": item.Quantity})
	}
	if item.UnitPrice < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").
			WithDetails(map[string]any{"id": item.ID, "price": item.UnitPrice})
	}

	if idx := indexOf(e.items, item.ID); idx >= 0 {
		e.items[idx].Quantity += item.Quantity
	} else {
		e.items = append(e.items, item)
	}
	return e.persist(ctx, "add")
}

// RemoveItem drops the line with id; unknown ids leave the cart unchanged.
func (e *Engine) RemoveItem(ctx context.Context, id string) error {
	if idx := indexOf(e.items, id); idx >= 0 {
		e.items = append(e.items[:idx], e.items[idx+1:]...)
	}
	return e.persist(ctx, "remove")
}

// SetQuantity replaces the quantity of the line with id. quantity <= 0 removes the line.
func (e *Engine) SetQuantity(ctx context.Context, id string, quantity int64) error {
	if quantity <= 0 {
		return e.RemoveItem(ctx, id)
	}
	if idx := indexOf(e.items, id); idx >= 0 {
		e.items[idx].Quantity = quantity
	}
	return e.persist(ctx, "set_quantity")
}

// Clear empties the cart and removes its persisted entry.
func (e *Engine) Clear(ctx context.Context) error {
	e.items = []LineItem{}
	e.metrics.IncCartMutation("clear")
	if err := e.store.Delete(ctx, StoreEntry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

// Items returns a copy of the lines in insertion order.
func (e *Engine) Items() []LineItem {
	out := make([]LineItem, len(e.items))
	copy(out, e.items)
	return out
}

// Find returns the line with id.
func (e *Engine) Find(id string) (LineItem, bool) {
	if idx := indexOf(e.items, id); idx >= 0 {
		return e.items[idx], true
	}
	return LineItem{}, false
}

// Total is the sum of unit price x quantity over all lines.
func (e *Engine) Total() int64 {
	var total int64
	for _, item := range e.items {
		total += item.LineTotal()
	}
	return total
}

// Count is the sum of quantities over all lines.
func (e *Engine) Count() int64 {
	var count int64
	for _, item := range e.items {
		count += item.Quantity
	}
	return count
}

func (e *Engine) IsEmpty() bool {
	return len(e.items) == 0
}

func (e *Engine) persist(ctx context.Context, op string) error {
	e.metrics.IncCartMutation(op)
	data, err := Encode(e.items)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart")
	}
	if err := e.store.Set(ctx, StoreEntry, data); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting cart")
	}
	return nil
}
