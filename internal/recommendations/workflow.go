package recommendations

import (
	"context"
	"fmt"

	"github.com/agrigenai/agrigen-backend/internal/cart"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/google/uuid"
)

type State string

const (
	StateIdle      State = "idle"
	StateSelecting State = "selecting"
	StateCommitted State = "committed"
)

const (
	DefaultUnitPrice int64 = 299

	breedingType     = "Breeding Partner Seeds"
	replacementType  = "Hybrid Seeds"
	breedingGlyph    = "🌱"
	replacementGlyph = "🌾"
)

// Cart receives committed selections.
type Cart interface {
	AddItem(ctx context.Context, item cart.LineItem) error
}

// Workflow tracks per-recommendation quantities chosen against the current analysis result.
// Nothing here is persisted; a new result starts a fresh selection.
type Workflow struct {
	result    *AnalysisResult
	selection map[Slot]int64
	state     State
	unitPrice int64
	nonce     func() string
}

// NewWorkflow builds an idle workflow pricing every committed pack at unitPrice.
func NewWorkflow(unitPrice int64) *Workflow {
	if unitPrice < 0 {
		unitPrice = DefaultUnitPrice
	}
	return &Workflow{
		selection: map[Slot]int64{},
		state:     StateIdle,
		unitPrice: unitPrice,
		nonce:     uuid.NewString,
	}
}

// Load replaces the analysis result and drops any previous selection.
func (w *Workflow) Load(result AnalysisResult) {
	w.result = &result
	w.selection = map[Slot]int64{}
	w.state = StateSelecting
}

// Adjust adds delta to the slot's quantity. A result of zero or less removes the slot.
func (w *Workflow) Adjust(slot Slot, delta int64) (int64, error) {
	if w.result == nil {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict, "no analysis result loaded")
	}
	if !slot.Kind.IsValid() || slot.Index < 0 || slot.Index >= w.result.slotCount(slot.Kind) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "recommendation slot out of range").
			WithDetails(map[string]any{"slot": slot.String()})
	}
	if slot.Kind == KindBreeding && w.result.IsSeverelyDiseased() {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict, "breeding is unavailable for a severely diseased plant").
			WithDetails(map[string]any{"slot": slot.String()})
	}

	next := w.selection[slot] + delta
	if next <= 0 {
		delete(w.selection, slot)
		return 0, nil
	}
	w.selection[slot] = next
	return next, nil
}

// Commit turns every selected slot into a cart line, breeding slots first then replacement slots,
// each in index order. Breeding slots are skipped while the plant is severely diseased, whatever
// quantities they hold. It returns the number of units added; zero means nothing was selected.
// The selection itself is kept.
func (w *Workflow) Commit(ctx context.Context, c Cart) (int64, error) {
	if w.result == nil {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict, "no analysis result loaded")
	}
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "cart required")
	}

	nonce := w.nonce()
	var added int64
	for _, kind := range []Kind{KindBreeding, KindReplacement} {
		if !w.Available(kind) {
			continue
		}
		for index := 0; index < w.result.slotCount(kind); index++ {
			slot := Slot{Kind: kind, Index: index}
			qty := w.selection[slot]
			if qty <= 0 {
				continue
			}
			if err := c.AddItem(ctx, w.lineItem(slot, qty, nonce)); err != nil {
				if added > 0 {
					w.state = StateCommitted
				}
				return added, err
			}
			added += qty
		}
	}
	if added > 0 {
		w.state = StateCommitted
	}
	return added, nil
}

func (w *Workflow) lineItem(slot Slot, qty int64, nonce string) cart.LineItem {
	name, maturity := w.result.hybrid(slot)
	item := cart.LineItem{
		ID:          fmt.Sprintf("%s-%s", slot, nonce),
		Name:        name + " Seeds",
		UnitPrice:   w.unitPrice,
		Quantity:    qty,
		Description: fmt.Sprintf("%s - Maturity: %s days", name, maturity),
	}
	if slot.Kind == KindBreeding {
		item.Type = breedingType
		item.ImageGlyph = breedingGlyph
	} else {
		item.Type = replacementType
		item.ImageGlyph = replacementGlyph
	}
	return item
}

// Selection returns the chosen quantities keyed by slot key.
func (w *Workflow) Selection() map[string]int64 {
	out := make(map[string]int64, len(w.selection))
	for slot, qty := range w.selection {
		out[slot.String()] = qty
	}
	return out
}

// TotalSelected sums every selected quantity.
func (w *Workflow) TotalSelected() int64 {
	var total int64
	for _, qty := range w.selection {
		total += qty
	}
	return total
}

// Available reports whether slots of kind can be selected and committed.
func (w *Workflow) Available(kind Kind) bool {
	if w.result == nil || w.result.slotCount(kind) == 0 {
		return false
	}
	if kind == KindBreeding {
		return !w.result.IsSeverelyDiseased()
	}
	return true
}

func (w *Workflow) State() State {
	return w.state
}

// Result returns the loaded analysis result.
func (w *Workflow) Result() (AnalysisResult, bool) {
	if w.result == nil {
		return AnalysisResult{}, false
	}
	return *w.result, true
}
