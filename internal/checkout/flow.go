package checkout

import (
	"context"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/validation"
)

type Phase string

const (
	PhaseEditing    Phase = "editing"
	PhaseSubmitting Phase = "submitting"
	PhasePlaced     Phase = "placed"
)

// View is what the checkout page shows on entry.
type View string

const (
	ViewRedirectCart View = "redirect_cart"
	ViewForm         View = "form"
	ViewConfirmation View = "confirmation"
)

const PaymentCashOnDelivery = "cod"

// ShippingDetails is the checkout form. Only cash on delivery is accepted.
type ShippingDetails struct {
	Name          string `json:"name" validate:"required,max=120"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"required,max=32"`
	Address       string `json:"address" validate:"required,max=300"`
	City          string `json:"city" validate:"omitempty,max=120"`
	State         string `json:"state" validate:"omitempty,max=120"`
	Pincode       string `json:"pincode" validate:"omitempty,max=12"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=cod"`
}

// Confirmation is kept in session memory once an order is placed.
type Confirmation struct {
	OrderID        string    `json:"order_id"`
	GrandTotal     int64     `json:"grand_total"`
	AddressSummary string    `json:"address_summary"`
	PaymentMethod  string    `json:"payment_method"`
	PlacedAt       time.Time `json:"placed_at"`
}

// Entry describes the checkout page for the current cart.
type Entry struct {
	View         View          `json:"view"`
	Quote        *Quote        `json:"quote,omitempty"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
}

// Cart is the part of the cart engine checkout reads and clears.
type Cart interface {
	Total() int64
	IsEmpty() bool
	Clear(ctx context.Context) error
}

type Metrics interface {
	IncOrderPlaced()
	IncCheckoutRejected()
}

type noopMetrics struct{}

func (noopMetrics) IncOrderPlaced()      {}
func (noopMetrics) IncCheckoutRejected() {}

// Flow is the per-session checkout state machine: editing -> submitting -> placed, falling back
// to editing when submission fails.
type Flow struct {
	pricing      Pricing
	metrics      Metrics
	phase        Phase
	confirmation *Confirmation
	now          func() time.Time
}

func NewFlow(pricing Pricing, metrics Metrics) *Flow {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Flow{
		pricing: pricing,
		metrics: metrics,
		phase:   PhaseEditing,
		now:     time.Now,
	}
}

// Enter decides what the checkout page shows. A placed order keeps showing its confirmation
// until the cart is refilled, which starts a new checkout.
func (f *Flow) Enter(c Cart) Entry {
	if f.phase == PhasePlaced {
		if c.IsEmpty() {
			confirmation := *f.confirmation
			return Entry{View: ViewConfirmation, Confirmation: &confirmation}
		}
		f.Reset()
	}
	if c.IsEmpty() {
		return Entry{View: ViewRedirectCart}
	}
	quote := f.pricing.QuoteCart(c)
	return Entry{View: ViewForm, Quote: &quote}
}

// PlaceOrder validates details, prices the cart, then clears it. The confirmation total is
// computed before the cart is cleared.
func (f *Flow) PlaceOrder(ctx context.Context, c Cart, details ShippingDetails) (Confirmation, error) {
	if f.phase == PhasePlaced {
		if c.IsEmpty() {
			return Confirmation{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order already placed").
				WithDetails(map[string]any{"order_id": f.confirmation.OrderID})
		}
		f.Reset()
	}
	if c.IsEmpty() {
		return Confirmation{}, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}

	details = normalizeDetails(details)
	if err := validation.Struct(details); err != nil {
		f.metrics.IncCheckoutRejected()
		return Confirmation{}, err
	}

	f.phase = PhaseSubmitting
	quote := f.pricing.QuoteCart(c)
	placedAt := f.now().UTC()
	confirmation := Confirmation{
		OrderID:        orderID(placedAt),
		GrandTotal:     quote.GrandTotal,
		AddressSummary: addressSummary(details),
		PaymentMethod:  details.PaymentMethod,
		PlacedAt:       placedAt,
	}

	if err := c.Clear(ctx); err != nil {
		f.phase = PhaseEditing
		return Confirmation{}, err
	}

	f.phase = PhasePlaced
	f.confirmation = &confirmation
	f.metrics.IncOrderPlaced()
	return confirmation, nil
}

func (f *Flow) Phase() Phase {
	return f.phase
}

func (f *Flow) Confirmation() (Confirmation, bool) {
	if f.confirmation == nil {
		return Confirmation{}, false
	}
	return *f.confirmation, true
}

// Reset discards any placed order and returns to editing.
func (f *Flow) Reset() {
	f.phase = PhaseEditing
	f.confirmation = nil
}

func (f *Flow) Pricing() Pricing {
	return f.pricing
}

func normalizeDetails(d ShippingDetails) ShippingDetails {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.State = strings.TrimSpace(d.State)
	d.Pincode = strings.TrimSpace(d.Pincode)
	d.PaymentMethod = strings.ToLower(strings.TrimSpace(d.PaymentMethod))
	if d.PaymentMethod == "" {
		d.PaymentMethod = PaymentCashOnDelivery
	}
	return d
}

// orderID is "AGR" followed by the last eight digits of the placement time in unix milliseconds.
func orderID(at time.Time) string {
	millis := strconv.FormatInt(at.UnixMilli(), 10)
	if len(millis) > 8 {
		millis = millis[len(millis)-8:]
	}
	return "AGR" + millis
}

func addressSummary(d ShippingDetails) string {
	parts := []string{d.Address}
	if d.City != "" {
		parts = append(parts, d.City)
	}
	return strings.Join(parts, ", ")
}
