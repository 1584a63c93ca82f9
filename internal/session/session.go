package session

import (
	"context"
	"sync"

	"github.com/agrigenai/agrigen-backend/internal/cart"
	"github.com/agrigenai/agrigen-backend/internal/checkout"
	"github.com/agrigenai/agrigen-backend/internal/identity"
	"github.com/agrigenai/agrigen-backend/internal/language"
	"github.com/agrigenai/agrigen-backend/internal/recommendations"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"go.uber.org/multierr"
)

// CartView is the cart as returned to clients.
type CartView struct {
	Items []cart.LineItem `json:"items"`
	Total int64           `json:"total"`
	Count int64           `json:"count"`
	Quote checkout.Quote  `json:"quote"`
}

// SelectionView describes the recommendation selection against the loaded analysis result.
type SelectionView struct {
	State                recommendations.State `json:"state"`
	HasResult            bool                  `json:"has_result"`
	GenotypeID           string                `json:"genotype_id,omitempty"`
	SeverelyDiseased     bool                  `json:"severely_diseased"`
	BreedingAvailable    bool                  `json:"breeding_available"`
	ReplacementAvailable bool                  `json:"replacement_available"`
	Selection            map[string]int64      `json:"selection"`
	TotalSelected        int64                 `json:"total_selected"`
}

// CommitOutcome reports a selection commit.
type CommitOutcome struct {
	Units int64    `json:"units"`
	Cart  CartView `json:"cart"`
}

// Session bundles the state of one client session. Every exported method holds the session lock
// for its whole duration, so operations on a session never interleave.
type Session struct {
	id      string
	mu      sync.Mutex
	metrics Metrics

	cart     *cart.Engine
	identity *identity.Holder
	workflow *recommendations.Workflow
	checkout *checkout.Flow
	language *language.Preference
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return multierr.Combine(
		s.identity.Load(ctx),
		s.cart.Load(ctx),
		s.language.Load(ctx),
	)
}

func (s *Session) Identity() (identity.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity.Current()
}

func (s *Session) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity.Present()
}

func (s *Session) Login(ctx context.Context, creds identity.Credentials) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity.Login(ctx, creds)
}

func (s *Session) Signup(ctx context.Context, input identity.SignupInput) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity.Signup(ctx, input)
}

// Logout signs the user out, empties the cart and abandons any checkout in progress. The analysis
// result and language choice are kept.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := multierr.Combine(
		s.identity.Logout(ctx),
		s.cart.Clear(ctx),
	)
	s.checkout.Reset()
	return err
}

func (s *Session) Language() language.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language.Current()
}

func (s *Session) SetLanguage(ctx context.Context, raw string) (language.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language.Set(ctx, raw)
}

// LoadResult installs a new analysis result, discarding the previous selection.
func (s *Session) LoadResult(result recommendations.AnalysisResult) SelectionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflow.Load(result)
	return s.selectionView()
}

func (s *Session) Selection() SelectionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionView()
}

func (s *Session) Adjust(slot recommendations.Slot, delta int64) (SelectionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.workflow.Adjust(slot, delta); err != nil {
		return SelectionView{}, err
	}
	return s.selectionView(), nil
}

// Commit adds the selection to the cart. A commit that adds nothing is rejected so that callers
// never move on to checkout with an untouched cart.
func (s *Session) Commit(ctx context.Context) (CommitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	units, err := s.workflow.Commit(ctx, s.cart)
	s.metrics.ObserveCommit(units)
	if err != nil {
		return CommitOutcome{Units: units, Cart: s.cartView()}, err
	}
	if units == 0 {
		return CommitOutcome{}, pkgerrors.New(pkgerrors.CodeValidation, "nothing selected").
			WithDetails(map[string]any{"selection": "choose at least one recommendation"})
	}
	return CommitOutcome{Units: units, Cart: s.cartView()}, nil
}

func (s *Session) Cart() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartView()
}

func (s *Session) AddItem(ctx context.Context, item cart.LineItem) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.cart.AddItem(ctx, item)
	return s.cartView(), err
}

func (s *Session) RemoveItem(ctx context.Context, id string) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.cart.RemoveItem(ctx, id)
	return s.cartView(), err
}

func (s *Session) SetQuantity(ctx context.Context, id string, quantity int64) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.cart.SetQuantity(ctx, id, quantity)
	return s.cartView(), err
}

func (s *Session) EnterCheckout() checkout.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout.Enter(s.cart)
}

func (s *Session) PlaceOrder(ctx context.Context, details checkout.ShippingDetails) (checkout.Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout.PlaceOrder(ctx, s.cart, details)
}

func (s *Session) cartView() CartView {
	return CartView{
		Items: s.cart.Items(),
		Total: s.cart.Total(),
		Count: s.cart.Count(),
		Quote: s.checkout.Pricing().QuoteCart(s.cart),
	}
}

func (s *Session) selectionView() SelectionView {
	view := SelectionView{
		State:                s.workflow.State(),
		Selection:            s.workflow.Selection(),
		TotalSelected:        s.workflow.TotalSelected(),
		BreedingAvailable:    s.workflow.Available(recommendations.KindBreeding),
		ReplacementAvailable: s.workflow.Available(recommendations.KindReplacement),
	}
	if result, ok := s.workflow.Result(); ok {
		view.HasResult = true
		view.GenotypeID = result.GenotypeID()
		view.SeverelyDiseased = result.IsSeverelyDiseased()
	}
	return view
}
