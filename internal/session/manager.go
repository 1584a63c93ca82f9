package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/agrigenai/agrigen-backend/internal/cart"
	"github.com/agrigenai/agrigen-backend/internal/checkout"
	"github.com/agrigenai/agrigen-backend/internal/identity"
	"github.com/agrigenai/agrigen-backend/internal/language"
	"github.com/agrigenai/agrigen-backend/internal/recommendations"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/kvstore"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
	"github.com/google/uuid"
)

// Metrics is everything the session components report.
type Metrics interface {
	IncCartMutation(op string)
	IncDecodeFailure(entry string)
	IncOrderPlaced()
	IncCheckoutRejected()
	ObserveCommit(units int64)
}

type noopMetrics struct{}

func (noopMetrics) IncCartMutation(string)  {}
func (noopMetrics) IncDecodeFailure(string) {}
func (noopMetrics) IncOrderPlaced()         {}
func (noopMetrics) IncCheckoutRejected()    {}
func (noopMetrics) ObserveCommit(int64)     {}

// ManagerParams configure the session manager.
type ManagerParams struct {
	Store     kvstore.Store
	Logger    *logger.Logger
	Metrics   Metrics
	UnitPrice int64
	// Pricing is used as given, zero charges included; nil selects checkout.DefaultPricing.
	Pricing *checkout.Pricing
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Manager keeps the live sessions of this process. Only the selection workflow and checkout flow
// live here; identity, cart and language are re-read from the store on every Open so instances
// sharing a store agree on them.
type Manager struct {
	store     kvstore.Store
	logg      *logger.Logger
	metrics   Metrics
	unitPrice int64
	pricing   checkout.Pricing
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewManager(params ManagerParams) (*Manager, error) {
	if params.Store == nil {
		return nil, errors.New("session store required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	metrics := params.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	pricing := checkout.DefaultPricing()
	if params.Pricing != nil {
		pricing = *params.Pricing
	}
	unitPrice := params.UnitPrice
	if unitPrice <= 0 {
		unitPrice = recommendations.DefaultUnitPrice
	}
	return &Manager{
		store:     params.Store,
		logg:      params.Logger,
		metrics:   metrics,
		unitPrice: unitPrice,
		pricing:   pricing,
		now:       time.Now,
		sessions:  map[string]*entry{},
	}, nil
}

// New starts a session under a freshly generated id.
func (m *Manager) New(ctx context.Context) (*Session, error) {
	return m.Open(ctx, uuid.NewString())
}

// Open returns the live session for id with its persisted entries freshly hydrated from the store.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session id required")
	}
	ctx = m.logg.WithSessionID(ctx, id)

	m.mu.Lock()
	existing, ok := m.sessions[id]
	if ok {
		existing.lastSeen = m.now()
	}
	m.mu.Unlock()
	if ok {
		if err := existing.session.load(ctx); err != nil {
			m.logg.Error(ctx, "session.hydrate_failed", err)
			return nil, err
		}
		return existing.session, nil
	}

	sess, err := m.build(id)
	if err != nil {
		return nil, err
	}
	if err := sess.load(ctx); err != nil {
		m.logg.Error(ctx, "session.hydrate_failed", err)
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		existing.lastSeen = m.now()
		return existing.session, nil
	}
	m.sessions[id] = &entry{session: sess, lastSeen: m.now()}
	m.logg.Debug(ctx, "session.opened")
	return sess, nil
}

func (m *Manager) build(id string) (*Session, error) {
	bucket := kvstore.NewBucket(m.store, id)

	cartEngine, err := cart.NewEngine(bucket, m.logg, m.metrics)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building cart")
	}
	holder, err := identity.NewHolder(bucket, m.logg, m.metrics)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building identity holder")
	}
	pref, err := language.NewPreference(bucket, m.logg, m.metrics)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building language preference")
	}

	return &Session{
		id:       id,
		metrics:  m.metrics,
		cart:     cartEngine,
		identity: holder,
		workflow: recommendations.NewWorkflow(m.unitPrice),
		checkout: checkout.NewFlow(m.pricing, m.metrics),
		language: pref,
	}, nil
}

// Close drops the live session for id. Its persisted entries are left untouched.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Sweep evicts sessions not opened within idle and returns how many were dropped.
func (m *Manager) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}
