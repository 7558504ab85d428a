package lifecycle

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cefdesk/repricer/pkg/engine/model"
	"github.com/cefdesk/repricer/pkg/engine/pricing"
)

const (
	// DefaultReplaceBudget caps replaces per parent order outside
	// production. Production runs uncapped; see DESIGN.md.
	DefaultReplaceBudget = 10

	// DefaultCrossedCycleLimit escalates a persistently crossed
	// reference market to a cancel.
	DefaultCrossedCycleLimit = 6
)

type Config struct {
	Environment       model.Environment `yaml:"environment"`
	ReplaceBudget     int               `yaml:"replace_budget"`
	CrossedCycleLimit int               `yaml:"crossed_cycle_limit"`
}

// Tracker owns the live-order store and the parent replace chains.
// All mutation goes through atomic per-key read-modify-write; a sweep
// evaluating an order and an inbound update on the same order never
// interleave.
type Tracker struct {
	cfg Config

	mu      sync.RWMutex
	orders  map[string]*entry                   // parent order id -> live state
	clients map[string]string                   // client order id -> parent order id
	parents map[string]*model.ParentOrderState  // parent order id -> chain
}

type entry struct {
	mu sync.Mutex
	st model.LiveOrderState
}

func NewTracker(cfg Config) *Tracker {
	if cfg.ReplaceBudget == 0 {
		cfg.ReplaceBudget = DefaultReplaceBudget
	}
	if cfg.CrossedCycleLimit == 0 {
		cfg.CrossedCycleLimit = DefaultCrossedCycleLimit
	}
	return &Tracker{
		cfg:     cfg,
		orders:  make(map[string]*entry),
		clients: make(map[string]string),
		parents: make(map[string]*model.ParentOrderState),
	}
}

// Track registers a normalized New order. The order's client id seeds
// its own replace chain.
func (t *Tracker) Track(req *model.OrderRequest) (model.LiveOrderState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.clients[req.ClientOrderID]; ok {
		return model.LiveOrderState{}, fmt.Errorf("%w: %s", ErrDuplicateOrder, req.ClientOrderID)
	}

	st := model.LiveOrderState{
		Request:       req,
		ClientOrderID: req.ClientOrderID,
		ParentOrderID: req.ClientOrderID,
		Status:        model.StatusPending,
		RestingPrice:  req.LimitPrice,
		TargetPrice:   req.LimitPrice,
		UpdatedAt:     time.Now(),
	}
	t.orders[st.ParentOrderID] = &entry{st: st}
	t.clients[req.ClientOrderID] = st.ParentOrderID
	t.parents[st.ParentOrderID] = &model.ParentOrderState{
		ParentOrderID: st.ParentOrderID,
		Children:      []string{req.ClientOrderID},
	}
	return st, nil
}

func (t *Tracker) resolve(clientOrderID string) (*entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	parentID, ok := t.clients[clientOrderID]
	if !ok {
		return nil, false
	}
	e, ok := t.orders[parentID]
	return e, ok
}

// Get returns a copy of the live state for any client id in the chain.
func (t *Tracker) Get(clientOrderID string) (model.LiveOrderState, bool) {
	e, ok := t.resolve(clientOrderID)
	if !ok {
		return model.LiveOrderState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st, true
}

// Parent returns a copy of the replace-chain state.
func (t *Tracker) Parent(parentOrderID string) (model.ParentOrderState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.parents[parentOrderID]
	if !ok {
		return model.ParentOrderState{}, false
	}
	return *p, true
}

// Update runs fn under the order's key lock. fn sees and may mutate
// the live state; returning an error discards nothing (state mutations
// are in place) but is propagated to the caller.
func (t *Tracker) Update(clientOrderID string, fn func(*model.LiveOrderState) error) error {
	e, ok := t.resolve(clientOrderID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, clientOrderID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(&e.st); err != nil {
		return err
	}
	e.st.UpdatedAt = time.Now()
	return nil
}

// List copies every live order passing the filter. Used by the sweeps;
// each copy is re-checked under the key lock before any replace is
// generated.
func (t *Tracker) List(filter func(*model.LiveOrderState) bool) []model.LiveOrderState {
	t.mu.RLock()
	entries := make([]*entry, 0, len(t.orders))
	for _, e := range t.orders {
		entries = append(entries, e)
	}
	t.mu.RUnlock()

	var out []model.LiveOrderState
	for _, e := range entries {
		e.mu.Lock()
		if filter == nil || filter(&e.st) {
			out = append(out, e.st)
		}
		e.mu.Unlock()
	}
	return out
}

// CheckForAutoUpdate decides replace eligibility: a live status, no
// replace already in flight, and outside production a parent replace
// count under budget. Production carries no ceiling.
func (t *Tracker) CheckForAutoUpdate(st *model.LiveOrderState) bool {
	switch st.Status {
	case model.StatusPending, model.StatusReplaced, model.StatusReplaceRejected, model.StatusPartiallyFilled:
	default:
		return false
	}
	if st.ReplaceInFlight {
		return false
	}
	if t.cfg.Environment != model.EnvProduction {
		if p, ok := t.Parent(st.ParentOrderID); ok && p.ReplaceCount >= t.cfg.ReplaceBudget {
			return false
		}
	}
	return true
}

// MarkReplace atomically re-checks eligibility, advances the chain to
// a new child client id and flags the replace as in flight. Returns
// the replace request to dispatch. Only a venue report clears the
// in-flight flag.
func (t *Tracker) MarkReplace(clientOrderID string, ev pricing.Evaluation) (*model.OrderRequest, error) {
	return t.MarkReplaceWith(clientOrderID, ev, nil)
}

// MarkReplaceWith runs prepare under the order's key lock after the
// eligibility check and before the chain advances. Inbound updates use
// it to fold caller overrides in; an ineligible order is left
// untouched.
func (t *Tracker) MarkReplaceWith(clientOrderID string, ev pricing.Evaluation, prepare func(*model.LiveOrderState) error) (*model.OrderRequest, error) {
	var req *model.OrderRequest
	err := t.Update(clientOrderID, func(st *model.LiveOrderState) error {
		if !t.CheckForAutoUpdate(st) {
			return fmt.Errorf("%w: %s", ErrNotEligible, clientOrderID)
		}
		if prepare != nil {
			if err := prepare(st); err != nil {
				return err
			}
		}

		childID := t.appendChild(st.ParentOrderID)

		st.PrevOrderID = st.ClientOrderID
		st.ClientOrderID = childID
		st.ReplaceInFlight = true
		st.TargetPrice = ev.Target
		st.RawChange = ev.RawChange
		st.CappedChange = ev.CappedChange

		r := *st.Request
		r.Action = model.ActionUpdate
		r.ClientOrderID = childID
		r.OrigOrderID = st.PrevOrderID
		r.LimitPrice = ev.Target
		r.TransactTime = time.Now()
		req = &r

		t.mu.Lock()
		t.clients[childID] = st.ParentOrderID
		t.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// appendChild advances the chain: bumps the replace count and links
// the next child id.
func (t *Tracker) appendChild(parentOrderID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.parents[parentOrderID]
	if !ok {
		p = &model.ParentOrderState{ParentOrderID: parentOrderID}
		t.parents[parentOrderID] = p
	}
	p.ReplaceCount++
	childID := nextChildID(parentOrderID, p.ReplaceCount)
	p.Children = append(p.Children, childID)
	return childID
}

// RecordCrossed bumps or resets the consecutive crossed-market counter
// and reports whether the order just hit the escalation limit.
func (t *Tracker) RecordCrossed(clientOrderID string, crossed bool) (escalate bool) {
	_ = t.Update(clientOrderID, func(st *model.LiveOrderState) error {
		if !crossed {
			st.CrossedCycles = 0
			return nil
		}
		st.CrossedCycles++
		if st.CrossedCycles == t.cfg.CrossedCycleLimit {
			escalate = true
		}
		return nil
	})
	return escalate
}

// MarkCancel transitions the order to pending-cancel and returns the
// cancel request to dispatch. Further sweeps skip the order. The
// cancel targets the child currently resting at the venue and carries
// its own client id, registered in the chain so the venue's cancel
// ack resolves back to this order.
func (t *Tracker) MarkCancel(clientOrderID string) (*model.OrderRequest, error) {
	var req *model.OrderRequest
	err := t.Update(clientOrderID, func(st *model.LiveOrderState) error {
		if st.Status.IsEnd() || st.Status == model.StatusPendingCancel {
			return fmt.Errorf("%w: %s status=%s", ErrNotEligible, clientOrderID, st.Status)
		}
		st.Status = model.StatusPendingCancel

		cancelID := st.ClientOrderID + "-C"

		r := *st.Request
		r.Action = model.ActionCancel
		r.ClientOrderID = cancelID
		r.OrigOrderID = st.ClientOrderID
		r.TransactTime = time.Now()
		req = &r

		t.mu.Lock()
		t.clients[cancelID] = st.ParentOrderID
		if p, ok := t.parents[st.ParentOrderID]; ok {
			p.Children = append(p.Children, cancelID)
		}
		t.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ApplyReport folds an asynchronous venue status callback into the
// tracked state. This is the only place the in-flight flag clears; a
// venue that never calls back leaves the order frozen out of further
// auto-updates.
func (t *Tracker) ApplyReport(rep *model.VenueReport) error {
	err := t.Update(rep.ClientOrderID, func(st *model.LiveOrderState) error {
		if rep.VenueOrderID != "" {
			st.VenueOrderID = rep.VenueOrderID
		}
		switch rep.Status {
		case model.StatusReplaced:
			st.Status = model.StatusReplaced
			st.RestingPrice = st.TargetPrice
			st.ReplaceInFlight = false
		case model.StatusReplaceRejected:
			st.Status = model.StatusReplaceRejected
			st.ReplaceInFlight = false
		case model.StatusPartiallyFilled:
			st.Status = model.StatusPartiallyFilled
		case model.StatusFilled, model.StatusCanceled, model.StatusRejected, model.StatusExpired:
			st.Status = rep.Status
			st.ReplaceInFlight = false
		case model.StatusPending:
			// initial venue ack
			if st.Status == model.StatusPending {
				return nil
			}
		default:
			zap.S().Warnf("unhandled venue status %s on %s", rep.Status, rep.ClientOrderID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if rep.FilledQty > 0 {
		if st, ok := t.Get(rep.ClientOrderID); ok {
			t.mu.Lock()
			if p, ok := t.parents[st.ParentOrderID]; ok {
				p.RecordFill(rep.FilledQty, rep.FillPrice)
			}
			t.mu.Unlock()
		}
	}
	return nil
}

// Remove drops a finished order and its chain from the live set.
func (t *Tracker) Remove(clientOrderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	parentID, ok := t.clients[clientOrderID]
	if !ok {
		return
	}
	if p, ok := t.parents[parentID]; ok {
		for _, child := range p.Children {
			delete(t.clients, child)
		}
	}
	delete(t.clients, clientOrderID)
	delete(t.orders, parentID)
	delete(t.parents, parentID)
}

func nextChildID(parentOrderID string, seq int) string {
	return fmt.Sprintf("%s-R%d", parentOrderID, seq)
}
