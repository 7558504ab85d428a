package pair

import (
	"sync"

	"github.com/gammazero/deque"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

// Coordinator buffers correlated buy/sell legs submitted under one
// pair id and releases a pair to the venue only once both legs are
// present. Ready pairs drain in arrival order.
type Coordinator struct {
	mu      sync.Mutex
	pending map[string]*model.PairOrder
	ready   deque.Deque[*model.PairOrder]
}

func NewCoordinator() *Coordinator {
	return &Coordinator{pending: make(map[string]*model.PairOrder)}
}

// Offer buffers one leg. Only New actions participate in pairing;
// updates and cancels on paired legs pass through individually, which
// Offer signals by returning false.
func (c *Coordinator) Offer(req *model.OrderRequest) bool {
	if req.PairID == "" || req.Action != model.ActionNew {
		return false
	}

	// pairs trade whole shares only
	req.Quantity = req.Quantity.Round(0)

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[req.PairID]
	if !ok {
		p = &model.PairOrder{PairID: req.PairID}
		c.pending[req.PairID] = p
	}
	if req.Side.IsBuy() {
		p.BuyLeg = req
	} else {
		p.SellLeg = req
	}

	if p.Complete() {
		delete(c.pending, req.PairID)
		c.ready.PushBack(p)
	}
	return true
}

// Drain pops every pair that became releasable, FIFO.
func (c *Coordinator) Drain() []*model.PairOrder {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*model.PairOrder, 0, c.ready.Len())
	for c.ready.Len() > 0 {
		out = append(out, c.ready.PopFront())
	}
	return out
}

// PendingCount reports how many pairs still wait for their second leg.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
