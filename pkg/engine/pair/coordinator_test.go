package pair

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

func leg(pairID string, side model.OrderSide, qty string) *model.OrderRequest {
	q, _ := decimal.NewFromString(qty)
	return &model.OrderRequest{
		Action:        model.ActionNew,
		ClientOrderID: pairID + "-" + string(side),
		Symbol:        "CEF1",
		Side:          side,
		Quantity:      q,
		PairID:        pairID,
	}
}

func TestPairReleasesOnlyWhenComplete(t *testing.T) {
	c := NewCoordinator()

	if !c.Offer(leg("P1", model.SideBuy, "100")) {
		t.Fatalf("buy leg must be buffered")
	}
	if got := c.Drain(); len(got) != 0 {
		t.Fatalf("single leg must not release, got %d", len(got))
	}
	if c.PendingCount() != 1 {
		t.Errorf("expected 1 pending pair, got %d", c.PendingCount())
	}

	if !c.Offer(leg("P1", model.SideSell, "100")) {
		t.Fatalf("sell leg must be buffered")
	}
	got := c.Drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 released pair, got %d", len(got))
	}
	if !got[0].Complete() {
		t.Errorf("released pair must have both legs")
	}
	if c.PendingCount() != 0 {
		t.Errorf("expected no pending pairs, got %d", c.PendingCount())
	}
}

func TestPairRoundsQuantitiesToWholeShares(t *testing.T) {
	c := NewCoordinator()
	c.Offer(leg("P1", model.SideBuy, "100.6"))
	c.Offer(leg("P1", model.SideSellShort, "99.4"))

	got := c.Drain()
	if len(got) != 1 {
		t.Fatalf("expected released pair, got %d", len(got))
	}
	if !got[0].BuyLeg.Quantity.Equal(decimal.NewFromInt(101)) {
		t.Errorf("buy qty expected 101, got %s", got[0].BuyLeg.Quantity)
	}
	if !got[0].SellLeg.Quantity.Equal(decimal.NewFromInt(99)) {
		t.Errorf("sell qty expected 99, got %s", got[0].SellLeg.Quantity)
	}
}

func TestPairIgnoresNonNewActions(t *testing.T) {
	c := NewCoordinator()

	update := leg("P1", model.SideBuy, "100")
	update.Action = model.ActionUpdate
	if c.Offer(update) {
		t.Errorf("updates must pass through individually")
	}

	unpaired := leg("", model.SideBuy, "100")
	if c.Offer(unpaired) {
		t.Errorf("orders without a pair id must pass through")
	}
}

func TestPairsDrainFIFO(t *testing.T) {
	c := NewCoordinator()
	c.Offer(leg("P1", model.SideBuy, "100"))
	c.Offer(leg("P2", model.SideBuy, "100"))
	c.Offer(leg("P2", model.SideSell, "100"))
	c.Offer(leg("P1", model.SideSell, "100"))

	got := c.Drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(got))
	}
	if got[0].PairID != "P2" || got[1].PairID != "P1" {
		t.Errorf("expected completion order P2,P1 got %s,%s", got[0].PairID, got[1].PairID)
	}
}
