package staging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

const (
	keyPrefix = "repricer:staged:"
	indexKey  = "repricer:staged"
)

var ErrNotStaged = errors.New("order not staged")

// StagedOrder is a priced order parked for manual batch release, e.g.
// opening-auction flow.
type StagedOrder struct {
	Request         *model.OrderRequest `json:"request"`
	WithinThreshold bool                `json:"within_threshold"`
	StagedAt        time.Time           `json:"staged_at"`
}

// Store keeps staged orders in redis so a restart does not lose the
// pending release queue.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Stage(ctx context.Context, so *StagedOrder) error {
	if so.StagedAt.IsZero() {
		so.StagedAt = time.Now()
	}
	b, err := json.Marshal(so)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, keyPrefix+so.Request.ClientOrderID, b, 0)
	pipe.SAdd(ctx, indexKey, so.Request.ClientOrderID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Get(ctx context.Context, clientOrderID string) (*StagedOrder, error) {
	b, err := s.rdb.Get(ctx, keyPrefix+clientOrderID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotStaged
	}
	if err != nil {
		return nil, err
	}
	var so StagedOrder
	if err := json.Unmarshal(b, &so); err != nil {
		return nil, err
	}
	return &so, nil
}

func (s *Store) List(ctx context.Context) ([]*StagedOrder, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*StagedOrder, 0, len(ids))
	for _, id := range ids {
		so, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotStaged) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, so)
	}
	return out, nil
}

// Remove drops released (or abandoned) staged orders.
func (s *Store) Remove(ctx context.Context, clientOrderIDs ...string) error {
	if len(clientOrderIDs) == 0 {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	for _, id := range clientOrderIDs {
		pipe.Del(ctx, keyPrefix+id)
		pipe.SRem(ctx, indexKey, id)
	}
	_, err := pipe.Exec(ctx)
	return err
}
