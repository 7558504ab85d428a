package repo

import (
	"context"

	"github.com/cefdesk/repricer/pkg/engine/model"
)

type IOrderEvent interface {
	Create(ctx context.Context, record *model.OrderEvent) (*model.OrderEvent, error)
	BulkCreate(ctx context.Context, records []*model.OrderEvent) ([]*model.OrderEvent, error)
	ListByParent(ctx context.Context, parentOrderID string) ([]*model.OrderEvent, error)
}
