package intake

import "errors"

var (
	ErrBadOptionSymbol = errors.New("option symbol translation failed")
	ErrMissingSymbol   = errors.New("missing symbol")
	ErrMissingQuantity = errors.New("missing or invalid quantity")
	ErrMissingPrice    = errors.New("missing price")
	ErrBadSide         = errors.New("unknown side")
)
