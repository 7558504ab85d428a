package pricing

import "errors"

var (
	ErrMissingRefPrice   = errors.New("missing reference price")
	ErrMissingEntryPrice = errors.New("missing entry reference price")
	ErrMissingAnchor     = errors.New("missing anchor price")
	ErrMissingNav        = errors.New("estimated nav unresolved")
	ErrMissingQuote      = errors.New("missing live quote")
)
