package lifecycle

import "errors"

var (
	ErrDuplicateOrder = errors.New("duplicate order")
	ErrOrderNotFound  = errors.New("order not found")
	ErrNotEligible    = errors.New("order not eligible")
)
