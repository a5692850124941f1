package query

import "errors"

var (
	ErrNegativePrice = errors.New("price range minimum must not be negative")
	ErrInvertedRange = errors.New("price range minimum must not exceed maximum")
)
