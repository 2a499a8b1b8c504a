// Package provider defines the contract for external exchange-rate sources.
package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrBaseRateMissing means the response had no entry for the base currency.
	ErrBaseRateMissing = errors.New("base currency rate missing from response")
	// ErrInvalidRate means the provider returned a zero, negative or NaN rate.
	ErrInvalidRate = errors.New("provider returned a non-positive rate")
)

// Provider returns how many base-currency units one unit of a currency buys.
type Provider interface {
	Name() string
	FetchRate(ctx context.Context, currency string) (float64, error)
}

// FetchError is a failed fetch for one currency. Refreshes log it and move on.
type FetchError struct {
	Currency string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Currency, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
