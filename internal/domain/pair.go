// Package domain defines core data structures shared by rate providers and their callers.
package domain

import (
	"fmt"
	"strings"
)

// excludedCurrencies lists codes the upstream provider quotes unreliably.
var excludedCurrencies = map[string]struct{}{
	"TRY": {},
	"PLN": {},
	"THB": {},
	"MXN": {},
}

// Pair currency conversion pair.
type Pair struct {
	// From source currency code.
	From string
	// To target currency code.
	To string
}

// NewPair normalizes both codes and rejects empty ones.
func NewPair(from, to string) (Pair, error) {
	p := Pair{From: NormalizeCurrency(from), To: NormalizeCurrency(to)}
	if p.From == "" || p.To == "" {
		return Pair{}, fmt.Errorf("%w: both currencies are required, got from=%q to=%q", ErrInvalidArgument, from, to)
	}

	return p, nil
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Supported reports an error when either side of the pair is excluded from conversion.
func (p Pair) Supported() error {
	for _, code := range []string{p.From, p.To} {
		if IsExcludedCurrency(code) {
			return fmt.Errorf("%w: conversion using %s is not supported", ErrUnsupportedCurrency, code)
		}
	}

	return nil
}

// NormalizeCurrency trims and upper-cases a currency code.
// It does not check the code against ISO 4217.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsExcludedCurrency reports whether conversions involving code are refused.
func IsExcludedCurrency(code string) bool {
	_, ok := excludedCurrencies[NormalizeCurrency(code)]
	return ok
}

// ExcludedCurrencies returns the refused codes in a stable order.
func ExcludedCurrencies() []string {
	return []string{"MXN", "PLN", "THB", "TRY"}
}
