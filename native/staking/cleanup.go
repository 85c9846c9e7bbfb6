package staking

import "github.com/gagliardetto/solana-go"

// TargetRegistry reports which (product, publisher) pairs are still eligible
// for stake. It is owned by whatever tracks the publisher set.
type TargetRegistry interface {
	IsActiveTarget(product, publisher solana.PublicKey) bool
}

// InactiveTargets selects positions whose target left the active set.
func InactiveTargets(registry TargetRegistry) CleanupPredicate {
	return func(_ PositionIndex, p Position) bool {
		if registry == nil {
			return false
		}
		return !registry.IsActiveTarget(p.Product, p.Publisher)
	}
}

// ForProduct selects every position staked on product.
func ForProduct(product solana.PublicKey) CleanupPredicate {
	return func(_ PositionIndex, p Position) bool {
		return p.Product.Equals(product)
	}
}

// ForTarget selects every position staked on the exact (product, publisher)
// pair.
func ForTarget(product, publisher solana.PublicKey) CleanupPredicate {
	return func(_ PositionIndex, p Position) bool {
		return p.Product.Equals(product) && p.Publisher.Equals(publisher)
	}
}

// StaticTargets is an in-memory TargetRegistry.
type StaticTargets map[[2]solana.PublicKey]struct{}

// NewStaticTargets builds a registry containing the given pairs.
func NewStaticTargets(pairs ...[2]solana.PublicKey) StaticTargets {
	out := make(StaticTargets, len(pairs))
	for _, pair := range pairs {
		out[pair] = struct{}{}
	}
	return out
}

// IsActiveTarget implements TargetRegistry.
func (s StaticTargets) IsActiveTarget(product, publisher solana.PublicKey) bool {
	_, ok := s[[2]solana.PublicKey{product, publisher}]
	return ok
}
