// Package allocation implements exact integer budget distribution. Every
// strategy returns shares that sum to the target amount to the centavo, with
// no floating-point drift in the stored values.
package allocation

import (
	"math"

	"github.com/obcms/workledger/internal/domain"
)

// weightTolerance is the accepted deviation of a weight vector's sum from 1.0.
const weightTolerance = 1e-4

// Equal splits total into n shares differing by at most one centavo. The
// remainder after integer division goes to the first share.
func Equal(total domain.Money, n int) ([]domain.Money, error) {
	if n <= 0 {
		return nil, &domain.ValidationError{Field: "children", Reason: "cannot distribute across zero children"}
	}
	if total < 0 {
		return nil, domain.ErrInvalidAmount(total)
	}
	base := total / domain.Money(n)
	remainder := total % domain.Money(n)

	shares := make([]domain.Money, n)
	for i := range shares {
		shares[i] = base
	}
	shares[0] += remainder
	return shares, nil
}

// Weighted splits total proportionally to weights, which must be non-negative
// and sum to 1.0 within weightTolerance. Proportions are taken against the
// actual weight sum, so a vector that passes the tolerance slightly above 1.0
// cannot push the floored shares past the total. Each share is the floor of
// its proportion; the last share absorbs the accumulated rounding remainder.
func Weighted(total domain.Money, weights []float64) ([]domain.Money, error) {
	if len(weights) == 0 {
		return nil, &domain.ValidationError{Field: "weights", Reason: "cannot distribute across zero children"}
	}
	if total < 0 {
		return nil, domain.ErrInvalidAmount(total)
	}

	var sum float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, &domain.ValidationError{Field: "weights", Reason: "weights must be finite and non-negative"}
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return nil, &domain.ValidationError{Field: "weights", Reason: "weights must sum to 1.0"}
	}

	shares := make([]domain.Money, len(weights))
	var assigned domain.Money
	for i, w := range weights[:len(weights)-1] {
		share := domain.Money(math.Floor(float64(total) * (w / sum)))
		shares[i] = share
		assigned += share
	}
	last := total - assigned
	if last < 0 {
		return nil, &domain.ValidationError{Field: "weights", Reason: "weights assign more than the total amount"}
	}
	shares[len(shares)-1] = last
	return shares, nil
}

// Manual validates caller-supplied shares against the target: every share
// non-negative and the sum exactly equal to total.
func Manual(total domain.Money, shares []domain.Money) error {
	if len(shares) == 0 {
		return &domain.ValidationError{Field: "shares", Reason: "cannot distribute across zero children"}
	}
	var sum domain.Money
	for _, s := range shares {
		if s < 0 {
			return domain.ErrInvalidAmount(s)
		}
		sum += s
	}
	if sum != total {
		return &domain.AllocationMismatchError{Target: total, Actual: sum}
	}
	return nil
}
