package pricing

import (
	"context"
	"math"

	"venturesim/internal/game"
)

// Curve is a deterministic stand-in for the external pricing service. Buy
// probability follows a logistic decay around a reference price: at the
// reference price the curve sits at half its ceiling, cheap prices approach
// the ceiling, expensive ones approach zero.
type Curve struct {
	ReferencePrice int64
	MaxPercent     float64
	Steepness      float64
}

// DefaultCurve matches the tuning the simulation ships with.
func DefaultCurve() *Curve {
	return &Curve{
		ReferencePrice: 100,
		MaxPercent:     80,
		Steepness:      0.03,
	}
}

func (c *Curve) Resolve(_ context.Context, _ int64, price int64) (game.Probability, error) {
	if price <= 0 {
		return game.KnownProbability(c.MaxPercent), nil
	}
	x := float64(price-c.ReferencePrice) * c.Steepness
	pct := c.MaxPercent / (1 + math.Exp(x))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return game.KnownProbability(pct), nil
}
