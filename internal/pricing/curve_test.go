package pricing

import (
	"context"
	"testing"
)

func TestCurveMonotonicallyDecreasing(t *testing.T) {
	c := DefaultCurve()
	ctx := context.Background()

	prev := 101.0
	for _, price := range []int64{1, 50, 100, 150, 300, 1_000} {
		prob, err := c.Resolve(ctx, 1, price)
		if err != nil {
			t.Fatalf("resolve price %d: %v", price, err)
		}
		if !prob.Known {
			t.Fatalf("curve must always answer, price %d", price)
		}
		if prob.Percent < 0 || prob.Percent > 100 {
			t.Fatalf("probability out of range at price %d: %f", price, prob.Percent)
		}
		if prob.Percent >= prev {
			t.Fatalf("probability must fall as price rises: price=%d got=%f prev=%f", price, prob.Percent, prev)
		}
		prev = prob.Percent
	}
}

func TestCurveReferencePrice(t *testing.T) {
	c := DefaultCurve()
	prob, err := c.Resolve(context.Background(), 1, c.ReferencePrice)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := c.MaxPercent / 2
	if prob.Percent != want {
		t.Fatalf("reference price sits at half ceiling: got %f want %f", prob.Percent, want)
	}
}

func TestCurveFreeProduct(t *testing.T) {
	c := DefaultCurve()
	prob, err := c.Resolve(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if prob.Percent != c.MaxPercent {
		t.Fatalf("free product hits the ceiling: got %f want %f", prob.Percent, c.MaxPercent)
	}
}
