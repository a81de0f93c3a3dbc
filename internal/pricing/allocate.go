package pricing

import "github.com/shopspring/decimal"

// allocateByWeight splits total across weights in proportion. The last positive weight takes the remainder so
// the parts always sum to total exactly. When no weight is positive the total is split evenly.
func allocateByWeight(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(weights))
	for i := range out {
		out[i] = decimal.Zero
	}
	if len(weights) == 0 || total.IsZero() {
		return out
	}

	sum := decimal.Zero
	last := -1
	for i, w := range weights {
		if w.IsPositive() {
			sum = sum.Add(w)
			last = i
		}
	}
	if last < 0 {
		share := total.Div(decimal.NewFromInt(int64(len(weights))))
		for i := range out {
			out[i] = share
		}
		out[len(out)-1] = total.Sub(share.Mul(decimal.NewFromInt(int64(len(weights) - 1))))
		return out
	}

	allocated := decimal.Zero
	for i, w := range weights {
		if !w.IsPositive() || i == last {
			continue
		}
		out[i] = total.Mul(w).Div(sum)
		allocated = allocated.Add(out[i])
	}
	out[last] = total.Sub(allocated)
	return out
}
