package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// markupOutcome is the markup stage result. perLine and excluded are parallel to the lines passed in.
type markupOutcome struct {
	breakdown MarkupBreakdown
	perLine   []decimal.Decimal
	excluded  []bool
}

// applyLegMarkup marks up the post-discount cost of every line the resort's configuration does not exclude.
// With a quote-level override every line carries zero markup.
func applyLegMarkup(ctx *CalculationContext, resort refdata.Resort, lines []LineItem, override bool, b *audit.Builder) (markupOutcome, *CalculationError) {
	out := markupOutcome{
		breakdown: MarkupBreakdown{MarkupBase: decimal.Zero, ExcludedCost: decimal.Zero, Amount: decimal.Zero},
		perLine:   make([]decimal.Decimal, len(lines)),
		excluded:  make([]bool, len(lines)),
	}
	for i := range out.perLine {
		out.perLine[i] = decimal.Zero
	}

	config, configured := ctx.Port().MarkupConfig(resort.ID)
	if configured {
		if err := validateMarkup(config); err != nil {
			return markupOutcome{}, err
		}
		out.breakdown.ConfigID = config.ID
	}
	var eligible []int
	for i, line := range lines {
		if configured {
			out.excluded[i] = config.Excludes(line.Category)
		} else {
			out.excluded[i] = line.Category == refdata.CategoryPassThroughTax
		}
		if out.excluded[i] {
			out.breakdown.ExcludedCost = out.breakdown.ExcludedCost.Add(line.netCost())
			continue
		}
		eligible = append(eligible, i)
		out.breakdown.MarkupBase = out.breakdown.MarkupBase.Add(line.netCost())
	}

	switch {
	case override:
		out.breakdown.Source = MarkupFromQuoteOverride
	case !configured:
		out.breakdown.Source = MarkupNotConfigured
	case config.Type == refdata.MarkupPercentage:
		pct := money.NewPercentage(config.Value)
		out.breakdown.Source = MarkupFromResortPercentage
		out.breakdown.Percentage = &pct
		for _, i := range eligible {
			out.perLine[i] = pct.Of(lines[i].netCost())
			out.breakdown.Amount = out.breakdown.Amount.Add(out.perLine[i])
		}
	case config.Type == refdata.MarkupFixed:
		currency := config.Currency
		if currency == "" {
			currency = resort.Currency
		}
		fixed, err := ctx.convert(config.Value, currency)
		if err != nil {
			return markupOutcome{}, err
		}
		out.breakdown.Source = MarkupFromResortFixed
		out.breakdown.FixedAmount = &fixed
		if len(eligible) > 0 {
			weights := make([]decimal.Decimal, len(eligible))
			for j, i := range eligible {
				weights[j] = lines[i].netCost()
			}
			for j, share := range allocateByWeight(fixed, weights) {
				out.perLine[eligible[j]] = share
			}
			out.breakdown.Amount = fixed
		}
	}

	amount := out.breakdown.Amount
	b.Record(audit.Entry{
		Type:        audit.StepMarkupApplied,
		Description: fmt.Sprintf("markup for %s (%s)", resort.Name, out.breakdown.Source),
		Inputs: map[string]any{
			"configId":     string(out.breakdown.ConfigID),
			"markupBase":   out.breakdown.MarkupBase.String(),
			"excludedCost": out.breakdown.ExcludedCost.String(),
		},
		Outputs: map[string]any{"lines": len(eligible)},
		Amount:  &amount,
	})
	return out, nil
}

func validateMarkup(config refdata.MarkupConfig) *CalculationError {
	switch {
	case !config.Type.Valid():
		return newError(CodeInvalidMarkupConfig, "markup config %s has no valid type", config.ID)
	case config.Value.IsNegative():
		return newError(CodeInvalidMarkupConfig, "markup config %s has a negative value", config.ID)
	}
	return nil
}

// transferMarkup is the markup of an inter-resort transfer, taken from the destination resort. A fixed-type
// destination markup contributes nothing to transfers.
type transferMarkup struct {
	configID   refdata.MarkupConfigID
	kind       refdata.MarkupType
	percentage *money.Percentage
	amount     decimal.Decimal
}

func markupTransfer(ctx *CalculationContext, destination refdata.ResortID, cost decimal.Decimal, override bool) (transferMarkup, *CalculationError) {
	out := transferMarkup{amount: decimal.Zero}
	config, ok := ctx.Port().MarkupConfig(destination)
	if !ok {
		return out, nil
	}
	if err := validateMarkup(config); err != nil {
		return transferMarkup{}, err
	}
	out.configID = config.ID
	out.kind = config.Type
	if config.Type == refdata.MarkupPercentage {
		pct := money.NewPercentage(config.Value)
		out.percentage = &pct
		if !override {
			out.amount = pct.Of(cost)
		}
	}
	return out, nil
}
