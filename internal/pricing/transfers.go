package pricing

import (
	"fmt"

	"github.com/noah-isme/resort-quote/internal/audit"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// priceInterResortTransfers prices transfer i as the hop from leg i to leg i+1 for the destination leg's party.
// Markup comes from the destination resort.
func priceInterResortTransfers(ctx *CalculationContext, legs []pricedLeg, requests []InterResortTransferRequest, override bool, b *audit.Builder) ([]InterResortTransferResult, *CalculationError) {
	out := make([]InterResortTransferResult, 0, len(requests))
	for i, req := range requests {
		if i >= len(legs)-1 {
			b.Warn(audit.Warning{
				Code:     WarnTransferIgnored,
				Message:  fmt.Sprintf("transfer %d has no following leg and was ignored", i),
				Severity: audit.SeverityInfo,
			})
			continue
		}
		from, to := legs[i], legs[i+1]

		transfer, ok := ctx.Port().TransferType(req.TransferTypeID)
		if !ok {
			b.Warn(audit.Warning{
				Code:    WarnComponentNotFound,
				Message: fmt.Sprintf("inter-resort transfer type %s does not exist", req.TransferTypeID),
			})
			continue
		}
		component, priced, err := priceComponent(ctx, componentSpec{
			category: refdata.CategoryTransfer,
			id:       string(transfer.ID),
			name:     transfer.Name,
			mode:     transfer.Mode,
			rates:    transfer.Rates,
			nights:   to.result.Nights,
		}, to.guests, b)
		if err != nil {
			return nil, err
		}
		if !priced {
			continue
		}

		markup, err := markupTransfer(ctx, to.resort.ID, component.Amount, override)
		if err != nil {
			return nil, err
		}
		rounded := []ComponentResult{component}
		roundComponents(rounded)
		result := InterResortTransferResult{
			FromLeg:          from.result.Index,
			ToLeg:            to.result.Index,
			TransferTypeID:   transfer.ID,
			Name:             transfer.Name,
			Component:        rounded[0],
			MarkupConfigID:   markup.configID,
			MarkupType:       markup.kind,
			MarkupPercentage: markup.percentage,
			Pricing:          newBreakdown(component.Amount, markup.amount).rounded(),
		}
		out = append(out, result)

		sell := result.Pricing.Sell
		b.Record(audit.Entry{
			Type:        audit.StepTransferPriced,
			Description: fmt.Sprintf("%s from %s to %s", transfer.Name, from.resort.Name, to.resort.Name),
			Inputs: map[string]any{
				"transferTypeId": string(transfer.ID),
				"fromLeg":        result.FromLeg,
				"toLeg":          result.ToLeg,
				"markupConfigId": string(markup.configID),
				"markupType":     markup.kind.String(),
			},
			Outputs: map[string]any{
				"cost":   result.Pricing.Cost.String(),
				"markup": result.Pricing.Markup.String(),
			},
			Amount: &sell,
		})
	}
	return out, nil
}
