// Package audit accumulates the ordered decision trail of a single quote calculation.
package audit

import (
	"time"

	"github.com/shopspring/decimal"
)

// StepType classifies an audit step.
type StepType string

const (
	StepRatesLocked        StepType = "RATES_LOCKED"
	StepEntityResolved     StepType = "ENTITY_RESOLVED"
	StepNightlyRate        StepType = "NIGHTLY_RATE"
	StepOccupancyValidated StepType = "OCCUPANCY_VALIDATED"
	StepExtraPersonCharge  StepType = "EXTRA_PERSON_CHARGE"
	StepComponentPriced    StepType = "COMPONENT_PRICED"
	StepFestiveSupplement  StepType = "FESTIVE_SUPPLEMENT"
	StepSubtotal           StepType = "SUBTOTAL"
	StepDiscountEvaluated  StepType = "DISCOUNT_EVALUATED"
	StepDiscountApplied    StepType = "DISCOUNT_APPLIED"
	StepTaxApplied         StepType = "TAX_APPLIED"
	StepMarkupApplied      StepType = "MARKUP_APPLIED"
	StepLegTotals          StepType = "LEG_TOTALS"
	StepTransferPriced     StepType = "TRANSFER_PRICED"
	StepQuoteMarkup        StepType = "QUOTE_MARKUP"
	StepQuoteTotals        StepType = "QUOTE_TOTALS"
	StepVerification       StepType = "VERIFICATION"
	StepWarning            StepType = "WARNING"
	StepFatal              StepType = "FATAL"
)

// Severity grades a warning.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBlocking Severity = "blocking"
)

// Step is one immutable record of a calculation action.
type Step struct {
	Number      int                 `json:"number"`
	Type        StepType            `json:"type"`
	At          time.Time           `json:"at"`
	LegIndex    *int                `json:"legIndex,omitempty"`
	Description string              `json:"description"`
	Inputs      map[string]any      `json:"inputs,omitempty"`
	Outputs     map[string]any      `json:"outputs,omitempty"`
	Amount      decimal.NullDecimal `json:"amount"`
}

// Entry is the caller-supplied part of a step; numbering, time and leg scope are filled by the Builder.
type Entry struct {
	Type        StepType
	Description string
	Inputs      map[string]any
	Outputs     map[string]any
	Amount      *decimal.Decimal
}

// Warning is a non-fatal (or, in failure results, blocking) condition surfaced to the caller.
type Warning struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	LegIndex   *int     `json:"legIndex,omitempty"`
	Resolution string   `json:"resolution,omitempty"`
}

// Builder collects steps and warnings for one calculation stage. It is owned by a single call and is not
// safe for concurrent use; child builders are merged into their parent at composition boundaries.
type Builder struct {
	now      func() time.Time
	legIndex *int
	steps    []Step
	warnings []Warning
}

// NewBuilder returns an empty builder. A nil clock defaults to time.Now.
func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: func() time.Time { return now().UTC() }}
}

// ForLeg returns a fresh child builder whose steps and warnings are scoped to a leg.
func (b *Builder) ForLeg(index int) *Builder {
	idx := index
	return &Builder{now: b.now, legIndex: &idx}
}

// Record appends a step and returns it.
func (b *Builder) Record(e Entry) Step {
	return b.record(e, b.legIndex)
}

func (b *Builder) record(e Entry, legIndex *int) Step {
	step := Step{
		Number:      len(b.steps) + 1,
		Type:        e.Type,
		At:          b.now(),
		LegIndex:    legIndex,
		Description: e.Description,
		Inputs:      cloneMap(e.Inputs),
		Outputs:     cloneMap(e.Outputs),
	}
	if e.Amount != nil {
		step.Amount = decimal.NullDecimal{Decimal: *e.Amount, Valid: true}
	}
	b.steps = append(b.steps, step)
	return step
}

// Warn records a warning together with its matching audit step. Both carry the warning's leg scope, which
// defaults to the builder's.
func (b *Builder) Warn(w Warning) {
	if w.Severity == "" {
		w.Severity = SeverityWarning
	}
	if w.LegIndex == nil {
		w.LegIndex = b.legIndex
	}
	b.warnings = append(b.warnings, w)
	stepType := StepWarning
	if w.Severity == SeverityBlocking {
		stepType = StepFatal
	}
	b.record(Entry{
		Type:        stepType,
		Description: w.Message,
		Outputs:     map[string]any{"code": w.Code, "severity": string(w.Severity)},
	}, w.LegIndex)
}

// Merge appends the child's steps (renumbered to continue this builder's sequence) and warnings.
func (b *Builder) Merge(child *Builder) {
	if child == nil {
		return
	}
	for _, step := range child.steps {
		step.Number = len(b.steps) + 1
		b.steps = append(b.steps, step)
	}
	b.warnings = append(b.warnings, child.warnings...)
}

// Steps returns a copy of the recorded steps in order.
func (b *Builder) Steps() []Step {
	out := make([]Step, len(b.steps))
	copy(out, b.steps)
	return out
}

// Warnings returns a copy of the recorded warnings in order.
func (b *Builder) Warnings() []Warning {
	out := make([]Warning, len(b.warnings))
	copy(out, b.warnings)
	return out
}

// Len returns the number of recorded steps.
func (b *Builder) Len() int { return len(b.steps) }

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
