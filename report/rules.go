/*
rules.go - Status & shortfall rules engine

PURPOSE:
  Pure classification of a resource's week. Given the billing
  classification, the total days logged (billable actual + vacation +
  carry-forward), and the required-days target, compute the numeric
  shortfall ("additional days") and the open/closed status.

RULE TABLE (amounts in day units, requiredDays = weekIndex * 5):

  Class                                | Target         | Shortfall
  -------------------------------------+----------------+--------------------
  Billing                              | requiredDays   | max(0, target-logged)
  Partial                              | requiredDays/2 | max(0, target-logged)
  On Bench, Non Billable, Next,        | n/a            | 0
  Released                             |                |
  TBD / unrecognized                   | requiredDays   | max(0, target-logged)

  Status is evaluated independently and is the authoritative outcome;
  the shortfall figure is informational:
    Billing, Next, TBD: closed iff logged >= requiredDays
    Partial:            closed iff logged >= requiredDays/2
    On Bench, Non Billable, Released: always closed
    unrecognized: open

EXCLUSIONS:
  A post-pass forces Open -> Closed for resources on the exclusion list.
  The stored shortfall is left untouched; only the status flips.

This engine takes plain values and returns plain values. The carry-forward
lookup and persistence happen elsewhere, which keeps every rule testable
without a database.
*/
package report

import "github.com/shopspring/decimal"

var (
	two  = decimal.NewFromInt(2)
	zero = decimal.Zero
)

// Outcome is the rules engine's verdict for one resource week.
type Outcome struct {
	AdditionalDays decimal.Decimal
	Status         Status
}

// Evaluate applies the rule table to one resource's week.
func Evaluate(class BillingClass, totalLogged decimal.Decimal, requiredDays int) Outcome {
	required := decimal.NewFromInt(int64(requiredDays))

	switch class {
	case BillingFull:
		return Outcome{
			AdditionalDays: shortfall(required, totalLogged),
			Status:         closedIf(totalLogged.GreaterThanOrEqual(required)),
		}
	case BillingPartial:
		half := required.Div(two)
		return Outcome{
			AdditionalDays: shortfall(half, totalLogged),
			Status:         closedIf(totalLogged.GreaterThanOrEqual(half)),
		}
	case BillingBench, BillingNone, BillingDone:
		return Outcome{AdditionalDays: zero, Status: StatusClosed}
	case BillingNext:
		return Outcome{
			AdditionalDays: zero,
			Status:         closedIf(totalLogged.GreaterThanOrEqual(required)),
		}
	case BillingTBD:
		return Outcome{
			AdditionalDays: shortfall(required, totalLogged),
			Status:         closedIf(totalLogged.GreaterThanOrEqual(required)),
		}
	default:
		// Unrecognized classification: shortfall as if billing, status open.
		return Outcome{
			AdditionalDays: shortfall(required, totalLogged),
			Status:         StatusOpen,
		}
	}
}

// ApplyExclusion forces an open status closed for excluded resources.
// The shortfall value is deliberately not changed.
func ApplyExclusion(status Status, id ResourceID, exclusions ExclusionSet) Status {
	if status == StatusOpen && exclusions.Contains(id) {
		return StatusClosed
	}
	return status
}

// TotalLogged computes the logged baseline that feeds Evaluate:
// weekly billable actual + vacation days + prior week's carry-forward.
func TotalLogged(billableActual, vacation, carryForward decimal.Decimal) decimal.Decimal {
	return billableActual.Add(vacation).Add(carryForward)
}

func shortfall(target, logged decimal.Decimal) decimal.Decimal {
	s := target.Sub(logged)
	if s.IsNegative() {
		return zero
	}
	return s
}

func closedIf(met bool) Status {
	if met {
		return StatusClosed
	}
	return StatusOpen
}
