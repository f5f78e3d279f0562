/*
Package report contains the core utilization-report domain.

PURPOSE:
  This package holds the types and algorithms that turn extracted workbook
  rows into per-resource utilization records: week derivation from the
  source file name, pivoting month-to-date hours into day-equivalent
  category totals, folding in the prior week's unresolved shortfall, and
  the billing-status rules that decide whether a resource's week is open
  or closed.

KEY CONCEPTS IN THIS FILE (types.go):
  - ResourceID: normalized resource identifier (email, lower-cased)
  - BillingClass: expected billability for the week (Billing, Partial, ...)
  - Status: open/closed outcome of the rules engine
  - Category: the fixed work-type taxonomy hours are pivoted into
  - UtilizationRecord: one persisted row per (resource, report week)

DESIGN PRINCIPLES:
  1. Precision: all day/hour arithmetic uses decimal.Decimal
  2. Explicit defaults: records are fully populated at the ingestion
     boundary; nothing downstream does dynamic field lookup
  3. Purity: status is a function of its inputs, never hand-set outside
     the audited override paths

SEE ALSO:
  - rules.go: the status & shortfall rule table
  - builder.go: pivot and merge of extracted rows
  - week.go: filename date parsing and week derivation
*/
package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RESOURCE IDENTIFIER
// =============================================================================

// ResourceID identifies a consultant. All lookups are case-insensitive, so
// IDs are normalized to lower case at the ingestion boundary.
type ResourceID string

func NewResourceID(raw string) ResourceID {
	return ResourceID(strings.ToLower(strings.TrimSpace(raw)))
}

func (r ResourceID) String() string { return string(r) }
func (r ResourceID) IsEmpty() bool  { return r == "" }

// =============================================================================
// BILLING CLASSIFICATION
// =============================================================================

type BillingClass string

const (
	BillingFull    BillingClass = "Billing"
	BillingPartial BillingClass = "Partial"
	BillingBench   BillingClass = "On Bench"
	BillingNone    BillingClass = "Non Billable"
	BillingNext    BillingClass = "Next"
	BillingDone    BillingClass = "Released"
	BillingTBD     BillingClass = "TBD"
)

// ParseBillingClass normalizes a raw classification from the reference
// table. Blank, "None", and unknown spellings of the known classes all
// collapse to TBD so the rules engine treats them like full billing.
func ParseBillingClass(raw string) BillingClass {
	switch strings.TrimSpace(raw) {
	case string(BillingFull):
		return BillingFull
	case string(BillingPartial):
		return BillingPartial
	case string(BillingBench):
		return BillingBench
	case string(BillingNone):
		return BillingNone
	case string(BillingNext):
		return BillingNext
	case string(BillingDone):
		return BillingDone
	case "", "None":
		return BillingTBD
	default:
		return BillingTBD
	}
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "close"
)

// =============================================================================
// WORK-TYPE CATEGORIES
// =============================================================================

// Category is the fixed work-type taxonomy. The month-to-date sheet carries
// free-text work-type descriptions; they map onto these eight buckets.
type Category string

const (
	CategoryAdministrative Category = "Administrative"
	CategoryBillable       Category = "Billable"
	CategoryDeptMgmt       Category = "Department Mgmt"
	CategoryInvestment     Category = "Investment"
	CategoryPresales       Category = "Presales"
	CategoryTraining       Category = "Training"
	CategoryUnassigned     Category = "Unassigned"
	CategoryVacation       Category = "Vacation"
)

// Categories lists all buckets in the fixed report column ordering.
var Categories = []Category{
	CategoryAdministrative,
	CategoryBillable,
	CategoryDeptMgmt,
	CategoryInvestment,
	CategoryPresales,
	CategoryTraining,
	CategoryUnassigned,
	CategoryVacation,
}

// CategoryFromWorkType maps a work-type description from the workbook onto
// a Category. Matching is case-insensitive and tolerant of the spelling
// variants seen in the source ("Dept Mgmt" vs "Department Mgmt").
// Returns false for descriptions outside the taxonomy.
func CategoryFromWorkType(description string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(description)) {
	case "administrative", "admin":
		return CategoryAdministrative, true
	case "billable", "billable hours":
		return CategoryBillable, true
	case "department mgmt", "dept mgmt", "department management":
		return CategoryDeptMgmt, true
	case "investment":
		return CategoryInvestment, true
	case "presales", "pre-sales":
		return CategoryPresales, true
	case "training":
		return CategoryTraining, true
	case "unassigned":
		return CategoryUnassigned, true
	case "vacation":
		return CategoryVacation, true
	default:
		return "", false
	}
}

// CategoryTotals holds day-equivalent totals per work-type bucket.
// Zero values are meaningful: a resource with no vacation rows has
// Vacation == 0, not a missing field.
type CategoryTotals struct {
	Administrative decimal.Decimal
	Billable       decimal.Decimal
	DeptMgmt       decimal.Decimal
	Investment     decimal.Decimal
	Presales       decimal.Decimal
	Training       decimal.Decimal
	Unassigned     decimal.Decimal
	Vacation       decimal.Decimal
}

// Add accumulates days into the given bucket.
func (c *CategoryTotals) Add(cat Category, days decimal.Decimal) {
	switch cat {
	case CategoryAdministrative:
		c.Administrative = c.Administrative.Add(days)
	case CategoryBillable:
		c.Billable = c.Billable.Add(days)
	case CategoryDeptMgmt:
		c.DeptMgmt = c.DeptMgmt.Add(days)
	case CategoryInvestment:
		c.Investment = c.Investment.Add(days)
	case CategoryPresales:
		c.Presales = c.Presales.Add(days)
	case CategoryTraining:
		c.Training = c.Training.Add(days)
	case CategoryUnassigned:
		c.Unassigned = c.Unassigned.Add(days)
	case CategoryVacation:
		c.Vacation = c.Vacation.Add(days)
	}
}

// Get returns the total for a bucket.
func (c CategoryTotals) Get(cat Category) decimal.Decimal {
	switch cat {
	case CategoryAdministrative:
		return c.Administrative
	case CategoryBillable:
		return c.Billable
	case CategoryDeptMgmt:
		return c.DeptMgmt
	case CategoryInvestment:
		return c.Investment
	case CategoryPresales:
		return c.Presales
	case CategoryTraining:
		return c.Training
	case CategoryUnassigned:
		return c.Unassigned
	case CategoryVacation:
		return c.Vacation
	default:
		return decimal.Zero
	}
}

// GrandTotal sums all category buckets.
func (c CategoryTotals) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, cat := range Categories {
		total = total.Add(c.Get(cat))
	}
	return total
}

// =============================================================================
// UTILIZATION RECORD - One persisted row per (resource, report week)
// =============================================================================

type UtilizationRecord struct {
	ID       int64
	Resource ResourceID
	Date     time.Time // report week date, day granularity

	Categories CategoryTotals
	GrandTotal decimal.Decimal

	// Weekly actuals from the WTD sheet. BillableHours is kept in raw
	// hours; WTDActuals is the day-equivalent (hours / 8).
	BillableHours decimal.Decimal
	WTDActuals    decimal.Decimal
	Capacity      decimal.Decimal

	// Carry-forward and rule outputs.
	LastWeek       decimal.Decimal // prior week's unresolved shortfall
	TotalLogged    decimal.Decimal // billable + vacation + last week
	AdditionalDays decimal.Decimal // current-week computed shortfall

	Billing BillingClass
	Status  Status
	Track   string
	Owner   string

	Comments         string
	ReviewerComments string

	// Run-level utilization metrics, stamped on every record of a run.
	OrgUtilization        decimal.Decimal
	CapableUtilization    decimal.Decimal
	IndividualUtilization decimal.Decimal
	TotalCapacity         decimal.Decimal

	// Version guards manual read-modify-write edits (optimistic locking).
	Version int64
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// BillingInfo is one entry of the resource→billing reference table.
type BillingInfo struct {
	Billing BillingClass
	Track   string
	Owner   string
}

// BillingMap maps resources to their billing classification. Left-join
// semantics: resources absent from the map classify as TBD.
type BillingMap map[ResourceID]BillingInfo

// Lookup returns the billing info for a resource, defaulting to TBD.
func (m BillingMap) Lookup(id ResourceID) BillingInfo {
	if info, ok := m[id]; ok {
		return info
	}
	return BillingInfo{Billing: BillingTBD}
}

// ExclusionSet holds resources whose open status is always forced closed.
type ExclusionSet map[ResourceID]struct{}

func NewExclusionSet(ids ...ResourceID) ExclusionSet {
	set := make(ExclusionSet, len(ids))
	for _, id := range ids {
		if !id.IsEmpty() {
			set[id] = struct{}{}
		}
	}
	return set
}

func (s ExclusionSet) Contains(id ResourceID) bool {
	_, ok := s[id]
	return ok
}
