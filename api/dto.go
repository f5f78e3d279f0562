/*
dto.go - JSON shapes for the HTTP API

Decimals render as rounded float64 for display; the store keeps the exact
values. Dates are YYYY-MM-DD strings throughout.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/utilization-engine/report"
)

const dateParamLayout = "2006-01-02"

// RecordResponse is one utilization record as the UI consumes it.
type RecordResponse struct {
	ID       int64  `json:"id"`
	Resource string `json:"resource"`
	Date     string `json:"date"`

	Administrative float64 `json:"administrative"`
	Billable       float64 `json:"billable"`
	DeptMgmt       float64 `json:"department_mgmt"`
	Investment     float64 `json:"investment"`
	Presales       float64 `json:"presales"`
	Training       float64 `json:"training"`
	Unassigned     float64 `json:"unassigned"`
	Vacation       float64 `json:"vacation"`
	GrandTotal     float64 `json:"grand_total"`

	BillableHours  float64 `json:"billable_hours"`
	WTDActuals     float64 `json:"wtd_actuals"`
	LastWeek       float64 `json:"last_week"`
	TotalLogged    float64 `json:"total_logged"`
	AdditionalDays float64 `json:"additional_days"`

	Billing string `json:"billing"`
	Status  string `json:"status"`
	Track   string `json:"track"`
	Owner   string `json:"owner"`

	Comments         string `json:"comments"`
	ReviewerComments string `json:"reviewer_comments"`

	IndividualUtilization float64 `json:"individual_utilization"`

	Version int64 `json:"version"`
}

func toRecordResponse(rec report.UtilizationRecord) RecordResponse {
	return RecordResponse{
		ID:                    rec.ID,
		Resource:              rec.Resource.String(),
		Date:                  rec.Date.Format(dateParamLayout),
		Administrative:        round2(rec.Categories.Administrative),
		Billable:              round2(rec.Categories.Billable),
		DeptMgmt:              round2(rec.Categories.DeptMgmt),
		Investment:            round2(rec.Categories.Investment),
		Presales:              round2(rec.Categories.Presales),
		Training:              round2(rec.Categories.Training),
		Unassigned:            round2(rec.Categories.Unassigned),
		Vacation:              round2(rec.Categories.Vacation),
		GrandTotal:            round2(rec.GrandTotal),
		BillableHours:         round2(rec.BillableHours),
		WTDActuals:            round2(rec.WTDActuals),
		LastWeek:              round2(rec.LastWeek),
		TotalLogged:           round2(rec.TotalLogged),
		AdditionalDays:        round2(rec.AdditionalDays),
		Billing:               string(rec.Billing),
		Status:                string(rec.Status),
		Track:                 rec.Track,
		Owner:                 rec.Owner,
		Comments:              rec.Comments,
		ReviewerComments:      rec.ReviewerComments,
		IndividualUtilization: round2(rec.IndividualUtilization),
		Version:               rec.Version,
	}
}

func toRecordResponses(records []report.UtilizationRecord) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	return out
}

// IngestResponse summarizes a completed ingestion run.
type IngestResponse struct {
	Date               string   `json:"date"`
	WeekIndex          int      `json:"week_index"`
	RequiredDays       int      `json:"required_days"`
	Records            int      `json:"records"`
	OpenCases          int      `json:"open_cases"`
	OrgUtilization     float64  `json:"org_utilization"`
	CapableUtilization float64  `json:"capable_utilization"`
	SkippedWorkTypes   []string `json:"skipped_work_types,omitempty"`
}

// SummaryResponse aggregates one report week.
type SummaryResponse struct {
	Date               string  `json:"date"`
	Records            int     `json:"records"`
	OpenCases          int     `json:"open_cases"`
	ClosedCases        int     `json:"closed_cases"`
	TotalAdditional    float64 `json:"total_additional_days"`
	OrgUtilization     float64 `json:"org_utilization"`
	CapableUtilization float64 `json:"capable_utilization"`
	TotalCapacity      float64 `json:"total_capacity"`
}

// AuditResponse is one audit-trail entry.
type AuditResponse struct {
	ID         string `json:"id"`
	ReportDate string `json:"report_date"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Details    string `json:"details"`
	Field      string `json:"field"`
	Previous   string `json:"previous_value"`
	New        string `json:"new_value"`
	Actor      string `json:"actor,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func toAuditResponse(e report.AuditEntry) AuditResponse {
	return AuditResponse{
		ID:         e.ID,
		ReportDate: e.ReportDate.Format(dateParamLayout),
		Resource:   e.Resource.String(),
		Action:     string(e.Action),
		Details:    e.Details,
		Field:      e.Field,
		Previous:   e.Previous,
		New:        e.New,
		Actor:      e.Actor,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
}

// Request bodies for the override endpoints.

type closeCaseRequest struct {
	Comment string `json:"comment"`
	Actor   string `json:"actor"`
}

type billableHoursRequest struct {
	BillableHours float64 `json:"billable_hours"`
	Actor         string  `json:"actor"`
}

type shortfallRequest struct {
	AdditionalDays float64 `json:"additional_days"`
	Actor          string  `json:"actor"`
}

type commentsRequest struct {
	Comments string `json:"comments"`
	Actor    string `json:"actor"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
