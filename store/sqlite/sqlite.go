/*
Package sqlite provides the SQLite-backed report store.

PURPOSE:
  Persists one utilization record per (resource, report week) plus the
  reference tables the pipeline reads wholesale at run start and the audit
  trail the manual-override paths append to. In production the same
  patterns apply to MySQL/PostgreSQL - only minor dialect differences.

KEY TABLES:
  utilization_reports:  one row per (resource, report_date), versioned
  utilization_history:  audit trail of manual overrides
  resource_billing:     resource -> (billing class, track, owner)
  exclusion_list:       resources always forced closed when open

WRITE SEMANTICS:
  - ReplaceWeek deletes the week's existing rows and inserts the new batch
    inside ONE SQL transaction. A failed delete aborts the insert; partial
    weeks are never visible.
  - UpdateRecord uses optimistic concurrency: the UPDATE is guarded by the
    version read earlier, and a stale version surfaces
    report.ErrConcurrentModification instead of silently clobbering a
    concurrent edit's audit trail.

PRECISION:
  Day/hour quantities are stored as decimal strings, never floats.

WAL MODE:
  Opened with WAL for better reader/writer concurrency and crash recovery.

USAGE:
  store, err := sqlite.New("./data/utilization.db")
  if err != nil { ... }
  defer store.Close()

SEE ALSO:
  - report/carryforward.go: the PriorWeekLookup port this store implements
  - review/: manual-override service built on this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/utilization-engine/report"
)

const dateLayout = "2006-01-02"

// Store implements the report store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS utilization_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		resource TEXT NOT NULL,
		report_date TEXT NOT NULL,
		administrative TEXT NOT NULL DEFAULT '0',
		billable TEXT NOT NULL DEFAULT '0',
		dept_mgmt TEXT NOT NULL DEFAULT '0',
		investment TEXT NOT NULL DEFAULT '0',
		presales TEXT NOT NULL DEFAULT '0',
		training TEXT NOT NULL DEFAULT '0',
		unassigned TEXT NOT NULL DEFAULT '0',
		vacation TEXT NOT NULL DEFAULT '0',
		grand_total TEXT NOT NULL DEFAULT '0',
		billable_hours TEXT NOT NULL DEFAULT '0',
		wtd_actuals TEXT NOT NULL DEFAULT '0',
		capacity TEXT NOT NULL DEFAULT '0',
		last_week TEXT NOT NULL DEFAULT '0',
		total_logged TEXT NOT NULL DEFAULT '0',
		additional_days TEXT NOT NULL DEFAULT '0',
		billing TEXT NOT NULL DEFAULT 'TBD',
		status TEXT NOT NULL DEFAULT 'open',
		track TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL DEFAULT '',
		comments TEXT NOT NULL DEFAULT '',
		reviewer_comments TEXT NOT NULL DEFAULT '',
		org_utilization TEXT NOT NULL DEFAULT '0',
		capable_utilization TEXT NOT NULL DEFAULT '0',
		individual_utilization TEXT NOT NULL DEFAULT '0',
		total_capacity TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		UNIQUE(resource, report_date)
	);

	-- Hot path: prior-week carry-forward lookup.
	CREATE INDEX IF NOT EXISTS idx_reports_resource_date
		ON utilization_reports(resource, report_date);
	CREATE INDEX IF NOT EXISTS idx_reports_date
		ON utilization_reports(report_date);
	CREATE INDEX IF NOT EXISTS idx_reports_status
		ON utilization_reports(report_date, status);

	CREATE TABLE IF NOT EXISTS utilization_history (
		id TEXT PRIMARY KEY,
		report_date TEXT NOT NULL,
		resource TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		field_name TEXT NOT NULL DEFAULT '',
		previous_value TEXT NOT NULL DEFAULT '',
		new_value TEXT NOT NULL DEFAULT '',
		actor TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_resource
		ON utilization_history(resource);
	CREATE INDEX IF NOT EXISTS idx_history_report_date
		ON utilization_history(report_date);

	CREATE TABLE IF NOT EXISTS resource_billing (
		resource TEXT PRIMARY KEY,
		billing TEXT NOT NULL DEFAULT 'TBD',
		track TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS exclusion_list (
		resource TEXT PRIMARY KEY
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// INGESTION WRITES - ReplaceWeek (delete-then-recreate, one transaction)
// =============================================================================

// ReplaceWeek replaces the full record set of one report week. Delete and
// insert run as one logical unit: a delete failure aborts the insert, and
// nothing is visible to readers until the batch commits.
func (s *Store) ReplaceWeek(ctx context.Context, date time.Time, records []report.UtilizationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	day := date.Format(dateLayout)
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM utilization_reports WHERE report_date = ?", day); err != nil {
		return fmt.Errorf("failed to delete existing records for %s: %w", day, err)
	}

	for i := range records {
		if err := insertRecord(ctx, tx, &records[i]); err != nil {
			return fmt.Errorf("failed to insert record for %s: %w", records[i].Resource, err)
		}
	}

	return tx.Commit()
}

func insertRecord(ctx context.Context, tx *sql.Tx, rec *report.UtilizationRecord) error {
	query := `
		INSERT INTO utilization_reports
		(resource, report_date,
		 administrative, billable, dept_mgmt, investment, presales, training,
		 unassigned, vacation, grand_total,
		 billable_hours, wtd_actuals, capacity,
		 last_week, total_logged, additional_days,
		 billing, status, track, owner, comments, reviewer_comments,
		 org_utilization, capable_utilization, individual_utilization, total_capacity,
		 version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := tx.ExecContext(ctx, query,
		rec.Resource.String(),
		rec.Date.Format(dateLayout),
		rec.Categories.Administrative.String(),
		rec.Categories.Billable.String(),
		rec.Categories.DeptMgmt.String(),
		rec.Categories.Investment.String(),
		rec.Categories.Presales.String(),
		rec.Categories.Training.String(),
		rec.Categories.Unassigned.String(),
		rec.Categories.Vacation.String(),
		rec.GrandTotal.String(),
		rec.BillableHours.String(),
		rec.WTDActuals.String(),
		rec.Capacity.String(),
		rec.LastWeek.String(),
		rec.TotalLogged.String(),
		rec.AdditionalDays.String(),
		string(rec.Billing),
		string(rec.Status),
		rec.Track,
		rec.Owner,
		rec.Comments,
		rec.ReviewerComments,
		rec.OrgUtilization.String(),
		rec.CapableUtilization.String(),
		rec.IndividualUtilization.String(),
		rec.TotalCapacity.String(),
		1,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
		rec.Version = 1
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

const recordColumns = `
	id, resource, report_date,
	administrative, billable, dept_mgmt, investment, presales, training,
	unassigned, vacation, grand_total,
	billable_hours, wtd_actuals, capacity,
	last_week, total_logged, additional_days,
	billing, status, track, owner, comments, reviewer_comments,
	org_utilization, capable_utilization, individual_utilization, total_capacity,
	version`

// ReportsForDate returns the full record set of one week, ordered by
// resource identifier.
func (s *Store) ReportsForDate(ctx context.Context, date time.Time) ([]report.UtilizationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + recordColumns + `
		FROM utilization_reports
		WHERE report_date = ?
		ORDER BY resource ASC`
	return s.queryRecords(ctx, query, date.Format(dateLayout))
}

// LeakageForDate returns the week's leakage view: records still open or
// carrying a positive shortfall.
func (s *Store) LeakageForDate(ctx context.Context, date time.Time) ([]report.UtilizationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + recordColumns + `
		FROM utilization_reports
		WHERE report_date = ?
		  AND (status = ? OR CAST(additional_days AS REAL) > 0)
		ORDER BY resource ASC`
	return s.queryRecords(ctx, query, date.Format(dateLayout), string(report.StatusOpen))
}

// GetRecord loads one record by id, including its version for a later
// optimistic update.
func (s *Store) GetRecord(ctx context.Context, id int64) (*report.UtilizationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + recordColumns + ` FROM utilization_reports WHERE id = ?`
	records, err := s.queryRecords(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &report.RecordNotFoundError{ID: id}
	}
	return &records[0], nil
}

// ListDates returns every ingested report date, most recent first.
func (s *Store) ListDates(ctx context.Context) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT report_date FROM utilization_reports ORDER BY report_date DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list report dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("malformed report_date %q: %w", raw, err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// PriorShortfall implements report.PriorWeekLookup: the stored shortfall
// for (resource, date), matched case-insensitively.
func (s *Store) PriorShortfall(ctx context.Context, id report.ResourceID, date time.Time) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT additional_days FROM utilization_reports
		WHERE LOWER(resource) = LOWER(?) AND report_date = ?`,
		id.String(), date.Format(dateLayout),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to look up prior shortfall for %s: %w", id, err)
	}
	return parseDecimal(raw), true, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]report.UtilizationRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []report.UtilizationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (report.UtilizationRecord, error) {
	var (
		rec            report.UtilizationRecord
		resource, date string

		admin, billableCat, deptMgmt, investment, presales, training string
		unassigned, vacation, grandTotal                             string
		billableHours, wtdActuals, capacity                          string
		lastWeek, totalLogged, additionalDays                        string
		billing, status                                              string
		orgUtil, capableUtil, individualUtil, totalCapacity          string
	)

	err := rows.Scan(
		&rec.ID, &resource, &date,
		&admin, &billableCat, &deptMgmt, &investment, &presales, &training,
		&unassigned, &vacation, &grandTotal,
		&billableHours, &wtdActuals, &capacity,
		&lastWeek, &totalLogged, &additionalDays,
		&billing, &status, &rec.Track, &rec.Owner, &rec.Comments, &rec.ReviewerComments,
		&orgUtil, &capableUtil, &individualUtil, &totalCapacity,
		&rec.Version,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.Resource = report.ResourceID(resource)
	rec.Date, err = time.Parse(dateLayout, date)
	if err != nil {
		return rec, fmt.Errorf("malformed report_date %q: %w", date, err)
	}
	rec.Categories = report.CategoryTotals{
		Administrative: parseDecimal(admin),
		Billable:       parseDecimal(billableCat),
		DeptMgmt:       parseDecimal(deptMgmt),
		Investment:     parseDecimal(investment),
		Presales:       parseDecimal(presales),
		Training:       parseDecimal(training),
		Unassigned:     parseDecimal(unassigned),
		Vacation:       parseDecimal(vacation),
	}
	rec.GrandTotal = parseDecimal(grandTotal)
	rec.BillableHours = parseDecimal(billableHours)
	rec.WTDActuals = parseDecimal(wtdActuals)
	rec.Capacity = parseDecimal(capacity)
	rec.LastWeek = parseDecimal(lastWeek)
	rec.TotalLogged = parseDecimal(totalLogged)
	rec.AdditionalDays = parseDecimal(additionalDays)
	rec.Billing = report.BillingClass(billing)
	rec.Status = report.Status(status)
	rec.OrgUtilization = parseDecimal(orgUtil)
	rec.CapableUtilization = parseDecimal(capableUtil)
	rec.IndividualUtilization = parseDecimal(individualUtil)
	rec.TotalCapacity = parseDecimal(totalCapacity)
	return rec, nil
}

// =============================================================================
// MANUAL-EDIT WRITES - Optimistic concurrency
// =============================================================================

// UpdateRecord writes a mutated record back, guarded by the version read
// earlier. A stale version returns report.ErrConcurrentModification.
func (s *Store) UpdateRecord(ctx context.Context, rec *report.UtilizationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE utilization_reports SET
			administrative = ?, billable = ?, dept_mgmt = ?, investment = ?,
			presales = ?, training = ?, unassigned = ?, vacation = ?,
			grand_total = ?, billable_hours = ?, wtd_actuals = ?,
			last_week = ?, total_logged = ?, additional_days = ?,
			billing = ?, status = ?, comments = ?, reviewer_comments = ?,
			individual_utilization = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		rec.Categories.Administrative.String(),
		rec.Categories.Billable.String(),
		rec.Categories.DeptMgmt.String(),
		rec.Categories.Investment.String(),
		rec.Categories.Presales.String(),
		rec.Categories.Training.String(),
		rec.Categories.Unassigned.String(),
		rec.Categories.Vacation.String(),
		rec.GrandTotal.String(),
		rec.BillableHours.String(),
		rec.WTDActuals.String(),
		rec.LastWeek.String(),
		rec.TotalLogged.String(),
		rec.AdditionalDays.String(),
		string(rec.Billing),
		string(rec.Status),
		rec.Comments,
		rec.ReviewerComments,
		rec.IndividualUtilization.String(),
		rec.ID,
		rec.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update record %d: %w", rec.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the record vanished or another edit bumped the version.
		var exists int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM utilization_reports WHERE id = ?", rec.ID,
		).Scan(&exists); err == nil && exists == 0 {
			return &report.RecordNotFoundError{ID: rec.ID}
		}
		return report.ErrConcurrentModification
	}
	rec.Version++
	return nil
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

// AppendAudit persists one audit entry.
func (s *Store) AppendAudit(ctx context.Context, entry report.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO utilization_history
		(id, report_date, resource, action, details, field_name,
		 previous_value, new_value, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ReportDate.Format(dateLayout),
		entry.Resource.String(),
		string(entry.Action),
		entry.Details,
		entry.Field,
		entry.Previous,
		entry.New,
		entry.Actor,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry for %s: %w", entry.Resource, err)
	}
	return nil
}

// AuditTrail returns entries newest-first, optionally filtered by resource
// (substring match on the normalized identifier), capped at limit.
func (s *Store) AuditTrail(ctx context.Context, resource string, limit int) ([]report.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 200
	}

	query := `
		SELECT id, report_date, resource, action, details, field_name,
		       previous_value, new_value, actor, created_at
		FROM utilization_history`
	args := []any{}
	if resource != "" {
		query += " WHERE resource LIKE ?"
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(resource))+"%")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	var entries []report.AuditEntry
	for rows.Next() {
		var (
			e              report.AuditEntry
			reportDate     string
			entryResource  string
			action         string
			createdAt      string
		)
		if err := rows.Scan(&e.ID, &reportDate, &entryResource, &action, &e.Details,
			&e.Field, &e.Previous, &e.New, &e.Actor, &createdAt); err != nil {
			return nil, err
		}
		e.Resource = report.ResourceID(entryResource)
		e.Action = report.AuditAction(action)
		e.ReportDate, _ = time.Parse(dateLayout, reportDate)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// REFERENCE DATA - read wholesale at run start
// =============================================================================

// BillingMap loads the full resource→billing reference table.
func (s *Store) BillingMap(ctx context.Context) (report.BillingMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT resource, billing, track, owner FROM resource_billing")
	if err != nil {
		return nil, fmt.Errorf("failed to load billing map: %w", err)
	}
	defer rows.Close()

	m := make(report.BillingMap)
	for rows.Next() {
		var resource, billing, track, owner string
		if err := rows.Scan(&resource, &billing, &track, &owner); err != nil {
			return nil, err
		}
		m[report.NewResourceID(resource)] = report.BillingInfo{
			Billing: report.ParseBillingClass(billing),
			Track:   track,
			Owner:   owner,
		}
	}
	return m, rows.Err()
}

// Exclusions loads the full exclusion list.
func (s *Store) Exclusions(ctx context.Context) (report.ExclusionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT resource FROM exclusion_list")
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusion list: %w", err)
	}
	defer rows.Close()

	set := make(report.ExclusionSet)
	for rows.Next() {
		var resource string
		if err := rows.Scan(&resource); err != nil {
			return nil, err
		}
		id := report.NewResourceID(resource)
		if !id.IsEmpty() {
			set[id] = struct{}{}
		}
	}
	return set, rows.Err()
}

// UpsertBillingInfo inserts or replaces one billing reference row.
func (s *Store) UpsertBillingInfo(ctx context.Context, id report.ResourceID, info report.BillingInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resource_billing (resource, billing, track, owner)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(resource) DO UPDATE SET billing = excluded.billing,
			track = excluded.track, owner = excluded.owner`,
		id.String(), string(info.Billing), info.Track, info.Owner)
	if err != nil {
		return fmt.Errorf("failed to upsert billing info for %s: %w", id, err)
	}
	return nil
}

// AddExclusion adds a resource to the exclusion list.
func (s *Store) AddExclusion(ctx context.Context, id report.ResourceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO exclusion_list (resource) VALUES (?)", id.String())
	if err != nil {
		return fmt.Errorf("failed to add exclusion for %s: %w", id, err)
	}
	return nil
}

// RemoveExclusion removes a resource from the exclusion list.
func (s *Store) RemoveExclusion(ctx context.Context, id report.ResourceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM exclusion_list WHERE resource = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to remove exclusion for %s: %w", id, err)
	}
	return nil
}

func parseDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
