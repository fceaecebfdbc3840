package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // database/sql driver "sqlite"

	"github.com/okian/seoscore/internal/domain/model"
	"github.com/okian/seoscore/migrations"
	"github.com/okian/seoscore/pkg/metrics"
)

const (
	backendSQLite = "sqlite"
	entriesTable  = "monthly_entries"
	clientsTable  = "clients"

	// Fixed-width UTC timestamps so text ordering matches time ordering.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteStore is a Store backed by a single SQLite database file.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database at path, applies pragmas
// and runs pending migrations. ":memory:" gives a private in-memory database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases intact.
	db.SetMaxOpenConns(1)

	if err := enablePragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}
	if err := RunMigrations(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func enablePragmas(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

// RunMigrations applies every pending embedded goose migration to db.
func RunMigrations(db *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// entryRow is the column mapping of monthly_entries.
type entryRow struct {
	ID         string `db:"id"`
	EmployeeID string `db:"employee_id"`
	ClientID   string `db:"client_id"`
	Month      string `db:"month"`

	GSCOrganicPrev30d     *float64       `db:"gsc_organic_prev_30d"`
	GSCOrganicCurr30d     *float64       `db:"gsc_organic_curr_30d"`
	GATotalPrev30d        *float64       `db:"ga_total_prev_30d"`
	GATotalCurr30d        *float64       `db:"ga_total_curr_30d"`
	SERPTop3Count         *float64       `db:"serp_top3_count"`
	SERPTop10Count        *float64       `db:"serp_top10_count"`
	GMBTop3Count          *float64       `db:"gmb_top3_count"`
	PageSpeedHome         *float64       `db:"pagespeed_home"`
	PageSpeedService      *float64       `db:"pagespeed_service"`
	PageSpeedLocation     *float64       `db:"pagespeed_location"`
	SCErrorsHome          *float64       `db:"sc_errors_home"`
	SCErrorsService       *float64       `db:"sc_errors_service"`
	SCErrorsLocation      *float64       `db:"sc_errors_location"`
	DeliverablesBlogs     *float64       `db:"deliverables_blogs"`
	DeliverablesBacklinks *float64       `db:"deliverables_backlinks"`
	DeliverablesOnPage    *float64       `db:"deliverables_onpage"`
	DeliverablesTechFixes *float64       `db:"deliverables_techfixes"`
	NPSClient             *float64       `db:"nps_client"`
	InteractionsCount     *float64       `db:"interactions_count"`
	ClientMeetingDate     sql.NullString `db:"client_meeting_date"`
	MentorScore           *float64       `db:"mentor_score"`

	OrganicGrowthPct     *float64 `db:"organic_growth_pct"`
	TrafficGrowthPct     *float64 `db:"traffic_growth_pct"`
	TechnicalHealthScore *float64 `db:"technical_health_score"`
	RankingScore         *float64 `db:"ranking_score"`
	DeliveryScore        *float64 `db:"delivery_score"`
	RelationshipScore    *float64 `db:"relationship_score"`
	MonthScore           *float64 `db:"month_score"`

	Status        string         `db:"status"`
	ReviewComment string         `db:"review_comment"`
	ReviewedBy    string         `db:"reviewed_by"`
	ReviewedAt    sql.NullString `db:"reviewed_at"`
	SubmittedAt   sql.NullString `db:"submitted_at"`
	CreatedAt     string         `db:"created_at"`
	UpdatedAt     string         `db:"updated_at"`
}

// entryColumns lists every column in entryRow.values order.
var entryColumns = []string{ //nolint:gochecknoglobals // fixed schema
	"id", "employee_id", "client_id", "month",
	"gsc_organic_prev_30d", "gsc_organic_curr_30d", "ga_total_prev_30d", "ga_total_curr_30d",
	"serp_top3_count", "serp_top10_count", "gmb_top3_count",
	"pagespeed_home", "pagespeed_service", "pagespeed_location",
	"sc_errors_home", "sc_errors_service", "sc_errors_location",
	"deliverables_blogs", "deliverables_backlinks", "deliverables_onpage", "deliverables_techfixes",
	"nps_client", "interactions_count", "client_meeting_date", "mentor_score",
	"organic_growth_pct", "traffic_growth_pct", "technical_health_score", "ranking_score",
	"delivery_score", "relationship_score", "month_score",
	"status", "review_comment", "reviewed_by", "reviewed_at", "submitted_at", "created_at", "updated_at",
}

func (r entryRow) values() []interface{} {
	return []interface{}{
		r.ID, r.EmployeeID, r.ClientID, r.Month,
		r.GSCOrganicPrev30d, r.GSCOrganicCurr30d, r.GATotalPrev30d, r.GATotalCurr30d,
		r.SERPTop3Count, r.SERPTop10Count, r.GMBTop3Count,
		r.PageSpeedHome, r.PageSpeedService, r.PageSpeedLocation,
		r.SCErrorsHome, r.SCErrorsService, r.SCErrorsLocation,
		r.DeliverablesBlogs, r.DeliverablesBacklinks, r.DeliverablesOnPage, r.DeliverablesTechFixes,
		r.NPSClient, r.InteractionsCount, r.ClientMeetingDate, r.MentorScore,
		r.OrganicGrowthPct, r.TrafficGrowthPct, r.TechnicalHealthScore, r.RankingScore,
		r.DeliveryScore, r.RelationshipScore, r.MonthScore,
		r.Status, r.ReviewComment, r.ReviewedBy, r.ReviewedAt, r.SubmittedAt, r.CreatedAt, r.UpdatedAt,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func toRow(e model.MonthlyEntry) entryRow {
	return entryRow{
		ID: e.ID, EmployeeID: e.EmployeeID, ClientID: e.ClientID, Month: e.Month,

		GSCOrganicPrev30d:     e.GSCOrganicPrev30d,
		GSCOrganicCurr30d:     e.GSCOrganicCurr30d,
		GATotalPrev30d:        e.GATotalPrev30d,
		GATotalCurr30d:        e.GATotalCurr30d,
		SERPTop3Count:         e.SERPTop3Count,
		SERPTop10Count:        e.SERPTop10Count,
		GMBTop3Count:          e.GMBTop3Count,
		PageSpeedHome:         e.PageSpeedHome,
		PageSpeedService:      e.PageSpeedService,
		PageSpeedLocation:     e.PageSpeedLocation,
		SCErrorsHome:          e.SCErrorsHome,
		SCErrorsService:       e.SCErrorsService,
		SCErrorsLocation:      e.SCErrorsLocation,
		DeliverablesBlogs:     e.DeliverablesBlogs,
		DeliverablesBacklinks: e.DeliverablesBacklinks,
		DeliverablesOnPage:    e.DeliverablesOnPage,
		DeliverablesTechFixes: e.DeliverablesTechFixes,
		NPSClient:             e.NPSClient,
		InteractionsCount:     e.InteractionsCount,
		ClientMeetingDate:     formatNullTime(e.ClientMeetingDate),
		MentorScore:           e.MentorScore,

		OrganicGrowthPct:     e.OrganicGrowthPct,
		TrafficGrowthPct:     e.TrafficGrowthPct,
		TechnicalHealthScore: e.TechnicalHealthScore,
		RankingScore:         e.RankingScore,
		DeliveryScore:        e.DeliveryScore,
		RelationshipScore:    e.RelationshipScore,
		MonthScore:           e.MonthScore,

		Status:        string(e.Status),
		ReviewComment: e.ReviewComment,
		ReviewedBy:    e.ReviewedBy,
		ReviewedAt:    formatNullTime(e.ReviewedAt),
		SubmittedAt:   formatNullTime(e.SubmittedAt),
		CreatedAt:     formatTime(e.CreatedAt),
		UpdatedAt:     formatTime(e.UpdatedAt),
	}
}

func (r entryRow) toModel() model.MonthlyEntry {
	return model.MonthlyEntry{
		ID: r.ID, EmployeeID: r.EmployeeID, ClientID: r.ClientID, Month: r.Month,

		GSCOrganicPrev30d:     r.GSCOrganicPrev30d,
		GSCOrganicCurr30d:     r.GSCOrganicCurr30d,
		GATotalPrev30d:        r.GATotalPrev30d,
		GATotalCurr30d:        r.GATotalCurr30d,
		SERPTop3Count:         r.SERPTop3Count,
		SERPTop10Count:        r.SERPTop10Count,
		GMBTop3Count:          r.GMBTop3Count,
		PageSpeedHome:         r.PageSpeedHome,
		PageSpeedService:      r.PageSpeedService,
		PageSpeedLocation:     r.PageSpeedLocation,
		SCErrorsHome:          r.SCErrorsHome,
		SCErrorsService:       r.SCErrorsService,
		SCErrorsLocation:      r.SCErrorsLocation,
		DeliverablesBlogs:     r.DeliverablesBlogs,
		DeliverablesBacklinks: r.DeliverablesBacklinks,
		DeliverablesOnPage:    r.DeliverablesOnPage,
		DeliverablesTechFixes: r.DeliverablesTechFixes,
		NPSClient:             r.NPSClient,
		InteractionsCount:     r.InteractionsCount,
		ClientMeetingDate:     parseNullTime(r.ClientMeetingDate),
		MentorScore:           r.MentorScore,

		Computed: model.Computed{
			OrganicGrowthPct:     r.OrganicGrowthPct,
			TrafficGrowthPct:     r.TrafficGrowthPct,
			TechnicalHealthScore: r.TechnicalHealthScore,
			RankingScore:         r.RankingScore,
			DeliveryScore:        r.DeliveryScore,
			RelationshipScore:    r.RelationshipScore,
			MonthScore:           r.MonthScore,
		},

		Status:        model.Status(r.Status),
		ReviewComment: r.ReviewComment,
		ReviewedBy:    r.ReviewedBy,
		ReviewedAt:    parseNullTime(r.ReviewedAt),
		SubmittedAt:   parseNullTime(r.SubmittedAt),
		CreatedAt:     parseTime(r.CreatedAt),
		UpdatedAt:     parseTime(r.UpdatedAt),
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateEntry implements EntryRepository.
func (s *SQLiteStore) CreateEntry(ctx context.Context, e model.MonthlyEntry) error {
	defer observe(backendSQLite, "create_entry", time.Now())

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto(entriesTable)
	ib.Cols(entryColumns...)
	ib.Values(toRow(e).values()...)

	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEntry
		}
		metrics.RecordErrorByComponent("repository", "insert_failed")
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) selectEntries() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(entryColumns...)
	sb.From(entriesTable)
	return sb
}

// GetEntry implements EntryRepository.
func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (model.MonthlyEntry, error) {
	defer observe(backendSQLite, "get_entry", time.Now())

	sb := s.selectEntries()
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row entryRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.RecordErrorByComponent("repository", "not_found")
			return model.MonthlyEntry{}, ErrNotFound
		}
		return model.MonthlyEntry{}, fmt.Errorf("get entry: %w", err)
	}
	return row.toModel(), nil
}

// ListEntries implements EntryRepository.
func (s *SQLiteStore) ListEntries(ctx context.Context, f EntryFilter) ([]model.MonthlyEntry, error) {
	defer observe(backendSQLite, "list_entries", time.Now())
	if f.Limit < 0 || f.Offset < 0 {
		return nil, ErrInvalidLimit
	}

	sb := s.selectEntries()
	var where []string
	if f.EmployeeID != "" {
		where = append(where, sb.Equal("employee_id", f.EmployeeID))
	}
	if f.ClientID != "" {
		where = append(where, sb.Equal("client_id", f.ClientID))
	}
	if f.Month != "" {
		where = append(where, sb.Equal("month", f.Month))
	}
	if f.FromMonth != "" {
		where = append(where, sb.GreaterEqualThan("month", f.FromMonth))
	}
	if f.ToMonth != "" {
		where = append(where, sb.LessEqualThan("month", f.ToMonth))
	}
	if f.Status != "" {
		where = append(where, sb.Equal("status", string(f.Status)))
	}
	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("month DESC", "created_at DESC", "id ASC")
	if f.Limit > 0 {
		sb.Limit(f.Limit)
	}
	if f.Offset > 0 {
		if f.Limit == 0 {
			sb.Limit(math.MaxInt32)
		}
		sb.Offset(f.Offset)
	}

	return s.selectRows(ctx, sb)
}

func (s *SQLiteStore) selectRows(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]model.MonthlyEntry, error) {
	query, args := sb.Build()
	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	out := make([]model.MonthlyEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// FindPriorEntries implements EntryRepository.
func (s *SQLiteStore) FindPriorEntries(ctx context.Context, employeeID, clientID, beforeMonth string, limit int) ([]model.MonthlyEntry, error) {
	defer observe(backendSQLite, "find_prior_entries", time.Now())
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	sb := s.selectEntries()
	sb.Where(
		sb.Equal("employee_id", employeeID),
		sb.Equal("client_id", clientID),
		sb.LessThan("month", beforeMonth),
	)
	sb.OrderBy("month DESC", "created_at DESC")
	sb.Limit(limit)

	return s.selectRows(ctx, sb)
}

// UpdateEntry implements EntryRepository with a conditional UPDATE on status.
// The mentor score column is left to SetMentorScore.
func (s *SQLiteStore) UpdateEntry(ctx context.Context, e model.MonthlyEntry, expected model.Status) error {
	defer observe(backendSQLite, "update_entry", time.Now())

	row := toRow(e)
	values := row.values()

	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update(entriesTable)
	assignments := make([]string, 0, len(entryColumns))
	for i, col := range entryColumns {
		switch col {
		case "id", "employee_id", "client_id", "month", "created_at", "mentor_score":
			continue
		}
		assignments = append(assignments, ub.Assign(col, values[i]))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", e.ID), ub.Equal("status", string(expected)))

	query, args := ub.Build()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return s.missOrConflict(ctx, e.ID)
	}
	return nil
}

// missOrConflict explains a conditional write that touched no row.
func (s *SQLiteStore) missOrConflict(ctx context.Context, id string) error {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From(entriesTable).Where(sb.Equal("id", id))
	query, args := sb.Build()

	var count int
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return fmt.Errorf("count entry: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	metrics.RecordErrorByComponent("repository", "status_conflict")
	return ErrStatusConflict
}

// SetMentorScore implements EntryRepository.
func (s *SQLiteStore) SetMentorScore(ctx context.Context, id string, score float64, at time.Time) (model.MonthlyEntry, error) {
	defer observe(backendSQLite, "set_mentor_score", time.Now())

	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update(entriesTable)
	ub.Set(ub.Assign("mentor_score", score), ub.Assign("updated_at", formatTime(at)))
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return model.MonthlyEntry{}, fmt.Errorf("set mentor score: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.MonthlyEntry{}, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return model.MonthlyEntry{}, ErrNotFound
	}
	return s.GetEntry(ctx, id)
}

// CountEntries implements EntryRepository.
func (s *SQLiteStore) CountEntries(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+entriesTable); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	metrics.UpdateRepositoryEntries(count)
	return count, nil
}

type clientRow struct {
	ID     string `db:"id"`
	Name   string `db:"name"`
	Type   string `db:"type"`
	Active bool   `db:"active"`
}

// CreateClient implements ClientRepository.
func (s *SQLiteStore) CreateClient(ctx context.Context, c model.Client) error {
	defer observe(backendSQLite, "create_client", time.Now())

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto(clientsTable)
	ib.Cols("id", "name", "type", "active")
	ib.Values(c.ID, c.Name, string(c.Type), c.Active)

	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateClient
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetClient implements ClientRepository.
func (s *SQLiteStore) GetClient(ctx context.Context, id string) (model.Client, error) {
	defer observe(backendSQLite, "get_client", time.Now())

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id", "name", "type", "active").From(clientsTable).Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row clientRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Client{}, ErrNotFound
		}
		return model.Client{}, fmt.Errorf("get client: %w", err)
	}
	return model.Client{ID: row.ID, Name: row.Name, Type: model.ClientType(row.Type), Active: row.Active}, nil
}

// ListClients implements ClientRepository.
func (s *SQLiteStore) ListClients(ctx context.Context) ([]model.Client, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id", "name", "type", "active").From(clientsTable).OrderBy("name ASC", "id ASC")

	query, args := sb.Build()
	var rows []clientRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	out := make([]model.Client, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Client{ID: r.ID, Name: r.Name, Type: model.ClientType(r.Type), Active: r.Active})
	}
	return out, nil
}
