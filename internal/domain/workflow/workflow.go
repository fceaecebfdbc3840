// Package workflow drives monthly entries through draft, submitted,
// approved and returned. It owns every write of the system-computed
// fields and applies each transition as a write guarded on the status it
// was read in.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/okian/seoscore/internal/adapters/repository"
	"github.com/okian/seoscore/internal/domain/model"
	"github.com/okian/seoscore/internal/domain/scoring"
	"github.com/okian/seoscore/pkg/logger"
	"github.com/okian/seoscore/pkg/metrics"
)

const (
	defaultMaxListLimit = 100
	priorEntryLimit     = 2
)

// Service implements the entry lifecycle on top of the repositories.
type Service struct {
	entries repository.EntryRepository
	clients repository.ClientRepository
	engine  *scoring.Engine

	notifier     Notifier
	logger       logger.Logger
	now          func() time.Time
	newID        func() string
	maxListLimit int

	validate *validator.Validate
	complete *validator.Validate
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithNotifier sets the receiver of transition events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how entry, client and event ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithMaxListLimit caps the page size returned by List.
func WithMaxListLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxListLimit = limit
		}
	}
}

// New creates a workflow service.
func New(entries repository.EntryRepository, clients repository.ClientRepository, engine *scoring.Engine, opts ...Option) *Service {
	s := &Service{
		entries:      entries,
		clients:      clients,
		engine:       engine,
		notifier:     nopNotifier{},
		logger:       logger.NewNop(),
		now:          time.Now,
		newID:        uuid.NewString,
		maxListLimit: defaultMaxListLimit,
		validate:     newValidator(""),
		complete:     newValidator("submit"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time { return s.now().UTC() }

// CreateClient registers a client. An empty id is generated.
func (s *Service) CreateClient(ctx context.Context, c model.Client) (model.Client, error) {
	if err := s.validate.Struct(c); err != nil {
		metrics.RecordValidationFailure("create_client")
		return model.Client{}, validationError(err, "invalid client")
	}
	if c.ID == "" {
		c.ID = s.newID()
	}
	if err := s.clients.CreateClient(ctx, c); err != nil {
		return model.Client{}, err
	}
	s.logger.Info(ctx, "client created",
		logger.String("client_id", c.ID),
		logger.String("type", string(c.Type)),
	)
	return c, nil
}

// GetClient returns ErrNotFound when id is unknown.
func (s *Service) GetClient(ctx context.Context, id string) (model.Client, error) {
	return s.clients.GetClient(ctx, id)
}

// ListClients returns clients ordered by name. An empty typ matches every
// tier; inactive clients are skipped unless includeInactive is set.
func (s *Service) ListClients(ctx context.Context, typ model.ClientType, includeInactive bool) ([]model.Client, error) {
	all, err := s.clients.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Client, 0, len(all))
	for _, c := range all {
		if typ != "" && c.Type != typ {
			continue
		}
		if !includeInactive && !c.Active {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Create stores a new draft. Only identity and raw metrics are taken from
// e; status, computed fields, mentor score and review data start empty.
func (s *Service) Create(ctx context.Context, e model.MonthlyEntry) (model.MonthlyEntry, error) {
	if err := s.validate.Struct(e); err != nil {
		metrics.RecordValidationFailure("create")
		return model.MonthlyEntry{}, validationError(err, "missing required fields")
	}
	raw := e.Metrics()
	if err := s.validate.Struct(raw); err != nil {
		metrics.RecordValidationFailure("create")
		return model.MonthlyEntry{}, validationError(err, "value out of range")
	}
	if _, err := s.client(ctx, e.ClientID); err != nil {
		return model.MonthlyEntry{}, err
	}

	now := s.clock()
	out := model.MonthlyEntry{
		ID:         s.newID(),
		EmployeeID: e.EmployeeID,
		ClientID:   e.ClientID,
		Month:      e.Month,
		Status:     model.StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	raw.Apply(&out)

	if err := s.entries.CreateEntry(ctx, out); err != nil {
		return model.MonthlyEntry{}, err
	}
	s.logger.Info(ctx, "entry created",
		logger.String("entry_id", out.ID),
		logger.String("employee_id", out.EmployeeID),
		logger.String("client_id", out.ClientID),
		logger.String("month", out.Month),
	)
	return out, nil
}

// Get returns ErrNotFound when id is unknown.
func (s *Service) Get(ctx context.Context, id string) (model.MonthlyEntry, error) {
	return s.entries.GetEntry(ctx, id)
}

// List returns entries matching f. The page size is capped at the
// configured maximum and defaults to it.
func (s *Service) List(ctx context.Context, f repository.EntryFilter) ([]model.MonthlyEntry, error) {
	var bad []string
	for _, m := range []struct{ name, value string }{{"month", f.Month}, {"from", f.FromMonth}, {"to", f.ToMonth}} {
		if m.value != "" && !model.ValidMonth(m.value) {
			bad = append(bad, m.name)
		}
	}
	if f.Status != "" && !f.Status.Valid() {
		bad = append(bad, "status")
	}
	if f.Offset < 0 {
		bad = append(bad, "offset")
	}
	if len(bad) > 0 {
		return nil, &ValidationError{Fields: bad, Message: "invalid filter"}
	}
	if f.Limit <= 0 || f.Limit > s.maxListLimit {
		f.Limit = s.maxListLimit
	}
	return s.entries.ListEntries(ctx, f)
}

// Update applies a generic field edit to a draft. System-computed fields
// in patch are discarded before anything else happens.
func (s *Service) Update(ctx context.Context, id string, patch model.EntryPatch) (model.MonthlyEntry, error) {
	if stripped := patch.StripSystemFields(); len(stripped) > 0 {
		metrics.RecordStrippedFields(len(stripped))
		s.logger.Debug(ctx, "system fields stripped from update",
			logger.String("entry_id", id),
			logger.Strings("fields", stripped),
		)
	}
	if err := s.validate.Struct(patch); err != nil {
		metrics.RecordValidationFailure("update")
		return model.MonthlyEntry{}, validationError(err, "value out of range")
	}

	cur, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return model.MonthlyEntry{}, err
	}
	if cur.Status != model.StatusDraft {
		return model.MonthlyEntry{}, s.reject(ctx, "update", id, cur.Status, "")
	}

	patch.Apply(&cur)
	cur.UpdatedAt = s.clock()
	if err := s.commit(ctx, "update", cur, model.StatusDraft, ""); err != nil {
		return model.MonthlyEntry{}, err
	}
	return cur, nil
}

// Preview scores e without storing anything. The client must exist; prior
// entries are looked up when the employee and month are known.
func (s *Service) Preview(ctx context.Context, e model.MonthlyEntry) (scoring.Result, error) {
	if e.ClientID == "" {
		metrics.RecordValidationFailure("preview")
		return scoring.Result{}, &ValidationError{Fields: []string{"client_id"}, Message: "missing required fields"}
	}
	if err := s.validate.Struct(e.Metrics()); err != nil {
		metrics.RecordValidationFailure("preview")
		return scoring.Result{}, validationError(err, "value out of range")
	}
	client, err := s.client(ctx, e.ClientID)
	if err != nil {
		return scoring.Result{}, err
	}

	var prior []model.MonthlyEntry
	if e.EmployeeID != "" && model.ValidMonth(e.Month) {
		if prior, err = s.entries.FindPriorEntries(ctx, e.EmployeeID, e.ClientID, e.Month, priorEntryLimit); err != nil {
			return scoring.Result{}, fmt.Errorf("find prior entries: %w", err)
		}
	}
	return s.score(&e, client, prior), nil
}

// client resolves id, turning an unknown client into a validation failure.
func (s *Service) client(ctx context.Context, id string) (model.Client, error) {
	c, err := s.clients.GetClient(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Client{}, &ValidationError{Fields: []string{"client_id"}, Message: "unknown client"}
	}
	if err != nil {
		return model.Client{}, fmt.Errorf("get client %s: %w", id, err)
	}
	return c, nil
}

func (s *Service) score(e *model.MonthlyEntry, client model.Client, prior []model.MonthlyEntry) scoring.Result {
	start := time.Now()
	r := s.engine.CalculateMonthScore(e, client, prior)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	return r
}
