package appraisal

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/seoscore/internal/adapters/repository"
	"github.com/okian/seoscore/internal/domain/model"
)

// Service loads entries from the repositories and aggregates them.
type Service struct {
	entries repository.EntryRepository
	clients repository.ClientRepository
	calc    *Calculator
}

// NewService wires a calculator to its data sources.
func NewService(entries repository.EntryRepository, clients repository.ClientRepository, calc *Calculator) *Service {
	return &Service{entries: entries, clients: clients, calc: calc}
}

// EmployeeMonthScore returns the weighted score of an employee's approved
// entries for month, or nil when none are approved.
func (s *Service) EmployeeMonthScore(ctx context.Context, employeeID, month string) (*float64, error) {
	if !model.ValidMonth(month) {
		return nil, fmt.Errorf("%w: month %q", ErrInvalidPeriod, month)
	}
	entries, err := s.entries.ListEntries(ctx, repository.EntryFilter{
		EmployeeID: employeeID,
		Month:      month,
		Status:     model.StatusApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	types, err := s.clientTypes(ctx, entries)
	if err != nil {
		return nil, err
	}
	return s.calc.EmployeeMonthScore(entries, types), nil
}

// Appraisal rates an employee over the inclusive month range [from, to].
func (s *Service) Appraisal(ctx context.Context, employeeID, from, to string) (*Appraisal, error) {
	if !model.ValidMonth(from) || !model.ValidMonth(to) || from > to {
		return nil, fmt.Errorf("%w: %q to %q", ErrInvalidPeriod, from, to)
	}
	entries, err := s.entries.ListEntries(ctx, repository.EntryFilter{
		EmployeeID: employeeID,
		FromMonth:  from,
		ToMonth:    to,
		Status:     model.StatusApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return s.calc.Appraise(entries), nil
}

// TeamMetrics summarizes every entry in the optional month range.
func (s *Service) TeamMetrics(ctx context.Context, from, to string) (TeamMetrics, error) {
	if (from != "" && !model.ValidMonth(from)) || (to != "" && !model.ValidMonth(to)) {
		return TeamMetrics{}, fmt.Errorf("%w: %q to %q", ErrInvalidPeriod, from, to)
	}
	entries, err := s.entries.ListEntries(ctx, repository.EntryFilter{FromMonth: from, ToMonth: to})
	if err != nil {
		return TeamMetrics{}, fmt.Errorf("list entries: %w", err)
	}
	return s.calc.TeamMetrics(entries), nil
}

// EmployeeSummary summarizes every entry of employeeID against the
// calculator's clock.
func (s *Service) EmployeeSummary(ctx context.Context, employeeID string) (EmployeeSummary, error) {
	entries, err := s.entries.ListEntries(ctx, repository.EntryFilter{EmployeeID: employeeID})
	if err != nil {
		return EmployeeSummary{}, fmt.Errorf("list entries: %w", err)
	}
	clients, err := s.clients.ListClients(ctx)
	if err != nil {
		return EmployeeSummary{}, fmt.Errorf("list clients: %w", err)
	}
	active := make(map[string]bool, len(clients))
	for _, c := range clients {
		active[c.ID] = c.Active
	}
	return s.calc.EmployeeSummary(entries, active), nil
}

// clientTypes resolves the tier of every client referenced by entries.
// Deleted clients fall back to the default weight.
func (s *Service) clientTypes(ctx context.Context, entries []model.MonthlyEntry) (map[string]model.ClientType, error) {
	types := make(map[string]model.ClientType)
	for i := range entries {
		id := entries[i].ClientID
		if _, seen := types[id]; seen {
			continue
		}
		c, err := s.clients.GetClient(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			types[id] = ""
		case err != nil:
			return nil, fmt.Errorf("get client %s: %w", id, err)
		default:
			types[id] = c.Type
		}
	}
	return types, nil
}
