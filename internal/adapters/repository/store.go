// Package repository persists clients and monthly entries.
//
// Two backends implement Store: MemoryStore for tests and single-process
// use, and SQLiteStore for durable storage. Both apply guarded writes by
// comparing the stored status inside the same critical section as the
// write, so concurrent transitions on one entry cannot both commit.
package repository

import (
	"context"
	"time"

	"github.com/okian/seoscore/internal/domain/model"
)

// EntryFilter narrows ListEntries. Zero values mean "any". Months are
// inclusive YYYY-MM bounds.
type EntryFilter struct {
	EmployeeID string
	ClientID   string
	Month      string
	FromMonth  string
	ToMonth    string
	Status     model.Status
	Limit      int
	Offset     int
}

// EntryRepository stores monthly entries.
type EntryRepository interface {
	// CreateEntry inserts e. Returns ErrDuplicateEntry when the
	// (employee, client, month) slot is taken.
	CreateEntry(ctx context.Context, e model.MonthlyEntry) error

	// GetEntry returns ErrNotFound when id is unknown.
	GetEntry(ctx context.Context, id string) (model.MonthlyEntry, error)

	// ListEntries returns entries ordered by month desc, then creation time.
	ListEntries(ctx context.Context, f EntryFilter) ([]model.MonthlyEntry, error)

	// FindPriorEntries returns up to limit entries for the same employee
	// and client with month < beforeMonth, most recent first.
	FindPriorEntries(ctx context.Context, employeeID, clientID, beforeMonth string, limit int) ([]model.MonthlyEntry, error)

	// UpdateEntry replaces the stored entry with e only if its stored
	// status equals expected. Returns ErrNotFound or ErrStatusConflict.
	UpdateEntry(ctx context.Context, e model.MonthlyEntry, expected model.Status) error

	// SetMentorScore writes the mentor score regardless of status and
	// returns the updated entry.
	SetMentorScore(ctx context.Context, id string, score float64, at time.Time) (model.MonthlyEntry, error)

	// CountEntries returns the number of stored entries.
	CountEntries(ctx context.Context) (int, error)
}

// ClientRepository stores clients.
type ClientRepository interface {
	CreateClient(ctx context.Context, c model.Client) error
	GetClient(ctx context.Context, id string) (model.Client, error)
	ListClients(ctx context.Context) ([]model.Client, error)
}

// Store is a complete persistence backend.
type Store interface {
	EntryRepository
	ClientRepository
	Close() error
}
