package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/seoscore/internal/adapters/repository"
	"github.com/okian/seoscore/internal/domain/model"
)

// Sentinel kinds for workflow errors.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = repository.ErrNotFound
	ErrDuplicateEntry    = repository.ErrDuplicateEntry
	ErrDuplicateClient   = repository.ErrDuplicateClient
)

// ValidationError reports missing or out-of-range input. Fields holds the
// offending field names in declaration order.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransitionError reports an operation attempted from a status that does
// not permit it.
type TransitionError struct {
	EntryID string
	Op      string
	From    model.Status
	To      model.Status
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("cannot %s entry %s in status %s", e.Op, e.EntryID, e.From)
	}
	return fmt.Sprintf("cannot %s entry %s: %s -> %s is not allowed", e.Op, e.EntryID, e.From, e.To)
}

// Is makes errors.Is(err, ErrInvalidTransition) hold.
func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
