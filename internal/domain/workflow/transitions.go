package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/okian/seoscore/internal/adapters/repository"
	"github.com/okian/seoscore/internal/domain/model"
	"github.com/okian/seoscore/internal/domain/scoring"
	"github.com/okian/seoscore/pkg/logger"
	"github.com/okian/seoscore/pkg/metrics"
)

// Submit scores a draft and moves it to submitted. Every metric the
// engine requires must be present; a missing one fails with a
// ValidationError naming it and leaves the entry untouched.
func (s *Service) Submit(ctx context.Context, id string) (model.MonthlyEntry, scoring.Result, error) {
	cur, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return model.MonthlyEntry{}, scoring.Result{}, err
	}
	if !cur.Status.CanTransition(model.StatusSubmitted) {
		return model.MonthlyEntry{}, scoring.Result{}, s.reject(ctx, "submit", id, cur.Status, model.StatusSubmitted)
	}
	if err := s.complete.Struct(cur); err != nil {
		metrics.RecordValidationFailure("submit")
		verr := validationError(err, "missing required fields")
		s.logger.Warn(ctx, "submission incomplete",
			logger.String("entry_id", id),
			logger.Error(verr),
		)
		return model.MonthlyEntry{}, scoring.Result{}, verr
	}

	client, err := s.client(ctx, cur.ClientID)
	if err != nil {
		return model.MonthlyEntry{}, scoring.Result{}, err
	}
	prior, err := s.entries.FindPriorEntries(ctx, cur.EmployeeID, cur.ClientID, cur.Month, priorEntryLimit)
	if err != nil {
		return model.MonthlyEntry{}, scoring.Result{}, fmt.Errorf("find prior entries: %w", err)
	}

	result := s.score(&cur, client, prior)
	now := s.clock()
	cur.Computed = scoring.Computed(&cur, result)
	cur.Status = model.StatusSubmitted
	cur.SubmittedAt = &now
	cur.UpdatedAt = now

	if err := s.commit(ctx, "submit", cur, model.StatusDraft, model.StatusSubmitted); err != nil {
		return model.MonthlyEntry{}, scoring.Result{}, err
	}

	metrics.ObserveMonthScore(result.TotalScore)
	for _, p := range result.Penalties.Items {
		metrics.RecordPenalty(string(p.Type))
	}
	s.transitioned(ctx, cur, model.StatusDraft, "", logger.Float64("month_score", result.TotalScore))
	s.emit(ctx, model.EventSubmitted, cur, "", "")
	return cur, result, nil
}

// Approve moves a submitted entry to approved. Scores are not recomputed.
// reviewerID is recorded as reviewed_by and must not be blank.
func (s *Service) Approve(ctx context.Context, id, reviewerID, comment string) (model.MonthlyEntry, error) {
	return s.review(ctx, "approve", id, reviewerID, comment, model.StatusApproved)
}

// Return sends a submitted entry back to its author. A comment is required.
func (s *Service) Return(ctx context.Context, id, reviewerID, comment string) (model.MonthlyEntry, error) {
	if strings.TrimSpace(comment) == "" {
		metrics.RecordValidationFailure("return")
		return model.MonthlyEntry{}, &ValidationError{Fields: []string{"comment"}, Message: "missing required fields"}
	}
	return s.review(ctx, "return", id, reviewerID, comment, model.StatusReturned)
}

func (s *Service) review(ctx context.Context, op, id, reviewerID, comment string, to model.Status) (model.MonthlyEntry, error) {
	if strings.TrimSpace(reviewerID) == "" {
		metrics.RecordValidationFailure(op)
		return model.MonthlyEntry{}, &ValidationError{Fields: []string{"reviewer_id"}, Message: "missing required fields"}
	}

	cur, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return model.MonthlyEntry{}, err
	}
	if !cur.Status.CanTransition(to) {
		return model.MonthlyEntry{}, s.reject(ctx, op, id, cur.Status, to)
	}

	from := cur.Status
	now := s.clock()
	cur.Status = to
	cur.ReviewedBy = reviewerID
	cur.ReviewedAt = &now
	cur.ReviewComment = comment
	cur.UpdatedAt = now

	if err := s.commit(ctx, op, cur, from, to); err != nil {
		return model.MonthlyEntry{}, err
	}

	s.transitioned(ctx, cur, from, reviewerID)
	typ := model.EventApproved
	if to == model.StatusReturned {
		typ = model.EventReturned
	}
	s.emit(ctx, typ, cur, reviewerID, comment)
	return cur, nil
}

// AddMentorScore records a 1-10 mentor rating in any status. Stored scores
// are not recomputed.
func (s *Service) AddMentorScore(ctx context.Context, id string, score float64, reviewerID string) (model.MonthlyEntry, error) {
	if math.IsNaN(score) || s.validate.Var(score, "min=1,max=10") != nil {
		metrics.RecordValidationFailure("mentor_score")
		return model.MonthlyEntry{}, &ValidationError{Fields: []string{"mentor_score"}, Message: "value out of range"}
	}

	e, err := s.entries.SetMentorScore(ctx, id, score, s.clock())
	if err != nil {
		return model.MonthlyEntry{}, err
	}
	metrics.RecordMentorScore()
	s.logger.Info(ctx, "mentor score recorded",
		logger.String("entry_id", id),
		logger.Float64("mentor_score", score),
		logger.String("reviewer_id", reviewerID),
	)
	s.emit(ctx, model.EventMentorScore, e, reviewerID, "")
	return e, nil
}

// commit writes e only if the stored status still equals expected. A lost
// race is reported as an invalid transition from the status that won.
func (s *Service) commit(ctx context.Context, op string, e model.MonthlyEntry, expected, to model.Status) error {
	err := s.entries.UpdateEntry(ctx, e, expected)
	if !errors.Is(err, repository.ErrStatusConflict) {
		return err
	}
	from := expected
	if cur, gerr := s.entries.GetEntry(ctx, e.ID); gerr == nil {
		from = cur.Status
	}
	return s.reject(ctx, op, e.ID, from, to)
}

func (s *Service) reject(ctx context.Context, op, id string, from, to model.Status) error {
	metrics.RecordInvalidTransition(op)
	s.logger.Warn(ctx, "transition rejected",
		logger.String("op", op),
		logger.String("entry_id", id),
		logger.String("from", string(from)),
		logger.String("to", string(to)),
	)
	return &TransitionError{EntryID: id, Op: op, From: from, To: to}
}

func (s *Service) transitioned(ctx context.Context, e model.MonthlyEntry, from model.Status, actor string, extra ...logger.Field) {
	metrics.RecordTransition(string(e.Status))
	fields := append([]logger.Field{
		logger.String("entry_id", e.ID),
		logger.String("from", string(from)),
		logger.String("to", string(e.Status)),
		logger.String("actor", actor),
	}, extra...)
	s.logger.Info(ctx, "entry transitioned", fields...)
}

func (s *Service) emit(ctx context.Context, typ model.EventType, e model.MonthlyEntry, actor, comment string) {
	s.notifier.Notify(ctx, model.TransitionEvent{
		EventID:    s.newID(),
		Type:       typ,
		EntryID:    e.ID,
		EmployeeID: e.EmployeeID,
		ClientID:   e.ClientID,
		Month:      e.Month,
		Status:     e.Status,
		MonthScore: e.MonthScore,
		ActorID:    actor,
		Comment:    comment,
		At:         e.UpdatedAt,
	})
}
