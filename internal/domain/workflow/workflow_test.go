package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/seoscore/internal/adapters/repository"
	"github.com/okian/seoscore/internal/domain/model"
	"github.com/okian/seoscore/internal/domain/scoring"
	"github.com/okian/seoscore/internal/domain/workflow"
)

var now = time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []model.TransitionEvent
}

func (r *recorder) Notify(_ context.Context, ev model.TransitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []model.TransitionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.TransitionEvent(nil), r.events...)
}

type fixture struct {
	ctx    context.Context
	store  *repository.MemoryStore
	svc    *workflow.Service
	events *recorder
}

func setup() *fixture {
	ctx := context.Background()
	store := repository.NewMemoryStore(ctx)
	rec := &recorder{}
	var seq atomic.Int64
	svc := workflow.New(store, store, scoring.NewEngine(scoring.DefaultConfig()),
		workflow.WithNotifier(rec),
		workflow.WithClock(func() time.Time { return now }),
		workflow.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }),
		workflow.WithMaxListLimit(3),
	)
	_, err := svc.CreateClient(ctx, model.Client{ID: "client-1", Name: "Acme", Type: model.ClientStandard, Active: true})
	if err != nil {
		panic(err)
	}
	return &fixture{ctx: ctx, store: store, svc: svc, events: rec}
}

func f(v float64) *float64 { return model.Float(v) }

// completeEntry carries every metric submission requires and scores 93.8
// against the default Standard tables.
func completeEntry(month string) model.MonthlyEntry {
	meeting := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	return model.MonthlyEntry{
		EmployeeID:            "emp-1",
		ClientID:              "client-1",
		Month:                 month,
		GSCOrganicPrev30d:     f(1000),
		GSCOrganicCurr30d:     f(1300),
		GATotalPrev30d:        f(2000),
		GATotalCurr30d:        f(2300),
		SERPTop3Count:         f(5),
		SERPTop10Count:        f(10),
		GMBTop3Count:          f(5),
		PageSpeedHome:         f(95),
		PageSpeedService:      f(95),
		PageSpeedLocation:     f(95),
		SCErrorsHome:          f(0),
		SCErrorsService:       f(0),
		SCErrorsLocation:      f(0),
		DeliverablesBlogs:     f(4),
		DeliverablesBacklinks: f(20),
		DeliverablesOnPage:    f(5),
		DeliverablesTechFixes: f(3),
		NPSClient:             f(8),
		InteractionsCount:     f(5),
		ClientMeetingDate:     &meeting,
	}
}

func (fx *fixture) submitted(month string) model.MonthlyEntry {
	e, err := fx.svc.Create(fx.ctx, completeEntry(month))
	So(err, ShouldBeNil)
	e, _, err = fx.svc.Submit(fx.ctx, e.ID)
	So(err, ShouldBeNil)
	return e
}

func TestCreate(t *testing.T) {
	Convey("Given a workflow with one client", t, func() {
		fx := setup()
		defer fx.store.Close()

		Convey("When an entry arrives with caller-set workflow fields", func() {
			in := completeEntry("2025-03")
			in.ID = "caller-id"
			in.Status = model.StatusApproved
			in.MonthScore = f(100)
			in.MentorScore = f(9)
			in.ReviewedBy = "someone"
			e, err := fx.svc.Create(fx.ctx, in)

			Convey("Then it is stored as a clean draft", func() {
				So(err, ShouldBeNil)
				So(e.ID, ShouldNotEqual, "caller-id")
				So(e.Status, ShouldEqual, model.StatusDraft)
				So(e.Computed.IsZero(), ShouldBeTrue)
				So(e.MentorScore, ShouldBeNil)
				So(e.ReviewedBy, ShouldBeEmpty)
				So(e.CreatedAt.Equal(now), ShouldBeTrue)

				got, err := fx.svc.Get(fx.ctx, e.ID)
				So(err, ShouldBeNil)
				So(*got.PageSpeedHome, ShouldEqual, 95)
			})

			Convey("Then the same slot is refused", func() {
				_, err := fx.svc.Create(fx.ctx, completeEntry("2025-03"))
				So(errors.Is(err, workflow.ErrDuplicateEntry), ShouldBeTrue)
			})
		})

		Convey("When identity fields are missing", func() {
			_, err := fx.svc.Create(fx.ctx, model.MonthlyEntry{ClientID: "client-1"})

			Convey("Then every missing name is reported", func() {
				var verr *workflow.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Fields, ShouldResemble, []string{"employee_id", "month"})
				So(errors.Is(err, workflow.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When the month is malformed", func() {
			in := completeEntry("2025-13")
			_, err := fx.svc.Create(fx.ctx, in)

			var verr *workflow.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Fields, ShouldResemble, []string{"month"})
		})

		Convey("When a metric is out of range", func() {
			in := completeEntry("2025-03")
			in.PageSpeedHome = f(120)
			in.NPSClient = f(0)
			_, err := fx.svc.Create(fx.ctx, in)

			var verr *workflow.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Fields, ShouldResemble, []string{"pagespeed_home", "nps_client"})
		})

		Convey("When the client is unknown", func() {
			in := completeEntry("2025-03")
			in.ClientID = "ghost"
			_, err := fx.svc.Create(fx.ctx, in)

			var verr *workflow.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Fields, ShouldResemble, []string{"client_id"})
		})
	})
}

func TestSubmit(t *testing.T) {
	Convey("Given a complete draft", t, func() {
		fx := setup()
		defer fx.store.Close()
		draft, err := fx.svc.Create(fx.ctx, completeEntry("2025-03"))
		So(err, ShouldBeNil)

		Convey("When it is submitted", func() {
			e, result, err := fx.svc.Submit(fx.ctx, draft.ID)

			Convey("Then it is scored and moved to submitted", func() {
				So(err, ShouldBeNil)
				So(result.TotalScore, ShouldEqual, 93.8)
				So(e.Status, ShouldEqual, model.StatusSubmitted)
				So(*e.MonthScore, ShouldEqual, 93.8)
				So(*e.OrganicGrowthPct, ShouldEqual, 30)
				So(*e.TrafficGrowthPct, ShouldEqual, 15)
				So(*e.RankingScore, ShouldEqual, 20)
				So(*e.TechnicalHealthScore, ShouldEqual, 20)
				So(*e.DeliveryScore, ShouldEqual, 15)
				So(*e.RelationshipScore, ShouldEqual, 6.8)
				So(e.SubmittedAt.Equal(now), ShouldBeTrue)
			})

			Convey("Then the stored row matches", func() {
				got, _ := fx.svc.Get(fx.ctx, draft.ID)
				So(got.Status, ShouldEqual, model.StatusSubmitted)
				So(*got.MonthScore, ShouldEqual, 93.8)
			})

			Convey("Then an event is emitted", func() {
				events := fx.events.all()
				So(len(events), ShouldEqual, 1)
				So(events[0].Type, ShouldEqual, model.EventSubmitted)
				So(events[0].EntryID, ShouldEqual, draft.ID)
				So(*events[0].MonthScore, ShouldEqual, 93.8)
			})

			Convey("Then it cannot be submitted again", func() {
				_, _, err := fx.svc.Submit(fx.ctx, draft.ID)
				var terr *workflow.TransitionError
				So(errors.As(err, &terr), ShouldBeTrue)
				So(terr.From, ShouldEqual, model.StatusSubmitted)
				So(errors.Is(err, workflow.ErrInvalidTransition), ShouldBeTrue)
			})
		})

		Convey("When an unknown entry is submitted", func() {
			_, _, err := fx.svc.Submit(fx.ctx, "missing")
			So(errors.Is(err, workflow.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a draft lacking pagespeed_service", t, func() {
		fx := setup()
		defer fx.store.Close()
		in := completeEntry("2025-03")
		in.PageSpeedService = nil
		draft, err := fx.svc.Create(fx.ctx, in)
		So(err, ShouldBeNil)

		Convey("When it is submitted", func() {
			_, _, err := fx.svc.Submit(fx.ctx, draft.ID)

			Convey("Then the missing field is named", func() {
				So(errors.Is(err, workflow.ErrValidation), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "missing required fields: pagespeed_service")
			})

			Convey("Then the entry stays an unscored draft", func() {
				got, _ := fx.svc.Get(fx.ctx, draft.ID)
				So(got.Status, ShouldEqual, model.StatusDraft)
				So(got.Computed.IsZero(), ShouldBeTrue)
				So(fx.events.all(), ShouldBeEmpty)
			})
		})
	})

	Convey("Given zero-valued but present metrics", t, func() {
		fx := setup()
		defer fx.store.Close()
		in := completeEntry("2025-03")
		in.SERPTop3Count = f(0)
		in.GSCOrganicPrev30d = f(0)
		draft, err := fx.svc.Create(fx.ctx, in)
		So(err, ShouldBeNil)

		Convey("Then submission accepts them", func() {
			_, _, err := fx.svc.Submit(fx.ctx, draft.ID)
			So(err, ShouldBeNil)
		})
	})

	Convey("Given two consecutive months of organic decline", t, func() {
		fx := setup()
		defer fx.store.Close()

		feb := completeEntry("2025-02")
		feb.GSCOrganicCurr30d = f(900)
		_, err := fx.svc.Create(fx.ctx, feb)
		So(err, ShouldBeNil)

		mar := completeEntry("2025-03")
		mar.GSCOrganicCurr30d = f(950)
		draft, err := fx.svc.Create(fx.ctx, mar)
		So(err, ShouldBeNil)

		preview, err := fx.svc.Preview(fx.ctx, mar)
		So(err, ShouldBeNil)

		Convey("When March is submitted", func() {
			_, result, err := fx.svc.Submit(fx.ctx, draft.ID)

			Convey("Then exactly five points are deducted", func() {
				So(err, ShouldBeNil)
				So(result.Penalties.Has(scoring.PenaltyConsecutiveNegativeGrowth), ShouldBeTrue)
				So(result.Breakdown.Sum()-result.TotalScore, ShouldAlmostEqual, 5, 1e-9)
				So(result.TotalScore, ShouldEqual, preview.TotalScore)
			})
		})
	})
}

func TestReview(t *testing.T) {
	Convey("Given a submitted entry", t, func() {
		fx := setup()
		defer fx.store.Close()
		e := fx.submitted("2025-03")

		Convey("When it is approved", func() {
			got, err := fx.svc.Approve(fx.ctx, e.ID, "lead-1", "")

			Convey("Then reviewer metadata is set and scores are kept", func() {
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusApproved)
				So(got.ReviewedBy, ShouldEqual, "lead-1")
				So(got.ReviewedAt.Equal(now), ShouldBeTrue)
				So(*got.MonthScore, ShouldEqual, 93.8)
			})

			Convey("Then it is terminal", func() {
				_, err := fx.svc.Return(fx.ctx, e.ID, "lead-1", "late")
				So(errors.Is(err, workflow.ErrInvalidTransition), ShouldBeTrue)
			})
		})

		Convey("When it is returned with a comment", func() {
			got, err := fx.svc.Return(fx.ctx, e.ID, "lead-1", "fix the backlinks count")

			So(err, ShouldBeNil)
			So(got.Status, ShouldEqual, model.StatusReturned)
			So(got.ReviewComment, ShouldEqual, "fix the backlinks count")
			events := fx.events.all()
			So(events[len(events)-1].Type, ShouldEqual, model.EventReturned)
			So(events[len(events)-1].ActorID, ShouldEqual, "lead-1")
		})

		Convey("When it is returned without a comment", func() {
			_, err := fx.svc.Return(fx.ctx, e.ID, "lead-1", "  ")

			Convey("Then it is refused and stays submitted", func() {
				var verr *workflow.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Fields, ShouldResemble, []string{"comment"})
				got, _ := fx.svc.Get(fx.ctx, e.ID)
				So(got.Status, ShouldEqual, model.StatusSubmitted)
			})
		})

		Convey("When no reviewer is named", func() {
			_, err := fx.svc.Approve(fx.ctx, e.ID, "  ", "")
			var verr *workflow.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Fields, ShouldResemble, []string{"reviewer_id"})

			Convey("Then the entry stays submitted", func() {
				got, err := fx.svc.Get(fx.ctx, e.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusSubmitted)
				So(got.ReviewedBy, ShouldBeEmpty)
			})
		})

		Convey("When two reviewers approve at once", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 2)
			for _, who := range []string{"lead-1", "lead-2"} {
				wg.Add(1)
				go func(reviewer string) {
					defer wg.Done()
					_, err := fx.svc.Approve(fx.ctx, e.ID, reviewer, "")
					errs <- err
				}(who)
			}
			wg.Wait()
			close(errs)

			Convey("Then exactly one succeeds", func() {
				ok, invalid := 0, 0
				for err := range errs {
					switch {
					case err == nil:
						ok++
					case errors.Is(err, workflow.ErrInvalidTransition):
						invalid++
					}
				}
				So(ok, ShouldEqual, 1)
				So(invalid, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a draft", t, func() {
		fx := setup()
		defer fx.store.Close()
		draft, err := fx.svc.Create(fx.ctx, completeEntry("2025-03"))
		So(err, ShouldBeNil)

		Convey("Then it cannot be approved", func() {
			_, err := fx.svc.Approve(fx.ctx, draft.ID, "lead-1", "")
			var terr *workflow.TransitionError
			So(errors.As(err, &terr), ShouldBeTrue)
			So(terr.From, ShouldEqual, model.StatusDraft)
			So(terr.To, ShouldEqual, model.StatusApproved)
		})
	})
}

func TestConcurrentSubmit(t *testing.T) {
	Convey("Given a complete draft submitted from many goroutines", t, func() {
		fx := setup()
		defer fx.store.Close()
		draft, err := fx.svc.Create(fx.ctx, completeEntry("2025-03"))
		So(err, ShouldBeNil)

		var wg sync.WaitGroup
		errs := make(chan error, 6)
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := fx.svc.Submit(fx.ctx, draft.ID)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		Convey("Then at most one submission commits", func() {
			ok := 0
			for err := range errs {
				if err == nil {
					ok++
					continue
				}
				So(errors.Is(err, workflow.ErrInvalidTransition), ShouldBeTrue)
			}
			So(ok, ShouldEqual, 1)
			So(len(fx.events.all()), ShouldEqual, 1)
		})
	})
}

func TestMentorScore(t *testing.T) {
	Convey("Given a submitted entry", t, func() {
		fx := setup()
		defer fx.store.Close()
		e := fx.submitted("2025-03")

		Convey("When a mentor score in range is added", func() {
			got, err := fx.svc.AddMentorScore(fx.ctx, e.ID, 9, "mentor-1")

			Convey("Then it is stored without rescoring", func() {
				So(err, ShouldBeNil)
				So(*got.MentorScore, ShouldEqual, 9)
				So(got.Status, ShouldEqual, model.StatusSubmitted)
				So(*got.MonthScore, ShouldEqual, 93.8)
				So(*got.RelationshipScore, ShouldEqual, 6.8)
			})

			Convey("Then an event is emitted", func() {
				events := fx.events.all()
				So(events[len(events)-1].Type, ShouldEqual, model.EventMentorScore)
			})
		})

		Convey("When the score is out of range", func() {
			for _, bad := range []float64{0, 0.5, 10.5, -3} {
				_, err := fx.svc.AddMentorScore(fx.ctx, e.ID, bad, "mentor-1")
				var verr *workflow.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Fields, ShouldResemble, []string{"mentor_score"})
			}
			got, _ := fx.svc.Get(fx.ctx, e.ID)
			So(got.MentorScore, ShouldBeNil)
		})

		Convey("When the boundaries are used", func() {
			_, err := fx.svc.AddMentorScore(fx.ctx, e.ID, 1, "")
			So(err, ShouldBeNil)
			_, err = fx.svc.AddMentorScore(fx.ctx, e.ID, 10, "")
			So(err, ShouldBeNil)
		})

		Convey("When the entry is unknown", func() {
			_, err := fx.svc.AddMentorScore(fx.ctx, "missing", 5, "")
			So(errors.Is(err, workflow.ErrNotFound), ShouldBeTrue)
		})
	})
}

// mentorDuringRead writes a mentor score right after the first entry read,
// between a transition's load and its commit.
type mentorDuringRead struct {
	*repository.MemoryStore
	once sync.Once
}

func (m *mentorDuringRead) GetEntry(ctx context.Context, id string) (model.MonthlyEntry, error) {
	e, err := m.MemoryStore.GetEntry(ctx, id)
	if err != nil {
		return e, err
	}
	m.once.Do(func() {
		_, err = m.SetMentorScore(ctx, id, 9, now)
	})
	return e, err
}

func TestMentorScoreDuringTransition(t *testing.T) {
	Convey("Given a submitted entry", t, func() {
		fx := setup()
		defer fx.store.Close()
		e := fx.submitted("2025-03")

		repo := &mentorDuringRead{MemoryStore: fx.store}
		svc := workflow.New(repo, fx.store, scoring.NewEngine(scoring.DefaultConfig()),
			workflow.WithClock(func() time.Time { return now }),
		)

		Convey("When a mentor score lands while it is being approved", func() {
			got, err := svc.Approve(fx.ctx, e.ID, "lead-1", "")
			So(err, ShouldBeNil)
			So(got.Status, ShouldEqual, model.StatusApproved)

			Convey("Then the stored entry keeps the mentor score", func() {
				stored, err := fx.svc.Get(fx.ctx, e.ID)
				So(err, ShouldBeNil)
				So(stored.Status, ShouldEqual, model.StatusApproved)
				So(stored.MentorScore, ShouldNotBeNil)
				So(*stored.MentorScore, ShouldEqual, 9)
			})
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("Given a draft", t, func() {
		fx := setup()
		defer fx.store.Close()
		draft, err := fx.svc.Create(fx.ctx, completeEntry("2025-03"))
		So(err, ShouldBeNil)

		Convey("When a patch carries raw metrics and system fields", func() {
			p := model.EntryPatch{PageSpeedHome: f(60)}
			p.MonthScore = f(100)
			p.DeliveryScore = f(15)
			got, err := fx.svc.Update(fx.ctx, draft.ID, p)

			Convey("Then only the raw metric is written", func() {
				So(err, ShouldBeNil)
				So(*got.PageSpeedHome, ShouldEqual, 60)
				So(got.Computed.IsZero(), ShouldBeTrue)

				stored, _ := fx.svc.Get(fx.ctx, draft.ID)
				So(*stored.PageSpeedHome, ShouldEqual, 60)
				So(stored.MonthScore, ShouldBeNil)
			})
		})

		Convey("When a patch is out of range", func() {
			_, err := fx.svc.Update(fx.ctx, draft.ID, model.EntryPatch{SCErrorsHome: f(-1)})
			So(errors.Is(err, workflow.ErrValidation), ShouldBeTrue)
		})

		Convey("When the entry has been submitted", func() {
			_, _, err := fx.svc.Submit(fx.ctx, draft.ID)
			So(err, ShouldBeNil)

			p := model.EntryPatch{PageSpeedHome: f(10)}
			p.MonthScore = f(100)
			_, err = fx.svc.Update(fx.ctx, draft.ID, p)

			Convey("Then the edit is refused and the score survives", func() {
				So(errors.Is(err, workflow.ErrInvalidTransition), ShouldBeTrue)
				stored, _ := fx.svc.Get(fx.ctx, draft.ID)
				So(*stored.MonthScore, ShouldEqual, 93.8)
				So(*stored.PageSpeedHome, ShouldEqual, 95)
			})
		})
	})
}

func TestListAndClients(t *testing.T) {
	Convey("Given several entries", t, func() {
		fx := setup()
		defer fx.store.Close()
		for _, m := range []string{"2025-01", "2025-02", "2025-03", "2025-04", "2025-05"} {
			_, err := fx.svc.Create(fx.ctx, completeEntry(m))
			So(err, ShouldBeNil)
		}

		Convey("Then pages are capped", func() {
			got, err := fx.svc.List(fx.ctx, repository.EntryFilter{Limit: 50})
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 3)
			So(got[0].Month, ShouldEqual, "2025-05")
		})

		Convey("Then bad filters are reported", func() {
			_, err := fx.svc.List(fx.ctx, repository.EntryFilter{FromMonth: "May", Status: "archived"})
			var verr *workflow.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Fields, ShouldResemble, []string{"from", "status"})
		})

		Convey("Then preview scores without writing", func() {
			in := completeEntry("2025-06")
			r, err := fx.svc.Preview(fx.ctx, in)
			So(err, ShouldBeNil)
			So(r.TotalScore, ShouldEqual, 93.8)
			n, _ := fx.store.CountEntries(fx.ctx)
			So(n, ShouldEqual, 5)
		})
	})

	Convey("Given clients of both tiers", t, func() {
		fx := setup()
		defer fx.store.Close()
		_, err := fx.svc.CreateClient(fx.ctx, model.Client{Name: "Zeta", Type: model.ClientPremium, Active: true})
		So(err, ShouldBeNil)
		_, err = fx.svc.CreateClient(fx.ctx, model.Client{Name: "Old", Type: model.ClientPremium})
		So(err, ShouldBeNil)

		Convey("Then inactive clients are hidden by default", func() {
			got, err := fx.svc.ListClients(fx.ctx, "", false)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 2)
			So(got[0].Name, ShouldEqual, "Acme")
		})

		Convey("Then type and inactive filters combine", func() {
			got, err := fx.svc.ListClients(fx.ctx, model.ClientPremium, true)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 2)
			So(got[0].Name, ShouldEqual, "Old")
		})

		Convey("Then invalid clients are refused", func() {
			_, err := fx.svc.CreateClient(fx.ctx, model.Client{Name: "X", Type: "Gold"})
			var verr *workflow.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Fields, ShouldResemble, []string{"type"})
		})
	})
}
