package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/seoscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type backend struct {
	name string
	open func(ctx context.Context) (Store, error)
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(ctx context.Context) (Store, error) {
			return NewMemoryStore(ctx, WithMetricsUpdateInterval(10*time.Millisecond)), nil
		}},
		{name: "sqlite", open: func(ctx context.Context) (Store, error) {
			return NewSQLiteStore(ctx, ":memory:")
		}},
	}
}

var base = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

func newEntry(id, month string) model.MonthlyEntry {
	return model.MonthlyEntry{
		ID:                id,
		EmployeeID:        "emp-1",
		ClientID:          "client-1",
		Month:             month,
		GSCOrganicPrev30d: model.Float(1000),
		GSCOrganicCurr30d: model.Float(1100),
		Status:            model.StatusDraft,
		CreatedAt:         base,
		UpdatedAt:         base,
	}
}

func TestStoreContract(t *testing.T) {
	for _, b := range backends() {
		b := b
		Convey("Given a "+b.name+" store with one client", t, func() {
			ctx := context.Background()
			s, err := b.open(ctx)
			So(err, ShouldBeNil)
			defer s.Close()

			So(s.CreateClient(ctx, model.Client{ID: "client-1", Name: "Acme", Type: model.ClientStandard, Active: true}), ShouldBeNil)

			Convey("When the client is read back", func() {
				c, err := s.GetClient(ctx, "client-1")

				Convey("Then every field survives", func() {
					So(err, ShouldBeNil)
					So(c.Name, ShouldEqual, "Acme")
					So(c.Type, ShouldEqual, model.ClientStandard)
					So(c.Active, ShouldBeTrue)
				})
			})

			Convey("When clients are duplicated or missing", func() {
				So(s.CreateClient(ctx, model.Client{ID: "client-1", Name: "Other", Type: model.ClientPremium}), ShouldEqual, ErrDuplicateClient)
				_, err := s.GetClient(ctx, "nope")
				So(err, ShouldEqual, ErrNotFound)
			})

			Convey("When listing clients", func() {
				So(s.CreateClient(ctx, model.Client{ID: "client-0", Name: "Beta", Type: model.ClientPremium}), ShouldBeNil)
				list, err := s.ListClients(ctx)
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 2)
				So(list[0].Name, ShouldEqual, "Acme")
			})

			Convey("When an entry is created", func() {
				meeting := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
				e := newEntry("e-1", "2025-03")
				e.ClientMeetingDate = &meeting
				So(s.CreateEntry(ctx, e), ShouldBeNil)

				Convey("Then it reads back intact", func() {
					got, err := s.GetEntry(ctx, "e-1")
					So(err, ShouldBeNil)
					So(got.Month, ShouldEqual, "2025-03")
					So(*got.GSCOrganicCurr30d, ShouldEqual, 1100)
					So(got.PageSpeedHome, ShouldBeNil)
					So(got.ClientMeetingDate.Equal(meeting), ShouldBeTrue)
					So(got.Status, ShouldEqual, model.StatusDraft)
					So(got.CreatedAt.Equal(base), ShouldBeTrue)
					So(got.Computed.IsZero(), ShouldBeTrue)
				})

				Convey("Then the same slot cannot be taken twice", func() {
					So(s.CreateEntry(ctx, newEntry("e-2", "2025-03")), ShouldEqual, ErrDuplicateEntry)
				})

				Convey("Then unknown ids are not found", func() {
					_, err := s.GetEntry(ctx, "missing")
					So(err, ShouldEqual, ErrNotFound)
				})

				Convey("Then the count reflects it", func() {
					n, err := s.CountEntries(ctx)
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 1)
				})
			})

			Convey("When several months exist", func() {
				for i, m := range []string{"2025-01", "2025-02", "2025-03", "2025-04"} {
					e := newEntry("e-"+m, m)
					e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
					So(s.CreateEntry(ctx, e), ShouldBeNil)
				}
				other := newEntry("other", "2025-02")
				other.EmployeeID = "emp-2"
				So(s.CreateEntry(ctx, other), ShouldBeNil)

				Convey("Then prior entries are the most recent earlier months", func() {
					prior, err := s.FindPriorEntries(ctx, "emp-1", "client-1", "2025-04", 2)
					So(err, ShouldBeNil)
					So(len(prior), ShouldEqual, 2)
					So(prior[0].Month, ShouldEqual, "2025-03")
					So(prior[1].Month, ShouldEqual, "2025-02")
				})

				Convey("Then the first month has no history", func() {
					prior, err := s.FindPriorEntries(ctx, "emp-1", "client-1", "2025-01", 2)
					So(err, ShouldBeNil)
					So(prior, ShouldBeEmpty)
				})

				Convey("Then a non-positive limit is rejected", func() {
					_, err := s.FindPriorEntries(ctx, "emp-1", "client-1", "2025-04", 0)
					So(err, ShouldEqual, ErrInvalidLimit)
				})

				Convey("Then listing filters and orders by month desc", func() {
					all, err := s.ListEntries(ctx, EntryFilter{EmployeeID: "emp-1"})
					So(err, ShouldBeNil)
					So(len(all), ShouldEqual, 4)
					So(all[0].Month, ShouldEqual, "2025-04")

					ranged, err := s.ListEntries(ctx, EntryFilter{FromMonth: "2025-02", ToMonth: "2025-03"})
					So(err, ShouldBeNil)
					So(len(ranged), ShouldEqual, 3)

					page, err := s.ListEntries(ctx, EntryFilter{EmployeeID: "emp-1", Limit: 2, Offset: 1})
					So(err, ShouldBeNil)
					So(len(page), ShouldEqual, 2)
					So(page[0].Month, ShouldEqual, "2025-03")

					skipped, err := s.ListEntries(ctx, EntryFilter{EmployeeID: "emp-1", Offset: 3})
					So(err, ShouldBeNil)
					So(len(skipped), ShouldEqual, 1)

					_, err = s.ListEntries(ctx, EntryFilter{Limit: -1})
					So(err, ShouldEqual, ErrInvalidLimit)
				})
			})

			Convey("When a guarded update runs", func() {
				So(s.CreateEntry(ctx, newEntry("e-1", "2025-03")), ShouldBeNil)
				e, err := s.GetEntry(ctx, "e-1")
				So(err, ShouldBeNil)

				submitted := base.Add(time.Hour)
				e.Status = model.StatusSubmitted
				e.SubmittedAt = &submitted
				e.MonthScore = model.Float(81.25)
				e.UpdatedAt = submitted

				Convey("Then it commits when the status matches", func() {
					So(s.UpdateEntry(ctx, e, model.StatusDraft), ShouldBeNil)
					got, _ := s.GetEntry(ctx, "e-1")
					So(got.Status, ShouldEqual, model.StatusSubmitted)
					So(*got.MonthScore, ShouldEqual, 81.25)
					So(got.SubmittedAt.Equal(submitted), ShouldBeTrue)
				})

				Convey("Then a stale expectation is a conflict", func() {
					So(s.UpdateEntry(ctx, e, model.StatusDraft), ShouldBeNil)
					So(s.UpdateEntry(ctx, e, model.StatusDraft), ShouldEqual, ErrStatusConflict)
				})

				Convey("Then an unknown id is not found", func() {
					e.ID = "missing"
					So(s.UpdateEntry(ctx, e, model.StatusDraft), ShouldEqual, ErrNotFound)
				})
			})

			Convey("When many writers race on the same transition", func() {
				So(s.CreateEntry(ctx, newEntry("e-1", "2025-03")), ShouldBeNil)
				e, _ := s.GetEntry(ctx, "e-1")
				e.Status = model.StatusSubmitted

				var wg sync.WaitGroup
				results := make(chan error, 8)
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						results <- s.UpdateEntry(ctx, e, model.StatusDraft)
					}()
				}
				wg.Wait()
				close(results)

				Convey("Then exactly one wins", func() {
					wins, conflicts := 0, 0
					for err := range results {
						switch err {
						case nil:
							wins++
						case ErrStatusConflict:
							conflicts++
						}
					}
					So(wins, ShouldEqual, 1)
					So(conflicts, ShouldEqual, 7)
				})
			})

			Convey("When a mentor score is written", func() {
				So(s.CreateEntry(ctx, newEntry("e-1", "2025-03")), ShouldBeNil)
				got, err := s.SetMentorScore(ctx, "e-1", 8, base.Add(time.Minute))

				Convey("Then it is stored without touching status", func() {
					So(err, ShouldBeNil)
					So(*got.MentorScore, ShouldEqual, 8)
					So(got.Status, ShouldEqual, model.StatusDraft)
					So(got.UpdatedAt.Equal(base.Add(time.Minute)), ShouldBeTrue)
				})

				Convey("Then unknown ids are not found", func() {
					_, err := s.SetMentorScore(ctx, "missing", 8, base)
					So(err, ShouldEqual, ErrNotFound)
				})

				Convey("Then a later status write from a stale copy keeps it", func() {
					stale := newEntry("e-1", "2025-03")
					stale.Status = model.StatusSubmitted
					So(s.UpdateEntry(ctx, stale, model.StatusDraft), ShouldBeNil)

					got, err := s.GetEntry(ctx, "e-1")
					So(err, ShouldBeNil)
					So(got.Status, ShouldEqual, model.StatusSubmitted)
					So(got.MentorScore, ShouldNotBeNil)
					So(*got.MentorScore, ShouldEqual, 8)
				})
			})
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		s := NewMemoryStore(ctx)
		defer s.Close()

		e := newEntry("e-1", "2025-03")
		So(s.CreateEntry(ctx, e), ShouldBeNil)

		Convey("When the caller mutates its copy", func() {
			*e.GSCOrganicCurr30d = 1

			Convey("Then the stored entry is unaffected", func() {
				got, _ := s.GetEntry(ctx, "e-1")
				So(*got.GSCOrganicCurr30d, ShouldEqual, 1100)
			})
		})
	})
}
