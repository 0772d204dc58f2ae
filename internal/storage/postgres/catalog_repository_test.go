package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nadi/reservation-engine/internal/domain"
	"github.com/nadi/reservation-engine/internal/testutil"
)

func TestCatalogRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewCatalogRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("courts", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		court := domain.Court{ID: uuid.NewString(), VenueID: "v1", SportID: "padel", Name: "Center", MinPlayers: 2, MaxPlayers: 4, Active: true}
		if err := repo.CreateCourt(ctx, court); err != nil {
			t.Fatalf("create court: %v", err)
		}
		got, err := repo.GetCourt(ctx, court.ID)
		if err != nil {
			t.Fatalf("get court: %v", err)
		}
		if got != court {
			t.Fatalf("expected %+v, got %+v", court, got)
		}
		if _, err := repo.GetCourt(ctx, uuid.NewString()); !errors.Is(err, domain.ErrCourtNotFound) {
			t.Fatalf("expected ErrCourtNotFound, got %v", err)
		}
		if _, err := repo.GetCourt(ctx, "bogus"); !errors.Is(err, domain.ErrCourtNotFound) {
			t.Fatalf("expected ErrCourtNotFound for malformed id, got %v", err)
		}

		courts, err := repo.ListCourts(ctx)
		if err != nil || len(courts) != 1 {
			t.Fatalf("expected 1 court, got %+v, %v", courts, err)
		}
	})

	t.Run("price rules", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		courtID := testutil.InsertCourt(t, ctx, pool, "Center")

		rule := domain.PriceRule{ID: uuid.NewString(), CourtID: courtID, Weekday: time.Monday, StartMinute: 480, EndMinute: 720, PricePerSlot: 1500, Currency: "USD"}
		if err := repo.CreatePriceRule(ctx, rule); err != nil {
			t.Fatalf("create rule: %v", err)
		}

		overlap := rule
		overlap.ID = uuid.NewString()
		overlap.StartMinute = 600
		overlap.EndMinute = 780
		if err := repo.CreatePriceRule(ctx, overlap); !errors.Is(err, domain.ErrPriceRuleOverlap) {
			t.Fatalf("expected ErrPriceRuleOverlap, got %v", err)
		}

		sunday := rule
		sunday.ID = uuid.NewString()
		sunday.Weekday = time.Sunday
		if err := repo.CreatePriceRule(ctx, sunday); err != nil {
			t.Fatalf("expected rule on other weekday accepted, got %v", err)
		}

		orphan := rule
		orphan.ID = uuid.NewString()
		orphan.CourtID = uuid.NewString()
		if err := repo.CreatePriceRule(ctx, orphan); !errors.Is(err, domain.ErrCourtNotFound) {
			t.Fatalf("expected ErrCourtNotFound, got %v", err)
		}

		rules, err := repo.ListPriceRules(ctx, courtID)
		if err != nil {
			t.Fatalf("list rules: %v", err)
		}
		if len(rules) != 2 || rules[0].Weekday != time.Sunday || rules[1].StartMinute != 480 {
			t.Fatalf("unexpected rules: %+v", rules)
		}
		if _, err := repo.ListPriceRules(ctx, uuid.NewString()); !errors.Is(err, domain.ErrCourtNotFound) {
			t.Fatalf("expected ErrCourtNotFound, got %v", err)
		}
	})
}
