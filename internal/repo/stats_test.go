package repo

import (
	"context"
	"testing"
	"time"

	"github.com/wellmota/go-gym-backend/internal/domain"
)

func TestCheckInsStats_Empty(t *testing.T) {
	db := newTestDB(t, &domain.CheckIn{})

	count, maxTS, err := CheckInsStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("CheckInsStats: %v", err)
	}
	if count != 0 || maxTS != nil {
		t.Fatalf("empty stats = (%d, %v); want (0, nil)", count, maxTS)
	}
}

func TestCheckInsStats_CountAndLatest(t *testing.T) {
	db := newTestDB(t, &domain.CheckIn{})

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	latest := base.Add(48 * time.Hour)
	for _, c := range []*domain.CheckIn{
		{ID: "c1", UserID: "u1", GymID: "g1", CreatedAt: base},
		{ID: "c2", UserID: "u1", GymID: "g1", CreatedAt: latest},
		{ID: "c3", UserID: "u2", GymID: "g1", CreatedAt: latest.Add(time.Hour)},
	} {
		if err := db.Create(c).Error; err != nil {
			t.Fatalf("seed %s: %v", c.ID, err)
		}
	}

	count, maxTS, err := CheckInsStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("CheckInsStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d; want 2", count)
	}
	if maxTS == nil || !maxTS.Equal(latest) {
		t.Fatalf("maxCreatedAt = %v; want %v", maxTS, latest)
	}
}

func TestIdempotency_RoundTripAndDuplicate(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "u1", "g1", "k1", "c1", 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.CheckInID != "c1" || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if _, err := CreateIdempotency(ctx, db, "u1", "g1", "k1", "c2", 201, time.Hour); err != ErrDuplicate {
		t.Fatalf("duplicate create err = %v; want ErrDuplicate", err)
	}

	got, err := GetIdempotency(ctx, db, "u1", "g1", "k1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.CheckInID != "c1" {
		t.Fatalf("lookup returned %+v; want original record", got)
	}

	// Expired records are invisible.
	if _, err := GetIdempotency(ctx, db, "u1", "g1", "k1", time.Now().UTC().Add(2*time.Hour)); err != ErrNotFound {
		t.Fatalf("expired lookup err = %v; want ErrNotFound", err)
	}
}
