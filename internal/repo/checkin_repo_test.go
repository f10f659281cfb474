package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wellmota/go-gym-backend/internal/domain"
)

func TestCreateCheckIn_Success(t *testing.T) {
	db := newTestDB(t, &domain.CheckIn{})

	start := time.Now().UTC().Add(-time.Minute)
	c, err := CreateCheckIn(context.Background(), db, "u1", "g1")
	if err != nil {
		t.Fatalf("CreateCheckIn: %v", err)
	}
	if c.ID == "" || c.UserID != "u1" || c.GymID != "g1" {
		t.Fatalf("unexpected CheckIn fields: %+v", c)
	}
	if c.ValidatedAt != nil {
		t.Fatalf("new check-in must be pending, got ValidatedAt=%v", c.ValidatedAt)
	}
	if c.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt seems unset: %v", c.CreatedAt)
	}
	// round-trip
	got, err := FindCheckIn(context.Background(), db, c.ID)
	if err != nil {
		t.Fatalf("FindCheckIn: %v", err)
	}
	if got.UserID != "u1" || got.GymID != "g1" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestCreateCheckIn_SameDayRejected(t *testing.T) {
	db := newTestDB(t, &domain.CheckIn{})

	if _, err := CreateCheckIn(context.Background(), db, "u1", "g1"); err != nil {
		t.Fatalf("first CreateCheckIn: %v", err)
	}
	// Same user, different gym, same day: still rejected.
	_, err := CreateCheckIn(context.Background(), db, "u1", "g2")
	if !errors.Is(err, ErrSameDay) {
		t.Fatalf("second same-day CreateCheckIn err = %v; want ErrSameDay", err)
	}
	// Different user is unaffected.
	if _, err := CreateCheckIn(context.Background(), db, "u2", "g1"); err != nil {
		t.Fatalf("other user CreateCheckIn: %v", err)
	}
}

func TestCreateCheckIn_PreviousDayDoesNotBlock(t *testing.T) {
	db := newTestDB(t, &domain.CheckIn{})

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	seed := &domain.CheckIn{ID: "old", UserID: "u1", GymID: "g1", CreatedAt: yesterday}
	if err := db.Create(seed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateCheckIn(context.Background(), db, "u1", "g1"); err != nil {
		t.Fatalf("CreateCheckIn after a day: %v", err)
	}
}

func TestFindCheckInOnDate(t *testing.T) {
	db := newTestDB(t, &domain.CheckIn{})

	now := time.Now().UTC()
	from, to := DayWindow(now)

	if _, err := FindCheckInOnDate(context.Background(), db, "u1", from, to); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty window err = %v; want ErrNotFound", err)
	}

	if _, err := CreateCheckIn(context.Background(), db, "u1", "g1"); err != nil {
		t.Fatalf("CreateCheckIn: %v", err)
	}
	got, err := FindCheckInOnDate(context.Background(), db, "u1", from, to)
	if err != nil {
		t.Fatalf("FindCheckInOnDate: %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestMarkValidated_CASSemantics(t *testing.T) {
	db := newTestDB(t, &domain.CheckIn{})

	c, err := CreateCheckIn(context.Background(), db, "u1", "g1")
	if err != nil {
		t.Fatalf("CreateCheckIn: %v", err)
	}

	at := time.Now().UTC()
	got, err := MarkValidated(context.Background(), db, c.ID, at)
	if err != nil {
		t.Fatalf("MarkValidated: %v", err)
	}
	if got.ValidatedAt == nil {
		t.Fatalf("ValidatedAt not set after MarkValidated")
	}

	// Second attempt loses the race.
	if _, err := MarkValidated(context.Background(), db, c.ID, at.Add(time.Second)); !errors.Is(err, ErrValidated) {
		t.Fatalf("second MarkValidated err = %v; want ErrValidated", err)
	}

	// Missing rows are still NotFound, not Validated.
	if _, err := MarkValidated(context.Background(), db, "missing", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing MarkValidated err = %v; want ErrNotFound", err)
	}
}

func TestListCheckInsPage_OrderAndBounds(t *testing.T) {
	db := newTestDB(t, &domain.CheckIn{})

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		c := &domain.CheckIn{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			GymID:     "g1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(c).Error; err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	page, err := ListCheckInsPage(context.Background(), db, "u1", 0, 2, "desc")
	if err != nil {
		t.Fatalf("ListCheckInsPage: %v", err)
	}
	if len(page) != 2 || page[0].ID != "e" || page[1].ID != "d" {
		t.Fatalf("unexpected desc page: %+v", page)
	}

	page, err = ListCheckInsPage(context.Background(), db, "u1", 2, 2, "asc")
	if err != nil {
		t.Fatalf("ListCheckInsPage asc: %v", err)
	}
	if len(page) != 2 || page[0].ID != "c" || page[1].ID != "d" {
		t.Fatalf("unexpected asc page: %+v", page)
	}

	total, err := CountCheckIns(context.Background(), db, "u1")
	if err != nil || total != 5 {
		t.Fatalf("CountCheckIns = %d, %v; want 5", total, err)
	}
}

func TestListCheckInsInRange(t *testing.T) {
	db := newTestDB(t, &domain.CheckIn{})

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"c1", "c2", "c3"} {
		c := &domain.CheckIn{ID: id, UserID: "u1", GymID: "g1", CreatedAt: base.AddDate(0, 0, i*7)}
		if err := db.Create(c).Error; err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	got, err := ListCheckInsInRange(context.Background(), db, base, base.AddDate(0, 0, 8))
	if err != nil {
		t.Fatalf("ListCheckInsInRange: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "c2" {
		t.Fatalf("unexpected range result: %+v", got)
	}
}
