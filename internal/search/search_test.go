package search

import (
	"errors"
	"testing"
	"time"

	"github.com/wellmota/go-gym-backend/internal/domain"
)

func fptr(f float64) *float64 { return &f }
func sptr(s string) *string   { return &s }

func sampleGyms() []domain.Gym {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []domain.Gym{
		{ID: "g1", Title: "Crossfit Downtown", Latitude: -23.5505, Longitude: -46.6333, CreatedAt: base},
		{ID: "g2", Title: "Academia Central", Description: sptr("Crossfit and weights"), Latitude: -23.5515, Longitude: -46.6343, CreatedAt: base.Add(time.Hour)},
		{ID: "g3", Title: "Yoga Studio", Latitude: -22.9068, Longitude: -43.1729, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func validParams(q string) Params {
	p := Params{Query: q}
	p.Normalize()
	return p
}

func TestNormalize_Defaults(t *testing.T) {
	p := Params{Query: "x"}
	p.Normalize()
	if p.Page != 1 || p.PerPage != 20 || p.SortBy != SortByName || p.SortOrder != OrderAsc {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestValidate_Rules(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Params)
		want error
	}{
		{"blank query", func(p *Params) { p.Query = "   " }, ErrEmptyQuery},
		{"page zero", func(p *Params) { p.Page = 0 }, ErrPageRange},
		{"per_page over cap", func(p *Params) { p.PerPage = 101 }, ErrPerPageRange},
		{"bad sort key", func(p *Params) { p.SortBy = "title" }, ErrSortBy},
		{"bad sort order", func(p *Params) { p.SortOrder = "up" }, ErrSortOrder},
		{"latitude range", func(p *Params) { p.UserLat = fptr(91) }, ErrLatitudeRange},
		{"longitude range", func(p *Params) { p.UserLon = fptr(-181) }, ErrLongitudeRange},
		{"zero max distance", func(p *Params) { p.MaxDistance = fptr(0) }, ErrMaxDistanceRange},
		{"huge max distance", func(p *Params) { p.MaxDistance = fptr(50001) }, ErrMaxDistanceRange},
		{"distance sort without coords", func(p *Params) { p.SortBy = SortByDistance }, ErrMissingCoordinates},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validParams("gym")
			tc.mut(&p)
			err := p.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v; want %v", err, tc.want)
			}
			if !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("Validate() = %v; does not wrap ErrInvalidParams", err)
			}
		})
	}

	p := validParams("gym")
	if err := p.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
}

func TestRun_TextMatchTitleAndDescription(t *testing.T) {
	p := validParams("CROSSFIT")
	page := Run(sampleGyms(), p)
	if page.TotalCount != 2 {
		t.Fatalf("TotalCount = %d; want 2 (title match + description match)", page.TotalCount)
	}
	// name sort ascending: Academia Central before Crossfit Downtown
	if page.Items[0].ID != "g2" || page.Items[1].ID != "g1" {
		t.Fatalf("unexpected order: %+v", page.Items)
	}
}

func TestRun_NoCoordinatesNoDistance(t *testing.T) {
	page := Run(sampleGyms(), validParams("gym"))
	for _, it := range page.Items {
		if it.Distance != nil {
			t.Fatalf("distance attached without coordinates: %+v", it)
		}
	}
}

func TestRun_RadiusFilterAndRounding(t *testing.T) {
	p := validParams("a") // matches all three titles
	p.UserLat = fptr(-23.5505)
	p.UserLon = fptr(-46.6333)
	p.MaxDistance = fptr(5000)

	page := Run(sampleGyms(), p)
	if page.TotalCount != 2 {
		t.Fatalf("TotalCount = %d; want 2 (Rio gym beyond 5 km)", page.TotalCount)
	}
	for _, it := range page.Items {
		if it.Distance == nil {
			t.Fatalf("missing distance on %s", it.ID)
		}
		cents := *it.Distance * 100
		if cents != float64(int64(cents)) {
			t.Errorf("distance %v not rounded to 2 decimals", *it.Distance)
		}
	}
}

func TestRun_DistanceSortOrders(t *testing.T) {
	p := validParams("a")
	p.SortBy = SortByDistance
	p.UserLat = fptr(-23.5505)
	p.UserLon = fptr(-46.6333)

	page := Run(sampleGyms(), p)
	if len(page.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(page.Items))
	}
	if page.Items[0].ID != "g1" || page.Items[2].ID != "g3" {
		t.Fatalf("asc distance order wrong: %+v", page.Items)
	}

	p.SortOrder = OrderDesc
	page = Run(sampleGyms(), p)
	if page.Items[0].ID != "g3" || page.Items[2].ID != "g1" {
		t.Fatalf("desc distance order wrong: %+v", page.Items)
	}
}

func TestRun_CreatedAtSort(t *testing.T) {
	p := validParams("a")
	p.SortBy = SortByCreatedAt
	p.SortOrder = OrderDesc

	page := Run(sampleGyms(), p)
	if page.Items[0].ID != "g3" || page.Items[2].ID != "g1" {
		t.Fatalf("createdAt desc order wrong: %+v", page.Items)
	}
}

func TestRun_PaginationInvariants(t *testing.T) {
	gyms := make([]domain.Gym, 0, 7)
	base := time.Now().UTC()
	for i := 0; i < 7; i++ {
		gyms = append(gyms, domain.Gym{
			ID:        string(rune('a' + i)),
			Title:     "Gym " + string(rune('A'+i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	perPage := 3
	seen := 0
	for pageNum := 1; ; pageNum++ {
		p := validParams("gym")
		p.Page = pageNum
		p.PerPage = perPage
		page := Run(gyms, p)

		if page.TotalCount != 7 {
			t.Fatalf("TotalCount = %d; want 7", page.TotalCount)
		}
		if page.TotalPages != 3 {
			t.Fatalf("TotalPages = %d; want 3", page.TotalPages)
		}
		if got, want := page.HasNextPage, pageNum < page.TotalPages; got != want {
			t.Fatalf("page %d HasNextPage = %v; want %v", pageNum, got, want)
		}
		if got, want := page.HasPreviousPage, pageNum > 1; got != want {
			t.Fatalf("page %d HasPreviousPage = %v; want %v", pageNum, got, want)
		}
		seen += len(page.Items)
		if !page.HasNextPage {
			break
		}
	}
	if seen != 7 {
		t.Fatalf("sum of page sizes = %d; want total count 7", seen)
	}

	// Past-the-end page: empty slice, flags still derived from totals.
	p := validParams("gym")
	p.Page = 9
	p.PerPage = perPage
	page := Run(gyms, p)
	if len(page.Items) != 0 || page.HasNextPage {
		t.Fatalf("past-the-end page = %+v", page)
	}
}
