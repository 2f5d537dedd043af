package httpserver

import (
	"net/http/httptest"
	"testing"
)

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantPage   int
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{"defaults", "", 1, DefaultPageSize, 0, false},
		{"explicit", "?page=3&limit=20", 3, 20, 40, false},
		{"limit capped", "?limit=500", 1, MaxPageSize, 0, false},
		{"zero page", "?page=0", 0, 0, 0, true},
		{"negative limit", "?limit=-5", 0, 0, 0, true},
		{"non-numeric", "?page=abc", 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/"+tt.query, nil)
			p, err := ParsePageParams(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.Page != tt.wantPage || p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Errorf("params = %+v, want page %d limit %d offset %d",
					p, tt.wantPage, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestNewPage(t *testing.T) {
	params := PageParams{Page: 2, Limit: 10, Offset: 10}

	page := NewPage([]int{1, 2, 3}, params, 23)
	if page.Total != 23 || page.Page != 2 || page.Limit != 10 {
		t.Errorf("page = %+v", page)
	}
	if page.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", page.TotalPages)
	}

	empty := NewPage[int](nil, params, 0)
	if empty.Data == nil {
		t.Error("nil items should serialize as empty array, not null")
	}
	if empty.TotalPages != 0 {
		t.Errorf("TotalPages = %d, want 0", empty.TotalPages)
	}
}
