package scraper

import (
	"testing"
	"time"

	"github.com/go-rod/rod"
)

func TestTabHealth(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		results []bool
		age     time.Duration
		want    bool
	}{
		{"fresh", nil, 0, false},
		{"two failures", []bool{false, false}, 0, false},
		{"three failures", []bool{false, false, false}, 0, true},
		{"successes heal", []bool{false, false, true, true, false}, 0, false},
		{"old", []bool{true}, retireAge, true},
	}
	for _, tt := range tests {
		h := newTabHealth(now.Add(-tt.age))
		for _, ok := range tt.results {
			h.record(ok)
		}
		if got := h.shouldRetire(now); got != tt.want {
			t.Errorf("%s: shouldRetire = %v, want %v (score %.1f)", tt.name, got, tt.want, h.errScore)
		}
	}
}

func TestTabHealth_UseLimit(t *testing.T) {
	h := newTabHealth(time.Now())
	for range retireUses - 1 {
		h.record(true)
	}
	if h.shouldRetire(time.Now()) {
		t.Fatal("retired before the use limit")
	}
	h.record(true)
	if !h.shouldRetire(time.Now()) {
		t.Error("not retired at the use limit")
	}
}

func TestTabHealth_ScoreFloor(t *testing.T) {
	h := newTabHealth(time.Now())
	for range 4 {
		h.record(true)
	}
	if h.errScore != 0 {
		t.Errorf("errScore = %v, want 0", h.errScore)
	}
}

func TestScraper_RetireCountsAgeFromCreation(t *testing.T) {
	tests := []struct {
		name    string
		created time.Duration
		want    bool
	}{
		{"fresh tab", 0, false},
		{"tab created long ago", retireAge + time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scraper{health: make(map[*rod.Page]*tabHealth)}
			page := &rod.Page{}
			s.track(page, time.Now().Add(-tt.created))

			if got := s.retire(page, true); got != tt.want {
				t.Errorf("retire on first release = %v, want %v", got, tt.want)
			}
			if _, tracked := s.health[page]; tracked == tt.want {
				t.Errorf("tab still tracked = %v after retire = %v", tracked, tt.want)
			}
		})
	}
}
