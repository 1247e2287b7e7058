package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bsrating/beatmap"
)

func rankingServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request) bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if handler != nil && handler(w, r) {
			return
		}
		switch {
		case r.URL.Path == "/ss/leaderboard/by-hash/abc/info":
			if r.URL.Query().Get("difficulty") != "9" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprint(w, `{"id": 1, "songHash": "ABC", "songName": "Song", "ranked": true, "stars": 7.5}`)
		case r.URL.Path == "/bs/maps/hash/abc":
			fmt.Fprint(w, `{"id": "1a2b", "name": "Song", "updatedAt": "2024-05-01T10:00:00Z"}`)
		case r.URL.Path == "/bl/leaderboard/abc/ExpertPlus/Standard":
			fmt.Fprint(w, `{"id": "x", "difficulty": {"stars": 8.25}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errorMessage": "not found"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadInfoByHash(t *testing.T) {
	srv := rankingServer(t, nil)
	src := testSource(srv.URL)

	info, err := src.LoadInfoByHash(context.Background(), "abc", "ExpertPlus", true)
	if err != nil {
		t.Fatal(err)
	}
	if info.ID != "1a2b" || info.Name != "Song" || info.Difficulty != "ExpertPlus" {
		t.Fatalf("info %+v", info)
	}
	if info.SSStars == nil || *info.SSStars != 7.5 || info.BLStars == nil || *info.BLStars != 8.25 {
		t.Fatalf("stars ss=%v bl=%v", info.SSStars, info.BLStars)
	}
	if stars, err := info.Stars(); err != nil || stars != 7.5 {
		t.Fatalf("Stars = %g, %v", stars, err)
	}
	if !info.UpdatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("updatedAt %v", info.UpdatedAt)
	}

	info, err = src.LoadInfoByHash(context.Background(), "abc", "ExpertPlus", false)
	if err != nil {
		t.Fatal(err)
	}
	if info.BLStars != nil {
		t.Fatalf("BeatLeader fetched without useBL")
	}
}

func TestStarsFallback(t *testing.T) {
	bl := 6.0
	info := OnlineLevelInfo{BLStars: &bl}
	if s, err := info.Stars(); err != nil || s != 6 {
		t.Fatalf("Stars = %g, %v", s, err)
	}
	info.BLStars = nil
	if _, err := info.Stars(); !errors.Is(err, ErrNoStars) {
		t.Fatalf("expected ErrNoStars, got %v", err)
	}
}

func TestUnrankedScoreSaber(t *testing.T) {
	srv := rankingServer(t, func(w http.ResponseWriter, r *http.Request) bool {
		if strings.HasPrefix(r.URL.Path, "/ss/") {
			fmt.Fprint(w, `{"songHash": "ABC", "ranked": false, "stars": 0}`)
			return true
		}
		return false
	})
	info, err := testSource(srv.URL).LoadInfoByHash(context.Background(), "abc", "ExpertPlus", false)
	if err != nil {
		t.Fatal(err)
	}
	if info.SSStars != nil {
		t.Fatalf("unranked leaderboard produced stars %v", *info.SSStars)
	}
	if _, err := info.Stars(); !errors.Is(err, ErrNoStars) {
		t.Fatalf("expected ErrNoStars, got %v", err)
	}
}

func TestFetchWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := rankingServer(t, func(w http.ResponseWriter, r *http.Request) bool {
		if strings.HasPrefix(r.URL.Path, "/ss/") && calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"errorMessage": "busy"}`)
			return true
		}
		return false
	})
	src := testSource(srv.URL)
	var waits []time.Duration
	src.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	lb, err := fetchWithRetry(context.Background(), src, "ss", func(attempt int) (*ScoreSaberLeaderboard, error) {
		return src.ScoreSaber(context.Background(), "abc", "ExpertPlus", attempt)
	})
	if err != nil || lb == nil || lb.Stars != 7.5 {
		t.Fatalf("fetch = %+v, %v", lb, err)
	}
	if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Fatalf("waits %v", waits)
	}
}

func TestFetchWithRetryExhausted(t *testing.T) {
	srv := rankingServer(t, func(w http.ResponseWriter, r *http.Request) bool {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"errorMessage": "down"}`)
		return true
	})
	src := testSource(srv.URL)
	_, err := fetchWithRetry(context.Background(), src, "bs", func(attempt int) (*BeatSaverMap, error) {
		return src.BeatSaver(context.Background(), "abc", attempt)
	})
	var notFound *beatmap.MapNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected MapNotFoundError, got %v", err)
	}
	var retry *RetryError
	if !errors.As(err, &retry) || retry.Msg != "down" || retry.Status != http.StatusInternalServerError {
		t.Fatalf("last retry error not wrapped: %v", err)
	}
}

func TestNotFound(t *testing.T) {
	srv := rankingServer(t, nil)
	src := testSource(srv.URL)

	lb, err := fetchWithRetry(context.Background(), src, "ss", func(attempt int) (*ScoreSaberLeaderboard, error) {
		return src.ScoreSaber(context.Background(), "missing", "Expert", attempt)
	})
	if lb != nil || err != nil {
		t.Fatalf("not found = %+v, %v", lb, err)
	}

	_, err = src.LoadInfoByHash(context.Background(), "missing", "Expert", false)
	var notFound *beatmap.MapNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected MapNotFoundError, got %v", err)
	}

	if _, err := src.ScoreSaber(context.Background(), "abc", "Lawless", 0); err == nil {
		t.Fatalf("expected error for unknown difficulty")
	}
}

func TestBackoff(t *testing.T) {
	tests := map[int]time.Duration{0: time.Second, 1: 2 * time.Second, 3: 8 * time.Second, 5: 32 * time.Second, 6: time.Minute, 40: time.Minute}
	for attempt, want := range tests {
		if got := backoff(attempt); got != want {
			t.Fatalf("backoff(%d) = %s, want %s", attempt, got, want)
		}
	}
}
