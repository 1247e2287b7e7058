package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/levigross/grequests"

	"bsrating/beatmap"
)

const requestTimeout = 5 * time.Second

// RetryError is a transient API failure. Wait is how long to back off
// before the next attempt.
type RetryError struct {
	Status int
	Msg    string
	Wait   time.Duration
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("status %d: %s (retry in %s)", e.Status, e.Msg, e.Wait)
}

// backoff is min(2^attempt, 60) seconds.
func backoff(attempt int) time.Duration {
	if attempt >= 6 {
		return 60 * time.Second
	}
	return min(time.Duration(1<<attempt)*time.Second, 60*time.Second)
}

// OnlineSource fetches ranking metadata from ScoreSaber, BeatSaver and
// BeatLeader.
type OnlineSource struct {
	ScoreSaberURL string
	BeatSaverURL  string
	BeatLeaderURL string
	Retries       int

	limiter *Limiter
	sleep   func(context.Context, time.Duration) error
}

func NewOnlineSource(env Env) *OnlineSource {
	return &OnlineSource{
		ScoreSaberURL: strings.TrimRight(env.ScoreSaberURL, "/"),
		BeatSaverURL:  strings.TrimRight(env.BeatSaverURL, "/"),
		BeatLeaderURL: strings.TrimRight(env.BeatLeaderURL, "/"),
		Retries:       env.Retries,
		limiter:       NewLimiter(rateLimit, cooldown, maxConcurrentRequests),
		sleep:         sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type ssQuery struct {
	Difficulty int `url:"difficulty"`
}

// get performs one throttled GET and decodes a 2xx JSON body into v.
func (s *OnlineSource) get(ctx context.Context, u string, attempt int, v any) error {
	done, err := s.limiter.Acquire(ctx)
	if err != nil {
		return err
	}
	defer done()

	resp, err := grequests.Get(u, &grequests.RequestOptions{
		Context:        ctx,
		RequestTimeout: requestTimeout,
		Headers:        map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return &RetryError{Msg: err.Error(), Wait: backoff(attempt)}
	}
	defer resp.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &beatmap.MapNotFoundError{Path: u}
	case !resp.Ok:
		var apiErr apiError
		msg := resp.String()
		if resp.JSON(&apiErr) == nil && apiErr.message() != "" {
			msg = apiErr.message()
		}
		return &RetryError{Status: resp.StatusCode, Msg: msg, Wait: backoff(attempt)}
	}
	if err := resp.JSON(v); err != nil {
		return fmt.Errorf("decoding %s: %w", u, err)
	}
	return nil
}

// ScoreSaber loads the ScoreSaber leaderboard of one difficulty.
func (s *OnlineSource) ScoreSaber(ctx context.Context, hash, difficulty string, attempt int) (*ScoreSaberLeaderboard, error) {
	n := beatmap.DifficultyNumber(difficulty)
	if n < 0 {
		return nil, fmt.Errorf("unknown difficulty %q", difficulty)
	}
	q, err := query.Values(ssQuery{Difficulty: n})
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/leaderboard/by-hash/%s/info?%s", s.ScoreSaberURL, url.PathEscape(hash), q.Encode())
	var lb ScoreSaberLeaderboard
	if err := s.get(ctx, u, attempt, &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

// BeatSaver loads the BeatSaver map with the given hash.
func (s *OnlineSource) BeatSaver(ctx context.Context, hash string, attempt int) (*BeatSaverMap, error) {
	var m BeatSaverMap
	if err := s.get(ctx, s.BeatSaverURL+"/maps/hash/"+url.PathEscape(hash), attempt, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// BeatSaverByID loads the BeatSaver map with the given id.
func (s *OnlineSource) BeatSaverByID(ctx context.Context, id string, attempt int) (*BeatSaverMap, error) {
	var m BeatSaverMap
	if err := s.get(ctx, s.BeatSaverURL+"/maps/id/"+url.PathEscape(id), attempt, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// BeatLeader loads the BeatLeader Standard leaderboard of one difficulty.
func (s *OnlineSource) BeatLeader(ctx context.Context, hash, difficulty string, attempt int) (*BeatLeaderLeaderboard, error) {
	u := fmt.Sprintf("%s/leaderboard/%s/%s/%s", s.BeatLeaderURL, url.PathEscape(hash), url.PathEscape(difficulty), beatmap.StandardCharacteristic)
	var lb BeatLeaderLeaderboard
	if err := s.get(ctx, u, attempt, &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

// fetchWithRetry calls fetch until it succeeds, reports not found or runs out
// of attempts. Not found yields a nil result and nil error; running out of
// attempts yields a MapNotFoundError.
func fetchWithRetry[T any](ctx context.Context, s *OnlineSource, what string, fetch func(attempt int) (*T, error)) (*T, error) {
	var last error
	retries := max(s.Retries, 1)
	for attempt := range retries {
		res, err := fetch(attempt)
		if err == nil {
			return res, nil
		}
		var notFound *beatmap.MapNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		var retry *RetryError
		if !errors.As(err, &retry) {
			return nil, err
		}
		last = err
		log.Printf("%s: %v. Retrying (%d / %d)...", what, err, attempt+1, retries)
		if err := s.sleep(ctx, retry.Wait); err != nil {
			return nil, err
		}
	}
	return nil, &beatmap.MapNotFoundError{Path: what, Err: fmt.Errorf("couldn't retrieve map information: %w", last)}
}

// LoadInfoByHash combines the ScoreSaber, optional BeatLeader and BeatSaver
// metadata of one difficulty.
func (s *OnlineSource) LoadInfoByHash(ctx context.Context, hash, difficulty string, useBL bool) (*OnlineLevelInfo, error) {
	what := hash + " " + difficulty
	ss, err := fetchWithRetry(ctx, s, "scoresaber "+what, func(attempt int) (*ScoreSaberLeaderboard, error) {
		return s.ScoreSaber(ctx, hash, difficulty, attempt)
	})
	if err != nil {
		return nil, err
	}

	var bl *BeatLeaderLeaderboard
	if useBL {
		bl, err = fetchWithRetry(ctx, s, "beatleader "+what, func(attempt int) (*BeatLeaderLeaderboard, error) {
			return s.BeatLeader(ctx, hash, difficulty, attempt)
		})
		if err != nil {
			return nil, err
		}
	}

	bs, err := fetchWithRetry(ctx, s, "beatsaver "+hash, func(attempt int) (*BeatSaverMap, error) {
		return s.BeatSaver(ctx, hash, attempt)
	})
	if err != nil {
		return nil, err
	}
	if bs == nil {
		return nil, &beatmap.MapNotFoundError{Path: hash}
	}

	info := &OnlineLevelInfo{
		ID:         bs.ID,
		Hash:       hash,
		Name:       bs.Name,
		Difficulty: difficulty,
		UpdatedAt:  bs.UpdatedAt,
	}
	if ss != nil && ss.Ranked {
		stars := ss.Stars
		info.SSStars = &stars
	}
	if bl != nil {
		info.BLStars = bl.Difficulty.Stars
	}
	return info, nil
}
