package main

import (
	"errors"
	"strings"
	"time"
)

// ScoreSaberLeaderboard is the subset of the ScoreSaber
// /leaderboard/by-hash/{hash}/info response used for labelling.
type ScoreSaberLeaderboard struct {
	ID          int       `json:"id"`
	SongHash    string    `json:"songHash"`
	SongName    string    `json:"songName"`
	Difficulty  SSDiff    `json:"difficulty"`
	Ranked      bool      `json:"ranked"`
	Stars       float64   `json:"stars"`
	CreatedDate time.Time `json:"createdDate"`
}

type SSDiff struct {
	Difficulty    int    `json:"difficulty"`
	GameMode      string `json:"gameMode"`
	DifficultyRaw string `json:"difficultyRaw"`
}

// BeatSaverMap is the subset of a BeatSaver /maps/hash/{hash} or
// /maps/id/{id} response.
type BeatSaverMap struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Versions  []BeatSaverVersion `json:"versions"`
}

type BeatSaverVersion struct {
	Hash        string `json:"hash"`
	State       string `json:"state"`
	DownloadURL string `json:"downloadURL"`
}

// Version returns the published version matching hash, or the first one.
func (m *BeatSaverMap) Version(hash string) (BeatSaverVersion, bool) {
	for _, v := range m.Versions {
		if strings.EqualFold(v.Hash, hash) {
			return v, true
		}
	}
	if len(m.Versions) > 0 && hash == "" {
		return m.Versions[0], true
	}
	return BeatSaverVersion{}, false
}

// BeatLeaderLeaderboard is the subset of the BeatLeader
// /leaderboard/{hash}/{difficulty}/Standard response.
type BeatLeaderLeaderboard struct {
	ID         string `json:"id"`
	Difficulty struct {
		Stars *float64 `json:"stars"`
	} `json:"difficulty"`
}

type apiError struct {
	ErrorMessage string `json:"errorMessage"`
	Error        string `json:"error"`
}

func (e apiError) message() string {
	if e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	return e.Error
}

var ErrNoStars = errors.New("map has no star rating")

// OnlineLevelInfo is the combined online metadata of one ranked difficulty.
// A nil star value means the leaderboard is unranked or was not fetched.
type OnlineLevelInfo struct {
	ID         string
	Hash       string
	Name       string
	Difficulty string
	SSStars    *float64
	BLStars    *float64
	UpdatedAt  time.Time
}

// Stars returns the ScoreSaber rating, falling back to BeatLeader.
func (i *OnlineLevelInfo) Stars() (float64, error) {
	switch {
	case i.SSStars != nil:
		return *i.SSStars, nil
	case i.BLStars != nil:
		return *i.BLStars, nil
	}
	return 0, ErrNoStars
}

// Key is the dataset key of the difficulty: lowercase hash and difficulty.
func (i *OnlineLevelInfo) Key() LevelKey {
	return LevelKey{Hash: strings.ToLower(i.Hash), Difficulty: i.Difficulty}
}

type LevelKey struct {
	Hash       string
	Difficulty string
}

// ID is the sample file stem, "<hash>_<difficulty>".
func (k LevelKey) ID() string { return k.Hash + "_" + k.Difficulty }
