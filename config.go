package main

import (
	"os"
	"strconv"
	"strings"
)

// Env holds the settings read from the environment (and .env).
type Env struct {
	ScoreSaberURL string
	BeatSaverURL  string
	BeatLeaderURL string
	SongFolder    string
	Retries       int
	DatasetDB     string
	Addr          string
	Download      bool
}

func loadEnv() Env {
	return Env{
		ScoreSaberURL: getenv("SCORESABER_API_URL", "https://scoresaber.com/api"),
		BeatSaverURL:  getenv("BEATSAVER_API_URL", "https://api.beatsaver.com"),
		BeatLeaderURL: getenv("BEATLEADER_API_URL", "https://api.beatleader.xyz"),
		SongFolder:    os.Getenv("SONG_FOLDER"),
		Retries:       atoiDef(os.Getenv("SS_TIMEOUT_RETRIES"), 5),
		DatasetDB:     getenv("DATASET_DB", "dataset.db"),
		Addr:          getenv("RATING_ADDR", ":8080"),
		Download:      asBool(os.Getenv("DOWNLOAD_MISSING")),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
