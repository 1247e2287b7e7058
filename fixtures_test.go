package main

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const songInfo = `{
	"_version": "2.0.0",
	"_songName": "Fixture",
	"_beatsPerMinute": 120,
	"_difficultyBeatmapSets": [
		{
			"_beatmapCharacteristicName": "Standard",
			"_difficultyBeatmaps": [
				{"_difficulty": "Hard", "_beatmapFilename": "HardStandard.dat", "_noteJumpMovementSpeed": 14},
				{"_difficulty": "Expert", "_beatmapFilename": "ExpertStandard.dat", "_noteJumpMovementSpeed": 16}
			]
		}
	]
}`

const hardDifficulty = `{
	"_version": "2.0.0",
	"_notes": [
		{"_time": 1, "_lineIndex": 1, "_lineLayer": 0, "_type": 0, "_cutDirection": 1},
		{"_time": 2, "_lineIndex": 2, "_lineLayer": 0, "_type": 1, "_cutDirection": 1}
	],
	"_obstacles": [],
	"_events": []
}`

const expertDifficulty = `{
	"version": "3.0.0",
	"colorNotes": [
		{"b": 1, "x": 1, "y": 0, "c": 0, "d": 1},
		{"b": 1.5, "x": 2, "y": 0, "c": 1, "d": 8},
		{"b": 2, "x": 0, "y": 2, "c": 0, "d": 0}
	],
	"bombNotes": [{"b": 3, "x": 1, "y": 1}],
	"obstacles": [{"b": 4, "x": 0, "y": 0, "d": 1, "w": 1, "h": 5}],
	"bpmEvents": []
}`

var songFiles = map[string]string{
	"Info.dat":           songInfo,
	"HardStandard.dat":   hardDifficulty,
	"ExpertStandard.dat": expertDifficulty,
}

func writeSong(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o777); err != nil {
		t.Fatal(err)
	}
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func zipSong(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, contents := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(contents)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testSource(base string) *OnlineSource {
	return &OnlineSource{
		ScoreSaberURL: base + "/ss",
		BeatSaverURL:  base + "/bs",
		BeatLeaderURL: base + "/bl",
		Retries:       3,
		limiter:       NewLimiter(1000, time.Second, 4),
		sleep:         func(ctx context.Context, d time.Duration) error { return ctx.Err() },
	}
}
