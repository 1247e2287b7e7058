package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"bsrating/beatmap"
	"bsrating/tokens"
)

// Playlist is a .bplist file listing ranked maps.
type Playlist struct {
	Songs []struct {
		Hash         string `json:"hash"`
		Difficulties []struct {
			Characteristic string `json:"characteristic"`
			Name           string `json:"name"`
		} `json:"difficulties"`
	} `json:"songs"`
}

// readPlaylists merges the playlists into one sorted list of Standard
// (hash, difficulty) pairs without duplicates.
func readPlaylists(paths ...string) ([]LevelKey, error) {
	seen := make(map[LevelKey]bool)
	var keys []LevelKey
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var p Playlist
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, song := range p.Songs {
			for _, diff := range song.Difficulties {
				if !strings.EqualFold(diff.Characteristic, beatmap.StandardCharacteristic) {
					continue
				}
				key := LevelKey{Hash: strings.ToLower(song.Hash), Difficulty: beatmap.CanonicalDifficulty(diff.Name)}
				if !seen[key] {
					seen[key] = true
					keys = append(keys, key)
				}
			}
		}
	}
	slices.SortFunc(keys, func(a, b LevelKey) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return keys, nil
}

// FolderIndex maps BeatSaver ids to song folders named "<id> (<name>)".
type FolderIndex struct {
	mu      sync.Mutex
	folders map[string]string
}

func indexSongFolder(songFolder string) (*FolderIndex, error) {
	idx := &FolderIndex{folders: make(map[string]string)}
	if songFolder == "" {
		return idx, nil
	}
	entries, err := os.ReadDir(songFolder)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, _, _ := strings.Cut(e.Name(), " ")
		idx.folders[id] = filepath.Join(songFolder, e.Name())
	}
	return idx, nil
}

func (f *FolderIndex) Lookup(id string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir, ok := f.folders[id]
	return dir, ok
}

func (f *FolderIndex) Add(id, dir string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders[id] = dir
}

type DatasetOptions struct {
	Folder     string
	SSPlaylist string
	BLPlaylist string
	UseBL      bool
	Limit      int
	SkipFetch  bool
	Download   bool
}

type DatasetReport struct {
	Fetched     int
	FetchFailed int
	Written     int
	WriteFailed int
}

type datasetBuilder struct {
	env     Env
	store   *Store
	src     *OnlineSource
	folders *FolderIndex
	opts    DatasetOptions
}

// BuildDataset labels every ranked difficulty of the playlists and writes
// one canonical sample per difficulty into <folder>/dataset.
func BuildDataset(ctx context.Context, env Env, store *Store, src *OnlineSource, opts DatasetOptions) (DatasetReport, error) {
	var report DatasetReport
	out := filepath.Join(opts.Folder, "dataset")
	if err := os.MkdirAll(out, 0o777); err != nil {
		return report, err
	}

	if !opts.SkipFetch {
		log.Println("1. Reading playlists...")
		paths := []string{opts.SSPlaylist}
		if opts.UseBL && opts.BLPlaylist != "" {
			paths = append(paths, opts.BLPlaylist)
		}
		keys, err := readPlaylists(paths...)
		if err != nil {
			return report, err
		}
		if opts.Limit > 0 && len(keys) > opts.Limit {
			keys = keys[:opts.Limit]
		}
		folders, err := indexSongFolder(env.SongFolder)
		if err != nil {
			return report, err
		}

		log.Printf("2. Fetching map info for %d difficulties...", len(keys))
		b := &datasetBuilder{env: env, store: store, src: src, folders: folders, opts: opts}
		report.Fetched, report.FetchFailed, err = b.fetchAll(ctx, keys)
		if err != nil {
			return report, err
		}
	}

	log.Println("3. Processing difficulty files...")
	var err error
	report.Written, report.WriteFailed, err = writeSamples(ctx, store, out)
	if err != nil {
		return report, err
	}
	log.Printf("%d maps failed to load!", report.WriteFailed)
	return report, nil
}

func (b *datasetBuilder) fetchAll(ctx context.Context, keys []LevelKey) (ok, failed int, err error) {
	var okCount, failCount atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRequests)
	for _, key := range keys {
		g.Go(Guard(func() error {
			if err := b.fetchLevel(ctx, key); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failCount.Add(1)
				Fail("_fetch", key.ID(), err.Error())
				return nil
			}
			n := okCount.Add(1)
			if n%50 == 0 {
				log.Printf("%d/%d fetched", n, len(keys))
			}
			return nil
		}))
	}
	err = g.Wait()
	return int(okCount.Load()), int(failCount.Load()), err
}

func (b *datasetBuilder) fetchLevel(ctx context.Context, key LevelKey) error {
	existing, found, err := b.store.Level(key)
	if err != nil {
		return err
	}
	if found {
		dir, ok := b.folders.Lookup(existing.ID)
		if !ok {
			return &beatmap.MapNotFoundError{Path: existing.ID, Err: errors.New("no song folder")}
		}
		infoFile, err := beatmap.FindInfoFile(os.DirFS(dir))
		if err != nil {
			return err
		}
		existing.SongPath, existing.InfoFile = dir, infoFile
		return b.store.UpsertLevel(existing)
	}

	info, err := b.src.LoadInfoByHash(ctx, key.Hash, key.Difficulty, b.opts.UseBL)
	if err != nil {
		return err
	}
	stars, err := info.Stars()
	if err != nil {
		return err
	}
	dir, ok := b.folders.Lookup(info.ID)
	if !ok {
		if !b.opts.Download || b.env.SongFolder == "" {
			return &beatmap.MapNotFoundError{Path: info.ID, Err: errors.New("no song folder")}
		}
		dir, err = DownloadMap(ctx, b.src, info.ID, key.Hash, b.env.SongFolder)
		if err != nil {
			return err
		}
		b.folders.Add(info.ID, dir)
	}
	infoFile, err := beatmap.FindInfoFile(os.DirFS(dir))
	if err != nil {
		return err
	}
	return b.store.UpsertLevel(Level{
		LevelKey: key,
		ID:       info.ID,
		Name:     info.Name,
		Stars:    stars,
		SongPath: dir,
		InfoFile: infoFile,
	})
}

// writeSamples writes the canonical sample of every indexed level. Parse
// and missing-file errors are counted per map and do not stop the batch.
func writeSamples(ctx context.Context, store *Store, out string) (ok, failed int, err error) {
	levels, err := store.Levels()
	if err != nil {
		return 0, 0, err
	}
	var okCount, failCount atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, l := range levels {
		g.Go(Guard(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := writeSample(l, out); err != nil {
				failCount.Add(1)
				Fail("_parse", l.LevelKey.ID(), err.Error())
				return nil
			}
			okCount.Add(1)
			return nil
		}))
	}
	err = g.Wait()
	return int(okCount.Load()), int(failCount.Load()), err
}

func writeSample(l Level, out string) error {
	fsys := os.DirFS(l.SongPath)
	info, err := beatmap.DecodeInfoFS(fsys)
	if err != nil {
		return err
	}
	song, err := info.Song(l.Difficulty)
	if err != nil {
		return err
	}
	bm, err := beatmap.DecodeDifficultyFS(fsys, song)
	if err != nil {
		return err
	}
	return tokens.WriteSample(filepath.Join(out, l.LevelKey.ID()+".json"), bm.Sample(l.Stars))
}
