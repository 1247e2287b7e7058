package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/levigross/grequests"

	"bsrating/beatmap"
)

const downloadTimeout = 10 * time.Minute

var rateLimitedFrom atomic.Pointer[time.Time]

// rateLimited returns how long to cool down after a 429, growing with the
// time since the first one of the current streak.
func rateLimited() time.Duration {
	lastLimit := rateLimitedFrom.Load()
	now := time.Now()
	rateLimitedFrom.CompareAndSwap(nil, &now)
	if lastLimit != nil {
		return max(time.Minute, time.Since(*lastLimit))
	}
	return time.Minute
}

var errNotZip = errors.New("not a valid zip file")

// DownloadMap fetches the version of BeatSaver map id whose content hash is
// hash and extracts its beatmap files into "<songFolder>/<id> (<name>)". It
// returns the created folder. A map updated since hash was ranked has no
// matching version and yields MapNotFoundError.
func DownloadMap(ctx context.Context, src *OnlineSource, id, hash, songFolder string) (string, error) {
	m, err := fetchWithRetry(ctx, src, "beatsaver id "+id, func(attempt int) (*BeatSaverMap, error) {
		return src.BeatSaverByID(ctx, id, attempt)
	})
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", &beatmap.MapNotFoundError{Path: id}
	}
	version, ok := m.Version(hash)
	if !ok || version.DownloadURL == "" {
		return "", &beatmap.MapNotFoundError{Path: id, Err: fmt.Errorf("no published version with hash %q", hash)}
	}

	data, err := downloadZip(ctx, src, version.DownloadURL)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", id, err)
	}
	files, err := extractMapFiles(id, data)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(songFolder, folderName(id, m.Name))
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return "", err
	}
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(dir, name), contents, 0o644); err != nil {
			return "", err
		}
	}
	log.Printf("%s downloaded (%s)", id, m.Name)
	return dir, nil
}

func downloadZip(ctx context.Context, src *OnlineSource, u string) ([]byte, error) {
	for {
		done, err := src.limiter.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := grequests.Get(u, &grequests.RequestOptions{
			Context:        ctx,
			RequestTimeout: downloadTimeout,
		})
		done()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Close()
			wait := rateLimited()
			log.Printf("rate limited, cooling down %s", wait)
			if err := src.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		rateLimitedFrom.Store(nil)
		if resp.StatusCode == http.StatusNotFound {
			resp.Close()
			return nil, &beatmap.MapNotFoundError{Path: u}
		}
		if !resp.Ok {
			resp.Close()
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		data := resp.Bytes()
		resp.Close()
		return data, nil
	}
}

// extractMapFiles returns the info and difficulty files of a map zip keyed by
// name. Entries inside sub folders are skipped.
func extractMapFiles(id string, data []byte) (map[string][]byte, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		Fail("_not_zip", id, err.Error())
		return nil, fmt.Errorf("map %s: %w: %v", id, errNotZip, err)
	}

	files := make(map[string][]byte)
	for _, file := range zipReader.File {
		if !strings.EqualFold(filepath.Ext(file.Name), ".dat") {
			continue
		}
		if file.FileInfo().IsDir() || strings.ContainsAny(file.Name, `/\`) {
			Fail("_broken_files", id, file.Name)
			continue
		}
		contents, err := readZipFile(file)
		if err != nil {
			return nil, fmt.Errorf("map %s: reading %s: %w", id, file.Name, err)
		}
		files[file.Name] = contents
	}

	if _, ok := files["Info.dat"]; !ok {
		if _, ok := files["info.dat"]; !ok {
			return nil, &beatmap.MapNotFoundError{Path: id + "/Info.dat"}
		}
	}
	return files, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	r, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// folderName is the CustomLevels folder name of a map, "<id> (<name>)".
func folderName(id, name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, name)
	return fmt.Sprintf("%s (%s)", id, strings.TrimSpace(name))
}
