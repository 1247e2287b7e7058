package beatmap

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var infoFileNames = []string{"Info.dat", "info.dat"}

// DecodeFolder decodes every Standard difficulty of the song in dir.
func DecodeFolder(dir string) (map[string]*Beatmap, error) {
	return DecodeFS(os.DirFS(dir))
}

// FindInfoFile returns the name of the info file in fsys.
func FindInfoFile(fsys fs.FS) (string, error) {
	for _, name := range infoFileNames {
		if _, err := fs.Stat(fsys, name); err == nil {
			return name, nil
		}
	}
	return "", &MapNotFoundError{Path: infoFileNames[0], Err: fs.ErrNotExist}
}

// DecodeInfoFS reads and parses the info file of fsys.
func DecodeInfoFS(fsys fs.FS) (*Info, error) {
	name, err := FindInfoFile(fsys)
	if err != nil {
		return nil, err
	}
	raw, err := readRaw(fsys, name)
	if err != nil {
		return nil, err
	}
	return ParseInfo(raw)
}

// DecodeDifficultyFS reads the difficulty file referenced by song.
func DecodeDifficultyFS(fsys fs.FS, song SongInfo) (*Beatmap, error) {
	raw, err := readRaw(fsys, song.Filename)
	if err != nil {
		return nil, err
	}
	b, err := Assemble(song, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", song.Filename, err)
	}
	return b, nil
}

// DecodeFS decodes every Standard difficulty of the song stored in fsys.
// Difficulties that fail are left out; the returned error then describes the
// first failure and wraps it, while the map holds everything that decoded.
func DecodeFS(fsys fs.FS) (map[string]*Beatmap, error) {
	info, err := DecodeInfoFS(fsys)
	if err != nil {
		return nil, err
	}
	refs := info.Standard()
	beatmaps := make(map[string]*Beatmap, len(refs))
	var firstErr error
	var firstErrDiff string
	for _, ref := range refs {
		song, err := info.Song(ref.Difficulty)
		if err == nil {
			var b *Beatmap
			b, err = DecodeDifficultyFS(fsys, song)
			if err == nil {
				beatmaps[song.Difficulty] = b
				continue
			}
		}
		if firstErr == nil {
			firstErr = err
			firstErrDiff = ref.Difficulty
		}
	}
	if firstErr != nil {
		return beatmaps, fmt.Errorf("decoded %d/%d difficulties; first failure %s: %w", len(beatmaps), len(refs), firstErrDiff, firstErr)
	}
	return beatmaps, nil
}

func readRaw(fsys fs.FS, name string) (Raw, error) {
	if name == "" {
		return nil, &MapNotFoundError{Path: "<empty filename>"}
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MapNotFoundError{Path: name, Err: err}
		}
		return nil, err
	}
	// some editors write a UTF-8 BOM
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	raw, err := DecodeRaw(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return raw, nil
}
