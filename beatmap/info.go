package beatmap

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// StandardCharacteristic is the only beatmap characteristic that is rated.
const StandardCharacteristic = "Standard"

// DifficultyRef points at one difficulty file listed by a song's info file.
type DifficultyRef struct {
	Characteristic string
	Difficulty     string
	Filename       string
	NJS            float64
	NJSOffset      float64
}

// Info is a decoded info file.
type Info struct {
	Version      *semver.Version
	SongName     string
	BPM          float64
	Difficulties []DifficultyRef
}

// SongInfo is the song metadata resolved for one difficulty tier.
type SongInfo struct {
	Version    *semver.Version
	SongName   string
	InitialBPM float64
	NJS        float64
	Difficulty string
	Filename   string
}

var Infos = NewTable("info", map[string]ParseFunc[*Info]{
	"2.0.0": infoV2,
	"4.0.0": infoV4,
})

// ParseInfo decodes an info file of any supported schema.
func ParseInfo(raw Raw) (*Info, error) {
	v, err := fileVersion(raw)
	if err != nil {
		return nil, err
	}
	info, _, err := Infos.Resolve(v, raw)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Standard lists the difficulties of the Standard characteristic.
func (i *Info) Standard() []DifficultyRef {
	var out []DifficultyRef
	for _, d := range i.Difficulties {
		if d.Characteristic == StandardCharacteristic {
			out = append(out, d)
		}
	}
	return out
}

// Song resolves the metadata of a Standard difficulty tier.
func (i *Info) Song(difficulty string) (SongInfo, error) {
	for _, d := range i.Standard() {
		if strings.EqualFold(d.Difficulty, difficulty) {
			return SongInfo{
				Version:    i.Version,
				SongName:   i.SongName,
				InitialBPM: i.BPM,
				NJS:        d.NJS,
				Difficulty: CanonicalDifficulty(d.Difficulty),
				Filename:   d.Filename,
			}, nil
		}
	}
	return SongInfo{}, &ParseError{
		Entity: "info",
		Reason: fmt.Sprintf("difficulty %q not listed for %s", difficulty, StandardCharacteristic),
	}
}

func infoV2(v *semver.Version, raw Raw) (*Info, bool, error) {
	sets, ok := raw.List("_difficultyBeatmapSets")
	if !ok {
		return nil, false, &ParseError{Entity: "info", Reason: "missing _difficultyBeatmapSets"}
	}
	info := &Info{
		Version:  v,
		SongName: raw.String("_songName", ""),
		BPM:      raw.Float("_beatsPerMinute", 0),
	}
	hasStandard := false
	for _, set := range sets {
		characteristic := set.String("_beatmapCharacteristicName", "")
		maps, ok := set.List("_difficultyBeatmaps")
		if characteristic == StandardCharacteristic {
			if !ok {
				return nil, false, &ParseError{Entity: "info", Reason: "Standard set has no _difficultyBeatmaps"}
			}
			hasStandard = true
		}
		for _, m := range maps {
			info.Difficulties = append(info.Difficulties, DifficultyRef{
				Characteristic: characteristic,
				Difficulty:     CanonicalDifficulty(m.String("_difficulty", "")),
				Filename:       m.String("_beatmapFilename", ""),
				NJS:            m.Float("_noteJumpMovementSpeed", 0),
				NJSOffset:      m.Float("_noteJumpStartBeatOffset", 0),
			})
		}
	}
	if !hasStandard {
		return nil, false, &ParseError{Entity: "info", Reason: "no Standard characteristic"}
	}
	return info, true, nil
}

func infoV4(v *semver.Version, raw Raw) (*Info, bool, error) {
	maps, ok := raw.List("difficultyBeatmaps")
	if !ok {
		return nil, false, &ParseError{Entity: "info", Reason: "missing difficultyBeatmaps"}
	}
	info := &Info{Version: v}
	if song, ok := raw.Object("song"); ok {
		info.SongName = song.String("title", "")
	}
	if audio, ok := raw.Object("audio"); ok {
		info.BPM = audio.Float("bpm", 0)
	}
	hasStandard := false
	for _, m := range maps {
		ref := DifficultyRef{
			Characteristic: m.String("characteristic", ""),
			Difficulty:     CanonicalDifficulty(m.String("difficulty", "")),
			Filename:       m.String("beatmapDataFilename", ""),
			NJS:            m.Float("noteJumpMovementSpeed", 0),
			NJSOffset:      m.Float("noteJumpStartBeatOffset", 0),
		}
		if ref.Characteristic == StandardCharacteristic {
			hasStandard = true
		}
		info.Difficulties = append(info.Difficulties, ref)
	}
	if !hasStandard {
		return nil, false, &ParseError{Entity: "info", Reason: "no Standard characteristic"}
	}
	return info, true, nil
}
