package beatmap

import "github.com/Masterminds/semver/v3"

// TempoChange sets the tempo from Beat onwards. Several changes may share a
// beat; they are kept in arrival order and never merged.
type TempoChange struct {
	Beat float64
	BPM  float64
}

// legacyBPMEventType is the "_type" of a tempo change inside "_events".
const legacyBPMEventType = 100

var TempoChanges = NewTable("bpm event", map[string]ParseFunc[TempoChange]{
	"2.5.0": tempoChangeV2,
	"3.0.0": tempoChangeV3,
})

// tempoChangeV2 reads "_floatValue"; files older than 2.5.0 carried the
// tempo in the integer "_value".
func tempoChangeV2(_ *semver.Version, raw Raw) (TempoChange, bool, error) {
	bpm := raw.Float("_floatValue", raw.Float("_value", 0))
	return TempoChange{Beat: raw.Float("_time", 0), BPM: bpm}, true, nil
}

func tempoChangeV3(_ *semver.Version, raw Raw) (TempoChange, bool, error) {
	return TempoChange{Beat: raw.Float("b", 0), BPM: raw.Float("m", 0)}, true, nil
}
