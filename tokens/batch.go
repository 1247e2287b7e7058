package tokens

import "bsrating/beatmap"

// Batch holds sequences right-padded to a common length. Mask is true at
// padded positions; real positions always form a prefix.
type Batch struct {
	Features [][][]float64
	Types    [][]beatmap.ElementType
	Mask     [][]bool
	Ratings  []float64
	Lengths  []int
}

func (b Batch) Size() int { return len(b.Types) }

// MaxLen is the padded length of every sequence in the batch.
func (b Batch) MaxLen() int {
	if len(b.Types) == 0 {
		return 0
	}
	return len(b.Types[0])
}

// Collate pads seqs to the length of the longest one.
func Collate(seqs []Sequence) Batch {
	maxLen := 0
	for _, s := range seqs {
		maxLen = max(maxLen, s.Len())
	}
	b := Batch{
		Features: make([][][]float64, len(seqs)),
		Types:    make([][]beatmap.ElementType, len(seqs)),
		Mask:     make([][]bool, len(seqs)),
		Ratings:  make([]float64, len(seqs)),
		Lengths:  make([]int, len(seqs)),
	}
	for i, s := range seqs {
		feats := make([][]float64, maxLen)
		types := make([]beatmap.ElementType, maxLen)
		mask := make([]bool, maxLen)
		copy(feats, s.Features)
		copy(types, s.Types)
		for j := s.Len(); j < maxLen; j++ {
			feats[j] = make([]float64, Width)
			types[j] = Pad
			mask[j] = true
		}
		b.Features[i] = feats
		b.Types[i] = types
		b.Mask[i] = mask
		b.Ratings[i] = s.Rating
		b.Lengths[i] = s.Len()
	}
	return b
}

// Dataset is a list of canonical sample files loaded lazily.
type Dataset struct {
	Paths []string
}

func (d Dataset) Len() int { return len(d.Paths) }

// Sequence loads and encodes the i-th sample.
func (d Dataset) Sequence(i int) (Sequence, error) {
	sample, err := LoadSample(d.Paths[i])
	if err != nil {
		return Sequence{}, err
	}
	return EncodeSample(sample), nil
}

// Batches splits the dataset into collated batches of at most size
// sequences, in order. Samples without events cannot be rated and are
// skipped.
func (d Dataset) Batches(size int) ([]Batch, error) {
	if size < 1 {
		size = 1
	}
	var out []Batch
	var seqs []Sequence
	for i := range d.Len() {
		s, err := d.Sequence(i)
		if err != nil {
			return nil, err
		}
		if s.Len() == 0 {
			continue
		}
		seqs = append(seqs, s)
		if len(seqs) == size {
			out = append(out, Collate(seqs))
			seqs = nil
		}
	}
	if len(seqs) > 0 {
		out = append(out, Collate(seqs))
	}
	return out, nil
}
