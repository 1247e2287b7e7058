package model

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"strconv"
)

type checkpoint struct {
	Config Config
	Params map[string][]float64
}

type param struct {
	name string
	data []float64
}

func (l *Linear) params(prefix string) []param {
	return []param{
		{prefix + ".w", l.W.RawMatrix().Data},
		{prefix + ".b", l.B},
	}
}

// params lists every learned tensor under a stable name. The returned slices
// alias the model's storage.
func (m *Model) params() []param {
	var ps []param
	ps = append(ps, m.TokenEmbed.params("token_embed")...)
	ps = append(ps, param{"type_embed", m.TypeEmbed.Table.RawMatrix().Data})
	for i, l := range m.Layers {
		p := "layers." + strconv.Itoa(i)
		ps = append(ps, l.Attn.Query.params(p+".attn.q")...)
		ps = append(ps, l.Attn.Key.params(p+".attn.k")...)
		ps = append(ps, l.Attn.Val.params(p+".attn.v")...)
		ps = append(ps, l.Attn.Out.params(p+".attn.out")...)
		ps = append(ps, l.FF1.params(p+".ff1")...)
		ps = append(ps, l.FF2.params(p+".ff2")...)
		ps = append(ps,
			param{p + ".norm1.gamma", l.Norm1.Gamma},
			param{p + ".norm1.beta", l.Norm1.Beta},
			param{p + ".norm2.gamma", l.Norm2.Gamma},
			param{p + ".norm2.beta", l.Norm2.Beta},
		)
	}
	ps = append(ps, m.Pool.Score.params("pool")...)
	switch m.Config.Variant {
	case Simple:
		ps = append(ps, m.Head.params("head")...)
	case Uncertainty:
		ps = append(ps, m.Unc1.params("unc1")...)
		ps = append(ps, m.Unc2.params("unc2")...)
		ps = append(ps, m.Mean.params("mean")...)
		ps = append(ps, m.LogVar.params("logvar")...)
	}
	return ps
}

// Save writes the model architecture and parameters to w.
func (m *Model) Save(w io.Writer) error {
	ck := checkpoint{Config: m.Config, Params: map[string][]float64{}}
	for _, p := range m.params() {
		ck.Params[p.name] = p.data
	}
	if err := gob.NewEncoder(w).Encode(ck); err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return nil
}

func (m *Model) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := m.Save(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a checkpoint written by Save. When want is not nil the stored
// architecture must equal it exactly.
func Load(r io.Reader, want *Config) (*Model, error) {
	var ck checkpoint
	if err := gob.NewDecoder(r).Decode(&ck); err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %w", err)
	}
	if want != nil && *want != ck.Config {
		return nil, fmt.Errorf("checkpoint architecture %+v does not match %+v", ck.Config, *want)
	}
	m, err := New(ck.Config, 0)
	if err != nil {
		return nil, fmt.Errorf("checkpoint config: %w", err)
	}
	for _, p := range m.params() {
		data, ok := ck.Params[p.name]
		if !ok {
			return nil, fmt.Errorf("checkpoint is missing parameter %s", p.name)
		}
		if len(data) != len(p.data) {
			return nil, fmt.Errorf("checkpoint parameter %s has %d values, want %d", p.name, len(data), len(p.data))
		}
		copy(p.data, data)
	}
	m.TypeEmbed.zeroPadding()
	return m, nil
}

func LoadFile(path string, want *Config) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Load(bufio.NewReader(f), want)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
