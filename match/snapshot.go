package match

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/viant/icdmatch/index/bruteforce"
)

// MarshalBinary encodes the reference set so a built Matcher can be reused
// without rereading the reference table: labelCount(uint32),
// (labelLen(uint32), label)*, then the index encoding of codes and vectors.
func (m *Matcher) MarshalBinary() ([]byte, error) {
	out := binary.LittleEndian.AppendUint32(nil, uint32(len(m.entries)))
	for i := range m.entries {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(m.entries[i].Label)))
		out = append(out, m.entries[i].Label...)
	}
	idx, err := m.idx.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(out, idx...), nil
}

// Unmarshal restores a Matcher produced by MarshalBinary.
func Unmarshal(data []byte, opts ...Option) (*Matcher, error) {
	if len(data) < 4 {
		return nil, errors.New("match: invalid snapshot")
	}
	n := int(binary.LittleEndian.Uint32(data))
	off := 4
	labels := make([]string, n)
	for i := range labels {
		if off+4 > len(data) {
			return nil, errors.New("match: truncated snapshot")
		}
		l := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if off+l > len(data) {
			return nil, errors.New("match: truncated label")
		}
		labels[i] = string(data[off : off+l])
		off += l
	}
	idx := &bruteforce.Index{}
	if err := idx.UnmarshalBinary(data[off:]); err != nil {
		return nil, err
	}
	if idx.Len() != n {
		return nil, errors.New("match: snapshot label count does not match index")
	}
	entries := make([]ReferenceEntry, n)
	for i := range entries {
		entries[i] = ReferenceEntry{Code: idx.ID(i), Vector: idx.Vector(i), Label: labels[i]}
	}
	o := newOptions(opts)
	return &Matcher{entries: entries, idx: idx, workers: o.workers, fingerprint: fingerprint(entries)}, nil
}

// Save writes the snapshot to path, replacing an existing file only once the
// new one is complete.
func (m *Matcher) Save(path string) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("match: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("match: write snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save.
func Load(path string, opts ...Option) (*Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("match: read snapshot: %w", err)
	}
	m, err := Unmarshal(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("match: snapshot %s: %w", path, err)
	}
	return m, nil
}
