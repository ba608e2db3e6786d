package match

import (
	"context"

	"github.com/cespare/xxhash/v2"
	"github.com/viant/icdmatch/index"
	"github.com/viant/icdmatch/index/bruteforce"
	"github.com/viant/icdmatch/vector"
	"golang.org/x/sync/errgroup"
)

// Matcher holds an immutable reference set and answers nearest-code queries
// by a linear cosine scan.
type Matcher struct {
	entries     []ReferenceEntry
	idx         index.Index
	workers     int
	fingerprint uint64
}

// Build parses rows into a Matcher. Rows beyond the configured cap are
// dropped before parsing. Any malformed row or any row whose dimension
// differs from the first row's aborts the build with a *RowError.
func Build(rows []ReferenceRow, opts ...Option) (*Matcher, error) {
	o := newOptions(opts)
	if o.maxRows > 0 && len(rows) > o.maxRows {
		rows = rows[:o.maxRows]
	}
	entries := make([]ReferenceEntry, 0, len(rows))
	for i, row := range rows {
		vec, err := vector.ParseText(row.EmbeddingText)
		if err != nil {
			return nil, &RowError{Row: i, Code: row.Code, Err: err}
		}
		if len(entries) > 0 && len(vec) != len(entries[0].Vector) {
			return nil, &RowError{Row: i, Code: row.Code, Err: &vector.DimensionMismatchError{Want: len(entries[0].Vector), Got: len(vec)}}
		}
		entries = append(entries, ReferenceEntry{Code: row.Code, Vector: vec, Label: row.Label})
	}
	return newMatcher(entries, o.workers)
}

// New builds a Matcher from already parsed entries, with the same dimension
// check as Build. The entries slice is copied.
func New(entries []ReferenceEntry, opts ...Option) (*Matcher, error) {
	o := newOptions(opts)
	if o.maxRows > 0 && len(entries) > o.maxRows {
		entries = entries[:o.maxRows]
	}
	return newMatcher(append([]ReferenceEntry(nil), entries...), o.workers)
}

func newMatcher(entries []ReferenceEntry, workers int) (*Matcher, error) {
	ids := make([]string, len(entries))
	vecs := make([][]float32, len(entries))
	for i := range entries {
		ids[i] = entries[i].Code
		vecs[i] = entries[i].Vector
	}
	var idx index.Index = &bruteforce.Index{}
	if err := idx.Build(ids, vecs); err != nil {
		return nil, err
	}
	return &Matcher{
		entries:     entries,
		idx:         idx,
		workers:     workers,
		fingerprint: fingerprint(entries),
	}, nil
}

// Dim returns the reference dimension D, 0 for an empty set.
func (m *Matcher) Dim() int { return m.idx.Dim() }

// Len returns the number of reference entries.
func (m *Matcher) Len() int { return len(m.entries) }

// Entries returns a copy of the reference entries.
func (m *Matcher) Entries() []ReferenceEntry {
	return append([]ReferenceEntry(nil), m.entries...)
}

// Fingerprint identifies the reference set content.
func (m *Matcher) Fingerprint() uint64 { return m.fingerprint }

// BestMatch returns the reference entry most similar to query. Ties go to
// the earliest entry; entries scoring NaN are never selected. When nothing is
// selected the Sentinel result is returned.
func (m *Matcher) BestMatch(query []float32) (Result, error) {
	pos, score, err := m.idx.Best(query)
	if err != nil {
		return Sentinel(), err
	}
	if pos < 0 {
		return Sentinel(), nil
	}
	return newResult(&m.entries[pos], score), nil
}

// BestMatchText parses a bracket text query and matches it.
func (m *Matcher) BestMatchText(text string) (Result, error) {
	vec, err := vector.ParseText(text)
	if err != nil {
		return Sentinel(), err
	}
	return m.BestMatch(vec)
}

// BestMatchBatch matches every query independently and returns one Outcome
// per query in input order. A failing query only sets that row's Err. Rows
// not yet processed when ctx is done carry ctx.Err().
func (m *Matcher) BestMatchBatch(ctx context.Context, queries []Query) []Outcome {
	out := make([]Outcome, len(queries))
	if len(queries) == 0 {
		return out
	}
	chunk := (len(queries) + m.workers - 1) / m.workers
	var g errgroup.Group
	for start := 0; start < len(queries); start += chunk {
		end := min(start+chunk, len(queries))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					out[i] = Outcome{Result: Sentinel(), Err: err}
					continue
				}
				out[i] = m.match(queries[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (m *Matcher) match(q Query) Outcome {
	vec, err := q.Normalize()
	if err != nil {
		return Outcome{Result: Sentinel(), Err: err}
	}
	res, err := m.BestMatch(vec)
	return Outcome{Result: res, Err: err}
}

// Candidates returns up to k entries scoring strictly above minScore, most
// similar first, ties in reference order. k <= 0 returns all of them.
func (m *Matcher) Candidates(query []float32, k int, minScore float32) ([]Result, error) {
	positions, scores, err := m.idx.Query(query, 0)
	if err != nil {
		return nil, err
	}
	var out []Result
	for n, pos := range positions {
		if !(scores[n] > minScore) {
			break
		}
		out = append(out, newResult(&m.entries[pos], scores[n]))
		if k > 0 && len(out) == k {
			break
		}
	}
	return out, nil
}

func fingerprint(entries []ReferenceEntry) uint64 {
	h := xxhash.New()
	for i := range entries {
		_, _ = h.WriteString(entries[i].Code)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(entries[i].Label)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(vector.EncodeEmbedding(entries[i].Vector))
	}
	return h.Sum64()
}
