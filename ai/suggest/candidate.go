package suggest

import "sort"

// Source identifies which pipeline stage discovered a candidate. Provenance
// is assigned once by the discovering stage and never overwritten afterwards.
type Source string

const (
	// SourceRetrieval marks candidates found by vector similarity search.
	SourceRetrieval Source = "retrieval"
	// SourceGraph marks candidates discovered by following links or
	// backlinks of a retrieved document. Graph candidates carry no score.
	SourceGraph Source = "graph"
	// SourceLLM marks tags added by the language-model fallback.
	SourceLLM Source = "llm"
)

// Candidate is a provisional suggestion pointing at a knowledge-base
// document.
//
// Score holds retrieval similarity or rerank relevance, higher is better.
// It is nil for graph- and LLM-sourced candidates, which have no numeric
// basis. Links and Backlinks accumulate by union as chunks of the same
// document merge; both keep first-seen order so graph expansion stays
// deterministic.
type Candidate struct {
	Name      string
	Text      string // chunk text, scored by the reranker; dropped from results
	Score     *float32
	Source    Source
	Links     []string
	Backlinks []string
}

// Score returns a pointer to v, for building scored candidates in place.
func Score(v float32) *float32 {
	return &v
}

// Merge collapses chunk-granular candidates into document-granular ones.
// Candidates sharing a name keep the maximum score and the union of their
// links and backlinks; the first occurrence fixes position. Retrieval
// provenance wins over graph provenance when duplicates disagree. Merge must
// run before graph expansion so expansion sees each document's complete link
// set, and it is idempotent: merging an already-merged set changes nothing.
func Merge(candidates []Candidate) []Candidate {
	merged := make([]Candidate, 0, len(candidates))
	index := make(map[string]int, len(candidates))

	for _, c := range candidates {
		i, ok := index[c.Name]
		if !ok {
			index[c.Name] = len(merged)
			first := c
			first.Links = unionStrings(nil, c.Links)
			first.Backlinks = unionStrings(nil, c.Backlinks)
			merged = append(merged, first)
			continue
		}

		m := &merged[i]
		if c.Score != nil && (m.Score == nil || *c.Score > *m.Score) {
			m.Score = c.Score
		}
		if m.Source != SourceRetrieval && c.Source == SourceRetrieval {
			m.Source = c.Source
		}
		m.Links = unionStrings(m.Links, c.Links)
		m.Backlinks = unionStrings(m.Backlinks, c.Backlinks)
	}

	return merged
}

// Expand appends one-hop graph discoveries: every name reachable through a
// merged candidate's links or backlinks becomes a scoreless graph candidate.
// Names already present are dropped, so a graph discovery never overwrites a
// retrieval result, and self references are excluded. Appended order is the
// order originating documents appear, links before backlinks within each
// document; across documents the first discovery wins.
func Expand(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		out = append(out, c)
		seen[c.Name] = struct{}{}
	}

	for _, c := range candidates {
		for _, group := range [][]string{c.Links, c.Backlinks} {
			for _, name := range group {
				if name == "" || name == c.Name {
					continue
				}
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				out = append(out, Candidate{Name: name, Source: SourceGraph})
			}
		}
	}

	return out
}

// Separate partitions candidates into tag suggestions and link suggestions by
// registry membership. Every candidate lands in exactly one of the two
// sequences and input order is preserved.
func Separate(candidates []Candidate, registry Registry) (tags, links []Candidate) {
	tags = make([]Candidate, 0, len(candidates))
	links = make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if registry.Contains(c.Name) {
			tags = append(tags, c)
		} else {
			links = append(links, c)
		}
	}
	return tags, links
}

// SortByScore orders candidates by descending score, scoreless candidates
// after scored ones. The sort is stable, so discovery order breaks ties.
func SortByScore(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].Score, candidates[j].Score
		if si == nil {
			return false
		}
		if sj == nil {
			return true
		}
		return *si > *sj
	})
}

// unionStrings appends members of add not already present in dst, preserving
// first-seen order. dst is never aliased: the result is always a fresh slice.
func unionStrings(dst, add []string) []string {
	out := make([]string, 0, len(dst)+len(add))
	seen := make(map[string]struct{}, len(dst)+len(add))
	for _, group := range [][]string{dst, add} {
		for _, s := range group {
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
