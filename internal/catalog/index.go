package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/xrash/smetrics"

	"github.com/kyleking/catalog-chat/internal/textnorm"
)

const (
	exactWeight  = 1.0
	prefixWeight = 0.5
	fuzzyWeight  = 0.25

	// fuzzyRatio bounds the edit distance to this share of the query term length
	fuzzyRatio = 0.2

	bm25K1 = 1.2

	memoTTL = 10 * time.Minute
)

// Match is one ranked search hit
type Match struct {
	Document Document
	Score    float64
	Rank     int
	pos      int
}

type posting struct {
	doc int
	tf  int
}

// Index is an immutable inverted index over Document.SearchText
type Index struct {
	docs     []Document
	postings map[string][]posting
	vocab    []string
	memo     *gocache.Cache
}

// BuildIndex indexes the search text of every document. The documents are
// kept for display; their other fields are not tokenized.
func BuildIndex(docs []Document) *Index {
	idx := &Index{
		docs:     make([]Document, len(docs)),
		postings: make(map[string][]posting),
		memo:     gocache.New(memoTTL, 2*memoTTL),
	}
	copy(idx.docs, docs)

	for i, doc := range idx.docs {
		counts := make(map[string]int)
		for _, term := range textnorm.Words(doc.SearchText) {
			counts[term]++
		}

		for term, tf := range counts {
			idx.postings[term] = append(idx.postings[term], posting{doc: i, tf: tf})
		}
	}

	idx.vocab = make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		idx.vocab = append(idx.vocab, term)
	}

	sort.Strings(idx.vocab)

	return idx
}

// Len returns the number of indexed documents
func (idx *Index) Len() int {
	return len(idx.docs)
}

// Search ranks documents against the normalized query. A limit of zero or
// less returns every match.
func (idx *Index) Search(query string, limit int) []Match {
	terms := textnorm.Dedupe(textnorm.Words(query))
	if len(terms) == 0 || len(idx.docs) == 0 {
		return nil
	}

	key := fmt.Sprintf("%d|%s", limit, strings.Join(terms, " "))
	if cached, ok := idx.memo.Get(key); ok {
		return cloneMatches(cached.([]Match))
	}

	scores := make(map[int]float64)
	matched := make(map[int]int)

	for _, term := range terms {
		for doc, s := range idx.scoreTerm(term) {
			scores[doc] += s
			matched[doc]++
		}
	}

	results := make([]Match, 0, len(scores))
	for doc, total := range scores {
		coverage := float64(matched[doc]) / float64(len(terms))
		results = append(results, Match{
			Document: idx.docs[doc],
			Score:    total * (0.7 + 0.3*coverage),
			pos:      doc,
		})
	}

	results = sortAndRank(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	idx.memo.Set(key, results, gocache.DefaultExpiration)

	return cloneMatches(results)
}

// scoreTerm returns, per document, the best weighted BM25-style score among
// the exact, prefix and fuzzy expansions of a query term
func (idx *Index) scoreTerm(term string) map[int]float64 {
	best := make(map[int]float64)

	add := func(docTerm string, weight float64) {
		list := idx.postings[docTerm]
		idf := idx.idf(len(list))

		for _, p := range list {
			tf := float64(p.tf)
			s := (tf / (tf + bm25K1)) * idf * weight

			if s > best[p.doc] {
				best[p.doc] = s
			}
		}
	}

	if _, ok := idx.postings[term]; ok {
		add(term, exactWeight)
	}

	for _, docTerm := range idx.prefixed(term) {
		if docTerm != term {
			add(docTerm, prefixWeight)
		}
	}

	maxDist := int(math.Round(fuzzyRatio * float64(len([]rune(term)))))
	if maxDist == 0 {
		return best
	}

	termLen := len([]rune(term))
	for _, docTerm := range idx.vocab {
		if docTerm == term || strings.HasPrefix(docTerm, term) {
			continue
		}

		diff := len([]rune(docTerm)) - termLen
		if diff > maxDist || -diff > maxDist {
			continue
		}

		if dist := smetrics.WagnerFischer(term, docTerm, 1, 1, 1); dist <= maxDist {
			add(docTerm, fuzzyWeight/float64(dist))
		}
	}

	return best
}

// prefixed returns the vocabulary terms starting with prefix
func (idx *Index) prefixed(prefix string) []string {
	start := sort.SearchStrings(idx.vocab, prefix)

	var out []string

	for i := start; i < len(idx.vocab) && strings.HasPrefix(idx.vocab[i], prefix); i++ {
		out = append(out, idx.vocab[i])
	}

	return out
}

func (idx *Index) idf(df int) float64 {
	n := float64(len(idx.docs))
	return math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
}

// sortAndRank sorts by score descending, then catalog order, and assigns ranks
func sortAndRank(results []Match) []Match {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}

		return results[i].pos < results[j].pos
	})

	for i := range results {
		results[i].Rank = i + 1
	}

	return results
}

func cloneMatches(in []Match) []Match {
	out := make([]Match, len(in))
	copy(out, in)

	return out
}
