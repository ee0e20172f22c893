// Package rank holds the vector-space text machinery behind
// recommendations: tokenization, request-scoped TF-IDF weighting, and
// cosine similarity.
package rank

import (
	"math"
	"regexp"
	"strings"
)

var (
	nonWord    = regexp.MustCompile(`[^a-z0-9]+`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// stopwords are dropped during tokenization; they carry no signal for
// skill/description matching and inflate shared-term similarity.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "in": {}, "is": {},
	"it": {}, "of": {}, "on": {}, "or": {}, "our": {}, "the": {},
	"to": {}, "we": {}, "with": {}, "you": {}, "your": {},
}

// Normalize lowercases a string and replaces every non-alphanumeric run
// with a single space.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWord.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokenize splits free text into normalized terms, dropping stopwords.
func Tokenize(s string) []string {
	normalized := Normalize(s)
	if normalized == "" {
		return nil
	}
	parts := strings.Split(normalized, " ")
	out := make([]string, 0, len(parts))
	for _, t := range parts {
		if t == "" {
			continue
		}
		if _, skip := stopwords[t]; skip {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Vector is a sparse term-weight mapping. Absent terms weigh zero.
type Vector map[string]float64

// Magnitude is the Euclidean norm of the vector.
func (v Vector) Magnitude() float64 {
	sum := 0.0
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Vectorize builds TF-IDF vectors for a corpus of token lists sharing
// one vocabulary. TF is the term count normalized by document length;
// IDF is the smoothed log((N+1)/(1+df)) + 1, which is strictly
// positive, so weights stay non-negative and a term present in every
// document still contributes to similarity.
//
// The vocabulary and IDF table live only for this call: vectors from
// different Vectorize runs are not comparable, which is the point —
// each ranking request sees a self-consistent snapshot of the corpus.
func Vectorize(docs [][]string) []Vector {
	n := len(docs)
	if n == 0 {
		return nil
	}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, t := range doc {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	idf := make(map[string]float64, len(df))
	for t, freq := range df {
		idf[t] = math.Log(float64(n+1)/float64(1+freq)) + 1
	}

	vectors := make([]Vector, n)
	for i, doc := range docs {
		vec := make(Vector)
		if len(doc) == 0 {
			vectors[i] = vec
			continue
		}
		counts := make(map[string]int, len(doc))
		for _, t := range doc {
			counts[t]++
		}
		length := float64(len(doc))
		for t, c := range counts {
			if w := (float64(c) / length) * idf[t]; w > 0 {
				vec[t] = w
			}
		}
		vectors[i] = vec
	}
	return vectors
}
