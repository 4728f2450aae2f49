package textfraud

import (
	"math"
	"regexp"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyVocabulary is returned when no input yields a single token.
var ErrEmptyVocabulary = eris.New("textfraud: empty vocabulary")

// tokenRe matches runs of two or more word characters.
var tokenRe = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

var folder = cases.Fold()

func tokenize(s string) []string {
	s = folder.String(norm.NFKC.String(s))
	return tokenRe.FindAllString(s, -1)
}

// vectorize builds L2-normalised TF-IDF vectors with smoothed idf,
// idf(t) = ln((1+n)/(1+df(t))) + 1.
func vectorize(docs []string) ([]map[string]float64, error) {
	tokens := make([][]string, len(docs))
	df := make(map[string]int)
	for i, d := range docs {
		tokens[i] = tokenize(d)
		seen := make(map[string]bool)
		for _, t := range tokens[i] {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	n := float64(len(docs))
	vecs := make([]map[string]float64, len(docs))
	for i, toks := range tokens {
		v := make(map[string]float64, len(toks))
		for _, t := range toks {
			v[t]++
		}
		var norm2 float64
		for t, tf := range v {
			w := tf * (math.Log((1+n)/(1+float64(df[t]))) + 1)
			v[t] = w
			norm2 += w * w
		}
		if norm2 > 0 {
			l := math.Sqrt(norm2)
			for t := range v {
				v[t] /= l
			}
		}
		vecs[i] = v
	}
	return vecs, nil
}

// cosine assumes both vectors are already L2-normalised. A zero vector has
// similarity 0 with everything.
func cosine(a, b map[string]float64) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for t, w := range a {
		dot += w * b[t]
	}
	return dot
}

// similarityMatrix returns the pairwise cosine similarity of docs.
func similarityMatrix(docs []string) ([][]float64, error) {
	vecs, err := vectorize(docs)
	if err != nil {
		return nil, err
	}
	m := make([][]float64, len(vecs))
	for i := range vecs {
		m[i] = make([]float64, len(vecs))
		for j := range vecs {
			m[i][j] = cosine(vecs[i], vecs[j])
		}
	}
	return m, nil
}
