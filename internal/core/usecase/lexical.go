package usecase

import (
	"math"
	"strings"
	"unicode"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

const maxCJKGram = 3

// LexicalScorer ranks chunks with BM25 over statistics of the pool it is given.
type LexicalScorer struct {
	k1 float64
	b  float64
}

func NewLexicalScorer(k1, b float64) *LexicalScorer {
	if k1 < 0 {
		k1 = 1.5
	}
	if b < 0 || b > 1 {
		b = 0.75
	}
	return &LexicalScorer{k1: k1, b: b}
}

type termDoc struct {
	terms  map[string]int
	length int
}

// Score returns one BM25 score per pool entry, aligned by index, plus the
// corpus statistics computed from that pool.
func (s *LexicalScorer) Score(queryTerms []string, pool []domain.Chunk) ([]float64, domain.CorpusStats) {
	docs := make([]termDoc, len(pool))
	for i, c := range pool {
		docs[i] = termsOf(c)
	}
	stats := corpusStats(docs)

	scores := make([]float64, len(docs))
	if len(queryTerms) == 0 || stats.DocCount == 0 {
		return scores, stats
	}
	for i, doc := range docs {
		scores[i] = s.bm25(queryTerms, doc, stats)
	}
	return scores, stats
}

func (s *LexicalScorer) bm25(queryTerms []string, doc termDoc, stats domain.CorpusStats) float64 {
	score := 0.0
	for _, term := range queryTerms {
		tf := float64(doc.terms[term])
		if tf == 0 {
			continue
		}
		lengthRatio := 1.0
		if stats.AvgDocLen > 0 {
			lengthRatio = float64(doc.length) / stats.AvgDocLen
		}
		denom := tf + s.k1*(1-s.b+s.b*lengthRatio)
		score += idf(stats.DocFreq[term], stats.DocCount) * tf * (s.k1 + 1) / denom
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

func idf(df, n int) float64 {
	return math.Log(1 + (float64(n-df)+0.5)/(float64(df)+0.5))
}

func corpusStats(docs []termDoc) domain.CorpusStats {
	stats := domain.CorpusStats{
		DocFreq:  make(map[string]int, 256),
		DocCount: len(docs),
	}
	total := 0
	for _, doc := range docs {
		total += doc.length
		for term, tf := range doc.terms {
			if tf > 0 {
				stats.DocFreq[term]++
			}
		}
	}
	if len(docs) > 0 {
		stats.AvgDocLen = float64(total) / float64(len(docs))
	}
	return stats
}

func termsOf(c domain.Chunk) termDoc {
	if c.Terms != nil {
		length := c.Length
		if length <= 0 {
			for _, tf := range c.Terms {
				length += tf
			}
		}
		return termDoc{terms: c.Terms, length: length}
	}
	terms, length := TermFrequencies(c.Text)
	return termDoc{terms: terms, length: length}
}

// TermFrequencies tokenizes text and counts each term. The second value is
// the total token count.
func TermFrequencies(text string) (map[string]int, int) {
	tokens := Tokenize(text)
	out := make(map[string]int, len(tokens))
	for _, t := range tokens {
		out[t]++
	}
	return out, len(tokens)
}

// QueryTerms tokenizes a query and drops repeated terms.
func QueryTerms(query string) []string {
	tokens := Tokenize(query)
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Tokenize lowercases alphanumeric words and expands runs of CJK characters
// into character n-grams of length 1..3.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 32)
	var word strings.Builder
	cjk := make([]rune, 0, 16)

	flushWord := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	flushCJK := func() {
		tokens = appendCJKGrams(tokens, cjk)
		cjk = cjk[:0]
	}

	for _, r := range s {
		switch {
		case isCJK(r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word.WriteRune(unicode.ToLower(r))
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()
	return tokens
}

func appendCJKGrams(dst []string, run []rune) []string {
	for n := 1; n <= maxCJKGram; n++ {
		for i := 0; i+n <= len(run); i++ {
			dst = append(dst, string(run[i:i+n]))
		}
	}
	return dst
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		r == 'ー' || r == '々'
}
