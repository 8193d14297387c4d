// Package sparse turns text into lexical token-weight vectors. The encoder is
// local and deterministic: the same text always yields the same vector, which
// keeps the retrieval fallback path reproducible.
package sparse

import (
	"math"
	"strings"
	"unicode"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Encoder produces sparse lexical vectors with log-scaled term-frequency
// weights. It implements domain.SparseEncoder.
type Encoder struct {
	stopwords map[string]struct{}
}

// NewEncoder creates a sparse encoder with the default stopword list.
func NewEncoder() *Encoder {
	sw := make(map[string]struct{}, len(defaultStopwords))
	for _, w := range defaultStopwords {
		sw[w] = struct{}{}
	}
	return &Encoder{stopwords: sw}
}

// Encode tokenizes text and returns a token→weight map. Weight is
// 1 + ln(tf), the standard sublinear TF scaling. Stopwords and single-rune
// Latin tokens are dropped; Han runs are emitted as character bigrams.
func (e *Encoder) Encode(text string) domain.SparseVector {
	counts := make(map[string]int)
	for _, tok := range e.tokenize(text) {
		counts[tok]++
	}

	vec := make(domain.SparseVector, len(counts))
	for tok, tf := range counts {
		vec[tok] = 1 + math.Log(float64(tf))
	}
	return vec
}

func (e *Encoder) tokenize(text string) []string {
	var tokens []string
	var latin []rune
	var han []rune

	flushLatin := func() {
		if len(latin) >= 2 {
			tok := strings.ToLower(string(latin))
			if _, stop := e.stopwords[tok]; !stop {
				tokens = append(tokens, tok)
			}
		}
		latin = latin[:0]
	}
	flushHan := func() {
		// Character bigrams approximate word segmentation well enough for
		// lexical recall.
		if len(han) == 1 {
			tokens = append(tokens, string(han))
		}
		for i := 0; i+1 < len(han); i++ {
			tokens = append(tokens, string(han[i:i+2]))
		}
		han = han[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushLatin()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushHan()
			latin = append(latin, r)
		default:
			flushLatin()
			flushHan()
		}
	}
	flushLatin()
	flushHan()

	return tokens
}

var defaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "has",
	"he", "in", "is", "it", "its", "of", "on", "or", "that", "the", "to",
	"was", "we", "who", "will", "with", "you", "your", "me", "my", "i",
	"find", "looking", "look", "want", "need", "someone", "people", "person",
}
