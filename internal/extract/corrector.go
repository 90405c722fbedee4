package extract

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Correction records one token substitution made by the corrector.
type Correction struct {
	Original   string
	Corrected  string
	Confidence float64
}

// Corrector aligns transcribed tokens with the owner's known memory titles.
// Speech-to-text mangles proper nouns the user cares most about ("Eldrinax"
// comes back as "elder nacks"); since those names usually already exist as
// unit titles, phonetic matching against them recovers the intended word.
//
// Matching runs in two passes per token window: Double Metaphone codes gate
// the candidates, then Jaro-Winkler similarity ranks them. Windows of up to
// the longest title's word count are tried longest-first so multi-word titles
// win over partial matches. Corrector is read-only after construction and
// safe for concurrent use.
type Corrector struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// CorrectorOption configures a [Corrector].
type CorrectorOption func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a phonetic
// candidate. Default 0.70.
func WithPhoneticThreshold(t float64) CorrectorOption {
	return func(c *Corrector) { c.phoneticThreshold = t }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a non-phonetic
// candidate. Default 0.85.
func WithFuzzyThreshold(t float64) CorrectorOption {
	return func(c *Corrector) { c.fuzzyThreshold = t }
}

// NewCorrector creates a [Corrector].
func NewCorrector(opts ...CorrectorOption) *Corrector {
	c := &Corrector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct rewrites text so that token windows phonetically matching one of
// titles are replaced by that title. Returns the corrected text and the list
// of substitutions; with no titles or no matches the text comes back
// unchanged.
func (c *Corrector) Correct(text string, titles []string) (string, []Correction) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || len(titles) == 0 {
		return text, nil
	}

	maxWindow := 1
	for _, title := range titles {
		if n := len(strings.Fields(title)); n > maxWindow {
			maxWindow = n
		}
	}

	var (
		out         []string
		corrections []Correction
	)
	for i := 0; i < len(tokens); {
		n := maxWindow
		if i+n > len(tokens) {
			n = len(tokens) - i
		}
		matched := false
		for ; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			title, score, ok := c.match(window, titles)
			if !ok {
				continue
			}
			out = append(out, strings.Fields(title)...)
			corrections = append(corrections, Correction{
				Original:   window,
				Corrected:  title,
				Confidence: score,
			})
			i += n
			matched = true
			break
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}

	return strings.Join(out, " "), corrections
}

// match finds the best title for one token window. A phonetic code overlap
// admits a candidate at the lower threshold; without overlap only a very
// close string match is accepted, so ordinary words are left alone.
func (c *Corrector) match(window string, titles []string) (string, float64, bool) {
	windowLower := strings.ToLower(window)
	windowTokens := strings.Fields(windowLower)
	windowCodes := metaphoneCodes(windowTokens)

	var (
		bestTitle    string
		bestScore    float64
		bestPhonetic bool
	)
	for _, title := range titles {
		titleLower := strings.ToLower(strings.TrimSpace(title))
		if titleLower == "" || titleLower == windowLower {
			continue
		}
		titleTokens := strings.Fields(titleLower)
		phonetic := codesOverlap(windowCodes, metaphoneCodes(titleTokens))
		score := similarity(windowLower, titleLower, windowTokens, titleTokens)

		switch {
		case phonetic && score >= c.phoneticThreshold:
			if !bestPhonetic || score > bestScore {
				bestTitle, bestScore, bestPhonetic = title, score, true
			}
		case !phonetic && !bestPhonetic && score >= c.fuzzyThreshold && score > bestScore:
			bestTitle, bestScore = title, score
		}
	}

	if bestTitle == "" {
		return window, 0, false
	}
	return bestTitle, bestScore, true
}

// metaphoneCodes returns the union of Double Metaphone codes for the tokens.
func metaphoneCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		primary, secondary := matchr.DoubleMetaphone(t)
		if primary != "" {
			codes[primary] = struct{}{}
		}
		if secondary != "" {
			codes[secondary] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// similarity is the best Jaro-Winkler score across full strings, space-less
// concatenations, and individual token pairs. The concatenated comparison
// catches one spoken name split into several transcript tokens; the pairwise
// comparison only applies when one side is a single token, so a shared common
// word cannot glue two unrelated phrases together.
func similarity(aFull, bFull string, aTokens, bTokens []string) float64 {
	score := matchr.JaroWinkler(aFull, bFull, false)
	if len(aTokens) > 1 || len(bTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(aTokens, ""), strings.Join(bTokens, ""), false); s > score {
			score = s
		}
	}
	if len(aTokens) == 1 || len(bTokens) == 1 {
		for _, at := range aTokens {
			for _, bt := range bTokens {
				if s := matchr.JaroWinkler(at, bt, false); s > score {
					score = s
				}
			}
		}
	}
	return score
}
