package services

import (
	"regexp"
	"strings"
	"unicode"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

const sentenceOverlap = 0.7

// CleanRepetitiveText removes the stutter speech models tend to produce:
// runs of the same word are cut to one repetition, and sentences that
// repeat or largely overlap an earlier sentence are dropped.
func CleanRepetitiveText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < 10 {
		return text
	}

	collapsed := collapseWords(trimmed)

	var kept []string
	for _, raw := range sentenceSplit.Split(collapsed, -1) {
		s := strings.TrimSpace(raw)
		if s == "" || repeatsAny(s, kept) {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		return collapsed
	}

	out := strings.Join(kept, ". ")
	if strings.ContainsAny(trimmed[len(trimmed)-1:], ".!?") {
		out += "."
	}
	return out
}

func collapseWords(text string) string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	prev, run := "", 0
	for _, w := range words {
		n := normalizeWord(w)
		if n != "" && n == prev {
			run++
		} else {
			run = 0
		}
		prev = n
		if run <= 1 {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

func normalizeWord(w string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(w) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func repeatsAny(sentence string, kept []string) bool {
	lower := strings.ToLower(sentence)
	words := wordSet(sentence)
	for _, k := range kept {
		kl := strings.ToLower(k)
		if strings.Contains(kl, lower) || strings.Contains(lower, kl) {
			return true
		}
		if overlap(words, wordSet(k)) >= sentenceOverlap {
			return true
		}
	}
	return false
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		if n := normalizeWord(w); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func overlap(a, b map[string]struct{}) float64 {
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	if larger == 0 {
		return 0
	}
	common := 0
	for w := range a {
		if _, ok := b[w]; ok {
			common++
		}
	}
	return float64(common) / float64(larger)
}
