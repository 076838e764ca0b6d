package textanalytics

import (
	"strings"
	"unicode"

	"gitlab.com/newsinsight.net/internal/domain"
)

const (
	minReadingEase = -50.0
	maxReadingEase = 150.0
)

// Readability scores text with Flesch Reading Ease and Flesch-Kincaid Grade Level
func Readability(text string) domain.ReadabilityMetrics {
	words := Words(text)
	if len(words) == 0 {
		return domain.ReadabilityMetrics{}
	}
	syllables := 0
	for _, w := range words {
		syllables += CountSyllables(w)
	}
	return ComputeMetrics(len(words), CountSentences(text), syllables)
}

// ComputeMetrics applies the Flesch formulas to precomputed counts
func ComputeMetrics(words, sentences, syllables int) domain.ReadabilityMetrics {
	if words <= 0 {
		return domain.ReadabilityMetrics{}
	}
	divisor := sentences
	if divisor < 1 {
		divisor = 1
	}
	wps := float64(words) / float64(divisor)
	spw := float64(syllables) / float64(words)

	return domain.ReadabilityMetrics{
		ReadingEase:   clamp(206.835-1.015*wps-84.6*spw, minReadingEase, maxReadingEase),
		GradeLevel:    0.39*wps + 11.8*spw - 15.59,
		WordCount:     words,
		SentenceCount: sentences,
		SyllableCount: syllables,
	}
}

// Words returns the maximal runs of letters in text
func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// CountWords counts the maximal runs of letters in text
func CountWords(text string) int {
	return len(Words(text))
}

func isSentenceTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '؟', '。', '！', '？', '…', '‼', '⁇', '⁈', '⁉', '।', '۔':
		return true
	}
	return false
}

// CountSentences counts the non-blank segments between runs of sentence terminators.
// Text with words but no terminator is one sentence; text without words has none.
func CountSentences(text string) int {
	if CountWords(text) == 0 {
		return 0
	}
	n := 0
	for _, seg := range strings.FieldsFunc(text, isSentenceTerminator) {
		if strings.TrimSpace(seg) != "" {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

// CountSyllables estimates the syllables of one word. Latin-script words use a vowel-group
// heuristic; anything else is approximated as one syllable per three code points.
func CountSyllables(word string) int {
	runes := []rune(strings.ToLower(word))
	if len(runes) == 0 {
		return 0
	}
	for _, r := range runes {
		if unicode.Is(unicode.Latin, r) {
			return latinSyllables(runes)
		}
	}
	n := (len(runes) + 2) / 3
	if n < 1 {
		return 1
	}
	return n
}

func latinSyllables(w []rune) int {
	count := 0
	inVowel := false
	for _, r := range w {
		v := isVowel(r)
		if v && !inVowel {
			count++
		}
		inVowel = v
	}

	n := len(w)
	at := func(i int) rune {
		if i < 0 || i >= n {
			return 0
		}
		return w[i]
	}

	// consonant + "le"/"les" keeps its own syllable, so none of the silent endings apply
	consonantLe := (hasSuffix(w, "le") && isConsonant(at(n-3))) ||
		(hasSuffix(w, "les") && isConsonant(at(n-4)))

	if !consonantLe && count > 1 {
		switch {
		case hasSuffix(w, "ed"):
			before := at(n - 3)
			if (before == 'y' || isConsonant(before)) && before != 't' && before != 'd' {
				count--
			}
		case hasSuffix(w, "es"):
			before := at(n - 3)
			sibilant := strings.ContainsRune("sxzcg", before) ||
				(before == 'h' && (at(n-4) == 'c' || at(n-4) == 's'))
			if (before == 'y' || isConsonant(before)) && !sibilant {
				count--
			}
		case hasSuffix(w, "e") && !hasSuffix(w, "le"):
			if isConsonant(at(n - 2)) {
				count--
			}
		}
	}

	if count < 1 {
		return 1
	}
	return count
}

func hasSuffix(w []rune, suffix string) bool {
	return strings.HasSuffix(string(w), suffix)
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiouyàáâãäåæèéêëìíîïòóôõöøùúûüýÿœ", r)
}

func isConsonant(r rune) bool {
	return r != 0 && unicode.IsLetter(r) && !isVowel(r)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
