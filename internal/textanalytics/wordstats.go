package textanalytics

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gitlab.com/newsinsight.net/internal/domain"
)

// FrequencyTable accumulates token counts across several texts for one locale
type FrequencyTable struct {
	caser  cases.Caser
	counts map[string]int
	total  int
}

// NewFrequencyTable creates a table that lower-cases tokens with the rules of the given
// BCP 47 language tag; an empty or unknown tag falls back to language-neutral rules.
// A table is not safe for concurrent use.
func NewFrequencyTable(lang string) *FrequencyTable {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Und
	}
	return &FrequencyTable{
		caser:  cases.Lower(tag),
		counts: make(map[string]int),
	}
}

// Add tokenizes text and counts its tokens
func (f *FrequencyTable) Add(text string) {
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) }) {
		f.counts[f.caser.String(tok)]++
		f.total++
	}
}

// Total is the number of tokens counted so far
func (f *FrequencyTable) Total() int {
	return f.total
}

// Sorted returns the table ordered by descending count, ties by ascending token
func (f *FrequencyTable) Sorted() []domain.WordCount {
	words := make([]domain.WordCount, 0, len(f.counts))
	for w, c := range f.counts {
		words = append(words, domain.WordCount{Word: w, Count: c})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})
	return words
}

// WordFrequency builds the sorted frequency table of texts
func WordFrequency(lang string, texts ...string) []domain.WordCount {
	table := NewFrequencyTable(lang)
	for _, t := range texts {
		table.Add(t)
	}
	return table.Sorted()
}
