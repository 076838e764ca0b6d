// Package textanalytics holds the deterministic text measures the workers run over article
// text: lexicon-based sentiment with the 70% dominance rule, Flesch readability scoring and
// word-frequency tables. Everything here is pure and safe for concurrent use.
package textanalytics
