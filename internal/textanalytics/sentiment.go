package textanalytics

import "gitlab.com/newsinsight.net/internal/domain"

const (
	// dominance is the share, in percent, one polarity must strictly exceed
	dominance = 70

	// AggregateLimit is how many labels Aggregate considers
	AggregateLimit = 50
)

// SentimentScore is the raw signal tally of a text
type SentimentScore struct {
	Happy int `json:"happy"`
	Sad   int `json:"sad"`
}

// Label applies the 70% rule to the tally
func (s SentimentScore) Label() domain.SentimentLabel {
	return Classify(s.Happy, s.Sad)
}

// Score tallies happy and sad signals in text
func (l *Lexicon) Score(text string) SentimentScore {
	tokens := Tokenize(text)
	return SentimentScore{
		Happy: l.happy.tally(text, tokens),
		Sad:   l.sad.tally(text, tokens),
	}
}

// Analyze classifies text with this lexicon
func (l *Lexicon) Analyze(text string) domain.SentimentLabel {
	return l.Score(text).Label()
}

// AnalyzeText classifies text with the default lexicon
func AnalyzeText(text string) domain.SentimentLabel {
	return DefaultLexicon().Analyze(text)
}

// Classify returns Happy or Sad only when that side holds strictly more than 70% of all signals.
// Integer arithmetic keeps the 70% boundary exact.
func Classify(happy, sad int) domain.SentimentLabel {
	total := happy + sad
	switch {
	case total <= 0:
		return domain.Neutral
	case happy*100 > total*dominance:
		return domain.Happy
	case sad*100 > total*dominance:
		return domain.Sad
	default:
		return domain.Neutral
	}
}

// Aggregate folds the first AggregateLimit labels into one: the sign of their mean decides
func Aggregate(labels []domain.SentimentLabel) domain.SentimentLabel {
	if len(labels) > AggregateLimit {
		labels = labels[:AggregateLimit]
	}
	sum := 0
	for _, l := range labels {
		switch l {
		case domain.Happy:
			sum++
		case domain.Sad:
			sum--
		}
	}
	switch {
	case sum > 0:
		return domain.Happy
	case sum < 0:
		return domain.Sad
	default:
		return domain.Neutral
	}
}
