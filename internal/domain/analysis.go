package domain

// SentimentLabel is the polarity assigned to a text or a list of texts
type SentimentLabel string

const (
	Happy   SentimentLabel = "happy"
	Sad     SentimentLabel = "sad"
	Neutral SentimentLabel = "neutral"
)

// Emoticon returns the display mapping of the label
func (l SentimentLabel) Emoticon() string {
	switch l {
	case Happy:
		return ":-)"
	case Sad:
		return ":-("
	default:
		return ":-|"
	}
}

// ReadabilityMetrics are the Flesch scores of one text plus the counts they derive from
type ReadabilityMetrics struct {
	ReadingEase   float64 `json:"readingEase"`
	GradeLevel    float64 `json:"gradeLevel"`
	WordCount     int     `json:"wordCount"`
	SentenceCount int     `json:"sentenceCount"`
	SyllableCount int     `json:"syllableCount"`
}

// ReadabilityItem is one scored article
type ReadabilityItem struct {
	Title   string             `json:"title"`
	URL     string             `json:"url"`
	Source  string             `json:"source"`
	Metrics ReadabilityMetrics `json:"metrics"`
}

// ReadabilityReport is the payload of the readability worker
type ReadabilityReport struct {
	Query              string            `json:"query"`
	Items              []ReadabilityItem `json:"items"`
	AverageReadingEase float64           `json:"averageReadingEase"`
	AverageGradeLevel  float64           `json:"averageGradeLevel"`
}

// WordCount is one entry of a word-frequency table
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordStatsReport is the payload of the word statistics worker
type WordStatsReport struct {
	Query       string      `json:"query"`
	Articles    int         `json:"articles"`
	TotalTokens int         `json:"totalTokens"`
	Words       []WordCount `json:"words"`
}
