package textanalytics

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Polarity lists the signals counted towards one side of the sentiment scale
type Polarity struct {
	Words     []string `yaml:"words"`
	Emoticons []string `yaml:"emoticons"`
	Emoji     []string `yaml:"emoji"`
}

// Lexicon is a compiled pair of happy and sad signal sets
type Lexicon struct {
	happy signals
	sad   signals
}

type signals struct {
	words     map[string]struct{}
	emoticons []string
	emoji     map[rune]struct{}
}

var (
	defaultLexicon     *Lexicon
	defaultLexiconOnce sync.Once
)

// DefaultLexicon returns the lexicon embedded in the binary
func DefaultLexicon() *Lexicon {
	defaultLexiconOnce.Do(func() {
		lex, err := ParseLexicon(defaultLexiconYAML)
		if err != nil {
			panic(fmt.Sprintf("textanalytics: embedded lexicon: %v", err))
		}
		defaultLexicon = lex
	})
	return defaultLexicon
}

// ParseLexicon compiles a YAML document with `happy` and `sad` polarity sections
func ParseLexicon(raw []byte) (*Lexicon, error) {
	var doc struct {
		Happy Polarity `yaml:"happy"`
		Sad   Polarity `yaml:"sad"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	return NewLexicon(doc.Happy, doc.Sad), nil
}

// NewLexicon compiles the given polarity lists
func NewLexicon(happy, sad Polarity) *Lexicon {
	return &Lexicon{
		happy: compile(happy),
		sad:   compile(sad),
	}
}

func compile(p Polarity) signals {
	s := signals{
		words: make(map[string]struct{}, len(p.Words)),
		emoji: make(map[rune]struct{}, len(p.Emoji)),
	}
	for _, w := range p.Words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			s.words[w] = struct{}{}
		}
	}
	for _, e := range p.Emoticons {
		if e != "" {
			s.emoticons = append(s.emoticons, e)
		}
	}
	for _, e := range p.Emoji {
		for _, r := range e {
			s.emoji[r] = struct{}{}
			break
		}
	}
	return s
}

// tally counts word, emoticon and emoji matches of one polarity in text
func (s signals) tally(text string, tokens []string) int {
	n := 0
	for _, t := range tokens {
		if _, ok := s.words[t]; ok {
			n++
		}
	}
	for _, e := range s.emoticons {
		n += strings.Count(text, e)
	}
	for _, r := range text {
		if _, ok := s.emoji[r]; ok {
			n++
		}
	}
	return n
}
