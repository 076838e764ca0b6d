package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitlab.com/newsinsight.net/internal/static/errs"
)

// TaskKind represents the kind of work a job asks a worker to do
type TaskKind string

const (
	TaskPlainSearch   TaskKind = "search"
	TaskSourceProfile TaskKind = "source_profile"
	TaskReadability   TaskKind = "readability"
	TaskWordStats     TaskKind = "wordstats"
	TaskSentiment     TaskKind = "sentiment"
)

const (
	DefaultLanguage  = "en"
	AllLanguages     = "all"
	SortRelevancy    = "relevancy"
	SortPublishedAt  = "publishedAt"
	MinPageSize      = 1
	MaxPageSize      = 100
	profilePageSize  = 10
	searchPageSize   = 20
	analysisPageSize = 50
	sourcesSeparator = ","

	// AnalysisCap is the maximum number of articles an analysis worker processes
	AnalysisCap = 50
)

// ParseTaskKind maps a wire name onto a TaskKind
func ParseTaskKind(s string) (TaskKind, bool) {
	switch TaskKind(strings.ToLower(strings.TrimSpace(s))) {
	case TaskPlainSearch:
		return TaskPlainSearch, true
	case TaskSourceProfile:
		return TaskSourceProfile, true
	case TaskReadability:
		return TaskReadability, true
	case TaskWordStats:
		return TaskWordStats, true
	case TaskSentiment:
		return TaskSentiment, true
	}
	return "", false
}

// IsAnalysis reports whether the kind runs text analytics over the fetched articles
func (k TaskKind) IsAnalysis() bool {
	return k == TaskReadability || k == TaskWordStats || k == TaskSentiment
}

// JobParams are the raw, string-encoded request fields as they arrive from a transport
type JobParams struct {
	Query    string `json:"q"`
	Language string `json:"language"`
	Sources  string `json:"sources"`
	Country  string `json:"country"`
	Category string `json:"category"`
	SortBy   string `json:"sortBy"`
	PageSize string `json:"pageSize"`
}

// Job is an immutable request descriptor dispatched to exactly one worker
type Job struct {
	ID        uuid.UUID
	Kind      TaskKind
	Query     string
	Language  string // empty means no language filter
	Sources   []string
	Country   string
	Category  string
	SortBy    string
	PageSize  int
	CreatedAt time.Time
}

// NewJob normalises raw params into a Job for the given kind
func NewJob(kind TaskKind, params JobParams) Job {
	return Job{
		ID:        uuid.New(),
		Kind:      kind,
		Query:     strings.TrimSpace(params.Query),
		Language:  normaliseLanguage(params.Language),
		Sources:   splitSources(params.Sources),
		Country:   strings.TrimSpace(params.Country),
		Category:  strings.TrimSpace(params.Category),
		SortBy:    normaliseSortBy(kind, params.SortBy),
		PageSize:  ParsePageSize(params.PageSize, defaultPageSize(kind)),
		CreatedAt: time.Now(),
	}
}

// SearchQuery converts the job into the arguments of the article-search collaborator
func (j Job) SearchQuery() SearchQuery {
	return SearchQuery{
		Query:    j.Query,
		Sources:  strings.Join(j.Sources, sourcesSeparator),
		Country:  j.Country,
		Category: j.Category,
		Language: j.Language,
		SortBy:   j.SortBy,
		PageSize: j.PageSize,
	}
}

// Validate reports whether the job carries enough filters to query the news API
func (j Job) Validate() error {
	if j.Query == "" && len(j.Sources) == 0 && j.Country == "" && j.Category == "" {
		return errs.ErrMissingQuery
	}
	return nil
}

// ParsePageSize parses a string-encoded page size and clamps it to [MinPageSize, MaxPageSize]
func ParsePageSize(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = fallback
	}
	if n < MinPageSize {
		return MinPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

func defaultPageSize(kind TaskKind) int {
	switch {
	case kind == TaskSourceProfile:
		return profilePageSize
	case kind.IsAnalysis():
		return analysisPageSize
	default:
		return searchPageSize
	}
}

func normaliseLanguage(raw string) string {
	lang := strings.ToLower(strings.TrimSpace(raw))
	switch lang {
	case "":
		return DefaultLanguage
	case AllLanguages:
		return ""
	}
	return lang
}

func normaliseSortBy(kind TaskKind, raw string) string {
	if s := strings.TrimSpace(raw); s != "" {
		return s
	}
	if kind == TaskSourceProfile {
		return SortPublishedAt
	}
	return SortRelevancy
}

func splitSources(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, sourcesSeparator)
	sources := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sources = append(sources, p)
		}
	}
	if len(sources) == 0 {
		return nil
	}
	return sources
}
