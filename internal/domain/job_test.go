package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/newsinsight.net/internal/static/errs"
)

func TestParsePageSize(t *testing.T) {
	cases := map[string]int{
		"":     20,
		"abc":  20,
		"0":    MinPageSize,
		"-5":   MinPageSize,
		"37":   37,
		" 42 ": 42,
		"500":  MaxPageSize,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParsePageSize(raw, 20), "raw %q", raw)
	}
}

func TestNewJob_Defaults(t *testing.T) {
	profile := NewJob(TaskSourceProfile, JobParams{Sources: "bbc-news"})
	assert.Equal(t, SortPublishedAt, profile.SortBy)
	assert.Equal(t, 10, profile.PageSize)
	assert.Equal(t, DefaultLanguage, profile.Language)

	search := NewJob(TaskPlainSearch, JobParams{Query: " go "})
	assert.Equal(t, "go", search.Query)
	assert.Equal(t, SortRelevancy, search.SortBy)
	assert.Equal(t, 20, search.PageSize)

	analysis := NewJob(TaskSentiment, JobParams{Query: "go"})
	assert.Equal(t, 50, analysis.PageSize)
}

func TestNewJob_LanguageAndSources(t *testing.T) {
	j := NewJob(TaskPlainSearch, JobParams{Query: "go", Language: "ALL", Sources: " a, ,b ,"})
	assert.Empty(t, j.Language)
	assert.Equal(t, []string{"a", "b"}, j.Sources)
	assert.Equal(t, "a,b", j.SearchQuery().Sources)

	blank := NewJob(TaskPlainSearch, JobParams{Query: "go", Sources: " , "})
	assert.Nil(t, blank.Sources)
	assert.NotEqual(t, blank.ID, j.ID)
}

func TestJob_Validate(t *testing.T) {
	assert.ErrorIs(t, NewJob(TaskPlainSearch, JobParams{}).Validate(), errs.ErrMissingQuery)
	assert.NoError(t, NewJob(TaskPlainSearch, JobParams{Country: "us"}).Validate())
	assert.NoError(t, NewJob(TaskPlainSearch, JobParams{Sources: "bbc-news"}).Validate())
}

func TestParseTaskKind(t *testing.T) {
	k, ok := ParseTaskKind(" WordStats ")
	require.True(t, ok)
	assert.Equal(t, TaskWordStats, k)
	assert.True(t, k.IsAnalysis())
	assert.False(t, TaskPlainSearch.IsAnalysis())

	_, ok = ParseTaskKind("astrology")
	assert.False(t, ok)
}

func TestParseStreamSpec(t *testing.T) {
	spec, err := ParseStreamSpec(JobParams{Query: "go"}, "sentiment, wordstats", "30")
	require.NoError(t, err)
	assert.Equal(t, []TaskKind{TaskSentiment, TaskWordStats}, spec.Kinds)
	assert.Equal(t, 30*time.Second, spec.Refresh)

	spec, err = ParseStreamSpec(JobParams{Query: "go"}, "", "1s")
	require.NoError(t, err)
	assert.Empty(t, spec.Kinds)
	assert.Equal(t, MinRefresh, spec.Refresh)

	_, err = ParseStreamSpec(JobParams{Query: "go"}, "astrology", "")
	assert.ErrorIs(t, err, errs.ErrUnknownTask)

	_, err = ParseStreamSpec(JobParams{Query: "go"}, "", "soon")
	assert.ErrorIs(t, err, errs.ErrInvalidRefresh)

	_, err = ParseStreamSpec(JobParams{}, "", "")
	assert.ErrorIs(t, err, errs.ErrMissingQuery)
}
