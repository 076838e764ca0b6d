package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gitlab.com/newsinsight.net/internal/core/ports/secondary"
	"gitlab.com/newsinsight.net/internal/domain"
	"gitlab.com/newsinsight.net/internal/textanalytics"
)

// NewTasks wires every job kind to its task over the given article searcher
func NewTasks(searcher secondary.ArticleSearcher, lexicon *textanalytics.Lexicon) Tasks {
	if lexicon == nil {
		lexicon = textanalytics.DefaultLexicon()
	}
	return Tasks{
		domain.TaskPlainSearch:   NewPassThroughTask(searcher),
		domain.TaskSourceProfile: NewPassThroughTask(searcher),
		domain.TaskReadability:   NewReadabilityTask(searcher),
		domain.TaskWordStats:     NewWordStatsTask(searcher),
		domain.TaskSentiment:     NewSentimentTask(searcher, lexicon),
	}
}

// fetch runs the single external call of a job. It returns the raw body on success,
// a finished result for a downstream error status, or an error when the call itself failed.
func fetch(ctx context.Context, searcher secondary.ArticleSearcher, job domain.Job) ([]byte, *domain.WorkerResult, error) {
	query := job.SearchQuery()
	if job.Kind.IsAnalysis() && query.PageSize > domain.AnalysisCap {
		query.PageSize = domain.AnalysisCap
	}

	resp, err := searcher.Search(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch articles: %w", err)
	}
	if resp == nil {
		return nil, nil, fmt.Errorf("failed to fetch articles: empty response")
	}
	if resp.Failed() {
		res := domain.Fail(job, domain.DownstreamFailure(resp.Status, resp.Body))
		return nil, &res, nil
	}
	return resp.Body, nil, nil
}

// passThrough is the degraded reply for a body that could not be parsed
func passThrough(job domain.Job, body []byte) domain.WorkerResult {
	return domain.Success(job, json.RawMessage(body))
}

func capArticles(articles []domain.Article) []domain.Article {
	if len(articles) > domain.AnalysisCap {
		return articles[:domain.AnalysisCap]
	}
	return articles
}

// PassThroughTask returns the search response unmodified
type PassThroughTask struct {
	searcher secondary.ArticleSearcher
}

// NewPassThroughTask creates a plain search task
func NewPassThroughTask(searcher secondary.ArticleSearcher) *PassThroughTask {
	return &PassThroughTask{searcher: searcher}
}

func (t *PassThroughTask) Run(ctx context.Context, job domain.Job) (domain.WorkerResult, error) {
	body, failed, err := fetch(ctx, t.searcher, job)
	if err != nil || failed != nil {
		return derefResult(failed), err
	}
	return passThrough(job, body), nil
}

// ReadabilityTask scores each fetched article and averages the scores
type ReadabilityTask struct {
	searcher secondary.ArticleSearcher
}

// NewReadabilityTask creates a readability task
func NewReadabilityTask(searcher secondary.ArticleSearcher) *ReadabilityTask {
	return &ReadabilityTask{searcher: searcher}
}

func (t *ReadabilityTask) Run(ctx context.Context, job domain.Job) (domain.WorkerResult, error) {
	body, failed, err := fetch(ctx, t.searcher, job)
	if err != nil || failed != nil {
		return derefResult(failed), err
	}

	var envelope domain.SearchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return passThrough(job, body), nil
	}

	report := domain.ReadabilityReport{
		Query: job.Query,
		Items: make([]domain.ReadabilityItem, 0, len(envelope.Articles)),
	}
	var easeSum, gradeSum float64
	for _, a := range capArticles(envelope.Articles) {
		m := textanalytics.Readability(firstText(a.Description, a.Title))
		report.Items = append(report.Items, domain.ReadabilityItem{
			Title:   a.Title,
			URL:     a.URL,
			Source:  a.Source.Name,
			Metrics: m,
		})
		easeSum += m.ReadingEase
		gradeSum += m.GradeLevel
	}
	if n := len(report.Items); n > 0 {
		report.AverageReadingEase = easeSum / float64(n)
		report.AverageGradeLevel = gradeSum / float64(n)
	}

	return domain.Success(job, report), nil
}

// WordStatsTask builds a word-frequency table over the fetched descriptions
type WordStatsTask struct {
	searcher secondary.ArticleSearcher
}

// NewWordStatsTask creates a word statistics task
func NewWordStatsTask(searcher secondary.ArticleSearcher) *WordStatsTask {
	return &WordStatsTask{searcher: searcher}
}

func (t *WordStatsTask) Run(ctx context.Context, job domain.Job) (domain.WorkerResult, error) {
	body, failed, err := fetch(ctx, t.searcher, job)
	if err != nil || failed != nil {
		return derefResult(failed), err
	}

	var envelope domain.SearchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return passThrough(job, body), nil
	}

	articles := capArticles(envelope.Articles)
	table := textanalytics.NewFrequencyTable(job.Language)
	for _, a := range articles {
		table.Add(plainText(a.Description))
	}

	return domain.Success(job, domain.WordStatsReport{
		Query:       job.Query,
		Articles:    len(articles),
		TotalTokens: table.Total(),
		Words:       table.Sorted(),
	}), nil
}

// SentimentTask annotates every fetched article with its sentiment and adds an overall label.
// Fields it does not know are kept as they came from the search response.
type SentimentTask struct {
	searcher secondary.ArticleSearcher
	lexicon  *textanalytics.Lexicon
}

// NewSentimentTask creates a sentiment task classifying with lexicon
func NewSentimentTask(searcher secondary.ArticleSearcher, lexicon *textanalytics.Lexicon) *SentimentTask {
	return &SentimentTask{searcher: searcher, lexicon: lexicon}
}

func (t *SentimentTask) Run(ctx context.Context, job domain.Job) (domain.WorkerResult, error) {
	body, failed, err := fetch(ctx, t.searcher, job)
	if err != nil || failed != nil {
		return derefResult(failed), err
	}

	doc, articles, ok := decodeArticles(body)
	if !ok {
		return passThrough(job, body), nil
	}

	labels := make([]domain.SentimentLabel, 0, len(articles))
	for _, a := range articles {
		label := t.lexicon.Analyze(firstText(
			stringField(a, "description"),
			stringField(a, "title"),
			stringField(a, "content"),
		))
		a["sentiment"] = label
		a["sentimentEmoji"] = label.Emoticon()
		labels = append(labels, label)
	}

	overall := textanalytics.Aggregate(labels)
	doc["overallSentiment"] = overall
	doc["overallSentimentEmoji"] = overall.Emoticon()

	return domain.Success(job, doc), nil
}

// decodeArticles decodes a search response generically so unknown fields survive re-encoding
func decodeArticles(body []byte) (map[string]interface{}, []map[string]interface{}, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil || doc == nil {
		return nil, nil, false
	}

	raw, ok := doc["articles"].([]interface{})
	if !ok {
		return nil, nil, false
	}
	articles := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		a, ok := item.(map[string]interface{})
		if !ok {
			return nil, nil, false
		}
		articles = append(articles, a)
	}
	return doc, articles, true
}

func derefResult(r *domain.WorkerResult) domain.WorkerResult {
	if r == nil {
		return domain.WorkerResult{}
	}
	return *r
}
