package domain

// SearchQuery holds the arguments of the article-search collaborator
type SearchQuery struct {
	Query    string
	Sources  string
	Country  string
	Category string
	Language string
	SortBy   string
	PageSize int
}

// SourceFilter holds the arguments of the source-catalog collaborator
type SourceFilter struct {
	Language string `json:"language"`
	Category string `json:"category"`
	Country  string `json:"country"`
}

// RawResponse is what a news API collaborator hands back: an HTTP status and the JSON body
type RawResponse struct {
	Status int
	Body   []byte
}

// Failed reports whether the collaborator answered with a client or server error
func (r *RawResponse) Failed() bool {
	return r.Status >= 400
}

// ArticleSource is the source reference embedded in an article
type ArticleSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Article is a single news article as returned by the search collaborator
type Article struct {
	Source      ArticleSource `json:"source"`
	Author      string        `json:"author"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	URLToImage  string        `json:"urlToImage"`
	PublishedAt string        `json:"publishedAt"`
	Content     string        `json:"content"`
}

// SearchEnvelope is the top-level shape of a search response
type SearchEnvelope struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}
