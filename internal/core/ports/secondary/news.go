package secondary

import (
	"context"

	"gitlab.com/newsinsight.net/internal/domain"
)

// ArticleSearcher queries the third-party news API for articles.
// A returned error means the call itself failed (transport, timeout); an HTTP error status is
// reported through RawResponse.Status with a nil error.
type ArticleSearcher interface {
	Search(ctx context.Context, query domain.SearchQuery) (*domain.RawResponse, error)
}

// SourceCatalog lists the news sources known to the third-party news API
type SourceCatalog interface {
	ListSources(ctx context.Context, filter domain.SourceFilter) (*domain.RawResponse, error)
}

// NewsProvider is a collaborator offering both search and the source catalog
type NewsProvider interface {
	ArticleSearcher
	SourceCatalog
}
