// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/bibliometrics/internal/httputil"
	"github.com/pdiddy/bibliometrics/pkg/types"
)

// semanticAPIBase is the Semantic Scholar Graph API root. Declared as a var
// so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1"

const (
	semanticFields     = "paperId,publicationDate,year"
	semanticMaxLimit   = 1000
	semanticAuthorKind = "author:"
	semanticCitesKind  = "cites:"
)

// SemanticScholar queries the Semantic Scholar Graph API. Authors are
// addressed by Semantic Scholar author id; queries are "author:<id>" and
// "cites:<paper-id>".
type SemanticScholar struct {
	client  *http.Client
	base    string
	header  http.Header
	retries int
}

// NewSemanticScholar returns a Semantic Scholar provider. cfg.APIKey is
// sent as x-api-key for higher rate limits.
func NewSemanticScholar(cfg types.FetchConfig, client *http.Client) *SemanticScholar {
	base := cfg.BaseURL
	if base == "" {
		base = semanticAPIBase
	}
	header := userAgentHeader(cfg)
	if cfg.APIKey != "" {
		header.Set("x-api-key", cfg.APIKey)
	}
	return &SemanticScholar{
		client:  client,
		base:    strings.TrimSuffix(base, "/"),
		header:  header,
		retries: cfg.RetriesOn429,
	}
}

// Name returns the provider identifier.
func (p *SemanticScholar) Name() string { return "semantic_scholar" }

// AuthorQuery returns "author:<id>".
func (p *SemanticScholar) AuthorQuery(name string) string { return semanticAuthorKind + name }

// CitesQuery returns "cites:<id>".
func (p *SemanticScholar) CitesQuery(paperID string) string { return semanticCitesKind + paperID }

// MaxPageSize is the Graph API limit for author papers and citations.
func (p *SemanticScholar) MaxPageSize() int { return semanticMaxLimit }

// FetchPage requests one page of author papers or citing papers.
func (p *SemanticScholar) FetchPage(ctx context.Context, query string, offset, size int) ([]types.Record, error) {
	var path string
	citing := false
	switch {
	case strings.HasPrefix(query, semanticAuthorKind):
		path = "/author/" + url.PathEscape(strings.TrimPrefix(query, semanticAuthorKind)) + "/papers"
	case strings.HasPrefix(query, semanticCitesKind):
		path = "/paper/" + url.PathEscape(strings.TrimPrefix(query, semanticCitesKind)) + "/citations"
		citing = true
	default:
		return nil, fmt.Errorf("semantic scholar: unsupported query %q", query)
	}

	params := url.Values{
		"fields": {semanticFields},
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(size)},
	}

	var sr semanticResponse
	if err := httputil.GetJSON(ctx, p.client, p.base+path+"?"+params.Encode(), p.header, p.retries, &sr); err != nil {
		return nil, fmt.Errorf("semantic scholar %q offset %d: %w", query, offset, err)
	}

	records := make([]types.Record, len(sr.Data))
	for i, item := range sr.Data {
		paper := item.semanticPaper
		if citing {
			paper = item.CitingPaper
		}
		date := paper.PublicationDate
		if date == "" && paper.Year > 0 {
			date = strconv.Itoa(paper.Year)
		}
		records[i] = types.Record{ID: paper.PaperID, Date: date}
	}
	return records, nil
}

// Semantic Scholar API JSON structures. Author papers are returned inline;
// citations wrap each paper in citingPaper.
type semanticResponse struct {
	Offset int            `json:"offset"`
	Next   *int           `json:"next"`
	Data   []semanticItem `json:"data"`
}

type semanticItem struct {
	semanticPaper
	CitingPaper semanticPaper `json:"citingPaper"`
}

type semanticPaper struct {
	PaperID         string `json:"paperId"`
	PublicationDate string `json:"publicationDate"`
	Year            int    `json:"year"`
}
