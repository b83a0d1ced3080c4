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

// openAlexWorksBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works"

const (
	openAlexMaxPerPage = 200
	openAlexSelect     = "id,publication_date,publication_year"
)

// OpenAlex queries the OpenAlex Works API. Queries are filter expressions:
// author.id:<id> or raw_author_name.search:<name> for authors, cites:<id>
// for citing works.
type OpenAlex struct {
	client  *http.Client
	base    string
	header  http.Header
	email   string
	retries int
}

// NewOpenAlex returns an OpenAlex provider. cfg.Email joins the polite pool.
func NewOpenAlex(cfg types.FetchConfig, client *http.Client) *OpenAlex {
	base := cfg.BaseURL
	if base == "" {
		base = openAlexWorksBase
	}
	return &OpenAlex{
		client:  client,
		base:    base,
		header:  userAgentHeader(cfg),
		email:   cfg.Email,
		retries: cfg.RetriesOn429,
	}
}

// Name returns the provider identifier.
func (p *OpenAlex) Name() string { return "openalex" }

// AuthorQuery filters by author id when name looks like an OpenAlex author
// id (A123... or its URL), by raw author name otherwise.
func (p *OpenAlex) AuthorQuery(name string) string {
	id := shortOpenAlexID(name)
	if isOpenAlexID(id, 'A') {
		return "author.id:" + id
	}
	return "raw_author_name.search:" + name
}

// CitesQuery returns "cites:<id>".
func (p *OpenAlex) CitesQuery(paperID string) string {
	return "cites:" + shortOpenAlexID(paperID)
}

// MaxPageSize is the OpenAlex per-page limit.
func (p *OpenAlex) MaxPageSize() int { return openAlexMaxPerPage }

// FetchPage requests one page. OpenAlex pages by number, so offset must be
// a multiple of size.
func (p *OpenAlex) FetchPage(ctx context.Context, query string, offset, size int) ([]types.Record, error) {
	if size <= 0 || offset%size != 0 {
		return nil, fmt.Errorf("openalex: offset %d is not a multiple of page size %d", offset, size)
	}

	params := url.Values{
		"filter":   {query},
		"per-page": {strconv.Itoa(size)},
		"page":     {strconv.Itoa(offset/size + 1)},
		"select":   {openAlexSelect},
		"sort":     {"publication_date:asc"},
	}
	if p.email != "" {
		params.Set("mailto", p.email)
	}

	var oar openAlexResponse
	if err := httputil.GetJSON(ctx, p.client, p.base+"?"+params.Encode(), p.header, p.retries, &oar); err != nil {
		return nil, fmt.Errorf("openalex %q page %d: %w", query, offset/size+1, err)
	}

	records := make([]types.Record, len(oar.Results))
	for i, work := range oar.Results {
		date := work.PublicationDate
		if date == "" && work.PublicationYear > 0 {
			date = strconv.Itoa(work.PublicationYear)
		}
		records[i] = types.Record{ID: shortOpenAlexID(work.ID), Date: date}
	}
	return records, nil
}

// shortOpenAlexID strips the https://openalex.org/ prefix.
func shortOpenAlexID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "https://openalex.org/")
}

// isOpenAlexID reports whether id is kind followed by digits (e.g. A5023888391).
func isOpenAlexID(id string, kind byte) bool {
	if len(id) < 2 || (id[0] != kind && id[0] != kind+('a'-'A')) {
		return false
	}
	for i := 1; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID              string `json:"id"`
	PublicationDate string `json:"publication_date"`
	PublicationYear int    `json:"publication_year"`
}
