// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/bibliometrics/internal/httputil"
	"github.com/pdiddy/bibliometrics/pkg/types"
)

// inspireSearchBase is the Invenio legacy search endpoint. Declared as a
// var so tests can substitute an httptest server.
var inspireSearchBase = "https://old.inspirehep.net/search"

const inspireFields = "recid,creation_date"

// Inspire queries an Invenio-style search service:
//
//	GET <base>?p=<query>&of=recjson&ot=recid,creation_date&so=a&rg=<size>&jrec=<offset+1>
type Inspire struct {
	client  *http.Client
	base    string
	header  http.Header
	retries int
}

// NewInspire returns an Inspire provider. cfg.BaseURL overrides the endpoint.
func NewInspire(cfg types.FetchConfig, client *http.Client) *Inspire {
	base := cfg.BaseURL
	if base == "" {
		base = inspireSearchBase
	}
	return &Inspire{
		client:  client,
		base:    base,
		header:  userAgentHeader(cfg),
		retries: cfg.RetriesOn429,
	}
}

// Name returns the provider identifier.
func (p *Inspire) Name() string { return "inspire" }

// AuthorQuery returns "author:<name>".
func (p *Inspire) AuthorQuery(name string) string { return "author:" + name }

// CitesQuery returns "refersto:recid:<id>".
func (p *Inspire) CitesQuery(paperID string) string { return "refersto:recid:" + paperID }

// MaxPageSize reports no provider-side cap.
func (p *Inspire) MaxPageSize() int { return 0 }

// FetchPage requests one page of records.
func (p *Inspire) FetchPage(ctx context.Context, query string, offset, size int) ([]types.Record, error) {
	params := url.Values{
		"p":    {query},
		"of":   {"recjson"},
		"ot":   {inspireFields},
		"so":   {"a"},
		"rg":   {strconv.Itoa(size)},
		"jrec": {strconv.Itoa(offset + 1)},
	}

	var raw []inspireRecord
	if err := httputil.GetJSON(ctx, p.client, p.base+"?"+params.Encode(), p.header, p.retries, &raw); err != nil {
		return nil, fmt.Errorf("inspire %q offset %d: %w", query, offset, err)
	}

	records := make([]types.Record, len(raw))
	for i, r := range raw {
		id := r.RecID
		if id == "" {
			id = r.ID
		}
		records[i] = types.Record{ID: string(id), Date: r.CreationDate}
	}
	return records, nil
}

// Invenio JSON structures.
type inspireRecord struct {
	RecID        flexID `json:"recid"`
	ID           flexID `json:"id"`
	CreationDate string `json:"creation_date"`
}

// flexID accepts a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("record id %s: %w", b, err)
	}
	*f = flexID(n.String())
	return nil
}
