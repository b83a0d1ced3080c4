// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider implements the bibliographic search services the
// fetcher pages through. Each provider turns an author name or a paper id
// into a provider-specific query and returns one page of records per call.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/pdiddy/bibliometrics/pkg/types"
)

// Provider is one bibliographic search service.
type Provider interface {
	// Name returns the provider identifier used in logs and metrics.
	Name() string

	// AuthorQuery returns the query listing the papers of an author.
	AuthorQuery(name string) string

	// CitesQuery returns the query listing the records citing a paper.
	CitesQuery(paperID string) string

	// MaxPageSize is the largest page the service returns, or 0 if unbounded.
	MaxPageSize() int

	// FetchPage returns at most size records of query starting at the
	// 0-based offset. Any transport, status, or decoding failure is an error.
	FetchPage(ctx context.Context, query string, offset, size int) ([]types.Record, error)
}

// Names lists the providers New accepts.
var Names = []string{"inspire", "openalex", "semantic_scholar"}

// New returns the provider selected by cfg.Provider.
func New(cfg types.FetchConfig, client *http.Client) (Provider, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "inspire":
		return NewInspire(cfg, client), nil
	case "openalex":
		return NewOpenAlex(cfg, client), nil
	case "semantic_scholar", "semanticscholar", "s2":
		return NewSemanticScholar(cfg, client), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want one of %s)", cfg.Provider, strings.Join(Names, ", "))
	}
}

// ParseTimestamp parses a provider timestamp leniently, in UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}

func userAgentHeader(cfg types.FetchConfig) http.Header {
	h := http.Header{}
	ua := cfg.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	h.Set("User-Agent", ua)
	return h
}
