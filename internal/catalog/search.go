package catalog

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/carepoint/engine/internal/shared/config"
	"github.com/carepoint/engine/internal/shared/metrics"
)

// RemoteFunc queries the backend medication registry
type RemoteFunc func(ctx context.Context, query string, limit int) ([]Entry, error)

// Option is one selectable item in the suggestion list. The typed text is
// always offered as a free-text option, so the user is never forced to pick
// a catalog entry.
type Option struct {
	Label    string `json:"label"`
	FreeText bool   `json:"freeText"`
	Entry    *Entry `json:"entry,omitempty"`
}

// Engine ranks resident catalog entries against the current query and
// tops the list up from the remote registry when the local tier runs thin.
// Local results render immediately; enrichment fires after the query has
// been stable for the debounce window and merges in without reordering
// what is already shown.
type Engine struct {
	catalog *Catalog
	cfg     config.SearchConfig
	remote  RemoteFunc
	log     zerolog.Logger

	mu          sync.Mutex
	query       string
	suggestions []Entry
	highlight   int
	pending     *time.Timer
}

// NewEngine creates a search engine over the catalog. remote may be nil to
// disable enrichment.
func NewEngine(cat *Catalog, cfg config.SearchConfig, remote RemoteFunc, log zerolog.Logger) *Engine {
	return &Engine{
		catalog:   cat,
		cfg:       cfg,
		remote:    remote,
		log:       log.With().Str("component", "search").Logger(),
		highlight: -1,
	}
}

// SetQuery installs a new query: local results replace the suggestion list
// synchronously and any scheduled enrichment for the old query is dropped.
func (e *Engine) SetQuery(ctx context.Context, query string) {
	query = strings.TrimSpace(query)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	e.query = query
	e.suggestions = e.rank(query)
	e.highlight = -1

	if query == "" || e.remote == nil {
		return
	}
	if len(query) < e.cfg.EnrichMinQueryLen || len(e.suggestions) >= e.cfg.EnrichBelowResults {
		return
	}
	q := query
	e.pending = time.AfterFunc(e.cfg.Debounce, func() {
		e.enrich(ctx, q)
	})
}

// Query returns the current query
func (e *Engine) Query() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Suggestions returns a copy of the current suggestion list
func (e *Engine) Suggestions() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Entry(nil), e.suggestions...)
}

// Options returns the selectable list: the typed text first, then the
// ranked suggestions.
func (e *Engine) Options() []Option {
	e.mu.Lock()
	defer e.mu.Unlock()
	opts := make([]Option, 0, len(e.suggestions)+1)
	if e.query != "" {
		opts = append(opts, Option{Label: e.query, FreeText: true})
	}
	for i := range e.suggestions {
		s := e.suggestions[i]
		opts = append(opts, Option{Label: s.Name, Entry: &s})
	}
	return opts
}

// Highlight returns the highlighted suggestion index, -1 for none
func (e *Engine) Highlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.highlight
}

// MoveHighlight steps the keyboard highlight by delta, clamped to the
// suggestion list
func (e *Engine) MoveHighlight(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.suggestions) == 0 {
		e.highlight = -1
		return
	}
	h := e.highlight + delta
	if h < 0 {
		h = 0
	}
	if h >= len(e.suggestions) {
		h = len(e.suggestions) - 1
	}
	e.highlight = h
}

// Selected returns the highlighted entry, if any
func (e *Engine) Selected() (Entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.highlight < 0 || e.highlight >= len(e.suggestions) {
		return Entry{}, false
	}
	return e.suggestions[e.highlight], true
}

// rank scores resident entries in three tiers: exact, prefix, contains.
// Exact covers the whole name, the generic, or the name's leading word, so
// "dolo" ranks "Dolo 650" above longer continuations. Within the prefix
// tier, matches that end at a word boundary ("Dolo-X") come before
// mid-word continuations ("dolokind"). The contains tier is a substring
// test across name, generic, code, category and manufacturer. Ties keep
// catalog order. Caller holds the lock.
func (e *Engine) rank(query string) []Entry {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	var exactName, exactWord, boundary, midword, contains []Entry
	for _, ent := range e.catalog.All() {
		name := strings.ToLower(ent.Name)
		generic := strings.ToLower(ent.GenericName)
		switch {
		case name == q:
			exactName = append(exactName, ent)
		case generic == q || leadWord(name) == q:
			exactWord = append(exactWord, ent)
		case strings.HasPrefix(name, q) || strings.HasPrefix(generic, q):
			if boundaryAfter(name, q) || boundaryAfter(generic, q) {
				boundary = append(boundary, ent)
			} else {
				midword = append(midword, ent)
			}
		case strings.Contains(name, q) || strings.Contains(generic, q) ||
			strings.Contains(strings.ToLower(ent.Code), q) ||
			strings.Contains(strings.ToLower(ent.Category), q) ||
			strings.Contains(strings.ToLower(ent.Manufacturer), q):
			contains = append(contains, ent)
		}
	}
	out := append(exactName, exactWord...)
	out = append(out, boundary...)
	out = append(out, midword...)
	out = append(out, contains...)
	if len(out) > e.cfg.MaxSuggestions {
		out = out[:e.cfg.MaxSuggestions]
	}
	return out
}

func leadWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// boundaryAfter reports whether s starts with prefix and the match ends at
// a word boundary rather than running into further letters or digits.
func boundaryAfter(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	rest := s[len(prefix):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// enrich tops the suggestion list up from the remote registry. Failures
// are swallowed: the local tier already rendered and stays valid.
func (e *Engine) enrich(ctx context.Context, query string) {
	results, err := e.remote(ctx, query, e.cfg.MaxSuggestions)
	if err != nil {
		metrics.RecordEnrichment("error")
		e.log.Debug().Err(err).Str("query", query).Msg("enrichment failed, local results stand")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// The query moved on while the request was in flight.
	if e.query != query {
		metrics.RecordEnrichment("superseded")
		return
	}

	seen := make(map[string]bool, len(e.suggestions))
	for _, s := range e.suggestions {
		seen[strings.ToLower(s.Name)] = true
	}
	var fresh []Entry
	for _, r := range results {
		key := strings.ToLower(r.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, r)
		if len(e.suggestions)+len(fresh) >= e.cfg.MaxSuggestions {
			break
		}
	}
	e.suggestions = append(e.suggestions, fresh...)
	e.catalog.Add(fresh)
	metrics.RecordEnrichment("ok")
}
