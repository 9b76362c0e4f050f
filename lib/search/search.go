// Package search owns the free-text query of a lookup and the candidate list
// built from remote search results.
//
// A Session is not safe for concurrent use. The widget event loop owns it and
// runs fetches elsewhere, handing each result back together with the Ticket it
// was issued under. Only the ticket matching the live query is applied.
package search

import (
	"context"

	"github.com/pthm/hxlookup/lib/label"
	"github.com/pthm/hxlookup/lib/record"
)

// Query is the request sent to a Searcher. Filter is an opaque expression the
// provider understands; it is passed through untouched.
type Query struct {
	Text       string
	EntityType string
	Filter     string
	Fields     []string
}

// Searcher runs a free-text search against the remote provider.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]record.Record, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, q Query) ([]record.Record, error)

func (f SearcherFunc) Search(ctx context.Context, q Query) ([]record.Record, error) {
	return f(ctx, q)
}

// Candidate is a search result decorated with its display label.
type Candidate struct {
	ID     string
	Values record.Record
	Label  string
}

// Ticket identifies one issued query.
type Ticket struct {
	Token uint64
	Text  string
}

// Session tracks the live query and the candidates for it.
type Session struct {
	token      uint64
	text       string
	candidates []Candidate
	err        error
}

// Issue records a query change and returns the ticket for its fetch. Any
// earlier ticket becomes stale.
func (s *Session) Issue(text string) Ticket {
	s.token++
	s.text = text
	return Ticket{Token: s.token, Text: text}
}

// Live returns the ticket of the most recent query.
func (s *Session) Live() Ticket {
	return Ticket{Token: s.token, Text: s.text}
}

// Text returns the current query text.
func (s *Session) Text() string {
	return s.text
}

// IsLive reports whether t is the most recently issued ticket.
func (s *Session) IsLive(t Ticket) bool {
	return t.Token == s.token
}

// Apply installs the result of the fetch issued under t. Stale tickets are
// dropped and Apply returns false. On error the candidate list is cleared and
// the error kept for Err.
func (s *Session) Apply(t Ticket, rows []record.Record, err error, f label.Formatter) bool {
	if !s.IsLive(t) {
		return false
	}
	if err != nil {
		s.candidates = nil
		s.err = err
		return true
	}
	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, Candidate{
			ID:     row.ID(),
			Values: row,
			Label:  f.Format(row),
		})
	}
	s.candidates = candidates
	s.err = nil
	return true
}

// Candidates returns the current list. Callers must not modify it.
func (s *Session) Candidates() []Candidate {
	return s.candidates
}

// Err returns the error of the last applied fetch, if any.
func (s *Session) Err() error {
	return s.err
}

// Find scans the candidates for id.
func (s *Session) Find(id string) (Candidate, bool) {
	for _, c := range s.candidates {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}

// Discard drops the candidate list.
func (s *Session) Discard() {
	s.candidates = nil
	s.err = nil
}

// Invalidate drops the candidate list and makes every issued ticket stale,
// so a fetch still in flight can no longer install results.
func (s *Session) Invalidate() {
	s.token++
	s.Discard()
}
