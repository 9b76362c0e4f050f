package search

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxlookup/lib/label"
	"github.com/pthm/hxlookup/lib/record"
)

var nameFormat = label.New("Name", "")

func rows(names ...string) []record.Record {
	out := make([]record.Record, 0, len(names))
	for _, n := range names {
		out = append(out, record.Record{"Id": "id-" + n, "Name": n})
	}
	return out
}

func labels(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Label)
	}
	return out
}

func TestSessionApplyFormatsCandidates(t *testing.T) {
	var s Session
	tk := s.Issue("ac")

	require.True(t, s.Apply(tk, rows("Acme", "Acorn"), nil, nameFormat))

	want := []Candidate{
		{ID: "id-Acme", Values: record.Record{"Id": "id-Acme", "Name": "Acme"}, Label: "Acme"},
		{ID: "id-Acorn", Values: record.Record{"Id": "id-Acorn", "Name": "Acorn"}, Label: "Acorn"},
	}
	if diff := cmp.Diff(want, s.Candidates()); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionOutOfOrderResponses(t *testing.T) {
	var s Session
	a := s.Issue("a")
	ab := s.Issue("ab")
	abc := s.Issue("abc")

	// "abc" lands first, then the slower "ab" and "a" responses.
	assert.True(t, s.Apply(abc, rows("abc1"), nil, nameFormat))
	assert.False(t, s.Apply(ab, rows("ab1", "ab2"), nil, nameFormat))
	assert.False(t, s.Apply(a, rows("a1", "a2", "a3"), nil, nameFormat))

	assert.Equal(t, []string{"abc1"}, labels(s.Candidates()))
	assert.Equal(t, "abc", s.Text())
}

func TestSessionStaleErrorIgnored(t *testing.T) {
	var s Session
	old := s.Issue("x")
	live := s.Issue("xy")
	require.True(t, s.Apply(live, rows("xy1"), nil, nameFormat))

	assert.False(t, s.Apply(old, nil, errors.New("boom"), nameFormat))
	assert.NoError(t, s.Err())
	assert.Len(t, s.Candidates(), 1)
}

func TestSessionErrorClearsCandidates(t *testing.T) {
	var s Session
	tk := s.Issue("a")
	require.True(t, s.Apply(tk, rows("a1"), nil, nameFormat))

	tk = s.Issue("ab")
	boom := errors.New("boom")
	require.True(t, s.Apply(tk, nil, boom, nameFormat))

	assert.Empty(t, s.Candidates())
	assert.ErrorIs(t, s.Err(), boom)
}

func TestSessionFind(t *testing.T) {
	var s Session
	tk := s.Issue("")
	s.Apply(tk, rows("one", "two"), nil, nameFormat)

	c, ok := s.Find("id-two")
	require.True(t, ok)
	assert.Equal(t, "two", c.Label)

	_, ok = s.Find("id-three")
	assert.False(t, ok)

	s.Discard()
	_, ok = s.Find("id-two")
	assert.False(t, ok)
}

func TestSessionInvalidate(t *testing.T) {
	var s Session
	tk := s.Issue("ac")
	s.Invalidate()

	assert.False(t, s.IsLive(tk))
	assert.False(t, s.Apply(tk, rows("acme"), nil, nameFormat))
	assert.Empty(t, s.Candidates())
	assert.Equal(t, "ac", s.Text())

	next := s.Issue("acm")
	assert.True(t, s.Apply(next, rows("acme"), nil, nameFormat))
	assert.Len(t, s.Candidates(), 1)
}
