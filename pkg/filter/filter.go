// Package filter provides the compound predicate applied to parsed entries.
package filter

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/ccollicutt/logcat/pkg/model"
)

// DefaultMatchTimeout bounds a single search-pattern evaluation.
const DefaultMatchTimeout = 100 * time.Millisecond

// Presence is a tri-state requirement on an optional attribute.
type Presence int

const (
	PresenceAny Presence = iota
	PresenceRequired
	PresenceAbsent
)

// String returns the flag spelling of the presence value.
func (p Presence) String() string {
	switch p {
	case PresenceRequired:
		return "yes"
	case PresenceAbsent:
		return "no"
	default:
		return "any"
	}
}

// ParsePresence accepts yes/true/required, no/false/absent and any (or "").
func ParsePresence(s string) (Presence, error) {
	switch s {
	case "", "any":
		return PresenceAny, nil
	case "yes", "true", "required":
		return PresenceRequired, nil
	case "no", "false", "absent":
		return PresenceAbsent, nil
	}
	return PresenceAny, fmt.Errorf("%w: stack trace presence %q (must be yes, no or any)", model.ErrInvalidFilter, s)
}

// Options are the criteria of a Filter. Zero values leave a criterion unset.
type Options struct {
	// Levels admits only these levels. Empty admits every level.
	Levels []model.Level

	// SearchPattern must be found in the message or the raw text.
	// Perl-style syntax (lookarounds, backreferences) is accepted.
	SearchPattern string

	// Since and Until are inclusive bounds on the entry timestamp.
	Since time.Time
	Until time.Time

	// Source must equal the entry source exactly.
	Source string

	HasStackTrace Presence

	// MatchTimeout overrides DefaultMatchTimeout.
	MatchTimeout time.Duration
}

// Filter is an immutable, validated set of criteria. It is safe to share
// between goroutines.
type Filter struct {
	opts    Options
	levels  map[model.Level]struct{}
	pattern *regexp2.Regexp
}

// New validates opts and builds a Filter. It fails if Since is after Until
// or if the search pattern does not compile; errors wrap
// model.ErrInvalidFilter.
func New(opts Options) (*Filter, error) {
	if !opts.Since.IsZero() && !opts.Until.IsZero() && opts.Since.After(opts.Until) {
		return nil, fmt.Errorf("%w: since (%s) is after until (%s)",
			model.ErrInvalidFilter, opts.Since.Format(time.RFC3339), opts.Until.Format(time.RFC3339))
	}

	switch opts.HasStackTrace {
	case PresenceAny, PresenceRequired, PresenceAbsent:
	default:
		return nil, fmt.Errorf("%w: unknown stack trace presence %d", model.ErrInvalidFilter, opts.HasStackTrace)
	}

	f := &Filter{opts: opts}

	if len(opts.Levels) > 0 {
		f.levels = make(map[model.Level]struct{}, len(opts.Levels))
		for _, l := range opts.Levels {
			if !l.Valid() {
				return nil, fmt.Errorf("%w: unknown level %q", model.ErrInvalidFilter, l)
			}
			f.levels[l] = struct{}{}
		}
		f.opts.Levels = append([]model.Level(nil), opts.Levels...)
	}

	if opts.SearchPattern != "" {
		re, err := regexp2.Compile(opts.SearchPattern, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid regex pattern: %v", model.ErrInvalidFilter, err)
		}
		timeout := opts.MatchTimeout
		if timeout <= 0 {
			timeout = DefaultMatchTimeout
		}
		re.MatchTimeout = timeout
		f.pattern = re
	}

	return f, nil
}

// MustNew is like New but panics on invalid options.
func MustNew(opts Options) *Filter {
	f, err := New(opts)
	if err != nil {
		panic(err)
	}
	return f
}

// Options returns a copy of the criteria the filter was built from.
func (f *Filter) Options() Options {
	opts := f.opts
	opts.Levels = append([]model.Level(nil), f.opts.Levels...)
	return opts
}

// Empty reports whether no criterion is set, so every entry matches.
func (f *Filter) Empty() bool {
	return f.levels == nil &&
		f.pattern == nil &&
		f.opts.Since.IsZero() &&
		f.opts.Until.IsZero() &&
		f.opts.Source == "" &&
		f.opts.HasStackTrace == PresenceAny
}

// Matches reports whether the entry passes every criterion that is set.
// A nil Filter matches everything.
func (f *Filter) Matches(e *model.Entry) bool {
	if f == nil {
		return true
	}

	if f.levels != nil {
		if _, ok := f.levels[e.Level]; !ok {
			return false
		}
	}

	if !f.opts.Since.IsZero() && e.Timestamp.Before(f.opts.Since) {
		return false
	}
	if !f.opts.Until.IsZero() && e.Timestamp.After(f.opts.Until) {
		return false
	}

	if f.opts.Source != "" && e.Source != f.opts.Source {
		return false
	}

	switch f.opts.HasStackTrace {
	case PresenceRequired:
		if !e.HasStackTrace() {
			return false
		}
	case PresenceAbsent:
		if e.HasStackTrace() {
			return false
		}
	}

	if f.pattern != nil && !f.search(e.Message) && !f.search(e.RawText) {
		return false
	}

	return true
}

// search finds the pattern anywhere in s. A match that times out counts as
// no match.
func (f *Filter) search(s string) bool {
	ok, err := f.pattern.MatchString(s)
	return err == nil && ok
}

// Apply returns the entries that match, preserving order.
func (f *Filter) Apply(entries []*model.Entry) []*model.Entry {
	out := make([]*model.Entry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
