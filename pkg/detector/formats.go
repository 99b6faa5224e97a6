package detector

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ccollicutt/logcat/pkg/model"
)

// Rule pairs a format with the predicate that recognizes it.
type Rule struct {
	Format     model.Format
	Name       string         // Human-readable name
	Pattern    *regexp.Regexp // nil for rules that are not regex based
	PatternStr string
	Examples   []string
	match      func(line string) bool
}

// Matches reports whether the rule recognizes the (trimmed) line.
func (r *Rule) Matches(line string) bool {
	if r.match != nil {
		return r.match(line)
	}
	return r.Pattern.MatchString(line)
}

var defaultRules = buildRules()

// Rules returns the detection rules in evaluation order. The first rule that
// matches a line decides its format; plain text is the implicit fallback.
//
// Order matters: Apache Combined is a superset of Apache Common and must be
// tried before it.
func Rules() []*Rule {
	out := make([]*Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

func buildRules() []*Rule {
	rules := []*Rule{
		{
			Format:   model.FormatJSON,
			Name:     "JSON lines",
			Examples: []string{`{"level":"info","message":"started"}`},
			match:    isJSONObject,
		},
		{
			Format:     model.FormatApacheCombined,
			Name:       "Apache combined",
			PatternStr: `^\S+ \S+ \S+ \[.+?\] ".+?" \d+ \d+ ".+?" ".+?"`,
			Examples: []string{
				`127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET /a.gif HTTP/1.0" 200 2326 "http://example.com/" "Mozilla/4.08"`,
			},
		},
		{
			Format:     model.FormatApacheCommon,
			Name:       "Apache common",
			PatternStr: `^\S+ \S+ \S+ \[.+?\] ".+?" \d+ \d+`,
			Examples:   []string{`127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /a.gif HTTP/1.0" 200 2326`},
		},
		{
			Format:     model.FormatNginxError,
			Name:       "Nginx error",
			PatternStr: `^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} \[\w+\] \d+#\d+: `,
			Examples:   []string{`2023/10/15 14:30:45 [error] 1234#1234: *1 open() failed`},
		},
	}

	for _, r := range rules {
		if r.PatternStr != "" {
			r.Pattern = regexp.MustCompile(r.PatternStr)
		}
	}

	return rules
}

func isJSONObject(line string) bool {
	return strings.HasPrefix(line, "{") && json.Valid([]byte(line))
}

// Detect returns the format of a single sample line. It never fails: lines
// that match no rule are plain text.
func Detect(line string) model.Format {
	line = strings.TrimSpace(line)
	for _, r := range defaultRules {
		if r.Matches(line) {
			return r.Format
		}
	}
	return model.FormatPlainText
}
