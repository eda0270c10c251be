// Package rules matches page URLs against user-configured domain rules to
// pick an upload destination before the default folder applies.
package rules

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"go-cloud-clipper/internal/model"
)

// Matcher evaluates domain rules in the order the user arranged them.
type Matcher struct {
	logger *slog.Logger
}

func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Match returns the first enabled rule whose pattern matches the page URL,
// or nil when no rule applies. Patterns containing "/" are matched against
// the scheme-stripped URL, bare patterns against the hostname only. Rules
// whose pattern cannot be compiled are skipped, never fatal.
func (m *Matcher) Match(pageURL string, ruleSet []model.DomainRule) *model.DomainRule {
	if pageURL == "" || len(ruleSet) == 0 {
		return nil
	}

	stripped := stripScheme(pageURL)
	host := hostname(pageURL)

	for i := range ruleSet {
		rule := &ruleSet[i]
		if !rule.Enabled || rule.DomainPattern == "" {
			continue
		}

		re, err := compilePattern(rule.DomainPattern)
		if err != nil {
			m.logger.Warn("skipping malformed domain rule",
				"rule_id", rule.ID,
				"pattern", rule.DomainPattern,
				"error", err)
			continue
		}

		subject := host
		if strings.Contains(rule.DomainPattern, "/") {
			subject = stripped
		}
		if re.MatchString(subject) {
			return rule
		}
	}

	return nil
}

// compilePattern turns a glob-ish domain pattern into an anchored regexp:
// dots are literal, "*" matches any run of characters.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*`, ".*")
	return regexp.Compile("^" + escaped + "$")
}

func stripScheme(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		return raw[i+3:]
	}
	return raw
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err == nil && u.Host != "" {
		return u.Hostname()
	}
	// Not an absolute URL, take everything up to the first path separator.
	stripped := stripScheme(raw)
	if i := strings.IndexByte(stripped, '/'); i >= 0 {
		stripped = stripped[:i]
	}
	return stripped
}
