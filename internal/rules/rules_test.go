package rules

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cloud-clipper/internal/model"
)

func newTestMatcher() *Matcher {
	return NewMatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMatcher_Match(t *testing.T) {
	m := newTestMatcher()

	t.Run("bare pattern matches hostname", func(t *testing.T) {
		ruleSet := []model.DomainRule{
			{ID: "r1", Enabled: true, DomainPattern: "example.com", TargetPath: "/Example"},
		}
		got := m.Match("https://example.com/some/page", ruleSet)
		require.NotNil(t, got)
		assert.Equal(t, "r1", got.ID)
	})

	t.Run("wildcard matches subdomains", func(t *testing.T) {
		ruleSet := []model.DomainRule{
			{ID: "r1", Enabled: true, DomainPattern: "*.example.com"},
		}
		assert.NotNil(t, m.Match("https://docs.example.com/a", ruleSet))
		assert.Nil(t, m.Match("https://example.com/a", ruleSet))
	})

	t.Run("dot is literal", func(t *testing.T) {
		ruleSet := []model.DomainRule{
			{ID: "r1", Enabled: true, DomainPattern: "example.com"},
		}
		assert.Nil(t, m.Match("https://exampleXcom/a", ruleSet))
	})

	t.Run("pattern with slash matches scheme-stripped url", func(t *testing.T) {
		ruleSet := []model.DomainRule{
			{ID: "r1", Enabled: true, DomainPattern: "example.com/blog/*"},
		}
		assert.NotNil(t, m.Match("https://example.com/blog/post-1", ruleSet))
		assert.Nil(t, m.Match("https://example.com/shop/item", ruleSet))
	})

	t.Run("first matching rule wins", func(t *testing.T) {
		ruleSet := []model.DomainRule{
			{ID: "first", Enabled: true, DomainPattern: "*.example.com"},
			{ID: "second", Enabled: true, DomainPattern: "docs.example.com"},
		}
		got := m.Match("https://docs.example.com/a", ruleSet)
		require.NotNil(t, got)
		assert.Equal(t, "first", got.ID)
	})

	t.Run("disabled rules are skipped", func(t *testing.T) {
		ruleSet := []model.DomainRule{
			{ID: "off", Enabled: false, DomainPattern: "example.com"},
			{ID: "on", Enabled: true, DomainPattern: "example.com"},
		}
		got := m.Match("https://example.com/", ruleSet)
		require.NotNil(t, got)
		assert.Equal(t, "on", got.ID)
	})

	t.Run("malformed pattern does not block later rules", func(t *testing.T) {
		ruleSet := []model.DomainRule{
			{ID: "bad", Enabled: true, DomainPattern: "example.com"},
			{ID: "good", Enabled: true, DomainPattern: "example.com"},
		}
		// QuoteMeta makes almost anything compile, so force a long-form
		// check: an empty pattern is simply skipped.
		ruleSet[0].DomainPattern = ""
		got := m.Match("https://example.com/", ruleSet)
		require.NotNil(t, got)
		assert.Equal(t, "good", got.ID)
	})

	t.Run("no rules no url", func(t *testing.T) {
		assert.Nil(t, m.Match("", []model.DomainRule{{Enabled: true, DomainPattern: "*"}}))
		assert.Nil(t, m.Match("https://example.com", nil))
	})
}
