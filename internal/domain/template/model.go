package template

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// Content formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Domain errors
var (
	ErrEmptyName     = errors.New("template name is required")
	ErrEmptySubject  = errors.New("template subject is required")
	ErrEmptyContent  = errors.New("template content is required")
	ErrInvalidFormat = errors.New("template format must be 'html' or 'markdown'")
)

// mdRenderer renders markdown templates. Raw HTML in the source is escaped.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Template is a reusable email body produced by the template editor.
// Content is opaque HTML unless Format is markdown.
type Template struct {
	ID        string
	Name      string
	Subject   string
	Content   string
	Format    string
	LastUsed  string // YYYY-MM-DD of the last dispatch, empty if never used
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that the Template has valid data.
// PRE: Template struct is populated
// POST: Returns nil if valid, error otherwise; an empty Format defaults to html
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(t.Subject) == "" {
		return ErrEmptySubject
	}
	if strings.TrimSpace(t.Content) == "" {
		return ErrEmptyContent
	}
	if t.Format == "" {
		t.Format = FormatHTML
	}
	if t.Format != FormatHTML && t.Format != FormatMarkdown {
		return ErrInvalidFormat
	}
	return nil
}

// HTML returns the body to hand to the delivery provider.
// PRE: Template has been validated
// POST: HTML content is returned as-is; markdown is rendered to HTML
func (t *Template) HTML() (string, error) {
	if t.Format != FormatMarkdown {
		return t.Content, nil
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(t.Content), &buf); err != nil {
		return "", fmt.Errorf("render markdown template %s: %w", t.ID, err)
	}
	return buf.String(), nil
}

// MarkUsed stamps the template with the dispatch date.
// PRE: date is YYYY-MM-DD
// POST: LastUsed == date
func (t *Template) MarkUsed(date string, now time.Time) {
	t.LastUsed = date
	t.UpdatedAt = now
}
