package template

import (
	"strings"
	"testing"
	"time"
)

// TestTemplateValidate tests template validation rules.
func TestTemplateValidate(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    Template
		wantErr error
	}{
		{"valid html", Template{Name: "Welcome", Subject: "Hi", Content: "<p>Hi</p>"}, nil},
		{"valid markdown", Template{Name: "News", Subject: "News", Content: "# News", Format: FormatMarkdown}, nil},
		{"missing name", Template{Subject: "Hi", Content: "<p>Hi</p>"}, ErrEmptyName},
		{"missing subject", Template{Name: "Welcome", Content: "<p>Hi</p>"}, ErrEmptySubject},
		{"missing content", Template{Name: "Welcome", Subject: "Hi"}, ErrEmptyContent},
		{"bad format", Template{Name: "Welcome", Subject: "Hi", Content: "x", Format: "mjml"}, ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tmpl.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestTemplateValidateDefaultsFormat tests that an empty format becomes html.
func TestTemplateValidateDefaultsFormat(t *testing.T) {
	tmpl := Template{Name: "Welcome", Subject: "Hi", Content: "<p>Hi</p>"}
	if err := tmpl.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if tmpl.Format != FormatHTML {
		t.Errorf("Format = %q, want %q", tmpl.Format, FormatHTML)
	}
}

// TestTemplateHTML tests rendering for both formats.
func TestTemplateHTML(t *testing.T) {
	raw := Template{ID: "t1", Content: "<p>Hello <b>there</b></p>", Format: FormatHTML}
	got, err := raw.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if got != raw.Content {
		t.Errorf("HTML() = %q, want content unchanged", got)
	}

	md := Template{ID: "t2", Content: "# Spring sale\n\nUp to **30%** off", Format: FormatMarkdown}
	got, err = md.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if !strings.Contains(got, "<h1>Spring sale</h1>") {
		t.Errorf("HTML() = %q, want rendered heading", got)
	}
	if !strings.Contains(got, "<strong>30%</strong>") {
		t.Errorf("HTML() = %q, want rendered emphasis", got)
	}
}

// TestTemplateMarkUsed tests the last-used stamp.
func TestTemplateMarkUsed(t *testing.T) {
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	tmpl := Template{ID: "t1"}
	tmpl.MarkUsed("2024-01-02", now)
	if tmpl.LastUsed != "2024-01-02" {
		t.Errorf("LastUsed = %q, want 2024-01-02", tmpl.LastUsed)
	}
	if !tmpl.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", tmpl.UpdatedAt, now)
	}
}
