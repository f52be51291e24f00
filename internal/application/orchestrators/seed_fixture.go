package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"crmmail/internal/domain/customer"
	domainTemplate "crmmail/internal/domain/template"
)

// CustomerStoreForSeed defines the store interface needed by SeedFromFile.
type CustomerStoreForSeed interface {
	Save(ctx context.Context, c customer.Customer) error
}

// TemplateStoreForSeed defines the store interface needed by SeedFromFile.
type TemplateStoreForSeed interface {
	Save(ctx context.Context, t domainTemplate.Template) error
}

// SeedFixture is the YAML layout of a seed file.
type SeedFixture struct {
	Customers []struct {
		ID      string `yaml:"id"`
		Name    string `yaml:"name"`
		Email   string `yaml:"email"`
		Company string `yaml:"company"`
		Status  string `yaml:"status"` // value or display label
	} `yaml:"customers"`
	Templates []struct {
		ID      string `yaml:"id"`
		Name    string `yaml:"name"`
		Subject string `yaml:"subject"`
		Content string `yaml:"content"`
		Format  string `yaml:"format"`
	} `yaml:"templates"`
}

// SeedFromFileInput names the fixture to load.
type SeedFromFileInput struct {
	Path string
}

// SeedFromFileDeps holds dependencies for SeedFromFile.
type SeedFromFileDeps struct {
	Customers  CustomerStoreForSeed
	Templates  TemplateStoreForSeed
	Now        func() time.Time
	GenerateID func() string
}

// SeedFromFileResult counts what was written.
type SeedFromFileResult struct {
	Customers int
	Templates int
}

// ExecuteSeedFromFile upserts the customers and templates in a YAML fixture.
// Rows with an id are overwritten on rerun; rows without one get a new id.
// PRE: in.Path names a readable YAML file
// POST: Every valid row is stored; the first invalid row aborts with its index
func ExecuteSeedFromFile(ctx context.Context, in SeedFromFileInput, deps SeedFromFileDeps) (SeedFromFileResult, error) {
	raw, err := os.ReadFile(in.Path)
	if err != nil {
		return SeedFromFileResult{}, fmt.Errorf("read seed file: %w", err)
	}
	var fx SeedFixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return SeedFromFileResult{}, fmt.Errorf("parse seed file: %w", err)
	}

	var res SeedFromFileResult
	now := deps.Now()
	for i, row := range fx.Customers {
		c := customer.Customer{
			ID:        row.ID,
			Name:      row.Name,
			Email:     row.Email,
			Company:   row.Company,
			Status:    customer.NormalizeStatus(row.Status),
			CreatedAt: now,
		}
		if c.ID == "" {
			c.ID = deps.GenerateID()
		}
		if err := c.Validate(); err != nil {
			return res, fmt.Errorf("customer %d: %w", i, err)
		}
		if err := deps.Customers.Save(ctx, c); err != nil {
			return res, fmt.Errorf("save customer %d: %w", i, err)
		}
		res.Customers++
	}

	for i, row := range fx.Templates {
		t := domainTemplate.Template{
			ID:        row.ID,
			Name:      row.Name,
			Subject:   row.Subject,
			Content:   row.Content,
			Format:    row.Format,
			CreatedAt: now,
		}
		if t.ID == "" {
			t.ID = deps.GenerateID()
		}
		if err := t.Validate(); err != nil {
			return res, fmt.Errorf("template %d: %w", i, err)
		}
		if err := deps.Templates.Save(ctx, t); err != nil {
			return res, fmt.Errorf("save template %d: %w", i, err)
		}
		res.Templates++
	}

	slog.Info("seed_loaded", "path", in.Path, "customers", res.Customers, "templates", res.Templates)
	return res, nil
}
