package orchestrators

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crmmail/internal/domain/customer"
)

const seedYAML = `customers:
  - id: cust-1
    name: Tanaka
    email: tanaka@example.com
    company: Acme
    status: アクティブ
  - name: Suzuki
    email: suzuki@example.com
    status: dormant
templates:
  - id: welcome
    name: Welcome
    subject: Welcome aboard
    content: "# Hello"
    format: markdown
`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestExecuteSeedFromFile(t *testing.T) {
	customers := &mockCustomerStore{}
	templates := newMockTemplateStore()
	deps := SeedFromFileDeps{Customers: customers, Templates: templates, Now: clock, GenerateID: idGen("gen")}

	res, err := ExecuteSeedFromFile(context.Background(), SeedFromFileInput{Path: writeSeed(t, seedYAML)}, deps)
	if err != nil {
		t.Fatalf("ExecuteSeedFromFile: %v", err)
	}
	if res.Customers != 2 || res.Templates != 1 {
		t.Errorf("result = %+v", res)
	}
	if customers.customers[0].Status != customer.StatusActive {
		t.Errorf("label status not normalized: %q", customers.customers[0].Status)
	}
	if customers.customers[1].ID != "gen1" {
		t.Errorf("generated id = %q", customers.customers[1].ID)
	}
	if tpl := templates.templates["welcome"]; tpl.Format != "markdown" || tpl.Subject != "Welcome aboard" {
		t.Errorf("template = %+v", tpl)
	}
}

func TestExecuteSeedFromFile_InvalidRow(t *testing.T) {
	body := `customers:
  - name: Broken
    email: not-an-email
    status: active
`
	_, err := ExecuteSeedFromFile(context.Background(), SeedFromFileInput{Path: writeSeed(t, body)},
		SeedFromFileDeps{Customers: &mockCustomerStore{}, Templates: newMockTemplateStore(), Now: clock, GenerateID: idGen("g")})
	if err == nil || !strings.Contains(err.Error(), "customer 0") {
		t.Errorf("err = %v", err)
	}
}

func TestExecuteSeedFromFile_Missing(t *testing.T) {
	_, err := ExecuteSeedFromFile(context.Background(), SeedFromFileInput{Path: filepath.Join(t.TempDir(), "none.yaml")},
		SeedFromFileDeps{Customers: &mockCustomerStore{}, Templates: newMockTemplateStore(), Now: clock, GenerateID: idGen("g")})
	if err == nil {
		t.Error("expected an error for a missing file")
	}
}
