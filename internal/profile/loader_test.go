package profile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestLoadSummaryOnly(t *testing.T) {
	dir := t.TempDir()
	summary := filepath.Join(dir, "summary.txt")
	if err := os.WriteFile(summary, []byte("Full-stack developer.\n"), 0o600); err != nil {
		t.Fatalf("writing summary: %v", err)
	}

	origPDF := pdfToText
	pdfToText = func(string) (string, error) { return "", errors.New("no pdftotext") }
	defer func() { pdfToText = origPDF }()

	p, err := Load(&Config{
		Name:         "Egemen",
		SummaryFile:  summary,
		LinkedInFile: filepath.Join(dir, "linkedin.pdf"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Summary != "Full-stack developer." {
		t.Fatalf("unexpected summary: %q", p.Summary)
	}

	if p.LinkedIn != "" {
		t.Fatalf("expected empty linkedin text, got %q", p.LinkedIn)
	}
}

func TestLoadUsesPDFText(t *testing.T) {
	origPDF := pdfToText
	pdfToText = func(string) (string, error) { return "Experience: Backend Engineer", nil }
	defer func() { pdfToText = origPDF }()

	p, err := Load(&Config{Name: "Egemen", LinkedInFile: "linkedin.pdf"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(p.LinkedIn, "Backend Engineer") {
		t.Fatalf("unexpected linkedin text: %q", p.LinkedIn)
	}
}

func TestLoadEmptyProfileFails(t *testing.T) {
	origPDF := pdfToText
	pdfToText = func(string) (string, error) { return "", errors.New("unavailable") }
	defer func() { pdfToText = origPDF }()

	if _, err := Load(&Config{Name: "Egemen"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty profile")
	}
}

func TestLoadRequiresName(t *testing.T) {
	if _, err := Load(&Config{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestContextCombinesDocuments(t *testing.T) {
	p := &Profile{Name: "Egemen", Summary: "summary text", LinkedIn: "linkedin text"}

	ctx := p.Context()
	if !strings.Contains(ctx, "## Profile Summary:\nsummary text") {
		t.Fatalf("missing summary section: %q", ctx)
	}
	if !strings.Contains(ctx, "## LinkedIn Profile:\nlinkedin text") {
		t.Fatalf("missing linkedin section: %q", ctx)
	}
}
