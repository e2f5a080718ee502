package profile

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Profile holds the candidate identity and the documents the agent answers from.
type Profile struct {
	Name     string
	Summary  string
	LinkedIn string
}

// Config points the loader at the candidate's documents. SummaryFile is plain
// text; LinkedInFile is a PDF export extracted with pdftotext.
type Config struct {
	Name         string `mapstructure:"name"`
	SummaryFile  string `mapstructure:"summary-file"`
	LinkedInFile string `mapstructure:"linkedin-file"`
}

// pdfToText is swapped in tests.
var pdfToText = extractPDF

// Load reads the configured profile documents. Either document may be absent,
// but a profile with no text at all is an error: the agent has nothing to
// answer from.
func Load(cfg *Config, logger *zap.Logger) (*Profile, error) {
	if cfg == nil {
		return nil, errors.New("profile configuration is required")
	}

	p := &Profile{Name: strings.TrimSpace(cfg.Name)}
	if p.Name == "" {
		return nil, errors.New("profile name is required")
	}

	if file := strings.TrimSpace(cfg.SummaryFile); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading summary file %q: %w", file, err)
			}
			logger.Warn("summary file not found", zap.String("file", file))
		} else {
			p.Summary = strings.TrimSpace(string(data))
		}
	}

	if file := strings.TrimSpace(cfg.LinkedInFile); file != "" {
		text, err := pdfToText(file)
		if err != nil {
			logger.Warn("linkedin pdf extraction failed", zap.String("file", file), zap.Error(err))
		} else {
			p.LinkedIn = text
		}
	}

	if p.Summary == "" && p.LinkedIn == "" {
		return nil, errors.New("profile is empty: neither summary nor linkedin text could be loaded")
	}

	logger.Info("profile loaded",
		zap.String("name", p.Name),
		zap.Int("summary_chars", len(p.Summary)),
		zap.Int("linkedin_chars", len(p.LinkedIn)),
	)

	return p, nil
}

// Context concatenates the profile documents into the text block handed to
// the drafting prompt.
func (p *Profile) Context() string {
	var b strings.Builder

	if p.Summary != "" {
		b.WriteString("## Profile Summary:\n")
		b.WriteString(p.Summary)
		b.WriteString("\n\n")
	}

	if p.LinkedIn != "" {
		b.WriteString("## LinkedIn Profile:\n")
		b.WriteString(p.LinkedIn)
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

// extractPDF shells out to pdftotext (poppler-utils).
func extractPDF(file string) (string, error) {
	if _, err := os.Stat(file); err != nil {
		return "", fmt.Errorf("stat %q: %w", file, err)
	}

	out, err := exec.Command("pdftotext", "-layout", file, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext %q (install poppler-utils): %w", file, err)
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", fmt.Errorf("no text extracted from %q", file)
	}

	return text, nil
}
