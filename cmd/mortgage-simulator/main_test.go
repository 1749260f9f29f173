package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/mortgage-simulator/internal/auth"
	"github.com/iwvelando/mortgage-simulator/internal/config"
	"github.com/iwvelando/mortgage-simulator/internal/proposal"
	"github.com/iwvelando/mortgage-simulator/internal/storage"
	"github.com/iwvelando/mortgage-simulator/pkg/output"
	"github.com/iwvelando/mortgage-simulator/pkg/testutil"
)

// execute runs the root command with the given arguments and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file=", "--log-level", "error"}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

// writeTestConfig writes a configuration using a SQLite database in a temp dir.
func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "proposals.db")
	contents := "storage:\n" +
		"  driver: sqlite\n" +
		"  sqlite:\n" +
		"    path: " + dbPath + "\n" +
		"auth:\n" +
		"  jwtSecret: cli-secret\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path, dbPath
}

func seedProposal(t *testing.T, dbPath string, id, name string) proposal.Record {
	t.Helper()

	store, err := storage.OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	record := proposal.Record{
		ID:             id,
		Name:           name,
		Email:          "maria@example.com",
		Phone:          "11987654321",
		TaxID:          "12345678909",
		PropertyValue:  500000,
		DownPayment:    100000,
		LoanAmount:     400000,
		MonthlyPayment: 4114.450387702017,
		TotalAmount:    1481202.1395727261,
		InterestRate:   12,
		LoanTerm:       30,
		Signature:      testutil.SignatureDataURL(t),
		CreatedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Insert(context.Background(), record); err != nil {
		t.Fatalf("failed to seed proposal: %v", err)
	}
	return record
}

func TestSimulateCommand(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "missing.yaml")

	out, err := execute(t, "--config", configPath, "simulate", "--value", "500000", "--output", "json")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	var report output.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("failed to decode output %q: %v", out, err)
	}
	if report.Parameters.AnnualInterestRate != 0.12 || report.Parameters.LoanTermYears != 30 {
		t.Errorf("expected configured defaults, got %+v", report.Parameters)
	}
	if report.Result.LoanAmount != 400000 {
		t.Errorf("loanAmount = %v, expected 400000", report.Result.LoanAmount)
	}
	if len(report.Schedule) != 0 {
		t.Errorf("expected no schedule, got %d rows", len(report.Schedule))
	}
}

func TestSimulateCommandFlags(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "missing.yaml")

	out, err := execute(t, "--config", configPath, "simulate",
		"--value", "300000", "--down", "50", "--term", "5", "--rate", "0", "--schedule", "--output", "csv")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 61 {
		t.Fatalf("expected header plus 60 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "1,2500.00,0.00,2500.00,") {
		t.Errorf("unexpected first row %q", lines[1])
	}
}

func TestSimulateCommandErrors(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "missing.yaml")

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{"Missing value", []string{"simulate"}, "value"},
		{"Low down payment", []string{"simulate", "--value", "500000", "--down", "19.99"}, "down payment"},
		{"Term above maximum", []string{"simulate", "--value", "500000", "--term", "10000", "--schedule"}, "loan term"},
		{"Invalid output", []string{"simulate", "--value", "500000", "--output", "xml"}, "expected output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"--config", configPath}, tt.args...)...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not mention %q", err, tt.contains)
			}
		})
	}
}

func TestProposalsCommands(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)
	record := seedProposal(t, dbPath, "c0ffee00-0000-4000-8000-000000000001", "=HYPERLINK(\"x\")")

	t.Run("ListPretty", func(t *testing.T) {
		out, err := execute(t, "--config", configPath, "proposals", "list")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(out, record.ID) || !strings.Contains(out, "1 proposal(s)") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("ListCSV", func(t *testing.T) {
		out, err := execute(t, "--config", configPath, "proposals", "list", "--output", "csv")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(out, `'=HYPERLINK`) {
			t.Errorf("expected formula to be neutralised:\n%s", out)
		}
		if !strings.Contains(out, "123.456.789-09") || !strings.Contains(out, "4114.45") {
			t.Errorf("unexpected CSV:\n%s", out)
		}
	})

	t.Run("ListQueryNoMatch", func(t *testing.T) {
		out, err := execute(t, "--config", configPath, "proposals", "list", "--query", "nobody")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(out, "No proposals found.") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("Show", func(t *testing.T) {
		out, err := execute(t, "--config", configPath, "proposals", "show", record.ID)
		if err != nil {
			t.Fatalf("show failed: %v", err)
		}
		var got proposal.Record
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if got.ID != record.ID || got.TaxID != record.TaxID {
			t.Errorf("unexpected record %+v", got)
		}
	})

	t.Run("ShowMissing", func(t *testing.T) {
		_, err := execute(t, "--config", configPath, "proposals", "show", "missing")
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Fatalf("expected not found error, got %v", err)
		}
	})

	t.Run("Export", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out", "proposal.pdf")
		out, err := execute(t, "--config", configPath, "proposals", "export", record.ID, "--out", target)
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if strings.TrimSpace(out) != target {
			t.Errorf("expected path %q, got %q", target, out)
		}
		data, err := os.ReadFile(target)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !bytes.HasPrefix(data, []byte("%PDF")) {
			t.Error("expected a PDF file")
		}
	})
}

func TestTokenCommand(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, err := execute(t, "--config", configPath, "token", "--subject", "ops", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}

	verifier := auth.NewService(config.AuthConfig{JWTSecret: "cli-secret", Issuer: "mortgage-simulator"})
	subject, err := verifier.Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if subject != "ops" {
		t.Errorf("subject = %q, expected ops", subject)
	}
}

func TestTokenCommandWithoutSecret(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := execute(t, "--config", configPath, "token"); err == nil {
		t.Fatal("expected an error without a signing secret")
	}
}
