package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/iwvelando/mortgage-simulator/internal/proposal"
	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"github.com/iwvelando/mortgage-simulator/pkg/format"
	"github.com/iwvelando/mortgage-simulator/pkg/mathutil"
	"github.com/iwvelando/mortgage-simulator/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func newProposalsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "Inspect accepted proposals",
	}
	cmd.AddCommand(
		newProposalsListCommand(root),
		newProposalsShowCommand(root),
		newProposalsExportCommand(root),
	)
	return cmd
}

func newProposalsListCommand(root *rootOptions) *cobra.Command {
	var (
		query        string
		limit        int
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proposals, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validation.ValidateOutputFormat(outputFormat); err != nil {
				return err
			}

			conf, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			service, store, err := openProposals(cmd.Context(), conf, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := service.List(cmd.Context(), proposal.ListOptions{Query: query, Limit: limit})
			if err != nil {
				return err
			}
			logger.Debug("listed proposals",
				zap.String("op", "main.proposalsList"),
				zap.Int("count", len(records)),
			)
			for i := range records {
				records[i].Signature = ""
			}
			return writeProposals(cmd.OutOrStdout(), outputFormat, conf.Document.Locale, records)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name, e-mail or tax ID")
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultListLimit, "maximum number of proposals")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", constants.OutputFormatPretty, "output format: pretty, csv, yaml, json")
	return cmd
}

func newProposalsShowCommand(root *rootOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat != constants.OutputFormatJSON && outputFormat != constants.OutputFormatYAML {
				return fmt.Errorf("invalid output format '%s', must be one of: %s, %s", outputFormat, constants.OutputFormatJSON, constants.OutputFormatYAML)
			}

			conf, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			service, store, err := openProposals(cmd.Context(), conf, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			record, err := service.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("proposal %s: %w", args[0], err)
			}
			return encodeRecord(cmd.OutOrStdout(), outputFormat, record)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", constants.OutputFormatJSON, "output format: json, yaml")
	return cmd
}

func newProposalsExportCommand(root *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Render a stored proposal to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			service, store, err := openProposals(cmd.Context(), conf, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			doc, filename, err := service.Render(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("proposal %s: %w", args[0], err)
			}

			path := out
			if path == "" {
				path = filename
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o750); err != nil {
					return fmt.Errorf("creating output dir: %w", err)
				}
			}
			if err := os.WriteFile(path, doc, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			logger.Info("exported proposal document",
				zap.String("op", "main.proposalsExport"),
				zap.String("id", args[0]),
				zap.String("path", path),
			)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output file (default proposta-financiamento-<name>.pdf)")
	return cmd
}

func writeProposals(w io.Writer, outputFormat, locale string, records []proposal.Record) error {
	switch outputFormat {
	case constants.OutputFormatCSV:
		return proposalsCSV(w, records)
	case constants.OutputFormatJSON, constants.OutputFormatYAML:
		return encodeRecord(w, outputFormat, records)
	default:
		return proposalsPretty(w, locale, records)
	}
}

func encodeRecord(w io.Writer, outputFormat string, v interface{}) error {
	if outputFormat == constants.OutputFormatYAML {
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func proposalsPretty(w io.Writer, locale string, records []proposal.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No proposals found.")
		return err
	}

	if _, err := fmt.Fprintf(w, "%-36s | %-16s | %-30s | %-16s | %-14s\n", "ID", "Created", "Name", "Property value", "Installment"); err != nil {
		return err
	}
	for _, r := range records {
		_, err := fmt.Fprintf(w, "%-36s | %-16s | %-30s | %-16s | %-14s\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Name, 30),
			format.Currency(r.PropertyValue, locale),
			format.Currency(r.MonthlyPayment, locale),
		)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d proposal(s)\n", len(records))
	return err
}

// proposalsCSV writes one row per proposal. Free-text cells are neutralised
// against spreadsheet formula injection.
func proposalsCSV(w io.Writer, records []proposal.Record) error {
	writer := csv.NewWriter(w)
	header := []string{"id", "createdAt", "name", "email", "phone", "taxId", "propertyValue", "downPayment",
		"loanAmount", "monthlyPayment", "totalAmount", "interestRate", "loanTerm"}
	if err := writer.Write(header); err != nil {
		return err
	}

	money := func(v float64) string {
		return strconv.FormatFloat(mathutil.Round(v), 'f', 2, 64)
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.CreatedAt.UTC().Format(time.RFC3339),
			validation.SanitizeForFormulaInjection(r.Name),
			validation.SanitizeForFormulaInjection(r.Email),
			format.Phone(r.Phone),
			format.TaxID(r.TaxID),
			money(r.PropertyValue),
			money(r.DownPayment),
			money(r.LoanAmount),
			money(r.MonthlyPayment),
			money(r.TotalAmount),
			strconv.FormatFloat(r.InterestRate, 'f', -1, 64),
			strconv.Itoa(r.LoanTerm),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
