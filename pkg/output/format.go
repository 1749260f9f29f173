// Package output provides utilities for formatting and displaying financing
// simulation results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"github.com/iwvelando/mortgage-simulator/pkg/financing"
	"github.com/iwvelando/mortgage-simulator/pkg/format"
	"github.com/iwvelando/mortgage-simulator/pkg/mathutil"
	"gopkg.in/yaml.v3"
)

// Report is a simulation as shown to the user: the inputs, the computed
// summary and optionally the amortization schedule.
type Report struct {
	Parameters financing.Parameters    `json:"parameters" yaml:"parameters"`
	Result     financing.Result        `json:"result" yaml:"result"`
	Schedule   []financing.Installment `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// Write renders the report in the named output format.
func Write(w io.Writer, outputFormat, locale string, report Report) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, locale, report)
	case constants.OutputFormatCSV:
		return CsvFormat(w, report)
	case constants.OutputFormatYAML:
		return YAMLFormat(w, report)
	case constants.OutputFormatJSON:
		return JSONFormat(w, report)
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, locale string, report Report) error {
	r := report.Result
	money := func(v float64) string { return format.Currency(v, locale) }

	lines := []string{
		"--- Financing simulation ---",
		fmt.Sprintf("Property value   | %s", money(r.PropertyValue)),
		fmt.Sprintf("Down payment     | %s (%s)", money(r.DownPayment), format.Percentage(report.Parameters.DownPaymentPercentage)),
		fmt.Sprintf("Loan amount      | %s", money(r.LoanAmount)),
		fmt.Sprintf("Interest rate    | %s per year", format.Percentage(mathutil.RateToPercent(report.Parameters.AnnualInterestRate))),
		fmt.Sprintf("Term             | %d years (%d installments)", report.Parameters.LoanTermYears, r.TotalMonths),
		fmt.Sprintf("Monthly payment  | %s", money(r.MonthlyPayment)),
		fmt.Sprintf("Total amount     | %s", money(r.TotalAmount)),
		fmt.Sprintf("Total interest   | %s (%s of total)", money(r.TotalInterest),
			format.Percentage(mathutil.CalculatePercentage(r.TotalInterest, r.TotalAmount))),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if len(report.Schedule) == 0 {
		return nil
	}

	if _, err := fmt.Fprintf(w, "\n#    | Payment         | Interest        | Principal       | Balance\n"+
		"___  | _______________ | _______________ | _______________ | _______\n"); err != nil {
		return err
	}
	for _, installment := range report.Schedule {
		if _, err := fmt.Fprintf(w, "%-4d | %-15s | %-15s | %-15s | %s\n",
			installment.Number,
			money(installment.Payment),
			money(installment.Interest),
			money(installment.Principal),
			money(installment.RemainingBalance)); err != nil {
			return err
		}
	}
	return nil
}

// CsvFormat outputs in comma-separated value format. With a schedule it writes
// one row per installment, otherwise a single summary row.
func CsvFormat(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	amount := func(v float64) string { return strconv.FormatFloat(mathutil.Round(v), 'f', 2, 64) }

	if len(report.Schedule) == 0 {
		r := report.Result
		records := [][]string{
			{"propertyValue", "downPayment", "loanAmount", "monthlyPayment", "totalAmount", "totalInterest", "totalMonths"},
			{amount(r.PropertyValue), amount(r.DownPayment), amount(r.LoanAmount), amount(r.MonthlyPayment),
				amount(r.TotalAmount), amount(r.TotalInterest), strconv.Itoa(r.TotalMonths)},
		}
		if err := cw.WriteAll(records); err != nil {
			return err
		}
		return nil
	}

	if err := cw.Write([]string{"number", "payment", "interest", "principal", "remainingBalance"}); err != nil {
		return err
	}
	for _, installment := range report.Schedule {
		if err := cw.Write([]string{
			strconv.Itoa(installment.Number),
			amount(installment.Payment),
			amount(installment.Interest),
			amount(installment.Principal),
			amount(installment.RemainingBalance),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// YAMLFormat outputs the report as a YAML document.
func YAMLFormat(w io.Writer, report Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

// JSONFormat outputs the report as indented JSON.
func JSONFormat(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
