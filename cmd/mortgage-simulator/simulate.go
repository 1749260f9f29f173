package main

import (
	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"github.com/iwvelando/mortgage-simulator/pkg/financing"
	"github.com/iwvelando/mortgage-simulator/pkg/mathutil"
	"github.com/iwvelando/mortgage-simulator/pkg/output"
	"github.com/iwvelando/mortgage-simulator/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type simulateOptions struct {
	value        float64
	downPayment  float64
	term         int
	ratePercent  float64
	schedule     bool
	outputFormat string
}

func newSimulateCommand(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Compute the installment, total and interest of a financing",
		Example: `  mortgage-simulator simulate --value 500000
  mortgage-simulator simulate --value 500000 --down 30 --term 20 --rate 10.5 --schedule --output csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			if err := validation.ValidateOutputFormat(opts.outputFormat); err != nil {
				return err
			}

			params := financing.Parameters{
				PropertyValue:         opts.value,
				DownPaymentPercentage: conf.Financing.DownPaymentPercentage,
				LoanTermYears:         conf.Financing.LoanTermYears,
				AnnualInterestRate:    conf.Financing.AnnualInterestRate,
			}
			if cmd.Flags().Changed("down") {
				params.DownPaymentPercentage = opts.downPayment
			}
			if cmd.Flags().Changed("term") {
				params.LoanTermYears = opts.term
			}
			if cmd.Flags().Changed("rate") {
				params.AnnualInterestRate = opts.ratePercent / constants.PercentageMultiplier
			}

			result, err := financing.Compute(params)
			if err != nil {
				return err
			}
			logger.Debug("simulation computed",
				zap.String("op", "main.simulate"),
				zap.Float64("propertyValue", params.PropertyValue),
				zap.Float64("monthlyPayment", mathutil.Round(result.MonthlyPayment)),
			)

			report := output.Report{Parameters: params, Result: result}
			if opts.schedule {
				report.Schedule = financing.Schedule(result)
			}
			return output.Write(cmd.OutOrStdout(), opts.outputFormat, conf.Document.Locale, report)
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.value, "value", 0, "property value")
	flags.Float64Var(&opts.downPayment, "down", constants.DefaultDownPaymentPercentage, "down payment percentage (minimum 20)")
	flags.IntVar(&opts.term, "term", constants.DefaultLoanTermYears, "loan term in years")
	flags.Float64Var(&opts.ratePercent, "rate", constants.DefaultAnnualInterestRate*constants.PercentageMultiplier, "annual interest rate in percent")
	flags.BoolVar(&opts.schedule, "schedule", false, "include the month-by-month amortization schedule")
	flags.StringVarP(&opts.outputFormat, "output", "o", constants.OutputFormatPretty, "output format: pretty, csv, yaml, json")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}
