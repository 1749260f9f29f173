// Package financing computes fixed-rate, fixed-installment (Tabela Price)
// mortgage proposals.
package financing

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"github.com/iwvelando/mortgage-simulator/pkg/mathutil"
)

var (
	// ErrInvalidDownPayment is returned when the down payment percentage is
	// below constants.MinimumDownPaymentPercentage or above 100.
	ErrInvalidDownPayment = errors.New("down payment must be between 20% and 100% of the property value")

	// ErrInvalidPropertyValue is returned for a non-positive or non-finite property value.
	ErrInvalidPropertyValue = errors.New("property value must be positive")

	// ErrInvalidLoanTerm is returned for a loan term outside 1 to
	// constants.MaxLoanTermYears years.
	ErrInvalidLoanTerm = fmt.Errorf("loan term must be between 1 and %d years", constants.MaxLoanTermYears)

	// ErrInvalidInterestRate is returned for a negative or non-finite interest rate.
	ErrInvalidInterestRate = errors.New("interest rate must not be negative")

	// ErrNonFiniteResult is returned when the inputs overflow float64.
	ErrNonFiniteResult = errors.New("financing figures are too large to compute")
)

// ParameterError reports which input was rejected. It unwraps to one of the
// package sentinel errors.
type ParameterError struct {
	Field string
	Value float64
	Err   error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.Err)
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}

// Parameters holds the inputs of a financing simulation.
type Parameters struct {
	PropertyValue         float64 `json:"propertyValue" yaml:"propertyValue"`
	DownPaymentPercentage float64 `json:"downPaymentPercentage" yaml:"downPaymentPercentage"`
	LoanTermYears         int     `json:"loanTermYears" yaml:"loanTermYears"`
	// AnnualInterestRate is a fraction, e.g. 0.12 for 12% per year.
	AnnualInterestRate float64 `json:"annualInterestRate" yaml:"annualInterestRate"`
}

// Result is the computed proposal summary. It is a value object and is never
// modified after Compute returns it.
type Result struct {
	PropertyValue  float64 `json:"propertyValue" yaml:"propertyValue"`
	DownPayment    float64 `json:"downPayment" yaml:"downPayment"`
	LoanAmount     float64 `json:"loanAmount" yaml:"loanAmount"`
	MonthlyPayment float64 `json:"monthlyPayment" yaml:"monthlyPayment"`
	TotalAmount    float64 `json:"totalAmount" yaml:"totalAmount"`
	TotalInterest  float64 `json:"totalInterest" yaml:"totalInterest"`
	MonthlyRate    float64 `json:"monthlyRate" yaml:"monthlyRate"`
	TotalMonths    int     `json:"totalMonths" yaml:"totalMonths"`
}

// Validate checks the parameters without computing anything.
func (p Parameters) Validate() error {
	if math.IsNaN(p.PropertyValue) || math.IsInf(p.PropertyValue, 0) || p.PropertyValue <= 0 {
		return &ParameterError{Field: "propertyValue", Value: p.PropertyValue, Err: ErrInvalidPropertyValue}
	}
	if math.IsNaN(p.DownPaymentPercentage) || p.DownPaymentPercentage < constants.MinimumDownPaymentPercentage ||
		p.DownPaymentPercentage > constants.PercentageMultiplier {
		return &ParameterError{Field: "downPaymentPercentage", Value: p.DownPaymentPercentage, Err: ErrInvalidDownPayment}
	}
	if p.LoanTermYears <= 0 || p.LoanTermYears > constants.MaxLoanTermYears {
		return &ParameterError{Field: "loanTermYears", Value: float64(p.LoanTermYears), Err: ErrInvalidLoanTerm}
	}
	if math.IsNaN(p.AnnualInterestRate) || math.IsInf(p.AnnualInterestRate, 0) || p.AnnualInterestRate < 0 {
		return &ParameterError{Field: "annualInterestRate", Value: p.AnnualInterestRate, Err: ErrInvalidInterestRate}
	}
	return nil
}

// Compute derives the loan principal, the fixed monthly installment, the total
// repaid and the total interest for the given parameters.
func Compute(p Parameters) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	downPayment := mathutil.ApplyPercentage(p.PropertyValue, p.DownPaymentPercentage)
	loanAmount := p.PropertyValue - downPayment
	monthlyRate := p.AnnualInterestRate / constants.MonthsPerYear
	totalMonths := p.LoanTermYears * constants.MonthsPerYear

	monthlyPayment := MonthlyPayment(loanAmount, monthlyRate, totalMonths)
	totalAmount := monthlyPayment * float64(totalMonths)
	if !isFinite(monthlyPayment) || !isFinite(totalAmount) {
		if !isFinite(math.Pow(1+monthlyRate, float64(totalMonths))) {
			return Result{}, &ParameterError{Field: "annualInterestRate", Value: p.AnnualInterestRate, Err: ErrNonFiniteResult}
		}
		return Result{}, &ParameterError{Field: "propertyValue", Value: p.PropertyValue, Err: ErrNonFiniteResult}
	}

	return Result{
		PropertyValue:  p.PropertyValue,
		DownPayment:    downPayment,
		LoanAmount:     loanAmount,
		MonthlyPayment: monthlyPayment,
		TotalAmount:    totalAmount,
		TotalInterest:  totalAmount - loanAmount,
		MonthlyRate:    monthlyRate,
		TotalMonths:    totalMonths,
	}, nil
}

// MonthlyPayment calculates the fixed installment for a loan using the standard
// annuity formula. A zero rate splits the principal evenly across the term.
func MonthlyPayment(loanAmount, monthlyRate float64, totalMonths int) float64 {
	if totalMonths <= 0 {
		return 0
	}
	if monthlyRate == 0 {
		return loanAmount / float64(totalMonths)
	}

	power := math.Pow(1+monthlyRate, float64(totalMonths))
	return loanAmount * (monthlyRate * power) / (power - 1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// InterestPayment calculates the interest accrued on a balance over one month.
func InterestPayment(balance, monthlyRate float64) float64 {
	return balance * monthlyRate
}
