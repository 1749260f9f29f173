// Package proposal turns an accepted financing simulation into a signed,
// persisted proposal record and its printable document.
package proposal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"github.com/iwvelando/mortgage-simulator/pkg/financing"
	"github.com/iwvelando/mortgage-simulator/pkg/format"
)

// ErrNotFound is returned when no proposal has the requested ID.
var ErrNotFound = errors.New("proposal not found")

// Record is the flattened, persisted form of an accepted proposal.
type Record struct {
	ID             string  `json:"id" yaml:"id"`
	Name           string  `json:"name" yaml:"name"`
	Email          string  `json:"email" yaml:"email"`
	Phone          string  `json:"phone" yaml:"phone"`
	TaxID          string  `json:"taxId" yaml:"taxId"`
	PropertyValue  float64 `json:"propertyValue" yaml:"propertyValue"`
	DownPayment    float64 `json:"downPayment" yaml:"downPayment"`
	LoanAmount     float64 `json:"loanAmount" yaml:"loanAmount"`
	MonthlyPayment float64 `json:"monthlyPayment" yaml:"monthlyPayment"`
	TotalAmount    float64 `json:"totalAmount" yaml:"totalAmount"`
	// InterestRate is in percent per year, e.g. 12.
	InterestRate float64 `json:"interestRate" yaml:"interestRate"`
	// LoanTerm is in years.
	LoanTerm  int       `json:"loanTerm" yaml:"loanTerm"`
	Signature string    `json:"signature,omitempty" yaml:"signature,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Result rebuilds the financing summary stored in the record.
func (r Record) Result() financing.Result {
	totalMonths := r.LoanTerm * constants.MonthsPerYear
	return financing.Result{
		PropertyValue:  r.PropertyValue,
		DownPayment:    r.DownPayment,
		LoanAmount:     r.LoanAmount,
		MonthlyPayment: r.MonthlyPayment,
		TotalAmount:    r.TotalAmount,
		TotalInterest:  r.TotalAmount - r.LoanAmount,
		MonthlyRate:    r.InterestRate / constants.PercentageMultiplier / constants.MonthsPerYear,
		TotalMonths:    totalMonths,
	}
}

// Stats summarises every stored proposal.
type Stats struct {
	TotalProposals       int     `json:"totalProposals" yaml:"totalProposals"`
	TotalPropertyValue   float64 `json:"totalPropertyValue" yaml:"totalPropertyValue"`
	AveragePropertyValue float64 `json:"averagePropertyValue" yaml:"averagePropertyValue"`
}

// NewStats derives the average from a count and a sum.
func NewStats(count int, totalPropertyValue float64) Stats {
	stats := Stats{TotalProposals: count, TotalPropertyValue: totalPropertyValue}
	if count > 0 {
		stats.AveragePropertyValue = totalPropertyValue / float64(count)
	}
	return stats
}

// ListOptions filters and bounds a listing. Results are always newest first.
type ListOptions struct {
	// Query matches name or email case-insensitively, or the digits of the tax ID.
	Query string
	// Limit caps the number of records; zero or less means constants.DefaultListLimit.
	Limit int
}

// EffectiveLimit returns the limit to apply.
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return constants.DefaultListLimit
	}
	return o.Limit
}

// Matches reports whether a record satisfies the query of the options.
func (o ListOptions) Matches(r Record) bool {
	query := strings.ToLower(strings.TrimSpace(o.Query))
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Name), query) || strings.Contains(strings.ToLower(r.Email), query) {
		return true
	}
	return IsTaxIDQuery(query) && strings.Contains(r.TaxID, format.Digits(query))
}

// IsTaxIDQuery reports whether a search looks like a (possibly masked) tax ID.
func IsTaxIDQuery(query string) bool {
	return format.Digits(query) != "" && strings.Trim(query, "0123456789.- ") == ""
}

// Repository persists proposal records. Insert must be idempotent for a given
// ID so callers can retry it safely.
type Repository interface {
	Insert(ctx context.Context, r Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, opts ListOptions) ([]Record, error)
	Stats(ctx context.Context) (Stats, error)
}
