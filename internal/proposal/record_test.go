package proposal

import (
	"math"
	"testing"

	"github.com/iwvelando/mortgage-simulator/pkg/financing"
	"github.com/iwvelando/mortgage-simulator/pkg/testutil"
)

func TestRecordResult(t *testing.T) {
	expected, err := financing.Compute(testutil.ReferenceParameters())
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	rec := Record{
		PropertyValue:  expected.PropertyValue,
		DownPayment:    expected.DownPayment,
		LoanAmount:     expected.LoanAmount,
		MonthlyPayment: expected.MonthlyPayment,
		TotalAmount:    expected.TotalAmount,
		InterestRate:   12,
		LoanTerm:       30,
	}
	got := rec.Result()

	if got.TotalMonths != expected.TotalMonths {
		t.Errorf("TotalMonths = %d, expected %d", got.TotalMonths, expected.TotalMonths)
	}
	if math.Abs(got.MonthlyRate-expected.MonthlyRate) > 1e-12 {
		t.Errorf("MonthlyRate = %v, expected %v", got.MonthlyRate, expected.MonthlyRate)
	}
	if got.TotalInterest != expected.TotalInterest {
		t.Errorf("TotalInterest = %v, expected %v", got.TotalInterest, expected.TotalInterest)
	}
}

func TestNewStats(t *testing.T) {
	if stats := NewStats(0, 0); stats.AveragePropertyValue != 0 {
		t.Errorf("expected zero average for no proposals, got %v", stats.AveragePropertyValue)
	}
	if stats := NewStats(4, 1000000); stats.AveragePropertyValue != 250000 {
		t.Errorf("AveragePropertyValue = %v, expected 250000", stats.AveragePropertyValue)
	}
}

func TestListOptionsMatches(t *testing.T) {
	rec := Record{Name: "Ana Maria Costa", Email: "ana@corp.example", TaxID: "12345678901"}

	tests := []struct {
		query    string
		expected bool
	}{
		{"", true},
		{"  ", true},
		{"maria", true},
		{"ANA@CORP", true},
		{"456.789", true},
		{"456789", true},
		{"999", false},
		{"joão", false},
		{"a1", false},
	}
	for _, tt := range tests {
		if got := (ListOptions{Query: tt.query}).Matches(rec); got != tt.expected {
			t.Errorf("Matches(%q) = %v, expected %v", tt.query, got, tt.expected)
		}
	}
}

func TestEffectiveLimit(t *testing.T) {
	if got := (ListOptions{}).EffectiveLimit(); got != 100 {
		t.Errorf("EffectiveLimit() = %d, expected 100", got)
	}
	if got := (ListOptions{Limit: 5}).EffectiveLimit(); got != 5 {
		t.Errorf("EffectiveLimit() = %d, expected 5", got)
	}
}
