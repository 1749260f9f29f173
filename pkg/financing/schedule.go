package financing

import "github.com/iwvelando/mortgage-simulator/pkg/constants"

// Installment is one row of an amortization schedule.
type Installment struct {
	Number           int     `json:"number" yaml:"number"`
	Payment          float64 `json:"payment" yaml:"payment"`
	Interest         float64 `json:"interest" yaml:"interest"`
	Principal        float64 `json:"principal" yaml:"principal"`
	RemainingBalance float64 `json:"remainingBalance" yaml:"remainingBalance"`
}

// Schedule expands a Result into its month-by-month amortization table. Every
// installment pays the same amount; the interest share shrinks as the balance
// falls. The last installment closes the balance to exactly zero. Results longer than
// constants.MaxLoanTermYears yield no schedule.
func Schedule(r Result) []Installment {
	if r.TotalMonths <= 0 || r.TotalMonths > constants.MaxLoanTermYears*constants.MonthsPerYear {
		return nil
	}

	schedule := make([]Installment, 0, r.TotalMonths)
	balance := r.LoanAmount
	for n := 1; n <= r.TotalMonths; n++ {
		interest := InterestPayment(balance, r.MonthlyRate)
		principal := r.MonthlyPayment - interest

		remaining := balance - principal
		// Floating point leaves a residue of a fraction of a cent at the end of
		// the term; absorb it into the final principal.
		if n == r.TotalMonths {
			principal = balance
			remaining = 0
		}

		schedule = append(schedule, Installment{
			Number:           n,
			Payment:          r.MonthlyPayment,
			Interest:         interest,
			Principal:        principal,
			RemainingBalance: remaining,
		})
		balance = remaining
	}

	return schedule
}

// TotalPaid sums the payments of a schedule.
func TotalPaid(schedule []Installment) float64 {
	total := 0.0
	for _, installment := range schedule {
		total += installment.Payment
	}
	return total
}
