// Package testutil provides common utility functions for testing.
package testutil

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/iwvelando/mortgage-simulator/pkg/financing"
)

// FindInstallment finds an installment by number in a schedule.
// Returns a pointer to the installment if found, nil otherwise.
func FindInstallment(schedule []financing.Installment, number int) *financing.Installment {
	for i := range schedule {
		if schedule[i].Number == number {
			return &schedule[i]
		}
	}
	return nil
}

// SignatureDataURL returns a small PNG signature encoded as a data URL, the
// shape the web form posts.
func SignatureDataURL(tb testing.TB) string {
	tb.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 12))
	for x := 2; x < 38; x++ {
		img.Set(x, 6+(x%3)-1, color.Black)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatalf("encode signature: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// ReferenceParameters returns the 500,000 / 20% / 30 years / 12% scenario used
// across the test suites.
func ReferenceParameters() financing.Parameters {
	return financing.Parameters{
		PropertyValue:         500000,
		DownPaymentPercentage: 20,
		LoanTermYears:         30,
		AnnualInterestRate:    0.12,
	}
}
