// Package format renders amounts and identifiers for display.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"github.com/iwvelando/mortgage-simulator/pkg/mathutil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency returns an amount with its currency symbol and the locale's
// separators, e.g. "R$ 1.234,56" for pt-BR or "-$1,234.56" for en-US.
func Currency(amount float64, locale string) string {
	tag := parseLocale(locale)
	sign, formatted := numeric(amount, tag)
	return sign + currencySymbol(tag) + formatted
}

// NumericCurrency returns an amount with separators but no currency symbol
// (e.g. "-1.234,56" for pt-BR).
func NumericCurrency(amount float64, locale string) string {
	sign, formatted := numeric(amount, parseLocale(locale))
	return sign + formatted
}

// Percentage renders a value that is already in percent, e.g. 12 -> "12.0%".
func Percentage(percent float64) string {
	return fmt.Sprintf("%.1f%%", percent)
}

func numeric(amount float64, tag language.Tag) (string, string) {
	rounded := mathutil.Round(amount)
	sign := ""
	if rounded < 0 {
		sign = "-"
	}
	p := message.NewPrinter(tag)
	return sign, p.Sprintf("%.2f", math.Abs(rounded))
}

func parseLocale(locale string) language.Tag {
	if locale == "" {
		locale = constants.DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.BrazilianPortuguese
	}
	return tag
}

func currencySymbol(tag language.Tag) string {
	base, _ := tag.Base()
	if base.String() == "en" {
		return "$"
	}
	return constants.DefaultCurrencySymbol + " "
}

// Digits strips everything but ASCII digits from s.
func Digits(s string) string {
	var builder strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// TaxID masks an 11-digit CPF as 000.000.000-00. Anything else is returned
// unchanged.
func TaxID(s string) string {
	d := Digits(s)
	if len(d) != constants.TaxIDDigits {
		return s
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}

// Phone masks a Brazilian phone number with area code: (00) 00000-0000 for
// mobiles and (00) 0000-0000 for landlines.
func Phone(s string) string {
	d := Digits(s)
	switch len(d) {
	case 11:
		return "(" + d[0:2] + ") " + d[2:7] + "-" + d[7:]
	case 10:
		return "(" + d[0:2] + ") " + d[2:6] + "-" + d[6:]
	default:
		return s
	}
}
