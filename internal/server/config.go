package server

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/mortgage-simulator/internal/config"
	"github.com/iwvelando/mortgage-simulator/pkg/constants"
)

// Options defines runtime parameters for the HTTP handler.
type Options struct {
	Version     string
	MaxBodySize int64
	Locale      string
	Financing   config.FinancingConfig
	RateLimit   config.RateLimitConfig
}

// OptionsFromConfig derives handler options from the application configuration.
func OptionsFromConfig(conf *config.Configuration, version string) (Options, error) {
	size, err := ParseSize(conf.Server.MaxBodySize)
	if err != nil {
		return Options{}, err
	}
	if size <= 0 {
		size = constants.DefaultMaxBodySizeBytes
	}

	return Options{
		Version:     version,
		MaxBodySize: size,
		Locale:      conf.Document.Locale,
		Financing:   conf.Financing,
		RateLimit:   conf.RateLimit,
	}, nil
}

func (o *Options) normalize() {
	o.Version = strings.TrimSpace(o.Version)
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.MaxBodySize <= 0 {
		o.MaxBodySize = constants.DefaultMaxBodySizeBytes
	}
	if o.Locale == "" {
		o.Locale = constants.DefaultLocale
	}
	if o.Financing.AnnualInterestRate == 0 {
		o.Financing.AnnualInterestRate = constants.DefaultAnnualInterestRate
	}
	if o.Financing.DownPaymentPercentage == 0 {
		o.Financing.DownPaymentPercentage = constants.DefaultDownPaymentPercentage
	}
	if o.Financing.LoanTermYears == 0 {
		o.Financing.LoanTermYears = constants.DefaultLoanTermYears
	}
	if len(o.Financing.LoanTermOptions) == 0 {
		o.Financing.LoanTermOptions = constants.LoanTermOptions
	}
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxBodySizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	if n > 0 && n > (1<<63-1)/multiplier {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return n * multiplier, nil
}
