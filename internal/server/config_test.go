package server

import (
	"testing"

	"github.com/iwvelando/mortgage-simulator/internal/config"
	"github.com/iwvelando/mortgage-simulator/pkg/constants"
)

func TestOptionsFromConfig(t *testing.T) {
	conf := &config.Configuration{
		Server:    config.ServerConfig{MaxBodySize: "512K"},
		Document:  config.DocumentConfig{Locale: "en-US"},
		Financing: config.FinancingConfig{AnnualInterestRate: 0.1, DownPaymentPercentage: 30, LoanTermYears: 20},
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerSecond: 2, Burst: 4},
	}

	opts, err := OptionsFromConfig(conf, "1.2.3")
	if err != nil {
		t.Fatalf("OptionsFromConfig() error = %v", err)
	}
	if opts.MaxBodySize != 512*1024 {
		t.Errorf("MaxBodySize = %d, expected %d", opts.MaxBodySize, 512*1024)
	}
	if opts.Version != "1.2.3" || opts.Locale != "en-US" {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.Financing.AnnualInterestRate != 0.1 || opts.RateLimit.Burst != 4 {
		t.Errorf("sections not carried over: %+v", opts)
	}

	conf.Server.MaxBodySize = "12 parsecs"
	if _, err := OptionsFromConfig(conf, ""); err == nil {
		t.Fatal("expected error for invalid body size")
	}
}

func TestOptionsNormalize(t *testing.T) {
	opts := Options{Version: "  "}
	opts.normalize()

	if opts.Version != "dev" {
		t.Errorf("Version = %q, expected dev", opts.Version)
	}
	if opts.MaxBodySize != constants.DefaultMaxBodySizeBytes {
		t.Errorf("MaxBodySize = %d", opts.MaxBodySize)
	}
	if opts.Locale != "pt-BR" {
		t.Errorf("Locale = %q", opts.Locale)
	}
	if opts.Financing.AnnualInterestRate != 0.12 || opts.Financing.DownPaymentPercentage != 20 || opts.Financing.LoanTermYears != 30 {
		t.Errorf("unexpected financing defaults %+v", opts.Financing)
	}
	if len(opts.Financing.LoanTermOptions) != 5 {
		t.Errorf("LoanTermOptions = %v", opts.Financing.LoanTermOptions)
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":          constants.DefaultMaxBodySizeBytes,
		"1024":      1024,
		"512b":      512,
		"256K":      256 * 1024,
		"1m":        1024 * 1024,
		"3MB":       3 * 1024 * 1024,
		"2G":        2 * 1024 * 1024 * 1024,
		"  4096   ": 4096,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Fatalf("ParseSize(%q) = %d, expected %d", input, got, expected)
		}
	}

	for _, invalid := range []string{"1TB", "abc", "9999999999999G"} {
		if _, err := ParseSize(invalid); err == nil {
			t.Fatalf("expected error for %q", invalid)
		}
	}
}
