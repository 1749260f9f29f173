// Package constants provides shared constants for the mortgage-simulator application.
package constants

// Financing constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DefaultAnnualInterestRate is the annual rate, as a fraction, applied when
	// none is provided (12% per year).
	DefaultAnnualInterestRate = 0.12

	// MinimumDownPaymentPercentage is the lowest accepted down payment, in percent
	// of the property value.
	MinimumDownPaymentPercentage = 20.0

	// DefaultDownPaymentPercentage is the down payment pre-filled by the web UI.
	DefaultDownPaymentPercentage = 20.0

	// DefaultLoanTermYears is the term pre-filled by the web UI.
	DefaultLoanTermYears = 30

	// MaxLoanTermYears is the longest term the calculator accepts.
	MaxLoanTermYears = 50

	// CurrencyDecimalPlaces is the number of decimal places shown for money.
	CurrencyDecimalPlaces = 2
)

// LoanTermOptions lists the terms, in years, offered by the web UI. The
// calculator itself accepts any positive term.
var LoanTermOptions = []int{15, 20, 25, 30, 35}

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatYAML is the YAML output format
	OutputFormatYAML = "yaml"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// EnvPrefix prefixes every environment override, e.g. MORTGAGE_SERVER_ADDRESS.
	EnvPrefix = "MORTGAGE"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the web UI
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (2 MB),
	// large enough for a signature image.
	DefaultMaxBodySizeBytes int64 = 2 * 1024 * 1024

	// DefaultRateLimitPerSecond is the sustained request rate per client.
	DefaultRateLimitPerSecond = 5.0

	// DefaultRateLimitBurst is the burst size per client.
	DefaultRateLimitBurst = 20
)

// Storage defaults
const (
	// StorageDriverSQLite selects the embedded SQLite record store.
	StorageDriverSQLite = "sqlite"

	// StorageDriverRedis selects the Redis record store.
	StorageDriverRedis = "redis"

	// DefaultSQLitePath is the default SQLite database file.
	DefaultSQLitePath = "data/proposals.db"

	// DefaultRedisAddress is the default Redis endpoint.
	DefaultRedisAddress = "localhost:6379"

	// DefaultListLimit caps list queries when no limit is given.
	DefaultListLimit = 100
)

// Persistence retry defaults
const (
	// DefaultPersistAttempts is the number of insert attempts before giving up.
	DefaultPersistAttempts = 3

	// DefaultPersistBaseDelaySeconds is multiplied by the attempt number to
	// obtain the wait before the next attempt.
	DefaultPersistBaseDelaySeconds = 1
)

// Document defaults
const (
	// DefaultLocale is the locale used for labels and currency formatting.
	DefaultLocale = "pt-BR"

	// DefaultCurrencySymbol is the currency symbol for DefaultLocale.
	DefaultCurrencySymbol = "R$"

	// DocumentFilenamePrefix prefixes every generated proposal document.
	DocumentFilenamePrefix = "proposta-financiamento"
)

// Validation constants
const (
	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// TaxIDDigits is the number of digits in a CPF.
	TaxIDDigits = 11

	// MaxNameLength bounds borrower free-text fields.
	MaxNameLength = 200
)
