package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iwvelando/mortgage-simulator/internal/proposal"
	"github.com/iwvelando/mortgage-simulator/pkg/format"

	_ "modernc.org/sqlite" // register sqlite driver
)

const recordColumns = `id, name, email, phone, tax_id, property_value, down_payment, loan_amount,
	monthly_payment, total_amount, interest_rate, loan_term, signature, created_at_ns`

// SQLiteStore keeps proposals in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at the given path.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening proposals db: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert stores a record. Inserting an ID that already exists is a no-op.
func (s *SQLiteStore) Insert(ctx context.Context, r proposal.Record) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO proposals (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		r.ID, r.Name, r.Email, r.Phone, r.TaxID,
		r.PropertyValue, r.DownPayment, r.LoanAmount, r.MonthlyPayment, r.TotalAmount,
		r.InterestRate, r.LoanTerm, r.Signature, r.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting proposal %s: %w", r.ID, err)
	}
	return nil
}

// Get loads one record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (proposal.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM proposals WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return proposal.Record{}, ErrNotFound
	}
	if err != nil {
		return proposal.Record{}, fmt.Errorf("loading proposal %s: %w", id, err)
	}
	return r, nil
}

// List returns records newest first, filtered by opts.Query.
func (s *SQLiteStore) List(ctx context.Context, opts proposal.ListOptions) ([]proposal.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM proposals`
	var args []any

	if q := strings.ToLower(strings.TrimSpace(opts.Query)); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		where := `LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern)
		if proposal.IsTaxIDQuery(q) {
			where += ` OR tax_id LIKE ?`
			args = append(args, "%"+format.Digits(q)+"%")
		}
		query += ` WHERE ` + where
	}

	query += ` ORDER BY created_at_ns DESC, id DESC LIMIT ?`
	args = append(args, opts.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing proposals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []proposal.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning proposal: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Stats aggregates all stored proposals.
func (s *SQLiteStore) Stats(ctx context.Context) (proposal.Stats, error) {
	var count int
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(property_value), 0) FROM proposals`).Scan(&count, &total)
	if err != nil {
		return proposal.Stats{}, fmt.Errorf("computing stats: %w", err)
	}
	return proposal.NewStats(count, total), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (proposal.Record, error) {
	var r proposal.Record
	var createdAtNs int64
	err := row.Scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.TaxID,
		&r.PropertyValue, &r.DownPayment, &r.LoanAmount, &r.MonthlyPayment, &r.TotalAmount,
		&r.InterestRate, &r.LoanTerm, &r.Signature, &createdAtNs)
	if err != nil {
		return proposal.Record{}, err
	}
	r.CreatedAt = time.Unix(0, createdAtNs).UTC()
	return r, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
