package proposal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"github.com/iwvelando/mortgage-simulator/pkg/financing"
	"github.com/iwvelando/mortgage-simulator/pkg/format"
	"github.com/iwvelando/mortgage-simulator/pkg/mathutil"
	"github.com/iwvelando/mortgage-simulator/pkg/validation"
	"go.uber.org/zap"
)

// Renderer produces the printable document of a proposal.
type Renderer interface {
	Render(r Record) ([]byte, error)
	Filename(name string) string
}

// Options tune the acceptance workflow.
type Options struct {
	// MaxAttempts bounds the insert attempts per proposal.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number to obtain the wait before
	// the next attempt.
	BaseDelay time.Duration
	// MaxSignatureBytes bounds the decoded signature image; zero disables it.
	MaxSignatureBytes int
}

// AcceptRequest is a simulation the borrower agreed to, with identity and
// signature attached.
type AcceptRequest struct {
	Parameters financing.Parameters
	Name       string
	Email      string
	Phone      string
	TaxID      string
	// Signature is a PNG data URL.
	Signature string
}

// Outcome reports what Accept achieved. The document is produced even when
// the record could not be saved.
type Outcome struct {
	Record   Record
	Saved    bool
	SaveErr  error
	Attempts int
	Document []byte
	Filename string
}

// Service accepts proposals and serves them back to administrators.
type Service struct {
	repo     Repository
	renderer Renderer
	logger   *zap.Logger
	opts     Options

	now   func() time.Time
	newID func() string
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService wires a Service.
func NewService(repo Repository, renderer Renderer, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = constants.DefaultPersistAttempts
	}
	if opts.BaseDelay < 0 {
		opts.BaseDelay = 0
	}
	return &Service{
		repo:     repo,
		renderer: renderer,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		newID:    uuid.NewString,
		sleep:    sleepContext,
	}
}

// Accept validates the request, computes the financing, persists the record
// with retries and renders the document. Validation and calculation errors
// are returned before anything is saved; a persistence failure is reported in
// the Outcome and does not prevent the document from being produced.
func (s *Service) Accept(ctx context.Context, req AcceptRequest) (Outcome, error) {
	borrower := validation.Borrower{
		Name:  validation.SanitizeText(req.Name),
		Email: strings.ToLower(validation.SanitizeText(req.Email)),
		Phone: format.Digits(req.Phone),
		TaxID: format.Digits(req.TaxID),
	}
	if err := validation.ValidateBorrower(borrower); err != nil {
		return Outcome{}, err
	}
	if req.Signature == "" {
		return Outcome{}, validation.FieldErrors{{Field: "signature", Message: "signature is required"}}
	}
	if _, err := validation.DecodeSignature(req.Signature, s.opts.MaxSignatureBytes); err != nil {
		return Outcome{}, err
	}

	result, err := financing.Compute(req.Parameters)
	if err != nil {
		return Outcome{}, err
	}

	record := Record{
		ID:             s.newID(),
		Name:           borrower.Name,
		Email:          borrower.Email,
		Phone:          borrower.Phone,
		TaxID:          borrower.TaxID,
		PropertyValue:  result.PropertyValue,
		DownPayment:    result.DownPayment,
		LoanAmount:     result.LoanAmount,
		MonthlyPayment: result.MonthlyPayment,
		TotalAmount:    result.TotalAmount,
		InterestRate:   mathutil.RateToPercent(req.Parameters.AnnualInterestRate),
		LoanTerm:       req.Parameters.LoanTermYears,
		Signature:      req.Signature,
		CreatedAt:      s.now().UTC(),
	}

	outcome := Outcome{Record: record}
	outcome.Attempts, outcome.SaveErr = s.persist(ctx, record)
	outcome.Saved = outcome.SaveErr == nil

	doc, err := s.renderer.Render(record)
	if err != nil {
		return outcome, fmt.Errorf("rendering proposal document: %w", err)
	}
	outcome.Document = doc
	outcome.Filename = s.renderer.Filename(record.Name)

	s.logger.Info("proposal accepted",
		zap.String("op", "proposal.Accept"),
		zap.String("id", record.ID),
		zap.Bool("saved", outcome.Saved),
		zap.Int("attempts", outcome.Attempts),
	)
	return outcome, nil
}

// persist inserts the record, retrying failures with a linearly growing
// delay. It returns the number of attempts made and the last error.
func (s *Service) persist(ctx context.Context, record Record) (int, error) {
	var err error
	attempt := 0
	for attempt < s.opts.MaxAttempts {
		attempt++
		if err = s.repo.Insert(ctx, record); err == nil {
			return attempt, nil
		}

		s.logger.Warn("failed to save proposal",
			zap.String("op", "proposal.persist"),
			zap.String("id", record.ID),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", s.opts.MaxAttempts),
			zap.Error(err),
		)

		if attempt == s.opts.MaxAttempts {
			break
		}
		if sleepErr := s.sleep(ctx, s.opts.BaseDelay*time.Duration(attempt)); sleepErr != nil {
			err = sleepErr
			break
		}
	}

	s.logger.Error("giving up saving proposal",
		zap.String("op", "proposal.persist"),
		zap.String("id", record.ID),
		zap.Int("attempts", attempt),
		zap.Error(err),
	)
	return attempt, fmt.Errorf("failed to save proposal after %d attempts: %w", attempt, err)
}

// Get returns one stored proposal.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.repo.Get(ctx, id)
}

// List returns stored proposals newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	return s.repo.List(ctx, opts)
}

// Stats summarises stored proposals.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

// Render loads a stored proposal and renders its document again.
func (s *Service) Render(ctx context.Context, id string) ([]byte, string, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	doc, err := s.renderer.Render(record)
	if err != nil {
		return nil, "", fmt.Errorf("rendering proposal document: %w", err)
	}
	return doc, s.renderer.Filename(record.Name), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
