package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/baharkarakas/fintech-transfers/internal/auth"
	"github.com/baharkarakas/fintech-transfers/internal/logger"
	"github.com/baharkarakas/fintech-transfers/internal/metrics"
	"github.com/baharkarakas/fintech-transfers/internal/models"
	repo "github.com/baharkarakas/fintech-transfers/internal/repository"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/baharkarakas/fintech-transfers/internal/services"

// Authorizer validates and consumes a one-time transfer token.
type Authorizer interface {
	Validate(ctx context.Context, token, expectedUserID string, now time.Time) error
}

type TransferRequest struct {
	RequestingUserID  string
	AuthToken         string
	RecipientUsername string
	Amount            decimal.Decimal
	Description       string
}

type TransferResult struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Status        models.TransactionStatus
	CreatedAt     time.Time
}

type TransferService struct {
	ledger repo.Ledger
	users  repo.Users
	guard  Authorizer
	log    *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

type TransferOption func(*TransferService)

func WithClock(now func() time.Time) TransferOption {
	return func(s *TransferService) { s.now = now }
}

func WithTracer(t trace.Tracer) TransferOption {
	return func(s *TransferService) { s.tracer = t }
}

func NewTransferService(ledger repo.Ledger, users repo.Users, guard Authorizer, log *slog.Logger, opts ...TransferOption) *TransferService {
	s := &TransferService{
		ledger: ledger,
		users:  users,
		guard:  guard,
		log:    log,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Execute moves req.Amount from the requester's account to the recipient's.
// Authorization happens first and consumes the token even if a later step
// fails. Balances and the transaction record commit together or not at all.
// A panic below Execute is reported as ErrTransferFailed.
func (s *TransferService) Execute(ctx context.Context, req TransferRequest) (res TransferResult, err error) {
	begin := time.Now()
	ctx, span := s.tracer.Start(ctx, "transfer.execute",
		trace.WithAttributes(attribute.String("transfer.user_id", req.RequestingUserID)))
	log := logger.FromContext(ctx, s.log).With("user_id", req.RequestingUserID)

	defer func() {
		if rec := recover(); rec != nil {
			res, err = TransferResult{}, fmt.Errorf("%w: panic: %v", ErrTransferFailed, rec)
			log.Error("transfer panicked", "stack", string(debug.Stack()))
		}
		outcome := outcomeOf(err)
		metrics.TransfersTotal.WithLabelValues(outcome).Inc()
		metrics.TransferDuration.Observe(time.Since(begin).Seconds())
		span.SetAttributes(attribute.String("transfer.outcome", outcome))
		switch {
		case err == nil:
			span.SetAttributes(attribute.String("transfer.transaction_id", res.TransactionID))
			span.SetStatus(codes.Ok, "")
			log.Info("transfer completed", "transaction_id", res.TransactionID, "amount", models.FormatAmount(res.Amount))
		case errors.Is(err, ErrTransferFailed):
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			log.Error("transfer failed", "outcome", outcome, "err", err)
		default:
			span.SetStatus(codes.Error, outcome)
			log.Info("transfer rejected", "outcome", outcome, "err", err)
		}
		span.End()
	}()

	// AuthCheck
	if err := s.guard.Validate(ctx, req.AuthToken, req.RequestingUserID, s.now()); err != nil {
		if errors.Is(err, auth.ErrNonceStore) {
			return TransferResult{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
		return TransferResult{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	// InputValidate
	amount := req.Amount
	if err := models.ValidateAmount(amount); err != nil {
		return TransferResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	username := models.NormalizeUsername(req.RecipientUsername)
	if !models.ValidUsername(username) {
		return TransferResult{}, fmt.Errorf("%w: recipient username", ErrInvalidRequest)
	}
	var description *string
	if d := strings.TrimSpace(req.Description); d != "" {
		if utf8.RuneCountInString(d) > models.MaxDescriptionLen {
			return TransferResult{}, fmt.Errorf("%w: description longer than %d characters", ErrInvalidRequest, models.MaxDescriptionLen)
		}
		description = &d
	}
	recipient, err := s.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return TransferResult{}, ErrRecipientNotFound
	case err != nil:
		return TransferResult{}, fmt.Errorf("%w: lookup recipient: %w", ErrTransferFailed, err)
	}
	if recipient.ID == req.RequestingUserID {
		return TransferResult{}, ErrSelfTransfer
	}

	err = s.ledger.WithTx(ctx, func(tx repo.LedgerTx) error {
		// Acquire
		senderID, err := tx.AccountIDForUser(ctx, req.RequestingUserID)
		if err != nil {
			return accountErr("sender", err)
		}
		recipientID, err := tx.AccountIDForUser(ctx, recipient.ID)
		if err != nil {
			return accountErr("recipient", err)
		}
		locked, err := tx.LockAccountsInOrder(ctx, senderID, recipientID)
		if err != nil {
			return accountErr("lock", err)
		}
		from, to := locked[senderID], locked[recipientID]
		log.Debug("accounts locked", "sender_account_id", senderID, "recipient_account_id", recipientID)

		// InvariantCheck
		if from.Currency != to.Currency {
			return fmt.Errorf("%w: currency mismatch %s/%s", ErrInvalidRequest, from.Currency, to.Currency)
		}
		if !from.CanCover(amount) {
			return ErrInsufficientFunds
		}

		// Mutate
		if err := tx.ApplyTransfer(ctx, from, to, amount); err != nil {
			return fmt.Errorf("apply transfer: %w", err)
		}

		// Record
		txn, err := tx.Record(ctx, models.Transaction{
			SenderAccountID:   senderID,
			ReceiverAccountID: recipientID,
			Amount:            amount,
			Currency:          from.Currency,
			Description:       description,
			Status:            models.TxnPending,
		})
		if err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, txn.ID, models.TxnCompleted); err != nil {
			return fmt.Errorf("complete transaction: %w", err)
		}
		res = TransferResult{
			TransactionID: txn.ID,
			Amount:        amount,
			Currency:      txn.Currency,
			Status:        models.TxnCompleted,
			CreatedAt:     txn.CreatedAt,
		}
		return nil
	})
	if err != nil {
		if isTransferOutcome(err) {
			return TransferResult{}, err
		}
		return TransferResult{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return res, nil
}

func accountErr(which string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, which)
	}
	return fmt.Errorf("%s account: %w", which, err)
}

func isTransferOutcome(err error) bool {
	for _, target := range []error{ErrInvalidRequest, ErrAccountNotFound, ErrInsufficientFunds} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCompleted
	case errors.Is(err, ErrUnauthorized):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, ErrInvalidRequest):
		return metrics.OutcomeInvalidRequest
	case errors.Is(err, ErrRecipientNotFound):
		return metrics.OutcomeRecipientNotFound
	case errors.Is(err, ErrAccountNotFound):
		return metrics.OutcomeAccountNotFound
	case errors.Is(err, ErrSelfTransfer):
		return metrics.OutcomeSelfTransfer
	case errors.Is(err, ErrInsufficientFunds):
		return metrics.OutcomeInsufficientFunds
	default:
		return metrics.OutcomeFailed
	}
}
