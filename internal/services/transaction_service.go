package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// CreateTransactionRequest carries the raw user input of a new transaction.
type CreateTransactionRequest struct {
	Description string
	Amount      string
	Type        string
	Date        string
}

// TransactionService classifies, stores and announces transactions.
type TransactionService struct {
	store      storage.TransactionStore
	classifier *core.Classifier
	notifier
}

func NewTransactionService(store storage.TransactionStore, classifier *core.Classifier, publisher EventPublisher, logger *log.Logger, listeners ...ChangeListener) *TransactionService {
	if classifier == nil {
		classifier = core.NewClassifier(core.DefaultRules())
	}
	return &TransactionService{
		store:      store,
		classifier: classifier,
		notifier: notifier{
			publisher: publisher,
			listeners: listeners,
			logger:    orDefault(logger).WithComponent(log.ComponentTransaction),
		},
	}
}

// Create validates req, assigns a category and stores the transaction.
func (s *TransactionService) Create(ctx context.Context, userID int64, req CreateTransactionRequest) (core.Transaction, error) {
	if blank(req.Description, req.Amount, req.Type, req.Date) {
		return core.Transaction{}, core.NewValidationError(reasonRequired)
	}

	f, reason := parseFields(strings.TrimSpace(req.Amount), req.Type, req.Date)
	if reason != "" {
		return core.Transaction{}, core.NewValidationError(reason)
	}
	tx, reason := newTransaction(userID, strings.TrimSpace(req.Description), f, s.classifier)
	if reason != "" {
		return core.Transaction{}, core.NewValidationError(reason)
	}

	id, err := s.store.InsertTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	tx.ID = id

	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().
			WithUser(userID).
			WithTransaction(id, string(tx.Type), string(tx.Category), tx.Amount.Cents).
			ToSlice()...)

	s.changed(ctx, amqp.EventCreated, userID, []int64{id})
	return tx, nil
}

func (s *TransactionService) List(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Delete removes a transaction owned by userID. Unknown ids and ids owned by
// someone else are both reported as not found.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	deleted, err := s.store.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if !deleted {
		return core.NewNotFoundError("Transaction not found")
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldUserID, userID, log.FieldTransactionID, id)

	s.changed(ctx, amqp.EventDeleted, userID, []int64{id})
	return nil
}
