package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"github.com/google/uuid"
)

// ImportResult describes a committed CSV import.
type ImportResult struct {
	BatchID string
	Count   int
	IDs     []int64
}

type ImportService struct {
	store      storage.TransactionStore
	classifier *core.Classifier
	now        func() time.Time
	notifier
}

func NewImportService(store storage.TransactionStore, classifier *core.Classifier, publisher EventPublisher, logger *log.Logger, listeners ...ChangeListener) *ImportService {
	if classifier == nil {
		classifier = core.NewClassifier(core.DefaultRules())
	}
	return &ImportService{
		store:      store,
		classifier: classifier,
		now:        time.Now,
		notifier: notifier{
			publisher: publisher,
			listeners: listeners,
			logger:    orDefault(logger).WithComponent(log.ComponentImport),
		},
	}
}

// Import parses raw CSV text and inserts every row in one storage
// transaction. The first invalid row aborts the import with a
// *core.ImportError and nothing is written.
func (s *ImportService) Import(ctx context.Context, userID int64, raw string) (ImportResult, error) {
	batchID := uuid.NewString()
	logger := s.logger.With(log.FieldBatchID, batchID, log.FieldUserID, userID)

	txs, err := ParseCSV(raw, userID, core.DateOf(s.now()), s.classifier)
	if err != nil {
		logger.WarnContext(ctx, "CSV import rejected", log.FieldError, err)
		return ImportResult{}, err
	}

	result := ImportResult{BatchID: batchID, IDs: []int64{}}
	if len(txs) == 0 {
		logger.InfoContext(ctx, "CSV import contained no rows")
		return result, nil
	}

	ids, err := s.store.InsertTransactions(ctx, txs)
	if err != nil {
		return ImportResult{}, fmt.Errorf("insert imported transactions: %w", err)
	}
	result.IDs = ids
	result.Count = len(ids)

	logger.InfoContext(ctx, "CSV import committed", log.FieldCount, result.Count)
	s.changed(ctx, amqp.EventImported, userID, ids)
	return result, nil
}

// ParseCSV turns raw CSV text into classified transactions for userID.
//
// Line 1 is the header. Blank lines and lines with fewer than three fields
// are skipped. Fields are [description, amount, type, date]; a missing or
// empty date becomes today. Row numbers in errors are 1-based physical lines.
func ParseCSV(raw string, userID int64, today core.Date, c *core.Classifier) ([]core.Transaction, error) {
	raw = strings.TrimPrefix(raw, "\ufeff")
	lines := strings.Split(raw, "\n")

	txs := []core.Transaction{}
	for i, line := range lines {
		if i == 0 {
			continue
		}
		row := i + 1
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			continue
		}
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}

		date := today.String()
		if len(parts) > 3 && parts[3] != "" {
			date = parts[3]
		}

		f, reason := parseFields(parts[1], parts[2], date)
		if reason != "" {
			return nil, &core.ImportError{Row: row, Reason: reason}
		}
		tx, reason := newTransaction(userID, parts[0], f, c)
		if reason != "" {
			return nil, &core.ImportError{Row: row, Reason: reason}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
