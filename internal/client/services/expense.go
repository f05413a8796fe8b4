package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ExpenseInput is what the user typed. An empty Date means today.
type ExpenseInput struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        string
}

// ExpenseService records expenses locally and lets the sync engine push
// them. Edits and deletes of expenses the server already knows are queued
// as actions.
type ExpenseService interface {
	Add(ctx context.Context, in ExpenseInput) (*models.Expense, error)
	List(ctx context.Context) ([]models.Expense, error)
	Update(ctx context.Context, id string, in ExpenseInput) (*models.Expense, error)
	Delete(ctx context.Context, id string) error
	AttachReceipt(ctx context.Context, id, contentType string, body io.Reader) (*client.ReceiptURL, error)
	ReceiptURL(ctx context.Context, id string) (*client.ReceiptURL, error)
}

type ExpenseStore interface {
	PutExpense(ctx context.Context, e *models.Expense) error
	GetAllExpenses(ctx context.Context, ownerID string) ([]models.Expense, error)
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	PutExpenseAndEnqueue(ctx context.Context, e *models.Expense, a models.QueuedAction) (int64, error)
	DeleteExpenseAndEnqueue(ctx context.Context, id string, a models.QueuedAction) (int64, error)
}

type ReceiptRemote interface {
	UploadReceipt(ctx context.Context, serverID, contentType string, body io.Reader) (*client.ReceiptURL, error)
	ReceiptDownloadURL(ctx context.Context, serverID string) (*client.ReceiptURL, error)
}

type expenseService struct {
	store   ExpenseStore
	remote  ReceiptRemote
	current func() string
	trigger func(ctx context.Context)
	now     func() time.Time
	logger  logging.Logger
}

// NewExpenseService wires the service. current returns the signed-in user
// id; trigger asks for a sync and must not block.
func NewExpenseService(s ExpenseStore, r ReceiptRemote, current func() string, trigger func(ctx context.Context), logger logging.Logger) ExpenseService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &expenseService{
		store:   s,
		remote:  r,
		current: current,
		trigger: trigger,
		now:     time.Now,
		logger:  logger.With("module", "expenses"),
	}
}

func (s *expenseService) normalize(in ExpenseInput) (ExpenseInput, error) {
	ve := common.NewValidationError()

	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.Date = strings.TrimSpace(in.Date)

	if !in.Amount.IsPositive() {
		ve.Add("amount", "must be greater than zero")
	}
	if in.Category == "" {
		ve.Add("category", "is required")
	}
	if in.Date == "" {
		in.Date = s.now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, in.Date); err != nil {
		ve.Add("date", "must be YYYY-MM-DD")
	}
	in.Amount = in.Amount.Round(2)
	return in, ve.OrNil()
}

func (s *expenseService) owner() (string, error) {
	id := s.current()
	if id == "" {
		return "", ErrNotSignedIn
	}
	return id, nil
}

func (s *expenseService) Add(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}
	in, err = s.normalize(in)
	if err != nil {
		return nil, err
	}

	e := &models.Expense{
		ID:           uuid.NewString(),
		OwnerID:      owner,
		Amount:       in.Amount,
		Category:     in.Category,
		Description:  in.Description,
		Date:         in.Date,
		LastModified: s.now().UnixMilli(),
	}
	if err := s.store.PutExpense(ctx, e); err != nil {
		return nil, err
	}
	s.trigger(ctx)
	return e, nil
}

func (s *expenseService) List(ctx context.Context) ([]models.Expense, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}
	return s.store.GetAllExpenses(ctx, owner)
}

func (s *expenseService) get(ctx context.Context, id string) (*models.Expense, error) {
	owner, err := s.owner()
	if err != nil {
		return nil, err
	}
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.OwnerID != owner {
		return nil, common.ErrorNotFound
	}
	return e, nil
}

// Update rewrites the local row. An expense the server has not seen yet
// stays pending and travels with the next batch; otherwise a full update
// is queued.
func (s *expenseService) Update(ctx context.Context, id string, in ExpenseInput) (*models.Expense, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err = s.normalize(in)
	if err != nil {
		return nil, err
	}

	e.Amount = in.Amount
	e.Category = in.Category
	e.Description = in.Description
	e.Date = in.Date
	e.LastModified = s.now().UnixMilli()

	if e.ServerID == "" {
		e.Synced = false
		if err := s.store.PutExpense(ctx, e); err != nil {
			return nil, err
		}
	} else {
		a, err := models.NewAction(e.OwnerID, models.UpdateExpense{
			ExpenseID:   e.ID,
			ServerID:    e.ServerID,
			Amount:      e.Amount,
			Category:    e.Category,
			Description: e.Description,
			Date:        e.Date,
		}, e.LastModified)
		if err != nil {
			return nil, err
		}
		if _, err := s.store.PutExpenseAndEnqueue(ctx, e, a); err != nil {
			return nil, err
		}
	}

	s.trigger(ctx)
	return e, nil
}

func (s *expenseService) Delete(ctx context.Context, id string) error {
	e, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if e.ServerID == "" {
		return s.store.DeleteExpense(ctx, id)
	}

	a, err := models.NewAction(e.OwnerID, models.DeleteExpense{ExpenseID: e.ID, ServerID: e.ServerID}, s.now().UnixMilli())
	if err != nil {
		return err
	}
	if _, err := s.store.DeleteExpenseAndEnqueue(ctx, id, a); err != nil {
		return err
	}
	s.trigger(ctx)
	return nil
}

// AttachReceipt needs the server: the expense must be synced.
func (s *expenseService) AttachReceipt(ctx context.Context, id, contentType string, body io.Reader) (*client.ReceiptURL, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.ServerID == "" {
		return nil, fmt.Errorf("%w: expense %s is not synced yet", client.ErrUnavailable, id)
	}
	u, err := s.remote.UploadReceipt(ctx, e.ServerID, contentType, body)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "receipt uploaded", "expense_id", id, "key", u.Key)
	return u, nil
}

func (s *expenseService) ReceiptURL(ctx context.Context, id string) (*client.ReceiptURL, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.ServerID == "" {
		return nil, fmt.Errorf("%w: expense %s is not synced yet", client.ErrUnavailable, id)
	}
	return s.remote.ReceiptDownloadURL(ctx, e.ServerID)
}
