package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
	sc "github.com/dmitrijs2005/fintrack/internal/server/config"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	dateLayout     = "2006-01-02"
	presignExpires = 15 * time.Minute
	maxSyncBatch   = 500
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	today = func() string { return time.Now().Format(dateLayout) }
)

// ExpenseInput is the writable part of an expense as sent by clients.
type ExpenseInput struct {
	ClientID    string          `json:"client_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

// ReceiptURL is a presigned object storage URL for an expense receipt.
type ReceiptURL struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ExpenseService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewExpenseService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config) *ExpenseService {
	return &ExpenseService{
		db:          db,
		repomanager: repomanager,
		config:      config,
	}
}

func (in *ExpenseInput) normalize() error {
	v := common.NewValidationError()

	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.Date = strings.TrimSpace(in.Date)

	if !in.Amount.IsPositive() {
		v.Add("amount", "amount must be greater than zero")
	}
	if in.Category == "" {
		v.Add("category", "category is required")
	}
	if in.Date == "" {
		in.Date = today()
	} else if _, err := time.Parse(dateLayout, in.Date); err != nil {
		v.Add("date", "date must be YYYY-MM-DD")
	}

	return v.OrNil()
}

func (in ExpenseInput) toModel(userID string) *models.Expense {
	return &models.Expense{
		UserID:      userID,
		ClientID:    in.ClientID,
		Amount:      in.Amount.Round(2),
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
	}
}

func (s *ExpenseService) List(ctx context.Context, userID string) ([]*models.Expense, error) {
	return s.repomanager.Expenses(s.db).ListByUser(ctx, userID)
}

func (s *ExpenseService) Get(ctx context.Context, userID, id string) (*models.Expense, error) {
	return s.repomanager.Expenses(s.db).GetByID(ctx, userID, id)
}

// Create stores a new expense. When the input carries a client id that was
// already stored, the existing row is updated instead, so a retried create
// is harmless.
func (s *ExpenseService) Create(ctx context.Context, userID string, in ExpenseInput) (*models.Expense, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	repo := s.repomanager.Expenses(s.db)
	if in.ClientID != "" {
		return repo.Upsert(ctx, in.toModel(userID))
	}
	return repo.Create(ctx, in.toModel(userID))
}

// Update is a full replacement of the writable fields.
func (s *ExpenseService) Update(ctx context.Context, userID, id string, in ExpenseInput) (*models.Expense, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	e := in.toModel(userID)
	e.ID = id
	return s.repomanager.Expenses(s.db).Update(ctx, e)
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	return s.repomanager.Expenses(s.db).Delete(ctx, userID, id)
}

// Sync stores a batch of offline-created expenses in one transaction and
// returns their canonical copies in input order. Items are keyed by client
// id, so replaying a batch whose response was lost creates nothing new.
func (s *ExpenseService) Sync(ctx context.Context, userID string, batch []ExpenseInput) ([]*models.Expense, error) {
	if len(batch) > maxSyncBatch {
		v := common.NewValidationError()
		v.Add("expenses", fmt.Sprintf("at most %d expenses per sync", maxSyncBatch))
		return nil, v
	}

	for i := range batch {
		if batch[i].ClientID == "" {
			v := common.NewValidationError()
			v.Add(fmt.Sprintf("expenses[%d].client_id", i), "client_id is required")
			return nil, v
		}
		if err := batch[i].normalize(); err != nil {
			var ve *common.ValidationError
			if errors.As(err, &ve) {
				prefixed := common.NewValidationError()
				for f, msg := range ve.Fields {
					prefixed.Add(fmt.Sprintf("expenses[%d].%s", i, f), msg)
				}
				return nil, prefixed
			}
			return nil, err
		}
	}

	processed := make([]*models.Expense, 0, len(batch))
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Expenses(tx)
		for _, in := range batch {
			e, err := repo.Upsert(ctx, in.toModel(userID))
			if err != nil {
				return err
			}
			processed = append(processed, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error syncing expenses: %w", err)
	}

	return processed, nil
}

// GetRandomStorageKey returns a fresh object key for a user's receipt.
func GetRandomStorageKey(userID string) string {
	d := time.Now()
	return fmt.Sprintf("receipts/%s/%d/%d/%d/%v", userID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ExpenseService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// ReceiptUploadURL reserves a new storage key for the expense receipt and
// returns a presigned PUT URL for it.
func (s *ExpenseService) ReceiptUploadURL(ctx context.Context, userID, id string) (*ReceiptURL, error) {
	repo := s.repomanager.Expenses(s.db)
	if _, err := repo.GetByID(ctx, userID, id); err != nil {
		return nil, err
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey(userID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpires))
	if err != nil {
		return nil, err
	}

	if err := repo.SetReceiptKey(ctx, userID, id, key); err != nil {
		return nil, err
	}

	return &ReceiptURL{Key: key, URL: req.URL, ExpiresAt: time.Now().Add(presignExpires)}, nil
}

// ReceiptDownloadURL returns a presigned GET URL for the stored receipt.
func (s *ExpenseService) ReceiptDownloadURL(ctx context.Context, userID, id string) (*ReceiptURL, error) {
	e, err := s.repomanager.Expenses(s.db).GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if e.ReceiptKey == "" {
		return nil, common.ErrorNotFound
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := e.ReceiptKey

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpires))
	if err != nil {
		return nil, err
	}

	return &ReceiptURL{Key: key, URL: req.URL, ExpiresAt: time.Now().Add(presignExpires)}, nil
}
