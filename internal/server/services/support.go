package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/server/auth"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/repomanager"
)

// SupportService handles asynchronous support tickets.
type SupportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSupportService(db *sql.DB, m repomanager.RepositoryManager) *SupportService {
	return &SupportService{db: db, repomanager: m}
}

func (s *SupportService) Create(ctx context.Context, id auth.Identity, subject, message string) (*models.SupportMessage, error) {
	subject = strings.TrimSpace(subject)
	message = strings.TrimSpace(message)

	v := common.NewValidationError()
	if subject == "" {
		v.Add("subject", "subject is required")
	}
	if message == "" {
		v.Add("message", "message is required")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	return s.repomanager.SupportMessages(s.db).Create(ctx, &models.SupportMessage{
		UserID:  id.UserID,
		Subject: subject,
		Message: message,
	})
}

func (s *SupportService) Mine(ctx context.Context, id auth.Identity) ([]*models.SupportMessage, error) {
	return s.repomanager.SupportMessages(s.db).ListByUser(ctx, id.UserID)
}

func (s *SupportService) ListAll(ctx context.Context, id auth.Identity) ([]*models.SupportMessage, error) {
	if !id.IsAdmin() {
		return nil, common.ErrForbidden
	}
	return s.repomanager.SupportMessages(s.db).ListAll(ctx)
}

func (s *SupportService) Respond(ctx context.Context, id auth.Identity, ticketID, response string) (*models.SupportMessage, error) {
	if !id.IsAdmin() {
		return nil, common.ErrForbidden
	}
	response = strings.TrimSpace(response)
	if response == "" {
		v := common.NewValidationError()
		v.Add("response", "response is required")
		return nil, v
	}
	return s.repomanager.SupportMessages(s.db).Respond(ctx, ticketID, response)
}
