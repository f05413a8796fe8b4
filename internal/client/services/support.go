package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/common"
)

// SupportService files and answers support tickets. Tickets are not kept
// locally, so every call needs the server.
type SupportService interface {
	Create(ctx context.Context, subject, message string) (*client.SupportMessage, error)
	Mine(ctx context.Context) ([]client.SupportMessage, error)
	All(ctx context.Context) ([]client.SupportMessage, error)
	Respond(ctx context.Context, id, response string) (*client.SupportMessage, error)
}

type SupportRemote interface {
	CreateSupportMessage(ctx context.Context, subject, message string) (*client.SupportMessage, error)
	MySupportMessages(ctx context.Context) ([]client.SupportMessage, error)
	AllSupportMessages(ctx context.Context) ([]client.SupportMessage, error)
	RespondSupportMessage(ctx context.Context, id, response string) (*client.SupportMessage, error)
}

type supportService struct {
	remote SupportRemote
	role   func() string
}

// NewSupportService takes role, which returns the signed-in user's role.
func NewSupportService(r SupportRemote, role func() string) SupportService {
	return &supportService{remote: r, role: role}
}

func (s *supportService) Create(ctx context.Context, subject, message string) (*client.SupportMessage, error) {
	ve := common.NewValidationError()
	if strings.TrimSpace(subject) == "" {
		ve.Add("subject", "is required")
	}
	if strings.TrimSpace(message) == "" {
		ve.Add("message", "is required")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	return s.remote.CreateSupportMessage(ctx, strings.TrimSpace(subject), strings.TrimSpace(message))
}

func (s *supportService) Mine(ctx context.Context) ([]client.SupportMessage, error) {
	return s.remote.MySupportMessages(ctx)
}

func (s *supportService) All(ctx context.Context) ([]client.SupportMessage, error) {
	if s.role() != common.RoleAdmin {
		return nil, common.ErrForbidden
	}
	return s.remote.AllSupportMessages(ctx)
}

func (s *supportService) Respond(ctx context.Context, id, response string) (*client.SupportMessage, error) {
	if s.role() != common.RoleAdmin {
		return nil, common.ErrForbidden
	}
	if strings.TrimSpace(response) == "" {
		return nil, fieldError("response", "is required")
	}
	return s.remote.RespondSupportMessage(ctx, id, strings.TrimSpace(response))
}
