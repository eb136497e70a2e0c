package contact

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docbook/docbook/internal/platform/apperr"
)

type Service struct {
	messages MessageRepository
	logger   zerolog.Logger
}

func NewService(messages MessageRepository, logger zerolog.Logger) *Service {
	return &Service{messages: messages, logger: logger.With().Str("component", "contact").Logger()}
}

func (s *Service) Create(ctx context.Context, in MessageInput) (*Message, error) {
	m := &Message{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Message: strings.TrimSpace(in.Message),
	}
	if m.Name == "" || m.Message == "" {
		return nil, apperr.Invalid("name and message are required")
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info().Str("contact_id", m.ID.String()).Msg("contact message received")
	return m, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Message, error) {
	return s.messages.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Message, int, error) {
	return s.messages.List(ctx, filters, limit, offset)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.messages.Delete(ctx, id)
}
