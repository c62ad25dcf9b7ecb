package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/zap"
)

// Service emits best-effort domain events. Publishing never blocks or fails the caller.
type Service struct {
	publisher Publisher
	config    config.EventsConfig
	logger    *logging.Service
	wg        sync.WaitGroup
}

func NewService(publisher Publisher, cfg config.EventsConfig, logger *logging.Service) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Service{
		publisher: publisher,
		config:    cfg,
		logger:    logger,
	}
}

func (s *Service) UserRegistered(userID uuid.UUID, username, email string) {
	event := newEvent(TypeUserRegistered, s.config.Source, userID, username)
	event.Email = email
	s.Emit(s.config.UserTopic, event)
}

func (s *Service) UserLogin(userID uuid.UUID, username, email string, client Client) {
	event := newEvent(TypeUserLogin, s.config.Source, userID, username)
	event.Email = email
	event.Data = map[string]any{
		"ipAddress":   client.IPAddress,
		"userAgent":   client.UserAgent,
		"loginMethod": "PASSWORD",
		"successful":  true,
		"device":      DeviceInfo(client.UserAgent),
	}
	s.Emit(s.config.AuthTopic, event)
}

func (s *Service) Emit(topic string, event Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx := context.Background()
		if s.config.PublishTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.PublishTimeout)
			defer cancel()
		}

		if err := s.publisher.Publish(ctx, topic, event); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to publish event",
					zap.String("topic", topic),
					zap.String("event_type", event.Type),
					zap.String("user_id", event.UserID),
					zap.Error(err))
			}
			return
		}

		if s.logger != nil {
			s.logger.Debug("event published", zap.String("topic", topic), zap.String("event_id", event.ID))
		}
	}()
}

// Wait blocks until in-flight publishes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}
