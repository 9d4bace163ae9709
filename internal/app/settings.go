/**
 * @description
 * This file contains the settings service: the maintenance fee, due day,
 * late surcharge, and bank details administrators manage, plus the price
 * history shown on the dashboard. A price change publishes a notice so
 * resident dashboards refresh their quotes.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/arcos/community-service/internal/domain"
	"github.com/arcos/community-service/internal/store"
	"github.com/arcos/community-service/pkg/rabbitmq"
)

// SettingsService owns the maintenance settings singleton.
type SettingsService struct {
	repo     store.Repository
	producer rabbitmq.Publisher
	now      func() time.Time
}

// NewSettingsService creates a settings service.
func NewSettingsService(repo store.Repository, producer rabbitmq.Publisher, now func() time.Time) *SettingsService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SettingsService{repo: repo, producer: producer, now: now}
}

// GetSettings returns the current maintenance settings.
func (s *SettingsService) GetSettings(ctx context.Context) (*domain.MaintenanceSettings, error) {
	return s.repo.GetMaintenanceSettings(ctx)
}

// UpdateSettings applies a partial settings change.
func (s *SettingsService) UpdateSettings(ctx context.Context, update domain.SettingsUpdate) (*domain.MaintenanceSettings, error) {
	if update.Price != nil && *update.Price < 0 {
		return nil, fmt.Errorf("%w: maintenance price must not be negative", ErrValidation)
	}
	if update.LateFee != nil && *update.LateFee < 0 {
		return nil, fmt.Errorf("%w: late fee must not be negative", ErrValidation)
	}
	if update.DueDay != nil && (*update.DueDay < 1 || *update.DueDay > 28) {
		return nil, fmt.Errorf("%w: due day must be between 1 and 28", ErrValidation)
	}

	now := s.now()
	settings, err := s.repo.UpdateMaintenanceSettings(ctx, update, now)
	if err != nil {
		return nil, err
	}

	if update.Price != nil && s.producer != nil {
		event := rabbitmq.NoticeEvent{
			Type:      rabbitmq.NoticePriceChanged,
			Title:     "Nueva cuota de mantenimiento",
			Body:      update.Notes,
			Timestamp: now,
		}
		if err := s.producer.PublishNotice(ctx, event); err != nil {
			log.Printf("level=error component=settings_service msg=\"failed to publish notice\" type=%s error=%v", event.Type, err)
		}
	}

	return settings, nil
}

// PriceHistory returns past maintenance fee changes, newest first.
func (s *SettingsService) PriceHistory(ctx context.Context) ([]domain.MaintenancePriceChange, error) {
	return s.repo.ListPriceHistory(ctx)
}
