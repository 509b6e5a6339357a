package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/axellelanca/scanlead/internal/models"
	"gorm.io/gorm"
)

// MessageRepository persists dispatches and their per-lead delivery rows.
type MessageRepository interface {
	CreateDispatch(ctx context.Context, history *models.MessageHistory, leadIDs []string) ([]models.MessageRecipient, error)
	MarkBatchSent(ctx context.Context, deliveryCode string, at time.Time) (int64, error)
	FindRecipient(ctx context.Context, deliveryCode string, leadIDs ...string) (*models.MessageRecipient, error)
	GetRecipient(ctx context.Context, id string) (*models.MessageRecipient, error)
	TransitionRecipient(ctx context.Context, id string, to models.DeliveryStatus, at time.Time) (bool, error)
	CountStalePending(ctx context.Context, before time.Time) (int64, error)
}

// GormMessageRepository est l'implémentation de MessageRepository utilisant GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository crée et retourne une nouvelle instance de GormMessageRepository.
func NewMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// CreateDispatch writes the history row and one pending recipient per lead in
// a single transaction. Every recipient carries the history's delivery code.
func (r *GormMessageRepository) CreateDispatch(ctx context.Context, history *models.MessageHistory, leadIDs []string) ([]models.MessageRecipient, error) {
	recipients := make([]models.MessageRecipient, 0, len(leadIDs))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		history.RecipientCount = len(leadIDs)
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to create message history: %w", err)
		}
		for _, leadID := range leadIDs {
			recipients = append(recipients, models.MessageRecipient{
				MessageHistoryID: history.ID,
				LeadID:           leadID,
				Status:           models.StatusPending,
				DeliveryCode:     history.DeliveryCode,
			})
		}
		if len(recipients) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&recipients, 200).Error; err != nil {
			return fmt.Errorf("failed to create message recipients: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recipients, nil
}

// MarkBatchSent moves the still-pending recipients of a batch to sent. Rows a
// callback already moved further are left alone.
func (r *GormMessageRepository) MarkBatchSent(ctx context.Context, deliveryCode string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.MessageRecipient{}).
		Where("delivery_code = ? AND status = ?", deliveryCode, string(models.StatusPending)).
		Updates(map[string]any{"status": string(models.StatusSent), "sent_at": at, "updated_at": at})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark batch %s as sent: %w", deliveryCode, res.Error)
	}
	return res.RowsAffected, nil
}

// FindRecipient returns the recipient row of a batch for any of the given
// leads, or (nil, nil).
func (r *GormMessageRepository) FindRecipient(ctx context.Context, deliveryCode string, leadIDs ...string) (*models.MessageRecipient, error) {
	if len(leadIDs) == 0 {
		return nil, nil
	}
	var rec models.MessageRecipient
	err := r.db.WithContext(ctx).
		Where("delivery_code = ? AND lead_id IN ?", deliveryCode, leadIDs).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find recipient for %s: %w", deliveryCode, err)
	}
	return &rec, nil
}

// GetRecipient returns the recipient with the given id.
func (r *GormMessageRepository) GetRecipient(ctx context.Context, id string) (*models.MessageRecipient, error) {
	var rec models.MessageRecipient
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to get recipient %s: %w", id, err)
	}
	return &rec, nil
}

// TransitionRecipient moves a recipient to `to` only from a state that may
// legally precede it. It reports false when the row was in any other state,
// which the caller resolves into a no-op or a conflict.
func (r *GormMessageRepository) TransitionRecipient(ctx context.Context, id string, to models.DeliveryStatus, at time.Time) (bool, error) {
	var from []string
	for _, s := range models.Predecessors(to) {
		from = append(from, string(s))
	}
	if len(from) == 0 {
		return false, nil
	}
	updates := map[string]any{"status": string(to), "updated_at": at}
	if col := models.TimestampColumn(to); col != "" {
		updates[col] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.MessageRecipient{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to move recipient %s to %s: %w", id, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CountStalePending counts recipients still pending that were created before `before`.
func (r *GormMessageRepository) CountStalePending(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MessageRecipient{}).
		Where("status = ? AND created_at < ?", string(models.StatusPending), before).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count stale pending recipients: %w", err)
	}
	return count, nil
}
