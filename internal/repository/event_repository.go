package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/axellelanca/scanlead/internal/models"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository resolves events by their human name.
type EventRepository interface {
	FindEventByName(ctx context.Context, name string) (*models.Event, error)
	EnsureEvent(ctx context.Context, name string) (*models.Event, error)
}

// GormEventRepository est l'implémentation de EventRepository utilisant GORM.
type GormEventRepository struct {
	db *gorm.DB
}

// NewEventRepository crée et retourne une nouvelle instance de GormEventRepository.
func NewEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

// FindEventByName looks an event up by the slug of name. It returns (nil, nil)
// when no event matches so callers can treat the name as optional.
func (r *GormEventRepository) FindEventByName(ctx context.Context, name string) (*models.Event, error) {
	s := slug.Make(name)
	if s == "" {
		return nil, nil
	}
	var event models.Event
	if err := r.db.WithContext(ctx).Where("slug = ?", s).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find event %q: %w", name, err)
	}
	return &event, nil
}

// EnsureEvent returns the event named name, creating it when missing.
func (r *GormEventRepository) EnsureEvent(ctx context.Context, name string) (*models.Event, error) {
	s := slug.Make(name)
	if s == "" {
		return nil, fmt.Errorf("event name %q has no usable characters", name)
	}
	event := models.Event{Name: name, Slug: s}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&event).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create event %q: %w", name, err)
	}
	var stored models.Event
	if err := r.db.WithContext(ctx).Where("slug = ?", s).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to load event %q: %w", name, err)
	}
	return &stored, nil
}
