package repository

import (
	"context"

	"warehouse-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CounterRepo interface {
	// Next increments the named counter and returns the new value. Inside a transaction
	// the row stays locked until commit, so concurrent callers get distinct values.
	Next(ctx context.Context, name string) (int64, error)
}

type counterRepo struct{ db *gorm.DB }

func NewCounterRepo(db *gorm.DB) CounterRepo { return &counterRepo{db: db} }

func (r *counterRepo) Next(ctx context.Context, name string) (int64, error) {
	db := r.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("order_counters.value + 1")}),
	}).Create(&models.OrderCounter{Name: name, Value: 1}).Error
	if err != nil {
		return 0, err
	}

	var c models.OrderCounter
	if err := db.First(&c, "name = ?", name).Error; err != nil {
		return 0, err
	}
	return c.Value, nil
}
