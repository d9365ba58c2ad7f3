package repository

import (
	"context"

	"taskmate/internal/domain/entity"
)

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Task, error)
	UpdateStatus(ctx context.Context, id, status string) error
}
