package repository

import (
	"context"

	"taskmate/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Create(ctx context.Context, user *entity.User) error
	SetOnline(ctx context.Context, id string, online bool) error
}
