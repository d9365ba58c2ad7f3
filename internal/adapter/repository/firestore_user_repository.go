package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"taskmate/internal/domain/entity"
	"taskmate/internal/domain/repository"
	"taskmate/pkg/errors"
)

const usersCollection = "users"

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translateError(err, "User")
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}

	return &user, nil
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user)
	if err != nil {
		return translateError(err, "User")
	}

	return nil
}

func (r *firestoreUserRepository) SetOnline(ctx context.Context, id string, online bool) error {
	_, err := r.client.Collection(usersCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "online", Value: online},
		{Path: "lastSeen", Value: time.Now()},
	})
	if err != nil {
		return translateError(err, "User")
	}

	return nil
}
