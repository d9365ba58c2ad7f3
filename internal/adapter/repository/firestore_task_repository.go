package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"taskmate/internal/domain/entity"
	"taskmate/internal/domain/repository"
	"taskmate/pkg/errors"
)

const tasksCollection = "tasks"

type firestoreTaskRepository struct {
	client *firestore.Client
}

func NewFirestoreTaskRepository(client *firestore.Client) repository.TaskRepository {
	return &firestoreTaskRepository{
		client: client,
	}
}

func (r *firestoreTaskRepository) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	doc, err := r.client.Collection(tasksCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translateError(err, "Task")
	}

	var task entity.Task
	if err := doc.DataTo(&task); err != nil {
		return nil, errors.Internal("Failed to parse task data", err)
	}

	return &task, nil
}

func (r *firestoreTaskRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.client.Collection(tasksCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: status},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return translateError(err, "Task")
	}

	return nil
}
