package service

import (
	"context"

	"buyerlead_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Store is the persistence surface the service needs. *repository.Repository
// satisfies it; tests substitute an in-memory implementation.
type Store interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params repository.ListLeadsParams) ([]repository.Lead, int, error)
	ListForExport(ctx context.Context, params repository.ListLeadsParams) ([]repository.Lead, error)
	ImportLeads(ctx context.Context, batch []repository.ImportLeadParams, actorID uuid.UUID) ([]repository.Lead, error)
	AppendHistory(ctx context.Context, params repository.AppendHistoryParams) (repository.HistoryEntry, error)
	ListHistory(ctx context.Context, leadID uuid.UUID, limit int) ([]repository.HistoryEntry, error)
}
