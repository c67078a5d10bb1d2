// Package service implements the mutation controller for buyer lead records:
// schema-checked creates, token-guarded partial updates with a diff-based
// audit trail, ownership-gated deletes, and filtered reads.
package service

import (
	"context"
	"errors"
	"time"

	"buyerlead_backend/internal/leads/repository"
	"buyerlead_backend/internal/leads/schema"
	"buyerlead_backend/internal/leads/transport"
	"buyerlead_backend/platform/apperr"
	"buyerlead_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	// DefaultHistoryLimit and MaxHistoryLimit bound the history listing.
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Actor identifies who is performing a mutation.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

type Service struct {
	store  Store
	schema *schema.Schema
	log    *logger.Logger
}

func New(store Store, sch *schema.Schema, log *logger.Logger) *Service {
	return &Service{store: store, schema: sch, log: log}
}

// Create validates and persists a new lead owned by the actor.
func (s *Service) Create(ctx context.Context, actor Actor, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	if violations := s.schema.ValidateCreate(&req); len(violations) > 0 {
		return transport.LeadResponse{}, apperr.Validation("validation failed").WithDetails(violations)
	}

	lead, err := s.store.Create(ctx, createParams(req, actor.ID))
	if err != nil {
		return transport.LeadResponse{}, err
	}

	// The created entry carries the full validated payload.
	s.appendHistory(ctx, repository.AppendHistoryParams{
		LeadID:  lead.ID,
		ActorID: actor.ID,
		Action:  "created",
		Payload: map[string]any{"record": req},
	})

	return toLeadResponse(lead), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(lead), nil
}

// Update applies a partial update. The flow is load, token check, merge,
// re-validate the merged state, diff, write. An update whose merged state
// equals the current record skips the write entirely.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	if violations := s.schema.ValidatePatch(&req); len(violations) > 0 {
		return transport.LeadResponse{}, apperr.Validation("validation failed").WithDetails(violations)
	}
	if !patchHasFields(req) {
		return transport.LeadResponse{}, apperr.BadRequest("no fields to update")
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}

	if current.OwnerID != actor.ID && !actor.IsAdmin {
		return transport.LeadResponse{}, apperr.Forbidden("only the owner can modify this lead")
	}

	// Stale-token conflicts return the current record so the caller can
	// rebase instead of re-fetching.
	if req.UpdatedAt != nil && !sameInstant(current.UpdatedAt, *req.UpdatedAt) {
		return transport.LeadResponse{}, apperr.Conflict("lead was modified by someone else").
			WithDetails(toLeadResponse(current))
	}

	merged := mergeLead(current, req)
	if violations := validateMerged(merged); len(violations) > 0 {
		return transport.LeadResponse{}, apperr.Validation("validation failed").WithDetails(violations)
	}

	diff := computeDiff(current, merged)
	if len(diff) == 0 {
		return toLeadResponse(current), nil
	}

	updated, err := s.store.Update(ctx, id, merged)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}

	s.appendHistory(ctx, repository.AppendHistoryParams{
		LeadID:  id,
		ActorID: actor.ID,
		Action:  "updated",
		Payload: map[string]any{"diff": diff},
	})

	return toLeadResponse(updated), nil
}

// Delete removes a lead; its history rows go with it via the foreign-key
// cascade, so deletion is not separately audited.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return err
	}

	if current.OwnerID != actor.ID && !actor.IsAdmin {
		return apperr.Forbidden("only the owner can delete this lead")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return err
	}
	return nil
}

// List returns one page of leads matching the filter.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	leads, total, err := s.store.List(ctx, repository.ListLeadsParams{
		City:         req.City,
		PropertyType: req.PropertyType,
		Status:       req.Status,
		Timeline:     req.Timeline,
		Search:       req.Search,
		Limit:        req.Limit,
		Offset:       (req.Page - 1) * req.Limit,
		SortBy:       req.SortBy,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, toLeadResponse(lead))
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + req.Limit - 1) / req.Limit
	}

	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1 && total > 0,
	}, nil
}

// History returns the most recent audit entries for a lead.
func (s *Service) History(ctx context.Context, id uuid.UUID, limit int) ([]transport.HistoryEntryResponse, error) {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	if _, err := s.store.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, err
	}

	entries, err := s.store.ListHistory(ctx, id, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]transport.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, transport.HistoryEntryResponse{
			ID:        entry.ID,
			LeadID:    entry.LeadID,
			ActorID:   entry.ActorID,
			Action:    entry.Action,
			Payload:   entry.Payload,
			CreatedAt: entry.CreatedAt,
		})
	}
	return responses, nil
}

// appendHistory records an audit entry; a failed append is logged but never
// fails the mutation that already committed.
func (s *Service) appendHistory(ctx context.Context, params repository.AppendHistoryParams) {
	if _, err := s.store.AppendHistory(ctx, params); err != nil {
		s.log.Warn("history_append_failed",
			"lead_id", params.LeadID.String(),
			"action", params.Action,
			"error", err.Error(),
		)
	}
}

// sameInstant compares two timestamps at microsecond precision, the
// resolution the database stores.
func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Microsecond).Equal(b.Truncate(time.Microsecond))
}

func patchHasFields(req transport.UpdateLeadRequest) bool {
	return req.FullName != nil || req.Email != nil || req.Phone != nil ||
		req.City != nil || req.PropertyType != nil || req.BHK != nil ||
		req.Purpose != nil || req.BudgetMin != nil || req.BudgetMax != nil ||
		req.Timeline != nil || req.Source != nil || req.Status != nil ||
		req.Notes != nil || req.Tags != nil
}

func createParams(req transport.CreateLeadRequest, ownerID uuid.UUID) repository.CreateLeadParams {
	params := repository.CreateLeadParams{
		FullName:     req.FullName,
		Phone:        req.Phone,
		City:         string(req.City),
		PropertyType: string(req.PropertyType),
		Purpose:      string(req.Purpose),
		BudgetMin:    req.BudgetMin,
		BudgetMax:    req.BudgetMax,
		Timeline:     string(req.Timeline),
		Source:       string(req.Source),
		Status:       string(req.Status),
		Tags:         req.Tags,
		OwnerID:      ownerID,
	}
	if req.Email != "" {
		email := req.Email
		params.Email = &email
	}
	if req.Notes != "" {
		notes := req.Notes
		params.Notes = &notes
	}
	if req.BHK != nil {
		bhk := string(*req.BHK)
		params.BHK = &bhk
	}
	if params.Tags == nil {
		params.Tags = []string{}
	}
	return params
}

// mergeLead folds a patch into the current record. A supplied empty string on
// an optional field clears it to NULL; absent fields keep their current
// values. The bedroom-count field is dropped whenever the merged property
// type has no use for it.
func mergeLead(current repository.Lead, req transport.UpdateLeadRequest) repository.UpdateLeadParams {
	merged := repository.UpdateLeadParams{
		FullName:     current.FullName,
		Email:        current.Email,
		Phone:        current.Phone,
		City:         current.City,
		PropertyType: current.PropertyType,
		BHK:          current.BHK,
		Purpose:      current.Purpose,
		BudgetMin:    current.BudgetMin,
		BudgetMax:    current.BudgetMax,
		Timeline:     current.Timeline,
		Source:       current.Source,
		Status:       current.Status,
		Notes:        current.Notes,
		Tags:         current.Tags,
	}

	if req.FullName != nil {
		merged.FullName = *req.FullName
	}
	if req.Email != nil {
		merged.Email = optionalString(*req.Email)
	}
	if req.Phone != nil {
		merged.Phone = *req.Phone
	}
	if req.City != nil {
		merged.City = string(*req.City)
	}
	if req.PropertyType != nil {
		merged.PropertyType = string(*req.PropertyType)
	}
	if req.BHK != nil {
		merged.BHK = optionalString(string(*req.BHK))
	}
	if req.Purpose != nil {
		merged.Purpose = string(*req.Purpose)
	}
	if req.BudgetMin != nil {
		value := *req.BudgetMin
		merged.BudgetMin = &value
	}
	if req.BudgetMax != nil {
		value := *req.BudgetMax
		merged.BudgetMax = &value
	}
	if req.Timeline != nil {
		merged.Timeline = string(*req.Timeline)
	}
	if req.Source != nil {
		merged.Source = string(*req.Source)
	}
	if req.Status != nil {
		merged.Status = string(*req.Status)
	}
	if req.Notes != nil {
		merged.Notes = optionalString(*req.Notes)
	}
	if req.Tags != nil {
		merged.Tags = req.Tags
	}

	if !transport.PropertyType(merged.PropertyType).RequiresBHK() {
		merged.BHK = nil
	}
	if merged.Tags == nil {
		merged.Tags = []string{}
	}
	return merged
}

// validateMerged re-checks the cross-field rules against the merged state.
// Per-field rules already held on both sides of the merge.
func validateMerged(merged repository.UpdateLeadParams) []transport.FieldError {
	var violations []transport.FieldError
	if transport.PropertyType(merged.PropertyType).RequiresBHK() && merged.BHK == nil {
		violations = append(violations, transport.FieldError{
			Field: "bhk", Message: "bhk is required for Apartment and Villa",
		})
	}
	if merged.BudgetMin != nil && merged.BudgetMax != nil && *merged.BudgetMax < *merged.BudgetMin {
		violations = append(violations, transport.FieldError{
			Field: "budgetMax", Message: "budgetMax must be greater than or equal to budgetMin",
		})
	}
	return violations
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func toLeadResponse(lead repository.Lead) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID:           lead.ID,
		FullName:     lead.FullName,
		Email:        lead.Email,
		Phone:        lead.Phone,
		City:         transport.City(lead.City),
		PropertyType: transport.PropertyType(lead.PropertyType),
		Purpose:      transport.Purpose(lead.Purpose),
		BudgetMin:    lead.BudgetMin,
		BudgetMax:    lead.BudgetMax,
		Timeline:     transport.Timeline(lead.Timeline),
		Source:       transport.Source(lead.Source),
		Status:       transport.Status(lead.Status),
		Notes:        lead.Notes,
		Tags:         lead.Tags,
		OwnerID:      lead.OwnerID,
		CreatedAt:    lead.CreatedAt,
		UpdatedAt:    lead.UpdatedAt,
	}
	if lead.BHK != nil {
		bhk := transport.BHK(*lead.BHK)
		resp.BHK = &bhk
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	return resp
}
