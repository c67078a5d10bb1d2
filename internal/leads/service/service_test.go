package service

import (
	"context"
	"testing"
	"time"

	"buyerlead_backend/internal/leads/repository"
	"buyerlead_backend/internal/leads/schema"
	"buyerlead_backend/internal/leads/transport"
	"buyerlead_backend/platform/apperr"
	"buyerlead_backend/platform/logger"
	"buyerlead_backend/platform/validator"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for exercising the service without a
// database.
type fakeStore struct {
	leads       map[uuid.UUID]repository.Lead
	history     []repository.AppendHistoryParams
	updateCalls int
	importCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{leads: make(map[uuid.UUID]repository.Lead)}
}

func (f *fakeStore) insert(params repository.CreateLeadParams) repository.Lead {
	now := time.Now()
	lead := repository.Lead{
		ID:           uuid.New(),
		FullName:     params.FullName,
		Email:        params.Email,
		Phone:        params.Phone,
		City:         params.City,
		PropertyType: params.PropertyType,
		BHK:          params.BHK,
		Purpose:      params.Purpose,
		BudgetMin:    params.BudgetMin,
		BudgetMax:    params.BudgetMax,
		Timeline:     params.Timeline,
		Source:       params.Source,
		Status:       params.Status,
		Notes:        params.Notes,
		Tags:         params.Tags,
		OwnerID:      params.OwnerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.leads[lead.ID] = lead
	return lead
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	return f.insert(params), nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	f.updateCalls++
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.FullName = params.FullName
	lead.Email = params.Email
	lead.Phone = params.Phone
	lead.City = params.City
	lead.PropertyType = params.PropertyType
	lead.BHK = params.BHK
	lead.Purpose = params.Purpose
	lead.BudgetMin = params.BudgetMin
	lead.BudgetMax = params.BudgetMax
	lead.Timeline = params.Timeline
	lead.Source = params.Source
	lead.Status = params.Status
	lead.Notes = params.Notes
	lead.Tags = params.Tags
	lead.UpdatedAt = lead.UpdatedAt.Add(time.Millisecond)
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.leads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.leads, id)
	return nil
}

func (f *fakeStore) List(_ context.Context, _ repository.ListLeadsParams) ([]repository.Lead, int, error) {
	leads := make([]repository.Lead, 0, len(f.leads))
	for _, lead := range f.leads {
		leads = append(leads, lead)
	}
	return leads, len(leads), nil
}

func (f *fakeStore) ListForExport(_ context.Context, _ repository.ListLeadsParams) ([]repository.Lead, error) {
	leads := make([]repository.Lead, 0, len(f.leads))
	for _, lead := range f.leads {
		leads = append(leads, lead)
	}
	return leads, nil
}

func (f *fakeStore) ImportLeads(_ context.Context, batch []repository.ImportLeadParams, actorID uuid.UUID) ([]repository.Lead, error) {
	f.importCalls++
	leads := make([]repository.Lead, 0, len(batch))
	for _, params := range batch {
		lead := f.insert(params.CreateLeadParams)
		f.history = append(f.history, repository.AppendHistoryParams{
			LeadID: lead.ID, ActorID: actorID, Action: "imported",
			Payload: params.Raw,
		})
		leads = append(leads, lead)
	}
	return leads, nil
}

func (f *fakeStore) AppendHistory(_ context.Context, params repository.AppendHistoryParams) (repository.HistoryEntry, error) {
	f.history = append(f.history, params)
	return repository.HistoryEntry{
		ID: uuid.New(), LeadID: params.LeadID, ActorID: params.ActorID,
		Action: params.Action, Payload: params.Payload, CreatedAt: time.Now(),
	}, nil
}

func (f *fakeStore) ListHistory(_ context.Context, leadID uuid.UUID, _ int) ([]repository.HistoryEntry, error) {
	entries := make([]repository.HistoryEntry, 0)
	for _, params := range f.history {
		if params.LeadID == leadID {
			entries = append(entries, repository.HistoryEntry{
				ID: uuid.New(), LeadID: params.LeadID, ActorID: params.ActorID,
				Action: params.Action, Payload: params.Payload,
			})
		}
	}
	return entries, nil
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	svc := New(store, schema.New(validator.New()), logger.New("development"))
	return svc, store
}

func validCreate() transport.CreateLeadRequest {
	bhk := transport.BHKTwo
	return transport.CreateLeadRequest{
		FullName:     "Asha Verma",
		Email:        "asha@example.com",
		Phone:        "9876543210",
		City:         transport.CityMohali,
		PropertyType: transport.PropertyTypeApartment,
		BHK:          &bhk,
		Purpose:      transport.PurposeBuy,
		Timeline:     transport.TimelineZeroToThree,
		Source:       transport.SourceWebsite,
		Tags:         []string{"hot"},
	}
}

func mustCreate(t *testing.T, svc *Service, actor Actor) transport.LeadResponse {
	t.Helper()
	lead, err := svc.Create(context.Background(), actor, validCreate())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return lead
}

func TestCreate_PersistsAndAudits(t *testing.T) {
	svc, store := newTestService(t)
	actor := Actor{ID: uuid.New()}

	lead := mustCreate(t, svc, actor)

	if lead.OwnerID != actor.ID {
		t.Fatalf("expected owner %s, got %s", actor.ID, lead.OwnerID)
	}
	if lead.Status != transport.StatusNew {
		t.Fatalf("expected status New, got %s", lead.Status)
	}
	if len(store.history) != 1 || store.history[0].Action != "created" {
		t.Fatalf("expected one created history entry, got %v", store.history)
	}
}

func TestCreate_ValidationRejected(t *testing.T) {
	svc, store := newTestService(t)

	req := validCreate()
	req.Phone = "123"
	_, err := svc.Create(context.Background(), Actor{ID: uuid.New()}, req)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.leads) != 0 {
		t.Fatalf("expected nothing persisted, got %d leads", len(store.leads))
	}
}

func TestUpdate_NoOpSkipsWrite(t *testing.T) {
	svc, store := newTestService(t)
	actor := Actor{ID: uuid.New()}
	lead := mustCreate(t, svc, actor)
	auditsBefore := len(store.history)

	// Same value, reordered tags: merged state equals current state.
	name := lead.FullName
	patch := transport.UpdateLeadRequest{
		FullName:  &name,
		Tags:      []string{"hot"},
		UpdatedAt: &lead.UpdatedAt,
	}
	updated, err := svc.Update(context.Background(), actor, lead.ID, patch)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if store.updateCalls != 0 {
		t.Fatalf("expected no store write for a no-op update, got %d", store.updateCalls)
	}
	if len(store.history) != auditsBefore {
		t.Fatalf("expected no audit entry for a no-op update")
	}
	if !updated.UpdatedAt.Equal(lead.UpdatedAt) {
		t.Fatalf("expected unchanged updatedAt")
	}
}

func TestUpdate_StaleTokenConflict(t *testing.T) {
	svc, _ := newTestService(t)
	actor := Actor{ID: uuid.New()}
	lead := mustCreate(t, svc, actor)

	stale := lead.UpdatedAt.Add(-time.Hour)
	name := "Renamed Lead"
	_, err := svc.Update(context.Background(), actor, lead.ID, transport.UpdateLeadRequest{
		FullName:  &name,
		UpdatedAt: &stale,
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// The conflict carries the current record so the caller can rebase.
	details, ok := err.(*apperr.Error).Details.(transport.LeadResponse)
	if !ok {
		t.Fatalf("expected current record in details, got %T", err.(*apperr.Error).Details)
	}
	if details.ID != lead.ID {
		t.Fatalf("expected current record id %s, got %s", lead.ID, details.ID)
	}
}

func TestUpdate_TokenStaleAfterFirstCommit(t *testing.T) {
	svc, _ := newTestService(t)
	actor := Actor{ID: uuid.New()}
	lead := mustCreate(t, svc, actor)
	token := lead.UpdatedAt

	// First writer carrying the observed token wins.
	name := "First Writer"
	updated, err := svc.Update(context.Background(), actor, lead.ID, transport.UpdateLeadRequest{
		FullName:  &name,
		UpdatedAt: &token,
	})
	if err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	// Second writer still holding the original token is rejected and handed
	// the refreshed record.
	other := "Second Writer"
	_, err = svc.Update(context.Background(), actor, lead.ID, transport.UpdateLeadRequest{
		FullName:  &other,
		UpdatedAt: &token,
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for reused token, got %v", err)
	}
	details := err.(*apperr.Error).Details.(transport.LeadResponse)
	if !details.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Fatalf("expected conflict details to carry the new updatedAt")
	}
}

func TestUpdate_NoTokenLastWriteWins(t *testing.T) {
	svc, _ := newTestService(t)
	actor := Actor{ID: uuid.New()}
	lead := mustCreate(t, svc, actor)

	name := "Unconditional Writer"
	if _, err := svc.Update(context.Background(), actor, lead.ID, transport.UpdateLeadRequest{
		FullName: &name,
	}); err != nil {
		t.Fatalf("expected tokenless update to proceed, got %v", err)
	}
}

func TestUpdate_TokenIgnoresSubMicrosecondDrift(t *testing.T) {
	svc, _ := newTestService(t)
	actor := Actor{ID: uuid.New()}
	lead := mustCreate(t, svc, actor)

	// A token that only differs below microsecond precision still matches.
	token := lead.UpdatedAt.Truncate(time.Microsecond)
	name := "Renamed Lead"
	_, err := svc.Update(context.Background(), actor, lead.ID, transport.UpdateLeadRequest{
		FullName:  &name,
		UpdatedAt: &token,
	})
	if err != nil {
		t.Fatalf("expected update to pass the token check, got %v", err)
	}
}

func TestUpdate_EmptyPatchRejected(t *testing.T) {
	svc, _ := newTestService(t)
	actor := Actor{ID: uuid.New()}
	lead := mustCreate(t, svc, actor)

	_, err := svc.Update(context.Background(), actor, lead.ID, transport.UpdateLeadRequest{
		UpdatedAt: &lead.UpdatedAt,
	})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request for empty patch, got %v", err)
	}
}

func TestUpdate_OwnershipEnforced(t *testing.T) {
	svc, _ := newTestService(t)
	owner := Actor{ID: uuid.New()}
	lead := mustCreate(t, svc, owner)

	name := "Renamed Lead"
	patch := transport.UpdateLeadRequest{FullName: &name, UpdatedAt: &lead.UpdatedAt}

	_, err := svc.Update(context.Background(), Actor{ID: uuid.New()}, lead.ID, patch)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	if _, err := svc.Update(context.Background(), Actor{ID: uuid.New(), IsAdmin: true}, lead.ID, patch); err != nil {
		t.Fatalf("expected admin to bypass ownership, got %v", err)
	}
}

func TestUpdate_ClearEmailAndAuditDiff(t *testing.T) {
	svc, store := newTestService(t)
	actor := Actor{ID: uuid.New()}
	lead := mustCreate(t, svc, actor)

	empty := ""
	updated, err := svc.Update(context.Background(), actor, lead.ID, transport.UpdateLeadRequest{
		Email:     &empty,
		UpdatedAt: &lead.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Email != nil {
		t.Fatalf("expected email cleared, got %v", *updated.Email)
	}

	last := store.history[len(store.history)-1]
	if last.Action != "updated" {
		t.Fatalf("expected updated history entry, got %s", last.Action)
	}
	diff, ok := last.Payload["diff"].(map[string]transport.FieldChange)
	if !ok {
		t.Fatalf("expected diff payload, got %T", last.Payload["diff"])
	}
	change, ok := diff["email"]
	if !ok {
		t.Fatalf("expected email in diff, got %v", diff)
	}
	if change.From != "asha@example.com" || change.To != nil {
		t.Fatalf("unexpected email transition %v -> %v", change.From, change.To)
	}
}

func TestUpdate_PropertyTypeSwitchDropsBHK(t *testing.T) {
	svc, _ := newTestService(t)
	actor := Actor{ID: uuid.New()}
	lead := mustCreate(t, svc, actor)

	pt := transport.PropertyTypePlot
	updated, err := svc.Update(context.Background(), actor, lead.ID, transport.UpdateLeadRequest{
		PropertyType: &pt,
		UpdatedAt:    &lead.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.BHK != nil {
		t.Fatalf("expected bhk dropped for Plot, got %s", *updated.BHK)
	}
}

func TestUpdate_MergedStateRechecked(t *testing.T) {
	svc, _ := newTestService(t)
	actor := Actor{ID: uuid.New()}

	// Record with budgetMin set; the patch alone is fine, the merged state
	// inverts the bounds.
	req := validCreate()
	min := int64(5000000)
	req.BudgetMin = &min
	lead, err := svc.Create(context.Background(), actor, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	max := int64(1000000)
	_, err = svc.Update(context.Background(), actor, lead.ID, transport.UpdateLeadRequest{
		BudgetMax: &max,
		UpdatedAt: &lead.UpdatedAt,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected merged-state validation error, got %v", err)
	}

	// Switching an Apartment-less record to Apartment without a bhk also
	// fails against the merged state.
	plot := validCreate()
	plot.PropertyType = transport.PropertyTypePlot
	plot.BHK = nil
	plotLead, err := svc.Create(context.Background(), actor, plot)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	apartment := transport.PropertyTypeApartment
	_, err = svc.Update(context.Background(), actor, plotLead.ID, transport.UpdateLeadRequest{
		PropertyType: &apartment,
		UpdatedAt:    &plotLead.UpdatedAt,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected bhk violation on merged state, got %v", err)
	}
}

func TestDelete_OwnershipAndNotFound(t *testing.T) {
	svc, store := newTestService(t)
	owner := Actor{ID: uuid.New()}
	lead := mustCreate(t, svc, owner)

	if err := svc.Delete(context.Background(), Actor{ID: uuid.New()}, lead.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Delete(context.Background(), owner, lead.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(store.leads) != 0 {
		t.Fatalf("expected lead removed")
	}
	if err := svc.Delete(context.Background(), owner, lead.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHistory_UnknownLead(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.History(context.Background(), uuid.New(), 0)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
