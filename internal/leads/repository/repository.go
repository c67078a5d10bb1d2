package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID           uuid.UUID
	FullName     string
	Email        *string
	Phone        string
	City         string
	PropertyType string
	BHK          *string
	Purpose      string
	BudgetMin    *int64
	BudgetMax    *int64
	Timeline     string
	Source       string
	Status       string
	Notes        *string
	Tags         []string
	OwnerID      uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateLeadParams struct {
	FullName     string
	Email        *string
	Phone        string
	City         string
	PropertyType string
	BHK          *string
	Purpose      string
	BudgetMin    *int64
	BudgetMax    *int64
	Timeline     string
	Source       string
	Status       string
	Notes        *string
	Tags         []string
	OwnerID      uuid.UUID
}

// UpdateLeadParams carries the full merged record state. The caller merges
// the patch into the current record before writing, so every mutable column
// is written on each update.
type UpdateLeadParams struct {
	FullName     string
	Email        *string
	Phone        string
	City         string
	PropertyType string
	BHK          *string
	Purpose      string
	BudgetMin    *int64
	BudgetMax    *int64
	Timeline     string
	Source       string
	Status       string
	Notes        *string
	Tags         []string
}

const leadColumns = `id, full_name, email, phone, city, property_type, bhk, purpose,
	budget_min, budget_max, timeline, source, status, notes, tags, owner_id,
	created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.FullName, &lead.Email, &lead.Phone, &lead.City,
		&lead.PropertyType, &lead.BHK, &lead.Purpose, &lead.BudgetMin,
		&lead.BudgetMax, &lead.Timeline, &lead.Source, &lead.Status,
		&lead.Notes, &lead.Tags, &lead.OwnerID, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO buyer_leads (
			full_name, email, phone, city, property_type, bhk, purpose,
			budget_min, budget_max, timeline, source, status, notes, tags, owner_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+leadColumns,
		params.FullName, params.Email, params.Phone, params.City,
		params.PropertyType, params.BHK, params.Purpose, params.BudgetMin,
		params.BudgetMax, params.Timeline, params.Source, params.Status,
		params.Notes, params.Tags, params.OwnerID,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM buyer_leads
		WHERE id = $1
	`, id)
	return scanLead(row)
}

// Update writes the merged record state. The SET clause is built from an
// enumerated column table so the column list stays in one place.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	assignments := []struct {
		column string
		value  any
	}{
		{"full_name", params.FullName},
		{"email", params.Email},
		{"phone", params.Phone},
		{"city", params.City},
		{"property_type", params.PropertyType},
		{"bhk", params.BHK},
		{"purpose", params.Purpose},
		{"budget_min", params.BudgetMin},
		{"budget_max", params.BudgetMax},
		{"timeline", params.Timeline},
		{"source", params.Source},
		{"status", params.Status},
		{"notes", params.Notes},
		{"tags", params.Tags},
	}

	setClauses := make([]string, 0, len(assignments)+1)
	args := []any{id}
	argIdx := 2
	for _, a := range assignments {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", a.column, argIdx))
		args = append(args, a.value)
		argIdx++
	}
	setClauses = append(setClauses, "updated_at = now()")

	query := fmt.Sprintf(`
		UPDATE buyer_leads
		SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(setClauses, ", "), leadColumns)

	return scanLead(r.pool.QueryRow(ctx, query, args...))
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM buyer_leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type ListLeadsParams struct {
	City         string
	PropertyType string
	Status       string
	Timeline     string
	Search       string
	Limit        int
	Offset       int
	SortBy       string
	SortOrder    string
}

// mapSortColumn allow-lists sortable columns; anything else sorts by
// updated_at.
func mapSortColumn(sortBy string) string {
	switch sortBy {
	case "fullName":
		return "full_name"
	case "createdAt":
		return "created_at"
	default:
		return "updated_at"
	}
}

func buildLeadListWhere(params ListLeadsParams) (string, []any) {
	clauses := make([]string, 0, 5)
	args := make([]any, 0, 5)
	argIdx := 1

	addClause := func(clause string, value any) {
		clauses = append(clauses, fmt.Sprintf(clause, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.City != "" {
		addClause("city = $%d", params.City)
	}
	if params.PropertyType != "" {
		addClause("property_type = $%d", params.PropertyType)
	}
	if params.Status != "" {
		addClause("status = $%d", params.Status)
	}
	if params.Timeline != "" {
		addClause("timeline = $%d", params.Timeline)
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		clauses = append(clauses, fmt.Sprintf(
			"(full_name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)",
			argIdx, argIdx, argIdx,
		))
		args = append(args, pattern)
		argIdx++
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// List returns one page of leads matching the filter plus the total match
// count.
func (r *Repository) List(ctx context.Context, params ListLeadsParams) ([]Lead, int, error) {
	where, args := buildLeadListWhere(params)

	var total int
	countQuery := "SELECT COUNT(*) FROM buyer_leads " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "DESC"
	if params.SortOrder == "asc" {
		order = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM buyer_leads
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, leadColumns, where, mapSortColumn(params.SortBy), order, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

// ListForExport returns every lead matching the filter, newest first, without
// pagination.
func (r *Repository) ListForExport(ctx context.Context, params ListLeadsParams) ([]Lead, error) {
	where, args := buildLeadListWhere(params)

	query := fmt.Sprintf(`
		SELECT %s
		FROM buyer_leads
		%s
		ORDER BY updated_at DESC
	`, leadColumns, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return leads, nil
}

// ImportLeadParams pairs the insertable record with the original raw row,
// which the "imported" history entry carries verbatim.
type ImportLeadParams struct {
	CreateLeadParams
	Raw map[string]any
}

// ImportLeads inserts a batch of leads in one transaction, each with an
// "imported" history entry. Any failure rolls the whole batch back.
func (r *Repository) ImportLeads(ctx context.Context, batch []ImportLeadParams, actorID uuid.UUID) ([]Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	leads := make([]Lead, 0, len(batch))
	for _, params := range batch {
		row := tx.QueryRow(ctx, `
			INSERT INTO buyer_leads (
				full_name, email, phone, city, property_type, bhk, purpose,
				budget_min, budget_max, timeline, source, status, notes, tags, owner_id
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING `+leadColumns,
			params.FullName, params.Email, params.Phone, params.City,
			params.PropertyType, params.BHK, params.Purpose, params.BudgetMin,
			params.BudgetMax, params.Timeline, params.Source, params.Status,
			params.Notes, params.Tags, params.OwnerID,
		)
		lead, err := scanLead(row)
		if err != nil {
			return nil, err
		}

		payloadJSON, err := json.Marshal(params.Raw)
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO buyer_lead_history (lead_id, actor_id, action, payload)
			VALUES ($1, $2, 'imported', $3)
		`, lead.ID, actorID, payloadJSON)
		if err != nil {
			return nil, err
		}

		leads = append(leads, lead)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return leads, nil
}
