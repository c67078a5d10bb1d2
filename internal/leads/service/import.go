package service

import (
	"context"
	"fmt"

	"buyerlead_backend/internal/leads/repository"
	"buyerlead_backend/internal/leads/transport"
	"buyerlead_backend/platform/apperr"
)

// MaxImportRows caps one bulk-import batch.
const MaxImportRows = 200

// Import runs the all-or-nothing bulk import: every row is validated first,
// and one invalid row rejects the whole batch with per-row diagnostics. Row
// numbers are 1-indexed by position in the submitted batch. Only a fully
// valid batch reaches the store, in a single transaction.
func (s *Service) Import(ctx context.Context, actor Actor, rows []transport.LeadCSVRow) (transport.ImportResult, error) {
	if len(rows) == 0 {
		return transport.ImportResult{}, apperr.BadRequest("no rows to import")
	}
	if len(rows) > MaxImportRows {
		return transport.ImportResult{}, apperr.BadRequest(
			fmt.Sprintf("import is limited to %d rows per batch", MaxImportRows))
	}

	result := transport.ImportResult{TotalCount: len(rows)}
	batch := make([]repository.ImportLeadParams, 0, len(rows))

	for i, row := range rows {
		req, violations := s.schema.ValidateImportRow(row)
		if len(violations) > 0 {
			result.Rejected = append(result.Rejected, transport.ImportRowError{
				Row:    i + 1,
				Errors: violations,
			})
			continue
		}
		batch = append(batch, repository.ImportLeadParams{
			CreateLeadParams: createParams(req, actor.ID),
			Raw:              rawRowPayload(row),
		})
	}
	result.ValidCount = len(batch)

	if len(result.Rejected) > 0 {
		return result, nil
	}

	leads, err := s.store.ImportLeads(ctx, batch, actor.ID)
	if err != nil {
		return transport.ImportResult{}, err
	}

	result.Committed = make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		result.Committed = append(result.Committed, toLeadResponse(lead))
	}
	return result, nil
}

// rawRowPayload is the original row as submitted, before validation
// normalization, for the "imported" audit entry.
func rawRowPayload(row transport.LeadCSVRow) map[string]any {
	return map[string]any{
		"fullName":     row.FullName,
		"email":        row.Email,
		"phone":        row.Phone,
		"city":         row.City,
		"propertyType": row.PropertyType,
		"bhk":          row.BHK,
		"purpose":      row.Purpose,
		"budgetMin":    row.BudgetMin,
		"budgetMax":    row.BudgetMax,
		"timeline":     row.Timeline,
		"source":       row.Source,
		"notes":        row.Notes,
		"tags":         row.Tags,
		"status":       row.Status,
	}
}
