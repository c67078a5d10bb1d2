package service

import (
	"context"
	"strconv"
	"time"

	"buyerlead_backend/internal/leads/repository"
	"buyerlead_backend/internal/leads/schema"
	"buyerlead_backend/internal/leads/transport"
)

// ExportHeader is the CSV column order of an export. The leading columns
// mirror the import format, so an exported file re-imports cleanly.
var ExportHeader = []string{
	"fullName", "email", "phone", "city", "propertyType", "bhk", "purpose",
	"budgetMin", "budgetMax", "timeline", "source", "notes", "tags", "status",
	"createdAt", "updatedAt",
}

// Export returns every lead matching the filter as CSV records, honoring the
// same filter semantics as List but without pagination.
func (s *Service) Export(ctx context.Context, req transport.ListLeadsRequest) ([][]string, error) {
	leads, err := s.store.ListForExport(ctx, repository.ListLeadsParams{
		City:         req.City,
		PropertyType: req.PropertyType,
		Status:       req.Status,
		Timeline:     req.Timeline,
		Search:       req.Search,
	})
	if err != nil {
		return nil, err
	}

	records := make([][]string, 0, len(leads))
	for _, lead := range leads {
		records = append(records, exportRecord(lead))
	}
	return records, nil
}

func exportRecord(lead repository.Lead) []string {
	return []string{
		lead.FullName,
		stringOrEmpty(lead.Email),
		lead.Phone,
		lead.City,
		lead.PropertyType,
		stringOrEmpty(lead.BHK),
		lead.Purpose,
		budgetString(lead.BudgetMin),
		budgetString(lead.BudgetMax),
		lead.Timeline,
		lead.Source,
		stringOrEmpty(lead.Notes),
		schema.JoinTags(lead.Tags),
		lead.Status,
		lead.CreatedAt.Format(time.RFC3339),
		lead.UpdatedAt.Format(time.RFC3339),
	}
}

func stringOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func budgetString(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}
