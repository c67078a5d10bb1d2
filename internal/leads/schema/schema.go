// Package schema is the constraint schema for buyer lead records. It checks
// candidate records (full, partial, bulk-import, and filter variants) against
// the domain rules and reports violations as structured field errors instead
// of raised errors.
package schema

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"buyerlead_backend/internal/leads/transport"
	"buyerlead_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

const (
	// DefaultPage and DefaultLimit apply when the filter variant receives
	// missing or unusable pagination inputs.
	DefaultPage  = 1
	DefaultLimit = 10
	// MaxLimit caps the page size of any filtered read.
	MaxLimit = 100

	// DefaultSortBy and DefaultSortOrder apply when the requested sort is
	// absent or not allow-listed.
	DefaultSortBy    = "updatedAt"
	DefaultSortOrder = "desc"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)

// sortColumns is the allow-list of sortable columns. Anything else falls back
// to the default rather than erroring.
var sortColumns = map[string]struct{}{
	"updatedAt": {},
	"fullName":  {},
	"createdAt": {},
}

// jsonFieldNames maps struct field names to the external field paths reported
// in violations.
var jsonFieldNames = map[string]string{
	"FullName":     "fullName",
	"Email":        "email",
	"Phone":        "phone",
	"City":         "city",
	"PropertyType": "propertyType",
	"BHK":          "bhk",
	"Purpose":      "purpose",
	"BudgetMin":    "budgetMin",
	"BudgetMax":    "budgetMax",
	"Timeline":     "timeline",
	"Source":       "source",
	"Status":       "status",
	"Notes":        "notes",
	"Tags":         "tags",
}

// Schema validates lead payload variants.
type Schema struct {
	val *validator.Validator
}

// New creates a Schema backed by the shared validator instance.
func New(val *validator.Validator) *Schema {
	return &Schema{val: val}
}

// ValidateCreate checks a full candidate record. The request is normalized in
// place (trimmed strings, defaulted status); the returned slice is empty when
// the candidate satisfies every rule.
func (s *Schema) ValidateCreate(req *transport.CreateLeadRequest) []transport.FieldError {
	normalizeCreate(req)

	violations := s.tagViolations(*req)

	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		violations = append(violations, transport.FieldError{
			Field: "phone", Message: "phone must be 10 to 15 digits",
		})
	}

	// Cross-field refinements. On a full candidate every participating field
	// is present, so they always run.
	if req.PropertyType.RequiresBHK() && req.BHK == nil {
		violations = append(violations, transport.FieldError{
			Field: "bhk", Message: "bhk is required for Apartment and Villa",
		})
	}
	if !req.PropertyType.RequiresBHK() {
		// I1: bedroom count is ignored for property types that have none.
		req.BHK = nil
	}
	if req.BudgetMin != nil && req.BudgetMax != nil && *req.BudgetMax < *req.BudgetMin {
		violations = append(violations, transport.FieldError{
			Field: "budgetMax", Message: "budgetMax must be greater than or equal to budgetMin",
		})
	}

	return violations
}

// ValidatePatch checks a partial candidate. Rules apply only to supplied
// fields; a cross-field refinement runs only when every participating field
// is present in the candidate (merge-then-validate is the mutation
// controller's job, not this component's).
func (s *Schema) ValidatePatch(req *transport.UpdateLeadRequest) []transport.FieldError {
	normalizePatch(req)

	violations := s.tagViolations(*req)

	// Required fields cannot be cleared: a supplied empty string on them is a
	// violation, not an unset marker. The tag layer skips empty strings on
	// pointer fields, so these are checked here.
	if req.FullName != nil && *req.FullName == "" {
		violations = append(violations, transport.FieldError{
			Field: "fullName", Message: "fullName cannot be cleared",
		})
	}
	if req.Phone != nil && !phonePattern.MatchString(*req.Phone) {
		violations = append(violations, transport.FieldError{
			Field: "phone", Message: "phone must be 10 to 15 digits",
		})
	}
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"city", (*string)(req.City)},
		{"propertyType", (*string)(req.PropertyType)},
		{"purpose", (*string)(req.Purpose)},
		{"timeline", (*string)(req.Timeline)},
		{"source", (*string)(req.Source)},
		{"status", (*string)(req.Status)},
	} {
		if field.value != nil && *field.value == "" {
			violations = append(violations, transport.FieldError{
				Field: field.name, Message: field.name + " cannot be cleared",
			})
		}
	}

	// Refinements, gated on presence of all participants.
	if req.PropertyType != nil && req.BHK != nil {
		if req.PropertyType.RequiresBHK() && *req.BHK == "" {
			violations = append(violations, transport.FieldError{
				Field: "bhk", Message: "bhk is required for Apartment and Villa",
			})
		}
	}
	if req.BudgetMin != nil && req.BudgetMax != nil && *req.BudgetMax < *req.BudgetMin {
		violations = append(violations, transport.FieldError{
			Field: "budgetMax", Message: "budgetMax must be greater than or equal to budgetMin",
		})
	}

	return violations
}

// ValidateImportRow checks one raw bulk-import row: budget fields arrive as
// optional decimal strings, tags as a single comma-separated string. On
// success the coerced create request is returned alongside an empty error
// slice.
func (s *Schema) ValidateImportRow(row transport.LeadCSVRow) (transport.CreateLeadRequest, []transport.FieldError) {
	var violations []transport.FieldError

	req := transport.CreateLeadRequest{
		FullName:     strings.TrimSpace(row.FullName),
		Email:        strings.TrimSpace(row.Email),
		Phone:        strings.TrimSpace(row.Phone),
		City:         transport.City(strings.TrimSpace(row.City)),
		PropertyType: transport.PropertyType(strings.TrimSpace(row.PropertyType)),
		Purpose:      transport.Purpose(strings.TrimSpace(row.Purpose)),
		Timeline:     transport.Timeline(strings.TrimSpace(row.Timeline)),
		Source:       transport.Source(strings.TrimSpace(row.Source)),
		Status:       transport.Status(strings.TrimSpace(row.Status)),
		Notes:        strings.TrimSpace(row.Notes),
		Tags:         SplitTags(row.Tags),
	}

	if bhk := strings.TrimSpace(row.BHK); bhk != "" {
		value := transport.BHK(bhk)
		req.BHK = &value
	}

	if value, fieldErr := parseBudget("budgetMin", row.BudgetMin); fieldErr != nil {
		violations = append(violations, *fieldErr)
	} else {
		req.BudgetMin = value
	}
	if value, fieldErr := parseBudget("budgetMax", row.BudgetMax); fieldErr != nil {
		violations = append(violations, *fieldErr)
	} else {
		req.BudgetMax = value
	}

	violations = append(violations, s.ValidateCreate(&req)...)
	return req, violations
}

// ParseListQuery is the filter variant: it turns raw query parameters into a
// bounded, sorted, paginated filter request. Invalid or empty inputs fall
// back to defaults; this variant never reports violations.
func (s *Schema) ParseListQuery(values url.Values) transport.ListLeadsRequest {
	req := transport.ListLeadsRequest{
		City:         enumFilter(values.Get("city"), "Chandigarh", "Mohali", "Zirakpur", "Panchkula", "Other"),
		PropertyType: enumFilter(values.Get("propertyType"), "Apartment", "Villa", "Plot", "Office", "Retail"),
		Status:       enumFilter(values.Get("status"), "New", "Qualified", "Contacted", "Visited", "Negotiation", "Converted", "Dropped"),
		Timeline:     enumFilter(values.Get("timeline"), "0-3m", "3-6m", ">6m", "Exploring"),
		Search:       strings.TrimSpace(values.Get("search")),
		Page:         DefaultPage,
		Limit:        DefaultLimit,
		SortBy:       DefaultSortBy,
		SortOrder:    DefaultSortOrder,
	}

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page >= 1 {
		req.Page = page
	}
	if limit, err := strconv.Atoi(values.Get("limit")); err == nil && limit >= 1 {
		if limit > MaxLimit {
			limit = MaxLimit
		}
		req.Limit = limit
	}
	if sortBy := values.Get("sortBy"); sortBy != "" {
		if _, ok := sortColumns[sortBy]; ok {
			req.SortBy = sortBy
		}
	}
	if sortOrder := values.Get("sortOrder"); sortOrder == "asc" || sortOrder == "desc" {
		req.SortOrder = sortOrder
	}

	return req
}

// SplitTags turns a comma-separated tag string into a clean slice: tokens are
// trimmed, empties dropped, order preserved.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// JoinTags is the inverse of SplitTags, used by the export surface.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func (s *Schema) tagViolations(candidate interface{}) []transport.FieldError {
	err := s.val.Struct(candidate)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(playground.ValidationErrors)
	if !ok {
		// Shape errors (non-struct input) cannot happen with our DTOs.
		return []transport.FieldError{{Field: "payload", Message: "invalid payload"}}
	}

	violations := make([]transport.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, transport.FieldError{
			Field:   fieldPath(fe),
			Message: violationMessage(fe),
		})
	}
	return violations
}

func fieldPath(fe playground.FieldError) string {
	name := fe.StructField()
	// Tag entries surface as "Tags[2]"; keep the index, map the base.
	if idx := strings.IndexByte(name, '['); idx > 0 {
		if mapped, ok := jsonFieldNames[name[:idx]]; ok {
			return mapped + name[idx:]
		}
	}
	if mapped, ok := jsonFieldNames[name]; ok {
		return mapped
	}
	return name
}

func violationMessage(fe playground.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func parseBudget(field, raw string) (*int64, *transport.FieldError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return nil, &transport.FieldError{Field: field, Message: field + " must be a whole number"}
	}
	return &value, nil
}

func enumFilter(raw string, allowed ...string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	for _, value := range allowed {
		if trimmed == value {
			return value
		}
	}
	// Unknown filter values behave like "no filter" instead of erroring.
	return ""
}

func normalizeCreate(req *transport.CreateLeadRequest) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Notes = strings.TrimSpace(req.Notes)
	req.Tags = trimTags(req.Tags)
	if req.Status == "" {
		req.Status = transport.StatusNew
	}
}

func normalizePatch(req *transport.UpdateLeadRequest) {
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		req.FullName = &trimmed
	}
	if req.Email != nil {
		trimmed := strings.TrimSpace(*req.Email)
		req.Email = &trimmed
	}
	if req.Phone != nil {
		trimmed := strings.TrimSpace(*req.Phone)
		req.Phone = &trimmed
	}
	if req.Notes != nil {
		trimmed := strings.TrimSpace(*req.Notes)
		req.Notes = &trimmed
	}
	req.Tags = trimTags(req.Tags)
}

func trimTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
