package schema

import (
	"net/url"
	"testing"

	"buyerlead_backend/internal/leads/transport"
	"buyerlead_backend/platform/validator"
)

func newTestSchema(t *testing.T) *Schema {
	t.Helper()
	return New(validator.New())
}

func validCreateRequest() transport.CreateLeadRequest {
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
	}
}

func hasFieldError(errs []transport.FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidateCreate_ValidRecord(t *testing.T) {
	s := newTestSchema(t)
	req := validCreateRequest()

	if errs := s.ValidateCreate(&req); len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
	if req.Status != transport.StatusNew {
		t.Fatalf("expected status defaulted to New, got %s", req.Status)
	}
}

func TestValidateCreate_RequiredFields(t *testing.T) {
	s := newTestSchema(t)
	req := transport.CreateLeadRequest{}

	errs := s.ValidateCreate(&req)
	for _, field := range []string{"fullName", "phone", "city", "propertyType", "purpose", "timeline", "source"} {
		if !hasFieldError(errs, field) {
			t.Fatalf("expected violation on %s, got %v", field, errs)
		}
	}
}

func TestValidateCreate_FullNameLength(t *testing.T) {
	s := newTestSchema(t)

	req := validCreateRequest()
	req.FullName = "A"
	if errs := s.ValidateCreate(&req); !hasFieldError(errs, "fullName") {
		t.Fatalf("expected fullName violation for 1 char, got %v", errs)
	}

	req = validCreateRequest()
	long := make([]byte, 81)
	for i := range long {
		long[i] = 'x'
	}
	req.FullName = string(long)
	if errs := s.ValidateCreate(&req); !hasFieldError(errs, "fullName") {
		t.Fatalf("expected fullName violation for 81 chars, got %v", errs)
	}
}

func TestValidateCreate_PhoneDigits(t *testing.T) {
	s := newTestSchema(t)

	for _, phone := range []string{"123456789", "1234567890123456", "98765abc10"} {
		req := validCreateRequest()
		req.Phone = phone
		if errs := s.ValidateCreate(&req); !hasFieldError(errs, "phone") {
			t.Fatalf("expected phone violation for %q, got %v", phone, errs)
		}
	}

	for _, phone := range []string{"1234567890", "123456789012345"} {
		req := validCreateRequest()
		req.Phone = phone
		if errs := s.ValidateCreate(&req); len(errs) != 0 {
			t.Fatalf("expected %q to be a valid phone, got %v", phone, errs)
		}
	}
}

func TestValidateCreate_BHKRequiredForApartmentAndVilla(t *testing.T) {
	s := newTestSchema(t)

	for _, pt := range []transport.PropertyType{transport.PropertyTypeApartment, transport.PropertyTypeVilla} {
		req := validCreateRequest()
		req.PropertyType = pt
		req.BHK = nil
		if errs := s.ValidateCreate(&req); !hasFieldError(errs, "bhk") {
			t.Fatalf("expected bhk violation for %s without bhk, got %v", pt, errs)
		}
	}
}

func TestValidateCreate_BHKDroppedForNonResidential(t *testing.T) {
	s := newTestSchema(t)

	req := validCreateRequest()
	req.PropertyType = transport.PropertyTypePlot
	bhk := transport.BHKThree
	req.BHK = &bhk

	if errs := s.ValidateCreate(&req); len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
	if req.BHK != nil {
		t.Fatalf("expected bhk cleared for Plot, got %s", *req.BHK)
	}
}

func TestValidateCreate_BudgetOrdering(t *testing.T) {
	s := newTestSchema(t)

	min := int64(5000000)
	max := int64(4000000)
	req := validCreateRequest()
	req.BudgetMin = &min
	req.BudgetMax = &max
	if errs := s.ValidateCreate(&req); !hasFieldError(errs, "budgetMax") {
		t.Fatalf("expected budgetMax violation, got %v", errs)
	}

	// Equal bounds are allowed.
	max = min
	req = validCreateRequest()
	req.BudgetMin = &min
	req.BudgetMax = &max
	if errs := s.ValidateCreate(&req); len(errs) != 0 {
		t.Fatalf("expected equal bounds to pass, got %v", errs)
	}

	// A single bound needs no counterpart.
	req = validCreateRequest()
	req.BudgetMax = &max
	if errs := s.ValidateCreate(&req); len(errs) != 0 {
		t.Fatalf("expected single bound to pass, got %v", errs)
	}
}

func TestValidateCreate_EnumAndEmail(t *testing.T) {
	s := newTestSchema(t)

	req := validCreateRequest()
	req.City = "Ludhiana"
	if errs := s.ValidateCreate(&req); !hasFieldError(errs, "city") {
		t.Fatalf("expected city violation, got %v", errs)
	}

	req = validCreateRequest()
	req.Email = "not-an-email"
	if errs := s.ValidateCreate(&req); !hasFieldError(errs, "email") {
		t.Fatalf("expected email violation, got %v", errs)
	}

	// Optional email may be absent.
	req = validCreateRequest()
	req.Email = ""
	if errs := s.ValidateCreate(&req); len(errs) != 0 {
		t.Fatalf("expected empty email to pass, got %v", errs)
	}
}

func TestValidateCreate_NotesLength(t *testing.T) {
	s := newTestSchema(t)

	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'n'
	}
	req := validCreateRequest()
	req.Notes = string(long)
	if errs := s.ValidateCreate(&req); !hasFieldError(errs, "notes") {
		t.Fatalf("expected notes violation, got %v", errs)
	}
}

func TestValidatePatch_SuppliedFieldsOnly(t *testing.T) {
	s := newTestSchema(t)

	// Empty patch is schema-valid; rejecting it is the mutation layer's call.
	if errs := s.ValidatePatch(&transport.UpdateLeadRequest{}); len(errs) != 0 {
		t.Fatalf("expected empty patch to pass schema, got %v", errs)
	}

	bad := "B"
	if errs := s.ValidatePatch(&transport.UpdateLeadRequest{FullName: &bad}); !hasFieldError(errs, "fullName") {
		t.Fatalf("expected fullName violation, got %v", errs)
	}
}

func TestValidatePatch_ClearMarkers(t *testing.T) {
	s := newTestSchema(t)

	// Empty string clears optional fields.
	empty := ""
	req := transport.UpdateLeadRequest{Email: &empty, Notes: &empty}
	if errs := s.ValidatePatch(&req); len(errs) != 0 {
		t.Fatalf("expected clear markers to pass, got %v", errs)
	}

	// Required fields cannot be cleared.
	for _, patch := range []transport.UpdateLeadRequest{
		{FullName: &empty},
		{Phone: &empty},
		{City: func() *transport.City { c := transport.City(""); return &c }()},
		{Status: func() *transport.Status { s := transport.Status(""); return &s }()},
	} {
		if errs := s.ValidatePatch(&patch); len(errs) == 0 {
			t.Fatalf("expected violation clearing required field, patch %+v", patch)
		}
	}
}

func TestValidatePatch_RefinementSkippedWhenParticipantAbsent(t *testing.T) {
	s := newTestSchema(t)

	// budgetMax alone: ordering refinement must not run.
	max := int64(100)
	if errs := s.ValidatePatch(&transport.UpdateLeadRequest{BudgetMax: &max}); len(errs) != 0 {
		t.Fatalf("expected lone budgetMax to pass, got %v", errs)
	}

	// Both present and inverted: refinement runs.
	min := int64(200)
	errs := s.ValidatePatch(&transport.UpdateLeadRequest{BudgetMin: &min, BudgetMax: &max})
	if !hasFieldError(errs, "budgetMax") {
		t.Fatalf("expected budgetMax violation, got %v", errs)
	}

	// propertyType alone does not trigger the bhk refinement.
	pt := transport.PropertyTypeApartment
	if errs := s.ValidatePatch(&transport.UpdateLeadRequest{PropertyType: &pt}); len(errs) != 0 {
		t.Fatalf("expected lone propertyType to pass, got %v", errs)
	}
}

func TestValidateImportRow_CoercesAndValidates(t *testing.T) {
	s := newTestSchema(t)

	row := transport.LeadCSVRow{
		FullName:     "  Ravi Kumar  ",
		Phone:        "9876543210",
		City:         "Chandigarh",
		PropertyType: "Villa",
		BHK:          "3",
		Purpose:      "Buy",
		BudgetMin:    "4500000",
		BudgetMax:    "6000000",
		Timeline:     "3-6m",
		Source:       "Referral",
		Tags:         " hot , nri ,, ",
	}

	req, errs := s.ValidateImportRow(row)
	if len(errs) != 0 {
		t.Fatalf("expected valid row, got %v", errs)
	}
	if req.FullName != "Ravi Kumar" {
		t.Fatalf("expected trimmed name, got %q", req.FullName)
	}
	if req.BudgetMin == nil || *req.BudgetMin != 4500000 {
		t.Fatalf("expected budgetMin 4500000, got %v", req.BudgetMin)
	}
	if len(req.Tags) != 2 || req.Tags[0] != "hot" || req.Tags[1] != "nri" {
		t.Fatalf("expected tags [hot nri], got %v", req.Tags)
	}
	if req.Status != transport.StatusNew {
		t.Fatalf("expected defaulted status New, got %s", req.Status)
	}
}

func TestValidateImportRow_BadBudgetString(t *testing.T) {
	s := newTestSchema(t)

	row := transport.LeadCSVRow{
		FullName:     "Ravi Kumar",
		Phone:        "9876543210",
		City:         "Chandigarh",
		PropertyType: "Plot",
		Purpose:      "Buy",
		BudgetMin:    "forty lakh",
		Timeline:     "Exploring",
		Source:       "Call",
	}

	_, errs := s.ValidateImportRow(row)
	if !hasFieldError(errs, "budgetMin") {
		t.Fatalf("expected budgetMin violation, got %v", errs)
	}
}

func TestParseListQuery_Defaults(t *testing.T) {
	s := newTestSchema(t)

	req := s.ParseListQuery(url.Values{})
	if req.Page != 1 || req.Limit != 10 {
		t.Fatalf("expected page=1 limit=10, got %d %d", req.Page, req.Limit)
	}
	if req.SortBy != "updatedAt" || req.SortOrder != "desc" {
		t.Fatalf("expected updatedAt desc, got %s %s", req.SortBy, req.SortOrder)
	}
}

func TestParseListQuery_FallbacksNeverError(t *testing.T) {
	s := newTestSchema(t)

	req := s.ParseListQuery(url.Values{
		"page":      {"0"},
		"limit":     {"9999"},
		"sortBy":    {"phone"},
		"sortOrder": {"sideways"},
		"city":      {"Ludhiana"},
		"status":    {"New"},
	})
	if req.Page != 1 {
		t.Fatalf("expected page fallback 1, got %d", req.Page)
	}
	if req.Limit != MaxLimit {
		t.Fatalf("expected limit clamped to %d, got %d", MaxLimit, req.Limit)
	}
	if req.SortBy != "updatedAt" || req.SortOrder != "desc" {
		t.Fatalf("expected sort fallback, got %s %s", req.SortBy, req.SortOrder)
	}
	if req.City != "" {
		t.Fatalf("expected unknown city filter dropped, got %q", req.City)
	}
	if req.Status != "New" {
		t.Fatalf("expected status filter kept, got %q", req.Status)
	}
}

func TestSplitJoinTags(t *testing.T) {
	tags := SplitTags("a, b ,c")
	if len(tags) != 3 || tags[0] != "a" || tags[2] != "c" {
		t.Fatalf("unexpected tags %v", tags)
	}
	if SplitTags("  ,, ") != nil {
		t.Fatalf("expected nil for blank input")
	}
	if JoinTags(tags) != "a,b,c" {
		t.Fatalf("unexpected join %q", JoinTags(tags))
	}
}
