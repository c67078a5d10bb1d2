package transport

import (
	"time"

	"github.com/google/uuid"
)

// Enum values
type City string

const (
	CityChandigarh City = "Chandigarh"
	CityMohali     City = "Mohali"
	CityZirakpur   City = "Zirakpur"
	CityPanchkula  City = "Panchkula"
	CityOther      City = "Other"
)

type PropertyType string

const (
	PropertyTypeApartment PropertyType = "Apartment"
	PropertyTypeVilla     PropertyType = "Villa"
	PropertyTypePlot      PropertyType = "Plot"
	PropertyTypeOffice    PropertyType = "Office"
	PropertyTypeRetail    PropertyType = "Retail"
)

// RequiresBHK reports whether the property type mandates a bedroom-count class.
func (p PropertyType) RequiresBHK() bool {
	return p == PropertyTypeApartment || p == PropertyTypeVilla
}

type BHK string

const (
	BHKOne    BHK = "1"
	BHKTwo    BHK = "2"
	BHKThree  BHK = "3"
	BHKFour   BHK = "4"
	BHKStudio BHK = "Studio"
)

type Purpose string

const (
	PurposeBuy  Purpose = "Buy"
	PurposeRent Purpose = "Rent"
)

type Timeline string

const (
	TimelineZeroToThree Timeline = "0-3m"
	TimelineThreeToSix  Timeline = "3-6m"
	TimelineOverSix     Timeline = ">6m"
	TimelineExploring   Timeline = "Exploring"
)

type Source string

const (
	SourceWebsite  Source = "Website"
	SourceReferral Source = "Referral"
	SourceWalkIn   Source = "Walk-in"
	SourceCall     Source = "Call"
	SourceOther    Source = "Other"
)

type Status string

const (
	StatusNew         Status = "New"
	StatusQualified   Status = "Qualified"
	StatusContacted   Status = "Contacted"
	StatusVisited     Status = "Visited"
	StatusNegotiation Status = "Negotiation"
	StatusConverted   Status = "Converted"
	StatusDropped     Status = "Dropped"
)

// FieldError is a single structured validation violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldChange records one field's transition in an audit trail diff.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Request DTOs
type CreateLeadRequest struct {
	FullName     string       `json:"fullName" validate:"required,min=2,max=80"`
	Email        string       `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string       `json:"phone" validate:"required"`
	City         City         `json:"city" validate:"required,oneof=Chandigarh Mohali Zirakpur Panchkula Other"`
	PropertyType PropertyType `json:"propertyType" validate:"required,oneof=Apartment Villa Plot Office Retail"`
	BHK          *BHK         `json:"bhk,omitempty" validate:"omitempty,oneof=1 2 3 4 Studio"`
	Purpose      Purpose      `json:"purpose" validate:"required,oneof=Buy Rent"`
	BudgetMin    *int64       `json:"budgetMin,omitempty" validate:"omitempty,min=0"`
	BudgetMax    *int64       `json:"budgetMax,omitempty" validate:"omitempty,min=0"`
	Timeline     Timeline     `json:"timeline" validate:"required,oneof=0-3m 3-6m >6m Exploring"`
	Source       Source       `json:"source" validate:"required,oneof=Website Referral Walk-in Call Other"`
	Status       Status       `json:"status,omitempty" validate:"omitempty,oneof=New Qualified Contacted Visited Negotiation Converted Dropped"`
	Notes        string       `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Tags         []string     `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=40"`
}

// UpdateLeadRequest is the partial-update payload. Pointer fields distinguish
// "absent" (nil) from "supplied"; a supplied empty string on an optional field
// clears it. UpdatedAt, when present, is the optimistic concurrency token the
// caller last observed.
type UpdateLeadRequest struct {
	FullName     *string       `json:"fullName,omitempty" validate:"omitempty,min=2,max=80"`
	Email        *string       `json:"email,omitempty" validate:"omitempty,email"`
	Phone        *string       `json:"phone,omitempty"`
	City         *City         `json:"city,omitempty" validate:"omitempty,oneof=Chandigarh Mohali Zirakpur Panchkula Other"`
	PropertyType *PropertyType `json:"propertyType,omitempty" validate:"omitempty,oneof=Apartment Villa Plot Office Retail"`
	BHK          *BHK          `json:"bhk,omitempty" validate:"omitempty,oneof=1 2 3 4 Studio"`
	Purpose      *Purpose      `json:"purpose,omitempty" validate:"omitempty,oneof=Buy Rent"`
	BudgetMin    *int64        `json:"budgetMin,omitempty" validate:"omitempty,min=0"`
	BudgetMax    *int64        `json:"budgetMax,omitempty" validate:"omitempty,min=0"`
	Timeline     *Timeline     `json:"timeline,omitempty" validate:"omitempty,oneof=0-3m 3-6m >6m Exploring"`
	Source       *Source       `json:"source,omitempty" validate:"omitempty,oneof=Website Referral Walk-in Call Other"`
	Status       *Status       `json:"status,omitempty" validate:"omitempty,oneof=New Qualified Contacted Visited Negotiation Converted Dropped"`
	Notes        *string       `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Tags         []string      `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=40"`
	UpdatedAt    *time.Time    `json:"updatedAt,omitempty"`
}

// LeadCSVRow is one raw bulk-import row as it arrives from the CSV surface.
// Budget fields are decimal strings or empty; Tags is one comma-separated
// string.
type LeadCSVRow struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	City         string `json:"city"`
	PropertyType string `json:"propertyType"`
	BHK          string `json:"bhk"`
	Purpose      string `json:"purpose"`
	BudgetMin    string `json:"budgetMin"`
	BudgetMax    string `json:"budgetMax"`
	Timeline     string `json:"timeline"`
	Source       string `json:"source"`
	Notes        string `json:"notes"`
	Tags         string `json:"tags"`
	Status       string `json:"status"`
}

// ListLeadsRequest is the validated filter object produced by the schema's
// filter variant. Enum filters are empty when no filter applies.
type ListLeadsRequest struct {
	City         string
	PropertyType string
	Status       string
	Timeline     string
	Search       string
	Page         int
	Limit        int
	SortBy       string
	SortOrder    string
}

// Response DTOs
type LeadResponse struct {
	ID           uuid.UUID    `json:"id"`
	FullName     string       `json:"fullName"`
	Email        *string      `json:"email,omitempty"`
	Phone        string       `json:"phone"`
	City         City         `json:"city"`
	PropertyType PropertyType `json:"propertyType"`
	BHK          *BHK         `json:"bhk,omitempty"`
	Purpose      Purpose      `json:"purpose"`
	BudgetMin    *int64       `json:"budgetMin,omitempty"`
	BudgetMax    *int64       `json:"budgetMax,omitempty"`
	Timeline     Timeline     `json:"timeline"`
	Source       Source       `json:"source"`
	Status       Status       `json:"status"`
	Notes        *string      `json:"notes,omitempty"`
	Tags         []string     `json:"tags"`
	OwnerID      uuid.UUID    `json:"ownerId"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
	HasNext    bool           `json:"hasNext"`
	HasPrev    bool           `json:"hasPrev"`
}

// ImportRowError reports the validation failures of one rejected import row.
// Row numbers are 1-indexed by position in the submitted batch.
type ImportRowError struct {
	Row    int          `json:"row"`
	Errors []FieldError `json:"errors"`
}

// ImportResult is the outcome of a bulk import: either every row committed,
// or every row was rejected and Rejected carries the per-row diagnostics.
type ImportResult struct {
	Committed  []LeadResponse   `json:"committed,omitempty"`
	Rejected   []ImportRowError `json:"rejected,omitempty"`
	ValidCount int              `json:"validCount"`
	TotalCount int              `json:"totalCount"`
}

// HistoryEntryResponse is one audit trail entry for a lead.
type HistoryEntryResponse struct {
	ID        uuid.UUID      `json:"id"`
	LeadID    uuid.UUID      `json:"leadId"`
	ActorID   uuid.UUID      `json:"actorId"`
	Action    string         `json:"action"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
