package service

import (
	"buyerlead_backend/internal/leads/repository"
	"buyerlead_backend/internal/leads/transport"
)

// computeDiff compares the current record against the merged update state and
// returns the per-field transitions. An empty diff means the update is a
// no-op. Tags are compared as sets: reordering the same tags is not a change.
func computeDiff(current repository.Lead, merged repository.UpdateLeadParams) map[string]transport.FieldChange {
	diff := make(map[string]transport.FieldChange)

	if current.FullName != merged.FullName {
		diff["fullName"] = transport.FieldChange{From: current.FullName, To: merged.FullName}
	}
	if !equalStringPtr(current.Email, merged.Email) {
		diff["email"] = transport.FieldChange{From: ptrValue(current.Email), To: ptrValue(merged.Email)}
	}
	if current.Phone != merged.Phone {
		diff["phone"] = transport.FieldChange{From: current.Phone, To: merged.Phone}
	}
	if current.City != merged.City {
		diff["city"] = transport.FieldChange{From: current.City, To: merged.City}
	}
	if current.PropertyType != merged.PropertyType {
		diff["propertyType"] = transport.FieldChange{From: current.PropertyType, To: merged.PropertyType}
	}
	if !equalStringPtr(current.BHK, merged.BHK) {
		diff["bhk"] = transport.FieldChange{From: ptrValue(current.BHK), To: ptrValue(merged.BHK)}
	}
	if current.Purpose != merged.Purpose {
		diff["purpose"] = transport.FieldChange{From: current.Purpose, To: merged.Purpose}
	}
	if !equalInt64Ptr(current.BudgetMin, merged.BudgetMin) {
		diff["budgetMin"] = transport.FieldChange{From: int64PtrValue(current.BudgetMin), To: int64PtrValue(merged.BudgetMin)}
	}
	if !equalInt64Ptr(current.BudgetMax, merged.BudgetMax) {
		diff["budgetMax"] = transport.FieldChange{From: int64PtrValue(current.BudgetMax), To: int64PtrValue(merged.BudgetMax)}
	}
	if current.Timeline != merged.Timeline {
		diff["timeline"] = transport.FieldChange{From: current.Timeline, To: merged.Timeline}
	}
	if current.Source != merged.Source {
		diff["source"] = transport.FieldChange{From: current.Source, To: merged.Source}
	}
	if current.Status != merged.Status {
		diff["status"] = transport.FieldChange{From: current.Status, To: merged.Status}
	}
	if !equalStringPtr(current.Notes, merged.Notes) {
		diff["notes"] = transport.FieldChange{From: ptrValue(current.Notes), To: ptrValue(merged.Notes)}
	}
	if !equalTagSets(current.Tags, merged.Tags) {
		diff["tags"] = transport.FieldChange{From: current.Tags, To: merged.Tags}
	}

	return diff
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTagSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, tag := range a {
		seen[tag]++
	}
	for _, tag := range b {
		if seen[tag] == 0 {
			return false
		}
		seen[tag]--
	}
	return true
}

func ptrValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func int64PtrValue(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
