package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FindingUpdate enumerates exactly the mutable fields of a Finding.
// Updates go through ApplyTo rather than any generic field-copying
// mechanism, so the immutability of hash and location fields is enforced
// by the type system instead of by convention.
type FindingUpdate struct {
	Status         *FindingStatus `json:"status,omitempty"`
	ResolutionNote *string        `json:"resolution_note,omitempty"`
	FixedInCommit  *string        `json:"fixed_in_commit,omitempty"`
	ResolvedBy     *uuid.UUID     `json:"-"`
}

// Validate checks the update against the closed vocabularies.
func (u *FindingUpdate) Validate() error {
	if u.Status != nil && !ValidFindingStatus(*u.Status) {
		return fmt.Errorf("invalid finding status %q", *u.Status)
	}
	if u.ResolutionNote != nil && len(*u.ResolutionNote) > 2000 {
		return fmt.Errorf("resolution note exceeds 2000 characters")
	}
	if u.FixedInCommit != nil && len(*u.FixedInCommit) > 40 {
		return fmt.Errorf("fixed_in_commit exceeds 40 characters")
	}
	return nil
}

// IsEmpty reports whether the update carries no changes.
func (u *FindingUpdate) IsEmpty() bool {
	return u.Status == nil && u.ResolutionNote == nil && u.FixedInCommit == nil
}

// ApplyTo applies the update to a Finding through named setters. Moving a
// finding out of the active status stamps ResolvedAt/ResolvedBy the first
// time it happens.
func (u *FindingUpdate) ApplyTo(f *Finding, now time.Time) {
	if u.Status != nil {
		f.Status = *u.Status
		if *u.Status != FindingStatusActive && f.ResolvedAt == nil {
			t := now
			f.ResolvedAt = &t
			f.ResolvedBy = u.ResolvedBy
		}
		if *u.Status == FindingStatusActive {
			f.ResolvedAt = nil
			f.ResolvedBy = nil
		}
	}
	if u.ResolutionNote != nil {
		f.ResolutionNote = u.ResolutionNote
	}
	if u.FixedInCommit != nil {
		f.FixedInCommit = u.FixedInCommit
	}
	f.UpdatedAt = now
}
