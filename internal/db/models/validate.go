package models

import "time"

const (
	VerifiedUnverified = "Unverified"
	VerifiedPassed     = "Passed"
	VerifiedFailed     = "Failed"
)

// VerifiedSentinel marks a record that has never been verified or
// prioritized. Using a fixed past date keeps "oldest first" ordering
// honest for fresh records.
var VerifiedSentinel = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Validate is a periodic fixity-validation record for one identifier.
// Created once, mutated in place as verifications complete, deleted only
// by explicit administrative action.
type Validate struct {
	ID                 uint      `gorm:"primaryKey"`
	Identifier         string    `gorm:"uniqueIndex;size:255;not null"`
	Added              time.Time `gorm:"autoCreateTime"`
	LastVerified       time.Time
	LastVerifiedStatus string    `gorm:"size:25;not null;default:'Unverified'"`
	PriorityChangeDate time.Time
	Priority           int `gorm:"not null;default:0"`
	Server             string `gorm:"size:255"`
}
