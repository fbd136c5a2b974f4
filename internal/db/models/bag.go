package models

import (
	"fmt"
	"time"
)

// Bag is a BagIt-style content package tracked by the metadata store.
// Only metadata lives here; payload bytes are held by external storage
// nodes. The ARK name is the primary key and never changes except through
// an explicit rename on update.
type Bag struct {
	Name               string    `gorm:"primaryKey;size:255"`
	Files              int       `gorm:"not null"`
	Size               int64     `gorm:"not null"`
	BagitVersion       string    `gorm:"size:10"`
	LastVerifiedDate   time.Time
	LastVerifiedStatus string    `gorm:"size:25"`
	BaggingDate        time.Time `gorm:"index"`
}

// Oxum is BagIt's "octetstream sum": payload bytes and file count.
func (b *Bag) Oxum() string {
	return fmt.Sprintf("%d.%d", b.Size, b.Files)
}

// BagInfo is a single bag-info.txt field belonging to a bag. Field names
// repeat, so there is no uniqueness constraint. The full set is replaced
// whenever the parent bag is updated.
type BagInfo struct {
	ID        uint   `gorm:"primaryKey"`
	BagName   string `gorm:"size:255;index;not null"`
	FieldName string `gorm:"size:255;index"`
	FieldBody string `gorm:"type:text"`
}

// ExternalIdentifier links an external identifier value to a bag. Values
// are indexed but not unique across bags; lookups de-duplicate at query
// time. Rows live and die with the parent bag's info fields.
type ExternalIdentifier struct {
	ID      uint   `gorm:"primaryKey"`
	BagName string `gorm:"size:255;index;not null"`
	Value   string `gorm:"size:250;index"`
}
