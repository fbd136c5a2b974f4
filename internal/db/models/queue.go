package models

import (
	"fmt"
	"time"
)

// Harvest lifecycle states for a queue entry. The wire value is the
// numeric string; the label is what humans see in status reports.
const (
	QueueReady          = "1"
	QueueHarvesting     = "2"
	QueueCompleted      = "3"
	QueueErrorTooLarge  = "4"
	QueueErrorVerify    = "5"
	QueueErrorTransfer  = "6"
	QueueErrorDuplicate = "7"
	QueueErrorUnknown   = "8"
	QueueHeld           = "9"
)

var QueueStatusLabels = map[string]string{
	QueueReady:          "Ready to Harvest",
	QueueHarvesting:     "Currently Harvesting",
	QueueCompleted:      "Completed",
	QueueErrorTooLarge:  "Error: Digital Object Too Large",
	QueueErrorVerify:    "Error: Bag Verification Failed",
	QueueErrorTransfer:  "Error: Transfer Error",
	QueueErrorDuplicate: "Error: Duplicate Entry",
	QueueErrorUnknown:   "Error: Unknown Error",
	QueueHeld:           "Held",
}

// QueueEntry is a digital object enqueued for replication harvest.
// QueuePosition drives FIFO ordering; assignment happens inside a
// transaction so concurrent creates never collide.
type QueueEntry struct {
	ID            uint   `gorm:"primaryKey"`
	Ark           string `gorm:"uniqueIndex;size:255;not null"`
	Bytes         int64  `gorm:"index"`
	Files         int
	URLList       string `gorm:"type:text"`
	Status        string `gorm:"size:10"`
	HarvestStart  *time.Time
	HarvestEnd    *time.Time
	QueuePosition int
}

func (q *QueueEntry) Oxum() string {
	return fmt.Sprintf("%d.%d", q.Bytes, q.Files)
}
