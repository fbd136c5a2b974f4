package models

import "time"

type NodeStatus string

const (
	NodeActive   NodeStatus = "active"
	NodeInactive NodeStatus = "inactive"
)

// Node is a storage node holding bag payloads. Nodes stand alone; no
// other record references them.
type Node struct {
	ID           uint       `gorm:"primaryKey"`
	NodeName     string     `gorm:"uniqueIndex;size:255;not null"`
	NodeURL      string     `gorm:"type:text"`
	NodePath     string     `gorm:"size:255"`
	NodeCapacity int64
	NodeSize     int64
	LastChecked  time.Time
	Status       NodeStatus `gorm:"size:16;not null;default:'active'"`
}
