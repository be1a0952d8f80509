package ports

import (
	"fmt"

	"github.com/google/uuid"

	"portwatch/internal/classify"
)

// NotRunningName is the placeholder process name used for records that
// represent a favorite or watched port with no live listener behind it.
const NotRunningName = "Not running"

// Record is one observed (port, pid) pair at scan time. Records are built
// fresh on every scan and never mutated afterwards; a new scan discards the
// previous generation wholesale.
type Record struct {
	ID          string            `json:"id"`
	Port        uint16            `json:"port"`
	PID         int32             `json:"pid"`
	ProcessName string            `json:"processName"`
	Address     string            `json:"address"`
	User        string            `json:"user"`
	Command     string            `json:"command"`
	IsActive    bool              `json:"isActive"`
	Category    classify.Category `json:"category"`
}

// Key is the semantic identity of a record for dedup and liveness purposes.
// The synthetic ID only distinguishes UI rows.
type Key struct {
	Port uint16
	PID  int32
}

// NewRecord builds an active record for an observed listener, deriving the
// classification category from the process name.
func NewRecord(port uint16, pid int32, name, address, user, command string) Record {
	return Record{
		ID:          uuid.New().String(),
		Port:        port,
		PID:         pid,
		ProcessName: name,
		Address:     address,
		User:        user,
		Command:     command,
		IsActive:    true,
		Category:    classify.Classify(name),
	}
}

// NewInactiveRecord builds the placeholder shown for a favorite or watched
// port that is not currently listening. The port number is the only
// meaningful field.
func NewInactiveRecord(port uint16) Record {
	return Record{
		ID:          uuid.New().String(),
		Port:        port,
		PID:         0,
		ProcessName: NotRunningName,
		IsActive:    false,
		Category:    classify.CategoryOther,
	}
}

// Key returns the record's semantic identity.
func (r Record) Key() Key {
	return Key{Port: r.Port, PID: r.PID}
}

// DisplayPort is the port formatted for presentation.
func (r Record) DisplayPort() string {
	return fmt.Sprintf("%d", r.Port)
}

// WatchedPort is a user-designated port whose liveness transitions trigger
// notifications.
type WatchedPort struct {
	ID            string `json:"id"`
	Port          uint16 `json:"port"`
	NotifyOnStart bool   `json:"notifyOnStart"`
	NotifyOnStop  bool   `json:"notifyOnStop"`
}

// NewWatchedPort builds a watch entry with both transitions enabled.
func NewWatchedPort(port uint16) WatchedPort {
	return WatchedPort{
		ID:            uuid.New().String(),
		Port:          port,
		NotifyOnStart: true,
		NotifyOnStop:  true,
	}
}
