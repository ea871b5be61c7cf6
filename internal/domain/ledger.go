// Package domain also defines the one persistence model the portal keeps
// locally: the ledger of checkout sessions it has seen. The type is
// mapped with GORM onto the portal's SQLite database.
package domain

import "time"

// Consumed-session lifecycle values.
const (
	// SessionPending marks a session recorded before the payment redirect.
	SessionPending = "pending"
	// SessionConsumed marks a session whose server creation has been issued.
	SessionConsumed = "consumed"
	// SessionAborted marks a session that terminated without provisioning.
	SessionAborted = "aborted"
)

// ConsumedSession records a checkout session the portal initiated or
// resolved. It carries the plan identifier across the payment redirect
// (the redirect destroys all in-memory state, so the plan reference must
// survive out-of-process) and suppresses duplicate server creation when a
// success URL is revisited.
type ConsumedSession struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	SessionID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_session_id"`
	PlanID    string    `gorm:"type:TEXT NOT NULL"`
	ServerID  string    `gorm:"type:TEXT"`
	Status    string    `gorm:"type:TEXT NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (ConsumedSession) TableName() string { return "consumed_sessions" }
