package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caffeinepub/doom-hosting/internal/domain"
)

// ErrDuplicate indicates a ledger row already exists for the session id.
var ErrDuplicate = errors.New("repo: duplicate session")

// SessionLedger persists which checkout sessions the portal has initiated
// and resolved. It carries the plan reference across the payment redirect
// and suppresses duplicate provisioning when a success URL is revisited
// from a fresh process.
type SessionLedger struct {
	DB *gorm.DB
}

// NewSessionLedger constructs a ledger over db.
func NewSessionLedger(db *gorm.DB) *SessionLedger {
	return &SessionLedger{DB: db}
}

// Begin records a pending session before the payment redirect. A repeat
// for the same session id returns ErrDuplicate.
func (l *SessionLedger) Begin(ctx context.Context, sessionID, planID string) error {
	rec := &domain.ConsumedSession{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		PlanID:    planID,
		Status:    domain.SessionPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.DB.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often reports UNIQUE violations as plain text.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Lookup returns the ledger row for sessionID, or nil when unknown.
func (l *SessionLedger) Lookup(ctx context.Context, sessionID string) (*domain.ConsumedSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, nil
	}
	var rec domain.ConsumedSession
	err := l.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Consume marks sessionID as consumed, recording the provisioned server
// when one was created. Unknown sessions are upserted so a resolution
// reached without a pending row (e.g. the ledger write before the
// redirect failed) is still remembered.
func (l *SessionLedger) Consume(ctx context.Context, sessionID, planID, serverID string) error {
	res := l.DB.WithContext(ctx).
		Model(&domain.ConsumedSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{"status": domain.SessionConsumed, "server_id": serverID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	rec := &domain.ConsumedSession{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		PlanID:    planID,
		ServerID:  serverID,
		Status:    domain.SessionConsumed,
		CreatedAt: time.Now().UTC(),
	}
	return l.DB.WithContext(ctx).Create(rec).Error
}

// Abort marks sessionID as terminated without provisioning. A session
// already consumed stays consumed, so a stray failure-URL visit cannot
// erase the duplicate suppression.
func (l *SessionLedger) Abort(ctx context.Context, sessionID string) error {
	return l.DB.WithContext(ctx).
		Model(&domain.ConsumedSession{}).
		Where("session_id = ? AND status <> ?", sessionID, domain.SessionConsumed).
		Update("status", domain.SessionAborted).Error
}
