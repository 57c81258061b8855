package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/agroworld/storefront/pkg/db"
	"github.com/agroworld/storefront/pkg/db/models"
)

// SQLPersister keeps state documents in the state_snapshots table.
// Every write bumps the row version; concurrent writers still resolve last-write-wins.
type SQLPersister struct {
	client *db.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewSQLPersister builds a persister over the shared gorm client. A zero ttl keeps rows forever.
func NewSQLPersister(client *db.Client, ttl time.Duration) (*SQLPersister, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	return &SQLPersister{client: client, ttl: ttl, now: time.Now}, nil
}

func (p *SQLPersister) Get(ctx context.Context, key string) ([]byte, error) {
	var row models.StateSnapshot
	err := p.client.DB().WithContext(ctx).
		Where("snapshot_key = ?", key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", key, err)
	}
	if row.ExpiresAt != nil && !row.ExpiresAt.After(p.now()) {
		if err := p.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return []byte(row.Payload), nil
}

func (p *SQLPersister) Put(ctx context.Context, key string, data []byte) error {
	now := p.now().UTC()
	expiresAt := p.expiry(now)

	updated, err := p.update(ctx, key, data, now, expiresAt)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}

	row := models.StateSnapshot{
		Key:       key,
		Payload:   string(data),
		Version:   1,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = p.client.DB().WithContext(ctx).Create(&row).Error
	if err == nil {
		return nil
	}
	if !db.IsUniqueViolation(err) {
		return fmt.Errorf("create state %s: %w", key, err)
	}
	// another writer created the row first
	if _, err := p.update(ctx, key, data, now, expiresAt); err != nil {
		return err
	}
	return nil
}

func (p *SQLPersister) Delete(ctx context.Context, key string) error {
	err := p.client.DB().WithContext(ctx).
		Where("snapshot_key = ?", key).
		Delete(&models.StateSnapshot{}).Error
	if err != nil {
		return fmt.Errorf("delete state %s: %w", key, err)
	}
	return nil
}

// PurgeExpired removes rows whose TTL has elapsed.
func (p *SQLPersister) PurgeExpired(ctx context.Context) (int64, error) {
	res := p.client.DB().WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", p.now().UTC()).
		Delete(&models.StateSnapshot{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge expired state: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (p *SQLPersister) update(ctx context.Context, key string, data []byte, now time.Time, expiresAt *time.Time) (bool, error) {
	res := p.client.DB().WithContext(ctx).
		Model(&models.StateSnapshot{}).
		Where("snapshot_key = ?", key).
		Updates(map[string]any{
			"payload":    string(data),
			"version":    gorm.Expr("version + 1"),
			"expires_at": expiresAt,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("update state %s: %w", key, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (p *SQLPersister) expiry(now time.Time) *time.Time {
	if p.ttl <= 0 {
		return nil
	}
	at := now.Add(p.ttl)
	return &at
}
