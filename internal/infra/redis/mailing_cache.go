package redis

import (
	"context"
	"fmt"
	"time"
)

// MailingCache is the hot-path front of the dedup cache. Keys expire with the
// tenant's TTL; the postgres copy stays behind it for audit and rebuilds.
type MailingCache struct {
	client RedisClient
}

func NewMailingCache(client RedisClient) *MailingCache {
	return &MailingCache{client: client}
}

func mailingKey(tenantID string, telegramID int64) string {
	return fmt.Sprintf("mailcache:%s:%d", tenantID, telegramID)
}

// Seen reports whether the user already received a mailing within the TTL.
// Errors degrade to "not seen" so redis downtime never blocks a campaign;
// the durable copy still catches duplicates on rebuild.
func (c *MailingCache) Seen(ctx context.Context, tenantID string, telegramID int64) bool {
	_, err := c.client.Get(ctx, mailingKey(tenantID, telegramID))
	return err == nil
}

func (c *MailingCache) Remember(ctx context.Context, tenantID string, telegramID int64, ttlDays int) error {
	if ttlDays <= 0 {
		ttlDays = 30
	}
	ttl := time.Duration(ttlDays) * 24 * time.Hour
	return c.client.Set(ctx, mailingKey(tenantID, telegramID), time.Now().UTC().Format(time.RFC3339), ttl)
}

func (c *MailingCache) Forget(ctx context.Context, tenantID string, telegramID int64) error {
	return c.client.Del(ctx, mailingKey(tenantID, telegramID))
}
