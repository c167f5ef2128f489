package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// InvoiceLockKey builds redis keys for invoice critical sections.
func InvoiceLockKey(invoiceID int64) string {
	return fmt.Sprintf("invoice:%d:lock", invoiceID)
}

// releaseScript deletes the lock only when still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// InvoiceLocker serializes receipt reconciliation per invoice. Two saves
// against the same invoice must never interleave their read-compute-write
// sequence, so the lock is held for the whole critical section.
type InvoiceLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewInvoiceLocker constructs an InvoiceLocker with sane defaults.
func NewInvoiceLocker(client *redis.Client) *InvoiceLocker {
	return &InvoiceLocker{
		client: client,
		ttl:    30 * time.Second,
		wait:   5 * time.Second,
		retry:  50 * time.Millisecond,
	}
}

// WithInvoiceLock runs fn while holding the exclusive lock for invoiceID.
func (l *InvoiceLocker) WithInvoiceLock(ctx context.Context, invoiceID int64, fn func(context.Context) error) error {
	token, err := l.acquire(ctx, invoiceID)
	if err != nil {
		return err
	}
	defer l.release(invoiceID, token)
	return fn(ctx)
}

func (l *InvoiceLocker) acquire(ctx context.Context, invoiceID int64) (string, error) {
	key := InvoiceLockKey(invoiceID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("shared: acquire invoice lock: %w", err)
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *InvoiceLocker) release(invoiceID int64, token string) {
	// Release must not be cut short by request cancellation.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.client, []string{InvoiceLockKey(invoiceID)}, token).Err()
}
