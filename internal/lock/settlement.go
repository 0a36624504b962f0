package lock

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const keySettleOrder = "settle:order:%s"

// SettlementLock serializes settle attempts for one order across
// processes before they reach the database.
type SettlementLock struct {
	locker *Locker
}

func NewSettlementLock(locker *Locker) *SettlementLock {
	return &SettlementLock{locker: locker}
}

func (l *SettlementLock) TryLockOrder(ctx context.Context, orderNumber string, ttl time.Duration) (string, bool, error) {
	if l == nil {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, orderKey(orderNumber), ttl)
}

func (l *SettlementLock) ReleaseOrder(ctx context.Context, orderNumber, token string) error {
	if l == nil {
		return nil
	}
	return l.locker.Release(ctx, orderKey(orderNumber), token)
}

func orderKey(orderNumber string) string {
	return fmt.Sprintf(keySettleOrder, strings.TrimSpace(orderNumber))
}
