package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/ZanzyTHEbar/idea-forge/internal/resilience"
	"github.com/ZanzyTHEbar/idea-forge/internal/storage"
)

// anonymize turns a user id (which may embed an IP address) into a stable log token
func anonymize(userID string) string {
	hash := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(hash[:6])
}

// DeleteUser erases a user's record and drops them from the aggregate. It reports
// whether there was anything to delete.
func (a *Aggregator) DeleteUser(ctx context.Context, userID string) (bool, error) {
	unlock := a.lock(userID)
	defer unlock()

	existing, err := a.GetUserAnalytics(ctx, userID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	slog.Info("Deleting user analytics", "user", anonymize(userID))

	err = resilience.RetryWithConfig(ctx, a.retry, func() error {
		return a.kv.Delete(ctx, userKey(userID))
	})
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	defer a.cache.invalidate()

	a.indexed.Delete(userID)
	if err := a.removeUser(ctx, userID); err != nil {
		// The aggregate skips index entries without a record, so this only leaves a stale id.
		slog.Warn("Failed to remove user from analytics index", "user", anonymize(userID), "error", err)
	}
	return true, nil
}

func (a *Aggregator) removeUser(ctx context.Context, userID string) error {
	a.indexMu.Lock()
	defer a.indexMu.Unlock()

	return resilience.RetryWithConfig(ctx, a.retry, func() error {
		users, err := a.users(ctx)
		if err != nil {
			return err
		}

		kept := users[:0]
		for _, u := range users {
			if u != userID {
				kept = append(kept, u)
			}
		}
		if len(kept) == len(users) {
			return nil
		}
		return storage.SetJSON(ctx, a.kv, usersIndexKey, kept)
	})
}
