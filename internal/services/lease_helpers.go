package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/staylong/rental-backend/pkg/lease"
)

// acquireLease takes the lease for key. Contention surfaces as models.ErrBusy
// and is expected under load, so it is logged at Info.
func acquireLease(ctx context.Context, locker lease.Locker, key string, logger *logrus.Logger) (lease.ReleaseFunc, error) {
	release, err := locker.Acquire(ctx, key)
	if errors.Is(err, lease.ErrBusy) {
		logger.WithField("lease_key", key).Info("Lease wait exceeded")
		return nil, models.ErrBusy
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	return release, nil
}
