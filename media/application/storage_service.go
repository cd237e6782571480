package application

import (
	"context"
	"fmt"

	"github.com/dfryer1193/xbrush/media/domain"
	"github.com/rs/zerolog/log"
)

// FallbackQuota is reported when no platform estimator is available.
const FallbackQuota int64 = 10 * 1024 * 1024

// StorageService answers advisory storage-space queries.
type StorageService struct {
	estimator domain.StorageEstimator
	entries   domain.EntrySource
}

// NewStorageService creates a StorageService. estimator may be nil, in which
// case usage is summed over entries.
func NewStorageService(estimator domain.StorageEstimator, entries domain.EntrySource) *StorageService {
	return &StorageService{
		estimator: estimator,
		entries:   entries,
	}
}

// CheckStorageSpace never fails; any error yields a zeroed estimate.
func (s *StorageService) CheckStorageSpace(ctx context.Context) (estimate domain.StorageEstimate) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Storage estimate panicked")
			estimate = domain.StorageEstimate{}
		}
	}()

	est, err := s.checkStorageSpace(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to check storage space")
		return domain.StorageEstimate{}
	}
	return est
}

func (s *StorageService) checkStorageSpace(ctx context.Context) (domain.StorageEstimate, error) {
	if s.estimator != nil {
		return s.estimator.Estimate(ctx)
	}

	if s.entries == nil {
		return domain.StorageEstimate{}, fmt.Errorf("no storage source configured")
	}

	var usage int64
	err := s.entries.ForEachEntry(ctx, func(key string, valueLen int64) {
		usage += int64(len(key)) + valueLen
	})
	if err != nil {
		return domain.StorageEstimate{}, fmt.Errorf("failed to sum stored entries: %w", err)
	}

	return domain.StorageEstimate{Usage: usage, Quota: FallbackQuota}, nil
}
