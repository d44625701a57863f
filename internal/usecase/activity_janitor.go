package usecase

import (
	"context"
	"time"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/logger"
)

type SweepResult struct {
	Emptied int `json:"emptied"`
	Ended   int `json:"ended"`
	Failed  int `json:"failed"`
}

// ActivityJanitor removes activities nobody participates in and ends
// activities whose scheduled start lies further back than the grace period.
type ActivityJanitor struct {
	activityRepo repository.ActivityRepository
	activities   *ActivityUseCase
	grace        time.Duration
	location     *time.Location
	now          func() time.Time
}

func NewActivityJanitor(activityRepo repository.ActivityRepository, activities *ActivityUseCase, grace time.Duration) *ActivityJanitor {
	return &ActivityJanitor{
		activityRepo: activityRepo,
		activities:   activities,
		grace:        grace,
		location:     time.Local,
		now:          time.Now,
	}
}

// Sweep makes one pass over all activities.
func (j *ActivityJanitor) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	all, err := j.activityRepo.List(ctx)
	if err != nil {
		return result, err
	}

	now := j.now()
	for _, activity := range all {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		fields := logger.Fields{"activityId": activity.ID}

		if len(activity.Participants) == 0 {
			deleted, err := j.activities.DeleteIfNoParticipants(ctx, activity.ID)
			if err != nil {
				logger.LogStepError("delete empty activity", fields, err)
				result.Failed++
			} else if deleted {
				result.Emptied++
			}
			continue
		}

		start, ok := ScheduledAt(activity, j.location)
		if !ok || now.Sub(start) < j.grace {
			continue
		}
		if err := j.activities.Delete(ctx, activity.ID, entity.DeleteWithNotifications); err != nil {
			logger.LogStepError("end activity", fields, err)
			result.Failed++
			continue
		}
		result.Ended++
	}
	return result, nil
}

// Start runs Sweep every interval until ctx is cancelled.
func (j *ActivityJanitor) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				result, err := j.Sweep(ctx)
				if err != nil {
					logger.Error("Activity janitor error: %v", err)
					continue
				}
				if result.Emptied > 0 || result.Ended > 0 || result.Failed > 0 {
					logger.WithFields(logger.Fields{"emptied": result.Emptied, "ended": result.Ended, "failed": result.Failed}).Info("activity janitor sweep")
				}
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()

	logger.Info("Activity janitor started (checking every %s)", interval)
}
