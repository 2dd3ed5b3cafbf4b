// Package reconcile runs the periodic retry job internal/recordings' package
// comment refers to: recordings
// whose Phase B storage-cleanup publish never went out (because NATS was
// unreachable, or the process crashed between Phase A's commit and Phase
// B's publish) leave a recording_delete_pending row behind. This package
// finds those rows on a schedule and republishes their cleanup batches.
package reconcile

import (
	"context"
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/logger"
	"github.com/scuffle-video/api/internal/querybuilder"
	"github.com/scuffle-video/api/internal/recordings"
)

// DefaultSchedule runs the reconcile sweep every five minutes.
const DefaultSchedule = "*/5 * * * *"

// pendingBatch groups recording_delete_pending rows by organization, since
// internal/recordings.Service.Republish operates one organization at a time.
type pendingBatch struct {
	orgID        ids.ID
	recordingIDs []ids.ID
}

// Job periodically republishes stalled recording cleanup batches.
type Job struct {
	sqlDB    *sql.DB
	service  *recordings.Service
	cron     *cron.Cron
	schedule string
}

// NewJob builds a reconcile Job. schedule is a standard five-field cron
// expression; an empty string selects DefaultSchedule.
func NewJob(sqlDB *sql.DB, service *recordings.Service, schedule string) *Job {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Job{sqlDB: sqlDB, service: service, cron: cron.New(), schedule: schedule}
}

// Start registers the sweep and starts the cron scheduler's background
// goroutine.
func (j *Job) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.runSweep); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop stops the scheduler, waiting for any in-flight sweep to finish.
func (j *Job) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Job) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	batches, err := j.loadPending(ctx)
	if err != nil {
		logger.Recording().Error().Err(err).Msg("reconcile: failed to load recording_delete_pending rows")
		return
	}
	if len(batches) == 0 {
		return
	}

	for _, batch := range batches {
		if err := j.service.Republish(ctx, batch.orgID, batch.recordingIDs); err != nil {
			logger.Recording().Error().Err(err).
				Str("organization_id", batch.orgID.String()).
				Int("recording_count", len(batch.recordingIDs)).
				Msg("reconcile: failed to republish recording delete batches")
		}
	}
}

// loadPending reads every recording_delete_pending row, grouped by
// organization.
func (j *Job) loadPending(ctx context.Context) ([]pendingBatch, error) {
	qb := querybuilder.New().Push("SELECT recording_id, organization_id, s3_bucket_id FROM recording_delete_pending ORDER BY organization_id")
	query, args := qb.Build()

	rows, err := j.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped := map[ids.ID][]ids.ID{}
	order := []ids.ID{}
	for rows.Next() {
		var recordingID, orgID, bucketID ids.ID
		if err := rows.Scan(&recordingID, &orgID, &bucketID); err != nil {
			return nil, err
		}
		if _, ok := grouped[orgID]; !ok {
			order = append(order, orgID)
		}
		grouped[orgID] = append(grouped[orgID], recordingID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	batches := make([]pendingBatch, 0, len(order))
	for _, orgID := range order {
		batches = append(batches, pendingBatch{orgID: orgID, recordingIDs: grouped[orgID]})
	}
	return batches, nil
}
