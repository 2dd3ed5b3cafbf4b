// This file implements Phase B of the deletion pipeline: streaming the
// thumbnail and rendition-segment rows left behind by Phase A's purge and
// grouping them into RecordingDeleteBatchTask messages, one per contiguous
// run that shares both recording_id and object type. A batch flushes the
// moment either changes (or the accumulated batch hits batchSize), not once
// per recording.
package recordings

import (
	"context"

	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/logger"
	"github.com/scuffle-video/api/internal/models"
	"github.com/scuffle-video/api/internal/querybuilder"
)

// publishCleanupBatches runs Phase B for a set of just-deleted recordings.
// It never returns an error to the caller of Delete: every failure here is
// logged and left for internal/reconcile to retry from the
// recording_delete_pending markers Phase A left behind.
func (s *Service) publishCleanupBatches(ctx context.Context, orgID ids.ID, deletedRecordings map[ids.ID]ids.ID) {
	if len(deletedRecordings) == 0 {
		return
	}
	deletedIDs := make([]ids.ID, 0, len(deletedRecordings))
	for id := range deletedRecordings {
		deletedIDs = append(deletedIDs, id)
	}

	failed := make(map[ids.ID]struct{})

	// A query/stream error means an unknown number of batches never went
	// out, so every recording in the pass keeps its marker.
	if err := s.publishThumbnails(ctx, deletedRecordings, deletedIDs, failed); err != nil {
		logger.Recording().Error().Err(err).Msg("failed to publish recording thumbnail cleanup batches")
		for _, id := range deletedIDs {
			failed[id] = struct{}{}
		}
	}
	if err := s.publishSegments(ctx, deletedRecordings, deletedIDs, failed); err != nil {
		logger.Recording().Error().Err(err).Msg("failed to publish recording segment cleanup batches")
		for _, id := range deletedIDs {
			failed[id] = struct{}{}
		}
	}

	// Clear the pending marker only for recordings whose every batch
	// published cleanly this pass; a recording with any failed batch keeps
	// its marker so internal/reconcile retries it on the next sweep.
	cleared := make([]ids.ID, 0, len(deletedIDs))
	for _, id := range deletedIDs {
		if _, bad := failed[id]; !bad {
			cleared = append(cleared, id)
		}
	}
	s.clearDeletePendingMarkers(ctx, orgID, cleared)
}

// batchState accumulates one in-flight RecordingDeleteBatchTask.
type batchState struct {
	task   models.RecordingDeleteBatchTask
	active bool
}

func (s *Service) flush(state *batchState, failed map[ids.ID]struct{}) {
	if !state.active || len(state.task.Objects) == 0 {
		return
	}
	if err := s.publisher.PublishRecordingDeleteBatch(state.task); err != nil {
		logger.Recording().Error().Err(err).
			Str("recording_id", state.task.RecordingID.String()).
			Msg("failed to publish recording delete batch")
		failed[state.task.RecordingID] = struct{}{}
	}
	state.task = models.RecordingDeleteBatchTask{}
	state.active = false
}

func (s *Service) publishThumbnails(ctx context.Context, deletedRecordings map[ids.ID]ids.ID, deletedIDs []ids.ID, failed map[ids.ID]struct{}) error {
	qb := querybuilder.New().Push("SELECT id, recording_id, idx FROM recording_thumbnails WHERE ").
		IDsFilter("recording_id", deletedIDs).Push(" ORDER BY recording_id")
	query, args := qb.Build()

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	state := &batchState{}
	for rows.Next() {
		var thumbnailID, recordingID ids.ID
		var idx int32
		if err := rows.Scan(&thumbnailID, &recordingID, &idx); err != nil {
			return err
		}

		sameBatch := state.active && state.task.RecordingID == recordingID && state.task.ObjectTypes.Thumbnails
		if !sameBatch || len(state.task.Objects) >= s.batchSize {
			s.flush(state, failed)
			state.task = models.RecordingDeleteBatchTask{
				RecordingID: recordingID,
				S3BucketID:  deletedRecordings[recordingID],
				ObjectTypes: models.BatchObjectTypes{Thumbnails: true},
			}
			state.active = true
		}
		state.task.Objects = append(state.task.Objects, models.BatchObject{Index: idx, ObjectID: thumbnailID})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	s.flush(state, failed)
	return nil
}

func (s *Service) publishSegments(ctx context.Context, deletedRecordings map[ids.ID]ids.ID, deletedIDs []ids.ID, failed map[ids.ID]struct{}) error {
	qb := querybuilder.New().Push("SELECT id, recording_id, rendition, idx FROM recording_rendition_segments WHERE ").
		IDsFilter("recording_id", deletedIDs).Push(" ORDER BY recording_id, rendition")
	query, args := qb.Build()

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	state := &batchState{}
	for rows.Next() {
		var segmentID, recordingID ids.ID
		var rendition models.Rendition
		var idx int32
		if err := rows.Scan(&segmentID, &recordingID, &rendition, &idx); err != nil {
			return err
		}

		sameBatch := state.active && state.task.RecordingID == recordingID &&
			!state.task.ObjectTypes.Thumbnails && state.task.ObjectTypes.Rendition == rendition
		if !sameBatch || len(state.task.Objects) >= s.batchSize {
			s.flush(state, failed)
			state.task = models.RecordingDeleteBatchTask{
				RecordingID: recordingID,
				S3BucketID:  deletedRecordings[recordingID],
				ObjectTypes: models.BatchObjectTypes{Thumbnails: false, Rendition: rendition},
			}
			state.active = true
		}
		state.task.Objects = append(state.task.Objects, models.BatchObject{Index: idx, ObjectID: segmentID})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	s.flush(state, failed)
	return nil
}

// clearDeletePendingMarkers removes the recording_delete_pending rows for
// recordings whose Phase B batches all published successfully. An empty
// recordingIDs is a no-op.
func (s *Service) clearDeletePendingMarkers(ctx context.Context, orgID ids.ID, recordingIDs []ids.ID) {
	if len(recordingIDs) == 0 {
		return
	}
	qb := querybuilder.New().Push("DELETE FROM recording_delete_pending WHERE ").
		IDsFilter("recording_id", recordingIDs).Push(" AND ").OrganizationIDFilter(orgID)
	query, args := qb.Build()
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		logger.Recording().Error().Err(err).Msg("failed to clear recording_delete_pending markers")
	}
}
