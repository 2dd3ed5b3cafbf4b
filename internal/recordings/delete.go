// Package recordings implements the recording deletion pipeline: a
// transactional soft-delete of the requested rows plus their dependent
// playback sessions and rendition rows (Phase A), followed by a best-effort,
// streamed, contiguous-batch publish of the objects a storage-cleanup worker
// must remove from S3 (Phase B).
//
// Phase B's publish failures are swallowed rather than surfaced to the
// caller: the recording rows are already soft-deleted and committed by the
// time Phase B runs, so there's nothing left to roll back. Instead, Phase A records a
// recording_delete_pending marker per recording, and internal/reconcile
// periodically republishes markers whose batches may never have gone out.
package recordings

import (
	"context"
	"database/sql"

	"github.com/scuffle-video/api/internal/authz"
	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/events"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/logger"
	"github.com/scuffle-video/api/internal/models"
	"github.com/scuffle-video/api/internal/querybuilder"
	"github.com/scuffle-video/api/internal/ratelimit"
)

// maxDeleteIDs caps a single Delete call.
const maxDeleteIDs = 100

// Result reports which requested ids were actually soft-deleted and which
// were not found (already deleted, or belonging to a different
// organization).
type Result struct {
	DeletedIDs []ids.ID
	FailedIDs  []ids.ID
}

// batchPublisher is the narrow seam Phase B publishes through. *events.
// Publisher satisfies it; tests substitute an in-memory recorder so batch
// grouping can be asserted without a live NATS connection.
type batchPublisher interface {
	PublishRecordingDeleteBatch(task models.RecordingDeleteBatchTask) error
}

// Service implements the recording deletion pipeline.
type Service struct {
	sqlDB     *sql.DB
	publisher batchPublisher
	limiter   *ratelimit.Limiter
	batchSize int
}

// NewService builds the recording deletion Service. batchSize bounds how
// many objects accumulate in one RecordingDeleteBatchTask before Phase B
// flushes it, the `recording_delete_batch_size` config value.
func NewService(sqlDB *sql.DB, publisher *events.Publisher, limiter *ratelimit.Limiter, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Service{sqlDB: sqlDB, publisher: publisher, limiter: limiter, batchSize: batchSize}
}

// Delete soft-deletes the recordings named by idList within the caller's
// organization, purges their dependent playback sessions and rendition
// rows, then kicks off Phase B's best-effort storage cleanup fan-out.
func (s *Service) Delete(ctx context.Context, token *models.AccessToken, idList []ids.ID) (Result, *errors.AppError) {
	if err := authz.CheckScope(authz.Kind(authz.ResourceRecording, authz.PermissionDelete), token); err != nil {
		return Result{}, err
	}
	if !s.limiter.Allow(token.OrganizationID, authz.RateLimitResourceFor(authz.Kind(authz.ResourceRecording, authz.PermissionDelete))) {
		return Result{}, errors.ResourceExhausted("rate limit exceeded for recording.delete")
	}

	if len(idList) == 0 {
		return Result{}, errors.InvalidArgument("no ids provided for delete")
	}
	if len(idList) > maxDeleteIDs {
		return Result{}, errors.InvalidArgument("too many ids provided for delete: max 100")
	}

	deletedRecordings, failedIDs, err := s.softDeleteAndPurge(ctx, token.OrganizationID, idList)
	if err != nil {
		return Result{}, err
	}

	deletedIDs := make([]ids.ID, 0, len(deletedRecordings))
	for id := range deletedRecordings {
		deletedIDs = append(deletedIDs, id)
	}

	// Phase B is allowed to fail, but still runs within the caller's
	// deadline. A cleanup failure here only delays S3 object removal, which
	// internal/reconcile retries from the recording_delete_pending markers
	// left by Phase A.
	s.publishCleanupBatches(ctx, token.OrganizationID, deletedRecordings)

	return Result{DeletedIDs: deletedIDs, FailedIDs: failedIDs}, nil
}

// softDeleteAndPurge is Phase A: one transaction that marks the requested
// recordings deleted, disassociates them from their room/config, and
// removes their playback sessions and recording_renditions rows. Returns a
// map of deleted recording id to its s3_bucket_id (Phase B needs the
// bucket to address the cleanup-stream message) and the ids that were not
// found.
func (s *Service) softDeleteAndPurge(ctx context.Context, orgID ids.ID, idList []ids.ID) (map[ids.ID]ids.ID, []ids.ID, *errors.AppError) {
	tx, txErr := s.sqlDB.BeginTx(ctx, nil)
	if txErr != nil {
		return nil, nil, errors.Wrap(errors.CodeInternalServerErr, "failed to begin transaction, the recording may have been deleted", txErr)
	}
	defer tx.Rollback()

	qb := querybuilder.New().
		Push("UPDATE recordings SET deleted_at = now(), room_id = NULL, recording_config_id = NULL WHERE ").
		IDsFilter("id", idList).
		Push(" AND ").OrganizationIDFilter(orgID).
		Push(" AND deleted_at IS NULL").
		Returning("id, s3_bucket_id")
	query, args := qb.Build()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Recording().Error().Err(err).Msg("failed to update recordings")
		return nil, nil, errors.InternalServerError("failed to delete recordings")
	}

	deleted := make(map[ids.ID]ids.ID)
	remaining := make(map[ids.ID]struct{}, len(idList))
	for _, id := range idList {
		remaining[id] = struct{}{}
	}
	for rows.Next() {
		var id, bucketID ids.ID
		if err := rows.Scan(&id, &bucketID); err != nil {
			rows.Close()
			return nil, nil, errors.InternalServerErrorWrap(err)
		}
		deleted[id] = bucketID
		delete(remaining, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, errors.InternalServerErrorWrap(err)
	}
	rows.Close()

	deletedIDs := make([]ids.ID, 0, len(deleted))
	for id := range deleted {
		deletedIDs = append(deletedIDs, id)
	}

	if len(deletedIDs) > 0 {
		sessionQB := querybuilder.New().Push("DELETE FROM playback_sessions WHERE ").
			IDsFilter("recording_id", deletedIDs).Push(" AND ").OrganizationIDFilter(orgID)
		query, args := sessionQB.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			logger.Recording().Error().Err(err).Msg("failed to delete playback sessions")
			return nil, nil, errors.InternalServerError("failed to delete playback sessions, the recording have not been deleted")
		}

		// No organization_id filter here: deletedIDs is already the output of
		// the org-scoped UPDATE ... RETURNING above, so a foreign id can never
		// appear in it (see DESIGN.md).
		renditionQB := querybuilder.New().Push("DELETE FROM recording_renditions WHERE ").IDsFilter("recording_id", deletedIDs)
		query, args = renditionQB.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			logger.Recording().Error().Err(err).Msg("failed to delete recording renditions")
			return nil, nil, errors.InternalServerError("failed to delete recording renditions, the recording have not been deleted")
		}

		for id, bucketID := range deleted {
			markerQB := querybuilder.New().Push("INSERT INTO recording_delete_pending (recording_id, organization_id, s3_bucket_id) VALUES (").
				PushBind(id).Push(", ").PushBind(orgID).Push(", ").PushBind(bucketID).Push(") ON CONFLICT (recording_id) DO NOTHING")
			query, args := markerQB.Build()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				logger.Recording().Error().Err(err).Msg("failed to record delete-pending marker")
				return nil, nil, errors.InternalServerErrorWrap(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Recording().Error().Err(err).Msg("failed to commit transaction")
		return nil, nil, errors.InternalServerError("failed to commit transaction, the recording have not been deleted")
	}

	failed := make([]ids.ID, 0, len(remaining))
	for id := range remaining {
		failed = append(failed, id)
	}
	return deleted, failed, nil
}
