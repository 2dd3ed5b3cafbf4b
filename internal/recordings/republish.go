// This file implements internal/reconcile's retry path: republishing the
// Phase B cleanup batches for recordings whose recording_delete_pending
// marker was never cleared, independently of the original Delete call's
// deadline.
package recordings

import (
	"context"

	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/querybuilder"
)

// Republish re-attempts the Phase B publish for recordingIDs within orgID,
// looking up each recording's bucket id from the recording_delete_pending
// marker rows Phase A left behind, and clears the markers that succeed.
func (s *Service) Republish(ctx context.Context, orgID ids.ID, recordingIDs []ids.ID) error {
	buckets, err := s.loadPendingBuckets(ctx, orgID, recordingIDs)
	if err != nil {
		return err
	}
	if len(buckets) == 0 {
		return nil
	}
	s.publishCleanupBatches(ctx, orgID, buckets)
	return nil
}

// loadPendingBuckets reads the s3_bucket_id each pending recording was
// recorded with.
func (s *Service) loadPendingBuckets(ctx context.Context, orgID ids.ID, recordingIDs []ids.ID) (map[ids.ID]ids.ID, error) {
	qb := querybuilder.New().Push("SELECT recording_id, s3_bucket_id FROM recording_delete_pending WHERE ").
		IDsFilter("recording_id", recordingIDs).Push(" AND ").OrganizationIDFilter(orgID)
	query, args := qb.Build()

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := make(map[ids.ID]ids.ID, len(recordingIDs))
	for rows.Next() {
		var recordingID, bucketID ids.ID
		if err := rows.Scan(&recordingID, &bucketID); err != nil {
			return nil, err
		}
		buckets[recordingID] = bucketID
	}
	return buckets, rows.Err()
}
