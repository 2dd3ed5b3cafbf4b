// This file wires authorize() to the four manageable resource kinds,
// implementing their Get/Create/Modify/Delete/Tag/Untag verbs. Each
// Service method is the same three-step shape: authorize the (resource,
// permission) pair against the caller's AccessToken and its organization's
// rate-limit budget, run the querybuilder-backed store call, map any
// database error onto the gRPC-mappable AppError the transport layer
// expects.
package dispatcher

import (
	"context"

	"github.com/scuffle-video/api/internal/authz"
	"github.com/scuffle-video/api/internal/db"
	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
	"github.com/scuffle-video/api/internal/ratelimit"
)

// Service dispatches every Get/Create/Modify/Delete/Tag/Untag request for
// the four manageable resource kinds.
type Service struct {
	buckets  *db.S3BucketDB
	configs  *db.RecordingConfigDB
	keypairs *db.PlaybackKeyPairDB
	recordings *db.RecordingDB
	limiter  *ratelimit.Limiter
	limits   TagLimits
}

// NewService builds the dispatcher Service.
func NewService(buckets *db.S3BucketDB, configs *db.RecordingConfigDB, keypairs *db.PlaybackKeyPairDB, recordings *db.RecordingDB, limiter *ratelimit.Limiter, limits TagLimits) *Service {
	return &Service{buckets: buckets, configs: configs, keypairs: keypairs, recordings: recordings, limiter: limiter, limits: limits}
}

// -- S3Bucket --

func (s *Service) GetS3Buckets(ctx context.Context, token *models.AccessToken, idList []ids.ID) ([]*models.S3Bucket, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceS3Bucket, authz.PermissionGet), token, s.limiter); err != nil {
		return nil, err
	}
	rows, err := s.buckets.Get(ctx, token.OrganizationID, idList)
	if err != nil {
		return nil, toAppError("s3_bucket.get", token.OrganizationID, len(idList), err)
	}
	return rows, nil
}

func (s *Service) CreateS3Bucket(ctx context.Context, token *models.AccessToken, bucket *models.S3Bucket) (*models.S3Bucket, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceS3Bucket, authz.PermissionCreate), token, s.limiter); err != nil {
		return nil, err
	}
	bucket.OrganizationID = token.OrganizationID
	created, err := s.buckets.Create(ctx, bucket)
	if err != nil {
		return nil, toAppError("s3_bucket.create", token.OrganizationID, 1, err)
	}
	return created, nil
}

func (s *Service) ModifyS3Bucket(ctx context.Context, token *models.AccessToken, id ids.ID, name, region, endpoint string) (*models.S3Bucket, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceS3Bucket, authz.PermissionModify), token, s.limiter); err != nil {
		return nil, err
	}
	updated, err := s.buckets.Modify(ctx, token.OrganizationID, id, name, region, endpoint)
	if err != nil {
		return nil, toAppError("s3_bucket.modify", token.OrganizationID, 1, err)
	}
	return updated, nil
}

func (s *Service) DeleteS3Buckets(ctx context.Context, token *models.AccessToken, idList []ids.ID) (DeleteResult, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceS3Bucket, authz.PermissionDelete), token, s.limiter); err != nil {
		return DeleteResult{}, err
	}
	if err := checkDeleteLimit(idList); err != nil {
		return DeleteResult{}, err
	}
	deleted, err := s.buckets.Delete(ctx, token.OrganizationID, idList)
	if err != nil {
		return DeleteResult{}, toAppError("s3_bucket.delete", token.OrganizationID, len(idList), err)
	}
	return newDeleteResult(idList, deleted), nil
}

func (s *Service) TagS3Bucket(ctx context.Context, token *models.AccessToken, id ids.ID, tags map[string]string) (*models.S3Bucket, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceS3Bucket, authz.PermissionTag), token, s.limiter); err != nil {
		return nil, err
	}
	return Tag[*models.S3Bucket](ctx, s.buckets, token.OrganizationID, id, tags, s.limits)
}

func (s *Service) UntagS3Bucket(ctx context.Context, token *models.AccessToken, id ids.ID, keys []string) (*models.S3Bucket, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceS3Bucket, authz.PermissionUntag), token, s.limiter); err != nil {
		return nil, err
	}
	return Untag[*models.S3Bucket](ctx, s.buckets, token.OrganizationID, id, keys)
}

// -- RecordingConfig --

func (s *Service) GetRecordingConfigs(ctx context.Context, token *models.AccessToken, idList []ids.ID) ([]*models.RecordingConfig, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceRecordingConfig, authz.PermissionGet), token, s.limiter); err != nil {
		return nil, err
	}
	rows, err := s.configs.Get(ctx, token.OrganizationID, idList)
	if err != nil {
		return nil, toAppError("recording_config.get", token.OrganizationID, len(idList), err)
	}
	return rows, nil
}

func (s *Service) CreateRecordingConfig(ctx context.Context, token *models.AccessToken, cfg *models.RecordingConfig) (*models.RecordingConfig, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceRecordingConfig, authz.PermissionCreate), token, s.limiter); err != nil {
		return nil, err
	}
	cfg.OrganizationID = token.OrganizationID
	created, err := s.configs.Create(ctx, cfg)
	if err != nil {
		return nil, toAppError("recording_config.create", token.OrganizationID, 1, err)
	}
	return created, nil
}

func (s *Service) ModifyRecordingConfig(ctx context.Context, token *models.AccessToken, id, bucketID ids.ID, renditions []string) (*models.RecordingConfig, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceRecordingConfig, authz.PermissionModify), token, s.limiter); err != nil {
		return nil, err
	}
	updated, err := s.configs.Modify(ctx, token.OrganizationID, id, bucketID, renditions)
	if err != nil {
		return nil, toAppError("recording_config.modify", token.OrganizationID, 1, err)
	}
	return updated, nil
}

func (s *Service) DeleteRecordingConfigs(ctx context.Context, token *models.AccessToken, idList []ids.ID) (DeleteResult, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceRecordingConfig, authz.PermissionDelete), token, s.limiter); err != nil {
		return DeleteResult{}, err
	}
	if err := checkDeleteLimit(idList); err != nil {
		return DeleteResult{}, err
	}
	deleted, err := s.configs.Delete(ctx, token.OrganizationID, idList)
	if err != nil {
		return DeleteResult{}, toAppError("recording_config.delete", token.OrganizationID, len(idList), err)
	}
	return newDeleteResult(idList, deleted), nil
}

func (s *Service) TagRecordingConfig(ctx context.Context, token *models.AccessToken, id ids.ID, tags map[string]string) (*models.RecordingConfig, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceRecordingConfig, authz.PermissionTag), token, s.limiter); err != nil {
		return nil, err
	}
	return Tag[*models.RecordingConfig](ctx, s.configs, token.OrganizationID, id, tags, s.limits)
}

func (s *Service) UntagRecordingConfig(ctx context.Context, token *models.AccessToken, id ids.ID, keys []string) (*models.RecordingConfig, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceRecordingConfig, authz.PermissionUntag), token, s.limiter); err != nil {
		return nil, err
	}
	return Untag[*models.RecordingConfig](ctx, s.configs, token.OrganizationID, id, keys)
}

// -- PlaybackKeyPair --

func (s *Service) GetPlaybackKeyPairs(ctx context.Context, token *models.AccessToken, idList []ids.ID) ([]*models.PlaybackKeyPair, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourcePlaybackKeyPair, authz.PermissionGet), token, s.limiter); err != nil {
		return nil, err
	}
	rows, err := s.keypairs.Get(ctx, token.OrganizationID, idList)
	if err != nil {
		return nil, toAppError("playback_key_pair.get", token.OrganizationID, len(idList), err)
	}
	return rows, nil
}

func (s *Service) CreatePlaybackKeyPair(ctx context.Context, token *models.AccessToken, pair *models.PlaybackKeyPair) (*models.PlaybackKeyPair, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourcePlaybackKeyPair, authz.PermissionCreate), token, s.limiter); err != nil {
		return nil, err
	}
	pair.OrganizationID = token.OrganizationID
	created, err := s.keypairs.Create(ctx, pair)
	if err != nil {
		return nil, toAppError("playback_key_pair.create", token.OrganizationID, 1, err)
	}
	return created, nil
}

// ModifyPlaybackKeyPair rotates a key pair's key material.
func (s *Service) ModifyPlaybackKeyPair(ctx context.Context, token *models.AccessToken, id ids.ID, publicKey, privateKey string) (*models.PlaybackKeyPair, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourcePlaybackKeyPair, authz.PermissionModify), token, s.limiter); err != nil {
		return nil, err
	}
	updated, err := s.keypairs.Modify(ctx, token.OrganizationID, id, publicKey, privateKey)
	if err != nil {
		return nil, toAppError("playback_key_pair.modify", token.OrganizationID, 1, err)
	}
	return updated, nil
}

func (s *Service) DeletePlaybackKeyPairs(ctx context.Context, token *models.AccessToken, idList []ids.ID) (DeleteResult, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourcePlaybackKeyPair, authz.PermissionDelete), token, s.limiter); err != nil {
		return DeleteResult{}, err
	}
	if err := checkDeleteLimit(idList); err != nil {
		return DeleteResult{}, err
	}
	deleted, err := s.keypairs.Delete(ctx, token.OrganizationID, idList)
	if err != nil {
		return DeleteResult{}, toAppError("playback_key_pair.delete", token.OrganizationID, len(idList), err)
	}
	return newDeleteResult(idList, deleted), nil
}

func (s *Service) TagPlaybackKeyPair(ctx context.Context, token *models.AccessToken, id ids.ID, tags map[string]string) (*models.PlaybackKeyPair, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourcePlaybackKeyPair, authz.PermissionTag), token, s.limiter); err != nil {
		return nil, err
	}
	return Tag[*models.PlaybackKeyPair](ctx, s.keypairs, token.OrganizationID, id, tags, s.limits)
}

func (s *Service) UntagPlaybackKeyPair(ctx context.Context, token *models.AccessToken, id ids.ID, keys []string) (*models.PlaybackKeyPair, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourcePlaybackKeyPair, authz.PermissionUntag), token, s.limiter); err != nil {
		return nil, err
	}
	return Untag[*models.PlaybackKeyPair](ctx, s.keypairs, token.OrganizationID, id, keys)
}

// -- Recording --
//
// Recording has no Create or Modify verb here: recordings are created by
// the room/session pipeline, not this control plane, and their
// only mutations this control plane exposes are tagging and deletion
// (internal/recordings.Delete, not this Service's DeleteX; recording
// deletion's two-phase cleanup pipeline is substantial enough to live in
// its own package).

func (s *Service) GetRecordings(ctx context.Context, token *models.AccessToken, idList []ids.ID) ([]*models.Recording, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceRecording, authz.PermissionGet), token, s.limiter); err != nil {
		return nil, err
	}
	rows, err := s.recordings.Get(ctx, token.OrganizationID, idList)
	if err != nil {
		return nil, toAppError("recording.get", token.OrganizationID, len(idList), err)
	}
	return rows, nil
}

func (s *Service) TagRecording(ctx context.Context, token *models.AccessToken, id ids.ID, tags map[string]string) (*models.Recording, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceRecording, authz.PermissionTag), token, s.limiter); err != nil {
		return nil, err
	}
	return Tag[*models.Recording](ctx, s.recordings, token.OrganizationID, id, tags, s.limits)
}

func (s *Service) UntagRecording(ctx context.Context, token *models.AccessToken, id ids.ID, keys []string) (*models.Recording, *errors.AppError) {
	if err := authorize(authz.Kind(authz.ResourceRecording, authz.PermissionUntag), token, s.limiter); err != nil {
		return nil, err
	}
	return Untag[*models.Recording](ctx, s.recordings, token.OrganizationID, id, keys)
}
