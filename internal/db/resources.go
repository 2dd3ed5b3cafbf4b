// This file implements data access for the four manageable resource kinds
// the dispatcher fans out to: S3Bucket, RecordingConfig, PlaybackKeyPair
// and Recording. The S3Bucket, RecordingConfig and PlaybackKeyPair stores
// expose Get/Create/Modify/Delete; RecordingDB exposes Get only (recording
// deletion lives in internal/recordings). Every store also has a
// MutateTags used by the dispatcher's Tag/Untag verbs: the dispatcher
// supplies the merge/remove function and MutateTags runs it inside a
// row-locked transaction. Queries are assembled with internal/querybuilder
// so every one of them picks up the organization_id filter and RETURNING
// clause the same way.
package db

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
	"github.com/scuffle-video/api/internal/querybuilder"
)

// S3BucketDB handles database operations for S3 buckets.
type S3BucketDB struct{ db *sql.DB }

// NewS3BucketDB creates a new S3BucketDB instance.
func NewS3BucketDB(db *sql.DB) *S3BucketDB { return &S3BucketDB{db: db} }

const s3BucketColumns = "id, organization_id, name, region, endpoint, tags, created_at, updated_at"

func scanS3Bucket(row interface{ Scan(...interface{}) error }) (*models.S3Bucket, error) {
	b := &models.S3Bucket{}
	if err := row.Scan(&b.ID, &b.OrganizationID, &b.Name, &b.Region, &b.Endpoint, &b.Tags, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

// Get loads the S3 buckets named by ids within orgID.
func (s *S3BucketDB) Get(ctx context.Context, orgID ids.ID, idList []ids.ID) ([]*models.S3Bucket, error) {
	qb := querybuilder.New().Push("SELECT " + s3BucketColumns + " FROM s3_buckets WHERE ").OrganizationIDFilter(orgID).Push(" AND ").IDsFilter("id", idList)
	query, args := qb.Build()
	return queryS3Buckets(ctx, s.db, query, args)
}

// Create inserts a new S3 bucket row.
func (s *S3BucketDB) Create(ctx context.Context, bucket *models.S3Bucket) (*models.S3Bucket, error) {
	if bucket.ID.IsNil() {
		bucket.ID = ids.New()
	}
	if bucket.Tags == nil {
		bucket.Tags = models.Tags{}
	}
	qb := querybuilder.New().Push("INSERT INTO s3_buckets (id, organization_id, name, region, endpoint, tags) VALUES (").
		PushBind(bucket.ID).Push(", ").PushBind(bucket.OrganizationID).Push(", ").PushBind(bucket.Name).Push(", ").
		PushBind(bucket.Region).Push(", ").PushBind(bucket.Endpoint).Push(", ").PushBind(bucket.Tags).Push(")").
		Returning(s3BucketColumns)
	query, args := qb.Build()
	result, err := scanS3Bucket(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	return result, nil
}

// Modify updates an existing bucket's mutable fields.
func (s *S3BucketDB) Modify(ctx context.Context, orgID, bucketID ids.ID, name, region, endpoint string) (*models.S3Bucket, error) {
	qb := querybuilder.New().Push("UPDATE s3_buckets SET name = ").PushBind(name).
		Push(", region = ").PushBind(region).Push(", endpoint = ").PushBind(endpoint).
		Push(", updated_at = now() WHERE ").OrganizationIDFilter(orgID).Push(" AND id = ").PushBind(bucketID).
		Returning(s3BucketColumns)
	query, args := qb.Build()
	result, err := scanS3Bucket(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("s3_bucket")
		}
		return nil, errors.InternalServerErrorWrap(err)
	}
	return result, nil
}

// Delete removes buckets by id, scoped to orgID, returning the ids actually
// deleted.
func (s *S3BucketDB) Delete(ctx context.Context, orgID ids.ID, idList []ids.ID) ([]ids.ID, error) {
	qb := querybuilder.New().Push("DELETE FROM s3_buckets WHERE ").OrganizationIDFilter(orgID).Push(" AND ").IDsFilter("id", idList).Returning("id")
	query, args := qb.Build()
	return deleteReturningIDs(ctx, s.db, query, args)
}

// MutateTags transactionally rewrites one bucket's tag map via mutate.
func (s *S3BucketDB) MutateTags(ctx context.Context, orgID, bucketID ids.ID, mutate func(models.Tags) (models.Tags, error)) (*models.S3Bucket, error) {
	return mutateTags(ctx, s.db, "s3_buckets", "s3_bucket", "", s3BucketColumns, scanS3Bucket, orgID, bucketID, mutate)
}

func queryS3Buckets(ctx context.Context, sqlDB *sql.DB, query string, args []interface{}) ([]*models.S3Bucket, error) {
	rows, err := sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	defer rows.Close()
	out := []*models.S3Bucket{}
	for rows.Next() {
		b, err := scanS3Bucket(rows)
		if err != nil {
			return nil, errors.InternalServerErrorWrap(err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RecordingConfigDB handles database operations for recording configs.
type RecordingConfigDB struct{ db *sql.DB }

// NewRecordingConfigDB creates a new RecordingConfigDB instance.
func NewRecordingConfigDB(db *sql.DB) *RecordingConfigDB { return &RecordingConfigDB{db: db} }

const recordingConfigColumns = "id, organization_id, s3_bucket_id, renditions, tags, created_at, updated_at"

func scanRecordingConfig(row interface{ Scan(...interface{}) error }) (*models.RecordingConfig, error) {
	c := &models.RecordingConfig{}
	var renditions pq.StringArray
	if err := row.Scan(&c.ID, &c.OrganizationID, &c.S3BucketID, &renditions, &c.Tags, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Renditions = []string(renditions)
	return c, nil
}

// Get loads recording configs named by ids within orgID.
func (c *RecordingConfigDB) Get(ctx context.Context, orgID ids.ID, idList []ids.ID) ([]*models.RecordingConfig, error) {
	qb := querybuilder.New().Push("SELECT " + recordingConfigColumns + " FROM recording_configs WHERE ").OrganizationIDFilter(orgID).Push(" AND ").IDsFilter("id", idList)
	query, args := qb.Build()
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	defer rows.Close()
	out := []*models.RecordingConfig{}
	for rows.Next() {
		cfg, err := scanRecordingConfig(rows)
		if err != nil {
			return nil, errors.InternalServerErrorWrap(err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// Create inserts a new recording config row.
func (c *RecordingConfigDB) Create(ctx context.Context, cfg *models.RecordingConfig) (*models.RecordingConfig, error) {
	if cfg.ID.IsNil() {
		cfg.ID = ids.New()
	}
	if cfg.Tags == nil {
		cfg.Tags = models.Tags{}
	}
	qb := querybuilder.New().Push("INSERT INTO recording_configs (id, organization_id, s3_bucket_id, renditions, tags) VALUES (").
		PushBind(cfg.ID).Push(", ").PushBind(cfg.OrganizationID).Push(", ").PushBind(cfg.S3BucketID).Push(", ").
		PushBind(pq.Array(cfg.Renditions)).Push(", ").PushBind(cfg.Tags).Push(")").Returning(recordingConfigColumns)
	query, args := qb.Build()
	result, err := scanRecordingConfig(c.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	return result, nil
}

// Modify updates a recording config's bucket and rendition list.
func (c *RecordingConfigDB) Modify(ctx context.Context, orgID, cfgID ids.ID, bucketID ids.ID, renditions []string) (*models.RecordingConfig, error) {
	qb := querybuilder.New().Push("UPDATE recording_configs SET s3_bucket_id = ").PushBind(bucketID).
		Push(", renditions = ").PushBind(pq.Array(renditions)).
		Push(", updated_at = now() WHERE ").OrganizationIDFilter(orgID).Push(" AND id = ").PushBind(cfgID).
		Returning(recordingConfigColumns)
	query, args := qb.Build()
	result, err := scanRecordingConfig(c.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("recording_config")
		}
		return nil, errors.InternalServerErrorWrap(err)
	}
	return result, nil
}

// Delete removes recording configs by id, scoped to orgID.
func (c *RecordingConfigDB) Delete(ctx context.Context, orgID ids.ID, idList []ids.ID) ([]ids.ID, error) {
	qb := querybuilder.New().Push("DELETE FROM recording_configs WHERE ").OrganizationIDFilter(orgID).Push(" AND ").IDsFilter("id", idList).Returning("id")
	query, args := qb.Build()
	return deleteReturningIDs(ctx, c.db, query, args)
}

// MutateTags transactionally rewrites one config's tag map via mutate.
func (c *RecordingConfigDB) MutateTags(ctx context.Context, orgID, configID ids.ID, mutate func(models.Tags) (models.Tags, error)) (*models.RecordingConfig, error) {
	return mutateTags(ctx, c.db, "recording_configs", "recording_config", "", recordingConfigColumns, scanRecordingConfig, orgID, configID, mutate)
}

// PlaybackKeyPairDB handles database operations for playback key pairs.
type PlaybackKeyPairDB struct{ db *sql.DB }

// NewPlaybackKeyPairDB creates a new PlaybackKeyPairDB instance.
func NewPlaybackKeyPairDB(db *sql.DB) *PlaybackKeyPairDB { return &PlaybackKeyPairDB{db: db} }

const playbackKeyPairColumns = "id, organization_id, public_key, private_key, tags, created_at, updated_at"

func scanPlaybackKeyPair(row interface{ Scan(...interface{}) error }) (*models.PlaybackKeyPair, error) {
	k := &models.PlaybackKeyPair{}
	if err := row.Scan(&k.ID, &k.OrganizationID, &k.PublicKey, &k.PrivateKey, &k.Tags, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	return k, nil
}

// Get loads playback key pairs named by ids within orgID.
func (k *PlaybackKeyPairDB) Get(ctx context.Context, orgID ids.ID, idList []ids.ID) ([]*models.PlaybackKeyPair, error) {
	qb := querybuilder.New().Push("SELECT " + playbackKeyPairColumns + " FROM playback_key_pairs WHERE ").OrganizationIDFilter(orgID).Push(" AND ").IDsFilter("id", idList)
	query, args := qb.Build()
	rows, err := k.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	defer rows.Close()
	out := []*models.PlaybackKeyPair{}
	for rows.Next() {
		pair, err := scanPlaybackKeyPair(rows)
		if err != nil {
			return nil, errors.InternalServerErrorWrap(err)
		}
		out = append(out, pair)
	}
	return out, rows.Err()
}

// Create inserts a new playback key pair row.
func (k *PlaybackKeyPairDB) Create(ctx context.Context, pair *models.PlaybackKeyPair) (*models.PlaybackKeyPair, error) {
	if pair.ID.IsNil() {
		pair.ID = ids.New()
	}
	if pair.Tags == nil {
		pair.Tags = models.Tags{}
	}
	qb := querybuilder.New().Push("INSERT INTO playback_key_pairs (id, organization_id, public_key, private_key, tags) VALUES (").
		PushBind(pair.ID).Push(", ").PushBind(pair.OrganizationID).Push(", ").PushBind(pair.PublicKey).Push(", ").
		PushBind(pair.PrivateKey).Push(", ").PushBind(pair.Tags).Push(")").Returning(playbackKeyPairColumns)
	query, args := qb.Build()
	result, err := scanPlaybackKeyPair(k.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	return result, nil
}

// Modify rotates a key pair's key material in place, keeping its id and tags.
func (k *PlaybackKeyPairDB) Modify(ctx context.Context, orgID, pairID ids.ID, publicKey, privateKey string) (*models.PlaybackKeyPair, error) {
	qb := querybuilder.New().Push("UPDATE playback_key_pairs SET public_key = ").PushBind(publicKey).
		Push(", private_key = ").PushBind(privateKey).
		Push(", updated_at = now() WHERE ").OrganizationIDFilter(orgID).Push(" AND id = ").PushBind(pairID).
		Returning(playbackKeyPairColumns)
	query, args := qb.Build()
	result, err := scanPlaybackKeyPair(k.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("playback_key_pair")
		}
		return nil, errors.InternalServerErrorWrap(err)
	}
	return result, nil
}

// Delete removes playback key pairs by id, scoped to orgID.
func (k *PlaybackKeyPairDB) Delete(ctx context.Context, orgID ids.ID, idList []ids.ID) ([]ids.ID, error) {
	qb := querybuilder.New().Push("DELETE FROM playback_key_pairs WHERE ").OrganizationIDFilter(orgID).Push(" AND ").IDsFilter("id", idList).Returning("id")
	query, args := qb.Build()
	return deleteReturningIDs(ctx, k.db, query, args)
}

// MutateTags transactionally rewrites one key pair's tag map via mutate.
func (k *PlaybackKeyPairDB) MutateTags(ctx context.Context, orgID, pairID ids.ID, mutate func(models.Tags) (models.Tags, error)) (*models.PlaybackKeyPair, error) {
	return mutateTags(ctx, k.db, "playback_key_pairs", "playback_key_pair", "", playbackKeyPairColumns, scanPlaybackKeyPair, orgID, pairID, mutate)
}

// RecordingDB handles database operations for recordings, including the
// soft-delete + dependent-row purge internal/recordings drives.
type RecordingDB struct{ db *sql.DB }

// NewRecordingDB creates a new RecordingDB instance.
func NewRecordingDB(db *sql.DB) *RecordingDB { return &RecordingDB{db: db} }

const recordingColumns = "id, organization_id, room_id, recording_config_id, s3_bucket_id, tags, created_at, updated_at, deleted_at"

func scanRecording(row interface{ Scan(...interface{}) error }) (*models.Recording, error) {
	r := &models.Recording{}
	if err := row.Scan(&r.ID, &r.OrganizationID, &r.RoomID, &r.RecordingConfigID, &r.S3BucketID, &r.Tags, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt); err != nil {
		return nil, err
	}
	return r, nil
}

// Get loads non-deleted recordings named by ids within orgID.
func (r *RecordingDB) Get(ctx context.Context, orgID ids.ID, idList []ids.ID) ([]*models.Recording, error) {
	qb := querybuilder.New().Push("SELECT " + recordingColumns + " FROM recordings WHERE ").OrganizationIDFilter(orgID).
		Push(" AND ").IDsFilter("id", idList).Push(" AND deleted_at IS NULL")
	query, args := qb.Build()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	defer rows.Close()
	out := []*models.Recording{}
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, errors.InternalServerErrorWrap(err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MutateTags transactionally rewrites one recording's tag map via mutate.
// Soft-deleted recordings are excluded: tagging a deleted recording is
// NotFound, same as Get.
func (r *RecordingDB) MutateTags(ctx context.Context, orgID, recordingID ids.ID, mutate func(models.Tags) (models.Tags, error)) (*models.Recording, error) {
	return mutateTags(ctx, r.db, "recordings", "recording", " AND deleted_at IS NULL", recordingColumns, scanRecording, orgID, recordingID, mutate)
}

// mutateTags runs a transactional read-modify-write of one row's tag map:
// the current tags are read under SELECT ... FOR UPDATE, mutate computes the
// replacement map, and the UPDATE commits in the same transaction, so two
// concurrent tag calls on the same row serialize instead of one silently
// overwriting the other's merge.
func mutateTags[T any](
	ctx context.Context,
	sqlDB *sql.DB,
	table, resource, extraWhere, columns string,
	scan func(interface{ Scan(...interface{}) error }) (T, error),
	orgID, rowID ids.ID,
	mutate func(models.Tags) (models.Tags, error),
) (T, error) {
	var zero T

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return zero, errors.InternalServerErrorWrap(err)
	}
	defer tx.Rollback()

	qb := querybuilder.New().Push("SELECT tags FROM " + table + " WHERE ").OrganizationIDFilter(orgID).
		Push(" AND id = ").PushBind(rowID).Push(extraWhere).Push(" FOR UPDATE")
	query, args := qb.Build()
	var tags models.Tags
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&tags); err != nil {
		if err == sql.ErrNoRows {
			return zero, errors.NotFound(resource)
		}
		return zero, errors.InternalServerErrorWrap(err)
	}

	newTags, err := mutate(tags)
	if err != nil {
		return zero, err
	}

	qb = querybuilder.New().Push("UPDATE " + table + " SET tags = ").PushBind(newTags).
		Push(", updated_at = now() WHERE ").OrganizationIDFilter(orgID).
		Push(" AND id = ").PushBind(rowID).Push(extraWhere).Returning(columns)
	query, args = qb.Build()
	result, err := scan(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return zero, errors.InternalServerErrorWrap(err)
	}

	if err := tx.Commit(); err != nil {
		return zero, errors.InternalServerErrorWrap(err)
	}
	return result, nil
}

// deleteReturningIDs executes a DELETE ... RETURNING id and collects the ids
// actually removed, so callers can report which requested ids didn't exist.
func deleteReturningIDs(ctx context.Context, sqlDB *sql.DB, query string, args []interface{}) ([]ids.ID, error) {
	rows, err := sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	defer rows.Close()
	out := []ids.ID{}
	for rows.Next() {
		var id ids.ID
		if err := rows.Scan(&id); err != nil {
			return nil, errors.InternalServerErrorWrap(err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
