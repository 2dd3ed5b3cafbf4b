package models

import (
	"time"

	"github.com/scuffle-video/api/internal/ids"
)

// Taggable is satisfied by every resource row the dispatcher's Tag/Untag
// verbs operate over.
type Taggable interface {
	GetID() ids.ID
	GetTags() Tags
	SetTags(Tags)
}

// S3Bucket describes where a recording's media objects live.
type S3Bucket struct {
	ID             ids.ID    `json:"id" db:"id"`
	OrganizationID ids.ID    `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Region         string    `json:"region" db:"region"`
	Endpoint       string    `json:"endpoint" db:"endpoint"`
	Tags           Tags      `json:"tags" db:"tags"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

func (b *S3Bucket) GetID() ids.ID      { return b.ID }
func (b *S3Bucket) GetTags() Tags      { return b.Tags }
func (b *S3Bucket) SetTags(tags Tags)  { b.Tags = tags }

// RecordingConfig is a reusable template describing how a room's recordings
// should be produced (renditions, destination bucket).
type RecordingConfig struct {
	ID             ids.ID    `json:"id" db:"id"`
	OrganizationID ids.ID    `json:"organization_id" db:"organization_id"`
	S3BucketID     ids.ID    `json:"s3_bucket_id" db:"s3_bucket_id"`
	Renditions     []string  `json:"renditions" db:"renditions"`
	Tags           Tags      `json:"tags" db:"tags"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

func (c *RecordingConfig) GetID() ids.ID     { return c.ID }
func (c *RecordingConfig) GetTags() Tags     { return c.Tags }
func (c *RecordingConfig) SetTags(tags Tags) { c.Tags = tags }

// PlaybackKeyPair signs playback session tokens for a recording's viewers.
type PlaybackKeyPair struct {
	ID             ids.ID    `json:"id" db:"id"`
	OrganizationID ids.ID    `json:"organization_id" db:"organization_id"`
	PublicKey      string    `json:"public_key" db:"public_key"`
	PrivateKey     string    `json:"-" db:"private_key"`
	Tags           Tags      `json:"tags" db:"tags"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

func (k *PlaybackKeyPair) GetID() ids.ID     { return k.ID }
func (k *PlaybackKeyPair) GetTags() Tags     { return k.Tags }
func (k *PlaybackKeyPair) SetTags(tags Tags) { k.Tags = tags }

// Recording is a completed or in-progress capture of a room. Deletion is
// soft: deleted_at is set and the row is disassociated from its room and
// config, but the row itself persists so clients can still see "ids" /
// "failed_deletes" results and so the async cleanup pipeline has something
// to drive off of.
type Recording struct {
	ID                ids.ID     `json:"id" db:"id"`
	OrganizationID    ids.ID     `json:"organization_id" db:"organization_id"`
	RoomID            *ids.ID    `json:"room_id,omitempty" db:"room_id"`
	RecordingConfigID *ids.ID    `json:"recording_config_id,omitempty" db:"recording_config_id"`
	S3BucketID        ids.ID     `json:"s3_bucket_id" db:"s3_bucket_id"`
	Tags              Tags       `json:"tags" db:"tags"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (r *Recording) GetID() ids.ID     { return r.ID }
func (r *Recording) GetTags() Tags     { return r.Tags }
func (r *Recording) SetTags(tags Tags) { r.Tags = tags }

// PlaybackSession tracks a single viewer's active playback of a recording.
type PlaybackSession struct {
	ID             ids.ID    `json:"id" db:"id"`
	OrganizationID ids.ID    `json:"organization_id" db:"organization_id"`
	RecordingID    ids.ID    `json:"recording_id" db:"recording_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Rendition is an audio or video quality variant of a recording.
type Rendition string

const (
	RenditionAudioSource Rendition = "audio_source"
	RenditionVideoSource Rendition = "video_source"
	RenditionVideo1080p  Rendition = "video_1080p"
	RenditionVideo720p   Rendition = "video_720p"
	RenditionVideo480p   Rendition = "video_480p"
	RenditionVideo360p   Rendition = "video_360p"
)

// RecordingRendition is a produced rendition track belonging to a recording.
type RecordingRendition struct {
	ID          ids.ID    `json:"id" db:"id"`
	RecordingID ids.ID    `json:"recording_id" db:"recording_id"`
	Rendition   Rendition `json:"rendition" db:"rendition"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// RecordingThumbnail is a single still-image child object of a recording,
// ordered by Idx.
type RecordingThumbnail struct {
	ID          ids.ID `json:"id" db:"id"`
	RecordingID ids.ID `json:"recording_id" db:"recording_id"`
	Idx         int32  `json:"idx" db:"idx"`
}

// RecordingRenditionSegment is a single media segment belonging to one
// rendition of a recording, ordered by Idx within (RecordingID, Rendition).
type RecordingRenditionSegment struct {
	ID          ids.ID    `json:"id" db:"id"`
	RecordingID ids.ID    `json:"recording_id" db:"recording_id"`
	Rendition   Rendition `json:"rendition" db:"rendition"`
	Idx         int32     `json:"idx" db:"idx"`
}

// BatchObjectTypes identifies which child-object class a
// RecordingDeleteBatchTask batch describes.
type BatchObjectTypes struct {
	Thumbnails bool
	Rendition  Rendition // only meaningful when Thumbnails is false
}

// BatchObject is one object within a RecordingDeleteBatchTask batch.
type BatchObject struct {
	Index    int32  `json:"index"`
	ObjectID ids.ID `json:"object_id"`
}

// RecordingDeleteBatchTask is the message published to the object-storage
// cleanup stream once a recording's database rows have been removed. Each
// task carries one contiguous run of objects that share both RecordingID and
// ObjectTypes; the publisher flushes and starts a new task the moment either
// changes, rather than batching a whole recording into one message.
type RecordingDeleteBatchTask struct {
	RecordingID ids.ID           `json:"recording_id"`
	S3BucketID  ids.ID           `json:"s3_bucket_id"`
	ObjectTypes BatchObjectTypes `json:"object_types"`
	Objects     []BatchObject    `json:"objects"`
}
