package events

// SubjectRecordingDeleteBatch is the NATS subject the storage-cleanup
// worker consumes to delete a recording's S3 objects.
const SubjectRecordingDeleteBatch = "recording_delete_stream"
