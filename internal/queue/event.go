package queue

import (
	"encoding/json"
	"fmt"

	"github.com/shineum/mail-digest/internal/storage"
)

// ObjectRef identifies one S3 object named by an event notification.
// The key has already been URL-decoded.
type ObjectRef struct {
	Bucket string
	Key    string
}

// s3Event mirrors the S3 event notification JSON delivered to SQS.
type s3Event struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`

	// Message carries the inner payload when the event arrives wrapped
	// in an SNS envelope.
	Message string `json:"Message"`
}

// ParseEvent extracts the object references from an S3 event notification
// body. SNS-wrapped notifications are unwrapped one level. A body with no
// records is an error: such messages should be reported and dropped.
func ParseEvent(body []byte) ([]ObjectRef, error) {
	var event s3Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to parse event body: %w", err)
	}

	if len(event.Records) == 0 && event.Message != "" {
		return ParseEvent([]byte(event.Message))
	}
	if len(event.Records) == 0 {
		return nil, fmt.Errorf("event contains no records")
	}

	refs := make([]ObjectRef, 0, len(event.Records))
	for _, rec := range event.Records {
		refs = append(refs, ObjectRef{
			Bucket: rec.S3.Bucket.Name,
			Key:    storage.DecodeKey(rec.S3.Object.Key),
		})
	}
	return refs, nil
}
