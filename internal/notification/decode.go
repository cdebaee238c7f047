// Package notification unwraps the two envelope layers the worker receives: an SQS
// batch whose message bodies are S3 event notifications.
package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// ErrEmptyBatch is returned for an SQS event without messages. The whole
// invocation fails so the queue redelivers.
var ErrEmptyBatch = errors.New("empty notification batch")

// ObjectCreated is one storage-write notification.
type ObjectCreated struct {
	EventName string
	Bucket    string
	// Key is URL-decoded.
	Key  string
	Size int64
}

// Message is one decoded SQS message. Err is set when the body could not be
// decoded; such a message fails on its own, without affecting its siblings.
type Message struct {
	MessageID    string
	ReceiveCount int
	Objects      []ObjectCreated
	// Ignored counts records that are not object-created events.
	Ignored int
	Err     error
}

// Decode performs both stages: the outer SQS batch, then each body.
func Decode(evt events.SQSEvent) ([]Message, error) {
	if len(evt.Records) == 0 {
		return nil, ErrEmptyBatch
	}

	out := make([]Message, 0, len(evt.Records))
	for _, rec := range evt.Records {
		msg := Message{
			MessageID:    rec.MessageId,
			ReceiveCount: receiveCount(rec),
		}
		objs, ignored, err := DecodeBody(rec.Body)
		if err != nil {
			msg.Err = fmt.Errorf("message %s: %w", rec.MessageId, err)
		}
		msg.Objects = objs
		msg.Ignored = ignored
		out = append(out, msg)
	}
	return out, nil
}

// DecodeBody decodes an S3 event notification. A test event (no records)
// yields no objects and no error.
func DecodeBody(body string) (objs []ObjectCreated, ignored int, err error) {
	if strings.TrimSpace(body) == "" {
		return nil, 0, errors.New("empty message body")
	}

	var s3evt events.S3Event
	if err := json.Unmarshal([]byte(body), &s3evt); err != nil {
		return nil, 0, fmt.Errorf("decode s3 event: %w", err)
	}

	for _, r := range s3evt.Records {
		if !strings.HasPrefix(r.EventName, "ObjectCreated:") {
			ignored++
			continue
		}
		key, err := url.QueryUnescape(r.S3.Object.Key)
		if err != nil {
			return nil, 0, fmt.Errorf("decode object key %q: %w", r.S3.Object.Key, err)
		}
		objs = append(objs, ObjectCreated{
			EventName: r.EventName,
			Bucket:    r.S3.Bucket.Name,
			Key:       key,
			Size:      r.S3.Object.Size,
		})
	}
	return objs, ignored, nil
}

func receiveCount(rec events.SQSMessage) int {
	n, err := strconv.Atoi(rec.Attributes["ApproximateReceiveCount"])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
