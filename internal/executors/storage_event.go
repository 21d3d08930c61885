// Package executors turns incoming deliveries into analysis workflow runs.
package executors

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
)

var (
	// ErrInvalidEvent is returned when a payload cannot be decoded into an image reference
	ErrInvalidEvent = errors.New("invalid storage event")

	// ErrIgnoredEvent is returned for notifications that are not object finalizations
	ErrIgnoredEvent = errors.New("ignored storage event")
)

// EventTypeFinalize is the notification type for a newly written object
const EventTypeFinalize = "OBJECT_FINALIZE"

// GCSEvent is the Cloud Storage object payload of a notification
type GCSEvent struct {
	Bucket         string    `json:"bucket"`
	Name           string    `json:"name"`
	ContentType    string    `json:"contentType,omitempty"`
	Metageneration string    `json:"metageneration,omitempty"`
	TimeCreated    time.Time `json:"timeCreated,omitempty"`
	Updated        time.Time `json:"updated,omitempty"`
}

// PushEnvelope is a Pub/Sub push delivery
type PushEnvelope struct {
	Message struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// DecodeStorageEvent accepts either a raw object notification or a Pub/Sub push
// envelope carrying one
func DecodeStorageEvent(payload []byte) (pipeline.ProcessRequest, error) {
	var probe struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return pipeline.ProcessRequest{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if len(probe.Message) > 0 {
		return decodePush(payload)
	}

	var event GCSEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return pipeline.ProcessRequest{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return event.request("storage")
}

func decodePush(payload []byte) (pipeline.ProcessRequest, error) {
	var env PushEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return pipeline.ProcessRequest{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	attrs := env.Message.Attributes
	if t, ok := attrs["eventType"]; ok && t != EventTypeFinalize {
		return pipeline.ProcessRequest{}, fmt.Errorf("%w: %s", ErrIgnoredEvent, t)
	}

	var event GCSEvent
	if env.Message.Data != "" {
		data, err := base64.StdEncoding.DecodeString(env.Message.Data)
		if err != nil {
			return pipeline.ProcessRequest{}, fmt.Errorf("%w: message data: %v", ErrInvalidEvent, err)
		}
		if err := json.Unmarshal(data, &event); err != nil {
			return pipeline.ProcessRequest{}, fmt.Errorf("%w: message data: %v", ErrInvalidEvent, err)
		}
	}

	// Notification attributes name the object even when the payload format is NONE
	if event.Bucket == "" {
		event.Bucket = attrs["bucketId"]
	}
	if event.Name == "" {
		event.Name = attrs["objectId"]
	}

	req, err := event.request("pubsub")
	if err != nil {
		return req, err
	}
	if env.Message.MessageID != "" {
		req.Metadata["message_id"] = env.Message.MessageID
	}
	return req, nil
}

func (e GCSEvent) request(source string) (pipeline.ProcessRequest, error) {
	if e.Bucket == "" || e.Name == "" {
		return pipeline.ProcessRequest{}, fmt.Errorf("%w: bucket and name are required", ErrInvalidEvent)
	}

	meta := map[string]string{"source": source}
	if e.ContentType != "" {
		meta["content_type"] = e.ContentType
	}
	if e.Metageneration != "" {
		meta["metageneration"] = e.Metageneration
	}

	return pipeline.ProcessRequest{
		Bucket:   e.Bucket,
		Name:     e.Name,
		Job:      pipeline.JobImageAnalysis,
		Metadata: meta,
	}, nil
}
