package websocket

import (
	"encoding/json"
	"time"
)

// TopicPriorAuth is the topic carrying every authorization status change.
// Per-request updates go out on TopicForRequest as well, so a client can
// watch a single authorization without receiving the full stream.
const TopicPriorAuth = "prior-auth"

func TopicForRequest(requestID string) string {
	return TopicPriorAuth + "/" + requestID
}

type statusChangedPayload struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// NewStatusChangedEvent builds the event broadcast when an authorization
// request changes status.
func NewStatusChangedEvent(requestID, status string) Event {
	data, _ := json.Marshal(statusChangedPayload{RequestID: requestID, Status: status})
	return Event{
		Type:         "status-changed",
		Topic:        TopicPriorAuth,
		ResourceType: "PriorAuthorizationRequest",
		ResourceID:   requestID,
		Timestamp:    time.Now().UTC(),
		Data:         data,
	}
}

// PublishStatusChange broadcasts a status change on both the firehose topic
// and the per-request topic.
func (h *Hub) PublishStatusChange(requestID, status string) {
	event := NewStatusChangedEvent(requestID, status)
	h.Broadcast(TopicPriorAuth, event)
	event.Topic = TopicForRequest(requestID)
	h.Broadcast(event.Topic, event)
}
