// Package domain defines the core entities of the message-flow engine:
// topics, subscriptions, subscription messages, and the filter language
// the publisher evaluates during fan-out.
package domain

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"
)

// MessageStatus is the closed set of states a SubscriptionMessage can be in.
type MessageStatus string

const (
	StatusAvailable MessageStatus = "available"
	StatusDelivered MessageStatus = "delivered"
	StatusAcked     MessageStatus = "acked"
	StatusDLQ       MessageStatus = "dlq"
)

// IdentifierPattern is the grammar shared by topic and subscription ids.
var IdentifierPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// ValidIdentifier reports whether id matches the topic/subscription grammar.
func ValidIdentifier(id string) bool {
	return IdentifierPattern.MatchString(id)
}

// Topic is a named channel publishers send messages to.
type Topic struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter is the JSON-object filter language evaluated during publish
// fan-out: each key names a payload field, each value is the allow-list of
// primitive values (compared as text) a message's field must appear in.
type Filter map[string][]any

// Subscription is a named durable queue over a topic.
type Subscription struct {
	ID                  string    `json:"id"`
	TopicID             string    `json:"topic_id"`
	Filter              Filter    `json:"filter,omitempty"`
	MaxDeliveryAttempts int       `json:"max_delivery_attempts"`
	BackoffMinSeconds   int       `json:"backoff_min_seconds"`
	BackoffMaxSeconds   int       `json:"backoff_max_seconds"`
	CreatedAt           time.Time `json:"created_at"`

	// Additive per-state counts, populated by Get/List, never persisted
	// as columns.
	Available int `json:"available,omitempty"`
	Delivered int `json:"delivered,omitempty"`
	Acked     int `json:"acked,omitempty"`
	DLQCount  int `json:"dlq,omitempty"`
}

// Message is one fan-out copy of a published envelope, owned by exactly one
// subscription.
type Message struct {
	ID               string          `json:"id"`
	SubscriptionID   string          `json:"subscription_id"`
	Payload          json.RawMessage `json:"payload"`
	Status           MessageStatus   `json:"status"`
	DeliveryAttempts int             `json:"delivery_attempts"`
	AvailableAt      time.Time       `json:"available_at"`
	LockedAt         *time.Time      `json:"locked_at,omitempty"`
	LockedBy         string          `json:"locked_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	AckedAt          *time.Time      `json:"acked_at,omitempty"`
}

// Metrics is the fixed per-subscription state-count record.
type Metrics struct {
	SubscriptionID string `json:"subscription_id"`
	Available      int64  `json:"available"`
	Delivered      int64  `json:"delivered"`
	Acked          int64  `json:"acked"`
	DLQ            int64  `json:"dlq"`
}

// MatchesFilter implements the publish-path filter contract: every key
// present in the filter must have its allow-list value set
// contain the text form of the corresponding payload field; a missing
// payload field never matches. A nil/empty filter (or one whose decoded
// value is not a JSON object) accepts every message.
func MatchesFilter(filter Filter, payload map[string]any) bool {
	for key, allowed := range filter {
		if allowed == nil {
			// A nil (non-array) filter value contributes no constraint.
			continue
		}
		values := stringForms(allowed)
		fieldValue, present := payload[key]
		if !present {
			return false
		}
		text := textForm(fieldValue)
		matched := false
		for _, v := range values {
			if v == text {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func stringForms(allowed []any) []string {
	out := make([]string, 0, len(allowed))
	for _, v := range allowed {
		out = append(out, textForm(v))
	}
	return out
}

// textForm reproduces the `payload->>key` text coercion of the historical
// stored procedure: numbers and booleans are rendered in their JSON text
// form, strings pass through unchanged.
func textForm(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return trimFloat(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func trimFloat(f float64) string {
	// Payload numbers decoded via encoding/json default to float64; render
	// integral values without a trailing ".0" to match the Postgres
	// numeric-to-text cast the filter contract is bit-exact with.
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
