// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package notify delivers account notifications out of band.

The API never waits on mail delivery. A request enqueues a job and moves on;
the worker binary drains the queue and sends the email.

Pipeline:

	service -> Dispatcher (buffered channel) -> RedisQueue (list) -> Worker -> Handler

Delivery is at-least-once: a job leaves Redis only after its handler
succeeds, exhausts its retries, or is found malformed.
*/
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// # Job Kinds

// Kind names the notification a job carries.
type Kind string

const (
	KindEmailVerification Kind = "EMAIL_VERIFICATION"
	KindPasswordReset     Kind = "PASSWORD_RESET"
	KindPasswordChanged   Kind = "PASSWORD_CHANGED"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindEmailVerification, KindPasswordReset, KindPasswordChanged:
		return true
	default:
		return false
	}
}

// # Job Envelope

// Payload is the data a notification needs. Token is empty for
// [KindPasswordChanged].
type Payload struct {
	Email string `json:"email"`
	Token string `json:"token,omitempty"`
}

// Job is the unit stored in the queue.
type Job struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Payload    Payload   `json:"payload"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// NewJob stamps a fresh job with a ULID so that ids sort by enqueue time.
func NewJob(kind Kind, payload Payload, now time.Time) Job {
	return Job{
		ID:         ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: now.UTC(),
	}
}

// Encode serializes the job for storage.
func (job Job) Encode() (string, error) {
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("notify: failed to encode job %s: %w", job.ID, err)
	}
	return string(raw), nil
}

// DecodeJob parses a stored job and rejects unknown kinds.
func DecodeJob(raw string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return Job{}, fmt.Errorf("notify: malformed job: %w", err)
	}
	if !job.Kind.Valid() {
		return Job{}, fmt.Errorf("notify: unknown job kind %q", job.Kind)
	}
	return job, nil
}

// Backoff returns the delay before retrying after the given failed attempt:
// base, 2*base, 4*base and so on.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}
