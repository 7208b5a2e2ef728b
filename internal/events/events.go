// Package events defines the status events the scan pipeline emits and the
// bus the shell subscribes to. The pipeline never calls presentation code
// directly; every outcome, including failures, crosses this boundary as an
// event.
package events

import (
	"time"

	"turnstile/internal/record"
)

// Type identifies the kind of status event.
type Type string

const (
	TypeSessionStarted Type = "session_started"
	TypeSessionStopped Type = "session_stopped"
	TypeRecognized     Type = "recognized"
	TypeSuppressed     Type = "suppressed"
	TypeQueueFull      Type = "queue_full"
	TypeWriteOK        Type = "write_ok"
	TypeWriteFailed    Type = "write_failed"
	TypeSpooled        Type = "spooled"
	TypeSpoolDrained   Type = "spool_drained"
	TypeCameraError    Type = "camera_error"
	TypeCameraAttached Type = "camera_attached"
	TypeCameraDetached Type = "camera_detached"
)

// Event is one observable pipeline outcome.
type Event struct {
	Type   Type           `json:"type"`
	At     time.Time      `json:"at"`
	Record *record.Record `json:"record,omitempty"`
	Key    string         `json:"key,omitempty"`
	Reason string         `json:"reason,omitempty"`
	Count  int            `json:"count,omitempty"`
}

func now() time.Time { return time.Now() }

// SessionStarted signals a new scan session with its identifier.
func SessionStarted(sessionID string) Event {
	return Event{Type: TypeSessionStarted, At: now(), Key: sessionID}
}

// SessionStopped signals the cooperative end of a session.
func SessionStopped(sessionID string) Event {
	return Event{Type: TypeSessionStopped, At: now(), Key: sessionID}
}

// Recognized signals an accepted scan entering the write queue.
func Recognized(rec record.Record) Event {
	return Event{Type: TypeRecognized, At: now(), Record: &rec}
}

// Suppressed signals a duplicate detection within the cooldown window.
func Suppressed(key string) Event {
	return Event{Type: TypeSuppressed, At: now(), Key: key}
}

// QueueFull signals records lost to the drop-oldest overflow policy.
func QueueFull(count int) Event {
	return Event{Type: TypeQueueFull, At: now(), Count: count}
}

// WriteOK signals a record appended to the remote store.
func WriteOK(rec record.Record) Event {
	return Event{Type: TypeWriteOK, At: now(), Record: &rec}
}

// WriteFailed signals a record dropped from the pipeline after retry
// exhaustion or a permanent store error.
func WriteFailed(rec record.Record, reason string) Event {
	return Event{Type: TypeWriteFailed, At: now(), Record: &rec, Reason: reason}
}

// Spooled signals records persisted to the offline spool.
func Spooled(count int, reason string) Event {
	return Event{Type: TypeSpooled, At: now(), Count: count, Reason: reason}
}

// SpoolDrained signals spooled records re-entering the write queue.
func SpoolDrained(count int) Event {
	return Event{Type: TypeSpoolDrained, At: now(), Count: count}
}

// CameraError signals a fatal capture device failure; the capture task
// halts until the session is restarted.
func CameraError(reason string) Event {
	return Event{Type: TypeCameraError, At: now(), Reason: reason}
}

// CameraAttached signals hotplug arrival of the configured capture device.
func CameraAttached(device string) Event {
	return Event{Type: TypeCameraAttached, At: now(), Key: device}
}

// CameraDetached signals hotplug removal of the configured capture device.
func CameraDetached(device string) Event {
	return Event{Type: TypeCameraDetached, At: now(), Key: device}
}
