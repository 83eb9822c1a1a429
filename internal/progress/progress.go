// Package progress defines the typed progress events emitted by long-running
// pipelines (§6). Consumers (the CLI, or an embedding shell) receive them on
// a channel; nil Sink values are allowed and simply drop events.
package progress

import "time"

// Status is the lifecycle status carried by every progress event.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
	StatusComplete   Status = "complete"
)

// AIProgress reports analyze-step progress, one event per processed item.
type AIProgress struct {
	Current   int
	Total     int
	NodeTitle string
	NewTitle  string
	Emoji     string
	Status    Status
	Elapsed   time.Duration
	Estimate  time.Duration
	Remaining time.Duration
}

// PrivacyProgress reports privacy-scan progress, analogous to AIProgress.
type PrivacyProgress struct {
	Current   int
	Total     int
	NodeTitle string
	IsPrivate bool
	Status    Status
	Elapsed   time.Duration
}

// LogLevel classifies a HierarchyLog line.
type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

// HierarchyLog reports a free-text progress line from the hierarchy builder.
type HierarchyLog struct {
	Message string
	Level   LogLevel
}

// Sink receives progress events. All three Emit methods accept a nil
// receiver as a no-op, so pipelines can be called with sink == nil when no
// consumer cares.
type Sink struct {
	AI        chan<- AIProgress
	Privacy   chan<- PrivacyProgress
	Hierarchy chan<- HierarchyLog
}

func (s *Sink) EmitAI(e AIProgress) {
	if s == nil || s.AI == nil {
		return
	}
	select {
	case s.AI <- e:
	default:
	}
}

func (s *Sink) EmitPrivacy(e PrivacyProgress) {
	if s == nil || s.Privacy == nil {
		return
	}
	select {
	case s.Privacy <- e:
	default:
	}
}

func (s *Sink) EmitHierarchy(msg string, level LogLevel) {
	if s == nil || s.Hierarchy == nil {
		return
	}
	select {
	case s.Hierarchy <- HierarchyLog{Message: msg, Level: level}:
	default:
	}
}
