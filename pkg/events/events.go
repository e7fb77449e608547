// Package events defines the run and task lifecycle notifications
// published while a workflow executes.
package events

import (
	"time"

	"github.com/taskline/taskline/pkg/models"
)

type EventType string

// Topic is the event bus topic all run events are published to.
const Topic = "taskline.runs"

const EventKeyMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent  EventType = "run.started"
	RunFinishedEvent EventType = "run.finished"

	TaskStartedEvent  EventType = "task.started"
	TaskFinishedEvent EventType = "task.finished"
	TaskFailedEvent   EventType = "task.failed"
	TaskRetryingEvent EventType = "task.retrying"
	TaskSkippedEvent  EventType = "task.skipped"
)

// Event is anything publishable on the run topic.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	RunID      string         `json:"run_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type RunStarted struct {
	BaseEvent

	WorkflowName string `json:"workflow_name"`
	TaskCount    int    `json:"task_count"`
}

func (e RunStarted) GetType() EventType { return RunStartedEvent }

type RunFinished struct {
	BaseEvent

	Status   models.WorkflowStatus `json:"status"`
	Duration time.Duration         `json:"duration"`
}

func (e RunFinished) GetType() EventType { return RunFinishedEvent }

type TaskStarted struct {
	BaseEvent

	TaskID  string `json:"task_id"`
	Attempt int    `json:"attempt"`
}

func (e TaskStarted) GetType() EventType { return TaskStartedEvent }

type TaskFinished struct {
	BaseEvent

	TaskID   string        `json:"task_id"`
	Warning  string        `json:"warning,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (e TaskFinished) GetType() EventType { return TaskFinishedEvent }

type TaskFailed struct {
	BaseEvent

	TaskID    string `json:"task_id"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

func (e TaskFailed) GetType() EventType { return TaskFailedEvent }

type TaskRetrying struct {
	BaseEvent

	TaskID     string        `json:"task_id"`
	RetryCount int           `json:"retry_count"`
	RetryDelay time.Duration `json:"retry_delay"`
}

func (e TaskRetrying) GetType() EventType { return TaskRetryingEvent }

type TaskSkipped struct {
	BaseEvent

	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

func (e TaskSkipped) GetType() EventType { return TaskSkippedEvent }
