package models

import "time"

// TaskStatus is the provider-reported state of a music generation task.
type TaskStatus string

const (
	TaskStatusPending      TaskStatus = "PENDING"
	TaskStatusTextReady    TaskStatus = "TEXT_SUCCESS"
	TaskStatusPartialReady TaskStatus = "FIRST_SUCCESS"
	TaskStatusComplete     TaskStatus = "SUCCESS"

	TaskStatusCreateTaskFailed    TaskStatus = "CREATE_TASK_FAILED"
	TaskStatusGenerateAudioFailed TaskStatus = "GENERATE_AUDIO_FAILED"
	TaskStatusCallbackException   TaskStatus = "CALLBACK_EXCEPTION"
	TaskStatusSensitiveWordError  TaskStatus = "SENSITIVE_WORD_ERROR"
)

// IsFailure reports whether the status is one of the terminal failure states.
func (s TaskStatus) IsFailure() bool {
	switch s {
	case TaskStatusCreateTaskFailed, TaskStatusGenerateAudioFailed,
		TaskStatusCallbackException, TaskStatusSensitiveWordError:
		return true
	}
	return false
}

// IsTerminal reports whether polling must stop. A terminal task is never revived.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusComplete || s.IsFailure()
}

// GenerationTask tracks one submitted music generation. Clients read it while
// the server polls the provider.
type GenerationTask struct {
	TaskID       string     `json:"task_id"`
	Status       TaskStatus `json:"status"`
	Attempt      int        `json:"attempt"`
	AudioURL     string     `json:"audio_url,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
