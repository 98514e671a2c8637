package models

import (
	"time"

	"github.com/google/uuid"
)

// FunctionCallStatus is the terminal-once lifecycle of a tool invocation.
type FunctionCallStatus string

const (
	FunctionCallExecuting FunctionCallStatus = "executing"
	FunctionCallCompleted FunctionCallStatus = "completed"
	FunctionCallFailed    FunctionCallStatus = "failed"
)

// FunctionCallLog records one built-in or custom tool invocation.
// Created with status=executing at call time, updated exactly once to
// a terminal status.
type FunctionCallLog struct {
	BaseModel

	CallID       *uuid.UUID         `gorm:"type:uuid;index" json:"call_id,omitempty"`
	FunctionName string             `gorm:"not null" json:"function_name"`
	Arguments    JSONMap            `gorm:"type:jsonb" json:"arguments"`
	Result       JSONMap            `gorm:"type:jsonb" json:"result,omitempty"`
	Status       FunctionCallStatus `gorm:"not null;default:executing" json:"status"`
	ErrorMessage string             `json:"error_message,omitempty"`
	ExecutedAt   time.Time          `gorm:"not null" json:"executed_at"`
}
