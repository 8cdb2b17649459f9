package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for precondition and conflict failures. Handlers map these
// to HTTP statuses with errors.Is; none of them are retried automatically.
var (
	// ErrClusterNotReady means the cluster is not in a state that tolerates
	// a backup or restore.
	ErrClusterNotReady = errors.New("cluster is not ready for backup")

	// ErrBackupInProgress means another backup for the same cluster is
	// already pending or in progress.
	ErrBackupInProgress = errors.New("a backup is already in progress for this cluster")

	// ErrBackupNotCompleted means a restore was requested from a backup
	// that never completed.
	ErrBackupNotCompleted = errors.New("backup is not in completed state")

	// ErrBackupActive means a delete was requested while the backup is
	// pending, in progress, or serving a restore.
	ErrBackupActive = errors.New("backup is active and cannot be deleted")

	// ErrLegalHold means the cluster's policy has a legal hold and its
	// backups must not be deleted.
	ErrLegalHold = errors.New("cluster backups are under legal hold")

	// ErrRestorePointOutOfRange means the requested timestamp falls outside
	// the cluster's available restore window.
	ErrRestorePointOutOfRange = errors.New("restore point is outside the available restore window")

	// ErrRestoreTerminal means the restore already reached a terminal state.
	ErrRestoreTerminal = errors.New("restore is already in a terminal state")

	// ErrPresetNotFound means an unknown compliance preset name was given.
	ErrPresetNotFound = errors.New("compliance preset not found")
)

// NotFoundError marks a missing cluster, backup, restore, or policy.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError collects field-level input violations. The constraints are
// plain data checked before any write.
type ValidationError struct {
	Fields []FieldError
}

// FieldError is one violated constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msg := "validation failed:"
	for _, f := range e.Fields {
		msg += fmt.Sprintf(" %s: %s;", f.Field, f.Message)
	}
	return msg[:len(msg)-1]
}

// ProvisioningError wraps a synchronous enqueue failure after the local
// record was rolled back.
type ProvisioningError struct {
	Err error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning request failed: %v", e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }
