package request

import (
	"time"

	"github.com/stratumdb/controlplane/internal/model"
)

// UpdatePolicy is a partial update: nil fields are left untouched. Range and
// cross-field checks live in the service, which owns the policy invariants;
// the tags here only reject clearly malformed input early.
type UpdatePolicy struct {
	IsEnabled              *bool                 `json:"is_enabled,omitempty"`
	SnapshotFrequencyHours *int                  `json:"snapshot_frequency_hours,omitempty" validate:"omitempty,min=1,max=168"`
	SnapshotRetentionDays  *int                  `json:"snapshot_retention_days,omitempty" validate:"omitempty,min=1,max=365"`
	ComplianceLevel        *string               `json:"compliance_level,omitempty" validate:"omitempty,oneof=standard gdpr hipaa pci-dss sox"`
	ComplianceTags         *[]string             `json:"compliance_tags,omitempty"`
	RetentionRules         *model.RetentionRules `json:"retention_rules,omitempty"`
	PITREnabled            *bool                 `json:"pitr_enabled,omitempty"`
	PITRRetentionDays      *int                  `json:"pitr_retention_days,omitempty" validate:"omitempty,min=1,max=35"`
	CrossRegionEnabled     *bool                 `json:"cross_region_enabled,omitempty"`
	CrossRegionTarget      *string               `json:"cross_region_target,omitempty"`
	EncryptionEnabled      *bool                 `json:"encryption_enabled,omitempty"`
	EncryptionKeyID        *string               `json:"encryption_key_id,omitempty"`
	BackupWindow           *model.BackupWindow   `json:"backup_window,omitempty"`
	AlertOnFailure         *bool                 `json:"alert_on_failure,omitempty"`
	AlertOnSuccess         *bool                 `json:"alert_on_success,omitempty"`
	AlertRecipients        *[]string             `json:"alert_recipients,omitempty"`
	AutoExport             *model.AutoExport     `json:"auto_export,omitempty"`
	Actor                  string                `json:"actor,omitempty"`
}

type ApplyPreset struct {
	Preset string `json:"preset" validate:"required"`
	Actor  string `json:"actor,omitempty"`
}

type EnableLegalHold struct {
	Reason string     `json:"reason" validate:"required"`
	Until  *time.Time `json:"until,omitempty"`
	Actor  string     `json:"actor,omitempty"`
}

type DisableLegalHold struct {
	Actor string `json:"actor,omitempty"`
}
