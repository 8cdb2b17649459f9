package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stratumdb/controlplane/internal/model"
	"github.com/stratumdb/controlplane/internal/platform"
)

// LegalHoldChecker is the narrow view of the policy engine that deletion
// paths consult before honoring a delete.
type LegalHoldChecker interface {
	LegalHoldActive(ctx context.Context, clusterID string) (bool, error)
}

type PolicyService struct {
	db      DB
	presets PresetTable
	events  EventSink
}

func NewPolicyService(db DB, presets PresetTable, events EventSink) *PolicyService {
	return &PolicyService{db: db, presets: presets, events: events}
}

const policyColumns = `id, cluster_id, is_enabled, snapshot_frequency_hours, snapshot_retention_days,
	compliance_level, compliance_tags, retention_rules,
	pitr_enabled, pitr_retention_days, cross_region_enabled, cross_region_target,
	encryption_enabled, encryption_key_id, backup_window,
	alert_on_failure, alert_on_success, alert_recipients,
	legal_hold_enabled, legal_hold_reason, legal_hold_until,
	auto_export, updated_by, created_at, updated_at`

func scanPolicy(row pgx.Row) (*model.BackupPolicy, error) {
	var p model.BackupPolicy
	err := row.Scan(&p.ID, &p.ClusterID, &p.IsEnabled, &p.SnapshotFrequencyHours, &p.SnapshotRetentionDays,
		&p.ComplianceLevel, &p.ComplianceTags, &p.RetentionRules,
		&p.PITREnabled, &p.PITRRetentionDays, &p.CrossRegionEnabled, &p.CrossRegionTarget,
		&p.EncryptionEnabled, &p.EncryptionKeyID, &p.BackupWindow,
		&p.AlertOnFailure, &p.AlertOnSuccess, &p.AlertRecipients,
		&p.LegalHoldEnabled, &p.LegalHoldReason, &p.LegalHoldUntil,
		&p.AutoExport, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrCreate returns the cluster's policy, seeding one from the standard
// preset on first access. Existing rows are never modified by this call.
func (s *PolicyService) GetOrCreate(ctx context.Context, clusterID string) (*model.BackupPolicy, error) {
	standard, ok := s.presets[model.ComplianceLevelStandard]
	if !ok {
		return nil, fmt.Errorf("preset table has no %s entry", model.ComplianceLevelStandard)
	}

	now := time.Now()
	_, err := s.db.Exec(ctx,
		`INSERT INTO backup_policies (id, cluster_id, is_enabled, snapshot_frequency_hours, snapshot_retention_days,
		                              compliance_level, retention_rules, pitr_enabled, pitr_retention_days,
		                              cross_region_enabled, encryption_enabled, alert_on_failure, created_at, updated_at)
		 VALUES ($1, $2, true, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (cluster_id) DO NOTHING`,
		platform.NewID(), clusterID, standard.SnapshotFrequencyHours, standard.SnapshotRetentionDays,
		model.ComplianceLevelStandard, standard.RetentionRules, standard.PITREnabled, standard.PITRRetentionDays,
		standard.CrossRegionEnabled, standard.EncryptionEnabled, standard.AlertOnFailure, now, now,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, &NotFoundError{Resource: "cluster", ID: clusterID}
		}
		return nil, fmt.Errorf("seed backup policy for cluster %s: %w", clusterID, err)
	}

	policy, err := scanPolicy(s.db.QueryRow(ctx,
		`SELECT `+policyColumns+` FROM backup_policies WHERE cluster_id = $1`, clusterID))
	if err != nil {
		return nil, fmt.Errorf("get backup policy for cluster %s: %w", clusterID, err)
	}
	return policy, nil
}

// PolicyPatch holds the fields an update may change. Nil means leave as-is.
type PolicyPatch struct {
	IsEnabled              *bool
	SnapshotFrequencyHours *int
	SnapshotRetentionDays  *int
	ComplianceLevel        *string
	ComplianceTags         *[]string
	RetentionRules         *model.RetentionRules
	PITREnabled            *bool
	PITRRetentionDays      *int
	CrossRegionEnabled     *bool
	CrossRegionTarget      *string
	EncryptionEnabled      *bool
	EncryptionKeyID        *string
	BackupWindow           *model.BackupWindow
	AlertOnFailure         *bool
	AlertOnSuccess         *bool
	AlertRecipients        *[]string
	AutoExport             *model.AutoExport
}

// apply merges the patch into the policy and returns the changed field names.
func (p *PolicyPatch) apply(policy *model.BackupPolicy) []string {
	var changed []string
	set := func(name string, fn func()) {
		fn()
		changed = append(changed, name)
	}
	if p.IsEnabled != nil {
		set("is_enabled", func() { policy.IsEnabled = *p.IsEnabled })
	}
	if p.SnapshotFrequencyHours != nil {
		set("snapshot_frequency_hours", func() { policy.SnapshotFrequencyHours = *p.SnapshotFrequencyHours })
	}
	if p.SnapshotRetentionDays != nil {
		set("snapshot_retention_days", func() { policy.SnapshotRetentionDays = *p.SnapshotRetentionDays })
	}
	if p.ComplianceLevel != nil {
		set("compliance_level", func() { policy.ComplianceLevel = *p.ComplianceLevel })
	}
	if p.ComplianceTags != nil {
		set("compliance_tags", func() { policy.ComplianceTags = *p.ComplianceTags })
	}
	if p.RetentionRules != nil {
		set("retention_rules", func() { policy.RetentionRules = *p.RetentionRules })
	}
	if p.PITREnabled != nil {
		set("pitr_enabled", func() { policy.PITREnabled = *p.PITREnabled })
	}
	if p.PITRRetentionDays != nil {
		set("pitr_retention_days", func() { policy.PITRRetentionDays = *p.PITRRetentionDays })
	}
	if p.CrossRegionEnabled != nil {
		set("cross_region_enabled", func() { policy.CrossRegionEnabled = *p.CrossRegionEnabled })
	}
	if p.CrossRegionTarget != nil {
		set("cross_region_target", func() { policy.CrossRegionTarget = *p.CrossRegionTarget })
	}
	if p.EncryptionEnabled != nil {
		set("encryption_enabled", func() { policy.EncryptionEnabled = *p.EncryptionEnabled })
	}
	if p.EncryptionKeyID != nil {
		set("encryption_key_id", func() { policy.EncryptionKeyID = *p.EncryptionKeyID })
	}
	if p.BackupWindow != nil {
		set("backup_window", func() { policy.BackupWindow = p.BackupWindow })
	}
	if p.AlertOnFailure != nil {
		set("alert_on_failure", func() { policy.AlertOnFailure = *p.AlertOnFailure })
	}
	if p.AlertOnSuccess != nil {
		set("alert_on_success", func() { policy.AlertOnSuccess = *p.AlertOnSuccess })
	}
	if p.AlertRecipients != nil {
		set("alert_recipients", func() { policy.AlertRecipients = *p.AlertRecipients })
	}
	if p.AutoExport != nil {
		set("auto_export", func() { policy.AutoExport = p.AutoExport })
	}
	return changed
}

// validatePolicy checks the merged policy against the field bounds. The
// constraints are plain data checked before any write.
func validatePolicy(p *model.BackupPolicy) error {
	var fields []FieldError
	if p.SnapshotFrequencyHours < model.SnapshotFrequencyHoursMin || p.SnapshotFrequencyHours > model.SnapshotFrequencyHoursMax {
		fields = append(fields, FieldError{
			Field:   "snapshot_frequency_hours",
			Message: fmt.Sprintf("must be between %d and %d", model.SnapshotFrequencyHoursMin, model.SnapshotFrequencyHoursMax),
		})
	}
	if p.SnapshotRetentionDays < model.SnapshotRetentionDaysMin || p.SnapshotRetentionDays > model.SnapshotRetentionDaysMax {
		fields = append(fields, FieldError{
			Field:   "snapshot_retention_days",
			Message: fmt.Sprintf("must be between %d and %d", model.SnapshotRetentionDaysMin, model.SnapshotRetentionDaysMax),
		})
	}
	if p.PITRRetentionDays < model.PITRRetentionDaysMin || p.PITRRetentionDays > model.PITRRetentionDaysMax {
		fields = append(fields, FieldError{
			Field:   "pitr_retention_days",
			Message: fmt.Sprintf("must be between %d and %d", model.PITRRetentionDaysMin, model.PITRRetentionDaysMax),
		})
	}
	switch p.ComplianceLevel {
	case model.ComplianceLevelStandard, model.ComplianceLevelGDPR, model.ComplianceLevelHIPAA,
		model.ComplianceLevelPCIDSS, model.ComplianceLevelSOX, model.ComplianceLevelCustom:
	default:
		fields = append(fields, FieldError{Field: "compliance_level", Message: fmt.Sprintf("unknown level %q", p.ComplianceLevel)})
	}
	if w := p.BackupWindow; w != nil {
		if w.StartHour < 0 || w.StartHour > 23 {
			fields = append(fields, FieldError{Field: "backup_window.start_hour", Message: "must be between 0 and 23"})
		}
		if w.DurationHours < 1 || w.DurationHours > 24 {
			fields = append(fields, FieldError{Field: "backup_window.duration_hours", Message: "must be between 1 and 24"})
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Update merges only the provided fields into the cluster's policy.
func (s *PolicyService) Update(ctx context.Context, clusterID string, patch PolicyPatch, actor string) (*model.BackupPolicy, error) {
	policy, err := s.GetOrCreate(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	changed := patch.apply(policy)
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}
	policy.UpdatedBy = actor

	if err := s.writePolicy(ctx, policy); err != nil {
		return nil, err
	}

	s.events.Record(model.Event{
		ClusterID: clusterID,
		Type:      model.EventPolicyUpdated, Severity: model.SeverityInfo,
		Message:  fmt.Sprintf("backup policy updated by %s", actor),
		Metadata: map[string]any{"changed_fields": changed},
	})
	return policy, nil
}

// ApplyCompliancePreset overwrites every preset-governed field with the named
// preset's values and stamps the compliance level.
func (s *PolicyService) ApplyCompliancePreset(ctx context.Context, clusterID, presetName, actor string) (*model.BackupPolicy, error) {
	preset, ok := s.presets[presetName]
	if !ok {
		return nil, fmt.Errorf("preset %q: %w", presetName, ErrPresetNotFound)
	}

	policy, err := s.GetOrCreate(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	policy.IsEnabled = true
	policy.SnapshotFrequencyHours = preset.SnapshotFrequencyHours
	policy.SnapshotRetentionDays = preset.SnapshotRetentionDays
	policy.RetentionRules = preset.RetentionRules
	policy.PITREnabled = preset.PITREnabled
	policy.PITRRetentionDays = preset.PITRRetentionDays
	policy.CrossRegionEnabled = preset.CrossRegionEnabled
	policy.EncryptionEnabled = preset.EncryptionEnabled
	policy.AlertOnFailure = preset.AlertOnFailure
	policy.ComplianceLevel = presetName
	policy.UpdatedBy = actor

	if err := s.writePolicy(ctx, policy); err != nil {
		return nil, err
	}

	s.events.Record(model.Event{
		ClusterID: clusterID,
		Type:      model.EventPresetApplied, Severity: model.SeverityInfo,
		Message:  fmt.Sprintf("compliance preset %s applied by %s", presetName, actor),
		Metadata: map[string]any{"preset": presetName},
	})
	return policy, nil
}

// EnableLegalHold flags the cluster's backups as undeletable. The flag is
// enforced at deletion time, not written onto backup records.
func (s *PolicyService) EnableLegalHold(ctx context.Context, clusterID, reason string, until *time.Time, actor string) (*model.BackupPolicy, error) {
	if reason == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "reason", Message: "is required"}}}
	}

	policy, err := s.GetOrCreate(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	policy.LegalHoldEnabled = true
	policy.LegalHoldReason = reason
	policy.LegalHoldUntil = until
	policy.UpdatedBy = actor

	if err := s.writePolicy(ctx, policy); err != nil {
		return nil, err
	}

	s.events.Record(model.Event{
		ClusterID: clusterID,
		Type:      model.EventLegalHoldEnabled, Severity: model.SeverityWarning,
		Message:  fmt.Sprintf("legal hold enabled by %s: %s", actor, reason),
		Metadata: map[string]any{"reason": reason},
	})
	return policy, nil
}

// DisableLegalHold clears the hold flag.
func (s *PolicyService) DisableLegalHold(ctx context.Context, clusterID, actor string) (*model.BackupPolicy, error) {
	policy, err := s.GetOrCreate(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	policy.LegalHoldEnabled = false
	policy.LegalHoldReason = ""
	policy.LegalHoldUntil = nil
	policy.UpdatedBy = actor

	if err := s.writePolicy(ctx, policy); err != nil {
		return nil, err
	}

	s.events.Record(model.Event{
		ClusterID: clusterID,
		Type:      model.EventLegalHoldDisabled, Severity: model.SeverityInfo,
		Message:   fmt.Sprintf("legal hold disabled by %s", actor),
	})
	return policy, nil
}

// LegalHoldActive implements LegalHoldChecker. An expired hold (legalHoldUntil
// in the past) no longer blocks deletion. A cluster without a policy row has
// no hold.
func (s *PolicyService) LegalHoldActive(ctx context.Context, clusterID string) (bool, error) {
	var enabled bool
	var until *time.Time
	err := s.db.QueryRow(ctx,
		`SELECT legal_hold_enabled, legal_hold_until FROM backup_policies WHERE cluster_id = $1`,
		clusterID,
	).Scan(&enabled, &until)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get legal hold for cluster %s: %w", clusterID, err)
	}
	if !enabled {
		return false, nil
	}
	if until != nil && until.Before(time.Now()) {
		return false, nil
	}
	return true, nil
}

// ComplianceStatus evaluates the cluster's policy against the compliance
// rules. It is recomputed on every call from the stored policy.
func (s *PolicyService) ComplianceStatus(ctx context.Context, clusterID string) (*model.ComplianceStatus, error) {
	policy, err := s.GetOrCreate(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	return EvaluateCompliance(policy), nil
}

// EvaluateCompliance applies the compliance rules to a policy. All issues
// must be absent for the policy to be compliant; recommendations never block.
func EvaluateCompliance(policy *model.BackupPolicy) *model.ComplianceStatus {
	status := &model.ComplianceStatus{
		Level:           policy.ComplianceLevel,
		Issues:          []string{},
		Recommendations: []string{},
	}

	if !policy.EncryptionEnabled {
		status.Issues = append(status.Issues, "backup encryption is disabled")
	}
	if policy.SnapshotRetentionDays < 7 {
		status.Issues = append(status.Issues,
			fmt.Sprintf("snapshot retention is %d days, minimum is 7", policy.SnapshotRetentionDays))
	}
	if policy.AlertOnFailure && len(policy.AlertRecipients) == 0 {
		status.Issues = append(status.Issues, "failure alerting is enabled but no recipients are configured")
	}

	if policy.ComplianceLevel != model.ComplianceLevelStandard {
		if !policy.PITREnabled {
			status.Issues = append(status.Issues,
				fmt.Sprintf("point-in-time recovery must be enabled for %s compliance", policy.ComplianceLevel))
		}
		if !policy.AlertOnFailure {
			status.Recommendations = append(status.Recommendations, "enable failure alerting")
		}
	}
	if policy.ComplianceLevel == model.ComplianceLevelHIPAA && !policy.CrossRegionEnabled {
		status.Recommendations = append(status.Recommendations, "enable cross-region backup copies for HIPAA")
	}

	status.Compliant = len(status.Issues) == 0
	return status
}

// writePolicy persists every mutable policy column.
func (s *PolicyService) writePolicy(ctx context.Context, policy *model.BackupPolicy) error {
	_, err := s.db.Exec(ctx,
		`UPDATE backup_policies SET
		        is_enabled = $1, snapshot_frequency_hours = $2, snapshot_retention_days = $3,
		        compliance_level = $4, compliance_tags = $5, retention_rules = $6,
		        pitr_enabled = $7, pitr_retention_days = $8,
		        cross_region_enabled = $9, cross_region_target = $10,
		        encryption_enabled = $11, encryption_key_id = $12, backup_window = $13,
		        alert_on_failure = $14, alert_on_success = $15, alert_recipients = $16,
		        legal_hold_enabled = $17, legal_hold_reason = $18, legal_hold_until = $19,
		        auto_export = $20, updated_by = $21, updated_at = now()
		 WHERE cluster_id = $22`,
		policy.IsEnabled, policy.SnapshotFrequencyHours, policy.SnapshotRetentionDays,
		policy.ComplianceLevel, policy.ComplianceTags, policy.RetentionRules,
		policy.PITREnabled, policy.PITRRetentionDays,
		policy.CrossRegionEnabled, policy.CrossRegionTarget,
		policy.EncryptionEnabled, policy.EncryptionKeyID, policy.BackupWindow,
		policy.AlertOnFailure, policy.AlertOnSuccess, policy.AlertRecipients,
		policy.LegalHoldEnabled, policy.LegalHoldReason, policy.LegalHoldUntil,
		policy.AutoExport, policy.UpdatedBy, policy.ClusterID,
	)
	if err != nil {
		return fmt.Errorf("update backup policy for cluster %s: %w", policy.ClusterID, err)
	}
	return nil
}

// isForeignKeyViolation reports whether err is a Postgres foreign key
// violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
