package core

import "github.com/stratumdb/controlplane/internal/model"

// CompliancePreset is a named bundle of policy values satisfying a regulatory
// profile. Applying one overwrites every field listed here; anything else on
// the policy is left untouched.
type CompliancePreset struct {
	SnapshotFrequencyHours int
	SnapshotRetentionDays  int
	RetentionRules         model.RetentionRules
	PITREnabled            bool
	PITRRetentionDays      int
	CrossRegionEnabled     bool
	EncryptionEnabled      bool
	AlertOnFailure         bool
}

// PresetTable maps preset names to their values. The table is injected at
// service construction so tests can supply alternates; it is not user-editable.
type PresetTable map[string]CompliancePreset

// DefaultPresets is the fixed preset table shipped with the platform.
func DefaultPresets() PresetTable {
	return PresetTable{
		model.ComplianceLevelStandard: {
			SnapshotFrequencyHours: 24,
			SnapshotRetentionDays:  7,
			RetentionRules:         model.RetentionRules{KeepDaily: 7, KeepWeekly: 4},
			PITREnabled:            false,
			PITRRetentionDays:      7,
			CrossRegionEnabled:     false,
			EncryptionEnabled:      true,
			// A seeded policy has no alert recipients yet, and alerting
			// without recipients fails compliance evaluation. Alerting is
			// opt-in for standard.
			AlertOnFailure: false,
		},
		model.ComplianceLevelGDPR: {
			SnapshotFrequencyHours: 12,
			SnapshotRetentionDays:  30,
			RetentionRules:         model.RetentionRules{KeepDaily: 30, KeepWeekly: 12, KeepMonthly: 12},
			PITREnabled:            true,
			PITRRetentionDays:      7,
			CrossRegionEnabled:     false,
			EncryptionEnabled:      true,
			AlertOnFailure:         true,
		},
		model.ComplianceLevelHIPAA: {
			SnapshotFrequencyHours: 6,
			SnapshotRetentionDays:  90,
			RetentionRules:         model.RetentionRules{KeepDaily: 90, KeepWeekly: 52, KeepMonthly: 84},
			PITREnabled:            true,
			PITRRetentionDays:      14,
			CrossRegionEnabled:     true,
			EncryptionEnabled:      true,
			AlertOnFailure:         true,
		},
		model.ComplianceLevelPCIDSS: {
			SnapshotFrequencyHours: 4,
			SnapshotRetentionDays:  90,
			RetentionRules:         model.RetentionRules{KeepDaily: 90, KeepWeekly: 52, KeepMonthly: 12},
			PITREnabled:            true,
			PITRRetentionDays:      14,
			CrossRegionEnabled:     false,
			EncryptionEnabled:      true,
			AlertOnFailure:         true,
		},
		model.ComplianceLevelSOX: {
			SnapshotFrequencyHours: 12,
			SnapshotRetentionDays:  365,
			RetentionRules:         model.RetentionRules{KeepDaily: 365, KeepWeekly: 260, KeepMonthly: 84},
			PITREnabled:            true,
			PITRRetentionDays:      30,
			CrossRegionEnabled:     false,
			EncryptionEnabled:      true,
			AlertOnFailure:         true,
		},
	}
}
