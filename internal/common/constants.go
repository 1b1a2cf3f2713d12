package common

import "time"

const (
	// Compression presets, in descending quality order.
	PresetGoodEnough = "good_enough"
	PresetAggressive = "aggressive"
	PresetUltra      = "ultra"

	// DefaultPreset is the single preset used when no target size is given.
	DefaultPreset = PresetGoodEnough

	// Upload and validation limits
	MaxUploadBytes = 50 << 20
	RiskySizeBytes = 10 << 20

	// Artifact lifecycle
	ArtifactTTL   = 5 * time.Minute
	SweepInterval = 1 * time.Minute

	// External tool invocation
	ToolTimeout = 120 * time.Second

	// Bounded concurrency for multi-file intake
	MaxIntakeConcurrency = 4

	// File operation constants
	DefaultFilePermissions = 0o755
)

// PresetLadder returns the preset search order for target-size compression,
// highest quality first.
func PresetLadder() []string {
	return []string{PresetGoodEnough, PresetAggressive, PresetUltra}
}
