package pools

import "runtime/debug"

// GCConfig holds GC tuning parameters
type GCConfig struct {
	// GOGC sets the garbage collection target percentage.
	// Default is 100. Lower values = more frequent GC but less memory
	GOGC int

	// MemoryLimit sets a soft memory limit in bytes. 0 = no limit
	MemoryLimit int64
}

// ApplyGCConfig applies GC tuning to reduce GC pressure
func ApplyGCConfig(cfg GCConfig) {
	if cfg.GOGC > 0 {
		debug.SetGCPercent(cfg.GOGC)
	}

	if cfg.MemoryLimit > 0 {
		debug.SetMemoryLimit(cfg.MemoryLimit)
	}
}

// OptimizeForThroughput applies GC settings for accept-heavy workloads:
// pooled buffers keep the live set small, so a higher GOGC trades a little
// memory for fewer collection cycles.
func OptimizeForThroughput() {
	ApplyGCConfig(GCConfig{GOGC: 200})
}
