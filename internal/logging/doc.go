// Package logging provides structured logging for agentcrew runs.
//
// It wraps log/slog to write JSON lines to {state_dir}/logs/debug.log. Each
// driver run tags its entries with a run ID, and child loggers add the
// current phase, agent name and dev area so a run can be reconstructed
// afterwards with `agentcrew logs`.
//
// # Basic Usage
//
//	logger, err := logging.NewLoggerWithRotation(dir, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	devLog := logger.WithRun(runID).WithPhase("dev_sessions").WithArea("frontend")
//	devLog.Info("session finished", "status", "success")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"session finished","run_id":"...","phase":"dev_sessions","area":"frontend","status":"success"}
//
// # Log Rotation
//
// [RotatingWriter] moves debug.log aside once it would exceed MaxSizeMB.
// Backups are named debug.log.1 (newest) through debug.log.N, with a .gz
// suffix when compression is enabled.
//
// # Aggregation
//
// [AggregateLogs] reads the live log and every backup, and [FilterLogs]
// narrows the result by level, time window, run, phase, agent or area.
// [WriteEntries] renders entries as text, JSON or CSV.
//
// # Thread Safety
//
// [Logger] and [RotatingWriter] are safe for concurrent use. Child loggers
// created through the With* methods share the parent's writer.
package logging
