// Package schedule triggers named jobs on cron specs (robfig/cron).
//
// Jobs are upserted by name, recovered on panic and never overlap with a
// still-running invocation of themselves. Each run gets a context derived
// from the one passed to Start, bounded by the job's timeout.
package schedule
