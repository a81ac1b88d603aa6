// Package alerts turns backend task and event snapshots into lead-time
// notifications.
//
// Every poll re-derives a due time per item and fires when the floored
// number of minutes left equals one of Thresholds (or zero, for
// reminders). Because polls are minute-aligned, each threshold matches on
// exactly one poll; a missed poll loses that alert for good.
package alerts
