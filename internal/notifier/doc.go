// Package notifier delivers alert messages asynchronously.
//
// Notifications go through a bounded queue to a small worker pool. Sends are
// rate limited with a token bucket and identical notifications inside the
// dedup window are suppressed; the dedup state can be persisted through
// storage so a restart inside the same minute does not repeat an alert.
// Failed sends are retried only when RetryMax > 0 (default 0).
package notifier
