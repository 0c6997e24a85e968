// Package notifier delivers a batch of Telegram messages with whole-batch
// retry and per-message pacing.
//
// # Retry
//
// A batch is attempted at most MaxRetries+1 times. Every attempt resends
// the entire batch, including messages that already went through on an
// earlier attempt, so a partial failure can produce duplicates. Attempts
// never overlap.
//
// # Pacing
//
// After each result of an attempt is evaluated the service waits the
// configured pacing delay (1s by default) to stay under the Bot API's
// per-second limits. A batch of N messages therefore costs at least N
// pacing delays per attempt.
//
// # History
//
// For operator visibility, the service keeps a small in-memory history of
// recent deliveries.
package notifier
