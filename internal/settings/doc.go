// Package settings is the typed view over the notifier's persisted
// configuration.
//
// Every value lives in a storage.Store as a string under a TELEGRAMNOTIFY_*
// key. Decode and Encode are the only places where those strings are
// converted; everything else works with a Snapshot, which is loaded once per
// dispatch and never changes afterwards.
package settings
