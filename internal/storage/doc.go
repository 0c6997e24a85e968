// Package storage persists notifier settings as plain string key/values.
//
// Values are stored exactly as given; type coercion belongs to the settings
// schema. Drivers:
//   - memory: process-local map
//   - file: JSON snapshot + append-only journal
//   - sqlite, postgres: a configuration(name, value, date_upd) table
//   - mysql: the shop's own <prefix>configuration table
//   - redis: one hash per installation
package storage
