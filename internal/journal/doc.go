// Package journal persists conversion outcomes to SQLite so history survives
// daemon restarts. The in-memory outcome ring stays the source for "recent"
// queries; the journal answers the long tail and the history command.
package journal
