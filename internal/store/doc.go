// Package store provides SQLite-backed persistence for games: named save
// slots and a per-session action journal.
//
// # Save slots
//
// A slot holds one serialised state. Three names are used by the hosts:
//
//   - autosave: written periodically while a game runs
//   - manual: written only on request, never overwritten by autosave
//   - legacy: saves from older builds; LoadAutosave moves it into the
//     autosave slot the first time it is read
//
// # Journal
//
// A session records the state a Runner started from and every action it
// applied, stamped with the game's seq and the fingerprint of the
// resulting state. Ordering uses seq, never wall-clock time, so a journal
// replays identically anywhere.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
