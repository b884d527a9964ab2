package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/matter/internal/state"
)

// Slot names used by the hosts.
const (
	SlotAutosave = "autosave"
	SlotManual   = "manual"
	SlotLegacy   = "legacy"
)

// Slot is one stored save.
type Slot struct {
	Name        string
	Data        string
	Fingerprint string
	GameTime    float64
	// Seq is the game's transition count when the slot was written.
	Seq int64
	// SessionID links the save to the journal session that produced it,
	// if any.
	SessionID string
}

// NewSlot serialises s for storage under name.
func NewSlot(name string, s state.SavedState, seq int64) (Slot, error) {
	data, err := state.Serialize(s)
	if err != nil {
		return Slot{}, err
	}
	fp, err := state.Fingerprint(s)
	if err != nil {
		return Slot{}, err
	}
	return Slot{
		Name:        name,
		Data:        data,
		Fingerprint: fp,
		GameTime:    s.Narrative.GameTime,
		Seq:         seq,
	}, nil
}

// WriteSlot creates or replaces the slot named slot.Name.
func (s *Store) WriteSlot(ctx context.Context, slot Slot) error {
	if slot.Name == "" {
		return fmt.Errorf("write slot: empty name")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saves (slot, data, fingerprint, game_time, seq, session_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			data = excluded.data,
			fingerprint = excluded.fingerprint,
			game_time = excluded.game_time,
			seq = excluded.seq,
			session_id = excluded.session_id
	`,
		slot.Name,
		slot.Data,
		slot.Fingerprint,
		slot.GameTime,
		slot.Seq,
		nullString(slot.SessionID),
	)
	if err != nil {
		return fmt.Errorf("write slot %s: %w", slot.Name, err)
	}
	return nil
}

// ReadSlot returns the named slot. ok is false if it does not exist.
func (s *Store) ReadSlot(ctx context.Context, name string) (Slot, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT slot, data, fingerprint, game_time, seq, session_id
		FROM saves
		WHERE slot = ?
	`, name)

	slot, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Slot{}, false, nil
	}
	if err != nil {
		return Slot{}, false, fmt.Errorf("read slot %s: %w", name, err)
	}
	return slot, true, nil
}

// HasSlot reports whether the named slot exists.
func (s *Store) HasSlot(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saves WHERE slot = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has slot %s: %w", name, err)
	}
	return n > 0, nil
}

// DeleteSlot removes the named slot. Deleting a missing slot is not an
// error.
func (s *Store) DeleteSlot(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, name); err != nil {
		return fmt.Errorf("delete slot %s: %w", name, err)
	}
	return nil
}

// ListSlots returns every slot ordered by name.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSlots(ctx context.Context) ([]Slot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot, data, fingerprint, game_time, seq, session_id
		FROM saves
		ORDER BY slot COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	slots := []Slot{}
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}

// LoadAutosave returns the autosave slot. If there is none but a legacy
// slot exists, the legacy save is moved into the autosave slot and
// returned.
func (s *Store) LoadAutosave(ctx context.Context) (Slot, bool, error) {
	slot, ok, err := s.ReadSlot(ctx, SlotAutosave)
	if err != nil || ok {
		return slot, ok, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Slot{}, false, fmt.Errorf("migrate legacy save: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	legacy, err := scanSlot(tx.QueryRowContext(ctx, `
		SELECT slot, data, fingerprint, game_time, seq, session_id
		FROM saves
		WHERE slot = ?
	`, SlotLegacy))
	if errors.Is(err, sql.ErrNoRows) {
		return Slot{}, false, nil
	}
	if err != nil {
		return Slot{}, false, fmt.Errorf("migrate legacy save: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE saves SET slot = ? WHERE slot = ?`, SlotAutosave, SlotLegacy); err != nil {
		return Slot{}, false, fmt.Errorf("migrate legacy save: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Slot{}, false, fmt.Errorf("migrate legacy save: commit: %w", err)
	}

	legacy.Name = SlotAutosave
	return legacy, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSlot(row scanner) (Slot, error) {
	var (
		slot      Slot
		sessionID sql.NullString
	)
	err := row.Scan(&slot.Name, &slot.Data, &slot.Fingerprint, &slot.GameTime, &slot.Seq, &sessionID)
	if err != nil {
		return Slot{}, err
	}
	slot.SessionID = sessionID.String
	return slot, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
