package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const noteColumns = `id, patient_profile_id, title, body, pinned, created_at, updated_at`

type CreateNoteParams struct {
	PatientProfileID uuid.UUID
	Title            string
	Body             string
	Pinned           bool
}

func (db *Database) CreateNote(ctx context.Context, params CreateNoteParams) (Note, error) {
	note := Note{
		ID:               uuid.New(),
		PatientProfileID: params.PatientProfileID,
		Title:            params.Title,
		Body:             params.Body,
		Pinned:           params.Pinned,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_note (`+noteColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		note.ID, note.PatientProfileID, note.Title, note.Body, note.Pinned, note.CreatedAt, note.UpdatedAt); err != nil {
		return note, fmt.Errorf("database: failed to insert note (profile_id=%s): %w", note.PatientProfileID, err)
	}
	return note, nil
}

func scanNote(row pgx.Row) (Note, error) {
	var note Note
	err := row.Scan(&note.ID, &note.PatientProfileID, &note.Title, &note.Body, &note.Pinned, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return note, ErrNoteNotFound
		}
		return note, fmt.Errorf("database: failed to scan note: %w", err)
	}
	return note, nil
}

func (db *Database) GetNote(ctx context.Context, profileID, id uuid.UUID) (Note, error) {
	return scanNote(db.Pool.QueryRow(ctx, `SELECT `+noteColumns+` FROM tbl_note WHERE id = $1 AND patient_profile_id = $2`, id, profileID))
}

func (db *Database) ListNotesByProfileID(ctx context.Context, profileID uuid.UUID) ([]Note, error) {
	var notes []Note

	rows, err := db.Pool.Query(ctx, `SELECT `+noteColumns+` FROM tbl_note WHERE patient_profile_id = $1 ORDER BY pinned DESC, created_at DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate notes: %w", err)
	}

	return notes, nil
}

type UpdateNoteParams struct {
	Title  string
	Body   string
	Pinned bool
}

func (db *Database) UpdateNote(ctx context.Context, profileID, id uuid.UUID, params UpdateNoteParams) (Note, error) {
	row := db.Pool.QueryRow(ctx, `UPDATE tbl_note SET title = $3, body = $4, pinned = $5, updated_at = $6 WHERE id = $1 AND patient_profile_id = $2 RETURNING `+noteColumns,
		id, profileID, params.Title, params.Body, params.Pinned, time.Now().UTC())
	return scanNote(row)
}

func (db *Database) DeleteNote(ctx context.Context, profileID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_note WHERE id = $1 AND patient_profile_id = $2`, id, profileID)
	if err != nil {
		return fmt.Errorf("database: failed to delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}
