package store

import (
	"context"
	"fmt"
	"stocksentinel-backend/internal/roster"
)

const upsertFilerQuery = `INSERT INTO filers (
    id, first_name, last_name, full_name, party, state, birthday, active
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    first_name = excluded.first_name,
    last_name = excluded.last_name,
    full_name = excluded.full_name,
    party = excluded.party,
    state = excluded.state,
    birthday = excluded.birthday,
    active = excluded.active`

// UpsertFilers writes the whole roster in a single db transaction.
func (s Store) UpsertFilers(ctx context.Context, filers []roster.Filer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(upsertFilerQuery))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range filers {
		_, err = stmt.ExecContext(
			ctx,
			f.ID,
			f.FirstName,
			f.LastName,
			f.FullName,
			string(f.Party),
			f.State,
			f.Birthday,
			f.Active,
		)
		if err != nil {
			return fmt.Errorf("upsert filer %s: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

// Filers returns the current roster snapshot, an empty roster is not an error.
func (s Store) Filers(ctx context.Context) ([]roster.Filer, error) {
	rows, err := s.query(
		ctx,
		`SELECT id, first_name, last_name, full_name, party, state, birthday, active
        FROM filers ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []roster.Filer
	for rows.Next() {
		var (
			f     roster.Filer
			party string
		)
		err = rows.Scan(&f.ID, &f.FirstName, &f.LastName, &f.FullName, &party, &f.State, &f.Birthday, &f.Active)
		if err != nil {
			return nil, err
		}
		f.Party = roster.Party(party)
		out = append(out, f)
	}
	return out, rows.Err()
}
