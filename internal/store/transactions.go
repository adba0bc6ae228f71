package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"stocksentinel-backend/internal/filings"
	"stocksentinel-backend/internal/roster"
	"time"
)

const dateLayout = "2006-01-02"

const upsertTransactionQuery = `INSERT INTO transactions (
    ptr_id, ptr_row, transaction_date, transactor_id, owner, ticker,
    asset_name, asset_type, transaction_type, amount_min, amount_max, comment
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (ptr_id, ptr_row) DO UPDATE SET
    transaction_date = excluded.transaction_date,
    transactor_id = excluded.transactor_id,
    owner = excluded.owner,
    ticker = excluded.ticker,
    asset_name = excluded.asset_name,
    asset_type = excluded.asset_type,
    transaction_type = excluded.transaction_type,
    amount_min = excluded.amount_min,
    amount_max = excluded.amount_max,
    comment = excluded.comment`

// Upsert inserts a transaction or replaces every column of the existing row with
// the same (ptr_id, ptr_row).
func (s Store) Upsert(ctx context.Context, t filings.Transaction) error {
	var transactorId sql.NullString
	if t.Transactor != nil {
		transactorId = sql.NullString{String: t.Transactor.ID, Valid: true}
	}

	_, err := s.exec(
		ctx,
		upsertTransactionQuery,
		t.PtrID,
		t.PtrRow,
		t.TransactionDate.Format(dateLayout),
		transactorId,
		t.Owner,
		t.Ticker,
		t.AssetName,
		t.AssetType,
		t.TransactionType,
		t.AmountMin,
		t.AmountMax,
		t.Comment,
	)
	if err != nil {
		s.tel.ReportBroken(report_store_upsert, err, t.PtrID, t.PtrRow)
		return fmt.Errorf("upsert transaction %s/%d: %w", t.PtrID, t.PtrRow, err)
	}
	return nil
}

const selectTransactionQuery = `SELECT
    t.ptr_id, t.ptr_row, t.transaction_date, t.owner, t.ticker, t.asset_name,
    t.asset_type, t.transaction_type, t.amount_min, t.amount_max, t.comment,
    f.id, f.first_name, f.last_name, f.full_name, f.party, f.state, f.birthday, f.active
FROM transactions t
LEFT JOIN filers f ON f.id = t.transactor_id
WHERE t.ptr_id = ? AND t.ptr_row = ?`

// Transaction returns the stored transaction with the given natural key, the
// transactor is only populated if the filer is known to the store.
func (s Store) Transaction(ctx context.Context, ptrId string, ptrRow int) (filings.Transaction, bool, error) {
	var (
		t    filings.Transaction
		date string

		filerId   sql.NullString
		firstName sql.NullString
		lastName  sql.NullString
		fullName  sql.NullString
		party     sql.NullString
		state     sql.NullString
		birthday  sql.NullString
		active    sql.NullBool
	)
	err := s.queryRow(ctx, selectTransactionQuery, ptrId, ptrRow).Scan(
		&t.PtrID,
		&t.PtrRow,
		&date,
		&t.Owner,
		&t.Ticker,
		&t.AssetName,
		&t.AssetType,
		&t.TransactionType,
		&t.AmountMin,
		&t.AmountMax,
		&t.Comment,
		&filerId,
		&firstName,
		&lastName,
		&fullName,
		&party,
		&state,
		&birthday,
		&active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return filings.Transaction{}, false, nil
	}
	if err != nil {
		return filings.Transaction{}, false, err
	}

	t.TransactionDate, err = time.Parse(dateLayout, date)
	if err != nil {
		return filings.Transaction{}, false, fmt.Errorf("stored transaction date: %w", err)
	}
	if filerId.Valid {
		t.Transactor = &roster.Filer{
			ID:        filerId.String,
			FirstName: firstName.String,
			LastName:  lastName.String,
			FullName:  fullName.String,
			Party:     roster.Party(party.String),
			State:     state.String,
			Birthday:  birthday.String,
			Active:    active.Bool,
		}
	}
	return t, true, nil
}

func (s Store) CountTransactions(ctx context.Context) (int64, error) {
	var count int64
	err := s.queryRow(ctx, "SELECT count(*) FROM transactions").Scan(&count)
	return count, err
}
