package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
)

var _ repository.WalletStore = (*LedgerStore[string, entity.WalletAccount, entity.WalletTransaction])(nil)

// NewWalletStore libro de billetera sobre wallet_accounts / wallet_transactions.
func NewWalletStore(pool *pgxpool.Pool) *LedgerStore[string, entity.WalletAccount, entity.WalletTransaction] {
	return &LedgerStore[string, entity.WalletAccount, entity.WalletTransaction]{
		pool:  pool,
		tx:    NewTxRunner(pool),
		table: walletTable{},
	}
}

type walletTable struct{}

func (walletTable) initial(brandID string) entity.WalletAccount {
	return entity.NewWalletAccount(brandID)
}

func (walletTable) ensure(ctx context.Context, q Querier, brandID string) error {
	query := `
		INSERT INTO wallet_accounts (brand_id, balance, total_credited, total_debited, created_at, updated_at)
		VALUES ($1, 0, 0, 0, now(), now())
		ON CONFLICT (brand_id) DO NOTHING`
	if _, err := q.Exec(ctx, query, brandID); err != nil {
		return fmt.Errorf("ensure wallet account: %w", err)
	}
	return nil
}

func (walletTable) get(ctx context.Context, q Querier, brandID string, forUpdate bool) (entity.WalletAccount, bool, error) {
	query := `
		SELECT brand_id, balance, total_credited, total_debited, created_at, updated_at
		FROM wallet_accounts WHERE brand_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var a entity.WalletAccount
	err := q.QueryRow(ctx, query, brandID).Scan(
		&a.BrandID, &a.Balance, &a.TotalCredited, &a.TotalDebited, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.WalletAccount{}, false, nil
		}
		return entity.WalletAccount{}, false, fmt.Errorf("get wallet account: %w", err)
	}
	return a, true, nil
}

func (walletTable) save(ctx context.Context, q Querier, a entity.WalletAccount) error {
	query := `
		UPDATE wallet_accounts
		SET balance = $2, total_credited = $3, total_debited = $4, updated_at = $5
		WHERE brand_id = $1`
	if _, err := q.Exec(ctx, query, a.BrandID, a.Balance, a.TotalCredited, a.TotalDebited, a.UpdatedAt); err != nil {
		return fmt.Errorf("update wallet account: %w", err)
	}
	return nil
}

func (walletTable) insert(ctx context.Context, q Querier, t entity.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (id, brand_id, type, amount, reason, reference_id, resulting_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.Exec(ctx, query,
		t.ID, t.BrandID, t.Type, t.Amount, nullIfEmpty(t.Reason), nullIfEmpty(t.ReferenceID),
		t.ResultingBalance, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}

const walletTxColumns = `id, brand_id, type, amount, reason, reference_id, resulting_balance, created_at`

func (walletTable) byReference(ctx context.Context, q Querier, brandID, reference string) ([]entity.WalletTransaction, error) {
	query := `SELECT ` + walletTxColumns + `
		FROM wallet_transactions WHERE brand_id = $1 AND reference_id = $2 ORDER BY seq`
	return scanWalletTransactions(q.Query(ctx, query, brandID, reference))
}

func (walletTable) list(ctx context.Context, q Querier, brandID string) ([]entity.WalletTransaction, error) {
	query := `SELECT ` + walletTxColumns + `
		FROM wallet_transactions WHERE brand_id = $1 ORDER BY seq`
	return scanWalletTransactions(q.Query(ctx, query, brandID))
}

func scanWalletTransactions(rows pgx.Rows, err error) ([]entity.WalletTransaction, error) {
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()
	var list []entity.WalletTransaction
	for rows.Next() {
		var t entity.WalletTransaction
		var reason, ref *string
		if err := rows.Scan(&t.ID, &t.BrandID, &t.Type, &t.Amount, &reason, &ref, &t.ResultingBalance, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet transaction: %w", err)
		}
		t.Reason, t.ReferenceID = derefString(reason), derefString(ref)
		list = append(list, t)
	}
	return list, rows.Err()
}
