// Package wallet implementa la billetera prepagada de cada marca sobre el patrón de libro:
// saldo actual + historial inmutable, mutados juntos y serializados por marca.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fulfillment-ledger/internal/domain"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/entity"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/ledger"
	"github.com/jhoicas/fulfillment-ledger/internal/domain/repository"
	"github.com/jhoicas/fulfillment-ledger/pkg/logger"
)

// Service operaciones de billetera. DebitOrReject es la única vía que usa el orquestador;
// CheckBalance es solo informativo y nunca debe usarse para decidir un débito posterior.
type Service struct {
	ledger *ledger.Ledger[string, entity.WalletAccount, entity.WalletTransaction]
	log    *logger.Logger
	now    func() time.Time
}

// NewService construye el servicio sobre el store de billetera.
func NewService(store repository.WalletStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("wallet")
	return &Service{
		ledger: ledger.New(store, entity.WalletAccount.CheckInvariant, log.Zerolog()),
		log:    log,
		now:    time.Now,
	}
}

// CreditInput abono a la billetera.
type CreditInput struct {
	BrandID     string
	Amount      decimal.Decimal
	Reason      string
	ReferenceID string
}

// DebitInput cargo a la billetera.
type DebitInput struct {
	BrandID     string
	Amount      decimal.Decimal
	Reason      string
	ReferenceID string
}

// Result resultado de una mutación. Replayed=true si la referencia ya estaba aplicada y
// no se escribió una fila nueva.
type Result struct {
	NewBalance    decimal.Decimal
	TransactionID string
	Transaction   entity.WalletTransaction
	Replayed      bool
}

// BalanceCheck respuesta de CheckBalance (informativa, no es una reserva).
type BalanceCheck struct {
	Sufficient     bool
	CurrentBalance decimal.Decimal
	Shortfall      decimal.Decimal
}

// Reconciliation comparación entre el saldo actual y el replay del historial.
type Reconciliation struct {
	BrandID         string
	Snapshot        entity.WalletAccount
	Replayed        entity.WalletAccount
	TransactionsLen int
	Consistent      bool
	Detail          string
}

// GetBalance saldo actual (0 si la marca aún no tiene cuenta).
func (s *Service) GetBalance(ctx context.Context, brandID string) (decimal.Decimal, error) {
	acc, err := s.GetAccount(ctx, brandID)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

// GetAccount lee la cuenta actual.
func (s *Service) GetAccount(ctx context.Context, brandID string) (entity.WalletAccount, error) {
	if brandID == "" {
		return entity.WalletAccount{}, domain.ErrInvalidInput
	}
	acc, _, err := s.ledger.Query(ctx, brandID)
	if err != nil {
		return entity.WalletAccount{}, fmt.Errorf("wallet: leer cuenta: %w", err)
	}
	return acc, nil
}

// CheckBalance indica si el saldo actual cubre amount. Lectura sin bloqueo: solo diagnóstico.
func (s *Service) CheckBalance(ctx context.Context, brandID string, amount decimal.Decimal) (BalanceCheck, error) {
	if !amount.IsPositive() {
		return BalanceCheck{}, domain.ErrInvalidAmount
	}
	bal, err := s.GetBalance(ctx, brandID)
	if err != nil {
		return BalanceCheck{}, err
	}
	check := BalanceCheck{Sufficient: bal.GreaterThanOrEqual(amount), CurrentBalance: bal, Shortfall: decimal.Zero}
	if !check.Sufficient {
		check.Shortfall = amount.Sub(bal)
	}
	return check, nil
}

// Credit abona a la billetera. Crea la cuenta en el primer abono. Si ReferenceID no está
// vacío y ya existe un abono con esa referencia, no se duplica.
func (s *Service) Credit(ctx context.Context, in CreditInput) (Result, error) {
	if in.BrandID == "" {
		return Result{}, domain.ErrInvalidInput
	}
	if !validAmount(in.Amount) {
		return Result{}, domain.ErrInvalidAmount
	}
	if in.Reason == entity.ReasonCompensation {
		// las compensaciones solo se generan desde Compensate, atadas a un débito
		return Result{}, domain.ErrInvalidInput
	}

	var existing *entity.WalletTransaction
	acc, tx, err := s.ledger.Apply(ctx, in.BrandID, func(ctx context.Context, cur entity.WalletAccount, h ledger.History[entity.WalletTransaction]) (entity.WalletAccount, *entity.WalletTransaction, error) {
		if in.ReferenceID != "" {
			prior, err := h.ByReference(ctx, in.ReferenceID)
			if err != nil {
				return cur, nil, err
			}
			for i := range prior {
				if prior[i].Type == entity.WalletTxCredit && !prior[i].IsCompensation() {
					existing = &prior[i]
					return cur, nil, nil
				}
			}
		}
		return s.credit(cur, in.BrandID, in.Amount, in.Reason, in.ReferenceID)
	})
	if err != nil {
		return Result{}, err
	}
	res := s.result(acc, tx, existing)
	s.log.Info().
		Str("brand_id", in.BrandID).
		Str("reference_id", in.ReferenceID).
		Str("amount", in.Amount.String()).
		Bool("replayed", res.Replayed).
		Msg("abono a billetera")
	return res, nil
}

// Debit cargo atómico: verifica y resta bajo el bloqueo de la marca. Nunca deja saldo negativo.
// No es idempotente: una ReferenceID ya debitada falla con domain.ErrConflict. El orquestador
// usa DebitOrReject.
func (s *Service) Debit(ctx context.Context, in DebitInput) (Result, error) {
	if err := validateDebit(in); err != nil {
		return Result{}, err
	}
	acc, tx, err := s.ledger.Apply(ctx, in.BrandID, func(ctx context.Context, cur entity.WalletAccount, h ledger.History[entity.WalletTransaction]) (entity.WalletAccount, *entity.WalletTransaction, error) {
		if in.ReferenceID != "" {
			prior, err := h.ByReference(ctx, in.ReferenceID)
			if err != nil {
				return cur, nil, err
			}
			for i := range prior {
				if prior[i].Type == entity.WalletTxDebit {
					return cur, nil, fmt.Errorf("wallet: débito %s ya registrado: %w", in.ReferenceID, domain.ErrConflict)
				}
			}
		}
		return s.debit(cur, in)
	})
	if err != nil {
		return Result{}, s.debitError(in, err)
	}
	return s.result(acc, tx, nil), nil
}

// DebitOrReject cargo atómico e idempotente por ReferenceID: si ya existe un débito con esa
// referencia devuelve la transacción original con Replayed=true y no debita de nuevo.
// Si el saldo no alcanza falla con *domain.InsufficientBalanceError.
func (s *Service) DebitOrReject(ctx context.Context, in DebitInput) (Result, error) {
	if err := validateDebit(in); err != nil {
		return Result{}, err
	}
	if in.ReferenceID == "" {
		return Result{}, domain.ErrInvalidInput
	}

	var existing *entity.WalletTransaction
	acc, tx, err := s.ledger.Apply(ctx, in.BrandID, func(ctx context.Context, cur entity.WalletAccount, h ledger.History[entity.WalletTransaction]) (entity.WalletAccount, *entity.WalletTransaction, error) {
		prior, err := h.ByReference(ctx, in.ReferenceID)
		if err != nil {
			return cur, nil, err
		}
		for i := range prior {
			if prior[i].Type == entity.WalletTxDebit {
				existing = &prior[i]
				return cur, nil, nil
			}
		}
		return s.debit(cur, in)
	})
	if err != nil {
		return Result{}, s.debitError(in, err)
	}
	res := s.result(acc, tx, existing)
	s.log.Info().
		Str("brand_id", in.BrandID).
		Str("reference_id", in.ReferenceID).
		Str("amount", in.Amount.String()).
		Str("balance", res.NewBalance.String()).
		Bool("replayed", res.Replayed).
		Msg("débito de billetera")
	return res, nil
}

// Compensate devuelve a la billetera el monto del débito con la misma referencia
// (abono con motivo "compensation"). Solo se compensa una vez por referencia.
func (s *Service) Compensate(ctx context.Context, brandID, referenceID string) (Result, error) {
	if brandID == "" || referenceID == "" {
		return Result{}, domain.ErrInvalidInput
	}
	var existing *entity.WalletTransaction
	acc, tx, err := s.ledger.Apply(ctx, brandID, func(ctx context.Context, cur entity.WalletAccount, h ledger.History[entity.WalletTransaction]) (entity.WalletAccount, *entity.WalletTransaction, error) {
		prior, err := h.ByReference(ctx, referenceID)
		if err != nil {
			return cur, nil, err
		}
		var debit *entity.WalletTransaction
		for i := range prior {
			switch {
			case prior[i].IsCompensation():
				existing = &prior[i]
				return cur, nil, nil
			case prior[i].Type == entity.WalletTxDebit:
				debit = &prior[i]
			}
		}
		if debit == nil {
			return cur, nil, fmt.Errorf("wallet: no hay débito %s que compensar: %w", referenceID, domain.ErrConflict)
		}
		return s.credit(cur, brandID, debit.Amount, entity.ReasonCompensation, referenceID)
	})
	if err != nil {
		return Result{}, err
	}
	res := s.result(acc, tx, existing)
	s.log.Warn().
		Str("brand_id", brandID).
		Str("reference_id", referenceID).
		Str("amount", res.Transaction.Amount.String()).
		Bool("replayed", res.Replayed).
		Msg("débito compensado")
	return res, nil
}

// ListTransactions historial completo de la marca en orden de inserción.
func (s *Service) ListTransactions(ctx context.Context, brandID string) ([]entity.WalletTransaction, error) {
	if brandID == "" {
		return nil, domain.ErrInvalidInput
	}
	txs, err := s.ledger.Replay(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("wallet: listar transacciones: %w", err)
	}
	return txs, nil
}

// Reconcile reconstruye la cuenta desde el historial y la compara con el saldo actual.
func (s *Service) Reconcile(ctx context.Context, brandID string) (Reconciliation, error) {
	snap, err := s.GetAccount(ctx, brandID)
	if err != nil {
		return Reconciliation{}, err
	}
	txs, err := s.ListTransactions(ctx, brandID)
	if err != nil {
		return Reconciliation{}, err
	}
	rec := Reconciliation{BrandID: brandID, Snapshot: snap, TransactionsLen: len(txs), Consistent: true}
	replayed, rerr := entity.ReplayWallet(brandID, txs)
	rec.Replayed = replayed
	switch {
	case rerr != nil:
		rec.Consistent, rec.Detail = false, rerr.Error()
	case !replayed.Balance.Equal(snap.Balance) ||
		!replayed.TotalCredited.Equal(snap.TotalCredited) ||
		!replayed.TotalDebited.Equal(snap.TotalDebited):
		rec.Consistent = false
		rec.Detail = fmt.Sprintf("saldo actual %s, replay %s", snap.Balance.String(), replayed.Balance.String())
	}
	if !rec.Consistent {
		s.log.Error().Str("brand_id", brandID).Str("detail", rec.Detail).Msg("conciliación de billetera inconsistente")
	}
	return rec, nil
}

func (s *Service) credit(cur entity.WalletAccount, brandID string, amount decimal.Decimal, reason, ref string) (entity.WalletAccount, *entity.WalletTransaction, error) {
	now := s.now().UTC()
	next := cur
	next.BrandID = brandID
	next.Balance = cur.Balance.Add(amount)
	next.TotalCredited = cur.TotalCredited.Add(amount)
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	return next, &entity.WalletTransaction{
		ID:               uuid.New().String(),
		BrandID:          brandID,
		Type:             entity.WalletTxCredit,
		Amount:           amount,
		Reason:           reason,
		ReferenceID:      ref,
		ResultingBalance: next.Balance,
		CreatedAt:        now,
	}, nil
}

func (s *Service) debit(cur entity.WalletAccount, in DebitInput) (entity.WalletAccount, *entity.WalletTransaction, error) {
	if cur.Balance.LessThan(in.Amount) {
		return cur, nil, &domain.InsufficientBalanceError{
			BrandID:   in.BrandID,
			Balance:   cur.Balance,
			Requested: in.Amount,
			Shortfall: in.Amount.Sub(cur.Balance),
		}
	}
	now := s.now().UTC()
	next := cur
	next.Balance = cur.Balance.Sub(in.Amount)
	next.TotalDebited = cur.TotalDebited.Add(in.Amount)
	next.UpdatedAt = now
	return next, &entity.WalletTransaction{
		ID:               uuid.New().String(),
		BrandID:          in.BrandID,
		Type:             entity.WalletTxDebit,
		Amount:           in.Amount,
		Reason:           in.Reason,
		ReferenceID:      in.ReferenceID,
		ResultingBalance: next.Balance,
		CreatedAt:        now,
	}, nil
}

func (s *Service) result(acc entity.WalletAccount, tx, existing *entity.WalletTransaction) Result {
	if tx != nil {
		return Result{NewBalance: acc.Balance, TransactionID: tx.ID, Transaction: *tx}
	}
	res := Result{NewBalance: acc.Balance, Replayed: true}
	if existing != nil {
		res.TransactionID = existing.ID
		res.Transaction = *existing
	}
	return res
}

func (s *Service) debitError(in DebitInput, err error) error {
	var insufficient *domain.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		s.log.Info().
			Str("brand_id", in.BrandID).
			Str("reference_id", in.ReferenceID).
			Str("shortfall", insufficient.Shortfall.String()).
			Msg("débito rechazado por saldo insuficiente")
	}
	return err
}

func validateDebit(in DebitInput) error {
	if in.BrandID == "" {
		return domain.ErrInvalidInput
	}
	if !validAmount(in.Amount) {
		return domain.ErrInvalidAmount
	}
	return nil
}

// validAmount positivo y sin fracciones de centavo (columnas NUMERIC(18,2)).
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}
