package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-ledger/internal/application/dto"
	"github.com/jhoicas/fulfillment-ledger/internal/application/wallet"
	"github.com/jhoicas/fulfillment-ledger/internal/domain"
)

// WalletHandler consultas y recargas de la billetera de una marca (protegido).
type WalletHandler struct {
	wallet    *wallet.Service
	statement *wallet.StatementUseCase
}

// NewWalletHandler construye el handler. statement puede ser nil (sin PDF).
func NewWalletHandler(w *wallet.Service, statement *wallet.StatementUseCase) *WalletHandler {
	return &WalletHandler{wallet: w, statement: statement}
}

// GetBalance godoc
// @Summary      Saldo actual de la billetera
// @Tags         wallet
// @Security     Bearer
// @Produce      json
// @Param        brand_id  query  string  false  "Solo admin de plataforma"
// @Success      200  {object}  dto.WalletAccountResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/wallet/balance [get]
func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	brandID, err := scopedBrand(c, c.Query("brand_id"))
	if err != nil {
		return writeError(c, err)
	}
	acc, err := h.wallet.GetAccount(c.Context(), brandID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewWalletAccountResponse(acc))
}

// Credit godoc
// @Summary      Recargar la billetera
// @Description  Abona saldo. Con reference_id repetido no se duplica el abono.
// @Tags         wallet
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreditRequest  true  "amount > 0, reason, reference_id"
// @Success      201  {object}  dto.WalletMutationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/wallet/credit [post]
func (h *WalletHandler) Credit(c *fiber.Ctx) error {
	brandID, err := scopedBrand(c, c.Query("brand_id"))
	if err != nil {
		return writeError(c, err)
	}
	var in dto.CreditRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.wallet.Credit(c.Context(), wallet.CreditInput{
		BrandID:     brandID,
		Amount:      in.Amount,
		Reason:      in.Reason,
		ReferenceID: in.ReferenceID,
	})
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.WalletMutationResponse{
		TransactionID: res.TransactionID,
		NewBalance:    res.NewBalance,
		Replayed:      res.Replayed,
	})
}

// CheckBalance godoc
// @Summary      Verificar si el saldo cubre un monto (informativo, no reserva)
// @Tags         wallet
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CheckBalanceRequest  true  "amount > 0"
// @Success      200  {object}  dto.CheckBalanceResponse
// @Router       /api/wallet/check-balance [post]
func (h *WalletHandler) CheckBalance(c *fiber.Ctx) error {
	brandID, err := scopedBrand(c, c.Query("brand_id"))
	if err != nil {
		return writeError(c, err)
	}
	var in dto.CheckBalanceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	check, err := h.wallet.CheckBalance(c.Context(), brandID, in.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.CheckBalanceResponse{
		Sufficient:     check.Sufficient,
		CurrentBalance: check.CurrentBalance,
		Shortfall:      check.Shortfall,
	})
}

// ListTransactions godoc
// @Summary      Historial de la billetera en orden de inserción
// @Tags         wallet
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ListResponse[dto.WalletTransactionDTO]
// @Router       /api/wallet/transactions [get]
func (h *WalletHandler) ListTransactions(c *fiber.Ctx) error {
	brandID, err := scopedBrand(c, c.Query("brand_id"))
	if err != nil {
		return writeError(c, err)
	}
	txs, err := h.wallet.ListTransactions(c.Context(), brandID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewListResponse(dto.NewWalletTransactionDTOs(txs)))
}

// Reconcile godoc
// @Summary      Conciliar saldo contra replay del historial
// @Tags         wallet
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.WalletReconciliationResponse
// @Router       /api/wallet/reconcile [get]
func (h *WalletHandler) Reconcile(c *fiber.Ctx) error {
	brandID, err := scopedBrand(c, c.Query("brand_id"))
	if err != nil {
		return writeError(c, err)
	}
	rec, err := h.wallet.Reconcile(c.Context(), brandID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.WalletReconciliationResponse{
		BrandID:         rec.BrandID,
		SnapshotBalance: rec.Snapshot.Balance,
		ReplayedBalance: rec.Replayed.Balance,
		Transactions:    rec.TransactionsLen,
		Consistent:      rec.Consistent,
		Detail:          rec.Detail,
	})
}

// DownloadStatement godoc
// @Summary      Extracto de billetera en PDF
// @Tags         wallet
// @Security     Bearer
// @Produce      application/pdf
// @Param        from  query  string  false  "YYYY-MM-DD"
// @Param        to    query  string  false  "YYYY-MM-DD (inclusive)"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/wallet/statement.pdf [get]
func (h *WalletHandler) DownloadStatement(c *fiber.Ctx) error {
	if h.statement == nil {
		return writeError(c, domain.ErrNotFound)
	}
	brandID, err := scopedBrand(c, c.Query("brand_id"))
	if err != nil {
		return writeError(c, err)
	}
	from, err := parseDay(c.Query("from"), false)
	if err != nil {
		return writeError(c, err)
	}
	to, err := parseDay(c.Query("to"), true)
	if err != nil {
		return writeError(c, err)
	}
	pdfBytes, filename, err := h.statement.DownloadStatementPDF(c.Context(), brandID, from, to)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}

// parseDay YYYY-MM-DD en UTC; endOfDay lleva la hora al último instante del día.
func parseDay(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
