package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound                   = errors.New("recurso no encontrado")
	ErrInvalidInput               = errors.New("entrada inválida")
	ErrUnauthorized               = errors.New("no autorizado")
	ErrForbidden                  = errors.New("acceso denegado")
	ErrConflict                   = errors.New("conflicto con el estado actual")
	ErrInvalidAmount              = errors.New("monto inválido: debe ser mayor que cero")
	ErrInvalidQuantity            = errors.New("cantidad inválida")
	ErrInvalidBucket              = errors.New("bucket de inventario inválido")
	ErrInsufficientBalance        = errors.New("saldo insuficiente")
	ErrInsufficientBucketQuantity = errors.New("cantidad insuficiente en el bucket")
	ErrConfiguration              = errors.New("configuración de tarifas ausente")
	ErrInvariantViolation         = errors.New("violación de invariante del libro")
	ErrCarrierTransient           = errors.New("error transitorio del transportador")
	ErrCarrierPermanent           = errors.New("error permanente del transportador")
	ErrBatchTooLarge              = errors.New("lote demasiado grande")
	ErrDuplicateRequest           = errors.New("solicitud duplicada en curso")
	ErrBatchAborted               = errors.New("lote abortado por violación de invariante")
)

// InsufficientBalanceError resultado de negocio esperado: el saldo no cubre el débito.
type InsufficientBalanceError struct {
	BrandID   string
	Balance   decimal.Decimal
	Requested decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("saldo insuficiente para %s: saldo %s, requerido %s, faltante %s",
		e.BrandID, e.Balance.StringFixed(2), e.Requested.StringFixed(2), e.Shortfall.StringFixed(2))
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InsufficientBucketError el bucket origen de un traslado no alcanza.
type InsufficientBucketError struct {
	Bucket    string
	Available int64
	Requested int64
}

func (e *InsufficientBucketError) Error() string {
	return fmt.Sprintf("bucket %s: disponible %d, solicitado %d", e.Bucket, e.Available, e.Requested)
}

func (e *InsufficientBucketError) Unwrap() error { return ErrInsufficientBucketQuantity }

// ConfigurationError fatal y no reintentable: no hay tarifa por defecto.
type ConfigurationError struct {
	BrandID string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuración de tarifas (%s): %s", e.BrandID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// InvariantViolationError indica corrupción del libro. Nunca debe llegar al cliente.
type InvariantViolationError struct {
	Key    string
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariante violada en %s: %s", e.Key, e.Detail)
}

func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

// CarrierError error devuelto por el transportador. Transient=true habilita reintentos acotados.
type CarrierError struct {
	Code      string
	Message   string
	Transient bool
	Cause     error
}

func (e *CarrierError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transportador [%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("transportador [%s]: %s", e.Code, e.Message)
}

// Is permite errors.Is(err, ErrCarrierTransient) / ErrCarrierPermanent.
func (e *CarrierError) Is(target error) bool {
	if e.Transient {
		return target == ErrCarrierTransient
	}
	return target == ErrCarrierPermanent
}

func (e *CarrierError) Unwrap() error { return e.Cause }

// NewCarrierError construye un CarrierError.
func NewCarrierError(code, message string, transient bool, cause error) *CarrierError {
	return &CarrierError{Code: code, Message: message, Transient: transient, Cause: cause}
}

// BatchTooLargeError el lote supera el máximo permitido.
type BatchTooLargeError struct {
	Size int
	Max  int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("lote de %d solicitudes supera el máximo de %d", e.Size, e.Max)
}

func (e *BatchTooLargeError) Unwrap() error { return ErrBatchTooLarge }
