package http

import (
	"errors"
	"net/http"
	"strings"

	"presupuesto/internal/core"
	"presupuesto/internal/ledger"
)

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// errorMessages maps ledger errors to a status and the message shown to the
// user.
var errorMessages = []struct {
	err     error
	status  int
	message string
}{
	{core.ErrInvalidMonth, http.StatusBadRequest, "Mes inválido, usa el formato AAAA-MM"},
	{core.ErrUnknownKind, http.StatusBadRequest, "Tipo de registro desconocido"},
	{ledger.ErrKindMismatch, http.StatusBadRequest, "Operación no válida para este tipo de registro"},
	{errMalformedBody, http.StatusBadRequest, "Formato de solicitud no válido"},
	{ledger.ErrEntryNotFound, http.StatusNotFound, "Registro no encontrado"},
	{core.ErrEmptyName, http.StatusUnprocessableEntity, "El nombre es obligatorio"},
	{core.ErrNameTooLong, http.StatusUnprocessableEntity, "El nombre no puede superar 200 caracteres"},
	{core.ErrInvalidAmount, http.StatusUnprocessableEntity, "El monto debe ser mayor que cero"},
	{core.ErrInvalidTerm, http.StatusUnprocessableEntity, "El número de cuotas debe ser mayor que cero"},
	{core.ErrInvalidPaid, http.StatusUnprocessableEntity, "Las cuotas pagadas no pueden superar el número de cuotas"},
	{core.ErrInvalidRate, http.StatusUnprocessableEntity, "La tasa mensual debe ser mayor que 0% y como máximo 5%"},
	{core.ErrCurrentExceedsTarget, http.StatusUnprocessableEntity, "El ahorro actual no puede superar la meta"},
	{core.ErrInvalidDate, http.StatusUnprocessableEntity, "Fecha inválida, usa el formato AAAA-MM-DD"},
	{ledger.ErrDateOutsideMonth, http.StatusUnprocessableEntity, "La fecha debe estar dentro del mes"},
}

// errorResponse turns an error from the ledger into a JSON error response.
// Unknown errors become a 500 with a generic message.
func errorResponse(err error) *ResponseBuilder {
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return ErrorResponse(m.status, m.message)
		}
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrorResponse(http.StatusRequestEntityTooLarge, "La solicitud es demasiado grande")
	}
	return InternalServerError("Error interno")
}
