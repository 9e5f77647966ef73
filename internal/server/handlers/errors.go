// Provides error translation and raw-handler response helpers.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/notefs/notefs/internal/kvstore"
	"github.com/notefs/notefs/internal/server/dto"
	"github.com/notefs/notefs/internal/storage"
	"github.com/notefs/notefs/internal/vfs"
)

// vaultError translates a storage or tree error into its API error. Errors
// without a mapping pass through and surface as 500s.
func vaultError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, vfs.ErrNotFound):
		return dto.NotFound("item").Wrap(err)
	case errors.Is(err, vfs.ErrParentNotFound):
		return dto.NotFound("parent folder").Wrap(err)
	case errors.Is(err, vfs.ErrNameTaken):
		return dto.Conflict(err.Error())
	case errors.Is(err, vfs.ErrCycle),
		errors.Is(err, vfs.ErrNotFolder),
		errors.Is(err, storage.ErrNotFile),
		errors.Is(err, storage.ErrImageContent),
		errors.Is(err, storage.ErrNotImage):
		return dto.BadRequest(err.Error())
	case errors.Is(err, storage.ErrUploadTooLarge):
		return dto.NewAPIError(http.StatusRequestEntityTooLarge, dto.ErrorCodePayloadTooLarge, err.Error())
	case errors.Is(err, kvstore.ErrQuotaExceeded):
		return dto.QuotaExceeded("vault storage").Wrap(err)
	case errors.Is(err, storage.ErrHistoryDisabled):
		return dto.NotFound("history").Wrap(err)
	default:
		return err
	}
}

// writeErrorResponse writes an APIError as a JSON response.
// Use this in raw http.HandlerFunc handlers that don't use server.Wrap.
func writeErrorResponse(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := dto.ErrorCodeInternal
	message := "internal error"
	var details map[string]any

	var ewsErr dto.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		message = ewsErr.Error()
		details = ewsErr.Details()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := dto.ErrorResponse{
		Error: dto.ErrorDetails{
			Code:    errorCode,
			Message: message,
		},
		Details: details,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "err", err)
	}
}
