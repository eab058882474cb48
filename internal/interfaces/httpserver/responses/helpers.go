package responses

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/janhq/health-agent/internal/domain/chat"
	"github.com/janhq/health-agent/internal/domain/transaction"
	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

// HandleError maps domain and platform errors to HTTP responses. action
// describes the failed operation in the log.
func HandleError(c *gin.Context, err error, action string) {
	logger := log.With().Str("path", c.Request.URL.Path).Str("action", action).Logger()

	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		platformerrors.WriteNotFound(c, "session not found")
	case errors.Is(err, transaction.ErrTransactionNotFound):
		platformerrors.WriteNotFound(c, "transaction not found")
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict):
		platformerrors.WriteConflict(c, platformerrors.GetPlatformError(err).Message)
	default:
		platformerrors.WriteError(c, err, logger)
	}
}

// HandleBindError renders a request binding failure with the offending field names.
func HandleBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		platformerrors.WriteValidationError(c, "invalid request body")
		return
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			details = append(details, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		details = append(details, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	platformerrors.WriteValidationError(c, "invalid request: "+strings.Join(details, "; "))
}
