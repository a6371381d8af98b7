package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
)

// AlertNotifier receives server error alerts. *mailer.Mailer satisfies it.
type AlertNotifier interface {
	SendAdminAlert(subject, detail string) error
}

// ErrorHandler renders the last error a handler attached with c.Error. It must
// be registered before any middleware or handler that reports errors.
// Server errors also alert the admin in the background; a failed alert is
// only logged.
func ErrorHandler(notifier AlertNotifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		log := GetLoggerFromContext(c)
		err := c.Errors.Last().Err
		appErr := apperrors.As(err)

		if appErr.Status >= http.StatusInternalServerError {
			log.Error("Request failed", err, map[string]interface{}{
				"code": appErr.Code,
			})
			if notifier != nil {
				subject := fmt.Sprintf("%d %s on %s %s", appErr.Status, appErr.Code, c.Request.Method, c.FullPath())
				detail := fmt.Sprintf("request_id: %s\npath: %s\nerror: %v", c.GetString("request_id"), c.Request.URL.Path, err)
				go func() {
					if alertErr := notifier.SendAdminAlert(subject, detail); alertErr != nil {
						log.Error("Failed to send admin alert", alertErr, nil)
					}
				}()
			}
		}

		if c.Writer.Written() {
			return
		}
		apperrors.RespondWithAppError(c, appErr)
	}
}
