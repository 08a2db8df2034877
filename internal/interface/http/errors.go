package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/eventhub/internal/application"
	"github.com/oksasatya/eventhub/pkg/response"
)

// statusFor maps service errors onto HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrInvalidEvent),
		errors.Is(err, application.ErrInvalidEventDate),
		errors.Is(err, application.ErrOwnEvent),
		errors.Is(err, application.ErrAlreadyRegistered),
		errors.Is(err, application.ErrInvalidSignup),
		errors.Is(err, application.ErrUserExists):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrEventNotFound),
		errors.Is(err, application.ErrAttendeesNotFound),
		errors.Is(err, application.ErrNotRegistered),
		errors.Is(err, application.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrMailUnavailable),
		errors.Is(err, application.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Known errors carry their own message; anything
// else is logged and answered with fallback so no detail leaks.
func writeError(c *gin.Context, logger *logrus.Logger, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"request_id": c.GetString("request_id"),
				"path":       c.FullPath(),
			}).Error(fallback)
		}
		response.Error[any](c, status, fallback, nil)
		return
	}
	response.Error[any](c, status, err.Error(), nil)
}

// callerFrom reads the identity set by the auth middleware.
func callerFrom(c *gin.Context) application.Caller {
	return application.Caller{
		ID:       c.GetString("userID"),
		Username: c.GetString("userName"),
		Email:    c.GetString("userEmail"),
	}
}

func requestMeta(c *gin.Context) application.RequestMeta {
	ip := c.GetString("real_ip")
	if ip == "" {
		ip = c.ClientIP()
	}
	return application.RequestMeta{IP: ip, UserAgent: c.GetHeader("User-Agent")}
}
