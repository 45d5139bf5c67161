package observability

import (
	"github.com/garagehub/funnel-api/internal/logging"
	"go.uber.org/zap"
)

// Logger returns the global logger instance
func Logger() *zap.Logger {
	return logging.Logger
}

// MaskPhone masks a phone number for logging
func MaskPhone(phone string) string {
	if len(phone) < 4 {
		return "**********"
	}
	masked := ""
	for range len(phone) - 4 {
		masked += "*"
	}
	return masked + phone[len(phone)-4:]
}

// MaskSensitiveData masks sensitive data in a map
func MaskSensitiveData(data map[string]interface{}) map[string]interface{} {
	sensitiveFields := []string{"phone", "otp", "code", "session_handle"}
	masked := make(map[string]interface{})

	for k, v := range data {
		if contains(sensitiveFields, k) {
			masked[k] = "********"
		} else {
			masked[k] = v
		}
	}

	return masked
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
