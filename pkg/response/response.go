package response

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

// JSON sends a success payload exactly as computed; the dashboard consumes
// flat documents, not an envelope.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// Error sends the error contract consumed by the dashboard status banner:
// a human-readable message plus the underlying detail.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	body := gin.H{"error": appErr.Message}
	if appErr.Err != nil {
		body["details"] = appErr.Err.Error()
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, body)
}
