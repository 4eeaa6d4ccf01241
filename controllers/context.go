package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mankostas/asbuild-sub000/schema"
	"github.com/mankostas/asbuild-sub000/statusflow"
)

// caller is the authenticated identity extracted from JWT claims.
type caller struct {
	UserID   uint
	TenantID uint
	Role     string
}

func currentCaller(c *gin.Context) caller {
	return caller{
		UserID:   claimUint(c, "user_id"),
		TenantID: claimUint(c, "tenant_id"),
		Role:     c.GetString("role"),
	}
}

// claimUint tolerates the float64 shape JWT claims decode into.
func claimUint(c *gin.Context, key string) uint {
	v, ok := c.Get(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return uint(n)
	case uint:
		return n
	case int:
		return uint(n)
	default:
		return 0
	}
}

// renderEngineError maps the three engine error shapes onto HTTP responses:
// structural schema errors and field errors are unprocessable payloads,
// rule violations are conflicts with a single reason code.
func renderEngineError(c *gin.Context, err error) {
	switch e := err.(type) {
	case schema.SchemaErrors:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"schema_errors": e})
	case schema.FieldErrors:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": e})
	case *statusflow.RuleError:
		c.JSON(http.StatusConflict, gin.H{"reason": e.Reason})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
