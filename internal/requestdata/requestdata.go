// Package requestdata carries per-request audit identity parsed from
// gateway headers.
package requestdata

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
)

// agentCauserType is the upstream model name the gateway sends for
// agent-initiated requests.
const agentCauserType = `App\Models\Agent`

type ctxKey struct{}

// AuditData identifies who triggered the request. Zero values mean the
// header was absent.
type AuditData struct {
	UserID     int    `json:"userId"`
	CauserID   int    `json:"causerId"`
	CauserType string `json:"causerType"`
	OrgID      int    `json:"orgId"`
	ProjectID  int    `json:"projectId"`
}

// IsAgent reports whether the request was made by a live agent rather
// than an end user.
func (d AuditData) IsAgent() bool {
	return d.CauserType == agentCauserType
}

// Middleware parses the audit headers into the request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		d := AuditData{
			UserID:     headerInt(c, "X-Zt-User-Id"),
			CauserID:   headerInt(c, "X-Zt-Causer-Id"),
			CauserType: c.GetHeader("X-Zt-Causer-Type"),
			OrgID:      headerInt(c, "X-Zt-Org-Id"),
			ProjectID:  headerInt(c, "X-Zt-Project-Id"),
		}
		c.Request = c.Request.WithContext(WithAuditData(c.Request.Context(), d))
		c.Next()
	}
}

// WithAuditData returns a context carrying the audit data.
func WithAuditData(ctx context.Context, d AuditData) context.Context {
	return context.WithValue(ctx, ctxKey{}, d)
}

// FromContext returns the request's audit data, zero-valued when the
// middleware did not run.
func FromContext(ctx context.Context) AuditData {
	if d, ok := ctx.Value(ctxKey{}).(AuditData); ok {
		return d
	}
	return AuditData{}
}

func headerInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.GetHeader(name))
	if err != nil {
		return 0
	}
	return v
}
