package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"atelier/internal/core/id"
	"atelier/internal/infrastructure/storage/postgres"
	"atelier/pkg/logger"
)

// maxAuditBody caps the captured request body at 1 MiB.
const maxAuditBody = 1 << 20

// Audit records every successful mutating request: who did it, which
// entity it touched and the JSON payload it carried.
func Audit(store *postgres.AuditStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutation(c.Request.Method) {
			c.Next()
			return
		}

		// The body is consumed by the handler, so capture it up front.
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		entry := postgres.AuditEntry{
			EntityType: entityTypeFromPath(c.FullPath()),
			Action:     actionFor(c),
			Changes:    changeSet(c, body),
		}
		if entityID, err := id.Parse(c.Param("id")); err == nil {
			entry.EntityID = entityID
		}

		if err := store.Log(c.Request.Context(), entry); err != nil {
			logger.Warn(c.Request.Context(), "audit log failed",
				"path", c.FullPath(), "error", err)
		}
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// entityTypeFromPath derives the entity type from the route template,
// e.g. "/api/v1/catalog/products/:id/image" yields "products".
func entityTypeFromPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	last := "unknown"
	for _, seg := range segments {
		if seg == "" || strings.HasPrefix(seg, ":") {
			continue
		}
		switch seg {
		case "api", "v1", "catalog", "finance", "pricing":
			continue
		}
		last = seg
		break
	}
	return last
}

// actionFor maps the request onto an audit action. Verb suffixes such as
// /approve or /receive are recorded as process actions.
func actionFor(c *gin.Context) postgres.AuditAction {
	switch c.Request.Method {
	case http.MethodPut, http.MethodPatch:
		return postgres.AuditActionUpdate
	case http.MethodDelete:
		return postgres.AuditActionDelete
	}

	segments := strings.Split(strings.Trim(c.FullPath(), "/"), "/")
	verb := segments[len(segments)-1]
	switch verb {
	case "status":
		return postgres.AuditActionStatus
	case "receive", "ship", "approve", "reject", "process", "confirm", "cancel", "pay":
		return postgres.AuditActionProcess
	case "deletion-mark":
		return postgres.AuditActionDelete
	}
	if strings.HasPrefix(verb, ":") {
		return postgres.AuditActionUpdate
	}
	return postgres.AuditActionCreate
}

// changeSet returns the request body when it is valid JSON, otherwise a
// minimal record of what was called.
func changeSet(c *gin.Context, body []byte) json.RawMessage {
	if json.Valid(body) && len(body) > 0 {
		return body
	}
	fallback, _ := json.Marshal(map[string]any{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	})
	return fallback
}
