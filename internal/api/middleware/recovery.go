package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/captain-draft/internal/api/apierr"
	"github.com/mcoot/captain-draft/internal/middleware"
)

// Recovery turns panics into JSON 500 responses
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, writePanic)
}

func writePanic(w http.ResponseWriter, r *http.Request, _ any) {
	// an upgraded connection has no response left to write
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return
	}
	apierr.WriteError(w, apierr.NewInternalError())
}
