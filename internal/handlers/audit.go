package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/response"
)

// AuditLister reads recorded lifecycle events.
type AuditLister interface {
	List(ctx context.Context, opts services.AuditListOptions) ([]models.AuditLog, int64, error)
}

type AuditHandler struct {
	svc AuditLister
}

func NewAuditHandler(svc AuditLister) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// GET /api/accounts/audit
func (h *AuditHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	per := parseIntQuery(c, "per_page", 50)
	if page < 1 {
		page = 1
	}
	if per < 1 || per > 200 {
		per = 50
	}

	filters := services.AuditFilters{
		AccountID: c.Query("account_id"),
		Email:     c.Query("email"),
		Action:    c.Query("action"),
		Result:    c.Query("result"),
	}

	for key, dest := range map[string]**time.Time{"since": &filters.Since, "until": &filters.Until} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, errors.NewBadRequest(key+" must be an RFC3339 timestamp"))
			return
		}
		t = t.UTC()
		*dest = &t
	}

	logs, total, err := h.svc.List(requestContext(c), services.AuditListOptions{Page: page, PageSize: per, Filters: filters})
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Paginated(c, logs, page, per, total)
}
