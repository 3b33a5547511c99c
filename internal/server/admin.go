package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/dreamforge/internal/audit/domain"
	"github.com/smallbiznis/dreamforge/internal/authorization"
	ledgerdomain "github.com/smallbiznis/dreamforge/internal/ledger/domain"
	"github.com/smallbiznis/dreamforge/internal/observability/logger"
	paymentdomain "github.com/smallbiznis/dreamforge/internal/payment/domain"
	"go.uber.org/zap"
)

// adjustCreditsRequest takes exactly one of Credits (absolute target) or
// AddCredits (positive increment).
type adjustCreditsRequest struct {
	UserID     string `json:"userId"`
	Credits    *int64 `json:"credits"`
	AddCredits *int64 `json:"addCredits"`
}

func (s *Server) AdjustCredits(c *gin.Context) {
	var req adjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		AbortWithError(c, newValidationError("userId", "required", "userId is required"))
		return
	}

	ctx := c.Request.Context()
	txn, err := s.ledger.AdjustCredits(ctx, ledgerdomain.AdjustRequest{
		AccountID: userID,
		Target:    req.Credits,
		Add:       req.AddCredits,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	admin, _ := accountFromContext(c)
	var adminID string
	if admin != nil {
		adminID = admin.ID
	}
	log := logger.FromContext(ctx).With(
		zap.String("admin_id", adminID),
		zap.String("target_account_id", userID),
	)
	log.Info("admin credit adjustment", zap.Int64("delta", txn.AmountDelta))

	// The balance has already moved; a lost audit row is logged, not surfaced.
	err = s.audit.Record(ctx, auditdomain.Entry{
		ActorType:  auditdomain.ActorTypeAdmin,
		ActorID:    adminID,
		Action:     authorization.ActionCreditsAdjust,
		TargetType: "account",
		TargetID:   userID,
		Metadata: map[string]any{
			"delta":          txn.AmountDelta,
			"balance_after":  txn.BalanceAfter,
			"transaction_id": txn.ID.String(),
		},
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		log.Error("audit log write failed",
			zap.String("transaction_id", txn.ID.String()),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusOK, gin.H{"credits": txn.BalanceAfter})
}

type integrationsResponse struct {
	Generation  bool            `json:"generation"`
	ObjectStore bool            `json:"objectStore"`
	Identity    bool            `json:"identity"`
	Checkout    bool            `json:"checkout"`
	Webhooks    map[string]bool `json:"webhooks"`
	RateLimit   bool            `json:"rateLimit"`
}

// GetIntegrations reports which integrations are configured. Secrets are
// never part of the response.
func (s *Server) GetIntegrations(c *gin.Context) {
	c.JSON(http.StatusOK, integrationsResponse{
		Generation:  s.replicate.Configured(),
		ObjectStore: s.store.Configured(),
		Identity:    s.identity.Configured(),
		Checkout:    s.checkout.Configured(),
		Webhooks:    s.payments.ConfiguredProviders(),
		RateLimit:   s.limiter.Enabled(),
	})
}

func (s *Server) ListSales(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sales, err := s.payments.ListSales(c.Request.Context(), paymentdomain.SalesFilter{
		Provider: c.Query("provider"),
		Limit:    limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sales})
}

func (s *Server) ListAnomalies(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	anomalies, err := s.reconciler.ListOpen(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": anomalies})
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var req auditdomain.ListAuditLogRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var err error
	if req.StartAt, err = parseTimeQuery(c.Query("start_at")); err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "start_at must be RFC3339"))
		return
	}
	if req.EndAt, err = parseTimeQuery(c.Query("end_at")); err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "end_at must be RFC3339"))
		return
	}

	resp, err := s.audit.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.AuditLogs,
		"page_info": resp.PageInfo,
	})
}

func parseTimeQuery(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
