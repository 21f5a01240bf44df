package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khorolets/near-rewards/internal/domain"
	"github.com/khorolets/near-rewards/internal/nearrpc"
	"github.com/khorolets/near-rewards/internal/price"
	"github.com/khorolets/near-rewards/internal/render"
	"github.com/khorolets/near-rewards/internal/worker"
)

// ReportStore holds the latest report and can run a new one.
type ReportStore interface {
	Latest() (domain.Report, error)
	Refresh(ctx context.Context) (domain.Report, error)
}

// QuoteStore returns the latest spot price, or nil when unknown.
type QuoteStore interface {
	Latest() *price.Quote
}

// NodeStatus probes the NEAR node.
type NodeStatus interface {
	Status(ctx context.Context) (nearrpc.Status, error)
}

// Handler provides HTTP endpoints for the rewards API.
type Handler struct {
	reports ReportStore
	quotes  QuoteStore // optional
	node    NodeStatus // optional
}

// NewHandler creates a new API handler.
func NewHandler(reports ReportStore, quotes QuoteStore, node NodeStatus) *Handler {
	if reports == nil {
		panic("api.NewHandler: reports is nil")
	}
	return &Handler{reports: reports, quotes: quotes, node: node}
}

type summary struct {
	RewardSum string       `json:"reward_sum_near"`
	LiquidSum string       `json:"liquid_sum_near"`
	Price     *price.Quote `json:"price,omitempty"`
	RewardUSD string       `json:"reward_sum_usd,omitempty"`
	LiquidUSD string       `json:"liquid_sum_usd,omitempty"`
}

type reportResponse struct {
	domain.Report
	Summary summary `json:"summary"`
}

type accountResponse struct {
	AccountID string                  `json:"account_id"`
	Rows      []domain.AccountRow     `json:"rows"`
	Failures  []domain.AccountFailure `json:"failures"`
}

func (h *Handler) respond(report domain.Report) reportResponse {
	rewardSum := report.Totals.RewardSum.Human()
	liquidSum := report.Totals.LiquidSum.Human()
	s := summary{
		RewardSum: rewardSum.String(),
		LiquidSum: liquidSum.String(),
	}
	if h.quotes != nil {
		if q := h.quotes.Latest(); q != nil {
			s.Price = q
			s.RewardUSD = rewardSum.Mul(q.USD).StringFixed(2)
			s.LiquidUSD = liquidSum.Mul(q.USD).StringFixed(2)
		}
	}
	return reportResponse{Report: report, Summary: s}
}

// GetReport handles GET /api/v1/report.
func (h *Handler) GetReport(c *gin.Context) {
	report, err := h.reports.Latest()
	if err != nil {
		if errors.Is(err, worker.ErrNoReport) {
			writeError(c, http.StatusServiceUnavailable, "no report yet")
			return
		}
		slog.Error("failed to get latest report", "error", err)
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, h.respond(report))
}

// GetReportText handles GET /api/v1/report.txt.
func (h *Handler) GetReportText(c *gin.Context) {
	report, err := h.reports.Latest()
	if err != nil {
		c.String(http.StatusServiceUnavailable, "no report yet\n")
		return
	}
	var quote *price.Quote
	if h.quotes != nil {
		quote = h.quotes.Latest()
	}
	c.String(http.StatusOK, render.Report(report, quote))
}

// GetAccount handles GET /api/v1/report/accounts/:accountID.
func (h *Handler) GetAccount(c *gin.Context) {
	accountID := c.Param("accountID")

	report, err := h.reports.Latest()
	if err != nil {
		writeError(c, http.StatusServiceUnavailable, "no report yet")
		return
	}

	rows := report.RowsFor(accountID)
	failures := report.FailuresFor(accountID)
	if len(rows) == 0 && len(failures) == 0 {
		writeError(c, http.StatusNotFound, "account not tracked")
		return
	}
	c.JSON(http.StatusOK, accountResponse{AccountID: accountID, Rows: rows, Failures: failures})
}

// Refresh handles POST /api/v1/report/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	report, err := h.reports.Refresh(c.Request.Context())
	if err != nil {
		slog.Error("failed to refresh report", "error", err)
		writeError(c, http.StatusBadGateway, "failed to refresh report")
		return
	}
	c.JSON(http.StatusOK, h.respond(report))
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	if h.node == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	status, err := h.node.Status(c.Request.Context())
	if err != nil {
		slog.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"chain_id":            status.ChainID,
		"latest_block_height": status.SyncInfo.LatestBlockHeight,
	})
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
