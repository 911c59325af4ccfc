package opshttp

import (
	"net/http"
	"strconv"

	"sibyl/internal/store/decisionlog"

	"github.com/gin-gonic/gin"
)

// Router 暴露决策审计查询接口。
type Router struct {
	Logs *decisionlog.Store
}

func NewRouter(logs *decisionlog.Store) *Router {
	return &Router{Logs: logs}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil || r.Logs == nil {
		return
	}
	group.GET("/decisions", r.handleDecisions)
	group.GET("/decisions/:trace_id", r.handleDecisionByTrace)
}

func (r *Router) handleDecisions(c *gin.Context) {
	q := decisionlog.Query{
		Point: c.Query("point"),
		Pair:  c.Query("pair"),
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		q.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		q.Offset = v
	}
	records, err := r.Logs.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": records, "count": len(records)})
}

func (r *Router) handleDecisionByTrace(c *gin.Context) {
	rec, err := r.Logs.ByTraceID(c.Request.Context(), c.Param("trace_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "trace not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
