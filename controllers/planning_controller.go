package controllers

import (
	"net/http"

	"bookkeeping/services"

	"github.com/gin-gonic/gin"
)

// PlanningController обрабатывает запланированные операции
type PlanningController struct {
	planning *services.PlanningService
	stats    *services.StatisticService
}

func NewPlanningController(planning *services.PlanningService, stats *services.StatisticService) *PlanningController {
	return &PlanningController{planning: planning, stats: stats}
}

func (p *PlanningController) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	plans, err := p.planning.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"planned_transactions": plans})
}

func (p *PlanningController) Add(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}

	id, err := p.planning.Add(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": id})
}

func (p *PlanningController) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	deleted, err := p.planning.Delete(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": deleted})
}

// Statistic - плановые доход и расход за период
func (p *PlanningController) Statistic(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	rng, err := services.ParseDateRange(c.Query("transaction_start_date"), c.Query("transaction_end_date"))
	if err != nil {
		respondError(c, err)
		return
	}

	statistic, err := p.stats.PlannedStatistic(c.Request.Context(), userID, rng)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"planned_statistic": statistic})
}
