package controllers

import (
	"net/http"

	"bookkeeping/services"

	"github.com/gin-gonic/gin"
)

// TransactionController обрабатывает журнал операций, статистику и выгрузку
type TransactionController struct {
	ledger *services.LedgerService
	stats  *services.StatisticService
	export *services.ExportService
}

func NewTransactionController(ledger *services.LedgerService, stats *services.StatisticService, export *services.ExportService) *TransactionController {
	return &TransactionController{ledger: ledger, stats: stats, export: export}
}

// Latest возвращает все операции основного счета
func (t *TransactionController) Latest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	transactions, err := t.ledger.ListLatest(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// Filter выбирает операции по параметрам запроса
func (t *TransactionController) Filter(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var params services.FilterParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, badRequest(err))
		return
	}
	filter, err := services.ParseFilter(params)
	if err != nil {
		respondError(c, err)
		return
	}

	transactions, err := t.ledger.Filter(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// Statistic считает итоги за период; обе даты обязательны
func (t *TransactionController) Statistic(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	rng, err := services.ParseDateRange(c.Query("transaction_start_date"), c.Query("transaction_end_date"))
	if err != nil {
		respondError(c, err)
		return
	}

	statistic, err := t.stats.Statistic(c.Request.Context(), userID, rng)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statistic": statistic})
}

// Add проводит операцию по основному счету
func (t *TransactionController) Add(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}

	id, err := t.ledger.Add(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": id})
}

// Delete удаляет операцию и откатывает баланс
func (t *TransactionController) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	deleted, err := t.ledger.Delete(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": deleted})
}

// Export отдает журнал в XML; период необязателен, но задается обеими датами
func (t *TransactionController) Export(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var rng *services.DateRange
	start, end := c.Query("transaction_start_date"), c.Query("transaction_end_date")
	if start != "" || end != "" {
		r, err := services.ParseDateRange(start, end)
		if err != nil {
			respondError(c, err)
			return
		}
		rng = &r
	}

	data, err := t.export.ExportXML(c.Request.Context(), userID, rng)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="transactions.xml"`)
	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}
