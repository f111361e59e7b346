package controllers

import (
	"net/http"

	"bookkeeping/services"

	"github.com/gin-gonic/gin"
)

// AccountController обрабатывает запросы, связанные со счетами
type AccountController struct {
	accounts *services.AccountService
}

func NewAccountController(accounts *services.AccountService) *AccountController {
	return &AccountController{accounts: accounts}
}

// GetAccounts возвращает счета текущего пользователя
func (a *AccountController) GetAccounts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	accounts, err := a.accounts.GetAccountsByUserID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"Account": accounts})
}

// CreateAccount открывает дополнительный счет
func (a *AccountController) CreateAccount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}

	id, err := a.accounts.CreateAccount(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": id})
}
