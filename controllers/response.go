package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"bookkeeping/middleware"
	"bookkeeping/services"

	"github.com/gin-gonic/gin"
)

// respondError переводит ошибку сервиса в HTTP ответ.
// Подробности уходят только в лог через c.Error.
func respondError(c *gin.Context, err error) {
	c.Error(err)

	switch {
	case errors.Is(err, services.ErrBadRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad request"})
	case errors.Is(err, services.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"Authenticated": "false"})
	case errors.Is(err, services.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// badRequest оборачивает ошибку разбора тела запроса
func badRequest(err error) error {
	return fmt.Errorf("%w: %v", services.ErrBadRequest, err)
}

// currentUserID достает пользователя, установленного middleware.SessionAuth
func currentUserID(c *gin.Context) (uint, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, services.ErrUnauthorized)
		return 0, false
	}
	return identity.UserID, true
}

// pathID разбирает числовой идентификатор из пути; мусор дает 404
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, fmt.Errorf("%w: id %q", services.ErrNotFound, c.Param("id")))
		return 0, false
	}
	return uint(id), true
}
