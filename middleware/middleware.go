package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookkeeping/utils"

	"github.com/gin-gonic/gin"
)

// RateLimit ограничивает частоту запросов с одного IP.
// Лимитер с нулевым лимитом пропускает все запросы.
func RateLimit(limiter *utils.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limiter.Limit() <= 0 {
			c.Next()
			return
		}

		// Получаем IP-адрес клиента
		clientIP := c.ClientIP()

		// Проверяем лимит
		if !limiter.Allow(clientIP) {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(limiter.GetResetTime(clientIP)).Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}

		// Добавляем заголовки с информацией о лимитах
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.GetRemaining(clientIP)))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(limiter.GetResetTime(clientIP).Unix(), 10))

		c.Next()
	}
}

// Logger логирует запросы и собирает метрики.
// 4xx пишутся с уровнем warn, 5xx с уровнем error.
func Logger(logger *slog.Logger, metrics *utils.Metrics) gin.HandlerFunc {
	log := utils.Component(logger, "http")
	return func(c *gin.Context) {
		// Начало запроса
		startTime := time.Now()

		// Обработка запроса
		c.Next()

		// Время выполнения
		duration := time.Since(startTime)
		status := c.Writer.Status()

		errorType := ""
		if status >= http.StatusBadRequest {
			errorType = fmt.Sprintf("http_%d", status)
		}
		if metrics != nil {
			metrics.RecordRequest(duration, errorType)
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", duration,
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.ErrorContext(c.Request.Context(), "запрос", attrs...)
		case status >= http.StatusBadRequest:
			log.WarnContext(c.Request.Context(), "запрос", attrs...)
		default:
			log.InfoContext(c.Request.Context(), "запрос", attrs...)
		}
	}
}

// Recovery перехватывает панику обработчика и отвечает 500
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	log := utils.Component(logger, "http")
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// Логируем панику
				log.Error("перехвачена паника", "panic", err, "path", c.Request.URL.Path)

				// Отправляем ответ клиенту
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}

// CORSMiddleware middleware для CORS. Origin отражается только из списка
// разрешенных, cookie сессии требуют конкретного Origin вместо "*".
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		c.Writer.Header().Add("Vary", "Origin")
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
				c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
				c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
