package controllers

import (
	"net/http"

	"bookkeeping/config"
	"bookkeeping/middleware"
	"bookkeeping/services"

	"github.com/gin-gonic/gin"
)

// IndexGreeting - ответ корневого адреса
const IndexGreeting = "Hello, it's my Bookkeeping!"

type AuthController struct {
	users    *services.UserService
	sessions *services.SessionService
	cookie   config.AuthConfig
}

type SignInResponse struct {
	Authenticated string `json:"Authenticated"`
	Token         string `json:"token"`
}

type SignUpResponse struct {
	Register uint   `json:"register"`
	Token    string `json:"token"`
}

func NewAuthController(users *services.UserService, sessions *services.SessionService, cfg config.AuthConfig) *AuthController {
	return &AuthController{
		users:    users,
		sessions: sessions,
		cookie:   cfg,
	}
}

// Index отвечает приветствием
func (a *AuthController) Index(c *gin.Context) {
	c.String(http.StatusOK, IndexGreeting)
}

// AuthError - цель перенаправления для запросов без сессии
func (a *AuthController) AuthError(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"Authenticated": "false"})
}

// SignIn обрабатывает вход пользователя
func (a *AuthController) SignIn(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}

	user, err := a.users.Authenticate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := a.startSession(c, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SignInResponse{Authenticated: "true", Token: token})
}

// SignUp регистрирует пользователя и сразу открывает сессию
func (a *AuthController) SignUp(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}

	user, err := a.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := a.startSession(c, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SignUpResponse{Register: user.ID, Token: token})
}

// Logout отзывает текущую сессию и стирает cookie
func (a *AuthController) Logout(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, services.ErrUnauthorized)
		return
	}

	if err := a.sessions.Revoke(c.Request.Context(), identity.SessionID); err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cookie.CookieName, "", -1, "/", "", a.cookie.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"Logout": true})
}

func (a *AuthController) startSession(c *gin.Context, userID uint) (string, error) {
	token, _, err := a.sessions.Create(c.Request.Context(), userID)
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cookie.CookieName, token, int(a.sessions.TTL().Seconds()), "/", "", a.cookie.CookieSecure, true)
	return token, nil
}
