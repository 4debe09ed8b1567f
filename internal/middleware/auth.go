package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/user/omovies/internal/model"
	"github.com/user/omovies/internal/store"
	"github.com/user/omovies/internal/utils"
)

// Session 与 gin 上下文中使用的键
const (
	sessionKeyID       = "sid"
	sessionKeyToken    = "token"
	sessionKeyUserInfo = "userinfo"

	ctxKeySessionID = "session_id"
	ctxKeyStore     = "movies_store"
	ctxKeyToken     = "api_token"
	ctxKeyUser      = "user"
)

// LoginPath 未登录时的跳转地址
const LoginPath = "/connexion"

// NewSessionStore 基于 Cookie 的会话存储
// secure 仅在 HTTPS 部署时开启，否则浏览器不会回传 Cookie
func NewSessionStore(secret string, maxAge time.Duration, secure bool) sessions.Store {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// StateContainer 为每个浏览器会话分配 ID，并注入该会话的状态容器
func StateContainer(registry *store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		sid, _ := session.Get(sessionKeyID).(string)
		if sid == "" {
			sid = uuid.NewString()
			session.Set(sessionKeyID, sid)
			_ = session.Save()
		}

		c.Set(ctxKeySessionID, sid)
		c.Set(ctxKeyStore, registry.Get(sid))
		c.Next()
	}
}

// OptionalAuth 读取会话中的 API 令牌与用户信息（不强制要求登录）
// 令牌已过期时清除登录状态
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(sessionKeyToken).(string)
		if token == "" {
			c.Next()
			return
		}

		if TokenExpired(token, time.Now()) {
			session.Delete(sessionKeyToken)
			session.Delete(sessionKeyUserInfo)
			_ = session.Save()
			c.Next()
			return
		}

		c.Set(ctxKeyToken, token)
		if su, ok := session.Get(sessionKeyUserInfo).(model.SessionUser); ok {
			c.Set(ctxKeyUser, su)
		}
		c.Next()
	}
}

// RequireAuth 必须登录中间件，需在 OptionalAuth 之后使用
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetToken(c) != "" {
			c.Next()
			return
		}

		target := LoginPath + "?redirect=" + url.QueryEscape(redirectTarget(c))
		switch {
		case IsHTMX(c):
			// htmx 请求通过响应头整页跳转
			c.Header("HX-Redirect", target)
			c.AbortWithStatus(http.StatusUnauthorized)
		case strings.Contains(c.GetHeader("Accept"), "text/html") || c.Request.Method == http.MethodPost:
			c.Redirect(http.StatusFound, target)
			c.Abort()
		default:
			utils.Unauthorized(c, "Vous devez être connecté")
			c.Abort()
		}
	}
}

// TokenExpired 读取 API 令牌的 exp
// 前端不持有 API 的签名密钥，因此只解析不验签；无法解析或没有 exp 时视为未过期，由 API 最终裁决
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// SignIn 登录成功后保存令牌与用户信息
func SignIn(c *gin.Context, token string, user model.SessionUser) error {
	session := sessions.Default(c)
	session.Set(sessionKeyToken, token)
	session.Set(sessionKeyUserInfo, user)
	c.Set(ctxKeyToken, token)
	c.Set(ctxKeyUser, user)
	return session.Save()
}

// SignOut 清空会话，返回原会话 ID 以便释放状态容器
func SignOut(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	sid, _ := session.Get(sessionKeyID).(string)
	session.Clear()
	return sid, session.Save()
}

// GetSessionID 当前会话 ID
func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxKeySessionID)
}

// GetStore 当前会话的状态容器
func GetStore(c *gin.Context) *store.MoviesStore {
	if v, ok := c.Get(ctxKeyStore); ok {
		return v.(*store.MoviesStore)
	}
	return nil
}

// GetToken API 令牌（未登录返回空字符串）
func GetToken(c *gin.Context) string {
	return c.GetString(ctxKeyToken)
}

// GetUser 当前登录用户（未登录返回 nil）
func GetUser(c *gin.Context) *model.SessionUser {
	if v, ok := c.Get(ctxKeyUser); ok {
		su := v.(model.SessionUser)
		return &su
	}
	return nil
}

// IsHTMX 是否 htmx 发起的请求
func IsHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// redirectTarget 登录后的回跳地址，仅允许站内路径
func redirectTarget(c *gin.Context) string {
	if c.Request.Method == http.MethodGet {
		return c.Request.URL.RequestURI()
	}
	if ref, err := url.Parse(c.Request.Referer()); err == nil && ref.Path != "" {
		return SafeRedirect(ref.RequestURI())
	}
	return "/"
}

// SafeRedirect 过滤站外跳转
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
