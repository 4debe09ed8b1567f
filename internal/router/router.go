package router

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/user/omovies/internal/handler"
	"github.com/user/omovies/internal/middleware"
)

// ImageBaseURL 海报图片地址前缀
const ImageBaseURL = "https://image.tmdb.org/t/p/w500"

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.Registry.Len()})
	})

	site := r.Group("/")
	site.Use(middleware.StateContainer(h.Registry))
	site.Use(middleware.OptionalAuth())

	// ==================== 公开页面 ====================
	site.GET("/", h.Home)
	site.GET("/films", h.Discover)
	site.GET("/films/:id", h.Movie)
	site.GET("/selection/:filter", h.Selection)
	site.GET("/prochainement", h.Upcoming)
	site.GET("/actuellement", h.NowPlaying)

	// ==================== 认证页面 ====================
	site.GET("/connexion", h.LoginPage)
	site.POST("/connexion", h.Login)
	site.GET("/inscription", h.SignupPage)
	site.POST("/inscription", h.Signup)
	site.POST("/deconnexion", h.Logout)

	// ==================== htmx API ====================
	api := site.Group("/api")
	{
		api.GET("/state", h.State)
		api.POST("/movie/reset", h.ResetMovie)
	}

	// 评论与评分需要登录
	authed := api.Group("")
	authed.Use(middleware.RequireAuth())
	{
		authed.POST("/movie/:id/review", h.PostReview)
		authed.POST("/review/:id", h.UpdateReview)
		authed.POST("/movie/:id/rating", h.PostRating)
		authed.POST("/rating/:id", h.UpdateRating)
	}

	r.NoRoute(middleware.StateContainer(h.Registry), middleware.OptionalAuth(), h.NotFound)
}

// FuncMap 模板函数
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"default": func(defaultValue, value interface{}) interface{} {
			switch v := value.(type) {
			case string:
				if v == "" {
					return defaultValue
				}
			case int:
				if v == 0 {
					return defaultValue
				}
			case nil:
				return defaultValue
			}
			return value
		},
		"poster": func(path string) string {
			if path == "" {
				return "/static/img/no-poster.svg"
			}
			return ImageBaseURL + path
		},
		"rating": func(v float64) string {
			return strconv.FormatFloat(v, 'f', 1, 64)
		},
		"millions": func(v float64) string {
			return strconv.FormatFloat(v, 'f', -1, 64) + " M$"
		},
		"stars": func() []int {
			return []int{1, 2, 3, 4, 5}
		},
	}
}

// LoadTemplates 使用 multitemplate 加载模板，解决模板继承问题
// 页面 = 布局 + 全部局部模板 + 页面本身；htmx 片段 = 片段本身 + 其余局部模板
func LoadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	partials, err := filepath.Glob(templatesDir + "/partials/*.html")
	if err != nil {
		panic(err)
	}

	funcMap := FuncMap()

	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(partials)+1)
		files = append(files, layouts...)
		files = append(files, partials...)
		files = append(files, view)
		return files
	}

	// 注册所有页面模板
	pages := []string{
		"home", "movies", "movie", "login", "signup", "error", "404",
	}
	for _, page := range pages {
		viewPath := templatesDir + "/pages/" + page + ".html"
		r.AddFromFilesFuncs(page+".html", funcMap, assemble(viewPath)...)
	}

	// 注册可单独渲染的片段
	for _, partial := range partials {
		files := []string{partial}
		for _, other := range partials {
			if other != partial {
				files = append(files, other)
			}
		}
		r.AddFromFilesFuncs("partials/"+filepath.Base(partial), funcMap, files...)
	}

	return r
}
