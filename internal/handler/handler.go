package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/user/omovies/internal/config"
	"github.com/user/omovies/internal/middleware"
	"github.com/user/omovies/internal/model"
	"github.com/user/omovies/internal/service"
	"github.com/user/omovies/internal/store"
	"github.com/user/omovies/internal/utils"
	"golang.org/x/sync/errgroup"
)

// Handler HTTP 处理器
type Handler struct {
	Config   *config.Config
	Movies   *service.MovieService
	Auth     *service.AuthService
	Registry *store.Registry
	Notices  *store.Notices
	Logger   zerolog.Logger
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, movies *service.MovieService, auth *service.AuthService,
	registry *store.Registry, notices *store.Notices, logger zerolog.Logger) *Handler {
	return &Handler{
		Config:   cfg,
		Movies:   movies,
		Auth:     auth,
		Registry: registry,
		Notices:  notices,
		Logger:   logger.With().Str("component", "handler").Logger(),
	}
}

// RenderData 统一封装公共渲染数据
func (h *Handler) RenderData(c *gin.Context, data gin.H) gin.H {
	res := gin.H{
		"SiteName":   h.Config.SiteName,
		"SiteUrl":    h.Config.SiteUrl,
		"Path":       c.Request.URL.Path,
		"ActiveMenu": activeMenu(c.Request.URL.Path),
	}

	if user := middleware.GetUser(c); user != nil {
		res["UserInfo"] = *user
	}

	// 取出上一次动作留下的提示
	if sid := middleware.GetSessionID(c); sid != "" {
		res["Notices"] = h.Notices.Pop(sid)
	}

	for k, v := range data {
		res[k] = v
	}
	return res
}

// activeMenu 根据路径判断当前高亮菜单
func activeMenu(path string) string {
	switch path {
	case "/":
		return "home"
	case "/films":
		return "films"
	case "/actuellement", "/selection/nowplaying":
		return "nowplaying"
	case "/prochainement", "/selection/upcoming":
		return "upcoming"
	case "/selection/popular":
		return "popular"
	case "/selection/toprated":
		return "toprated"
	default:
		return ""
	}
}

// ==================== 公开页面 ====================

// carousel 首页轮播
type carousel struct {
	Filter    model.MoviesFilter
	Label     string
	Movies    []model.MovieListItem
	Error     string
	Retryable bool
}

// Home 首页：四个轮播并发加载，单个失败不影响其他
func (h *Handler) Home(c *gin.Context) {
	if s := middleware.GetStore(c); s != nil {
		s.ResetCurrentMovie()
	}

	token := middleware.GetToken(c)
	carousels := make([]carousel, len(model.Filters))

	var g errgroup.Group
	for i, filter := range model.Filters {
		carousels[i] = carousel{Filter: filter, Label: filter.Label()}
		g.Go(func() error {
			list, err := h.Movies.GetMoviesByFilter(c.Request.Context(), token, filter)
			if err != nil {
				carousels[i].Error = failureReason(err)
				carousels[i].Retryable = retryable(err)
				return err
			}
			carousels[i].Movies = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.Logger.Warn().Err(err).Msg("首页轮播加载失败")
	}

	c.HTML(http.StatusOK, "home.html", h.RenderData(c, gin.H{
		"Title":     h.Config.SiteName + " - Accueil",
		"Carousels": carousels,
	}))
}

// Discover 电影列表页（分页、排序、类型筛选），使用页面内状态
func (h *Handler) Discover(c *gin.Context) {
	var params model.DiscoverParams
	if err := c.ShouldBindQuery(&params); err != nil || params.Page < 1 {
		params.Page = 1
	}

	list, err := h.Movies.GetMoviesByParams(c.Request.Context(), middleware.GetToken(c), params)
	data := gin.H{
		"Title":    "Films - " + h.Config.SiteName,
		"Heading":  "Tous les films",
		"Movies":   list,
		"Params":   params,
		"PrevPage": params.Page - 1,
		"NextPage": params.Page + 1,
	}
	if err != nil {
		h.Logger.Warn().Err(err).Interface("params", params).Msg("电影列表加载失败")
		h.setFailure(c, data, failureReason(err), err)
	}
	c.HTML(http.StatusOK, "movies.html", h.RenderData(c, data))
}

// Selection 按服务端预设筛选条件展示列表，结果写入会话状态容器
func (h *Handler) Selection(c *gin.Context) {
	h.renderSelection(c, model.MoviesFilter(c.Param("filter")))
}

// Upcoming 即将上映
func (h *Handler) Upcoming(c *gin.Context) {
	h.renderSelection(c, model.FilterUpcoming)
}

// NowPlaying 正在上映
func (h *Handler) NowPlaying(c *gin.Context) {
	h.renderSelection(c, model.FilterNowPlaying)
}

func (h *Handler) renderSelection(c *gin.Context, filter model.MoviesFilter) {
	s := middleware.GetStore(c)
	s.ResetCurrentMovie()

	_, err := s.FetchMovies(c.Request.Context(), middleware.GetToken(c), filter)
	if isValidation(err) {
		h.NotFound(c)
		return
	}

	data := gin.H{
		"Title":    filter.Label() + " - " + h.Config.SiteName,
		"Heading":  filter.Label(),
		"Filter":   filter,
		"Movies":   s.Snapshot().MovieList,
	}
	if err != nil {
		h.setFailure(c, data, store.ReasonOf(err), err)
	}
	c.HTML(http.StatusOK, "movies.html", h.RenderData(c, data))
}

// Movie 电影详情页
func (h *Handler) Movie(c *gin.Context) {
	s := middleware.GetStore(c)
	fetched, err := s.FetchOneMovie(c.Request.Context(), middleware.GetToken(c), c.Param("id"))
	if err != nil {
		if isValidation(err) || isNotFound(err) {
			h.NotFound(c)
			return
		}
		data := gin.H{
			"Title": "Erreur - " + h.Config.SiteName,
		}
		h.setFailure(c, data, store.ReasonOf(err), err)
		c.HTML(http.StatusBadGateway, "error.html", h.RenderData(c, data))
		return
	}

	// 优先渲染状态容器中的电影；被更新的请求覆盖时退回本次结果
	movie := s.CurrentMovie()
	if movie == nil || movie.TmdbID != fetched.TmdbID {
		movie = fetched
	}

	c.HTML(http.StatusOK, "movie.html", h.RenderData(c, gin.H{
		"Title": movie.Title + " - " + h.Config.SiteName,
		"Movie": movie,
	}))
}

// NotFound 404 页面
func (h *Handler) NotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "404.html", h.RenderData(c, gin.H{
		"Title": "Page introuvable - " + h.Config.SiteName,
	}))
}

// ==================== 认证页面 ====================

// LoginPage 登录页面
func (h *Handler) LoginPage(c *gin.Context) {
	if middleware.GetToken(c) != "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", h.RenderData(c, gin.H{
		"Title":    "Connexion - " + h.Config.SiteName,
		"Redirect": middleware.SafeRedirect(c.Query("redirect")),
	}))
}

// Login 登录处理
func (h *Handler) Login(c *gin.Context) {
	redirect := middleware.SafeRedirect(c.PostForm("redirect"))
	render := func(status int, msg string) {
		c.HTML(status, "login.html", h.RenderData(c, gin.H{
			"Title":    "Connexion - " + h.Config.SiteName,
			"Error":    msg,
			"Email":    c.PostForm("email"),
			"Redirect": redirect,
		}))
	}

	var creds model.LoginCredentials
	if err := c.ShouldBind(&creds); err != nil {
		render(http.StatusBadRequest, "Veuillez saisir un email valide et un mot de passe")
		return
	}

	res, err := h.Auth.Login(c.Request.Context(), creds)
	if err != nil {
		h.Logger.Warn().Err(err).Str("email", creds.Email).Msg("登录失败")
		render(http.StatusOK, failureReason(err))
		return
	}

	if err := h.signIn(c, res); err != nil {
		render(http.StatusInternalServerError, "Connexion impossible, veuillez réessayer")
		return
	}
	h.Notices.Success(middleware.GetSessionID(c), "Bienvenue "+res.User.Pseudo+" !")
	c.Redirect(http.StatusFound, redirect)
}

// SignupPage 注册页面
func (h *Handler) SignupPage(c *gin.Context) {
	if middleware.GetToken(c) != "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "signup.html", h.RenderData(c, gin.H{
		"Title": "Inscription - " + h.Config.SiteName,
	}))
}

// Signup 注册处理，成功后直接登录
func (h *Handler) Signup(c *gin.Context) {
	render := func(status int, msg string) {
		c.HTML(status, "signup.html", h.RenderData(c, gin.H{
			"Title":  "Inscription - " + h.Config.SiteName,
			"Error":  msg,
			"Email":  c.PostForm("email"),
			"Pseudo": c.PostForm("pseudo"),
		}))
	}

	var creds model.SignupCredentials
	if err := c.ShouldBind(&creds); err != nil {
		render(http.StatusBadRequest, signupValidationMessage(err))
		return
	}

	res, err := h.Auth.Signup(c.Request.Context(), creds)
	if err != nil {
		h.Logger.Warn().Err(err).Str("email", creds.Email).Msg("注册失败")
		render(http.StatusOK, failureReason(err))
		return
	}

	if err := h.signIn(c, res); err != nil {
		render(http.StatusInternalServerError, "Inscription impossible, veuillez réessayer")
		return
	}
	h.Notices.Success(middleware.GetSessionID(c), "Votre compte a été créé")
	c.Redirect(http.StatusFound, "/")
}

// Logout 退出登录并释放会话的状态容器
func (h *Handler) Logout(c *gin.Context) {
	sid, err := middleware.SignOut(c)
	if err != nil {
		h.Logger.Error().Err(err).Msg("清除会话失败")
	}
	// 丢弃以旧令牌发起、尚未返回的请求结果
	if s := middleware.GetStore(c); s != nil {
		s.ResetCurrentMovie()
		s.ClearMovieList()
	}
	if sid != "" {
		h.Registry.Drop(sid)
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) signIn(c *gin.Context, res *model.AuthResult) error {
	err := middleware.SignIn(c, res.Token, model.SessionUser{
		ID:     res.User.ID,
		Email:  res.User.Email,
		Pseudo: res.User.Pseudo,
	})
	if err != nil {
		h.Logger.Error().Err(err).Msg("保存会话失败")
	}
	return err
}

// failureReason 服务层错误转为可展示的原因
func failureReason(err error) string {
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return store.ReasonOf(err)
}

// setFailure 写入失败原因，可重试时附带重试链接
func (h *Handler) setFailure(c *gin.Context, data gin.H, reason string, err error) {
	data["Error"] = reason
	if retryable(err) {
		data["RetryURL"] = c.Request.URL.RequestURI()
	}
}

// retryable 服务层错误（网络或远程失败）总是允许手动重试
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var actionErr *store.ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Retryable()
	}
	return true
}

func isValidation(err error) bool {
	var actionErr *store.ActionError
	return errors.As(err, &actionErr) && actionErr.Kind == store.FailureValidation
}

func isNotFound(err error) bool {
	var apiErr *utils.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// signupValidationMessage 注册表单校验失败时的提示（只取第一个错误字段）
func signupValidationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Veuillez vérifier le formulaire"
	}
	switch fieldErrs[0].Field() {
	case "Email":
		return "Adresse email invalide"
	case "Pseudo":
		return "Le pseudo doit contenir entre 2 et 30 caractères"
	case "Password":
		return "Le mot de passe doit contenir au moins 8 caractères"
	case "ConfirmPassword":
		return "Les mots de passe ne correspondent pas"
	default:
		return "Veuillez vérifier le formulaire"
	}
}

// paramID 解析路径中的数字 ID，无效时返回 0，由动作校验拒绝
func paramID(c *gin.Context) int {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0
	}
	return id
}
