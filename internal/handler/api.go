package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/omovies/internal/middleware"
	"github.com/user/omovies/internal/store"
	"github.com/user/omovies/internal/utils"
)

const (
	fragmentReviews = "partials/movie_reviews.html"
	fragmentRating  = "partials/movie_rating.html"
)

// PostReview 发布评论（htmx 片段）
func (h *Handler) PostReview(c *gin.Context) {
	tmdbID := paramID(c)
	s := middleware.GetStore(c)
	err := s.PostReview(c.Request.Context(), middleware.GetToken(c), c.PostForm("content"), tmdbID)
	h.respondMovieAction(c, s, err, "Votre critique a été publiée", fragmentReviews, tmdbID)
}

// UpdateReview 修改评论（htmx 片段）
func (h *Handler) UpdateReview(c *gin.Context) {
	s := middleware.GetStore(c)
	err := s.UpdateReview(c.Request.Context(), middleware.GetToken(c), c.PostForm("content"), paramID(c))
	h.respondMovieAction(c, s, err, "Votre critique a été modifiée", fragmentReviews, formInt(c, "tmdb_id"))
}

// PostRating 发布评分（htmx 片段）
func (h *Handler) PostRating(c *gin.Context) {
	tmdbID := paramID(c)
	s := middleware.GetStore(c)
	err := s.PostRating(c.Request.Context(), middleware.GetToken(c), formInt(c, "value"), tmdbID)
	h.respondMovieAction(c, s, err, "Votre note a été enregistrée", fragmentRating, tmdbID)
}

// UpdateRating 修改评分（htmx 片段）
func (h *Handler) UpdateRating(c *gin.Context) {
	s := middleware.GetStore(c)
	err := s.UpdateRating(c.Request.Context(), middleware.GetToken(c), formInt(c, "value"), paramID(c))
	h.respondMovieAction(c, s, err, "Votre note a été modifiée", fragmentRating, formInt(c, "tmdb_id"))
}

// ResetMovie 离开详情页时清空当前电影
func (h *Handler) ResetMovie(c *gin.Context) {
	middleware.GetStore(c).ResetCurrentMovie()
	if middleware.IsHTMX(c) {
		c.Status(http.StatusNoContent)
		return
	}
	utils.Success(c, nil)
}

// State 当前会话状态容器的快照（调试与前端同步使用）
func (h *Handler) State(c *gin.Context) {
	utils.Success(c, middleware.GetStore(c).Snapshot())
}

// respondMovieAction htmx 请求返回片段，普通表单提交则写入提示并跳回详情页
// tmdbID 为页面上展示的电影；状态容器中已不是这部电影时不返回片段，改为整页跳转
func (h *Handler) respondMovieAction(c *gin.Context, s *store.MoviesStore, err error, success, fragment string, tmdbID int) {
	movie := s.CurrentMovie()
	if tmdbID <= 0 && movie != nil {
		tmdbID = movie.TmdbID
	}
	target := "/"
	if tmdbID > 0 {
		target = "/films/" + strconv.Itoa(tmdbID)
	}

	if middleware.IsHTMX(c) && movie != nil && movie.TmdbID == tmdbID {
		data := gin.H{
			"Movie": movie,
		}
		if user := middleware.GetUser(c); user != nil {
			data["UserInfo"] = *user
		}
		if err != nil {
			data["Error"] = store.ReasonOf(err)
		} else {
			data["Success"] = success
		}
		c.HTML(http.StatusOK, fragment, data)
		return
	}

	sid := middleware.GetSessionID(c)
	if err != nil {
		h.Notices.Error(sid, store.ReasonOf(err))
	} else {
		h.Notices.Success(sid, success)
	}

	if middleware.IsHTMX(c) {
		h.Logger.Debug().Str("target", target).Msg("当前电影已变化，整页跳转")
		c.Header("HX-Redirect", target)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusFound, target)
}

func formInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.PostForm(key))
	if err != nil {
		return 0
	}
	return v
}
