package store

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/user/omovies/internal/model"
	"github.com/user/omovies/internal/utils"
)

// 动作名称，用于日志与 ActionError
const (
	ActionFetchOneMovie = "fetchOneMovie"
	ActionFetchMovies   = "fetchMovies"
	ActionPostReview    = "postReview"
	ActionUpdateReview  = "updateReview"
	ActionPostRating    = "postRating"
	ActionUpdateRating  = "updateRating"
)

// MovieAPI 状态容器依赖的远程端点
type MovieAPI interface {
	GetMovie(ctx context.Context, token, id string) (*model.Movie, error)
	GetMoviesByFilter(ctx context.Context, token string, filter model.MoviesFilter) ([]model.MovieListItem, error)
	PostReview(ctx context.Context, token string, tmdbID int, content string) (*model.ReviewResult, error)
	PatchReview(ctx context.Context, token string, reviewID int, content string) (*model.ReviewResult, error)
	PostRating(ctx context.Context, token string, tmdbID, value int) (*model.RatingResult, error)
	PatchRating(ctx context.Context, token string, ratingID, value int) (*model.RatingResult, error)
}

type resource int

const (
	resourceMovie resource = iota
	resourceList
)

// MoviesStore 单个会话的状态容器：当前电影与当前列表
//
// 远程调用期间不持有锁，结果返回后在锁内一次性写入。
// 每次拉取都会领取所属资源的递增序号，只有序号仍是最新的结果才会写入，
// 离开详情页（ResetCurrentMovie）同样会推进电影序号。
type MoviesStore struct {
	api    MovieAPI
	logger zerolog.Logger

	mu    sync.Mutex
	state model.MoviesState
	seq   [2]uint64
}

func NewMoviesStore(api MovieAPI, logger zerolog.Logger) *MoviesStore {
	return &MoviesStore{
		api:    api,
		logger: logger.With().Str("component", "store").Logger(),
		state:  model.MoviesState{MovieList: []model.MovieListItem{}},
	}
}

// Snapshot 返回当前状态的深拷贝，供渲染使用
func (s *MoviesStore) Snapshot() model.MoviesState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.MoviesState{
		CurrentMovie: s.state.CurrentMovie.Clone(),
		MovieList:    cloneList(s.state.MovieList),
	}
}

// CurrentMovie 当前电影的拷贝，未加载时为 nil
func (s *MoviesStore) CurrentMovie() *model.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentMovie.Clone()
}

// MovieList 当前列表的拷贝
func (s *MoviesStore) MovieList() []model.MovieListItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneList(s.state.MovieList)
}

// FetchOneMovie 拉取单部电影并整体替换 CurrentMovie，随后计算派生字段
// 返回本次拉取到的电影（即使结果因过期未写入状态）
func (s *MoviesStore) FetchOneMovie(ctx context.Context, token, id string) (*model.Movie, error) {
	id = strings.TrimSpace(id)
	if err := checkMovieID(ActionFetchOneMovie, id); err != nil {
		return nil, s.fail(err)
	}

	ticket := s.next(resourceMovie)
	movie, err := s.api.GetMovie(context.WithoutCancel(ctx), token, id)
	if err == nil && movie == nil {
		err = utils.ErrNoContent
	}
	if err != nil {
		return nil, s.fail(classify(ActionFetchOneMovie, err))
	}

	withDerivedFields(movie)

	s.mu.Lock()
	applied := s.current(resourceMovie, ticket)
	if applied {
		s.state.CurrentMovie = movie.Clone()
	}
	s.mu.Unlock()

	s.logResult(ActionFetchOneMovie, applied).Int("tmdb_id", movie.TmdbID).Msg("电影详情已加载")
	return movie, nil
}

// FetchMovies 按筛选条件拉取列表并整体替换 MovieList（空列表同样替换）
func (s *MoviesStore) FetchMovies(ctx context.Context, token string, filter model.MoviesFilter) ([]model.MovieListItem, error) {
	if err := checkFilter(ActionFetchMovies, filter); err != nil {
		return nil, s.fail(err)
	}

	ticket := s.next(resourceList)
	list, err := s.api.GetMoviesByFilter(context.WithoutCancel(ctx), token, filter)
	if err != nil {
		return nil, s.fail(classify(ActionFetchMovies, err))
	}
	if list == nil {
		list = []model.MovieListItem{}
	}

	s.mu.Lock()
	applied := s.current(resourceList, ticket)
	if applied {
		s.state.MovieList = cloneList(list)
	}
	s.mu.Unlock()

	s.logResult(ActionFetchMovies, applied).Str("filter", string(filter)).Int("count", len(list)).Msg("电影列表已加载")
	return list, nil
}

// PostReview 发布评论，成功后追加到 reviews 并写入 user_data.review
func (s *MoviesStore) PostReview(ctx context.Context, token, content string, tmdbID int) error {
	content = strings.TrimSpace(content)
	if err := checkReview(ActionPostReview, content, tmdbID, "Identifiant de film invalide"); err != nil {
		return s.fail(err)
	}

	res, err := s.api.PostReview(context.WithoutCancel(ctx), token, tmdbID, content)
	if err != nil {
		return s.fail(classify(ActionPostReview, err))
	}

	s.mutateCurrent(ActionPostReview, tmdbID, func(m *model.Movie) {
		review := model.Review{ReviewID: res.ReviewID, Content: content}
		m.Reviews = append(m.Reviews, review)
		m.UserData.Review = &review
	})
	return nil
}

// UpdateReview 修改评论，只替换 reviews 中 id 相同的条目，不会新增
// 评论不属于当前电影时跳过写入
func (s *MoviesStore) UpdateReview(ctx context.Context, token, content string, reviewID int) error {
	content = strings.TrimSpace(content)
	if err := checkReview(ActionUpdateReview, content, reviewID, "Identifiant de critique invalide"); err != nil {
		return s.fail(err)
	}

	if _, err := s.api.PatchReview(context.WithoutCancel(ctx), token, reviewID, content); err != nil {
		return s.fail(classify(ActionUpdateReview, err))
	}

	s.mutateOwned(ActionUpdateReview, ownsReview(reviewID), func(m *model.Movie) {
		for i := range m.Reviews {
			if m.Reviews[i].ReviewID == reviewID {
				m.Reviews[i].Content = content
			}
		}
		if m.UserData.Review != nil && m.UserData.Review.ReviewID == reviewID {
			m.UserData.Review.Content = content
		}
	})
	return nil
}

// PostRating 发布评分，平均分总是以服务端为准；仅当返回 rating_id 时写入 user_data.rating
func (s *MoviesStore) PostRating(ctx context.Context, token string, rating, tmdbID int) error {
	if err := checkRating(ActionPostRating, rating, tmdbID, "Identifiant de film invalide"); err != nil {
		return s.fail(err)
	}

	res, err := s.api.PostRating(context.WithoutCancel(ctx), token, tmdbID, rating)
	if err != nil {
		return s.fail(classify(ActionPostRating, err))
	}

	s.mutateCurrent(ActionPostRating, tmdbID, func(m *model.Movie) {
		m.AverageRating = res.MovieAverageRating
		if res.RatingID != nil {
			m.UserData.Rating = &model.UserRating{RatingID: *res.RatingID, Value: rating}
		}
	})
	return nil
}

// UpdateRating 修改评分，仅当 ratingID 是当前电影上的用户评分时写入
func (s *MoviesStore) UpdateRating(ctx context.Context, token string, rating, ratingID int) error {
	if err := checkRating(ActionUpdateRating, rating, ratingID, "Identifiant de note invalide"); err != nil {
		return s.fail(err)
	}

	res, err := s.api.PatchRating(context.WithoutCancel(ctx), token, ratingID, rating)
	if err != nil {
		return s.fail(classify(ActionUpdateRating, err))
	}

	s.mutateOwned(ActionUpdateRating, ownsRating(ratingID), func(m *model.Movie) {
		m.AverageRating = res.MovieAverageRating
		m.UserData.Rating.Value = rating
	})
	return nil
}

// ResetCurrentMovie 清空当前电影，尚未返回的详情请求结果将被丢弃
func (s *MoviesStore) ResetCurrentMovie() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[resourceMovie]++
	s.state.CurrentMovie = nil
}

// ClearMovieList 清空当前列表
func (s *MoviesStore) ClearMovieList() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[resourceList]++
	s.state.MovieList = []model.MovieListItem{}
}

// mutateCurrent 在锁内修改 tmdbID 对应的 CurrentMovie
func (s *MoviesStore) mutateCurrent(action string, tmdbID int, fn func(m *model.Movie)) {
	s.mutateOwned(action, func(m *model.Movie) bool {
		return m.TmdbID == tmdbID
	}, fn)
}

// mutateOwned 在锁内修改 CurrentMovie
// CurrentMovie 为空，或 owns 认定修改对象不属于当前电影时静默跳过
func (s *MoviesStore) mutateOwned(action string, owns func(m *model.Movie) bool, fn func(m *model.Movie)) {
	s.mu.Lock()
	m := s.state.CurrentMovie
	applied := m != nil && owns(m)
	if applied {
		fn(m)
	}
	s.mu.Unlock()

	s.logResult(action, applied).Msg("动作完成")
}

func ownsReview(reviewID int) func(m *model.Movie) bool {
	return func(m *model.Movie) bool {
		if m.UserData.Review != nil && m.UserData.Review.ReviewID == reviewID {
			return true
		}
		for _, r := range m.Reviews {
			if r.ReviewID == reviewID {
				return true
			}
		}
		return false
	}
}

func ownsRating(ratingID int) func(m *model.Movie) bool {
	return func(m *model.Movie) bool {
		return m.UserData.Rating != nil && m.UserData.Rating.RatingID == ratingID
	}
}

func (s *MoviesStore) next(r resource) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[r]++
	return s.seq[r]
}

// current 调用方需持有 s.mu
func (s *MoviesStore) current(r resource, ticket uint64) bool {
	return s.seq[r] == ticket
}

func (s *MoviesStore) fail(err *ActionError) error {
	s.logger.Warn().
		Err(err.Err).
		Str("action", err.Action).
		Str("kind", err.Kind.String()).
		Str("reason", err.Reason).
		Msg("动作失败")
	return err
}

func (s *MoviesStore) logResult(action string, applied bool) *zerolog.Event {
	if applied {
		return s.logger.Debug().Str("action", action)
	}
	return s.logger.Debug().Str("action", action).Bool("skipped", true)
}

// withDerivedFields 根据原始字段计算年份、法语日期与百万单位预算
func withDerivedFields(m *model.Movie) {
	m.Year = utils.ISODateToYear(m.ReleaseDate)
	m.FrenchDate = utils.ISODateToFrench(m.ReleaseDate)
	m.BudgetInMillions = utils.BudgetToMillions(m.Budget)
}

func cloneList(list []model.MovieListItem) []model.MovieListItem {
	out := make([]model.MovieListItem, len(list))
	for i, item := range list {
		item.Genres = append([]model.Genre(nil), item.Genres...)
		out[i] = item
	}
	return out
}
