package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/user/omovies/internal/model"
	"github.com/user/omovies/internal/utils"
)

// MovieService 远程电影 API 的端点封装
// 每个方法对应一个远程端点，token 为空时以匿名身份调用
type MovieService struct {
	client *utils.HTTPClient
}

func NewMovieService(client *utils.HTTPClient) *MovieService {
	return &MovieService{client: client}
}

type contentBody struct {
	Content string `json:"content"`
}

type valueBody struct {
	Value int `json:"value"`
}

// GetMovie GET /movie/{id}
func (s *MovieService) GetMovie(ctx context.Context, token, id string) (*model.Movie, error) {
	var movie model.Movie
	if err := s.client.Do(ctx, http.MethodGet, "/movie/"+url.PathEscape(id), nil, token, nil, &movie); err != nil {
		return nil, fmt.Errorf("获取电影 %s 失败: %w", id, err)
	}
	return &movie, nil
}

// GetMoviesByFilter GET /movies?filter=...
func (s *MovieService) GetMoviesByFilter(ctx context.Context, token string, filter model.MoviesFilter) ([]model.MovieListItem, error) {
	query := url.Values{"filter": {string(filter)}}
	var list []model.MovieListItem
	if err := s.client.Do(ctx, http.MethodGet, "/movies", query, token, nil, &list); err != nil {
		return nil, fmt.Errorf("获取电影列表 %s 失败: %w", filter, err)
	}
	return nonNil(list), nil
}

// GetMoviesByParams GET /movies?page=&sort_by=&with_genres=
func (s *MovieService) GetMoviesByParams(ctx context.Context, token string, params model.DiscoverParams) ([]model.MovieListItem, error) {
	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.SortBy != "" {
		query.Set("sort_by", params.SortBy)
	}
	if params.WithGenres != "" {
		query.Set("with_genres", params.WithGenres)
	}
	var list []model.MovieListItem
	if err := s.client.Do(ctx, http.MethodGet, "/movies", query, token, nil, &list); err != nil {
		return nil, fmt.Errorf("获取电影列表失败: %w", err)
	}
	return nonNil(list), nil
}

// PostReview POST /movie/{id}/review
func (s *MovieService) PostReview(ctx context.Context, token string, tmdbID int, content string) (*model.ReviewResult, error) {
	var res model.ReviewResult
	path := "/movie/" + strconv.Itoa(tmdbID) + "/review"
	if err := s.client.Do(ctx, http.MethodPost, path, nil, token, contentBody{Content: content}, &res); err != nil {
		return nil, fmt.Errorf("发布评论失败: %w", err)
	}
	return &res, nil
}

// PatchReview PATCH /review/{id}
func (s *MovieService) PatchReview(ctx context.Context, token string, reviewID int, content string) (*model.ReviewResult, error) {
	var res model.ReviewResult
	path := "/review/" + strconv.Itoa(reviewID)
	if err := s.client.Do(ctx, http.MethodPatch, path, nil, token, contentBody{Content: content}, &res); err != nil {
		return nil, fmt.Errorf("修改评论失败: %w", err)
	}
	return &res, nil
}

// PostRating POST /movie/{id}/rating
func (s *MovieService) PostRating(ctx context.Context, token string, tmdbID, value int) (*model.RatingResult, error) {
	var res model.RatingResult
	path := "/movie/" + strconv.Itoa(tmdbID) + "/rating"
	if err := s.client.Do(ctx, http.MethodPost, path, nil, token, valueBody{Value: value}, &res); err != nil {
		return nil, fmt.Errorf("发布评分失败: %w", err)
	}
	return &res, nil
}

// PatchRating PATCH /rating/{id}
func (s *MovieService) PatchRating(ctx context.Context, token string, ratingID, value int) (*model.RatingResult, error) {
	var res model.RatingResult
	path := "/rating/" + strconv.Itoa(ratingID)
	if err := s.client.Do(ctx, http.MethodPatch, path, nil, token, valueBody{Value: value}, &res); err != nil {
		return nil, fmt.Errorf("修改评分失败: %w", err)
	}
	return &res, nil
}

func nonNil(list []model.MovieListItem) []model.MovieListItem {
	if list == nil {
		return []model.MovieListItem{}
	}
	return list
}
