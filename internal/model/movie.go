package model

// Genre 电影类型
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Review 评论
type Review struct {
	ReviewID int    `json:"review_id"`
	Content  string `json:"content"`
}

// UserRating 当前用户的评分
type UserRating struct {
	RatingID int `json:"rating_id"`
	Value    int `json:"value"`
}

// UserData 当前用户在该电影上的评论与评分（各最多一条）
type UserData struct {
	Review *Review     `json:"review"`
	Rating *UserRating `json:"rating"`
}

// Movie 电影详情（远程 API 返回）
type Movie struct {
	TmdbID        int      `json:"tmdb_id"`
	Title         string   `json:"title"`
	PosterPath    string   `json:"poster_path"`
	Overview      string   `json:"overview"`
	ReleaseDate   string   `json:"release_date"`
	Budget        *int64   `json:"budget"`
	Genres        []Genre  `json:"genres"`
	Reviews       []Review `json:"reviews"`
	UserData      UserData `json:"user_data"`
	AverageRating float64  `json:"average_rating"`

	// 以下字段在加载后由原始字段计算得出，不会回传给 API
	Year             *int    `json:"year,omitempty"`
	FrenchDate       string  `json:"french_date,omitempty"`
	BudgetInMillions float64 `json:"budget_in_millions,omitempty"`
}

// Clone 深拷贝，供渲染时使用，避免与状态容器共享切片
func (m *Movie) Clone() *Movie {
	if m == nil {
		return nil
	}
	cp := *m
	if m.Budget != nil {
		b := *m.Budget
		cp.Budget = &b
	}
	if m.Year != nil {
		y := *m.Year
		cp.Year = &y
	}
	cp.Genres = append([]Genre(nil), m.Genres...)
	cp.Reviews = append([]Review(nil), m.Reviews...)
	if m.UserData.Review != nil {
		r := *m.UserData.Review
		cp.UserData.Review = &r
	}
	if m.UserData.Rating != nil {
		r := *m.UserData.Rating
		cp.UserData.Rating = &r
	}
	return &cp
}

// MovieListItem 列表展示用的精简电影信息
type MovieListItem struct {
	TmdbID        int     `json:"tmdb_id"`
	Title         string  `json:"title"`
	PosterPath    string  `json:"poster_path"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	Genres        []Genre `json:"genres"`
	AverageRating float64 `json:"average_rating"`
}

// MoviesFilter 服务端预设的列表筛选条件
type MoviesFilter string

const (
	FilterNowPlaying MoviesFilter = "nowplaying"
	FilterPopular    MoviesFilter = "popular"
	FilterUpcoming   MoviesFilter = "upcoming"
	FilterTopRated   MoviesFilter = "toprated"
)

// Filters 首页轮播的展示顺序
var Filters = []MoviesFilter{FilterNowPlaying, FilterPopular, FilterUpcoming, FilterTopRated}

// Label 筛选条件的展示名称
func (f MoviesFilter) Label() string {
	switch f {
	case FilterNowPlaying:
		return "Actuellement au cinéma"
	case FilterPopular:
		return "Populaires"
	case FilterUpcoming:
		return "Prochainement"
	case FilterTopRated:
		return "Les mieux notés"
	default:
		return string(f)
	}
}

// DiscoverParams 电影列表页的查询参数
type DiscoverParams struct {
	Page       int    `form:"page"`
	SortBy     string `form:"sort_by"`
	WithGenres string `form:"with_genres"`
}

// MoviesState 单个会话的状态容器内容
type MoviesState struct {
	CurrentMovie *Movie          `json:"currentMovie"`
	MovieList    []MovieListItem `json:"movieList"`
}
