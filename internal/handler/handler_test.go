package handler_test

import (
	"encoding/gob"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/omovies/internal/config"
	"github.com/user/omovies/internal/handler"
	"github.com/user/omovies/internal/middleware"
	"github.com/user/omovies/internal/model"
	"github.com/user/omovies/internal/router"
	"github.com/user/omovies/internal/service"
	"github.com/user/omovies/internal/store"
	"github.com/user/omovies/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	gob.Register(model.SessionUser{})
}

const matrixJSON = `{"tmdb_id":603,"title":"Matrix","poster_path":"/matrix.jpg","overview":"Neo découvre la vérité.",
"release_date":"1999-03-31","budget":150000000,"genres":[{"id":28,"name":"Action"}],
"reviews":[{"review_id":1,"content":"Culte"}],"user_data":{"review":null,"rating":null},"average_rating":4.2}`

const alienJSON = `{"tmdb_id":348,"title":"Alien","release_date":"1979-05-25","reviews":[{"review_id":3,"content":"Flippant"}],
"user_data":{"review":null,"rating":null},"average_rating":4.6}`

// remoteAPI 模拟远程电影 API
type remoteAPI struct {
	mu       sync.Mutex
	hits     map[string]int
	queries  map[string]url.Values
	failures map[string]int // "METHOD path" -> 返回的状态码
	holds    map[string]*heldCall
}

// heldCall 让某个远程请求停在处理中，直到 release 关闭
type heldCall struct {
	arrived chan struct{}
	release chan struct{}
}

func newRemoteAPI() *remoteAPI {
	return &remoteAPI{
		hits:     map[string]int{},
		queries:  map[string]url.Values{},
		failures: map[string]int{},
		holds:    map[string]*heldCall{},
	}
}

func (a *remoteAPI) hold(key string) *heldCall {
	h := &heldCall{arrived: make(chan struct{}), release: make(chan struct{})}
	a.mu.Lock()
	a.holds[key] = h
	a.mu.Unlock()
	return h
}

func (a *remoteAPI) fail(key string, status int) {
	a.mu.Lock()
	a.failures[key] = status
	a.mu.Unlock()
}

func (a *remoteAPI) count(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[key]
}

func (a *remoteAPI) lastQuery(key string) url.Values {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queries[key]
}

func apiToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("remote-secret"))
	require.NoError(t, err)
	return token
}

func (a *remoteAPI) handler(t *testing.T) http.HandlerFunc {
	token := apiToken(t)
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if filter := r.URL.Query().Get("filter"); filter != "" {
			key += "?filter=" + filter
		}

		a.mu.Lock()
		a.hits[key]++
		a.queries[key] = r.URL.Query()
		status, failing := a.failures[key]
		held := a.holds[key]
		delete(a.holds, key)
		a.mu.Unlock()

		if held != nil {
			close(held.arrived)
			<-held.release
		}

		if failing {
			w.WriteHeader(status)
			w.Write([]byte(`{"status":"fail","error":"Erreur distante"}`))
			return
		}

		write := func(data string) {
			w.Write([]byte(`{"status":"success","data":` + data + `}`))
		}

		switch {
		case key == "GET /movie/603":
			write(matrixJSON)
		case key == "GET /movie/348":
			write(alienJSON)
		case strings.HasPrefix(key, "GET /movie/"):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status":"fail","error":"Film introuvable"}`))
		case strings.HasPrefix(key, "GET /movies?filter="):
			filter := r.URL.Query().Get("filter")
			write(`[{"tmdb_id":1,"title":"` + filter + ` 1"},{"tmdb_id":2,"title":"` + filter + ` 2"}]`)
		case key == "GET /movies":
			write(`[{"tmdb_id":10,"title":"Découverte"}]`)
		case key == "POST /movie/603/review":
			write(`{"review_id":50}`)
		case key == "PATCH /review/50":
			write(`{"review_id":50}`)
		case key == "POST /movie/603/rating":
			write(`{"rating_id":8,"movie_average_rating":4.5}`)
		case key == "PATCH /rating/8":
			write(`{"movie_average_rating":3}`)
		case key == "POST /auth/login":
			var creds model.LoginCredentials
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds.Password != "redpill" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"status":"fail","error":"Identifiants invalides"}`))
				return
			}
			write(`{"token":"` + token + `","user":{"id":1,"email":"` + creds.Email + `","pseudo":"Neo"}}`)
		case key == "POST /auth/signup":
			write(`{"token":"` + token + `","user":{"id":2,"email":"t@zion.io","pseudo":"Trinity"}}`)
		default:
			t.Errorf("unexpected remote call %s", key)
			w.WriteHeader(http.StatusTeapot)
		}
	}
}

type testApp struct {
	t        *testing.T
	remote   *remoteAPI
	server   *httptest.Server
	client   *http.Client
	registry *store.Registry
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	remote := newRemoteAPI()
	remoteServer := httptest.NewServer(remote.handler(t))
	t.Cleanup(remoteServer.Close)

	cfg := &config.Config{
		Env:        "test",
		AppSecret:  "test-secret",
		SiteName:   "O'Movies",
		SiteUrl:    "http://localhost",
		APIBaseURL: remoteServer.URL,
		APITimeout: 5 * time.Second,
	}

	client, err := utils.NewHTTPClient(cfg.APIBaseURL, cfg.APITimeout, zerolog.Nop())
	require.NoError(t, err)
	movies := service.NewMovieService(client)
	registry := store.NewRegistry(movies, time.Minute, zerolog.Nop())
	notices := store.NewNotices(64, time.Minute)
	h := handler.NewHandler(cfg, movies, service.NewAuthService(client), registry, notices, zerolog.Nop())

	r := gin.New()
	r.Use(sessions.Sessions("omovies", middleware.NewSessionStore(cfg.AppSecret, time.Hour, false)))
	r.HTMLRender = router.LoadTemplates("../../web/templates")
	router.RegisterRoutes(r, h)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		t:        t,
		remote:   remote,
		server:   server,
		registry: registry,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (a *testApp) do(method, path string, form url.Values, headers map[string]string) *http.Response {
	a.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, a.server.URL+path, body)
	require.NoError(a.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "text/html")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	a.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testApp) get(path string) *http.Response {
	return a.do(http.MethodGet, path, nil, nil)
}

func (a *testApp) htmx(path string, form url.Values) *http.Response {
	return a.do(http.MethodPost, path, form, map[string]string{"HX-Request": "true"})
}

func (a *testApp) login() {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/connexion", url.Values{"email": {"neo@zion.io"}, "password": {"redpill"}}, nil)
	require.Equal(a.t, http.StatusFound, resp.StatusCode)
}

func (a *testApp) state() model.MoviesState {
	a.t.Helper()
	resp := a.do(http.MethodGet, "/api/state", nil, map[string]string{"Accept": "application/json"})
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	var out struct {
		Success bool              `json:"success"`
		Data    model.MoviesState `json:"data"`
	}
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(a.t, out.Success)
	return out.Data
}

func document(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	health := func() map[string]interface{} {
		resp := app.get("/health")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	assert.Equal(t, map[string]interface{}{"status": "ok", "sessions": float64(0)}, health())
	app.get("/films/603")
	assert.Equal(t, float64(1), health()["sessions"])
}

func TestHomeRendersCarousels(t *testing.T) {
	app := newTestApp(t)

	resp := app.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)

	assert.Equal(t, 4, doc.Find("section.carousel").Length())
	assert.Equal(t, 8, doc.Find("a.movie-card").Length())
	assert.Equal(t, "Prochainement", doc.Find("#carousel-upcoming h2").Text())
	assert.Equal(t, "O'Movies - Accueil", doc.Find("title").Text())

	for _, f := range model.Filters {
		assert.Equal(t, 1, app.remote.count("GET /movies?filter="+string(f)), f)
	}
}

func TestHomeCarouselFailureIsIsolated(t *testing.T) {
	app := newTestApp(t)
	app.remote.fail("GET /movies?filter=upcoming", http.StatusInternalServerError)

	resp := app.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)

	assert.Contains(t, doc.Find("#carousel-upcoming .load-error").Text(), "Erreur distante")
	assert.Equal(t, 2, doc.Find("#carousel-popular a.movie-card").Length())
}

func TestSelectionFillsMovieList(t *testing.T) {
	app := newTestApp(t)

	resp := app.get("/selection/popular")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)
	assert.Equal(t, "Populaires", strings.TrimSpace(doc.Find("main h1").Text()))
	assert.Equal(t, 2, doc.Find(".movie-grid a.movie-card").Length())

	state := app.state()
	assert.Nil(t, state.CurrentMovie)
	require.Len(t, state.MovieList, 2)
	assert.Equal(t, "popular 1", state.MovieList[0].Title)

	// 新的列表整体替换旧列表
	app.get("/selection/toprated")
	state = app.state()
	require.Len(t, state.MovieList, 2)
	assert.Equal(t, "toprated 1", state.MovieList[0].Title)
}

func TestSelectionAliases(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusOK, app.get("/prochainement").StatusCode)
	assert.Equal(t, 1, app.remote.count("GET /movies?filter=upcoming"))

	assert.Equal(t, http.StatusOK, app.get("/actuellement").StatusCode)
	assert.Equal(t, 1, app.remote.count("GET /movies?filter=nowplaying"))
}

func TestSelectionUnknownFilter(t *testing.T) {
	app := newTestApp(t)

	resp := app.get("/selection/latest")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, app.remote.count("GET /movies?filter=latest"))
}

func TestSelectionFailureKeepsPreviousListAndOffersRetry(t *testing.T) {
	app := newTestApp(t)
	app.get("/selection/popular")
	app.remote.fail("GET /movies?filter=upcoming", http.StatusBadGateway)

	resp := app.get("/selection/upcoming")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)
	retry, ok := doc.Find(".load-error a").Attr("href")
	assert.True(t, ok)
	assert.Equal(t, "/selection/upcoming", retry)

	assert.Equal(t, "popular 1", app.state().MovieList[0].Title)
}

func TestMoviePage(t *testing.T) {
	app := newTestApp(t)

	resp := app.get("/films/603")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)

	assert.Contains(t, doc.Find(".movie-info h1").Text(), "Matrix")
	assert.Contains(t, doc.Find(".movie-info h1 .year").Text(), "1999")
	assert.Equal(t, "Sortie le 31 mars 1999", doc.Find(".release").Text())
	assert.Equal(t, "Budget : 150 M$", doc.Find(".budget").Text())
	assert.Equal(t, 1, doc.Find("#movie-reviews li[data-review-id]").Length())
	assert.Equal(t, 0, doc.Find("#movie-reviews form").Length())

	state := app.state()
	require.NotNil(t, state.CurrentMovie)
	assert.Equal(t, 603, state.CurrentMovie.TmdbID)
	require.NotNil(t, state.CurrentMovie.Year)
	assert.Equal(t, 1999, *state.CurrentMovie.Year)
	assert.Equal(t, 150.0, state.CurrentMovie.BudgetInMillions)
}

func TestMovieInvalidIDSkipsRemote(t *testing.T) {
	app := newTestApp(t)

	resp := app.get("/films/abc")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, app.remote.count("GET /movie/abc"))
}

func TestMovieRemoteErrors(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusNotFound, app.get("/films/42").StatusCode)

	app.remote.fail("GET /movie/603", http.StatusInternalServerError)
	resp := app.get("/films/603")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	doc := document(t, resp)
	assert.Contains(t, doc.Find(".load-error").Text(), "Erreur distante")
	assert.Nil(t, app.state().CurrentMovie)
}

func TestListPageResetsCurrentMovie(t *testing.T) {
	app := newTestApp(t)
	app.get("/films/603")
	require.NotNil(t, app.state().CurrentMovie)

	app.get("/selection/popular")
	assert.Nil(t, app.state().CurrentMovie)
}

func TestResetMovie(t *testing.T) {
	app := newTestApp(t)
	app.get("/films/603")

	resp := app.htmx("/api/movie/reset", url.Values{})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Nil(t, app.state().CurrentMovie)
}

func TestActionsRequireLogin(t *testing.T) {
	app := newTestApp(t)
	app.get("/films/603")

	resp := app.htmx("/api/movie/603/review", url.Values{"content": {"Culte"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("HX-Redirect"), "/connexion"))
	assert.Equal(t, 0, app.remote.count("POST /movie/603/review"))
}

func TestPostAndUpdateReviewHTMX(t *testing.T) {
	app := newTestApp(t)
	app.login()
	app.get("/films/603")

	resp := app.htmx("/api/movie/603/review", url.Values{"content": {"Chef-d'œuvre"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)

	assert.Equal(t, 2, doc.Find("li[data-review-id]").Length())
	assert.Equal(t, "Chef-d'œuvre", doc.Find(`li[data-review-id="50"]`).Text())
	action, _ := doc.Find("form.review-form").Attr("action")
	assert.Equal(t, "/api/review/50", action)
	movieID, _ := doc.Find(`form.review-form input[name="tmdb_id"]`).Attr("value")
	assert.Equal(t, "603", movieID)
	assert.NotEmpty(t, doc.Find(".form-success").Text())

	resp = app.htmx("/api/review/50", url.Values{"content": {"Revu et corrigé"}, "tmdb_id": {"603"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = document(t, resp)
	assert.Equal(t, "Revu et corrigé", doc.Find(`li[data-review-id="50"]`).Text())
	assert.Equal(t, 2, doc.Find("li[data-review-id]").Length())

	state := app.state()
	require.NotNil(t, state.CurrentMovie.UserData.Review)
	assert.Equal(t, "Revu et corrigé", state.CurrentMovie.UserData.Review.Content)
}

func TestPostReviewValidationHTMX(t *testing.T) {
	app := newTestApp(t)
	app.login()
	app.get("/films/603")

	resp := app.htmx("/api/movie/603/review", url.Values{"content": {"   "}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)

	assert.Equal(t, "La critique ne peut pas être vide", doc.Find(".form-error").Text())
	assert.Equal(t, 0, app.remote.count("POST /movie/603/review"))
}

func TestPostAndUpdateRatingHTMX(t *testing.T) {
	app := newTestApp(t)
	app.login()
	app.get("/films/603")

	resp := app.htmx("/api/movie/603/rating", url.Values{"value": {"4"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)
	assert.Equal(t, "4.5", doc.Find(".average strong").Text())
	action, _ := doc.Find("form.rating-form").Attr("action")
	assert.Equal(t, "/api/rating/8", action)
	assert.Equal(t, 4, doc.Find(".star.filled").Length())

	resp = app.htmx("/api/rating/8", url.Values{"value": {"2"}, "tmdb_id": {"603"}})
	doc = document(t, resp)
	assert.Equal(t, "3.0", doc.Find(".average strong").Text())
	assert.Equal(t, 2, doc.Find(".star.filled").Length())
}

func TestPostRatingOutOfRangeSkipsRemote(t *testing.T) {
	app := newTestApp(t)
	app.login()
	app.get("/films/603")

	resp := app.htmx("/api/movie/603/rating", url.Values{"value": {"9"}})
	doc := document(t, resp)
	assert.Equal(t, "La note doit être un entier entre 1 et 5", doc.Find(".form-error").Text())
	assert.Equal(t, 0, app.remote.count("POST /movie/603/rating"))
	assert.Equal(t, 4.2, app.state().CurrentMovie.AverageRating)
}

func TestPlainFormActionRedirectsWithNotice(t *testing.T) {
	app := newTestApp(t)
	app.login()
	app.get("/films/603")

	resp := app.do(http.MethodPost, "/api/movie/603/rating", url.Values{"value": {"5"}}, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/films/603", resp.Header.Get("Location"))

	doc := document(t, app.get("/films/603"))
	assert.Equal(t, "Votre note a été enregistrée", strings.TrimSpace(doc.Find(".notice-success").Text()))

	// 提示只展示一次
	doc = document(t, app.get("/films/603"))
	assert.Equal(t, 0, doc.Find(".notice").Length())
}

func TestRemoteActionFailureShowsReason(t *testing.T) {
	app := newTestApp(t)
	app.login()
	app.get("/films/603")
	app.remote.fail("POST /movie/603/review", http.StatusUnauthorized)

	resp := app.htmx("/api/movie/603/review", url.Values{"content": {"Bien"}})
	doc := document(t, resp)
	assert.Equal(t, "Erreur distante", doc.Find(".form-error").Text())
	assert.Len(t, app.state().CurrentMovie.Reviews, 1)
}

func TestDiscover(t *testing.T) {
	app := newTestApp(t)

	resp := app.get("/films?page=2&sort_by=popularity.desc&with_genres=28")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)

	q := app.remote.lastQuery("GET /movies")
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "popularity.desc", q.Get("sort_by"))
	assert.Equal(t, "28", q.Get("with_genres"))

	assert.Equal(t, 1, doc.Find(".movie-grid a.movie-card").Length())
	assert.Equal(t, 1, doc.Find(`.pagination a[rel="prev"]`).Length())

	// 页面内状态，不写入会话状态容器
	assert.Empty(t, app.state().MovieList)
}

func TestDiscoverFailureShowsRetry(t *testing.T) {
	app := newTestApp(t)
	app.remote.fail("GET /movies", http.StatusServiceUnavailable)

	resp := app.get("/films?page=3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)
	assert.Contains(t, doc.Find(".load-error p").Text(), "Erreur distante")
	href, _ := doc.Find(".load-error a").Attr("href")
	assert.Equal(t, "/films?page=3", href)
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(http.MethodPost, "/connexion", url.Values{"email": {"neo@zion.io"}, "password": {"bluepill"}}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := document(t, resp)
	assert.Equal(t, "Identifiants invalides", doc.Find(".form-error").Text())

	resp = app.do(http.MethodPost, "/connexion", url.Values{"email": {"pas-un-email"}, "password": {"x"}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, app.remote.count("POST /auth/login"))

	resp = app.do(http.MethodPost, "/connexion", url.Values{
		"email": {"neo@zion.io"}, "password": {"redpill"}, "redirect": {"/films/603"},
	}, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/films/603", resp.Header.Get("Location"))

	doc = document(t, app.get("/"))
	assert.Equal(t, "Neo", doc.Find(".account .pseudo").Text())
	assert.Contains(t, doc.Find(".notice-success").Text(), "Bienvenue Neo")

	// 已登录访问登录页直接跳回首页
	assert.Equal(t, http.StatusFound, app.get("/connexion").StatusCode)
}

func TestLoginRejectsExternalRedirect(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(http.MethodPost, "/connexion", url.Values{
		"email": {"neo@zion.io"}, "password": {"redpill"}, "redirect": {"https://evil.example"},
	}, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestSignup(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(http.MethodPost, "/inscription", url.Values{
		"email": {"t@zion.io"}, "pseudo": {"Trinity"}, "password": {"whiterabbit"}, "confirm_password": {"other-one"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	doc := document(t, resp)
	assert.Equal(t, "Les mots de passe ne correspondent pas", doc.Find(".form-error").Text())
	assert.Equal(t, 0, app.remote.count("POST /auth/signup"))

	resp = app.do(http.MethodPost, "/inscription", url.Values{
		"email": {"t@zion.io"}, "pseudo": {"Trinity"}, "password": {"whiterabbit"}, "confirm_password": {"whiterabbit"},
	}, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	doc = document(t, app.get("/"))
	assert.Equal(t, "Trinity", doc.Find(".account .pseudo").Text())
}

func TestLogoutDropsState(t *testing.T) {
	app := newTestApp(t)
	app.login()
	app.get("/films/603")
	require.Equal(t, 1, app.registry.Len())

	resp := app.do(http.MethodPost, "/deconnexion", url.Values{}, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, 0, app.registry.Len())

	doc := document(t, app.get("/"))
	assert.Equal(t, 0, doc.Find(".account .pseudo").Length())
	assert.Nil(t, app.state().CurrentMovie)
}

func TestActionAfterResetRedirectsToMoviePage(t *testing.T) {
	app := newTestApp(t)
	app.login()
	app.get("/films/603")
	require.Equal(t, http.StatusNoContent, app.htmx("/api/movie/reset", url.Values{}).StatusCode)

	resp := app.htmx("/api/movie/603/review", url.Values{"content": {"Culte absolu"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/films/603", resp.Header.Get("HX-Redirect"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
	assert.Equal(t, 1, app.remote.count("POST /movie/603/review"))

	doc := document(t, app.get("/films/603"))
	assert.Equal(t, "Votre critique a été publiée", strings.TrimSpace(doc.Find(".notice-success").Text()))
}

func TestActionForAnotherMovieDoesNotSwapFragment(t *testing.T) {
	app := newTestApp(t)
	app.login()
	app.get("/films/603")
	require.Equal(t, http.StatusOK, app.htmx("/api/movie/603/rating", url.Values{"value": {"4"}}).StatusCode)

	// 另一个标签页打开了其他电影
	app.get("/films/348")

	resp := app.htmx("/api/rating/8", url.Values{"value": {"2"}, "tmdb_id": {"603"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/films/603", resp.Header.Get("HX-Redirect"))
	assert.Equal(t, 1, app.remote.count("PATCH /rating/8"))

	resp = app.htmx("/api/movie/603/review", url.Values{"content": {"Encore"}})
	assert.Equal(t, "/films/603", resp.Header.Get("HX-Redirect"))

	state := app.state()
	require.NotNil(t, state.CurrentMovie)
	assert.Equal(t, 348, state.CurrentMovie.TmdbID)
	assert.Equal(t, 4.6, state.CurrentMovie.AverageRating)
	assert.Nil(t, state.CurrentMovie.UserData.Rating)
	assert.Nil(t, state.CurrentMovie.UserData.Review)
	assert.Len(t, state.CurrentMovie.Reviews, 1)
}

func TestLogoutDiscardsPendingList(t *testing.T) {
	app := newTestApp(t)
	app.login()

	held := app.remote.hold("GET /movies?filter=popular")
	release := sync.OnceFunc(func() { close(held.release) })
	t.Cleanup(release)

	done := make(chan *http.Response, 1)
	go func() {
		resp, err := app.client.Get(app.server.URL + "/selection/popular")
		if err != nil {
			done <- nil
			return
		}
		done <- resp
	}()

	select {
	case <-held.arrived:
	case <-time.After(5 * time.Second):
		t.Fatal("remote list request never arrived")
	}

	require.Equal(t, http.StatusFound, app.do(http.MethodPost, "/deconnexion", url.Values{}, nil).StatusCode)
	release()

	resp := <-done
	require.NotNil(t, resp)
	defer resp.Body.Close()
	doc := document(t, resp)
	assert.Equal(t, 0, doc.Find(".movie-grid a.movie-card").Length())
	assert.Equal(t, 1, doc.Find(".movie-grid .empty").Length())
}

func TestNotFoundRoute(t *testing.T) {
	app := newTestApp(t)
	resp := app.get("/nulle-part")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	doc := document(t, resp)
	assert.Equal(t, "404", doc.Find("main h1").Text())
}
