package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MIDHUNGRAJ/curiostack/internal/auth"
	"github.com/MIDHUNGRAJ/curiostack/internal/classifier"
	"github.com/MIDHUNGRAJ/curiostack/internal/db"
	"github.com/MIDHUNGRAJ/curiostack/internal/models"
)

// fakeStore is an in-memory ContentStore for handler tests.
type fakeStore struct {
	posts  []models.Post
	nextID int
}

func (s *fakeStore) matches(post models.Post, f db.PostFilter) bool {
	if f.Category != "" && post.Category != f.Category {
		return false
	}
	if f.Featured != nil && post.Featured != *f.Featured {
		return false
	}
	if f.Author != "" && !strings.Contains(strings.ToLower(post.Author), strings.ToLower(f.Author)) {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, tag := range post.Tags {
			if tag == f.Tag {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystack := strings.ToLower(post.Title + " " + post.Excerpt + " " + post.Content + " " + strings.Join(post.Tags, " "))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	if len(f.Sources) > 0 {
		found := false
		for _, src := range f.Sources {
			if post.Source == src {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *fakeStore) filtered(f db.PostFilter) []models.Post {
	var out []models.Post
	for _, post := range s.posts {
		if s.matches(post, f) {
			out = append(out, post)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		less := out[i].Date < out[j].Date
		if f.SortDesc {
			return !less
		}
		return less
	})
	return out
}

func (s *fakeStore) ListPosts(_ context.Context, f db.PostFilter) ([]models.Post, error) {
	out := s.filtered(f)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *fakeStore) CountPosts(_ context.Context, f db.PostFilter) (int, error) {
	return len(s.filtered(f)), nil
}

func (s *fakeStore) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	for i := range s.posts {
		if s.posts[i].ID == id {
			return &s.posts[i], nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreatePost(_ context.Context, post models.Post) (*models.Post, error) {
	if post.ID == "" {
		s.nextID++
		post.ID = "post-" + strconv.Itoa(s.nextID)
	}
	post.CreatedAt = time.Now()
	s.posts = append(s.posts, post)
	return &post, nil
}

func (s *fakeStore) UpdatePost(_ context.Context, post models.Post) (*models.Post, error) {
	for i := range s.posts {
		if s.posts[i].ID == post.ID {
			post.CreatedAt = s.posts[i].CreatedAt
			s.posts[i] = post
			return &s.posts[i], nil
		}
	}
	return nil, nil
}

func (s *fakeStore) DeletePost(_ context.Context, id string) (bool, error) {
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) groupBy(key func(models.Post) []string) []db.LabelCount {
	counts := map[string]int{}
	for _, post := range s.posts {
		for _, label := range key(post) {
			counts[label]++
		}
	}
	out := make([]db.LabelCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, db.LabelCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *fakeStore) CategoryCounts(context.Context) ([]db.LabelCount, error) {
	return s.groupBy(func(p models.Post) []string { return []string{p.Category} }), nil
}

func (s *fakeStore) AuthorCounts(context.Context) ([]db.LabelCount, error) {
	return s.groupBy(func(p models.Post) []string { return []string{p.Author} }), nil
}

func (s *fakeStore) TagCounts(context.Context) ([]db.LabelCount, error) {
	return s.groupBy(func(p models.Post) []string { return p.Tags }), nil
}

func (s *fakeStore) RecentPostCount(context.Context, int) (int, error) {
	return len(s.posts), nil
}

func (s *fakeStore) EdgePost(_ context.Context, latest bool) (*models.Post, error) {
	if len(s.posts) == 0 {
		return nil, nil
	}
	edge := s.posts[0]
	for _, post := range s.posts[1:] {
		if latest && post.Date > edge.Date {
			edge = post
		}
		if !latest && post.Date < edge.Date {
			edge = post
		}
	}
	return &edge, nil
}

func (s *fakeStore) ReadTimes(context.Context) ([]string, error) {
	out := make([]string, 0, len(s.posts))
	for _, post := range s.posts {
		out = append(out, post.ReadTime)
	}
	return out, nil
}

func seedPosts() []models.Post {
	return []models.Post{
		{
			ID: "p1", Title: "Neural Networks Explained", Excerpt: "Basics of deep learning.",
			Content: "A long introduction to deep learning.", Category: "AI",
			Date: "2025-01-10", ReadTime: "4 min read", Author: "AI Team",
			Tags: []string{"AI", "Machine Learning"}, Featured: true, Source: "CurioStack AI",
		},
		{
			ID: "p2", Title: "Ransomware Season", Excerpt: "Attacks on the rise.",
			Content: "Hospitals were struck again.", Category: "Cybersecurity",
			Date: "2025-02-01", ReadTime: "6 min read", Author: "Security Team",
			Tags: []string{"Cybersecurity"}, Featured: false, Source: "Security",
		},
		{
			ID: "p3", Title: "Seed Rounds in 2025", Excerpt: "Funding climate.",
			Content: "Angel investors are cautious.", Category: "Startups",
			Date: "2025-02-20", ReadTime: "2 min read", Author: "Startup Team",
			Tags: []string{"Startups", "Business"}, Featured: true, Source: "CurioStack",
		},
	}
}

const (
	testUser     = "admin"
	testPassword = "secret-pw"
)

func newTestServer(t *testing.T, store ContentStore) (*httptest.Server, *auth.Authenticator) {
	t.Helper()

	authenticator := auth.New("test-secret", testUser, testPassword)
	blogHandler := NewBlogHandler(store, nil)
	adminHandler := NewAdminHandler(store, authenticator, nil)
	ingestHandler := NewIngestHandler(store, classifier.NewIngestor(nil), nil)

	r := chi.NewRouter()
	r.Get("/health", Health)
	r.Route("/api", func(r chi.Router) {
		r.Route("/blog", func(r chi.Router) {
			r.Get("/", blogHandler.List)
			r.Get("/search", blogHandler.Search)
			r.Get("/categories", blogHandler.Categories)
			r.Get("/tags", blogHandler.Tags)
			r.Get("/featured", blogHandler.Featured)
			r.Get("/stats", blogHandler.Stats)
			r.Get("/{id}", blogHandler.Get)
		})
		r.Route("/ai-posts", func(r chi.Router) {
			r.Post("/", ingestHandler.Create)
			r.Get("/", ingestHandler.List)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", adminHandler.Login)
			r.Delete("/login", adminHandler.Logout)
			r.Group(func(r chi.Router) {
				r.Use(authenticator.RequireAuth)
				r.Get("/posts", adminHandler.ListPosts)
				r.Post("/posts", adminHandler.CreatePost)
				r.Put("/posts/{id}", adminHandler.UpdatePost)
				r.Delete("/posts/{id}", adminHandler.DeletePost)
				r.Get("/stats", adminHandler.Stats)
			})
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, authenticator
}

func getJSON(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return res.StatusCode, body
}

func dataField(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "missing data envelope: %v", body)
	return data
}

func TestBlogListEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/blog")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	data := dataField(t, body)
	posts := data["posts"].([]interface{})
	assert.Len(t, posts, 3)

	pagination := data["pagination"].(map[string]interface{})
	assert.EqualValues(t, 3, pagination["totalPosts"])
	assert.EqualValues(t, 1, pagination["totalPages"])
	assert.EqualValues(t, 1, pagination["currentPage"])
	assert.Equal(t, false, pagination["hasNextPage"])
}

func TestBlogListCategoryFilter(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/blog?category=AI")
	assert.Equal(t, http.StatusOK, status)
	posts := dataField(t, body)["posts"].([]interface{})
	require.Len(t, posts, 1)
	post := posts[0].(map[string]interface{})
	assert.Equal(t, "Neural Networks Explained", post["title"])
}

func TestBlogListInvalidCategoryReturnsEmpty(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/blog?category=NotACategory")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	data := dataField(t, body)
	assert.Empty(t, data["posts"])
	pagination := data["pagination"].(map[string]interface{})
	assert.EqualValues(t, 0, pagination["totalPosts"])
}

func TestBlogListPagination(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/blog?page=2&limit=2")
	assert.Equal(t, http.StatusOK, status)
	data := dataField(t, body)
	assert.Len(t, data["posts"].([]interface{}), 1)
	pagination := data["pagination"].(map[string]interface{})
	assert.EqualValues(t, 2, pagination["totalPages"])
	assert.Equal(t, true, pagination["hasPrevPage"])
	assert.Equal(t, false, pagination["hasNextPage"])
}

func TestBlogGet(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/blog/p2")
	assert.Equal(t, http.StatusOK, status)
	post := dataField(t, body)["post"].(map[string]interface{})
	assert.Equal(t, "Ransomware Season", post["title"])

	status, body = getJSON(t, srv.URL+"/api/blog/nope")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
}

func TestBlogSearchRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/blog/search")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
}

func TestBlogSearchFindsMatches(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/blog/search?q=hospitals")
	assert.Equal(t, http.StatusOK, status)
	data := dataField(t, body)
	assert.Equal(t, "hospitals", data["query"])
	posts := data["posts"].([]interface{})
	require.Len(t, posts, 1)
	assert.Equal(t, "Ransomware Season", posts[0].(map[string]interface{})["title"])
}

func TestBlogCategoriesIncludeEmptyOnes(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/blog/categories")
	assert.Equal(t, http.StatusOK, status)
	data := dataField(t, body)
	categories := data["categories"].([]interface{})
	assert.Len(t, categories, len(models.Categories))

	byName := map[string]float64{}
	for _, entry := range categories {
		m := entry.(map[string]interface{})
		byName[m["name"].(string)] = m["count"].(float64)
	}
	assert.EqualValues(t, 1, byName["AI"])
	assert.EqualValues(t, 0, byName["Science"])
}

func TestBlogTags(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/blog/tags")
	assert.Equal(t, http.StatusOK, status)
	data := dataField(t, body)
	tags := data["tags"].([]interface{})
	require.NotEmpty(t, tags)
	first := tags[0].(map[string]interface{})
	assert.NotEmpty(t, first["slug"])
}

func TestBlogFeatured(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/blog/featured")
	assert.Equal(t, http.StatusOK, status)
	data := dataField(t, body)
	posts := data["posts"].([]interface{})
	assert.Len(t, posts, 2)
	for _, entry := range posts {
		assert.Equal(t, true, entry.(map[string]interface{})["featured"])
	}
}

func TestBlogStats(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/blog/stats")
	assert.Equal(t, http.StatusOK, status)
	data := dataField(t, body)
	overview := data["overview"].(map[string]interface{})
	assert.EqualValues(t, 3, overview["totalPosts"])
	assert.EqualValues(t, 2, overview["featuredPosts"])
	assert.Equal(t, "4 min", overview["averageReadTime"])

	latest := data["latestPost"].(map[string]interface{})
	assert.Equal(t, "Seed Rounds in 2025", latest["title"])
	oldest := data["oldestPost"].(map[string]interface{})
	assert.Equal(t, "Neural Networks Explained", oldest["title"])
}

func login(t *testing.T, srv *httptest.Server, username, password string) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	res, err := http.Post(srv.URL+"/api/admin/login", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return res
}

func TestAdminLoginSetsCookie(t *testing.T) {
	srv, authenticator := newTestServer(t, &fakeStore{})

	res := login(t, srv, testUser, testPassword)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var tokenCookie *http.Cookie
	for _, cookie := range res.Cookies() {
		if cookie.Name == auth.CookieName {
			tokenCookie = cookie
		}
	}
	require.NotNil(t, tokenCookie, "admin-token cookie not set")
	assert.True(t, tokenCookie.HttpOnly)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), tokenCookie.MaxAge)

	cred, ok := authenticator.VerifyToken(tokenCookie.Value)
	require.True(t, ok)
	assert.Equal(t, testUser, cred.Username)
}

func TestAdminLoginRejectsBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{})

	res := login(t, srv, testUser, "wrong")
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Empty(t, res.Cookies())
}

func TestAdminLogoutClearsCookie(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{})

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/admin/login", nil)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var cleared *http.Cookie
	for _, cookie := range res.Cookies() {
		if cookie.Name == auth.CookieName {
			cleared = cookie
		}
	}
	require.NotNil(t, cleared)
	assert.Equal(t, "", cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func authedRequest(t *testing.T, authenticator *auth.Authenticator, method, url string, body []byte) *http.Request {
	t.Helper()
	token, err := authenticator.IssueToken(testUser, auth.DefaultTTL)
	require.NoError(t, err)
	var req *http.Request
	if body != nil {
		req, err = http.NewRequest(method, url, bytes.NewReader(body))
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	for _, target := range []string{"/api/admin/posts", "/api/admin/stats"} {
		res, err := http.Get(srv.URL + target)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, target)
	}
}

func TestAdminCreateUpdateDelete(t *testing.T) {
	store := &fakeStore{}
	srv, authenticator := newTestServer(t, store)

	payload, _ := json.Marshal(map[string]interface{}{
		"title":    "Managed Post",
		"excerpt":  "Short summary.",
		"content":  "Full body text.",
		"category": "Technology",
		"image":    "https://example.com/img.png",
		"date":     "2025-05-01",
		"readTime": "3 min read",
		"author":   "Tech Team",
		"tags":     []string{"Technology"},
	})
	res, err := http.DefaultClient.Do(authedRequest(t, authenticator, http.MethodPost, srv.URL+"/api/admin/posts", payload))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var created struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&created))
	require.NotEmpty(t, created.Post.ID)

	// Update it.
	update, _ := json.Marshal(map[string]interface{}{
		"title":    "Managed Post v2",
		"excerpt":  "Short summary.",
		"content":  "Full body text.",
		"category": "Technology",
		"image":    "https://example.com/img.png",
		"date":     "2025-05-02",
		"readTime": "3 min read",
		"author":   "Tech Team",
		"tags":     []string{"Technology"},
	})
	res2, err := http.DefaultClient.Do(authedRequest(t, authenticator, http.MethodPut, srv.URL+"/api/admin/posts/"+created.Post.ID, update))
	require.NoError(t, err)
	res2.Body.Close()
	assert.Equal(t, http.StatusOK, res2.StatusCode)

	stored, _ := store.GetPostByID(context.Background(), created.Post.ID)
	require.NotNil(t, stored)
	assert.Equal(t, "Managed Post v2", stored.Title)

	// Delete it.
	res3, err := http.DefaultClient.Do(authedRequest(t, authenticator, http.MethodDelete, srv.URL+"/api/admin/posts/"+created.Post.ID, nil))
	require.NoError(t, err)
	res3.Body.Close()
	assert.Equal(t, http.StatusOK, res3.StatusCode)

	gone, _ := store.GetPostByID(context.Background(), created.Post.ID)
	assert.Nil(t, gone)
}

func TestAdminCreateValidatesFields(t *testing.T) {
	srv, authenticator := newTestServer(t, &fakeStore{})

	payload, _ := json.Marshal(map[string]interface{}{"title": "Only a title"})
	res, err := http.DefaultClient.Do(authedRequest(t, authenticator, http.MethodPost, srv.URL+"/api/admin/posts", payload))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestAdminCreateRejectsBadDate(t *testing.T) {
	srv, authenticator := newTestServer(t, &fakeStore{})

	payload, _ := json.Marshal(map[string]interface{}{
		"title":    "Managed Post",
		"excerpt":  "Short summary.",
		"content":  "Full body text.",
		"category": "Technology",
		"image":    "https://example.com/img.png",
		"date":     "05/01/2025",
		"readTime": "3 min read",
		"author":   "Tech Team",
		"tags":     []string{"Technology"},
	})
	res, err := http.DefaultClient.Do(authedRequest(t, authenticator, http.MethodPost, srv.URL+"/api/admin/posts", payload))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestIngestCreatesClassifiedPost(t *testing.T) {
	store := &fakeStore{}
	srv, _ := newTestServer(t, store)

	payload, _ := json.Marshal(map[string]interface{}{
		"title":   "New GPT-5 Model Launches",
		"content": "OpenAI today released its newest model to the public.",
	})
	res, err := http.Post(srv.URL+"/api/ai-posts", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		Post          models.Post     `json:"post"`
		AutoGenerated map[string]bool `json:"autoGenerated"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "AI", body.Post.Category)
	assert.Equal(t, "AI Team", body.Post.Author)
	assert.True(t, body.AutoGenerated["category"])
	assert.True(t, body.AutoGenerated["excerpt"])
	assert.Len(t, store.posts, 1)
}

func TestIngestRejectsEmptyPayload(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{})

	res, err := http.Post(srv.URL+"/api/ai-posts", "application/json", strings.NewReader(`{"featured":true}`))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestIngestListFiltersBySource(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{posts: seedPosts()})

	status, body := getJSON(t, srv.URL+"/api/ai-posts")
	assert.Equal(t, http.StatusOK, status)
	posts := body["posts"].([]interface{})
	assert.Len(t, posts, 2)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeStore{})

	status, body := getJSON(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
