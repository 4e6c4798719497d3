package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/MIDHUNGRAJ/curiostack/internal/db"
	"github.com/MIDHUNGRAJ/curiostack/internal/models"
)

// ContentStore is the content-repository surface the handlers depend on.
// *db.Store implements it; tests substitute an in-memory fake.
type ContentStore interface {
	ListPosts(ctx context.Context, filter db.PostFilter) ([]models.Post, error)
	CountPosts(ctx context.Context, filter db.PostFilter) (int, error)
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, post models.Post) (*models.Post, error)
	UpdatePost(ctx context.Context, post models.Post) (*models.Post, error)
	DeletePost(ctx context.Context, id string) (bool, error)
	CategoryCounts(ctx context.Context) ([]db.LabelCount, error)
	AuthorCounts(ctx context.Context) ([]db.LabelCount, error)
	TagCounts(ctx context.Context) ([]db.LabelCount, error)
	RecentPostCount(ctx context.Context, days int) (int, error)
	EdgePost(ctx context.Context, latest bool) (*models.Post, error)
	ReadTimes(ctx context.Context) ([]string, error)
}

// Pagination is the envelope describing a page of results.
type Pagination struct {
	TotalPosts  int  `json:"totalPosts"`
	TotalPages  int  `json:"totalPages"`
	CurrentPage int  `json:"currentPage"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
	Limit       int  `json:"limit"`
}

func paginate(total, page, limit int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	skip := (page - 1) * limit
	return Pagination{
		TotalPosts:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		HasNextPage: skip+limit < total,
		HasPrevPage: page > 1,
		Limit:       limit,
	}
}

func parsePositiveInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// nonNil keeps empty post lists encoding as [] instead of null.
func nonNil(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	return posts
}

func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondFailure is the {success:false} variant the public blog API uses.
func respondFailure(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
