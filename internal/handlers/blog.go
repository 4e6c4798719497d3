package handlers

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MIDHUNGRAJ/curiostack/internal/db"
	"github.com/MIDHUNGRAJ/curiostack/internal/models"
)

// BlogHandler serves the public, read-only blog API.
type BlogHandler struct {
	store ContentStore
	log   *zap.SugaredLogger
}

func NewBlogHandler(store ContentStore, log *zap.SugaredLogger) *BlogHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &BlogHandler{store: store, log: log}
}

type blogFilters struct {
	Category  string `json:"category"`
	Tag       string `json:"tag"`
	Featured  bool   `json:"featured"`
	Search    string `json:"search"`
	Author    string `json:"author"`
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

// List returns a filtered, paginated page of posts.
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parsePositiveInt(q.Get("page"), 1)
	limit := parsePositiveInt(q.Get("limit"), 12)
	if limit > 100 {
		limit = 100
	}

	filters := blogFilters{
		Category:  q.Get("category"),
		Tag:       q.Get("tag"),
		Featured:  q.Get("featured") == "true",
		Search:    q.Get("search"),
		Author:    q.Get("author"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if filters.SortBy == "" {
		filters.SortBy = "date"
	}
	if filters.SortOrder == "" {
		filters.SortOrder = "desc"
	}

	// An unknown category is an empty result, not an error.
	if filters.Category != "" && !models.IsValidCategory(filters.Category) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"posts":      []models.Post{},
				"pagination": paginate(0, page, limit),
				"filters":    filters,
			},
		})
		return
	}

	filter := db.PostFilter{
		Category: filters.Category,
		Tag:      filters.Tag,
		Author:   filters.Author,
		Search:   filters.Search,
		SortBy:   filters.SortBy,
		SortDesc: filters.SortOrder != "asc",
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	if filters.Featured {
		featured := true
		filter.Featured = &featured
	}

	posts, err := h.store.ListPosts(r.Context(), filter)
	if err != nil {
		h.log.Errorw("list posts failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch blog posts")
		return
	}
	total, err := h.store.CountPosts(r.Context(), filter)
	if err != nil {
		h.log.Errorw("count posts failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch blog posts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"posts":      nonNil(posts),
			"pagination": paginate(total, page, limit),
			"filters":    filters,
		},
	})
}

// Get returns a single post by id.
func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	post, err := h.store.GetPostByID(r.Context(), id)
	if err != nil {
		h.log.Errorw("get post failed", "id", id, "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch blog post")
		return
	}
	if post == nil {
		respondFailure(w, http.StatusNotFound, "Blog post not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    map[string]interface{}{"post": post},
	})
}

// Search runs a free-text query over title, excerpt, content and tags.
func (h *BlogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		respondFailure(w, http.StatusBadRequest, "Search query is required")
		return
	}

	page := parsePositiveInt(q.Get("page"), 1)
	limit := parsePositiveInt(q.Get("limit"), 12)
	if limit > 100 {
		limit = 100
	}

	filter := db.PostFilter{
		Search:   query,
		Category: canonicalCategory(q.Get("category")),
		Tag:      q.Get("tag"),
		SortBy:   "date",
		SortDesc: true,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	posts, err := h.store.ListPosts(r.Context(), filter)
	if err != nil {
		h.log.Errorw("search posts failed", "query", query, "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to search posts")
		return
	}
	total, err := h.store.CountPosts(r.Context(), filter)
	if err != nil {
		h.log.Errorw("count search posts failed", "query", query, "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to search posts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"query":      query,
			"posts":      nonNil(posts),
			"pagination": paginate(total, page, limit),
			"filters": map[string]string{
				"category": q.Get("category"),
				"tag":      q.Get("tag"),
			},
		},
	})
}

// Categories lists the fixed category set with live post counts.
func (h *BlogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CategoryCounts(r.Context())
	if err != nil {
		h.log.Errorw("category counts failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}

	byName := make(map[string]int, len(counts))
	totalPosts := 0
	for _, c := range counts {
		totalPosts += c.Count
		if models.IsValidCategory(c.Name) {
			byName[c.Name] = c.Count
		}
	}

	type categoryEntry struct {
		Name        string `json:"name"`
		Count       int    `json:"count"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
	}
	categories := make([]categoryEntry, 0, len(models.Categories))
	for _, name := range models.Categories {
		info, _ := models.CategoryConfig(name)
		categories = append(categories, categoryEntry{
			Name:        name,
			Count:       byName[name],
			Slug:        info.Slug,
			Description: info.Description,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"categories":      categories,
			"totalCategories": len(categories),
			"totalPosts":      totalPosts,
		},
	})
}

// Tags lists every tag in use with its post count, most used first.
func (h *BlogHandler) Tags(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.TagCounts(r.Context())
	if err != nil {
		h.log.Errorw("tag counts failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch tags")
		return
	}
	totalPosts, err := h.store.CountPosts(r.Context(), db.PostFilter{})
	if err != nil {
		h.log.Errorw("count posts failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch tags")
		return
	}

	type tagEntry struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
		Slug  string `json:"slug"`
	}
	tags := make([]tagEntry, 0, len(counts))
	for _, c := range counts {
		tags = append(tags, tagEntry{Name: c.Name, Count: c.Count, Slug: slugify(c.Name)})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"tags":       tags,
			"totalTags":  len(tags),
			"totalPosts": totalPosts,
		},
	})
}

// Featured lists featured posts, optionally narrowed to a category.
func (h *BlogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parsePositiveInt(q.Get("limit"), 6)

	featured := true
	filter := db.PostFilter{
		Featured: &featured,
		Category: canonicalCategory(q.Get("category")),
		SortBy:   "date",
		SortDesc: true,
		Limit:    limit,
	}

	posts, err := h.store.ListPosts(r.Context(), filter)
	if err != nil {
		h.log.Errorw("featured posts failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch featured posts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"posts": nonNil(posts),
			"total": len(posts),
			"limit": limit,
		},
	})
}

// Stats reports aggregate statistics over the whole corpus.
func (h *BlogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalPosts, err := h.store.CountPosts(ctx, db.PostFilter{})
	if err != nil {
		h.log.Errorw("stats failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch blog stats")
		return
	}
	featured := true
	featuredPosts, err := h.store.CountPosts(ctx, db.PostFilter{Featured: &featured})
	if err != nil {
		h.log.Errorw("stats failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch blog stats")
		return
	}
	categories, err := h.store.CategoryCounts(ctx)
	if err != nil {
		h.log.Errorw("stats failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch blog stats")
		return
	}
	authors, err := h.store.AuthorCounts(ctx)
	if err != nil {
		h.log.Errorw("stats failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch blog stats")
		return
	}
	latest, err := h.store.EdgePost(ctx, true)
	if err != nil {
		h.log.Errorw("stats failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch blog stats")
		return
	}
	oldest, err := h.store.EdgePost(ctx, false)
	if err != nil {
		h.log.Errorw("stats failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch blog stats")
		return
	}
	readTimes, err := h.store.ReadTimes(ctx)
	if err != nil {
		h.log.Errorw("stats failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Failed to fetch blog stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"overview": map[string]interface{}{
				"totalPosts":      totalPosts,
				"featuredPosts":   featuredPosts,
				"totalCategories": len(categories),
				"totalAuthors":    len(authors),
				"averageReadTime": averageReadTime(readTimes),
			},
			"latestPost": postSummary(latest),
			"oldestPost": postSummary(oldest),
			"categories": categories,
			"authors":    authors,
		},
	})
}

var readTimeMinutes = regexp.MustCompile(`\d+`)

// averageReadTime averages the minute counts embedded in read-time labels;
// unparsable labels count as 5 minutes, the historical default.
func averageReadTime(readTimes []string) string {
	if len(readTimes) == 0 {
		return "5 min"
	}
	sum := 0
	for _, rt := range readTimes {
		minutes := 5
		if m := readTimeMinutes.FindString(rt); m != "" {
			if parsed, err := strconv.Atoi(m); err == nil {
				minutes = parsed
			}
		}
		sum += minutes
	}
	avg := (sum + len(readTimes)/2) / len(readTimes)
	return strconv.Itoa(avg) + " min"
}

func postSummary(post *models.Post) map[string]string {
	if post == nil {
		return nil
	}
	return map[string]string{
		"id":     post.ID,
		"title":  post.Title,
		"date":   post.Date,
		"author": post.Author,
	}
}

// canonicalCategory maps a case-insensitive category name onto the fixed
// enumeration; unknown values pass through and simply match nothing.
func canonicalCategory(category string) string {
	if category == "" {
		return ""
	}
	for _, name := range models.Categories {
		if strings.EqualFold(name, category) {
			return name
		}
	}
	return category
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
