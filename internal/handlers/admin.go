package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MIDHUNGRAJ/curiostack/internal/auth"
	"github.com/MIDHUNGRAJ/curiostack/internal/classifier"
	"github.com/MIDHUNGRAJ/curiostack/internal/db"
	"github.com/MIDHUNGRAJ/curiostack/internal/models"
)

// AdminHandler serves login/logout and the token-gated post CRUD.
type AdminHandler struct {
	store ContentStore
	auth  *auth.Authenticator
	log   *zap.SugaredLogger
}

func NewAdminHandler(store ContentStore, authenticator *auth.Authenticator, log *zap.SugaredLogger) *AdminHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AdminHandler{store: store, auth: authenticator, log: log}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login validates the admin credentials and sets the signed token cookie.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.auth.CheckCredentials(req.Username, req.Password) {
		h.log.Warnw("admin login rejected", "username", req.Username, "remote", r.RemoteAddr)
		respondFailure(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.auth.IssueToken(req.Username, auth.CookieTTL)
	if err != nil {
		h.log.Errorw("token issue failed", "error", err)
		respondFailure(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.CookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"user":    map[string]string{"username": req.Username},
	})
}

// Logout clears the token cookie. The token itself stays valid until its
// expiry; there is no revocation list.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logout successful",
	})
}

// ListPosts returns all posts, newest first, for the admin panel.
func (h *AdminHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parsePositiveInt(q.Get("page"), 1)
	limit := parsePositiveInt(q.Get("limit"), 50)

	filter := db.PostFilter{
		SortBy:   "createdAt",
		SortDesc: true,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	posts, err := h.store.ListPosts(r.Context(), filter)
	if err != nil {
		h.log.Errorw("admin list posts failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	total, err := h.store.CountPosts(r.Context(), db.PostFilter{})
	if err != nil {
		h.log.Errorw("admin count posts failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"posts":      nonNil(posts),
		"pagination": paginate(total, page, limit),
	})
}

type postRequest struct {
	Title     string   `json:"title"`
	Excerpt   string   `json:"excerpt"`
	Content   string   `json:"content"`
	Category  string   `json:"category"`
	Image     string   `json:"image"`
	Date      string   `json:"date"`
	ReadTime  string   `json:"readTime"`
	Author    string   `json:"author"`
	Tags      []string `json:"tags"`
	Featured  bool     `json:"featured"`
	Source    string   `json:"source"`
	AIVersion string   `json:"aiVersion"`
}

func (req *postRequest) toModel(id string) models.Post {
	return models.Post{
		ID:        id,
		Title:     req.Title,
		Excerpt:   req.Excerpt,
		Content:   req.Content,
		Category:  req.Category,
		Image:     req.Image,
		Date:      req.Date,
		ReadTime:  req.ReadTime,
		Author:    req.Author,
		Tags:      req.Tags,
		Featured:  req.Featured,
		Source:    req.Source,
		AIVersion: req.AIVersion,
	}
}

// missingField returns the name of the first absent required field.
func (req *postRequest) missingField() string {
	required := []struct {
		name  string
		empty bool
	}{
		{"title", req.Title == ""},
		{"excerpt", req.Excerpt == ""},
		{"content", req.Content == ""},
		{"category", req.Category == ""},
		{"image", req.Image == ""},
		{"date", req.Date == ""},
		{"readTime", req.ReadTime == ""},
		{"author", req.Author == ""},
		{"tags", len(req.Tags) == 0},
	}
	for _, field := range required {
		if field.empty {
			return field.name
		}
	}
	return ""
}

// CreatePost creates a fully specified post through the admin panel.
func (h *AdminHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if field := req.missingField(); field != "" {
		respondError(w, http.StatusBadRequest, "Missing required field: "+field)
		return
	}
	if !classifier.IsValidDate(req.Date) {
		respondError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD format")
		return
	}

	created, err := h.store.CreatePost(r.Context(), req.toModel(""))
	if err != nil {
		h.log.Errorw("admin create post failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Post created successfully",
		"post":    created,
	})
}

// UpdatePost overwrites a post by id.
func (h *AdminHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Date != "" && !classifier.IsValidDate(req.Date) {
		respondError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD format")
		return
	}

	updated, err := h.store.UpdatePost(r.Context(), req.toModel(id))
	if err != nil {
		h.log.Errorw("admin update post failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update post")
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, "Post not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Post updated successfully",
		"post":    updated,
	})
}

// DeletePost removes a post by id.
func (h *AdminHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.store.DeletePost(r.Context(), id)
	if err != nil {
		h.log.Errorw("admin delete post failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete post")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Post not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Post deleted successfully",
	})
}

// Stats returns the dashboard counters.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalPosts, err := h.store.CountPosts(ctx, db.PostFilter{})
	if err != nil {
		h.log.Errorw("admin stats failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	featured := true
	featuredPosts, err := h.store.CountPosts(ctx, db.PostFilter{Featured: &featured})
	if err != nil {
		h.log.Errorw("admin stats failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	categories, err := h.store.CategoryCounts(ctx)
	if err != nil {
		h.log.Errorw("admin stats failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	recentPosts, err := h.store.RecentPostCount(ctx, 7)
	if err != nil {
		h.log.Errorw("admin stats failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"totalPosts":    totalPosts,
		"featuredPosts": featuredPosts,
		"categories":    len(categories),
		"recentPosts":   recentPosts,
	})
}
