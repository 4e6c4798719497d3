package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/MIDHUNGRAJ/curiostack/internal/classifier"
	"github.com/MIDHUNGRAJ/curiostack/internal/db"
	"github.com/MIDHUNGRAJ/curiostack/internal/metrics"
	"github.com/MIDHUNGRAJ/curiostack/internal/models"
)

// ingestSources are the provenance labels the ingestion list endpoint
// selects on.
var ingestSources = []string{"CurioStack", "CurioStack AI"}

// IngestHandler accepts raw, loosely structured content and stores it as a
// fully classified post.
type IngestHandler struct {
	store    ContentStore
	ingestor *classifier.Ingestor
	log      *zap.SugaredLogger
}

func NewIngestHandler(store ContentStore, ingestor *classifier.Ingestor, log *zap.SugaredLogger) *IngestHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &IngestHandler{store: store, ingestor: ingestor, log: log}
}

// Create classifies a raw JSON item and inserts the resulting post. The
// response reports which fields were synthesized.
func (h *IngestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.ingestor.Ingest(raw)
	if err != nil {
		if errors.Is(err, classifier.ErrNoContent) {
			respondError(w, http.StatusBadRequest, "At least title or content is required")
			return
		}
		h.log.Errorw("ingest failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}

	f := result.Fields
	created, err := h.store.CreatePost(r.Context(), models.Post{
		Title:     f.Title,
		Excerpt:   f.Excerpt,
		Content:   f.Content,
		Category:  f.Category,
		Image:     f.Image,
		Date:      f.Date,
		ReadTime:  f.ReadTime,
		Author:    f.Author,
		Tags:      f.Tags,
		Featured:  f.Featured,
		Source:    f.Source,
		AIVersion: f.AIVersion,
	})
	if err != nil {
		h.log.Errorw("ingest insert failed", "title", f.Title, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}

	metrics.PostsIngested.Inc()
	h.log.Infow("post ingested", "id", created.ID, "category", created.Category)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Post created successfully",
		"post":          created,
		"autoGenerated": result.Generated,
	})
}

// List returns the posts that arrived through ingestion, newest first.
func (h *IngestHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parsePositiveInt(q.Get("page"), 1)
	limit := parsePositiveInt(q.Get("limit"), 50)

	filter := db.PostFilter{
		Sources:  ingestSources,
		SortBy:   "createdAt",
		SortDesc: true,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	posts, err := h.store.ListPosts(r.Context(), filter)
	if err != nil {
		h.log.Errorw("ingest list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	total, err := h.store.CountPosts(r.Context(), db.PostFilter{Sources: ingestSources})
	if err != nil {
		h.log.Errorw("ingest count failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"posts":      nonNil(posts),
		"pagination": paginate(total, page, limit),
	})
}
