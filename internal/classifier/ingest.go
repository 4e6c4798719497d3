package classifier

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultImage is used when an ingested item carries no image URL.
const DefaultImage = "https://images.unsplash.com/photo-1677442136019-21780ecad995?w=800&h=400&fit=crop"

// DefaultAIVersion labels ingested content whose producer sent no version.
const DefaultAIVersion = "1.0"

// ErrNoContent is returned when an ingested item has neither a title nor
// body text to work with.
var ErrNoContent = errors.New("at least title or content is required")

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Upstream producers are inconsistent about field names, so each logical
// field is resolved through an ordered list of accepted keys; the first
// present, non-empty value wins.
var (
	titleKeys   = []string{"title", "headline", "name"}
	contentKeys = []string{"content", "body", "text", "article"}
	excerptKeys = []string{"excerpt", "summary", "description"}
	imageKeys   = []string{"image", "imageUrl", "thumbnail"}
	tagKeys     = []string{"tags", "keywords"}
	authorKeys  = []string{"author", "writer", "creator"}
	categoryKey = []string{"category", "topic"}
	versionKeys = []string{"aiVersion", "version"}
)

// categoryAliases normalizes the casing of producer-supplied categories.
var categoryAliases = map[string]string{
	"ai":            "AI",
	"technology":    "Technology",
	"business":      "Business",
	"startups":      "Startups",
	"cybersecurity": "Cybersecurity",
	"science":       "Science",
	"data science":  "Data Science",
	"apis":          "APIs",
}

// authorByCategory maps a category to its house author byline.
var authorByCategory = map[string]string{
	"AI":            "AI Team",
	"Technology":    "Tech Team",
	"Cybersecurity": "Security Team",
	"Business":      "Business Team",
	"Startups":      "Startup Team",
	"Science":       "Science Team",
	"Data Science":  "Data Team",
}

// shortCategoryNames provides compact badge labels used as the source tag.
var shortCategoryNames = map[string]string{
	"Technology":    "Tech",
	"Cybersecurity": "Security",
	"Data Science":  "Data",
}

// Fields is the fully resolved set of values for a content item, ready to
// be stored.
type Fields struct {
	Title     string
	Excerpt   string
	Content   string
	Category  string
	Image     string
	Date      string
	ReadTime  string
	Author    string
	Tags      []string
	Featured  bool
	Source    string
	AIVersion string
}

// Generated records which fields were synthesized rather than supplied, so
// callers can audit what the classifier filled in.
type Generated struct {
	Excerpt  bool `json:"excerpt"`
	Category bool `json:"category"`
	Image    bool `json:"image"`
	ReadTime bool `json:"readTime"`
	Author   bool `json:"author"`
	Tags     bool `json:"tags"`
	Date     bool `json:"date"`
}

// Result is the outcome of ingesting one raw item.
type Result struct {
	Fields    Fields
	Generated Generated
}

// Ingestor turns loosely structured input into complete content item fields.
type Ingestor struct {
	log *zap.SugaredLogger
	now func() time.Time
}

func NewIngestor(log *zap.SugaredLogger) *Ingestor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Ingestor{log: log, now: time.Now}
}

// Ingest resolves every field a content item requires from raw input,
// deriving the missing ones. The only hard failure is input with neither
// title nor content; a malformed date is logged and replaced with the
// current date.
func (in *Ingestor) Ingest(raw map[string]any) (*Result, error) {
	title := firstString(raw, titleKeys)
	content := firstString(raw, contentKeys)
	if title == "" && content == "" {
		return nil, ErrNoContent
	}
	if title == "" {
		title = "Untitled Post"
	}

	res := &Result{}

	excerpt := firstString(raw, excerptKeys)
	if excerpt == "" {
		excerpt = GenerateExcerpt(content, 0)
		res.Generated.Excerpt = true
	}

	image := firstString(raw, imageKeys)
	if image == "" {
		image = DefaultImage
		res.Generated.Image = true
	}

	tags := firstStringSlice(raw, tagKeys)
	if len(tags) == 0 {
		tags = ExtractTags(content, title)
		res.Generated.Tags = true
	}

	category := firstString(raw, categoryKey)
	if category == "" {
		category = ClassifyCategory(content, title)
		res.Generated.Category = true
	}
	if normalized, ok := categoryAliases[strings.ToLower(category)]; ok {
		category = normalized
	}

	author := firstString(raw, authorKeys)
	if author == "" {
		author = AuthorForCategory(category)
		res.Generated.Author = true
	}

	source := firstString(raw, []string{"source"})
	if source == "" {
		source = ShortCategoryName(category)
	}

	version := firstString(raw, versionKeys)
	if version == "" {
		version = DefaultAIVersion
	}

	date := firstString(raw, []string{"date"})
	switch {
	case date == "":
		date = in.now().Format("2006-01-02")
		res.Generated.Date = true
	case !dateFormat.MatchString(date):
		in.log.Warnw("invalid ingest date, using current date", "date", date, "title", title)
		date = in.now().Format("2006-01-02")
		res.Generated.Date = true
	}

	res.Generated.ReadTime = firstString(raw, []string{"readTime"}) == ""

	res.Fields = Fields{
		Title:     title,
		Excerpt:   excerpt,
		Content:   content,
		Category:  category,
		Image:     image,
		Date:      date,
		ReadTime:  EstimateReadTime(content),
		Author:    author,
		Tags:      tags,
		Featured:  boolValue(raw, "featured"),
		Source:    source,
		AIVersion: version,
	}
	return res, nil
}

// AuthorForCategory resolves the house author for a category, defaulting to
// the Tech Team.
func AuthorForCategory(category string) string {
	if author, ok := authorByCategory[category]; ok {
		return author
	}
	return "Tech Team"
}

// ShortCategoryName returns the compact badge label for a category; names
// without a short form are used as-is.
func ShortCategoryName(category string) string {
	if short, ok := shortCategoryNames[category]; ok {
		return short
	}
	return category
}

// IsValidDate reports whether a date string matches YYYY-MM-DD.
func IsValidDate(date string) bool {
	return dateFormat.MatchString(date)
}

func firstString(raw map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := raw[key].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstStringSlice(raw map[string]any, keys []string) []string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case []string:
			if len(v) > 0 {
				return v
			}
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func boolValue(raw map[string]any, key string) bool {
	v, _ := raw[key].(bool)
	return v
}
