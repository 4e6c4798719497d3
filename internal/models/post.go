package models

import "time"

// Post is a single published blog article and its metadata.
type Post struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Image    string `json:"image"`
	// Date is the publication date with day precision, formatted YYYY-MM-DD.
	Date      string    `json:"date"`
	ReadTime  string    `json:"readTime"`
	Author    string    `json:"author"`
	Tags      []string  `json:"tags"`
	Featured  bool      `json:"featured"`
	Source    string    `json:"source"`
	AIVersion string    `json:"aiVersion"`
	CreatedAt time.Time `json:"createdAt"`
}

// Categories is the fixed set of valid post categories, in display order.
var Categories = []string{
	"Technology",
	"AI",
	"Business",
	"Startups",
	"Cybersecurity",
	"Science",
	"Data Science",
}

// CategoryInfo carries presentation metadata for a category.
type CategoryInfo struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

var categoryConfig = map[string]CategoryInfo{
	"Technology":    {Name: "Technology", Slug: "technology", Description: "Latest technology trends and innovations"},
	"AI":            {Name: "AI", Slug: "ai", Description: "Artificial Intelligence and machine learning"},
	"Business":      {Name: "Business", Slug: "business", Description: "Business insights and strategies"},
	"Startups":      {Name: "Startups", Slug: "startups", Description: "Startup culture, funding and growth"},
	"Cybersecurity": {Name: "Cybersecurity", Slug: "cybersecurity", Description: "Cybersecurity and digital security"},
	"Science":       {Name: "Science", Slug: "science", Description: "Scientific discoveries and research"},
	"Data Science":  {Name: "Data Science", Slug: "data-science", Description: "Analytics, big data, and data-driven decision making"},
}

func IsValidCategory(category string) bool {
	_, ok := categoryConfig[category]
	return ok
}

// CategoryConfig returns presentation metadata for a valid category.
func CategoryConfig(category string) (CategoryInfo, bool) {
	info, ok := categoryConfig[category]
	return info, ok
}
