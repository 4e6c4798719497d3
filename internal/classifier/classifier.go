// Package classifier derives the metadata a blog post needs from raw,
// possibly metadata-free text: category, tags, excerpt and read time.
// Every operation is deterministic and degrades to a safe default on
// empty input.
package classifier

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultCategory is assigned when no keyword rule matches.
	DefaultCategory = "Technology"
	// DefaultTag is returned when no vocabulary term matches.
	DefaultTag = "Technology"

	wordsPerMinute   = 200
	excerptMaxLength = 150
)

// categoryRule pairs a category with the keywords that select it. Rules are
// evaluated in declaration order and the first match wins, so more specific
// niches (AI, Cybersecurity) shadow the generic ones below them.
type categoryRule struct {
	category string
	keywords []string
}

var categoryRules = []categoryRule{
	{
		category: "AI",
		keywords: []string{
			"ai", "artificial intelligence", "machine learning", "deep learning",
			"neural network", "gpt", "openai", "chatgpt", "llm",
			"large language model", "computer vision", "nlp",
			"natural language processing", "robotics", "automation",
		},
	},
	{
		category: "Cybersecurity",
		keywords: []string{
			"cybersecurity", "security", "hack", "breach", "api",
			"application programming interface", "vulnerability",
			"penetration testing", "ethical hacking", "firewall", "encryption",
			"zero-day", "malware", "ransomware", "phishing", "data breach",
			"compliance", "gdpr", "privacy",
		},
	},
	{
		category: "Startups",
		keywords: []string{
			"startup", "entrepreneur", "venture capital", "funding",
			"seed round", "series a", "series b", "unicorn", "pitch deck",
			"mvp", "product-market fit", "accelerator", "incubator",
			"angel investor", "bootstrapping",
		},
	},
	{
		category: "Business",
		keywords: []string{
			"business", "strategy", "digital transformation", "innovation",
			"leadership", "management", "marketing", "sales", "customer",
			"revenue", "profit", "growth", "scaling", "competitive advantage",
			"market analysis", "business model",
		},
	},
	{
		category: "Technology",
		keywords: []string{
			"technology", "software", "programming", "development", "coding",
			"web", "mobile", "cloud", "database", "infrastructure", "devops",
			"blockchain", "crypto", "iot", "internet of things", "5g",
			"quantum computing",
		},
	},
}

// tagVocabulary is the fixed candidate tag set, in output order.
var tagVocabulary = []string{
	"Technology", "AI", "Business", "Startups", "Cybersecurity",
	"Programming", "Web Development", "Machine Learning",
}

var (
	markdownHeader = regexp.MustCompile(`#{1,6}\s+`)
	markdownBold   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	markdownItalic = regexp.MustCompile(`\*(.*?)\*`)
	markdownLink   = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	markdownCode   = regexp.MustCompile("`([^`]+)`")
	newlines       = regexp.MustCompile(`\n+`)
	trailingWord   = regexp.MustCompile(`\s+\S*$`)
)

// EstimateReadTime estimates reading time at 200 words per minute, rounded
// up, never below one minute.
func EstimateReadTime(content string) string {
	words := len(strings.Fields(content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

// GenerateExcerpt produces a plain-text excerpt of at most maxLength
// characters (plus ellipsis), cut on a word boundary. maxLength <= 0 falls
// back to the default of 150.
func GenerateExcerpt(content string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = excerptMaxLength
	}

	plain := markdownHeader.ReplaceAllString(content, "")
	plain = markdownBold.ReplaceAllString(plain, "$1")
	plain = markdownItalic.ReplaceAllString(plain, "$1")
	plain = markdownLink.ReplaceAllString(plain, "$1")
	plain = markdownCode.ReplaceAllString(plain, "$1")
	plain = newlines.ReplaceAllString(plain, " ")
	plain = strings.TrimSpace(plain)

	if len(plain) <= maxLength {
		return plain
	}

	truncated := plain[:maxLength]
	truncated = trailingWord.ReplaceAllString(truncated, "")
	return truncated + "..."
}

// ExtractTags scans the fixed vocabulary against title and content and
// returns every tag whose lowercase form occurs as a substring. The result
// follows vocabulary order and is never empty.
func ExtractTags(content, title string) []string {
	text := strings.ToLower(title + " " + content)

	var tags []string
	for _, tag := range tagVocabulary {
		if strings.Contains(text, strings.ToLower(tag)) {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		tags = []string{DefaultTag}
	}
	return tags
}

// ClassifyCategory assigns a category by evaluating the keyword rules in
// priority order against title and content. The first rule with any keyword
// present wins; with no match the category defaults to Technology.
func ClassifyCategory(content, title string) string {
	text := strings.ToLower(title + " " + content)

	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.category
			}
		}
	}
	return DefaultCategory
}
