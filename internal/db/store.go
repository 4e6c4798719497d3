package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MIDHUNGRAJ/curiostack/internal/models"
)

const postColumns = `
	id,
	title,
	excerpt,
	content,
	category,
	COALESCE(image, ''),
	date,
	read_time,
	author,
	COALESCE(tags, '{}'::text[]),
	featured,
	COALESCE(source, ''),
	COALESCE(ai_version, ''),
	created_at`

// sortColumns whitelists client-supplied sort keys. Anything else falls
// back to the publication date.
var sortColumns = map[string]string{
	"date":      "date",
	"createdAt": "created_at",
	"title":     "title",
}

// PostFilter narrows list and count queries. Zero values mean "no filter".
type PostFilter struct {
	Category string
	Tag      string
	Featured *bool
	Author   string
	Search   string
	Sources  []string
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Init creates the posts table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS posts (
	    id TEXT PRIMARY KEY,
	    title TEXT NOT NULL,
	    excerpt TEXT NOT NULL,
	    content TEXT NOT NULL,
	    category TEXT NOT NULL,
	    image TEXT,
	    date TEXT NOT NULL,
	    read_time TEXT NOT NULL,
	    author TEXT NOT NULL,
	    tags TEXT[],
	    featured BOOLEAN NOT NULL DEFAULT false,
	    source TEXT,
	    ai_version TEXT,
	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	return nil
}

// whereClause builds the WHERE fragment and argument list for a filter.
func whereClause(filter PostFilter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		conds = append(conds, "category = "+arg(filter.Category))
	}
	if filter.Tag != "" {
		conds = append(conds, arg(filter.Tag)+" = ANY(tags)")
	}
	if filter.Featured != nil {
		conds = append(conds, "featured = "+arg(*filter.Featured))
	}
	if filter.Author != "" {
		conds = append(conds, "author ILIKE '%' || "+arg(filter.Author)+" || '%'")
	}
	if filter.Search != "" {
		p := arg(filter.Search)
		conds = append(conds, fmt.Sprintf(`(
			title ILIKE '%%' || %[1]s || '%%'
			OR excerpt ILIKE '%%' || %[1]s || '%%'
			OR content ILIKE '%%' || %[1]s || '%%'
			OR EXISTS (
				SELECT 1 FROM unnest(tags) tag
				WHERE tag ILIKE '%%' || %[1]s || '%%'
			)
		)`, p))
	}
	if len(filter.Sources) > 0 {
		conds = append(conds, "source = ANY("+arg(filter.Sources)+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(filter PostFilter) string {
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "date"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

// ListPosts returns the filtered page of posts.
func (s *Store) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	if s.pool == nil {
		return nil, errors.New("db not initialized")
	}

	where, args := whereClause(filter)
	query := "SELECT" + postColumns + " FROM posts" + where + orderClause(filter)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return posts, nil
}

// CountPosts counts the posts a filter matches, ignoring pagination.
func (s *Store) CountPosts(ctx context.Context, filter PostFilter) (int, error) {
	if s.pool == nil {
		return 0, errors.New("db not initialized")
	}

	where, args := whereClause(filter)
	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM posts"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	if s.pool == nil {
		return nil, errors.New("db not initialized")
	}

	row := s.pool.QueryRow(ctx, "SELECT"+postColumns+" FROM posts WHERE id = $1", id)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

func (s *Store) CreatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	if s.pool == nil {
		return nil, errors.New("db not initialized")
	}

	if post.ID == "" {
		post.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO posts (id, title, excerpt, content, category, image, date, read_time, author, tags, featured, source, ai_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING` + postColumns

	row := s.pool.QueryRow(ctx, query,
		post.ID,
		post.Title,
		post.Excerpt,
		post.Content,
		post.Category,
		post.Image,
		post.Date,
		post.ReadTime,
		post.Author,
		post.Tags,
		post.Featured,
		post.Source,
		post.AIVersion,
	)
	created, err := scanPost(row)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &created, nil
}

// UpdatePost overwrites every mutable field of a post. Returns nil when the
// id does not exist.
func (s *Store) UpdatePost(ctx context.Context, post models.Post) (*models.Post, error) {
	if s.pool == nil {
		return nil, errors.New("db not initialized")
	}

	const query = `
		UPDATE posts
		SET title = $2,
		    excerpt = $3,
		    content = $4,
		    category = $5,
		    image = $6,
		    date = $7,
		    read_time = $8,
		    author = $9,
		    tags = $10,
		    featured = $11,
		    source = $12,
		    ai_version = $13
		WHERE id = $1
		RETURNING` + postColumns

	row := s.pool.QueryRow(ctx, query,
		post.ID,
		post.Title,
		post.Excerpt,
		post.Content,
		post.Category,
		post.Image,
		post.Date,
		post.ReadTime,
		post.Author,
		post.Tags,
		post.Featured,
		post.Source,
		post.AIVersion,
	)
	updated, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return &updated, nil
}

// DeletePost removes a post by id. Returns false when nothing was deleted.
func (s *Store) DeletePost(ctx context.Context, id string) (bool, error) {
	if s.pool == nil {
		return false, errors.New("db not initialized")
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// LabelCount pairs a grouping label with its post count.
type LabelCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CategoryCounts returns post counts grouped by category.
func (s *Store) CategoryCounts(ctx context.Context) ([]LabelCount, error) {
	return s.groupCounts(ctx, "SELECT category, COUNT(*) FROM posts GROUP BY category ORDER BY COUNT(*) DESC")
}

// AuthorCounts returns post counts grouped by author.
func (s *Store) AuthorCounts(ctx context.Context) ([]LabelCount, error) {
	return s.groupCounts(ctx, "SELECT author, COUNT(*) FROM posts GROUP BY author ORDER BY COUNT(*) DESC")
}

// TagCounts returns post counts per tag, most used first.
func (s *Store) TagCounts(ctx context.Context) ([]LabelCount, error) {
	return s.groupCounts(ctx, `
		SELECT tag, COUNT(*)
		FROM posts, unnest(tags) tag
		GROUP BY tag
		ORDER BY COUNT(*) DESC, tag ASC`)
}

func (s *Store) groupCounts(ctx context.Context, query string) ([]LabelCount, error) {
	if s.pool == nil {
		return nil, errors.New("db not initialized")
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("group counts: %w", err)
	}
	defer rows.Close()

	var counts []LabelCount
	for rows.Next() {
		var c LabelCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}

// RecentPostCount counts posts created in the trailing number of days.
func (s *Store) RecentPostCount(ctx context.Context, days int) (int, error) {
	if s.pool == nil {
		return 0, errors.New("db not initialized")
	}

	var total int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM posts WHERE created_at >= now() - make_interval(days => $1)", days,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("recent post count: %w", err)
	}
	return total, nil
}

// EdgePost returns the newest (latest=true) or oldest post by date, or nil
// with an empty table.
func (s *Store) EdgePost(ctx context.Context, latest bool) (*models.Post, error) {
	if s.pool == nil {
		return nil, errors.New("db not initialized")
	}

	direction := "ASC"
	if latest {
		direction = "DESC"
	}
	row := s.pool.QueryRow(ctx, "SELECT"+postColumns+" FROM posts ORDER BY date "+direction+" LIMIT 1")
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("edge post: %w", err)
	}
	return &post, nil
}

// ReadTimes returns the raw read_time strings across all posts.
func (s *Store) ReadTimes(ctx context.Context) ([]string, error) {
	if s.pool == nil {
		return nil, errors.New("db not initialized")
	}

	rows, err := s.pool.Query(ctx, "SELECT read_time FROM posts")
	if err != nil {
		return nil, fmt.Errorf("read times: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan read time: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return times, nil
}

func scanPost(row pgx.Row) (models.Post, error) {
	var post models.Post
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Excerpt,
		&post.Content,
		&post.Category,
		&post.Image,
		&post.Date,
		&post.ReadTime,
		&post.Author,
		&post.Tags,
		&post.Featured,
		&post.Source,
		&post.AIVersion,
		&post.CreatedAt,
	)
	return post, err
}
