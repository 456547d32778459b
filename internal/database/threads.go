package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/google/uuid"
)

// ThreadRepository handles activity feed threads and posts
type ThreadRepository struct {
	db *DB
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(db *DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

const threadSelect = `
	SELECT th.id, th.type, th.about, th.message, th.created_by, th.resolved, th.thread_ts, th.updated_at,
		(SELECT COUNT(*) FROM posts p WHERE p.thread_id = th.id) AS posts_count
	FROM threads th
`

func scanThread(row rowScanner) (*models.Thread, error) {
	t := &models.Thread{Posts: []models.Post{}}
	var threadType string
	err := row.Scan(&t.ID, &threadType, &t.About, &t.Message, &t.CreatedBy, &t.Resolved, &t.ThreadTs, &t.UpdatedAt, &t.PostsCount)
	if err != nil {
		return nil, err
	}
	t.Type = models.ThreadType(threadType)
	return t, nil
}

// Create opens a new thread
func (r *ThreadRepository) Create(ctx context.Context, t *models.Thread) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Type == "" {
		t.Type = models.ThreadConversation
	}
	if t.Posts == nil {
		t.Posts = []models.Post{}
	}
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO threads (id, type, about, message, created_by, resolved, thread_ts, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING thread_ts, updated_at
	`, t.ID, string(t.Type), t.About, t.Message, t.CreatedBy, t.Resolved, now).Scan(&t.ThreadTs, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

// GetByID retrieves a thread with its posts in posting order
func (r *ThreadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Thread, error) {
	t, err := scanThread(r.db.QueryRowContext(ctx, threadSelect+` WHERE th.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("thread %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message, from_user, post_ts FROM posts WHERE thread_id = $1 ORDER BY post_ts ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.Message, &p.From, &p.PostTs); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		t.Posts = append(t.Posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return t, nil
}

// List returns threads about an entity, newest first. A thread matches when its
// about link equals exact or starts with fieldPrefix. An empty exact lists every thread.
func (r *ThreadRepository) List(ctx context.Context, exact, fieldPrefix string, threadType models.ThreadType, limit int) ([]*models.Thread, error) {
	rows, err := r.db.QueryContext(ctx, threadSelect+`
		WHERE ($1 = '' OR th.about = $1 OR th.about LIKE $2 ESCAPE '\')
			AND ($3 = '' OR th.type = $3)
		ORDER BY th.thread_ts DESC
		LIMIT $4
	`, exact, likePrefix(fieldPrefix), string(threadType), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	threads := []*models.Thread{}
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}
	return threads, nil
}

// AddPost appends a reply to a thread
func (r *ThreadRepository) AddPost(ctx context.Context, threadID uuid.UUID, p *models.Post) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE threads SET updated_at = $2 WHERE id = $1`, threadID, now)
		if err != nil {
			return fmt.Errorf("failed to touch thread: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO posts (id, thread_id, message, from_user, post_ts)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING post_ts
		`, p.ID, threadID, p.Message, p.From, now).Scan(&p.PostTs)
		if err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		return nil
	})
}

// DeleteByAbout removes every thread whose about link equals exact or starts with
// fieldPrefix. Either may be empty, not both.
func (r *ThreadRepository) DeleteByAbout(ctx context.Context, exact, fieldPrefix string) (int64, error) {
	if exact == "" && fieldPrefix == "" {
		return 0, fmt.Errorf("about link cannot be empty")
	}
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM threads WHERE ($1 <> '' AND about = $1) OR ($2 <> '' AND about LIKE $2 ESCAPE '\')
	`, exact, likePrefix(fieldPrefix))
	if err != nil {
		return 0, fmt.Errorf("failed to delete threads: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// likePrefix builds a LIKE pattern matching values that start with prefix
func likePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return likeEscaper.Replace(prefix) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
