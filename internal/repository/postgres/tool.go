package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"toolshed/internal/domain"
)

const toolColumns = `id, url, url_key, name, description, categories, price, ease_of_use,
		       submitted_by, justification, upvotes, downvotes, image_url,
		       submitted_at, last_updated_at`

// uniqueViolation is the Postgres error code for a unique index conflict
const uniqueViolation = "23505"

// ToolRepository implements domain.ToolRepository using PostgreSQL
type ToolRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewToolRepository creates a new PostgreSQL tool repository
func NewToolRepository(db *sql.DB, logger *slog.Logger) *ToolRepository {
	return &ToolRepository{
		db:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTool reads one row selected with toolColumns
func scanTool(row rowScanner) (*domain.Tool, error) {
	tool := &domain.Tool{}
	var categories pq.StringArray
	var imageURL sql.NullString
	var lastUpdatedAt sql.NullTime

	err := row.Scan(
		&tool.ID,
		&tool.URL,
		&tool.URLKey,
		&tool.Name,
		&tool.Description,
		&categories,
		&tool.Price,
		&tool.EaseOfUse,
		&tool.SubmittedBy,
		&tool.Justification,
		&tool.Upvotes,
		&tool.Downvotes,
		&imageURL,
		&tool.SubmittedAt,
		&lastUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tool.Categories = []string(categories)
	if tool.Categories == nil {
		tool.Categories = []string{}
	}
	if imageURL.Valid {
		tool.ImageURL = &imageURL.String
	}
	tool.SubmittedAt = tool.SubmittedAt.UTC()
	if lastUpdatedAt.Valid {
		t := lastUpdatedAt.Time.UTC()
		tool.LastUpdatedAt = &t
	}

	return tool, nil
}

// Create inserts a new tool, assigning an ID and submission time when unset
func (r *ToolRepository) Create(ctx context.Context, tool *domain.Tool) error {
	if tool.ID == "" {
		tool.ID = uuid.New().String()
	}
	if tool.SubmittedAt.IsZero() {
		tool.SubmittedAt = time.Now().UTC()
	}
	tool.URLKey = tool.DedupeKey()

	query := `
		INSERT INTO tools (
			id, url, url_key, name, description, categories, price, ease_of_use,
			submitted_by, justification, upvotes, downvotes, image_url,
			submitted_at, last_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	var imageURL, lastUpdatedAt interface{}
	if tool.ImageURL != nil {
		imageURL = *tool.ImageURL
	}
	if tool.LastUpdatedAt != nil {
		lastUpdatedAt = *tool.LastUpdatedAt
	}

	_, err := r.db.ExecContext(ctx, query,
		tool.ID,
		tool.URL,
		tool.URLKey,
		tool.Name,
		tool.Description,
		pq.Array(tool.Categories),
		tool.Price,
		tool.EaseOfUse,
		tool.SubmittedBy,
		tool.Justification,
		tool.Upvotes,
		tool.Downvotes,
		imageURL,
		tool.SubmittedAt,
		lastUpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("failed to create tool %s: %w", tool.URL, domain.ErrDuplicateURL)
		}
		r.logger.Error("Failed to create tool",
			"error", err,
			"tool_id", tool.ID,
			"url", tool.URL,
		)
		return fmt.Errorf("failed to create tool: %w", err)
	}

	r.logger.Info("Tool created successfully",
		"tool_id", tool.ID,
		"url", tool.URL,
	)
	return nil
}

// GetByID retrieves a tool by its UUID
func (r *ToolRepository) GetByID(ctx context.Context, id string) (*domain.Tool, error) {
	// Anything that is not a UUID cannot be stored
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	query := `SELECT ` + toolColumns + ` FROM tools WHERE id = $1`

	tool, err := scanTool(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug("Tool not found", "tool_id", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to query tool",
			"error", err,
			"tool_id", id,
		)
		return nil, fmt.Errorf("failed to query tool: %w", err)
	}

	return tool, nil
}

// GetByURL finds a tool by its dedupe key, nil when absent
func (r *ToolRepository) GetByURL(ctx context.Context, url string) (*domain.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools WHERE url_key = $1`

	tool, err := scanTool(r.db.QueryRowContext(ctx, query, url))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to query tool by URL",
			"error", err,
			"url", url,
		)
		return nil, fmt.Errorf("failed to query tool by URL: %w", err)
	}

	return tool, nil
}

// Update writes the non-nil fields of update and returns the stored tool
func (r *ToolRepository) Update(ctx context.Context, id string, update domain.ToolUpdate) (*domain.Tool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	query, args := buildUpdateQuery(id, update)

	tool, err := scanTool(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to update tool",
			"error", err,
			"tool_id", id,
		)
		return nil, fmt.Errorf("failed to update tool: %w", err)
	}

	r.logger.Info("Tool updated successfully", "tool_id", id)
	return tool, nil
}

// buildUpdateQuery builds an UPDATE touching only the fields set in update
func buildUpdateQuery(id string, update domain.ToolUpdate) (string, []any) {
	var sets []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if len(update.Categories) > 0 {
		add("categories", pq.Array(update.Categories))
	}
	if update.ImageURL != nil {
		add("image_url", *update.ImageURL)
	}
	if update.Justification != nil {
		add("justification", *update.Justification)
	}

	lastUpdatedAt := update.LastUpdatedAt
	if lastUpdatedAt.IsZero() {
		lastUpdatedAt = time.Now().UTC()
	}
	add("last_updated_at", lastUpdatedAt)

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tools SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), toolColumns)

	return query, args
}

// IncrementCounters adds the non-zero deltas in a single relative update
func (r *ToolRepository) IncrementCounters(ctx context.Context, id string, delta domain.VoteDelta) error {
	if delta.IsZero() {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}

	query, args := buildIncrementQuery(id, delta)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to increment vote counters",
			"error", err,
			"tool_id", id,
		)
		return fmt.Errorf("failed to increment vote counters: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// buildIncrementQuery only mentions counters whose delta is non-zero
func buildIncrementQuery(id string, delta domain.VoteDelta) (string, []any) {
	var sets []string
	var args []any

	if delta.Upvotes != 0 {
		args = append(args, delta.Upvotes)
		sets = append(sets, fmt.Sprintf("upvotes = upvotes + $%d", len(args)))
	}
	if delta.Downvotes != 0 {
		args = append(args, delta.Downvotes)
		sets = append(sets, fmt.Sprintf("downvotes = downvotes + $%d", len(args)))
	}

	args = append(args, id)
	return fmt.Sprintf("UPDATE tools SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)), args
}

// List returns every tool, newest submission first
func (r *ToolRepository) List(ctx context.Context) ([]*domain.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools ORDER BY submitted_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list tools", "error", err)
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	defer rows.Close()

	tools := []*domain.Tool{}
	for rows.Next() {
		tool, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tool: %w", err)
		}
		tools = append(tools, tool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tools: %w", err)
	}

	return tools, nil
}
