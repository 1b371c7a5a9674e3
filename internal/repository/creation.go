package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/inkwell/inkwell/internal/model"
)

// ErrCreationNotFound is returned when no creation matches the given ID.
var ErrCreationNotFound = errors.New("creation not found")

const creationColumns = `id, user_id, prompt, content, type, publish, likes, created_at`

// CreateCreation appends a new row to the creations ledger.
// Rows are append-only: nothing updates them after insert except the likes set.
func (r *Repository) CreateCreation(ctx context.Context, c *model.Creation) error {
	query := `
		INSERT INTO creations (id, user_id, prompt, content, type, publish, likes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	likes := c.Likes
	if likes == nil {
		likes = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.Prompt,
		c.Content,
		string(c.Type),
		c.Publish,
		pq.Array(likes),
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert creation: %w", err)
	}

	return nil
}

// GetCreationByID retrieves a single creation by its ID.
func (r *Repository) GetCreationByID(ctx context.Context, id string) (*model.Creation, error) {
	query := `SELECT ` + creationColumns + ` FROM creations WHERE id = $1`

	c, err := scanCreation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCreationNotFound
		}
		return nil, fmt.Errorf("failed to get creation by ID: %w", err)
	}

	return c, nil
}

// ListCreationsByOwner retrieves all of a user's creations, newest first.
func (r *Repository) ListCreationsByOwner(ctx context.Context, userID string) ([]*model.Creation, error) {
	query := `
		SELECT ` + creationColumns + `
		FROM creations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list creations: %w", err)
	}
	defer rows.Close()

	return collectCreations(rows)
}

// ListPublishedCreations retrieves all published creations, newest first.
func (r *Repository) ListPublishedCreations(ctx context.Context) ([]*model.Creation, error) {
	query := `
		SELECT ` + creationColumns + `
		FROM creations
		WHERE publish = TRUE
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list published creations: %w", err)
	}
	defer rows.Close()

	return collectCreations(rows)
}

// ToggleLike atomically flips userID's membership in a creation's likes set
// and reports the resulting membership.
//
// The CASE runs under the row lock, so concurrent toggles by different users
// serialize instead of overwriting each other's whole array. RETURNING
// evaluates against the updated row.
func (r *Repository) ToggleLike(ctx context.Context, creationID, userID string) (bool, error) {
	query := `
		UPDATE creations
		SET likes = CASE
			WHEN $2 = ANY(likes) THEN array_remove(likes, $2)
			ELSE array_append(likes, $2)
		END
		WHERE id = $1
		RETURNING $2 = ANY(likes)
	`

	var liked bool
	err := r.pool.QueryRow(ctx, query, creationID, userID).Scan(&liked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrCreationNotFound
		}
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}

	return liked, nil
}

// scanCreation scans a single row into a Creation model.
func scanCreation(row pgx.Row) (*model.Creation, error) {
	var c model.Creation
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Prompt,
		&c.Content,
		&c.Type,
		&c.Publish,
		&c.Likes,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.Likes == nil {
		c.Likes = []string{}
	}
	return &c, nil
}

// collectCreations drains rows into Creation models.
func collectCreations(rows pgx.Rows) ([]*model.Creation, error) {
	var creations []*model.Creation
	for rows.Next() {
		c, err := scanCreation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan creation: %w", err)
		}
		creations = append(creations, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating creations: %w", err)
	}

	return creations, nil
}
