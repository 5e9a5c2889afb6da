package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("not found")

// FormsRepository reads forms and their helpdesk feeds.
type FormsRepository interface {
	Get(ctx context.Context, id int64) (model.Form, error)
	ActiveFeeds(ctx context.Context, formID int64) ([]model.Feed, error)
}

type FormsRepositoryImpl struct {
	db *sqlx.DB
}

func NewFormsRepository(db *sqlx.DB) *FormsRepositoryImpl {
	return &FormsRepositoryImpl{db: db}
}

var _ FormsRepository = (*FormsRepositoryImpl)(nil)

func (r *FormsRepositoryImpl) Get(ctx context.Context, id int64) (model.Form, error) {
	var f model.Form
	err := r.db.GetContext(ctx, &f, `SELECT id, title, created_at FROM forms WHERE id = ? LIMIT 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Form{}, ErrNotFound
	}
	return f, err
}

// ActiveFeeds returns the form's active feeds in creation order.
func (r *FormsRepositoryImpl) ActiveFeeds(ctx context.Context, formID int64) ([]model.Feed, error) {
	var feeds []model.Feed
	err := r.db.SelectContext(ctx, &feeds, `
		SELECT id, form_id, is_active, meta
		  FROM feeds
		 WHERE form_id = ? AND is_active = 1
		 ORDER BY id
	`, formID)
	if err != nil {
		return nil, err
	}
	return feeds, nil
}
