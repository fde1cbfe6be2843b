package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

type memClassRepo struct{ db *memDB }

func (r memClassRepo) FindByID(ctx context.Context, id int64) (*models.Class, error) {
	class, ok := r.db.classes[id]
	if !ok {
		return nil, nil
	}
	return &class, nil
}

func (r memClassRepo) Create(ctx context.Context, exec sqlx.ExtContext, class *models.Class) (int64, error) {
	for _, existing := range r.db.classes {
		if existing.Title == class.Title {
			return 0, appErrors.UniqueConstraint("class", "title", class.Title)
		}
	}
	return memClasses(r).CreateIfNotExists(ctx, exec, class)
}

func (r memClassRepo) UpdateTitle(ctx context.Context, id int64, title string) (*models.Class, error) {
	class, ok := r.db.classes[id]
	if !ok {
		return nil, appErrors.NotFound("class", "id", id)
	}
	class.Title = title
	r.db.classes[id] = class
	return &class, nil
}

func (r memClassRepo) Delete(ctx context.Context, id int64) (*models.Class, error) {
	class, ok := r.db.classes[id]
	if !ok {
		return nil, appErrors.NotFound("class", "id", id)
	}
	delete(r.db.classes, id)
	return &class, nil
}

func TestClassServiceLifecycle(t *testing.T) {
	db := newMemDB()
	cache := newRecordingCache()
	svc := NewClassService(memClassRepo{db}, cache, nil, nil)
	ctx := context.Background()

	class, err := svc.Create(ctx, ClassRequest{Title: " P1 "})
	require.NoError(t, err)
	assert.Equal(t, "P1", class.Title)

	_, err = svc.Create(ctx, ClassRequest{Title: "P1"})
	assert.True(t, appErrors.IsKind(err, appErrors.KindUniqueConstraint))

	_, err = svc.Retitle(ctx, class.ID, ClassRequest{Title: "P1"})
	assert.True(t, appErrors.IsKind(err, appErrors.KindIdenticalObject))

	renamed, err := svc.Retitle(ctx, class.ID, ClassRequest{Title: "P2"})
	require.NoError(t, err)
	assert.Equal(t, "P2", renamed.Title)

	_, err = svc.Delete(ctx, class.ID)
	require.NoError(t, err)
	assert.Len(t, cache.invalidated, 1)

	_, err = svc.Get(ctx, class.ID)
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
}

func TestClassServiceRejectsBlankTitle(t *testing.T) {
	svc := NewClassService(memClassRepo{newMemDB()}, nil, nil, nil)

	_, err := svc.Create(context.Background(), ClassRequest{Title: "   "})
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}
