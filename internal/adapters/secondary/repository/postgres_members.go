package repository

import (
	"context"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

// Soft-deleted members are filtered here, so callers see them as missing.
const getProfilesQuery = `
	SELECT id, display_name, COALESCE(avatar_ref, '')
	FROM members
	WHERE id = ANY($1) AND deleted_at IS NULL
`

type PostgresMemberRepo struct {
	db DB
}

func NewPostgresMemberRepo(db DB) *PostgresMemberRepo {
	return &PostgresMemberRepo{db: db}
}

// GetProfiles : BATCH FETCH, one statement whatever the number of ids
func (r *PostgresMemberRepo) GetProfiles(ctx context.Context, ids []string) ([]domain.AuthorProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, getProfilesQuery, ids)
	if err != nil {
		return nil, storeErr("get profiles", err)
	}
	defer rows.Close()

	profiles := make([]domain.AuthorProfile, 0, len(ids))
	for rows.Next() {
		var p domain.AuthorProfile
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.AvatarRef); err != nil {
			return nil, storeErr("scan profile", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("get profiles", err)
	}
	return profiles, nil
}
