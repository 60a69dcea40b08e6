package repository

import (
	"context"

	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/domain"
)

// One grouped pass over post_likes. The viewer flag is the MAX of a 0/1
// projection, so it costs nothing more than the count. A NULL viewer never matches.
const likeStatsQuery = `
	SELECT post_id,
	       COUNT(*),
	       MAX(CASE WHEN member_id = $2 THEN 1 ELSE 0 END) = 1
	FROM post_likes
	WHERE post_id = ANY($1)
	GROUP BY post_id
`

type PostgresLikeRepo struct {
	db DB
}

func NewPostgresLikeRepo(db DB) *PostgresLikeRepo {
	return &PostgresLikeRepo{db: db}
}

func (r *PostgresLikeRepo) GetStats(ctx context.Context, postIDs []string, viewerID string) (map[string]domain.InteractionStats, error) {
	stats := make(map[string]domain.InteractionStats, len(postIDs))
	if len(postIDs) == 0 {
		return stats, nil
	}

	rows, err := r.db.Query(ctx, likeStatsQuery, postIDs, viewerArg(viewerID))
	if err != nil {
		return nil, storeErr("like stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st domain.InteractionStats
		if err := rows.Scan(&st.PostID, &st.Count, &st.ViewerHasInteracted); err != nil {
			return nil, storeErr("scan like stats", err)
		}
		stats[st.PostID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("like stats", err)
	}
	return stats, nil
}

func (r *PostgresLikeRepo) GetStat(ctx context.Context, postID, viewerID string) (domain.InteractionStats, error) {
	stats, err := r.GetStats(ctx, []string{postID}, viewerID)
	if err != nil {
		return domain.InteractionStats{}, err
	}
	if st, ok := stats[postID]; ok {
		return st, nil
	}
	return domain.InteractionStats{PostID: postID}, nil
}

// Anonymous viewers are bound as NULL rather than an empty uuid.
func viewerArg(viewerID string) any {
	if viewerID == "" {
		return nil
	}
	return viewerID
}
