package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hrygo/skillswap/store"
)

const matchFields = `id, seeker_id, helper_id, skill_offered, skill_needed, match_score, confidence, explanation, is_reciprocal, metadata, status, created_ts, updated_ts`

func (d *DB) CreateMatch(ctx context.Context, create *store.Match) (*store.Match, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	create.UpdatedTs = now

	metadata, err := json.Marshal(create.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode match metadata")
	}
	if create.Metadata == nil {
		metadata = []byte("{}")
	}

	stmt := `INSERT INTO skill_match (` + matchFields + `)
		VALUES (` + placeholders(13) + `)`

	_, err = d.db.ExecContext(ctx, stmt,
		create.ID,
		create.SeekerID,
		create.HelperID,
		create.SkillOffered,
		create.SkillNeeded,
		create.MatchScore,
		create.Confidence,
		create.Explanation,
		create.IsReciprocal,
		metadata,
		create.Status,
		create.CreatedTs,
		create.UpdatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create match")
	}

	return create, nil
}

func (d *DB) ListMatches(ctx context.Context, find *store.FindMatch) ([]*store.Match, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.SeekerID != nil {
		where, args = append(where, "seeker_id = "+placeholder(len(args)+1)), append(args, *find.SeekerID)
	}
	if find.HelperID != nil {
		where, args = append(where, "helper_id = "+placeholder(len(args)+1)), append(args, *find.HelperID)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *find.Status)
	}

	query := `SELECT ` + matchFields + `
		FROM skill_match
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY match_score DESC, created_ts DESC`
	if find.Limit > 0 {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list matches")
	}
	defer rows.Close()

	list := []*store.Match{}
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) GetExistingMatch(ctx context.Context, seekerID, helperID string) (*store.Match, error) {
	query := `SELECT ` + matchFields + `
		FROM skill_match
		WHERE seeker_id = $1 AND helper_id = $2 AND status != $3
		ORDER BY created_ts DESC
		LIMIT 1`

	row := d.db.QueryRowContext(ctx, query, seekerID, helperID, store.MatchStatusRejected)
	match, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (d *DB) UpdateMatchStatus(ctx context.Context, matchID string, status store.MatchStatus) (*store.Match, error) {
	stmt := `UPDATE skill_match SET status = $1, updated_ts = $2 WHERE id = $3
		RETURNING ` + matchFields

	row := d.db.QueryRowContext(ctx, stmt, status, time.Now().Unix(), matchID)
	match, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update match status")
	}
	return match, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*store.Match, error) {
	var match store.Match
	var metadata []byte
	if err := row.Scan(
		&match.ID,
		&match.SeekerID,
		&match.HelperID,
		&match.SkillOffered,
		&match.SkillNeeded,
		&match.MatchScore,
		&match.Confidence,
		&match.Explanation,
		&match.IsReciprocal,
		&metadata,
		&match.Status,
		&match.CreatedTs,
		&match.UpdatedTs,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, errors.Wrap(err, "failed to scan match")
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &match.Metadata); err != nil {
			return nil, errors.Wrapf(err, "failed to decode metadata of match %s", match.ID)
		}
	}
	return &match, nil
}
