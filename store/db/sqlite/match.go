package sqlite

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

	stmt := `INSERT INTO skill_match (` + matchFields + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

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
		string(metadata),
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
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.SeekerID != nil {
		where, args = append(where, "seeker_id = ?"), append(args, *find.SeekerID)
	}
	if find.HelperID != nil {
		where, args = append(where, "helper_id = ?"), append(args, *find.HelperID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, *find.Status)
	}

	query := `SELECT ` + matchFields + `
		FROM skill_match
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY match_score DESC, created_ts DESC`
	if find.Limit > 0 {
		query += " LIMIT ?"
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
		WHERE seeker_id = ? AND helper_id = ? AND status != ?
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
	stmt := `UPDATE skill_match SET status = ?, updated_ts = ? WHERE id = ?`
	result, err := d.db.ExecContext(ctx, stmt, status, time.Now().Unix(), matchID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update match status")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return nil, nil
	}

	list, err := d.ListMatches(ctx, &store.FindMatch{ID: &matchID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*store.Match, error) {
	var match store.Match
	var metadata string
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
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &match.Metadata); err != nil {
			return nil, errors.Wrapf(err, "failed to decode metadata of match %s", match.ID)
		}
	}
	return &match, nil
}
