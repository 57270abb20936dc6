package sqlite

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hrygo/skillswap/store"
)

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if len(find.IDs) > 0 {
		marks := make([]string, len(find.IDs))
		for i, id := range find.IDs {
			marks[i] = "?"
			args = append(args, id)
		}
		where = append(where, "id IN ("+strings.Join(marks, ", ")+")")
	}
	if find.OnlyActive {
		where = append(where, "is_active = 1")
	}
	if find.ExcludeID != "" {
		where, args = append(where, "id != ?"), append(args, find.ExcludeID)
	}

	query := `SELECT id, username, skills_offered, skills_needed, is_active, created_ts, updated_ts
		FROM user
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	list := []*store.User{}
	for rows.Next() {
		var user store.User
		var offered, needed string
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&offered,
			&needed,
			&user.IsActive,
			&user.CreatedTs,
			&user.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		if err := json.Unmarshal([]byte(offered), &user.SkillsOffered); err != nil {
			return nil, errors.Wrapf(err, "failed to decode offered skills of %s", user.ID)
		}
		if err := json.Unmarshal([]byte(needed), &user.SkillsNeeded); err != nil {
			return nil, errors.Wrapf(err, "failed to decode needed skills of %s", user.ID)
		}
		list = append(list, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) UpsertUser(ctx context.Context, user *store.User) (*store.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().Unix()
	if user.CreatedTs == 0 {
		user.CreatedTs = now
	}
	user.UpdatedTs = now

	offered, err := json.Marshal(user.SkillsOffered)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode offered skills")
	}
	needed, err := json.Marshal(user.SkillsNeeded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode needed skills")
	}

	stmt := `INSERT INTO user (id, username, skills_offered, skills_needed, is_active, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			skills_offered = excluded.skills_offered,
			skills_needed = excluded.skills_needed,
			is_active = excluded.is_active,
			updated_ts = excluded.updated_ts
		RETURNING created_ts, updated_ts`

	err = d.db.QueryRowContext(ctx, stmt,
		user.ID,
		user.Username,
		string(offered),
		string(needed),
		user.IsActive,
		user.CreatedTs,
		user.UpdatedTs,
	).Scan(&user.CreatedTs, &user.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert user")
	}

	return user, nil
}
