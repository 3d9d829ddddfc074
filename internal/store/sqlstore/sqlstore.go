// Package sqlstore persists the relay state in two SQL tables. It is shared by
// the postgres and sqlite backends, which only differ in driver and
// placeholder style.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/erkineren/repository-relay/internal/models"
	"github.com/erkineren/repository-relay/internal/store"
)

var _ store.Backend = (*Store)(nil)

type Dialect int

const (
	Question Dialect = iota // ?
	Dollar                  // $1, $2, ...
)

type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New creates the schema if needed and returns a backend owning db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if err := s.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) initDatabase(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS watched_repos (
			position INTEGER NOT NULL,
			repo TEXT PRIMARY KEY,
			last_commit TEXT,
			last_tag TEXT,
			last_release BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS notify_channels (
			position INTEGER NOT NULL,
			platform TEXT NOT NULL DEFAULT '',
			guild_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			PRIMARY KEY (platform, guild_id)
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", query, err)
		}
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*models.State, error) {
	state := models.NewState()

	rows, err := s.db.QueryContext(ctx,
		`SELECT repo, last_commit, last_tag, last_release FROM watched_repos ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query repos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry   models.RepoEntry
			commit  sql.NullString
			tag     sql.NullString
			release sql.NullInt64
		)
		if err := rows.Scan(&entry.Repo, &commit, &tag, &release); err != nil {
			return nil, fmt.Errorf("failed to scan repo: %w", err)
		}
		if commit.Valid {
			entry.LastCommit = models.StringPtr(commit.String)
		}
		if tag.Valid {
			entry.LastTag = models.StringPtr(tag.String)
		}
		if release.Valid {
			entry.LastRelease = models.Int64Ptr(release.Int64)
		}
		state.Repos = append(state.Repos, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate repos: %w", err)
	}

	chRows, err := s.db.QueryContext(ctx,
		`SELECT platform, guild_id, channel_id FROM notify_channels ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer chRows.Close()

	for chRows.Next() {
		var entry models.ChannelEntry
		if err := chRows.Scan(&entry.Platform, &entry.GuildID, &entry.ChannelID); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		state.Channels = append(state.Channels, entry)
	}
	if err := chRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate channels: %w", err)
	}

	return state, nil
}

// Save replaces both tables inside one transaction.
func (s *Store) Save(ctx context.Context, state *models.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM watched_repos`); err != nil {
		return fmt.Errorf("failed to clear repos: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notify_channels`); err != nil {
		return fmt.Errorf("failed to clear channels: %w", err)
	}

	insertRepo := s.rebind(`INSERT INTO watched_repos (position, repo, last_commit, last_tag, last_release) VALUES (?, ?, ?, ?, ?)`)
	for i, r := range state.Repos {
		if _, err := tx.ExecContext(ctx, insertRepo, i, r.Repo, nullString(r.LastCommit), nullString(r.LastTag), nullInt64(r.LastRelease)); err != nil {
			return fmt.Errorf("failed to insert repo %s: %w", r.Repo, err)
		}
	}

	insertChannel := s.rebind(`INSERT INTO notify_channels (position, platform, guild_id, channel_id) VALUES (?, ?, ?, ?)`)
	for i, c := range state.Channels {
		if _, err := tx.ExecContext(ctx, insertChannel, i, c.Platform, c.GuildID, c.ChannelID); err != nil {
			return fmt.Errorf("failed to insert channel for guild %s: %w", c.GuildID, err)
		}
	}

	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) rebind(query string) string {
	if s.dialect == Question {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
