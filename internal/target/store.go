// Package target writes to the bot's new relational database.
package target

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/guildwatch/dbmigrate/internal/config"
)

// Store wraps the pooled connection to the target database.
type Store struct {
	db *sql.DB
}

// Character is a character row to insert.
type Character struct {
	UserID   int64
	Name     string
	Level    int
	Vocation *string
	World    *string
	Guild    *string
}

// Event is an event row to insert. Reminder uses the new encoding where
// larger means more reminders pending.
type Event struct {
	UserID      int64
	ServerID    int64
	Name        string
	Description *string
	Start       time.Time
	Active      bool
	Reminder    int
	Joinable    bool
	Slots       int
}

// Open connects to the target database and tunes the pool.
func Open(cfg config.Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open target database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping target database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying pool for schema management.
func (s *Store) DB() *sql.DB {
	return s.db
}

// UpsertCharacter inserts a character and returns its id. If the name is
// already taken, the existing row's id is returned and none of its fields
// are touched; the no-op name re-assignment only exists so RETURNING fires
// on conflict.
func (s *Store) UpsertCharacter(ctx context.Context, c Character) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO "character" (user_id, name, level, vocation, world, guild)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		c.UserID, c.Name, c.Level, c.Vocation, c.World, c.Guild,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert character %q: %w", c.Name, err)
	}
	return id, nil
}

// DeathExists reports whether a death for the character at the exact
// timestamp is already recorded.
func (s *Store) DeathExists(ctx context.Context, characterID int64, date time.Time) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM character_death WHERE date = $1 AND character_id = $2`,
		date, characterID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check death: %w", err)
	}
	return true, nil
}

// InsertDeath records a death and returns its id.
func (s *Store) InsertDeath(ctx context.Context, characterID int64, level int, date time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO character_death (character_id, level, date) VALUES ($1, $2, $3) RETURNING id`,
		characterID, level, date,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert death: %w", err)
	}
	return id, nil
}

// InsertDeathKiller records a killer for a death at the default position.
func (s *Store) InsertDeathKiller(ctx context.Context, deathID int64, name *string, player bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO character_death_killer (death_id, name, player) VALUES ($1, $2, $3)`,
		deathID, name, player,
	)
	if err != nil {
		return fmt.Errorf("insert death killer: %w", err)
	}
	return nil
}

// LevelUpNearby reports whether the character already has a level-up within
// 15 seconds of the given timestamp, in either direction.
func (s *Store) LevelUpNearby(ctx context.Context, characterID int64, date time.Time) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM character_levelup
		 WHERE character_id = $1 AND GREATEST($2 - date, date - $2) <= interval '15' second`,
		characterID, date,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check level up: %w", err)
	}
	return true, nil
}

// InsertLevelUp records a level-up.
func (s *Store) InsertLevelUp(ctx context.Context, characterID int64, level int, date time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO character_levelup (character_id, level, date) VALUES ($1, $2, $3)`,
		characterID, level, date,
	)
	if err != nil {
		return fmt.Errorf("insert level up: %w", err)
	}
	return nil
}

// InsertServerPrefixes stores a server's command prefixes. Returns false if
// the server already has prefixes configured.
func (s *Store) InsertServerPrefixes(ctx context.Context, serverID int64, prefixes []string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO server_prefixes (server_id, prefixes) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		serverID, pq.Array(prefixes),
	)
	if err != nil {
		return false, fmt.Errorf("insert server prefixes: %w", err)
	}
	return inserted(res)
}

// InsertServerProperty stores a JSON-encoded server setting. Returns false
// if the (server, key) pair already exists.
func (s *Store) InsertServerProperty(ctx context.Context, serverID int64, key string, value json.RawMessage) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO server_property (server_id, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (server_id, key) DO NOTHING`,
		serverID, key, string(value),
	)
	if err != nil {
		return false, fmt.Errorf("insert server property %q: %w", key, err)
	}
	return inserted(res)
}

// InsertEvent records an event and returns its id.
func (s *Store) InsertEvent(ctx context.Context, e Event) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO event (user_id, name, start, active, description, server_id, joinable, slots, reminder)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		e.UserID, e.Name, e.Start, e.Active, e.Description, e.ServerID, e.Joinable, e.Slots, e.Reminder,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event %q: %w", e.Name, err)
	}
	return id, nil
}

// InsertEventSubscriber subscribes a user to an event. Returns false if the
// subscription already exists.
func (s *Store) InsertEventSubscriber(ctx context.Context, eventID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO event_subscriber (event_id, user_id) VALUES ($1, $2)
		 ON CONFLICT (event_id, user_id) DO NOTHING`,
		eventID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("insert event subscriber: %w", err)
	}
	return inserted(res)
}

// CharacterIDByName looks up a character id by its unique name. The second
// return value is false when no such character exists.
func (s *Store) CharacterIDByName(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM "character" WHERE name = $1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("look up character %q: %w", name, err)
	}
	return id, true, nil
}

// InsertEventParticipant adds a character to an event. Returns false if the
// participation already exists.
func (s *Store) InsertEventParticipant(ctx context.Context, eventID, characterID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO event_participant (event_id, character_id) VALUES ($1, $2)
		 ON CONFLICT (event_id, character_id) DO NOTHING`,
		eventID, characterID,
	)
	if err != nil {
		return false, fmt.Errorf("insert event participant: %w", err)
	}
	return inserted(res)
}

// InsertAutoRole stores an automatic role rule. Returns false if the rule
// already exists.
func (s *Store) InsertAutoRole(ctx context.Context, serverID, roleID int64, rule string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO role_auto (server_id, role_id, rule) VALUES ($1, $2, $3)
		 ON CONFLICT (server_id, role_id, rule) DO NOTHING`,
		serverID, roleID, rule,
	)
	if err != nil {
		return false, fmt.Errorf("insert auto role: %w", err)
	}
	return inserted(res)
}

// InsertJoinableRole stores a joinable role. Returns false if the role is
// already registered.
func (s *Store) InsertJoinableRole(ctx context.Context, serverID, roleID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO role_joinable (server_id, role_id) VALUES ($1, $2)
		 ON CONFLICT (server_id, role_id) DO NOTHING`,
		serverID, roleID,
	)
	if err != nil {
		return false, fmt.Errorf("insert joinable role: %w", err)
	}
	return inserted(res)
}

func inserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
