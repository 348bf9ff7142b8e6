// Package legacy provides read-only access to the old bot's embedded
// sqlite database during the one-shot import.
package legacy

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "modernc.org/sqlite"
)

// DB is a read-only handle to the legacy sqlite database.
type DB struct {
	conn *sql.DB
}

// Character is a character row as stored by the old bot.
type Character struct {
	ID       int64
	UserID   int64
	Name     string
	Level    int
	Vocation *string
	World    *string
	Guild    *string
}

// Death is a death entry for one character. Date is unix epoch seconds.
type Death struct {
	Level    int
	Date     int64
	Killer   *string
	ByPlayer bool
}

// LevelUp is a level-up entry for one character. Date is unix epoch seconds.
type LevelUp struct {
	Level int
	Date  int64
}

// ServerProperty is a per-server setting. Value keeps the loose sqlite
// typing (int64, float64, string or nil); interpretation is per key.
type ServerProperty struct {
	ServerID int64
	Key      string
	Value    any
}

// Event is an event row as stored by the old bot. Start is unix epoch
// seconds; Status uses the legacy encoding where smaller means more
// advanced.
type Event struct {
	ID          int64
	Creator     int64
	Name        string
	Start       int64
	Active      bool
	Status      int
	Description *string
	ServerID    int64
	Joinable    bool
	Slots       int
}

// AutoRole is an automatic role assignment rule. The rule is stored in the
// legacy "guild" column.
type AutoRole struct {
	ServerID int64
	RoleID   int64
	Rule     string
}

// JoinableRole is a self-assignable role.
type JoinableRole struct {
	ServerID int64
	RoleID   int64
}

// Open opens the legacy database read-only. The file must already exist.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("legacy database: %w", err)
	}

	conn, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open legacy database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping legacy database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close releases the legacy database handle.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Characters returns all characters ordered by legacy id ascending.
func (d *DB) Characters() ([]Character, error) {
	rows, err := d.conn.Query(
		`SELECT id, user_id, name, level, vocation, world, guild FROM chars ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query chars: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var chars []Character
	for rows.Next() {
		var c Character
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Level, &c.Vocation, &c.World, &c.Guild); err != nil {
			return nil, fmt.Errorf("scan char: %w", err)
		}
		chars = append(chars, c)
	}
	return chars, rows.Err()
}

// Deaths returns the death entries for one character, in storage order.
func (d *DB) Deaths(charID int64) ([]Death, error) {
	rows, err := d.conn.Query(
		`SELECT level, date, killer, byplayer FROM char_deaths WHERE char_id = ?`, charID,
	)
	if err != nil {
		return nil, fmt.Errorf("query char_deaths: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var deaths []Death
	for rows.Next() {
		var de Death
		var byPlayer int64
		if err := rows.Scan(&de.Level, &de.Date, &de.Killer, &byPlayer); err != nil {
			return nil, fmt.Errorf("scan death: %w", err)
		}
		de.ByPlayer = byPlayer == 1
		deaths = append(deaths, de)
	}
	return deaths, rows.Err()
}

// LevelUps returns the level-up entries for one character ordered by date.
func (d *DB) LevelUps(charID int64) ([]LevelUp, error) {
	rows, err := d.conn.Query(
		`SELECT level, date FROM char_levelups WHERE char_id = ? ORDER BY date ASC`, charID,
	)
	if err != nil {
		return nil, fmt.Errorf("query char_levelups: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var levelUps []LevelUp
	for rows.Next() {
		var lu LevelUp
		if err := rows.Scan(&lu.Level, &lu.Date); err != nil {
			return nil, fmt.Errorf("scan level up: %w", err)
		}
		levelUps = append(levelUps, lu)
	}
	return levelUps, rows.Err()
}

// ServerProperties returns all per-server settings in storage order. The
// server id column held both integers and strings over the bot's lifetime,
// so it is coerced here.
func (d *DB) ServerProperties() ([]ServerProperty, error) {
	rows, err := d.conn.Query(`SELECT server_id, name, value FROM server_properties`)
	if err != nil {
		return nil, fmt.Errorf("query server_properties: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var props []ServerProperty
	for rows.Next() {
		var p ServerProperty
		var server any
		if err := rows.Scan(&server, &p.Key, &p.Value); err != nil {
			return nil, fmt.Errorf("scan server property: %w", err)
		}
		id, err := toInt64(server)
		if err != nil {
			return nil, fmt.Errorf("server property %q: %w", p.Key, err)
		}
		p.ServerID = id
		props = append(props, p)
	}
	return props, rows.Err()
}

// Events returns all events in storage order.
func (d *DB) Events() ([]Event, error) {
	rows, err := d.conn.Query(
		`SELECT id, creator, name, start, active, status, description, server, joinable, slots FROM events`,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var events []Event
	for rows.Next() {
		var e Event
		var active, joinable int64
		if err := rows.Scan(&e.ID, &e.Creator, &e.Name, &e.Start, &active, &e.Status,
			&e.Description, &e.ServerID, &joinable, &e.Slots); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Active = active != 0
		e.Joinable = joinable != 0
		events = append(events, e)
	}
	return events, rows.Err()
}

// Subscribers returns the user ids subscribed to one event.
func (d *DB) Subscribers(eventID int64) ([]int64, error) {
	rows, err := d.conn.Query(`SELECT user_id FROM event_subscribers WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query event_subscribers: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// ParticipantNames returns the character names participating in one event.
// Participants whose character row no longer exists come back as an empty
// name, which the importer later fails to resolve and drops.
func (d *DB) ParticipantNames(eventID int64) ([]string, error) {
	rows, err := d.conn.Query(
		`SELECT name FROM event_participants LEFT JOIN chars ON id = char_id WHERE event_id = ?`, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("query event_participants: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var names []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		names = append(names, name.String)
	}
	return names, rows.Err()
}

// AutoRoles returns all automatic role rules in storage order.
func (d *DB) AutoRoles() ([]AutoRole, error) {
	rows, err := d.conn.Query(`SELECT server_id, role_id, guild FROM auto_roles`)
	if err != nil {
		return nil, fmt.Errorf("query auto_roles: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var roles []AutoRole
	for rows.Next() {
		var r AutoRole
		if err := rows.Scan(&r.ServerID, &r.RoleID, &r.Rule); err != nil {
			return nil, fmt.Errorf("scan auto role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// JoinableRoles returns all joinable roles in storage order.
func (d *DB) JoinableRoles() ([]JoinableRole, error) {
	rows, err := d.conn.Query(`SELECT server_id, role_id FROM joinable_roles`)
	if err != nil {
		return nil, fmt.Errorf("query joinable_roles: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var roles []JoinableRole
	for rows.Next() {
		var r JoinableRole
		if err := rows.Scan(&r.ServerID, &r.RoleID); err != nil {
			return nil, fmt.Errorf("scan joinable role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func toInt64(v any) (int64, error) {
	switch id := v.(type) {
	case int64:
		return id, nil
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("server id %q: %w", id, err)
		}
		return n, nil
	case []byte:
		n, err := strconv.ParseInt(string(id), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("server id %q: %w", id, err)
		}
		return n, nil
	case float64:
		return int64(id), nil
	default:
		return 0, fmt.Errorf("server id has unsupported type %T", v)
	}
}
