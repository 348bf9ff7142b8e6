// Package migrate imports the old bot's embedded database into the new
// relational schema. The import is a single forward pass; every write is
// either conflict-skipped or preceded by an existence check, so re-running
// it against an already-migrated target adds nothing.
package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/guildwatch/dbmigrate/internal/legacy"
	"github.com/guildwatch/dbmigrate/internal/target"
)

// Target is the write surface of the new database needed by the import.
type Target interface {
	UpsertCharacter(ctx context.Context, c target.Character) (int64, error)
	DeathExists(ctx context.Context, characterID int64, date time.Time) (bool, error)
	InsertDeath(ctx context.Context, characterID int64, level int, date time.Time) (int64, error)
	InsertDeathKiller(ctx context.Context, deathID int64, name *string, player bool) error
	LevelUpNearby(ctx context.Context, characterID int64, date time.Time) (bool, error)
	InsertLevelUp(ctx context.Context, characterID int64, level int, date time.Time) error
	InsertServerPrefixes(ctx context.Context, serverID int64, prefixes []string) (bool, error)
	InsertServerProperty(ctx context.Context, serverID int64, key string, value json.RawMessage) (bool, error)
	InsertEvent(ctx context.Context, e target.Event) (int64, error)
	InsertEventSubscriber(ctx context.Context, eventID, userID int64) (bool, error)
	CharacterIDByName(ctx context.Context, name string) (int64, bool, error)
	InsertEventParticipant(ctx context.Context, eventID, characterID int64) (bool, error)
	InsertAutoRole(ctx context.Context, serverID, roleID int64, rule string) (bool, error)
	InsertJoinableRole(ctx context.Context, serverID, roleID int64) (bool, error)
}

var _ Target = (*target.Store)(nil)

// Report collects per-family counts for the operator. Skipped entries are
// duplicates of rows the target already holds; dropped participants
// referenced a character name that could not be resolved.
type Report struct {
	Characters int

	Deaths        int
	SkippedDeaths int

	LevelUps        int
	SkippedLevelUps int

	Properties        int
	SkippedProperties int
	Prefixes          int
	SkippedPrefixes   int

	Events              int
	Subscribers         int
	SkippedSubscribers  int
	Participants        int
	SkippedParticipants int
	DroppedParticipants int

	AutoRoles            int
	SkippedAutoRoles     int
	JoinableRoles        int
	SkippedJoinableRoles int
}

// Runner performs the one-shot import from the legacy store to the target.
type Runner struct {
	src *legacy.DB
	dst Target
}

// New returns a Runner reading from src and writing through dst.
func New(src *legacy.DB, dst Target) *Runner {
	return &Runner{src: src, dst: dst}
}

// Run migrates every entity family in dependency order: characters first so
// event participants can resolve against them; properties and roles are
// independent; events last. Returns the report even on failure so completed
// counts are visible.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{}

	if err := r.importCharacters(ctx, rep); err != nil {
		return rep, fmt.Errorf("import characters: %w", err)
	}
	if err := r.importProperties(ctx, rep); err != nil {
		return rep, fmt.Errorf("import server properties: %w", err)
	}
	if err := r.importRoles(ctx, rep); err != nil {
		return rep, fmt.Errorf("import roles: %w", err)
	}
	if err := r.importEvents(ctx, rep); err != nil {
		return rep, fmt.Errorf("import events: %w", err)
	}

	return rep, nil
}
