package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/guildwatch/dbmigrate/internal/target"
)

// fakeTarget is an in-memory Target with the same uniqueness rules as the
// real schema.
type fakeTarget struct {
	nextID int64

	charIDs map[string]int64
	chars   map[int64]target.Character

	deaths  map[deathKey]int64
	killers map[int64][]fakeKiller

	levelUps map[int64][]time.Time

	prefixes   map[int64][]string
	properties map[propKey]json.RawMessage

	events       map[int64]target.Event
	subscribers  map[subKey]bool
	participants map[partKey]bool

	autoRoles     map[autoKey]bool
	joinableRoles map[joinKey]bool
}

type deathKey struct {
	characterID int64
	date        time.Time
}

type fakeKiller struct {
	name   *string
	player bool
}

type propKey struct {
	serverID int64
	key      string
}

type subKey struct {
	eventID int64
	userID  int64
}

type partKey struct {
	eventID     int64
	characterID int64
}

type autoKey struct {
	serverID int64
	roleID   int64
	rule     string
}

type joinKey struct {
	serverID int64
	roleID   int64
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		charIDs:       map[string]int64{},
		chars:         map[int64]target.Character{},
		deaths:        map[deathKey]int64{},
		killers:       map[int64][]fakeKiller{},
		levelUps:      map[int64][]time.Time{},
		prefixes:      map[int64][]string{},
		properties:    map[propKey]json.RawMessage{},
		events:        map[int64]target.Event{},
		subscribers:   map[subKey]bool{},
		participants:  map[partKey]bool{},
		autoRoles:     map[autoKey]bool{},
		joinableRoles: map[joinKey]bool{},
	}
}

var _ Target = (*fakeTarget)(nil)

func (f *fakeTarget) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeTarget) UpsertCharacter(_ context.Context, c target.Character) (int64, error) {
	if id, ok := f.charIDs[c.Name]; ok {
		return id, nil
	}
	id := f.id()
	f.charIDs[c.Name] = id
	f.chars[id] = c
	return id, nil
}

func (f *fakeTarget) DeathExists(_ context.Context, characterID int64, date time.Time) (bool, error) {
	_, ok := f.deaths[deathKey{characterID, date}]
	return ok, nil
}

func (f *fakeTarget) InsertDeath(_ context.Context, characterID int64, level int, date time.Time) (int64, error) {
	key := deathKey{characterID, date}
	if _, ok := f.deaths[key]; ok {
		return 0, fmt.Errorf("duplicate death for character %d at %s", characterID, date)
	}
	id := f.id()
	f.deaths[key] = id
	return id, nil
}

func (f *fakeTarget) InsertDeathKiller(_ context.Context, deathID int64, name *string, player bool) error {
	f.killers[deathID] = append(f.killers[deathID], fakeKiller{name: name, player: player})
	return nil
}

func (f *fakeTarget) LevelUpNearby(_ context.Context, characterID int64, date time.Time) (bool, error) {
	for _, existing := range f.levelUps[characterID] {
		diff := date.Sub(existing)
		if diff < 0 {
			diff = -diff
		}
		if diff <= 15*time.Second {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTarget) InsertLevelUp(_ context.Context, characterID int64, level int, date time.Time) error {
	f.levelUps[characterID] = append(f.levelUps[characterID], date)
	return nil
}

func (f *fakeTarget) InsertServerPrefixes(_ context.Context, serverID int64, prefixes []string) (bool, error) {
	if _, ok := f.prefixes[serverID]; ok {
		return false, nil
	}
	f.prefixes[serverID] = prefixes
	return true, nil
}

func (f *fakeTarget) InsertServerProperty(_ context.Context, serverID int64, key string, value json.RawMessage) (bool, error) {
	k := propKey{serverID, key}
	if _, ok := f.properties[k]; ok {
		return false, nil
	}
	f.properties[k] = value
	return true, nil
}

func (f *fakeTarget) InsertEvent(_ context.Context, e target.Event) (int64, error) {
	id := f.id()
	f.events[id] = e
	return id, nil
}

func (f *fakeTarget) InsertEventSubscriber(_ context.Context, eventID, userID int64) (bool, error) {
	k := subKey{eventID, userID}
	if f.subscribers[k] {
		return false, nil
	}
	f.subscribers[k] = true
	return true, nil
}

func (f *fakeTarget) CharacterIDByName(_ context.Context, name string) (int64, bool, error) {
	id, ok := f.charIDs[name]
	return id, ok, nil
}

func (f *fakeTarget) InsertEventParticipant(_ context.Context, eventID, characterID int64) (bool, error) {
	k := partKey{eventID, characterID}
	if f.participants[k] {
		return false, nil
	}
	f.participants[k] = true
	return true, nil
}

func (f *fakeTarget) InsertAutoRole(_ context.Context, serverID, roleID int64, rule string) (bool, error) {
	k := autoKey{serverID, roleID, rule}
	if f.autoRoles[k] {
		return false, nil
	}
	f.autoRoles[k] = true
	return true, nil
}

func (f *fakeTarget) InsertJoinableRole(_ context.Context, serverID, roleID int64) (bool, error) {
	k := joinKey{serverID, roleID}
	if f.joinableRoles[k] {
		return false, nil
	}
	f.joinableRoles[k] = true
	return true, nil
}

func (f *fakeTarget) levelUpCount() int {
	n := 0
	for _, dates := range f.levelUps {
		n += len(dates)
	}
	return n
}
