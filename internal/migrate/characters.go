package migrate

import (
	"context"
	"sort"
	"time"

	"github.com/guildwatch/dbmigrate/internal/target"
)

// pendingDeath is a legacy death already attributed to its new character id.
type pendingDeath struct {
	characterID int64
	level       int
	date        int64
	killer      *string
	byPlayer    bool
}

type pendingLevelUp struct {
	characterID int64
	level       int
	date        int64
}

// importCharacters upserts every legacy character by name, then inserts
// their deaths and level-ups in global timestamp order. The global order
// matters: each insert's duplicate check runs against the target's current
// state, so earlier rows in the same pass are seen by later checks.
func (r *Runner) importCharacters(ctx context.Context, rep *Report) error {
	chars, err := r.src.Characters()
	if err != nil {
		return err
	}

	var deaths []pendingDeath
	var levelUps []pendingLevelUp
	for _, c := range chars {
		id, err := r.dst.UpsertCharacter(ctx, target.Character{
			UserID:   c.UserID,
			Name:     c.Name,
			Level:    c.Level,
			Vocation: c.Vocation,
			World:    c.World,
			Guild:    c.Guild,
		})
		if err != nil {
			return err
		}
		rep.Characters++

		lus, err := r.src.LevelUps(c.ID)
		if err != nil {
			return err
		}
		for _, lu := range lus {
			levelUps = append(levelUps, pendingLevelUp{characterID: id, level: lu.Level, date: lu.Date})
		}

		ds, err := r.src.Deaths(c.ID)
		if err != nil {
			return err
		}
		for _, d := range ds {
			deaths = append(deaths, pendingDeath{
				characterID: id,
				level:       d.Level,
				date:        d.Date,
				killer:      d.Killer,
				byPlayer:    d.ByPlayer,
			})
		}
	}

	sort.SliceStable(deaths, func(i, j int) bool { return deaths[i].date < deaths[j].date })
	for _, d := range deaths {
		date := time.Unix(d.date, 0).UTC()
		exists, err := r.dst.DeathExists(ctx, d.characterID, date)
		if err != nil {
			return err
		}
		if exists {
			// Another death at the exact same timestamp for the same character.
			rep.SkippedDeaths++
			continue
		}
		deathID, err := r.dst.InsertDeath(ctx, d.characterID, d.level, date)
		if err != nil {
			return err
		}
		if err := r.dst.InsertDeathKiller(ctx, deathID, d.killer, d.byPlayer); err != nil {
			return err
		}
		rep.Deaths++
	}

	sort.SliceStable(levelUps, func(i, j int) bool { return levelUps[i].date < levelUps[j].date })
	for _, lu := range levelUps {
		date := time.Unix(lu.date, 0).UTC()
		nearby, err := r.dst.LevelUpNearby(ctx, lu.characterID, date)
		if err != nil {
			return err
		}
		if nearby {
			// Another level up within a 15 second margin.
			rep.SkippedLevelUps++
			continue
		}
		if err := r.dst.InsertLevelUp(ctx, lu.characterID, lu.level, date); err != nil {
			return err
		}
		rep.LevelUps++
	}

	return nil
}
