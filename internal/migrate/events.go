package migrate

import (
	"context"
	"time"

	"github.com/guildwatch/dbmigrate/internal/target"
)

type pendingSubscriber struct {
	eventID int64
	userID  int64
}

type pendingParticipant struct {
	eventID int64
	name    string
}

// importEvents inserts every legacy event unconditionally (legacy event ids
// never collide with pre-existing target events), then attaches subscribers
// and participants under the new event ids. Participants are stored by
// character name in the legacy schema; names that do not resolve against the
// already-migrated character table are dropped.
func (r *Runner) importEvents(ctx context.Context, rep *Report) error {
	events, err := r.src.Events()
	if err != nil {
		return err
	}

	var subscribers []pendingSubscriber
	var participants []pendingParticipant
	for _, ev := range events {
		id, err := r.dst.InsertEvent(ctx, target.Event{
			UserID:      ev.Creator,
			ServerID:    ev.ServerID,
			Name:        ev.Name,
			Description: ev.Description,
			Start:       time.Unix(ev.Start, 0).UTC(),
			Active:      ev.Active,
			Joinable:    ev.Joinable,
			Slots:       ev.Slots,
			// The legacy status counted down as reminders were sent; the new
			// column counts reminders still pending.
			Reminder: 4 - ev.Status,
		})
		if err != nil {
			return err
		}
		rep.Events++

		subs, err := r.src.Subscribers(ev.ID)
		if err != nil {
			return err
		}
		for _, userID := range subs {
			subscribers = append(subscribers, pendingSubscriber{eventID: id, userID: userID})
		}

		names, err := r.src.ParticipantNames(ev.ID)
		if err != nil {
			return err
		}
		for _, name := range names {
			participants = append(participants, pendingParticipant{eventID: id, name: name})
		}
	}

	for _, s := range subscribers {
		ok, err := r.dst.InsertEventSubscriber(ctx, s.eventID, s.userID)
		if err != nil {
			return err
		}
		if ok {
			rep.Subscribers++
		} else {
			rep.SkippedSubscribers++
		}
	}

	for _, p := range participants {
		charID, found, err := r.dst.CharacterIDByName(ctx, p.name)
		if err != nil {
			return err
		}
		if !found {
			rep.DroppedParticipants++
			continue
		}
		ok, err := r.dst.InsertEventParticipant(ctx, p.eventID, charID)
		if err != nil {
			return err
		}
		if ok {
			rep.Participants++
		} else {
			rep.SkippedParticipants++
		}
	}

	return nil
}
