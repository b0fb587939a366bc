package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"matchchat/backend/internal/apperr"
	"matchchat/backend/internal/auth"
	"matchchat/backend/internal/chat"
	"matchchat/backend/internal/moderation"
	"matchchat/backend/internal/storage"

	"github.com/pkg/errors"
)

func runToken(w io.Writer, issuer *auth.JWTService, userID string, ttl time.Duration) error {
	token, err := issuer.Issue(userID, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

func runRoom(ctx context.Context, w io.Writer, s storage.Storage, roomID string, now time.Time) error {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return errors.Wrapf(apperr.ErrNotFound, "room %s", roomID)
	}

	state := "open"
	if room.Expired(now) {
		state = "expired"
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "room\t%s\n", room.RoomID)
	fmt.Fprintf(tw, "members\t%s, %s\n", room.User1ID, room.User2ID)
	fmt.Fprintf(tw, "started\t%s\n", room.StartDate.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "expires\t%s\n", room.ExpiresAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "state\t%s (%d days left)\n", state, chat.DaysRemaining(room, now))
	return tw.Flush()
}

func runLedger(ctx context.Context, w io.Writer, s storage.Storage, userID string) error {
	recs, err := s.ListInteractions(ctx, userID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		_, err := fmt.Fprintf(w, "no interactions for %s\n", userID)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TO\tACTION\tSTATUS\tAT")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ToUserID, rec.Action, rec.Status, rec.Timestamp.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func runBlock(ctx context.Context, w io.Writer, s storage.Storage, userID, targetID string) error {
	if err := moderation.NewService(s).Block(ctx, userID, targetID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s blocked %s\n", userID, targetID)
	return err
}
