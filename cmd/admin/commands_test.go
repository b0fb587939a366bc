package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"matchchat/backend/internal/apperr"
	"matchchat/backend/internal/auth"
	"matchchat/backend/internal/models"
	"matchchat/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunToken(t *testing.T) {
	issuer := auth.NewJWTService("secret", "matchchat")
	var out bytes.Buffer
	require.NoError(t, runToken(&out, issuer, "user-1", time.Hour))

	userID, err := issuer.Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestRunRoom(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertChatRequest(ctx, &models.ChatRequest{SenderID: "a", ReceiverID: "b", Status: models.RequestPending, Timestamp: start}))
	ok, err := store.AcceptChatRequest(ctx, "a", "b", models.NewChatRoom("r1", "a", "b", start, 96*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	var out bytes.Buffer
	require.NoError(t, runRoom(ctx, &out, store, "r1", start.Add(30*time.Hour)))
	assert.Contains(t, out.String(), "a, b")
	assert.Contains(t, out.String(), "open (3 days left)")

	out.Reset()
	require.NoError(t, runRoom(ctx, &out, store, "r1", start.Add(100*time.Hour)))
	assert.Contains(t, out.String(), "expired")

	assert.ErrorIs(t, runRoom(ctx, &out, store, "missing", start), apperr.ErrNotFound)
}

func TestRunLedger(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	var out bytes.Buffer
	require.NoError(t, runLedger(ctx, &out, store, "a"))
	assert.Contains(t, out.String(), "no interactions")

	require.NoError(t, store.UpsertInteraction(ctx, &models.InteractionRecord{
		FromUserID: "a", ToUserID: "b", Action: models.ActionLike, Timestamp: time.Now(),
	}))
	out.Reset()
	require.NoError(t, runLedger(ctx, &out, store, "a"))
	assert.Contains(t, out.String(), "like")
	assert.Contains(t, out.String(), "pending")
}

func TestRunBlock(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.SaveUser(ctx, &models.User{ID: "a"}))
	require.NoError(t, store.SaveUser(ctx, &models.User{ID: "b"}))

	var out bytes.Buffer
	require.NoError(t, runBlock(ctx, &out, store, "a", "b"))
	a, err := store.GetUserByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, a.HasBlocked("b"))
}
