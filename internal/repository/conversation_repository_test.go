package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insta-iq-go/internal/model"
)

func TestMemoryConversationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepository(3)

	history, err := repo.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.AppendHistory(ctx, "s1", model.ChatMessage{Role: "user", Content: fmt.Sprint(i)}))
	}
	require.NoError(t, repo.AppendHistory(ctx, "s2", model.ChatMessage{Role: "user", Content: "other"}))

	history, err = repo.GetHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2", history[0].Content)
	assert.Equal(t, "4", history[2].Content)

	history[0].Content = "mutated"
	again, _ := repo.GetHistory(ctx, "s1")
	assert.Equal(t, "2", again[0].Content)

	require.NoError(t, repo.ClearHistory(ctx, "s1"))
	history, _ = repo.GetHistory(ctx, "s1")
	assert.Empty(t, history)
	other, _ := repo.GetHistory(ctx, "s2")
	assert.Len(t, other, 1)
}

func TestNopIngestionRunRepository(t *testing.T) {
	repo := NewNopIngestionRunRepository()
	require.NoError(t, repo.Create(&model.IngestionRun{RunID: "r"}))
	require.NoError(t, repo.Update(&model.IngestionRun{RunID: "r"}))
	_, err := repo.FindByRunID("r")
	assert.ErrorIs(t, err, ErrRunNotFound)
	runs, err := repo.ListByProfile("", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
