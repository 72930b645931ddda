/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Seednode/partyrooms/engine"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestArchive runs against a live database named by PARTYROOMS_TEST_DATABASE.
func TestArchive(t *testing.T) {
	url := os.Getenv("PARTYROOMS_TEST_DATABASE")
	if url == "" {
		t.Skip("PARTYROOMS_TEST_DATABASE not set")
	}

	ctx := context.Background()
	a, err := Open(ctx, url)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Migrate(ctx))
	require.NoError(t, a.Migrate(ctx), "migrating twice is harmless")

	game := "test-" + uuid.NewString()
	base := time.Now().Truncate(time.Second)
	for i := range 3 {
		require.NoError(t, a.Record(ctx, Entry{
			Room:      "ROOM",
			Game:      game,
			Roster:    []engine.Player{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
			Standings: []engine.Standing{{ID: "a", Place: 1, Score: i}, {ID: "b", Place: 2}},
			Finished:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	recent, err := a.Recent(ctx, game, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 2, recent[0].Standings[0].Score, "newest first")
	assert.Equal(t, 1, recent[1].Standings[0].Score)
	assert.Equal(t, "B", recent[0].Roster[1].Name)
	assert.NotEqual(t, uuid.Nil, recent[0].ID)

	none, err := a.Recent(ctx, "missing-"+game, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
