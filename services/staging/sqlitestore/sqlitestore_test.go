package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"govdata-etl/lib/testutil"
	"govdata-etl/services/extract"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/staging/sqlitestore",
		DbSchema: Schema,
	})
	defer cleanup()

	ctx := context.Background()
	store, err := New(ctx, res.DB)
	require.NoError(t, err)

	records := []extract.Record{
		{"state": "Ohio", "rate": "5.5", "month": "January", "year": "2020"},
		{"state": "Texas", "rate": "3.5", "month": "January", "year": "2020"},
	}
	ids, err := store.InsertMany(ctx, "unemployment", records)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.NotEqual(t, ids[0], ids[1])

	_, err = store.InsertMany(ctx, "crime", []extract.Record{{"State": "Alabama", "Year": "2019"}})
	require.NoError(t, err)

	names, err := store.ListCollectionNames(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"crime", "unemployment"}, names)

	found, err := store.FindAll(ctx, "unemployment")
	require.NoError(t, err)
	require.ElementsMatch(t, records, found)

	require.NoError(t, store.DropCollection(ctx, "unemployment"))
	names, err = store.ListCollectionNames(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"crime"}, names)

	found, err = store.FindAll(ctx, "unemployment")
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "staging.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = store.InsertMany(ctx, "education", []extract.Record{{"STATE": "1", "YEAR": "2015"}})
	require.NoError(t, err)
	require.NoError(t, store.Close(ctx))

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close(ctx)
	found, err := reopened.FindAll(ctx, "education")
	require.NoError(t, err)
	require.Equal(t, []extract.Record{{"STATE": "1", "YEAR": "2015"}}, found)
}
