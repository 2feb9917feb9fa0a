package mongostore

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"testing"

	"govdata-etl/services/extract"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setup(t *testing.T) (Store, func()) {
	if os.Getenv("GOVDATA_INTEGRATION") != "1" {
		t.Skip("set GOVDATA_INTEGRATION=1 to run against a mongo container")
	}

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections"),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	store, err := Open(ctx, fmt.Sprintf("mongodb://%s:%s", host, port.Port()), "usa")
	require.NoError(t, err)

	return store, func() {
		store.Close(ctx)
		err := container.Terminate(ctx)
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store, cleanup := setup(t)
	defer cleanup()
	ctx := context.Background()

	records := []extract.Record{
		{"state": "Ohio", "rate": "5.5", "month": "January", "year": "2020"},
		{"state": "Texas", "rate": "3.5", "month": "January", "year": "2020"},
	}
	ids, err := store.InsertMany(ctx, "unemployment", records)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	names, err := store.ListCollectionNames(ctx)
	require.NoError(t, err)
	require.Contains(t, names, "unemployment")

	found, err := store.FindAll(ctx, "unemployment")
	require.NoError(t, err)
	require.ElementsMatch(t, records, found)

	require.NoError(t, store.DropCollection(ctx, "unemployment"))
	names, err = store.ListCollectionNames(ctx)
	require.NoError(t, err)
	require.NotContains(t, names, "unemployment")
}
