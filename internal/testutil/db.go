// internal/testutil/db.go

// Package testutil provides shared helpers for store and handler tests:
// a live test database (skipped when no Mongo URI is configured),
// fixture builders, and HTTP request helpers.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/gatherhub/gatherhub/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnvTestMongoURI names the environment variable holding the Mongo URI
// for integration tests. Tests that need a database skip when it is
// unset.
const EnvTestMongoURI = "GATHERHUB_TEST_MONGO_URI"

// SetupTestDB connects to the test Mongo instance and returns a database
// unique to the calling test. The database is dropped and the client
// disconnected on cleanup. Skips the test when GATHERHUB_TEST_MONGO_URI
// is unset.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv(EnvTestMongoURI)
	if uri == "" {
		t.Skipf("skipping: %s not set", EnvTestMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect to test mongo: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("ping test mongo: %v", err)
	}

	dbName := fmt.Sprintf("gatherhub_test_%d", time.Now().UnixNano())
	db := client.Database(dbName)

	// The unique partial indexes back the duplicate guarantees the
	// stores promise, so tests need them too.
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop test database %s: %v", dbName, err)
		}
		_ = client.Disconnect(ctx)
	})

	return db
}

// TestContext returns a context with a deadline suitable for one test's
// database calls.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
