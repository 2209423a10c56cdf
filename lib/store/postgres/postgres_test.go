package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/glyphgate/glyphgate/internal"
	"github.com/glyphgate/glyphgate/lib/store/storetest"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func init() {
	internal.UnbreakDocker()
}

func TestImpl(t *testing.T) {
	if os.Getenv("DONT_USE_NETWORK") != "" {
		t.Skip("test requires network egress")
		return
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	req := testcontainers.ContainerRequest{
		Image: "postgres:17",
		Env: map[string]string{
			"POSTGRES_USER":     "glyphgate",
			"POSTGRES_PASSWORD": "hunter2",
			"POSTGRES_DB":       "glyphgate",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}
	pgC, err := testcontainers.GenericContainer(t.Context(), testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, pgC)
	if err != nil {
		t.Fatal(err)
	}

	containerIP, err := pgC.ContainerIP(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(Config{
		DSN: fmt.Sprintf("postgres://glyphgate:hunter2@%s:5432/glyphgate?sslmode=disable", containerIP),
	})
	if err != nil {
		t.Fatal(err)
	}

	storetest.Common(t, Factory{}, json.RawMessage(data))
}

func TestFactoryValid(t *testing.T) {
	f := Factory{}

	if err := f.Valid(json.RawMessage(`}`)); err == nil {
		t.Error("wanted parsing failure but got a successful result")
	}

	if err := f.Valid(json.RawMessage(`{}`)); !errors.Is(err, ErrMissingDSN) {
		t.Errorf("wanted ErrMissingDSN, got: %v", err)
	}

	if err := f.Valid(json.RawMessage(`{"dsn": "postgres://localhost/glyphgate"}`)); err != nil {
		t.Errorf("wanted valid config, got: %v", err)
	}
}
