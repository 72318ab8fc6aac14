//go:build integration

package snapshot_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"

	"pantheon/internal/snapshot"
	"pantheon/pkg/platform/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	store *snapshot.Postgres
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("PANTHEON_TEST_POSTGRES_DSN") == "" {
		t.Skip("PANTHEON_TEST_POSTGRES_DSN not set")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	store, err := snapshot.Open(s.ctx, os.Getenv("PANTHEON_TEST_POSTGRES_DSN"))
	s.Require().NoError(err)
	s.store = store
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.store != nil {
		s.Require().NoError(s.store.Close())
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	blob := snapshot.Blob{
		Kind:    snapshot.KindReligion,
		ID:      "it-r1",
		Version: 1,
		Data:    []byte(`{"name":"Order of Dawn"}`),
	}
	s.Require().NoError(s.store.Save(s.ctx, blob))
	defer func() { _ = s.store.Delete(s.ctx, snapshot.KindReligion, "it-r1") }()

	loaded, err := s.store.Load(s.ctx, snapshot.KindReligion, "it-r1")
	s.Require().NoError(err)
	s.JSONEq(string(blob.Data), string(loaded.Data))

	blob.Version = 2
	blob.Data = []byte(`{"name":"Order of Dusk"}`)
	s.Require().NoError(s.store.Save(s.ctx, blob))

	loaded, err = s.store.Load(s.ctx, snapshot.KindReligion, "it-r1")
	s.Require().NoError(err)
	s.Equal(2, loaded.Version)
}

func (s *PostgresStoreSuite) TestNotFound() {
	_, err := s.store.Load(s.ctx, snapshot.KindReligion, "never-saved")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
