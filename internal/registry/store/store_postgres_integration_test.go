//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"ballotwatch/internal/registry/models"
	"ballotwatch/internal/registry/store"
	"ballotwatch/pkg/platform/sentinel"
	"ballotwatch/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pool  *pgxpool.Pool
	store *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(s.T())

	pool, err := pgxpool.New(ctx, pg.DSN)
	s.Require().NoError(err)
	s.pool = pool

	s.store = store.NewPostgres(pool)
	s.Require().NoError(s.store.EnsureSchema(ctx))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), "TRUNCATE registry_candidates")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seed(rec models.Record) models.Record {
	created, err := s.store.Create(context.Background(), rec)
	s.Require().NoError(err)
	return created
}

func (s *PostgresStoreSuite) TestCreateAndReadAll() {
	ctx := context.Background()

	s.seed(models.Record{
		ID: "disc-1", Name: "John Smith", District: 42, Chamber: "house",
		Party: "Republican", Confidence: 0.95, LastUpdated: time.Now().UTC(), Source: "ethics",
	})
	s.seed(models.Record{
		ID: "cand-7", Name: "Jane Doe", District: 7, Chamber: "senate",
		PartyLocked: true, Party: "Democratic", LastUpdated: time.Now().UTC(), Source: "manual",
	})

	records, err := s.store.ReadAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("cand-7", records[0].ID)
	s.Equal("disc-1", records[1].ID)
	s.True(records[0].PartyLocked)
}

func (s *PostgresStoreSuite) TestCreateDuplicateID() {
	rec := models.Record{ID: "disc-1", Name: "John Smith", District: 42, Chamber: "house", LastUpdated: time.Now().UTC()}
	s.seed(rec)

	_, err := s.store.Create(context.Background(), rec)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateFields() {
	ctx := context.Background()
	s.seed(models.Record{ID: "disc-1", Name: "John Smith", District: 42, Chamber: "house", Confidence: 0.8, LastUpdated: time.Now().UTC()})

	party := "Republican"
	confidence := 0.95
	source := "ethics"
	updated, err := s.store.Update(ctx, "disc-1", models.UpdateFields{
		Party: &party, Confidence: &confidence, Source: &source,
	})
	s.Require().NoError(err)
	s.Equal("Republican", updated.Party)
	s.Equal(0.95, updated.Confidence)
	s.Equal("ethics", updated.Source)
}

func (s *PostgresStoreSuite) TestUpdatePartyOnLockedRecordFails() {
	ctx := context.Background()
	s.seed(models.Record{ID: "cand-7", Name: "Jane Doe", District: 7, Chamber: "senate", Party: "Democratic", PartyLocked: true, LastUpdated: time.Now().UTC()})

	party := "Republican"
	_, err := s.store.Update(ctx, "cand-7", models.UpdateFields{Party: &party})
	s.Require().ErrorIs(err, sentinel.ErrLocked)

	records, err := s.store.ReadAll(ctx)
	s.Require().NoError(err)
	s.Equal("Democratic", records[0].Party)
}

func (s *PostgresStoreSuite) TestUpdateMissingRecord() {
	confidence := 0.5
	_, err := s.store.Update(context.Background(), "disc-missing", models.UpdateFields{Confidence: &confidence})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
