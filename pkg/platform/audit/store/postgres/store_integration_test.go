//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "civicledger/pkg/platform/audit"
	"civicledger/pkg/platform/audit/store/postgres"
	"civicledger/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *AuditStoreSuite) TestAppendAndListBySubject() {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base,
		Subject:   "REQ-1",
		Action:    string(audit.EventRequestSubmitted),
		ActorID:   "0xc1",
		TxHash:    "0xaa",
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base.Add(time.Minute),
		Subject:   "REQ-1",
		Action:    string(audit.EventRequestAccepted),
		ActorID:   "0xd1",
		Status:    "processing",
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base,
		Subject:   "REQ-2",
		Action:    string(audit.EventRequestSubmitted),
	}))

	events, err := s.store.ListBySubject(ctx, "REQ-1")
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventRequestSubmitted), events[0].Action)
	s.Equal(audit.CategoryLedger, events[0].Category)
	s.Equal("processing", events[1].Status)
	s.True(events[1].Timestamp.Equal(base.Add(time.Minute)))

	all, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *AuditStoreSuite) TestAppendIsIdempotentOnID() {
	ctx := context.Background()
	event := audit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Subject:   "CALL-4",
		Action:    string(audit.EventViewSynced),
	}

	s.Require().NoError(s.store.Append(ctx, event))
	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListBySubject(ctx, "CALL-4")
	s.Require().NoError(err)
	s.Len(events, 1)
	s.Equal(audit.CategoryOperations, events[0].Category)
}

func (s *AuditStoreSuite) TestAppendRejectsMalformedID() {
	err := s.store.Append(context.Background(), audit.Event{ID: "not-a-uuid", Action: "x"})
	s.Error(err)
}
