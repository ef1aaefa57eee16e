//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"civicledger/internal/enrichment/models"
	"civicledger/internal/enrichment/store"
	"civicledger/pkg/platform/sentinel"
	"civicledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "documents", "applications", "applicants")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	applicant, err := s.store.FindOrCreateApplicant(ctx, "0xAbC", now)
	s.Require().NoError(err)
	again, err := s.store.FindOrCreateApplicant(ctx, "0xabc", now)
	s.Require().NoError(err)
	s.Equal(applicant.ID, again.ID)

	app := &models.Application{
		ID:            uuid.New(),
		RequestID:     "REQ-7",
		ServiceID:     "passport",
		ServiceType:   "Passport Renewal",
		WalletAddress: applicant.WalletAddress,
		ApplicantName: "Asha Rao",
		BlockchainRef: "0xdead",
		Data:          map[string]string{"fullName": "Asha Rao", "phone": "555"},
		Status:        models.ApplicationSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.Require().NoError(s.store.CreateApplication(ctx, app))
	s.ErrorIs(s.store.CreateApplication(ctx, app), sentinel.ErrConflict)

	doc := models.Document{
		ID:            uuid.New(),
		ApplicantID:   applicant.ID,
		ApplicationID: app.ID,
		DocumentType:  "documents",
		DocumentURL:   "uploads/" + uuid.NewString(),
		FileType:      "application/pdf",
		FileExtension: ".pdf",
		Size:          8,
		Status:        models.DocumentPending,
		CreatedAt:     now,
	}
	s.Require().NoError(s.store.AddDocuments(ctx, app.ID, []models.Document{doc}, now))

	details, err := s.store.FindDocumentByURL(ctx, doc.DocumentURL)
	s.Require().NoError(err)
	s.Equal(doc.ID, details.Document.ID)
	s.Require().NotNil(details.Application)
	s.Equal(app.Data, details.Application.Data)
	s.Len(details.Application.Documents, 1)
	s.Require().NotNil(details.Applicant)
	s.Equal(applicant.ID, details.Applicant.ID)

	apps, err := s.store.ListApplications(ctx)
	s.Require().NoError(err)
	s.Require().Len(apps, 1)
	s.Equal("REQ-7", apps[0].RequestID)

	_, err = s.store.FindDocumentByURL(ctx, "uploads/none")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestAddDocuments_IsAtomic() {
	ctx := context.Background()
	now := time.Now().UTC()
	applicant, err := s.store.FindOrCreateApplicant(ctx, "0xfeed", now)
	s.Require().NoError(err)
	app := &models.Application{
		ID: uuid.New(), RequestID: "REQ-8", ServiceID: "x", ServiceType: "x",
		WalletAddress: "0xfeed", ApplicantName: "A", Status: models.ApplicationSubmitted,
		CreatedAt: now, UpdatedAt: now,
	}
	s.Require().NoError(s.store.CreateApplication(ctx, app))

	url := "uploads/" + uuid.NewString()
	docs := []models.Document{
		{ID: uuid.New(), ApplicantID: applicant.ID, ApplicationID: app.ID, DocumentType: "a", DocumentURL: url, Status: models.DocumentPending, CreatedAt: now},
		{ID: uuid.New(), ApplicantID: applicant.ID, ApplicationID: app.ID, DocumentType: "b", DocumentURL: url, Status: models.DocumentPending, CreatedAt: now},
	}
	s.ErrorIs(s.store.AddDocuments(ctx, app.ID, docs, now), sentinel.ErrConflict)

	_, err = s.store.FindDocumentByURL(ctx, url)
	s.ErrorIs(err, sentinel.ErrNotFound, "first insert rolled back")
}
