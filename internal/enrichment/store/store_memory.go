// Package store persists applicants, applications and documents.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"civicledger/internal/enrichment/models"
	"civicledger/pkg/platform/sentinel"
)

// InMemoryStore keeps everything in maps. Values are copied on the way in
// and out so callers never share mutable state with the store.
type InMemoryStore struct {
	mu           sync.RWMutex
	applicants   map[string]models.Applicant // keyed by lower-cased wallet
	applications map[uuid.UUID]models.Application
	documents    map[string]models.Document // keyed by document URL
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		applicants:   make(map[string]models.Applicant),
		applications: make(map[uuid.UUID]models.Application),
		documents:    make(map[string]models.Document),
	}
}

func (s *InMemoryStore) FindOrCreateApplicant(_ context.Context, wallet string, now time.Time) (*models.Applicant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(wallet)
	if a, ok := s.applicants[key]; ok {
		return &a, nil
	}
	a := models.Applicant{ID: uuid.New(), WalletAddress: wallet, CreatedAt: now}
	s.applicants[key] = a
	return &a, nil
}

func (s *InMemoryStore) CreateApplication(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[app.ID]; ok {
		return sentinel.ErrConflict
	}
	s.applications[app.ID] = cloneApplication(*app)
	return nil
}

func (s *InMemoryStore) AddDocuments(_ context.Context, appID uuid.UUID, docs []models.Document, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.applications[appID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for _, d := range docs {
		if _, exists := s.documents[d.DocumentURL]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, d := range docs {
		s.documents[d.DocumentURL] = d
		app.Documents = append(app.Documents, models.DocumentRef{
			DocumentType: d.DocumentType,
			URL:          d.DocumentURL,
			Status:       d.Status,
		})
	}
	app.UpdatedAt = now
	s.applications[appID] = app
	return nil
}

func (s *InMemoryStore) ListApplications(_ context.Context) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Application, 0, len(s.applications))
	for _, a := range s.applications {
		out = append(out, cloneApplication(a))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) FindDocumentByURL(_ context.Context, url string) (*models.DocumentDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[url]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	details := &models.DocumentDetails{Document: doc}
	for _, a := range s.applicants {
		if a.ID == doc.ApplicantID {
			applicant := a
			details.Applicant = &applicant
			break
		}
	}
	if app, ok := s.applications[doc.ApplicationID]; ok {
		clone := cloneApplication(app)
		details.Application = &clone
	}
	return details, nil
}

func cloneApplication(a models.Application) models.Application {
	if a.Data != nil {
		data := make(map[string]string, len(a.Data))
		for k, v := range a.Data {
			data[k] = v
		}
		a.Data = data
	}
	a.Documents = append([]models.DocumentRef(nil), a.Documents...)
	return a
}
