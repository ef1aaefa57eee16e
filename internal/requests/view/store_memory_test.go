package view

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"civicledger/internal/requests/models"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func appendRequest(id string) UpdateFunc {
	return func(v models.View) (models.View, error) {
		v.Requests = append(v.Requests, models.Request{ID: id, FormFields: map[string]string{"k": id}})
		return v, nil
	}
}

func (s *InMemoryStoreSuite) TestEmptyLoad() {
	v, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Empty(v.Requests)
	s.Empty(v.CallRequests)
}

func (s *InMemoryStoreSuite) TestUpdateReplacesSnapshot() {
	_, err := s.store.Update(s.ctx, appendRequest("REQ-1"))
	s.Require().NoError(err)

	v, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(v.Requests, 1)
	s.Equal("REQ-1", v.Requests[0].ID)
}

func (s *InMemoryStoreSuite) TestFailedUpdateLeavesSnapshot() {
	_, err := s.store.Update(s.ctx, appendRequest("REQ-1"))
	s.Require().NoError(err)

	boom := errors.New("boom")
	_, err = s.store.Update(s.ctx, func(v models.View) (models.View, error) {
		v.Requests = nil
		return v, boom
	})
	s.ErrorIs(err, boom)

	v, _ := s.store.Load(s.ctx)
	s.Len(v.Requests, 1)
}

func (s *InMemoryStoreSuite) TestLoadReturnsCopy() {
	_, err := s.store.Update(s.ctx, appendRequest("REQ-1"))
	s.Require().NoError(err)

	v, _ := s.store.Load(s.ctx)
	v.Requests[0].FormFields["k"] = "mutated"

	again, _ := s.store.Load(s.ctx)
	s.Equal("REQ-1", again.Requests[0].FormFields["k"])
}

func (s *InMemoryStoreSuite) TestConcurrentUpdatesAreSerialized() {
	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.store.Update(s.ctx, appendRequest(models.LedgerID(models.KindRequest, uint64(i+1))))
		}(i)
	}
	wg.Wait()

	v, _ := s.store.Load(s.ctx)
	s.Len(v.Requests, writers)
}
