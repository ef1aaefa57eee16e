package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"civicledger/internal/ledger"
)

const (
	adminAddr   = "0x00000000000000000000000000000000000000aa"
	citizenAddr = "0x00000000000000000000000000000000000000c1"
	deptA       = "0x00000000000000000000000000000000000000d1"
	deptB       = "0x00000000000000000000000000000000000000d2"
)

// ChainSuite exercises the contract rules the simulator enforces.
type ChainSuite struct {
	suite.Suite
	ctx     context.Context
	chain   *Chain
	admin   *Client
	citizen *Client
	a       *Client
	b       *Client
}

func TestChainSuite(t *testing.T) {
	suite.Run(t, new(ChainSuite))
}

func (s *ChainSuite) SetupTest() {
	s.ctx = context.Background()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.chain = NewChain(adminAddr, WithClock(func() time.Time { return fixed }))
	s.admin = s.chain.ClientFor(adminAddr)
	s.citizen = s.chain.ClientFor(citizenAddr)
	s.a = s.chain.ClientFor(deptA)
	s.b = s.chain.ClientFor(deptB)
}

func (s *ChainSuite) submit() uint64 {
	res, err := s.citizen.SubmitRequest(s.ctx, "Identity", "Passport Renewal")
	s.Require().NoError(err)
	s.Require().True(res.HasAssignedID)
	return res.AssignedID
}

func (s *ChainSuite) registerDepartments() {
	_, err := s.admin.AddDepartment(s.ctx, deptA)
	s.Require().NoError(err)
	_, err = s.admin.AddDepartment(s.ctx, deptB)
	s.Require().NoError(err)
}

// =============================================================================
// Submission
// =============================================================================

func (s *ChainSuite) TestSubmitRequest() {
	s.Run("ids are dense and 1-indexed", func() {
		s.Equal(uint64(1), s.submit())
		s.Equal(uint64(2), s.submit())

		total, err := s.citizen.TotalRequests(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(2), total)
	})

	s.Run("stored record matches submission", func() {
		rec, err := s.citizen.GetRequest(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal(citizenAddr, rec.Owner)
		s.Equal("Identity", rec.Category)
		s.Equal("Passport Renewal", rec.Name)
		s.Equal(ledger.StatusPending, rec.Status)
		s.False(rec.Assigned())
	})

	s.Run("tx hashes are unique", func() {
		r1, err := s.citizen.SubmitRequest(s.ctx, "c", "n1")
		s.Require().NoError(err)
		r2, err := s.citizen.SubmitRequest(s.ctx, "c", "n2")
		s.Require().NoError(err)
		s.NotEqual(r1.TxHash, r2.TxHash)
		s.Len(r1.TxHash, 66)
	})

	s.Run("empty name reverts", func() {
		_, err := s.citizen.SubmitRequest(s.ctx, "c", " ")
		s.Equal(ledger.ErrorRejected, ledger.CategoryOf(err))
	})
}

func (s *ChainSuite) TestGetRequest_NotFound() {
	_, err := s.citizen.GetRequest(s.ctx, 99)
	s.True(ledger.IsNotFound(err))

	_, err = s.citizen.GetRequest(s.ctx, 0)
	s.True(ledger.IsNotFound(err))
}

// =============================================================================
// Departments
// =============================================================================

func (s *ChainSuite) TestDepartments() {
	s.Run("only admin may add", func() {
		_, err := s.citizen.AddDepartment(s.ctx, deptA)
		s.Equal(ledger.ErrorUnauthorized, ledger.CategoryOf(err))
		s.Equal(ReasonOnlyAdmin, ledger.ReasonOf(err))
	})

	s.Run("admin adds and removes", func() {
		_, err := s.admin.AddDepartment(s.ctx, deptA)
		s.Require().NoError(err)

		ok, err := s.citizen.IsDepartment(s.ctx, "0x00000000000000000000000000000000000000D1")
		s.Require().NoError(err)
		s.True(ok, "lookup is case-insensitive")

		_, err = s.admin.AddDepartment(s.ctx, deptA)
		s.Equal(ReasonAlreadyDept, ledger.ReasonOf(err))

		_, err = s.admin.RemoveDepartment(s.ctx, deptA)
		s.Require().NoError(err)
		ok, _ = s.citizen.IsDepartment(s.ctx, deptA)
		s.False(ok)
	})

	s.Run("admin is reported", func() {
		admin, err := s.citizen.Admin(s.ctx)
		s.Require().NoError(err)
		s.Equal(adminAddr, admin)
	})
}

// =============================================================================
// Accept and status updates
// =============================================================================

func (s *ChainSuite) TestAcceptRequest() {
	s.registerDepartments()
	id := s.submit()

	s.Run("non-department cannot accept", func() {
		_, err := s.citizen.AcceptRequest(s.ctx, id)
		s.Equal(ledger.ErrorUnauthorized, ledger.CategoryOf(err))
	})

	s.Run("first accept assigns the caller", func() {
		_, err := s.a.AcceptRequest(s.ctx, id)
		s.Require().NoError(err)

		rec, err := s.a.GetRequest(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(deptA, rec.Department)
		s.Equal(ledger.StatusProcessing, rec.Status)
	})

	s.Run("second accept fails and keeps assignment", func() {
		_, err := s.b.AcceptRequest(s.ctx, id)
		s.Equal(ledger.ErrorRejected, ledger.CategoryOf(err))
		s.Equal(ReasonAlreadyAssigned, ledger.ReasonOf(err))

		rec, err := s.b.GetRequest(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(deptA, rec.Department)
	})

	s.Run("unknown id reverts", func() {
		_, err := s.a.AcceptRequest(s.ctx, 42)
		s.Equal(ReasonInvalidID, ledger.ReasonOf(err))
	})
}

func (s *ChainSuite) TestUpdateStatus() {
	s.registerDepartments()
	id := s.submit()

	s.Run("unassigned request cannot be updated", func() {
		_, err := s.a.UpdateStatus(s.ctx, id, ledger.StatusCompleted)
		s.Equal(ledger.ErrorUnauthorized, ledger.CategoryOf(err))
	})

	_, err := s.a.AcceptRequest(s.ctx, id)
	s.Require().NoError(err)

	s.Run("other department is refused", func() {
		_, err := s.b.UpdateStatus(s.ctx, id, ledger.StatusCompleted)
		s.Equal(ReasonNotAssignedDept, ledger.ReasonOf(err))
	})

	s.Run("out of range status reverts", func() {
		_, err := s.a.UpdateStatus(s.ctx, id, ledger.Status(7))
		s.Equal(ReasonInvalidStatus, ledger.ReasonOf(err))
	})

	s.Run("assigned department completes", func() {
		_, err := s.a.UpdateStatus(s.ctx, id, ledger.StatusCompleted)
		s.Require().NoError(err)
		rec, _ := s.a.GetRequest(s.ctx, id)
		s.Equal(ledger.StatusCompleted, rec.Status)
	})
}

// =============================================================================
// Failure injection
// =============================================================================

func (s *ChainSuite) TestFailureInjection() {
	s.Run("offline chain is unavailable", func() {
		s.chain.SetOffline(true)
		_, err := s.citizen.TotalRequests(s.ctx)
		s.Equal(ledger.ErrorUnavailable, ledger.CategoryOf(err))
		s.chain.SetOffline(false)
	})

	s.Run("FailNext fires once", func() {
		boom := errors.New("boom")
		s.chain.FailNext("requestService", boom)

		_, err := s.citizen.SubmitRequest(s.ctx, "c", "n")
		s.ErrorIs(err, boom)
		s.Empty(s.chain.Records(), "failed write leaves no record")

		_, err = s.citizen.SubmitRequest(s.ctx, "c", "n")
		s.NoError(err)
	})
}
