package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"civicledger/internal/ledger"
	"civicledger/internal/requests/merge"
	"civicledger/internal/requests/models"
	"civicledger/pkg/platform/audit"
	"civicledger/pkg/requestcontext"
)

// RefreshResult summarizes a reconciliation.
type RefreshResult struct {
	// Skipped is set when the identity was offline and nothing was read.
	Skipped      bool      `json:"skipped"`
	Fetched      int       `json:"fetched"`
	Requests     int       `json:"requests"`
	CallRequests int       `json:"call_requests"`
	SyncedAt     time.Time `json:"synced_at"`
}

// Refresh reads every ledger record and merges it into the view. Records the
// ledger reports missing are skipped; any other read failure aborts and the
// view is left as it was. Concurrent refreshes each commit a whole snapshot.
func (s *Service) Refresh(ctx context.Context) (res *RefreshResult, err error) {
	ctx, span := s.startSpan(ctx, "Refresh")
	defer func() { finishSpan(span, err) }()

	snap := s.Identity(ctx)
	if !snap.Online() {
		s.metrics.IncrementRefreshSkipped()
		s.logger.InfoContext(ctx, "refresh skipped", "connected", snap.Connected, "wrong_network", snap.WrongNetwork())
		return &RefreshResult{Skipped: true}, nil
	}

	start := time.Now()
	records, err := s.fetchAll(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "refresh aborted", "error", err)
		return nil, translateLedgerError(err)
	}
	fresh := s.toFresh(ctx, records)

	now := requestcontext.Now(ctx)
	v, err := s.views.Update(ctx, func(current models.View) (models.View, error) {
		return merge.Merge(current, fresh, now), nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveRefresh(time.Since(start), len(records))
	s.metrics.SetViewSize(len(v.Requests), len(v.CallRequests))
	s.emit(ctx, audit.EventViewSynced, "", snap.Address, "", "", "")
	s.logger.InfoContext(ctx, "refresh complete",
		"fetched", len(records), "requests", len(v.Requests), "call_requests", len(v.CallRequests))

	return &RefreshResult{
		Fetched:      len(records),
		Requests:     len(v.Requests),
		CallRequests: len(v.CallRequests),
		SyncedAt:     now,
	}, nil
}

// fetchAll reads ids 1..total with bounded parallelism.
func (s *Service) fetchAll(ctx context.Context) ([]ledger.Record, error) {
	total, err := s.ledger.TotalRequests(ctx)
	if err != nil {
		return nil, err
	}

	slots := make([]*ledger.Record, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for id := uint64(1); id <= total; id++ {
		g.Go(func() error {
			rec, err := s.ledger.GetRequest(gctx, id)
			if ledger.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			slots[id-1] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ledger.Record, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *Service) toFresh(ctx context.Context, records []ledger.Record) merge.Fresh {
	var fresh merge.Fresh
	for _, rec := range records {
		kind, category := models.DecodeCategory(rec.Category)
		if kind == models.KindCall {
			if models.IsLossyCallStatus(rec.Status) {
				s.metrics.IncrementLossyCallStatus()
				s.logger.WarnContext(ctx, "rejected call request reads back as pending", "id", models.LedgerID(kind, rec.ID))
			}
			fresh.CallRequests = append(fresh.CallRequests, models.CallFromLedger(rec, category))
			continue
		}
		fresh.Requests = append(fresh.Requests, models.RequestFromLedger(rec, category))
	}
	return fresh
}
