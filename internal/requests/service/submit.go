package service

import (
	"context"
	"errors"

	"github.com/gabriel-vasile/mimetype"

	enrichmentmodels "civicledger/internal/enrichment/models"
	"civicledger/internal/identity"
	"civicledger/internal/ledger"
	"civicledger/internal/requests/metrics"
	"civicledger/internal/requests/models"
	"civicledger/pkg/platform/audit"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/requestcontext"
)

// Attachment is a document uploaded with an application.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

type SubmitInput struct {
	ServiceID    string
	ServiceName  string
	CategoryName string
	FormFields   map[string]string
	Attachments  []Attachment
}

type SubmitCallInput struct {
	ServiceID    string
	ServiceName  string
	CategoryName string
	SelectedItem string
	FormFields   map[string]string
}

// SubmitResult reports where a submission landed. EnrichmentErr is set when
// the ledger write succeeded but the off-chain save did not; the request
// exists either way.
type SubmitResult struct {
	ID            string
	Mode          models.Mode
	TxHash        string
	Request       *models.Request
	CallRequest   *models.CallRequest
	EnrichmentErr error
}

func (in SubmitInput) validate() error {
	if trimmed(in.ServiceName) == "" {
		return dErrors.New(dErrors.CodeValidation, "serviceName is required")
	}
	if trimmed(in.CategoryName) == "" {
		return dErrors.New(dErrors.CodeValidation, "categoryName is required")
	}
	return nil
}

func (in SubmitCallInput) validate() error {
	return SubmitInput{ServiceName: in.ServiceName, CategoryName: in.CategoryName}.validate()
}

// Submit records an online application. Offline it is kept as a local-only
// record; online it is written to the ledger first and discarded entirely if
// that write fails.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (res *SubmitResult, err error) {
	ctx, span := s.startSpan(ctx, "Submit")
	defer func() { finishSpan(span, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	snap := s.Identity(ctx)
	now := requestcontext.Now(ctx)

	candidate := models.Request{
		ID:            models.NewLocalID(models.KindRequest),
		WalletAddress: snap.Address,
		ServiceID:     trimmed(in.ServiceID),
		ServiceName:   trimmed(in.ServiceName),
		CategoryName:  trimmed(in.CategoryName),
		UploadedFiles: uploadedFiles(in.Attachments),
		FormFields:    copyFields(in.FormFields),
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		RequestType:   models.RequestTypeOnline,
		SelectedItem:  trimmed(in.ServiceName),
	}
	if candidate.ServiceID == "" {
		candidate.ServiceID = models.ServiceSlug(candidate.ServiceName)
	}

	if !snap.Online() {
		candidate.LocalOnly = true
		if err := s.storeRequest(ctx, candidate); err != nil {
			return nil, err
		}
		s.savedLocally(ctx, snap, candidate.ID)
		return &SubmitResult{ID: candidate.ID, Mode: models.ModeLocalOnly, Request: &candidate}, nil
	}

	id, wr, err := s.writeSubmission(ctx, snap, models.KindRequest, candidate.CategoryName, candidate.ServiceName)
	if err != nil {
		return nil, err
	}
	candidate.ID = id
	candidate.TxHash = wr.TxHash
	if err := s.storeRequest(ctx, candidate); err != nil {
		s.logger.ErrorContext(ctx, "view update failed after ledger submit", "id", id, "tx_hash", wr.TxHash, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, MessageViewUpdateFailed)
	}

	res = &SubmitResult{ID: id, Mode: models.ModeLedger, TxHash: wr.TxHash}
	res.EnrichmentErr = s.saveEnrichment(ctx, enrichmentmodels.Submission{
		RequestID:     id,
		WalletAddress: snap.Address,
		ServiceID:     candidate.ServiceID,
		ServiceType:   candidate.CategoryName,
		TxHash:        wr.TxHash,
		FormFields:    candidate.FormFields,
		Attachments:   enrichmentAttachments(in.Attachments),
	})
	if res.EnrichmentErr == nil {
		candidate.EnrichmentSynced = true
		s.markEnrichmentSynced(ctx, models.KindRequest, id)
	}
	res.Request = &candidate
	return res, nil
}

// SubmitCall records a call-back request. It follows the same path as Submit
// with the call marker on the ledger category and no attachments.
func (s *Service) SubmitCall(ctx context.Context, in SubmitCallInput) (res *SubmitResult, err error) {
	ctx, span := s.startSpan(ctx, "SubmitCall")
	defer func() { finishSpan(span, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	snap := s.Identity(ctx)
	now := requestcontext.Now(ctx)

	candidate := models.CallRequest{
		ID:            models.NewLocalID(models.KindCall),
		WalletAddress: snap.Address,
		ServiceID:     trimmed(in.ServiceID),
		ServiceName:   trimmed(in.ServiceName),
		CategoryName:  trimmed(in.CategoryName),
		SelectedItem:  trimmed(in.SelectedItem),
		FormFields:    copyFields(in.FormFields),
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if candidate.ServiceID == "" {
		candidate.ServiceID = models.ServiceSlug(candidate.ServiceName)
	}
	if candidate.SelectedItem == "" {
		candidate.SelectedItem = candidate.ServiceName
	}

	if !snap.Online() {
		candidate.LocalOnly = true
		if err := s.storeCall(ctx, candidate); err != nil {
			return nil, err
		}
		s.savedLocally(ctx, snap, candidate.ID)
		return &SubmitResult{ID: candidate.ID, Mode: models.ModeLocalOnly, CallRequest: &candidate}, nil
	}

	id, wr, err := s.writeSubmission(ctx, snap, models.KindCall, candidate.CategoryName, candidate.ServiceName)
	if err != nil {
		return nil, err
	}
	candidate.ID = id
	candidate.TxHash = wr.TxHash
	if err := s.storeCall(ctx, candidate); err != nil {
		s.logger.ErrorContext(ctx, "view update failed after ledger submit", "id", id, "tx_hash", wr.TxHash, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, MessageViewUpdateFailed)
	}

	res = &SubmitResult{ID: id, Mode: models.ModeLedger, TxHash: wr.TxHash}
	res.EnrichmentErr = s.saveEnrichment(ctx, enrichmentmodels.Submission{
		RequestID:     id,
		WalletAddress: snap.Address,
		ServiceID:     candidate.ServiceID,
		ServiceType:   models.RequestTypeCall,
		TxHash:        wr.TxHash,
		FormFields:    candidate.FormFields,
	})
	if res.EnrichmentErr == nil {
		candidate.EnrichmentSynced = true
		s.markEnrichmentSynced(ctx, models.KindCall, id)
	}
	res.CallRequest = &candidate
	return res, nil
}

// writeSubmission performs the single ledger write for a submission and
// resolves the id the ledger assigned.
func (s *Service) writeSubmission(ctx context.Context, snap identity.Snapshot, kind models.Kind, category, name string) (string, *ledger.WriteResult, error) {
	wr, err := s.ledger.SubmitRequest(ctx, models.EncodeCategory(kind, category), name)
	if err != nil {
		s.metrics.ObserveLedgerWrite("submit", metrics.OutcomeFailure)
		s.emit(ctx, audit.EventRequestRejected, "", snap.Address, "", "", ledger.ReasonOf(err))
		s.logger.WarnContext(ctx, "ledger submit failed", "kind", kind, "error", err)
		return "", nil, translateLedgerError(err)
	}
	s.metrics.ObserveLedgerWrite("submit", metrics.OutcomeSuccess)

	seq := wr.AssignedID
	if !wr.HasAssignedID {
		seq, err = s.resolveAssignedID(ctx, snap.Address, models.EncodeCategory(kind, category), name)
		if err != nil {
			s.logger.ErrorContext(ctx, "assigned id missing from receipt", "tx_hash", wr.TxHash, "error", err)
			return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, MessageIDUndetermined)
		}
	}
	id := models.LedgerID(kind, seq)
	s.emit(ctx, audit.EventRequestSubmitted, id, snap.Address, wr.TxHash, string(models.StatusPending), "")
	s.logger.InfoContext(ctx, "request submitted", "id", id, "tx_hash", wr.TxHash)
	return id, wr, nil
}

// resolveAssignedID falls back to the newest ledger record when the receipt
// carried no event. It only trusts that record when it matches the caller.
func (s *Service) resolveAssignedID(ctx context.Context, owner, category, name string) (uint64, error) {
	total, err := s.ledger.TotalRequests(ctx)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, errors.New("ledger reports no requests")
	}
	rec, err := s.ledger.GetRequest(ctx, total)
	if err != nil {
		return 0, err
	}
	if !identity.SameAddress(rec.Owner, owner) || rec.Category != category || rec.Name != name {
		return 0, errors.New("newest ledger record belongs to another submission")
	}
	return rec.ID, nil
}

func (s *Service) saveEnrichment(ctx context.Context, sub enrichmentmodels.Submission) error {
	err := s.enrichment.SaveEnrichment(ctx, sub)
	if err == nil {
		return nil
	}
	s.metrics.IncrementEnrichmentFailures()
	s.emit(ctx, audit.EventEnrichmentFailed, sub.RequestID, sub.WalletAddress, sub.TxHash, "", err.Error())
	s.logger.WarnContext(ctx, "enrichment save failed; request exists on the ledger",
		"id", sub.RequestID, "tx_hash", sub.TxHash, "error", err)
	return err
}

func (s *Service) savedLocally(ctx context.Context, snap identity.Snapshot, id string) {
	reason := "offline"
	if snap.WrongNetwork() {
		reason = "wrong_network"
	}
	s.metrics.ObserveLedgerWrite("submit", metrics.OutcomeLocalOnly)
	s.emit(ctx, audit.EventRequestSavedLocally, id, snap.Address, "", string(models.StatusPending), reason)
	s.logger.InfoContext(ctx, "request saved locally", "id", id, "reason", reason)
}

func (s *Service) storeRequest(ctx context.Context, r models.Request) error {
	v, err := s.views.Update(ctx, func(v models.View) (models.View, error) {
		if i := v.FindRequest(r.ID); i >= 0 {
			v.Requests[i] = r.Clone()
		} else {
			v.Requests = append([]models.Request{r.Clone()}, v.Requests...)
		}
		return v, nil
	})
	if err != nil {
		return err
	}
	s.metrics.SetViewSize(len(v.Requests), len(v.CallRequests))
	return nil
}

func (s *Service) storeCall(ctx context.Context, c models.CallRequest) error {
	v, err := s.views.Update(ctx, func(v models.View) (models.View, error) {
		if i := v.FindCallRequest(c.ID); i >= 0 {
			v.CallRequests[i] = c.Clone()
		} else {
			v.CallRequests = append([]models.CallRequest{c.Clone()}, v.CallRequests...)
		}
		return v, nil
	})
	if err != nil {
		return err
	}
	s.metrics.SetViewSize(len(v.Requests), len(v.CallRequests))
	return nil
}

func (s *Service) markEnrichmentSynced(ctx context.Context, kind models.Kind, id string) {
	_, err := s.views.Update(ctx, func(v models.View) (models.View, error) {
		if kind == models.KindCall {
			if i := v.FindCallRequest(id); i >= 0 {
				v.CallRequests[i].EnrichmentSynced = true
			}
			return v, nil
		}
		if i := v.FindRequest(id); i >= 0 {
			v.Requests[i].EnrichmentSynced = true
		}
		return v, nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to mark enrichment synced", "id", id, "error", err)
	}
}

func uploadedFiles(in []Attachment) []models.UploadedFile {
	out := make([]models.UploadedFile, 0, len(in))
	for _, a := range in {
		ct := a.ContentType
		if ct == "" {
			ct = mimetype.Detect(a.Content).String()
		}
		out = append(out, models.UploadedFile{Name: a.Name, Type: ct, Size: int64(len(a.Content))})
	}
	return out
}

func enrichmentAttachments(in []Attachment) []enrichmentmodels.Attachment {
	out := make([]enrichmentmodels.Attachment, 0, len(in))
	for _, a := range in {
		out = append(out, enrichmentmodels.Attachment{Field: "documents", FileName: a.Name, Content: a.Content})
	}
	return out
}
