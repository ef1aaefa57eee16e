package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus tracks the off-chain review state of an application.
type ApplicationStatus string

const (
	ApplicationSubmitted  ApplicationStatus = "Submitted"
	ApplicationProcessing ApplicationStatus = "Processing"
	ApplicationApproved   ApplicationStatus = "Approved"
	ApplicationRejected   ApplicationStatus = "Rejected"
)

type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "Pending"
	DocumentVerified DocumentStatus = "Verified"
	DocumentRejected DocumentStatus = "Rejected"
)

// Defaults applied when a submission leaves a field blank.
const (
	DefaultServiceID     = "GENERIC_SERVICE"
	DefaultServiceType   = "NOT_SPECIFIED"
	DefaultApplicantName = "Anonymous"
	DefaultDocumentType  = "Other"
)

// Applicant is a wallet owner known to the store.
type Applicant struct {
	ID            uuid.UUID `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DocumentRef is the summary of a document embedded in its application.
type DocumentRef struct {
	DocumentType string         `json:"document_type"`
	URL          string         `json:"url"`
	Status       DocumentStatus `json:"status"`
}

// Application holds the enrichment for one ledger request.
type Application struct {
	ID            uuid.UUID         `json:"id"`
	RequestID     string            `json:"request_id"`
	ServiceID     string            `json:"service_id"`
	ServiceType   string            `json:"service_type"`
	WalletAddress string            `json:"wallet_address"`
	ApplicantName string            `json:"applicant_name"`
	BlockchainRef string            `json:"blockchain_ref,omitempty"`
	Data          map[string]string `json:"data"`
	Documents     []DocumentRef     `json:"documents"`
	Status        ApplicationStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Document is one stored attachment.
type Document struct {
	ID            uuid.UUID      `json:"id"`
	ApplicantID   uuid.UUID      `json:"applicant_id"`
	ApplicationID uuid.UUID      `json:"application_id"`
	DocumentType  string         `json:"document_type"`
	DocumentURL   string         `json:"document_url"`
	FileType      string         `json:"file_type"`
	FileExtension string         `json:"file_extension"`
	Size          int64          `json:"size"`
	Status        DocumentStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}

// DocumentDetails resolves a document reference for administrative inspection.
type DocumentDetails struct {
	Document    Document     `json:"document"`
	Applicant   *Applicant   `json:"applicant,omitempty"`
	Application *Application `json:"application,omitempty"`
}

// Attachment is an uploaded file as received.
type Attachment struct {
	Field    string
	FileName string
	Content  []byte
}

// Submission is the input for creating an application.
type Submission struct {
	RequestID     string
	WalletAddress string
	ServiceID     string
	ServiceType   string
	TxHash        string
	FormFields    map[string]string
	Attachments   []Attachment
}

// ApplicantName picks the display name from the form fields.
func (s Submission) ApplicantName() string {
	if n := s.FormFields["fullName"]; n != "" {
		return n
	}
	if n := s.FormFields["applicantName"]; n != "" {
		return n
	}
	return DefaultApplicantName
}

// SubmitResult is the saved application plus its per-document records.
type SubmitResult struct {
	Application *Application `json:"app"`
	Documents   []Document   `json:"documents"`
}
