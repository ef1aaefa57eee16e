package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"civicledger/internal/requests/models"
	"civicledger/internal/requests/service"
	dErrors "civicledger/pkg/domain-errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type attachmentRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	ContentType string `json:"content_type"`
	// Content is base64 in JSON.
	Content []byte `json:"content" validate:"required"`
}

type submitRequest struct {
	ServiceID    string              `json:"service_id" validate:"max=100"`
	ServiceName  string              `json:"service_name" validate:"required,max=200"`
	CategoryName string              `json:"category_name" validate:"required,max=100"`
	FormFields   map[string]string   `json:"form_fields"`
	Attachments  []attachmentRequest `json:"attachments" validate:"max=10,dive"`
}

func (r submitRequest) toInput() service.SubmitInput {
	in := service.SubmitInput{
		ServiceID:    r.ServiceID,
		ServiceName:  r.ServiceName,
		CategoryName: r.CategoryName,
		FormFields:   r.FormFields,
	}
	for _, a := range r.Attachments {
		in.Attachments = append(in.Attachments, service.Attachment{Name: a.Name, ContentType: a.ContentType, Content: a.Content})
	}
	return in
}

type submitCallRequest struct {
	ServiceID    string            `json:"service_id" validate:"max=100"`
	ServiceName  string            `json:"service_name" validate:"required,max=200"`
	CategoryName string            `json:"category_name" validate:"required,max=100"`
	SelectedItem string            `json:"selected_item" validate:"max=200"`
	FormFields   map[string]string `json:"form_fields"`
}

func (r submitCallRequest) toInput() service.SubmitCallInput {
	return service.SubmitCallInput{
		ServiceID:    r.ServiceID,
		ServiceName:  r.ServiceName,
		CategoryName: r.CategoryName,
		SelectedItem: r.SelectedItem,
		FormFields:   r.FormFields,
	}
}

type updateStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=pending processing completed rejected"`
	Remarks string `json:"remarks" validate:"max=2000"`
}

type updateCallStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending contacted completed"`
}

type registerDepartmentRequest struct {
	Address string `json:"address" validate:"required,eth_addr"`
}

type submitResponse struct {
	ID               string              `json:"id"`
	Mode             models.Mode         `json:"mode"`
	TxHash           string              `json:"tx_hash,omitempty"`
	EnrichmentSynced bool                `json:"enrichment_synced"`
	EnrichmentError  string              `json:"enrichment_error,omitempty"`
	Request          *models.Request     `json:"request,omitempty"`
	CallRequest      *models.CallRequest `json:"call_request,omitempty"`
}

func toSubmitResponse(res *service.SubmitResult) submitResponse {
	out := submitResponse{
		ID:          res.ID,
		Mode:        res.Mode,
		TxHash:      res.TxHash,
		Request:     res.Request,
		CallRequest: res.CallRequest,
	}
	if res.EnrichmentErr != nil {
		out.EnrichmentError = res.EnrichmentErr.Error()
	} else {
		out.EnrichmentSynced = res.Mode == models.ModeLedger
	}
	return out
}

type transitionResponse struct {
	ID         string        `json:"id"`
	Status     models.Status `json:"status"`
	Department string        `json:"department,omitempty"`
	TxHash     string        `json:"tx_hash,omitempty"`
	LocalOnly  bool          `json:"local_only"`
}

func toTransitionResponse(res *service.TransitionResult) transitionResponse {
	return transitionResponse{
		ID:         res.ID,
		Status:     res.Status,
		Department: res.Department,
		TxHash:     res.TxHash,
		LocalOnly:  res.LocalOnly,
	}
}

type syncResponse struct {
	Skipped      bool `json:"skipped"`
	Fetched      int  `json:"fetched"`
	Requests     int  `json:"requests"`
	CallRequests int  `json:"call_requests"`
}

type departmentResponse struct {
	Address      string `json:"address"`
	IsDepartment bool   `json:"is_department"`
	TxHash       string `json:"tx_hash,omitempty"`
}

// validationError flattens validator output into one coded error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return dErrors.New(dErrors.CodeValidation, strings.Join(msgs, "; "))
}
