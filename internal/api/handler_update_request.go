package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/cafedir/internal/admin"
	"github.com/ryanbastic/cafedir/internal/cafe"
	"github.com/ryanbastic/cafedir/internal/metrics"
	"github.com/ryanbastic/cafedir/internal/moderation"
)

// --- Huma Input/Output types ---

// ProposalBody lists the fields a visitor may propose. Omitted, null and
// blank values leave the cafe's field untouched.
type ProposalBody struct {
	Name         *string `json:"name,omitempty" nullable:"true" maxLength:"250"`
	Location     *string `json:"location,omitempty" nullable:"true"`
	CoffeePrice  *string `json:"coffee_price,omitempty" nullable:"true"`
	Seats        *string `json:"seats,omitempty" nullable:"true"`
	MapURL       *string `json:"map_url,omitempty" nullable:"true"`
	ImgURL       *string `json:"img_url,omitempty" nullable:"true"`
	HasToilet    *bool   `json:"has_toilet,omitempty" nullable:"true"`
	HasWifi      *bool   `json:"has_wifi,omitempty" nullable:"true"`
	HasSockets   *bool   `json:"has_sockets,omitempty" nullable:"true"`
	CanTakeCalls *bool   `json:"can_take_calls,omitempty" nullable:"true"`
}

func (b ProposalBody) proposal() cafe.Proposal {
	return cafe.Proposal{
		Name:         b.Name,
		Location:     b.Location,
		CoffeePrice:  b.CoffeePrice,
		Seats:        b.Seats,
		MapURL:       b.MapURL,
		ImgURL:       b.ImgURL,
		HasToilet:    cafe.FlagOf(b.HasToilet),
		HasWifi:      cafe.FlagOf(b.HasWifi),
		HasSockets:   cafe.FlagOf(b.HasSockets),
		CanTakeCalls: cafe.FlagOf(b.CanTakeCalls),
	}
}

type SubmitUpdateRequestInput struct {
	CafeID int64 `path:"cafe_id" doc:"Cafe ID"`
	Body   ProposalBody
}

type SubmitUpdateRequestResponse struct {
	Success   string `json:"success"`
	RequestID int64  `json:"request_id"`
}

type SubmitUpdateRequestOutput struct {
	Body SubmitUpdateRequestResponse
}

type ListUpdateRequestsInput struct {
	AdminAuth
}

type ListUpdateRequestsOutput struct {
	Body []moderation.DiffView
}

type ResolveUpdateRequestBody struct {
	Action       string `json:"action,omitempty" doc:"approve or reject"`
	CafeRevision *int64 `json:"cafe_revision,omitempty" nullable:"true" doc:"Cafe revision the decision was made against"`
}

type ResolveUpdateRequestInput struct {
	AdminAuth
	RequestID int64 `path:"request_id" doc:"Update request ID"`
	Body      ResolveUpdateRequestBody
}

type ResolveUpdateRequestResponse struct {
	Success     string      `json:"success"`
	Status      cafe.Status `json:"status"`
	UpdatedCafe *cafe.Cafe  `json:"updated_cafe,omitempty"`
}

type ResolveUpdateRequestOutput struct {
	Body ResolveUpdateRequestResponse
}

type DeleteUpdateRequestInput struct {
	AdminAuth
	RequestID int64 `path:"request_id" doc:"Update request ID"`
}

type SuccessResponse struct {
	Success string `json:"success"`
}

type DeleteUpdateRequestOutput struct {
	Body SuccessResponse
}

// --- Handler ---

type UpdateRequestHandler struct {
	workflow *moderation.Workflow
	gate     *admin.Gate
	logger   *slog.Logger
}

func NewUpdateRequestHandler(workflow *moderation.Workflow, gate *admin.Gate, logger *slog.Logger) *UpdateRequestHandler {
	return &UpdateRequestHandler{workflow: workflow, gate: gate, logger: logger}
}

func registerUpdateRequestRoutes(api huma.API, h *UpdateRequestHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-update-request",
		Method:        http.MethodPost,
		Path:          "/cafes/{cafe_id}/update-request",
		Summary:       "Propose changes to a cafe",
		Tags:          []string{"update-requests"},
		DefaultStatus: http.StatusCreated,
	}, h.Submit)

	adminOnly := huma.Middlewares{redirectBrowsers(h.gate)}

	huma.Register(api, huma.Operation{
		OperationID: "list-update-requests",
		Method:      http.MethodGet,
		Path:        "/admin/update-requests",
		Summary:     "List pending update requests with their diffs",
		Tags:        []string{"update-requests", "admin"},
		Middlewares: adminOnly,
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "resolve-update-request",
		Method:      http.MethodPatch,
		Path:        "/admin/update-requests/{request_id}",
		Summary:     "Approve or reject an update request",
		Tags:        []string{"update-requests", "admin"},
		Middlewares: adminOnly,
	}, h.Resolve)

	huma.Register(api, huma.Operation{
		OperationID: "delete-update-request",
		Method:      http.MethodDelete,
		Path:        "/admin/update-requests/{request_id}",
		Summary:     "Discard an update request",
		Tags:        []string{"update-requests", "admin"},
		Middlewares: adminOnly,
	}, h.Delete)
}

func (h *UpdateRequestHandler) Submit(ctx context.Context, input *SubmitUpdateRequestInput) (*SubmitUpdateRequestOutput, error) {
	req, err := h.workflow.Submit(ctx, input.CafeID, input.Body.proposal())
	metrics.RecordSubmission(outcome(err))
	if err != nil {
		return nil, toHumaError(h.logger, err, "failed to submit update request", "cafe_id", input.CafeID)
	}
	return &SubmitUpdateRequestOutput{Body: SubmitUpdateRequestResponse{
		Success:   "Cafe update request submitted. Awaiting approval.",
		RequestID: req.ID,
	}}, nil
}

func (h *UpdateRequestHandler) List(ctx context.Context, input *ListUpdateRequestsInput) (*ListUpdateRequestsOutput, error) {
	views, err := h.workflow.ListForAdmin(ctx, input.Credentials())
	if err != nil {
		return nil, toHumaError(h.logger, err, "failed to list update requests")
	}
	return &ListUpdateRequestsOutput{Body: views}, nil
}

func (h *UpdateRequestHandler) Resolve(ctx context.Context, input *ResolveUpdateRequestInput) (*ResolveUpdateRequestOutput, error) {
	res, err := h.workflow.Resolve(ctx, input.Credentials(), input.RequestID, input.Body.Action, input.Body.CafeRevision)
	metrics.RecordResolution(input.Body.Action, outcome(err))
	if err != nil {
		return nil, toHumaError(h.logger, err, "failed to resolve update request", "request_id", input.RequestID)
	}
	return &ResolveUpdateRequestOutput{Body: ResolveUpdateRequestResponse{
		Success:     fmt.Sprintf("Cafe update request %s successfully.", res.Status),
		Status:      res.Status,
		UpdatedCafe: res.UpdatedCafe,
	}}, nil
}

func (h *UpdateRequestHandler) Delete(ctx context.Context, input *DeleteUpdateRequestInput) (*DeleteUpdateRequestOutput, error) {
	if err := h.workflow.Delete(ctx, input.Credentials(), input.RequestID); err != nil {
		return nil, toHumaError(h.logger, err, "failed to delete update request", "request_id", input.RequestID)
	}
	return &DeleteUpdateRequestOutput{Body: SuccessResponse{Success: "Cafe update request deleted."}}, nil
}
