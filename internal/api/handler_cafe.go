package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/cafedir/internal/admin"
	"github.com/ryanbastic/cafedir/internal/cafe"
	"github.com/ryanbastic/cafedir/internal/directory"
)

// --- Huma Input/Output types ---

type ListCafesInput struct {
	Cursor string `query:"cursor" doc:"Opaque cursor from a previous page"`
	Limit  int    `query:"limit" minimum:"0" doc:"Page size, default 50, capped at 200"`
}

type CafePage struct {
	Cafes      []cafe.Cafe `json:"cafes"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

type ListCafesOutput struct {
	Body CafePage
}

type CafeIDInput struct {
	CafeID int64 `path:"cafe_id" doc:"Cafe ID"`
}

type CafeOutput struct {
	Body *cafe.Cafe
}

type SearchCafesInput struct {
	Location string `path:"location" doc:"Case-insensitive location fragment" minLength:"1"`
}

type CafeListOutput struct {
	Body []cafe.Cafe
}

type AddCafeBody struct {
	Name         string  `json:"name" doc:"Unique cafe name" minLength:"1" maxLength:"250"`
	MapURL       string  `json:"map_url,omitempty" doc:"Map link"`
	ImgURL       string  `json:"img_url,omitempty" doc:"Image link"`
	Location     string  `json:"location,omitempty" doc:"Neighbourhood or area"`
	Seats        string  `json:"seats,omitempty" doc:"Seating capacity, e.g. 20-30"`
	CoffeePrice  *string `json:"coffee_price,omitempty" doc:"Price of a coffee" nullable:"true"`
	HasToilet    bool    `json:"has_toilet,omitempty"`
	HasWifi      bool    `json:"has_wifi,omitempty"`
	HasSockets   bool    `json:"has_sockets,omitempty"`
	CanTakeCalls bool    `json:"can_take_calls,omitempty"`
}

type AddCafeInput struct {
	Body AddCafeBody
}

type AddCafeResponse struct {
	Success string     `json:"success"`
	Cafe    *cafe.Cafe `json:"cafe"`
}

type AddCafeOutput struct {
	Body AddCafeResponse
}

type DeleteCafeInput struct {
	AdminAuth
	CafeID int64 `path:"cafe_id" doc:"Cafe ID"`
}

type DeleteCafeResponse struct {
	Success         string `json:"success"`
	RemovedRequests int64  `json:"removed_requests" doc:"Update requests removed with the cafe"`
}

type DeleteCafeOutput struct {
	Body DeleteCafeResponse
}

// --- Handler ---

type CafeHandler struct {
	directory *directory.Service
	gate      *admin.Gate
	logger    *slog.Logger
}

func NewCafeHandler(directory *directory.Service, gate *admin.Gate, logger *slog.Logger) *CafeHandler {
	return &CafeHandler{directory: directory, gate: gate, logger: logger}
}

func registerCafeRoutes(api huma.API, h *CafeHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-cafes",
		Method:      http.MethodGet,
		Path:        "/cafes",
		Summary:     "List cafes",
		Tags:        []string{"cafes"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "random-cafe",
		Method:      http.MethodGet,
		Path:        "/cafes/random",
		Summary:     "Get a random cafe",
		Tags:        []string{"cafes"},
	}, h.Random)

	huma.Register(api, huma.Operation{
		OperationID: "search-cafes-by-location",
		Method:      http.MethodGet,
		Path:        "/cafes/location/{location}",
		Summary:     "Search cafes by location",
		Tags:        []string{"cafes"},
	}, h.SearchByLocation)

	huma.Register(api, huma.Operation{
		OperationID: "get-cafe",
		Method:      http.MethodGet,
		Path:        "/cafes/{cafe_id}",
		Summary:     "Get a cafe",
		Tags:        []string{"cafes"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID:   "add-cafe",
		Method:        http.MethodPost,
		Path:          "/cafes",
		Summary:       "Add a cafe",
		Tags:          []string{"cafes"},
		DefaultStatus: http.StatusCreated,
	}, h.Add)

	huma.Register(api, huma.Operation{
		OperationID: "delete-cafe",
		Method:      http.MethodDelete,
		Path:        "/cafes/{cafe_id}",
		Summary:     "Delete a cafe and its pending update requests",
		Tags:        []string{"cafes", "admin"},
		Middlewares: huma.Middlewares{redirectBrowsers(h.gate)},
	}, h.Delete)
}

func (h *CafeHandler) List(ctx context.Context, input *ListCafesInput) (*ListCafesOutput, error) {
	page, err := h.directory.List(ctx, input.Cursor, input.Limit)
	if err != nil {
		return nil, toHumaError(h.logger, err, "failed to list cafes")
	}
	return &ListCafesOutput{Body: CafePage{
		Cafes:      page.Cafes,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}}, nil
}

func (h *CafeHandler) Random(ctx context.Context, _ *struct{}) (*CafeOutput, error) {
	c, err := h.directory.Random(ctx)
	if err != nil {
		return nil, toHumaError(h.logger, err, "failed to pick a cafe")
	}
	return &CafeOutput{Body: c}, nil
}

func (h *CafeHandler) SearchByLocation(ctx context.Context, input *SearchCafesInput) (*CafeListOutput, error) {
	cafes, err := h.directory.SearchByLocation(ctx, input.Location)
	if err != nil {
		return nil, toHumaError(h.logger, err, "failed to search cafes", "location", input.Location)
	}
	return &CafeListOutput{Body: cafes}, nil
}

func (h *CafeHandler) Get(ctx context.Context, input *CafeIDInput) (*CafeOutput, error) {
	c, err := h.directory.Get(ctx, input.CafeID)
	if err != nil {
		return nil, toHumaError(h.logger, err, "failed to get cafe", "cafe_id", input.CafeID)
	}
	return &CafeOutput{Body: c}, nil
}

func (h *CafeHandler) Add(ctx context.Context, input *AddCafeInput) (*AddCafeOutput, error) {
	b := input.Body
	c, err := h.directory.Add(ctx, cafe.NewCafe{
		Name:        b.Name,
		MapURL:      b.MapURL,
		ImgURL:      b.ImgURL,
		Location:    b.Location,
		Seats:       b.Seats,
		CoffeePrice: b.CoffeePrice,
		Amenities: cafe.Amenities{
			HasToilet:    b.HasToilet,
			HasWifi:      b.HasWifi,
			HasSockets:   b.HasSockets,
			CanTakeCalls: b.CanTakeCalls,
		},
	})
	if err != nil {
		return nil, toHumaError(h.logger, err, "failed to add cafe", "name", b.Name)
	}
	return &AddCafeOutput{Body: AddCafeResponse{Success: "Successfully added new cafe", Cafe: c}}, nil
}

func (h *CafeHandler) Delete(ctx context.Context, input *DeleteCafeInput) (*DeleteCafeOutput, error) {
	removed, err := h.directory.Delete(ctx, input.Credentials(), input.CafeID)
	if err != nil {
		return nil, toHumaError(h.logger, err, "failed to delete cafe", "cafe_id", input.CafeID)
	}
	return &DeleteCafeOutput{Body: DeleteCafeResponse{
		Success:         "Successfully removed cafe",
		RemovedRequests: removed,
	}}, nil
}
