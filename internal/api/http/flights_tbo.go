package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/plumtrips/backend/internal/tbo"
	"github.com/plumtrips/backend/pkg/httpx"
	"github.com/plumtrips/backend/pkg/slogx"
)

// TBOHandler fronts the supplier flight API. Requests are reshaped into
// typed client calls; responses pass through the supplier's raw payload
// plus the handles (trace id, result index, pnr) later steps need.
type TBOHandler struct {
	Client *tbo.Client
}

type tboSearchRequest struct {
	Origin            string   `json:"origin"`
	Destination       string   `json:"destination"`
	DepartDate        string   `json:"depart_date"`
	ReturnDate        string   `json:"return_date"`
	Adults            int      `json:"adults"`
	Children          int      `json:"children"`
	Infants           int      `json:"infants"`
	CabinClass        int      `json:"cabin_class"`
	PreferredAirlines []string `json:"preferred_airlines"`
	DirectFlight      bool     `json:"direct_flight"`
	OneStopFlight     bool     `json:"one_stop_flight"`
}

func (h *TBOHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req tboSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Adults == 0 {
		req.Adults = 1
	}

	res, err := h.Client.Search(r.Context(), tbo.SearchParams{
		Origin:            req.Origin,
		Destination:       req.Destination,
		DepartDate:        req.DepartDate,
		ReturnDate:        req.ReturnDate,
		Adults:            req.Adults,
		Children:          req.Children,
		Infants:           req.Infants,
		CabinClass:        req.CabinClass,
		PreferredAirlines: req.PreferredAirlines,
		DirectFlight:      req.DirectFlight,
		OneStopFlight:     req.OneStopFlight,
	})
	if err != nil {
		writeTBOError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"trace_id": res.TraceID,
		"results":  json.RawMessage(res.Raw),
	})
}

type tboFareRequest struct {
	TraceID     string `json:"trace_id"`
	ResultIndex string `json:"result_index"`
}

func (h *TBOHandler) HandleFareRule(w http.ResponseWriter, r *http.Request) {
	var req tboFareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Client.FareRule(r.Context(), req.TraceID, req.ResultIndex)
	if err != nil {
		writeTBOError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"fare_rules": json.RawMessage(res.Raw),
	})
}

func (h *TBOHandler) HandleFareQuote(w http.ResponseWriter, r *http.Request) {
	var req tboFareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Client.GetFareQuote(r.Context(), req.TraceID, req.ResultIndex)
	if err != nil {
		writeTBOError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"trace_id": res.TraceID,
		"quote":    json.RawMessage(res.Raw),
	})
}

type tboTravellerRequest struct {
	Title          string `json:"title"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PaxType        int    `json:"pax_type"`
	DateOfBirth    string `json:"date_of_birth"`
	Gender         int    `json:"gender"`
	PassportNo     string `json:"passport_no"`
	PassportExpiry string `json:"passport_expiry"`
	Nationality    string `json:"nationality"`
	AddressLine1   string `json:"address_line1"`
	City           string `json:"city"`
	CountryCode    string `json:"country_code"`
	CountryName    string `json:"country_name"`
	ContactNo      string `json:"contact_no"`
	Email          string `json:"email"`
	IsLeadPax      bool   `json:"is_lead_pax"`
}

type tboAddressRequest struct {
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
	ZipCode     string `json:"zip_code"`
}

type tboGSTRequest struct {
	CompanyAddress       string `json:"company_address"`
	CompanyContactNumber string `json:"company_contact_number"`
	CompanyName          string `json:"company_name"`
	Number               string `json:"number"`
	CompanyEmail         string `json:"company_email"`
}

type tboBookRequest struct {
	TraceID       string                `json:"trace_id"`
	ResultIndex   string                `json:"result_index"`
	ContactEmail  string                `json:"contact_email"`
	ContactMobile string                `json:"contact_mobile"`
	Address       tboAddressRequest     `json:"address"`
	GST           tboGSTRequest         `json:"gst"`
	IsLCC         bool                  `json:"is_lcc"`
	BlockedFare   bool                  `json:"blocked_fare"`
	Travellers    []tboTravellerRequest `json:"travellers"`
}

func (h *TBOHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	var req tboBookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	travellers := make([]tbo.Traveller, 0, len(req.Travellers))
	for _, t := range req.Travellers {
		travellers = append(travellers, tbo.Traveller{
			Title:          t.Title,
			FirstName:      t.FirstName,
			LastName:       t.LastName,
			PaxType:        t.PaxType,
			DateOfBirth:    t.DateOfBirth,
			Gender:         t.Gender,
			PassportNo:     t.PassportNo,
			PassportExpiry: t.PassportExpiry,
			Nationality:    t.Nationality,
			AddressLine1:   t.AddressLine1,
			City:           t.City,
			CountryCode:    t.CountryCode,
			CountryName:    t.CountryName,
			ContactNo:      t.ContactNo,
			Email:          t.Email,
			IsLeadPax:      t.IsLeadPax,
		})
	}

	res, err := h.Client.Book(r.Context(), tbo.BookParams{
		TraceID:       req.TraceID,
		ResultIndex:   req.ResultIndex,
		ContactEmail:  req.ContactEmail,
		ContactMobile: req.ContactMobile,
		Address: tbo.BookingAddress{
			AddressLine: req.Address.AddressLine,
			City:        req.Address.City,
			CountryCode: req.Address.CountryCode,
			ZipCode:     req.Address.ZipCode,
		},
		GST: tbo.GSTDetails{
			CompanyAddress:       req.GST.CompanyAddress,
			CompanyContactNumber: req.GST.CompanyContactNumber,
			CompanyName:          req.GST.CompanyName,
			Number:               req.GST.Number,
			CompanyEmail:         req.GST.CompanyEmail,
		},
		IsLCC:       req.IsLCC,
		BlockedFare: req.BlockedFare,
		Travellers:  travellers,
	})
	if err != nil {
		writeTBOError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"trace_id":   res.TraceID,
		"pnr":        res.PNR,
		"booking_id": res.BookingID,
		"details":    json.RawMessage(res.Raw),
	})
}

type tboTicketRequest struct {
	TraceID   string `json:"trace_id"`
	PNR       string `json:"pnr"`
	BookingID int64  `json:"booking_id"`
}

func (h *TBOHandler) HandleTicket(w http.ResponseWriter, r *http.Request) {
	var req tboTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Client.Ticket(r.Context(), req.TraceID, req.PNR, req.BookingID)
	if err != nil {
		writeTBOError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ticket": json.RawMessage(res.Raw),
	})
}

func (h *TBOHandler) HandleBookingDetails(w http.ResponseWriter, r *http.Request) {
	var req tboTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Client.GetBookingDetails(r.Context(), req.TraceID, req.PNR, req.BookingID)
	if err != nil {
		writeTBOError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"booking": json.RawMessage(res.Raw),
	})
}

// writeTBOError maps the flight client's error taxonomy onto stable reason
// codes. Local validation is the caller's fault; everything upstream comes
// back as a gateway failure with the supplier's message attached.
func writeTBOError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *tbo.ValidationError
		fm   *tbo.FareMismatchError
		berr *tbo.BusinessError
		terr *tbo.TransportError
	)

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "invalid_request", verr.Reason)
	case errors.As(err, &fm):
		writeError(w, http.StatusConflict, "fare_mismatch", fm.Error())
	case errors.Is(err, tbo.ErrUpstreamAuth):
		writeError(w, http.StatusBadGateway, "upstream_auth_failed", "Supplier authentication failed")
	case errors.As(err, &berr):
		writeError(w, http.StatusBadGateway, "upstream_business_error", berr.Message)
	case errors.As(err, &terr):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "Supplier request failed")
	default:
		slogx.FromContext(r.Context()).Error("flight proxy call failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Flight request failed")
	}
}
