package tbo

import (
	"context"
	"encoding/json"

	"github.com/plumtrips/backend/pkg/slogx"
)

// Traveller is the backend-facing passenger input for a booking.
type Traveller struct {
	Title       string
	FirstName   string
	LastName    string
	PaxType     int // PaxAdult, PaxChild, PaxInfant
	DateOfBirth string
	Gender      int

	PassportNo     string
	PassportExpiry string
	Nationality    string

	AddressLine1 string
	City         string
	CountryCode  string
	CountryName  string

	ContactNo string
	Email     string
	IsLeadPax bool
}

// BookingAddress is the billing address attached at the booking level.
// Fields left empty fall back to the agency defaults when the booking is
// submitted.
type BookingAddress struct {
	AddressLine string
	City        string
	CountryCode string
	ZipCode     string
}

// GSTDetails are the optional GST invoice fields for corporate bookings.
type GSTDetails struct {
	CompanyAddress       string
	CompanyContactNumber string
	CompanyName          string
	Number               string
	CompanyEmail         string
}

type BookParams struct {
	TraceID     string
	ResultIndex string
	Travellers  []Traveller

	// Booking-level contact details. Travellers without their own contact
	// fields inherit these.
	ContactEmail  string
	ContactMobile string

	Address BookingAddress
	GST     GSTDetails

	IsLCC       bool
	BlockedFare bool
}

func (p BookParams) validate() error {
	if p.TraceID == "" || p.ResultIndex == "" {
		return &ValidationError{Reason: "trace id and result index are required"}
	}
	if len(p.Travellers) == 0 {
		return &ValidationError{Reason: "at least one traveller is required"}
	}
	if p.ContactEmail == "" || p.ContactMobile == "" {
		return &ValidationError{Reason: "contact email and mobile are required"}
	}
	for _, t := range p.Travellers {
		if t.FirstName == "" || t.LastName == "" {
			return &ValidationError{Reason: "traveller first and last name are required"}
		}
		switch t.PaxType {
		case PaxAdult, PaxChild, PaxInfant:
		default:
			return &ValidationError{Reason: "traveller pax type must be adult, child or infant"}
		}
	}
	return nil
}

// Book re-quotes the itinerary, attaches per-passenger fares derived from the
// quote's breakdown, and submits the booking. The supplier rejects bookings
// whose passenger fares don't match the quote, so the quote always runs first
// and a missing breakdown entry aborts before any Book call is made.
func (c *Client) Book(ctx context.Context, p BookParams) (*BookResult, error) {
	log := slogx.FromContext(ctx)

	if err := p.validate(); err != nil {
		return nil, err
	}

	quote, err := c.GetFareQuote(ctx, p.TraceID, p.ResultIndex)
	if err != nil {
		return nil, err
	}
	if quote.Result == nil {
		return nil, &BusinessError{Message: "fare quote returned no results"}
	}

	if quote.Result.IsPriceChanged {
		log.Info("fare changed since search, booking at quoted fare",
			"trace_id", p.TraceID,
			"published_fare", quote.Result.Fare.PublishedFare,
		)
	}

	passengers, err := buildPassengers(p, quote.Result)
	if err != nil {
		return nil, err
	}

	token, err := c.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}

	// Booking-level address defaults apply only where the caller left a
	// field empty.
	addr := bookAddress{
		AddressLine: defaultStr(p.Address.AddressLine, "N/A"),
		City:        defaultStr(p.Address.City, "Delhi"),
		CountryCode: defaultStr(p.Address.CountryCode, "IN"),
		ZipCode:     defaultStr(p.Address.ZipCode, "110001"),
	}

	var env envelope
	err = c.doPost(ctx, c.baseURL+"/Book", bookWireRequest{
		EndUserIp:   c.endUserIP,
		TokenId:     token,
		TraceId:     p.TraceID,
		ResultIndex: quote.Result.ResultIndex,
		Passengers:  passengers,
		Address:     addr,
		Contact: bookContact{
			Email:  p.ContactEmail,
			Mobile: p.ContactMobile,
		},
		GSTCompanyAddress:       p.GST.CompanyAddress,
		GSTCompanyContactNumber: p.GST.CompanyContactNumber,
		GSTCompanyName:          p.GST.CompanyName,
		GSTNumber:               p.GST.Number,
		GSTCompanyEmail:         p.GST.CompanyEmail,
		IsLCC:                   p.IsLCC,
		BlockedFare:             p.BlockedFare,
	}, &env)
	if err == nil {
		err = envelopeError(&env)
	}
	c.record("book", err)
	if err != nil {
		return nil, err
	}

	var resp bookResponse
	if err := json.Unmarshal(env.Response, &resp); err != nil {
		return nil, &TransportError{Err: err}
	}

	result := &BookResult{TraceID: resp.TraceId, Raw: env.Response}
	if resp.Response != nil {
		result.PNR = resp.Response.PNR
		result.BookingID = resp.Response.BookingId
	}
	return result, nil
}

// buildPassengers maps travellers onto the supplier's passenger shape with
// fares attached verbatim from the quote breakdown. The supplier compares
// submitted fares against its own quote, so the values are never recomputed
// here.
func buildPassengers(p BookParams, quote *FareQuoteResult) ([]Passenger, error) {
	travellers := p.Travellers

	fareByPax := make(map[int]FareBreakdown, len(quote.FareBreakdown))
	for _, bd := range quote.FareBreakdown {
		fareByPax[bd.PassengerType] = bd
	}

	hasLead := false
	for _, t := range travellers {
		if t.IsLeadPax {
			hasLead = true
			break
		}
	}

	passengers := make([]Passenger, 0, len(travellers))
	for i, t := range travellers {
		bd, ok := fareByPax[t.PaxType]
		if !ok {
			return nil, &FareMismatchError{PaxType: t.PaxType}
		}

		fare := Fare{
			Currency:             defaultStr(bd.Currency, quote.Fare.Currency),
			BaseFare:             bd.BaseFare,
			Tax:                  bd.Tax,
			YQTax:                fallback(bd.YQTax, quote.Fare.YQTax),
			AdditionalTxnFeeOfrd: fallback(bd.AdditionalTxnFeeOfrd, quote.Fare.AdditionalTxnFeeOfrd),
			AdditionalTxnFeePub:  fallback(bd.AdditionalTxnFeePub, quote.Fare.AdditionalTxnFeePub),
			PGCharge:             fallback(bd.PGCharge, quote.Fare.PGCharge),
			OtherCharges:         quote.Fare.OtherCharges,
			ServiceFee:           quote.Fare.ServiceFee,
		}

		pax := Passenger{
			Title:          t.Title,
			FirstName:      t.FirstName,
			LastName:       t.LastName,
			PaxType:        t.PaxType,
			DateOfBirth:    t.DateOfBirth,
			Gender:         t.Gender,
			PassportNo:     t.PassportNo,
			PassportExpiry: t.PassportExpiry,
			Nationality:    t.Nationality,
			AddressLine1:   defaultStr(t.AddressLine1, p.Address.AddressLine),
			City:           defaultStr(t.City, p.Address.City),
			CountryCode:    defaultStr(t.CountryCode, p.Address.CountryCode),
			CountryName:    t.CountryName,
			ContactNo:      defaultStr(t.ContactNo, p.ContactMobile),
			Email:          defaultStr(t.Email, p.ContactEmail),
			IsLeadPax:      t.IsLeadPax || (!hasLead && i == 0),
			Fare:           &fare,
		}
		passengers = append(passengers, pax)
	}

	return passengers, nil
}

func fallback(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

func defaultStr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// Ticket issues the ticket for a held booking. Only the booking id is
// mandatory: LCC bookings ticket by id alone, while GDS bookings carry the
// PNR and trace id when the caller has them.
func (c *Client) Ticket(ctx context.Context, traceID, pnr string, bookingID int64) (*TicketResult, error) {
	if bookingID == 0 {
		return nil, &ValidationError{Reason: "booking id is required"}
	}

	token, err := c.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}

	var env envelope
	err = c.doPost(ctx, c.baseURL+"/Ticket", ticketWireRequest{
		EndUserIp: c.endUserIP,
		TokenId:   token,
		TraceId:   traceID,
		PNR:       pnr,
		BookingId: bookingID,
	}, &env)
	if err == nil {
		err = envelopeError(&env)
	}
	c.record("ticket", err)
	if err != nil {
		return nil, err
	}

	return &TicketResult{Raw: env.Response}, nil
}

// GetBookingDetails fetches the supplier's record of a booking by id or PNR.
func (c *Client) GetBookingDetails(ctx context.Context, traceID, pnr string, bookingID int64) (*BookingDetails, error) {
	if bookingID == 0 && pnr == "" {
		return nil, &ValidationError{Reason: "booking id or pnr is required"}
	}

	token, err := c.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}

	var env envelope
	err = c.doPost(ctx, c.baseURL+"/GetBookingDetails", bookingDetailsWireRequest{
		EndUserIp: c.endUserIP,
		TokenId:   token,
		TraceId:   traceID,
		PNR:       pnr,
		BookingId: bookingID,
	}, &env)
	if err == nil {
		err = envelopeError(&env)
	}
	c.record("booking_details", err)
	if err != nil {
		return nil, err
	}

	return &BookingDetails{Raw: env.Response}, nil
}
