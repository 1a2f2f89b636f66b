package tbo

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// SearchParams is the backend-facing search input. It is translated into the
// supplier's wire shape by Search.
type SearchParams struct {
	Origin      string // IATA code
	Destination string // IATA code
	DepartDate  string // YYYY-MM-DD
	ReturnDate  string // YYYY-MM-DD, empty for one-way

	Adults   int
	Children int
	Infants  int

	CabinClass        int // CabinAny when zero
	PreferredAirlines []string
	DirectFlight      bool
	OneStopFlight     bool
}

func (p SearchParams) validate() error {
	if p.Origin == "" || p.Destination == "" {
		return &ValidationError{Reason: "origin and destination are required"}
	}
	if p.Adults < 1 {
		return &ValidationError{Reason: "at least one adult passenger is required"}
	}
	if p.Children < 0 || p.Infants < 0 {
		return &ValidationError{Reason: "passenger counts cannot be negative"}
	}
	if p.Infants > p.Adults {
		return &ValidationError{Reason: "each infant must be accompanied by an adult"}
	}
	if _, err := time.Parse("2006-01-02", p.DepartDate); err != nil {
		return &ValidationError{Reason: "depart date must be YYYY-MM-DD"}
	}
	if p.ReturnDate != "" {
		ret, err := time.Parse("2006-01-02", p.ReturnDate)
		if err != nil {
			return &ValidationError{Reason: "return date must be YYYY-MM-DD"}
		}
		dep, _ := time.Parse("2006-01-02", p.DepartDate)
		if ret.Before(dep) {
			return &ValidationError{Reason: "return date cannot be before depart date"}
		}
	}
	return nil
}

// Search runs a flight availability search. Round trips are expressed as two
// mirrored segments with JourneyType "2".
func (c *Client) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	token, err := c.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}

	cabin := p.CabinClass
	if cabin == 0 {
		cabin = CabinAny
	}

	journeyType := JourneyOneWay
	segments := []searchSegment{{
		Origin:                 p.Origin,
		Destination:            p.Destination,
		FlightCabinClass:       strconv.Itoa(cabin),
		PreferredDepartureTime: p.DepartDate + "T00:00:00",
		PreferredArrivalTime:   p.DepartDate + "T00:00:00",
	}}

	if p.ReturnDate != "" {
		journeyType = JourneyReturn
		segments = append(segments, searchSegment{
			Origin:                 p.Destination,
			Destination:            p.Origin,
			FlightCabinClass:       strconv.Itoa(cabin),
			PreferredDepartureTime: p.ReturnDate + "T00:00:00",
			PreferredArrivalTime:   p.ReturnDate + "T00:00:00",
		})
	}

	// PreferredAirlines must be null, not [], when the caller has no
	// preference.
	var airlines []string
	if len(p.PreferredAirlines) > 0 {
		airlines = p.PreferredAirlines
	}

	req := searchWireRequest{
		EndUserIp:         c.endUserIP,
		TokenId:           token,
		AdultCount:        strconv.Itoa(p.Adults),
		ChildCount:        strconv.Itoa(p.Children),
		InfantCount:       strconv.Itoa(p.Infants),
		DirectFlight:      strconv.FormatBool(p.DirectFlight),
		OneStopFlight:     strconv.FormatBool(p.OneStopFlight),
		JourneyType:       journeyType,
		PreferredAirlines: airlines,
		Segments:          segments,
	}

	var env envelope
	err = c.doPost(ctx, c.baseURL+"/Search", req, &env)
	if err == nil {
		err = envelopeError(&env)
	}
	c.record("search", err)
	if err != nil {
		return nil, err
	}

	var header responseHeader
	if err := json.Unmarshal(env.Response, &header); err != nil {
		return nil, &TransportError{Err: err}
	}

	return &SearchResult{TraceID: header.TraceId, Raw: env.Response}, nil
}

// FareRule fetches the fare rules for a previously searched result.
func (c *Client) FareRule(ctx context.Context, traceID, resultIndex string) (*FareRuleResult, error) {
	if traceID == "" || resultIndex == "" {
		return nil, &ValidationError{Reason: "trace id and result index are required"}
	}

	token, err := c.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}

	var env envelope
	err = c.doPost(ctx, c.baseURL+"/FareRule", traceRequest{
		EndUserIp:   c.endUserIP,
		TokenId:     token,
		TraceId:     traceID,
		ResultIndex: resultIndex,
	}, &env)
	if err == nil {
		err = envelopeError(&env)
	}
	c.record("fare_rule", err)
	if err != nil {
		return nil, err
	}

	return &FareRuleResult{Raw: env.Response}, nil
}

// GetFareQuote re-prices a result ahead of booking and returns the typed
// fare alongside the raw response.
func (c *Client) GetFareQuote(ctx context.Context, traceID, resultIndex string) (*FareQuote, error) {
	if traceID == "" || resultIndex == "" {
		return nil, &ValidationError{Reason: "trace id and result index are required"}
	}

	token, err := c.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}

	var env envelope
	err = c.doPost(ctx, c.baseURL+"/FareQuote", traceRequest{
		EndUserIp:   c.endUserIP,
		TokenId:     token,
		TraceId:     traceID,
		ResultIndex: resultIndex,
	}, &env)
	if err == nil {
		err = envelopeError(&env)
	}
	c.record("fare_quote", err)
	if err != nil {
		return nil, err
	}

	var resp fareQuoteResponse
	if err := json.Unmarshal(env.Response, &resp); err != nil {
		return nil, &TransportError{Err: err}
	}

	return &FareQuote{
		TraceID: resp.TraceId,
		Result:  resp.Results,
		Raw:     env.Response,
	}, nil
}

// envelopeError decodes the Response header far enough to apply the
// supplier's error precedence.
func envelopeError(env *envelope) error {
	var inner *APIError
	if len(env.Response) > 0 {
		var header responseHeader
		if err := json.Unmarshal(env.Response, &header); err == nil {
			inner = header.Error
		}
	}
	return extractError(inner, env.Error)
}
