package tbo

import "encoding/json"

// Passenger types used by the supplier.
const (
	PaxAdult  = 1
	PaxChild  = 2
	PaxInfant = 3
)

// Journey types. The supplier expects these as strings.
const (
	JourneyOneWay = "1"
	JourneyReturn = "2"
)

// Cabin classes.
const (
	CabinAny             = 1
	CabinEconomy         = 2
	CabinPremiumEconomy  = 3
	CabinBusiness        = 4
	CabinPremiumBusiness = 5
	CabinFirst           = 6
)

// APIError is the supplier's embedded error object. ErrorCode 0 means no
// error even when the object is present.
type APIError struct {
	ErrorCode    int    `json:"ErrorCode"`
	ErrorMessage string `json:"ErrorMessage"`
}

type authRequest struct {
	ClientId string `json:"ClientId"`
	UserName string `json:"UserName"`
	Password string `json:"Password"`
	EndUserIp string `json:"EndUserIp"`
}

// authEnvelope covers both token placements the supplier has been observed
// to use: nested under Response and at the top level.
type authEnvelope struct {
	TokenId  string    `json:"TokenId"`
	Error    *APIError `json:"Error"`
	Response *struct {
		TokenId string    `json:"TokenId"`
		Error   *APIError `json:"Error"`
	} `json:"Response"`
}

type searchSegment struct {
	Origin                 string `json:"Origin"`
	Destination            string `json:"Destination"`
	FlightCabinClass       string `json:"FlightCabinClass"`
	PreferredDepartureTime string `json:"PreferredDepartureTime"`
	PreferredArrivalTime   string `json:"PreferredArrivalTime"`
}

// Counts, stop flags and cabin class travel as strings; the supplier rejects
// numeric encodings of these fields.
type searchWireRequest struct {
	EndUserIp         string          `json:"EndUserIp"`
	TokenId           string          `json:"TokenId"`
	AdultCount        string          `json:"AdultCount"`
	ChildCount        string          `json:"ChildCount"`
	InfantCount       string          `json:"InfantCount"`
	DirectFlight      string          `json:"DirectFlight"`
	OneStopFlight     string          `json:"OneStopFlight"`
	JourneyType       string          `json:"JourneyType"`
	PreferredAirlines []string        `json:"PreferredAirlines"` // nil serialises to null, which the supplier requires when unused
	Segments          []searchSegment `json:"Segments"`
	Sources           []string        `json:"Sources"`
}

// envelope is the generic response wrapper. Results stay raw because the
// backend proxies them through to the frontend untouched.
type envelope struct {
	Error    *APIError       `json:"Error"`
	Response json.RawMessage `json:"Response"`
}

type responseHeader struct {
	TraceId        string    `json:"TraceId"`
	ResponseStatus int       `json:"ResponseStatus"`
	Error          *APIError `json:"Error"`
}

// SearchResult is the search response with the supplier's trace handle and
// the raw result matrix.
type SearchResult struct {
	TraceID string
	Raw     json.RawMessage // full Response object as received
}

type traceRequest struct {
	EndUserIp   string `json:"EndUserIp"`
	TokenId     string `json:"TokenId"`
	TraceId     string `json:"TraceId"`
	ResultIndex string `json:"ResultIndex"`
}

// FareRuleResult carries the raw fare rules for a result index.
type FareRuleResult struct {
	Raw json.RawMessage
}

// Fare is the supplier's fare object, shared by quotes and per-passenger
// booking fares.
type Fare struct {
	Currency             string  `json:"Currency"`
	BaseFare             float64 `json:"BaseFare"`
	Tax                  float64 `json:"Tax"`
	YQTax                float64 `json:"YQTax"`
	AdditionalTxnFeeOfrd float64 `json:"AdditionalTxnFeeOfrd"`
	AdditionalTxnFeePub  float64 `json:"AdditionalTxnFeePub"`
	PGCharge             float64 `json:"PGCharge"`
	OtherCharges         float64 `json:"OtherCharges"`
	ServiceFee           float64 `json:"ServiceFee"`
	PublishedFare        float64 `json:"PublishedFare"`
	OfferedFare          float64 `json:"OfferedFare"`
}

// FareBreakdown is the per-passenger-type fare component of a quote.
type FareBreakdown struct {
	Currency             string  `json:"Currency"`
	PassengerType        int     `json:"PassengerType"`
	PassengerCount       int     `json:"PassengerCount"`
	BaseFare             float64 `json:"BaseFare"`
	Tax                  float64 `json:"Tax"`
	YQTax                float64 `json:"YQTax"`
	AdditionalTxnFeeOfrd float64 `json:"AdditionalTxnFeeOfrd"`
	AdditionalTxnFeePub  float64 `json:"AdditionalTxnFeePub"`
	PGCharge             float64 `json:"PGCharge"`
}

type fareQuoteResponse struct {
	responseHeader
	Results *FareQuoteResult `json:"Results"`
}

// FareQuoteResult is the re-priced itinerary the supplier returns before
// booking.
type FareQuoteResult struct {
	ResultIndex    string          `json:"ResultIndex"`
	IsPriceChanged bool            `json:"IsPriceChanged"`
	Fare           Fare            `json:"Fare"`
	FareBreakdown  []FareBreakdown `json:"FareBreakdown"`
}

// FareQuote pairs the typed result with the raw response for proxying.
type FareQuote struct {
	TraceID string
	Result  *FareQuoteResult
	Raw     json.RawMessage
}

// Passenger is the booking passenger in the supplier's wire shape.
type Passenger struct {
	Title          string `json:"Title"`
	FirstName      string `json:"FirstName"`
	LastName       string `json:"LastName"`
	PaxType        int    `json:"PaxType"`
	DateOfBirth    string `json:"DateOfBirth"`
	Gender         int    `json:"Gender"`
	PassportNo     string `json:"PassportNo,omitempty"`
	PassportExpiry string `json:"PassportExpiry,omitempty"`
	AddressLine1   string `json:"AddressLine1,omitempty"`
	City           string `json:"City,omitempty"`
	CountryCode    string `json:"CountryCode,omitempty"`
	CountryName    string `json:"CountryName,omitempty"`
	ContactNo      string `json:"ContactNo"`
	Email          string `json:"Email"`
	IsLeadPax      bool   `json:"IsLeadPax"`
	Fare           *Fare  `json:"Fare,omitempty"`
	Nationality    string `json:"Nationality,omitempty"`
}

type bookAddress struct {
	AddressLine string `json:"AddressLine"`
	City        string `json:"City"`
	CountryCode string `json:"CountryCode"`
	ZipCode     string `json:"ZipCode"`
}

type bookContact struct {
	Email  string `json:"Email"`
	Mobile string `json:"Mobile"`
}

// The GST fields are always present on the wire, empty when the booking has
// no GST invoice details.
type bookWireRequest struct {
	EndUserIp               string      `json:"EndUserIp"`
	TokenId                 string      `json:"TokenId"`
	TraceId                 string      `json:"TraceId"`
	ResultIndex             string      `json:"ResultIndex"`
	Passengers              []Passenger `json:"Passengers"`
	Address                 bookAddress `json:"Address"`
	Contact                 bookContact `json:"Contact"`
	GSTCompanyAddress       string      `json:"GSTCompanyAddress"`
	GSTCompanyContactNumber string      `json:"GSTCompanyContactNumber"`
	GSTCompanyName          string      `json:"GSTCompanyName"`
	GSTNumber               string      `json:"GSTNumber"`
	GSTCompanyEmail         string      `json:"GSTCompanyEmail"`
	IsLCC                   bool        `json:"IsLCC"`
	BlockedFare             bool        `json:"BlockedFare"`
}

type bookResponse struct {
	responseHeader
	Response *struct {
		PNR       string `json:"PNR"`
		BookingId int64  `json:"BookingId"`
	} `json:"Response"`
}

// BookResult is what callers get back from a booking attempt.
type BookResult struct {
	TraceID   string
	PNR       string
	BookingID int64
	Raw       json.RawMessage
}

// PNR stays on the wire even when empty; TraceId is sent only when known.
type ticketWireRequest struct {
	EndUserIp string `json:"EndUserIp"`
	TokenId   string `json:"TokenId"`
	TraceId   string `json:"TraceId,omitempty"`
	PNR       string `json:"PNR"`
	BookingId int64  `json:"BookingId"`
}

// TicketResult carries the issued ticket response.
type TicketResult struct {
	Raw json.RawMessage
}

type bookingDetailsWireRequest struct {
	EndUserIp string `json:"EndUserIp"`
	TokenId   string `json:"TokenId"`
	TraceId   string `json:"TraceId,omitempty"`
	BookingId int64  `json:"BookingId,omitempty"`
	PNR       string `json:"PNR,omitempty"`
}

// BookingDetails carries the supplier's booking record.
type BookingDetails struct {
	Raw json.RawMessage
}
