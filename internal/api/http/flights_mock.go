package http

import (
	"net/http"
	"strings"

	"github.com/plumtrips/backend/pkg/httpx"
)

// MockFlightsHandler serves a small curated flight list for frontend
// development and demos. It never touches the supplier API.
type MockFlightsHandler struct{}

type mockFlight struct {
	Airline     string  `json:"airline"`
	FlightNo    string  `json:"flight_no"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	DepartTime  string  `json:"depart_time"`
	ArriveTime  string  `json:"arrive_time"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
}

var mockFlights = []mockFlight{
	{"IndiGo", "6E-2041", "DEL", "BOM", "06:15", "08:25", 5499, "INR"},
	{"Air India", "AI-805", "DEL", "BOM", "09:00", "11:10", 6150, "INR"},
	{"Vistara", "UK-995", "DEL", "BOM", "18:40", "20:55", 7299, "INR"},
	{"IndiGo", "6E-5317", "BOM", "DEL", "07:30", "09:40", 5350, "INR"},
	{"IndiGo", "6E-345", "DEL", "BLR", "10:05", "12:50", 4899, "INR"},
	{"Air India", "AI-503", "BLR", "DEL", "16:20", "19:05", 5720, "INR"},
	{"SpiceJet", "SG-8169", "DEL", "GOI", "11:45", "14:20", 4450, "INR"},
}

func (h *MockFlightsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := strings.ToUpper(r.URL.Query().Get("origin"))
	destination := strings.ToUpper(r.URL.Query().Get("destination"))

	out := make([]mockFlight, 0, len(mockFlights))
	for _, f := range mockFlights {
		if origin != "" && f.Origin != origin {
			continue
		}
		if destination != "" && f.Destination != destination {
			continue
		}
		out = append(out, f)
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"flights": out})
}
