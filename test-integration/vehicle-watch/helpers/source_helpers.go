package helpers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// NoResultPhrase is the stolen register's "no result" message
const NoResultPhrase = "Uw zoekopdracht naar het object heeft geen resultaat opgeleverd"

// MockRegistryServer serves the RDW dataset for a set of plates. Responses
// can be changed while the server runs.
type MockRegistryServer struct {
	*httptest.Server

	mu       sync.Mutex
	vehicles map[string]string
	status   int
	requests atomic.Int32
}

// NewMockRegistryServer starts a registry that knows no plates
func NewMockRegistryServer() *MockRegistryServer {
	m := &MockRegistryServer{vehicles: make(map[string]string)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// WithVehicle registers the JSON object returned for plate
func (m *MockRegistryServer) WithVehicle(plate, object string) *MockRegistryServer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[plate] = object
	return m
}

// FailWith makes every request answer status; 0 restores normal behavior
func (m *MockRegistryServer) FailWith(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

// Requests returns the number of requests served
func (m *MockRegistryServer) Requests() int {
	return int(m.requests.Load())
}

// Endpoint returns the dataset URL
func (m *MockRegistryServer) Endpoint() string {
	return m.URL + "/resource/m9d7-ebf2.json"
}

func (m *MockRegistryServer) serve(w http.ResponseWriter, r *http.Request) {
	m.requests.Add(1)

	m.mu.Lock()
	status := m.status
	object, ok := m.vehicles[r.URL.Query().Get("kenteken")]
	m.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		fmt.Fprint(w, "[]")
		return
	}
	fmt.Fprintf(w, "[%s]", object)
}

// MockStolenRegister serves the stolen-vehicle register search page
type MockStolenRegister struct {
	*httptest.Server

	mu     sync.Mutex
	stolen map[string]bool
}

// NewMockStolenRegister starts a register where no plate is stolen
func NewMockStolenRegister() *MockStolenRegister {
	m := &MockStolenRegister{stolen: make(map[string]bool)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// SetStolen marks plate as stolen or not
func (m *MockStolenRegister) SetStolen(plate string, stolen bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stolen[plate] = stolen
}

// Endpoint returns the search URL
func (m *MockStolenRegister) Endpoint() string {
	return m.URL + "/zoeken"
}

func (m *MockStolenRegister) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	stolen := m.stolen[r.URL.Query().Get("search")]
	m.mu.Unlock()

	message := NoResultPhrase
	if stolen {
		message = "Er is 1 resultaat gevonden"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body>
<div id="panel-4"><div class="card-block"><p>%s</p></div></div>
</body></html>`, message)
}

// ToyotaYaris is a registry object for plate G727FN
const ToyotaYaris = `{
	"kenteken": "G727FN",
	"voertuigsoort": "Personenauto",
	"merk": "TOYOTA",
	"handelsbenaming": "YARIS",
	"vervaldatum_apk": "20260301",
	"vervaldatum_apk_dt": "2026-03-01T00:00:00.000",
	"massa_rijklaar": "1085",
	"catalogusprijs": "18995",
	"eerste_kleur": "GRIJS",
	"tweede_kleur": "Niet geregistreerd",
	"aantal_deuren": "5",
	"api_gekentekende_voertuigen_assen": "https://opendata.rdw.nl/resource/3huj-srit.json"
}`
