package search

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/briefbase/sra-finder/internal/config"
	"github.com/briefbase/sra-finder/internal/sra"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newSearchRouter builds a Gin engine exposing only /search backed by a client
// configured against the given upstream base URLs.
func newSearchRouter(hosts ...string) *gin.Engine {
	client := sra.NewClient(config.UpstreamConfig{
		APIKey:       "test-key",
		Hosts:        hosts,
		Timeout:      2 * time.Second,
		ProbeTimeout: 2 * time.Second,
	})
	r := gin.New()
	r.GET("/search", Handler(client))
	return r
}

// directoryBody is a small upstream directory: one active firm in SW1A, one
// revoked firm in SW1A, one active firm in M1.
const directoryBody = `{
	"value": [
		{
			"OrganisationID": 101,
			"OrganisationName": "Westminster Legal LLP",
			"Email": "hello@westminster.example",
			"Phone": "020 7946 0000",
			"AuthorisationStatus": "Authorised",
			"Offices": [
				{"Address": {"PostCode": "SW1A 2AB", "Address1": "1 Parliament St", "Town": "London"}}
			]
		},
		{
			"OrganisationID": 102,
			"OrganisationName": "Struck Off & Co",
			"AuthorisationStatus": "Revoked",
			"Offices": [
				{"Address": {"PostCode": "SW1A 3CD", "Address1": "2 Whitehall", "Town": "London"}}
			]
		},
		{
			"OrganisationID": 103,
			"OrganisationName": "Northern Law",
			"AuthorisationStatus": "Authorised",
			"Offices": [
				{"Address": {"PostCode": "M1 1AE", "Address1": "3 Deansgate", "Town": "Manchester"}}
			]
		}
	]
}`

type searchResponse struct {
	Count   int                `json:"count"`
	Results []sra.SearchResult `json:"results"`
}

func doSearch(t *testing.T, r *gin.Engine, rawQuery string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/search?"+rawQuery, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestHandler_InvalidPostcodeRejectedBeforeUpstream(t *testing.T) {
	upstreamHit := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHit = true
	}))
	t.Cleanup(upstream.Close)

	r := newSearchRouter(upstream.URL)
	w := doSearch(t, r, "postcode=not-a-postcode")

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if upstreamHit {
		t.Error("upstream was contacted for an invalid postcode")
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] != "invalid_postcode" {
		t.Errorf("error = %q, want invalid_postcode", body["error"])
	}
	if body["detail"] == "" {
		t.Error("detail should carry a human-readable message")
	}
}

func TestHandler_MissingPostcodeRejected(t *testing.T) {
	r := newSearchRouter("http://127.0.0.1:1")
	w := doSearch(t, r, "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 for missing postcode parameter", w.Code)
	}
}

func TestHandler_UnspacedPostcodeAccepted(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(directoryBody))
	}))
	t.Cleanup(upstream.Close)

	r := newSearchRouter(upstream.URL)
	w := doSearch(t, r, "postcode=SW1A1AA")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for unspaced postcode", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Filtering
// ---------------------------------------------------------------------------

func TestHandler_ReturnsOnlyActiveMatchingFirms(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(directoryBody))
	}))
	t.Cleanup(upstream.Close)

	r := newSearchRouter(upstream.URL)
	w := doSearch(t, r, "postcode=SW1A+1AA")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1 (active firm in SW1A only)", resp.Count)
	}
	if len(resp.Results) != resp.Count {
		t.Fatalf("count %d disagrees with %d results", resp.Count, len(resp.Results))
	}
	got := resp.Results[0]
	if got.Name != "Westminster Legal LLP" {
		t.Errorf("result Name = %q, want Westminster Legal LLP", got.Name)
	}
	if got.Postcode != "SW1A 2AB" {
		t.Errorf("result Postcode = %q, want the matched office's SW1A 2AB", got.Postcode)
	}
	if got.AuthorisationStatus != "Authorised" {
		t.Errorf("result AuthorisationStatus = %q, want Authorised", got.AuthorisationStatus)
	}
}

func TestHandler_NoMatchesReturnsEmptyList(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(directoryBody))
	}))
	t.Cleanup(upstream.Close)

	r := newSearchRouter(upstream.URL)
	w := doSearch(t, r, "postcode=EC2A+4NE")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0", resp.Count)
	}
	if resp.Results == nil {
		t.Error("results should be an empty list, not null")
	}
}

// ---------------------------------------------------------------------------
// Upstream fallback and failure
// ---------------------------------------------------------------------------

func TestHandler_FallsBackToSecondaryHost(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close() // connection refused from now on

	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(directoryBody))
	}))
	t.Cleanup(alive.Close)

	r := newSearchRouter(deadURL, alive.URL)
	w := doSearch(t, r, "postcode=SW1A+1AA")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 after fallback, body: %s", w.Code, w.Body.String())
	}
	var resp searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}

func TestHandler_AllHostsFailReturns502(t *testing.T) {
	forbidden := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "subscription key rejected", http.StatusForbidden)
	}))
	t.Cleanup(forbidden.Close)

	r := newSearchRouter("http://127.0.0.1:1", forbidden.URL)
	w := doSearch(t, r, "postcode=SW1A+1AA")

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] != "upstream_unavailable" {
		t.Errorf("error = %q, want upstream_unavailable", body["error"])
	}
	if body["host"] != forbidden.URL {
		t.Errorf("host = %q, want the last attempted host %q", body["host"], forbidden.URL)
	}
	if body["category"] != string(sra.FailureHTTP) {
		t.Errorf("category = %q, want %q", body["category"], sra.FailureHTTP)
	}
	if body["detail"] == "" {
		t.Error("detail should describe the last failure")
	}
}
