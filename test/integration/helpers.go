//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

const apiSchema = `{
	"paths": {
		"/athlete": {
			"get": {"parameters": []}
		},
		"/athlete/activities": {
			"get": {"parameters": [{"$ref": "#/parameters/page"}]}
		},
		"/activities/{id}": {
			"get": {"parameters": []}
		}
	}
}`

// fakeAPI is an in-process stand-in for the Strava API: a token endpoint,
// the schema document, and a handful of resource paths with rate-limit
// headers on every response.
type fakeAPI struct {
	server *httptest.Server

	tokenExchanges atomic.Int32
	apiRequests    atomic.Int32

	activityCount int
	pageSize      int
}

func newFakeAPI(t *testing.T, activityCount int) *fakeAPI {
	t.Helper()

	api := &fakeAPI{activityCount: activityCount, pageSize: 200}

	mux := http.NewServeMux()
	mux.HandleFunc("/swagger.json", api.handleSchema)
	mux.HandleFunc("/oauth/token", api.handleToken)
	mux.HandleFunc("/athlete", api.authorized(api.handleAthlete))
	mux.HandleFunc("/athlete/activities", api.authorized(api.handleActivities))
	mux.HandleFunc("/activities/", api.authorized(api.handleActivityDetail))

	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)

	return api
}

func (a *fakeAPI) URL() string { return a.server.URL }

func (a *fakeAPI) Close() { a.server.Close() }

func (a *fakeAPI) handleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(apiSchema))
}

func (a *fakeAPI) handleToken(w http.ResponseWriter, r *http.Request) {
	a.tokenExchanges.Add(1)

	var grant struct {
		GrantType    string `json:"grant_type"`
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&grant); err != nil || grant.GrantType != "refresh_token" {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{
		"token_type": "Bearer",
		"access_token": "access-%d",
		"refresh_token": "refresh-%d",
		"expires_at": 4102444800,
		"expires_in": 21600
	}`, a.tokenExchanges.Load(), a.tokenExchanges.Load())
}

// authorized enforces the bearer token and stamps rate-limit headers.
func (a *fakeAPI) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.apiRequests.Add(1)

		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		w.Header().Set("X-RateLimit-Usage", fmt.Sprintf("%d,%d", a.apiRequests.Load(), a.apiRequests.Load()))
		w.Header().Set("X-RateLimit-Limit", "100,1000")
		w.Header().Set("Content-Type", "application/json")

		next(w, r)
	}
}

func (a *fakeAPI) handleAthlete(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(`{"id": 12345, "username": "integration", "firstname": "Inte", "lastname": "Gration"}`))
}

func (a *fakeAPI) handleActivities(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	start := (page - 1) * a.pageSize
	end := start + a.pageSize
	if end > a.activityCount {
		end = a.activityCount
	}

	items := make([]json.RawMessage, 0, a.pageSize)
	for id := start; id < end; id++ {
		items = append(items, json.RawMessage(fmt.Sprintf(
			`{"id": %d, "name": "Ride %d", "sport_type": "Ride", "distance": 20000}`, id+1, id+1)))
	}

	_ = json.NewEncoder(w).Encode(items)
}

func (a *fakeAPI) handleActivityDetail(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/activities/"):]

	_, _ = fmt.Fprintf(w, `{
		"id": %s,
		"name": "Ride %s",
		"segment_efforts": [
			{"id": 1, "segment": {"id": 7001, "name": "Canal Sprint"}},
			{"id": 2, "segment": {"id": 7002, "name": "Dike Climb"}}
		]
	}`, id, id)
}
