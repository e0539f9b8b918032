package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minglarn/trafikinfo-sub001/internal/event"
	"github.com/Minglarn/trafikinfo-sub001/internal/logger"
	"github.com/Minglarn/trafikinfo-sub001/internal/prefs"
	"github.com/Minglarn/trafikinfo-sub001/internal/reconciler"
	"github.com/Minglarn/trafikinfo-sub001/pkg/errors"
)

type fakeKicker struct {
	kicks int
}

func (f *fakeKicker) Kick() { f.kicks++ }

func setupHandler(t *testing.T, counties []int, seed []event.Event) (*Handler, *gin.Engine, *fakeKicker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rec := reconciler.New(counties, logger.NopLogger())
	if seed != nil {
		require.True(t, rec.Seed(rec.Generation(), seed))
	}

	kicker := &fakeKicker{}
	handler := NewHandler(rec, prefs.NewMemoryStore(), kicker, logger.NopLogger())

	router := gin.New()
	handler.RegisterRoutes(router)

	return handler, router, kicker
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListEvents(t *testing.T) {
	seed := []event.Event{
		{ID: 1, Title: "Accident E4", Location: "Stockholm", MessageType: "realtime", CountyID: 1},
		{ID: 2, Title: "Roadwork", Location: "Uppsala", MessageType: "planned", CountyID: 3},
		{ID: 3, Title: "Queue after accident", Location: "Solna", MessageType: "realtime", CountyID: 1},
	}

	tests := []struct {
		name      string
		query     string
		wantIDs   []int64
		wantTotal int
	}{
		{name: "no filters keeps order", query: "", wantIDs: []int64{1, 2, 3}, wantTotal: 3},
		{name: "search matches title", query: "?search=accident", wantIDs: []int64{1, 3}, wantTotal: 2},
		{name: "search matches location", query: "?search=uppsala", wantIDs: []int64{2}, wantTotal: 1},
		{name: "county restriction", query: "?counties=1", wantIDs: []int64{1, 3}, wantTotal: 2},
		{name: "type filter", query: "?type=planned", wantIDs: []int64{2}, wantTotal: 1},
		{name: "offset and limit", query: "?offset=1&limit=1", wantIDs: []int64{2}, wantTotal: 3},
		{name: "offset beyond collection", query: "?offset=10", wantIDs: []int64{}, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router, _ := setupHandler(t, nil, seed)

			w := doRequest(router, http.MethodGet, "/api/v1/events"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code)

			var resp EventsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

			ids := make([]int64, 0, len(resp.Events))
			for _, ev := range resp.Events {
				ids = append(ids, ev.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, resp.Total)
			assert.Empty(t, resp.Notice)
		})
	}
}

func TestListEventsInvalidCounties(t *testing.T) {
	_, router, _ := setupHandler(t, nil, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/events?counties=1,abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseCounties(t *testing.T) {
	counties, err := parseCounties("1, 14,3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 14, 3}, counties)

	_, err = parseCounties("1,abc")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestListEventsStaleNotice(t *testing.T) {
	handler, router, _ := setupHandler(t, nil, []event.Event{{ID: 1, Title: "Accident"}})
	handler.rec.RecordFetchError(errors.ErrTransport)

	w := doRequest(router, http.MethodGet, "/api/v1/events", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp EventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Notice)
	assert.Len(t, resp.Events, 1, "last known good collection survives a failed refresh")
}

func TestGetCounties(t *testing.T) {
	_, router, _ := setupHandler(t, []int{14, 1}, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/counties", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp CountiesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []int{1, 14}, resp.Counties)
}

func TestPutCounties(t *testing.T) {
	handler, router, kicker := setupHandler(t, []int{1}, nil)
	before := handler.rec.Generation()

	w := doRequest(router, http.MethodPut, "/api/v1/counties", `{"counties":[3,5]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CountiesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []int{3, 5}, resp.Counties)

	assert.Greater(t, handler.rec.Generation(), before, "filter change fences out in-flight snapshots")
	assert.Equal(t, 1, kicker.kicks, "filter change schedules an immediate refresh")

	saved, err := handler.store.Load(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{3, 5}, saved)
}

func TestPutCountiesClearFilter(t *testing.T) {
	handler, router, _ := setupHandler(t, []int{1}, nil)

	w := doRequest(router, http.MethodPut, "/api/v1/counties", `{"counties":[]}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, handler.rec.MonitoredCounties())
}

func TestPutCountiesMalformedBody(t *testing.T) {
	_, router, kicker := setupHandler(t, nil, nil)

	w := doRequest(router, http.MethodPut, "/api/v1/counties", `{"counties":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, kicker.kicks)
}
