package api

import (
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajasatyajit/ProtectLife/internal/classifier"
	middlewares "github.com/rajasatyajit/ProtectLife/internal/middleware"
	"github.com/rajasatyajit/ProtectLife/internal/models"
	"github.com/rajasatyajit/ProtectLife/internal/store"
)

func asUser(id string) map[string]string {
	return map[string]string{middlewares.UserIDHeader: id}
}

type listResponse struct {
	Data   []models.Report `json:"data"`
	Count  int             `json:"count"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func createReport(t *testing.T, h http.Handler, body map[string]any) models.Report {
	t.Helper()
	w := doJSON(t, h, "POST", "/v1/reports", body, asUser("user-1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[models.Report](t, w)
}

func TestCreateReport_AnalysisFillsMissingFields(t *testing.T) {
	pub := &recordingPublisher{}
	r := newTestRouter(t, Options{Events: pub})

	title := "Inondation dans le quartier"
	description := "L'eau monte dans les maisons, c'est urgent"
	report := createReport(t, r, map[string]any{
		"title":       title,
		"description": description,
		"location":    map[string]any{"address": "Rue 12, Koumassi"},
	})

	dangerType, severity := classifier.New().Classify(title, description)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "user-1", report.UserID)
	assert.Equal(t, dangerType, report.DangerType)
	assert.Equal(t, severity, report.Severity)
	assert.Equal(t, models.StatusPending, report.Status)
	require.NotNil(t, report.Analysis)
	assert.True(t, report.Analysis.FallbackMode)

	assert.Equal(t, "Koumassi", report.Location.Commune)
	assert.NotZero(t, report.Location.Latitude)

	require.Len(t, pub.created, 1)
	assert.Equal(t, report.ID, pub.created[0])
}

func TestCreateReport_ModelFailureStillStores(t *testing.T) {
	srv, calls := upstream(t, http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided: sk-test"}}`)
	r := routerWithUpstream(t, srv)

	title := "Incendie au marché"
	description := "Un feu s'est déclaré près des étals, c'est grave"
	report := createReport(t, r, map[string]any{
		"title":       title,
		"description": description,
	})

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	dangerType, severity := classifier.New().Classify(title, description)
	assert.Equal(t, dangerType, report.DangerType)
	assert.Equal(t, severity, report.Severity)
	require.NotNil(t, report.Analysis)
	assert.True(t, report.Analysis.FallbackMode)
	assert.NotEmpty(t, report.Analysis.SuggestedActions)

	w := doJSON(t, r, "GET", "/v1/reports/"+report.ID, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateReport_KeepsProvidedClassification(t *testing.T) {
	r := newTestRouter(t, Options{})

	report := createReport(t, r, map[string]any{
		"dangerType":  "crime",
		"severity":    "low",
		"title":       "Vol à la tire",
		"description": "Un sac volé près de la gare de Treichville",
	})

	assert.Equal(t, models.DangerCrime, report.DangerType)
	assert.Equal(t, models.SeverityLow, report.Severity)
	assert.Nil(t, report.Analysis)
	assert.Equal(t, "Treichville", report.Location.Commune)
}

func TestCreateReport_Validation(t *testing.T) {
	r := newTestRouter(t, Options{})
	valid := func() map[string]any {
		return map[string]any{"title": "Accident", "description": "Collision sur le pont"}
	}

	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"Missing title", func(b map[string]any) { delete(b, "title") }, "Titre et description requis"},
		{"Short title", func(b map[string]any) { b["title"] = "Feu" }, "titre"},
		{"Long description", func(b map[string]any) { b["description"] = strings.Repeat("é", 1001) }, "description"},
		{"Unknown danger type", func(b map[string]any) { b["dangerType"] = "alien" }, "Type de danger"},
		{"Unknown severity", func(b map[string]any) { b["severity"] = "extreme" }, "Gravité"},
		{"Too many images", func(b map[string]any) { b["images"] = []string{"1", "2", "3", "4", "5", "6"} }, "images"},
		{"Bad latitude", func(b map[string]any) { b["location"] = map[string]any{"latitude": 91} }, "Coordonnées"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := valid()
			tt.mutate(body)
			w := doJSON(t, r, "POST", "/v1/reports", body, asUser("user-1"))
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, decodeBody[ErrorResponse](t, w).Message, tt.field)
		})
	}
}

func TestCreateReport_RequiresUser(t *testing.T) {
	r := newTestRouter(t, Options{})
	w := doJSON(t, r, "POST", "/v1/reports", map[string]any{"title": "Accident", "description": "Collision sur le pont"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListReports(t *testing.T) {
	r := newTestRouter(t, Options{Store: store.NewInMemoryStore()})

	fire := createReport(t, r, map[string]any{"dangerType": "fire", "severity": "high", "title": "Incendie", "description": "Feu au marché d'Adjamé"})
	createReport(t, r, map[string]any{"dangerType": "crime", "severity": "low", "title": "Vol à la tire", "description": "Sac volé à Cocody"})
	createReport(t, r, map[string]any{"dangerType": "fire", "severity": "low", "title": "Feu de brousse", "description": "Petit feu à Cocody"})

	tests := []struct {
		name     string
		query    string
		expected int
	}{
		{"All", "", 3},
		{"Danger type", "?dangerType=fire", 2},
		{"Comma list", "?severity=high,low", 3},
		{"Repeated", "?dangerType=fire&dangerType=crime", 3},
		{"Commune", "?commune=Cocody", 2},
		{"Combined", "?dangerType=fire&commune=Cocody", 1},
		{"Limit", "?limit=1", 1},
		{"Offset", "?offset=2", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, "GET", "/v1/reports"+tt.query, nil, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			resp := decodeBody[listResponse](t, w)
			assert.Equal(t, tt.expected, resp.Count)
			assert.Len(t, resp.Data, tt.expected)
		})
	}

	w := doJSON(t, r, "GET", "/v1/reports", nil, nil)
	assert.Equal(t, DefaultListLimit, decodeBody[listResponse](t, w).Limit)

	w = doJSON(t, r, "GET", "/v1/reports/"+fire.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Incendie", decodeBody[models.Report](t, w).Title)
}

func TestListReports_InvalidQuery(t *testing.T) {
	r := newTestRouter(t, Options{})

	for _, q := range []string{"?limit=0", "?limit=201", "?limit=abc", "?offset=-1", "?since=yesterday", "?dangerType=alien", "?status=open"} {
		t.Run(q, func(t *testing.T) {
			w := doJSON(t, r, "GET", "/v1/reports"+q, nil, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestVotes(t *testing.T) {
	r := newTestRouter(t, Options{})
	report := createReport(t, r, map[string]any{"dangerType": "fire", "severity": "high", "title": "Incendie", "description": "Feu au marché d'Adjamé"})
	path := "/v1/reports/" + report.ID + "/votes"

	w := doJSON(t, r, "POST", path, map[string]string{"voteType": "upvote"}, asUser("u2"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decodeBody[voteResponse](t, w).Report.Upvotes)

	w = doJSON(t, r, "POST", path, map[string]string{"voteType": "upvote"}, asUser("u2"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, "POST", path, map[string]string{"voteType": "confirm"}, asUser("u2"))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[voteResponse](t, w)
	assert.Equal(t, models.VoteUp, resp.Previous)
	assert.Equal(t, 0, resp.Report.Upvotes)
	assert.Equal(t, 1, resp.Report.Confirmations)

	w = doJSON(t, r, "POST", path, map[string]string{"voteType": "like"}, asUser("u2"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, "POST", path, map[string]string{"voteType": "upvote"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, "DELETE", path, nil, asUser("u2"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeBody[voteResponse](t, w).Report.Confirmations)

	w = doJSON(t, r, "DELETE", path, nil, asUser("u2"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, "POST", "/v1/reports/missing/votes", map[string]string{"voteType": "upvote"}, asUser("u2"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
