package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yuzukaze/aeris/internal/analytics"
	"github.com/yuzukaze/aeris/internal/config"
	"github.com/yuzukaze/aeris/internal/importer"
	"github.com/yuzukaze/aeris/internal/models"
)

func fp(v float64) *float64 { return &v }

type fakeService struct {
	initErr error

	importDays    int
	importSummary *importer.Summary
	importErr     error

	ranking    models.PollutionRanking
	rankingErr error

	avgCountry string
	avgDays    int
	avg        models.CountryAirQuality
	avgErr     error

	cities    []models.CityLatest
	citiesErr error

	hasDataErr error
}

func (s *fakeService) InitSchema(ctx context.Context) error { return s.initErr }

func (s *fakeService) Import(ctx context.Context, days int) (*importer.Summary, error) {
	s.importDays = days
	if s.importErr != nil {
		return nil, s.importErr
	}
	if s.importSummary != nil {
		return s.importSummary, nil
	}
	return &importer.Summary{Skips: []importer.Skip{}}, nil
}

func (s *fakeService) MostPolluted(ctx context.Context) (models.PollutionRanking, error) {
	return s.ranking, s.rankingErr
}

func (s *fakeService) Average(ctx context.Context, country string, days int) (models.CountryAirQuality, error) {
	s.avgCountry, s.avgDays = country, days
	return s.avg, s.avgErr
}

func (s *fakeService) MeasurementsByCity(ctx context.Context, country string) ([]models.CityLatest, error) {
	return s.cities, s.citiesErr
}

func (s *fakeService) HasData(ctx context.Context) (bool, error) {
	return true, s.hasDataErr
}

func serve(t *testing.T, svc Service, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	cfg := config.Config{ImportDays: 7, AverageDays: 5, Port: 8080}
	srv := New(cfg, svc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["has_data"] != true {
		t.Errorf("has_data = %v", body["has_data"])
	}

	rec = serve(t, &fakeService{hasDataErr: errors.New("down")}, http.MethodGet, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unreachable store status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMostPolluted(t *testing.T) {
	svc := &fakeService{ranking: models.PollutionRanking{
		Country: "PK", PollutionIndex: 132.5, PM25: fp(55), PM10: fp(50),
	}}
	rec := serve(t, svc, http.MethodGet, "/v1/pollution/most-polluted")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got models.PollutionRanking
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Country != "PK" || got.PollutionIndex != 132.5 {
		t.Errorf("got %+v", got)
	}
}

func TestAverageDefaultsAndParams(t *testing.T) {
	svc := &fakeService{avg: models.CountryAirQuality{
		Country: "NL", AvgPM25: fp(12), MeasurementCount: 10,
	}}

	rec := serve(t, svc, http.MethodGet, "/v1/pollution/average/nl")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.avgCountry != "NL" {
		t.Errorf("country = %q, want upper-cased NL", svc.avgCountry)
	}
	if svc.avgDays != 5 {
		t.Errorf("days = %d, want configured default 5", svc.avgDays)
	}

	serve(t, svc, http.MethodGet, "/v1/pollution/average/NL?days=30")
	if svc.avgDays != 30 {
		t.Errorf("days = %d, want 30", svc.avgDays)
	}
}

func TestAverageBadRequests(t *testing.T) {
	svc := &fakeService{avgErr: analytics.ErrUnknownCountry}
	rec := serve(t, svc, http.MethodGet, "/v1/pollution/average/XX")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown country status = %d, want 400", rec.Code)
	}

	rec = serve(t, &fakeService{}, http.MethodGet, "/v1/pollution/average/NL?days=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed days status = %d, want 400", rec.Code)
	}

	svc = &fakeService{avgErr: analytics.ErrInvalidDayCount}
	rec = serve(t, svc, http.MethodGet, "/v1/pollution/average/NL?days=1000")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid day count status = %d, want 400", rec.Code)
	}
}

func TestAverageNoData(t *testing.T) {
	svc := &fakeService{avg: models.CountryAirQuality{Country: "GR"}}
	rec := serve(t, svc, http.MethodGet, "/v1/pollution/average/GR")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["message"]; !ok {
		t.Errorf("expected no-data message, got %v", body)
	}
}

func TestImportDayValidationMapsTo400(t *testing.T) {
	svc := &fakeService{importErr: importer.ErrDaysOutOfRange}
	rec := serve(t, svc, http.MethodPost, "/v1/import?days=2")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if svc.importDays != 2 {
		t.Errorf("days = %d, want 2 passed through", svc.importDays)
	}
}

func TestImportDefaultsDays(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPost, "/v1/import")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.importDays != 7 {
		t.Errorf("days = %d, want configured default 7", svc.importDays)
	}
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	svc := &fakeService{rankingErr: errors.New("pgx: connection refused")}
	rec := serve(t, svc, http.MethodGet, "/v1/pollution/most-polluted")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "internal error" {
		t.Errorf("error detail leaked: %q", body["error"])
	}
}

func TestMeasurementsByCity(t *testing.T) {
	svc := &fakeService{cities: []models.CityLatest{
		{City: "Lahore", PM25: fp(140.2), PM10: fp(210.7)},
	}}
	rec := serve(t, svc, http.MethodGet, "/v1/pollution/cities/pk")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Country string              `json:"country"`
		Cities  []models.CityLatest `json:"cities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Country != "PK" || len(body.Cities) != 1 || body.Cities[0].City != "Lahore" {
		t.Errorf("body = %+v", body)
	}
}

func TestInitSchema(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodPost, "/v1/schema/init")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = serve(t, &fakeService{initErr: errors.New("boom")}, http.MethodPost, "/v1/schema/init")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
