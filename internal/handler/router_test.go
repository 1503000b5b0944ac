package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeygonK/Health-Information-System/internal/auth"
	"github.com/BeygonK/Health-Information-System/internal/dto"
	"github.com/BeygonK/Health-Information-System/internal/repository"
	"github.com/BeygonK/Health-Information-System/internal/service"
	"github.com/BeygonK/Health-Information-System/internal/validation"
	"github.com/BeygonK/Health-Information-System/pkg/fieldcrypt"
	"github.com/BeygonK/Health-Information-System/pkg/jobs"
	"github.com/BeygonK/Health-Information-System/pkg/response"
)

const testToken = "secret-token-123"

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	router *gin.Engine
	store  *repository.MemoryStore
}

func newTestServer(t *testing.T, pinger Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := fieldcrypt.NewRandomKey()
	require.NoError(t, err)
	cipher, err := fieldcrypt.New(key)
	require.NoError(t, err)

	pool := jobs.NewPool("search", jobs.PoolConfig{Workers: 2})
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	store := repository.NewMemoryStore()
	if pinger == nil {
		pinger = store
	}
	metrics := service.NewMetricsService()
	validator := validation.New()
	cache := service.NewCacheService(repository.NewMemoryCacheRepository(nil), metrics, time.Minute, nil, true)

	programs := service.NewProgramService(store.Programs(), validator, nil)
	clients := service.NewClientService(service.ClientServiceConfig{
		Clients:     store.Clients(),
		Enrollments: store.Enrollments(),
		Cipher:      cipher,
		Cache:       cache,
		SearchPool:  pool,
		Validator:   validator,
		Metrics:     metrics,
		ProfileTTL:  time.Minute,
	})

	router := NewRouter(RouterConfig{
		Programs: NewProgramHandler(programs, validator),
		Clients:  NewClientHandler(clients, validator),
		Ops:      NewMetricsHandler(metrics, pinger, nil),
		Verifier: auth.NewStaticTokenSet(map[string]string{"doctor1": testToken}),
		Metrics:  metrics,
	})
	return &testServer{router: router, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	for k, v := range headers {
		if v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) createProgram(t *testing.T, name string) dto.ProgramResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/programs", `{"name":"`+name+`","description":"`+name+` Treatment"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.ProgramResponse](t, rec)
}

func (s *testServer) registerClient(t *testing.T, name string) dto.ClientResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/clients", `{"name":"`+name+`","date_of_birth":"1990-05-15","gender":"Female"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.ClientResponse](t, rec)
}

func TestUnauthenticatedRequestsChangeNothing(t *testing.T) {
	s := newTestServer(t, nil)

	for _, headers := range []map[string]string{
		{"Authorization": ""},
		{"Authorization": "Bearer wrong"},
		{"Authorization": "Token " + testToken},
	} {
		rec := s.do(t, http.MethodPost, "/programs", `{"name":"TB","description":""}`, headers)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

		rec = s.do(t, http.MethodPost, "/clients", `{"name":"Jane","date_of_birth":"1990-05-15","gender":"Female"}`, headers)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	programs, err := s.store.Programs().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, programs)
	clients, err := s.store.Clients().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestCreateProgram(t *testing.T) {
	s := newTestServer(t, nil)
	program := s.createProgram(t, "TB")
	assert.NotEmpty(t, program.ID)
	assert.Equal(t, "TB", program.Name)
	assert.Equal(t, "TB Treatment", program.Description)

	rec := s.do(t, http.MethodGet, "/programs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]dto.ProgramResponse](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, program.ID, listed[0].ID)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t, nil)

	cases := []struct {
		name  string
		path  string
		body  string
		field string
	}{
		{name: "missing description", path: "/programs", body: `{"name":"TB"}`, field: "description"},
		{name: "empty name", path: "/programs", body: `{"name":"","description":""}`, field: "name"},
		{name: "malformed json", path: "/programs", body: `{"name":`, field: "body"},
		{name: "array body", path: "/programs", body: `[]`, field: "body"},
		{name: "unknown gender", path: "/clients", body: `{"name":"Jane","date_of_birth":"1990-05-15","gender":"Unknown"}`, field: "gender"},
		{name: "bad date", path: "/clients", body: `{"name":"Jane","date_of_birth":"15/05/1990","gender":"Male"}`, field: "date_of_birth"},
		{name: "numeric name", path: "/clients", body: `{"name":42,"date_of_birth":"1990-05-15","gender":"Male"}`, field: "name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tc.path, tc.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			env := decode[response.ErrorEnvelope](t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
			fields := make([]string, 0, len(env.Error.Details))
			for _, d := range env.Error.Details {
				fields = append(fields, d.Field)
			}
			assert.Contains(t, fields, tc.field)
		})
	}

	clients, err := s.store.Clients().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestEnrollFlow(t *testing.T) {
	s := newTestServer(t, nil)
	tb := s.createProgram(t, "TB")
	client := s.registerClient(t, "Jane Doe")
	assert.Equal(t, "Jane Doe", client.Name)

	body := `{"program_id":"` + tb.ID + `"}`
	first := s.do(t, http.MethodPost, "/clients/"+client.ID+"/enroll", body, nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := s.do(t, http.MethodPost, "/clients/"+client.ID+"/enroll", body, nil)
	require.Equal(t, http.StatusOK, second.Code)

	resp := decode[dto.EnrollResponse](t, first)
	assert.Equal(t, "Client enrolled in TB", resp.Message)
	assert.Equal(t, []string{"TB"}, resp.EnrolledPrograms)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, s.store.EnrollmentCount(client.ID, tb.ID))

	rec := s.do(t, http.MethodPost, "/clients/missing/enroll", body, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "client not found", decode[response.ErrorEnvelope](t, rec).Error.Message)

	rec = s.do(t, http.MethodPost, "/clients/"+client.ID+"/enroll", `{"program_id":"missing"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "program not found", decode[response.ErrorEnvelope](t, rec).Error.Message)

	rec = s.do(t, http.MethodPost, "/clients/"+client.ID+"/enroll", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchClients(t *testing.T) {
	s := newTestServer(t, nil)
	s.registerClient(t, "Alice Smith")
	s.registerClient(t, "Bob Alyce")

	rec := s.do(t, http.MethodGet, "/clients/search?name=al", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hits := decode[[]dto.ClientSummary](t, rec)
	require.Len(t, hits, 2)
	assert.Equal(t, "Alice Smith", hits[0].Name)
	assert.Equal(t, "Bob Alyce", hits[1].Name)

	rec = s.do(t, http.MethodGet, "/clients/search?name=zz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestClientProfileCaching(t *testing.T) {
	s := newTestServer(t, nil)
	tb := s.createProgram(t, "TB")
	client := s.registerClient(t, "Jane Doe")

	rec := s.do(t, http.MethodGet, "/clients/"+client.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	profile := decode[dto.ClientProfile](t, rec)
	assert.Equal(t, "Jane Doe", profile.Name)
	assert.Empty(t, profile.EnrolledPrograms)

	enroll := s.do(t, http.MethodPost, "/clients/"+client.ID+"/enroll", `{"program_id":"`+tb.ID+`"}`, nil)
	require.Equal(t, http.StatusOK, enroll.Code)

	rec = s.do(t, http.MethodGet, "/clients/"+client.ID, "", nil)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Empty(t, decode[dto.ClientProfile](t, rec).EnrolledPrograms)

	rec = s.do(t, http.MethodGet, "/clients/"+client.ID, "", map[string]string{"Cache-Control": "no-cache"})
	assert.Equal(t, "BYPASS", rec.Header().Get("X-Cache"))
	fresh := decode[dto.ClientProfile](t, rec)
	require.Len(t, fresh.EnrolledPrograms, 1)
	assert.Equal(t, tb.ID, fresh.EnrolledPrograms[0].ID)

	rec = s.do(t, http.MethodGet, "/clients/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rec := s.do(t, http.MethodGet, path, "", map[string]string{"Authorization": ""})
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	down := newTestServer(t, failingPinger{})
	rec := down.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
