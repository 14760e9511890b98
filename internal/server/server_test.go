package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zoreu/tabledb/internal/registry"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(registry.New(), 10).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func createUsersTable(t *testing.T, base string) {
	t.Helper()
	resp, _ := do(t, http.MethodPost, base+"/tables",
		`{"name":"usuarios","fields":["id","nome","idade"],"indexed_field":"id"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func insertUser(t *testing.T, base, id, nome, idade string) {
	t.Helper()
	resp, _ := do(t, http.MethodPost, base+"/tables/usuarios/records",
		`{"id":"`+id+`","nome":"`+nome+`","idade":"`+idade+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateAndListTables(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)

	resp, payload := do(t, http.MethodGet, srv.URL+"/tables", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []any{"usuarios"}, payload["tables"])
}

func TestInsertAndGetRecord(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)
	insertUser(t, srv.URL, "1", "Alice", "30")

	resp, payload := do(t, http.MethodGet, srv.URL+"/tables/usuarios/records/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Alice", payload["nome"])
}

func TestGetRecordNotFound(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)

	resp, _ := do(t, http.MethodGet, srv.URL+"/tables/usuarios/records/404", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInsertDuplicateKeyConflicts(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)
	insertUser(t, srv.URL, "1", "Alice", "30")

	resp, payload := do(t, http.MethodPost, srv.URL+"/tables/usuarios/records",
		`{"id":"1","nome":"Impostor","idade":"99"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, payload["error"], "duplicate key")
}

func TestInsertSchemaMismatchIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)

	resp, _ := do(t, http.MethodPost, srv.URL+"/tables/usuarios/records",
		`{"id":"1","nome":"Alice"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateRecord(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)
	insertUser(t, srv.URL, "1", "Alice", "30")

	resp, _ := do(t, http.MethodPut, srv.URL+"/tables/usuarios/records/1",
		`{"nome":"Alice Smith"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, payload := do(t, http.MethodGet, srv.URL+"/tables/usuarios/records/1", "")
	require.Equal(t, "Alice Smith", payload["nome"])
}

func TestUpdateMissingRecordIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)

	resp, _ := do(t, http.MethodPut, srv.URL+"/tables/usuarios/records/404",
		`{"nome":"Nobody"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteRecord(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)
	insertUser(t, srv.URL, "1", "Alice", "30")

	resp, _ := do(t, http.MethodDelete, srv.URL+"/tables/usuarios/records/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/tables/usuarios/records/1", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRecordsPaginated(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)
	insertUser(t, srv.URL, "1", "Alice", "30")
	insertUser(t, srv.URL, "2", "Bob", "25")
	insertUser(t, srv.URL, "3", "Carol", "35")

	resp, payload := do(t, http.MethodGet, srv.URL+"/tables/usuarios/records?page=2&per_page=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(3), payload["total"])
	require.Equal(t, float64(2), payload["total_pages"])

	data, ok := payload["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
}

func TestSearchRecords(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)
	insertUser(t, srv.URL, "1", "Alice Smith", "30")
	insertUser(t, srv.URL, "2", "Bob", "25")
	insertUser(t, srv.URL, "3", "alice jones", "35")

	resp, payload := do(t, http.MethodGet, srv.URL+"/tables/usuarios/search?field=nome&q=alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(2), payload["total"])
}

func TestSearchUndeclaredFieldIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)

	resp, _ := do(t, http.MethodGet, srv.URL+"/tables/usuarios/search?field=email&q=x", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownTableIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := do(t, http.MethodGet, srv.URL+"/tables/nope/records", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBadPaginationRejected(t *testing.T) {
	srv := newTestServer(t)
	createUsersTable(t, srv.URL)

	resp, _ := do(t, http.MethodGet, srv.URL+"/tables/usuarios/records?page=0", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/tables/usuarios/records?per_page=1000", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
