package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jindex/internal/index"
	"github.com/jindex/internal/ingest"
	"github.com/jindex/internal/testutil"
	"github.com/jindex/pkg/config"
)

func testIndex(t *testing.T) *index.ClassIndex {
	t.Helper()
	classes := [][]byte{
		testutil.NewClass("com/acme/Api").
			Access(testutil.AccPublic | testutil.AccInterface | testutil.AccAbstract).
			Method(testutil.MethodSpec{Access: testutil.AccPublic | testutil.AccAbstract, Name: "call", Descriptor: "(I)V"}).
			Bytes(),
		testutil.NewClass("com/acme/Impl").
			Implements("com/acme/Api").
			Field(testutil.FieldSpec{Access: testutil.AccPrivate | testutil.AccStatic, Name: "COUNT", Descriptor: "I"}).
			Method(testutil.MethodSpec{Access: testutil.AccPublic, Name: "call", Descriptor: "(I)V"}).
			Method(testutil.MethodSpec{Access: testutil.AccPublic, Name: "getName", Descriptor: "()Lcom/acme/Api;"}).
			InnerClass(testutil.InnerClassSpec{Inner: "com/acme/Impl$Helper", Outer: "com/acme/Impl", Name: "Helper", Access: testutil.AccStatic}).
			Bytes(),
		testutil.NewClass("com/acme/Impl$Helper").
			InnerClass(testutil.InnerClassSpec{Inner: "com/acme/Impl$Helper", Outer: "com/acme/Impl", Name: "Helper", Access: testutil.AccStatic}).
			Bytes(),
		testutil.NewClass("com/acme/sub/SubImpl").
			Super("com/acme/Impl").
			Method(testutil.MethodSpec{Access: testutil.AccPublic, Name: "call", Descriptor: "(I)V"}).
			Bytes(),
	}

	idx, err := ingest.FromBytes(context.Background(), classes, ingest.Options{Workers: 2})
	require.NoError(t, err)
	return idx
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := NewServer(testIndex(t), "acme", config.Default(), nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, ts *httptest.Server, path string, params url.Values, out interface{}) int {
	t.Helper()
	u := ts.URL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func names(classes []ClassSummary) []string {
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		out = append(out, c.Name)
	}
	return out
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/healthz", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Info(t *testing.T) {
	ts := newTestServer(t)

	var info IndexInfo
	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/info", nil, &info))
	assert.Equal(t, "acme", info.Name)
	assert.Equal(t, 4, info.Stats.Classes)
	assert.Equal(t, 4, info.Stats.Methods)
}

func TestServer_Classes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		params url.Values
		want   []string
	}{
		{"prefix ignores case", url.Values{"q": {"impl"}}, []string{"com/acme/Impl", "com/acme/Impl$Helper"}},
		{"match case", url.Values{"q": {"impl"}, "match": {"match-case"}}, []string{}},
		{"contains", url.Values{"q": {"Impl"}, "mode": {"contains"}}, []string{"com/acme/Impl", "com/acme/Impl$Helper", "com/acme/sub/SubImpl"}},
		{"limit", url.Values{"q": {"Impl"}, "limit": {"1"}}, []string{"com/acme/Impl"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var classes []ClassSummary
			assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/classes", tt.params, &classes))
			assert.ElementsMatch(t, tt.want, names(classes))
		})
	}
}

func TestServer_Classes_BadRequest(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		params url.Values
	}{
		{"missing query", nil},
		{"bad mode", url.Values{"q": {"a"}, "mode": {"fuzzy"}}},
		{"bad limit", url.Values{"q": {"a"}, "limit": {"-3"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			assert.Equal(t, http.StatusBadRequest, getJSON(t, ts, "/api/classes", tt.params, &body))
			assert.Equal(t, "INVALID_INPUT", body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestServer_Class(t *testing.T) {
	ts := newTestServer(t)

	var detail ClassDetail
	status := getJSON(t, ts, "/api/class", url.Values{"class": {"com/acme/Impl"}}, &detail)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "com/acme/Impl", detail.Name)
	assert.Equal(t, "com.acme.Impl", detail.SourceName)
	assert.Equal(t, "class", detail.Kind)
	assert.Equal(t, []string{"com/acme/Api"}, detail.SuperTypes)
	assert.Equal(t, []string{"com/acme/Impl$Helper"}, detail.MemberClasses)

	require.Len(t, detail.Fields, 1)
	assert.Equal(t, FieldView{Name: "COUNT", Visibility: "private", Static: true, Descriptor: "I", Signature: "I"}, detail.Fields[0])

	require.Len(t, detail.Methods, 2)
	assert.Equal(t, "call", detail.Methods[0].Name)
	assert.Equal(t, "(I)V", detail.Methods[0].Descriptor)
	assert.Equal(t, "getName", detail.Methods[1].Name)
	assert.Equal(t, "()Lcom/acme/Api;", detail.Methods[1].Descriptor)

	var helper ClassDetail
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/class", url.Values{"class": {"com/acme/Impl$Helper"}}, &helper))
	assert.Equal(t, "Helper", helper.SimpleName)
	assert.Equal(t, "com/acme/Impl", helper.Enclosing)

	var api ClassDetail
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/class", url.Values{"class": {"com/acme/Api"}}, &api))
	assert.Equal(t, "interface", api.Kind)
	assert.True(t, api.Methods[0].Abstract)
}

func TestServer_Class_NotFound(t *testing.T) {
	ts := newTestServer(t)

	var body errorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts, "/api/class", url.Values{"class": {"com/acme/Missing"}}, &body))
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.Contains(t, body.Error, "com/acme/Missing")
}

func TestServer_Packages(t *testing.T) {
	ts := newTestServer(t)

	var pkgs []string
	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/packages", url.Values{"q": {"com/ac"}}, &pkgs))
	assert.Equal(t, []string{"com/acme"}, pkgs)

	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/packages", url.Values{"q": {"com/acme/s"}}, &pkgs))
	assert.Equal(t, []string{"com/acme/sub"}, pkgs)
}

func TestServer_Methods(t *testing.T) {
	ts := newTestServer(t)

	var methods []MethodView
	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/methods", url.Values{"prefix": {"get"}}, &methods))
	require.Len(t, methods, 1)
	assert.Equal(t, "com/acme/Impl", methods[0].Class)
	assert.Equal(t, "getName", methods[0].Name)

	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/methods", url.Values{"prefix": {"call"}, "limit": {"2"}}, &methods))
	assert.Len(t, methods, 2)
}

func TestServer_Implementations(t *testing.T) {
	ts := newTestServer(t)

	var classes []ClassSummary
	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/implementations", url.Values{"class": {"com/acme/Api"}}, &classes))
	assert.ElementsMatch(t, []string{"com/acme/Impl", "com/acme/sub/SubImpl"}, names(classes))

	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/implementations", url.Values{"class": {"com/acme/Api"}, "direct": {"true"}}, &classes))
	assert.Equal(t, []string{"com/acme/Impl"}, names(classes))

	var methods []MethodView
	params := url.Values{"class": {"com/acme/Api"}, "method": {"call"}, "descriptor": {"(I)V"}}
	assert.Equal(t, http.StatusOK, getJSON(t, ts, "/api/implementations", params, &methods))
	var owners []string
	for _, m := range methods {
		owners = append(owners, m.Class)
	}
	assert.ElementsMatch(t, []string{"com/acme/Impl", "com/acme/sub/SubImpl"}, owners)

	var body errorResponse
	params = url.Values{"class": {"com/acme/Api"}, "method": {"missing"}}
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts, "/api/implementations", params, &body))
}

func TestServer_BaseMethods(t *testing.T) {
	ts := newTestServer(t)

	var methods []MethodView
	params := url.Values{"class": {"com/acme/sub/SubImpl"}, "method": {"call"}}
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/base-methods", params, &methods))
	require.Len(t, methods, 2)
	assert.Equal(t, "com/acme/Impl", methods[0].Class)
	assert.Equal(t, "com/acme/Api", methods[1].Class)

	var body errorResponse
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts, "/api/base-methods", url.Values{"class": {"com/acme/Impl"}}, &body))
}

func TestNewServer_NilIndex(t *testing.T) {
	_, err := NewServer(nil, "x", config.Default(), nil)
	assert.Error(t, err)
}

func TestServer_Profiling(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		status  int
	}{
		{"Enabled", true, http.StatusOK},
		{"Disabled", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Pprof.Enabled = tt.enabled
			srv, err := NewServer(testIndex(t), "acme", cfg, nil)
			require.NoError(t, err)
			ts := httptest.NewServer(srv.Handler())
			defer ts.Close()

			resp, err := http.Get(ts.URL + "/debug/pprof/")
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
