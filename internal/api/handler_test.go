package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"llama-stylist/internal/api"
	"llama-stylist/internal/config"
	"llama-stylist/internal/mocks"
	"llama-stylist/internal/scene"
	"llama-stylist/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success  bool           `json:"success"`
	Data     map[string]any `json:"data"`
	Error    string         `json:"error"`
	Metadata struct {
		Source           string  `json:"source"`
		ProcessingTimeMs *int64  `json:"processingTimeMs"`
		TargetStyle      *string `json:"targetStyle"`
	} `json:"metadata"`
}

func newRouter(t *testing.T, remote bool) (*gin.Engine, *mocks.MockPatchResolver, *mocks.MockStyleResolver, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	patcher := mocks.NewMockPatchResolver(t)
	styler := mocks.NewMockStyleResolver(t)

	router := gin.New()
	api.NewHandler(patcher, styler, "test", remote, zap.New(core)).RegisterRoutes(router, nil)
	return router, patcher, styler, logs
}

func doJSON(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHealth(t *testing.T) {
	for _, tc := range []struct {
		remote bool
		impl   string
	}{{true, "remote"}, {false, "local"}} {
		router, _, _, _ := newRouter(t, tc.remote)

		w := doJSON(router, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "llama-stylist", body["service"])
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "1.0.0", body["version"])
		assert.Equal(t, "test", body["environment"])
		assert.Equal(t, tc.impl, body["impl"])
		_, err := time.Parse(scene.HistoryTimeLayout, body["timestamp"])
		assert.NoError(t, err)
	}

	router, _, _, _ := newRouter(t, false)
	w := doJSON(router, http.MethodHead, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPatch_Success(t *testing.T) {
	router, patcher, _, logs := newRouter(t, false)
	result := scene.Document{"id": "d1", "title": "t", "style": "ethereal", "assumptions": []any{"used_safe_fallback"}}

	patcher.On("ResolvePatch", mock.Anything, scene.Document{"id": "d1"}, "make it red", map[string]any{"temperature": 0.2}).
		Return(result).Once()

	w := doJSON(router, http.MethodPost, "/patch",
		`{"baseJson": {"id": "d1"}, "editText": "make it red", "options": {"temperature": 0.2}}`)
	require.Equal(t, http.StatusOK, w.Code)

	env := decode(t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "d1", env.Data["id"])
	assert.Equal(t, []any{"used_safe_fallback"}, env.Data["assumptions"])
	assert.Equal(t, service.ResolverSource, env.Metadata.Source)
	require.NotNil(t, env.Metadata.ProcessingTimeMs)
	assert.GreaterOrEqual(t, *env.Metadata.ProcessingTimeMs, int64(0))
	assert.Nil(t, env.Metadata.TargetStyle)

	ops := logs.FilterMessage("AI operation").All()
	require.Len(t, ops, 1)
	fields := ops[0].ContextMap()
	assert.Equal(t, "patch", fields["operation"])
	assert.Equal(t, true, fields["success"])
	assert.Equal(t, "make it red", fields["editText"])
	assert.Equal(t, "local", fields["impl"])
}

func TestPatch_EmptyEditTextAccepted(t *testing.T) {
	router, patcher, _, _ := newRouter(t, true)
	patcher.On("ResolvePatch", mock.Anything, scene.Document{}, "", map[string]any(nil)).
		Return(scene.Document{"id": "x"}).Once()

	w := doJSON(router, http.MethodPost, "/patch", `{"baseJson": {}, "editText": ""}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPatch_LongEditTextIsShortenedInLogs(t *testing.T) {
	router, patcher, _, logs := newRouter(t, false)
	long := string(bytes.Repeat([]byte("a"), 150))
	patcher.On("ResolvePatch", mock.Anything, mock.Anything, long, mock.Anything).Return(scene.Document{}).Once()

	w := doJSON(router, http.MethodPost, "/patch", `{"baseJson": {}, "editText": "`+long+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	fields := logs.FilterMessage("AI operation").All()[0].ContextMap()
	assert.Equal(t, long[:100]+"...", fields["editText"])
}

func TestPatch_BadRequest(t *testing.T) {
	for name, body := range map[string]string{
		"malformed json":     `{"baseJson": `,
		"missing baseJson":   `{"editText": "x"}`,
		"missing editText":   `{"baseJson": {}}`,
		"baseJson not a map": `{"baseJson": [1], "editText": "x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			router, _, _, _ := newRouter(t, false)
			w := doJSON(router, http.MethodPost, "/patch", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decode(t, w)
			assert.False(t, env.Success)
			assert.Contains(t, env.Error, "Invalid request data")
		})
	}
}

func TestStyle_Success(t *testing.T) {
	router, _, styler, logs := newRouter(t, true)
	styler.On("ResolveStyle", mock.Anything, scene.Document{"id": "d2"}, "nightmare", map[string]any(nil)).
		Return(scene.Document{"id": "d2", "style": "nightmare"}).Once()

	w := doJSON(router, http.MethodPost, "/style", `{"baseJson": {"id": "d2"}, "targetStyle": "nightmare"}`)
	require.Equal(t, http.StatusOK, w.Code)

	env := decode(t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "nightmare", env.Data["style"])
	require.NotNil(t, env.Metadata.TargetStyle)
	assert.Equal(t, "nightmare", *env.Metadata.TargetStyle)

	fields := logs.FilterMessage("AI operation").All()[0].ContextMap()
	assert.Equal(t, "style_enrichment", fields["operation"])
	assert.Equal(t, "remote", fields["impl"])
}

func TestStyle_BadRequest(t *testing.T) {
	router, _, _, _ := newRouter(t, false)
	w := doJSON(router, http.MethodPost, "/style", `{"baseJson": {"id": "d2"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decode(t, w).Success)
}

// Full stack without a remote backend: the resolver answers from the local path.
func TestPatch_WithRealResolver(t *testing.T) {
	client, err := service.NewBackendClient(&config.Config{LLMModel: "llama3", LLMTimeoutMS: 1000}, nil)
	require.NoError(t, err)
	defer client.Close()

	router := gin.New()
	api.NewHandler(service.NewPatchResolver(client, nil), service.NewStyleResolver(client, nil), "test", false, nil).
		RegisterRoutes(router, nil)

	base := `{"id": "dream_1", "title": "Sky", "style": "ethereal", "structures": [], "entities": [], "assumptions": ["seed"]}`
	w := doJSON(router, http.MethodPost, "/patch", `{"baseJson": `+base+`, "editText": "add a tower"}`)
	require.Equal(t, http.StatusOK, w.Code)

	env := decode(t, w)
	assert.Equal(t, "dream_1", env.Data["id"])
	assumptions := env.Data["assumptions"].([]any)
	assert.Equal(t, "seed", assumptions[0])
	assert.Equal(t, service.TagPatchResolved, assumptions[len(assumptions)-1])
	assert.Len(t, env.Data["structures"], 1)
}

func TestRegisterRoutes_RateLimitSkipsHealth(t *testing.T) {
	patcher := mocks.NewMockPatchResolver(t)
	styler := mocks.NewMockStyleResolver(t)
	rejectAll := func(c *gin.Context) { c.AbortWithStatus(http.StatusTooManyRequests) }

	router := gin.New()
	api.NewHandler(patcher, styler, "test", false, nil).RegisterRoutes(router, rejectAll)

	assert.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, doJSON(router, http.MethodPost, "/patch", `{"baseJson": {}, "editText": "x"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, doJSON(router, http.MethodPost, "/style", `{"baseJson": {}, "targetStyle": "x"}`).Code)
}
