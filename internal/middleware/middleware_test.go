package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb
}

func TestSession_LoadsUserFromCookie(t *testing.T) {
	rdb := setupRedis(t)
	uid := uuid.New()
	b, _ := json.Marshal(map[string]interface{}{"user": map[string]interface{}{"user_id": uid.String(), "email": "a@example.com"}})
	require.NoError(t, rdb.Set(context.Background(), SessionRedisPrefix+"abc", b, 0).Err())

	app := fiber.New()
	app.Use(SessionWithClient(rdb))
	app.Get("/me", RequireAuth(), func(c *fiber.Ctx) error {
		id, _ := CurrentUserID(c)
		return c.SendString(id.String() + " " + CurrentEmail(c))
	})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:abc.sig")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, uid.String()+" a@example.com", string(body))
}

func TestSession_AnonymousIsUnauthorizedAndNotStored(t *testing.T) {
	rdb := setupRedis(t)
	app := fiber.New()
	app.Use(SessionWithClient(rdb))
	app.Get("/me", RequireAuth(), func(c *fiber.Ctx) error { return c.SendStatus(200) })
	app.Get("/open", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	req := httptest.NewRequest("GET", "/open", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:unknown")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	keys, err := rdb.Keys(context.Background(), SessionRedisPrefix+"*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSession_SetUserPersists(t *testing.T) {
	rdb := setupRedis(t)
	uid := uuid.New()
	app := fiber.New()
	app.Use(SessionWithClient(rdb))
	var sid string
	app.Post("/login", func(c *fiber.Ctx) error {
		sid = RegenerateSessionID(c)
		SetSessionUser(c, SessionUser{UserID: uid.String(), Email: "b@example.com"})
		return c.SendStatus(200)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	raw, err := rdb.Get(context.Background(), SessionRedisPrefix+sid).Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), uid.String())
}

func TestParseSessionCookie(t *testing.T) {
	assert.Equal(t, "id", parseSessionCookie("s:id.signature"))
	assert.Equal(t, "id", parseSessionCookie("s:id"))
	assert.Equal(t, "", parseSessionCookie("id"))
	assert.Equal(t, "", parseSessionCookie(""))
}

func TestRequireFunctionKey(t *testing.T) {
	app := fiber.New()
	app.Post("/fn", RequireFunctionKey("secret"), func(c *fiber.Ctx) error { return c.SendStatus(200) })
	app.Post("/off", RequireFunctionKey(""), func(c *fiber.Ctx) error { return c.SendStatus(200) })

	req := httptest.NewRequest("POST", "/fn", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	req = httptest.NewRequest("POST", "/fn", nil)
	req.Header.Set(FunctionKeyHeader, "secret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	req = httptest.NewRequest("POST", "/fn", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/off", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestErrorHandler_RecordsServerErrors(t *testing.T) {
	rdb := setupRedis(t)
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(rdb)})
	app.Use(Tracing())
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db down") })
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	entries, err := rdb.LRange(context.Background(), KeyErrorLog, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "db down")
}

func TestTracing_KeepsValidIncomingID(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetTraceID(c)) })

	id := uuid.New().String()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-Id", id)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, id, string(body))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-Id", "not-a-uuid")
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.NotEqual(t, "not-a-uuid", string(body))
}

func TestHealthMarker_CountsRequests(t *testing.T) {
	rdb := setupRedis(t)
	app := fiber.New()
	app.Use(HealthMarker(rdb))
	app.Get("/api/v1/x", func(c *fiber.Ctx) error { return c.SendStatus(200) })
	app.Get("/health/json", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	for _, p := range []string{"/api/v1/x", "/api/v1/x", "/health/json"} {
		_, err := app.Test(httptest.NewRequest("GET", p, nil))
		require.NoError(t, err)
	}
	total, err := rdb.Get(context.Background(), KeyReqTotal).Int()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestTracing_RequestLoggerCarriesTraceID(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error {
		Logger(c).Info().Msg("hello")
		return c.SendString(GetTraceID(c))
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	id, _ := io.ReadAll(resp.Body)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, string(id), line["trace_id"])
	assert.Equal(t, "hello", line["message"])
}

func TestCORS_Origins(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{
		FrontendOrigin: "https://market.example.com/",
		AllowedSuffix:  "-market.vercel.app",
		DevPassword:    "letmein",
	}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	for _, tc := range []struct {
		origin, password string
		want             int
	}{
		{"", "", 200},
		{"https://market.example.com", "", 200},
		{"https://pr-12-market.vercel.app", "", 200},
		{"https://evil.example.org", "", 403},
		{"https://evil.example.org", "letmein", 200},
	} {
		req := httptest.NewRequest("GET", "/", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if tc.password != "" {
			req.Header.Set("dev-password", tc.password)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, tc.origin)
		if tc.want == 200 && tc.origin != "" {
			assert.Equal(t, tc.origin, resp.Header.Get("Access-Control-Allow-Origin"))
		}
	}

	req := httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestDestroyUserSessions(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	uid := uuid.NewString()
	for _, sid := range []string{"a", "b"} {
		require.NoError(t, rdb.Set(ctx, SessionRedisPrefix+sid, "{}", 0).Err())
		require.NoError(t, rdb.SAdd(ctx, UserSessionsPrefix+uid, sid).Err())
	}
	require.NoError(t, rdb.Set(ctx, SessionRedisPrefix+"other", "{}", 0).Err())

	n, err := DestroyUserSessions(ctx, rdb, uid)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	keys, err := rdb.Keys(ctx, "*").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{SessionRedisPrefix + "other"}, keys)

	n, err = DestroyUserSessions(ctx, rdb, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}
