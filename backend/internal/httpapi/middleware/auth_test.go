package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(testSecret))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": c.GetUint64("userId"), "username": c.GetString("username")})
	})
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()
	valid, err := SignAccessToken(testSecret, 7, "alice", time.Minute)
	if err != nil {
		t.Fatalf("SignAccessToken() error = %v", err)
	}
	expired, _ := SignAccessToken(testSecret, 7, "alice", -time.Minute)
	foreign, _ := SignAccessToken([]byte("other"), 7, "alice", time.Minute)
	refresh, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: 7, Type: "refresh"}).SignedString(testSecret)

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusOK},
		{"lowercase bearer", "bearer " + valid, "", http.StatusOK},
		{"query token", "", valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, "", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, "", http.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			target := "/me"
			if c.query != "" {
				target += "?token=" + c.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			if w := serve(r, req); w.Code != c.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, c.want, w.Body.String())
			}
		})
	}
}

func TestParseAccessToken_Claims(t *testing.T) {
	token, err := SignAccessToken(testSecret, 42, "bob", time.Minute)
	if err != nil {
		t.Fatalf("SignAccessToken() error = %v", err)
	}
	claims, err := ParseAccessToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	if claims.UserID != 42 || claims.Username != "bob" {
		t.Fatalf("ParseAccessToken() = %+v, want user 42 bob", claims)
	}
}

func TestExtractBearer(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"Bearer ":      "",
		"Bearer abc":   "abc",
		"BEARER  abc ": "abc",
		"Token abc":    "",
	}
	for in, want := range cases {
		if got := extractBearer(in); got != want {
			t.Fatalf("extractBearer(%q) = %q, want %q", in, got, want)
		}
	}
}
