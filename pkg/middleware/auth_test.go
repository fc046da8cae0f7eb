package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/debatearchive/catalog/internal/tokens"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier implements Verifier
type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	if raw == "goodtoken" {
		return &fakeToken{data: map[string]interface{}{"sub": "editor1"}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func serveWithAuth(t *testing.T, ver Verifier, header string) *httptest.ResponseRecorder {
	t.Helper()
	g := gin.New()
	g.GET("/", AuthMiddleware(ver), func(c *gin.Context) {
		claims, ok := c.Get("claims")
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"claims": claims})
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	rw := serveWithAuth(t, &fakeVerifier{}, "")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	require.Equal(t, float64(401), body["code"])
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, serveWithAuth(t, &fakeVerifier{}, "BadHeader").Code)
	require.Equal(t, http.StatusUnauthorized, serveWithAuth(t, &fakeVerifier{}, "Bearer ").Code)
	require.Equal(t, http.StatusUnauthorized, serveWithAuth(t, &fakeVerifier{}, "Bearer nope").Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rw := serveWithAuth(t, &fakeVerifier{}, "Bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, "editor1", got["claims"].(map[string]interface{})["sub"])
}

func TestHMACVerifier(t *testing.T) {
	_, err := NewHMACVerifier("")
	require.Error(t, err)

	ver, err := NewHMACVerifier("s3cret")
	require.NoError(t, err)

	good, err := tokens.Sign("s3cret", jwt.MapClaims{"sub": "editor1", "exp": time.Now().Add(time.Minute).Unix()})
	require.NoError(t, err)
	rw := serveWithAuth(t, ver, "Bearer "+good)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Contains(t, rw.Body.String(), "editor1")

	forged, err := tokens.Sign("other", jwt.MapClaims{"sub": "editor1"})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, serveWithAuth(t, ver, "Bearer "+forged).Code)

	expired, err := tokens.Sign("s3cret", jwt.MapClaims{"sub": "editor1", "exp": time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, serveWithAuth(t, ver, "Bearer "+expired).Code)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, serveWithAuth(t, ver, "Bearer "+none).Code)
}
