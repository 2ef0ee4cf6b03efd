package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssuerRoundTrip(t *testing.T) {
	t.Parallel()
	i := NewIssuer(testSecret, time.Hour)
	token, err := i.GenerateToken("ops@example.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := i.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "ops@example.com" || claims.Role != roleAdmin {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestIssuerRejects(t *testing.T) {
	t.Parallel()
	issued := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	i := NewIssuer(testSecret, time.Hour)
	i.now = func() time.Time { return issued }
	token, err := i.GenerateToken("ops")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	later := NewIssuer(testSecret, time.Hour)
	later.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := later.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expired token error = %v, want ErrExpiredToken", err)
	}

	other := NewIssuer("ffffffffffffffffffffffffffffffff", time.Hour)
	other.now = i.now
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign token error = %v, want ErrInvalidToken", err)
	}

	if _, err := i.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token error = %v, want ErrInvalidToken", err)
	}
}

func TestAdminMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	i := NewIssuer(testSecret, time.Hour)
	token, err := i.GenerateToken("ops")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	r := gin.New()
	r.GET("/admin", AdminMiddleware(i), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("admin"))
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, tt.want)
		}
		if tt.want == http.StatusOK && w.Body.String() != "ops" {
			t.Errorf("%s: subject = %q", tt.name, w.Body.String())
		}
	}
}
