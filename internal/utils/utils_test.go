package utils

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm/logger"
)

func TestGormLoggerSkipsIgnoredQueries(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewGormLogger(zerolog.New(&buf).Level(zerolog.DebugLevel), logger.Info, `FROM "scheduled_offset" WHERE sent =`)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `SELECT * FROM "scheduled_offset" WHERE sent = false`, 12
	}, nil)
	if buf.Len() != 0 {
		t.Fatalf("ignored query was logged: %s", buf.String())
	}

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `UPDATE "scheduled_offset" SET "sent"=true`, 1
	}, errors.New("deadlock detected"))
	if !strings.Contains(buf.String(), "query failed") || !strings.Contains(buf.String(), "deadlock detected") {
		t.Fatalf("failed query not logged: %s", buf.String())
	}
}

func TestGormLoggerLogMode(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewGormLogger(zerolog.New(&buf), logger.Info)
	silent := l.LogMode(logger.Silent)

	silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("silent logger wrote: %s", buf.String())
	}
	if l.level != logger.Info {
		t.Fatal("LogMode mutated the receiver")
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/appointments/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/appointments/abc", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"path":"/appointments/:id"`, `"status":404`, `"client_ip":"203.0.113.7"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %s missing %s", out, want)
		}
	}
}
