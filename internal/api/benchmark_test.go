package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/good-yellow-bee/secdash/internal/models"
)

func BenchmarkAPI_Health(b *testing.B) {
	srv, _, cleanup := testServer(b)
	defer cleanup()
	h := srv.Handler()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/health/ready", nil))
		if rec.Code != http.StatusOK {
			b.Fatalf("status = %d", rec.Code)
		}
	}
}

func benchFalconCSV(rows int) []byte {
	var sb strings.Builder
	sb.WriteString("Detection ID,Title,Severity,Tactic,Hostname,Timestamp\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "ldt:%d,Detection %d,High,Execution,host%02d,2025-06-%02dT10:00:00Z\n", i, i, i%20, i%28+1)
	}
	return []byte(sb.String())
}

func BenchmarkAPI_Import(b *testing.B) {
	srv, store, cleanup := testServer(b)
	defer cleanup()
	createTestUser(b, store, "operator", testPassword, models.RoleOperator)
	h := srv.Handler()
	token := login(b, h, "operator")
	content := benchFalconCSV(500)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, uploadRequest(b, "/api/v1/import", token, "Falcon_Detections_20250630.csv", content))
		if rec.Code != http.StatusOK {
			b.Fatalf("status = %d", rec.Code)
		}
	}
}

func BenchmarkAPI_DetectionStats(b *testing.B) {
	srv, store, cleanup := testServer(b)
	defer cleanup()
	createTestUser(b, store, "operator", testPassword, models.RoleOperator)
	h := srv.Handler()
	token := login(b, h, "operator")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(b, "/api/v1/import", token, "Falcon_Detections_20250630.csv", benchFalconCSV(2000)))
	if rec.Code != http.StatusOK {
		b.Fatalf("seed status = %d", rec.Code)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, authGet("/api/v1/detections/stats", token))
			if rec.Code != http.StatusOK {
				b.Errorf("status = %d", rec.Code)
			}
		}
	})
}
