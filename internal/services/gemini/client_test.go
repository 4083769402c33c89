package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vocalis/internal/services/gemini"
)

func TestGenerateReport(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{
            "candidates": [
                {"content": {"parts": [{"text": "**Grammatical Errors**\n- There are no grammatical errors"}]}}
            ]
        }`))
	}))
	defer server.Close()

	client := gemini.NewClient("test-key", gemini.WithBaseURL(server.URL), gemini.WithModel("gemini-2.0-flash"))
	report, err := client.GenerateReport(context.Background(), "Job interview practice", "I believe my strengths are persistence and clarity.")
	if err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	if !strings.Contains(report, "Grammatical Errors") {
		t.Fatalf("unexpected report: %q", report)
	}
	if gotPath != "/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAPIKey != "test-key" {
		t.Fatalf("api key header = %q", gotAPIKey)
	}

	encoded, _ := json.Marshal(gotBody)
	if !strings.Contains(string(encoded), "Job interview practice") {
		t.Fatal("expected activity context in prompt")
	}
	if !strings.Contains(string(encoded), "persistence and clarity") {
		t.Fatal("expected transcript in prompt")
	}
}

func TestGenerateReportVersionedBaseURL(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "feedback"}]}}]}`))
	}))
	defer server.Close()

	// Base URLs carry the API version, like the packaged default does. The
	// endpoint must not repeat it.
	client := gemini.NewClient("test-key",
		gemini.WithBaseURL(server.URL+"/v1beta"),
		gemini.WithModel("gemini-1.5-flash"))
	if _, err := client.GenerateReport(context.Background(), "ctx", "some speech"); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	if gotPath != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestGenerateReportRequiresTranscript(t *testing.T) {
	client := gemini.NewClient("test-key")
	if _, err := client.GenerateReport(context.Background(), "ctx", "   "); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestGenerateReportRequiresAPIKey(t *testing.T) {
	client := gemini.NewClient("")
	if _, err := client.GenerateReport(context.Background(), "ctx", "some speech"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestGenerateReportSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": {"message": "quota exhausted"}}`))
	}))
	defer server.Close()

	client := gemini.NewClient("test-key", gemini.WithBaseURL(server.URL))
	_, err := client.GenerateReport(context.Background(), "ctx", "some speech")
	if err == nil || !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("error = %v", err)
	}
}

func TestGenerateReportEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client := gemini.NewClient("test-key", gemini.WithBaseURL(server.URL))
	if _, err := client.GenerateReport(context.Background(), "ctx", "some speech"); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}
