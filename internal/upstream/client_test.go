package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestListConversationsRequestShape(t *testing.T) {
	var gotPath, gotKey string
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"conversations": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	payload, err := client.ListConversations(context.Background(), "agent_1", 50, true)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}

	if gotPath != "/v1/convai/conversations" {
		t.Errorf("Path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("xi-api-key = %q", gotKey)
	}
	if got := gotQuery["agent_id"]; len(got) != 1 || got[0] != "agent_1" {
		t.Errorf("agent_id query = %v", got)
	}
	if got := gotQuery["page_size"]; len(got) != 1 || got[0] != "50" {
		t.Errorf("page_size query = %v", got)
	}
	if got := gotQuery["summary_mode"]; len(got) != 1 || got[0] != "include" {
		t.Errorf("summary_mode query = %v", got)
	}
	if _, ok := payload["conversations"]; !ok {
		t.Errorf("Unexpected payload: %v", payload)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	_, err := client.GetConversation(context.Background(), "conv_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	_, err := client.ListAgents(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
}

func TestNetworkErrorIsUnavailable(t *testing.T) {
	// Server closed before the call: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second)
	_, err := client.ListConversations(context.Background(), "agent_1", 1, false)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
}

func TestGetAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/convai/conversations/conv_1/get-audio" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	data, contentType, err := client.GetAudio(context.Background(), "conv_1")
	if err != nil {
		t.Fatalf("GetAudio failed: %v", err)
	}
	if string(data) != "mp3-bytes" || contentType != "audio/mpeg" {
		t.Errorf("Unexpected audio response: %q %q", data, contentType)
	}

	_, _, err = client.GetAudio(context.Background(), "conv_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMalformedBodyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", 5*time.Second)
	_, err := client.GetConversation(context.Background(), "conv_1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
}
