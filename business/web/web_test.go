package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/superfeelapi/goVoiceAgent/business/web"
	"github.com/superfeelapi/goVoiceAgent/foundation/external/inventory"
	"go.uber.org/zap"
)

type fakeRooms struct {
	createErr error

	mu       sync.Mutex
	created  []string
	identity string
	validFor time.Duration
}

func (f *fakeRooms) URL() string { return "wss://example.livekit.cloud" }

func (f *fakeRooms) Token(room, identity, name string, validFor time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = identity
	f.validFor = validFor
	return fmt.Sprintf("jwt:%s:%s", room, identity), nil
}

func (f *fakeRooms) CreateRoom(_ context.Context, name string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	return f.createErr
}

func newServer(rooms web.Rooms, catalog func() (inventory.Catalog, error)) *httptest.Server {
	h := web.New(rooms, catalog, zap.NewNop().Sugar())
	return httptest.NewServer(h.Router())
}

func post(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestToken(t *testing.T) {
	t.Parallel()

	rooms := &fakeRooms{createErr: errors.New("room already exists")}
	srv := newServer(rooms, nil)
	defer srv.Close()

	tt := []struct {
		name     string
		body     string
		room     string
		identity string
	}{
		{name: "explicit", body: `{"room_name":"shop-abc","participant_name":"Ana"}`, room: "shop-abc", identity: "Ana"},
		{name: "defaults", body: `{}`, identity: "Customer"},
		{name: "empty body", body: ``, identity: "Customer"},
	}

	for _, test := range tt {
		resp := post(t, srv.URL+"/api/token", test.body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", test.name, resp.StatusCode)
		}

		var got web.TokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}

		if test.room != "" && got.RoomName != test.room {
			t.Fatalf("%s: room %s, want %s", test.name, got.RoomName, test.room)
		}
		if test.room == "" && (!strings.HasPrefix(got.RoomName, "shop-") || len(got.RoomName) != 13) {
			t.Fatalf("%s: generated room %q", test.name, got.RoomName)
		}
		if got.Token != "jwt:"+got.RoomName+":"+test.identity || got.URL != "wss://example.livekit.cloud" {
			t.Fatalf("%s: response %+v", test.name, got)
		}
	}

	rooms.mu.Lock()
	defer rooms.mu.Unlock()
	if len(rooms.created) != 3 || rooms.validFor != time.Hour {
		t.Fatalf("created %v valid for %s", rooms.created, rooms.validFor)
	}
}

func TestStartAgent(t *testing.T) {
	t.Parallel()

	srv := newServer(&fakeRooms{}, nil)
	defer srv.Close()

	resp := post(t, srv.URL+"/api/start-agent", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing room: status %d", resp.StatusCode)
	}

	resp = post(t, srv.URL+"/api/start-agent", `{"room_name":"shop-abc"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var got web.StartAgentResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "ready" || got.RoomName != "shop-abc" {
		t.Fatalf("response %+v", got)
	}
}

func TestProducts(t *testing.T) {
	t.Parallel()

	catalog := inventory.Catalog{"shirts": {{Name: "Linen Shirt", Description: "Breathable", Price: 49.5}}}

	tt := []struct {
		name   string
		load   func() (inventory.Catalog, error)
		status int
	}{
		{name: "found", load: func() (inventory.Catalog, error) { return catalog, nil }, status: http.StatusOK},
		{name: "missing file", load: func() (inventory.Catalog, error) {
			return nil, fmt.Errorf("inventory file x: %w", inventory.ErrNotFound)
		}, status: http.StatusNotFound},
		{name: "broken file", load: func() (inventory.Catalog, error) { return nil, errors.New("parse") }, status: http.StatusInternalServerError},
	}

	for _, test := range tt {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			srv := newServer(&fakeRooms{}, test.load)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/api/products")
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != test.status {
				t.Fatalf("status %d, want %d", resp.StatusCode, test.status)
			}
			if test.status != http.StatusOK {
				return
			}

			var got inventory.Catalog
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if len(got["shirts"]) != 1 || got["shirts"][0].Name != "Linen Shirt" {
				t.Fatalf("catalog %+v", got)
			}
		})
	}
}

func TestProductsMethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv := newServer(&fakeRooms{}, nil)
	defer srv.Close()

	resp := post(t, srv.URL+"/api/products", `{}`)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
