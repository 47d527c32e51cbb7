package roomapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"roomfinder/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, Retries: 2, RetryBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, srv
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewClient(Config{BaseURL: "ftp://example.com"}); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestLogin(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var in models.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if in.Phone != "9800000000" || in.Password != "secret1" {
			t.Errorf("unexpected credentials %+v", in)
		}
		_, _ = io.WriteString(w, `{"accessToken":"tok","user":{"id":5,"full_name":"Ram","role":"homeOwner"}}`)
	})

	res, err := c.Login(context.Background(), models.LoginRequest{Phone: "9800000000", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.AccessToken != "tok" || res.User.ID != 5 || res.User.Role != models.RoleHomeOwner {
		t.Fatalf("unexpected login result %+v", res)
	}
}

func TestListRoomsUnwrapsEnvelope(t *testing.T) {
	for name, body := range map[string]string{
		"envelope": `{"data":[{"r_id":1,"title":"A"},{"r_id":2,"title":"B"}]}`,
		"bare":     `[{"r_id":1,"title":"A"},{"r_id":2,"title":"B"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("unexpected authorization %q", got)
				}
				_, _ = io.WriteString(w, body)
			})
			rooms, err := c.ListRooms(context.Background(), "tok")
			if err != nil {
				t.Fatalf("ListRooms returned error: %v", err)
			}
			if len(rooms) != 2 || rooms[1].Title != "B" {
				t.Fatalf("unexpected rooms %+v", rooms)
			}
		})
	}
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Room not found"}`)
	})

	_, err := c.RoomDetails(context.Background(), "tok", 9)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "Room not found" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if IsTransient(err) {
		t.Fatal("404 must not be transient")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
	if msg := UserMessage(err, "fallback"); msg != "Room not found" {
		t.Fatalf("unexpected user message %q", msg)
	}
}

func TestGetRetriedOnTransientFailure(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"data":[]}`)
	})

	if _, err := c.BookingRequests(context.Background(), "tok"); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestPostWithoutKeyNotRetried(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.AcceptBooking(context.Background(), "tok", 3)
	if err == nil || !IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestRequestBookingForwardsIdempotencyKey(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Idempotency-Key") != "key-1" {
			t.Errorf("missing idempotency key")
		}
		var in models.CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if in.RoomID != 7 || in.OwnerID != 2 || in.UserID != 4 || in.Price != 5000 {
			t.Errorf("unexpected payload %+v", in)
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"message":"Booking requested","data":{"id":11,"status":"pending"}}`)
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, Retries: 2, RetryBackoff: time.Millisecond, HonorsIdempotencyKey: true})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	out, err := c.RequestBooking(context.Background(), "tok", models.CreateBookingRequest{RoomID: 7, UserID: 4, OwnerID: 2, Price: 5000}, "key-1")
	if err != nil {
		t.Fatalf("RequestBooking returned error: %v", err)
	}
	if out.ID != 11 || out.RoomID != 7 || out.OwnerID != 2 {
		t.Fatalf("unexpected booking %+v", out)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestRequestBookingNotReplayedAfterTimeout(t *testing.T) {
	var created int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&created, 1)
		select {
		case <-release:
		case <-time.After(time.Second):
		}
		_, _ = io.WriteString(w, `{"data":{"id":11}}`)
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	c, err := NewClient(Config{
		BaseURL:      srv.URL,
		Retries:      2,
		RetryBackoff: time.Millisecond,
		Client:       &http.Client{Timeout: 50 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = c.RequestBooking(context.Background(), "tok", models.CreateBookingRequest{RoomID: 7, UserID: 4, OwnerID: 2}, "key-1")
	if err == nil || !IsTransient(err) {
		t.Fatalf("expected a transient timeout, got %v", err)
	}
	if got := atomic.LoadInt32(&created); got != 1 {
		t.Fatalf("booking sent %d times, want 1", got)
	}
}

func TestDeleteNotRetried(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	if err := c.DeleteBooking(context.Background(), "tok", 3); err == nil {
		t.Fatal("expected an error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestSearchRoomsEscapesQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.EscapedPath(); got != "/rooms/search/a%2Fb%20c" {
			t.Errorf("unexpected escaped path %q", got)
		}
		_, _ = io.WriteString(w, `[]`)
	})
	if _, err := c.SearchRooms(context.Background(), "tok", " a/b c "); err != nil {
		t.Fatalf("SearchRooms returned error: %v", err)
	}
}

func TestBaseURLPathPrefixKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/admin/stats" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"total_owners":3,"total_renters":4,"total_flats":3,"total_rooms":3}`)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/api/v1/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	stats, err := c.Stats(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalRenters != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCreateRoomMultipart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		want := map[string]string{
			"title":       "Cozy flat",
			"room_type":   "flat",
			"price":       "15000",
			"latitude":    "27.7",
			"longitude":   "85.3",
			"room_status": "available",
			"no_of_room":  "2",
			"wifi":        "true",
			"parking":     "false",
		}
		for k, v := range want {
			if got := r.FormValue(k); got != v {
				t.Errorf("field %s = %q, want %q", k, got, v)
			}
		}
		files := r.MultipartForm.File["files"]
		if len(files) != 2 {
			t.Errorf("expected 2 files, got %d", len(files))
		} else if files[0].Header.Get("Content-Type") != "image/png" {
			t.Errorf("unexpected content type %q", files[0].Header.Get("Content-Type"))
		}
		_, _ = io.WriteString(w, `{"message":"Room created"}`)
	})

	open := func(s string) func() (io.ReadCloser, error) {
		return func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(s)), nil }
	}
	msg, err := c.CreateRoom(context.Background(), "tok", CreateRoomInput{
		Basic:      models.BasicInfo{Title: "Cozy flat", RoomType: "flat", Price: "15000", RoomCount: 2},
		Facilities: models.Facilities{WiFi: true},
		Location:   models.NewPoint(27.7, 85.3),
		Images: []ImageFile{
			{Name: "a.png", ContentType: "image/png", Open: open("png-bytes")},
			{Name: "b.jpg", Open: open("jpg-bytes")},
		},
	})
	if err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}
	if msg.Message != "Room created" {
		t.Fatalf("unexpected message %q", msg.Message)
	}
}

func TestCreateRoomRejectsTooManyImages(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	images := make([]ImageFile, models.MaxListingImages+1)
	_, err := c.CreateRoom(context.Background(), "tok", CreateRoomInput{Images: images})
	if !errors.Is(err, models.ErrTooManyImages) {
		t.Fatalf("expected ErrTooManyImages, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"429", &APIError{StatusCode: http.StatusTooManyRequests}, true},
		{"500", &APIError{StatusCode: http.StatusInternalServerError}, true},
		{"400", &APIError{StatusCode: http.StatusBadRequest}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
