package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"roomfinder/internal/geo"
	"roomfinder/internal/models"
	"roomfinder/internal/roomapi"
)

// fakeAPI stands in for the marketplace client. Every method records its
// call name so tests can assert on the upstream traffic.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	loginResult models.LoginResult
	loginErr    error

	rooms      []models.Listing
	roomsErr   error
	searchErr  error
	searchHits []models.Listing
	details    map[int]models.Listing

	bookings      []models.BookingRequest
	bookingsErr   error
	requestErr    error
	created       models.BookingRequest
	lastBooking   models.CreateBookingRequest
	lastIdemKey   string
	acceptErr     error
	keepDeleted   bool
	adminListings map[string][]models.Listing
	rejectReason  string
	statsErr      error
	kpisErr       error
	stats         models.DashboardStats
	kpis          models.RoomKPIs

	createRoomErr error
	createdRoom   roomapi.CreateRoomInput
	uploaded      map[string]string

	prefs models.Preferences
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAPI) Login(ctx context.Context, in models.LoginRequest) (models.LoginResult, error) {
	f.record("login")
	return f.loginResult, f.loginErr
}

func (f *fakeAPI) SignUp(ctx context.Context, in models.SignUpRequest) (roomapi.Message, error) {
	f.record("signup")
	return roomapi.Message{Message: "registered"}, nil
}

func (f *fakeAPI) ListRooms(ctx context.Context, token string) ([]models.Listing, error) {
	f.record("rooms")
	return f.rooms, f.roomsErr
}

func (f *fakeAPI) SearchRooms(ctx context.Context, token, query string) ([]models.Listing, error) {
	f.record("search")
	return f.searchHits, f.searchErr
}

func (f *fakeAPI) RoomDetails(ctx context.Context, token string, id int) (models.Listing, error) {
	f.record("details")
	l, ok := f.details[id]
	if !ok {
		return models.Listing{}, &roomapi.APIError{StatusCode: 404, Message: "room not found"}
	}
	return l, nil
}

func (f *fakeAPI) OwnerRooms(ctx context.Context, token string) ([]models.Listing, error) {
	f.record("owner-rooms")
	return f.rooms, f.roomsErr
}

func (f *fakeAPI) CreateRoom(ctx context.Context, token string, in roomapi.CreateRoomInput) (roomapi.Message, error) {
	f.record("createroom")
	if f.createRoomErr != nil {
		return roomapi.Message{}, f.createRoomErr
	}
	f.createdRoom = in
	f.uploaded = map[string]string{}
	for _, img := range in.Images {
		rc, err := img.Open()
		if err != nil {
			return roomapi.Message{}, err
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		f.uploaded[img.Name] = string(b)
	}
	return roomapi.Message{Message: "created"}, nil
}

func (f *fakeAPI) BookingRequests(ctx context.Context, token string) ([]models.BookingRequest, error) {
	f.record("bookings")
	out := make([]models.BookingRequest, len(f.bookings))
	copy(out, f.bookings)
	return out, f.bookingsErr
}

func (f *fakeAPI) RequestBooking(ctx context.Context, token string, in models.CreateBookingRequest, key string) (models.BookingRequest, error) {
	f.record("request-booking")
	f.lastBooking = in
	f.lastIdemKey = key
	if f.requestErr != nil {
		return models.BookingRequest{}, f.requestErr
	}
	return f.created, nil
}

func (f *fakeAPI) AcceptBooking(ctx context.Context, token string, id int) (roomapi.Message, error) {
	f.record("accept")
	if f.acceptErr != nil {
		return roomapi.Message{}, f.acceptErr
	}
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			f.bookings[i].Status = "accepted"
		}
	}
	return roomapi.Message{Message: "ok"}, nil
}

func (f *fakeAPI) DeleteBooking(ctx context.Context, token string, id int) error {
	f.record("delete")
	if f.keepDeleted {
		return nil
	}
	kept := f.bookings[:0]
	for _, b := range f.bookings {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	f.bookings = kept
	return nil
}

func (f *fakeAPI) HomeOwners(ctx context.Context, token string) ([]models.User, error) {
	f.record("owners")
	return []models.User{{ID: 1, FullName: "Owner", Role: models.RoleHomeOwner}}, nil
}

func (f *fakeAPI) Renters(ctx context.Context, token string) ([]models.User, error) {
	f.record("renters")
	return nil, nil
}

func (f *fakeAPI) AllBookings(ctx context.Context, token string) ([]models.AdminBooking, error) {
	f.record("all-bookings")
	var a, b models.AdminBooking
	a.BookingID = 1
	a.BookingInfo.BookingStatus = "pending"
	b.BookingID = 2
	b.BookingInfo.BookingStatus = "confirmed"
	return []models.AdminBooking{a, b}, nil
}

func (f *fakeAPI) AdminListings(ctx context.Context, token, kind string) ([]models.Listing, error) {
	f.record("admin-listings:" + kind)
	out := make([]models.Listing, len(f.adminListings[kind]))
	copy(out, f.adminListings[kind])
	return out, nil
}

func (f *fakeAPI) setStatus(id int, status string) {
	for kind, items := range f.adminListings {
		for i := range items {
			if items[i].ID == id {
				f.adminListings[kind][i].Status = status
			}
		}
	}
}

func (f *fakeAPI) ApproveListing(ctx context.Context, token string, id int) (roomapi.Message, error) {
	f.record("approve")
	f.setStatus(id, "approved")
	return roomapi.Message{}, nil
}

func (f *fakeAPI) RejectListing(ctx context.Context, token string, id int, reason string) (roomapi.Message, error) {
	f.record("reject")
	f.rejectReason = reason
	f.setStatus(id, "rejected")
	return roomapi.Message{}, nil
}

func (f *fakeAPI) Stats(ctx context.Context, token string) (models.DashboardStats, error) {
	f.record("stats")
	return f.stats, f.statsErr
}

func (f *fakeAPI) RoomKPIs(ctx context.Context, token string) (models.RoomKPIs, error) {
	f.record("room-stats")
	return f.kpis, f.kpisErr
}

func (f *fakeAPI) SetPreferences(ctx context.Context, token string, prefs models.Preferences) (roomapi.Message, error) {
	f.record("set-preferences")
	f.prefs = prefs
	return roomapi.Message{Message: "saved"}, nil
}

func (f *fakeAPI) Recommendations(ctx context.Context, token string) ([]models.Listing, error) {
	f.record("recommendations")
	return nil, nil
}

type memSessions struct {
	mu    sync.Mutex
	items map[string]models.Session
}

func newMemSessions() *memSessions { return &memSessions{items: map[string]models.Session{}} }

func (m *memSessions) Save(ctx context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = s
	return nil
}

func (m *memSessions) Get(ctx context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return models.Session{}, models.ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type memReservations struct {
	mu    sync.Mutex
	items map[string]string
	err   error
}

func newMemReservations() *memReservations { return &memReservations{items: map[string]string{}} }

func (m *memReservations) Reserve(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	if v, ok := m.items[key]; ok {
		return v, false, nil
	}
	m.items[key] = "pending"
	return "", true, nil
}

func (m *memReservations) Complete(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memReservations) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

type memRoomCache struct {
	mu          sync.Mutex
	items       map[int]models.Listing
	invalidated []int
}

func newMemRoomCache() *memRoomCache { return &memRoomCache{items: map[int]models.Listing{}} }

func (m *memRoomCache) Get(ctx context.Context, id int) (models.Listing, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	return l, ok, nil
}

func (m *memRoomCache) Set(ctx context.Context, l models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[l.ID] = l
	return nil
}

func (m *memRoomCache) Invalidate(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	m.invalidated = append(m.invalidated, id)
	return nil
}

type memDrafts struct {
	mu    sync.Mutex
	items map[string]models.ListingDraft
}

func newMemDrafts() *memDrafts { return &memDrafts{items: map[string]models.ListingDraft{}} }

func (m *memDrafts) Create(ctx context.Context, d models.ListingDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[d.ID] = d
	return nil
}

func (m *memDrafts) Get(ctx context.Context, id string, ownerID int) (models.ListingDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.items[id]
	if !ok || d.OwnerID != ownerID {
		return models.ListingDraft{}, models.ErrDraftNotFound
	}
	d.Images = append([]models.DraftImage{}, d.Images...)
	return d, nil
}

func (m *memDrafts) Update(ctx context.Context, d models.ListingDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[d.ID]
	if !ok {
		return models.ErrDraftNotFound
	}
	if cur.Version != d.Version {
		return models.ErrDraftConflict
	}
	d.Version++
	m.items[d.ID] = d
	return nil
}

func (m *memDrafts) Delete(ctx context.Context, id string, ownerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.items[id]
	if !ok || d.OwnerID != ownerID {
		return models.ErrDraftNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memDrafts) ListByOwner(ctx context.Context, ownerID int) ([]models.ListingDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ListingDraft
	for _, d := range m.items {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDrafts) ListExpired(ctx context.Context, before time.Time, limit int) ([]models.ListingDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ListingDraft
	for _, d := range m.items {
		if d.UpdatedAt.Before(before) && len(out) < limit {
			out = append(out, d)
		}
	}
	return out, nil
}

type memImages struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemImages() *memImages { return &memImages{objects: map[string][]byte{}} }

func (m *memImages) Put(ctx context.Context, key, contentType string, body io.ReadSeeker, size int64) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return "https://cdn.test/" + key, nil
}

func (m *memImages) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memImages) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memImages) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type memModeration struct {
	mu      sync.Mutex
	entries []models.ModerationEntry
}

func (m *memModeration) Record(ctx context.Context, e models.ModerationEntry) (models.ModerationEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *memModeration) List(ctx context.Context, listingID, limit int) ([]models.ModerationEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ModerationEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if listingID == 0 || m.entries[i].ListingID == listingID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingPublisher) Publish(e models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeLocator struct {
	indexed  bool
	rebuilt  int
	hits     []geo.NearbyListing
	err      error
	removed  []int
	lastTTL  time.Duration
	received int
}

func (f *fakeLocator) Indexed(ctx context.Context) (bool, error) { return f.indexed, f.err }

func (f *fakeLocator) Rebuild(ctx context.Context, listings []models.Listing, ttl time.Duration) (int, error) {
	f.rebuilt++
	f.indexed = true
	f.lastTTL = ttl
	f.received = len(listings)
	return len(listings), nil
}

func (f *fakeLocator) Remove(ctx context.Context, id int) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeLocator) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]geo.NearbyListing, error) {
	return f.hits, f.err
}

func approved() *bool {
	v := true
	return &v
}

func listing(id, owner int, title, roomType, roomStatus string) models.Listing {
	return models.Listing{
		ID:         id,
		OwnerID:    owner,
		Title:      title,
		RoomType:   roomType,
		RoomStatus: roomStatus,
		Status:     "approved",
		Price:      12000,
		Location:   models.NewPoint(27.7172, 85.3240),
	}
}

func session(userID int, role string) models.Session {
	return models.Session{
		ID:          "sess-" + strconv.Itoa(userID),
		User:        models.User{ID: userID, FullName: "User " + strconv.Itoa(userID), Role: role},
		AccessToken: "upstream-" + strconv.Itoa(userID),
	}
}
