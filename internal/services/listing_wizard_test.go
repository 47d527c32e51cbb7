package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"roomfinder/internal/models"
	"roomfinder/internal/roomapi"
)

func newWizardFixture() (*ListingWizard, *fakeAPI, *memDrafts, *memImages, *recordingPublisher) {
	api := &fakeAPI{}
	drafts := newMemDrafts()
	images := newMemImages()
	events := &recordingPublisher{}
	w := NewListingWizard(drafts, images, api, events, nil)
	w.MaxImageBytes = 1024
	return w, api, drafts, images, events
}

func validBasic() models.BasicInfo {
	return models.BasicInfo{
		Title:       "Sunny room",
		Description: "Near the stupa",
		RoomType:    models.RoomTypeRoom,
		Price:       "12000",
		Address:     "Boudha",
		AreaSize:    "12x14",
		RoomCount:   1,
	}
}

func upload(name, contentType, body string) ImageUpload {
	return ImageUpload{FileName: name, ContentType: contentType, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestWizardStartDefaults(t *testing.T) {
	w, _, _, _, _ := newWizardFixture()
	d, err := w.Start(context.Background(), session(7, models.RoleHomeOwner))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.Step != models.StepBasicInfo || d.Basic.RoomCount != 1 {
		t.Fatalf("unexpected defaults %+v", d)
	}
	if d.Location.Lat() != models.DefaultLatitude || d.Location.Lng() != models.DefaultLongitude {
		t.Fatalf("unexpected default location %+v", d.Location)
	}
}

func TestWizardFullFlow(t *testing.T) {
	w, api, drafts, images, events := newWizardFixture()
	ctx := context.Background()
	owner := session(7, models.RoleHomeOwner)

	d, _ := w.Start(ctx, owner)
	d, err := w.SaveBasic(ctx, owner, d.ID, validBasic())
	if err != nil {
		t.Fatalf("SaveBasic: %v", err)
	}
	if d.Step != models.StepFacilities {
		t.Fatalf("step = %d after basic info", d.Step)
	}
	if d, err = w.SaveFacilities(ctx, owner, d.ID, models.Facilities{WiFi: true, Water: true}); err != nil {
		t.Fatalf("SaveFacilities: %v", err)
	}
	if d, err = w.SaveLocation(ctx, owner, d.ID, 27.72, 85.36); err != nil {
		t.Fatalf("SaveLocation: %v", err)
	}
	if d, err = w.AddImage(ctx, owner, d.ID, upload("Front.JPG", "image/jpeg", "jpeg-bytes")); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if len(d.Images) != 1 || !strings.HasSuffix(d.Images[0].Key, ".jpg") || !strings.HasPrefix(d.Images[0].Key, "drafts/"+d.ID+"/") {
		t.Fatalf("unexpected staged image %+v", d.Images)
	}

	msg, err := w.Submit(ctx, owner, d.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if msg.Message != "created" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if api.createdRoom.Basic.Title != "Sunny room" || !api.createdRoom.Facilities.WiFi || api.createdRoom.Location.Lat() != 27.72 {
		t.Fatalf("unexpected submission %+v", api.createdRoom)
	}
	if api.uploaded["Front.JPG"] != "jpeg-bytes" {
		t.Fatalf("image bytes not streamed: %v", api.uploaded)
	}
	if _, err := drafts.Get(ctx, d.ID, 7); !errors.Is(err, models.ErrDraftNotFound) {
		t.Fatalf("draft must be removed after submission, got %v", err)
	}
	if images.len() != 0 {
		t.Fatalf("staged images must be removed, %d left", images.len())
	}
	if types := events.types(); len(types) != 1 || types[0] != models.EventListingCreated {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestWizardKeepsDraftWhenSubmitFails(t *testing.T) {
	w, api, drafts, images, _ := newWizardFixture()
	ctx := context.Background()
	owner := session(7, models.RoleHomeOwner)

	d, _ := w.Start(ctx, owner)
	d, _ = w.SaveBasic(ctx, owner, d.ID, validBasic())
	d, _ = w.AddImage(ctx, owner, d.ID, upload("a.png", "image/png", "png"))

	api.createRoomErr = &roomapi.APIError{StatusCode: 500, Message: "boom"}
	if _, err := w.Submit(ctx, owner, d.ID); err == nil {
		t.Fatal("expected submission error")
	}
	kept, err := drafts.Get(ctx, d.ID, 7)
	if err != nil {
		t.Fatalf("draft must survive a failed submission: %v", err)
	}
	if kept.Basic.Title != "Sunny room" || len(kept.Images) != 1 || images.len() != 1 {
		t.Fatalf("draft content lost: %+v", kept)
	}
}

func TestWizardSubmitGate(t *testing.T) {
	w, api, _, _, _ := newWizardFixture()
	ctx := context.Background()
	owner := session(7, models.RoleHomeOwner)

	d, _ := w.Start(ctx, owner)
	_, err := w.Submit(ctx, owner, d.ID)
	var ve models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"title", "price", "images"} {
		if ve[field] == "" {
			t.Errorf("expected error on %s, got %v", field, ve)
		}
	}
	if api.count("createroom") != 0 {
		t.Fatal("invalid drafts must not be submitted")
	}
}

func TestWizardBasicValidation(t *testing.T) {
	w, _, drafts, _, _ := newWizardFixture()
	ctx := context.Background()
	owner := session(7, models.RoleHomeOwner)
	d, _ := w.Start(ctx, owner)

	bad := validBasic()
	bad.Price = "free"
	bad.RoomType = "castle"
	_, err := w.SaveBasic(ctx, owner, d.ID, bad)
	var ve models.ValidationError
	if !errors.As(err, &ve) || ve["price"] == "" || ve["room_type"] == "" {
		t.Fatalf("expected price and room_type errors, got %v", err)
	}
	stored, _ := drafts.Get(ctx, d.ID, 7)
	if stored.Step != models.StepBasicInfo {
		t.Fatalf("invalid step must not advance, step = %d", stored.Step)
	}
}

func TestWizardImageRules(t *testing.T) {
	w, _, _, images, _ := newWizardFixture()
	ctx := context.Background()
	owner := session(7, models.RoleHomeOwner)
	d, _ := w.Start(ctx, owner)

	if _, err := w.AddImage(ctx, owner, d.ID, upload("doc.pdf", "application/pdf", "pdf")); !errors.Is(err, models.ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage for pdf, got %v", err)
	}
	if _, err := w.AddImage(ctx, owner, d.ID, upload("big.jpg", "image/jpeg", strings.Repeat("x", 2048))); !errors.Is(err, models.ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage for oversized file, got %v", err)
	}

	for i := 0; i < models.MaxListingImages; i++ {
		if _, err := w.AddImage(ctx, owner, d.ID, upload("p.jpg", "image/jpeg", "x")); err != nil {
			t.Fatalf("AddImage %d: %v", i, err)
		}
	}
	if _, err := w.AddImage(ctx, owner, d.ID, upload("p.jpg", "image/jpeg", "x")); !errors.Is(err, models.ErrTooManyImages) {
		t.Fatalf("expected ErrTooManyImages, got %v", err)
	}
	if images.len() != models.MaxListingImages {
		t.Fatalf("staged %d images, want %d", images.len(), models.MaxListingImages)
	}

	cur, _ := w.Get(ctx, owner, d.ID)
	after, err := w.RemoveImage(ctx, owner, d.ID, cur.Images[0].Key)
	if err != nil {
		t.Fatalf("RemoveImage: %v", err)
	}
	if len(after.Images) != models.MaxListingImages-1 || images.len() != models.MaxListingImages-1 {
		t.Fatalf("image not removed: %d in draft, %d staged", len(after.Images), images.len())
	}
	if _, err := w.RemoveImage(ctx, owner, d.ID, "missing"); !errors.Is(err, models.ErrNoRecord) {
		t.Fatalf("expected ErrNoRecord, got %v", err)
	}
}

func TestWizardGotoAndOwnership(t *testing.T) {
	w, _, _, _, _ := newWizardFixture()
	ctx := context.Background()
	owner := session(7, models.RoleHomeOwner)
	d, _ := w.Start(ctx, owner)

	d, err := w.Goto(ctx, owner, d.ID, models.StepImages)
	if err != nil || d.Step != models.StepImages {
		t.Fatalf("Goto forward: %+v, %v", d, err)
	}
	if _, err := w.Goto(ctx, owner, d.ID, 9); !errors.Is(err, models.ErrInvalidStep) {
		t.Fatalf("expected ErrInvalidStep, got %v", err)
	}
	if _, err := w.Get(ctx, session(8, models.RoleHomeOwner), d.ID); !errors.Is(err, models.ErrDraftNotFound) {
		t.Fatalf("other owners must not see the draft, got %v", err)
	}
	var ve models.ValidationError
	if _, err := w.SaveLocation(ctx, owner, d.ID, 95, 200); !errors.As(err, &ve) || ve["latitude"] == "" || ve["longitude"] == "" {
		t.Fatalf("expected coordinate errors, got %v", err)
	}
}

func TestWizardPurgeExpired(t *testing.T) {
	w, _, drafts, images, _ := newWizardFixture()
	ctx := context.Background()
	owner := session(7, models.RoleHomeOwner)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return base }
	old, _ := w.Start(ctx, owner)
	w.AddImage(ctx, owner, old.ID, upload("a.jpg", "image/jpeg", "x"))

	w.now = func() time.Time { return base.Add(10 * 24 * time.Hour) }
	fresh, _ := w.Start(ctx, owner)

	n, err := w.PurgeExpired(ctx, 0)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d drafts, want 1", n)
	}
	if _, err := drafts.Get(ctx, old.ID, 7); !errors.Is(err, models.ErrDraftNotFound) {
		t.Fatal("expired draft must be gone")
	}
	if _, err := drafts.Get(ctx, fresh.ID, 7); err != nil {
		t.Fatalf("fresh draft must stay: %v", err)
	}
	if images.len() != 0 {
		t.Fatalf("expired draft images must be deleted, %d left", images.len())
	}
}

// staleDrafts lets another writer change the draft right after it is read.
type staleDrafts struct {
	*memDrafts
	afterGet func()
}

func (s *staleDrafts) Get(ctx context.Context, id string, ownerID int) (models.ListingDraft, error) {
	d, err := s.memDrafts.Get(ctx, id, ownerID)
	if f := s.afterGet; f != nil {
		s.afterGet = nil
		f()
	}
	return d, err
}

func TestWizardConcurrentUploadConflicts(t *testing.T) {
	drafts := &staleDrafts{memDrafts: newMemDrafts()}
	images := newMemImages()
	w := NewListingWizard(drafts, images, &fakeAPI{}, nil, nil)
	ctx := context.Background()
	owner := session(7, models.RoleHomeOwner)

	d, err := w.Start(ctx, owner)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drafts.afterGet = func() {
		if _, err := w.AddImage(ctx, owner, d.ID, upload("first.jpg", "image/jpeg", "x")); err != nil {
			t.Errorf("concurrent AddImage: %v", err)
		}
	}

	if _, err := w.AddImage(ctx, owner, d.ID, upload("second.jpg", "image/jpeg", "y")); !errors.Is(err, models.ErrDraftConflict) {
		t.Fatalf("expected ErrDraftConflict, got %v", err)
	}
	stored, _ := drafts.Get(ctx, d.ID, 7)
	if len(stored.Images) != 1 || stored.Images[0].FileName != "first.jpg" {
		t.Fatalf("first writer must win: %+v", stored.Images)
	}
	if images.len() != 1 {
		t.Fatalf("losing upload must not leave a staged object, have %d", images.len())
	}

	again, err := w.AddImage(ctx, owner, d.ID, upload("second.jpg", "image/jpeg", "y"))
	if err != nil {
		t.Fatalf("retry after conflict: %v", err)
	}
	if len(again.Images) != 2 || again.Version != stored.Version+1 {
		t.Fatalf("unexpected draft after retry %+v", again)
	}
}

func TestWizardRepeatedStepSaves(t *testing.T) {
	w, _, _, _, _ := newWizardFixture()
	ctx := context.Background()
	owner := session(7, models.RoleHomeOwner)
	d, _ := w.Start(ctx, owner)

	for i := 0; i < 3; i++ {
		if _, err := w.Goto(ctx, owner, d.ID, models.StepFacilities); err != nil {
			t.Fatalf("Goto #%d: %v", i+1, err)
		}
	}
}
