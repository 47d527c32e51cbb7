package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"roomfinder/internal/models"
	"roomfinder/internal/roomapi"
	"roomfinder/utils"
)

const defaultMaxImageBytes = 5 << 20

// ImageUpload is one photo handed to the wizard by the client.
type ImageUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// ListingWizard runs the four-step listing creation flow. Every step is
// saved to the draft store, so a failed submission can be retried without
// filling in the form again.
type ListingWizard struct {
	Drafts        DraftStore
	Images        ImageStore
	API           CreateRoomAPI
	Events        EventPublisher
	Logger        *slog.Logger
	MaxImageBytes int64
	DraftTTL      time.Duration
	KeyPrefix     string

	now func() time.Time
}

func NewListingWizard(drafts DraftStore, images ImageStore, api CreateRoomAPI, events EventPublisher, logger *slog.Logger) *ListingWizard {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingWizard{
		Drafts:        drafts,
		Images:        images,
		API:           api,
		Events:        publisherOrNop(events),
		Logger:        logger.With("service", "wizard"),
		MaxImageBytes: defaultMaxImageBytes,
		DraftTTL:      7 * 24 * time.Hour,
		now:           time.Now,
	}
}

func (w *ListingWizard) clock() time.Time {
	if w.now == nil {
		return time.Now().UTC()
	}
	return w.now().UTC()
}

// Start opens a new draft with the form defaults.
func (w *ListingWizard) Start(ctx context.Context, sess models.Session) (models.ListingDraft, error) {
	d := models.NewListingDraft(uuid.NewString(), sess.UserID(), w.clock())
	if err := w.Drafts.Create(ctx, d); err != nil {
		return models.ListingDraft{}, fmt.Errorf("create draft: %w", err)
	}
	return d, nil
}

func (w *ListingWizard) Get(ctx context.Context, sess models.Session, id string) (models.ListingDraft, error) {
	return w.Drafts.Get(ctx, id, sess.UserID())
}

func (w *ListingWizard) List(ctx context.Context, sess models.Session) ([]models.ListingDraft, error) {
	return w.Drafts.ListByOwner(ctx, sess.UserID())
}

func (w *ListingWizard) save(ctx context.Context, d models.ListingDraft) (models.ListingDraft, error) {
	d.UpdatedAt = w.clock()
	if err := w.Drafts.Update(ctx, d); err != nil {
		return models.ListingDraft{}, err
	}
	d.Version++
	return d, nil
}

func advance(d *models.ListingDraft, next int) {
	if d.Step < next {
		d.Step = next
	}
}

// SaveBasic stores step one and moves on to facilities.
func (w *ListingWizard) SaveBasic(ctx context.Context, sess models.Session, id string, basic models.BasicInfo) (models.ListingDraft, error) {
	basic.Title = strings.TrimSpace(basic.Title)
	basic.Description = strings.TrimSpace(basic.Description)
	basic.Address = strings.TrimSpace(basic.Address)
	basic.AreaSize = strings.TrimSpace(basic.AreaSize)
	basic.Price = strings.TrimSpace(basic.Price)
	if basic.RoomCount == 0 {
		basic.RoomCount = 1
	}
	if err := basic.Validate(); err != nil {
		return models.ListingDraft{}, err
	}

	d, err := w.Drafts.Get(ctx, id, sess.UserID())
	if err != nil {
		return models.ListingDraft{}, err
	}
	d.Basic = basic
	advance(&d, models.StepFacilities)
	return w.save(ctx, d)
}

func (w *ListingWizard) SaveFacilities(ctx context.Context, sess models.Session, id string, f models.Facilities) (models.ListingDraft, error) {
	d, err := w.Drafts.Get(ctx, id, sess.UserID())
	if err != nil {
		return models.ListingDraft{}, err
	}
	d.Facilities = f
	advance(&d, models.StepLocation)
	return w.save(ctx, d)
}

func validateLocation(lat, lng float64) error {
	errs := models.ValidationError{}
	if lat < -90 || lat > 90 {
		errs["latitude"] = "Latitude must be between -90 and 90"
	}
	if lng < -180 || lng > 180 {
		errs["longitude"] = "Longitude must be between -180 and 180"
	}
	return errs.OrNil()
}

func (w *ListingWizard) SaveLocation(ctx context.Context, sess models.Session, id string, lat, lng float64) (models.ListingDraft, error) {
	if err := validateLocation(lat, lng); err != nil {
		return models.ListingDraft{}, err
	}
	d, err := w.Drafts.Get(ctx, id, sess.UserID())
	if err != nil {
		return models.ListingDraft{}, err
	}
	d.Location = models.NewPoint(lat, lng)
	advance(&d, models.StepImages)
	return w.save(ctx, d)
}

// Goto moves the wizard to any step; steps are not gated.
func (w *ListingWizard) Goto(ctx context.Context, sess models.Session, id string, step int) (models.ListingDraft, error) {
	if !models.ValidStep(step) {
		return models.ListingDraft{}, fmt.Errorf("%w: %d", models.ErrInvalidStep, step)
	}
	d, err := w.Drafts.Get(ctx, id, sess.UserID())
	if err != nil {
		return models.ListingDraft{}, err
	}
	d.Step = step
	return w.save(ctx, d)
}

// AddImage stages a photo in object storage and attaches it to the draft.
func (w *ListingWizard) AddImage(ctx context.Context, sess models.Session, id string, img ImageUpload) (models.ListingDraft, error) {
	if w.Images == nil {
		return models.ListingDraft{}, errors.New("image storage is not configured")
	}
	contentType := strings.ToLower(strings.TrimSpace(img.ContentType))
	if !strings.HasPrefix(contentType, "image/") {
		return models.ListingDraft{}, fmt.Errorf("%w: content type %q", models.ErrInvalidImage, img.ContentType)
	}
	limit := w.MaxImageBytes
	if limit <= 0 {
		limit = defaultMaxImageBytes
	}
	if img.Size > limit {
		return models.ListingDraft{}, fmt.Errorf("%w: %d bytes exceeds %d", models.ErrInvalidImage, img.Size, limit)
	}

	d, err := w.Drafts.Get(ctx, id, sess.UserID())
	if err != nil {
		return models.ListingDraft{}, err
	}
	if len(d.Images) >= models.MaxListingImages {
		return models.ListingDraft{}, fmt.Errorf("%w: %d of %d", models.ErrTooManyImages, len(d.Images), models.MaxListingImages)
	}

	key := utils.ObjectKey(w.KeyPrefix, "drafts", d.ID, uuid.NewString()+strings.ToLower(path.Ext(img.FileName)))
	url, err := w.Images.Put(ctx, key, contentType, img.Body, img.Size)
	if err != nil {
		return models.ListingDraft{}, err
	}
	d.Images = append(d.Images, models.DraftImage{
		Key:         key,
		URL:         url,
		FileName:    path.Base(img.FileName),
		ContentType: contentType,
		Size:        img.Size,
	})
	advance(&d, models.StepImages)

	saved, err := w.save(ctx, d)
	if err != nil {
		w.dropImage(ctx, key)
		return models.ListingDraft{}, err
	}
	return saved, nil
}

func (w *ListingWizard) RemoveImage(ctx context.Context, sess models.Session, id, key string) (models.ListingDraft, error) {
	d, err := w.Drafts.Get(ctx, id, sess.UserID())
	if err != nil {
		return models.ListingDraft{}, err
	}
	// key may be the full object key or only its last segment.
	idx := slices.IndexFunc(d.Images, func(img models.DraftImage) bool {
		return img.Key == key || path.Base(img.Key) == key
	})
	if idx < 0 {
		return models.ListingDraft{}, models.ErrNoRecord
	}
	objectKey := d.Images[idx].Key
	d.Images = slices.Delete(d.Images, idx, idx+1)
	saved, err := w.save(ctx, d)
	if err != nil {
		return models.ListingDraft{}, err
	}
	w.dropImage(ctx, objectKey)
	return saved, nil
}

func (w *ListingWizard) dropImage(ctx context.Context, key string) {
	if w.Images == nil {
		return
	}
	if err := w.Images.Delete(context.WithoutCancel(ctx), key); err != nil {
		w.Logger.Warn("delete staged image", "key", key, "err", err)
	}
}

// ValidateForSubmit checks the whole draft, since steps can be visited in
// any order.
func ValidateForSubmit(d models.ListingDraft) error {
	errs := models.ValidationError{}
	var basic models.ValidationError
	if errors.As(d.Basic.Validate(), &basic) {
		for k, v := range basic {
			errs[k] = v
		}
	}
	if err := validateLocation(d.Location.Lat(), d.Location.Lng()); err != nil || !d.Location.Valid() {
		errs["location"] = "Pick a valid location on the map"
	}
	if len(d.Images) == 0 {
		errs["images"] = "Add at least one image"
	}
	if len(d.Images) > models.MaxListingImages {
		errs["images"] = fmt.Sprintf("At most %d images are allowed", models.MaxListingImages)
	}
	return errs.OrNil()
}

// Submit posts the draft to the marketplace. The draft survives a failed
// submission; it is removed together with its staged images on success.
func (w *ListingWizard) Submit(ctx context.Context, sess models.Session, id string) (roomapi.Message, error) {
	d, err := w.Drafts.Get(ctx, id, sess.UserID())
	if err != nil {
		return roomapi.Message{}, err
	}
	if err := ValidateForSubmit(d); err != nil {
		return roomapi.Message{}, err
	}

	in := roomapi.CreateRoomInput{
		Basic:      d.Basic,
		Facilities: d.Facilities,
		Location:   d.Location,
		Images:     make([]roomapi.ImageFile, 0, len(d.Images)),
	}
	for _, img := range d.Images {
		key := img.Key
		name := img.FileName
		if name == "" {
			name = path.Base(key)
		}
		in.Images = append(in.Images, roomapi.ImageFile{
			Name:        name,
			ContentType: img.ContentType,
			Open: func() (io.ReadCloser, error) {
				return w.Images.Get(ctx, key)
			},
		})
	}

	msg, err := w.API.CreateRoom(ctx, sess.AccessToken, in)
	if err != nil {
		w.Logger.Warn("listing submission failed, draft kept", "draft_id", d.ID, "err", err)
		return roomapi.Message{}, err
	}

	w.discard(ctx, d)
	ev := newEvent(models.EventListingCreated, sess.UserID())
	ev.Data = map[string]any{"title": d.Basic.Title, "room_type": d.Basic.RoomType}
	w.Events.Publish(ev)
	w.Logger.Info("listing submitted", "draft_id", d.ID, "owner_id", sess.UserID())
	return msg, nil
}

// Discard deletes a draft and its staged images.
func (w *ListingWizard) Discard(ctx context.Context, sess models.Session, id string) error {
	d, err := w.Drafts.Get(ctx, id, sess.UserID())
	if err != nil {
		return err
	}
	return w.discard(ctx, d)
}

func (w *ListingWizard) discard(ctx context.Context, d models.ListingDraft) error {
	for _, img := range d.Images {
		w.dropImage(ctx, img.Key)
	}
	if err := w.Drafts.Delete(context.WithoutCancel(ctx), d.ID, d.OwnerID); err != nil && !errors.Is(err, models.ErrDraftNotFound) {
		w.Logger.Warn("delete draft", "draft_id", d.ID, "err", err)
		return err
	}
	return nil
}

// PurgeExpired removes drafts untouched for longer than DraftTTL and
// returns how many were removed.
func (w *ListingWizard) PurgeExpired(ctx context.Context, batch int) (int, error) {
	if w.DraftTTL <= 0 {
		return 0, nil
	}
	if batch <= 0 {
		batch = 100
	}
	expired, err := w.Drafts.ListExpired(ctx, w.clock().Add(-w.DraftTTL), batch)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, d := range expired {
		if err := w.discard(ctx, d); err != nil {
			continue
		}
		removed++
	}
	return removed, nil
}
