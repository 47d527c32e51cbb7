package roomapi

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"roomfinder/internal/models"
)

func (c *Client) ListRooms(ctx context.Context, token string) ([]models.Listing, error) {
	var out []models.Listing
	err := c.do(ctx, request{method: http.MethodGet, segments: []string{"rooms", "getrooms"}, token: token}, &out)
	return out, err
}

func (c *Client) SearchRooms(ctx context.Context, token, query string) ([]models.Listing, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.ListRooms(ctx, token)
	}
	var out []models.Listing
	err := c.do(ctx, request{method: http.MethodGet, segments: []string{"rooms", "search", query}, token: token}, &out)
	return out, err
}

func (c *Client) RoomDetails(ctx context.Context, token string, id int) (models.Listing, error) {
	var out models.Listing
	err := c.do(ctx, request{
		method:   http.MethodGet,
		segments: []string{"rooms", "get-room-details", strconv.Itoa(id)},
		token:    token,
	}, &out)
	return out, err
}

func (c *Client) OwnerRooms(ctx context.Context, token string) ([]models.Listing, error) {
	var out []models.Listing
	err := c.do(ctx, request{method: http.MethodGet, segments: []string{"rooms", "homeowner", "rooms"}, token: token}, &out)
	return out, err
}

// ImageFile is one photo part of a listing submission.
type ImageFile struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// CreateRoomInput carries everything the createroom form posts.
type CreateRoomInput struct {
	Basic      models.BasicInfo
	Facilities models.Facilities
	Location   models.Point
	Images     []ImageFile
}

// CreateRoom submits a listing as multipart form data. The images are
// streamed, so the request is never retried.
func (c *Client) CreateRoom(ctx context.Context, token string, in CreateRoomInput) (Message, error) {
	if len(in.Images) > models.MaxListingImages {
		return Message{}, fmt.Errorf("%w: %d of %d", models.ErrTooManyImages, len(in.Images), models.MaxListingImages)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeRoomForm(mw, in))
	}()

	var out Message
	err := c.do(ctx, request{
		method:      http.MethodPost,
		segments:    []string{"rooms", "createroom"},
		token:       token,
		contentType: mw.FormDataContentType(),
		body:        func() (io.Reader, error) { return pr, nil },
		raw:         true,
	}, &out)
	if err != nil {
		pr.CloseWithError(err)
	}
	return out, err
}

func writeRoomForm(mw *multipart.Writer, in CreateRoomInput) error {
	fields := []struct{ key, value string }{
		{"title", in.Basic.Title},
		{"description", in.Basic.Description},
		{"room_type", in.Basic.RoomType},
		{"price", strings.TrimSpace(in.Basic.Price)},
		{"latitude", strconv.FormatFloat(in.Location.Lat(), 'f', -1, 64)},
		{"longitude", strconv.FormatFloat(in.Location.Lng(), 'f', -1, 64)},
		{"address", in.Basic.Address},
		{"areaSize", in.Basic.AreaSize},
		{"room_status", string(models.OccupancyAvailable)},
		{"no_of_room", strconv.Itoa(in.Basic.RoomCount)},
		{"wifi", strconv.FormatBool(in.Facilities.WiFi)},
		{"parking", strconv.FormatBool(in.Facilities.Parking)},
		{"water", strconv.FormatBool(in.Facilities.Water)},
		{"electricity", strconv.FormatBool(in.Facilities.Electricity)},
		{"disposal_charge", strconv.FormatBool(in.Facilities.DisposalCharge)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.key, f.value); err != nil {
			return err
		}
	}

	for i, img := range in.Images {
		if err := writeImagePart(mw, i, img); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeImagePart(mw *multipart.Writer, index int, img ImageFile) error {
	name := img.Name
	if name == "" {
		name = fmt.Sprintf("photo_%d.jpg", index+1)
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}

	rc, err := img.Open()
	if err != nil {
		return fmt.Errorf("open image %s: %w", name, err)
	}
	defer rc.Close()
	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("copy image %s: %w", name, err)
	}
	return nil
}
