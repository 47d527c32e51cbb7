package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"roomfinder/internal/models"
	"roomfinder/internal/roomapi"
)

// QueueView is one tab of an admin approval queue.
type QueueView struct {
	Kind   string                       `json:"kind"`
	Tab    models.ApprovalState         `json:"tab"`
	Items  []models.Listing             `json:"items"`
	Counts map[models.ApprovalState]int `json:"counts"`
}

// ApprovalService backs the admin flats and rooms queues.
type ApprovalService struct {
	API        AdminAPI
	Moderation ModerationStore
	Cache      RoomCache
	Locator    Locator
	Events     EventPublisher
	Notifier   Notifier
	Logger     *slog.Logger
}

func NewApprovalService(api AdminAPI, moderation ModerationStore, cache RoomCache, events EventPublisher, notifier Notifier, logger *slog.Logger) *ApprovalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalService{
		API:        api,
		Moderation: moderation,
		Cache:      cache,
		Events:     publisherOrNop(events),
		Notifier:   notifier,
		Logger:     logger.With("service", "approvals"),
	}
}

func parseQueue(kind, tab string) (string, models.ApprovalState, error) {
	errs := models.ValidationError{}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != roomapi.KindFlats && kind != roomapi.KindRooms {
		errs["kind"] = "Kind must be flats or rooms"
	}
	state := models.ApprovalPending
	if strings.TrimSpace(tab) != "" {
		st, ok := models.ParseApprovalState(tab)
		if !ok {
			errs["tab"] = "Tab must be pending, approved or rejected"
		}
		state = st
	}
	return kind, state, errs.OrNil()
}

// Queue fetches the whole collection once and returns the items of one tab
// with the counts of all tabs.
func (s *ApprovalService) Queue(ctx context.Context, sess models.Session, kind, tab string) (QueueView, error) {
	kind, state, err := parseQueue(kind, tab)
	if err != nil {
		return QueueView{}, err
	}
	listings, err := s.API.AdminListings(ctx, sess.AccessToken, kind)
	if err != nil {
		return QueueView{}, err
	}
	return partition(kind, state, listings), nil
}

func partition(kind string, tab models.ApprovalState, listings []models.Listing) QueueView {
	view := QueueView{
		Kind:  kind,
		Tab:   tab,
		Items: make([]models.Listing, 0, len(listings)),
		Counts: map[models.ApprovalState]int{
			models.ApprovalPending:  0,
			models.ApprovalApproved: 0,
			models.ApprovalRejected: 0,
		},
	}
	for _, l := range listings {
		state := l.Approval()
		view.Counts[state]++
		if state == tab {
			view.Items = append(view.Items, l)
		}
	}
	return view
}

// Approve signs a listing off and returns the refreshed tab.
func (s *ApprovalService) Approve(ctx context.Context, sess models.Session, kind string, id int, tab string) (QueueView, error) {
	return s.decide(ctx, sess, kind, id, tab, models.ModerationApprove, "")
}

// Decline rejects a listing with an optional reason and returns the
// refreshed tab.
func (s *ApprovalService) Decline(ctx context.Context, sess models.Session, kind string, id int, reason, tab string) (QueueView, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return QueueView{}, models.ValidationError{"reason": "Reason is too long"}
	}
	return s.decide(ctx, sess, kind, id, tab, models.ModerationDecline, reason)
}

func (s *ApprovalService) decide(ctx context.Context, sess models.Session, kind string, id int, tab, action, reason string) (QueueView, error) {
	kind, state, err := parseQueue(kind, tab)
	if err != nil {
		return QueueView{}, err
	}
	if id <= 0 {
		return QueueView{}, models.ValidationError{"id": "Invalid listing id"}
	}

	listings, err := s.API.AdminListings(ctx, sess.AccessToken, kind)
	if err != nil {
		return QueueView{}, err
	}
	idx := slices.IndexFunc(listings, func(l models.Listing) bool { return l.ID == id })
	if idx < 0 {
		return QueueView{}, models.ErrNoRecord
	}
	target := listings[idx]

	eventType := models.EventListingApproved
	note := Notification{Title: "Listing approved", Body: fmt.Sprintf("%s is now visible to renters", displayTitle(target.Title))}
	if action == models.ModerationDecline {
		_, err = s.API.RejectListing(ctx, sess.AccessToken, id, reason)
		eventType = models.EventListingRejected
		note = Notification{Title: "Listing declined", Body: fmt.Sprintf("%s was not approved", displayTitle(target.Title))}
		if reason != "" {
			note.Body += ": " + reason
		}
	} else {
		_, err = s.API.ApproveListing(ctx, sess.AccessToken, id)
	}
	if err != nil {
		return QueueView{}, err
	}
	s.Logger.Info("listing moderated", "listing_id", id, "kind", kind, "action", action, "admin_id", sess.UserID())

	s.record(ctx, models.ModerationEntry{
		AdminID:   sess.UserID(),
		ListingID: id,
		Kind:      kind,
		Action:    action,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
	s.invalidate(ctx, id, action == models.ModerationDecline)

	ev := newEvent(eventType, target.OwnerID)
	ev.ListingID = id
	if reason != "" {
		ev.Data = map[string]any{"reason": reason}
	}
	s.Events.Publish(ev)
	note.Data = map[string]string{"type": eventType, "listing_id": strconv.Itoa(id)}
	notifyAsync(s.Notifier, s.Logger, target.OwnerID, note)

	return s.Queue(ctx, sess, kind, string(state))
}

// record keeps the audit trail. The decision already happened upstream, so
// a failed write is logged rather than returned.
func (s *ApprovalService) record(ctx context.Context, e models.ModerationEntry) {
	if s.Moderation == nil {
		return
	}
	if _, err := s.Moderation.Record(context.WithoutCancel(ctx), e); err != nil {
		s.Logger.Error("record moderation", "listing_id", e.ListingID, "err", err)
	}
}

func (s *ApprovalService) invalidate(ctx context.Context, id int, unindex bool) {
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, id); err != nil {
			s.Logger.Warn("room cache invalidate", "room_id", id, "err", err)
		}
	}
	if unindex && s.Locator != nil {
		if err := s.Locator.Remove(ctx, id); err != nil {
			s.Logger.Warn("geo index remove", "room_id", id, "err", err)
		}
	}
}

// ModerationLog lists decisions, newest first. listingID 0 returns all.
func (s *ApprovalService) ModerationLog(ctx context.Context, listingID, limit int) ([]models.ModerationEntry, error) {
	if s.Moderation == nil {
		return []models.ModerationEntry{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Moderation.List(ctx, listingID, limit)
}
