package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"roomfinder/internal/models"
	"roomfinder/internal/roomapi"
)

// DirectoryService serves the admin people and booking tables.
type DirectoryService struct {
	API AdminAPI
}

func (s *DirectoryService) HouseOwners(ctx context.Context, sess models.Session) ([]models.User, error) {
	users, err := s.API.HomeOwners(ctx, sess.AccessToken)
	return nonNil(users), err
}

func (s *DirectoryService) Renters(ctx context.Context, sess models.Session) ([]models.User, error) {
	users, err := s.API.Renters(ctx, sess.AccessToken)
	return nonNil(users), err
}

// Bookings lists every booking; a non-empty status keeps only that status.
func (s *DirectoryService) Bookings(ctx context.Context, sess models.Session, status string) ([]models.AdminBooking, error) {
	all, err := s.API.AllBookings(ctx, sess.AccessToken)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(status) == "" {
		return nonNil(all), nil
	}
	want := models.ParseBookingStatus(status)
	out := make([]models.AdminBooking, 0, len(all))
	for _, b := range all {
		if b.Status() == want {
			out = append(out, b)
		}
	}
	return out, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// DashboardService loads both dashboard sections concurrently. When one
// fails the other is still returned with the failure noted in the view.
type DashboardService struct {
	API    AdminAPI
	Logger *slog.Logger
}

func (s *DashboardService) Load(ctx context.Context, sess models.Session) (models.DashboardView, error) {
	var (
		wg       sync.WaitGroup
		stats    models.DashboardStats
		kpis     models.RoomKPIs
		statsErr error
		kpisErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		stats, statsErr = s.API.Stats(ctx, sess.AccessToken)
	}()
	go func() {
		defer wg.Done()
		kpis, kpisErr = s.API.RoomKPIs(ctx, sess.AccessToken)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return models.DashboardView{}, err
	}

	view := models.DashboardView{}
	if statsErr == nil {
		view.Stats = &stats
	}
	if kpisErr == nil {
		view.KPIs = &kpis
	}
	if statsErr != nil && kpisErr != nil {
		return view, statsErr
	}
	if statsErr != nil || kpisErr != nil {
		view.Errors = map[string]string{}
		if statsErr != nil {
			view.Errors["stats"] = roomapi.UserMessage(statsErr, "statistics are unavailable")
			s.logger().Warn("dashboard stats", "err", statsErr)
		}
		if kpisErr != nil {
			view.Errors["room_kpis"] = roomapi.UserMessage(kpisErr, "room statistics are unavailable")
			s.logger().Warn("dashboard room stats", "err", kpisErr)
		}
	}
	return view, nil
}

func (s *DashboardService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
