package services

import (
	"context"

	"roomfinder/internal/models"
)

// OwnerService builds the home owner's overview of their listings.
type OwnerService struct {
	API RoomsAPI
}

func (s *OwnerService) Summary(ctx context.Context, sess models.Session) (models.OwnerSummary, error) {
	rooms, err := s.API.OwnerRooms(ctx, sess.AccessToken)
	if err != nil {
		return models.OwnerSummary{}, err
	}
	return Summarize(rooms), nil
}

// Summarize counts booked (occupied) and pending-approval listings.
func Summarize(rooms []models.Listing) models.OwnerSummary {
	sum := models.OwnerSummary{
		Total:        len(rooms),
		Rooms:        nonNil(rooms),
		BookedRooms:  []models.Listing{},
		PendingRooms: []models.Listing{},
	}
	for _, r := range rooms {
		if r.Occupancy() == models.OccupancyOccupied {
			sum.BookedRooms = append(sum.BookedRooms, r)
		}
		if r.Approval() == models.ApprovalPending {
			sum.PendingRooms = append(sum.PendingRooms, r)
		}
	}
	sum.Booked = len(sum.BookedRooms)
	sum.Pending = len(sum.PendingRooms)
	return sum
}
