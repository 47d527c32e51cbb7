package models

// DashboardStats are the headline counters of the admin dashboard.
type DashboardStats struct {
	TotalOwners  int `json:"total_owners"`
	TotalRenters int `json:"total_renters"`
	TotalFlats   int `json:"total_flats"`
	TotalRooms   int `json:"total_rooms"`
}

// RoomKPIs summarise listing moderation and occupancy.
type RoomKPIs struct {
	Listed   int `json:"listed"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
	Occupied int `json:"occupied"`
}

// DashboardView combines both dashboard sections. A section that failed to
// load is nil and its error is reported under the section name.
type DashboardView struct {
	Stats  *DashboardStats   `json:"stats"`
	KPIs   *RoomKPIs         `json:"room_kpis"`
	Errors map[string]string `json:"errors,omitempty"`
}

// OwnerSummary backs the home owner's overview screen.
type OwnerSummary struct {
	Total        int       `json:"total"`
	Booked       int       `json:"booked"`
	Pending      int       `json:"pending"`
	Rooms        []Listing `json:"rooms"`
	BookedRooms  []Listing `json:"booked_rooms"`
	PendingRooms []Listing `json:"pending_rooms"`
}

// ComputeRoomKPIs derives moderation counters from a listing collection.
func ComputeRoomKPIs(listings []Listing) RoomKPIs {
	var k RoomKPIs
	for _, l := range listings {
		k.Listed++
		switch l.Approval() {
		case ApprovalApproved:
			k.Approved++
		case ApprovalRejected:
			k.Rejected++
		default:
			k.Pending++
		}
		if l.Occupancy() == OccupancyOccupied {
			k.Occupied++
		}
	}
	return k
}
