package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"roomfinder/internal/models"
)

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders)
	jsonMiddleware := standardMiddleware.Append(makeResponseJSON)
	authMiddleware := jsonMiddleware.Append(app.requireSession())
	renterMiddleware := jsonMiddleware.Append(app.requireSession(models.RoleRenter))
	ownerMiddleware := jsonMiddleware.Append(app.requireSession(models.RoleHomeOwner))
	adminMiddleware := jsonMiddleware.Append(app.requireSession(models.RoleAdmin))
	wsMiddleware := standardMiddleware.Append(app.requireSession())

	mux := pat.New()

	mux.Get("/healthz", http.HandlerFunc(app.health))

	// Auth
	mux.Post("/auth/login", jsonMiddleware.ThenFunc(app.authHandler.Login))
	mux.Post("/auth/signup", jsonMiddleware.ThenFunc(app.authHandler.SignUp))
	mux.Post("/auth/logout", authMiddleware.ThenFunc(app.authHandler.Logout))
	mux.Get("/auth/me", authMiddleware.ThenFunc(app.authHandler.Me))

	// Rooms; fixed paths go before /rooms/:id
	mux.Get("/rooms", authMiddleware.ThenFunc(app.roomHandler.Explore))
	mux.Get("/rooms/search", authMiddleware.ThenFunc(app.roomHandler.Search))
	mux.Get("/rooms/nearby", authMiddleware.ThenFunc(app.roomHandler.Nearby))
	mux.Get("/rooms/:id", authMiddleware.ThenFunc(app.roomHandler.Details))

	// Bookings
	mux.Post("/bookings", renterMiddleware.ThenFunc(app.bookingHandler.Request))
	mux.Get("/owner/rooms", ownerMiddleware.ThenFunc(app.roomHandler.OwnerRooms))
	mux.Get("/owner/bookings", ownerMiddleware.ThenFunc(app.bookingHandler.OwnerList))
	mux.Post("/owner/bookings/:id/accept", ownerMiddleware.ThenFunc(app.bookingHandler.Accept))
	mux.Del("/owner/bookings/:id", ownerMiddleware.ThenFunc(app.bookingHandler.Delete))

	// Listing wizard
	mux.Post("/owner/drafts", ownerMiddleware.ThenFunc(app.draftHandler.Create))
	mux.Get("/owner/drafts", ownerMiddleware.ThenFunc(app.draftHandler.List))
	mux.Get("/owner/drafts/:id", ownerMiddleware.ThenFunc(app.draftHandler.Get))
	mux.Del("/owner/drafts/:id", ownerMiddleware.ThenFunc(app.draftHandler.Discard))
	mux.Put("/owner/drafts/:id/basic", ownerMiddleware.ThenFunc(app.draftHandler.SaveBasic))
	mux.Put("/owner/drafts/:id/facilities", ownerMiddleware.ThenFunc(app.draftHandler.SaveFacilities))
	mux.Put("/owner/drafts/:id/location", ownerMiddleware.ThenFunc(app.draftHandler.SaveLocation))
	mux.Put("/owner/drafts/:id/step", ownerMiddleware.ThenFunc(app.draftHandler.Goto))
	mux.Post("/owner/drafts/:id/images", ownerMiddleware.ThenFunc(app.draftHandler.UploadImages))
	mux.Del("/owner/drafts/:id/images/:key", ownerMiddleware.ThenFunc(app.draftHandler.RemoveImage))
	mux.Post("/owner/drafts/:id/submit", ownerMiddleware.ThenFunc(app.draftHandler.Submit))

	// Preferences and push
	mux.Post("/preferences", authMiddleware.ThenFunc(app.preferencesHandler.Save))
	mux.Get("/recommendations", authMiddleware.ThenFunc(app.preferencesHandler.Recommendations))
	mux.Post("/devices", authMiddleware.ThenFunc(app.deviceHandler.Register))

	// Admin
	mux.Get("/admin/dashboard", adminMiddleware.ThenFunc(app.adminHandler.DashboardView))
	mux.Get("/admin/house-owners", adminMiddleware.ThenFunc(app.adminHandler.HouseOwners))
	mux.Get("/admin/renters", adminMiddleware.ThenFunc(app.adminHandler.Renters))
	mux.Get("/admin/bookings", adminMiddleware.ThenFunc(app.adminHandler.Bookings))
	mux.Get("/admin/moderation-log", adminMiddleware.ThenFunc(app.adminHandler.ModerationLog))
	mux.Get("/admin/listings/:kind", adminMiddleware.ThenFunc(app.adminHandler.Listings))
	mux.Add("PATCH", "/admin/listings/:kind/:id/approve", adminMiddleware.ThenFunc(app.adminHandler.Approve))
	mux.Add("PATCH", "/admin/listings/:kind/:id/decline", adminMiddleware.ThenFunc(app.adminHandler.Decline))

	// WebSocket
	mux.Get("/ws/events", wsMiddleware.ThenFunc(app.EventsWebSocketHandler))
	mux.Get("/ws/search", wsMiddleware.ThenFunc(app.SearchWebSocketHandler))

	return mux
}

func (app *application) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
