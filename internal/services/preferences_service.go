package services

import (
	"context"
	"strings"

	"roomfinder/internal/models"
	"roomfinder/internal/roomapi"
)

type PreferencesService struct {
	API RecommendAPI
}

func (s *PreferencesService) Save(ctx context.Context, sess models.Session, prefs models.Preferences) (roomapi.Message, error) {
	prefs.PreferenceText = strings.TrimSpace(prefs.PreferenceText)
	if err := prefs.Validate(); err != nil {
		return roomapi.Message{}, err
	}
	return s.API.SetPreferences(ctx, sess.AccessToken, prefs)
}

func (s *PreferencesService) Recommendations(ctx context.Context, sess models.Session) ([]models.Listing, error) {
	items, err := s.API.Recommendations(ctx, sess.AccessToken)
	return nonNil(items), err
}
