// Package calendar wraps the Google Calendar API behind per-user refresh
// tokens obtained through the OAuth consent flow.
package calendar

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Event is the slice of a Google Calendar event the bot cares about.
type Event struct {
	ID      string    `json:"id"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	AllDay  bool      `json:"all_day"`
	Link    string    `json:"link"`
}

type Service struct {
	config *oauth2.Config
	logger *zap.Logger
}

func NewService(cfg Config, logger *zap.Logger) *Service {
	return &Service{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				gcal.CalendarReadonlyScope,
				gcal.CalendarEventsScope,
			},
			Endpoint: google.Endpoint,
		},
		logger: logger,
	}
}

// AuthURL builds the consent URL for a user. The telegram id travels in the
// OAuth state parameter so the callback can find the user again.
func (s *Service) AuthURL(telegramID int64) string {
	return s.config.AuthCodeURL(strconv.FormatInt(telegramID, 10),
		oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for the long-lived refresh token,
// which is the only credential we persist.
func (s *Service) Exchange(ctx context.Context, code string) (string, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}
	if token.RefreshToken == "" {
		return "", fmt.Errorf("google did not return a refresh token")
	}
	return token.RefreshToken, nil
}

func (s *Service) clientFor(ctx context.Context, refreshToken string) (*gcal.Service, error) {
	token := &oauth2.Token{RefreshToken: refreshToken}
	client := s.config.Client(ctx, token)
	return gcal.NewService(ctx, option.WithHTTPClient(client))
}

// UpcomingEvents lists the next events of the user's primary calendar. An
// empty refresh token short-circuits to an empty result, it is not an error
// to ask about a calendar that was never connected.
func (s *Service) UpcomingEvents(ctx context.Context, refreshToken string, max int64) ([]Event, error) {
	if refreshToken == "" {
		s.logger.Warn("Calendar events requested without a connected calendar")
		return nil, nil
	}

	svc, err := s.clientFor(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	events, err := svc.Events.List("primary").
		Context(ctx).
		TimeMin(time.Now().Format(time.RFC3339)).
		ShowDeleted(false).
		SingleEvents(true).
		MaxResults(max).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return convertEvents(events.Items), nil
}

// EventsForDate lists all events of the given UTC calendar date.
func (s *Service) EventsForDate(ctx context.Context, refreshToken string, date time.Time) ([]Event, error) {
	if refreshToken == "" {
		s.logger.Warn("Calendar events requested without a connected calendar")
		return nil, nil
	}

	svc, err := s.clientFor(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	events, err := svc.Events.List("primary").
		Context(ctx).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		ShowDeleted(false).
		SingleEvents(true).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return convertEvents(events.Items), nil
}

// EventByID fetches a single event, nil when it cannot be found.
func (s *Service) EventByID(ctx context.Context, refreshToken, eventID string) (*Event, error) {
	if refreshToken == "" || eventID == "" {
		return nil, nil
	}

	svc, err := s.clientFor(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	item, err := svc.Events.Get("primary", eventID).Context(ctx).Do()
	if err != nil {
		s.logger.Error("Failed to get event by id",
			zap.Error(err),
			zap.String("event_id", eventID))
		return nil, nil
	}

	events := convertEvents([]*gcal.Event{item})
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// CreateEvent inserts a timed event into the user's primary calendar.
func (s *Service) CreateEvent(ctx context.Context, refreshToken, title string, start, end time.Time) (*Event, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("calendar is not connected")
	}

	svc, err := s.clientFor(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	created, err := svc.Events.Insert("primary", &gcal.Event{
		Summary: title,
		Start:   &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	events := convertEvents([]*gcal.Event{created})
	if len(events) == 0 {
		return nil, fmt.Errorf("failed to convert created event")
	}
	return &events[0], nil
}

// convertEvents converts Google Calendar events to our Event type.
func convertEvents(items []*gcal.Event) []Event {
	events := make([]Event, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		event := Event{
			ID:      item.Id,
			Summary: item.Summary,
			Link:    item.HtmlLink,
		}

		if item.Start != nil {
			if item.Start.DateTime != "" {
				event.Start, _ = time.Parse(time.RFC3339, item.Start.DateTime)
			} else if item.Start.Date != "" {
				event.Start, _ = time.Parse("2006-01-02", item.Start.Date)
				event.AllDay = true
			}
		}
		if item.End != nil {
			if item.End.DateTime != "" {
				event.End, _ = time.Parse(time.RFC3339, item.End.DateTime)
			} else if item.End.Date != "" {
				event.End, _ = time.Parse("2006-01-02", item.End.Date)
			}
		}

		events = append(events, event)
	}
	return events
}
