package calendar

import (
	"context"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-planner-bot/core"
	"github.com/goliatone/go-planner-bot/providers/google/common"
	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	ServiceName       = "calendar"
	DefaultCalendarID = "primary"
	DefaultTimeout    = 20 * time.Second
)

// Client inserts events through the Calendar v3 API.
type Client struct {
	Service *gcalendar.Service
	Timeout time.Duration
}

func New(ctx context.Context, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	service, err := gcalendar.NewService(ctx, opts...)
	if err != nil {
		return nil, common.APIError(ServiceName, err, nil)
	}
	return &Client{Service: service, Timeout: timeout}, nil
}

func (c *Client) CreateEvent(ctx context.Context, req core.CreateEventRequest) (core.CreatedEvent, error) {
	if c == nil || c.Service == nil {
		return core.CreatedEvent{}, goerrors.New("calendar: service is required", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.PlannerErrorInternal)
	}
	calendarID := strings.TrimSpace(req.CalendarID)
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	end := req.End
	if end.IsZero() {
		end = req.Start.Add(core.DefaultEventLength)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	event := &gcalendar.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start:       eventDateTime(req.Start, req.TimeZone),
		End:         eventDateTime(end, req.TimeZone),
	}
	created, err := c.Service.Events.Insert(calendarID, event).Context(callCtx).Do()
	if err != nil {
		return core.CreatedEvent{}, common.APIError(ServiceName, err, map[string]any{"calendar_id": calendarID})
	}
	return core.CreatedEvent{
		ID:       created.Id,
		HTMLLink: created.HtmlLink,
		Title:    req.Title,
		Start:    req.Start,
		End:      end,
	}, nil
}

// eventDateTime always names the zone so the API does not fall back to the
// calendar's own default.
func eventDateTime(at time.Time, timeZone string) *gcalendar.EventDateTime {
	timeZone = strings.TrimSpace(timeZone)
	if timeZone == "" {
		timeZone = at.Location().String()
	}
	return &gcalendar.EventDateTime{
		DateTime: at.Format(time.RFC3339),
		TimeZone: timeZone,
	}
}

var _ core.CalendarCreator = (*Client)(nil)
