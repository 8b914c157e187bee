package google

import (
	"context"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/example/room-booker/internal/application"
	"github.com/example/room-booker/internal/scheduler"
)

const (
	primaryCalendar = "primary"
	sendUpdatesAll  = "all"
	statusCancelled = "cancelled"
)

// CalendarProvider implements application.CalendarProvider.
type CalendarProvider struct {
	opts Options
}

// NewCalendarProvider returns a provider that builds Calendar clients per user.
func NewCalendarProvider(opts Options) *CalendarProvider {
	return &CalendarProvider{opts: opts}
}

// CalendarFor binds a calendar client to tokens.
func (p *CalendarProvider) CalendarFor(ctx context.Context, tokens application.TokenBundle) (application.Calendar, error) {
	svc, err := calendar.NewService(ctx, p.opts.clientOptions(ctx, tokens)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &CalendarClient{svc: svc, opts: p.opts}, nil
}

// CalendarClient operates on the primary calendar of one user.
type CalendarClient struct {
	svc  *calendar.Service
	opts Options
}

// QueryFreeBusy asks for the busy intervals of every email in one request.
// Calendars reporting errors, or busy periods that cannot be parsed, are
// marked as failed.
func (c *CalendarClient) QueryFreeBusy(ctx context.Context, emails []string, start, end time.Time) (map[string]scheduler.CalendarBusy, error) {
	out := make(map[string]scheduler.CalendarBusy, len(emails))
	if len(emails) == 0 {
		return out, nil
	}

	items := make([]*calendar.FreeBusyRequestItem, 0, len(emails))
	for _, email := range emails {
		items = append(items, &calendar.FreeBusyRequestItem{Id: email})
	}
	req := &calendar.FreeBusyRequest{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
		Items:   items,
	}

	var resp *calendar.FreeBusyResponse
	err := c.opts.observe(ctx, "calendar", "freebusy.query", func(ctx context.Context) error {
		var err error
		resp, err = c.svc.Freebusy.Query(req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	for id, cal := range resp.Calendars {
		answer := scheduler.CalendarBusy{Failed: len(cal.Errors) > 0}
		for _, period := range cal.Busy {
			if period == nil {
				continue
			}
			busyStart, errStart := time.Parse(time.RFC3339, period.Start)
			busyEnd, errEnd := time.Parse(time.RFC3339, period.End)
			if errStart != nil || errEnd != nil {
				answer.Failed = true
				continue
			}
			answer.Busy = append(answer.Busy, scheduler.Interval{Start: busyStart, End: busyEnd})
		}
		out[id] = answer
	}
	return out, nil
}

// ListEvents returns the timed, non-cancelled events of the window, expanded
// into single instances and ordered by start.
func (c *CalendarClient) ListEvents(ctx context.Context, start, end time.Time) ([]application.CalendarEvent, error) {
	var events []application.CalendarEvent
	err := c.opts.observe(ctx, "calendar", "events.list", func(ctx context.Context) error {
		call := c.svc.Events.List(primaryCalendar).
			TimeMin(start.UTC().Format(time.RFC3339)).
			TimeMax(end.UTC().Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(250)
		return call.Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				if item == nil || item.Status == statusCancelled {
					continue
				}
				event, ok := toCalendarEvent(item)
				if !ok {
					continue
				}
				events = append(events, event)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetEvent fetches one event. Cancelled and all-day events are reported as not found.
func (c *CalendarClient) GetEvent(ctx context.Context, id string) (application.CalendarEvent, error) {
	var item *calendar.Event
	err := c.opts.observe(ctx, "calendar", "events.get", func(ctx context.Context) error {
		var err error
		item, err = c.svc.Events.Get(primaryCalendar, id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return application.CalendarEvent{}, err
	}
	if item.Status == statusCancelled {
		return application.CalendarEvent{}, fmt.Errorf("event %s is cancelled: %w", id, application.ErrNotFound)
	}
	event, ok := toCalendarEvent(item)
	if !ok {
		return application.CalendarEvent{}, fmt.Errorf("event %s has no start time: %w", id, application.ErrNotFound)
	}
	return event, nil
}

// InsertEvent creates an event and notifies the guests.
func (c *CalendarClient) InsertEvent(ctx context.Context, draft application.EventDraft) (application.CalendarEvent, error) {
	body := &calendar.Event{
		Summary:     draft.Title,
		Description: draft.Description,
		Start:       toEventDateTime(draft.Start),
		End:         toEventDateTime(draft.End),
		Attendees:   toEventAttendees(draft.Attendees),
	}

	var created *calendar.Event
	err := c.opts.observe(ctx, "calendar", "events.insert", func(ctx context.Context) error {
		var err error
		created, err = c.svc.Events.Insert(primaryCalendar, body).SendUpdates(sendUpdatesAll).Context(ctx).Do()
		return err
	})
	if err != nil {
		return application.CalendarEvent{}, err
	}
	event, _ := toCalendarEvent(created)
	return event, nil
}

// PatchEvent applies the non-nil fields of patch.
func (c *CalendarClient) PatchEvent(ctx context.Context, id string, patch application.EventPatch) (application.CalendarEvent, error) {
	body := &calendar.Event{}
	if patch.Title != nil {
		body.Summary = *patch.Title
		body.ForceSendFields = append(body.ForceSendFields, "Summary")
	}
	if patch.Description != nil {
		body.Description = *patch.Description
		body.ForceSendFields = append(body.ForceSendFields, "Description")
	}
	if patch.End != nil {
		body.End = toEventDateTime(*patch.End)
	}
	if patch.Attendees != nil {
		body.Attendees = toEventAttendees(patch.Attendees)
	}

	var updated *calendar.Event
	err := c.opts.observe(ctx, "calendar", "events.patch", func(ctx context.Context) error {
		var err error
		updated, err = c.svc.Events.Patch(primaryCalendar, id, body).SendUpdates(sendUpdatesAll).Context(ctx).Do()
		return err
	})
	if err != nil {
		return application.CalendarEvent{}, err
	}
	event, _ := toCalendarEvent(updated)
	return event, nil
}

// DeleteEvent removes an event and notifies the guests.
func (c *CalendarClient) DeleteEvent(ctx context.Context, id string) error {
	return c.opts.observe(ctx, "calendar", "events.delete", func(ctx context.Context) error {
		return c.svc.Events.Delete(primaryCalendar, id).SendUpdates(sendUpdatesAll).Context(ctx).Do()
	})
}

func toEventDateTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
}

func toEventAttendees(attendees []application.Attendee) []*calendar.EventAttendee {
	out := make([]*calendar.EventAttendee, 0, len(attendees))
	for _, attendee := range attendees {
		out = append(out, &calendar.EventAttendee{
			Email:          attendee.Email,
			Resource:       attendee.Resource,
			ResponseStatus: attendee.ResponseStatus,
		})
	}
	return out
}

// toCalendarEvent converts a timed event. All-day events report false.
func toCalendarEvent(item *calendar.Event) (application.CalendarEvent, bool) {
	if item == nil || item.Start == nil || item.End == nil || item.Start.DateTime == "" || item.End.DateTime == "" {
		return application.CalendarEvent{}, false
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return application.CalendarEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return application.CalendarEvent{}, false
	}

	event := application.CalendarEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Start:       start,
		End:         end,
		HTMLLink:    item.HtmlLink,
		Attendees:   make([]application.Attendee, 0, len(item.Attendees)),
	}
	if item.Organizer != nil {
		event.Organizer = item.Organizer.Email
	}
	for _, attendee := range item.Attendees {
		if attendee == nil {
			continue
		}
		event.Attendees = append(event.Attendees, application.Attendee{
			Email:          attendee.Email,
			Resource:       attendee.Resource,
			ResponseStatus: attendee.ResponseStatus,
		})
	}
	return event, true
}
