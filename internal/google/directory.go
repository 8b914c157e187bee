package google

import (
	"context"
	"fmt"
	"strings"

	admin "google.golang.org/api/admin/directory/v1"

	"github.com/example/room-booker/internal/application"
)

// DefaultCustomer addresses the Workspace account of the authorising user.
const DefaultCustomer = "my_customer"

// DirectoryClient implements application.Directory with the Admin SDK.
type DirectoryClient struct {
	customer string
	opts     Options
}

func NewDirectoryClient(customer string, opts Options) *DirectoryClient {
	if customer == "" {
		customer = DefaultCustomer
	}
	return &DirectoryClient{customer: customer, opts: opts}
}

// ListRoomResources pages through the calendar resources of the customer and
// keeps conference rooms that have a calendar address.
func (d *DirectoryClient) ListRoomResources(ctx context.Context, tokens application.TokenBundle) ([]application.ConferenceRoom, error) {
	svc, err := admin.NewService(ctx, d.opts.clientOptions(ctx, tokens)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Directory service: %w", err)
	}

	var rooms []application.ConferenceRoom
	err = d.opts.observe(ctx, "directory", "resources.calendars.list", func(ctx context.Context) error {
		call := svc.Resources.Calendars.List(d.customer).MaxResults(500)
		return call.Pages(ctx, func(page *admin.CalendarResources) error {
			for _, resource := range page.Items {
				if room, ok := toConferenceRoom(resource); ok {
					rooms = append(rooms, room)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func toConferenceRoom(resource *admin.CalendarResource) (application.ConferenceRoom, bool) {
	if resource == nil || strings.TrimSpace(resource.ResourceEmail) == "" {
		return application.ConferenceRoom{}, false
	}
	switch resource.ResourceCategory {
	case "", "CONFERENCE_ROOM":
	default:
		return application.ConferenceRoom{}, false
	}

	id := resource.ResourceId
	if id == "" {
		id = resource.ResourceEmail
	}
	name := resource.ResourceName
	if name == "" {
		name = resource.GeneratedResourceName
	}
	return application.ConferenceRoom{
		ID:          id,
		Name:        name,
		Email:       strings.ToLower(resource.ResourceEmail),
		Seats:       int(resource.Capacity),
		Floor:       resource.FloorName,
		Description: resource.ResourceDescription,
	}, true
}
