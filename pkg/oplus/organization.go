package oplus

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"

	"github.com/openergy/oplus/pkg/record"
)

// Organization owns projects and seats.
type Organization struct {
	*record.Record
	c *Client
}

// OrganizationOf returns a typed view of rec.
func (c *Client) OrganizationOf(rec *record.Record) *Organization {
	return &Organization{Record: rec, c: c}
}

// Project returns the project called name in the organization.
func (o *Organization) Project(ctx context.Context, name string) (*Project, error) {
	filter := url.Values{"organization": {o.ID()}, "name": {name}}
	rec, err := o.c.Projects.GetOne(ctx, filter, record.MatchField("name", name))
	if err != nil {
		return nil, err
	}
	return o.c.ProjectOf(rec), nil
}

// Projects lists the projects of the organization.
func (o *Organization) Projects(ctx context.Context) ([]*Project, error) {
	recs, err := o.c.Projects.All(ctx, url.Values{"organization": {o.ID()}})
	if err != nil {
		return nil, err
	}
	out := make([]*Project, 0, len(recs))
	for _, rec := range recs {
		out = append(out, o.c.ProjectOf(rec))
	}
	return out, nil
}

// CreateProject creates a project in the organization.
func (o *Organization) CreateProject(ctx context.Context, name string, extra map[string]any) (*Project, error) {
	if _, ok := extra["organization"]; ok {
		return nil, fmt.Errorf("cannot pass an organization, using %q", o.ID())
	}
	fields := maps.Clone(extra)
	if fields == nil {
		fields = map[string]any{}
	}
	fields["name"] = name
	fields["organization"] = o.ID()

	rec, err := o.c.Projects.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	return o.c.ProjectOf(rec), nil
}

// TakeSeat activates the organization for the current user.
func (o *Organization) TakeSeat(ctx context.Context) error {
	_, err := o.DetailAction(ctx, "take_up_seat", http.MethodPatch, nil, nil)
	return err
}

// LeaveSeat releases the seat taken with TakeSeat.
func (o *Organization) LeaveSeat(ctx context.Context) error {
	_, err := o.DetailAction(ctx, "leave_seat", http.MethodPatch, nil, nil)
	return err
}

// SpendDailySeats consumes amount daily seats.
func (o *Organization) SpendDailySeats(ctx context.Context, amount int) error {
	if amount < 1 {
		return fmt.Errorf("amount must be positive, got: %d", amount)
	}
	_, err := o.DetailAction(ctx, "spend_daily_seats", http.MethodPatch, map[string]any{"amount": amount}, nil)
	return err
}
