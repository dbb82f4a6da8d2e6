package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	alarmdomain "alarmbell-backend/internal/alarm/domain"
	authdomain "alarmbell-backend/internal/auth/domain"
	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/notify"
	"alarmbell-backend/pkg/queue"

	"golang.org/x/sync/errgroup"
)

// Record paths with a notification handler.
const (
	PathPersonalAlarm = "users/{userId}/alarms/{alarmId}"
	PathGroupAlarm    = "groups/{groupId}/alarms/{alarmId}"
	PathJoinRequest   = "groups/{groupId}/pendingRequests/{requestId}"
	PathActivity      = "groups/{groupId}/activities/{activityId}"
)

// GroupFinder loads a group with its members; nil means it no longer exists.
type GroupFinder interface {
	FindByID(ctx context.Context, id string) (*alarmdomain.Group, error)
}

// ProfileFinder loads user profiles; nil means unknown user.
type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*authdomain.UserProfile, error)
}

// Deliverer sends one payload to one recipient and reports what happened.
type Deliverer interface {
	Send(ctx context.Context, r Recipient, p notify.Payload) Outcome
}

// DispatchReport summarises one handled event.
type DispatchReport struct {
	Handler     string
	Discarded   string
	Recipients  int
	Sent        int
	Skipped     int
	Invalidated int
	Failed      int
}

// HandlerFunc handles one created record matched by a path pattern.
type HandlerFunc func(ctx context.Context, ev RecordEvent, params Params) (DispatchReport, error)

type route struct {
	kind    string
	pattern pathPattern
	handle  HandlerFunc
}

// Dispatcher routes record events to their notification handlers.
type Dispatcher struct {
	routes      []route
	groups      GroupFinder
	profiles    ProfileFinder
	resolver    *Resolver
	sender      Deliverer
	location    *time.Location
	concurrency int
	logger      *logger.Logger
}

func NewDispatcher(groups GroupFinder, resolver *Resolver, sender Deliverer, location *time.Location, concurrency int, log *logger.Logger) *Dispatcher {
	if location == nil {
		location = time.UTC
	}
	if concurrency <= 0 {
		concurrency = 16
	}
	d := &Dispatcher{
		groups:      groups,
		resolver:    resolver,
		sender:      sender,
		location:    location,
		concurrency: concurrency,
		logger:      log,
	}

	d.Handle(KindCreated, PathPersonalAlarm, d.onPersonalAlarm)
	d.Handle(KindCreated, PathGroupAlarm, d.onGroupAlarm)
	d.Handle(KindCreated, PathJoinRequest, d.onJoinRequest)
	d.Handle(KindCreated, PathActivity, d.onActivity)
	return d
}

// WithProfiles lets handlers fill a missing display name from the user's profile.
func (d *Dispatcher) WithProfiles(profiles ProfileFinder) *Dispatcher {
	d.profiles = profiles
	return d
}

// Handle registers h for events of kind whose path matches pattern.
func (d *Dispatcher) Handle(kind, pattern string, h HandlerFunc) {
	d.routes = append(d.routes, route{kind: kind, pattern: compilePattern(pattern), handle: h})
}

// Dispatch runs the first matching handler. Events nobody handles are
// ignored. Per-recipient failures never surface as an error here.
func (d *Dispatcher) Dispatch(ctx context.Context, ev RecordEvent) (DispatchReport, error) {
	for _, rt := range d.routes {
		if rt.kind != ev.Kind {
			continue
		}
		params, ok := rt.pattern.match(ev.Path)
		if !ok {
			continue
		}

		report, err := rt.handle(ctx, ev, params)
		report.Handler = rt.pattern.raw
		if err != nil {
			d.logger.Error("[Dispatcher] %s %s: %v", ev.Kind, ev.Path, err)
			return report, err
		}
		if report.Discarded != "" {
			d.logger.Debug("[Dispatcher] Discarded %s: %s", ev.Path, report.Discarded)
		} else {
			d.logger.Info("[Dispatcher] %s: recipients=%d sent=%d skipped=%d invalidated=%d failed=%d",
				ev.Path, report.Recipients, report.Sent, report.Skipped, report.Invalidated, report.Failed)
		}
		return report, nil
	}

	d.logger.Debug("[Dispatcher] No handler for %s %s", ev.Kind, ev.Path)
	return DispatchReport{Discarded: "no handler"}, nil
}

func decodeRecord(ev RecordEvent, v interface{}) error {
	if err := json.Unmarshal(ev.Record, v); err != nil {
		return fmt.Errorf("%w: record at %s: %v", queue.ErrMalformed, ev.Path, err)
	}
	return nil
}

func (d *Dispatcher) onPersonalAlarm(ctx context.Context, ev RecordEvent, params Params) (DispatchReport, error) {
	var alarm alarmdomain.Alarm
	if err := decodeRecord(ev, &alarm); err != nil {
		return DispatchReport{}, err
	}
	if !alarm.Active {
		return DispatchReport{Discarded: "inactive alarm"}, nil
	}
	alarm.ID = params["alarmId"]

	return d.deliver(ctx, []string{params["userId"]}, personalAlarmPayload(&alarm, d.location)), nil
}

func (d *Dispatcher) onGroupAlarm(ctx context.Context, ev RecordEvent, params Params) (DispatchReport, error) {
	var alarm alarmdomain.Alarm
	if err := decodeRecord(ev, &alarm); err != nil {
		return DispatchReport{}, err
	}
	if !alarm.Active {
		return DispatchReport{Discarded: "inactive alarm"}, nil
	}
	alarm.ID = params["alarmId"]

	group, err := d.findGroup(ctx, params["groupId"])
	if err != nil || group == nil {
		return DispatchReport{Discarded: "group not found"}, err
	}

	return d.deliver(ctx, group.Recipients(), groupAlarmPayload(&alarm, group, d.location)), nil
}

func (d *Dispatcher) onJoinRequest(ctx context.Context, ev RecordEvent, params Params) (DispatchReport, error) {
	var req alarmdomain.PendingJoinRequest
	if err := decodeRecord(ev, &req); err != nil {
		return DispatchReport{}, err
	}
	req.ID = params["requestId"]

	group, err := d.findGroup(ctx, params["groupId"])
	if err != nil || group == nil {
		return DispatchReport{Discarded: "group not found"}, err
	}
	if req.DisplayName == "" {
		req.DisplayName = d.profileName(ctx, req.RequesterID)
	}

	return d.deliver(ctx, ownerOnly(group), joinRequestPayload(&req, group)), nil
}

func (d *Dispatcher) onActivity(ctx context.Context, ev RecordEvent, params Params) (DispatchReport, error) {
	var activity alarmdomain.ActivityEvent
	if err := decodeRecord(ev, &activity); err != nil {
		return DispatchReport{}, err
	}
	if activity.Type != alarmdomain.ActivityMemberLeft {
		return DispatchReport{Discarded: "activity " + string(activity.Type)}, nil
	}
	activity.ID = params["activityId"]

	group, err := d.findGroup(ctx, params["groupId"])
	if err != nil || group == nil {
		return DispatchReport{Discarded: "group not found"}, err
	}
	if activity.DisplayName == "" {
		activity.DisplayName = d.profileName(ctx, activity.UserID)
	}

	return d.deliver(ctx, ownerOnly(group), memberLeftPayload(&activity, group)), nil
}

func (d *Dispatcher) findGroup(ctx context.Context, groupID string) (*alarmdomain.Group, error) {
	group, err := d.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group %s: %w", groupID, err)
	}
	return group, nil
}

// profileName returns "" when the name cannot be found; templates then use
// a generic placeholder.
func (d *Dispatcher) profileName(ctx context.Context, userID string) string {
	if d.profiles == nil || userID == "" {
		return ""
	}
	profile, err := d.profiles.FindByID(ctx, userID)
	if err != nil {
		d.logger.Warn("[Dispatcher] Profile lookup failed for user %s: %v", userID, err)
		return ""
	}
	if profile == nil {
		return ""
	}
	return profile.DisplayName
}

func ownerOnly(g *alarmdomain.Group) []string {
	if g.OwnerID == "" {
		return nil
	}
	return []string{g.OwnerID}
}

// deliver resolves tokens and sends to every recipient concurrently. It
// waits for all sends; one failure never cancels the others.
func (d *Dispatcher) deliver(ctx context.Context, userIDs []string, payload notify.Payload) DispatchReport {
	report := DispatchReport{Recipients: len(userIDs)}
	if len(userIDs) == 0 {
		report.Discarded = "no recipients"
		return report
	}

	recipients := d.resolver.Resolve(ctx, userIDs)
	report.Skipped = len(userIDs) - len(recipients)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(d.concurrency)

	for _, r := range recipients {
		recipient := r
		g.Go(func() error {
			outcome := d.sender.Send(ctx, recipient, payload)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case OutcomeSent:
				report.Sent++
			case OutcomeInvalidated:
				report.Invalidated++
			default:
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	return report
}
