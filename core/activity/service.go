// Package activity manages the activities students report on. Activities live in process memory only.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/notification"
	"github.com/trezcool/practicum/core/user"
)

var (
	// errors
	ErrNotFound = fmt.Errorf("activity %w", core.ErrNotFound)
)

type Activity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	Deadline    time.Time `json:"deadline"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy"`
}

// NewActivity contains information needed to create an Activity. Deadline defaults to EndsAt.
type NewActivity struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	StartsAt    time.Time  `json:"startsAt" validate:"required"`
	EndsAt      time.Time  `json:"endsAt" validate:"required"`
	Deadline    *time.Time `json:"deadline"`
}

// UpdateActivity contains the fields to change. Nil fields are left untouched.
type UpdateActivity struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	Deadline    *time.Time `json:"deadline"`
}

// Notifier broadcasts new activities to students.
type Notifier interface {
	NotifyStudentsOfNewActivity(ctx context.Context, title, description string) ([]notification.Notification, error)
}

type Service struct {
	mu         sync.RWMutex
	latency    core.Latency
	validator  *core.Validator
	notifier   Notifier
	logger     core.Logger
	activities []Activity
}

func NewService(latency core.Latency, validator *core.Validator, notifier Notifier, logger core.Logger) *Service {
	return &Service{
		latency:   latency,
		validator: validator,
		notifier:  notifier,
		logger:    logger,
	}
}

func checkDates(a Activity) error {
	if a.EndsAt.Before(a.StartsAt) {
		return core.NewValidationError(nil, core.FieldError{Field: "endsAt", Error: "endsAt must not be before startsAt"})
	}
	if a.Deadline.Before(a.StartsAt) {
		return core.NewValidationError(nil, core.FieldError{Field: "deadline", Error: "deadline must not be before startsAt"})
	}
	return nil
}

// Create adds an activity and broadcasts it to every student. Only instructors and supervisors may create.
func (svc *Service) Create(ctx context.Context, creator user.User, na NewActivity) (Activity, error) {
	if err := svc.latency.Wait(ctx); err != nil {
		return Activity{}, err
	}
	if !creator.HasAnyRole(user.RoleInstructor, user.RoleSupervisor) {
		return Activity{}, core.ErrForbidden
	}

	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	if err := svc.validator.Struct(na); err != nil {
		return Activity{}, err
	}

	act := Activity{
		ID:          uuid.NewString(),
		Title:       na.Title,
		Description: na.Description,
		StartsAt:    na.StartsAt.UTC(),
		EndsAt:      na.EndsAt.UTC(),
		Deadline:    na.EndsAt.UTC(),
		CreatedAt:   core.NowFunc().UTC(),
		CreatedBy:   creator.ID,
	}
	if na.Deadline != nil {
		act.Deadline = na.Deadline.UTC()
	}
	if err := checkDates(act); err != nil {
		return Activity{}, err
	}

	svc.mu.Lock()
	svc.activities = append(svc.activities, act)
	svc.mu.Unlock()

	if svc.notifier != nil {
		if _, err := svc.notifier.NotifyStudentsOfNewActivity(ctx, act.Title, act.Description); err != nil {
			svc.logger.Error("notifying students of new activity", err, map[string]interface{}{"activityId": act.ID})
		}
	}
	return act, nil
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateActivity) (Activity, error) {
	if err := svc.latency.Wait(ctx); err != nil {
		return Activity{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	i := svc.indexOf(id)
	if i < 0 {
		return Activity{}, ErrNotFound
	}
	act := svc.activities[i]
	if ua.Title != nil {
		act.Title = core.CleanString(*ua.Title)
		if act.Title == "" {
			return Activity{}, core.NewValidationError(nil, core.FieldError{Field: "title", Error: "title is required"})
		}
	}
	if ua.Description != nil {
		act.Description = core.CleanString(*ua.Description)
	}
	if ua.StartsAt != nil {
		act.StartsAt = ua.StartsAt.UTC()
	}
	if ua.EndsAt != nil {
		// a deadline left to its default follows the end
		if act.Deadline.Equal(act.EndsAt) && ua.Deadline == nil {
			act.Deadline = ua.EndsAt.UTC()
		}
		act.EndsAt = ua.EndsAt.UTC()
	}
	if ua.Deadline != nil {
		act.Deadline = ua.Deadline.UTC()
	}
	if err := checkDates(act); err != nil {
		return Activity{}, err
	}
	svc.activities[i] = act
	return act, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.latency.Wait(ctx); err != nil {
		return err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	i := svc.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	svc.activities = append(svc.activities[:i], svc.activities[i+1:]...)
	return nil
}

func (svc *Service) Get(ctx context.Context, id string) (Activity, error) {
	if err := svc.latency.Wait(ctx); err != nil {
		return Activity{}, err
	}
	return svc.Find(id)
}

// Find is Get without the simulated latency, for other services.
func (svc *Service) Find(id string) (Activity, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if i := svc.indexOf(id); i >= 0 {
		return svc.activities[i], nil
	}
	return Activity{}, ErrNotFound
}

// List returns the activities in creation order.
func (svc *Service) List(ctx context.Context) ([]Activity, error) {
	if err := svc.latency.Wait(ctx); err != nil {
		return nil, err
	}
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	out := make([]Activity, len(svc.activities))
	copy(out, svc.activities)
	return out, nil
}

func (svc *Service) indexOf(id string) int {
	for i, act := range svc.activities {
		if act.ID == id {
			return i
		}
	}
	return -1
}
