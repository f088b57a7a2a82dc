// Package announcement holds the notices supervisors post for some or all roles.
package announcement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/user"
)

var (
	// errors
	ErrNotFound = fmt.Errorf("announcement %w", core.ErrNotFound)
)

type Priority string

// Priorities
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	}
	return 0
}

type Announcement struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	CreatedBy string      `json:"createdBy"`
	CreatedAt time.Time   `json:"createdAt"`
	Audience  []user.Role `json:"audience"`
	Priority  Priority    `json:"priority"`
}

// For reports whether role is in the audience of a. An empty audience is everyone.
func (a Announcement) For(role user.Role) bool {
	if len(a.Audience) == 0 {
		return true
	}
	for _, r := range a.Audience {
		if r == role {
			return true
		}
	}
	return false
}

func (a Announcement) clone() Announcement {
	if a.Audience != nil {
		a.Audience = append([]user.Role(nil), a.Audience...)
	}
	return a
}

type NewAnnouncement struct {
	Title    string      `json:"title" validate:"required"`
	Content  string      `json:"content" validate:"required"`
	Audience []user.Role `json:"audience" validate:"dive,role"`
	Priority Priority    `json:"priority" validate:"omitempty,oneof=low medium high"`
}

type Board struct {
	mu            sync.RWMutex
	latency       core.Latency
	validator     *core.Validator
	announcements []Announcement
}

// NewBoard returns an empty Board. validator must have the user validators registered.
func NewBoard(latency core.Latency, validator *core.Validator) *Board {
	return &Board{latency: latency, validator: validator}
}

// Post publishes na. Only supervisors may post.
func (b *Board) Post(ctx context.Context, creator user.User, na NewAnnouncement) (Announcement, error) {
	if err := b.latency.Wait(ctx); err != nil {
		return Announcement{}, err
	}
	if !creator.IsSupervisor() {
		return Announcement{}, core.ErrForbidden
	}

	na.Title = core.CleanString(na.Title)
	na.Content = core.CleanString(na.Content)
	if err := b.validator.Struct(na); err != nil {
		return Announcement{}, err
	}
	if na.Priority == "" {
		na.Priority = PriorityMedium
	}

	ann := Announcement{
		ID:        uuid.NewString(),
		Title:     na.Title,
		Content:   na.Content,
		CreatedBy: creator.ID,
		CreatedAt: core.NowFunc().UTC(),
		Priority:  na.Priority,
	}
	if len(na.Audience) > 0 {
		ann.Audience = append([]user.Role(nil), na.Audience...)
	}

	b.mu.Lock()
	b.announcements = append(b.announcements, ann)
	b.mu.Unlock()
	return ann.clone(), nil
}

// Delete removes announcement id. Only supervisors may delete.
func (b *Board) Delete(ctx context.Context, creator user.User, id string) error {
	if err := b.latency.Wait(ctx); err != nil {
		return err
	}
	if !creator.IsSupervisor() {
		return core.ErrForbidden
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ann := range b.announcements {
		if ann.ID == id {
			b.announcements = append(b.announcements[:i], b.announcements[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// ForRole returns the announcements for role, highest priority first, then newest first.
func (b *Board) ForRole(ctx context.Context, role user.Role) ([]Announcement, error) {
	return b.query(ctx, func(a Announcement) bool { return a.For(role) })
}

// List returns every announcement, in ForRole order.
func (b *Board) List(ctx context.Context) ([]Announcement, error) {
	return b.query(ctx, func(Announcement) bool { return true })
}

func (b *Board) query(ctx context.Context, keep func(Announcement) bool) ([]Announcement, error) {
	if err := b.latency.Wait(ctx); err != nil {
		return nil, err
	}

	b.mu.RLock()
	out := make([]Announcement, 0, len(b.announcements))
	for _, ann := range b.announcements {
		if keep(ann) {
			out = append(out, ann.clone())
		}
	}
	b.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Priority.rank(), out[j].Priority.rank(); ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
