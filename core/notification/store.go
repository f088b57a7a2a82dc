// Package notification keeps the per-recipient notification feed, mirrored to the KV bridge under
// core.KeyNotifications.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/user"
)

// FeedbackMaxLen is the number of feedback characters kept in a grade message.
const FeedbackMaxLen = 100

// TruncationMarker ends feedback cut at FeedbackMaxLen.
const TruncationMarker = "..."

type Type string

// Types
const (
	TypeActivity Type = "activity"
	TypeGrade    Type = "grade"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type (
	// Roster lists the recipients of activity broadcasts.
	Roster interface {
		Students() []user.User
	}

	// Publisher relays new notifications out of process. Publish errors never fail a mutation.
	Publisher interface {
		Publish(ctx context.Context, n Notification) error
	}
)

type Store struct {
	mu            sync.RWMutex
	kv            core.KVStore
	roster        Roster
	logger        core.Logger
	publishers    []Publisher
	notifications []Notification

	changes core.Broadcaster
}

// NewStore loads the persisted feed. An absent or corrupted feed starts empty and is persisted right away.
func NewStore(ctx context.Context, kv core.KVStore, roster Roster, logger core.Logger, publishers ...Publisher) (*Store, error) {
	notifications, err := core.LoadCollection[Notification](ctx, kv, core.KeyNotifications, logger)
	if err != nil {
		return nil, errors.Wrap(err, "loading notifications")
	}
	return &Store{
		kv:            kv,
		roster:        roster,
		logger:        logger,
		publishers:    publishers,
		notifications: notifications,
	}, nil
}

func newNotification(userID, title, message string, typ Type, now time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: now,
	}
}

// ActivityMessage is the message broadcast to students for a new activity.
func ActivityMessage(title, description string) string {
	return fmt.Sprintf("A new activity %q has been posted: %s", title, description)
}

// GradeMessage is the message sent to a student for a grade. Feedback is cut at FeedbackMaxLen characters.
func GradeMessage(activityTitle string, grade int, feedback *string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You received %d/100 for %q.", grade, activityTitle)
	if feedback != nil && strings.TrimSpace(*feedback) != "" {
		b.WriteString(" Feedback: ")
		b.WriteString(core.Truncate(*feedback, FeedbackMaxLen, TruncationMarker))
	}
	return b.String()
}

// NotifyStudentsOfNewActivity creates one activity notification per rostered student, as a single batch.
func (s *Store) NotifyStudentsOfNewActivity(ctx context.Context, title, description string) ([]Notification, error) {
	students := s.roster.Students()
	if len(students) == 0 {
		return []Notification{}, nil
	}

	now := core.NowFunc().UTC()
	msg := ActivityMessage(title, description)
	batch := make([]Notification, 0, len(students))
	for _, st := range students {
		batch = append(batch, newNotification(st.ID, "New Activity", msg, TypeActivity, now))
	}

	if err := s.mutate(ctx, func(ns []Notification) ([]Notification, bool, error) {
		return append(ns, batch...), true, nil
	}); err != nil {
		return nil, err
	}
	s.publish(ctx, batch...)
	return batch, nil
}

// NotifyStudentOfGrade creates a grade notification for studentID.
func (s *Store) NotifyStudentOfGrade(ctx context.Context, studentID, activityTitle string, grade int, feedback *string) (Notification, error) {
	n := newNotification(studentID, "Grade Received", GradeMessage(activityTitle, grade, feedback), TypeGrade, core.NowFunc().UTC())
	if err := s.mutate(ctx, func(ns []Notification) ([]Notification, bool, error) {
		return append(ns, n), true, nil
	}); err != nil {
		return Notification{}, err
	}
	s.publish(ctx, n)
	return n, nil
}

// ForUser returns the notifications of userID in creation order.
func (s *Store) ForUser(userID string) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, 0)
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) UnreadCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count
}

// All returns every notification in creation order.
func (s *Store) All() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// MarkAsRead flags the notification with id as read. An unknown id is a no-op.
func (s *Store) MarkAsRead(ctx context.Context, id string) error {
	return s.mutate(ctx, func(ns []Notification) ([]Notification, bool, error) {
		for i := range ns {
			if ns[i].ID == id {
				if ns[i].Read {
					return ns, false, nil
				}
				ns[i].Read = true
				return ns, true, nil
			}
		}
		return ns, false, nil
	})
}

// MarkAllAsRead flags every unread notification of userID as read.
func (s *Store) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.mutate(ctx, func(ns []Notification) ([]Notification, bool, error) {
		var changed bool
		for i := range ns {
			if ns[i].UserID == userID && !ns[i].Read {
				ns[i].Read = true
				changed = true
			}
		}
		return ns, changed, nil
	})
}

// Subscribe registers l to be called after every change of the feed.
func (s *Store) Subscribe(l core.Listener) (unsubscribe func()) {
	return s.changes.Subscribe(l)
}

// mutate applies fn to a copy of the feed. When fn reports a change, the result is persisted and swapped in,
// then subscribers are notified.
func (s *Store) mutate(ctx context.Context, fn func([]Notification) ([]Notification, bool, error)) error {
	s.mu.Lock()
	ns := make([]Notification, len(s.notifications))
	copy(ns, s.notifications)
	ns, changed, err := fn(ns)
	if err == nil && changed {
		if err = core.SaveJSON(ctx, s.kv, core.KeyNotifications, ns); err != nil {
			err = errors.Wrap(err, "saving notifications")
		} else {
			s.notifications = ns
		}
	}
	s.mu.Unlock()

	if err != nil || !changed {
		return err
	}
	s.changes.Notify()
	return nil
}

func (s *Store) publish(ctx context.Context, ns ...Notification) {
	for _, pub := range s.publishers {
		for _, n := range ns {
			if err := pub.Publish(ctx, n); err != nil {
				s.logger.Error(fmt.Sprintf("publishing notification: %v", err), err, map[string]interface{}{"id": n.ID, "userId": n.UserID})
			}
		}
	}
}
