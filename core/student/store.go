// Package student keeps the roster of student accounts, mirrored to the KV bridge under
// core.KeyRegisteredStudents.
package student

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/user"
)

var (
	// errors
	ErrNotFound          = fmt.Errorf("student %w", core.ErrNotFound)
	ErrDuplicateEmail    = user.ErrDuplicateEmail
	ErrDuplicateSchoolID = user.ErrDuplicateSchoolID
)

// Store is the deduplicated roster of students. Every mutation persists the full roster,
// then notifies subscribers.
type Store struct {
	mu       sync.RWMutex
	kv       core.KVStore
	logger   core.Logger
	students []user.User

	changes core.Broadcaster
}

// NewStore loads the persisted roster. An absent or corrupted roster starts empty and is persisted right away.
func NewStore(ctx context.Context, kv core.KVStore, logger core.Logger) (*Store, error) {
	students, err := core.LoadCollection[user.User](ctx, kv, core.KeyRegisteredStudents, logger)
	if err != nil {
		return nil, errors.Wrap(err, "loading students")
	}
	return &Store{kv: kv, logger: logger, students: students}, nil
}

// Students returns a snapshot of the roster in insertion order.
func (s *Store) Students() []user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return user.CloneAll(s.students, false)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students)
}

func (s *Store) Find(id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.ID == id {
			return st.Clone(), nil
		}
	}
	return user.User{}, ErrNotFound
}

// Add appends candidate to the roster, stamped with today's registration date.
// It fails with ErrDuplicateEmail or ErrDuplicateSchoolID (wrapped in a *core.ValidationError).
func (s *Store) Add(ctx context.Context, candidate user.User) (user.User, error) {
	st := candidate.Public()
	st.Clean()
	st.Role = user.RoleStudent
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	today := core.Today()
	st.RegistrationDate = &today

	if err := s.mutate(ctx, func(students []user.User) ([]user.User, error) {
		if err := user.CheckUnique(students, st.Email, st.SchoolID); err != nil {
			return nil, user.UniquenessError(err)
		}
		return append(students, st), nil
	}); err != nil {
		return user.User{}, err
	}
	return st.Clone(), nil
}

// Remove deletes the student with id from the roster.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, func(students []user.User) ([]user.User, error) {
		for i, st := range students {
			if st.ID == id {
				return append(students[:i], students[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

// Subscribe registers l to be called after every change of the roster.
func (s *Store) Subscribe(l core.Listener) (unsubscribe func()) {
	return s.changes.Subscribe(l)
}

// mutate applies fn to a copy of the roster, persists the result and swaps it in.
// The roster is left untouched if fn or the write fails. Subscribers are notified after the lock is released.
func (s *Store) mutate(ctx context.Context, fn func([]user.User) ([]user.User, error)) error {
	s.mu.Lock()
	students, err := fn(user.CloneAll(s.students, false))
	if err == nil {
		if err = core.SaveJSON(ctx, s.kv, core.KeyRegisteredStudents, students); err != nil {
			err = errors.Wrap(err, "saving students")
		} else {
			s.students = students
		}
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.changes.Notify()
	return nil
}
