package session

import (
	"context"

	"github.com/trezcool/practicum/core/student"
	"github.com/trezcool/practicum/core/user"
)

// RegistrationHook is the role specific part of a registration.
// Rollback undoes Register when the account could not be created afterwards.
type RegistrationHook interface {
	Register(ctx context.Context, usr user.User) error
	Rollback(ctx context.Context, usr user.User) error
}

type studentHook struct {
	students *student.Store
}

var _ RegistrationHook = (*studentHook)(nil)

// StudentHook adds registered students to the roster.
func StudentHook(students *student.Store) RegistrationHook {
	return &studentHook{students: students}
}

func (h *studentHook) Register(ctx context.Context, usr user.User) error {
	_, err := h.students.Add(ctx, usr)
	return err
}

func (h *studentHook) Rollback(ctx context.Context, usr user.User) error {
	return h.students.Remove(ctx, usr.ID)
}
