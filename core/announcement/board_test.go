package announcement

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/user"
)

var (
	supervisor = user.User{ID: "3", Role: user.RoleSupervisor}
	instructor = user.User{ID: "2", Role: user.RoleInstructor}

	t0 = time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)
)

func newBoard() *Board {
	return NewBoard(core.NoLatency, user.NewValidator())
}

// clock makes core.NowFunc return t0, t0+1m, t0+2m... on successive calls.
func clock(t *testing.T) {
	t.Helper()
	defaultNow := core.NowFunc
	var calls int
	core.NowFunc = func() time.Time {
		calls++
		return t0.Add(time.Duration(calls) * time.Minute)
	}
	t.Cleanup(func() { core.NowFunc = defaultNow })
}

func TestBoard_Post(t *testing.T) {
	tests := []struct {
		name         string
		creator      user.User
		na           NewAnnouncement
		wantErr      error
		wantField    string
		wantPriority Priority
	}{
		{name: "instructor", creator: instructor, na: NewAnnouncement{Title: "T", Content: "C"}, wantErr: core.ErrForbidden},
		{name: "no title", creator: supervisor, na: NewAnnouncement{Title: " ", Content: "C"}, wantField: "title"},
		{name: "no content", creator: supervisor, na: NewAnnouncement{Title: "T"}, wantField: "content"},
		{name: "bad audience", creator: supervisor, na: NewAnnouncement{Title: "T", Content: "C", Audience: []user.Role{"parent"}}, wantField: "audience[0]"},
		{name: "bad priority", creator: supervisor, na: NewAnnouncement{Title: "T", Content: "C", Priority: "urgent"}, wantField: "priority"},
		{name: "default priority", creator: supervisor, na: NewAnnouncement{Title: "T", Content: "C"}, wantPriority: PriorityMedium},
		{
			name:         "explicit priority",
			creator:      supervisor,
			na:           NewAnnouncement{Title: "T", Content: "C", Audience: []user.Role{user.RoleStudent}, Priority: PriorityHigh},
			wantPriority: PriorityHigh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := newBoard()
			ann, err := board.Post(context.Background(), tt.creator, tt.na)

			if tt.wantErr != nil || tt.wantField != "" {
				require.Error(t, err)
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("Post() error = %v, wantErr %v", err, tt.wantErr)
				}
				if tt.wantField != "" {
					flds := core.FieldErrors(err)
					require.NotEmpty(t, flds)
					assert.Equal(t, tt.wantField, flds[0].Field)
				}
				assert.Empty(t, board.announcements)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, ann.ID)
			assert.Equal(t, supervisor.ID, ann.CreatedBy)
			assert.Equal(t, tt.wantPriority, ann.Priority)
			assert.Len(t, board.announcements, 1)
		})
	}
}

func TestBoard_ForRole(t *testing.T) {
	ctx := context.Background()
	clock(t)
	board := newBoard()

	post := func(title string, p Priority, audience ...user.Role) Announcement {
		ann, err := board.Post(ctx, supervisor, NewAnnouncement{Title: title, Content: "C", Priority: p, Audience: audience})
		require.NoError(t, err)
		return ann
	}
	oldHigh := post("old high", PriorityHigh)
	low := post("low", PriorityLow, user.RoleStudent)
	staff := post("staff", PriorityHigh, user.RoleInstructor, user.RoleSupervisor)
	newHigh := post("new high", PriorityHigh, user.RoleStudent)
	medium := post("medium", "")

	got, err := board.ForRole(ctx, user.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, []Announcement{newHigh, oldHigh, medium, low}, got)

	got, err = board.ForRole(ctx, user.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, []Announcement{staff, oldHigh, medium}, got)

	got, err = board.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Announcement{newHigh, staff, oldHigh, medium, low}, got)
}

func TestBoard_Delete(t *testing.T) {
	ctx := context.Background()
	board := newBoard()
	ann, err := board.Post(ctx, supervisor, NewAnnouncement{Title: "T", Content: "C"})
	require.NoError(t, err)

	assert.True(t, errors.Is(board.Delete(ctx, instructor, ann.ID), core.ErrForbidden))
	require.NoError(t, board.Delete(ctx, supervisor, ann.ID))
	assert.True(t, errors.Is(board.Delete(ctx, supervisor, ann.ID), ErrNotFound))

	got, err := board.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBoard_latency(t *testing.T) {
	board := NewBoard(core.FixedLatency(time.Hour), user.NewValidator())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := board.Post(ctx, supervisor, NewAnnouncement{Title: "T", Content: "C"})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, board.announcements)
}
