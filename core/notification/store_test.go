package notification

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/user"
	"github.com/trezcool/practicum/storage/kv/memkv"
	"github.com/trezcool/practicum/tests"
)

type rosterMock []user.User

func (r rosterMock) Students() []user.User { return r }

type publisherMock struct {
	published []Notification
	err       error
}

func (p *publisherMock) Publish(_ context.Context, n Notification) error {
	p.published = append(p.published, n)
	return p.err
}

var roster = rosterMock{
	{ID: "s1", Name: "Ann", Email: "ann@test.cd", Role: user.RoleStudent},
	{ID: "s2", Name: "Bob", Email: "bob@test.cd", Role: user.RoleStudent},
}

func setup(t *testing.T, r Roster, pubs ...Publisher) (*Store, *memkv.Store, *testutil.Logger) {
	kv := memkv.Open()
	logger := testutil.NewLogger()
	store, err := NewStore(context.Background(), kv, r, logger, pubs...)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return store, kv, logger
}

func TestStore_NotifyStudentsOfNewActivity(t *testing.T) {
	ctx := context.Background()
	pub := new(publisherMock)
	store, kv, logger := setup(t, roster, pub)

	var calls int
	store.Subscribe(func() { calls++ })

	batch, err := store.NotifyStudentsOfNewActivity(ctx, "Weekly report", "Describe your week")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, 1, calls, "a batch notifies once")
	assert.Len(t, pub.published, 2)

	for i, st := range roster {
		ns := store.ForUser(st.ID)
		require.Len(t, ns, 1)
		assert.Equal(t, batch[i], ns[0])
		assert.Equal(t, TypeActivity, ns[0].Type)
		assert.False(t, ns[0].Read)
		assert.Contains(t, ns[0].Message, "Weekly report")
		assert.Contains(t, ns[0].Message, "Describe your week")
	}

	reloaded, err := NewStore(ctx, kv, roster, logger)
	require.NoError(t, err)
	assert.Equal(t, store.All(), reloaded.All())
}

func TestStore_NotifyStudentsOfNewActivity_noStudents(t *testing.T) {
	store, _, _ := setup(t, rosterMock{})
	var calls int
	store.Subscribe(func() { calls++ })

	batch, err := store.NotifyStudentsOfNewActivity(context.Background(), "T", "D")
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.Zero(t, calls)
}

func TestStore_NotifyStudentOfGrade(t *testing.T) {
	exact := strings.Repeat("a", FeedbackMaxLen)
	long := strings.Repeat("b", FeedbackMaxLen+1)
	empty := "  "

	tests := []struct {
		name          string
		feedback      *string
		wantTruncated bool
		wantFeedback  bool
	}{
		{name: "no feedback"},
		{name: "blank feedback", feedback: &empty},
		{name: "exactly max length", feedback: &exact, wantFeedback: true},
		{name: "longer than max length", feedback: &long, wantFeedback: true, wantTruncated: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, _ := setup(t, roster)
			n, err := store.NotifyStudentOfGrade(context.Background(), "s1", "Weekly report", 87, tt.feedback)
			require.NoError(t, err)

			assert.Equal(t, TypeGrade, n.Type)
			assert.Equal(t, "s1", n.UserID)
			assert.Contains(t, n.Message, "87")
			assert.Contains(t, n.Message, "Weekly report")
			assert.Equal(t, tt.wantFeedback, strings.Contains(n.Message, "Feedback:"))
			assert.Equal(t, tt.wantTruncated, strings.HasSuffix(n.Message, TruncationMarker))
			if tt.wantTruncated {
				assert.Contains(t, n.Message, strings.Repeat("b", FeedbackMaxLen)+TruncationMarker)
				assert.NotContains(t, n.Message, strings.Repeat("b", FeedbackMaxLen+1))
			}
			assert.Equal(t, []Notification{n}, store.ForUser("s1"))
		})
	}
}

func TestStore_MarkAsRead(t *testing.T) {
	ctx := context.Background()
	store, kv, logger := setup(t, roster)
	batch, err := store.NotifyStudentsOfNewActivity(ctx, "T", "D")
	require.NoError(t, err)

	var calls int
	store.Subscribe(func() { calls++ })

	// unknown id: silent no-op
	require.NoError(t, store.MarkAsRead(ctx, "nope"))
	assert.Zero(t, calls)
	for _, n := range store.All() {
		assert.False(t, n.Read)
	}

	require.NoError(t, store.MarkAsRead(ctx, batch[0].ID))
	assert.Equal(t, 1, calls)
	assert.Zero(t, store.UnreadCount("s1"))
	assert.Equal(t, 1, store.UnreadCount("s2"))

	// already read: nothing to write
	require.NoError(t, store.MarkAsRead(ctx, batch[0].ID))
	assert.Equal(t, 1, calls)

	reloaded, err := NewStore(ctx, kv, roster, logger)
	require.NoError(t, err)
	assert.True(t, reloaded.ForUser("s1")[0].Read)
}

func TestStore_MarkAllAsRead(t *testing.T) {
	ctx := context.Background()
	store, _, _ := setup(t, roster)
	_, err := store.NotifyStudentsOfNewActivity(ctx, "T1", "D")
	require.NoError(t, err)
	_, err = store.NotifyStudentOfGrade(ctx, "s1", "T1", 50, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, store.UnreadCount("s1"))

	var calls int
	store.Subscribe(func() { calls++ })
	require.NoError(t, store.MarkAllAsRead(ctx, "s1"))
	assert.Zero(t, store.UnreadCount("s1"))
	assert.Equal(t, 1, store.UnreadCount("s2"))
	assert.Equal(t, 1, calls)

	require.NoError(t, store.MarkAllAsRead(ctx, "s1"))
	assert.Equal(t, 1, calls)
}

func TestStore_publishErrorsAreLogged(t *testing.T) {
	pub := &publisherMock{err: errors.New("broker down")}
	store, _, logger := setup(t, roster, pub)

	_, err := store.NotifyStudentOfGrade(context.Background(), "s2", "T", 10, nil)
	require.NoError(t, err)
	assert.Len(t, pub.published, 1)
	assert.Equal(t, 1, logger.Count("error"))
	assert.Len(t, store.ForUser("s2"), 1)
}

func TestStore_corruptedFeed(t *testing.T) {
	kv := memkv.Open()
	testutil.Put(t, kv, core.KeyNotifications, `[{"id": 1`)
	logger := testutil.NewLogger()

	store, err := NewStore(context.Background(), kv, roster, logger)
	require.NoError(t, err)
	assert.Empty(t, store.All())
	assert.Equal(t, 1, logger.Count("warn"))
}

func TestStore_persistFailure(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewFailingKV()
	store, err := NewStore(ctx, kv, roster, testutil.NewLogger())
	require.NoError(t, err)
	kv.FailWrites = true

	_, err = store.NotifyStudentsOfNewActivity(ctx, "T", "D")
	assert.True(t, errors.Is(err, testutil.ErrWriteFailed))
	assert.Empty(t, store.All(), "a failed batch leaves no partial state")
}
