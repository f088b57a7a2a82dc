package submission

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/activity"
	"github.com/trezcool/practicum/core/notification"
	"github.com/trezcool/practicum/core/user"
	"github.com/trezcool/practicum/tests"
)

type gradeCall struct {
	studentID, title string
	grade            int
	feedback         *string
}

type notifierMock struct {
	calls []gradeCall
	err   error
}

func (n *notifierMock) NotifyStudentOfGrade(_ context.Context, studentID, title string, grade int, feedback *string) (notification.Notification, error) {
	n.calls = append(n.calls, gradeCall{studentID: studentID, title: title, grade: grade, feedback: feedback})
	return notification.Notification{}, n.err
}

var (
	instructor = user.User{ID: "2", Role: user.RoleInstructor}
	supervisor = user.User{ID: "3", Role: user.RoleSupervisor}
	admin      = user.User{ID: "4", Role: user.RoleAdmin}

	start = time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)
	end   = start.Add(7 * 24 * time.Hour)
)

type fixture struct {
	svc      *Service
	act      activity.Activity
	notifier *notifierMock
	logger   *testutil.Logger
}

func setup(t *testing.T) fixture {
	t.Helper()
	mockNow(t, start.Add(time.Hour))
	logger := testutil.NewLogger()
	activities := activity.NewService(core.NoLatency, core.NewValidator(), nil, logger)
	act, err := activities.Create(context.Background(), instructor, activity.NewActivity{Title: "Weekly report", StartsAt: start, EndsAt: end})
	require.NoError(t, err)

	notifier := new(notifierMock)
	return fixture{
		svc:      NewService(core.NoLatency, activities, notifier, logger),
		act:      act,
		notifier: notifier,
		logger:   logger,
	}
}

func mockNow(t *testing.T, now time.Time) {
	t.Helper()
	defaultNow := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = defaultNow })
}

func TestService_Submit(t *testing.T) {
	tests := []struct {
		name       string
		activityID func(act activity.Activity) string
		fileName   string
		now        time.Time
		wantErr    error
		wantField  string
		wantStatus Status
	}{
		{name: "on time", fileName: "report.pdf", now: start.Add(time.Hour), wantStatus: StatusPending},
		{name: "at the deadline", fileName: "report.pdf", now: end, wantStatus: StatusPending},
		{name: "late", fileName: "report.pdf", now: end.Add(time.Second), wantStatus: StatusLate},
		{name: "no file name", fileName: "   ", now: start, wantField: "fileName"},
		{
			name:       "unknown activity",
			activityID: func(activity.Activity) string { return "nope" },
			fileName:   "report.pdf",
			now:        start,
			wantErr:    activity.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := setup(t)
			mockNow(t, tt.now)

			actID := fx.act.ID
			if tt.activityID != nil {
				actID = tt.activityID(fx.act)
			}
			sub, err := fx.svc.Submit(context.Background(), "s1", actID, tt.fileName, "files/1")

			if tt.wantErr != nil || tt.wantField != "" {
				require.Error(t, err)
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("Submit() error = %v, wantErr %v", err, tt.wantErr)
				}
				if tt.wantField != "" {
					assert.Equal(t, tt.wantField, core.FieldErrors(err)[0].Field)
				}
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, sub.ID)
			assert.Equal(t, tt.wantStatus, sub.Status)
			assert.Equal(t, "report.pdf", sub.FileName)
			assert.True(t, tt.now.Equal(sub.SubmittedAt))
			assert.Nil(t, sub.Grade)
		})
	}
}

func TestService_Submit_resubmitReplaces(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	first, err := fx.svc.Submit(ctx, "s1", fx.act.ID, "draft.pdf", "files/1")
	require.NoError(t, err)
	_, err = fx.svc.Grade(ctx, first.ID, instructor, 60, testutil.StrPtr("rushed"))
	require.NoError(t, err)

	second, err := fx.svc.Submit(ctx, "s1", fx.act.ID, "final.pdf", "files/2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, StatusPending, second.Status)
	assert.Nil(t, second.Grade)
	assert.Nil(t, second.Feedback)

	subs, err := fx.svc.ForActivity(ctx, fx.act.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "final.pdf", subs[0].FileName)

	_, err = fx.svc.Evaluation(ctx, first.ID)
	assert.True(t, errors.Is(err, ErrEvaluationNotFound), "the old evaluation is dropped")
}

func TestService_Review(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	sub, err := fx.svc.Submit(ctx, "s1", fx.act.ID, "report.pdf", "")
	require.NoError(t, err)
	reviewed, err := fx.svc.Review(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReviewed, reviewed.Status)

	_, err = fx.svc.Grade(ctx, sub.ID, instructor, 90, nil)
	require.NoError(t, err)
	reviewed, err = fx.svc.Review(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusGraded, reviewed.Status, "graded is final")

	_, err = fx.svc.Review(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestService_Grade(t *testing.T) {
	tests := []struct {
		name      string
		grader    user.User
		grade     int
		feedback  *string
		wantErr   error
		wantField string
	}{
		{name: "student", grader: user.User{ID: "s1", Role: user.RoleStudent}, grade: 80, wantErr: core.ErrForbidden},
		{name: "admin", grader: admin, grade: 80, wantErr: core.ErrForbidden},
		{name: "below range", grader: instructor, grade: -1, wantField: "grade"},
		{name: "above range", grader: instructor, grade: 101, wantField: "grade"},
		{name: "lower bound", grader: instructor, grade: 0},
		{name: "upper bound", grader: supervisor, grade: 100, feedback: testutil.StrPtr(" Excellent ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			fx := setup(t)
			sub, err := fx.svc.Submit(ctx, "s1", fx.act.ID, "report.pdf", "")
			require.NoError(t, err)

			graded, err := fx.svc.Grade(ctx, sub.ID, tt.grader, tt.grade, tt.feedback)

			if tt.wantErr != nil || tt.wantField != "" {
				require.Error(t, err)
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("Grade() error = %v, wantErr %v", err, tt.wantErr)
				}
				if tt.wantField != "" {
					assert.Equal(t, tt.wantField, core.FieldErrors(err)[0].Field)
				}
				got, _ := fx.svc.Get(ctx, sub.ID)
				assert.Equal(t, StatusPending, got.Status)
				assert.Empty(t, fx.notifier.calls)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, StatusGraded, graded.Status)
			require.NotNil(t, graded.Grade)
			assert.Equal(t, tt.grade, *graded.Grade)

			eval, err := fx.svc.Evaluation(ctx, sub.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.grader.ID, eval.GraderID)
			assert.Equal(t, tt.grade, eval.Grade)

			require.Len(t, fx.notifier.calls, 1)
			call := fx.notifier.calls[0]
			assert.Equal(t, "s1", call.studentID)
			assert.Equal(t, "Weekly report", call.title)
			assert.Equal(t, tt.grade, call.grade)
			if tt.feedback != nil {
				assert.Equal(t, "Excellent", eval.Feedback)
				assert.Equal(t, "Excellent", *call.feedback)
			}
		})
	}
}

func TestService_Grade_regradeKeepsOneEvaluation(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	sub, err := fx.svc.Submit(ctx, "s1", fx.act.ID, "report.pdf", "")
	require.NoError(t, err)

	_, err = fx.svc.Grade(ctx, sub.ID, instructor, 70, nil)
	require.NoError(t, err)
	_, err = fx.svc.Grade(ctx, sub.ID, supervisor, 85, testutil.StrPtr("better"))
	require.NoError(t, err)

	assert.Len(t, fx.svc.evaluations, 1)
	eval, err := fx.svc.Evaluation(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, supervisor.ID, eval.GraderID)
	assert.Equal(t, 85, eval.Grade)
	assert.Len(t, fx.notifier.calls, 2)
}

func TestService_Grade_notifyErrorIsLogged(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	fx.notifier.err = errors.New("nope")
	sub, err := fx.svc.Submit(ctx, "s1", fx.act.ID, "report.pdf", "")
	require.NoError(t, err)

	_, err = fx.svc.Grade(ctx, sub.ID, instructor, 70, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.logger.Count("error"))
}

func TestService_queries(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	s1, err := fx.svc.Submit(ctx, "s1", fx.act.ID, "a.pdf", "")
	require.NoError(t, err)
	s2, err := fx.svc.Submit(ctx, "s2", fx.act.ID, "b.pdf", "")
	require.NoError(t, err)

	subs, err := fx.svc.ForActivity(ctx, fx.act.ID)
	require.NoError(t, err)
	assert.Equal(t, []Submission{s1, s2}, subs)

	subs, err = fx.svc.ForStudent(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, []Submission{s2}, subs)

	subs, err = fx.svc.ForStudent(ctx, "ghost")
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)

	_, err = fx.svc.Get(ctx, "nope")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestService_latency(t *testing.T) {
	fx := setup(t)
	svc := NewService(core.FixedLatency(time.Hour), fx.svc.activities, fx.notifier, fx.logger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(ctx, "s1", fx.act.ID, "report.pdf", "")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, svc.submissions)
}
