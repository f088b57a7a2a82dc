// Package submission manages the reports students hand in for activities, and their grading.
// Submissions live in process memory only.
package submission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/practicum/core"
	"github.com/trezcool/practicum/core/activity"
	"github.com/trezcool/practicum/core/notification"
	"github.com/trezcool/practicum/core/user"
)

var (
	// errors
	ErrNotFound           = fmt.Errorf("submission %w", core.ErrNotFound)
	ErrEvaluationNotFound = fmt.Errorf("evaluation %w", core.ErrNotFound)
)

// Grade bounds
const (
	MinGrade = 0
	MaxGrade = 100
)

type Status string

// Statuses
const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusGraded   Status = "graded"
	StatusLate     Status = "late"
)

var AllStatuses = []Status{StatusPending, StatusReviewed, StatusGraded, StatusLate}

type Submission struct {
	ID          string    `json:"id"`
	ActivityID  string    `json:"activityId"`
	StudentID   string    `json:"studentId"`
	FileName    string    `json:"fileName"`
	FileRef     string    `json:"fileRef"`
	SubmittedAt time.Time `json:"submittedAt"`
	Status      Status    `json:"status"`
	Grade       *int      `json:"grade,omitempty"`
	Feedback    *string   `json:"feedback,omitempty"`
}

func (sub Submission) clone() Submission {
	if sub.Grade != nil {
		g := *sub.Grade
		sub.Grade = &g
	}
	sub.Feedback = core.CopyStringPtr(sub.Feedback)
	return sub
}

// Evaluation is the grading record of a submission. A submission has at most one.
type Evaluation struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	GraderID     string    `json:"graderId"`
	Grade        int       `json:"grade"`
	Feedback     string    `json:"feedback"`
	EvaluatedAt  time.Time `json:"evaluatedAt"`
}

type (
	// Activities looks up the activity of a submission.
	Activities interface {
		Find(id string) (activity.Activity, error)
	}

	// GradeNotifier tells a student about a grade.
	GradeNotifier interface {
		NotifyStudentOfGrade(ctx context.Context, studentID, activityTitle string, grade int, feedback *string) (notification.Notification, error)
	}
)

type Service struct {
	mu          sync.RWMutex
	latency     core.Latency
	activities  Activities
	notifier    GradeNotifier
	logger      core.Logger
	submissions []Submission
	evaluations []Evaluation
}

func NewService(latency core.Latency, activities Activities, notifier GradeNotifier, logger core.Logger) *Service {
	return &Service{
		latency:    latency,
		activities: activities,
		notifier:   notifier,
		logger:     logger,
	}
}

// Submit hands in fileName for activityID. A submission after the deadline is late.
// Submitting again replaces the previous submission of the student, and drops its grade.
func (svc *Service) Submit(ctx context.Context, studentID, activityID, fileName, fileRef string) (Submission, error) {
	if err := svc.latency.Wait(ctx); err != nil {
		return Submission{}, err
	}

	fileName = core.CleanString(fileName)
	if fileName == "" {
		return Submission{}, core.NewValidationError(nil, core.FieldError{Field: "fileName", Error: "fileName is required"})
	}
	act, err := svc.activities.Find(activityID)
	if err != nil {
		return Submission{}, err
	}

	now := core.NowFunc().UTC()
	sub := Submission{
		ID:          uuid.NewString(),
		ActivityID:  activityID,
		StudentID:   studentID,
		FileName:    fileName,
		FileRef:     fileRef,
		SubmittedAt: now,
		Status:      StatusPending,
	}
	if now.After(act.Deadline) {
		sub.Status = StatusLate
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for i, prev := range svc.submissions {
		if prev.StudentID == studentID && prev.ActivityID == activityID {
			sub.ID = prev.ID
			svc.submissions[i] = sub
			svc.dropEvaluation(prev.ID)
			return sub.clone(), nil
		}
	}
	svc.submissions = append(svc.submissions, sub)
	return sub.clone(), nil
}

// Review marks a pending or late submission as reviewed. Graded submissions are left as is.
func (svc *Service) Review(ctx context.Context, id string) (Submission, error) {
	if err := svc.latency.Wait(ctx); err != nil {
		return Submission{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	i := svc.indexOf(id)
	if i < 0 {
		return Submission{}, ErrNotFound
	}
	if svc.submissions[i].Status != StatusGraded {
		svc.submissions[i].Status = StatusReviewed
	}
	return svc.submissions[i].clone(), nil
}

// Grade records the evaluation of a submission by an instructor or supervisor, then notifies the student.
func (svc *Service) Grade(ctx context.Context, id string, grader user.User, grade int, feedback *string) (Submission, error) {
	if err := svc.latency.Wait(ctx); err != nil {
		return Submission{}, err
	}
	if !grader.HasAnyRole(user.RoleInstructor, user.RoleSupervisor) {
		return Submission{}, core.ErrForbidden
	}
	if grade < MinGrade || grade > MaxGrade {
		return Submission{}, core.NewValidationError(nil, core.FieldError{
			Field: "grade",
			Error: fmt.Sprintf("grade must be between %d and %d", MinGrade, MaxGrade),
		})
	}
	feedback = core.CleanStringPtr(feedback)

	svc.mu.Lock()
	i := svc.indexOf(id)
	if i < 0 {
		svc.mu.Unlock()
		return Submission{}, ErrNotFound
	}
	sub := svc.submissions[i]
	g := grade
	sub.Grade = &g
	sub.Feedback = core.CopyStringPtr(feedback)
	sub.Status = StatusGraded
	svc.submissions[i] = sub

	eval := Evaluation{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		GraderID:     grader.ID,
		Grade:        grade,
		EvaluatedAt:  core.NowFunc().UTC(),
	}
	if feedback != nil {
		eval.Feedback = *feedback
	}
	svc.dropEvaluation(sub.ID)
	svc.evaluations = append(svc.evaluations, eval)
	svc.mu.Unlock()

	if svc.notifier != nil {
		title := sub.ActivityID
		if act, err := svc.activities.Find(sub.ActivityID); err == nil {
			title = act.Title
		}
		if _, err := svc.notifier.NotifyStudentOfGrade(ctx, sub.StudentID, title, grade, feedback); err != nil {
			svc.logger.Error("notifying student of grade", err, map[string]interface{}{"submissionId": sub.ID})
		}
	}
	return sub.clone(), nil
}

func (svc *Service) Get(ctx context.Context, id string) (Submission, error) {
	if err := svc.latency.Wait(ctx); err != nil {
		return Submission{}, err
	}
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if i := svc.indexOf(id); i >= 0 {
		return svc.submissions[i].clone(), nil
	}
	return Submission{}, ErrNotFound
}

// ForActivity returns the submissions of activityID in submission order.
func (svc *Service) ForActivity(ctx context.Context, activityID string) ([]Submission, error) {
	return svc.filter(ctx, func(sub Submission) bool { return sub.ActivityID == activityID })
}

// ForStudent returns the submissions of studentID in submission order.
func (svc *Service) ForStudent(ctx context.Context, studentID string) ([]Submission, error) {
	return svc.filter(ctx, func(sub Submission) bool { return sub.StudentID == studentID })
}

// Evaluation returns the evaluation of submissionID.
func (svc *Service) Evaluation(ctx context.Context, submissionID string) (Evaluation, error) {
	if err := svc.latency.Wait(ctx); err != nil {
		return Evaluation{}, err
	}
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	for _, eval := range svc.evaluations {
		if eval.SubmissionID == submissionID {
			return eval, nil
		}
	}
	return Evaluation{}, ErrEvaluationNotFound
}

func (svc *Service) filter(ctx context.Context, keep func(Submission) bool) ([]Submission, error) {
	if err := svc.latency.Wait(ctx); err != nil {
		return nil, err
	}
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	out := make([]Submission, 0)
	for _, sub := range svc.submissions {
		if keep(sub) {
			out = append(out, sub.clone())
		}
	}
	return out, nil
}

func (svc *Service) indexOf(id string) int {
	for i, sub := range svc.submissions {
		if sub.ID == id {
			return i
		}
	}
	return -1
}

// dropEvaluation must be called with the lock held.
func (svc *Service) dropEvaluation(submissionID string) {
	for i, eval := range svc.evaluations {
		if eval.SubmissionID == submissionID {
			svc.evaluations = append(svc.evaluations[:i], svc.evaluations[i+1:]...)
			return
		}
	}
}
