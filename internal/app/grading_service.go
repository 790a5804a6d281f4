package app

import (
	"context"
	"errors"
	"time"

	"examprep-service/internal/domain"
	"examprep-service/internal/logging"
	"examprep-service/internal/metrics"
	"examprep-service/internal/progression"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultMaxCASRetries = 3

// GradingService grades quiz attempts and drives XP, level and quest progression.
type GradingService struct {
	quizzes       QuizRepository
	uow           UnitOfWork
	tracker       *QuestTracker
	locker        Locker
	leaderboard   Leaderboard
	events        EventPublisher
	metrics       *metrics.Metrics
	log           logrus.FieldLogger
	now           func() time.Time
	newID         func() string
	maxCASRetries int
}

// GradingOption configures optional collaborators.
type GradingOption func(*GradingService)

// WithLeaderboard records each committed score in lb.
func WithLeaderboard(lb Leaderboard) GradingOption {
	return func(s *GradingService) { s.leaderboard = lb }
}

// WithEvents publishes attempt, level-up and quest events through p after commit.
func WithEvents(p EventPublisher) GradingOption {
	return func(s *GradingService) { s.events = p }
}

// WithMetrics counts attempts, XP and completions in m.
func WithMetrics(m *metrics.Metrics) GradingOption {
	return func(s *GradingService) { s.metrics = m }
}

// WithLogger replaces the default discarding logger.
func WithLogger(log logrus.FieldLogger) GradingOption {
	return func(s *GradingService) { s.log = log }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) GradingOption {
	return func(s *GradingService) { s.now = now }
}

// WithIDGenerator sets how attempt ids are minted. Defaults to random UUIDs.
func WithIDGenerator(newID func() string) GradingOption {
	return func(s *GradingService) { s.newID = newID }
}

// WithMaxCASRetries bounds how often a lost XP compare-and-swap is retried.
// Zero means a single attempt; negative values are ignored.
func WithMaxCASRetries(n int) GradingOption {
	return func(s *GradingService) {
		if n >= 0 {
			s.maxCASRetries = n
		}
	}
}

// NewGradingService wires the required collaborators; everything else comes from opts.
func NewGradingService(quizzes QuizRepository, uow UnitOfWork, tracker *QuestTracker, locker Locker, opts ...GradingOption) *GradingService {
	s := &GradingService{
		quizzes:       quizzes,
		uow:           uow,
		tracker:       tracker,
		locker:        locker,
		log:           logging.Discard(),
		now:           time.Now,
		newID:         uuid.NewString,
		maxCASRetries: defaultMaxCASRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxCASRetries reports the configured retry bound.
func (s *GradingService) MaxCASRetries() int {
	return s.maxCASRetries
}

// attemptOutcome carries what the transaction produced to the post-commit side effects.
type attemptOutcome struct {
	before  domain.Student
	after   domain.Student
	attempt domain.Attempt
	quests  []QuestUpdate
}

// SubmitAttempt grades selected against the quiz and applies XP, level and quest progress.
// An out-of-range selected index is not an error; it grades as incorrect.
func (s *GradingService) SubmitAttempt(ctx context.Context, studentID, quizID string, selected int) (domain.AttemptResult, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.AttemptResult{}, domain.ReadErr("get quiz", err)
	}

	unlock, err := s.locker.Lock(ctx, lockKey(studentID))
	if err != nil {
		return domain.AttemptResult{}, err
	}
	defer unlock()

	now := s.now()
	day := DayKey(now)
	isCorrect := selected == quiz.CorrectAnswer
	xpEarned := 0
	if isCorrect {
		xpEarned = quiz.XP
	}

	var out attemptOutcome
	err = s.uow.Do(ctx, func(ctx context.Context, stores Stores) error {
		out = attemptOutcome{}

		before, after, err := s.applyXP(ctx, stores.Students, studentID, xpEarned)
		if err != nil {
			return err
		}
		out.before, out.after = before, after

		out.attempt = domain.Attempt{
			ID:             s.newID(),
			StudentID:      studentID,
			QuizID:         quiz.ID,
			SelectedAnswer: selected,
			IsCorrect:      isCorrect,
			XPEarned:       xpEarned,
			AttemptedAt:    now,
		}
		if err := stores.Attempts.AppendAttempt(ctx, out.attempt); err != nil {
			return domain.WriteErr("append attempt", err)
		}

		tracker := s.tracker.WithStore(stores.Quests)
		// Every attempt counts, correct or not.
		update, ok, err := tracker.RecordEvent(ctx, studentID, domain.QuestQuizCount, day)
		if err != nil {
			return err
		}
		if ok {
			out.quests = append(out.quests, update)
		}
		update, ok, err = tracker.RecordDelta(ctx, studentID, domain.QuestXPEarned, day, xpEarned)
		if err != nil {
			return err
		}
		if ok {
			out.quests = append(out.quests, update)
		}
		return nil
	})
	if err != nil {
		return domain.AttemptResult{}, err
	}

	result := domain.AttemptResult{
		IsCorrect:     isCorrect,
		CorrectAnswer: quiz.CorrectAnswer,
		XPEarned:      xpEarned,
		NewXP:         out.after.XP,
		NewLevel:      out.after.Level,
		LeveledUp:     progression.DidLevelUp(out.before.XP, out.after.XP),
	}
	s.afterCommit(ctx, out, result)
	return result, nil
}

// applyXP adds xpEarned with a compare-and-swap on the XP read, retrying on lost races.
func (s *GradingService) applyXP(ctx context.Context, students StudentStore, studentID string, xpEarned int) (domain.Student, domain.Student, error) {
	for i := 0; i <= s.maxCASRetries; i++ {
		student, err := students.GetStudent(ctx, studentID)
		if err != nil {
			return domain.Student{}, domain.Student{}, domain.ReadErr("get student", err)
		}
		student = s.checkLevel(student)

		after := student
		after.XP = student.XP + xpEarned
		after.Level = progression.LevelForXP(after.XP)

		swapped, err := students.UpdateProgression(ctx, studentID, student.XP, after.XP, after.Level)
		if err != nil {
			return domain.Student{}, domain.Student{}, domain.WriteErr("update progression", err)
		}
		if swapped {
			return student, after, nil
		}
		s.log.WithField("student_id", studentID).WithField("retry", i+1).Debug("progression compare-and-swap lost, retrying")
	}
	return domain.Student{}, domain.Student{}, domain.ErrConcurrentUpdate
}

// checkLevel recomputes the level from XP and reports drift of the stored value.
func (s *GradingService) checkLevel(student domain.Student) domain.Student {
	want := progression.LevelForXP(student.XP)
	if student.Level != want {
		logging.WithStudent(s.log, student.ID).WithFields(logrus.Fields{
			"stored_level": student.Level,
			"xp_level":     want,
		}).Warn("stored level drifted from xp")
		student.Level = want
	}
	return student
}

// afterCommit runs best-effort side effects; failures are logged and never fail the attempt.
func (s *GradingService) afterCommit(ctx context.Context, out attemptOutcome, result domain.AttemptResult) {
	log := logging.WithStudent(s.log, out.after.ID)
	s.metrics.ObserveAttempt(result.IsCorrect, result.LeveledUp)

	if s.leaderboard != nil {
		err := s.leaderboard.Record(ctx, domain.LeaderboardEntry{
			StudentID: out.after.ID,
			Username:  out.after.Username,
			XP:        out.after.XP,
			Level:     out.after.Level,
		})
		if err != nil {
			s.metrics.ObserveSideEffectFailure("leaderboard")
			log.WithError(err).Warn("leaderboard update failed")
		}
	}

	for _, q := range out.quests {
		if q.JustCompleted {
			s.metrics.ObserveQuestCompleted(string(q.Quest.Type))
		}
	}

	if s.events == nil {
		return
	}
	s.publish(ctx, log, TopicAttemptGraded, AttemptGradedEvent{
		AttemptID: out.attempt.ID,
		StudentID: out.attempt.StudentID,
		QuizID:    out.attempt.QuizID,
		IsCorrect: result.IsCorrect,
		XPEarned:  result.XPEarned,
		NewXP:     result.NewXP,
		NewLevel:  result.NewLevel,
		At:        out.attempt.AttemptedAt,
	})
	if result.LeveledUp {
		s.publish(ctx, log, TopicLevelUp, LevelUpEvent{
			StudentID: out.after.ID,
			OldLevel:  out.before.Level,
			NewLevel:  out.after.Level,
			At:        out.attempt.AttemptedAt,
		})
	}
	for _, q := range out.quests {
		if !q.JustCompleted {
			continue
		}
		s.publish(ctx, log, TopicQuestCompleted, QuestCompletedEvent{
			StudentID: q.Progress.StudentID,
			QuestID:   q.Quest.ID,
			QuestType: string(q.Quest.Type),
			Day:       q.Progress.Day,
			XPReward:  q.Quest.XPReward,
			At:        out.attempt.AttemptedAt,
		})
	}
}

func (s *GradingService) publish(ctx context.Context, log logrus.FieldLogger, topic string, payload any) {
	if err := s.events.Publish(ctx, topic, payload); err != nil {
		s.metrics.ObserveSideEffectFailure("publish")
		log.WithError(err).WithField("topic", topic).Warn("event publish failed")
	}
}

func lockKey(studentID string) string {
	return "student:" + studentID
}

// IsNotFound reports whether err means the requested content or student does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrQuizNotFound) || errors.Is(err, domain.ErrStudentNotFound)
}
