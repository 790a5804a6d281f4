package memory

import (
	"context"
	"sort"

	"examprep-service/internal/content"
	"examprep-service/internal/domain"
)

// StaticCatalog is a content catalog backed by in-memory data (useful for tests/demos).
type StaticCatalog struct {
	quizzes  map[string]domain.Quiz
	order    []string
	subjects []domain.Subject
	quests   []domain.QuestDefinition
}

func NewStaticCatalog(c content.Catalog) *StaticCatalog {
	cat := &StaticCatalog{
		quizzes:  make(map[string]domain.Quiz, len(c.Quizzes)),
		subjects: append([]domain.Subject(nil), c.Subjects...),
		quests:   append([]domain.QuestDefinition(nil), c.Quests...),
	}
	for _, q := range c.Quizzes {
		if _, dup := cat.quizzes[q.ID]; !dup {
			cat.order = append(cat.order, q.ID)
		}
		cat.quizzes[q.ID] = cloneQuiz(q)
	}
	return cat
}

func (c *StaticCatalog) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.quizzes[quizID]; ok {
		return cloneQuiz(quiz), nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// ListQuizzes returns up to limit quizzes in seed order, optionally filtered by subject.
func (c *StaticCatalog) ListQuizzes(_ context.Context, subjectID string, limit int) ([]domain.Quiz, error) {
	out := make([]domain.Quiz, 0)
	for _, id := range c.order {
		q := c.quizzes[id]
		if subjectID != "" && q.SubjectID != subjectID {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, cloneQuiz(q))
	}
	return out, nil
}

func (c *StaticCatalog) ListSubjects(_ context.Context) ([]domain.Subject, error) {
	out := append([]domain.Subject(nil), c.subjects...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetQuestDefinitionByType returns the first quest of the given type.
func (c *StaticCatalog) GetQuestDefinitionByType(_ context.Context, questType domain.QuestType) (domain.QuestDefinition, error) {
	for _, q := range c.quests {
		if q.Type == questType {
			return q, nil
		}
	}
	return domain.QuestDefinition{}, domain.ErrQuestNotFound
}

func (c *StaticCatalog) ListQuestDefinitions(_ context.Context) ([]domain.QuestDefinition, error) {
	return append([]domain.QuestDefinition(nil), c.quests...), nil
}

// cloneQuiz detaches the options slice so callers cannot edit the catalog.
func cloneQuiz(q domain.Quiz) domain.Quiz {
	q.Options = append([]string(nil), q.Options...)
	return q
}
