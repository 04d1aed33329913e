package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"intake-backend/internal/models"
	"intake-backend/internal/quiz"
)

type QuestionnaireRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionnaireRepo(pool *pgxpool.Pool) *QuestionnaireRepo {
	return &QuestionnaireRepo{pool: pool}
}

func (r *QuestionnaireRepo) GetQuestions(ctx context.Context, id string) (*models.QuizData, error) {
	var questionsJSON []byte
	err := r.pool.QueryRow(ctx,
		"SELECT questions_json FROM questionnaires WHERE id = $1", id,
	).Scan(&questionsJSON)
	if err != nil {
		return nil, err
	}

	data, err := quiz.ParseQuizData(questionsJSON)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

func (r *QuestionnaireRepo) Upsert(ctx context.Context, id string, data models.QuizData) error {
	questionsBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode questionnaire: %w", err)
	}

	query := `INSERT INTO questionnaires (id, questions_json, question_count, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET questions_json = EXCLUDED.questions_json,
			question_count = EXCLUDED.question_count,
			updated_at = EXCLUDED.updated_at`

	_, err = r.pool.Exec(ctx, query, id, questionsBytes, len(data.Questions), time.Now())
	return err
}

// SeedIfEmpty stores the bundled questionnaire under id when no row exists.
func (r *QuestionnaireRepo) SeedIfEmpty(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM questionnaires WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	return true, r.Upsert(ctx, id, quiz.FallbackData())
}
