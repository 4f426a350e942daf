// internal/services/generation_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	apperrors "github.com/Corphon/DLLArchitect/internal/errors"
	"github.com/Corphon/DLLArchitect/internal/llm"
	"github.com/Corphon/DLLArchitect/internal/models"
	"github.com/Corphon/DLLArchitect/internal/observability"
	"github.com/Corphon/DLLArchitect/internal/storage"
	"github.com/Corphon/DLLArchitect/internal/utils"
)

// User-facing generation messages.
const (
	GenerationFailedMessage = "Failed to generate DLL. Please check your API key and try again."
	EmptyResponseMessage    = "No response generated from AI."
	MissingCredentialHelp   = "The Gemini API key is not configured. Set GEMINI_API_KEY and restart the service."
)

// GenerationService turns a LessonInput into a WeeklyPlan with one model call.
type GenerationService struct {
	llm      *LLMService
	store    *storage.DraftStore
	locks    *LockManager
	progress *ProgressService
	metrics  *utils.MetricsCollector
	validate *validator.Validate
	sem      *semaphore.Weighted
	now      func() time.Time
}

func NewGenerationService(
	llmService *LLMService,
	store *storage.DraftStore,
	locks *LockManager,
	progress *ProgressService,
	metrics *utils.MetricsCollector,
	maxConcurrent int64,
) *GenerationService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &GenerationService{
		llm:      llmService,
		store:    store,
		locks:    locks,
		progress: progress,
		metrics:  metrics,
		validate: newLessonValidator(),
		sem:      semaphore.NewWeighted(maxConcurrent),
		now:      time.Now,
	}
}

// Ready reports whether generation can reach the provider.
func (s *GenerationService) Ready() (bool, string) {
	return s.llm.GetProviderStatus()
}

// precheck rejects input that must never reach the provider.
func (s *GenerationService) precheck(input models.LessonInput) (string, error) {
	if err := validateLessonInput(s.validate, input); err != nil {
		return utils.OutcomeValidation, err
	}
	if !s.llm.IsReady() {
		_, state := s.llm.GetProviderStatus()
		return utils.OutcomeMissingCredential,
			apperrors.NewMissingCredentialError(MissingCredentialHelp, fmt.Errorf("%w: %s", ErrLLMNotReady, state))
	}
	return "", nil
}

// Generate validates input and runs a single generation attempt.
func (s *GenerationService) Generate(ctx context.Context, input models.LessonInput) (*models.WeeklyPlan, error) {
	if outcome, err := s.precheck(input); err != nil {
		s.metrics.RecordGeneration(outcome, 0)
		return nil, err
	}
	plan, elapsed, err := s.generate(ctx, input, nil)
	s.record(err, elapsed)
	return plan, err
}

func (s *GenerationService) record(err error, elapsed time.Duration) {
	outcome := utils.OutcomeSuccess
	if err != nil {
		outcome = utils.OutcomeFailed
	}
	s.metrics.RecordGeneration(outcome, elapsed)
}

// generate performs the provider call. tracker may be nil.
func (s *GenerationService) generate(ctx context.Context, input models.LessonInput, tracker *ProgressTracker) (*models.WeeklyPlan, time.Duration, error) {
	ctx, span := observability.Tracer().Start(ctx, "dll.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("dll.learning_area", input.LearningArea),
		attribute.String("dll.week", input.Week),
		attribute.String("llm.model", s.llm.GetDefaultModel()),
		attribute.Bool("dll.exemplar_file", !input.ExemplarFile.IsEmpty()),
	)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "waiting for generation slot")
		return nil, 0, apperrors.NewGenerationError(GenerationFailedMessage, err)
	}
	defer s.sem.Release(1)

	if tracker != nil {
		tracker.UpdateProgress(20, "Asking Gemini for the weekly plan...")
	}

	s.metrics.GenerationsActive.Inc()
	start := time.Now()
	var plan models.WeeklyPlan
	resp, err := s.llm.CreateStructuredCompletion(ctx, RequestParts(input), WeeklyPlanSchema(), &plan)
	elapsed := time.Since(start)
	s.metrics.GenerationsActive.Dec()

	if resp != nil {
		span.SetAttributes(
			attribute.Int("llm.tokens_used", resp.TokensUsed),
			attribute.String("llm.finish_reason", resp.FinishReason),
		)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		utils.GetLogger().Error("dll generation failed", map[string]interface{}{
			"learning_area": input.LearningArea,
			"week":          input.Week,
			"elapsed_ms":    elapsed.Milliseconds(),
			"error":         err,
		})
		if errors.Is(err, llm.ErrEmptyResponse) {
			return nil, elapsed, apperrors.NewGenerationError(EmptyResponseMessage, err)
		}
		return nil, elapsed, apperrors.NewGenerationError(GenerationFailedMessage,
			fmt.Errorf("failed to generate DLL: %w", err))
	}

	if missing := plan.Missing(); len(missing) > 0 {
		days := make([]string, len(missing))
		for i, w := range missing {
			days[i] = string(w)
		}
		err := fmt.Errorf("AI response is missing days: %s", strings.Join(days, ", "))
		span.RecordError(err)
		span.SetStatus(codes.Error, "incomplete plan")
		return nil, elapsed, apperrors.NewGenerationError(GenerationFailedMessage, err)
	}

	utils.GetLogger().Info("dll generated", map[string]interface{}{
		"learning_area": input.LearningArea,
		"week":          input.Week,
		"elapsed_ms":    elapsed.Milliseconds(),
	})
	return &plan, elapsed, nil
}

// GenerateDraft generates the plan for a stored draft. At most one
// generation runs per draft; a second attempt gets a conflict error.
func (s *GenerationService) GenerateDraft(ctx context.Context, id string) (*models.Draft, error) {
	d, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrDraftNotFound) {
			return nil, apperrors.NewNotFoundError("draft not found", err)
		}
		return nil, err
	}

	if outcome, err := s.precheck(d.Input); err != nil {
		s.metrics.RecordGeneration(outcome, 0)
		return d, err
	}

	if !s.locks.TryAcquire(id) {
		s.metrics.RecordGeneration(utils.OutcomeConflict, 0)
		return d, apperrors.NewConflictError("a generation is already running for this draft", nil)
	}
	defer s.locks.Release(id)

	d, err = s.setStatus(id, func(d *models.Draft) {
		d.Status = models.DraftGenerating
		d.Error = ""
	})
	if err != nil {
		return nil, err
	}

	tracker := s.progress.Tracker(id)
	tracker.Start("Generating your Daily Lesson Log...")

	plan, elapsed, genErr := s.generate(ctx, d.Input, tracker)
	s.record(genErr, elapsed)

	d, err = s.setStatus(id, func(d *models.Draft) {
		if genErr != nil {
			d.Status = models.DraftFailed
			d.Error = userMessage(genErr)
			return
		}
		now := s.now()
		d.Plan = plan
		d.Status = models.DraftGenerated
		d.GeneratedAt = &now
	})
	if err != nil {
		tracker.Fail(GenerationFailedMessage)
		return nil, err
	}

	if genErr != nil {
		tracker.Fail(d.Error)
		return d, genErr
	}
	tracker.Complete("Daily Lesson Log ready")
	return d, nil
}

// setStatus reloads the draft under its lock so concurrent field edits are
// kept, applies fn and saves.
func (s *GenerationService) setStatus(id string, fn func(d *models.Draft)) (*models.Draft, error) {
	var out *models.Draft
	err := s.locks.ExecuteWithDraftLock(id, func() error {
		d, err := s.store.Get(id)
		if err != nil {
			return apperrors.NewNotFoundError("draft not found", err)
		}
		fn(d)
		d.UpdatedAt = s.now()
		if err := s.store.Save(d); err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
		out = d
		return nil
	})
	return out, err
}

// userMessage returns the message of the outermost AppError, or the generic
// failure text.
func userMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return GenerationFailedMessage
}
