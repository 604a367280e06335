package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ruporhq/rupor/internal/content"
	"github.com/ruporhq/rupor/internal/domain"
	"github.com/ruporhq/rupor/internal/mq"
	"github.com/ruporhq/rupor/internal/publish"
	"github.com/ruporhq/rupor/internal/repo"
	"github.com/ruporhq/rupor/internal/selection"
	"github.com/ruporhq/rupor/internal/telemetry"
)

// handleJobEnqueued обрабатывает событие о новом job из очереди jobs.enqueued.
func (w *Worker) handleJobEnqueued(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.JobEnqueuedPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse job.enqueued payload", "error", err)
		return err
	}

	w.logger.Debug("received job.enqueued event",
		"job_id", payload.JobID,
		"schedule_id", payload.ScheduleID,
	)

	if err := w.processJob(ctx, payload.JobID); err != nil {
		// Ожидаемые ситуации — не возвращаем ошибку (ack)
		if errors.Is(err, ErrJobNotFound) {
			w.logger.Debug("job not processed", "job_id", payload.JobID, "reason", err)
			return nil
		}
		w.logger.Error("failed to process job", "job_id", payload.JobID, "error", err)
		return err
	}

	return nil
}

// processJob захватывает job и доводит его до финального статуса.
//
// Захват — это переход в RUNNING, который атомарно перечитывает job
// под блокировкой. Job в чужих руках или в финальном статусе даёт
// TransitionError: повторная доставка безвредна, обрабатываем как
// no-op. Ненулевая ошибка отсюда означает инфраструктурный сбой.
func (w *Worker) processJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := w.jobs.Transition(ctx, jobID, domain.JobStatusRunning, "")
	if err != nil {
		var te *domain.TransitionError
		if errors.As(err, &te) {
			w.logger.Debug("job already claimed or finished",
				"job_id", jobID,
				"status", te.From,
			)
			return nil
		}
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return fmt.Errorf("claim job: %w", err)
	}

	w.logger.Info("job started",
		"job_id", job.ID,
		"schedule_id", job.ScheduleID,
		"planned_at", job.PlannedAt,
		"attempt", job.Attempt,
	)

	return w.runAttempts(ctx, job)
}

// runAttempts крутит цикл попыток публикации для захваченного job.
//
// Каждая неудача фиксируется переходом в FAILED. Временный сбой
// ждёт backoff и возвращает job в RUNNING; необратимый сбой и
// исчерпание попыток уводят в DEAD_LETTER. Конкурентное вмешательство
// (другой worker, reaper) проявляется как TransitionError и трактуется
// как «job больше не наш».
func (w *Worker) runAttempts(ctx context.Context, job *domain.Job) error {
	for {
		err := w.attempt(ctx, job)
		if err == nil {
			return nil
		}

		if publish.IsPermanent(err) {
			telemetry.PublishAttempts.WithLabelValues("permanent").Inc()
			w.logger.Warn("permanent publish failure",
				"job_id", job.ID,
				"attempt", job.Attempt,
				"error", err,
			)
			return w.deadLetter(ctx, job, err.Error())
		}

		telemetry.PublishAttempts.WithLabelValues("transient").Inc()

		failed, terr := w.jobs.Transition(ctx, job.ID, domain.JobStatusFailed, err.Error())
		if terr != nil {
			return w.concurrentOrFail(terr, job.ID, "mark job failed")
		}
		*job = *failed

		if job.Attempt >= w.maxAttempts {
			w.logger.Warn("publish attempts exhausted",
				"job_id", job.ID,
				"attempt", job.Attempt,
				"error", err,
			)
			return w.deadLetter(ctx, job, "")
		}

		delay := w.backoff.Delay(job.Attempt)
		w.logger.Warn("transient publish failure, retrying",
			"job_id", job.ID,
			"attempt", job.Attempt,
			"delay", delay,
			"error", err,
		)

		// Ждём с учётом context. Прерванный backoff оставляет job
		// в FAILED: его доберёт polling после рестарта.
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		running, terr := w.jobs.Transition(ctx, job.ID, domain.JobStatusRunning, "")
		if terr != nil {
			return w.concurrentOrFail(terr, job.ID, "reclaim job for retry")
		}
		*job = *running
	}
}

// attempt выполняет одну попытку публикации: контент, валидация,
// внешний канал, фиксация успеха. Ошибки несут классификацию
// transient/permanent.
func (w *Worker) attempt(ctx context.Context, job *domain.Job) error {
	text, mediaRefs, err := w.resolveContent(ctx, job)
	if err != nil {
		return err
	}

	if err := validateText(text); err != nil {
		return publish.Permanent("validate text: %w", err)
	}

	w.checkNearDuplicate(ctx, job, text)

	externalID, err := w.pub.Publish(ctx, text, mediaRefs)
	if err != nil {
		return err
	}

	return w.recordSuccess(ctx, job, text, externalID)
}

// resolveContent загружает контент job и раскрывает подстановки.
// Исчезнувший контент — необратимый сбой; ошибки БД — временный.
func (w *Worker) resolveContent(ctx context.Context, job *domain.Job) (string, []string, error) {
	var raw string
	var mediaRefs []string

	switch {
	case job.VariantID != nil:
		variant, err := w.templates.GetVariant(ctx, *job.VariantID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return "", nil, publish.Permanent("variant %s is gone", *job.VariantID)
			}
			return "", nil, publish.Transient("load variant: %v", err)
		}
		if !variant.Active {
			// Выбор зафиксирован при создании job и на retry не
			// пересматривается; деактивация после выбора публикацию
			// не отменяет
			w.logger.Warn("variant deactivated after selection, publishing anyway",
				"job_id", job.ID,
				"variant_id", variant.ID,
			)
		}
		raw = variant.Text

	case job.PostID != nil:
		post, err := w.posts.GetByID(ctx, *job.PostID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return "", nil, publish.Permanent("post %s is gone", *job.PostID)
			}
			return "", nil, publish.Transient("load post: %v", err)
		}
		raw = post.Text
		mediaRefs = post.MediaRefs

	default:
		return "", nil, publish.Permanent("job has neither variant nor post")
	}

	sched, err := w.schedules.GetByID(ctx, job.ScheduleID)
	if err != nil {
		return "", nil, publish.Transient("load schedule: %v", err)
	}
	name := sched.Name
	if name == "" {
		name = sched.ID.String()
	}

	// Подстановки видят плановое время в timezone расписания
	plannedAt := job.PlannedAt
	if loc, lerr := time.LoadLocation(sched.Timezone); lerr == nil {
		plannedAt = plannedAt.In(loc)
	}

	rctx := content.NewContext(name, plannedAt)
	for k, v := range w.templateEnv {
		rctx.SetEnv(k, v)
	}

	text, err := content.Render(raw, rctx)
	if err != nil {
		// Битые подстановки не чинятся повтором
		return "", nil, publish.Permanent("render content: %v", err)
	}

	return text, mediaRefs, nil
}

// checkNearDuplicate сравнивает текст с недавними публикациями.
// Только предупреждение: недоступная история не блокирует публикацию.
func (w *Worker) checkNearDuplicate(ctx context.Context, job *domain.Job, text string) {
	recent, err := w.published.RecentTexts(ctx, nearDupSample)
	if err != nil {
		w.logger.Debug("near-duplicate check skipped", "job_id", job.ID, "error", err)
		return
	}

	if _, score, found := selection.NearDuplicate(text, recent); found {
		w.logger.Warn("text is a near duplicate of a recent publication",
			"job_id", job.ID,
			"schedule_id", job.ScheduleID,
			"similarity", score,
		)
	}
}

// recordSuccess фиксирует успех: переход в SUCCEEDED и PublishedRecord
// в одной транзакции.
//
// Внешняя публикация уже ушла. Сбой фиксации здесь возвращается как
// временный и ведёт к повтору, то есть возможен дубликат поста —
// это граница at-least-once между внешним каналом и нашей БД.
func (w *Worker) recordSuccess(ctx context.Context, job *domain.Job, text, externalID string) error {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return publish.Transient("begin success tx: %v", err)
	}
	defer tx.Rollback(ctx)

	succeeded, err := w.jobs.WithTx(tx).Transition(ctx, job.ID, domain.JobStatusSucceeded, "")
	if err != nil {
		var te *domain.TransitionError
		if errors.As(err, &te) {
			return publish.Permanent("job moved concurrently after publish: %v", err)
		}
		return publish.Transient("mark job succeeded: %v", err)
	}

	rec := &domain.PublishedRecord{
		ID:          uuid.New(),
		JobID:       job.ID,
		ScheduleID:  job.ScheduleID,
		VariantID:   job.VariantID,
		ExternalID:  externalID,
		Text:        text,
		PublishedAt: time.Now().UTC(),
	}
	if err := w.published.WithTx(tx).Create(ctx, rec); err != nil {
		return publish.Transient("record publication: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return publish.Transient("commit success tx: %v", err)
	}

	*job = *succeeded
	telemetry.PublishAttempts.WithLabelValues("success").Inc()

	w.logger.Info("job succeeded",
		"job_id", job.ID,
		"schedule_id", job.ScheduleID,
		"attempt", job.Attempt,
		"external_id", externalID,
	)

	w.publishCompletion(ctx, job, externalID, "")
	return nil
}

// deadLetter хоронит job: RUNNING проходит через FAILED, затем
// FAILED -> DEAD_LETTER.
func (w *Worker) deadLetter(ctx context.Context, job *domain.Job, errMsg string) error {
	if job.Status == domain.JobStatusRunning {
		failed, err := w.jobs.Transition(ctx, job.ID, domain.JobStatusFailed, errMsg)
		if err != nil {
			return w.concurrentOrFail(err, job.ID, "mark job failed before dead letter")
		}
		*job = *failed
	}

	dead, err := w.jobs.Transition(ctx, job.ID, domain.JobStatusDeadLetter, "")
	if err != nil {
		return w.concurrentOrFail(err, job.ID, "dead letter job")
	}
	*job = *dead

	telemetry.JobsDeadLettered.Inc()
	w.logger.Error("job dead lettered",
		"job_id", job.ID,
		"schedule_id", job.ScheduleID,
		"attempt", job.Attempt,
		"error", job.Error,
	)

	w.publishCompletion(ctx, job, "", job.Error)
	return nil
}

// concurrentOrFail разбирает ошибку перехода: TransitionError значит,
// что job конкурентно увели (другой worker или reaper) — это no-op,
// остальное — инфраструктурный сбой.
func (w *Worker) concurrentOrFail(err error, jobID uuid.UUID, op string) error {
	var te *domain.TransitionError
	if errors.As(err, &te) {
		w.logger.Debug("job moved concurrently",
			"job_id", jobID,
			"op", op,
			"from", te.From,
			"to", te.To,
		)
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// publishCompletion публикует событие о финальном статусе job.
func (w *Worker) publishCompletion(ctx context.Context, job *domain.Job, externalID, errMsg string) {
	if w.publisher == nil {
		return
	}

	payload := mq.JobCompletedPayload{
		JobID:      job.ID,
		ScheduleID: job.ScheduleID,
		Status:     string(job.Status),
		Attempt:    job.Attempt,
		ExternalID: externalID,
		Error:      errMsg,
	}

	var err error
	if job.Status == domain.JobStatusDeadLetter {
		err = w.publisher.PublishJobDeadLettered(ctx, payload)
	} else {
		err = w.publisher.PublishJobCompleted(ctx, payload)
	}
	if err != nil {
		// Не возвращаем ошибку — job обновлён в БД, события только
		// для внешних потребителей
		w.logger.Warn("failed to publish completion event",
			"job_id", job.ID,
			"status", job.Status,
			"error", err,
		)
	}
}

// validateText — финальная проверка текста после подстановок.
// Пустой и слишком длинный текст хоронят job.
func validateText(text string) error {
	if text == "" {
		return ErrTextEmpty
	}
	if n := len([]rune(text)); n > domain.MaxPostLength {
		return fmt.Errorf("%w: %d > %d", ErrTextTooLong, n, domain.MaxPostLength)
	}
	return nil
}
