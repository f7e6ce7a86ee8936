package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/anchor/internal/adapters/mq/queue"
	"github.com/okian/anchor/internal/domain/assistant"
	"github.com/okian/anchor/internal/domain/model"
	"github.com/okian/anchor/pkg/logger"
	"github.com/okian/anchor/pkg/metrics"
)

// DecomposeOutcome is the result of breaking text into steps.
type DecomposeOutcome struct {
	Spiciness string       `json:"spiciness"`
	Steps     []string     `json:"steps"`
	Tasks     []model.Task `json:"tasks,omitempty"`
}

// Transcribe turns audio into text.
func (s *Service) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var text string
	err := s.observe(ctx, "transcribe", func() (err error) {
		text, err = s.assistant.Transcriber.Transcribe(ctx, audio)
		return err
	})
	return text, err
}

// AdjustTone rewrites text in tone ("" selects professional).
func (s *Service) AdjustTone(ctx context.Context, text, tone string) (string, error) {
	t, err := assistant.ParseTone(tone)
	if err != nil {
		return "", err
	}
	var out string
	err = s.observe(ctx, "tone", func() (err error) {
		out, err = s.assistant.ToneAdjuster.AdjustTone(ctx, text, t)
		return err
	})
	return out, err
}

// Decompose splits text into steps at the given spiciness (0 selects the
// default). With create set, each step becomes a task in one update.
func (s *Service) Decompose(ctx context.Context, text string, level int, create bool) (DecomposeOutcome, error) {
	spicy, err := parseSpiciness(level)
	if err != nil {
		return DecomposeOutcome{}, err
	}
	var steps []string
	if err := s.observe(ctx, "decompose", func() (err error) {
		steps, err = s.assistant.Decomposer.Decompose(ctx, text, spicy)
		return err
	}); err != nil {
		return DecomposeOutcome{}, err
	}

	out := DecomposeOutcome{Spiciness: spicy.String(), Steps: steps}
	if create && len(steps) > 0 {
		tasks, err := s.createTasks(ctx, steps, model.SourceDecomposer, s.subtaskRoller)
		if err != nil {
			return DecomposeOutcome{}, err
		}
		out.Tasks = tasks
	}
	return out, nil
}

// observe times an assistant call and records its outcome.
func (s *Service) observe(ctx context.Context, capability string, call func() error) error {
	start := time.Now()
	err := call()
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, assistant.ErrCancelled):
		outcome = "cancelled"
	case errors.Is(err, assistant.ErrEmptyInput), errors.Is(err, assistant.ErrInvalidInput):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	metrics.RecordAssistantCall(capability, outcome, float64(time.Since(start).Milliseconds()))
	if err != nil && outcome == "error" {
		s.logger.Error(ctx, "assistant call failed", logger.String("capability", capability), logger.Error(err))
	}
	return err
}

func parseSpiciness(level int) (assistant.Spiciness, error) {
	if level == 0 {
		return assistant.DefaultSpiciness, nil
	}
	spicy := assistant.Spiciness(level)
	if !spicy.Valid() {
		return 0, fmt.Errorf("%w: spiciness %d must be between 1 and 5", ErrInvalidInput, level)
	}
	return spicy, nil
}

// SubmitVoice queues audio for transcription and decomposition into tasks.
// A repeated requestID returns the job created by the first submission with
// duplicate set, unless that job has already been evicted, in which case the
// request is queued again. A full queue fails with ErrBusy.
func (s *Service) SubmitVoice(ctx context.Context, requestID string, audio []byte, level int) (model.JobResult, bool, error) {
	if len(audio) == 0 {
		return model.JobResult{}, false, fmt.Errorf("%w: audio must not be empty", assistant.ErrEmptyInput)
	}
	spicy, err := parseSpiciness(level)
	if err != nil {
		return model.JobResult{}, false, err
	}

	s.mu.RLock()
	q, deduper := s.queue, s.deduper
	s.mu.RUnlock()
	if q == nil || deduper == nil {
		return model.JobResult{}, false, ErrNotStarted
	}

	if requestID != "" {
		if existing, ok := deduper.Lookup(ctx, requestID); ok {
			if res, err := s.Job(ctx, existing); err == nil {
				metrics.RecordJobDuplicate()
				return res, true, nil
			}
		}
	}

	job := queue.Job{
		ID:          s.newID(),
		RequestID:   requestID,
		Audio:       append([]byte(nil), audio...),
		Spiciness:   int(spicy),
		SubmittedAt: s.calendar.Now(),
	}
	result := model.JobResult{
		ID:          job.ID,
		RequestID:   requestID,
		Status:      model.JobPending,
		SubmittedAt: job.SubmittedAt,
	}
	// Stored before the claim so a claimed id always resolves while pending.
	s.putJob(result)

	if requestID != "" {
		existing, dup := deduper.Claim(ctx, requestID, job.ID)
		for dup {
			res, err := s.Job(ctx, existing)
			if !errors.Is(err, ErrNotFound) {
				s.dropJob(job.ID)
				metrics.RecordJobDuplicate()
				return res, true, err
			}
			// The earlier job was evicted; this submission takes the key over.
			existing, dup = deduper.Reclaim(ctx, requestID, existing, job.ID)
		}
	}

	if err := q.Enqueue(ctx, job); err != nil {
		s.dropJob(job.ID)
		if requestID != "" {
			deduper.Release(ctx, requestID)
		}
		if errors.Is(err, queue.ErrFull) {
			return model.JobResult{}, false, ErrBusy
		}
		return model.JobResult{}, false, err
	}
	s.logger.Debug(ctx, "voice job queued", logger.String("job_id", job.ID), logger.String("request_id", requestID))
	return result, false, nil
}

// Job returns the state of a voice job.
func (s *Service) Job(_ context.Context, id string) (model.JobResult, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	res, ok := s.jobs[id]
	if !ok {
		return model.JobResult{}, fmt.Errorf("%w: job %q", ErrNotFound, id)
	}
	res.TaskIDs = append([]string(nil), res.TaskIDs...)
	return res, nil
}

func (s *Service) putJob(res model.JobResult) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if _, ok := s.jobs[res.ID]; !ok && len(s.jobs) >= s.dedupeSize {
		s.evictFinishedJobLocked()
	}
	s.jobs[res.ID] = res
}

func (s *Service) dropJob(id string) {
	s.jobsMu.Lock()
	delete(s.jobs, id)
	s.jobsMu.Unlock()
}

// evictFinishedJobLocked forgets the oldest finished job.
func (s *Service) evictFinishedJobLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, res := range s.jobs {
		if res.Status == model.JobPending {
			continue
		}
		if oldestID == "" || res.SubmittedAt.Before(oldest) {
			oldestID, oldest = id, res.SubmittedAt
		}
	}
	if oldestID != "" {
		delete(s.jobs, oldestID)
	}
}

// voiceProcessor runs queued voice jobs for the worker pool.
type voiceProcessor struct {
	s *Service
}

// Process transcribes the audio, decomposes the transcript and creates one
// task per step. The job result records success or failure.
func (p voiceProcessor) Process(ctx context.Context, j queue.Job) error {
	s := p.s
	res, err := s.Job(ctx, j.ID)
	if err != nil {
		res = model.JobResult{ID: j.ID, RequestID: j.RequestID, SubmittedAt: j.SubmittedAt}
	}

	fail := func(err error) error {
		now := s.calendar.Now()
		res.Status = model.JobFailed
		res.Error = err.Error()
		res.FinishedAt = &now
		s.putJob(res)
		return err
	}

	transcript, err := s.Transcribe(ctx, j.Audio)
	if err != nil {
		return fail(fmt.Errorf("transcribe: %w", err))
	}
	res.Transcript = transcript

	out, err := s.Decompose(ctx, transcript, j.Spiciness, false)
	if err != nil {
		return fail(fmt.Errorf("decompose: %w", err))
	}
	var tasks []model.Task
	if len(out.Steps) > 0 {
		if tasks, err = s.createTasks(ctx, out.Steps, model.SourceVoice, s.subtaskRoller); err != nil {
			return fail(fmt.Errorf("create tasks: %w", err))
		}
	}

	now := s.calendar.Now()
	res.Status = model.JobDone
	res.FinishedAt = &now
	res.TaskIDs = make([]string, len(tasks))
	for i, t := range tasks {
		res.TaskIDs[i] = t.ID
	}
	s.putJob(res)
	s.logger.Info(ctx, "voice note turned into tasks",
		logger.String("job_id", j.ID),
		logger.Int("tasks", len(tasks)))
	return nil
}
