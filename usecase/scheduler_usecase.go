package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/configuration"
	"repurposer/infrastructure/logger"
	"repurposer/infrastructure/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	promptInstruction = "Generate a fresh, engaging post based on this topic/prompt."
	promptSourceTitle = "Scheduled AI Post - 2006-01-02 15:04"
)

var errUnitSkipped = errors.New("unit no longer due")

// SweepResult summarises one due-publish sweep of a tenant.
type SweepResult struct {
	RunID              string `json:"run_id"`
	Published          int    `json:"published"`
	Failed             int    `json:"failed"`
	Skipped            int    `json:"skipped"`
	SchedulesCompleted int    `json:"schedules_completed"`
	SchedulesFailed    int    `json:"schedules_failed"`
}

type ISchedulerUsecase interface {
	RunDuePublishSweep(ctx context.Context, tenant model.Tenant) (*SweepResult, error)
	RunRecurrenceMaterialization(ctx context.Context, tenant model.Tenant) (int, error)
	RunScheduledPost(ctx context.Context, tenant model.Tenant, sp *model.ScheduledPost) error
}

type schedulerUsecase struct {
	posts            repository.IPost
	scheduled        repository.IScheduledPost
	sources          repository.IContentSource
	voices           repository.IBrandVoice
	generator        repository.IGenerator
	publisher        IPublishUsecase
	locker           repository.ILocker
	concurrency      int
	batchSize        int
	lockTTL          time.Duration
	recurrenceWindow time.Duration
	now              func() time.Time
}

func NewSchedulerUsecase(
	posts repository.IPost,
	scheduled repository.IScheduledPost,
	sources repository.IContentSource,
	voices repository.IBrandVoice,
	generator repository.IGenerator,
	publisher IPublishUsecase,
	locker repository.ILocker,
	cfg configuration.Scheduler,
) ISchedulerUsecase {
	u := &schedulerUsecase{
		posts:            posts,
		scheduled:        scheduled,
		sources:          sources,
		voices:           voices,
		generator:        generator,
		publisher:        publisher,
		locker:           locker,
		concurrency:      cfg.Concurrency,
		batchSize:        cfg.BatchSize,
		lockTTL:          cfg.LockTTL(),
		recurrenceWindow: cfg.RecurrenceInterval(),
		now:              func() time.Time { return time.Now().UTC() },
	}
	if u.concurrency <= 0 {
		u.concurrency = 4
	}
	if u.batchSize <= 0 {
		u.batchSize = 100
	}
	if u.recurrenceWindow <= 0 {
		u.recurrenceWindow = time.Hour
	}
	return u
}

// RunDuePublishSweep publishes every due SCHEDULED post and runs every due
// ScheduledPost. Units never fail the sweep; their errors land on their rows.
func (u *schedulerUsecase) RunDuePublishSweep(ctx context.Context, tenant model.Tenant) (*SweepResult, error) {
	now := u.now()
	res := &SweepResult{RunID: uuid.NewString()}
	lg := logger.GetLogger().WithField("tenant", tenant.Schema).WithField("run_id", res.RunID)

	duePosts, err := u.posts.ListDueScheduled(ctx, tenant, now, u.batchSize)
	if err != nil {
		return nil, fmt.Errorf("listing due posts: %w", err)
	}
	dueSchedules, err := u.scheduled.ListDue(ctx, tenant, now, u.batchSize)
	if err != nil {
		return nil, fmt.Errorf("listing due scheduled posts: %w", err)
	}

	var mu sync.Mutex
	count := func(f func()) {
		mu.Lock()
		f()
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(u.concurrency)
	for _, p := range duePosts {
		p := p
		g.Go(func() error {
			switch u.runPostUnit(ctx, tenant, p) {
			case "published":
				count(func() { res.Published++ })
			case "failed":
				count(func() { res.Failed++ })
			default:
				count(func() { res.Skipped++ })
			}
			return nil
		})
	}
	for _, sp := range dueSchedules {
		sp := sp
		g.Go(func() error {
			switch u.runScheduleUnit(ctx, tenant, sp) {
			case "completed":
				count(func() { res.SchedulesCompleted++ })
			case "failed":
				count(func() { res.SchedulesFailed++ })
			default:
				count(func() { res.Skipped++ })
			}
			return nil
		})
	}
	_ = g.Wait()

	lg.WithField("published", res.Published).
		WithField("failed", res.Failed).
		WithField("skipped", res.Skipped).
		WithField("schedules_completed", res.SchedulesCompleted).
		WithField("schedules_failed", res.SchedulesFailed).
		Info("due publish sweep finished")
	return res, nil
}

func (u *schedulerUsecase) runPostUnit(ctx context.Context, tenant model.Tenant, listed *model.RepurposedPost) (outcome string) {
	defer func() { metrics.ObserveSweepUnit("post", outcome) }()
	lg := logger.GetLogger().WithField("tenant", tenant.Schema).WithField("post_id", listed.ID)

	unlock, ok := u.claim(ctx, fmt.Sprintf("%s:post:%d", tenant.Schema, listed.ID))
	if !ok {
		return "skipped"
	}
	defer unlock()

	target := listed
	var published bool
	err := guard(func() error {
		current, err := u.posts.GetByID(ctx, tenant, listed.ID)
		if err != nil {
			return fmt.Errorf("reloading post: %w", err)
		}
		target = current
		if current.Status != model.PostStatusScheduled {
			return errUnitSkipped
		}
		out, err := u.publisher.Publish(ctx, tenant, current, nil)
		if errors.Is(err, ErrPublishInProgress) || errors.Is(err, ErrPostNotPublishable) {
			return errUnitSkipped
		}
		if err != nil {
			return err
		}
		published = out.Success
		return nil
	})
	switch {
	case errors.Is(err, errUnitSkipped):
		return "skipped"
	case err != nil:
		lg.WithField("error", err).Error("scheduled post failed unexpectedly")
		if rerr := u.publisher.RecordFailure(ctx, tenant, target, err.Error()); rerr != nil {
			lg.WithField("error", rerr).Error("could not record post failure")
		}
		return "failed"
	case published:
		return "published"
	}
	return "failed"
}

func (u *schedulerUsecase) runScheduleUnit(ctx context.Context, tenant model.Tenant, listed *model.ScheduledPost) (outcome string) {
	defer func() { metrics.ObserveSweepUnit("scheduled_post", outcome) }()
	lg := logger.GetLogger().WithField("tenant", tenant.Schema).WithField("scheduled_post_id", listed.ID)

	unlock, ok := u.claim(ctx, fmt.Sprintf("%s:scheduled:%d", tenant.Schema, listed.ID))
	if !ok {
		return "skipped"
	}
	defer unlock()

	current, err := u.scheduled.GetByID(ctx, tenant, listed.ID)
	if err != nil {
		lg.WithField("error", err).Error("could not reload scheduled post")
		return "skipped"
	}
	if !current.Due(u.now()) {
		return "skipped"
	}
	err = u.RunScheduledPost(ctx, tenant, current)
	switch {
	case errors.Is(err, errUnitSkipped):
		return "skipped"
	case err != nil:
		return "failed"
	}
	return "completed"
}

// RunScheduledPost executes one run and records its bookkeeping on the row.
// The run error, if any, is returned after the row is updated. A run whose
// wrapped post is held by another attempt records nothing and stays due.
func (u *schedulerUsecase) RunScheduledPost(ctx context.Context, tenant model.Tenant, sp *model.ScheduledPost) error {
	lg := logger.GetLogger().WithField("tenant", tenant.Schema).WithField("scheduled_post_id", sp.ID)

	runErr := guard(func() error { return u.execute(ctx, tenant, sp) })
	if errors.Is(runErr, errUnitSkipped) {
		lg.Info("wrapped post is being published elsewhere; retrying next sweep")
		return runErr
	}
	if runErr == nil {
		sp.RecordSuccess(u.now())
	} else {
		lg.WithField("error", runErr).Warn("scheduled post run failed")
		sp.RecordFailure(runErr.Error())
	}
	if err := u.scheduled.UpdateRunState(ctx, tenant, sp); err != nil {
		lg.WithField("error", err).Error("could not save scheduled post run state")
		if runErr == nil {
			return fmt.Errorf("saving run state: %w", err)
		}
	}
	return runErr
}

func (u *schedulerUsecase) execute(ctx context.Context, tenant model.Tenant, sp *model.ScheduledPost) error {
	if sp.PostID != nil {
		return u.runWrappedPost(ctx, tenant, sp)
	}
	if sp.Prompt != nil && strings.TrimSpace(*sp.Prompt) != "" {
		return u.runPrompt(ctx, tenant, sp)
	}
	return ErrInvalidSchedule
}

// runWrappedPost publishes the wrapped post. A post that settled before this
// run came due is cloned so recurring schedules keep producing posts; one that
// settled afterwards was handled by another attempt, whose outcome the run
// takes over.
func (u *schedulerUsecase) runWrappedPost(ctx context.Context, tenant model.Tenant, sp *model.ScheduledPost) error {
	post, err := u.posts.GetByID(ctx, tenant, *sp.PostID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("loading post %d: %w", *sp.PostID, err)
	}
	due := sp.ScheduledTime
	if sp.NextRun != nil {
		due = *sp.NextRun
	}
	switch post.Status {
	case model.PostStatusReady, model.PostStatusScheduled:
	case model.PostStatusPublishing:
		return errUnitSkipped
	case model.PostStatusPublished, model.PostStatusFailed:
		if post.SettledSince(due) {
			if post.Status == model.PostStatusPublished {
				return nil
			}
			if post.ErrorMessage != nil {
				return errors.New(*post.ErrorMessage)
			}
			return errors.New("post failed to publish")
		}
		clone := post.CloneForOccurrence(u.now())
		clone.Status = model.PostStatusReady
		clone.ScheduledFor = nil
		if err := u.posts.Create(ctx, tenant, clone); err != nil {
			return fmt.Errorf("copying post %d: %w", post.ID, err)
		}
		post = clone
	default:
		return ErrPostNotPublishable
	}
	out, err := u.publisher.Publish(ctx, tenant, post, nil)
	if errors.Is(err, ErrPublishInProgress) {
		return errUnitSkipped
	}
	if err != nil {
		return err
	}
	if !out.Success {
		return errors.New(out.Message)
	}
	return nil
}

// runPrompt generates and publishes one fresh post per platform. The run
// succeeds when any platform succeeds.
func (u *schedulerUsecase) runPrompt(ctx context.Context, tenant model.Tenant, sp *model.ScheduledPost) error {
	lg := logger.GetLogger().WithField("tenant", tenant.Schema).WithField("scheduled_post_id", sp.ID)
	if u.generator == nil {
		return errors.New("AI generation is not configured")
	}

	var voice *model.BrandVoice
	if sp.BrandVoiceID != nil && u.voices != nil {
		v, err := u.voices.GetByID(ctx, tenant, *sp.BrandVoiceID)
		if err != nil {
			lg.WithField("error", err).Warn("brand voice unavailable; generating without it")
		} else {
			voice = v
		}
	}

	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}
	succeeded := 0
	for _, name := range sp.Platforms {
		platform, ok := model.ParsePlatform(name)
		if !ok {
			keep(fmt.Errorf("unsupported platform: %s", name))
			continue
		}
		post, err := u.generatePost(ctx, tenant, sp, platform, voice)
		if err != nil {
			lg.WithField("platform", platform).WithField("error", err).Warn("prompt generation failed")
			keep(err)
			continue
		}
		out, err := u.publisher.Publish(ctx, tenant, post, nil)
		if err != nil {
			keep(err)
			continue
		}
		if !out.Success {
			keep(errors.New(out.Message))
			continue
		}
		succeeded++
	}
	if succeeded > 0 {
		return nil
	}
	if firstErr == nil {
		firstErr = errors.New("no platforms to publish to")
	}
	return firstErr
}

func (u *schedulerUsecase) generatePost(ctx context.Context, tenant model.Tenant, sp *model.ScheduledPost, platform model.Platform, voice *model.BrandVoice) (*model.RepurposedPost, error) {
	gen, err := u.generator.Generate(ctx, repository.GenerateRequest{
		Content:     *sp.Prompt,
		Platform:    platform,
		BrandVoice:  voice,
		Instruction: promptInstruction,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: generation failed: %w", platform.DisplayName(), err)
	}
	src := &model.ContentSource{
		UserID:      sp.UserID,
		SourceType:  model.SourceText,
		Title:       u.now().Format(promptSourceTitle),
		RawText:     *sp.Prompt,
		IsProcessed: true,
	}
	if err := u.sources.Create(ctx, tenant, src); err != nil {
		return nil, fmt.Errorf("saving prompt source: %w", err)
	}
	post := &model.RepurposedPost{
		SourceID:     &src.ID,
		UserID:       sp.UserID,
		Platform:     platform,
		BrandVoiceID: sp.BrandVoiceID,
		Hook:         gen.Hook,
		Body:         gen.Content,
		Hashtags:     gen.Hashtags,
		ThreadPosts:  gen.ThreadPosts,
		Status:       model.PostStatusReady,
	}
	post.Normalize()
	if err := u.posts.Create(ctx, tenant, post); err != nil {
		return nil, fmt.Errorf("saving generated post: %w", err)
	}
	return post, nil
}

// RunRecurrenceMaterialization creates the pending occurrence of every
// eligible recurring template and stamps the template with its instant.
// Running it twice for one occurrence day creates nothing new.
func (u *schedulerUsecase) RunRecurrenceMaterialization(ctx context.Context, tenant model.Tenant) (int, error) {
	now := u.now()
	lg := logger.GetLogger().WithField("tenant", tenant.Schema)

	templates, err := u.posts.ListRecurringTemplates(ctx, tenant)
	if err != nil {
		return 0, fmt.Errorf("listing recurring templates: %w", err)
	}
	created := 0
	for _, t := range templates {
		_, pending, err := t.Recurrence.PendingOccurrence(now, u.recurrenceWindow)
		if err != nil {
			lg.WithField("post_id", t.ID).WithField("error", err).Warn("skipping template with invalid recurrence")
			continue
		}
		if !pending {
			continue
		}
		ok, err := u.materialize(ctx, tenant, t.ID, now)
		if err != nil {
			lg.WithField("post_id", t.ID).WithField("error", err).Error("could not create recurring occurrence")
			continue
		}
		if ok {
			created++
		}
	}
	metrics.AddRecurrenceCreated(created)
	lg.WithField("created", created).Info("recurrence materialization finished")
	return created, nil
}

func (u *schedulerUsecase) materialize(ctx context.Context, tenant model.Tenant, templateID int64, now time.Time) (bool, error) {
	unlock, ok := u.claim(ctx, fmt.Sprintf("%s:recurrence:%d", tenant.Schema, templateID))
	if !ok {
		return false, nil
	}
	defer unlock()

	tpl, err := u.posts.GetByID(ctx, tenant, templateID)
	if err != nil {
		return false, err
	}
	if tpl.Recurrence == nil {
		return false, nil
	}
	at, pending, err := tpl.Recurrence.PendingOccurrence(now, u.recurrenceWindow)
	if err != nil || !pending {
		return false, err
	}
	occ := tpl.CloneForOccurrence(at)
	if err := u.posts.Create(ctx, tenant, occ); err != nil {
		return false, err
	}
	if err := u.posts.StampRecurrenceCreated(ctx, tenant, tpl.ID, at); err != nil {
		return true, fmt.Errorf("stamping template: %w", err)
	}
	return true, nil
}

// claim takes the per-unit lock. Lock errors skip the unit.
func (u *schedulerUsecase) claim(ctx context.Context, key string) (func(), bool) {
	if u.locker == nil {
		return func() {}, true
	}
	ok, err := u.locker.TryLock(ctx, key, u.lockTTL)
	if err != nil {
		logger.GetLogger().WithField("key", key).WithField("error", err).Warn("could not acquire unit lock")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return func() {
		if err := u.locker.Unlock(context.Background(), key); err != nil {
			logger.GetLogger().WithField("key", key).WithField("error", err).Warn("could not release unit lock")
		}
	}, true
}

// guard turns a panic in fn into an error carrying the panic text.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()
	return fn()
}
