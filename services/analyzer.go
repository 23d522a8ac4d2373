package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"civicvoice/logger"
	"civicvoice/model"
	"civicvoice/store"
)

const AnalysisFailedText = "Analysis failed - manual review required"

// writeTimeout bounds the store write, event and notification that follow a
// classification, which must happen even when the classification timed out.
const writeTimeout = 10 * time.Second

// EventPublisher fans complaint changes out to dashboard subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.Event) error
}

// Analyzer classifies complaints after they are stored and writes the
// result back.
type Analyzer struct {
	store      store.ComplaintStore
	classifier *Classifier
	events     EventPublisher
	notifier   Notifier
	log        *logger.Logger
	timeout    time.Duration
	now        func() time.Time
	wg         sync.WaitGroup
}

func NewAnalyzer(st store.ComplaintStore, classifier *Classifier, events EventPublisher, notifier Notifier, timeout time.Duration, log *logger.Logger) *Analyzer {
	if notifier == nil {
		notifier = NopNotifier()
	}
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Analyzer{
		store:      st,
		classifier: classifier,
		events:     events,
		notifier:   notifier,
		log:        log,
		timeout:    timeout,
		now:        time.Now,
	}
}

// AnalyzeAsync returns immediately. The analysis outlives the request that
// started it; Analyze applies the timeout.
func (a *Analyzer) AnalyzeAsync(id, description string, category model.Category) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if _, err := a.Analyze(context.Background(), id, description, category); err != nil {
			a.log.Warn("background analysis failed", "complaint_id", id, "error", err)
		}
	}()
}

// Analyze classifies one complaint and stores the outcome. The model call
// is bounded by the analyzer timeout. A classifier failure, including that
// timeout, is recorded as analysis_failed and still returned to the caller.
func (a *Analyzer) Analyze(ctx context.Context, id, description string, category model.Category) (model.Analysis, error) {
	classifyCtx, cancelClassify := context.WithTimeout(ctx, a.timeout)
	result, classifyErr := a.classifier.Classify(classifyCtx, description, category)
	cancelClassify()
	if classifyErr != nil {
		result = model.Analysis{
			Status: model.StatusAnalysisFailed,
			Text:   AnalysisFailedText,
		}
	} else {
		result.Status = model.StatusAnalyzed
	}
	result.AnalyzedAt = a.now().UTC()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := a.store.ApplyAnalysis(ctx, id, result); err != nil {
		return result, fmt.Errorf("store analysis: %w", err)
	}
	a.log.Info("complaint analyzed", "complaint_id", id, "status", result.Status, "priority", result.Priority)

	a.publish(ctx, model.Event{
		Type:        model.EventComplaintAnalyzed,
		ComplaintID: id,
		Status:      result.Status,
		Priority:    result.Priority,
		At:          result.AnalyzedAt,
	})

	if result.Priority == model.PriorityCritical {
		err := a.notifier.NotifyCritical(ctx, CriticalComplaint{ID: id, Category: result.Category, Summary: description})
		if err != nil {
			a.log.Warn("critical notification failed", "complaint_id", id, "error", err)
		}
	}

	if classifyErr != nil {
		return result, classifyErr
	}
	return result, nil
}

// Reanalyze loads a stored complaint and runs Analyze on it.
func (a *Analyzer) Reanalyze(ctx context.Context, id string) (model.Analysis, error) {
	c, err := a.store.GetComplaint(ctx, id)
	if err != nil {
		return model.Analysis{}, err
	}
	return a.Analyze(ctx, c.ID, c.Description, c.Category)
}

func (a *Analyzer) publish(ctx context.Context, ev model.Event) {
	if a.events == nil {
		return
	}
	if err := a.events.Publish(ctx, ev); err != nil {
		a.log.Warn("publish event failed", "type", ev.Type, "complaint_id", ev.ComplaintID, "error", err)
	}
}

// Wait blocks until every background analysis has finished.
func (a *Analyzer) Wait() {
	a.wg.Wait()
}

// Drain is Wait bounded by ctx.
func (a *Analyzer) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("analyzer: pending analyses did not finish: %w", ctx.Err())
	}
}
