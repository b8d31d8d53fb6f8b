package report

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fintel-group/report-extract/internal/engine"
	"github.com/fintel-group/report-extract/internal/model"
	"github.com/fintel-group/report-extract/internal/store"
)

// Processor runs queued report jobs in the background. Submit stores the job
// and enqueues it; a fixed pool of workers drains the queue, runs the
// extraction pipeline and persists the outcome. A job failure marks that job
// failed and never takes a worker down.
type Processor struct {
	store    store.Store
	eng      *engine.Engine
	entities []string
	workers  int

	jobs chan string
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

// NewProcessor creates a processor with the given worker count and queue
// depth. Entities configures which subjects each report is scanned for; an
// empty list makes the whole document a single subject tagged UnknownEntity.
func NewProcessor(s store.Store, eng *engine.Engine, entities []string, workers, queueDepth int) *Processor {
	if workers <= 0 {
		workers = 2
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	return &Processor{
		store:    s,
		eng:      eng,
		entities: entities,
		workers:  workers,
		jobs:     make(chan string, queueDepth),
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled or the
// queue is closed via Stop.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id, ok := <-p.jobs:
					if !ok {
						return
					}
					p.process(ctx, id)
				}
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight jobs to finish. Submissions
// after Stop are rejected, not panicked on.
func (p *Processor) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.jobs)
	})
	p.wg.Wait()
}

// Submit stores a new pending report and enqueues it for processing.
func (p *Processor) Submit(ctx context.Context, fileName string, units []model.TextUnit) (*model.Report, error) {
	rep, err := p.store.CreateReport(ctx, fileName, units)
	if err != nil {
		return nil, eris.Wrap(err, "report: create job")
	}

	// The lock pins the queue open across the send, so Stop cannot close it
	// under a blocked enqueue.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, eris.Errorf("report: processor stopped, job %s not queued", rep.ID)
	}

	select {
	case p.jobs <- rep.ID:
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "report: enqueue job")
	}

	zap.L().Info("report job queued",
		zap.String("report_id", rep.ID),
		zap.String("file_name", fileName),
		zap.Int("units", len(units)))
	return rep, nil
}

// process runs one job end to end.
func (p *Processor) process(ctx context.Context, reportID string) {
	log := zap.L().With(zap.String("report_id", reportID))

	if err := p.store.UpdateStatus(ctx, reportID, model.ReportStatusProcessing, ""); err != nil {
		log.Error("mark processing failed", zap.Error(err))
		return
	}

	units, err := p.store.GetReportUnits(ctx, reportID)
	if err != nil {
		p.fail(ctx, log, reportID, eris.Wrap(err, "report: load units"))
		return
	}

	entityUnits := p.selectUnits(units)

	final, err := p.eng.Run(ctx, entityUnits)
	if err != nil {
		p.fail(ctx, log, reportID, eris.Wrap(err, "report: run pipeline"))
		return
	}

	data, err := MarshalResult(final)
	if err != nil {
		p.fail(ctx, log, reportID, err)
		return
	}

	if err := p.store.SetResult(ctx, reportID, data); err != nil {
		log.Error("store result failed", zap.Error(err))
		return
	}
	log.Info("report job completed", zap.Int("entities", len(final)))
}

func (p *Processor) selectUnits(units []model.TextUnit) map[string][]model.TextUnit {
	if len(p.entities) == 0 {
		return map[string][]model.TextUnit{model.UnknownEntity: units}
	}
	return engine.SelectEntityUnits(units, p.entities)
}

func (p *Processor) fail(ctx context.Context, log *zap.Logger, reportID string, jobErr error) {
	log.Error("report job failed", zap.Error(jobErr))
	if err := p.store.UpdateStatus(ctx, reportID, model.ReportStatusFailed, jobErr.Error()); err != nil {
		log.Error("mark failed failed", zap.Error(err))
	}
}
