package work

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/fulmenhq/otapublish/pkg/logger"
)

// WorkItem is one unit of work handed to a processor.
// Index is the item's position in the submitted slice.
type WorkItem struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Path  string `json:"path"`
}

// ExecutionResult represents the result of processing a work item
type ExecutionResult struct {
	WorkItemID string        `json:"work_item_id"`
	Index      int           `json:"index"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Err        error         `json:"-"`
	Duration   time.Duration `json:"duration"`
}

// ExecutionSummary provides a summary of the execution
type ExecutionSummary struct {
	TotalItems    int           `json:"total_items"`
	Successful    int           `json:"successful"`
	Failed        int           `json:"failed"`
	Skipped       int           `json:"skipped"`
	TotalDuration time.Duration `json:"total_duration"`
	Workers       int           `json:"workers"`
	PeakInFlight  int           `json:"peak_in_flight"`
}

// WorkItemProcessor defines the interface for processing work items
type WorkItemProcessor interface {
	ProcessWorkItem(ctx context.Context, item *WorkItem) error
}

// ProcessorFunc adapts a function to WorkItemProcessor
type ProcessorFunc func(ctx context.Context, item *WorkItem) error

// ProcessWorkItem calls f(ctx, item)
func (f ProcessorFunc) ProcessWorkItem(ctx context.Context, item *WorkItem) error {
	return f(ctx, item)
}

// DispatcherConfig configures the dispatcher
type DispatcherConfig struct {
	MaxWorkers int
	// StopOnError cancels queued and in-flight items after the first failure
	StopOnError      bool
	ProgressCallback func(result ExecutionResult)
}

// Dispatcher runs work items on a fixed pool of workers
type Dispatcher struct {
	config    DispatcherConfig
	processor WorkItemProcessor
}

// NewDispatcher creates a new work dispatcher
func NewDispatcher(config DispatcherConfig, processor WorkItemProcessor) *Dispatcher {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	return &Dispatcher{
		config:    config,
		processor: processor,
	}
}

// MaxWorkers returns the effective worker count
func (d *Dispatcher) MaxWorkers() int {
	return d.config.MaxWorkers
}

// Execute processes items with at most MaxWorkers in flight. With StopOnError
// the first failure is returned once every started item has finished.
func (d *Dispatcher) Execute(ctx context.Context, items []WorkItem) (*ExecutionSummary, error) {
	startTime := time.Now()
	workers := d.config.MaxWorkers
	if workers > len(items) {
		workers = len(items)
	}
	logger.Debug(fmt.Sprintf("Dispatching %d work items to %d workers", len(items), workers))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workChan := make(chan *WorkItem)
	resultChan := make(chan ExecutionResult, len(items))

	var inFlight, peak int
	var statsMu sync.Mutex
	track := func(delta int) {
		statsMu.Lock()
		inFlight += delta
		if inFlight > peak {
			peak = inFlight
		}
		statsMu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go d.worker(runCtx, workChan, resultChan, track, &wg)
	}

	go func() {
		defer close(workChan)
		for i := range items {
			select {
			case workChan <- &items[i]:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	summary := &ExecutionSummary{TotalItems: len(items), Workers: workers}
	var firstErr error
	for result := range resultChan {
		if result.Success {
			summary.Successful++
		} else {
			summary.Failed++
			if firstErr == nil {
				firstErr = result.Err
				if d.config.StopOnError {
					cancel()
				}
			}
		}
		if d.config.ProgressCallback != nil {
			d.config.ProgressCallback(result)
		}
	}

	summary.Skipped = summary.TotalItems - summary.Successful - summary.Failed
	summary.TotalDuration = time.Since(startTime)
	summary.PeakInFlight = peak

	logger.Debug(fmt.Sprintf("Execution completed: %d successful, %d failed, %d skipped in %v",
		summary.Successful, summary.Failed, summary.Skipped, summary.TotalDuration))

	if firstErr != nil {
		return summary, firstErr
	}
	if err := ctx.Err(); err != nil && summary.Skipped > 0 {
		return summary, err
	}
	return summary, nil
}

// worker processes work items from the work channel
func (d *Dispatcher) worker(ctx context.Context, workChan <-chan *WorkItem, resultChan chan<- ExecutionResult, track func(int), wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case item, ok := <-workChan:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}

			track(1)
			startTime := time.Now()
			err := d.processor.ProcessWorkItem(ctx, item)
			track(-1)

			result := ExecutionResult{
				WorkItemID: item.ID,
				Index:      item.Index,
				Success:    err == nil,
				Err:        err,
				Duration:   time.Since(startTime),
			}
			if err != nil {
				result.Error = err.Error()
			}
			// resultChan is buffered for every item, so this never blocks
			resultChan <- result

		case <-ctx.Done():
			return
		}
	}
}

// ErrNoItems is returned by ValidateItems for an empty batch
var ErrNoItems = errors.New("no work items")

// ValidateItems checks that item IDs are unique and indexes match positions
func ValidateItems(items []WorkItem) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if item.Index != i {
			return fmt.Errorf("work item %s has index %d at position %d", item.ID, item.Index, i)
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate work item %s", item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}
