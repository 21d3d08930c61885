package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tendant/image-analysis-pipeline/internal/analysis"
	"github.com/tendant/image-analysis-pipeline/internal/metrics"
	"github.com/tendant/image-analysis-pipeline/internal/storage"
	"github.com/tendant/image-analysis-pipeline/internal/vision"
	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
	"go.uber.org/zap"
)

// AnalysisOptions tunes the image analysis workflow
type AnalysisOptions struct {
	// VisionTimeout bounds the annotate call. Zero means no extra deadline.
	VisionTimeout time.Duration
	// StoreTimeout bounds the record merge write. Zero means no extra deadline.
	StoreTimeout time.Duration
	// Now stamps the created field. Defaults to time.Now.
	Now func() time.Time
}

// ImageAnalysisWorkflow labels an uploaded image, extracts its dominant color,
// checks it against the safe-search policy and records safe images.
type ImageAnalysisWorkflow struct {
	provider vision.Provider
	writer   storage.PictureWriter
	logger   *zap.Logger
	metrics  *metrics.Metrics
	opts     AnalysisOptions
}

// NewImageAnalysisWorkflow creates the analysis workflow. logger and m may be nil.
func NewImageAnalysisWorkflow(provider vision.Provider, writer storage.PictureWriter, logger *zap.Logger, m *metrics.Metrics, opts AnalysisOptions) *ImageAnalysisWorkflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ImageAnalysisWorkflow{
		provider: provider,
		writer:   writer,
		logger:   logger,
		metrics:  m,
		opts:     opts,
	}
}

// Name returns the workflow name
func (w *ImageAnalysisWorkflow) Name() string {
	return "ImageAnalysisWorkflow"
}

// Execute runs the analysis for the image named in the request
func (w *ImageAnalysisWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	ref := analysis.ImageRef{Bucket: wctx.Request.Bucket, Name: wctx.Request.Name}
	log := w.logger.With(
		zap.String("run_id", wctx.RunID),
		zap.String("bucket", ref.Bucket),
		zap.String("name", ref.Name),
	)

	result, err := w.execute(wctx.Ctx, log, ref)
	w.metrics.ObserveOutcome(result.Outcome)
	if err != nil {
		log.Error("analysis failed", zap.Error(err))
	}
	return result, err
}

func (w *ImageAnalysisWorkflow) execute(ctx context.Context, log *zap.Logger, ref analysis.ImageRef) (*WorkflowResult, error) {
	// Step 1: Validate request
	if err := ref.Validate(); err != nil {
		return failed(fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}
	log.Info("new picture uploaded", zap.String("uri", ref.URI()))

	// Step 2: Build the analysis request
	req := analysis.BuildRequest(ref)
	log.Info("analyzing picture", zap.Stringers("features", req.Features))

	// Step 3: Invoke the vision backend
	results, err := w.annotate(ctx, req)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", ErrVisionCall, err))
	}
	if len(results) == 0 {
		log.Info("no response received from vision backend")
		return skipped(pipeline.OutcomeSkippedEmptyBatch, nil), nil
	}
	if len(results) > 1 {
		log.Warn("vision backend returned more than one result for a single image; using the first",
			zap.Int("results", len(results)))
		w.metrics.ObserveUnexpectedBatch()
	}

	// Step 4: Interpret the first result
	summary, err := analysis.Interpret(results[0])
	if err != nil {
		log.Warn("vision backend reported an error for the image", zap.Error(err))
		return skipped(pipeline.OutcomeSkippedAnnotationError, nil), nil
	}
	log.Info("annotations found",
		zap.Strings("labels", summary.Labels),
		zap.String("color", summary.Color),
		zap.Bool("safe", summary.IsSafe),
	)

	// Step 5: Persistence decision
	if !summary.IsSafe {
		log.Info("picture is not safe to display; not storing")
		return skipped(pipeline.OutcomeSkippedUnsafe, &summary), nil
	}

	// Step 6: Merge the record into the store
	updated, err := w.store(ctx, storage.PictureRecord{
		Key:     ref.Name,
		Labels:  summary.Labels,
		Color:   summary.Color,
		Created: w.opts.Now(),
	})
	if errors.Is(err, storage.ErrInvalidKey) {
		log.Warn("picture name cannot be used as a record key; not storing", zap.Error(err))
		return skipped(pipeline.OutcomeSkippedInvalidKey, &summary), nil
	}
	if err != nil {
		result, err := failed(fmt.Errorf("%w: %w", ErrStoreWrite, err))
		result.Summary = &summary
		return result, err
	}
	log.Info("picture record stored", zap.Time("update_time", updated))

	return &WorkflowResult{
		Success:    true,
		Outcome:    pipeline.OutcomeStored,
		Summary:    &summary,
		UpdateTime: updated,
	}, nil
}

// annotate holds the annotator only for the duration of the call
func (w *ImageAnalysisWorkflow) annotate(ctx context.Context, req analysis.Request) ([]analysis.Result, error) {
	annotator, release, err := w.provider.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire annotator: %w", err)
	}
	defer release()

	ctx, cancel := withTimeout(ctx, w.opts.VisionTimeout)
	defer cancel()

	start := time.Now()
	results, err := annotator.Annotate(ctx, req)
	w.metrics.ObserveVision(time.Since(start))
	return results, err
}

func (w *ImageAnalysisWorkflow) store(ctx context.Context, rec storage.PictureRecord) (time.Time, error) {
	ctx, cancel := withTimeout(ctx, w.opts.StoreTimeout)
	defer cancel()

	updated, err := w.writer.MergePicture(ctx, rec)
	w.metrics.ObserveStoreWrite(err)
	return updated, err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func failed(err error) (*WorkflowResult, error) {
	return &WorkflowResult{
		Success: false,
		Outcome: pipeline.OutcomeFailed,
		Error:   err.Error(),
	}, err
}

func skipped(outcome string, summary *analysis.Summary) *WorkflowResult {
	return &WorkflowResult{
		Success: true,
		Outcome: outcome,
		Summary: summary,
	}
}

// IsSkip reports whether the result is a non-fatal skip
func (r *WorkflowResult) IsSkip() bool {
	return r != nil && r.Success && r.Outcome != pipeline.OutcomeStored
}
