// Package worker reconciles image records with the object store in response
// to storage-write notifications delivered through SQS.
//
// Every notification is processed independently. Duplicate, stale and
// out-of-order deliveries are no-ops because the only mutation is a
// transition conditional on the stored status still being PENDING.
package worker

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/imagevault/internal/blobstore"
	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/domain/lifecycle"
	"github.com/dmitrijs2005/imagevault/internal/logging"
	"github.com/dmitrijs2005/imagevault/internal/models"
	"github.com/dmitrijs2005/imagevault/internal/notification"
	"github.com/dmitrijs2005/imagevault/internal/repositories/images"
	"github.com/dmitrijs2005/imagevault/internal/thumbnail"
)

// Config tunes the processor.
type Config struct {
	KeyPrefix          string
	ThumbnailPrefix    string
	ThumbnailMaxSource int64
	// StoreTimeout bounds the store calls made for one notification.
	StoreTimeout time.Duration
	// MaxReceiveCount mirrors the queue's redrive policy. On that delivery a
	// failing record is moved to FAILED before the message is dead-lettered.
	// Zero disables the FAILED transition.
	MaxReceiveCount int
	Concurrency     int
	// ReportBatchItemFailures returns failed message ids instead of failing
	// the whole invocation. The event source mapping must enable it too.
	ReportBatchItemFailures bool
}

// Processor is the reconciliation worker.
type Processor struct {
	repo   images.Repository
	blobs  blobstore.Store
	thumbs thumbnail.Generator
	cfg    Config
	log    logging.Logger
	now    func() time.Time
}

func NewProcessor(repo images.Repository, blobs blobstore.Store, thumbs thumbnail.Generator, cfg Config, log logging.Logger) *Processor {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Processor{
		repo:   repo,
		blobs:  blobs,
		thumbs: thumbs,
		cfg:    cfg,
		log:    log.With("component", "worker"),
		now:    time.Now,
	}
}

// HandleSQSEvent processes one batch. An empty batch is an invocation error.
//
// With ReportBatchItemFailures the response lists failed messages and the
// error is nil; otherwise any failed message fails the invocation so the
// whole batch is redelivered.
func (p *Processor) HandleSQSEvent(ctx context.Context, evt events.SQSEvent) (events.SQSEventResponse, error) {
	start := time.Now()
	defer func() { batchDurationSeconds.Observe(time.Since(start).Seconds()) }()

	msgs, err := notification.Decode(evt)
	if err != nil {
		p.log.Error(ctx, "invalid batch", "error", err)
		return events.SQSEventResponse{}, err
	}

	results := make([]error, len(msgs))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, msg := range msgs {
		g.Go(func() error {
			results[i] = p.processMessage(ctx, msg)
			return nil
		})
	}
	_ = g.Wait()

	var (
		resp   events.SQSEventResponse
		failed []error
	)
	for i, err := range results {
		if err == nil {
			continue
		}
		batchFailuresTotal.Inc()
		failed = append(failed, err)
		resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: msgs[i].MessageID})
	}

	p.log.Info(ctx, "batch processed", "messages", len(msgs), "failed", len(failed))

	if len(failed) == 0 {
		return resp, nil
	}
	if p.cfg.ReportBatchItemFailures {
		return resp, nil
	}
	return events.SQSEventResponse{}, fmt.Errorf("%d of %d messages failed: %w", len(failed), len(msgs), errors.Join(failed...))
}

func (p *Processor) processMessage(ctx context.Context, msg notification.Message) error {
	log := p.log.With("message_id", msg.MessageID, "receive_count", msg.ReceiveCount)

	if msg.Err != nil {
		notificationsTotal.WithLabelValues(string(OutcomeError)).Inc()
		log.Error(ctx, "undecodable message", "error", msg.Err)
		return msg.Err
	}
	if len(msg.Objects) == 0 {
		log.Debug(ctx, "no object-created records", "ignored", msg.Ignored)
		return nil
	}

	var errs []error
	for _, obj := range msg.Objects {
		outcome, err := p.processObject(ctx, msg, obj)
		notificationsTotal.WithLabelValues(string(outcome)).Inc()
		if err != nil {
			log.Error(ctx, "notification failed", "key", obj.Key, "outcome", outcome, "error", err)
			errs = append(errs, err)
			continue
		}
		log.Info(ctx, "notification processed", "key", obj.Key, "outcome", outcome)
	}
	return errors.Join(errs...)
}

func (p *Processor) processObject(parent context.Context, msg notification.Message, obj notification.ObjectCreated) (Outcome, error) {
	log := p.log.With("key", obj.Key)

	parts, err := models.ParseObjectKey(p.cfg.KeyPrefix, obj.Key)
	if err != nil {
		log.Warn(parent, "skipping notification", "reason", err.Error())
		return OutcomeSkipped, nil
	}

	ctx, cancel := p.storeContext(parent)
	defer cancel()

	rec, err := p.repo.GetByImageID(ctx, parts.ImageID)
	if errors.Is(err, common.ErrNotFound) {
		log.Info(ctx, "no record for image, notification is stale", "image_id", parts.ImageID)
		return OutcomeStale, nil
	}
	if err != nil {
		return OutcomeError, fmt.Errorf("lookup %s: %w", parts.ImageID, err)
	}

	if rec.Status != lifecycle.StatusPending {
		return OutcomeDuplicate, nil
	}
	if rec.Owner != parts.Owner || rec.ObjectKey != obj.Key {
		log.Warn(ctx, "object key does not match record", "image_id", rec.ImageID, "record_owner", rec.Owner, "record_key", rec.ObjectKey)
		return OutcomeSkipped, nil
	}

	size, err := p.blobs.Head(ctx, rec.ObjectKey)
	if errors.Is(err, common.ErrNotFound) {
		return p.markFailed(parent, rec, "object not found in store")
	}
	if err != nil {
		return p.giveUpOrRetry(parent, msg, rec, fmt.Errorf("head %s: %w", rec.ObjectKey, err))
	}
	if rec.MaxSize > 0 && size > rec.MaxSize {
		return p.markFailed(parent, rec, fmt.Sprintf("object size %d exceeds limit %d", size, rec.MaxSize))
	}

	thumbKey, err := p.thumbnail(ctx, rec, size)
	if err != nil {
		return p.giveUpOrRetry(parent, msg, rec, err)
	}

	err = p.repo.Transition(ctx, rec, models.Transition{
		To:           lifecycle.StatusAvailable,
		Size:         &size,
		ThumbnailKey: thumbKey,
		At:           p.now(),
	})
	if errors.Is(err, common.ErrConditionFailed) {
		return p.afterLostRace(ctx, rec, thumbKey), nil
	}
	if err != nil {
		return p.giveUpOrRetry(parent, msg, rec, fmt.Errorf("transition %s: %w", rec.ImageID, err))
	}
	return OutcomeAvailable, nil
}

// thumbnail returns the stored thumbnail key, or nil when the image is not
// eligible or could not be converted. Only a failure to read the original is
// returned as an error.
func (p *Processor) thumbnail(ctx context.Context, rec *models.ImageRecord, size int64) (*string, error) {
	if !isImage(rec.ContentType) || size == 0 || (p.cfg.ThumbnailMaxSource > 0 && size > p.cfg.ThumbnailMaxSource) {
		return nil, nil
	}

	body, err := p.blobs.Get(ctx, rec.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rec.ObjectKey, err)
	}

	out, err := p.thumbs.Generate(body)
	if err != nil {
		thumbnailFailuresTotal.WithLabelValues("generate").Inc()
		p.log.Warn(ctx, "thumbnail generation failed", "image_id", rec.ImageID, "error", err)
		return nil, nil
	}

	key := thumbnail.Key(p.cfg.ThumbnailPrefix, rec.Owner, rec.ImageID)
	if err := p.blobs.Put(ctx, key, out, thumbnail.ContentType); err != nil {
		thumbnailFailuresTotal.WithLabelValues("put").Inc()
		p.log.Warn(ctx, "thumbnail upload failed", "image_id", rec.ImageID, "error", err)
		return nil, nil
	}
	return &key, nil
}

// afterLostRace runs when the PENDING guard rejected the transition. If the
// record was deleted meanwhile, the thumbnail written for it is orphaned and
// removed. A record that still exists was settled by another delivery and
// keeps the thumbnail, which lives under the same key.
func (p *Processor) afterLostRace(ctx context.Context, rec *models.ImageRecord, thumbKey *string) Outcome {
	if thumbKey == nil {
		return OutcomeDuplicate
	}
	_, err := p.repo.GetByImageID(ctx, rec.ImageID)
	if !errors.Is(err, common.ErrNotFound) {
		return OutcomeDuplicate
	}
	if err := p.blobs.Delete(ctx, *thumbKey); err != nil {
		p.log.Warn(ctx, "orphaned thumbnail not removed", "image_id", rec.ImageID, "key", *thumbKey, "error", err)
	}
	return OutcomeStale
}

// giveUpOrRetry returns cause so the message is redelivered. On the last
// allowed delivery the record is first moved to FAILED.
func (p *Processor) giveUpOrRetry(ctx context.Context, msg notification.Message, rec *models.ImageRecord, cause error) (Outcome, error) {
	if p.cfg.MaxReceiveCount <= 0 || msg.ReceiveCount < p.cfg.MaxReceiveCount {
		return OutcomeError, cause
	}

	reason := fmt.Sprintf("gave up after %d deliveries: %v", msg.ReceiveCount, cause)
	outcome, err := p.markFailed(ctx, rec, reason)
	if err != nil {
		return OutcomeError, errors.Join(cause, err)
	}
	if outcome == OutcomeDuplicate {
		return outcome, nil
	}
	return OutcomeFailed, cause
}

func (p *Processor) markFailed(parent context.Context, rec *models.ImageRecord, reason string) (Outcome, error) {
	// The notification's own deadline may already be spent.
	ctx, cancel := p.storeContext(context.WithoutCancel(parent))
	defer cancel()

	err := p.repo.Transition(ctx, rec, models.Transition{
		To:            lifecycle.StatusFailed,
		FailureReason: reason,
		At:            p.now(),
	})
	if errors.Is(err, common.ErrConditionFailed) {
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return OutcomeError, fmt.Errorf("mark %s failed: %w", rec.ImageID, err)
	}
	p.log.Warn(ctx, "image marked failed", "image_id", rec.ImageID, "reason", reason)
	return OutcomeFailed, nil
}

func (p *Processor) storeContext(parent context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.StoreTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, p.cfg.StoreTimeout)
}

func isImage(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "image/")
}
