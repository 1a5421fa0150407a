package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const (
	promoJobName          = "promo_mailing"
	defaultPromoSample    = 3
	defaultRecipientBatch = 500
	// A marker outlives its ISO week so a late cycle cannot resend.
	promoMarkerTTL = 8 * 24 * time.Hour
)

// PromoMailingJobParams configure the weekly hot offers mailing.
type PromoMailingJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Outbox     outboxEmitter
	Markers    markerStore
	Sampler    offerSampler
	Recipients recipientLister
	Weekday    time.Weekday
	SampleSize int
	BatchSize  int
}

// NewPromoMailingJob builds the job that requests one promo mail per active user each week.
func NewPromoMailingJob(params PromoMailingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.Markers == nil {
		return nil, fmt.Errorf("marker store required")
	}
	if params.Sampler == nil {
		return nil, fmt.Errorf("offer sampler required")
	}
	if params.Recipients == nil {
		return nil, fmt.Errorf("recipient lister required")
	}
	sample := params.SampleSize
	if sample <= 0 {
		sample = defaultPromoSample
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultRecipientBatch
	}
	return &promoMailingJob{
		logg:       params.Logger,
		db:         params.DB,
		outbox:     params.Outbox,
		markers:    params.Markers,
		sampler:    params.Sampler,
		recipients: params.Recipients,
		weekday:    params.Weekday,
		sample:     sample,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type promoMailingJob struct {
	logg       *logger.Logger
	db         txRunner
	outbox     outboxEmitter
	markers    markerStore
	sampler    offerSampler
	recipients recipientLister
	weekday    time.Weekday
	sample     int
	batch      int
	now        func() time.Time
}

func (j *promoMailingJob) Name() string { return promoJobName }

func (j *promoMailingJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	if now.Weekday() != j.weekday {
		return nil
	}
	week := isoWeek(now)
	logCtx := j.logg.WithField(ctx, "week", week)

	markerKey := j.markers.MarkerKey(promoJobName, week)
	claimed, err := j.markers.SetNX(ctx, markerKey, now.Format(time.RFC3339), promoMarkerTTL)
	if err != nil {
		return fmt.Errorf("claim promo marker: %w", err)
	}
	if !claimed {
		j.logg.Info(logCtx, "promo mailing already sent this week")
		return nil
	}

	offers, err := j.sampler.Sample(ctx, j.sample)
	if err != nil {
		j.releaseMarker(logCtx, markerKey)
		return fmt.Errorf("sample hot offers: %w", err)
	}
	if len(offers) == 0 {
		j.releaseMarker(logCtx, markerKey)
		j.logg.Info(logCtx, "no discounted products; promo mailing skipped")
		return nil
	}
	products := make([]payloads.PromoProduct, 0, len(offers))
	for _, offer := range offers {
		products = append(products, payloads.PromoProduct{
			ProductID: offer.ProductID,
			Name:      offer.Name,
			MinPrice:  offer.MinPrice,
		})
	}

	sent, err := j.emitAll(ctx, week, products, now)
	if err != nil {
		// Nothing went out, so the next cycle may retry the whole week.
		if sent == 0 {
			j.releaseMarker(logCtx, markerKey)
		}
		return fmt.Errorf("emit promo mails after %d sent: %w", sent, err)
	}
	j.logg.Info(j.logg.WithField(logCtx, "recipients", sent), "promo mailing requested")
	return nil
}

func (j *promoMailingJob) emitAll(ctx context.Context, week string, products []payloads.PromoProduct, now time.Time) (int, error) {
	sent := 0
	after := uuid.Nil
	for {
		batch, err := j.recipients.ActiveRecipients(ctx, after, j.batch)
		if err != nil {
			return sent, err
		}
		if len(batch) == 0 {
			return sent, nil
		}
		err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
			for _, user := range batch {
				event := outbox.DomainEvent{
					EventType:     enums.EventPromoMailRequested,
					AggregateType: enums.AggregateUser,
					AggregateID:   user.ID,
					OccurredAt:    now,
					Data: payloads.PromoMailRequestedEvent{
						UserID:   user.ID,
						Email:    user.Email,
						Login:    user.Login,
						Week:     week,
						Products: products,
					},
				}
				if err := j.outbox.Emit(ctx, tx, event); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return sent, err
		}
		sent += len(batch)
		after = batch[len(batch)-1].ID
		if len(batch) < j.batch {
			return sent, nil
		}
	}
}

func (j *promoMailingJob) releaseMarker(ctx context.Context, key string) {
	if err := j.markers.Del(ctx, key); err != nil {
		j.logg.Error(ctx, "failed to release promo marker", err)
	}
}

func isoWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
