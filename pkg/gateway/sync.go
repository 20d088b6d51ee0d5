package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/lkarlslund/channelsync/pkg/report"
)

const (
	// BatchPageSize is the page size used while walking the channel list.
	BatchPageSize = 10
	// BatchChannelType restricts batch runs to OpenAI compatible channels.
	BatchChannelType = TypeOpenAI
)

type UpdateOptions struct {
	// Batch suppresses the single update banner and trailer.
	Batch    bool
	MaskName bool
}

type BatchOptions struct {
	// MaxDelay is the ceiling of the random pause between two channels.
	MaxDelay time.Duration
	Status   int
	MaskName bool
}

// BatchStats are the counters of one batch run. Success+Fail always equals
// Processed and Processed never exceeds Total.
type BatchStats struct {
	RunID     string
	Total     int
	Success   int
	Fail      int
	Processed int
}

// Completion is Success/Total as a percentage, 0 when Total is 0.
func (s BatchStats) Completion() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Total) * 100
}

// Syncer refreshes channel model lists through a Gateway.
type Syncer struct {
	Gateway Gateway
	Out     *report.Printer
	// Delay draws the pause inserted between two batch items.
	Delay func(ceiling time.Duration) time.Duration
	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewSyncer(gw Gateway, out *report.Printer) *Syncer {
	if out == nil {
		out = report.Discard()
	}
	return &Syncer{
		Gateway: gw,
		Out:     out,
		Delay:   RandomDelay,
		Sleep:   SleepContext,
	}
}

// RandomDelay returns a duration drawn uniformly from [ceiling/10, ceiling].
func RandomDelay(ceiling time.Duration) time.Duration {
	if ceiling <= 0 {
		return 0
	}
	lo := ceiling / 10
	return lo + time.Duration(rand.Int64N(int64(ceiling-lo)+1))
}

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// fatal reports whether err must stop the caller instead of being counted as
// an ordinary failed step.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, ErrUnsupported) || ctx.Err() != nil
}

// UpdateChannel replaces the model list of channel id with the live catalog of
// its provider. It returns false when any step fails; the error is only set for
// unsupported back-ends and cancellation.
func (s *Syncer) UpdateChannel(ctx context.Context, id int, opts UpdateOptions) (bool, error) {
	if !opts.Batch {
		s.Out.Banner(fmt.Sprintf("Updating single channel (ID: %d)", id))
		defer s.Out.Banner("Single channel update finished, check the messages above")
	}
	ok, err := s.updateChannel(ctx, id, opts.MaskName)
	if err != nil {
		s.Out.Failf("update aborted: %v", err)
	}
	return ok, err
}

func (s *Syncer) updateChannel(ctx context.Context, id int, mask bool) (bool, error) {
	s.Out.Step(1, "fetching channel %d details...", id)
	ch, err := s.Gateway.GetChannel(ctx, id)
	if err != nil {
		if fatal(ctx, err) {
			return false, err
		}
		s.Out.Failf("channel %d: fetching details failed", id)
		return false, nil
	}
	s.Out.OKf("channel name: %s (type: %s)", MaskName(ch.Name, mask), TypeName(ch.Type))

	s.Out.Step(2, "fetching provider model list...")
	models, err := s.Gateway.ProviderModels(ctx, ch)
	if err == nil && len(models) == 0 {
		err = ErrEmptyCatalog
	}
	if err != nil {
		if fatal(ctx, err) {
			return false, err
		}
		s.Out.Failf("fetching model list failed")
		return false, nil
	}
	s.Out.OKf("fetched %d models", len(models))

	s.Out.Step(3, "replacing models...")
	joined := JoinModels(models)
	s.Out.OKf("replaced: %s", report.Preview(joined))

	s.Out.Step(4, "pushing channel update...")
	if err := s.Gateway.UpdateChannel(ctx, ch, joined); err != nil {
		if fatal(ctx, err) {
			return false, err
		}
		s.Out.Failf("channel update failed")
		return false, nil
	}
	s.Out.OKf("channel updated")
	return true, nil
}

// BatchUpdate refreshes every OpenAI compatible channel matching opts.Status,
// page by page. The total announced by the first non-empty page is trusted
// for the whole run. A failed page fetch aborts the run; a failed channel only
// increments the fail counter. The summary is printed in every case.
func (s *Syncer) BatchUpdate(ctx context.Context, opts BatchOptions) (stats BatchStats, err error) {
	stats.RunID = uuid.NewString()
	logger := slog.With("run", stats.RunID, "backend", s.Gateway.Name())
	logger.Info("batch update started", "status", opts.Status, "max_delay", opts.MaxDelay)

	s.Out.Banner("Starting batch channel update")
	defer func() {
		s.Out.Summary(stats.Total, stats.Success, stats.Fail)
		if err != nil {
			logger.Error("batch update aborted", "processed", stats.Processed, "total", stats.Total, "err", err)
			return
		}
		logger.Info("batch update finished", "processed", stats.Processed, "success", stats.Success, "fail", stats.Fail)
	}()

	haveTotal := false
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		res, err := s.Gateway.ListChannels(ctx, ChannelQuery{
			Page:   page,
			Size:   BatchPageSize,
			Type:   BatchChannelType,
			Status: opts.Status,
		})
		if err != nil {
			s.Out.Failf("fetching channel list failed")
			if fatal(ctx, err) {
				return stats, err
			}
			return stats, fmt.Errorf("%w: page %d: %w", ErrListChannels, page, err)
		}
		if len(res.Channels) == 0 {
			return stats, nil
		}
		if !haveTotal {
			stats.Total = res.TotalCount
			haveTotal = true
		}

		for _, ch := range res.Channels {
			if stats.Processed >= stats.Total {
				return stats, nil
			}
			stats.Processed++
			s.Out.Item(stats.Processed, stats.Total, ch.ID, StatusName(ch.Status))

			ok, err := s.UpdateChannel(ctx, ch.ID, UpdateOptions{Batch: true, MaskName: opts.MaskName})
			if ok {
				stats.Success++
			} else {
				stats.Fail++
			}
			if err != nil {
				return stats, err
			}
			s.Out.Progress(stats.Processed, stats.Total, stats.Success, stats.Fail)

			if stats.Processed < stats.Total {
				d := s.Delay(opts.MaxDelay)
				s.Out.Waiting(d)
				if err := s.Sleep(ctx, d); err != nil {
					return stats, err
				}
			}
		}
		if stats.Processed >= stats.Total {
			return stats, nil
		}
	}
}
