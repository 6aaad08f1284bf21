package bridge

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/seelebot/cmdbridge/internal/extension"
	"github.com/seelebot/cmdbridge/internal/segment"
)

// PlatformOneBot is the one transport known to support combined-forward
// delivery.
const PlatformOneBot = "onebot"

// extracted holds the normalized content pulled out of one handler result.
type extracted struct {
	texts  []string
	images []string
}

// extractContent normalizes a heterogeneous handler result into plain text
// and image references. The chain is preferred; an empty chain falls back to
// the generic result message. Extraction never fails.
func extractContent(res *extension.Result) extracted {
	var out extracted
	if res == nil {
		return out
	}
	for _, seg := range res.Chain {
		switch seg.Type {
		case segment.TypeText:
			if seg.Text != "" {
				out.texts = append(out.texts, seg.Text)
			}
		case segment.TypeImage:
			if ref := seg.ImageRef(); ref != "" {
				out.images = append(out.images, ref)
			}
		}
	}
	if len(res.Chain) == 0 && res.Message != "" {
		out.texts = append(out.texts, res.Message)
	}
	return out
}

// deliver fans captured results out to the event's reply channel. Combined
// delivery is used only when batching is enabled, the total text length
// exceeds the threshold, and the transport supports it; any batching failure
// falls back to individual sends. Individual send failures are logged and do
// not abort the remaining sends.
func (s *Service) deliver(ctx context.Context, ev extension.Event, results []*extension.Result, totalTextLen int) {
	if len(results) == 0 {
		return
	}

	useForward := s.cfg.EnableForward &&
		totalTextLen > s.cfg.ForwardThreshold &&
		ev.Platform() == PlatformOneBot

	if useForward {
		s.logger.Info("using combined forward delivery",
			slog.Int("total_text_len", totalTextLen),
			slog.Int("threshold", s.cfg.ForwardThreshold))
		if err := s.sendCombined(ctx, ev, results); err == nil {
			return
		} else {
			s.logger.Error("combined forward failed, falling back to individual sends", slog.Any("error", err))
		}
	}

	for _, res := range results {
		if err := ev.Send(ctx, res); err != nil {
			s.logger.Warn("send result failed", slog.Any("error", err))
		}
	}
}

// sendCombined merges every result's chain into a single forward node and
// sends it once.
func (s *Service) sendCombined(ctx context.Context, ev extension.Event, results []*extension.Result) error {
	var merged []segment.Segment
	for _, res := range results {
		if res == nil {
			continue
		}
		if len(res.Chain) == 0 && res.Message != "" {
			merged = append(merged, segment.Text(res.Message))
			continue
		}
		merged = append(merged, res.Chain...)
	}
	if len(merged) == 0 {
		return nil
	}
	node := segment.Node(uuid.NewString(), ev.SelfID(), s.cfg.BotDisplayName, merged)
	return ev.Send(ctx, &extension.Result{Chain: []segment.Segment{node}})
}
