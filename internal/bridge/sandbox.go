package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seelebot/cmdbridge/internal/extension"
)

// invoke runs a resolved handler against ev with synthesized content,
// collecting every emitted result. The event's textual content and structured
// body are captured before mutation and restored on every exit path,
// including handler panics; restoration is itself failure-contained so it can
// never mask the original error.
func (s *Service) invoke(ctx context.Context, ev extension.Event, rec HandlerRecord, req InvocationRequest) (results []*extension.Result, err error) {
	originalText := ev.MessageText()
	originalChain := ev.MessageChain()

	defer func() {
		restoreErr := func() (rerr error) {
			defer func() {
				if r := recover(); r != nil {
					rerr = fmt.Errorf("restore panic: %v", r)
				}
			}()
			ev.SetMessageText(originalText)
			// A nil original chain is restored too, clearing any
			// synthesized structured body.
			if cerr := ev.SetMessageChain(originalChain); cerr != nil {
				return cerr
			}
			return nil
		}()
		if restoreErr != nil {
			s.logger.Error("restore event state failed", slog.Any("error", restoreErr))
		}
	}()

	target := ev
	if req.AsBot {
		target = WrapBotIdentity(ev, s.cfg.BotUserID)
		s.logger.Debug("substituted bot identity",
			slog.String("original", ev.SenderID()),
			slog.String("bot", s.cfg.BotUserID))
	}

	text := "/" + rec.Command
	if req.Args != "" {
		text += " " + req.Args
	}
	target.SetMessageText(text)

	if len(req.Mentions) > 0 || req.QuotedImageURL != "" {
		chain := BuildSegments(s.logger, rec.Command, req.Args, req.Mentions, req.QuotedImageURL)
		if cerr := target.SetMessageChain(chain); cerr != nil {
			// The command still runs on textual content alone.
			s.logger.Warn("structured body not supported by event", slog.Any("error", cerr))
		}
	}

	return runHandler(ctx, target, rec.Handler)
}

// runHandler invokes the handler in its declared shape, preferring the
// streaming variant, and contains panics as errors.
func runHandler(ctx context.Context, ev extension.Event, handler any) (results []*extension.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	switch h := handler.(type) {
	case extension.StreamHandler:
		err = h.HandleStream(ctx, ev, func(res *extension.Result) error {
			if res != nil {
				results = append(results, res)
			}
			return nil
		})
	case extension.SingleHandler:
		var res *extension.Result
		res, err = h.Handle(ctx, ev)
		if res != nil {
			results = append(results, res)
		}
	default:
		err = fmt.Errorf("handler implements neither stream nor single shape")
	}
	return results, err
}
