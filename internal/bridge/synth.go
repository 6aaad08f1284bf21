package bridge

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/seelebot/cmdbridge/internal/segment"
)

// BuildSegments synthesizes the structured body of an inbound command message.
//
// When args contains positional placeholders (@0, @1, ... indexing mentions),
// mention segments are inserted at the placeholder positions. Without
// placeholders, mentions trail the command name and precede the argument text.
// With no mentions the body is a single "/<command> <args>" text segment.
// A quoted image, when present, is prepended as a reply segment wrapping the
// image.
func BuildSegments(log *slog.Logger, command, args string, mentions []string, quotedImageURL string) []segment.Segment {
	if log == nil {
		log = slog.Default()
	}
	var chain []segment.Segment

	if quotedImageURL != "" {
		img, err := segment.ImageURL(quotedImageURL)
		if err != nil {
			img = segment.ImageFile(quotedImageURL)
		}
		chain = append(chain, segment.Reply("0", "0", []segment.Segment{img}))
	}

	switch {
	case len(mentions) > 0 && args != "":
		if hasPlaceholders(args, len(mentions)) {
			chain = append(chain, buildPlaceholderBody(log, command, args, mentions)...)
		} else {
			chain = append(chain, buildTrailingBody(log, command, args, mentions)...)
		}
	default:
		text := "/" + command
		if args != "" {
			text += " " + args
		}
		chain = append(chain, segment.Text(text))
		for _, target := range mentions {
			at, err := segment.Mention(target)
			if err != nil {
				log.Warn("mention segment failed", slog.String("target", target), slog.Any("error", err))
				continue
			}
			chain = append(chain, at)
		}
	}

	return chain
}

// hasPlaceholders reports whether args references any in-range mention index.
func hasPlaceholders(args string, mentionCount int) bool {
	for i := 0; i < mentionCount; i++ {
		if strings.Contains(args, "@"+strconv.Itoa(i)) {
			return true
		}
	}
	return false
}

// buildPlaceholderBody tokenizes args on whitespace and replaces in-range
// @<i> tokens with mention segments. Out-of-range placeholders and failed
// mention constructions degrade to literal text.
func buildPlaceholderBody(log *slog.Logger, command, args string, mentions []string) []segment.Segment {
	chain := []segment.Segment{segment.Text("/" + command)}

	var buffer []string
	flush := func() {
		if len(buffer) > 0 {
			chain = append(chain, segment.Text(" "+strings.Join(buffer, " ")))
			buffer = nil
		}
	}

	for _, token := range strings.Fields(args) {
		idx, ok := placeholderIndex(token)
		if !ok || idx >= len(mentions) {
			buffer = append(buffer, token)
			continue
		}
		at, err := segment.Mention(mentions[idx])
		if err != nil {
			log.Warn("mention segment failed", slog.String("target", mentions[idx]), slog.Any("error", err))
			buffer = append(buffer, token)
			continue
		}
		flush()
		chain = append(chain, at)
	}
	flush()

	return chain
}

// buildTrailingBody emits the command, every mention in list order, then the
// full argument text.
func buildTrailingBody(log *slog.Logger, command, args string, mentions []string) []segment.Segment {
	chain := []segment.Segment{segment.Text("/" + command)}
	for _, target := range mentions {
		at, err := segment.Mention(target)
		if err != nil {
			log.Warn("mention segment failed", slog.String("target", target), slog.Any("error", err))
			continue
		}
		chain = append(chain, at)
	}
	chain = append(chain, segment.Text(" "+args))
	return chain
}

// placeholderIndex parses a @<digits> token into its mention index.
func placeholderIndex(token string) (int, bool) {
	if len(token) < 2 || token[0] != '@' {
		return 0, false
	}
	idx, err := strconv.Atoi(token[1:])
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
