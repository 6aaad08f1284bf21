package bridge

import (
	"testing"

	"github.com/seelebot/cmdbridge/internal/segment"
)

func describeChain(t *testing.T, chain []segment.Segment) []string {
	t.Helper()
	out := make([]string, 0, len(chain))
	for _, seg := range chain {
		switch seg.Type {
		case segment.TypeText:
			out = append(out, "text("+seg.Text+")")
		case segment.TypeMention:
			out = append(out, "mention("+seg.Target+")")
		case segment.TypeImage:
			out = append(out, "image("+seg.ImageRef()+")")
		case segment.TypeReply:
			inner := describeChain(t, seg.Chain)
			desc := "reply["
			for i, s := range inner {
				if i > 0 {
					desc += " "
				}
				desc += s
			}
			out = append(out, desc+"]")
		default:
			t.Fatalf("unexpected segment type %q", seg.Type)
		}
	}
	return out
}

func assertChain(t *testing.T, got []segment.Segment, want ...string) {
	t.Helper()
	desc := describeChain(t, got)
	if len(desc) != len(want) {
		t.Fatalf("chain = %v, want %v", desc, want)
	}
	for i := range want {
		if desc[i] != want[i] {
			t.Fatalf("chain[%d] = %q, want %q\nfull chain: %v", i, desc[i], want[i], desc)
		}
	}
}

func TestBuildSegmentsPlaceholderMode(t *testing.T) {
	chain := BuildSegments(nil, "禁言", "@0 60", []string{"123"}, "")
	assertChain(t, chain, "text(/禁言)", "mention(123)", "text( 60)")
}

func TestBuildSegmentsTrailingMode(t *testing.T) {
	chain := BuildSegments(nil, "禁言", "60", []string{"123"}, "")
	assertChain(t, chain, "text(/禁言)", "mention(123)", "text( 60)")
}

func TestBuildSegmentsBareCommand(t *testing.T) {
	chain := BuildSegments(nil, "签到", "", nil, "")
	assertChain(t, chain, "text(/签到)")
}

func TestBuildSegmentsArgsWithoutMentions(t *testing.T) {
	chain := BuildSegments(nil, "weather", "tokyo tomorrow", nil, "")
	assertChain(t, chain, "text(/weather tokyo tomorrow)")
}

func TestBuildSegmentsMentionsWithoutArgs(t *testing.T) {
	chain := BuildSegments(nil, "poke", "", []string{"123", "456"}, "")
	assertChain(t, chain, "text(/poke)", "mention(123)", "mention(456)")
}

func TestBuildSegmentsMultiplePlaceholders(t *testing.T) {
	chain := BuildSegments(nil, "swap", "@1 with @0 now", []string{"alice", "bob"}, "")
	assertChain(t, chain,
		"text(/swap)",
		"mention(bob)",
		"text( with)",
		"mention(alice)",
		"text( now)",
	)
}

func TestBuildSegmentsOutOfRangePlaceholderStaysLiteral(t *testing.T) {
	// @5 has no mention behind it, so the whole args stays text in
	// placeholder mode as long as an in-range placeholder exists too.
	chain := BuildSegments(nil, "mute", "@0 and @5", []string{"123"}, "")
	assertChain(t, chain, "text(/mute)", "mention(123)", "text( and @5)")
}

func TestBuildSegmentsOnlyOutOfRangePlaceholdersUseTrailingMode(t *testing.T) {
	// No in-range placeholder at all: mentions trail the command.
	chain := BuildSegments(nil, "mute", "@5 60", []string{"123"}, "")
	assertChain(t, chain, "text(/mute)", "mention(123)", "text( @5 60)")
}

func TestBuildSegmentsRepeatedPlaceholder(t *testing.T) {
	chain := BuildSegments(nil, "compare", "@0 vs @0", []string{"123"}, "")
	assertChain(t, chain,
		"text(/compare)",
		"mention(123)",
		"text( vs)",
		"mention(123)",
	)
}

func TestBuildSegmentsEmptyMentionTargetDegrades(t *testing.T) {
	// An empty mention target cannot form a segment; the placeholder token
	// stays literal rather than dropping silently.
	chain := BuildSegments(nil, "mute", "@0 60", []string{""}, "")
	assertChain(t, chain, "text(/mute)", "text( @0 60)")
}

func TestBuildSegmentsQuotedImagePrependsReply(t *testing.T) {
	chain := BuildSegments(nil, "describe", "", nil, "https://img.example/cat.png")
	assertChain(t, chain,
		"reply[image(https://img.example/cat.png)]",
		"text(/describe)",
	)
}

func TestBuildSegmentsQuotedImageLocalFileRef(t *testing.T) {
	// Non-URL references are carried as file-backed image segments.
	chain := BuildSegments(nil, "describe", "", nil, "/tmp/cat.png")
	assertChain(t, chain,
		"reply[image(/tmp/cat.png)]",
		"text(/describe)",
	)
}

func TestBuildSegmentsQuotedImageWithPlaceholders(t *testing.T) {
	chain := BuildSegments(nil, "禁言", "@0 60", []string{"123"}, "https://img.example/proof.png")
	assertChain(t, chain,
		"reply[image(https://img.example/proof.png)]",
		"text(/禁言)",
		"mention(123)",
		"text( 60)",
	)
}
