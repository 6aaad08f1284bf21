package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/seelebot/cmdbridge/internal/extension"
	"github.com/seelebot/cmdbridge/internal/segment"
)

func TestExtractContent(t *testing.T) {
	img, err := segment.ImageURL("https://img.example/a.png")
	if err != nil {
		t.Fatalf("image segment: %v", err)
	}
	mention, err := segment.Mention("123")
	if err != nil {
		t.Fatalf("mention segment: %v", err)
	}

	cases := []struct {
		name       string
		res        *extension.Result
		wantTexts  []string
		wantImages []string
	}{
		{"nil result", nil, nil, nil},
		{
			"mixed chain",
			&extension.Result{Chain: []segment.Segment{segment.Text("hello"), img, mention}},
			[]string{"hello"},
			[]string{"https://img.example/a.png"},
		},
		{
			"message fallback on empty chain",
			&extension.Result{Message: "plain reply"},
			[]string{"plain reply"},
			nil,
		},
		{
			"chain takes precedence over message",
			&extension.Result{Chain: []segment.Segment{segment.Text("chain")}, Message: "ignored"},
			[]string{"chain"},
			nil,
		},
		{
			"empty text segments skipped",
			&extension.Result{Chain: []segment.Segment{segment.Text("")}},
			nil,
			nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := extractContent(tc.res)
			if len(got.texts) != len(tc.wantTexts) {
				t.Fatalf("texts = %v, want %v", got.texts, tc.wantTexts)
			}
			for i := range tc.wantTexts {
				if got.texts[i] != tc.wantTexts[i] {
					t.Errorf("texts[%d] = %q, want %q", i, got.texts[i], tc.wantTexts[i])
				}
			}
			if len(got.images) != len(tc.wantImages) {
				t.Fatalf("images = %v, want %v", got.images, tc.wantImages)
			}
			for i := range tc.wantImages {
				if got.images[i] != tc.wantImages[i] {
					t.Errorf("images[%d] = %q, want %q", i, got.images[i], tc.wantImages[i])
				}
			}
		})
	}
}

func forwardService(t *testing.T, enableForward bool, threshold int) *Service {
	t.Helper()
	cfg := defaultBridgeConfig()
	cfg.EnableForward = enableForward
	cfg.ForwardThreshold = threshold
	return newTestService(t, cfg)
}

func longResults() []*extension.Result {
	return []*extension.Result{
		extension.TextResult(strings.Repeat("а", 60)), // multibyte: rune length is what counts
		extension.TextResult(strings.Repeat("b", 60)),
	}
}

func TestDeliverCombinedForward(t *testing.T) {
	svc := forwardService(t, true, 100)
	ev := &fakeEvent{sender: "42", self: "bot-1", platform: PlatformOneBot}

	svc.deliver(context.Background(), ev, longResults(), 120)

	if len(ev.sent) != 1 {
		t.Fatalf("combined delivery must send exactly once, sent %d", len(ev.sent))
	}
	chain := ev.sent[0].Chain
	if len(chain) != 1 || chain[0].Type != segment.TypeNode {
		t.Fatalf("combined delivery must wrap content in one node, got %v", chain)
	}
	node := chain[0]
	if node.UIN != "bot-1" {
		t.Errorf("node uin = %q, want the bot self ID", node.UIN)
	}
	if node.Name != "cmdbridge" {
		t.Errorf("node name = %q, want the configured display name", node.Name)
	}
	if len(node.Chain) != 2 {
		t.Errorf("node should carry both result chains, got %d segments", len(node.Chain))
	}
}

func TestDeliverIndividualWhenForwardDisabled(t *testing.T) {
	svc := forwardService(t, false, 100)
	ev := &fakeEvent{platform: PlatformOneBot}

	svc.deliver(context.Background(), ev, longResults(), 120)
	if len(ev.sent) != 2 {
		t.Errorf("expected per-result sends, got %d", len(ev.sent))
	}
}

func TestDeliverIndividualUnderThreshold(t *testing.T) {
	svc := forwardService(t, true, 100)
	ev := &fakeEvent{platform: PlatformOneBot}

	// Exactly at the threshold does not forward; the comparison is strict.
	svc.deliver(context.Background(), ev, longResults(), 100)
	if len(ev.sent) != 2 {
		t.Errorf("expected per-result sends at the threshold, got %d", len(ev.sent))
	}
}

func TestDeliverIndividualOnOtherPlatforms(t *testing.T) {
	svc := forwardService(t, true, 100)
	ev := &fakeEvent{platform: "discord"}

	svc.deliver(context.Background(), ev, longResults(), 120)
	if len(ev.sent) != 2 {
		t.Errorf("expected per-result sends off onebot, got %d", len(ev.sent))
	}
}

func TestDeliverForwardWrapsMessageOnlyResults(t *testing.T) {
	svc := forwardService(t, true, 10)
	ev := &fakeEvent{self: "bot-1", platform: PlatformOneBot}

	results := []*extension.Result{{Message: strings.Repeat("x", 50)}}
	svc.deliver(context.Background(), ev, results, 50)

	if len(ev.sent) != 1 {
		t.Fatalf("sent %d, want 1", len(ev.sent))
	}
	node := ev.sent[0].Chain[0]
	if len(node.Chain) != 1 || node.Chain[0].Type != segment.TypeText {
		t.Errorf("message-only result should become a text segment inside the node: %v", node.Chain)
	}
}

func TestDeliverSendFailureDoesNotAbort(t *testing.T) {
	svc := forwardService(t, false, 100)
	ev := &countingFailEvent{failures: 1}

	svc.deliver(context.Background(), ev, longResults(), 120)
	if ev.attempts != 2 {
		t.Errorf("one failed send must not abort the rest, attempts = %d", ev.attempts)
	}
}

func TestDeliverForwardFailureFallsBack(t *testing.T) {
	svc := forwardService(t, true, 100)
	ev := &countingFailEvent{failures: 1, platform: PlatformOneBot}

	svc.deliver(context.Background(), ev, longResults(), 120)
	// First attempt is the combined node and fails; the two results are then
	// sent individually.
	if ev.attempts != 3 {
		t.Errorf("attempts = %d, want combined attempt plus two fallback sends", ev.attempts)
	}
	if len(ev.sent) != 2 {
		t.Errorf("delivered = %d, want 2 individual results", len(ev.sent))
	}
}

// countingFailEvent fails its first N sends and counts every attempt.
type countingFailEvent struct {
	fakeEvent
	platform string
	failures int
	attempts int
}

func (e *countingFailEvent) Platform() string { return e.platform }

func (e *countingFailEvent) Send(ctx context.Context, res *extension.Result) error {
	e.attempts++
	if e.attempts <= e.failures {
		return errors.New("transport hiccup")
	}
	e.sent = append(e.sent, res)
	return nil
}
