package orchestrator_test

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"hearingcap/internal/committee"
	"hearingcap/internal/extract"
	"hearingcap/internal/logging"
	"hearingcap/internal/orchestrator"
	"hearingcap/internal/services"
)

type fakeExtractor struct {
	name    string
	streams []extract.StreamDescriptor
	calls   int
	onCall  func()
}

func (f *fakeExtractor) Name() string           { return f.name }
func (f *fakeExtractor) CanExtract(string) bool { return true }
func (f *fakeExtractor) ExtractStreams(context.Context, string) []extract.StreamDescriptor {
	f.calls++
	if f.onCall != nil {
		f.onCall()
	}
	return f.streams
}

func hls(url string) extract.StreamDescriptor {
	return extract.StreamDescriptor{URL: url, FormatType: extract.FormatHLS}
}

func testRegistry(t *testing.T) *committee.Registry {
	t.Helper()
	reg, err := committee.New([]committee.Committee{
		{Code: "commerce", Chamber: "senate", BaseURL: "https://www.commerce.senate.gov", ISVPCompatible: true, StreamID: "2036779", URLPattern: "commerce"},
		{Code: "house-judiciary", Chamber: "house", BaseURL: "https://judiciary.house.gov"},
	})
	if err != nil {
		t.Fatalf("committee.New: %v", err)
	}
	return reg
}

func TestDetectPlatform(t *testing.T) {
	isvp := &fakeExtractor{name: "isvp"}
	yt := &fakeExtractor{name: "youtube"}
	orch := orchestrator.New(testRegistry(t), logging.NewNop(), isvp, yt)

	senate := orch.DetectPlatform("https://www.commerce.senate.gov/2025/6/executive-session-12")
	if senate.Platform != orchestrator.PlatformSenate || senate.RecommendedExtractor != "isvp" || senate.Committee != "commerce" {
		t.Fatalf("unexpected senate detection %+v", senate)
	}
	if senate.Confidence <= 0.9 {
		t.Fatalf("expected registry match to raise confidence, got %v", senate.Confidence)
	}

	youtube := orch.DetectPlatform("https://youtu.be/abc")
	if youtube.Platform != orchestrator.PlatformYouTube || youtube.RecommendedExtractor != "youtube" {
		t.Fatalf("unexpected youtube detection %+v", youtube)
	}

	house := orch.DetectPlatform("https://judiciary.house.gov/committee-activity/hearings/x")
	if house.Platform != orchestrator.PlatformUnknown || house.RecommendedExtractor != "" {
		t.Fatalf("expected house.gov to be unknown platform, got %+v", house)
	}
	if house.Confidence >= 0.5 || house.Committee != "house-judiciary" {
		t.Fatalf("expected low confidence with committee, got %+v", house)
	}
	if !reflect.DeepEqual(house.AvailableExtractors, []string{"isvp", "youtube"}) {
		t.Fatalf("expected both extractors available, got %v", house.AvailableExtractors)
	}

	if bad := orch.DetectPlatform("not a url"); bad.Confidence != 0 {
		t.Fatalf("expected zero confidence for invalid url, got %+v", bad)
	}
}

func TestDetectPlatformDropsUnregisteredRecommendation(t *testing.T) {
	orch := orchestrator.New(nil, logging.NewNop(), &fakeExtractor{name: "youtube"})
	if got := orch.DetectPlatform("https://www.senate.gov/isvp/"); got.RecommendedExtractor != "" {
		t.Fatalf("expected no recommendation without isvp extractor, got %+v", got)
	}
}

func TestScenarioBYouTubeFirstISVPNeverInvoked(t *testing.T) {
	isvp := &fakeExtractor{name: "isvp", streams: []extract.StreamDescriptor{hls("https://cdn.example.gov/a.m3u8")}}
	yt := &fakeExtractor{name: "youtube", streams: []extract.StreamDescriptor{{URL: "https://www.youtube.com/watch?v=XYZ", FormatType: extract.FormatYouTube}}}
	orch := orchestrator.New(nil, logging.NewNop(), isvp, yt)

	result, err := orch.ExtractStreams(context.Background(), "https://www.youtube.com/watch?v=XYZ", "")
	if err != nil {
		t.Fatalf("ExtractStreams: %v", err)
	}
	if result.Extractor != "youtube" || result.Detection.Platform != orchestrator.PlatformYouTube {
		t.Fatalf("unexpected result %+v", result)
	}
	if isvp.calls != 0 || yt.calls != 1 {
		t.Fatalf("expected only youtube invoked, isvp=%d youtube=%d", isvp.calls, yt.calls)
	}
}

func TestPreferredPlatformOverridesDetection(t *testing.T) {
	isvp := &fakeExtractor{name: "isvp", streams: []extract.StreamDescriptor{hls("https://cdn.example.gov/a.m3u8")}}
	yt := &fakeExtractor{name: "youtube"}
	orch := orchestrator.New(nil, logging.NewNop(), isvp, yt)

	result, err := orch.ExtractStreams(context.Background(), "https://www.youtube.com/watch?v=XYZ", "ISVP")
	if err != nil || result.Extractor != "isvp" {
		t.Fatalf("expected preferred isvp to win, got %+v %v", result, err)
	}
	if yt.calls != 0 {
		t.Fatalf("expected youtube not invoked, got %d", yt.calls)
	}

	result, err = orch.ExtractStreams(context.Background(), "https://www.youtube.com/watch?v=XYZ", "vimeo")
	if err != nil || result.Extractor != "isvp" || yt.calls != 1 {
		t.Fatalf("expected invalid preference ignored with fallback, got %+v %v (youtube calls %d)", result, err, yt.calls)
	}
}

func TestFallbackNeverMerges(t *testing.T) {
	isvp := &fakeExtractor{name: "isvp"}
	yt := &fakeExtractor{name: "youtube", streams: []extract.StreamDescriptor{{URL: "https://www.youtube.com/watch?v=a", FormatType: extract.FormatYouTube}}}
	orch := orchestrator.New(nil, logging.NewNop(), isvp, yt)

	result, err := orch.ExtractStreams(context.Background(), "https://www.commerce.senate.gov/x", "")
	if err != nil {
		t.Fatalf("ExtractStreams: %v", err)
	}
	if result.Extractor != "youtube" || len(result.Streams) != 1 || isvp.calls != 1 {
		t.Fatalf("expected fallback to youtube, got %+v (isvp calls %d)", result, isvp.calls)
	}
}

func TestNoStreamsFound(t *testing.T) {
	orch := orchestrator.New(nil, logging.NewNop(), &fakeExtractor{name: "isvp"}, &fakeExtractor{name: "youtube"})
	_, err := orch.ExtractStreams(context.Background(), "https://judiciary.house.gov/hearing/1", "")
	if !errors.Is(err, services.ErrNoStreamsFound) {
		t.Fatalf("expected NoStreamsFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "https://judiciary.house.gov/hearing/1") || !strings.Contains(err.Error(), "isvp, youtube") {
		t.Fatalf("expected url and tried extractors in error, got %v", err)
	}
	if services.Kind(err) != "NoStreamsFound" || !services.Retryable(err) {
		t.Fatalf("unexpected classification for %v", err)
	}
}

func TestCancellationStopsNewAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	isvp := &fakeExtractor{name: "isvp", onCall: cancel}
	yt := &fakeExtractor{name: "youtube", streams: []extract.StreamDescriptor{{URL: "https://www.youtube.com/watch?v=a", FormatType: extract.FormatYouTube}}}
	orch := orchestrator.New(nil, logging.NewNop(), isvp, yt)

	_, err := orch.ExtractStreams(ctx, "https://www.senate.gov/x", "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if yt.calls != 0 {
		t.Fatalf("expected no attempt after cancel, got %d", yt.calls)
	}
}

func TestExtractStreamsIsIdempotent(t *testing.T) {
	isvp := &fakeExtractor{name: "isvp", streams: []extract.StreamDescriptor{
		hls("https://cdn.example.gov/b.m3u8"),
		hls("https://cdn.example.gov/a.m3u8"),
	}}
	orch := orchestrator.New(nil, logging.NewNop(), isvp)
	urls := func() []string {
		result, err := orch.ExtractStreams(context.Background(), "https://www.senate.gov/x", "")
		if err != nil {
			t.Fatalf("ExtractStreams: %v", err)
		}
		out := make([]string, 0, len(result.Streams))
		for _, s := range result.Streams {
			out = append(out, s.URL)
		}
		sort.Strings(out)
		return out
	}
	if first, second := urls(), urls(); !reflect.DeepEqual(first, second) {
		t.Fatalf("expected equal stream sets, got %v and %v", first, second)
	}
}
