package video

import (
	"errors"
	"testing"

	"genserver/internal/domain"
	"genserver/internal/domain/modelcfg"
)

func boolPtr(b bool) *bool { return &b }

func TestKlingV25Credits(t *testing.T) {
	adapter := NewKlingAdapter(nil, nil)

	cases := []struct {
		duration int
		want     int
	}{
		{0, 210},
		{5, 210},
		{8, 420},
		{10, 420},
		{30, 420},
	}
	for _, tc := range cases {
		credits, err := adapter.CalculateCredits(GenerationParams{
			ModelID:         "kling-v2.5",
			DurationSeconds: tc.duration,
		})
		if err != nil {
			t.Fatalf("duration %d: %v", tc.duration, err)
		}
		if credits != tc.want {
			t.Fatalf("duration %d: credits = %d, want %d", tc.duration, credits, tc.want)
		}
	}
}

func TestKling30CreditsFallbackRates(t *testing.T) {
	adapter := NewKlingAdapter(nil, nil)

	cases := []struct {
		name   string
		params GenerationParams
		want   int
	}{
		{"std no sound", GenerationParams{ModelID: "kling-3.0/video", DurationSeconds: 5}, 300},
		{"std with sound", GenerationParams{ModelID: "kling-3.0/video", DurationSeconds: 5, Sound: boolPtr(true)}, 450},
		{"pro no sound", GenerationParams{ModelID: "kling-3.0/video", DurationSeconds: 10, Mode: "pro"}, 850},
		{"pro with sound", GenerationParams{ModelID: "kling-3.0/video", DurationSeconds: 10, Mode: "pro", Sound: boolPtr(true)}, 1200},
		{"high quality implies pro", GenerationParams{ModelID: "kling-3.0/video", DurationSeconds: 5, Quality: "high"}, 425},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			credits, err := adapter.CalculateCredits(tc.params)
			if err != nil {
				t.Fatalf("calculate credits: %v", err)
			}
			if credits != tc.want {
				t.Fatalf("credits = %d, want %d", credits, tc.want)
			}
		})
	}
}

func TestKling30CreditsPrefersCatalogRate(t *testing.T) {
	catalog := modelcfg.NewRegistry(modelcfg.Model{
		ModelID: "kling-3.0/video",
		CreditsMapping: &modelcfg.CreditsMapping{
			PerSecondStd: modelcfg.RateBySound{NoAudio: 70, WithAudio: 100},
			PerSecondPro: modelcfg.RateBySound{NoAudio: 95, WithAudio: 130},
		},
	})
	adapter := NewKlingAdapter(nil, catalog)

	credits, err := adapter.CalculateCredits(GenerationParams{
		ModelID:         "kling-3.0/video",
		DurationSeconds: 10,
		Mode:            "pro",
		Sound:           boolPtr(true),
	})
	if err != nil {
		t.Fatalf("calculate credits: %v", err)
	}
	if credits != 1300 {
		t.Fatalf("credits = %d, want 1300 from catalog rate", credits)
	}
}

func TestKling30CreditsRejectsOutOfRangeDuration(t *testing.T) {
	adapter := NewKlingAdapter(nil, nil)

	_, err := adapter.CalculateCredits(GenerationParams{
		ModelID:         "kling-3.0/video",
		DurationSeconds: 20,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestSora2Credits(t *testing.T) {
	adapter := NewSora2Adapter(nil, nil)

	cases := []struct {
		duration int
		want     int
	}{
		{0, 100},
		{10, 100},
		{15, 140},
		{8, 100},
		{20, 200},
	}
	for _, tc := range cases {
		credits, err := adapter.CalculateCredits(GenerationParams{DurationSeconds: tc.duration})
		if err != nil {
			t.Fatalf("duration %d: %v", tc.duration, err)
		}
		if credits != tc.want {
			t.Fatalf("duration %d: credits = %d, want %d", tc.duration, credits, tc.want)
		}
	}
}

func TestSora2ProCredits(t *testing.T) {
	adapter := NewSora2ProAdapter(nil, nil)

	cases := []struct {
		name     string
		duration int
		quality  string
		want     int
	}{
		{"10s standard", 10, "standard", 375},
		{"15s standard", 15, "standard", 675},
		{"10s high", 10, "high", 825},
		{"15s high", 15, "high", 1575},
		{"default duration and quality", 0, "", 375},
		{"short clips use the 10s base", 8, "standard", 375},
		{"unsupported duration scales proportionally", 12, "standard", 450},
		{"unsupported high duration scales proportionally", 12, "high", 990},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			credits, err := adapter.CalculateCredits(GenerationParams{
				DurationSeconds: tc.duration,
				Quality:         tc.quality,
			})
			if err != nil {
				t.Fatalf("calculate credits: %v", err)
			}
			if credits != tc.want {
				t.Fatalf("credits = %d, want %d", credits, tc.want)
			}
		})
	}
}

func TestVeo31FastCreditsAreFlat(t *testing.T) {
	adapter := NewVeo31FastAdapter(nil)

	for _, duration := range []int{0, 5, 10, 60} {
		credits, err := adapter.CalculateCredits(GenerationParams{DurationSeconds: duration})
		if err != nil {
			t.Fatalf("duration %d: %v", duration, err)
		}
		if credits != 300 {
			t.Fatalf("duration %d: credits = %d, want flat 300", duration, credits)
		}
	}
}

func TestWanCredits(t *testing.T) {
	adapter := NewWanAdapter(nil)

	cases := []struct {
		name     string
		duration int
		quality  string
		want     int
	}{
		{"720p 5s", 5, "standard", 300},
		{"720p 10s", 10, "standard", 600},
		{"1080p 5s", 5, "high", 500},
		{"1080p 10s", 10, "high", 1000},
		{"default resolution and duration", 0, "", 300},
		{"unsupported duration scales from 5s base", 7, "high", 700},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			credits, err := adapter.CalculateCredits(GenerationParams{
				DurationSeconds: tc.duration,
				Quality:         tc.quality,
			})
			if err != nil {
				t.Fatalf("calculate credits: %v", err)
			}
			if credits != tc.want {
				t.Fatalf("credits = %d, want %d", credits, tc.want)
			}
		})
	}
}

func TestHailuoCredits(t *testing.T) {
	adapter := NewHailuoAdapter(nil)

	cases := []struct {
		name       string
		model      string
		duration   int
		resolution string
		want       int
	}{
		{"standard 6s 768p", "hailuo/2-3-image-to-video-standard", 6, "768p", 125},
		{"standard 6s 1080p", "hailuo/2-3-image-to-video-standard", 6, "1080p", 200},
		{"standard 10s 768p", "hailuo/2-3-image-to-video-standard", 10, "768p", 200},
		{"pro 6s 768p", "hailuo/2-3-image-to-video-pro", 6, "768p", 200},
		{"pro 6s 1080p", "hailuo/2-3-image-to-video-pro", 6, "1080p", 350},
		{"pro 10s 768p", "hailuo/2-3-image-to-video-pro", 10, "768p", 400},
		{"defaults to 6s 768p", "hailuo-2.3", 0, "", 125},
		{"unsupported duration scales from 6s base", "hailuo-2.3", 8, "768p", 167},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			credits, err := adapter.CalculateCredits(GenerationParams{
				ModelID:         tc.model,
				DurationSeconds: tc.duration,
				Resolution:      tc.resolution,
			})
			if err != nil {
				t.Fatalf("calculate credits: %v", err)
			}
			if credits != tc.want {
				t.Fatalf("credits = %d, want %d", credits, tc.want)
			}
		})
	}
}

func TestHailuoCreditsRejectsInvalidCombination(t *testing.T) {
	adapter := NewHailuoAdapter(nil)

	_, err := adapter.CalculateCredits(GenerationParams{
		ModelID:         "hailuo-2.3",
		DurationSeconds: 10,
		Resolution:      "1080p",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error for 10s at 1080p", err)
	}
}

func TestReplicateCreditsUseCatalogRate(t *testing.T) {
	catalog := modelcfg.NewRegistry(modelcfg.Model{
		ModelID: "kling-3.0/video",
		CreditsMapping: &modelcfg.CreditsMapping{
			PerSecondStd: modelcfg.RateBySound{NoAudio: 60, WithAudio: 90},
		},
	})
	adapter := NewReplicateAdapter(nil, catalog)

	credits, err := adapter.CalculateCredits(GenerationParams{
		ModelID:         "kling-3.0/video",
		DurationSeconds: 5,
	})
	if err != nil {
		t.Fatalf("calculate credits: %v", err)
	}
	if credits != 300 {
		t.Fatalf("credits = %d, want 300", credits)
	}

	credits, err = adapter.CalculateCredits(GenerationParams{ModelID: "unknown-model"})
	if err != nil {
		t.Fatalf("calculate credits: %v", err)
	}
	if credits != replicateDefaultCredits {
		t.Fatalf("credits = %d, want default %d", credits, replicateDefaultCredits)
	}
}
