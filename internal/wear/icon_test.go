package wear

import "testing"

func TestIconForCondition(t *testing.T) {
	cases := map[int]Icon{
		200: IconStorm,
		232: IconStorm,
		301: IconLightRain,
		502: IconRain,
		511: IconSnow,
		521: IconRain,
		601: IconSnow,
		701: IconFog,
		761: IconFog,
		771: IconStorm,
		781: IconStorm,
		800: IconClear,
		801: IconLightClouds,
		803: IconCloudy,
		905: IconStorm,
		951: IconClear,
		960: IconStorm,
		0:   IconStorm,
		-5:  IconStorm,
		999: IconStorm,
	}
	for code, want := range cases {
		if got := IconForCondition(code); got != want {
			t.Fatalf("IconForCondition(%d) = %s, want %s", code, got, want)
		}
	}
}

func TestIconForConditionIsTotal(t *testing.T) {
	known := map[Icon]bool{
		IconStorm: true, IconLightRain: true, IconRain: true, IconSnow: true,
		IconFog: true, IconClear: true, IconLightClouds: true, IconCloudy: true,
	}
	for code := 0; code <= 999; code++ {
		if !known[IconForCondition(code)] {
			t.Fatalf("code %d mapped to unknown icon %q", code, IconForCondition(code))
		}
	}
}
