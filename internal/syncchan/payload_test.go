package syncchan

import "testing"

func TestSummaryWireRoundTrip(t *testing.T) {
	in := WeatherSummary{High: "22°", Low: "-3°", WeatherID: 761, UUID: "0b3c4a0e-64f4-4b8c-a1cb-7e4e2d51d0a8"}
	b, err := Encode(in.DataMap())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	d, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := DecodeSummary(WeatherSummary{}, d)
	if err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v want %+v", out, in)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, _ := Encode(DataMap{"uuid": "x", "high": "1", "low": "0", "weatherId": 800})
	b, _ := Encode(DataMap{"weatherId": 800, "low": "0", "high": "1", "uuid": "x"})
	if string(a) != string(b) {
		t.Fatalf("expected equal encodings, got %s and %s", a, b)
	}
}

func TestDecodeSummaryKeepsMissingKeys(t *testing.T) {
	prev := WeatherSummary{High: "20°", Low: "10°", WeatherID: 800, UUID: "a"}
	got, err := DecodeSummary(prev, DataMap{KeyLow: "8°", KeyUUID: "b"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := WeatherSummary{High: "20°", Low: "8°", WeatherID: 800, UUID: "b"}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestDecodeSummaryRejectsWrongTypes(t *testing.T) {
	prev := WeatherSummary{High: "20°"}
	for _, d := range []DataMap{
		{KeyHigh: 20},
		{KeyLow: true},
		{KeyWeatherID: "800"},
		{KeyUUID: 1},
	} {
		got, err := DecodeSummary(prev, d)
		if err == nil {
			t.Fatalf("expected error for %v", d)
		}
		if got != prev {
			t.Fatalf("expected previous summary on error, got %+v", got)
		}
	}
}
