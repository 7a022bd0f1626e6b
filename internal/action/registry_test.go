package action

import (
	"errors"
	"reflect"
	"testing"
)

type decodeCase struct {
	name     string
	rec      map[string]any
	wantKind Kind
	wantErr  bool
}

func TestDecode(t *testing.T) {
	cases := []decodeCase{
		{
			name:     "info",
			rec:      map[string]any{"text": "The rain has stopped."},
			wantKind: KindInfo,
		},
		{
			name: "speak",
			rec: map[string]any{
				"text":    "Hey.",
				"speaker": "Yukari",
				"points":  map[string]any{"Lovers": float64(2)},
				"angle":   map[string]any{},
				"emotion": "happy",
			},
			wantKind: KindSpeak,
		},
		{
			name: "speak without emotion",
			rec: map[string]any{
				"text":    "Hey.",
				"speaker": "Yukari",
				"points":  map[string]any{},
				"angle":   map[string]any{},
			},
			wantKind: KindSpeak,
		},
		{
			name: "camera",
			rec: map[string]any{
				"place":          "Rooftop",
				"cameraPosition": []any{float64(1), float64(2), float64(3)},
				"lookAt":         []any{float64(0), float64(0), float64(0)},
			},
			wantKind: KindCamera,
		},
		{
			name: "movement",
			rec: map[string]any{
				"subject":     "Junpei",
				"destination": []any{float64(4), float64(5)},
				"animation":   "walk",
			},
			wantKind: KindMovement,
		},
		{
			// Camera fields win even when the record also carries "text".
			name: "camera before info",
			rec: map[string]any{
				"text":           "ignored",
				"place":          "Gate",
				"cameraPosition": []any{float64(1), float64(1), float64(1)},
				"lookAt":         []any{float64(1), float64(1), float64(1)},
			},
			wantKind: KindCamera,
		},
		{
			// points and angle default to empty maps.
			name:     "speak without deltas",
			rec:      map[string]any{"text": "Hello", "speaker": "Aigis"},
			wantKind: KindSpeak,
		},
		{
			name: "broken camera is not read as info",
			rec: map[string]any{
				"text":           "note",
				"place":          "Gate",
				"cameraPosition": []any{float64(1)},
				"lookAt":         []any{float64(1), float64(1), float64(1)},
			},
			wantErr: true,
		},
		{
			name:    "speak with bad speaker",
			rec:     map[string]any{"text": "Hello", "speaker": float64(3)},
			wantErr: true,
		},
		{
			name:    "empty record",
			rec:     map[string]any{},
			wantErr: true,
		},
		{
			name:    "unknown keys",
			rec:     map[string]any{"foo": "bar"},
			wantErr: true,
		},
		{
			name: "camera with bad coordinates",
			rec: map[string]any{
				"place":          "Gate",
				"cameraPosition": []any{"x", float64(1), float64(1)},
				"lookAt":         []any{float64(1), float64(1), float64(1)},
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Decode(tc.rec)
			if tc.wantErr {
				var malformed *MalformedActionError
				if !errors.As(err, &malformed) {
					t.Fatalf("expected MalformedActionError, got %v (payload=%v)", err, p)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if p.Kind() != tc.wantKind {
				t.Errorf("Decode kind = %s, want %s", p.Kind(), tc.wantKind)
			}
		})
	}
}

func TestDecode_KeepsSpeaker(t *testing.T) {
	p, err := Decode(map[string]any{"text": "Hello", "speaker": "Aigis"})
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	s, ok := p.(*Speak)
	if !ok {
		t.Fatalf("Decode = %T, want *Speak", p)
	}
	if s.Speaker() != "Aigis" {
		t.Errorf("Speaker() = %q, want Aigis", s.Speaker())
	}
}

func TestDecode_RecordRoundTrip(t *testing.T) {
	speak := NewSpeak("Mitsuru", "Execution!")
	speak.PutPoints("Empress", 3)
	speak.PutAngle("Empress", -1)
	speak.SetEmotion("stern")

	payloads := []Payload{
		NewInfo("Fade in."),
		speak,
		NewCamera("Dorm lounge", [3]int{1, 2, 3}, [3]int{-1, 0, 1}),
		NewMovement("Akihiko", [2]int{10, 20}, "run"),
	}
	for _, p := range payloads {
		t.Run(string(p.Kind()), func(t *testing.T) {
			got, err := Decode(p.Record())
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if !reflect.DeepEqual(got, p) {
				t.Errorf("round trip mismatch: got %#v, want %#v", got, p)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	cases := []struct {
		p    Payload
		want string
	}{
		{NewInfo("info text"), "info text"},
		{NewSpeak("Fuuka", "spoken"), "spoken"},
		{NewCamera("Library", [3]int{}, [3]int{}), "Library"},
		{NewMovement("Koromaru", [2]int{}, "sit"), "Koromaru"},
	}
	for _, tc := range cases {
		if got := tc.p.Label(); got != tc.want {
			t.Errorf("%s Label() = %q, want %q", tc.p.Kind(), got, tc.want)
		}
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(Decoder{Kind: KindInfo, Required: []string{"text"}, Decode: decodeInfo})
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate kind")
		}
	}()
	r.Register(Decoder{Kind: KindInfo, Required: []string{"text"}, Decode: decodeInfo})
}

func TestRegistry_Kinds(t *testing.T) {
	want := []Kind{KindCamera, KindMovement, KindSpeak, KindInfo}
	if got := DefaultRegistry().Kinds(); !reflect.DeepEqual(got, want) {
		t.Errorf("Kinds() = %v, want %v", got, want)
	}
}

func TestToInt(t *testing.T) {
	cases := []struct {
		in   any
		want int
		ok   bool
	}{
		{float64(3), 3, true},
		{float64(3.5), 0, false},
		{"12", 12, true},
		{" 7 ", 7, true},
		{"x", 0, false},
		{true, 0, false},
		{int64(9), 9, true},
	}
	for _, tc := range cases {
		got, ok := ToInt(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ToInt(%v) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
