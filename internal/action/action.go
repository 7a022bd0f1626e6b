package action

import "maps"

// Kind discriminates the four payload variants a cutscene node can carry.
type Kind string

const (
	KindInfo     Kind = "info"
	KindSpeak    Kind = "speak"
	KindCamera   Kind = "camera"
	KindMovement Kind = "movement"
)

// Payload is the common interface for everything a graph node can hold.
type Payload interface {
	Kind() Kind
	// Label returns the identity text shown for the node. It is not unique.
	Label() string
	// Record returns the serialized key/value form of the payload.
	Record() map[string]any
}

// -----------------------------------------------------------------------
// Info
// -----------------------------------------------------------------------

// Info is general information for the writers, or a placeholder for a camera
// or movement action whose coordinates are not known yet.
type Info struct {
	text string
}

func NewInfo(text string) *Info { return &Info{text: text} }

func (a *Info) Kind() Kind { return KindInfo }
func (a *Info) Label() string { return a.text }
func (a *Info) Text() string { return a.text }
func (a *Info) SetText(text string) { a.text = text }

func (a *Info) Record() map[string]any {
	return map[string]any{"text": a.text}
}

// -----------------------------------------------------------------------
// Speak
// -----------------------------------------------------------------------

// Speak is a line of dialogue. Points and Angle map an arcana to the delta
// applied to that social link when the line is played.
type Speak struct {
	text    string
	speaker string
	points  map[string]int
	angle   map[string]int
	emotion string
}

func NewSpeak(speaker, text string) *Speak {
	return &Speak{
		text:    text,
		speaker: speaker,
		points:  make(map[string]int),
		angle:   make(map[string]int),
	}
}

func (a *Speak) Kind() Kind { return KindSpeak }
func (a *Speak) Label() string { return a.text }
func (a *Speak) Text() string { return a.text }
func (a *Speak) Speaker() string { return a.speaker }
func (a *Speak) Emotion() string { return a.emotion }

func (a *Speak) SetText(text string) { a.text = text }
func (a *Speak) SetSpeaker(speaker string) { a.speaker = speaker }
func (a *Speak) SetEmotion(emotion string) { a.emotion = emotion }

// Points returns a copy of the arcana → points delta map.
func (a *Speak) Points() map[string]int { return maps.Clone(a.points) }

// Angle returns a copy of the arcana → angle delta map.
func (a *Speak) Angle() map[string]int { return maps.Clone(a.angle) }

func (a *Speak) PutPoints(arcana string, delta int) {
	if a.points == nil {
		a.points = make(map[string]int)
	}
	a.points[arcana] = delta
}

func (a *Speak) PutAngle(arcana string, delta int) {
	if a.angle == nil {
		a.angle = make(map[string]int)
	}
	a.angle[arcana] = delta
}

func (a *Speak) Record() map[string]any {
	points := a.points
	if points == nil {
		points = map[string]int{}
	}
	angle := a.angle
	if angle == nil {
		angle = map[string]int{}
	}
	return map[string]any{
		"text":    a.text,
		"speaker": a.speaker,
		"points":  maps.Clone(points),
		"angle":   maps.Clone(angle),
		"emotion": a.emotion,
	}
}

// -----------------------------------------------------------------------
// Camera
// -----------------------------------------------------------------------

// Camera moves the camera to a place, positioned at CameraPosition and
// looking at LookAt.
type Camera struct {
	place          string
	cameraPosition [3]int
	lookAt         [3]int
}

func NewCamera(place string, position, lookAt [3]int) *Camera {
	return &Camera{place: place, cameraPosition: position, lookAt: lookAt}
}

func (a *Camera) Kind() Kind { return KindCamera }
func (a *Camera) Label() string { return a.place }
func (a *Camera) Place() string { return a.place }
func (a *Camera) CameraPosition() [3]int { return a.cameraPosition }
func (a *Camera) LookAt() [3]int { return a.lookAt }

func (a *Camera) SetPlace(place string) { a.place = place }
func (a *Camera) SetCameraPosition(pos [3]int) { a.cameraPosition = pos }
func (a *Camera) SetLookAt(lookAt [3]int) { a.lookAt = lookAt }

func (a *Camera) Record() map[string]any {
	return map[string]any{
		"place":          a.place,
		"cameraPosition": a.cameraPosition[:],
		"lookAt":         a.lookAt[:],
	}
}

// -----------------------------------------------------------------------
// Movement
// -----------------------------------------------------------------------

// Movement walks a subject to a destination while playing an animation.
type Movement struct {
	subject     string
	destination [2]int
	animation   string
}

func NewMovement(subject string, destination [2]int, animation string) *Movement {
	return &Movement{subject: subject, destination: destination, animation: animation}
}

func (a *Movement) Kind() Kind { return KindMovement }
func (a *Movement) Label() string { return a.subject }
func (a *Movement) Subject() string { return a.subject }
func (a *Movement) Destination() [2]int { return a.destination }
func (a *Movement) Animation() string { return a.animation }

func (a *Movement) SetSubject(subject string) { a.subject = subject }
func (a *Movement) SetDestination(dest [2]int) { a.destination = dest }
func (a *Movement) SetAnimation(animation string) { a.animation = animation }

func (a *Movement) Record() map[string]any {
	return map[string]any{
		"subject":     a.subject,
		"destination": a.destination[:],
		"animation":   a.animation,
	}
}
