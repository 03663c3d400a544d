package roleplay

import (
	"rpflavor/internal/sim/roleplay/logic/emotes"
	"rpflavor/internal/sim/textpool"
)

type Cause string

const (
	CauseGreeting      Cause = "greeting"
	CauseGreetingExtra Cause = "greeting_extra"
	CauseAmbient       Cause = "ambient"
	CauseReaction      Cause = "reaction"
)

// Audience is who hears a speech request.
type Audience string

const (
	AudienceNearby Audience = "nearby"
	AudienceZone   Audience = "zone"
	AudienceTarget Audience = "target"
)

// Request is something the host should render. It is either Speech or Emote.
type Request interface {
	Header() Meta
	isRequest()
}

type Meta struct {
	NPC   EntityID
	Cause Cause
	NowMs int64
}

type Speech struct {
	Meta
	Kind     textpool.Kind
	Audience Audience
	Text     string
	Target   EntityID
}

type Emote struct {
	Meta
	Code   emotes.Code
	Target EntityID
}

func (m Meta) Header() Meta { return m }

func (Speech) isRequest() {}
func (Emote) isRequest()  {}

// speech builds the request for a chosen line. Unknown kinds produce nothing.
func speech(m Meta, kind textpool.Kind, text string, target EntityID) (Speech, bool) {
	s := Speech{Meta: m, Kind: kind, Text: text, Target: target}
	switch kind {
	case textpool.Say, textpool.Emote:
		s.Audience = AudienceNearby
	case textpool.Yell:
		s.Audience = AudienceZone
	case textpool.Whisper:
		s.Audience = AudienceTarget
	default:
		return Speech{}, false
	}
	return s, true
}

// DecisionLogger receives every request the engine produces.
type DecisionLogger interface {
	LogRequest(r Request)
}
