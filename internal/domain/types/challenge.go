package types

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// ChallengeKind es el tipo de desafío presentado al usuario. Es un enum
// cerrado: todo switch sobre ChallengeKind debe ser exhaustivo, no hay
// fallback para tipos desconocidos.
type ChallengeKind int

const (
	// ChallengeApprove pide una confirmación binaria en el dispositivo.
	ChallengeApprove ChallengeKind = iota
	// ChallengeWrite muestra un número en el browser que el usuario debe
	// escribir en el dispositivo.
	ChallengeWrite
	// ChallengeChoose muestra tres opciones en el dispositivo; el usuario
	// debe elegir la que coincide con el número mostrado en el browser.
	ChallengeChoose
)

// Wire retorna el nombre del challenge en el protocolo de mensajería.
func (k ChallengeKind) Wire() string {
	switch k {
	case ChallengeApprove:
		return "CHALLENGE_APPROVE"
	case ChallengeWrite:
		return "CHALLENGE_WRITE"
	case ChallengeChoose:
		return "CHALLENGE_CHOOSE"
	}
	return "CHALLENGE_APPROVE"
}

func (k ChallengeKind) String() string { return k.Wire() }

// ParseChallengeKind convierte el nombre wire o de configuración a su enum.
func ParseChallengeKind(s string) (ChallengeKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CHALLENGE_APPROVE", "APPROVE", "":
		return ChallengeApprove, nil
	case "CHALLENGE_WRITE", "WRITE":
		return ChallengeWrite, nil
	case "CHALLENGE_CHOOSE", "CHOOSE":
		return ChallengeChoose, nil
	}
	return ChallengeApprove, fmt.Errorf("types: unknown challenge kind %q", s)
}

// Challenge es el desafío generado al iniciar una push authentication.
// Answer es la respuesta esperada que se guarda server-side; Options solo
// existe para CHOOSE y es lo único que ve el dispositivo — nunca recibe
// cuál es la correcta.
type Challenge struct {
	Kind    ChallengeKind `json:"kind"`
	Options []string      `json:"options,omitempty"`
	Answer  string        `json:"answer"`
}

// NewChallenge genera el desafío según el tipo configurado.
func NewChallenge(kind ChallengeKind) Challenge {
	switch kind {
	case ChallengeWrite:
		n := strconv.Itoa(10000 + rand.IntN(90000))
		return Challenge{Kind: ChallengeWrite, Answer: n}
	case ChallengeChoose:
		opts := make([]string, 3)
		for i := range opts {
			opts[i] = strconv.Itoa(rand.IntN(100))
		}
		return Challenge{
			Kind:    ChallengeChoose,
			Options: opts,
			Answer:  opts[rand.IntN(len(opts))],
		}
	default:
		return Challenge{Kind: ChallengeApprove, Answer: "true"}
	}
}

// DevicePayload es el dato que viaja en la notificación push. Solo CHOOSE
// envía datos (las opciones, en orden); para WRITE el número se muestra en
// el browser, no en el dispositivo.
func (c Challenge) DevicePayload() string {
	switch c.Kind {
	case ChallengeChoose:
		return strings.Join(c.Options, ",")
	case ChallengeApprove, ChallengeWrite:
		return ""
	}
	return ""
}

// Prompt es el dato que se muestra al usuario en el browser.
func (c Challenge) Prompt() string {
	switch c.Kind {
	case ChallengeWrite, ChallengeChoose:
		return c.Answer
	case ChallengeApprove:
		return ""
	}
	return ""
}

// Matches valida la respuesta del usuario: igualdad textual exacta contra
// la respuesta esperada, para los tres tipos por igual.
func (c Challenge) Matches(response string) bool {
	switch c.Kind {
	case ChallengeApprove, ChallengeWrite, ChallengeChoose:
		return response == c.Answer
	}
	return false
}
