// Package ipc carries conversion requests between the host and an isolated
// worker process.
//
// Messages are CBOR-encoded and streamed over Unix domain sockets. Each
// direction is its own socket: the worker owns the request channel and
// advertises it on stdout with a bootstrap line, and the host tells the
// worker where to send replies with a Sender message. Messages on one
// channel arrive in send order; nothing orders the two channels relative to
// each other.
package ipc

import (
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"

	clipime "github.com/Paranoid-AF/clipime"
)

// Kind identifies the variant of a Message.
type Kind uint8

const (
	KindStart Kind = iota + 1
	KindSender
	KindResetComposingText
	KindInsertAtCursorPosition
	KindRequestCandidates
	KindCandidates
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "Start"
	case KindSender:
		return "Sender"
	case KindResetComposingText:
		return "ResetComposingText"
	case KindInsertAtCursorPosition:
		return "InsertAtCursorPosition"
	case KindRequestCandidates:
		return "RequestCandidates"
	case KindCandidates:
		return "Candidates"
	case KindEnd:
		return "End"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Message is the tagged union exchanged over a channel. Only the payload
// field belonging to Kind is meaningful.
type Message struct {
	Kind Kind `cbor:"1,keyasint"`
	// Address is the reply channel name carried by Sender.
	Address string `cbor:"2,keyasint,omitempty"`
	// Text is the inserted text, or the left context of RequestCandidates.
	Text       string              `cbor:"3,keyasint,omitempty"`
	Candidates []clipime.Candidate `cbor:"4,keyasint,omitempty"`
}

// Start opens a session on the request channel.
func Start() Message { return Message{Kind: KindStart} }

// Sender hands the worker the name of the host's reply channel.
func Sender(address string) Message { return Message{Kind: KindSender, Address: address} }

// ResetComposingText clears the worker's composing buffer.
func ResetComposingText() Message { return Message{Kind: KindResetComposingText} }

// InsertAtCursorPosition appends raw text to the composing buffer.
func InsertAtCursorPosition(text string) Message {
	return Message{Kind: KindInsertAtCursorPosition, Text: text}
}

// RequestCandidates asks for candidates of the composing buffer.
func RequestCandidates(leftContext string) Message {
	return Message{Kind: KindRequestCandidates, Text: leftContext}
}

// Candidates is the reply to RequestCandidates.
func Candidates(list []clipime.Candidate) Message {
	return Message{Kind: KindCandidates, Candidates: list}
}

// End stops the worker loop. It has no reply.
func End() Message { return Message{Kind: KindEnd} }

// encMode uses Core Deterministic Encoding so the same message always
// produces the same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ipc: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		// A candidate list never comes close to this; anything larger is
		// a corrupt stream.
		MaxArrayElements: 4096,
	}.DecMode()
	if err != nil {
		panic("ipc: CBOR decoder initialization failed: " + err.Error())
	}
}

func newEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

func newDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// BootstrapDelimiter wraps the channel name in the worker's bootstrap line.
const BootstrapDelimiter = "$"

// FormatBootstrap returns the line a worker prints to advertise name.
func FormatBootstrap(name string) string {
	return BootstrapDelimiter + name + BootstrapDelimiter
}

// ParseBootstrap extracts the channel name from a bootstrap line. Any other
// line reports false.
func ParseBootstrap(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < 2*len(BootstrapDelimiter)+1 ||
		!strings.HasPrefix(line, BootstrapDelimiter) ||
		!strings.HasSuffix(line, BootstrapDelimiter) {
		return "", false
	}
	name := line[len(BootstrapDelimiter) : len(line)-len(BootstrapDelimiter)]
	if strings.Contains(name, BootstrapDelimiter) {
		return "", false
	}
	return name, true
}
