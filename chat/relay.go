package chat

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/opd-ai/secureim/crypto"
	"github.com/opd-ai/secureim/limits"
	"github.com/opd-ai/secureim/transport"
	"github.com/sirupsen/logrus"
)

// pollInterval bounds each receive so the reader notices cancellation.
const pollInterval = 100 * time.Millisecond

type eventKind int

const (
	lineRead eventKind = iota
	inputClosed
	datagramReceived
)

type event struct {
	kind eventKind
	data []byte
	err  error
}

// Relay forwards lines from in to the server and prints relayed lines to out.
type Relay struct {
	transport transport.Transport
	key       []byte
	in        io.Reader
	out       io.Writer
}

// NewRelay creates a relay that seals traffic under the session key.
func NewRelay(tr transport.Transport, sessionKey []byte, in io.Reader, out io.Writer) (*Relay, error) {
	if tr == nil {
		return nil, errors.New("transport is required")
	}
	if len(sessionKey) != crypto.SymmetricKeySize {
		return nil, fmt.Errorf("session key must be %d bytes, got %d", crypto.SymmetricKeySize, len(sessionKey))
	}
	if in == nil || out == nil {
		return nil, errors.New("input and output are required")
	}
	return &Relay{
		transport: tr,
		key:       bytes.Clone(sessionKey),
		in:        in,
		out:       out,
	}, nil
}

// Run relays until ctx is cancelled or in reaches EOF, both of which return
// nil. A transport failure is returned as an error.
func (r *Relay) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	events := make(chan event)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.receive(ctx, events)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	// The input reader may block past Run; it only ever hands off through
	// events or gives up on ctx.
	go r.readLines(ctx, events)

	logrus.WithFields(logrus.Fields{
		"function": "Relay.Run",
		"server":   r.transport.RemoteAddr().String(),
	}).Info("Chat relay started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev.kind {
			case inputClosed:
				if ev.err != nil {
					return fmt.Errorf("read input: %w", ev.err)
				}
				return nil
			case lineRead:
				if err := r.send(ev.data); err != nil {
					return err
				}
			case datagramReceived:
				if ev.err != nil {
					return fmt.Errorf("receive: %w", ev.err)
				}
				r.deliver(ev.data)
			}
		}
	}
}

func emit(ctx context.Context, events chan<- event, ev event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Relay) readLines(ctx context.Context, events chan<- event) {
	scanner := bufio.NewScanner(r.in)
	for scanner.Scan() {
		if !emit(ctx, events, event{kind: lineRead, data: bytes.Clone(scanner.Bytes())}) {
			return
		}
	}
	emit(ctx, events, event{kind: inputClosed, err: scanner.Err()})
}

func (r *Relay) receive(ctx context.Context, events chan<- event) {
	for {
		data, err := r.transport.Receive(ctx, pollInterval, limits.MaxChatDatagram)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, transport.ErrTimeout):
			continue
		case errors.Is(err, transport.ErrDatagramTooLarge):
			logrus.WithField("function", "Relay.receive").Warn("Dropped oversized chat datagram")
			continue
		}

		if !emit(ctx, events, event{kind: datagramReceived, data: data, err: err}) || err != nil {
			return
		}
	}
}

// send seals one input line and sends it. Blank lines are skipped and lines
// over the size limit are dropped with a warning.
func (r *Relay) send(line []byte) error {
	text := bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(text)) == 0 {
		return nil
	}
	if err := limits.ValidateChatMessage(text); err != nil {
		logrus.WithError(err).WithField("function", "Relay.send").Warn("Chat line not sent")
		return nil
	}

	body, err := SealMessage(text, r.key)
	if err != nil {
		return err
	}
	if err := r.transport.Send(transport.EncodeMessage(body)); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Relay.send",
		"size":     len(text),
	}).Debug("Chat line sent")
	return nil
}

// deliver prints a relayed line. Anything else from the server is dropped.
func (r *Relay) deliver(data []byte) {
	logger := logrus.WithField("function", "Relay.deliver")

	body, ok := transport.DecodeIncoming(data)
	if !ok {
		logger.Debug("Dropped datagram without INCOMING tag")
		return
	}
	text, err := OpenMessage(body, r.key)
	if err != nil {
		logger.WithError(err).Warn("Dropped undecryptable chat line")
		return
	}

	fmt.Fprintf(r.out, "%s\n", text)
}
