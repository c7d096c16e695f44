package production

import (
	"fmt"

	"github.com/matiu2/finny"
)

// Transition is the record published for every transition whose target
// state was entered.
type Transition struct {
	Machine string
	Event   string
	From    string
	To      string
}

// ChannelPublisher is an Inspect sink that forwards transitions to a Go
// channel. Publishing never blocks; records are dropped when the channel
// is full.
type ChannelPublisher struct {
	ch      chan<- Transition
	machine string
	event   string
	from    string
	to      string
	inTrans bool
}

var _ finny.Inspect = (*ChannelPublisher)(nil)

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- Transition) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) NewEvent(machine string, event any) finny.Inspect {
	next := *p
	if next.machine == "" {
		next.machine = machine
	}
	next.event = fmt.Sprint(event)
	next.inTrans = false
	return &next
}

func (p *ChannelPublisher) ForTransition(from, to any) finny.Inspect {
	next := *p
	next.from, next.to, next.inTrans = fmt.Sprint(from), fmt.Sprint(to), true
	return &next
}

func (p *ChannelPublisher) ForSubMachine(name string) finny.Inspect {
	next := *p
	next.machine = p.machine + "/" + name
	next.inTrans = false
	return &next
}

func (p *ChannelPublisher) ForTimer(any) finny.Inspect { return p }

func (p *ChannelPublisher) OnStateEnter(any) {
	if !p.inTrans {
		return
	}
	select {
	case p.ch <- Transition{Machine: p.machine, Event: p.event, From: p.from, To: p.to}:
	default:
	}
}

func (*ChannelPublisher) OnGuard(bool)          {}
func (*ChannelPublisher) OnStateExit(any)       {}
func (*ChannelPublisher) OnAction(string)       {}
func (*ChannelPublisher) EventDone()            {}
func (*ChannelPublisher) OnError(string, error) {}
func (*ChannelPublisher) Info(string)           {}

// Close closes the output channel. The publisher must not be used afterwards.
func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
