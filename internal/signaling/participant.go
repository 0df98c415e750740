package signaling

import (
	"sync"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

// Participant одно живое соединение в комнате сессии.
// Кадры копятся в ограниченном буфере, пишет их writer самого соединения.
type Participant struct {
	ID   int64
	Role domain.Role

	out       chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

func NewParticipant(id int64, role domain.Role, buffer int) *Participant {
	if buffer <= 0 {
		buffer = 1
	}
	return &Participant{
		ID:   id,
		Role: role,
		out:  make(chan Frame, buffer),
		done: make(chan struct{}),
	}
}

// Send ставит f в очередь без блокировки. false, если участник закрыт
// или буфер заполнен.
func (p *Participant) Send(f Frame) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.out <- f:
		return true
	default:
		return false
	}
}

// Outbound читает writer соединения.
func (p *Participant) Outbound() <-chan Frame {
	return p.out
}

// Done закрывается, когда сервер отключает участника.
func (p *Participant) Done() <-chan struct{} {
	return p.done
}

func (p *Participant) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}
