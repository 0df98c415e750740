package signaling

import (
	"context"
	"sort"
	"sync"
	"time"
)

// RoomState состояние присутствия в комнате сессии
type RoomState int

const (
	NoParticipants RoomState = iota
	OneJoined
	BothJoined
	Closed
)

func (s RoomState) String() string {
	switch s {
	case NoParticipants:
		return "no-participants"
	case OneJoined:
		return "one-joined"
	case BothJoined:
		return "both-joined"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// room живые участники одной сессии. Все отправки в комнату идут под mu,
// поэтому кадры одного отправителя доходят до собеседника в порядке отправки.
type room struct {
	mu           sync.Mutex
	sessionID    string
	participants map[int64]*Participant
	state        RoomState
	lastActivity time.Time
}

func (r *room) updateState() {
	switch len(r.participants) {
	case 0:
		r.state = NoParticipants
	case 1:
		r.state = OneJoined
	default:
		r.state = BothJoined
	}
}

func (r *room) peerIDs(except int64) []int64 {
	ids := make([]int64, 0, len(r.participants))
	for id := range r.participants {
		if id != except {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// deliver отправляет f участнику p. Участник с заполненным буфером отключается:
// потеря одного кадра нарушила бы для него порядок отправителя.
func (r *room) deliver(p *Participant, f Frame, reg *Registry) {
	if p.Send(f) {
		return
	}
	reg.metrics.IncFrameDropped("slow_consumer")
	reg.logger.Warn("signaling: session %s participant %d is too slow, disconnecting", r.sessionID, p.ID)
	if r.participants[p.ID] == p {
		delete(r.participants, p.ID)
		r.updateState()
	}
	p.Close()
}

// Registry комнаты по sessionId. У каждой комнаты своя блокировка, сама карта
// в sync.Map, так что несвязанные сессии не конкурируют.
type Registry struct {
	rooms       sync.Map // sessionID -> *room
	idleTimeout time.Duration
	now         func() time.Time
	logger      Logger
	metrics     Metrics
}

func NewRegistry(idleTimeout time.Duration, logger Logger, metrics Metrics) *Registry {
	return &Registry{
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      logger,
		metrics:     metrics,
	}
}

// Activate открывает комнату только что начавшейся сессии.
func (reg *Registry) Activate(sessionID string) {
	reg.getOrCreate(sessionID)
}

// Join регистрирует p в комнате. Прежнее соединение того же участника
// заменяется и закрывается. p получает joined со списком собеседников,
// собеседники получают peer-joined.
func (reg *Registry) Join(sessionID string, p *Participant) RoomState {
	for {
		r := reg.getOrCreate(sessionID)
		r.mu.Lock()
		if r.state == Closed {
			// удалена реапером между поиском и блокировкой
			r.mu.Unlock()
			continue
		}

		if old, ok := r.participants[p.ID]; ok && old != p {
			reg.logger.Info("signaling: session %s participant %d reconnected, replacing old connection", sessionID, p.ID)
			old.Close()
		}
		r.participants[p.ID] = p
		r.updateState()
		r.lastActivity = reg.now()

		r.deliver(p, Frame{Type: FrameJoined, Payload: mustPayload(PresencePayload{
			SessionID: sessionID, ParticipantID: p.ID, Role: string(p.Role), Peers: r.peerIDs(p.ID),
		})}, reg)

		notice := Frame{Type: FramePeerJoined, From: p.ID, Payload: mustPayload(PresencePayload{
			SessionID: sessionID, ParticipantID: p.ID, Role: string(p.Role),
		})}
		for id, peer := range r.participants {
			if id != p.ID {
				r.deliver(peer, notice, reg)
			}
		}

		state := r.state
		r.mu.Unlock()
		reg.logger.Info("signaling: participant %d joined session %s (%s)", p.ID, sessionID, state)
		return state
	}
}

// Leave удаляет p, если это всё ещё текущее соединение участника.
// Устаревшее соединение после переподключения игнорируется. Статус бронирования не меняется.
func (reg *Registry) Leave(sessionID string, p *Participant) {
	v, ok := reg.rooms.Load(sessionID)
	if !ok {
		return
	}
	r := v.(*room)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.participants[p.ID] != p {
		return
	}
	delete(r.participants, p.ID)
	r.updateState()
	r.lastActivity = reg.now()

	notice := Frame{Type: FramePeerLeft, From: p.ID, Payload: mustPayload(PresencePayload{
		SessionID: sessionID, ParticipantID: p.ID, Role: string(p.Role),
	})}
	for _, peer := range r.participants {
		r.deliver(peer, notice, reg)
	}
	reg.logger.Info("signaling: participant %d left session %s (%s)", p.ID, sessionID, r.state)
}

// Broadcast отправляет f всем участникам сессии.
func (reg *Registry) Broadcast(sessionID string, f Frame) error {
	return reg.withRoom(sessionID, func(r *room) error {
		for _, p := range r.participants {
			r.deliver(p, f, reg)
		}
		return nil
	})
}

// State состояние комнаты; false, если комнаты нет.
func (reg *Registry) State(sessionID string) (RoomState, bool) {
	v, ok := reg.rooms.Load(sessionID)
	if !ok {
		return Closed, false
	}
	r := v.(*room)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, true
}

// Reap закрывает комнаты, пустые дольше таймаута простоя.
// Возвращает число закрытых комнат.
func (reg *Registry) Reap(now time.Time) int {
	closed := 0
	reg.rooms.Range(func(key, value interface{}) bool {
		r := value.(*room)
		r.mu.Lock()
		if len(r.participants) == 0 && now.Sub(r.lastActivity) >= reg.idleTimeout {
			r.state = Closed
			reg.rooms.Delete(key)
			closed++
		}
		r.mu.Unlock()
		return true
	})
	if closed > 0 {
		reg.metrics.AddSignalingRooms(-closed)
		reg.logger.Info("signaling: reaped %d idle rooms", closed)
	}
	return closed
}

// CloseAll отключает всех участников при остановке сервера: каждому уходит
// error-кадр SERVER_SHUTDOWN, после чего соединение закрывается. Комнаты
// остаются до реапера. Возвращает число отключённых участников.
func (reg *Registry) CloseAll() int {
	shutdown := NewErrorFrame(CodeServerShutdown, "server is shutting down, reconnect shortly")
	closed := 0
	reg.rooms.Range(func(_, value interface{}) bool {
		r := value.(*room)
		r.mu.Lock()
		for id, p := range r.participants {
			p.Send(shutdown)
			p.Close()
			delete(r.participants, id)
			closed++
		}
		r.updateState()
		r.lastActivity = reg.now()
		r.mu.Unlock()
		return true
	})
	reg.logger.Info("signaling: closed %d connections on shutdown", closed)
	return closed
}

// Run раз в interval удаляет простаивающие комнаты, пока не отменён ctx.
func (reg *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.Reap(reg.now())
		}
	}
}

func (reg *Registry) withRoom(sessionID string, fn func(r *room) error) error {
	v, ok := reg.rooms.Load(sessionID)
	if !ok {
		return ErrRoomNotFound
	}
	r := v.(*room)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Closed {
		return ErrRoomNotFound
	}
	return fn(r)
}

func (reg *Registry) getOrCreate(sessionID string) *room {
	if v, ok := reg.rooms.Load(sessionID); ok {
		return v.(*room)
	}
	fresh := &room{
		sessionID:    sessionID,
		participants: make(map[int64]*Participant),
		state:        NoParticipants,
		lastActivity: reg.now(),
	}
	v, loaded := reg.rooms.LoadOrStore(sessionID, fresh)
	if !loaded {
		reg.metrics.AddSignalingRooms(1)
	}
	return v.(*room)
}
