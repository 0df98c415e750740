package jitsi

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSign не удалось подписать токен комнаты
var ErrSign = errors.New("jitsi: failed to sign room token")

const (
	roomPrefix = "mindbuddy-session-"
	audience   = "jitsi"
)

// Config параметры Jitsi Meet.
// Без Secret комнаты выдаются без JWT (публичный meet.jit.si).
type Config struct {
	Domain string
	AppID  string
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// Meeting параметры подключения участника к видеокомнате
type Meeting struct {
	Domain    string
	RoomName  string
	JWT       string
	Moderator bool
}

// Rooms выдаёт видеокомнаты для сессий с методом video
type Rooms struct {
	cfg Config
}

func NewRooms(cfg Config) *Rooms {
	if cfg.Domain == "" {
		cfg.Domain = "meet.jit.si"
	}
	if cfg.AppID == "" {
		cfg.AppID = "mindbuddy"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Rooms{cfg: cfg}
}

// RoomName стабильное имя комнаты, из которого не восстановить sessionId
func (r *Rooms) RoomName(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return roomPrefix + hex.EncodeToString(sum[:])[:12]
}

type roomClaims struct {
	jwt.RegisteredClaims
	Room      string      `json:"room"`
	Context   roomContext `json:"context"`
	Moderator bool        `json:"moderator"`
}

type roomContext struct {
	User     roomUser        `json:"user"`
	Features map[string]bool `json:"features"`
}

type roomUser struct {
	ID string `json:"id"`
}

// Meeting собирает параметры комнаты для участника. Консультант входит модератором.
func (r *Rooms) Meeting(sessionID string, userID int64, moderator bool) (Meeting, error) {
	m := Meeting{
		Domain:    r.cfg.Domain,
		RoomName:  r.RoomName(sessionID),
		Moderator: moderator,
	}
	if len(r.cfg.Secret) == 0 {
		return m, nil
	}

	now := r.cfg.Now()
	claims := roomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.cfg.AppID,
			Audience:  jwt.ClaimStrings{audience},
			Subject:   r.cfg.Domain,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.cfg.TTL)),
		},
		Room: m.RoomName,
		Context: roomContext{
			User: roomUser{ID: strconv.FormatInt(userID, 10)},
			Features: map[string]bool{
				"livestreaming": false,
				"recording":     false,
				"transcription": false,
				"outbound-call": false,
			},
		},
		Moderator: moderator,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.cfg.Secret)
	if err != nil {
		return Meeting{}, fmt.Errorf("%w: %v", ErrSign, err)
	}
	m.JWT = token
	return m, nil
}
