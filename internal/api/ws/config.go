package ws

import "time"

// Config ограничения websocket соединения
type Config struct {
	AllowedOrigins  []string // пустой список разрешает любой Origin
	SendBuffer      int
	MaxFrameBytes   int
	FramesPerSecond float64
	FrameBurst      int
	MaxViolations   int           // после стольких нарушений соединение закрывается
	JoinTimeout     time.Duration // ожидание кадра join после подключения
	WriteTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = 64 << 10
	}
	if c.FramesPerSecond <= 0 {
		c.FramesPerSecond = 20
	}
	if c.FrameBurst <= 0 {
		c.FrameBurst = 40
	}
	if c.MaxViolations <= 0 {
		c.MaxViolations = 5
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	return c
}
