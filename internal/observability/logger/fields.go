package logger

import (
	"time"

	"go.uber.org/zap"
)

// HTTP fields.

func RequestID(v string) zap.Field        { return zap.String("request_id", v) }
func Method(v string) zap.Field           { return zap.String("method", v) }
func Path(v string) zap.Field             { return zap.String("path", v) }
func Status(v int) zap.Field              { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field  { return zap.Duration("duration", v) }
func ClientIP(v string) zap.Field         { return zap.String("client_ip", v) }

// Domain fields.

func UserID(v string) zap.Field   { return zap.String("user_id", v) }
func Platform(v string) zap.Field { return zap.String("platform", v) }
func ClientID(v string) zap.Field { return zap.String("client_id", v) }

// System fields.

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

// Generic fields.

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
