package main

import "time"

type Config struct {
	BotToken           string        `env:"BOT_TOKEN,required=true" validate:"required"`
	BadgerFilepath     string        `env:"BADGER_FILEPATH,required=true" validate:"required"`
	LogLevel           string        `env:"LOG_LEVEL,default=info"`
	Host               string        `env:"HOST,default=0.0.0.0"`
	Port               int           `env:"PORT,default=3000" validate:"gt=0,lte=65535"`
	MaxMessageDuration int           `env:"MAX_MESSAGE_DURATION,default=60" validate:"gt=0"`
	SessionBufferSize  int           `env:"SESSION_BUFFER_SIZE,default=16" validate:"gt=0"`
	HealthLogInterval  time.Duration `env:"HEALTH_LOG_INTERVAL,default=1m" validate:"gt=0"`
}
