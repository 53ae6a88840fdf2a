package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host           string `env:"HOST,required=true"`
	Port           int    `env:"PORT,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	AccessTokenDuration  time.Duration `env:"ACCESS_TOKEN_DURATION,required=true"`
	RefreshTokenDuration time.Duration `env:"REFRESH_TOKEN_DURATION,required=true"`

	TaskQueueSize   int           `env:"TASK_QUEUE_SIZE,required=true"`
	HealthInterval  time.Duration `env:"HEALTH_INTERVAL,required=true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,required=true"`

	CensoredWords   []string `env:"CENSORED_WORDS"`
	CharReplacement string   `env:"CHARACTER_REPLACEMENT,required=true"`

	// Zero disables the operator inspect endpoint.
	DebugPort int `env:"DEBUG_PORT"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
