package internal

import (
	"fmt"
	"time"
)

// Config defines the client environment variables.
type Config struct {
	ServerURL         string        `env:"CONVO_SERVER_URL,default=http://localhost:5000"`
	StreamURL         string        `env:"CONVO_STREAM_URL,default=ws://localhost:5000/stream"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT,default=10s"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	CensoredWordsPath string        `env:"CENSORED_WORDS_PATH"`
	CensoredChar      string        `env:"CENSORED_CHAR,default=*"`
	AuthToken         string        `env:"CONVO_AUTH_TOKEN"`
}

// CensorRune validates that the configured censor character is a
// single rune.
func CensorRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CENSORED_CHAR must be a single character, got %q", str)
	}
	return r[0], nil
}
