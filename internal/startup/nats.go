package startup

import (
	"os"
	"time"

	"github.com/quickchat/internal/logger"
	"github.com/quickchat/internal/mq"
)

// ConnectNATSWithRetry connects to NATS with backoff. After the initial
// connection the client reconnects on its own.
// logPrefix is prepended to log messages (for example "mail: ").
func ConnectNATSWithRetry(url, name string, maxWait time.Duration, logPrefix string) *mq.Client {
	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	for {
		cfg := mq.DefaultConfig()
		cfg.URL = url
		cfg.Name = name
		client, err := mq.New(cfg)
		if err != nil {
			if time.Now().After(deadline) {
				logger.Errorf("%snats (gave up after %v): %v", logPrefix, maxWait, err)
				os.Exit(1)
			}
			logger.Errorf("%snats connect failed, retry in %v: %v", logPrefix, backoff, err)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		return client
	}
}
