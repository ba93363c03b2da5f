package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// testDefaults point every outbound dependency at a closed port so a test
// that forgets to stub one fails fast instead of reaching a real service.
var testDefaults = map[string]string{
	"STAYBOARD_TEST_MODE": "1",
	"GOTENBERG_URL":       "http://127.0.0.1:0",
	"CMS_URL":             "http://127.0.0.1:0",
	"REFRESH_DELAY":       "0s",
}

func ensureTestMode() {
	once.Do(func() {
		for key, value := range testDefaults {
			if key == "STAYBOARD_TEST_MODE" || os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
