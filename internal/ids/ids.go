package ids

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a lexicographically sortable identifier. The random part comes
// from crypto/rand so ids cannot be predicted from one another.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

const lowerAlphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"
const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// TenantID returns a short lowercase identifier usable inside a postgres role name.
func TenantID() (string, error) {
	return randomString(rand.Reader, 6, lowerAlphanumeric)
}

// Password returns a random credential drawn from letters and digits.
func Password(length int) (string, error) {
	return randomString(rand.Reader, length, passwordAlphabet)
}

// randomString draws uniformly from alphabet. Bytes at or above the largest
// multiple of len(alphabet) are discarded so no character is favoured.
func randomString(src io.Reader, length int, alphabet string) (string, error) {
	limit := 256 - 256%len(alphabet)
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
