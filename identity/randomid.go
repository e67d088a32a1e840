package identity

import (
	cryptorand "crypto/rand"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/google/uuid"
)

var (
	// idReader is used for random id generation. This declaration allows us to
	// replace it for testing.
	idReader io.Reader = cryptorand.Reader
)

// DefaultMACBase is the locally administered OUI used for generated port MAC
// addresses.
const DefaultMACBase = "fa:16:3e"

// NewID generates a new identifier for use where random identifiers with low
// collision probability are required.
func NewID() string {
	id, err := uuid.NewRandomFromReader(idReader)
	if err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}
	return id.String()
}

// NewMAC generates a MAC address made of the three octets of base followed by
// three random octets. It panics if base is not three colon separated hex
// octets.
func NewMAC(base string) string {
	prefix, err := net.ParseMAC(base + ":00:00:00")
	if err != nil {
		panic(fmt.Errorf("invalid MAC base %q: %v", base, err))
	}

	var p [3]byte
	if _, err := io.ReadFull(idReader, p[:]); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}

	mac := net.HardwareAddr{prefix[0], prefix[1], prefix[2], p[0], p[1], p[2]}
	return mac.String()
}

// NormalizeMAC returns the canonical lower-case colon separated form of a MAC
// address, or the lower-cased input if it does not parse.
func NormalizeMAC(mac string) string {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return strings.ToLower(mac)
	}
	return hw.String()
}
