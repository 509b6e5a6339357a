// Package tracking generates the identifiers that tie a scan, a lead and a
// delivered message back together.
package tracking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/bwmarrin/snowflake"
)

// charset defines the character set used for generating short codes.
// 62^6 is roughly 56 billion codes, collisions are left to the unique index.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// ShortCodeLength is the length of codes produced by NewShortCode.
const ShortCodeLength = 6

// NewShortCode returns a random URL-safe short code of ShortCodeLength characters.
func NewShortCode() (string, error) {
	return NewShortCodeN(ShortCodeLength)
}

// reservedCodes are the root-level route names a short code must not take,
// the router would serve them instead of the redirect.
var reservedCodes = map[string]struct{}{
	"health":  {},
	"metrics": {},
	"api":     {},
}

// IsReservedShortCode reports whether code collides with a root-level route.
func IsReservedShortCode(code string) bool {
	_, ok := reservedCodes[code]
	return ok
}

// NewShortCodeN returns a random short code of the given length over charset.
func NewShortCodeN(length int) (string, error) {
	return randomString(charset, length)
}

// NewDeliveryCode returns a batch correlation token such as MSG_1718000000000_k3j9x0a1b.
// It is readable in logs and sortable by time, it is not a secret.
func NewDeliveryCode() (string, error) {
	suffix, err := randomString(base36, 9)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MSG_%d_%s", time.Now().UnixMilli(), suffix), nil
}

func randomString(alphabet string, length int) (string, error) {
	code := make([]byte, length)
	limit := big.NewInt(int64(len(alphabet)))
	for i := range code {
		num, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		code[i] = alphabet[num.Int64()]
	}
	return string(code), nil
}

// Generator hands out QR tracking identifiers from a snowflake node.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator creates a Generator for the given node id (0-1023).
func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to init snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// NewTrackingID returns a compact, time-ordered identifier in Base58.
func (g *Generator) NewTrackingID() string {
	return g.node.Generate().Base58()
}
