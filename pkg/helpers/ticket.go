package helpers

import (
	"crypto/rand"
	"math/big"
)

// ticketAlphabet leaves out 0/O and 1/I so codes survive being read aloud
// at the door.
const ticketAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const TicketCodeLength = 8

// GenTicketCode returns a random check-in code of TicketCodeLength characters.
func GenTicketCode() (string, error) {
	max := big.NewInt(int64(len(ticketAlphabet)))
	b := make([]byte, TicketCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = ticketAlphabet[n.Int64()]
	}
	return string(b), nil
}
