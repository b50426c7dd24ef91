package order

import (
	"crypto/rand"
	"math/big"
)

const orderNumberLength = 10

var ten = big.NewInt(10)

// newOrderNumber returns orderNumberLength decimal digits, each drawn
// uniformly from crypto/rand.
func newOrderNumber() (string, error) {
	buf := make([]byte, orderNumberLength)
	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}
