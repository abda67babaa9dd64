package authorizer

import (
	"crypto/elliptic"
	"fmt"
	"math/big"
)

func bigIntFromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

func ecCurveFor(crv string) (elliptic.Curve, error) {
	switch crv {
	case "P-256":
		return elliptic.P256(), nil
	case "P-384":
		return elliptic.P384(), nil
	case "P-521":
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported EC curve %q", crv)
	}
}
