package output

import (
	"io"

	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"
)

// RenderAddressQR draws addr as a compact QR code when w is a terminal and
// reports whether anything was drawn.
func RenderAddressQR(w io.Writer, addr string) bool {
	if addr == "" || !isTerminal(w) {
		return false
	}
	qrterminal.GenerateWithConfig(addr, qrterminal.Config{
		Level:          qr.M,
		Writer:         w,
		QuietZone:      1,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
	return true
}
