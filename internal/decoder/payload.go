package decoder

import (
	"fmt"
	"gonetcap/internal/models"
)

// RenderPayload builds the hex and ASCII views of a transport payload.
func RenderPayload(payload []byte) models.PayloadView {
	if len(payload) == 0 {
		return models.PayloadView{Hex: models.EmptyPayload, ASCII: models.EmptyPayload}
	}
	return models.PayloadView{
		Hex:   fmt.Sprintf("% x", payload),
		ASCII: printable(payload),
	}
}

// printable maps every byte outside 0x20..0x7e to '.'.
func printable(payload []byte) string {
	out := make([]byte, len(payload))
	for i, b := range payload {
		if b >= 0x20 && b <= 0x7e {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
