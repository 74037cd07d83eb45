package model

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxScale bounds the configurable decimal scale so scaled values stay
// well inside int64.
const MaxScale = 9

// Price is a scaled integer. The scale is defined by configuration.
type Price int64

func (p Price) AppendString(priceScale int, buf []byte) []byte {
	return appendScaledInt(buf, int64(p), priceScale)
}

func (p Price) Text(priceScale int) string {
	return string(p.AppendString(priceScale, nil))
}

// Quantity is a scaled integer. The scale is defined by configuration.
type Quantity int64

func (q Quantity) AppendString(quantityScale int, buf []byte) []byte {
	return appendScaledInt(buf, int64(q), quantityScale)
}

func (q Quantity) Text(quantityScale int) string {
	return string(q.AppendString(quantityScale, nil))
}

func appendScaledInt(buf []byte, value int64, scale int) []byte {
	if scale <= 0 {
		return strconv.AppendInt(buf, value, 10)
	}

	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(^value) + 1
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= scale {
		buf = append(buf, '0', '.')
		for i := 0; i < scale-len(digits); i++ {
			buf = append(buf, '0')
		}
		buf = append(buf, digits...)
		return buf
	}

	idx := len(digits) - scale
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	buf = append(buf, digits[idx:]...)
	return buf
}

// ParseScaled parses a decimal string into an integer scaled by 10^scale
// without going through float64. Extra fractional digits are rejected
// rather than truncated so a misconfigured tick surfaces immediately.
func ParseScaled(s string, scale int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty decimal")
	}

	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if hasFrac && strings.Contains(fracPart, ".") {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}

	var intVal int64
	if intPart != "" {
		v, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid decimal %q", s)
		}
		intVal = v
	}

	fracPart = strings.TrimRight(fracPart, "0")
	if len(fracPart) > scale {
		return 0, fmt.Errorf("decimal %q exceeds scale %d", s, scale)
	}
	for len(fracPart) < scale {
		fracPart += "0"
	}

	var fracVal int64
	if fracPart != "" {
		v, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid decimal %q", s)
		}
		fracVal = v
	}

	multiplier := int64(1)
	for i := 0; i < scale; i++ {
		multiplier *= 10
	}

	return sign * (intVal*multiplier + fracVal), nil
}
