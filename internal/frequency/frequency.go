// Package frequency interpreta as frequências de dose cadastradas pelos
// cuidadores ("8h", "1d") e calcula a próxima ocorrência.
package frequency

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Parse converte "<inteiro positivo><h|d>" em um intervalo.
// Qualquer outro formato retorna (0, false).
func Parse(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 {
		return 0, false
	}

	var unit time.Duration
	switch raw[len(raw)-1] {
	case 'h', 'H':
		unit = time.Hour
	case 'd', 'D':
		unit = day
	default:
		return 0, false
	}

	digits := raw[:len(raw)-1]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 || n > math.MaxInt64/int64(unit) {
		return 0, false
	}

	return time.Duration(n) * unit, true
}

// Next retorna a primeira ocorrência start+k*interval (k >= 1) estritamente
// posterior a now. Com start no futuro retorna start+interval.
func Next(start time.Time, interval time.Duration, now time.Time) time.Time {
	if interval <= 0 {
		return start
	}
	if now.Before(start) {
		return start.Add(interval)
	}
	k := now.Sub(start)/interval + 1
	return start.Add(k * interval)
}
