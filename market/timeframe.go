package market

import (
	"fmt"
	"time"
)

// Timeframe is a candle duration expressed in seconds.
type Timeframe int

const (
	M1  Timeframe = 60
	M5  Timeframe = 300
	M15 Timeframe = 900
	M30 Timeframe = 1800
	H1  Timeframe = 3600
	H4  Timeframe = 14400
	D1  Timeframe = 86400
	W1  Timeframe = 604800
)

var timeframeNames = map[Timeframe]string{
	M1:  "M1",
	M5:  "M5",
	M15: "M15",
	M30: "M30",
	H1:  "H1",
	H4:  "H4",
	D1:  "D1",
	W1:  "W1",
}

func (tf Timeframe) String() string {
	if name, ok := timeframeNames[tf]; ok {
		return name
	}
	return fmt.Sprintf("S%d", int(tf))
}

func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf) * time.Second
}

// ParseTimeframe accepts the usual short names (M1, H1, D1, ...).
func ParseTimeframe(s string) (Timeframe, error) {
	for tf, name := range timeframeNames {
		if name == s {
			return tf, nil
		}
	}
	return 0, fmt.Errorf("unknown timeframe %q", s)
}
