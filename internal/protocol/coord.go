package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coord is a canvas coordinate that decodes from a JSON number or a numeric string
type Coord float64

// UnmarshalJSON implements json.Unmarshaler
func (c *Coord) UnmarshalJSON(data []byte) error {
	var f float64
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("coordinate %q is not a number", s)
		}
		f = parsed
	} else if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("coordinate %s is not a number", data)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("coordinate %s is not finite", data)
	}
	*c = Coord(f)
	return nil
}
