package sim

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ParseSchedule decodes the interrupt-schedule file format: a JSON object
// whose keys are stringified tick numbers and whose values are either a
// single-character string or an integer-valued string (the latter used
// when the program expects raw integer tokens rather than characters).
// A one-character string is always read as a character, so a single-digit
// integer string yields the digit's code point. Plain JSON numbers are
// also accepted as integer values.
func ParseSchedule(raw []byte) (map[int]int32, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("sim: invalid schedule file: %w", err)
	}

	out := make(map[int]int32, len(obj))
	for key, val := range obj {
		tick, err := strconv.Atoi(key)
		if err != nil || tick < 0 {
			return nil, fmt.Errorf("sim: schedule key %q is not a non-negative tick number", key)
		}

		var asStr string
		if err := json.Unmarshal(val, &asStr); err == nil {
			runes := []rune(asStr)
			if len(runes) == 1 {
				out[tick] = int32(runes[0])
				continue
			}
			n, err := strconv.ParseInt(asStr, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("sim: schedule value %q for tick %d is neither a single character nor an integer", asStr, tick)
			}
			out[tick] = int32(n)
			continue
		}

		var asNum int64
		if err := json.Unmarshal(val, &asNum); err != nil {
			return nil, fmt.Errorf("sim: schedule value for tick %d is neither a string nor a number", tick)
		}
		out[tick] = int32(asNum)
	}
	return out, nil
}
