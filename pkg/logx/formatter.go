package logx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// formatConsole renders an entry as "TIME LEVEL message key=value ...".
func formatConsole(config *Config, level Level, msg string, fields Fields, err error, ts time.Time) []byte {
	var buf bytes.Buffer

	buf.WriteString(ts.Format(config.TimeFormat))
	buf.WriteString(" [")
	buf.WriteString(level.String())
	buf.WriteString("] ")
	buf.WriteString(msg)

	if err != nil {
		fmt.Fprintf(&buf, " error=%q", err.Error())
	}

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&buf, " %s=%v", k, fields[k])
		}
	}

	buf.WriteByte('\n')
	return buf.Bytes()
}

// formatJSON renders an entry as a single JSON line.
func formatJSON(config *Config, level Level, msg string, fields Fields, err error, ts time.Time) []byte {
	record := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		record[k] = v
	}
	record["time"] = ts.Format(config.TimeFormat)
	record["level"] = level.String()
	record["message"] = msg
	if err != nil {
		record["error"] = err.Error()
	}

	data, marshalErr := json.Marshal(record)
	if marshalErr != nil {
		return formatConsole(config, level, msg, fields, err, ts)
	}
	return append(data, '\n')
}
