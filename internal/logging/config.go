package logging

import (
	"fmt"
	"os"
	"strings"
)

// LOGLEVEL holds comma-separated "tag=level" directives. A directive without
// a tag sets the default level.
const envVar = "LOGLEVEL"

type tagLevel struct {
	tag   string
	level Level
}

var (
	defaultLevel = Info
	tagLevels    []tagLevel
)

func init() {
	applyDirectives(os.Getenv(envVar))
	DefaultLogger.level.Store(int32(defaultLevel))
}

func applyDirectives(s string) {
	for _, d := range strings.Split(s, ",") {
		if d == "" {
			continue
		}
		v := strings.SplitN(d, "=", 2)
		level, err := ParseLevel(v[len(v)-1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid %s directive '%s': %s\n", envVar, d, err)
			continue
		}
		if len(v) == 1 {
			defaultLevel = level
		} else {
			tagLevels = append(tagLevels, tagLevel{v[0], level})
		}
	}
}

func determineLevel(tag string, fallback Level) Level {
	for _, e := range tagLevels {
		if e.tag == tag {
			return e.level
		}
	}
	return fallback
}
