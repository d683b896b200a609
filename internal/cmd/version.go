package cmd

import (
	"fmt"
	"strings"
)

var (
	version = "0.3.0-dev"
	commit  = ""
	date    = ""
)

func VersionString() string {
	v := strings.TrimSpace(version)
	metadata := make([]string, 0, 2)
	if c := strings.TrimSpace(commit); c != "" {
		metadata = append(metadata, c)
	}
	if d := strings.TrimSpace(date); d != "" {
		metadata = append(metadata, d)
	}
	if len(metadata) == 0 {
		return "Scribe " + v
	}
	return fmt.Sprintf("Scribe %s (%s)", v, strings.Join(metadata, " "))
}
