package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 5 * time.Second

// ProbeVersion runs "<command> -version" and returns the version token from
// the banner, e.g. "6.1.1" for "ffmpeg version 6.1.1 Copyright ...".
func ProbeVersion(ctx context.Context, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, command, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", command, err)
	}
	version, ok := parseVersionBanner(out)
	if !ok {
		return "", fmt.Errorf("%s -version: unrecognised banner", command)
	}
	return version, nil
}

func parseVersionBanner(out []byte) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return "", false
	}
	fields := strings.Fields(scanner.Text())
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return fields[i+1], true
		}
	}
	return "", false
}
