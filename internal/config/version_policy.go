package config

import (
	"fmt"
	"slices"
	"strings"
)

// CurrentConfigVersion is written by Dump and assumed when no file is used.
const CurrentConfigVersion = "1"

// SupportedConfigVersions lists the configVersion values Load accepts.
var SupportedConfigVersions = []string{CurrentConfigVersion}

func IsSupportedConfigVersion(v string) bool {
	return slices.Contains(SupportedConfigVersions, v)
}

// checkConfigVersion returns the error reported for an unsupported version.
func checkConfigVersion(v string) error {
	if IsSupportedConfigVersion(v) {
		return nil
	}
	return fmt.Errorf("unsupported configVersion: %q (supported: %s)", v, strings.Join(SupportedConfigVersions, ", "))
}
