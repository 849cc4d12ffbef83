package protocol

import (
	"fmt"

	"golang.org/x/mod/semver"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
)

// ToyGrepVersion is sent in every Hello. A master only admits workers that
// share its major version, since the message layout may change between majors.
const ToyGrepVersion = "v1.0.0"

// IsCompatibleVersion reports whether a worker announcing workerVersion may
// join a master running masterVersion: the majors must be equal.
func IsCompatibleVersion(workerVersion, masterVersion string) (bool, error) {
	if !semver.IsValid(workerVersion) {
		return false, fmt.Errorf("invalid worker version: %s", workerVersion)
	}
	if !semver.IsValid(masterVersion) {
		return false, fmt.Errorf("invalid master version: %s", masterVersion)
	}

	return semver.Major(workerVersion) == semver.Major(masterVersion), nil
}

// GetCompatibilityError is the reason a master puts in Welcome.Error when it
// turns a worker away.
func GetCompatibilityError(workerVersion, masterVersion string) string {
	return fmt.Sprintf(
		"worker version %s is incompatible with master version %s (required: %s.x.x)",
		workerVersion, masterVersion, semver.Major(masterVersion),
	)
}

// CheckHello validates a worker's Hello against this build. Every failure
// wraps toygrep.ErrIncompatibleVersion.
func CheckHello(hello *Hello) error {
	if hello == nil {
		return fmt.Errorf("%w: missing hello", toygrep.ErrIncompatibleVersion)
	}

	compatible, err := IsCompatibleVersion(hello.Version, ToyGrepVersion)
	if err != nil {
		return fmt.Errorf("%w: %w", toygrep.ErrIncompatibleVersion, err)
	}
	if !compatible {
		return fmt.Errorf("%w: %s", toygrep.ErrIncompatibleVersion,
			GetCompatibilityError(hello.Version, ToyGrepVersion))
	}

	return nil
}
