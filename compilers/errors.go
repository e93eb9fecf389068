package compilers

import "errors"

var (
	// ErrUnsupportedVersion is returned when a compiler version is not a
	// recognized release of the requested language.
	ErrUnsupportedVersion = errors.New("unsupported compiler version")

	// ErrCompilationFailed is returned when the compiler ran but reported a
	// fatal error in its standard-JSON output.
	ErrCompilationFailed = errors.New("compilation failed")

	// ErrDownloadFailed is returned when a pinned binary could not be fetched
	// from its release repository.
	ErrDownloadFailed = errors.New("compiler download failed")

	// ErrChecksumMismatch is returned when a downloaded binary's sha256 does
	// not match the list entry for that version.
	ErrChecksumMismatch = errors.New("compiler binary checksum mismatch")

	// ErrUnsupportedPlatform is returned when the host OS/arch has no
	// published build for the requested compiler.
	ErrUnsupportedPlatform = errors.New("unsupported platform for compiler binary")
)
