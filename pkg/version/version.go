// SPDX-License-Identifier: Apache-2.0

// Package version implements the total ordering of migration versions.
//
// Two encodings are supported: a strict three-component semantic version
// (major.minor.patch, no "v" prefix, no pre-release or build metadata) and a
// non-negative integer sequence number. A migrator instance commits to exactly
// one encoding for its lifetime; versions of different encodings are never
// compared through the registry.
//
// The lowest value of each encoding ("0.0.0" or "0") is the reserved zero
// version. It denotes the pristine state with nothing applied and must not be
// used by any registered migration step.
package version

import (
	"fmt"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/joomcode/errorx"
)

// Latest is the sentinel accepted by Migrator.Up in place of a concrete
// version. It resolves to the highest registered version at call time and is
// never stored in the control record.
const Latest = "latest"

// Encoding selects how version strings are parsed and ordered.
type Encoding int

const (
	// EncodingSemVer orders versions as strict major.minor.patch triples.
	EncodingSemVer Encoding = iota
	// EncodingSequence orders versions as non-negative integers.
	EncodingSequence
)

// String returns the configuration name of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingSemVer:
		return "semver"
	case EncodingSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// ParseEncoding converts a configuration string into an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "semver":
		return EncodingSemVer, nil
	case "sequence":
		return EncodingSequence, nil
	default:
		return EncodingSemVer, errorx.IllegalArgument.New("unknown version encoding %q (want semver or sequence)", s)
	}
}

// Version is an immutable, totally ordered migration version identifier.
// The zero struct value equals Zero(EncodingSemVer).
type Version struct {
	encoding Encoding

	// semver components; only meaningful for EncodingSemVer
	major, minor, patch uint64

	// sequence number; only meaningful for EncodingSequence
	seq uint64
}

// Parse parses s according to the given encoding.
//
// For EncodingSemVer the input must be an exact major.minor.patch triple of
// non-negative integers without leading zeros: no "v" prefix, no partial
// versions, no pre-release tags, no build metadata, no ranges.
// For EncodingSequence the input must be a base-10 non-negative integer.
func Parse(enc Encoding, s string) (Version, error) {
	switch enc {
	case EncodingSemVer:
		sv, err := semver.StrictNewVersion(s)
		if err != nil {
			return Version{}, errorx.IllegalFormat.Wrap(err, "invalid semantic version %q", s)
		}
		if sv.Prerelease() != "" || sv.Metadata() != "" {
			return Version{}, errorx.IllegalFormat.New(
				"invalid semantic version %q: pre-release and build metadata are not accepted", s)
		}
		return Version{
			encoding: EncodingSemVer,
			major:    sv.Major(),
			minor:    sv.Minor(),
			patch:    sv.Patch(),
		}, nil

	case EncodingSequence:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Version{}, errorx.IllegalFormat.Wrap(err, "invalid sequence version %q", s)
		}
		return Version{encoding: EncodingSequence, seq: n}, nil

	default:
		return Version{}, errorx.IllegalArgument.New("unknown version encoding %d", enc)
	}
}

// MustParse is a Parse that panics on error. Intended for static migration
// tables and tests where the version literal is known to be well-formed.
func MustParse(enc Encoding, s string) Version {
	v, err := Parse(enc, s)
	if err != nil {
		panic(err)
	}
	return v
}

// Zero returns the reserved pristine version of the given encoding.
func Zero(enc Encoding) Version {
	return Version{encoding: enc}
}

// Encoding returns the encoding this version was parsed with.
func (v Version) Encoding() Encoding {
	return v.encoding
}

// IsZero reports whether v is the reserved zero version.
func (v Version) IsZero() bool {
	switch v.encoding {
	case EncodingSequence:
		return v.seq == 0
	default:
		return v.major == 0 && v.minor == 0 && v.patch == 0
	}
}

// String returns the canonical string form: "major.minor.patch" for the
// semver encoding, the decimal integer for the sequence encoding.
func (v Version) String() string {
	switch v.encoding {
	case EncodingSequence:
		return strconv.FormatUint(v.seq, 10)
	default:
		return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
	}
}

// Compare returns -1, 0 or +1 when v is respectively less than, equal to or
// greater than o. Both versions must share one encoding; when they do not,
// the encodings themselves are compared so that sorting stays consistent.
func (v Version) Compare(o Version) int {
	if v.encoding != o.encoding {
		return cmpUint64(uint64(v.encoding), uint64(o.encoding))
	}

	switch v.encoding {
	case EncodingSequence:
		return cmpUint64(v.seq, o.seq)
	default:
		if c := cmpUint64(v.major, o.major); c != 0 {
			return c
		}
		if c := cmpUint64(v.minor, o.minor); c != 0 {
			return c
		}
		return cmpUint64(v.patch, o.patch)
	}
}

// Less reports whether v orders strictly before o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// Equal reports whether v and o denote the same version.
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
