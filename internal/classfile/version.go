package classfile

import (
	"github.com/daimatz/gojvm/internal/jvmerrors"
)

// Class file major version numbers for named JDK releases (JVMS Table 4.1-A),
// grounded on original_source/src/utils/constants.rs.
const (
	Java1_1 = 45
	Java1_2 = 46
	Java1_3 = 47
	Java1_4 = 48
	Java5   = 49
	Java6   = 50
	Java7   = 51
	Java8   = 52
	Java9   = 53
	Java10  = 54
	Java11  = 55
	Java12  = 56
	Java13  = 57
	Java14  = 58
	Java15  = 59
	Java16  = 60
	Java17  = 61

	MinSupportedMajor = Java1_1
	MaxSupportedMajor = Java17

	// PreviewMinor is the sentinel minor version (0xFFFF) marking a preview
	// class file. Preview class files are always rejected by this core, per
	// spec.md §6 (even though JVMS would otherwise accept minor=0 alongside it).
	PreviewMinor = 0xFFFF
)

// ValidateVersion enforces spec.md §6's acceptance rule: major in [45,61];
// majors 46-55 require minor=0; majors >= 56 require minor=0 (the preview
// minor is explicitly rejected, never accepted as JVMS alone would allow).
func ValidateVersion(major, minor uint16) error {
	if major < MinSupportedMajor || major > MaxSupportedMajor {
		return jvmerrors.New(jvmerrors.ClassFormatError,
			"unsupported major version %d (supported range is %d-%d)", major, MinSupportedMajor, MaxSupportedMajor)
	}
	if minor == PreviewMinor {
		return jvmerrors.New(jvmerrors.ClassFormatError,
			"preview class files (minor=0x%04X) are not supported", minor)
	}
	if major >= Java1_2 && major <= Java11 && minor != 0 {
		return jvmerrors.New(jvmerrors.ClassFormatError,
			"major version %d requires minor=0, got %d", major, minor)
	}
	if major >= Java12 && minor != 0 {
		return jvmerrors.New(jvmerrors.ClassFormatError,
			"major version %d requires minor=0, got %d", major, minor)
	}
	return nil
}
